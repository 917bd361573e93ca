package ticker

import "fmt"

// FailureKind classifies why a fetch did not produce a payload.
type FailureKind int

const (
	// FailureRequest means the outbound request could not be built.
	FailureRequest FailureKind = iota + 1
	// FailureTransport means no response was received.
	FailureTransport
	// FailureStatus means the backend answered with a non-2xx status.
	FailureStatus
	// FailureDecode means the response body was not valid JSON.
	FailureDecode
)

func (k FailureKind) String() string {
	switch k {
	case FailureRequest:
		return "request"
	case FailureTransport:
		return "transport"
	case FailureStatus:
		return "status"
	case FailureDecode:
		return "decode"
	default:
		return fmt.Sprintf("FailureKind(%d)", int(k))
	}
}

// Failure is a classified fetch error.
type Failure struct {
	Kind FailureKind
	Err  error
}

// NewFailure wraps err with a kind.
func NewFailure(kind FailureKind, err error) *Failure {
	return &Failure{Kind: kind, Err: err}
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s failure: %v", f.Kind, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}
