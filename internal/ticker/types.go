package ticker

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Query identifies the ticker to fetch.
type Query struct {
	Exchange string
	Symbol   string
}

// Key returns a stable identifier for the query, e.g. "binance::BTC/USDT".
func (q Query) Key() string {
	return q.Exchange + "::" + q.Symbol
}

// Payload is the opaque JSON body returned by the ticker endpoint.
// The zero value is the absent payload.
type Payload struct {
	raw json.RawMessage
}

// NewPayload wraps a JSON document. It returns an error if b is not valid JSON.
func NewPayload(b []byte) (Payload, error) {
	if !json.Valid(b) {
		return Payload{}, fmt.Errorf("invalid JSON document (%d bytes)", len(b))
	}
	cp := make([]byte, len(b))
	copy(cp, b)
	return Payload{raw: cp}, nil
}

// MustPayload is like NewPayload but panics on invalid JSON.
func MustPayload(s string) Payload {
	p, err := NewPayload([]byte(s))
	if err != nil {
		panic(err)
	}
	return p
}

// Present reports whether a payload has been received.
func (p Payload) Present() bool {
	return p.raw != nil
}

// Raw returns the payload bytes as received, or nil when absent.
func (p Payload) Raw() json.RawMessage {
	return p.raw
}

// Pretty renders the normalized payload with a two-space indent, so 1.0
// prints as 1 and "\u00e9" as "é". An absent payload renders as the
// literal null.
func (p Payload) Pretty() string {
	if !p.Present() {
		return "null"
	}
	norm, err := normalize(p.raw)
	if err != nil {
		return string(p.raw)
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, norm, "", "  "); err != nil {
		return string(p.raw)
	}
	return buf.String()
}

// Equal reports whether two payloads hold the same bytes.
func (p Payload) Equal(o Payload) bool {
	if p.Present() != o.Present() {
		return false
	}
	return bytes.Equal(p.raw, o.raw)
}

// Outcome is the result of one fetch: a payload or a failure.
type Outcome struct {
	// RequestID correlates the outcome with the outbound request.
	RequestID string
	// Status is the HTTP status code, 0 if no response was received.
	Status int
	// Payload is set when Err is nil.
	Payload Payload
	// Err is nil on success.
	Err *Failure
}

// OK reports whether the outcome carries a payload.
func (o Outcome) OK() bool {
	return o.Err == nil
}
