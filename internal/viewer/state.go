package viewer

import (
	"fmt"

	"github.com/zappabad/tickerview/internal/ticker"
)

// State is the viewer's data. It is a value; every Action yields a new State.
type State struct {
	// Exchange is the exchange identifier as typed.
	Exchange string
	// Symbol is the trading-pair identifier as typed.
	Symbol string
	// Payload is the last payload received, absent until the first success.
	Payload ticker.Payload
	// Status is the HTTP status of the last applied response, 0 if none.
	Status int
	// Err is the last failure. The next successful completion clears it.
	Err *ticker.Failure
	// Source is the request id of the last applied outcome.
	Source string

	// Issued is the sequence number of the most recently started fetch.
	Issued uint64
	// Applied is the sequence number of the last applied completion.
	Applied uint64
	// InFlight counts fetches started but not completed.
	InFlight int
	// Live is true while a stream feeds the payload.
	Live bool
}

// Query returns the ticker query for the current inputs.
func (s State) Query() ticker.Query {
	return ticker.Query{Exchange: s.Exchange, Symbol: s.Symbol}
}

// ActionType enumerates the changes a State accepts.
type ActionType int

const (
	// ActUpdateExchange replaces the exchange text.
	ActUpdateExchange ActionType = iota
	// ActUpdateSymbol replaces the symbol text.
	ActUpdateSymbol
	// ActFetchStarted records a new outbound fetch.
	ActFetchStarted
	// ActFetchCompleted applies the outcome of a fetch.
	ActFetchCompleted
	// ActStreamed applies an outcome delivered by a live stream.
	ActStreamed
	// ActLive toggles live mode.
	ActLive
)

func (t ActionType) String() string {
	switch t {
	case ActUpdateExchange:
		return "update_exchange"
	case ActUpdateSymbol:
		return "update_symbol"
	case ActFetchStarted:
		return "fetch_started"
	case ActFetchCompleted:
		return "fetch_completed"
	case ActStreamed:
		return "streamed"
	case ActLive:
		return "live"
	default:
		return fmt.Sprintf("ActionType(%d)", int(t))
	}
}

// Action is one change to apply to a State.
type Action struct {
	Type ActionType
	// Text is the new value for the update actions.
	Text string
	// Seq is the fetch sequence number for fetch actions.
	Seq uint64
	// Outcome is set for ActFetchCompleted and ActStreamed.
	Outcome ticker.Outcome
	// On is the new live flag for ActLive.
	On bool
}

// UpdateExchange replaces the exchange verbatim.
func UpdateExchange(text string) Action {
	return Action{Type: ActUpdateExchange, Text: text}
}

// UpdateSymbol replaces the symbol verbatim.
func UpdateSymbol(text string) Action {
	return Action{Type: ActUpdateSymbol, Text: text}
}

// FetchStarted marks fetch seq as issued.
func FetchStarted(seq uint64) Action {
	return Action{Type: ActFetchStarted, Seq: seq}
}

// FetchCompleted applies the outcome of fetch seq.
func FetchCompleted(seq uint64, o ticker.Outcome) Action {
	return Action{Type: ActFetchCompleted, Seq: seq, Outcome: o}
}

// Streamed applies an outcome received from a live stream.
func Streamed(o ticker.Outcome) Action {
	return Action{Type: ActStreamed, Outcome: o}
}

// Live turns live mode on or off.
func Live(on bool) Action {
	return Action{Type: ActLive, On: on}
}

// Reducer applies Actions to a State. It never mutates its input.
type Reducer struct {
	// DiscardStale drops completions older than the last applied one.
	// When false the last response to arrive wins.
	DiscardStale bool
}

// Apply returns the State that results from applying a to s.
func (r Reducer) Apply(s State, a Action) State {
	switch a.Type {
	case ActUpdateExchange:
		s.Exchange = a.Text
	case ActUpdateSymbol:
		s.Symbol = a.Text
	case ActFetchStarted:
		if a.Seq > s.Issued {
			s.Issued = a.Seq
		}
		s.InFlight++
	case ActFetchCompleted:
		if s.InFlight > 0 {
			s.InFlight--
		}
		if r.DiscardStale && a.Seq < s.Applied {
			break
		}
		s.Applied = a.Seq
		s = applyOutcome(s, a.Outcome)
	case ActStreamed:
		s = applyOutcome(s, a.Outcome)
	case ActLive:
		s.Live = a.On
	}
	return s
}

// applyOutcome replaces the payload on success and keeps the last good
// payload on failure.
func applyOutcome(s State, o ticker.Outcome) State {
	s.Source = o.RequestID
	s.Status = o.Status
	if o.OK() {
		s.Payload = o.Payload
		s.Err = nil
		return s
	}
	s.Err = o.Err
	return s
}
