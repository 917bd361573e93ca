// Package viewer holds the ticker viewer's state container: the exchange and
// symbol being edited, the last fetched payload, and the fetch lifecycle.
package viewer

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/zappabad/tickerview/internal/logger"
	"github.com/zappabad/tickerview/internal/ticker"
)

// ErrClosed is returned when streaming into a closed Viewer.
var ErrClosed = errors.New("viewer closed")

// Fetcher performs one ticker fetch.
type Fetcher interface {
	Fetch(ctx context.Context, q ticker.Query) ticker.Outcome
}

// Streamer delivers live ticker outcomes until ctx is done.
type Streamer interface {
	Stream(ctx context.Context, q ticker.Query, fn func(ticker.Outcome)) error
}

// Request is a fetch that has been started but not completed.
type Request struct {
	Seq   uint64
	Query ticker.Query
}

// Viewer owns one State and applies Actions to it. It is safe for
// concurrent use; overlapping fetches are allowed.
type Viewer struct {
	cfg     Config
	fetcher Fetcher
	reducer Reducer

	mu    sync.Mutex
	state State

	// pubMu orders publication so subscribers see states in apply order.
	pubMu         sync.Mutex
	events        chan State
	droppedEvents atomic.Int64

	done      chan struct{}
	closeOnce sync.Once
	closed    bool
}

// New creates a Viewer with the configured initial exchange and symbol and
// no payload.
func New(fetcher Fetcher, cfg Config) *Viewer {
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = DefaultConfig().EventBuffer
	}

	return &Viewer{
		cfg:     cfg,
		fetcher: fetcher,
		reducer: Reducer{DiscardStale: cfg.DiscardStale},
		state: State{
			Exchange: cfg.Exchange,
			Symbol:   cfg.Symbol,
		},
		events: make(chan State, cfg.EventBuffer),
		done:   make(chan struct{}),
	}
}

// State returns the current state.
func (v *Viewer) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// Render returns the pretty-printed payload, or null when none was received.
func (v *Viewer) Render() string {
	return v.State().Payload.Pretty()
}

// Dispatch applies a to the state and publishes the result.
func (v *Viewer) Dispatch(a Action) State {
	v.pubMu.Lock()
	defer v.pubMu.Unlock()

	v.mu.Lock()
	v.state = v.reducer.Apply(v.state, a)
	s := v.state
	v.mu.Unlock()

	v.publish(s)
	return s
}

func (v *Viewer) publish(s State) {
	if v.closed {
		return
	}
	if v.cfg.DropEvents {
		select {
		case v.events <- s:
		default:
			v.droppedEvents.Add(1)
		}
		return
	}
	select {
	case v.events <- s:
	case <-v.done:
	}
}

// UpdateExchange replaces the exchange text verbatim.
func (v *Viewer) UpdateExchange(text string) {
	v.Dispatch(UpdateExchange(text))
}

// UpdateSymbol replaces the symbol text verbatim.
func (v *Viewer) UpdateSymbol(text string) {
	v.Dispatch(UpdateSymbol(text))
}

// Begin snapshots the current query and issues a new fetch sequence number.
func (v *Viewer) Begin() Request {
	v.pubMu.Lock()
	defer v.pubMu.Unlock()

	v.mu.Lock()
	seq := v.state.Issued + 1
	v.state = v.reducer.Apply(v.state, FetchStarted(seq))
	s := v.state
	v.mu.Unlock()

	v.publish(s)
	return Request{Seq: seq, Query: s.Query()}
}

// Complete applies the outcome of req.
func (v *Viewer) Complete(req Request, o ticker.Outcome) State {
	s := v.Dispatch(FetchCompleted(req.Seq, o))

	ev := logger.L().Debug()
	if !o.OK() {
		ev = logger.L().Warn().Err(o.Err)
	}
	ev.Uint64("seq", req.Seq).
		Uint64("applied", s.Applied).
		Str("request_id", o.RequestID).
		Int("in_flight", s.InFlight).
		Msg("fetch completed")
	return s
}

// FetchTicker fetches the ticker for the current exchange and symbol and
// applies the outcome. It blocks until the fetch completes; edits and other
// fetches may proceed meanwhile.
func (v *Viewer) FetchTicker(ctx context.Context) ticker.Outcome {
	req := v.Begin()
	o := v.fetcher.Fetch(ctx, req.Query)
	v.Complete(req, o)
	return o
}

// Watch streams live updates for the current query into the state until
// ctx is done or the stream ends.
func (v *Viewer) Watch(ctx context.Context, s Streamer) error {
	select {
	case <-v.done:
		return ErrClosed
	default:
	}

	q := v.Dispatch(Live(true)).Query()
	defer v.Dispatch(Live(false))

	return s.Stream(ctx, q, func(o ticker.Outcome) {
		v.Dispatch(Streamed(o))
	})
}

// Events returns a channel that receives every new state.
func (v *Viewer) Events() <-chan State {
	return v.events
}

// DroppedEvents returns the count of states not delivered on Events.
func (v *Viewer) DroppedEvents() int64 {
	return v.droppedEvents.Load()
}

// Close stops publishing and closes the events channel.
func (v *Viewer) Close() {
	v.closeOnce.Do(func() {
		close(v.done)

		v.pubMu.Lock()
		v.closed = true
		close(v.events)
		v.pubMu.Unlock()
	})
}
