package viewer

import (
	"errors"
	"testing"

	"github.com/kylelemons/godebug/pretty"

	"github.com/zappabad/tickerview/internal/ticker"
)

var cmpConfig = &pretty.Config{
	Diffable:       true,
	PrintStringers: true,
}

func TestReducerApply(t *testing.T) {
	good := ticker.MustPayload(`{"last":1}`)
	newer := ticker.MustPayload(`{"last":2}`)
	failure := ticker.NewFailure(ticker.FailureTransport, errors.New("refused"))

	tests := []struct {
		desc    string
		reducer Reducer
		start   State
		action  Action
		want    State
	}{
		{
			desc:   "update exchange",
			start:  State{Exchange: "binance", Symbol: "BTC/USDT"},
			action: UpdateExchange("kraken "),
			want:   State{Exchange: "kraken ", Symbol: "BTC/USDT"},
		},
		{
			desc:   "update symbol",
			start:  State{Exchange: "binance", Symbol: "BTC/USDT"},
			action: UpdateSymbol("eth/usdt"),
			want:   State{Exchange: "binance", Symbol: "eth/usdt"},
		},
		{
			desc:   "fetch started",
			start:  State{Issued: 3, InFlight: 1},
			action: FetchStarted(4),
			want:   State{Issued: 4, InFlight: 2},
		},
		{
			desc:   "fetch completed with payload",
			start:  State{Issued: 1, InFlight: 1, Err: failure},
			action: FetchCompleted(1, ticker.Outcome{RequestID: "r1", Status: 200, Payload: good}),
			want:   State{Issued: 1, Applied: 1, Payload: good, Status: 200, Source: "r1"},
		},
		{
			desc:   "fetch completed with failure keeps payload",
			start:  State{Issued: 2, Applied: 1, InFlight: 1, Payload: good, Status: 200},
			action: FetchCompleted(2, ticker.Outcome{RequestID: "r2", Err: failure}),
			want:   State{Issued: 2, Applied: 2, Payload: good, Err: failure, Source: "r2"},
		},
		{
			desc:   "stale completion applied by default",
			start:  State{Issued: 2, Applied: 2, InFlight: 1, Payload: newer},
			action: FetchCompleted(1, ticker.Outcome{RequestID: "r1", Status: 200, Payload: good}),
			want:   State{Issued: 2, Applied: 1, Payload: good, Status: 200, Source: "r1"},
		},
		{
			desc:    "stale completion discarded",
			reducer: Reducer{DiscardStale: true},
			start:   State{Issued: 2, Applied: 2, InFlight: 1, Payload: newer, Source: "r2"},
			action:  FetchCompleted(1, ticker.Outcome{RequestID: "r1", Status: 200, Payload: good}),
			want:    State{Issued: 2, Applied: 2, Payload: newer, Source: "r2"},
		},
		{
			desc:   "streamed outcome leaves counters alone",
			start:  State{Issued: 1, Applied: 1, Live: true, Payload: good},
			action: Streamed(ticker.Outcome{RequestID: "s", Payload: newer}),
			want:   State{Issued: 1, Applied: 1, Live: true, Payload: newer, Source: "s"},
		},
		{
			desc:   "live on",
			action: Live(true),
			want:   State{Live: true},
		},
	}

	for _, test := range tests {
		got := test.reducer.Apply(test.start, test.action)
		if diff := cmpConfig.Compare(test.want, got); diff != "" {
			t.Errorf("TestReducerApply(%s): -want/+got:\n%s", test.desc, diff)
		}
		if !got.Payload.Equal(test.want.Payload) {
			t.Errorf("TestReducerApply(%s): payload %s, want %s", test.desc, got.Payload.Raw(), test.want.Payload.Raw())
		}
	}
}

func TestReducerDoesNotMutateInput(t *testing.T) {
	start := State{Exchange: "binance", InFlight: 1}
	Reducer{}.Apply(start, UpdateExchange("kraken"))
	Reducer{}.Apply(start, FetchCompleted(1, ticker.Outcome{}))

	if start.Exchange != "binance" || start.InFlight != 1 {
		t.Errorf("input state was mutated: %+v", start)
	}
}

func TestActionTypeString(t *testing.T) {
	if ActFetchCompleted.String() != "fetch_completed" {
		t.Errorf("unexpected name %q", ActFetchCompleted.String())
	}
	if ActionType(99).String() != "ActionType(99)" {
		t.Errorf("unexpected name %q", ActionType(99).String())
	}
}
