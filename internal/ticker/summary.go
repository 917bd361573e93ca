package ticker

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// Summary holds the well-known price fields of a ticker payload.
// The payload shape is not guaranteed, so each field is optional.
type Summary struct {
	Last, Bid, Ask          decimal.Decimal
	HasLast, HasBid, HasAsk bool
}

// Empty reports whether none of the fields were found.
func (s Summary) Empty() bool {
	return !s.HasLast && !s.HasBid && !s.HasAsk
}

// Spread returns ask minus bid when both are known.
func (s Summary) Spread() (decimal.Decimal, bool) {
	if !s.HasBid || !s.HasAsk {
		return decimal.Zero, false
	}
	return s.Ask.Sub(s.Bid), true
}

// String renders the summary as "last 100.5  bid 100  ask 101".
func (s Summary) String() string {
	var parts []string
	if s.HasLast {
		parts = append(parts, "last "+s.Last.String())
	}
	if s.HasBid {
		parts = append(parts, "bid "+s.Bid.String())
	}
	if s.HasAsk {
		parts = append(parts, "ask "+s.Ask.String())
	}
	if spread, ok := s.Spread(); ok {
		parts = append(parts, "spread "+spread.String())
	}
	return strings.Join(parts, "  ")
}

// Summarize extracts last/bid/ask from a payload that is a JSON object.
// Anything else yields an empty Summary.
func Summarize(p Payload) Summary {
	var s Summary
	if !p.Present() {
		return s
	}

	dec := json.NewDecoder(bytes.NewReader(p.Raw()))
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return s
	}

	s.Last, s.HasLast = decimalField(fields, "last")
	s.Bid, s.HasBid = decimalField(fields, "bid")
	s.Ask, s.HasAsk = decimalField(fields, "ask")
	return s
}

func decimalField(fields map[string]any, name string) (decimal.Decimal, bool) {
	var raw string
	switch v := fields[name].(type) {
	case json.Number:
		raw = v.String()
	case string:
		raw = v
	default:
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
