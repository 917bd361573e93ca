package ticker

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Candle is one OHLCV row. Volume may be unknown for some exchanges.
type Candle struct {
	Time      int64 // unix milliseconds
	Open      decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Close     decimal.Decimal
	Volume    decimal.Decimal
	HasVolume bool
}

// UnmarshalJSON decodes the [time, open, high, low, close, volume] array form.
func (c *Candle) UnmarshalJSON(b []byte) error {
	var row []json.RawMessage
	if err := json.Unmarshal(b, &row); err != nil {
		return fmt.Errorf("candle: %w", err)
	}
	if len(row) != 6 {
		return fmt.Errorf("candle: expected 6 fields, got %d", len(row))
	}

	var ts json.Number
	if err := json.Unmarshal(row[0], &ts); err != nil {
		return fmt.Errorf("candle time: %w", err)
	}
	ms, err := ts.Int64()
	if err != nil {
		f, ferr := ts.Float64()
		if ferr != nil {
			return fmt.Errorf("candle time: %w", err)
		}
		ms = int64(f)
	}

	var out Candle
	out.Time = ms
	for i, dst := range []*decimal.Decimal{&out.Open, &out.High, &out.Low, &out.Close} {
		if err := dst.UnmarshalJSON(row[i+1]); err != nil {
			return fmt.Errorf("candle field %d: %w", i+1, err)
		}
	}
	if string(row[5]) != "null" {
		if err := out.Volume.UnmarshalJSON(row[5]); err != nil {
			return fmt.Errorf("candle volume: %w", err)
		}
		out.HasVolume = true
	}

	*c = out
	return nil
}

// History is one page of candles for a query.
type History struct {
	Exchange string   `json:"exchange"`
	Symbol   string   `json:"symbol"`
	Candles  []Candle `json:"ohlcv"`
	Page     int      `json:"page"`
	Limit    int      `json:"limit"`
}
