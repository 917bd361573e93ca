package ticker

import (
	"encoding/json"
	"testing"
)

func TestCandleUnmarshal(t *testing.T) {
	var c Candle
	if err := json.Unmarshal([]byte(`[1700000000000, 1.5, "2", 1, 1.75, 300]`), &c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Time != 1700000000000 {
		t.Errorf("unexpected time %d", c.Time)
	}
	if c.Open.String() != "1.5" || c.High.String() != "2" || c.Low.String() != "1" || c.Close.String() != "1.75" {
		t.Errorf("unexpected prices %s %s %s %s", c.Open, c.High, c.Low, c.Close)
	}
	if !c.HasVolume || c.Volume.String() != "300" {
		t.Errorf("unexpected volume %s (%v)", c.Volume, c.HasVolume)
	}
}

func TestCandleNullVolume(t *testing.T) {
	var c Candle
	if err := json.Unmarshal([]byte(`[1.7e12, 1, 1, 1, 1, null]`), &c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.HasVolume {
		t.Error("expected volume to be unknown")
	}
	if c.Time != 1700000000000 {
		t.Errorf("expected float time to truncate to ms, got %d", c.Time)
	}
}

func TestCandleRejectsMalformedRows(t *testing.T) {
	for _, in := range []string{
		`{"open": 1}`,
		`[1, 2, 3]`,
		`["x", 1, 1, 1, 1, 1]`,
		`[1, "abc", 1, 1, 1, 1]`,
	} {
		var c Candle
		if err := json.Unmarshal([]byte(in), &c); err == nil {
			t.Errorf("%s: expected error", in)
		}
	}
}

func TestHistoryDecodes(t *testing.T) {
	var h History
	body := `{"exchange":"binance","symbol":"BTC/USDT","ohlcv":[[1,2,3,1,2,10]],"page":1,"limit":100}`
	if err := json.Unmarshal([]byte(body), &h); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.Exchange != "binance" || h.Symbol != "BTC/USDT" || h.Page != 1 || h.Limit != 100 || len(h.Candles) != 1 {
		t.Errorf("unexpected history %+v", h)
	}
}
