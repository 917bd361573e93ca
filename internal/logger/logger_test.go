package logger

import (
	"bytes"
	"encoding/json"
	"io"
	"sync"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"ERR", zerolog.ErrorLevel},
		{"off", zerolog.Disabled},
		{"", zerolog.InfoLevel},
		{"something", zerolog.InfoLevel},
	}
	for _, c := range cases {
		if got := parseLevel(c.in); got != c.want {
			t.Fatalf("parseLevel(%q)=%v, want %v", c.in, got, c.want)
		}
	}
}

func TestInitWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	Init(Options{Level: "debug", Out: &buf})

	L().Debug().Str("exchange", "binance").Msg("fetch")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
	}
	if line["exchange"] != "binance" || line["message"] != "fetch" || line["app"] != "tickerview" {
		t.Errorf("unexpected log line: %v", line)
	}
}

func TestInitRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	Init(Options{Level: "error", Out: &buf})

	L().Info().Msg("hidden")
	if buf.Len() != 0 {
		t.Errorf("expected info to be filtered, got %q", buf.String())
	}
	if L().GetLevel() != zerolog.ErrorLevel {
		t.Errorf("expected error level, got %v", L().GetLevel())
	}
}

func TestLInitializesOnce(t *testing.T) {
	mu.Lock()
	initialized = false
	base = zerolog.Logger{}
	mu.Unlock()

	lg := L()
	if lg == nil {
		t.Fatal("logger is nil")
	}
	if lg.GetLevel() != zerolog.InfoLevel {
		t.Fatalf("expected default info level, got %v", lg.GetLevel())
	}
}

func TestLoggerSurvivesReinit(t *testing.T) {
	var first, second bytes.Buffer
	Init(Options{Level: "info", Out: &first})
	lg := L()

	Init(Options{Level: "info", Out: &second})
	lg.Info().Msg("kept")

	if !bytes.Contains(first.Bytes(), []byte(`"kept"`)) {
		t.Errorf("expected line in the original output, got %q", first.String())
	}
	if second.Len() != 0 {
		t.Errorf("expected nothing in the new output, got %q", second.String())
	}
}

func TestConcurrentInitAndLog(t *testing.T) {
	Init(Options{Level: "debug", Out: io.Discard})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			Init(Options{Level: "debug", Out: io.Discard})
		}()
		go func() {
			defer wg.Done()
			L().Debug().Int("n", i).Msg("tick")
		}()
	}
	wg.Wait()
}
