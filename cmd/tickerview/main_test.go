package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func newBackend(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ticker", func(c *gin.Context) {
		if c.GetHeader("X-API-KEY") != "demo-key-123" {
			c.JSON(http.StatusUnauthorized, gin.H{"detail": "Invalid or missing API key"})
			return
		}
		switch c.Query("symbol") {
		case "BTC/USDT":
			c.Data(http.StatusOK, "application/json", []byte(`{"symbol":"BTC/USDT","last":"100","bid":"99","ask":"101"}`))
		case "ETH/USDT":
			c.Data(http.StatusOK, "application/json", []byte(`{"symbol":"ETH/USDT","last":"5"}`))
		default:
			c.Data(http.StatusOK, "text/plain", []byte("not json"))
		}
	})
	r.GET("/markets", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"exchange": c.Query("exchange"), "markets": []string{"BTC/USDT", "ETH/USDT"}})
	})
	r.GET("/historical", func(c *gin.Context) {
		if c.Query("limit") != "2" || c.Query("page") != "3" || c.Query("since") != "1700000000000" {
			c.JSON(http.StatusBadGateway, gin.H{"detail": "unexpected paging " + c.Request.URL.RawQuery})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"exchange": c.Query("exchange"),
			"symbol":   c.Query("symbol"),
			"ohlcv": [][]any{
				{1700000000000, 100, 110.5, 95, 105, 12.25},
				{1700000060000, 105, 106, 104, 104.5, nil},
			},
			"page":  3,
			"limit": 2,
		})
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	t.Setenv("HOME", t.TempDir())
	return srv
}

func runArgs(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestFetchManySymbols(t *testing.T) {
	srv := newBackend(t)

	code, out, errOut := runArgs(t, "fetch", "--base-url", srv.URL, "--log-level", "off", "BTC/USDT", "ETH/USDT")
	if code != 0 {
		t.Fatalf("expected exit 0, got %d: %s", code, errOut)
	}

	btc := strings.Index(out, "# binance BTC/USDT")
	eth := strings.Index(out, "# binance ETH/USDT")
	if btc == -1 || eth == -1 || btc > eth {
		t.Fatalf("expected results in argument order, got:\n%s", out)
	}
	if !strings.Contains(out, "\"last\": \"100\"") {
		t.Errorf("expected pretty payload, got:\n%s", out)
	}
	if !strings.Contains(out, "# last 100  bid 99  ask 101  spread 2") {
		t.Errorf("expected summary line, got:\n%s", out)
	}
}

func TestFetchFailureExitsNonZero(t *testing.T) {
	srv := newBackend(t)

	code, out, errOut := runArgs(t, "fetch", "--base-url", srv.URL, "--log-level", "off", "DOGE/USDT")
	if code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	if !strings.Contains(errOut, "decode failure") {
		t.Errorf("expected decode failure on stderr, got %q", errOut)
	}
	if !strings.Contains(out, "null") {
		t.Errorf("expected null payload, got %q", out)
	}
}

func TestMarketsAndHealth(t *testing.T) {
	srv := newBackend(t)

	code, out, errOut := runArgs(t, "markets", "--base-url", srv.URL, "--log-level", "off", "-e", "kraken")
	if code != 0 {
		t.Fatalf("markets: expected exit 0, got %d: %s", code, errOut)
	}
	if out != "BTC/USDT\nETH/USDT\n" {
		t.Errorf("unexpected markets output %q", out)
	}

	code, out, errOut = runArgs(t, "health", "--base-url", srv.URL, "--log-level", "off")
	if code != 0 || out != "ok\n" {
		t.Errorf("health: got %d %q %q", code, out, errOut)
	}
}

func TestHistoryPrintsTable(t *testing.T) {
	srv := newBackend(t)

	code, out, errOut := runArgs(t, "history", "--base-url", srv.URL, "--log-level", "off",
		"--since", "1700000000000", "--limit", "2", "--page", "3", "ETH/USDT")
	if code != 0 {
		t.Fatalf("expected exit 0, got %d: %s", code, errOut)
	}
	for _, want := range []string{
		"# binance ETH/USDT page 3 limit 2",
		"time", "volume",
		"2023-11-14T22:13:20Z", "110.5", "12.25",
		"2023-11-14T22:14:20Z", "104.5",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestHistoryRejectsBadLimit(t *testing.T) {
	srv := newBackend(t)

	code, out, errOut := runArgs(t, "history", "--base-url", srv.URL, "--log-level", "off", "--limit", "1001")
	if code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	if out != "" {
		t.Errorf("expected no output, got %q", out)
	}
	if !strings.Contains(errOut, "limit must be between 1 and 1000") {
		t.Errorf("unexpected stderr %q", errOut)
	}
}

func TestHistoryFlagsBelongToHistory(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	code, _, _ := runArgs(t, "health", "--limit", "5")
	if code != 2 {
		t.Errorf("expected exit 2 for a history flag on health, got %d", code)
	}
}

func TestUnknownCommand(t *testing.T) {
	code, _, errOut := runArgs(t, "frobnicate")
	if code != 2 {
		t.Errorf("expected exit 2, got %d", code)
	}
	if !strings.Contains(errOut, "unknown command") {
		t.Errorf("unexpected stderr %q", errOut)
	}
}

func TestBadFlag(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	code, _, _ := runArgs(t, "health", "--no-such-flag")
	if code != 2 {
		t.Errorf("expected exit 2, got %d", code)
	}
}
