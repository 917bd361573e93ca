// Package client talks to the ticker backend over HTTP and websocket.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/zappabad/tickerview/internal/logger"
	"github.com/zappabad/tickerview/internal/ticker"
)

const (
	// HeaderAPIKey carries the static credential.
	HeaderAPIKey = "X-API-KEY"
	// HeaderRequestID carries a per-request id for log correlation.
	HeaderRequestID = "X-Request-ID"
)

// ErrUnhealthy is returned by Health when the backend does not report ok.
var ErrUnhealthy = errors.New("backend unhealthy")

// ErrInvalidHistory is returned by Historical for out-of-range paging.
var ErrInvalidHistory = errors.New("invalid history request")

// Paging bounds accepted by the backend's /historical endpoint.
const (
	MaxHistoryLimit     = 1000
	DefaultHistoryLimit = 100
)

// Client fetches tickers from the backend.
type Client struct {
	cfg    Config
	http   *http.Client
	dialer *websocket.Dialer
}

// New creates a Client. A nil httpClient uses http.DefaultClient.
func New(cfg Config, httpClient *http.Client) *Client {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultConfig().MaxBodyBytes
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		cfg:    cfg,
		http:   httpClient,
		dialer: newDialer(),
	}
}

// Config returns the client's configuration.
func (c *Client) Config() Config {
	return c.cfg
}

// EncodeComponent percent-encodes s the way encodeURIComponent does for
// query values: "/" becomes %2F and a space becomes %20.
func EncodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// EncodeQueryUnsafe leaves s as typed except for the bytes a browser
// percent-encodes in a query: controls, space, quotes, angle brackets and
// non-ASCII. Reserved characters such as & and = pass through.
func EncodeQueryUnsafe(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c <= ' ' || c >= 0x7F || c == '"' || c == '\'' || c == '<' || c == '>' {
			b.WriteByte('%')
			b.WriteByte(hex[c>>4])
			b.WriteByte(hex[c&0x0F])
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// TickerURL builds the ticker request target. The exchange is embedded as
// typed, escaping only what cannot appear in a request line; the symbol is
// percent-encoded.
func TickerURL(baseURL string, q ticker.Query) string {
	return strings.TrimRight(baseURL, "/") + "/ticker?exchange=" + EncodeQueryUnsafe(q.Exchange) + "&symbol=" + EncodeComponent(q.Symbol)
}

// Fetch issues one GET for the ticker and classifies the result. It never
// returns a nil-payload success: either Outcome.Payload is present or
// Outcome.Err is set.
func (c *Client) Fetch(ctx context.Context, q ticker.Query) ticker.Outcome {
	out := ticker.Outcome{RequestID: uuid.NewString()}
	log := logger.L().With().
		Str("request_id", out.RequestID).
		Str("exchange", q.Exchange).
		Str("symbol", q.Symbol).
		Logger()

	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	target := TickerURL(c.cfg.BaseURL, q)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		out.Err = ticker.NewFailure(ticker.FailureRequest, fmt.Errorf("build ticker request: %w", err))
		log.Warn().Err(out.Err).Msg("ticker request not sent")
		return out
	}
	c.decorate(req, out.RequestID)

	log.Debug().Str("url", target).Msg("fetching ticker")
	resp, err := c.http.Do(req)
	if err != nil {
		out.Err = ticker.NewFailure(ticker.FailureTransport, fmt.Errorf("fetch ticker: %w", err))
		log.Warn().Err(out.Err).Msg("ticker fetch failed")
		return out
	}
	defer resp.Body.Close()
	out.Status = resp.StatusCode

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.cfg.MaxBodyBytes))
	if err != nil {
		out.Err = ticker.NewFailure(ticker.FailureTransport, fmt.Errorf("read ticker body: %w", err))
		log.Warn().Err(out.Err).Int("status", out.Status).Msg("ticker fetch failed")
		return out
	}

	if c.cfg.StrictStatus && !success(resp.StatusCode) {
		out.Err = ticker.NewFailure(ticker.FailureStatus, statusError(resp, body))
		log.Warn().Err(out.Err).Int("status", out.Status).Msg("ticker fetch rejected")
		return out
	}

	p, err := ticker.NewPayload(body)
	if err != nil {
		out.Err = ticker.NewFailure(ticker.FailureDecode, fmt.Errorf("decode ticker body: %w", err))
		log.Warn().Err(out.Err).Int("status", out.Status).Msg("ticker body is not JSON")
		return out
	}
	out.Payload = p

	log.Debug().Int("status", out.Status).Int("bytes", len(body)).Msg("ticker fetched")
	return out
}

type marketsResponse struct {
	Exchange string   `json:"exchange"`
	Markets  []string `json:"markets"`
}

// Markets lists the symbols the backend knows for an exchange.
func (c *Client) Markets(ctx context.Context, exchange string) ([]string, error) {
	target := strings.TrimRight(c.cfg.BaseURL, "/") + "/markets?exchange=" + EncodeComponent(exchange)

	var mr marketsResponse
	if err := c.getJSON(ctx, target, &mr); err != nil {
		return nil, fmt.Errorf("list markets for %q: %w", exchange, err)
	}
	return mr.Markets, nil
}

// HistoryRequest selects one page of candles. Since is unix milliseconds;
// zero means the exchange's default start.
type HistoryRequest struct {
	Since int64
	Limit int
	Page  int
}

// DefaultHistoryRequest returns the first page of 100 candles.
func DefaultHistoryRequest() HistoryRequest {
	return HistoryRequest{Limit: DefaultHistoryLimit, Page: 1}
}

// Validate checks the paging bounds before a request is sent.
func (r HistoryRequest) Validate() error {
	var errs []error
	if r.Limit < 1 || r.Limit > MaxHistoryLimit {
		errs = append(errs, fmt.Errorf("%w: limit must be between 1 and %d, got %d", ErrInvalidHistory, MaxHistoryLimit, r.Limit))
	}
	if r.Page < 1 {
		errs = append(errs, fmt.Errorf("%w: page must be at least 1, got %d", ErrInvalidHistory, r.Page))
	}
	if r.Since < 0 {
		errs = append(errs, fmt.Errorf("%w: since must not be negative, got %d", ErrInvalidHistory, r.Since))
	}
	return errors.Join(errs...)
}

// HistoryURL builds the /historical request target.
func HistoryURL(baseURL string, q ticker.Query, r HistoryRequest) string {
	var b strings.Builder
	b.WriteString(strings.TrimRight(baseURL, "/"))
	b.WriteString("/historical?exchange=")
	b.WriteString(EncodeComponent(q.Exchange))
	b.WriteString("&symbol=")
	b.WriteString(EncodeComponent(q.Symbol))
	if r.Since > 0 {
		fmt.Fprintf(&b, "&since=%d", r.Since)
	}
	fmt.Fprintf(&b, "&limit=%d&page=%d", r.Limit, r.Page)
	return b.String()
}

// Historical fetches one page of OHLCV candles.
func (c *Client) Historical(ctx context.Context, q ticker.Query, r HistoryRequest) (ticker.History, error) {
	if err := r.Validate(); err != nil {
		return ticker.History{}, err
	}

	var h ticker.History
	if err := c.getJSON(ctx, HistoryURL(c.cfg.BaseURL, q, r), &h); err != nil {
		return ticker.History{}, fmt.Errorf("fetch history for %s: %w", q.Key(), err)
	}
	return h, nil
}

type healthResponse struct {
	Status string `json:"status"`
}

// Health checks the backend's /health endpoint.
func (c *Client) Health(ctx context.Context) error {
	var hr healthResponse
	if err := c.getJSON(ctx, strings.TrimRight(c.cfg.BaseURL, "/")+"/health", &hr); err != nil {
		return fmt.Errorf("health check: %w", err)
	}
	if hr.Status != "ok" {
		return fmt.Errorf("%w: status %q", ErrUnhealthy, hr.Status)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, target string, v any) error {
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	c.decorate(req, uuid.NewString())

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.cfg.MaxBodyBytes))
	if err != nil {
		return err
	}
	if !success(resp.StatusCode) {
		return statusError(resp, body)
	}
	return json.Unmarshal(body, v)
}

func (c *Client) decorate(req *http.Request, requestID string) {
	req.Header.Set(HeaderAPIKey, c.cfg.APIKey)
	req.Header.Set(HeaderRequestID, requestID)
	req.Header.Set("Accept", "application/json")
}

func success(code int) bool {
	return code >= 200 && code < 300
}

// StatusError reports a non-2xx response.
type StatusError struct {
	Code   int
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("unexpected status %d %s", e.Code, http.StatusText(e.Code))
	}
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Detail)
}

// statusError builds a StatusError, using the backend's {"detail": ...}
// error body when there is one.
func statusError(resp *http.Response, body []byte) error {
	var apiErr struct {
		Detail string `json:"detail"`
	}
	_ = json.Unmarshal(body, &apiErr)
	return &StatusError{Code: resp.StatusCode, Detail: apiErr.Detail}
}
