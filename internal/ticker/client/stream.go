package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/zappabad/tickerview/internal/logger"
	"github.com/zappabad/tickerview/internal/ticker"
)

// frame is one message from the backend's /ws poller.
type frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func newDialer() *websocket.Dialer {
	return &websocket.Dialer{
		Proxy:             http.ProxyFromEnvironment,
		HandshakeTimeout:  10 * time.Second,
		ReadBufferSize:    1024,
		WriteBufferSize:   1024,
		EnableCompression: true,
	}
}

// StreamURL builds the websocket target for live ticker updates.
func StreamURL(baseURL string, q ticker.Query) string {
	base := strings.TrimRight(baseURL, "/")
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base + "/ws?exchange=" + EncodeComponent(q.Exchange) + "&symbol=" + EncodeComponent(q.Symbol)
}

// Stream subscribes to live ticker updates and calls fn for every ticker
// frame until ctx is done or the backend closes the socket. Each frame's
// data becomes an Outcome sharing the stream's request id.
func (c *Client) Stream(ctx context.Context, q ticker.Query, fn func(ticker.Outcome)) error {
	streamID := uuid.NewString()
	log := logger.L().With().
		Str("request_id", streamID).
		Str("exchange", q.Exchange).
		Str("symbol", q.Symbol).
		Logger()

	header := http.Header{}
	header.Set(HeaderAPIKey, c.cfg.APIKey)
	header.Set(HeaderRequestID, streamID)

	conn, resp, err := c.dialer.DialContext(ctx, StreamURL(c.cfg.BaseURL, q), header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("open ticker stream: status %s: %w", resp.Status, err)
		}
		return fmt.Errorf("open ticker stream: %w", err)
	}
	defer conn.Close()
	log.Info().Msg("ticker stream opened")

	// Closing the socket is the only way to unblock ReadJSON.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			conn.Close()
		case <-done:
		}
	}()

	for {
		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Info().Msg("ticker stream closed")
				return nil
			}
			var syntaxErr *json.SyntaxError
			if errors.As(err, &syntaxErr) {
				fn(ticker.Outcome{RequestID: streamID, Err: ticker.NewFailure(ticker.FailureDecode, fmt.Errorf("decode stream frame: %w", err))})
				continue
			}
			return fmt.Errorf("read ticker stream: %w", err)
		}

		if f.Type != "ticker" {
			log.Debug().Str("type", f.Type).Msg("ignoring stream frame")
			continue
		}

		out := ticker.Outcome{RequestID: streamID}
		p, err := ticker.NewPayload(f.Data)
		if err != nil {
			out.Err = ticker.NewFailure(ticker.FailureDecode, fmt.Errorf("decode stream frame: %w", err))
		} else {
			out.Payload = p
		}
		fn(out)
	}
}
