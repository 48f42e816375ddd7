package push

import (
	"context"
	"fmt"
	"net/http"

	"github.com/coder/websocket"
)

// WebSocketSource reads push payloads from text frames on a websocket.
type WebSocketSource struct {
	URL       string
	Header    http.Header
	ReadLimit int64
}

// Stream implements Source. A normal close from the server ends the stream
// without error.
func (s *WebSocketSource) Stream(ctx context.Context, opened func(), deliver func(string, []byte)) error {
	conn, _, err := websocket.Dial(ctx, s.URL, &websocket.DialOptions{ //nolint:bodyclose // websocket.Dial closes the response body internally
		HTTPHeader: s.Header,
	})
	if err != nil {
		return fmt.Errorf("dialing websocket: %w", err)
	}
	defer func() { _ = conn.CloseNow() }()

	limit := s.ReadLimit
	if limit <= 0 {
		limit = maxEventSize
	}
	conn.SetReadLimit(limit)
	opened()

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return nil
			}
			return fmt.Errorf("reading websocket: %w", err)
		}
		deliver("", data)
	}
}
