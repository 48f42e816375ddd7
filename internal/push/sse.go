package push

import (
	"context"
	"net/http"

	"github.com/r3labs/sse/v2"
	"gopkg.in/cenkalti/backoff.v1"
)

const maxEventSize = 1 << 20

// SSESource reads a text/event-stream endpoint.
type SSESource struct {
	URL    string
	Header http.Header
	Client *http.Client
}

// Stream implements Source. Reconnection is disabled: the first failure or
// server close ends the stream.
func (s *SSESource) Stream(ctx context.Context, opened func(), deliver func(string, []byte)) error {
	c := sse.NewClient(s.URL, sse.ClientMaxBufferSize(maxEventSize))
	if s.Client != nil {
		c.Connection = s.Client
	}
	if c.Headers == nil {
		c.Headers = make(map[string]string)
	}
	for k := range s.Header {
		c.Headers[k] = s.Header.Get(k)
	}
	c.ReconnectStrategy = &backoff.StopBackOff{}
	c.OnConnect(func(*sse.Client) { opened() })

	err := c.SubscribeRawWithContext(ctx, func(msg *sse.Event) {
		deliver(string(msg.Event), msg.Data)
	})
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}
