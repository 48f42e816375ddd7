// Package api is the REST client for the chat backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/matheus3301/wppchat/internal/config"
	"github.com/matheus3301/wppchat/internal/status"
)

// Client talks to the backend over HTTP. Every call is rate limited and
// passes through a circuit breaker. Only idempotent fetches are retried.
type Client struct {
	base    *url.URL
	http    *http.Client
	limiter *rate.Limiter
	token   string
	userID  string
	link    *status.Machine
	logger  *zap.Logger

	retryInitial time.Duration
	retryMax     uint64
}

// New builds a client for profile p. link may be nil.
func New(p config.Profile, link *status.Machine, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	p = p.WithDefaults()
	base, err := url.Parse(strings.TrimRight(p.Server.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base url %q must be http or https", p.Server.BaseURL)
	}

	transport := breakerTransport{
		next: http.DefaultTransport,
		cb:   newBreaker(p.Breaker, logger),
	}
	return &Client{
		base:         base,
		http:         &http.Client{Transport: transport, Timeout: config.Duration(p.Server.Timeout, 15*time.Second)},
		limiter:      rate.NewLimiter(rate.Limit(p.Rate.PerSecond), p.Rate.Burst),
		token:        p.Token,
		userID:       p.UserID,
		link:         link,
		logger:       logger,
		retryInitial: 250 * time.Millisecond,
		retryMax:     3,
	}, nil
}

// BaseURL returns the server root.
func (c *Client) BaseURL() *url.URL {
	u := *c.base
	return &u
}

// AuthHeader returns the headers every request carries, for transports
// that do not go through this client.
func (c *Client) AuthHeader() http.Header {
	h := make(http.Header)
	c.authorize(h)
	return h
}

func (c *Client) authorize(h http.Header) {
	if c.token != "" {
		h.Set("Authorization", "Bearer "+c.token)
	}
	if c.userID != "" {
		h.Set("X-User-Id", c.userID)
	}
}

func (c *Client) endpoint(segments ...string) string {
	u := *c.base
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	u.RawPath = strings.TrimRight(c.base.EscapedPath(), "/") + "/" + strings.Join(escaped, "/")
	u.Path = strings.TrimRight(c.base.Path, "/") + "/" + strings.Join(segments, "/")
	return u.String()
}

type request struct {
	method      string
	path        []string
	body        io.Reader
	contentType string
}

func (c *Client) do(ctx context.Context, r request, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, r.method, c.endpoint(r.path...), r.body)
	if err != nil {
		return err
	}
	c.authorize(req.Header)
	req.Header.Set("Accept", "application/json")
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		var serr *StatusError
		if errors.As(err, &serr) {
			c.observe(serr)
			return serr
		}
		c.observe(err)
		return fmt.Errorf("%s %s: %w", r.method, req.URL.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		serr := &StatusError{
			Method:     r.method,
			Path:       req.URL.Path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
		c.observe(serr)
		return serr
	}
	c.observe(nil)

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", r.method, req.URL.Path, err)
	}
	return nil
}

// observe feeds the API link state. A 4xx still proves the server is up.
func (c *Client) observe(err error) {
	if c.link == nil {
		return
	}
	var serr *StatusError
	if err == nil || (errors.As(err, &serr) && !serr.Temporary()) {
		_ = c.link.Transition(status.Connected)
		return
	}
	if errors.Is(err, context.Canceled) {
		return
	}
	_ = c.link.Fail(err)
}

// getJSON fetches path into out, retrying transient failures with
// exponential backoff.
func (c *Client) getJSON(ctx context.Context, out any, path ...string) error {
	op := func() error {
		err := c.do(ctx, request{method: http.MethodGet, path: path}, out)
		if err == nil {
			return nil
		}
		var serr *StatusError
		if (errors.As(err, &serr) && !serr.Temporary()) || IsUnavailable(err) || ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		return err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retryInitial
	policy := backoff.WithContext(backoff.WithMaxRetries(b, c.retryMax), ctx)
	return backoff.RetryNotify(op, policy, func(err error, wait time.Duration) {
		c.logger.Warn("fetch failed, retrying", zap.String("path", strings.Join(path, "/")), zap.Duration("wait", wait), zap.Error(err))
	})
}

func (c *Client) postJSON(ctx context.Context, in, out any, path ...string) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return c.do(ctx, request{
		method:      http.MethodPost,
		path:        path,
		body:        bytes.NewReader(body),
		contentType: "application/json",
	}, out)
}
