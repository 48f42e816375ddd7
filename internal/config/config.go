package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Push transports.
const (
	TransportSSE       = "sse"
	TransportWebSocket = "websocket"
)

const (
	DefaultBaseURL = "http://localhost:3000"
	DefaultTimeout = "15s"
	DefaultPush    = TransportSSE
	DefaultSSEPath = "/api/events"
	DefaultWSPath  = "/api/ws"
)

// DefaultBlockedTypes lists document types that may not be sent. Entries
// starting with a dot are file extensions, the rest are MIME types.
var DefaultBlockedTypes = []string{
	".exe", ".bat", ".cmd", ".com", ".msi", ".sh", ".apk", ".jar", ".scr",
	"application/x-msdownload",
	"application/x-sh",
	"application/x-executable",
	"application/java-archive",
	"application/vnd.android.package-archive",
}

// Config represents the global ~/.wppchat/config.toml.
type Config struct {
	DefaultProfile string             `toml:"default_profile"`
	Profiles       map[string]Profile `toml:"profiles"`
}

// Profile is one login: who the local user is and how to reach the server.
type Profile struct {
	UserID      string  `toml:"user_id"`
	DisplayName string  `toml:"display_name"`
	Token       string  `toml:"token"`
	Server      Server  `toml:"server"`
	Push        Push    `toml:"push"`
	Limits      Limits  `toml:"limits"`
	Breaker     Breaker `toml:"breaker"`
	Rate        Rate    `toml:"rate"`
}

// Server locates the REST backend.
type Server struct {
	BaseURL string `toml:"base_url"`
	Timeout string `toml:"timeout"`
}

// Push selects the server-push transport.
type Push struct {
	Transport string `toml:"transport"`
	Path      string `toml:"path"`
}

// Limits caps attachment sizes per media category. Sizes are human
// readable, e.g. "5 MB" or "16MiB".
type Limits struct {
	Image        string   `toml:"image"`
	Video        string   `toml:"video"`
	Audio        string   `toml:"audio"`
	Document     string   `toml:"document"`
	BlockedTypes []string `toml:"blocked_types"`
}

// Breaker tunes the REST circuit breaker.
type Breaker struct {
	MaxFailures uint32 `toml:"max_failures"`
	Interval    string `toml:"interval"`
	OpenTimeout string `toml:"open_timeout"`
}

// Rate throttles outgoing REST calls.
type Rate struct {
	PerSecond float64 `toml:"per_second"`
	Burst     int     `toml:"burst"`
}

// WithDefaults returns p with every unset field filled in.
func (p Profile) WithDefaults() Profile {
	if p.Server.BaseURL == "" {
		p.Server.BaseURL = DefaultBaseURL
	}
	if p.Server.Timeout == "" {
		p.Server.Timeout = DefaultTimeout
	}
	if p.Push.Transport == "" {
		p.Push.Transport = DefaultPush
	}
	if p.Push.Path == "" {
		if p.Push.Transport == TransportWebSocket {
			p.Push.Path = DefaultWSPath
		} else {
			p.Push.Path = DefaultSSEPath
		}
	}
	if p.Limits.Image == "" {
		p.Limits.Image = "5 MB"
	}
	if p.Limits.Video == "" {
		p.Limits.Video = "16 MB"
	}
	if p.Limits.Audio == "" {
		p.Limits.Audio = "16 MB"
	}
	if p.Limits.Document == "" {
		p.Limits.Document = "100 MB"
	}
	if p.Limits.BlockedTypes == nil {
		p.Limits.BlockedTypes = append([]string(nil), DefaultBlockedTypes...)
	}
	if p.Breaker.MaxFailures == 0 {
		p.Breaker.MaxFailures = 5
	}
	if p.Breaker.Interval == "" {
		p.Breaker.Interval = "60s"
	}
	if p.Breaker.OpenTimeout == "" {
		p.Breaker.OpenTimeout = "30s"
	}
	if p.Rate.PerSecond <= 0 {
		p.Rate.PerSecond = 10
	}
	if p.Rate.Burst <= 0 {
		p.Rate.Burst = 20
	}
	return p
}

// Validate checks the fields that cannot be defaulted.
func (p Profile) Validate() error {
	if p.UserID == "" {
		return errors.New("profile has no user_id; run wppchatctl login")
	}
	switch p.Push.Transport {
	case "", TransportSSE, TransportWebSocket:
	default:
		return fmt.Errorf("unknown push transport %q", p.Push.Transport)
	}
	for _, d := range []struct{ name, v string }{
		{"server.timeout", p.Server.Timeout},
		{"breaker.interval", p.Breaker.Interval},
		{"breaker.open_timeout", p.Breaker.OpenTimeout},
	} {
		if d.v == "" {
			continue
		}
		if _, err := time.ParseDuration(d.v); err != nil {
			return fmt.Errorf("%s: %w", d.name, err)
		}
	}
	return nil
}

// Duration parses a duration field, falling back when it is empty or invalid.
func Duration(v string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// Profile returns the named profile with defaults applied.
func (c *Config) Profile(name string) (Profile, bool) {
	p, ok := c.Profiles[name]
	return p.WithDefaults(), ok
}

// SetProfile stores p under name.
func (c *Config) SetProfile(name string, p Profile) {
	if c.Profiles == nil {
		c.Profiles = make(map[string]Profile)
	}
	c.Profiles[name] = p
}

// Load reads config from the given path. A missing file yields an empty config.
func Load(path string) (*Config, error) {
	var cfg Config
	_, err := toml.DecodeFile(path, &cfg)
	if errors.Is(err, fs.ErrNotExist) {
		return &Config{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	return &cfg, nil
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}
