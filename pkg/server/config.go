package server

import (
	"net/http"
	"net/url"
	"slices"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/noai-dev/noai/internal/config"
)

// SessionHeader carries the session id on API requests.
const SessionHeader = "X-Noai-Session"

// Config holds server settings.
type Config struct {
	// Address is the listen address (default ":8080").
	Address string

	// ReadBufferSize and WriteBufferSize size the WebSocket buffers.
	ReadBufferSize  int
	WriteBufferSize int

	// CheckOrigin validates the Origin of WebSocket upgrades.
	// Default: SameOriginCheck.
	CheckOrigin func(r *http.Request) bool

	// HeartbeatInterval is how often a ping is sent on idle sockets.
	HeartbeatInterval time.Duration

	// ReadTimeout closes a socket that has not answered a ping in time.
	// It must be longer than HeartbeatInterval.
	ReadTimeout time.Duration

	// WriteTimeout bounds each socket write.
	WriteTimeout time.Duration

	// ReadHeaderTimeout is passed to http.Server.
	ReadHeaderTimeout time.Duration

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration

	// MetricsPath serves Prometheus metrics when non-empty.
	MetricsPath string

	// Gatherer is scraped at MetricsPath. Default: the global registry.
	Gatherer prometheus.Gatherer
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Address:           ":8080",
		ReadBufferSize:    4096,
		WriteBufferSize:   4096,
		CheckOrigin:       SameOriginCheck,
		HeartbeatInterval: 30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		ShutdownTimeout:   10 * time.Second,
	}
}

// FromAppConfig builds a server Config from noai.json settings.
func FromAppConfig(cfg *config.Config) *Config {
	c := DefaultConfig()
	c.Address = cfg.Address()
	c.ShutdownTimeout = cfg.ShutdownTimeout()
	if len(cfg.Server.AllowedOrigins) > 0 {
		c.CheckOrigin = AllowOrigins(cfg.Server.AllowedOrigins...)
	}
	if cfg.Metrics.Enabled {
		c.MetricsPath = cfg.Metrics.Path
		if c.MetricsPath == "" {
			c.MetricsPath = "/metrics"
		}
	}
	return c
}

func (c *Config) withDefaults() *Config {
	d := DefaultConfig()
	if c == nil {
		return d
	}
	out := *c
	if out.Address == "" {
		out.Address = d.Address
	}
	if out.ReadBufferSize == 0 {
		out.ReadBufferSize = d.ReadBufferSize
	}
	if out.WriteBufferSize == 0 {
		out.WriteBufferSize = d.WriteBufferSize
	}
	if out.CheckOrigin == nil {
		out.CheckOrigin = d.CheckOrigin
	}
	if out.HeartbeatInterval == 0 {
		out.HeartbeatInterval = d.HeartbeatInterval
	}
	if out.ReadTimeout == 0 {
		out.ReadTimeout = d.ReadTimeout
	}
	if out.WriteTimeout == 0 {
		out.WriteTimeout = d.WriteTimeout
	}
	if out.ReadHeaderTimeout == 0 {
		out.ReadHeaderTimeout = d.ReadHeaderTimeout
	}
	if out.ShutdownTimeout == 0 {
		out.ShutdownTimeout = d.ShutdownTimeout
	}
	return &out
}

// SameOriginCheck accepts requests whose Origin host matches the request
// host. Requests without an Origin header are accepted.
func SameOriginCheck(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return r.Host != "" && u.Host == r.Host
}

// AllowOrigins accepts same-origin requests plus the listed origins
// (scheme://host[:port]).
func AllowOrigins(origins ...string) func(*http.Request) bool {
	allowed := slices.Clone(origins)
	return func(r *http.Request) bool {
		if SameOriginCheck(r) {
			return true
		}
		return slices.Contains(allowed, r.Header.Get("Origin"))
	}
}
