package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/noai-dev/noai/internal/errors"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "noai.json"

	// EnvFileName is the optional dotenv file loaded by ApplyEnv.
	EnvFileName = ".env"

	// DefaultPort is the default server port.
	DefaultPort = 8080

	// DefaultHost is the default server host.
	DefaultHost = "localhost"

	// DefaultCurrentUserID is the signed-in user of the mocked backend.
	DefaultCurrentUserID = "user-1"

	// DefaultPollInterval is how often the new-notification signal is rolled.
	DefaultPollInterval = "30s"

	// DefaultPollProbability is the chance per tick that HasNew is raised.
	DefaultPollProbability = 0.1
)

// Config represents the complete noai.json configuration.
type Config struct {
	// Server contains HTTP listener configuration.
	Server ServerConfig `json:"server"`

	// Session contains client session configuration.
	Session SessionConfig `json:"session"`

	// Notifications contains notification store configuration.
	Notifications NotificationsConfig `json:"notifications"`

	// Backend configures the mock backend.
	Backend BackendConfig `json:"backend"`

	// Optimistic configures the optimistic action controllers.
	Optimistic OptimisticConfig `json:"optimistic"`

	// Media configures avatar URL resolution.
	Media MediaConfig `json:"media"`

	// Metrics configures the Prometheus endpoint.
	Metrics MetricsConfig `json:"metrics"`

	// Log configures structured logging.
	Log LogConfig `json:"log"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `json:"host" validate:"required"`
	Port int    `json:"port" validate:"gte=0,lte=65535"`

	// AllowedOrigins lists origins accepted by the WebSocket upgrader.
	// Empty means same-origin only.
	AllowedOrigins []string `json:"allowedOrigins,omitempty"`

	// ShutdownTimeout bounds graceful shutdown (e.g., "10s").
	ShutdownTimeout string `json:"shutdownTimeout,omitempty"`
}

// SessionConfig contains client session settings.
type SessionConfig struct {
	// IdleTimeout closes sessions with no requests for this long (e.g., "10m").
	IdleTimeout string `json:"idleTimeout,omitempty"`

	// MaxSessions caps concurrent sessions. 0 means unlimited.
	MaxSessions int `json:"maxSessions,omitempty" validate:"gte=0"`

	// CurrentUserID is the identity every session acts as.
	CurrentUserID string `json:"currentUserId" validate:"required"`
}

// NotificationsConfig contains notification store settings.
type NotificationsConfig struct {
	PollInterval string  `json:"pollInterval,omitempty"`
	Probability  float64 `json:"probability" validate:"gte=0,lte=1"`
}

// BackendConfig configures the mock backend.
type BackendConfig struct {
	// LatencyScale multiplies every artificial delay. 0 disables delays.
	LatencyScale float64 `json:"latencyScale" validate:"gte=0"`

	// FailureRate is the probability that any effect is rejected.
	FailureRate float64 `json:"failureRate" validate:"gte=0,lte=1"`
}

// OptimisticConfig configures the optimistic controllers.
type OptimisticConfig struct {
	// Policy is "drop" (ignore triggers while an effect is pending) or
	// "concurrent" (allow overlapping effects).
	Policy string `json:"policy" validate:"oneof=drop concurrent"`
}

// MediaConfig configures avatar URL resolution.
type MediaConfig struct {
	// Provider is "static" or "s3".
	Provider string `json:"provider" validate:"oneof=static s3"`

	// BaseURL prefixes avatar keys for the static provider.
	BaseURL string `json:"baseUrl,omitempty"`

	Bucket       string `json:"bucket,omitempty" validate:"required_if=Provider s3"`
	Region       string `json:"region,omitempty" validate:"required_if=Provider s3"`
	Endpoint     string `json:"endpoint,omitempty"`
	UsePathStyle bool   `json:"usePathStyle,omitempty"`

	// Expiry is the lifetime of presigned URLs (e.g., "15m").
	Expiry string `json:"expiry,omitempty"`
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled   bool   `json:"enabled"`
	Path      string `json:"path,omitempty"`
	Namespace string `json:"namespace,omitempty"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `json:"level" validate:"oneof=debug info warn error"`
	Format string `json:"format" validate:"oneof=text json"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            DefaultHost,
			Port:            DefaultPort,
			ShutdownTimeout: "10s",
		},
		Session: SessionConfig{
			IdleTimeout:   "10m",
			CurrentUserID: DefaultCurrentUserID,
		},
		Notifications: NotificationsConfig{
			PollInterval: DefaultPollInterval,
			Probability:  DefaultPollProbability,
		},
		Backend: BackendConfig{
			LatencyScale: 1,
		},
		Optimistic: OptimisticConfig{
			Policy: "drop",
		},
		Media: MediaConfig{
			Provider: "static",
			BaseURL:  "/avatars/",
			Expiry:   "15m",
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Path:      "/metrics",
			Namespace: "noai",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads configuration from noai.json in the specified directory.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadOrDefault is Load, falling back to New() when dir has no noai.json.
func LoadOrDefault(dir string) (*Config, error) {
	if !Exists(dir) {
		cfg := New()
		cfg.configPath = filepath.Join(dir, ConfigFileName)
		return cfg, nil
	}
	return Load(dir)
}

// LoadFile reads configuration from the specified file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.CodeConfigNotFound).
				WithDetail("No noai.json found in " + filepath.Dir(path)).
				WithSuggestion("Create noai.json or run without --config to use defaults")
		}
		return nil, errors.New(errors.CodeConfigParse).Wrap(err)
	}

	cfg := New()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New(errors.CodeConfigParse).
			WithDetail("Failed to parse noai.json: " + err.Error()).
			WithSuggestion("Check that noai.json is valid JSON")
	}

	cfg.configPath = path
	return cfg, nil
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New(errors.CodeConfigParse).Wrap(err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New(errors.CodeConfigParse).Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return "."
	}
	return filepath.Dir(c.configPath)
}

var validate = validator.New()

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var fields []string
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
		}
		return errors.New(errors.CodeConfigInvalid).
			WithDetail("Invalid fields: " + strings.Join(fields, ", ")).
			Wrap(err)
	}

	durations := map[string]string{
		"server.shutdownTimeout":     c.Server.ShutdownTimeout,
		"session.idleTimeout":        c.Session.IdleTimeout,
		"notifications.pollInterval": c.Notifications.PollInterval,
		"media.expiry":               c.Media.Expiry,
	}
	for name, raw := range durations {
		if raw == "" {
			continue
		}
		d, err := time.ParseDuration(raw)
		if err != nil || d < 0 {
			return errors.New(errors.CodeConfigInvalid).
				WithDetailf("%s: %q is not a valid duration", name, raw).
				WithSuggestion(`Use Go duration syntax such as "30s" or "10m"`)
		}
	}
	return nil
}

// Address returns the listen address.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// PollInterval returns the notification poll interval.
func (c *Config) PollInterval() time.Duration {
	return parseDuration(c.Notifications.PollInterval, 30*time.Second)
}

// IdleTimeout returns the session idle timeout.
func (c *Config) IdleTimeout() time.Duration {
	return parseDuration(c.Session.IdleTimeout, 10*time.Minute)
}

// ShutdownTimeout returns the graceful shutdown bound.
func (c *Config) ShutdownTimeout() time.Duration {
	return parseDuration(c.Server.ShutdownTimeout, 10*time.Second)
}

// MediaExpiry returns the lifetime of presigned avatar URLs.
func (c *Config) MediaExpiry() time.Duration {
	return parseDuration(c.Media.Expiry, 15*time.Minute)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return d
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ConfigFileName))
	return err == nil
}
