package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/noai-dev/noai/internal/errors"
)

// ApplyEnv loads dir/.env (if present) into the process environment and
// overlays NOAI_* variables onto c. Variables already set in the
// environment win over the .env file.
func (c *Config) ApplyEnv(dir string) error {
	envPath := filepath.Join(dir, EnvFileName)
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			return errors.New(errors.CodeConfigParse).
				WithDetail("Failed to parse " + envPath).
				Wrap(err)
		}
	}

	setString(&c.Server.Host, "NOAI_HOST")
	setString(&c.Session.CurrentUserID, "NOAI_CURRENT_USER")
	setString(&c.Session.IdleTimeout, "NOAI_SESSION_IDLE_TIMEOUT")
	setString(&c.Notifications.PollInterval, "NOAI_POLL_INTERVAL")
	setString(&c.Optimistic.Policy, "NOAI_OPTIMISTIC_POLICY")
	setString(&c.Media.Provider, "NOAI_MEDIA_PROVIDER")
	setString(&c.Media.BaseURL, "NOAI_MEDIA_BASE_URL")
	setString(&c.Media.Bucket, "NOAI_S3_BUCKET")
	setString(&c.Media.Region, "NOAI_S3_REGION")
	setString(&c.Media.Endpoint, "NOAI_S3_ENDPOINT")
	setString(&c.Log.Level, "NOAI_LOG_LEVEL")
	setString(&c.Log.Format, "NOAI_LOG_FORMAT")

	if err := setInt(&c.Server.Port, "NOAI_PORT"); err != nil {
		return err
	}
	if err := setFloat(&c.Notifications.Probability, "NOAI_POLL_PROBABILITY"); err != nil {
		return err
	}
	if err := setFloat(&c.Backend.FailureRate, "NOAI_FAILURE_RATE"); err != nil {
		return err
	}
	if err := setFloat(&c.Backend.LatencyScale, "NOAI_LATENCY_SCALE"); err != nil {
		return err
	}
	return setBool(&c.Metrics.Enabled, "NOAI_METRICS")
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		*dst = strings.TrimSpace(v)
	}
}

func setInt(dst *int, key string) error {
	v, ok := lookup(key)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return envError(key, v, err)
	}
	*dst = n
	return nil
}

func setFloat(dst *float64, key string) error {
	v, ok := lookup(key)
	if !ok {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return envError(key, v, err)
	}
	*dst = f
	return nil
}

func setBool(dst *bool, key string) error {
	v, ok := lookup(key)
	if !ok {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return envError(key, v, err)
	}
	*dst = b
	return nil
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func envError(key, value string, err error) error {
	return errors.New(errors.CodeConfigInvalid).
		WithDetailf("%s=%q could not be parsed", key, value).
		Wrap(err)
}
