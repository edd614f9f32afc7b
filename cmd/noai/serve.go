package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/noai-dev/noai/internal/config"
	"github.com/noai-dev/noai/internal/logging"
	"github.com/noai-dev/noai/pkg/backend"
	"github.com/noai-dev/noai/pkg/media"
	"github.com/noai-dev/noai/pkg/metrics"
	"github.com/noai-dev/noai/pkg/optimistic"
	"github.com/noai-dev/noai/pkg/server"
	"github.com/noai-dev/noai/pkg/session"
)

func serveCmd() *cobra.Command {
	var (
		dir  string
		port int
		host string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the NOAI server",
		Long: `Start the HTTP/WebSocket server backed by the mock backend.

Configuration is read from noai.json in --config (defaults are used
when the file is missing), then .env and NOAI_* variables.

Examples:
  noai serve
  noai serve --port=9000
  NOAI_FAILURE_RATE=0.3 noai serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(dir)
			if err != nil {
				return err
			}
			if port > 0 {
				cfg.Server.Port = port
			}
			if host != "" {
				cfg.Server.Host = host
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg)
		},
	}

	cmd.Flags().StringVarP(&dir, "config", "c", ".", "Directory containing noai.json")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (default from noai.json)")
	cmd.Flags().StringVarP(&host, "host", "H", "", "Host to bind to (default from noai.json)")
	return cmd
}

// loadConfig reads noai.json (or defaults) and applies the environment.
func loadConfig(dir string) (*config.Config, error) {
	cfg, err := config.LoadOrDefault(dir)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(dir); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newBackend builds the mock backend described by cfg.
func newBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*backend.Mock, error) {
	avatars, err := media.FromConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return backend.NewMock(backend.MockConfig{
		CurrentUserID: cfg.Session.CurrentUserID,
		LatencyScale:  cfg.Backend.LatencyScale,
		FailureRate:   cfg.Backend.FailureRate,
		Avatars:       avatars,
		Logger:        logging.Component(logger, "backend"),
	}), nil
}

// managerConfig maps noai.json onto session manager settings.
func managerConfig(cfg *config.Config) (session.ManagerConfig, error) {
	policy, err := optimistic.ParsePolicy(cfg.Optimistic.Policy)
	if err != nil {
		return session.ManagerConfig{}, err
	}
	return session.ManagerConfig{
		MaxSessions: cfg.Session.MaxSessions,
		IdleTimeout: cfg.IdleTimeout(),
		Session: session.Config{
			CurrentUserID:   cfg.Session.CurrentUserID,
			Policy:          policy,
			PollInterval:    cfg.PollInterval(),
			PollProbability: cfg.Notifications.Probability,
			LoadTimeline:    true,
		},
	}, nil
}

func runServe(ctx context.Context, cfg *config.Config) error {
	logger := logging.Setup(cfg.Log)

	if cfg.Metrics.Enabled {
		metrics.Init(metrics.WithNamespace(cfg.Metrics.Namespace))
	}

	api, err := newBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	mcfg, err := managerConfig(cfg)
	if err != nil {
		return err
	}
	mgr := session.NewManager(api, mcfg, logger)
	srv := server.New(mgr, server.FromAppConfig(cfg), logger)

	printBanner()
	success("Listening on http://%s", cfg.Address())
	info("policy %s, failure rate %.0f%%, latency x%.2f",
		mcfg.Session.Policy, cfg.Backend.FailureRate*100, cfg.Backend.LatencyScale)
	if cfg.Metrics.Enabled {
		info("metrics at %s", cfg.Metrics.Path)
	}
	fmt.Println()

	return srv.Run(ctx)
}
