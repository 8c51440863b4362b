package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/vango-dev/vtree/internal/config"
	verrors "github.com/vango-dev/vtree/internal/errors"
	"github.com/vango-dev/vtree/pkg/middleware"
	"github.com/vango-dev/vtree/pkg/server"
	"github.com/vango-dev/vtree/pkg/snapshot"
)

func serveCmd() *cobra.Command {
	var (
		configDir string
		addr      string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and WebSocket server",
		Long: `Run the vtree server.

Settings come from vtree.json or vtree.yaml in the config
directory. Without a config file the defaults are used.

Examples:
  vtree serve
  vtree serve --config ./deploy --addr :9090`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOrDefault(configDir)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg, newLogger(cmd.ErrOrStderr(), cfg.Log))
		},
	}

	cmd.Flags().StringVarP(&configDir, "config", "c", ".", "Directory holding vtree.json or vtree.yaml")
	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Address to listen on (default from config)")

	return cmd
}

// newLogger builds the process logger from the log section.
func newLogger(w io.Writer, cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func runServe(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	store, closer, err := snapshot.Open(ctx, cfg.Snapshot)
	if err != nil {
		return verrors.New("VT140").
			WithDetail(fmt.Sprintf("backend %q", cfg.Snapshot.Backend)).
			Wrap(err)
	}
	defer func() {
		if err := closer.Close(); err != nil {
			logger.Error("close snapshot store", "error", err)
		}
	}()

	opts := []server.Option{
		server.WithLogger(logger.With("component", "server")),
		server.WithStore(store),
		server.WithMiddleware(middleware.Logging(logger.With("component", "reconcile"))),
	}
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		opts = append(opts, server.WithMetrics(reg, middleware.WithNamespace(cfg.Metrics.Namespace)))
	}
	if cfg.Tracing.Enabled {
		opts = append(opts, server.WithTracing(middleware.WithTracerName(cfg.Tracing.TracerName)))
	}

	srv := server.New(server.Config{
		Addr:            cfg.Server.Addr,
		ReadBufferSize:  cfg.Server.ReadBufferSize,
		WriteBufferSize: cfg.Server.WriteBufferSize,
		MaxBodyBytes:    cfg.Server.MaxBodyBytes,
		ShutdownTimeout: cfg.Server.ShutdownTimeout.Std(),
		BufferCapacity:  cfg.Buffer.Capacity,
		PongWait:        cfg.Server.PongWait.Std(),
	}, opts...)

	logger.Info("snapshot store ready", "backend", backendName(cfg.Snapshot.Backend))
	if err := srv.ListenAndServe(ctx); err != nil {
		return verrors.New("VT160").WithDetail(cfg.Server.Addr).Wrap(err)
	}
	return nil
}

func backendName(b string) string {
	if b == "" {
		return config.BackendMemory
	}
	return b
}

