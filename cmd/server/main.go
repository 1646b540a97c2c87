// Command server runs the matchmaking and turn-coordination server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/m-mueller678/as4/internal/audit"
	"github.com/m-mueller678/as4/internal/config"
	"github.com/m-mueller678/as4/internal/match"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <bind address>\n", os.Args[0])
		os.Exit(2)
	}

	if err := run(ctx, os.Args[1]); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, bindAddr string) error {
	cfg, err := config.LoadServer(config.ConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg.BindAddress = bindAddr

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	})))

	slog.Info("config loaded",
		"bind_address", cfg.BindAddress,
		"max_turns", cfg.Rules.MaxTurns,
		"total_points", cfg.Rules.TotalPoints,
		"audit_enabled", cfg.Audit.Enabled)

	g, gctx := errgroup.WithContext(ctx)

	var sink match.AuditSink
	if cfg.Audit.Enabled {
		writer, err := audit.New(gctx, cfg.Audit.DSN)
		if err != nil {
			return fmt.Errorf("starting audit writer: %w", err)
		}
		defer writer.Close()
		sink = writer

		g.Go(func() error {
			slog.Info("starting audit writer")
			return writer.Run(gctx)
		})
	}

	srv := match.NewServer(cfg, sink)
	g.Go(func() error {
		return srv.Run(gctx)
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// parseLogLevel converts a string log level to slog.Level. Defaults to Info
// if invalid or empty.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
