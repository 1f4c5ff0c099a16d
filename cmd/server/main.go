package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/Tyrowin/chathub/internal/dashboard"
	"github.com/Tyrowin/chathub/internal/hub"
	"github.com/Tyrowin/chathub/internal/server"
)

func main() {
	cfg := server.NewConfigFromEnv()

	flag.StringVar(&cfg.Address, "address", cfg.Address, "address to listen on")
	flag.StringVar(&cfg.Address, "a", cfg.Address, "address to listen on (shorthand)")
	flag.IntVar(&cfg.Port, "port", cfg.Port, "port to listen on")
	flag.IntVar(&cfg.Port, "p", cfg.Port, "port to listen on (shorthand)")
	flag.BoolVar(&cfg.Dashboard, "dashboard", cfg.Dashboard, "show the presence dashboard")
	flag.Parse()

	logger := newLogger(os.Getenv("LOG_LEVEL"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *cfg, logger); err != nil {
		logger.Error("chat hub stopped", "error", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg server.Config, logger *slog.Logger) error {
	h := hub.New()
	srv := server.New(cfg, h, logger)
	logger.Info("starting chat hub", "addr", srv.Config().ListenAddr(), "dashboard", cfg.Dashboard)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Run(ctx); err != nil {
			if errors.Is(err, server.ErrBind) {
				return fmt.Errorf("cannot listen: %w", err)
			}
			return err
		}
		return nil
	})
	if cfg.Dashboard {
		g.Go(func() error {
			return dashboard.New(h.Presence, os.Stdout).Run(ctx)
		})
	}
	return g.Wait()
}

// newLogger writes text logs to stderr so they stay clear of the dashboard.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
