// Command lobbyserver replaces the official matchmaker for LAN play:
// game clients pointed at this host discover each other, form rooms
// and exchange game data through it.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/udisondev/c3go/internal/config"
	"github.com/udisondev/c3go/internal/lobby"
	"github.com/udisondev/c3go/internal/server"
	"github.com/udisondev/c3go/internal/status"
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

	if err := run(ctx); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(config.Path())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	})))

	slog.Info("c3go LAN lobby server starting", "bind", cfg.BindAddress, "port", cfg.Port)

	lb := lobby.New()
	srv := server.NewServer(cfg, lb)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return lb.Run(gctx)
	})

	g.Go(func() error {
		if err := srv.Run(gctx); err != nil {
			return fmt.Errorf("lobby server: %w", err)
		}
		return nil
	})

	if cfg.StatusAPI.Enabled {
		api := status.NewServer(lb)
		addr := fmt.Sprintf("%s:%d", cfg.StatusAPI.BindAddress, cfg.StatusAPI.Port)
		g.Go(func() error {
			slog.Info("status api started", "address", addr)
			if err := api.Run(gctx, addr); err != nil {
				return fmt.Errorf("status api: %w", err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
