package main

import (
	"codelens/internal/core/config"
	"codelens/internal/mcp/runtime"
	"codelens/internal/shared/observability"
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/urfave/cli/v2"
)

func engineCommand() *cli.Command {
	return &cli.Command{
		Name:  "engine",
		Usage: "Serve line-delimited JSON requests on stdin until it closes",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "watch",
				Usage: "Re-index files as they change",
			},
			&cli.StringFlag{
				Name:  "metrics-addr",
				Usage: "Serve /metrics and /health on this address",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, root, err := loadConfig(c)
			if err != nil {
				return err
			}
			if c.Bool("watch") {
				cfg.Watch.Enabled = true
			}
			if addr := c.String("metrics-addr"); addr != "" {
				cfg.Observability.MetricsAddress = addr
			}
			return runEngine(c.Context, cfg, root, os.Stdin, c.App.Writer, slog.Default())
		},
	}
}

func runEngine(ctx context.Context, cfg *config.Config, root string, in io.Reader, out io.Writer, logger *slog.Logger) error {
	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfig{
		Enabled:     cfg.Observability.EnableTracing,
		Endpoint:    cfg.Observability.OTLPEndpoint,
		ServiceName: cfg.Observability.ServiceName,
	})
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Warn("tracing shutdown failed", "error", err)
		}
	}()

	server, err := runtime.Build(cfg, root, in, out, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := server.Close(context.Background()); err != nil {
			logger.Warn("engine close failed", "error", err)
		}
	}()

	if addr := cfg.Observability.MetricsAddress; addr != "" {
		obs := observability.NewServer(addr, server.Health())
		if err := obs.Start(ctx); err != nil {
			return err
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = obs.Stop(stopCtx)
		}()
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = server.Stop()
		case <-done:
		}
	}()
	return server.Start(ctx)
}
