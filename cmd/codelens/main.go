package main

import (
	"codelens/internal/core/config"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
)

const Version = "0.1.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp(os.Stdout, os.Stderr).RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp(stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:      "codelens",
		Usage:     "Semantic queries over Java projects",
		Version:   Version,
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Config file path",
				Value:   config.DefaultFileName,
			},
			&cli.StringFlag{
				Name:    "root",
				Aliases: []string{"r"},
				Usage:   "Project root directory (overrides config)",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Enable debug logging",
			},
		},
		Before: func(c *cli.Context) error {
			// stdout carries the protocol, so logs always go to stderr.
			level := slog.LevelInfo
			if c.Bool("verbose") {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(c.App.ErrWriter, &slog.HandlerOptions{Level: level})))
			return nil
		},
		Commands: []*cli.Command{
			engineCommand(),
			queryCommand(),
			schemaCommand(),
		},
	}
}

// loadConfig reads the config file, applies env and flag overrides and
// returns the config with its absolute project root.
func loadConfig(c *cli.Context) (*config.Config, string, error) {
	path := c.String("config")
	cfg, err := config.LoadOrDefault(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load config from %s: %w", path, err)
	}
	config.ApplyEnvOverrides(cfg)
	if root := c.String("root"); root != "" {
		cfg.Project.Root = root
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, "", err
	}
	root, err := config.ResolveProjectRoot(cfg, cwd)
	if err != nil {
		return nil, "", fmt.Errorf("resolve project root: %w", err)
	}
	cfg.Project.Root = root
	if errs := config.Validate(cfg); len(errs) > 0 {
		return nil, "", fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return cfg, root, nil
}
