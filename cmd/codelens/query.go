package main

import (
	"codelens/internal/bridge"
	"codelens/internal/core/config"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"
)

func queryCommand() *cli.Command {
	return &cli.Command{
		Name:      "query",
		Usage:     "Start an engine, run one operation and print its result",
		ArgsUsage: "<operation>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "params",
				Aliases: []string{"p"},
				Usage:   "Operation params as a JSON object",
				Value:   "{}",
			},
			&cli.BoolFlag{
				Name:  "in-process",
				Usage: "Run the engine inside this process instead of a child process",
			},
		},
		Action: func(c *cli.Context) error {
			operation := c.Args().First()
			if operation == "" {
				return fmt.Errorf("operation is required")
			}
			params := json.RawMessage(c.String("params"))
			if !json.Valid(params) {
				return fmt.Errorf("--params must be valid JSON")
			}

			cfg, root, err := loadConfig(c)
			if err != nil {
				return err
			}
			launcher, err := queryLauncher(c, cfg, root)
			if err != nil {
				return err
			}

			opts := bridge.OptionsFromConfig(cfg.Bridge, launcher)
			opts.Logger = slog.Default()
			b := bridge.New(opts)
			if err := b.Start(c.Context); err != nil {
				return err
			}
			defer func() { _ = b.Stop(c.Context) }()

			env, err := b.Send(c.Context, operation, params).Await(c.Context)
			if err != nil {
				return err
			}
			return printJSON(c.App.Writer, env)
		},
	}
}

// queryLauncher runs this binary's engine command unless the config names
// another engine command or --in-process is set.
func queryLauncher(c *cli.Context, cfg *config.Config, root string) (bridge.Launcher, error) {
	if c.Bool("in-process") {
		cfg.Bridge.Command = ""
		return bridge.PipeLauncher{Serve: func(ctx context.Context, stdin io.Reader, stdout, stderr io.Writer) error {
			logger := slog.New(slog.NewTextHandler(stderr, nil))
			return runEngine(ctx, cfg, root, stdin, stdout, logger)
		}}, nil
	}
	self, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("locate codelens binary: %w", err)
	}
	return bridge.ExecLauncher{
		Command: self,
		Args:    []string{"--config", c.String("config"), "--root", root, "engine"},
	}, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
