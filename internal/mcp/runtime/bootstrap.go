package runtime

import (
	"codelens/internal/core/app"
	"codelens/internal/core/config"
	"codelens/internal/mcp/schema"
	"codelens/internal/mcp/transport"
	"context"
	"fmt"
	"io"
	"log/slog"
)

// Build wires an engine over the project at root that reads requests from in
// and writes responses to out.
func Build(cfg *config.Config, root string, in io.Reader, out io.Writer, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	allowlist, err := BuildOperationAllowlist(cfg.Engine.Operations)
	if err != nil {
		return nil, err
	}
	if err := checkOperations(allowlist, logger); err != nil {
		return nil, err
	}

	a, err := app.New(cfg, root, logger)
	if err != nil {
		return nil, err
	}

	deps := Dependencies{
		Analysis: a.AnalysisService(),
		Logger:   a.Logger(),
		Health:   app.NewHealthService(a).Healthy,
		OnClose:  a.Close,
	}
	if cfg.Watch.Enabled {
		deps.Watcher = a
	}

	adapter := transport.NewStdio(in, out, transport.Options{
		RateLimit:    cfg.Engine.RateLimit,
		RateBurst:    cfg.Engine.RateBurst,
		MaxLineBytes: cfg.Engine.MaxLineBytes,
		Logger:       a.Logger(),
	})

	server, err := New(deps, adapter, allowlist)
	if err != nil {
		_ = a.Close(context.Background())
		return nil, err
	}
	return server, nil
}

// checkOperations confirms the allowlist leaves at least one operation of the
// published surface.
func checkOperations(allowlist OperationAllowlist, logger *slog.Logger) error {
	defs, err := schema.BuildToolDefinitions(allowlist.Names())
	if err != nil {
		return fmt.Errorf("build operation schemas: %w", err)
	}
	if len(defs) == 0 || len(defs[0].Operations) == 0 {
		return fmt.Errorf("engine.operations leaves zero operations")
	}
	logger.Debug("operation surface", "tool", defs[0].Name, "operations", len(defs[0].Operations))
	return nil
}
