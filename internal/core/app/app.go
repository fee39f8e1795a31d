package app

import (
	"codelens/internal/core/config"
	"codelens/internal/core/watcher"
	"codelens/internal/engine/annotations"
	"codelens/internal/engine/branches"
	"codelens/internal/engine/callchain"
	"codelens/internal/engine/index"
	"codelens/internal/engine/resolver"
	"codelens/internal/engine/typegraph"
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// App wires the project index to the analyses that read it.
type App struct {
	Config     *config.Config
	ID         string
	Index      *index.Index
	Resolver   *resolver.Resolver
	Classifier *annotations.Classifier
	Walker     *typegraph.Walker
	Tracer     *callchain.Tracer
	Branches   *branches.Analyzer

	logger *slog.Logger

	watchMu       sync.Mutex
	activeWatcher *watcher.Watcher
}

// New builds an App over the project rooted at root. The index starts empty;
// call InitialIndex to populate it.
func New(cfg *config.Config, root string, logger *slog.Logger) (*App, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	opts := index.OptionsFromConfig(cfg, root)
	opts.Logger = logger
	ix, err := index.New(opts)
	if err != nil {
		return nil, err
	}

	res := resolver.New(ix, resolver.OptionsFromConfig(cfg))
	classifier := annotations.NewClassifier(cfg.Annotations)

	id := uuid.NewString()
	return &App{
		Config:     cfg,
		ID:         id,
		Index:      ix,
		Resolver:   res,
		Classifier: classifier,
		Walker:     typegraph.NewWalker(res, classifier),
		Tracer:     callchain.NewTracer(res, classifier, cfg.Analysis.BoundaryPatterns),
		Branches:   branches.NewAnalyzer(ix.Parser().Pool()),
		logger:     logger.With("engine", id),
	}, nil
}

func (a *App) Logger() *slog.Logger { return a.logger }

// InitialIndex discovers and parses every source file under the root.
func (a *App) InitialIndex(ctx context.Context) (index.Report, error) {
	return a.Index.IndexProject(ctx)
}

// HandleChanges re-indexes paths reported by the watcher.
func (a *App) HandleChanges(ctx context.Context, paths []string) index.Report {
	report := a.Index.Refresh(ctx, paths)
	a.logger.Info("files re-indexed",
		"files", report.Files,
		"indexed", report.Indexed,
		"removed", report.Removed,
		"failures", len(report.Failures),
	)
	return report
}

func (a *App) Close(ctx context.Context) error {
	a.watchMu.Lock()
	w := a.activeWatcher
	a.activeWatcher = nil
	a.watchMu.Unlock()
	if w != nil {
		if err := w.Close(); err != nil {
			a.logger.Warn("failed to close watcher", "error", err)
		}
	}
	return a.Index.Close()
}
