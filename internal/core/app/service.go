package app

import (
	"codelens/internal/core/errors"
	"codelens/internal/core/ports"
	"codelens/internal/engine/branches"
	"codelens/internal/engine/callchain"
	"codelens/internal/engine/index"
	"codelens/internal/engine/resolver"
	"codelens/internal/engine/typegraph"
	"codelens/internal/shared/observability"
	"context"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type analysisService struct {
	app *App
}

var _ ports.AnalysisService = (*analysisService)(nil)

func NewAnalysisService(app *App) ports.AnalysisService {
	return &analysisService{app: app}
}

func (a *App) AnalysisService() ports.AnalysisService {
	return NewAnalysisService(a)
}

// observe records the duration and, on failure, the error kind of one
// operation and closes its span.
func observe(span trace.Span, operation string, start time.Time, err error) {
	observability.OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	if err != nil {
		kind := string(errors.CodeOf(err))
		observability.OperationErrorsTotal.WithLabelValues(operation, kind).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, kind)
	}
	span.End()
}

func (s *analysisService) ResolveSymbol(ctx context.Context, req ports.ResolveSymbolRequest) (res *resolver.Resolution, err error) {
	ctx, span := observability.Tracer.Start(ctx, "analysisService.ResolveSymbol", trace.WithAttributes(
		attribute.String("symbol", req.SymbolName),
		attribute.String("context_file", req.ContextFile),
	))
	defer func(start time.Time) { observe(span, ports.OpResolveSymbol, start, err) }(time.Now())

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.SymbolName) == "" {
		return nil, errors.New(errors.CodeValidationError, "symbolName is required")
	}
	if err := s.ensureIndexed(req.ContextFile); err != nil {
		return nil, err
	}
	res, err = s.app.Resolver.ResolveSymbol(req.SymbolName, req.ContextFile, req.Line)
	if err != nil {
		return nil, errors.AddContext(err, errors.CtxOperation, ports.OpResolveSymbol)
	}
	return res, nil
}

// ensureIndexed parses a context file that exists on disk but has not been
// indexed yet, such as a file created after the initial scan with the watcher
// disabled.
func (s *analysisService) ensureIndexed(path string) error {
	if strings.TrimSpace(path) == "" || s.app.Index.File(path) != nil {
		return nil
	}
	ix := s.app.Index
	if _, statErr := os.Stat(ix.Filter().Abs(ix.Key(path))); statErr != nil {
		return nil
	}
	if _, err := ix.IndexFile(path); err != nil {
		return err
	}
	return nil
}

func (s *analysisService) TypeStructure(ctx context.Context, req ports.TypeStructureRequest) (res *typegraph.Result, err error) {
	ctx, span := observability.Tracer.Start(ctx, "analysisService.TypeStructure", trace.WithAttributes(
		attribute.String("class", req.ClassName),
		attribute.Int("max_depth", req.MaxDepth),
	))
	defer func(start time.Time) { observe(span, ports.OpTypeStructure, start, err) }(time.Now())

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.ClassName) == "" {
		return nil, errors.New(errors.CodeValidationError, "className is required")
	}
	depth := req.MaxDepth
	if depth <= 0 {
		depth = s.app.Config.Analysis.TypeMaxDepth
	}
	res, err = s.app.Walker.Expand(req.ClassName, depth, req.IncludeAnnotations)
	if err != nil {
		return nil, errors.AddContext(err, errors.CtxOperation, ports.OpTypeStructure)
	}
	span.SetAttributes(attribute.Int("nodes", res.Nodes))
	return res, nil
}

func (s *analysisService) CallChain(ctx context.Context, req ports.CallChainRequest) (res *callchain.Result, err error) {
	ctx, span := observability.Tracer.Start(ctx, "analysisService.CallChain", trace.WithAttributes(
		attribute.String("class", req.ClassName),
		attribute.String("method", req.MethodName),
		attribute.Int("max_depth", req.MaxDepth),
	))
	defer func(start time.Time) { observe(span, ports.OpCallChain, start, err) }(time.Now())

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.ClassName) == "" || strings.TrimSpace(req.MethodName) == "" {
		return nil, errors.New(errors.CodeValidationError, "className and methodName are required")
	}
	depth := req.MaxDepth
	if depth <= 0 {
		depth = s.app.Config.Analysis.CallMaxDepth
	}
	res, err = s.app.Tracer.Trace(req.ClassName, req.MethodName, depth, req.BoundaryPatterns)
	if err != nil {
		return nil, errors.AddContext(err, errors.CtxOperation, ports.OpCallChain)
	}
	span.SetAttributes(
		attribute.Int("nodes", res.Nodes),
		attribute.Int("boundary_hits", res.BoundaryHits),
	)
	return res, nil
}

func (s *analysisService) AnalyzeBranches(ctx context.Context, req ports.AnalyzeBranchesRequest) (res *branches.Result, err error) {
	ctx, span := observability.Tracer.Start(ctx, "analysisService.AnalyzeBranches")
	defer func(start time.Time) { observe(span, ports.OpAnalyzeBranches, start, err) }(time.Now())

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res, err = s.app.Branches.Analyze(req.MethodSource)
	if err != nil {
		return nil, errors.AddContext(err, errors.CtxOperation, ports.OpAnalyzeBranches)
	}
	span.SetAttributes(attribute.Int("cyclomatic_complexity", res.CyclomaticComplexity))
	return res, nil
}

func (s *analysisService) IndexStatus(ctx context.Context) (status ports.IndexStatus, err error) {
	_, span := observability.Tracer.Start(ctx, "analysisService.IndexStatus")
	defer func(start time.Time) { observe(span, ports.OpIndexStatus, start, err) }(time.Now())

	stats := s.app.Index.Stats()
	status = ports.IndexStatus{
		Root:         s.app.Index.Root(),
		Store:        s.app.Config.Index.Store,
		Files:        stats.Files,
		Classes:      stats.Types,
		Declarations: stats.Declarations,
		Failures:     stats.Failures,
	}
	if status.Failures == nil {
		status.Failures = []index.Failure{}
	}
	return status, nil
}

func (s *analysisService) Reindex(ctx context.Context, req ports.ReindexRequest) (report index.Report, err error) {
	ctx, span := observability.Tracer.Start(ctx, "analysisService.Reindex", trace.WithAttributes(
		attribute.Int("paths", len(req.Paths)),
	))
	defer func(start time.Time) { observe(span, ports.OpReindex, start, err) }(time.Now())

	if len(req.Paths) == 0 {
		report, err = s.app.InitialIndex(ctx)
		if err != nil {
			return index.Report{}, errors.AddContext(err, errors.CtxOperation, ports.OpReindex)
		}
		return report, nil
	}
	return s.app.HandleChanges(ctx, req.Paths), nil
}
