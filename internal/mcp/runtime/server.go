package runtime

import (
	"codelens/internal/core/errors"
	"codelens/internal/core/ports"
	"codelens/internal/data/queue"
	"codelens/internal/mcp/contracts"
	"codelens/internal/mcp/registry"
	"codelens/internal/mcp/transport"
	"codelens/internal/mcp/validate"
	"codelens/internal/shared/observability"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// ReadyMessage is logged once the initial index is built and requests are
// being served. The bridge waits for it on stderr.
const ReadyMessage = contracts.ReadyMessage

const defaultQueueCapacity = 256

// Watcher starts change notification for the project.
type Watcher interface {
	StartWatcher(onChange func([]string)) error
}

type Dependencies struct {
	Analysis ports.AnalysisService
	// Watcher is nil when watching is disabled.
	Watcher Watcher
	Logger  *slog.Logger
	// Health backs the /health endpoint; nil reports the engine as up.
	Health observability.HealthFunc
	// OnClose releases what the dependencies hold, such as the index.
	OnClose func(ctx context.Context) error
}

type job struct {
	req     contracts.Request
	respond transport.Responder
	// changed is set for watcher jobs, which have no caller.
	changed []string
}

// Server runs every request and re-index job on one worker goroutine, in
// arrival order.
type Server struct {
	deps      Dependencies
	registry  *registry.Registry
	transport transport.Adapter
	allowlist OperationAllowlist
	queue     *queue.MemoryQueue[job]
	logger    *slog.Logger

	mu      sync.Mutex
	running bool
	worker  sync.WaitGroup
}

func New(deps Dependencies, adapter transport.Adapter, allowlist OperationAllowlist) (*Server, error) {
	if deps.Analysis == nil {
		return nil, fmt.Errorf("analysis service dependency is required")
	}
	if adapter == nil {
		return nil, fmt.Errorf("transport is required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	reg := registry.New()
	if err := registerOperations(reg, deps.Analysis); err != nil {
		return nil, err
	}

	return &Server{
		deps:      deps,
		registry:  reg,
		transport: adapter,
		allowlist: allowlist,
		logger:    deps.Logger,
	}, nil
}

func registerOperations(reg *registry.Registry, svc ports.AnalysisService) error {
	binds := []func() error{
		func() error { return registry.Bind(reg, ports.OpResolveSymbol, svc.ResolveSymbol) },
		func() error { return registry.Bind(reg, ports.OpTypeStructure, svc.TypeStructure) },
		func() error { return registry.Bind(reg, ports.OpCallChain, svc.CallChain) },
		func() error { return registry.Bind(reg, ports.OpAnalyzeBranches, svc.AnalyzeBranches) },
		func() error {
			return registry.Bind(reg, ports.OpIndexStatus, func(ctx context.Context, _ struct{}) (ports.IndexStatus, error) {
				return svc.IndexStatus(ctx)
			})
		},
		func() error { return registry.Bind(reg, ports.OpReindex, svc.Reindex) },
	}
	for _, bind := range binds {
		if err := bind(); err != nil {
			return err
		}
	}
	return nil
}

// Start builds the index, announces readiness and serves the transport until
// its input ends. Jobs accepted before the input ended still run.
func (s *Server) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("engine already running")
	}
	s.running = true
	s.queue = queue.NewMemoryQueue[job](defaultQueueCapacity, observability.EngineQueueDepth)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	report, err := s.deps.Analysis.Reindex(ctx, ports.ReindexRequest{})
	if err != nil {
		return fmt.Errorf("initial index: %w", err)
	}
	s.logger.Info("initial index built",
		"files", report.Files,
		"indexed", report.Indexed,
		"failures", len(report.Failures),
		"duration_ms", report.DurationMS,
	)

	s.worker.Add(1)
	go s.work(ctx)

	if s.deps.Watcher != nil {
		if err := s.deps.Watcher.StartWatcher(func(paths []string) { s.enqueueChanges(ctx, paths) }); err != nil {
			s.logger.Warn("file watcher unavailable", "error", err)
		}
	}

	s.logger.Info(ReadyMessage, "operations", s.allowlist.Filter(s.registry.Operations()))

	serveErr := s.transport.Start(ctx, s.handleRequest)

	_ = s.queue.Close()
	s.worker.Wait()
	if serveErr != nil && !stderrors.Is(serveErr, context.Canceled) {
		return serveErr
	}
	return nil
}

// Stop ends the transport; Start returns once queued jobs are done.
func (s *Server) Stop() error {
	return s.transport.Stop()
}

func (s *Server) Health() observability.HealthFunc {
	return s.deps.Health
}

// Close releases the dependencies. Call it after Start has returned.
func (s *Server) Close(ctx context.Context) error {
	if s.deps.OnClose == nil {
		return nil
	}
	return s.deps.OnClose(ctx)
}

func (s *Server) handleRequest(ctx context.Context, req contracts.Request, respond transport.Responder) {
	if err := s.queue.Enqueue(ctx, job{req: req, respond: respond}); err != nil {
		cause := errors.Wrap(err, errors.CodeEngineTerminated, "engine is shutting down")
		respond(s.errorResponse(req, cause))
	}
}

func (s *Server) enqueueChanges(ctx context.Context, paths []string) {
	if len(paths) == 0 {
		return
	}
	if err := s.queue.Enqueue(ctx, job{changed: paths}); err != nil {
		s.logger.Debug("dropping change batch", "paths", len(paths), "error", err)
	}
}

func (s *Server) work(ctx context.Context) {
	defer s.worker.Done()
	for {
		j, err := s.queue.Dequeue(ctx)
		if err != nil {
			if !stderrors.Is(err, io.EOF) {
				s.drain(err)
			}
			return
		}
		s.run(ctx, j)
	}
}

// drain answers jobs left behind when the worker stops early.
func (s *Server) drain(cause error) {
	_ = s.queue.Close()
	for {
		j, err := s.queue.Dequeue(context.Background())
		if err != nil {
			return
		}
		if j.respond != nil {
			j.respond(s.errorResponse(j.req, errors.Wrap(cause, errors.CodeEngineTerminated, "engine stopped")))
		}
	}
}

func (s *Server) run(ctx context.Context, j job) {
	if j.respond == nil {
		if _, err := s.deps.Analysis.Reindex(ctx, ports.ReindexRequest{Paths: j.changed}); err != nil {
			s.logger.Warn("re-index after change failed", "paths", len(j.changed), "error", err)
		}
		return
	}
	j.respond(s.dispatch(ctx, j.req))
}

func (s *Server) dispatch(ctx context.Context, req contracts.Request) contracts.Response {
	operation, input, err := validate.ParseToolArgs(req.Tool, req.Args)
	if err != nil {
		return s.errorResponse(req, err)
	}
	if !s.allowlist.Allows(operation) {
		return s.errorResponse(req, contracts.InvalidArgument(
			fmt.Sprintf("operation not enabled: %s", operation),
			map[string]any{"operation": operation},
		))
	}
	handler, ok := s.registry.HandlerFor(operation)
	if !ok {
		return s.errorResponse(req, errors.New(errors.CodeNotSupported, "no handler for "+operation))
	}

	s.logger.Debug("running operation", "id", req.ID, "operation", operation)
	out, err := handler(ctx, input)
	if err != nil {
		return s.errorResponse(req, err)
	}
	payload, err := json.Marshal(out)
	if err != nil {
		return s.errorResponse(req, errors.Wrap(err, errors.CodeInternal, "encode result"))
	}
	return contracts.Response{
		ID: req.ID,
		OK: true,
		Result: &contracts.Envelope{
			Version:   contracts.ContractVersion,
			Operation: operation,
			Result:    payload,
		},
	}
}

// errorResponse converts err and attaches the request params to its context.
func (s *Server) errorResponse(req contracts.Request, err error) contracts.Response {
	toolErr := contracts.FromError(err)
	if toolErr.Context == nil {
		toolErr.Context = make(map[string]any)
	}
	if _, ok := toolErr.Context["params"]; !ok {
		toolErr.Context["params"] = rawParams(req.Args.Params)
	}
	s.logger.Debug("operation failed", "id", req.ID, "operation", req.Args.Operation, "kind", toolErr.Kind, "error", toolErr.Message)
	return contracts.Response{ID: req.ID, Error: &toolErr}
}

func rawParams(raw json.RawMessage) any {
	if len(raw) == 0 {
		return map[string]any{}
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil || v == nil {
		return map[string]any{}
	}
	return v
}
