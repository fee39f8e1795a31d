// Package bridge drives an engine process over the line protocol: it
// correlates responses to requests by id and turns process failures into
// typed errors.
package bridge

import (
	"bufio"
	"codelens/internal/core/config"
	"codelens/internal/core/errors"
	"codelens/internal/mcp/contracts"
	"codelens/internal/shared/observability"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ReadyMarker is the stderr text the engine logs once it serves requests.
const ReadyMarker = contracts.ReadyMessage

const (
	defaultStartupTimeout = 60 * time.Second
	defaultRequestTimeout = 30 * time.Second
	defaultStopGrace      = 2 * time.Second
	maxResponseBytes      = 64 * 1024 * 1024
)

type State int

const (
	StateStarting State = iota
	StateReady
	StateStopped
	StateCrashed
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateReady:
		return "ready"
	case StateStopped:
		return "stopped"
	case StateCrashed:
		return "crashed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

type Options struct {
	Launcher       Launcher
	StartupTimeout time.Duration
	RequestTimeout time.Duration
	StopGrace      time.Duration
	Logger         *slog.Logger
}

// OptionsFromConfig runs the configured command, or the given fallback
// launcher when no command is configured.
func OptionsFromConfig(cfg config.Bridge, fallback Launcher) Options {
	opts := Options{
		Launcher:       fallback,
		StartupTimeout: cfg.StartupTimeout,
		RequestTimeout: cfg.RequestTimeout,
		StopGrace:      cfg.StopGrace,
	}
	if strings.TrimSpace(cfg.Command) != "" {
		opts.Launcher = ExecLauncher{Command: cfg.Command, Args: cfg.Args}
	}
	return opts
}

// Bridge sends requests to one engine process. It is safe for concurrent use.
type Bridge struct {
	opts    Options
	logger  *slog.Logger
	session string

	mu           sync.Mutex
	state        State
	started      bool
	stopping     bool
	proc         Process
	nextID       uint64
	pending      map[uint64]*Future
	buffered     []*Future
	startupTimer *time.Timer
	termErr      error

	writeMu sync.Mutex

	ready      chan struct{}
	terminated chan struct{}
	exited     chan struct{}
	readers    sync.WaitGroup
}

func New(opts Options) *Bridge {
	if opts.StartupTimeout <= 0 {
		opts.StartupTimeout = defaultStartupTimeout
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = defaultRequestTimeout
	}
	if opts.StopGrace <= 0 {
		opts.StopGrace = defaultStopGrace
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	session := uuid.NewString()
	return &Bridge{
		opts:       opts,
		logger:     opts.Logger.With("bridge", session),
		session:    session,
		state:      StateStarting,
		pending:    make(map[uint64]*Future),
		ready:      make(chan struct{}),
		terminated: make(chan struct{}),
		exited:     make(chan struct{}),
	}
}

func (b *Bridge) Session() string { return b.session }

func (b *Bridge) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Start launches the engine and returns without waiting for readiness.
// Requests sent before the engine is ready are buffered.
func (b *Bridge) Start(ctx context.Context) error {
	b.mu.Lock()
	if b.started {
		b.mu.Unlock()
		return fmt.Errorf("bridge already started")
	}
	b.started = true
	if b.state != StateStarting {
		b.mu.Unlock()
		return b.terminatedError("bridge is %s", b.state)
	}
	b.mu.Unlock()

	if b.opts.Launcher == nil {
		err := errors.New(errors.CodeValidationError, "engine launcher is required")
		b.terminate(err, StateCrashed)
		close(b.exited)
		return err
	}
	proc, err := b.opts.Launcher.Launch(ctx)
	if err != nil {
		err = errors.Wrap(err, errors.CodeEngineTerminated, "launch engine")
		b.terminate(err, StateCrashed)
		close(b.exited)
		return err
	}

	b.mu.Lock()
	b.proc = proc
	b.startupTimer = time.AfterFunc(b.opts.StartupTimeout, b.startupExpired)
	b.mu.Unlock()
	observability.BridgeStateTransitionsTotal.WithLabelValues(StateStarting.String()).Inc()
	b.logger.Debug("engine launched", "startup_timeout", b.opts.StartupTimeout)

	b.readers.Add(2)
	go b.readResponses(proc.Stdout())
	go b.readLogs(proc.Stderr())
	go b.waitExit(proc)
	return nil
}

// WaitReady blocks until the engine is ready, has failed, or ctx ends.
func (b *Bridge) WaitReady(ctx context.Context) error {
	select {
	case <-b.ready:
		return nil
	case <-b.terminated:
		b.mu.Lock()
		err := b.termErr
		b.mu.Unlock()
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Send submits operation with params and returns its future. params may be
// nil, a json.RawMessage, or any value that marshals to a JSON object.
func (b *Bridge) Send(ctx context.Context, operation string, params any) *Future {
	raw, err := encodeParams(params)

	// writeMu is held from id assignment to the write so ids reach the
	// engine in increasing order.
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	b.mu.Lock()
	b.nextID++
	f := newFuture(b.nextID, operation, raw)
	if err != nil {
		b.mu.Unlock()
		b.settle(f, nil, errors.Wrap(err, errors.CodeValidationError, "encode params"), "error")
		return f
	}
	if err := ctx.Err(); err != nil {
		b.mu.Unlock()
		b.settle(f, nil, err, "error")
		return f
	}

	switch b.state {
	case StateStarting:
		b.buffered = append(b.buffered, f)
		b.mu.Unlock()
		b.logger.Debug("request buffered until ready", "id", f.ID, "operation", operation)
		return f
	case StateReady:
		b.trackLocked(f)
		b.mu.Unlock()
		b.writeLocked(f)
		return f
	default:
		cause := b.termErr
		b.mu.Unlock()
		b.settle(f, nil, b.requestTerminated(f, cause), "terminated")
		return f
	}
}

// trackLocked records f as pending and arms its timeout. b.mu must be held.
func (b *Bridge) trackLocked(f *Future) {
	b.pending[f.ID] = f
	observability.BridgePendingRequests.Set(float64(len(b.pending)))
	id := f.ID
	f.timer = time.AfterFunc(b.opts.RequestTimeout, func() { b.expire(id) })
}

// writeLocked sends f to the engine. b.writeMu must be held.
func (b *Bridge) writeLocked(f *Future) {
	line, err := json.Marshal(contracts.Request{
		ID:   f.ID,
		Tool: contracts.ToolNameCodelens,
		Args: contracts.ToolArgs{Operation: f.Operation, Params: f.params},
	})
	if err == nil {
		line = append(line, '\n')
		b.mu.Lock()
		proc := b.proc
		b.mu.Unlock()
		_, err = proc.Stdin().Write(line)
	}
	if err != nil {
		if b.untrack(f.ID) {
			b.settle(f, nil, b.requestTerminated(f, err), "terminated")
		}
	}
}

func (b *Bridge) untrack(id uint64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.pending[id]; !ok {
		return false
	}
	delete(b.pending, id)
	observability.BridgePendingRequests.Set(float64(len(b.pending)))
	return true
}

func (b *Bridge) expire(id uint64) {
	b.mu.Lock()
	f, ok := b.pending[id]
	if ok {
		delete(b.pending, id)
		observability.BridgePendingRequests.Set(float64(len(b.pending)))
	}
	b.mu.Unlock()
	if !ok {
		return
	}
	err := errors.New(errors.CodeRequestTimeout,
		fmt.Sprintf("%s did not answer within %s", f.Operation, b.opts.RequestTimeout))
	err = withRequest(err, f)
	b.logger.Warn("request timed out", "id", f.ID, "operation", f.Operation)
	b.settle(f, nil, err, "timeout")
}

func (b *Bridge) settle(f *Future, result *contracts.Envelope, err error, outcome string) {
	if !f.complete(result, err) {
		return
	}
	observability.BridgeRequestsTotal.WithLabelValues(f.Operation, outcome).Inc()
	observability.BridgeRequestDuration.WithLabelValues(f.Operation).Observe(time.Since(f.start).Seconds())
}

func (b *Bridge) readResponses(stdout io.Reader) {
	defer b.readers.Done()
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), maxResponseBytes)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}
		var resp contracts.Response
		if err := json.Unmarshal(line, &resp); err != nil {
			observability.BridgeDroppedLinesTotal.Inc()
			b.logger.Warn("dropping malformed engine line", "error", err)
			continue
		}
		b.mu.Lock()
		f, ok := b.pending[resp.ID]
		if ok {
			delete(b.pending, resp.ID)
			observability.BridgePendingRequests.Set(float64(len(b.pending)))
		}
		b.mu.Unlock()
		if !ok {
			observability.BridgeDroppedLinesTotal.Inc()
			b.logger.Warn("dropping response for unknown request", "id", resp.ID)
			continue
		}
		switch {
		case resp.OK && resp.Result != nil:
			b.settle(f, resp.Result, nil, "ok")
		case resp.Error != nil:
			b.settle(f, nil, resp.Error.DomainError(), "error")
		default:
			b.settle(f, nil, errors.New(errors.CodeInternal, "engine sent an empty response"), "error")
		}
	}
	cause := scanner.Err()
	if cause == nil {
		cause = io.EOF
	}
	b.terminate(errors.Wrap(cause, errors.CodeEngineTerminated, "engine closed its output"), StateCrashed)
}

func (b *Bridge) readLogs(stderr io.Reader) {
	defer b.readers.Done()
	scanner := bufio.NewScanner(stderr)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		b.logger.Debug("engine", "line", line)
		if strings.Contains(line, ReadyMarker) {
			b.markReady()
		}
	}
}

func (b *Bridge) markReady() {
	// Buffered requests go out before any Send that sees the ready state.
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	b.mu.Lock()
	if b.state != StateStarting {
		b.mu.Unlock()
		return
	}
	b.state = StateReady
	if b.startupTimer != nil {
		b.startupTimer.Stop()
	}
	flush := b.buffered
	b.buffered = nil
	for _, f := range flush {
		b.trackLocked(f)
	}
	close(b.ready)
	b.mu.Unlock()

	observability.BridgeStateTransitionsTotal.WithLabelValues(StateReady.String()).Inc()
	b.logger.Info("engine ready", "buffered", len(flush))
	for _, f := range flush {
		b.writeLocked(f)
	}
}

func (b *Bridge) startupExpired() {
	err := errors.New(errors.CodeEngineStartTimeout,
		fmt.Sprintf("engine not ready within %s", b.opts.StartupTimeout))
	if !b.terminate(err, StateCrashed) {
		return
	}
	b.logger.Error("engine start timed out", "timeout", b.opts.StartupTimeout)
	b.mu.Lock()
	proc := b.proc
	b.mu.Unlock()
	if proc != nil {
		_ = proc.Kill()
	}
}

func (b *Bridge) waitExit(proc Process) {
	b.readers.Wait()
	err := proc.Wait()
	if err != nil {
		b.logger.Debug("engine exited", "error", err)
	}
	if err == nil {
		err = io.EOF
	}
	b.terminate(errors.Wrap(err, errors.CodeEngineTerminated, "engine exited"), StateCrashed)
	close(b.exited)
}

// terminate moves the bridge to a final state and rejects every pending and
// buffered request. A start timeout rejects with its own kind; everything
// else rejects with EngineTerminated. It reports whether this call made the
// transition.
func (b *Bridge) terminate(cause error, state State) bool {
	b.mu.Lock()
	if b.state == StateStopped || b.state == StateCrashed {
		b.mu.Unlock()
		return false
	}
	if b.stopping {
		state = StateStopped
	}
	b.state = state
	b.termErr = cause
	if b.startupTimer != nil {
		b.startupTimer.Stop()
	}
	leftovers := make([]*Future, 0, len(b.pending)+len(b.buffered))
	for id, f := range b.pending {
		leftovers = append(leftovers, f)
		delete(b.pending, id)
	}
	leftovers = append(leftovers, b.buffered...)
	b.buffered = nil
	observability.BridgePendingRequests.Set(0)
	close(b.terminated)
	b.mu.Unlock()

	observability.BridgeStateTransitionsTotal.WithLabelValues(state.String()).Inc()
	if state == StateCrashed {
		b.logger.Error("engine terminated", "error", cause, "rejected", len(leftovers))
	} else {
		b.logger.Info("engine stopped", "rejected", len(leftovers))
	}

	for _, f := range leftovers {
		if errors.IsCode(cause, errors.CodeEngineStartTimeout) {
			b.settle(f, nil, withRequest(errors.New(errors.CodeEngineStartTimeout, describe(cause)), f), "terminated")
			continue
		}
		b.settle(f, nil, b.requestTerminated(f, cause), "terminated")
	}
	return true
}

func (b *Bridge) requestTerminated(f *Future, cause error) error {
	msg := "engine terminated"
	if cause != nil {
		msg += ": " + describe(cause)
	}
	return withRequest(errors.New(errors.CodeEngineTerminated, msg), f)
}

func withRequest(err error, f *Future) error {
	err = errors.AddContext(err, errors.CtxRequestID, f.ID)
	return errors.AddContext(err, errors.CtxOperation, f.Operation)
}

// describe renders cause without its code prefix.
func describe(cause error) string {
	var de *errors.DomainError
	if !stderrors.As(cause, &de) {
		return cause.Error()
	}
	if de.Err != nil {
		return de.Message + ": " + de.Err.Error()
	}
	return de.Message
}

func (b *Bridge) terminatedError(format string, args ...any) error {
	return errors.New(errors.CodeEngineTerminated, fmt.Sprintf(format, args...))
}

// Stop closes the engine's stdin and waits for it to exit, killing it after
// the grace period. Requests still outstanding fail with EngineTerminated.
func (b *Bridge) Stop(ctx context.Context) error {
	b.mu.Lock()
	if !b.started {
		b.started = true
		b.mu.Unlock()
		b.terminate(b.terminatedError("bridge stopped before start"), StateStopped)
		return nil
	}
	b.stopping = true
	proc := b.proc
	b.mu.Unlock()

	if proc == nil {
		<-b.exited
		return nil
	}

	if closeErr := proc.Stdin().Close(); closeErr != nil {
		b.logger.Debug("close engine stdin", "error", closeErr)
	}

	grace := time.NewTimer(b.opts.StopGrace)
	defer grace.Stop()
	select {
	case <-b.exited:
		return nil
	case <-grace.C:
		b.logger.Warn("engine did not exit in time, killing", "grace", b.opts.StopGrace)
	case <-ctx.Done():
	}

	if err := proc.Kill(); err != nil && !stderrors.Is(err, io.ErrClosedPipe) {
		b.logger.Warn("kill engine", "error", err)
	}
	<-b.exited
	return ctx.Err()
}

func encodeParams(params any) (json.RawMessage, error) {
	switch v := params.(type) {
	case nil:
		return json.RawMessage("{}"), nil
	case json.RawMessage:
		if len(v) == 0 {
			return json.RawMessage("{}"), nil
		}
		return v, nil
	default:
		return json.Marshal(v)
	}
}
