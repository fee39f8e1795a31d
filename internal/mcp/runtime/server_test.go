package runtime

import (
	"codelens/internal/core/errors"
	"codelens/internal/core/ports"
	"codelens/internal/engine/branches"
	"codelens/internal/engine/callchain"
	"codelens/internal/engine/index"
	"codelens/internal/engine/resolver"
	"codelens/internal/engine/typegraph"
	"codelens/internal/mcp/contracts"
	"codelens/internal/mcp/transport"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAnalysis struct {
	mu       sync.Mutex
	calls    []string
	reindex  [][]string
	release  chan struct{}
	onChange func([]string)
}

var _ ports.AnalysisService = (*fakeAnalysis)(nil)

func (f *fakeAnalysis) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *fakeAnalysis) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeAnalysis) ResolveSymbol(_ context.Context, req ports.ResolveSymbolRequest) (*resolver.Resolution, error) {
	if f.release != nil {
		<-f.release
	}
	f.record("resolve:" + req.SymbolName)
	if req.SymbolName == "missing" {
		return nil, errors.AddContext(
			errors.New(errors.CodeSymbolNotFound, "symbol missing not found"),
			errors.CtxScopes, []string{"locals", "fields"},
		)
	}
	return &resolver.Resolution{Symbol: req.SymbolName, ResolvedType: "com.acme.Order", IsProjectClass: true}, nil
}

func (f *fakeAnalysis) TypeStructure(_ context.Context, req ports.TypeStructureRequest) (*typegraph.Result, error) {
	f.record("type:" + req.ClassName)
	return &typegraph.Result{MaxDepth: req.MaxDepth}, nil
}

func (f *fakeAnalysis) CallChain(_ context.Context, req ports.CallChainRequest) (*callchain.Result, error) {
	f.record("chain:" + req.ClassName)
	return &callchain.Result{}, nil
}

func (f *fakeAnalysis) AnalyzeBranches(_ context.Context, _ ports.AnalyzeBranchesRequest) (*branches.Result, error) {
	f.record("branches")
	return &branches.Result{CyclomaticComplexity: 1, MinimumTests: 1}, nil
}

func (f *fakeAnalysis) IndexStatus(context.Context) (ports.IndexStatus, error) {
	f.record("status")
	return ports.IndexStatus{Files: 2, Failures: []index.Failure{}}, nil
}

func (f *fakeAnalysis) Reindex(_ context.Context, req ports.ReindexRequest) (index.Report, error) {
	f.mu.Lock()
	f.reindex = append(f.reindex, req.Paths)
	f.mu.Unlock()
	f.record("reindex")
	return index.Report{Files: 2, Indexed: len(req.Paths)}, nil
}

func (f *fakeAnalysis) StartWatcher(onChange func([]string)) error {
	f.mu.Lock()
	f.onChange = onChange
	f.mu.Unlock()
	return nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startServer(t *testing.T, deps Dependencies, allowlist OperationAllowlist) (*transport.MockAdapter, <-chan error) {
	t.Helper()
	if deps.Logger == nil {
		deps.Logger = quietLogger()
	}
	adapter := transport.NewMockAdapter()
	server, err := New(deps, adapter, allowlist)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- server.Start(context.Background()) }()
	t.Cleanup(func() {
		_ = server.Stop()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("server did not stop")
		}
	})
	return adapter, done
}

func request(id uint64, operation string, params string) contracts.Request {
	return contracts.Request{
		ID:   id,
		Tool: contracts.ToolNameCodelens,
		Args: contracts.ToolArgs{Operation: operation, Params: json.RawMessage(params)},
	}
}

func call(t *testing.T, adapter *transport.MockAdapter, req contracts.Request) contracts.Response {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	resp, err := adapter.Call(ctx, req)
	require.NoError(t, err)
	return resp
}

func TestServer_DispatchWrapsResults(t *testing.T) {
	svc := &fakeAnalysis{}
	adapter, _ := startServer(t, Dependencies{Analysis: svc}, AllowAll())

	resp := call(t, adapter, request(1, ports.OpResolveSymbol, `{"symbolName":"order","contextFile":"A.java"}`))
	require.True(t, resp.OK, "%+v", resp.Error)
	assert.Equal(t, uint64(1), resp.ID)
	assert.Equal(t, contracts.ContractVersion, resp.Result.Version)
	assert.Equal(t, ports.OpResolveSymbol, resp.Result.Operation)

	var res resolver.Resolution
	require.NoError(t, json.Unmarshal(resp.Result.Result, &res))
	assert.Equal(t, "com.acme.Order", res.ResolvedType)

	status := call(t, adapter, request(2, ports.OpIndexStatus, ""))
	require.True(t, status.OK)
	assert.JSONEq(t, `{"root":"","store":"","files":2,"classes":0,"declarations":0,"failures":[]}`, string(status.Result.Result))

	assert.Equal(t, []string{"reindex", "resolve:order", "status"}, svc.Calls(), "the initial index runs before any request")
}

func TestServer_ErrorsCarryKindAndParams(t *testing.T) {
	adapter, _ := startServer(t, Dependencies{Analysis: &fakeAnalysis{}}, AllowAll())

	resp := call(t, adapter, request(3, ports.OpResolveSymbol, `{"symbolName":"missing","contextFile":"A.java"}`))
	require.False(t, resp.OK)
	require.NotNil(t, resp.Error)
	assert.Equal(t, string(errors.CodeSymbolNotFound), resp.Error.Kind)
	assert.Equal(t, map[string]any{"symbolName": "missing", "contextFile": "A.java"}, resp.Error.Context["params"])
	assert.Equal(t, []string{"locals", "fields"}, resp.Error.Context[errors.CtxScopes])

	invalid := call(t, adapter, request(4, ports.OpTypeStructure, `{"maxDepth":0}`))
	require.NotNil(t, invalid.Error)
	assert.Equal(t, string(errors.CodeValidationError), invalid.Error.Kind)
	assert.Contains(t, invalid.Error.Context, "violations")

	unknown := call(t, adapter, request(5, "explain", `{}`))
	require.NotNil(t, unknown.Error)
	assert.Equal(t, string(errors.CodeValidationError), unknown.Error.Kind)
	assert.Equal(t, map[string]any{}, unknown.Error.Context["params"])
}

func TestServer_AllowlistRejectsDisabledOperations(t *testing.T) {
	allowlist, err := BuildOperationAllowlist([]string{"index_status"})
	require.NoError(t, err)
	adapter, _ := startServer(t, Dependencies{Analysis: &fakeAnalysis{}}, allowlist)

	resp := call(t, adapter, request(1, ports.OpAnalyzeBranches, `{"methodSource":"void m() {}"}`))
	require.NotNil(t, resp.Error)
	assert.Equal(t, string(errors.CodeValidationError), resp.Error.Kind)
	assert.Contains(t, resp.Error.Message, "not enabled")

	assert.True(t, call(t, adapter, request(2, ports.OpIndexStatus, "")).OK)
}

func TestServer_RunsJobsInArrivalOrder(t *testing.T) {
	svc := &fakeAnalysis{release: make(chan struct{})}
	adapter, _ := startServer(t, Dependencies{Analysis: svc, Watcher: svc}, AllowAll())

	ctx := context.Background()
	first, err := adapter.Send(ctx, request(1, ports.OpResolveSymbol, `{"symbolName":"a","contextFile":"A.java"}`))
	require.NoError(t, err)
	second, err := adapter.Send(ctx, request(2, ports.OpTypeStructure, `{"className":"Order"}`))
	require.NoError(t, err)

	svc.mu.Lock()
	onChange := svc.onChange
	svc.mu.Unlock()
	require.NotNil(t, onChange, "the watcher is started before serving")
	onChange([]string{"src/B.java"})

	close(svc.release)
	for _, ch := range []<-chan contracts.Response{first, second} {
		select {
		case resp := <-ch:
			assert.True(t, resp.OK)
		case <-time.After(2 * time.Second):
			t.Fatal("response not delivered")
		}
	}

	require.Eventually(t, func() bool { return len(svc.Calls()) == 4 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"reindex", "resolve:a", "type:Order", "reindex"}, svc.Calls())
	svc.mu.Lock()
	assert.Equal(t, []string{"src/B.java"}, svc.reindex[1])
	svc.mu.Unlock()
}

func TestNew_RequiresDependencies(t *testing.T) {
	_, err := New(Dependencies{}, transport.NewMockAdapter(), AllowAll())
	require.Error(t, err)
	_, err = New(Dependencies{Analysis: &fakeAnalysis{}}, nil, AllowAll())
	require.Error(t, err)
}
