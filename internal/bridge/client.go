package bridge

import (
	"codelens/internal/core/errors"
	"codelens/internal/core/ports"
	"codelens/internal/engine/branches"
	"codelens/internal/engine/callchain"
	"codelens/internal/engine/index"
	"codelens/internal/engine/resolver"
	"codelens/internal/engine/typegraph"
	"context"
	"encoding/json"
)

// Call sends one request and decodes its result into T.
func Call[T any](ctx context.Context, b *Bridge, operation string, params any) (*T, error) {
	env, err := b.Send(ctx, operation, params).Await(ctx)
	if err != nil {
		return nil, err
	}
	var out T
	if err := json.Unmarshal(env.Result, &out); err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "decode "+operation+" result")
	}
	return &out, nil
}

func (b *Bridge) ResolveSymbol(ctx context.Context, req ports.ResolveSymbolRequest) (*resolver.Resolution, error) {
	return Call[resolver.Resolution](ctx, b, ports.OpResolveSymbol, req)
}

func (b *Bridge) TypeStructure(ctx context.Context, req ports.TypeStructureRequest) (*typegraph.Result, error) {
	return Call[typegraph.Result](ctx, b, ports.OpTypeStructure, req)
}

func (b *Bridge) CallChain(ctx context.Context, req ports.CallChainRequest) (*callchain.Result, error) {
	return Call[callchain.Result](ctx, b, ports.OpCallChain, req)
}

func (b *Bridge) AnalyzeBranches(ctx context.Context, req ports.AnalyzeBranchesRequest) (*branches.Result, error) {
	return Call[branches.Result](ctx, b, ports.OpAnalyzeBranches, req)
}

func (b *Bridge) IndexStatus(ctx context.Context) (*ports.IndexStatus, error) {
	return Call[ports.IndexStatus](ctx, b, ports.OpIndexStatus, nil)
}

func (b *Bridge) Reindex(ctx context.Context, req ports.ReindexRequest) (*index.Report, error) {
	return Call[index.Report](ctx, b, ports.OpReindex, req)
}
