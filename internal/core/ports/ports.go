package ports

import (
	"codelens/internal/engine/branches"
	"codelens/internal/engine/callchain"
	"codelens/internal/engine/index"
	"codelens/internal/engine/resolver"
	"codelens/internal/engine/typegraph"
	"context"
)

// Operation names as they appear on the wire.
const (
	OpResolveSymbol   = "resolve_symbol"
	OpTypeStructure   = "get_type_structure"
	OpCallChain       = "build_call_chain"
	OpAnalyzeBranches = "analyze_branches"
	OpIndexStatus     = "index_status"
	OpReindex         = "reindex"
)

// Operations lists every operation in documentation order.
var Operations = []string{
	OpResolveSymbol,
	OpTypeStructure,
	OpCallChain,
	OpAnalyzeBranches,
	OpIndexStatus,
	OpReindex,
}

type ResolveSymbolRequest struct {
	SymbolName  string `json:"symbolName"`
	ContextFile string `json:"contextFile"`
	// Line is 1-based. Without it, fields win over parameters and locals are
	// not considered.
	Line *int `json:"line,omitempty"`
}

type TypeStructureRequest struct {
	ClassName          string `json:"className"`
	MaxDepth           int    `json:"maxDepth,omitempty"`
	IncludeAnnotations bool   `json:"includeAnnotations,omitempty"`
}

type CallChainRequest struct {
	ClassName        string   `json:"className"`
	MethodName       string   `json:"methodName"`
	MaxDepth         int      `json:"maxDepth,omitempty"`
	BoundaryPatterns []string `json:"boundaryPatterns,omitempty"`
}

type AnalyzeBranchesRequest struct {
	MethodSource string `json:"methodSource"`
}

// ReindexRequest re-indexes the given paths, or the whole project when Paths
// is empty.
type ReindexRequest struct {
	Paths []string `json:"paths,omitempty"`
}

type IndexStatus struct {
	Root         string          `json:"root"`
	Store        string          `json:"store"`
	Files        int             `json:"files"`
	Classes      int             `json:"classes"`
	Declarations int             `json:"declarations"`
	Failures     []index.Failure `json:"failures"`
}

// AnalysisService is the operation surface served by the engine runtime.
type AnalysisService interface {
	ResolveSymbol(ctx context.Context, req ResolveSymbolRequest) (*resolver.Resolution, error)
	TypeStructure(ctx context.Context, req TypeStructureRequest) (*typegraph.Result, error)
	CallChain(ctx context.Context, req CallChainRequest) (*callchain.Result, error)
	AnalyzeBranches(ctx context.Context, req AnalyzeBranchesRequest) (*branches.Result, error)
	IndexStatus(ctx context.Context) (IndexStatus, error)
	Reindex(ctx context.Context, req ReindexRequest) (index.Report, error)
}
