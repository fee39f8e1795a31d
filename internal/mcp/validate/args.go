package validate

import (
	"bytes"
	"codelens/internal/core/ports"
	"codelens/internal/mcp/contracts"
	"codelens/internal/mcp/openapi"
	"codelens/internal/shared/util"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

const (
	maxPathCount    = 256
	maxPatternCount = 64
	maxSourceLength = 1 << 20
	maxSymbolLength = 512
)

const (
	ctxViolations   = "violations"
	ctxParams       = "params"
	ctxOperation    = "operation"
	ctxSuggestions  = "suggestions"
	ctxSourceLength = "length"
	ctxSymbolLength = "maxLength"
)

// ParseToolArgs validates args against the operation's params schema and
// decodes them into the matching ports request type.
func ParseToolArgs(tool string, args contracts.ToolArgs) (string, any, error) {
	if strings.TrimSpace(tool) == "" {
		return "", nil, contracts.InvalidArgument("tool name is required", nil)
	}
	if tool != contracts.ToolNameCodelens {
		return "", nil, contracts.InvalidArgument(fmt.Sprintf("unsupported tool: %s", tool), nil)
	}

	operation := strings.TrimSpace(args.Operation)
	if operation == "" {
		return "", nil, contracts.InvalidArgument("operation is required", nil)
	}
	schema := openapi.ParamsSchema(operation)
	if schema == nil {
		ctx := map[string]any{ctxOperation: operation}
		if suggestions := util.Suggest(operation, ports.Operations, 3); len(suggestions) > 0 {
			ctx[ctxSuggestions] = suggestions
		}
		return "", nil, contracts.InvalidArgument(fmt.Sprintf("unsupported operation: %s", operation), ctx)
	}

	raw := bytes.TrimSpace(args.Params)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		raw = []byte("{}")
	}
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return "", nil, contracts.InvalidArgument("params are not valid JSON", map[string]any{"error": err.Error()})
	}
	params, ok := value.(map[string]any)
	if !ok {
		return "", nil, contracts.InvalidArgument("params must be an object", nil)
	}
	if err := schema.VisitJSON(params, openapi3.MultiErrors()); err != nil {
		return "", nil, contracts.InvalidArgument(
			fmt.Sprintf("invalid params for %s", operation),
			map[string]any{ctxViolations: violations(err), ctxParams: params},
		)
	}

	input, err := decode(operation, raw)
	if err != nil {
		return "", nil, err
	}
	return operation, input, nil
}

func decode(operation string, raw []byte) (any, error) {
	switch operation {
	case ports.OpResolveSymbol:
		var input ports.ResolveSymbolRequest
		if err := decodeParams(raw, &input); err != nil {
			return nil, err
		}
		input.SymbolName = strings.TrimSpace(input.SymbolName)
		input.ContextFile = strings.TrimSpace(input.ContextFile)
		if len(input.SymbolName) > maxSymbolLength {
			return nil, contracts.InvalidArgument("symbolName is too long", map[string]any{ctxSymbolLength: maxSymbolLength})
		}
		return input, nil
	case ports.OpTypeStructure:
		var input ports.TypeStructureRequest
		if err := decodeParams(raw, &input); err != nil {
			return nil, err
		}
		input.ClassName = strings.TrimSpace(input.ClassName)
		return input, nil
	case ports.OpCallChain:
		var input ports.CallChainRequest
		if err := decodeParams(raw, &input); err != nil {
			return nil, err
		}
		input.ClassName = strings.TrimSpace(input.ClassName)
		input.MethodName = strings.TrimSpace(input.MethodName)
		input.BoundaryPatterns = normalizeStrings(input.BoundaryPatterns, maxPatternCount)
		return input, nil
	case ports.OpAnalyzeBranches:
		var input ports.AnalyzeBranchesRequest
		if err := decodeParams(raw, &input); err != nil {
			return nil, err
		}
		if len(input.MethodSource) > maxSourceLength {
			return nil, contracts.InvalidArgument("methodSource is too large", map[string]any{ctxSourceLength: len(input.MethodSource)})
		}
		return input, nil
	case ports.OpIndexStatus:
		return struct{}{}, nil
	case ports.OpReindex:
		var input ports.ReindexRequest
		if err := decodeParams(raw, &input); err != nil {
			return nil, err
		}
		input.Paths = normalizeStrings(input.Paths, maxPathCount)
		return input, nil
	default:
		return nil, contracts.InvalidArgument(fmt.Sprintf("unsupported operation: %s", operation), nil)
	}
}

func decodeParams(raw []byte, out any) error {
	if err := json.Unmarshal(raw, out); err != nil {
		return contracts.InvalidArgument("invalid params", map[string]any{"error": err.Error()})
	}
	return nil
}

// violations flattens schema errors into "field: reason" lines.
func violations(err error) []string {
	var multi openapi3.MultiError
	if !errors.As(err, &multi) {
		multi = openapi3.MultiError{err}
	}
	out := make([]string, 0, len(multi))
	for _, e := range multi {
		var se *openapi3.SchemaError
		if errors.As(e, &se) {
			field := strings.Join(se.JSONPointer(), ".")
			if field == "" {
				out = append(out, se.Reason)
			} else {
				out = append(out, field+": "+se.Reason)
			}
			continue
		}
		out = append(out, e.Error())
	}
	return out
}

func normalizeStrings(values []string, maxCount int) []string {
	seen := make(map[string]bool)
	out := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		if seen[trimmed] {
			continue
		}
		if maxCount > 0 && len(out) >= maxCount {
			break
		}
		seen[trimmed] = true
		out = append(out, trimmed)
	}
	return out
}
