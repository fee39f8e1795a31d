package runtime

import (
	"codelens/internal/core/errors"
	"codelens/internal/core/ports"
	"codelens/internal/shared/util"
	"fmt"
	"strings"
	"unicode"
)

type OperationAllowlist struct {
	allowAll bool
	allowed  map[string]bool
}

// AllowAll serves every registered operation.
func AllowAll() OperationAllowlist {
	return OperationAllowlist{allowAll: true}
}

// BuildOperationAllowlist accepts operation names in snake, kebab or camel
// case, plus the short names type_structure and call_chain. An empty list
// allows everything.
func BuildOperationAllowlist(entries []string) (OperationAllowlist, error) {
	if len(entries) == 0 {
		return AllowAll(), nil
	}

	allowed := make(map[string]bool)
	for _, entry := range entries {
		if strings.TrimSpace(entry) == "" {
			continue
		}
		id := normalizeOperationAlias(entry)
		if id == "" {
			err := errors.New(errors.CodeValidationError, fmt.Sprintf("unknown operation in engine.operations: %q", entry))
			if suggestions := util.Suggest(entry, ports.Operations, 3); len(suggestions) > 0 {
				err = errors.AddContext(err, errors.CtxSuggestions, suggestions)
			}
			return OperationAllowlist{}, err
		}
		allowed[id] = true
	}
	if len(allowed) == 0 {
		return AllowAll(), nil
	}
	return OperationAllowlist{allowed: allowed}, nil
}

func (o OperationAllowlist) Allows(id string) bool {
	if o.allowAll {
		return true
	}
	return o.allowed[id]
}

// Filter keeps the allowed operations of ops, in order.
func (o OperationAllowlist) Filter(ops []string) []string {
	out := make([]string, 0, len(ops))
	for _, op := range ops {
		if o.Allows(op) {
			out = append(out, op)
		}
	}
	return out
}

// Names lists the allowed operations, or nil when everything is allowed.
func (o OperationAllowlist) Names() []string {
	if o.allowAll {
		return nil
	}
	return o.Filter(ports.Operations)
}

func normalizeOperationAlias(raw string) string {
	value := snakeCase(strings.TrimSpace(raw))
	switch value {
	case "type_structure", "type_graph":
		return ports.OpTypeStructure
	case "call_chain", "trace_calls":
		return ports.OpCallChain
	case "branches":
		return ports.OpAnalyzeBranches
	case "status":
		return ports.OpIndexStatus
	}
	for _, op := range ports.Operations {
		if op == value {
			return op
		}
	}
	return ""
}

func snakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		switch {
		case r == '-' || r == '.' || r == ' ':
			b.WriteByte('_')
		case unicode.IsUpper(r):
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
