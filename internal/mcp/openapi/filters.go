package openapi

import (
	"sort"
	"strings"
)

// ApplyAllowlist keeps the operations named in allowlist. An empty allowlist
// keeps all of them.
func ApplyAllowlist(ops []OperationDescriptor, allowlist []string) []OperationDescriptor {
	if len(ops) == 0 {
		return nil
	}
	if len(allowlist) == 0 {
		out := make([]OperationDescriptor, len(ops))
		copy(out, ops)
		sortDescriptors(out)
		return out
	}

	allowed := make(map[string]bool, len(allowlist))
	for _, raw := range allowlist {
		normalized := strings.ToLower(strings.TrimSpace(raw))
		if normalized == "" {
			continue
		}
		allowed[normalized] = true
	}

	filtered := make([]OperationDescriptor, 0, len(ops))
	for _, op := range ops {
		if allowed[op.ID] {
			filtered = append(filtered, op)
		}
	}
	sortDescriptors(filtered)
	return filtered
}

func sortDescriptors(ops []OperationDescriptor) {
	sort.Slice(ops, func(i, j int) bool {
		return ops[i].ID < ops[j].ID
	})
}
