package schema

import (
	"codelens/internal/mcp/contracts"
	"codelens/internal/mcp/openapi"
)

type ToolDefinition struct {
	Name        string                        `json:"name"`
	Description string                        `json:"description,omitempty"`
	InputSchema map[string]any                `json:"input_schema"`
	Version     string                        `json:"version"`
	Operations  []openapi.OperationDescriptor `json:"operations"`
}

// BuildToolDefinitions describes the single codelens tool, restricted to the
// allowlisted operations.
func BuildToolDefinitions(allowlist []string) ([]ToolDefinition, error) {
	ops, err := openapi.Convert(openapi.Document())
	if err != nil {
		return nil, err
	}
	ops = openapi.ApplyAllowlist(ops, allowlist)

	names := make([]string, 0, len(ops))
	for _, op := range ops {
		names = append(names, op.ID)
	}

	return []ToolDefinition{
		{
			Name:        contracts.ToolNameCodelens,
			Description: "Semantic queries over an indexed Java project.",
			Version:     contracts.ContractVersion,
			Operations:  ops,
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"operation": map[string]any{
						"type":        "string",
						"description": "Operation identifier (e.g., resolve_symbol).",
						"enum":        names,
					},
					"params": map[string]any{
						"type":                 "object",
						"additionalProperties": true,
					},
				},
				"required": []string{"operation"},
			},
		},
	}, nil
}
