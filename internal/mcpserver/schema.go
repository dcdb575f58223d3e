package mcpserver

import (
	"github.com/matiasleandrokruk/ghl-gateway/internal/domain/tool"
)

// inputSchema renders a tool's parameters as the JSON Schema object MCP
// clients expect in tools/list.
func inputSchema(def tool.ToolDefinition) map[string]any {
	properties := make(map[string]any, len(def.Params))
	required := make([]string, 0)
	for _, p := range def.Params {
		prop := map[string]any{"type": string(p.Spec.Type)}
		if p.Spec.Default != nil {
			prop["default"] = p.Spec.Default
		}
		if len(p.Spec.Enum) > 0 {
			prop["enum"] = p.Spec.Enum
		}
		if p.Spec.Format != "" {
			prop["format"] = p.Spec.Format
		}
		properties[p.Name] = prop
		if p.Spec.Required {
			required = append(required, p.Name)
		}
	}

	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}
