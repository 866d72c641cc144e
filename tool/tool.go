// Package tool implements the function / tool calling subsystem that lets the
// agent invoke structured capabilities with JSON-encoded arguments. It holds
// both the declaration shapes advertised to the model provider and the
// runtime registry that resolves a model's tool call requests.
package tool

import (
	"context"
	"encoding/json"
)

// Call represents a function call request surfaced by a model provider.
// Unified across vendors so downstream logic does not need per-provider branching.
type Call struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"` // JSON object of arguments
}

// Func is the implementation signature behind a registered tool. Arguments
// arrive already decoded from the call's JSON payload.
type Func func(ctx context.Context, args map[string]any) (any, error)

// Definition declaratively exposes a callable function to the model. The JSON
// shape must be preserved exactly for vendor compatibility.
type Definition struct {
	Type     string             `json:"type"` // "function"
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition describes an individual function (tool) exposed to the model.
type FunctionDefinition struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Parameters  Parameters `json:"parameters"`
}

// Parameters is a minimal JSON-Schema object declaration.
type Parameters struct {
	Type       string         `json:"type"` // "object"
	Properties map[string]any `json:"properties"`
	Required   []string       `json:"required"`
}

// Map returns the schema as a generic map, the form provider SDKs expect.
func (p Parameters) Map() map[string]any {
	return map[string]any{
		"type":       p.Type,
		"properties": p.Properties,
		"required":   p.Required,
	}
}

// NewDefinition builds a function tool declaration in the vendor wire shape.
func NewDefinition(name, description string, properties map[string]any, required []string) Definition {
	return Definition{
		Type: "function",
		Function: FunctionDefinition{
			Name:        name,
			Description: description,
			Parameters: Parameters{
				Type:       "object",
				Properties: properties,
				Required:   required,
			},
		},
	}
}

// decodeArguments parses the JSON argument payload of a tool call. An empty
// payload decodes to an empty argument map.
func decodeArguments(raw string) (map[string]any, error) {
	if raw == "" {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, err
	}
	return args, nil
}
