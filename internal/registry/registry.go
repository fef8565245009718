// Package registry holds the HTTP tool catalog: named handlers plus the
// parameter schemas exposed by the discovery endpoint and enforced on call.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/xiy/toolbelt-mcp/internal/tools"
)

// Handler executes one tool call against already-validated arguments.
type Handler func(ctx context.Context, args map[string]any) (any, error)

// Param describes one tool parameter in the discovery catalog.
type Param struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

// Tool is one registered tool: its public contract and its handler.
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]Param
	Required    []string
	Handler     Handler
}

// Definition is the discovery shape served by GET /tools.
type Definition struct {
	Description string           `json:"description"`
	Parameters  map[string]Param `json:"parameters"`
}

type registeredTool struct {
	tool   Tool
	schema *gojsonschema.Schema
}

// Registry dispatches tool calls by name, preserving registration order
// for discovery output.
type Registry struct {
	order []string
	tools map[string]*registeredTool
}

func New() *Registry {
	return &Registry{tools: map[string]*registeredTool{}}
}

// Register adds a tool and compiles its parameter schema. Registering a
// duplicate name or a tool without a handler is a programming error.
func (r *Registry) Register(t Tool) error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("register tool: empty name")
	}
	if t.Handler == nil {
		return fmt.Errorf("register tool %q: nil handler", t.Name)
	}
	if _, ok := r.tools[t.Name]; ok {
		return fmt.Errorf("register tool %q: already registered", t.Name)
	}

	schema, err := compileSchema(t)
	if err != nil {
		return fmt.Errorf("register tool %q: %w", t.Name, err)
	}

	r.order = append(r.order, t.Name)
	r.tools[t.Name] = &registeredTool{tool: t, schema: schema}
	return nil
}

func compileSchema(t Tool) (*gojsonschema.Schema, error) {
	props := map[string]any{}
	for name, p := range t.Parameters {
		prop := map[string]any{}
		if p.Type != "" {
			prop["type"] = p.Type
		}
		if p.Description != "" {
			prop["description"] = p.Description
		}
		props[name] = prop
	}
	doc := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(t.Required) > 0 {
		doc["required"] = t.Required
	}
	return gojsonschema.NewSchema(gojsonschema.NewGoLoader(doc))
}

// Has reports whether a tool with the given name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.tools[name]
	return ok
}

// Names returns tool names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Definitions returns the discovery catalog keyed by tool name.
func (r *Registry) Definitions() map[string]Definition {
	defs := make(map[string]Definition, len(r.order))
	for _, name := range r.order {
		t := r.tools[name].tool
		params := t.Parameters
		if params == nil {
			params = map[string]Param{}
		}
		defs[name] = Definition{Description: t.Description, Parameters: params}
	}
	return defs
}

// Call validates args against the tool's schema then dispatches. Unknown
// tool names return a NotFound error; schema violations return Validation.
func (r *Registry) Call(ctx context.Context, name string, args map[string]any) (any, error) {
	rt, ok := r.tools[name]
	if !ok {
		return nil, tools.NotFoundf("unknown tool: %s", name)
	}
	if args == nil {
		args = map[string]any{}
	}
	if err := r.validate(rt, args); err != nil {
		return nil, err
	}
	return rt.tool.Handler(ctx, args)
}

func (r *Registry) validate(rt *registeredTool, args map[string]any) error {
	argBytes, err := json.Marshal(args)
	if err != nil {
		return tools.Validationf("invalid arguments: %v", err)
	}
	result, err := rt.schema.Validate(gojsonschema.NewBytesLoader(argBytes))
	if err != nil {
		return fmt.Errorf("schema validation: %w", err)
	}
	if result.Valid() {
		return nil
	}
	details := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		details = append(details, desc.String())
	}
	return tools.Validationf("invalid arguments: %s", strings.Join(details, "; "))
}
