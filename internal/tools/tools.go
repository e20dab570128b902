// Package tools defines the tools available to the agent and the
// registry the loop resolves them from.
package tools

import (
	"context"
	"fmt"
	"strings"
)

// Param describes one parameter in a tool's signature. The signature is
// shown to the model verbatim, so names and types are part of the prompt
// contract, not just documentation.
type Param struct {
	Name string
	Type string
}

// Tool is a named callable with a free-text input/output contract.
// The handler receives the raw Action Input text; parsing any structure
// out of it is the tool's own business.
type Tool struct {
	Name        string
	Params      []Param
	Description string
	Handler     func(ctx context.Context, input string) (string, error)
}

// Signature renders the parameter list, e.g. "(key: string, value: string)".
func (t *Tool) Signature() string {
	parts := make([]string, len(t.Params))
	for i, p := range t.Params {
		parts[i] = fmt.Sprintf("%s: %s", p.Name, p.Type)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// Registry holds the available tools. It is populated once at startup
// and read-only afterwards, so it needs no locking.
type Registry struct {
	tools map[string]*Tool
	order []string
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]*Tool)}
}

// Register adds a tool. Re-registering an existing name silently
// overwrites the previous tool but keeps its position in the listing
// order, so the description block stays deterministic.
func (r *Registry) Register(t *Tool) {
	if _, exists := r.tools[t.Name]; !exists {
		r.order = append(r.order, t.Name)
	}
	r.tools[t.Name] = t
}

// Get retrieves a tool by name, or nil if not registered.
func (r *Registry) Get(name string) *Tool {
	return r.tools[name]
}

// Names returns registered tool names in insertion order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Describe returns the tool listing embedded in the instruction prompt,
// one line per tool in insertion order. The exact formatting is part of
// the contract with the completion service.
func (r *Registry) Describe() string {
	var sb strings.Builder
	for i, name := range r.order {
		t := r.tools[name]
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "- **%s**%s: %s", t.Name, t.Signature(), t.Description)
	}
	return sb.String()
}
