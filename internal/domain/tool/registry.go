package tool

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
)

var (
	ErrToolNotFound      = errors.New("tool not found")
	ErrDuplicateToolName = errors.New("duplicate tool name")
	ErrInvalidDefinition = errors.New("invalid tool definition")
)

// Category groups tools for discovery and access gating.
type Category string

const (
	CategoryConversations Category = "conversations"
	CategoryCalendars     Category = "calendars"
	CategoryBlog          Category = "blog"
	CategoryContacts      Category = "contacts"
	CategoryCampaigns     Category = "campaigns"
)

// SupportedCategories are the categories the gateway is willing to proxy.
// Tools in any other category can be listed in the directory but never dispatched.
var SupportedCategories = []Category{CategoryConversations, CategoryCalendars, CategoryBlog}

// IsSupported reports whether tools in c may be dispatched.
func (c Category) IsSupported() bool {
	return slices.Contains(SupportedCategories, c)
}

// ToolDefinition is one entry of the catalog. Values are copied out of the
// registry so callers cannot mutate the catalog.
type ToolDefinition struct {
	Name           string
	Category       Category
	Description    string
	Endpoint       string
	Params         ParamSchema
	RequiredScopes []string
}

type toolDefinitionJSON struct {
	Name           string      `json:"name"`
	Category       Category    `json:"category"`
	Endpoint       string      `json:"endpoint"`
	Description    string      `json:"description"`
	Parameters     ParamSchema `json:"parameters"`
	RequiredScopes []string    `json:"requiredScopes"`
}

// MarshalJSON renders the definition in the catalog wire shape.
func (d ToolDefinition) MarshalJSON() ([]byte, error) {
	scopes := d.RequiredScopes
	if scopes == nil {
		scopes = []string{}
	}
	return json.Marshal(toolDefinitionJSON{
		Name:           d.Name,
		Category:       d.Category,
		Endpoint:       d.Endpoint,
		Description:    d.Description,
		Parameters:     d.Params,
		RequiredScopes: scopes,
	})
}

func (d ToolDefinition) clone() ToolDefinition {
	d.Params = slices.Clone(d.Params)
	for i := range d.Params {
		d.Params[i].Spec.Enum = slices.Clone(d.Params[i].Spec.Enum)
	}
	d.RequiredScopes = slices.Clone(d.RequiredScopes)
	return d
}

// Registry is the read-only tool catalog. It is safe for concurrent use
// because nothing mutates it after NewRegistry returns.
type Registry struct {
	defs   []ToolDefinition
	byName map[string]int
}

// NewRegistry builds a registry preserving the registration order of defs.
func NewRegistry(defs []ToolDefinition) (*Registry, error) {
	r := &Registry{
		defs:   make([]ToolDefinition, 0, len(defs)),
		byName: make(map[string]int, len(defs)),
	}
	for _, def := range defs {
		if err := checkDefinition(def); err != nil {
			return nil, err
		}
		if _, exists := r.byName[def.Name]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateToolName, def.Name)
		}
		r.byName[def.Name] = len(r.defs)
		r.defs = append(r.defs, def.clone())
	}
	return r, nil
}

func checkDefinition(def ToolDefinition) error {
	if strings.TrimSpace(def.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidDefinition)
	}
	if def.Category == "" {
		return fmt.Errorf("%w: %s: category is required", ErrInvalidDefinition, def.Name)
	}
	if def.Endpoint == "" {
		return fmt.Errorf("%w: %s: endpoint is required", ErrInvalidDefinition, def.Name)
	}
	seen := make(map[string]struct{}, len(def.Params))
	for _, p := range def.Params {
		if _, dup := seen[p.Name]; dup {
			return fmt.Errorf("%w: %s: parameter %q declared twice", ErrInvalidDefinition, def.Name, p.Name)
		}
		seen[p.Name] = struct{}{}
		if err := p.Spec.check(); err != nil {
			return fmt.Errorf("%s.%s: %w", def.Name, p.Name, err)
		}
	}
	return nil
}

// Lookup returns the tool registered under name.
func (r *Registry) Lookup(name string) (ToolDefinition, bool) {
	i, ok := r.byName[name]
	if !ok {
		return ToolDefinition{}, false
	}
	return r.defs[i].clone(), true
}

// All returns every tool in registration order.
func (r *Registry) All() []ToolDefinition {
	out := make([]ToolDefinition, 0, len(r.defs))
	for _, d := range r.defs {
		out = append(out, d.clone())
	}
	return out
}

// Len returns the number of registered tools.
func (r *Registry) Len() int { return len(r.defs) }

// ByCategory returns the tools of category c in registration order.
func (r *Registry) ByCategory(c Category) []ToolDefinition {
	out := make([]ToolDefinition, 0)
	for _, d := range r.defs {
		if d.Category == c {
			out = append(out, d.clone())
		}
	}
	return out
}

// Supported returns the tools whose category is dispatchable.
func (r *Registry) Supported() []ToolDefinition {
	out := make([]ToolDefinition, 0, len(r.defs))
	for _, d := range r.defs {
		if d.Category.IsSupported() {
			out = append(out, d.clone())
		}
	}
	return out
}

// Names returns all tool names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.defs))
	for _, d := range r.defs {
		out = append(out, d.Name)
	}
	return out
}

// Categories returns the distinct categories in order of first appearance.
func (r *Registry) Categories() []Category {
	out := make([]Category, 0)
	for _, d := range r.defs {
		if !slices.Contains(out, d.Category) {
			out = append(out, d.Category)
		}
	}
	return out
}

// HasCategory reports whether at least one tool belongs to c.
func (r *Registry) HasCategory(c Category) bool {
	return slices.Contains(r.Categories(), c)
}

// AllScopes returns the union of required scopes in order of first appearance.
func (r *Registry) AllScopes() []string {
	out := make([]string, 0)
	seen := make(map[string]struct{})
	for _, d := range r.defs {
		for _, s := range d.RequiredScopes {
			if _, ok := seen[s]; ok {
				continue
			}
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}

// SearchFilter narrows Search results.
type SearchFilter struct {
	Category Category
	Scope    string
}

// Search returns tools whose name, description or category contains query
// (case-insensitive), after applying the optional category and scope filters.
func (r *Registry) Search(query string, f SearchFilter) []ToolDefinition {
	q := strings.ToLower(query)
	out := make([]ToolDefinition, 0)
	for _, d := range r.defs {
		if f.Category != "" && d.Category != f.Category {
			continue
		}
		if f.Scope != "" && !slices.Contains(d.RequiredScopes, f.Scope) {
			continue
		}
		if strings.Contains(strings.ToLower(d.Name), q) ||
			strings.Contains(strings.ToLower(d.Description), q) ||
			strings.Contains(strings.ToLower(string(d.Category)), q) {
			out = append(out, d.clone())
		}
	}
	return out
}

// ValidateParams looks up name and validates params against its schema.
// An unknown tool short-circuits with ErrToolNotFound before any field is checked.
func (r *Registry) ValidateParams(name string, params map[string]any) (Verdict, error) {
	def, ok := r.Lookup(name)
	if !ok {
		return Verdict{}, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	return Validate(def, params), nil
}
