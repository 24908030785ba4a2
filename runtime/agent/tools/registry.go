package tools

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Registry holds the tool descriptors available to one agent. Construction
// rejects duplicate names (spec §3).
type Registry struct {
	mu      sync.RWMutex
	entries map[Ident]*Descriptor
	schemas map[Ident]*jsonschema.Schema

	// descCache memoizes the "tools" prompt block keyed by the sorted set of
	// tool names, invalidated whenever the registry changes (spec §9: "A
	// tool-description cache is keyed by sorted tool names and invalidated
	// on registry changes").
	descCache      string
	descCacheKey   string
	descCacheValid bool
}

// NewRegistry builds an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[Ident]*Descriptor),
		schemas: make(map[Ident]*jsonschema.Schema),
	}
}

// Register adds a tool descriptor to the registry. Returns an error if a
// tool with the same name is already registered.
func (r *Registry) Register(d *Descriptor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[d.Name]; exists {
		return fmt.Errorf("tools: duplicate tool name %q", d.Name)
	}
	schema, err := compileParamSchema(d.Params)
	if err != nil {
		return fmt.Errorf("tools: compile schema for %q: %w", d.Name, err)
	}
	r.entries[d.Name] = d
	r.schemas[d.Name] = schema
	r.descCacheValid = false
	return nil
}

// Get returns the descriptor for name, if registered.
func (r *Registry) Get(name Ident) (*Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.entries[name]
	return d, ok
}

// Schema returns the compiled parameter schema for name.
func (r *Registry) Schema(name Ident) *jsonschema.Schema {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.schemas[name]
}

// SetMemory overwrites the learned usage guidance for a tool (spec §4.5: "the
// result back to the same key, overwriting").
func (r *Registry) SetMemory(name Ident, memory string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d, ok := r.entries[name]; ok {
		d.Memory = memory
		r.descCacheValid = false
	}
}

// Names returns the registered tool names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sortedNamesLocked()
}

func (r *Registry) sortedNamesLocked() []string {
	names := make([]string, 0, len(r.entries))
	for n := range r.entries {
		names = append(names, string(n))
	}
	sort.Strings(names)
	return names
}

// ToolNames renders the comma-separated "tool_names" prompt variable (spec §4.3).
func (r *Registry) ToolNames() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return strings.Join(r.sortedNamesLocked(), ", ")
}

// Descriptions renders the numbered, sorted "tools" prompt variable (spec §4.3),
// cached by the sorted tool-name set until the registry changes.
func (r *Registry) Descriptions() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := r.sortedNamesLocked()
	key := strings.Join(names, ",")
	if r.descCacheValid && r.descCacheKey == key {
		return r.descCache
	}
	var b strings.Builder
	for i, n := range names {
		fmt.Fprintf(&b, "%d. %s", i+1, r.entries[Ident(n)].FullDescription())
	}
	r.descCache = b.String()
	r.descCacheKey = key
	r.descCacheValid = true
	return r.descCache
}

// compileParamSchema turns a tool's declared {type, required, default,
// description} parameter map into a JSON Schema document and compiles it,
// used by the execution policy to validate action_input before invocation
// (spec §3 "[ADD]").
func compileParamSchema(params map[string]ParamSpec) (*jsonschema.Schema, error) {
	if len(params) == 0 {
		return nil, nil
	}
	props := make(map[string]any, len(params))
	var required []string
	for name, p := range params {
		props[name] = map[string]any{"type": jsonSchemaType(p.Type)}
		if p.Required {
			required = append(required, name)
		}
	}
	sort.Strings(required)
	doc := map[string]any{
		"type":                 "object",
		"properties":           props,
		"required":             required,
		"additionalProperties": true,
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, err
	}
	c := jsonschema.NewCompiler()
	const uri = "mem://tool-params.json"
	if err := c.AddResource(uri, decoded); err != nil {
		return nil, err
	}
	return c.Compile(uri)
}

func jsonSchemaType(t ParamType) string {
	switch t {
	case ParamInt, ParamFloat:
		return "number"
	case ParamBool:
		return "boolean"
	case ParamObject:
		return "object"
	case ParamArray:
		return "array"
	default:
		return "string"
	}
}
