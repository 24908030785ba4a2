// Package tools defines the tool descriptor, registry, and execution policy
// that give the agent core its dynamic-dispatch-over-tools surface (spec §3
// Tool descriptor, §4.2 Tool Execution, §9 "Dynamic dispatch over tools").
package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Ident is a tool's unique name within a registry (spec §3: "Tool names must
// be unique within an agent; duplicates are rejected at construction").
type Ident string

// ParamType enumerates the coercion types the response parser and schema
// validator recognize for a declared parameter (spec §4.4 regex-structured
// cascade: "int, float, bool, else string").
type ParamType string

const (
	ParamString ParamType = "string"
	ParamInt    ParamType = "int"
	ParamFloat  ParamType = "float"
	ParamBool   ParamType = "bool"
	ParamObject ParamType = "object"
	ParamArray  ParamType = "array"
)

// ParamSpec describes one parameter in a tool's parameter schema.
type ParamSpec struct {
	Type        ParamType
	Required    bool
	Default     any
	Description string
}

// Result is what an invoker returns: a map that must contain at least a
// "result" key (spec §3 Tool descriptor, §6 Tool invocation contract).
type Result map[string]any

// Invoker executes a tool call and returns its result. Implementations may be
// long-running; callers are expected to honor ctx cancellation.
type Invoker func(ctx context.Context, params map[string]any) (Result, error)

// Descriptor is the full metadata + invoker for one tool (spec §3 Tool
// descriptor).
type Descriptor struct {
	Name           Ident
	Description    string
	Params         map[string]ParamSpec
	OutputSchema   map[string]string // field name -> description
	IsAsync        bool
	MaxRetries     int
	RetryDelaySecs float64
	// Memory holds learned usage guidance text (spec §4.5 Tool Memory
	// Manager); empty until the manager has written at least one update.
	Memory string
	// RateLimited marks tools sharing the ≈5 req/min token-bucket limiter
	// (spec §5 Global rate limits — web-crawler/search-shaped tools).
	RateLimited bool
	// NeedHistory marks tools that should receive a serialized transcript of
	// prior observations merged into their params (spec §4.2).
	NeedHistory bool
	Invoke      Invoker
}

// FullDescription renders the human-readable help text substituted into the
// "tools" prompt variable (spec §4.3), including a parameter table and, when
// present, the tool's learned usage guidance. It adds no list number; callers
// that list several tools number them.
func (d *Descriptor) FullDescription() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s\n", d.Name, d.Description)
	if len(d.Params) > 0 {
		names := make([]string, 0, len(d.Params))
		for n := range d.Params {
			names = append(names, n)
		}
		sort.Strings(names)
		b.WriteString("Parameters:\n")
		for _, n := range names {
			p := d.Params[n]
			req := "optional"
			if p.Required {
				req = "required"
			}
			fmt.Fprintf(&b, "  - %s (%s, %s): %s\n", n, p.Type, req, p.Description)
		}
	}
	if d.Memory != "" {
		fmt.Fprintf(&b, "Usage guidance: %s\n", d.Memory)
	}
	return b.String()
}
