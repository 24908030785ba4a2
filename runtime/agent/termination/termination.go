// Package termination defines the composable predicates that decide when an
// agent's ReAct loop should stop (spec §4.8 Termination Conditions).
package termination

import "strings"

// Context is the per-iteration context dictionary every condition's
// predicate receives (spec §4.8).
type Context struct {
	CurrentStep        int
	CurrentAction      string
	CurrentThought     string
	CurrentObservation string
	FinalAnswer        string
	ErrorOccurred      bool
}

// Condition decides, given the current iteration's Context, whether the
// loop should stop.
type Condition interface {
	ShouldStop(ctx Context) bool
}

// StepLimit stops once CurrentStep reaches MaxIterations (spec §4.8: "A
// default StepLimit(max_iterations) is appended if no instance is
// present").
type StepLimit struct {
	MaxIterations int
}

// ShouldStop implements Condition.
func (s StepLimit) ShouldStop(ctx Context) bool {
	return ctx.CurrentStep >= s.MaxIterations
}

// ToolName stops once CurrentAction matches one of Names (spec §8 scenario
// 6 composite use: "ToolName([\"final_answer\"])").
type ToolName struct {
	Names []string
}

// ShouldStop implements Condition.
func (t ToolName) ShouldStop(ctx Context) bool {
	if ctx.CurrentAction == "" {
		return false
	}
	for _, n := range t.Names {
		if n == ctx.CurrentAction {
			return true
		}
	}
	return false
}

// TextMatch stops when Substring appears in CurrentThought, CurrentObservation,
// or FinalAnswer.
type TextMatch struct {
	Substring string
}

// ShouldStop implements Condition.
func (t TextMatch) ShouldStop(ctx Context) bool {
	if t.Substring == "" {
		return false
	}
	return strings.Contains(ctx.CurrentThought, t.Substring) ||
		strings.Contains(ctx.CurrentObservation, t.Substring) ||
		strings.Contains(ctx.FinalAnswer, t.Substring)
}

// Timeout stops once CurrentStep - StartStep reaches MaxStepSpan. It counts
// loop iterations, not elapsed time: the engine sets CurrentStep to the
// iteration index, and no wall-clock time is measured.
type Timeout struct {
	StartStep   int
	MaxStepSpan int
}

// ShouldStop implements Condition.
func (t Timeout) ShouldStop(ctx Context) bool {
	return ctx.CurrentStep-t.StartStep >= t.MaxStepSpan
}

// ErrorCount stops once the number of iterations seen with ErrorOccurred set
// reaches Max. The condition owns its own running counter since Context
// carries only the current iteration's flag.
type ErrorCount struct {
	Max int

	seen int
}

// ShouldStop implements Condition. Not safe for concurrent use, matching
// the single-loop-owner discipline the rest of the engine assumes.
func (e *ErrorCount) ShouldStop(ctx Context) bool {
	if ctx.ErrorOccurred {
		e.seen++
	}
	return e.seen >= e.Max
}

// CompositeMode selects how a Composite combines its members.
type CompositeMode string

const (
	// ModeAny stops as soon as any member condition stops (spec §4.8:
	// "the short-circuit is any").
	ModeAny CompositeMode = "any"
	// ModeAll stops only once every member condition stops (spec §4.8:
	// "Composite conditions may nest with mode=all").
	ModeAll CompositeMode = "all"
)

// Composite combines Members under Mode (spec §4.8).
type Composite struct {
	Mode    CompositeMode
	Members []Condition
}

// ShouldStop implements Condition. Evaluation order is the order of
// Members (spec §4.8: "Evaluation order is the order of the list").
func (c Composite) ShouldStop(ctx Context) bool {
	switch c.Mode {
	case ModeAll:
		if len(c.Members) == 0 {
			return false
		}
		for _, m := range c.Members {
			if !m.ShouldStop(ctx) {
				return false
			}
		}
		return true
	default: // ModeAny
		for _, m := range c.Members {
			if m.ShouldStop(ctx) {
				return true
			}
		}
		return false
	}
}

// WithDefaultStepLimit appends a StepLimit(maxIterations) to conditions if
// none of them is already a StepLimit (possibly nested inside a Composite),
// matching the engine's fallback rule (spec §4.8).
func WithDefaultStepLimit(conditions []Condition, maxIterations int) []Condition {
	if containsStepLimit(conditions) {
		return conditions
	}
	return append(conditions, StepLimit{MaxIterations: maxIterations})
}

func containsStepLimit(conditions []Condition) bool {
	for _, c := range conditions {
		switch v := c.(type) {
		case StepLimit:
			return true
		case Composite:
			if containsStepLimit(v.Members) {
				return true
			}
		}
	}
	return false
}
