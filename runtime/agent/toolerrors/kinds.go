package toolerrors

import "fmt"

// FieldIssue describes a single JSON-schema validation failure for a tool's
// action_input, enabling retry-hint construction without re-parsing Message.
type FieldIssue struct {
	Field      string
	Constraint string
	Detail     string
}

// ToolNotFoundError is raised when a parsed action names a tool absent from
// the agent's registry (spec §4.1 step 9, §7).
type ToolNotFoundError struct {
	*ToolError
	Name string
}

// NewToolNotFound constructs a ToolNotFoundError for the named tool.
func NewToolNotFound(name string) *ToolNotFoundError {
	return &ToolNotFoundError{
		ToolError: New(fmt.Sprintf("tool not found: %s", name)),
		Name:      name,
	}
}

// ToolExecutionError is raised after a tool's own retries are exhausted
// (spec §4.2, §7). Issues carries structured validation detail when the
// failure originated in parameter-schema validation.
type ToolExecutionError struct {
	*ToolError
	Name    string
	Attempt int
	Issues  []FieldIssue
}

// NewToolExecutionError constructs a ToolExecutionError reporting that tool
// failed after attempts tries, wrapping cause.
func NewToolExecutionError(tool string, attempts int, cause error) *ToolExecutionError {
	msg := fmt.Sprintf("tool %s failed after %d retries: %s", tool, attempts, cause)
	return &ToolExecutionError{
		ToolError: NewWithCause(msg, cause),
		Name:      tool,
		Attempt:   attempts,
	}
}

// WithIssues attaches structured validation issues to the error.
func (e *ToolExecutionError) WithIssues(issues []FieldIssue) *ToolExecutionError {
	e.Issues = issues
	return e
}

// ActionBadException signals that the model-call layer wants its message
// adopted verbatim as the agent's final answer (spec §4.1 Error semantics,
// §9 Design Notes "Exceptions as control flow"). A systems-language port
// models it as an explicit error type rather than raising an exception for
// control flow.
type ActionBadException struct {
	*ToolError
}

// NewActionBad constructs an ActionBadException carrying message as the
// answer the agent loop should adopt.
func NewActionBad(message string) *ActionBadException {
	return &ActionBadException{ToolError: New(message)}
}

// FatalAgentError is raised when the loop exhausts its iteration budget
// without a final answer and without a termination-condition match
// (spec §4.1 "Iteration budget", §8 invariant).
type FatalAgentError struct {
	*ToolError
	AgentID string
	Steps   int
}

// NewFatalAgentError constructs a FatalAgentError for the given agent after
// steps iterations.
func NewFatalAgentError(agentID string, steps int) *FatalAgentError {
	return &FatalAgentError{
		ToolError: New(fmt.Sprintf("Failed to get final answer after %d iterations", steps)),
		AgentID:   agentID,
		Steps:     steps,
	}
}
