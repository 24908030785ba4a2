// Package prompt builds the templated ReAct prompt string from an agent's
// static configuration, its tool registry, and the live scratchpad/playbook
// state (spec §4.3 Prompt Construction).
package prompt

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/orchestra-ai/agentcore/runtime/agent/scratchpad"
	"github.com/orchestra-ai/agentcore/runtime/agent/tools"
)

// NoContextPlaceholder is substituted for the "context" variable when the
// caller supplies none (spec §4.3: "or \"暂无\"").
const NoContextPlaceholder = "暂无"

// IncludeFields restricts which of the four ReAct lines a scratchpad step
// renders (spec §4.3: "An include_fields filter may restrict which of the
// four lines are emitted"). The zero value renders none of the four;
// AllFields renders all of them.
type IncludeFields struct {
	Thought     bool
	Action      bool
	ActionInput bool
	Observation bool
}

// AllFields renders every ReAct line.
var AllFields = IncludeFields{Thought: true, Action: true, ActionInput: true, Observation: true}

// Vars collects everything needed to render the template (spec §4.3
// "Substituted variables").
type Vars struct {
	Template           string
	CurrentTime        time.Time
	ToolDescriptors    []*tools.Descriptor
	Query              string
	PlannerObservation string // promoted observation of a "planner" scratchpad step, if any
	Scratchpad         []scratchpad.Step
	IncludeFields      IncludeFields
	Context            string
	Instructions       string
	MaxIterations      int
	CurrentIteration   int
	Playbook           string
}

// Build renders the final prompt string by substituting every spec §4.3
// variable into v.Template.
func Build(v Vars) string {
	replacer := strings.NewReplacer(
		"{CURRENT_TIME}", v.CurrentTime.UTC().Format(time.RFC3339),
		"{tools}", renderTools(v.ToolDescriptors),
		"{tool_names}", renderToolNames(v.ToolDescriptors),
		"{query}", v.Query,
		"{planner}", renderPlanner(v.PlannerObservation),
		"{agent_scratchpad}", renderScratchpad(v.Scratchpad, v.IncludeFields),
		"{context}", contextOrPlaceholder(v.Context),
		"{instructions}", v.Instructions,
		"{max_iterations}", fmt.Sprintf("%d", v.MaxIterations),
		"{current_iteration}", fmt.Sprintf("%d", v.CurrentIteration),
		"{playbook}", v.Playbook,
	)
	return replacer.Replace(v.Template)
}

func contextOrPlaceholder(ctx string) string {
	if ctx == "" {
		return NoContextPlaceholder
	}
	return ctx
}

// renderTools numbers and sorts each tool's full description (spec §4.3
// "tools").
func renderTools(descs []*tools.Descriptor) string {
	sorted := append([]*tools.Descriptor(nil), descs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })
	var b strings.Builder
	for i, d := range sorted {
		fmt.Fprintf(&b, "%d. %s", i+1, d.FullDescription())
	}
	return b.String()
}

// renderToolNames comma-joins sorted tool names (spec §4.3 "tool_names").
func renderToolNames(descs []*tools.Descriptor) string {
	names := make([]string, 0, len(descs))
	for _, d := range descs {
		names = append(names, string(d.Name))
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

func renderPlanner(observation string) string {
	if observation == "" {
		return ""
	}
	return fmt.Sprintf("Plan:\n%s", observation)
}

// renderScratchpad formats every non-origin step as a ReAct block (spec
// §4.3 "agent_scratchpad").
func renderScratchpad(steps []scratchpad.Step, fields IncludeFields) string {
	var b strings.Builder
	for _, s := range steps {
		if s.IsOriginQuery {
			continue
		}
		if fields.Thought && s.Thought != "" {
			fmt.Fprintf(&b, "Thought: %s\n", s.Thought)
		}
		if fields.Action && s.Action != "" {
			fmt.Fprintf(&b, "Action: %s\n", s.Action)
		}
		if fields.ActionInput {
			fmt.Fprintf(&b, "Action Input: %s\n", s.ActionInput)
		}
		if fields.Observation {
			fmt.Fprintf(&b, "Observation: %s\n", IndentMarkdown(s.Observation))
		}
	}
	return b.String()
}

var markdownishLineRe = regexp.MustCompile(`^(\s*(#{1,6}\s|[-*+]\s|\d+\.\s|>|` + "```" + `|\|))`)

// IndentMarkdown four-space-indents lines that look like Markdown
// structure — headings, list items, code fences, tables, blockquotes —
// leaving other lines untouched (spec §4.3 closing paragraph).
func IndentMarkdown(observation string) string {
	lines := strings.Split(observation, "\n")
	for i, line := range lines {
		if markdownishLineRe.MatchString(line) {
			lines[i] = "    " + line
		}
	}
	return strings.Join(lines, "\n")
}
