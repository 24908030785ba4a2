package prompt_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/orchestra-ai/agentcore/runtime/agent/prompt"
	"github.com/orchestra-ai/agentcore/runtime/agent/scratchpad"
	"github.com/orchestra-ai/agentcore/runtime/agent/tools"
)

func TestBuildSubstitutesAllVariables(t *testing.T) {
	t.Parallel()

	when := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	descs := []*tools.Descriptor{
		{Name: "search", Description: "search the web"},
		{Name: "final_answer", Description: "give the final answer"},
	}
	steps := []scratchpad.Step{
		{IsOriginQuery: true, Thought: "origin, should be skipped"},
		{Thought: "need info", Action: "search", ActionInput: `{"q":"go"}`, Observation: "some results"},
	}

	out := prompt.Build(prompt.Vars{
		Template: "{instructions}\n{CURRENT_TIME}\n{tools}\n{tool_names}\n{query}\n{planner}\n" +
			"{context}\n{max_iterations}/{current_iteration}\n{playbook}\n{agent_scratchpad}",
		CurrentTime:        when,
		ToolDescriptors:    descs,
		Query:              "what is the weather",
		PlannerObservation: "step 1: search; step 2: answer",
		Scratchpad:         steps,
		IncludeFields:      prompt.AllFields,
		Instructions:       "be helpful",
		MaxIterations:      10,
		CurrentIteration:   2,
		Playbook:           "current plan text",
	})

	require.Contains(t, out, "be helpful")
	require.Contains(t, out, "2026-03-01T12:00:00Z")
	require.Contains(t, out, "1. final_answer: give the final answer")
	require.Contains(t, out, "2. search: search the web")
	require.Contains(t, out, "final_answer, search")
	require.Contains(t, out, "what is the weather")
	require.Contains(t, out, "Plan:\nstep 1: search; step 2: answer")
	require.Contains(t, out, prompt.NoContextPlaceholder)
	require.Contains(t, out, "10/2")
	require.Contains(t, out, "current plan text")
	require.NotContains(t, out, "origin, should be skipped")
	require.Contains(t, out, "Thought: need info")
	require.Contains(t, out, "Action: search")
	require.Contains(t, out, `Action Input: {"q":"go"}`)
	require.Contains(t, out, "Observation: some results")
}

func TestBuildUsesSuppliedContextOverPlaceholder(t *testing.T) {
	t.Parallel()
	out := prompt.Build(prompt.Vars{Template: "{context}", Context: "prior conversation summary"})
	require.Equal(t, "prior conversation summary", out)
}

func TestBuildIncludeFieldsFiltersScratchpadLines(t *testing.T) {
	t.Parallel()
	steps := []scratchpad.Step{{Thought: "t", Action: "a", ActionInput: "i", Observation: "o"}}

	out := prompt.Build(prompt.Vars{
		Template:      "{agent_scratchpad}",
		Scratchpad:    steps,
		IncludeFields: prompt.IncludeFields{Observation: true},
	})
	require.NotContains(t, out, "Thought:")
	require.NotContains(t, out, "Action:")
	require.Contains(t, out, "Observation: o")
}

func TestIndentMarkdownIndentsStructuralLinesOnly(t *testing.T) {
	t.Parallel()
	in := "plain line\n# heading\n- item\n1. numbered\n> quote\n```\ncode\n```\nanother plain line"
	out := prompt.IndentMarkdown(in)

	lines := []string{
		"plain line",
		"    # heading",
		"    - item",
		"    1. numbered",
		"    > quote",
		"    ```",
		"code",
		"    ```",
		"another plain line",
	}
	require.Equal(t, lines, splitLines(out))
}

func splitLines(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	out = append(out, s[start:])
	return out
}
