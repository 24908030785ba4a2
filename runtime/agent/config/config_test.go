package config_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/orchestra-ai/agentcore/runtime/agent/config"
	"github.com/orchestra-ai/agentcore/runtime/agent/termination"
)

const sampleYAML = `
team_rules: "planner always delegates research"
start_role: planner
conversation_id: conv-1
round_limit: 10
user_name: alice
roles:
  planner:
    tools: [handoff, final_answer]
    prompt_template: planner_template
    model_name: claude-3-5-sonnet-20241022
    max_iterations: 8
    llm_timeout_seconds: 30
    iteration_retry_delay_seconds: 1
    scratchpad_memory_size: 20
    role_description: "breaks down the task"
    termination_conditions:
      - type: composite
        mode: any
        conditions:
          - type: tool_name
            names: [final_answer]
          - type: step_limit
            max_iterations: 8
  researcher:
    tools: [final_answer]
    prompt_template: researcher_template
    model_name: claude-3-5-sonnet-20241022
    max_iterations: 5
`

func TestParseValidConfig(t *testing.T) {
	t.Parallel()

	tc, err := config.Parse([]byte(sampleYAML))
	require.NoError(t, err)
	require.Equal(t, "planner", tc.StartRole)
	require.Equal(t, 10, tc.RoundLimit)
	require.Len(t, tc.Roles, 2)

	planner := tc.Roles["planner"]
	require.Equal(t, []string{"handoff", "final_answer"}, planner.Tools)
	require.Equal(t, "planner_template", planner.PromptTemplate)
}

func TestParseMissingStartRoleErrors(t *testing.T) {
	t.Parallel()
	_, err := config.Parse([]byte("roles:\n  planner:\n    model_name: m\n"))
	require.Error(t, err)
}

func TestParseStartRoleNotInRolesErrors(t *testing.T) {
	t.Parallel()
	_, err := config.Parse([]byte("start_role: ghost\nroles:\n  planner:\n    model_name: m\n"))
	require.Error(t, err)
}

func TestResolveTerminationConditionsAppendsDefaultStepLimit(t *testing.T) {
	t.Parallel()
	rc := config.RoleConfig{MaxIterations: 6}
	conds, err := rc.ResolveTerminationConditions()
	require.NoError(t, err)
	require.Len(t, conds, 1)
	require.Equal(t, termination.StepLimit{MaxIterations: 6}, conds[0])
}

func TestResolveTerminationConditionsNestedComposite(t *testing.T) {
	t.Parallel()

	tc, err := config.Parse([]byte(sampleYAML))
	require.NoError(t, err)
	conds, err := tc.Roles["planner"].ResolveTerminationConditions()
	require.NoError(t, err)
	require.Len(t, conds, 1) // composite already contains a step_limit, no default appended

	comp, ok := conds[0].(termination.Composite)
	require.True(t, ok)
	require.Equal(t, termination.ModeAny, comp.Mode)
	require.Len(t, comp.Members, 2)
}

func TestTerminationTagUnknownTypeErrors(t *testing.T) {
	t.Parallel()
	tag := config.TerminationTag{Type: "nonsense"}
	_, err := tag.Resolve()
	require.Error(t, err)
}

func TestDurationHelpers(t *testing.T) {
	t.Parallel()
	rc := config.RoleConfig{LLMTimeoutSeconds: 2.5, IterationRetryDelaySeconds: 0.5}
	require.Equal(t, 2500_000_000, int(rc.LLMTimeout()))
	require.Equal(t, 500_000_000, int(rc.IterationRetryDelay()))
}

func TestResolvePromptTemplate(t *testing.T) {
	t.Parallel()
	templates := config.Templates{"planner_template": "You are the planner. {query}"}
	v, err := config.ResolvePromptTemplate(templates, "planner_template")
	require.NoError(t, err)
	require.Equal(t, "You are the planner. {query}", v)

	_, err = config.ResolvePromptTemplate(templates, "missing")
	require.Error(t, err)
}
