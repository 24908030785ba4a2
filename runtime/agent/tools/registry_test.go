package tools_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/orchestra-ai/agentcore/runtime/agent/tools"
)

func noopInvoke(context.Context, map[string]any) (tools.Result, error) { return tools.Result{}, nil }

func TestRegisterRejectsDuplicateNames(t *testing.T) {
	t.Parallel()

	r := tools.NewRegistry()
	require.NoError(t, r.Register(&tools.Descriptor{Name: "search", Invoke: noopInvoke}))
	err := r.Register(&tools.Descriptor{Name: "search", Invoke: noopInvoke})
	require.Error(t, err)
}

func TestGetReturnsRegisteredDescriptor(t *testing.T) {
	t.Parallel()

	r := tools.NewRegistry()
	require.NoError(t, r.Register(&tools.Descriptor{Name: "search", Description: "web search", Invoke: noopInvoke}))

	d, ok := r.Get("search")
	require.True(t, ok)
	require.Equal(t, "web search", d.Description)

	_, ok = r.Get("missing")
	require.False(t, ok)
}

func TestNamesAndToolNamesAreSorted(t *testing.T) {
	t.Parallel()

	r := tools.NewRegistry()
	require.NoError(t, r.Register(&tools.Descriptor{Name: "zeta", Invoke: noopInvoke}))
	require.NoError(t, r.Register(&tools.Descriptor{Name: "alpha", Invoke: noopInvoke}))

	require.Equal(t, []string{"alpha", "zeta"}, r.Names())
	require.Equal(t, "alpha, zeta", r.ToolNames())
}

func TestSetMemoryOverwritesAndInvalidatesDescriptionsCache(t *testing.T) {
	t.Parallel()

	r := tools.NewRegistry()
	require.NoError(t, r.Register(&tools.Descriptor{Name: "search", Description: "web search", Invoke: noopInvoke}))

	before := r.Descriptions()
	require.NotContains(t, before, "Usage guidance")

	r.SetMemory("search", "prefer concise queries")
	after := r.Descriptions()
	require.Contains(t, after, "Usage guidance: prefer concise queries")
}

func TestDescriptionsCachedUntilRegistryChanges(t *testing.T) {
	t.Parallel()

	r := tools.NewRegistry()
	require.NoError(t, r.Register(&tools.Descriptor{Name: "search", Description: "web search", Invoke: noopInvoke}))

	first := r.Descriptions()
	require.NoError(t, r.Register(&tools.Descriptor{Name: "crawl", Description: "crawl a url", Invoke: noopInvoke}))
	second := r.Descriptions()

	require.NotEqual(t, first, second)
	require.Contains(t, second, "crawl a url")
}

func TestSchemaCompilesRequiredParamsAndValidates(t *testing.T) {
	t.Parallel()

	r := tools.NewRegistry()
	require.NoError(t, r.Register(&tools.Descriptor{
		Name: "search",
		Params: map[string]tools.ParamSpec{
			"query": {Type: tools.ParamString, Required: true},
		},
		Invoke: noopInvoke,
	}))

	schema := r.Schema("search")
	require.NotNil(t, schema)
	require.Error(t, schema.Validate(map[string]any{}))
	require.NoError(t, schema.Validate(map[string]any{"query": "paris"}))
}

func TestSchemaNilForToolWithNoParams(t *testing.T) {
	t.Parallel()

	r := tools.NewRegistry()
	require.NoError(t, r.Register(&tools.Descriptor{Name: "final_answer", Invoke: noopInvoke}))
	require.Nil(t, r.Schema("final_answer"))
}
