package tools_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/orchestra-ai/agentcore/runtime/agent/tools"
)

func TestFullDescriptionListsParametersSorted(t *testing.T) {
	t.Parallel()

	d := &tools.Descriptor{
		Name:        "search",
		Description: "search the web",
		Params: map[string]tools.ParamSpec{
			"query": {Type: tools.ParamString, Required: true, Description: "search terms"},
			"limit": {Type: tools.ParamInt, Description: "max results"},
		},
	}

	got := d.FullDescription()
	require.Contains(t, got, "search: search the web")
	require.Contains(t, got, "limit (int, optional): max results")
	require.Contains(t, got, "query (string, required): search terms")
	// Parameters are sorted, so "limit" precedes "query".
	require.Less(t, indexOf(got, "limit"), indexOf(got, "query"))
}

func TestFullDescriptionOmitsParametersBlockWhenEmpty(t *testing.T) {
	t.Parallel()
	d := &tools.Descriptor{Name: "final_answer", Description: "signal completion"}
	require.NotContains(t, d.FullDescription(), "Parameters:")
}

func TestFullDescriptionIncludesUsageGuidanceWhenSet(t *testing.T) {
	t.Parallel()
	d := &tools.Descriptor{Name: "search", Description: "search the web", Memory: "prefer concise queries"}
	require.Contains(t, d.FullDescription(), "Usage guidance: prefer concise queries")
}

func TestFullDescriptionOmitsUsageGuidanceWhenEmpty(t *testing.T) {
	t.Parallel()
	d := &tools.Descriptor{Name: "search", Description: "search the web"}
	require.NotContains(t, d.FullDescription(), "Usage guidance")
}

func indexOf(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}
