package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/orchestra-ai/agentcore/runtime/agent/model"
	"github.com/orchestra-ai/agentcore/runtime/agent/telemetry"
)

// MemoryStore is the KVS-backed read/write surface the Tool Memory Manager
// needs: one string per (user, tool) pair, falling back to a global
// per-tool key when the call is unscoped (spec §4.5, §6 key table).
type MemoryStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// MemoryManager maintains a compact, monotonically-improving "usage
// guidance" string per (user, tool) pair (spec §4.5 Tool Memory Manager).
type MemoryManager struct {
	Store   MemoryStore
	Model   model.Client
	Analyst string // model name used for the analysis pass
	Logger  telemetry.Logger
}

const maxMemoryChars = 500

// UpdateInput carries everything the analysis prompt needs (spec §4.5 step 2).
type UpdateInput struct {
	ToolName     Ident
	Success      bool
	ParamTypes   map[string]ParamType
	UserQuery    string
	Observation  string
	ErrorMessage string
	UserName     string // empty => global/unscoped memory
	ConvID       string
}

// Update runs one learning cycle: load, analyze, write (spec §4.5 Update
// cycle). It is meant to be invoked fire-and-forget from a goroutine after a
// tool call completes (spec §4.2 "Post-execution learning"); any failure is
// logged and otherwise swallowed since memory is strictly advisory.
func (m *MemoryManager) Update(ctx context.Context, in UpdateInput) {
	key := memoryKey(in.UserName, in.ToolName)
	prior, _, err := m.Store.Get(ctx, key)
	if err != nil && m.Logger != nil {
		m.Logger.Warn(ctx, "tool memory: load failed", "tool", in.ToolName, "err", err)
	}

	prompt := buildAnalysisPrompt(in, prior)
	text, _, err := m.Model.Call(ctx, []model.Message{
		{Role: model.RoleSystem, Content: "You maintain a short usage-guidance note for a tool based on its latest call."},
		{Role: model.RoleUser, Content: prompt},
	}, m.Analyst)
	if err != nil {
		if m.Logger != nil {
			m.Logger.Warn(ctx, "tool memory: analysis call failed", "tool", in.ToolName, "err", err)
		}
		return
	}

	cleaned := cleanMemoryText(text)
	if err := m.Store.Set(ctx, key, cleaned); err != nil && m.Logger != nil {
		m.Logger.Warn(ctx, "tool memory: write failed", "tool", in.ToolName, "err", err)
	}
}

// Read returns the learned guidance for (user, tool), preferring the
// user-scoped key and falling back to the global key (spec §4.5 Read path).
func (m *MemoryManager) Read(ctx context.Context, userName string, tool Ident) (string, bool) {
	if userName != "" {
		if v, ok, _ := m.Store.Get(ctx, memoryKey(userName, tool)); ok {
			return v, true
		}
	}
	if v, ok, _ := m.Store.Get(ctx, memoryKey("", tool)); ok {
		return v, true
	}
	return "", false
}

func memoryKey(userName string, tool Ident) string {
	if userName == "" {
		return fmt.Sprintf("tool_memory:%s", tool)
	}
	return fmt.Sprintf("tool_memory:%s:%s", userName, tool)
}

func buildAnalysisPrompt(in UpdateInput, prior string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Tool: %s\n", in.ToolName)
	status := "success"
	if !in.Success {
		status = "failure"
	}
	fmt.Fprintf(&b, "Last status: %s\n", status)
	if len(in.ParamTypes) > 0 {
		fmt.Fprintf(&b, "Declared parameter types: %v\n", in.ParamTypes)
	}
	fmt.Fprintf(&b, "User query: %s\n", in.UserQuery)
	fmt.Fprintf(&b, "Observation (truncated): %s\n", truncate(in.Observation, 400))
	if prior != "" {
		fmt.Fprintf(&b, "Prior guidance: %s\n", prior)
	}
	if in.ErrorMessage != "" {
		fmt.Fprintf(&b, "Error: %s\n", in.ErrorMessage)
	}
	b.WriteString("Produce an updated, concise usage-guidance note for this tool.")
	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// cleanMemoryText strips Markdown fences/bold markers and hard-caps length
// (spec §4.5 step 3).
func cleanMemoryText(text string) string {
	t := strings.TrimSpace(text)
	t = strings.ReplaceAll(t, "```", "")
	t = strings.ReplaceAll(t, "**", "")
	if len(t) > maxMemoryChars {
		t = t[:maxMemoryChars]
	}
	return strings.TrimSpace(t)
}
