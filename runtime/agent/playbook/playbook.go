// Package playbook regenerates a conversation-scoped planning note after
// every scratchpad step (spec §4.7 Playbook Generator).
package playbook

import (
	"context"
	"fmt"
	"time"

	"github.com/orchestra-ai/agentcore/runtime/agent/model"
	"github.com/orchestra-ai/agentcore/runtime/agent/stream"
	"github.com/orchestra-ai/agentcore/runtime/agent/telemetry"
)

// Store is the KVS-backed surface the generator persists to (spec §4.7
// "Persist it to KVS"; satisfied by kvs.PlaybookStore).
type Store interface {
	Get(ctx context.Context, convID string) (string, error)
	Set(ctx context.Context, convID, playbook string) error
}

// Generator regenerates the playbook after each scratchpad append (spec
// §4.7).
type Generator struct {
	Store     Store
	Model     model.Client
	ModelName string
	Sink      stream.Sink
	Logger    telemetry.Logger
}

const playbookPromptTemplate = `User query: %s

Current time: %s

Previous playbook:
%s

Latest step:
%s

Produce an updated, concise plan (the "playbook") that reflects progress so
far and what remains. Respond with the playbook text only.`

// Regenerate composes the analysis prompt from (user_query, last_playbook,
// step_text, current_time), calls the model, and on success persists the
// new playbook and emits a playbook_update event (spec §4.7). On any
// failure it logs and leaves the stored playbook untouched.
func (g *Generator) Regenerate(ctx context.Context, chatID, convID, userQuery, stepText string) {
	last, err := g.Store.Get(ctx, convID)
	if err != nil {
		if g.Logger != nil {
			g.Logger.Warn(ctx, "playbook: load failed", "conv_id", convID, "err", err)
		}
		return
	}

	prompt := fmt.Sprintf(playbookPromptTemplate, userQuery, time.Now().UTC().Format(time.RFC3339), last, stepText)
	text, _, err := g.Model.Call(ctx, []model.Message{
		{Role: model.RoleSystem, Content: "You maintain a short rolling plan for an in-progress task."},
		{Role: model.RoleUser, Content: prompt},
	}, g.ModelName)
	if err != nil {
		if g.Logger != nil {
			g.Logger.Warn(ctx, "playbook: generation failed", "conv_id", convID, "err", err)
		}
		return
	}

	if err := g.Store.Set(ctx, convID, text); err != nil {
		if g.Logger != nil {
			g.Logger.Warn(ctx, "playbook: write failed", "conv_id", convID, "err", err)
		}
		return
	}

	if g.Sink != nil {
		_ = g.Sink.Send(ctx, chatID, stream.NewEvent(stream.EventPlaybookUpdate, chatID, "", "", map[string]any{
			"conv_id":  convID,
			"playbook": text,
		}))
	}
}

// EnsureInitial regenerates the playbook once before the first iteration if
// none exists yet (spec §4.7: "once before the first iteration with an
// empty playbook").
func (g *Generator) EnsureInitial(ctx context.Context, chatID, convID, userQuery string) {
	existing, err := g.Store.Get(ctx, convID)
	if err != nil || existing != "" {
		return
	}
	g.Regenerate(ctx, chatID, convID, userQuery, "(run starting)")
}
