// Package team implements the Team Orchestrator: builds a fixed set of
// role-tagged agents from a declarative configuration, starts their
// listeners, and seeds the initial task to a designated start role (spec
// §4.12 Team Orchestrator).
package team

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/orchestra-ai/agentcore/runtime/agent/engine"
	"github.com/orchestra-ai/agentcore/runtime/agent/queue"
	"github.com/orchestra-ai/agentcore/runtime/agent/telemetry"
)

// RoleDescription names and describes one role for the team-description
// string prepended to every agent's instructions (spec §4.12 step 1).
type RoleDescription struct {
	Role        string
	Description string
}

// Member pairs an engine.Agent with its listener.
type Member struct {
	Agent    *engine.Agent
	Listener *queue.Listener
}

// Config are the Team Orchestrator's construction inputs (spec §4.12
// "Construction inputs").
type Config struct {
	Roles      []RoleDescription
	TeamRules  string
	StartRole  string
	ChatID     string
	RoundLimit int
	UserName   string
}

// Orchestrator builds and runs one team session (spec §4.12).
type Orchestrator struct {
	cfg     Config
	bus     *queue.Bus
	logger  telemetry.Logger
	members map[string]*Member // keyed by role; most recently added agent per role

	mu sync.Mutex
}

// New constructs an Orchestrator. Callers populate members via AddMember
// before calling Run, one per role named in cfg.Roles (spec §4.12 step 2:
// "Instantiate one agent per role").
func New(cfg Config, bus *queue.Bus, logger telemetry.Logger) *Orchestrator {
	return &Orchestrator{cfg: cfg, bus: bus, logger: logger, members: make(map[string]*Member)}
}

// TeamDescription composes the team-description string listing all roles
// with their descriptions, including team rules (spec §4.12 step 1).
func (o *Orchestrator) TeamDescription() string {
	sorted := append([]RoleDescription(nil), o.cfg.Roles...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Role < sorted[j].Role })
	var b strings.Builder
	b.WriteString("Team roles:\n")
	for _, r := range sorted {
		fmt.Fprintf(&b, "- %s: %s\n", r.Role, r.Description)
	}
	if o.cfg.TeamRules != "" {
		fmt.Fprintf(&b, "\nTeam rules:\n%s\n", o.cfg.TeamRules)
	}
	return b.String()
}

// AddMember registers an already-constructed agent for role (spec §4.12
// step 2-3: instantiation happens in the config loader, which knows how to
// build an engine.Agent from a role block; the orchestrator only wires
// listeners and registries).
func (o *Orchestrator) AddMember(ctx context.Context, role string, agent *engine.Agent) error {
	role = canonicalRole(role)
	listener := queue.NewListener(o.bus, agent, o.logger)
	listener.Start(ctx)

	if err := o.bus.RegisterAgent(ctx, role, agent.ID(), o.cfg.ChatID); err != nil {
		return fmt.Errorf("team: register agent for role %s: %w", role, err)
	}

	o.mu.Lock()
	o.members[role] = &Member{Agent: agent, Listener: listener}
	o.mu.Unlock()
	return nil
}

// canonicalRole normalizes a role label so lookups are insensitive to
// casing (spec §9 open question: "planner" vs "Planner" is not normalized
// everywhere in the source; this port canonicalizes at every edge that
// keys a role-addressed map or queue).
func canonicalRole(role string) string {
	return strings.ToLower(strings.TrimSpace(role))
}

// Run synchronously invokes the start role's agent and returns its result,
// or ("", false, nil) if the start agent issues a handoff and the team
// becomes asynchronous (spec §4.12 step 4).
func (o *Orchestrator) Run(ctx context.Context, query string, streamEvents bool) (string, bool, error) {
	o.mu.Lock()
	start, ok := o.members[canonicalRole(o.cfg.StartRole)]
	o.mu.Unlock()
	if !ok {
		return "", false, fmt.Errorf("team: no agent registered for start role %q", o.cfg.StartRole)
	}
	return start.Agent.Run(ctx, query, o.cfg.ChatID, streamEvents, false, nil)
}

// Stop sets the stop flag on every member, which causes their listeners to
// exit (spec §4.12 step 5).
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()
	for role, m := range o.members {
		m.Agent.Stop()
		m.Listener.Stop()
		_ = o.bus.DeregisterAgent(context.Background(), role, m.Agent.ID())
	}
}

// Member returns the registered member for role, if any.
func (o *Orchestrator) Member(role string) (*Member, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	m, ok := o.members[canonicalRole(role)]
	return m, ok
}
