// Package config loads the declarative, YAML-shaped team configuration
// described in spec §6 "Configuration surface" and resolves it into the
// concrete values engine.Config, team.Config, and termination.Condition
// expect.
package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/orchestra-ai/agentcore/runtime/agent/termination"
)

// TerminationTag is one tagged termination-condition entry in YAML, e.g.
// `{type: step_limit, max_iterations: 10}` or a nested composite (spec §6:
// "termination conditions (list of tagged variants with parameters)").
type TerminationTag struct {
	Type          string           `yaml:"type"`
	MaxIterations int              `yaml:"max_iterations,omitempty"`
	Names         []string         `yaml:"names,omitempty"`
	Pattern       string           `yaml:"pattern,omitempty"`
	Seconds       int              `yaml:"seconds,omitempty"`
	Max           int              `yaml:"max,omitempty"`
	Mode          string           `yaml:"mode,omitempty"`
	Conditions    []TerminationTag `yaml:"conditions,omitempty"`
}

// Resolve converts a tagged YAML entry into a concrete termination.Condition.
func (t TerminationTag) Resolve() (termination.Condition, error) {
	switch t.Type {
	case "step_limit":
		return termination.StepLimit{MaxIterations: t.MaxIterations}, nil
	case "tool_name":
		return termination.ToolName{Names: t.Names}, nil
	case "text_match":
		return termination.TextMatch{Substring: t.Pattern}, nil
	case "timeout":
		// The seconds value becomes an iteration span; no wall-clock time
		// is measured.
		return termination.Timeout{MaxStepSpan: t.Seconds}, nil
	case "error_count":
		return &termination.ErrorCount{Max: t.Max}, nil
	case "composite":
		members := make([]termination.Condition, 0, len(t.Conditions))
		for _, c := range t.Conditions {
			m, err := c.Resolve()
			if err != nil {
				return nil, err
			}
			members = append(members, m)
		}
		mode := termination.ModeAny
		if t.Mode == "all" {
			mode = termination.ModeAll
		}
		return termination.Composite{Mode: mode, Members: members}, nil
	default:
		return nil, fmt.Errorf("config: unknown termination condition type %q", t.Type)
	}
}

// RoleConfig is one role's agent-configuration block (spec §6 "per-role
// block with tools (by name), prompt template (by symbol), model name,
// termination conditions (list of tagged variants with parameters), max
// iterations, LLM timeout, descriptions").
type RoleConfig struct {
	Tools                      []string         `yaml:"tools"`
	PromptTemplate             string           `yaml:"prompt_template"` // symbol, resolved via Templates
	ModelName                  string           `yaml:"model_name"`
	ReasonerModelName          string           `yaml:"reasoner_model_name,omitempty"`
	TerminationConditions      []TerminationTag `yaml:"termination_conditions"`
	MaxIterations              int              `yaml:"max_iterations"`
	LLMTimeoutSeconds          float64          `yaml:"llm_timeout_seconds"`
	IterationRetryDelaySeconds float64          `yaml:"iteration_retry_delay_seconds"`
	ScratchpadMemorySize       int              `yaml:"scratchpad_memory_size"`
	RoleDescription            string           `yaml:"role_description"`
	AgentDescription           string           `yaml:"agent_description"`
	ToolMemoryEnabled          bool             `yaml:"tool_memory_enabled"`
}

// TeamConfig is the full declarative team configuration (spec §6, §4.12
// "Construction inputs").
type TeamConfig struct {
	TeamRules  string                `yaml:"team_rules"`
	StartRole  string                `yaml:"start_role"`
	ConvID     string                `yaml:"conversation_id"`
	RoundLimit int                   `yaml:"round_limit"`
	UserName   string                `yaml:"user_name,omitempty"`
	Roles      map[string]RoleConfig `yaml:"roles"`
}

// Parse decodes raw YAML bytes into a TeamConfig.
func Parse(data []byte) (*TeamConfig, error) {
	var tc TeamConfig
	if err := yaml.Unmarshal(data, &tc); err != nil {
		return nil, fmt.Errorf("config: parse team config: %w", err)
	}
	if tc.StartRole == "" {
		return nil, fmt.Errorf("config: team config missing start_role")
	}
	if _, ok := tc.Roles[tc.StartRole]; !ok {
		return nil, fmt.Errorf("config: start_role %q has no role block", tc.StartRole)
	}
	return &tc, nil
}

// Templates resolves prompt-template symbols to literal template strings
// (spec §6: "prompt template (by symbol)"; "The orchestrator resolves
// prompt templates ... to concrete values at load time").
type Templates map[string]string

// ResolvePromptTemplate looks up symbol in templates, erroring if absent.
func ResolvePromptTemplate(templates Templates, symbol string) (string, error) {
	t, ok := templates[symbol]
	if !ok {
		return "", fmt.Errorf("config: unknown prompt template symbol %q", symbol)
	}
	return t, nil
}

// LLMTimeout converts the role's LLMTimeoutSeconds into a time.Duration.
func (r RoleConfig) LLMTimeout() time.Duration {
	return time.Duration(r.LLMTimeoutSeconds * float64(time.Second))
}

// IterationRetryDelay converts the role's IterationRetryDelaySeconds into a
// time.Duration.
func (r RoleConfig) IterationRetryDelay() time.Duration {
	return time.Duration(r.IterationRetryDelaySeconds * float64(time.Second))
}

// ResolveTerminationConditions resolves every tagged entry in r, appending
// a default StepLimit if the config omitted one (spec §4.8).
func (r RoleConfig) ResolveTerminationConditions() ([]termination.Condition, error) {
	conditions := make([]termination.Condition, 0, len(r.TerminationConditions))
	for _, t := range r.TerminationConditions {
		c, err := t.Resolve()
		if err != nil {
			return nil, err
		}
		conditions = append(conditions, c)
	}
	return termination.WithDefaultStepLimit(conditions, r.MaxIterations), nil
}
