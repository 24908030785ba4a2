// Package engine implements the Agent Core ReAct loop: a bounded-iteration
// state machine that alternates model calls, response parsing, and tool
// invocation, accumulating a scratchpad and checking termination conditions
// at every iteration boundary (spec §4.1 Agent Core).
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/orchestra-ai/agentcore/runtime/agent/interrupt"
	"github.com/orchestra-ai/agentcore/runtime/agent/kvs"
	"github.com/orchestra-ai/agentcore/runtime/agent/model"
	"github.com/orchestra-ai/agentcore/runtime/agent/parser"
	"github.com/orchestra-ai/agentcore/runtime/agent/playbook"
	"github.com/orchestra-ai/agentcore/runtime/agent/prompt"
	"github.com/orchestra-ai/agentcore/runtime/agent/scratchpad"
	"github.com/orchestra-ai/agentcore/runtime/agent/stream"
	"github.com/orchestra-ai/agentcore/runtime/agent/telemetry"
	"github.com/orchestra-ai/agentcore/runtime/agent/termination"
	"github.com/orchestra-ai/agentcore/runtime/agent/toolerrors"
	"github.com/orchestra-ai/agentcore/runtime/agent/tools"
)

// Card is an agent's descriptive identity (spec §3 "Agent identity": "a
// descriptive card (name, description, model name, tags)").
type Card struct {
	Name        string
	Description string
	ModelName   string
	Tags        []string
}

// Config holds the per-agent construction parameters (spec §3 "Agent
// identity" configuration fields).
type Config struct {
	AgentID               string // randomly assigned if empty
	Role                  string
	Card                  Card
	ReasonerModelName     string // optional
	PromptTemplate        string
	Instructions          string
	MaxIterations         int
	IterationRetryDelay   time.Duration
	LLMTimeout            time.Duration
	ScratchpadMemorySize  int
	TerminationConditions []termination.Condition
	ToolMemoryEnabled     bool
	IncludeFields         prompt.IncludeFields
	UserName              string // scopes tool-memory lookups; empty uses the global guidance
}

// Deps bundles every external collaborator the loop depends on (spec §2
// system overview: Model Client, Tool Registry, Tool Memory Manager,
// Response Parser, Playbook Generator, Scratchpad & Conversation Store,
// Stream Bus, KVS).
type Deps struct {
	Model        model.Client
	Tools        *tools.ExecutionPolicy
	ToolRegistry *tools.Registry
	Parser       *parser.Parser
	Playbook     *playbook.Generator
	Conversation *kvs.ConversationStore
	Sink         stream.Sink
	Telemetry    telemetry.Bundle
	HandoffQueue HandoffPublisher
	Memory       *tools.MemoryManager
	// Interrupts backs wait_for_user_input/set_user_input (spec §4.1); nil
	// means interactive tools that call WaitForUserInput will error instead
	// of blocking.
	Interrupts *interrupt.Registry
}

// HandoffPublisher is the narrow surface the loop needs from the queue
// package to implement the handoff tool's effects without importing it
// directly (spec §4.9 Handoff Protocol steps 1-2). It keeps engine free of a
// queue import; *queue.Bus satisfies it.
type HandoffPublisher interface {
	PublishTask(ctx context.Context, targetRole string, senderID, senderRole, chatID string, task, description string, taskContext map[string]any) error
}

// Agent is one ReAct loop instance (spec §4.1 Agent Core).
type Agent struct {
	cfg  Config
	deps Deps

	mu         sync.Mutex
	scratchpad []scratchpad.Step
	convID     string // == chat_id for the lifetime of a run, set by Run

	stopped atomic.Bool
}

// New constructs an Agent, assigning a random agent_id if cfg.AgentID is
// empty (spec §3: "agent_id (randomly assigned at construction)").
func New(cfg Config, deps Deps) *Agent {
	if cfg.AgentID == "" {
		cfg.AgentID = uuid.NewString()
	}
	return &Agent{cfg: cfg, deps: deps}
}

// ID returns the agent's stable identifier.
func (a *Agent) ID() string { return a.cfg.AgentID }

// Role returns the agent's role value.
func (a *Agent) Role() string { return a.cfg.Role }

// Stop sets the stop flag observed at the next iteration boundary (spec
// §4.1 "stop()"). Unregistering from role_agents and cancelling the
// listener are the caller's (queue.Listener's) responsibility since Agent
// itself has no queue dependency.
func (a *Agent) Stop() {
	a.stopped.Store(true)
}

// ClearContext empties the in-memory scratchpad (spec §4.1 "clear_context()").
func (a *Agent) ClearContext() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.scratchpad = nil
}

// Scratchpad returns a snapshot of the current in-memory scratchpad.
func (a *Agent) Scratchpad() []scratchpad.Step {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]scratchpad.Step, len(a.scratchpad))
	copy(out, a.scratchpad)
	return out
}

// WaitForUserInput blocks until a matching SetUserInput call resolves
// nodeID, or ctx is canceled (spec §4.1 "wait_for_user_input(node_id,
// prompt, chat_id, input_type, agent_id)"). Intended to be called from a
// user_input tool's Invoke implementation.
func (a *Agent) WaitForUserInput(ctx context.Context, nodeID, prompt, chatID, inputType string) (string, error) {
	if a.deps.Interrupts == nil {
		return "", fmt.Errorf("engine: agent %s has no interrupt registry configured", a.cfg.AgentID)
	}
	return a.deps.Interrupts.Wait(ctx, interrupt.Request{
		NodeID:    nodeID,
		Prompt:    prompt,
		ChatID:    chatID,
		InputType: inputType,
		AgentID:   a.cfg.AgentID,
	})
}

// SetUserInput resumes the wait_for_user_input call blocked on nodeID with
// value (spec §4.1 "set_user_input(node_id, value)"). Returns false if no
// call is currently waiting on nodeID.
func (a *Agent) SetUserInput(nodeID, value string) bool {
	if a.deps.Interrupts == nil {
		return false
	}
	return a.deps.Interrupts.Set(nodeID, value)
}

func (a *Agent) appendStep(s scratchpad.Step) {
	a.mu.Lock()
	a.scratchpad = append(a.scratchpad, s)
	a.mu.Unlock()
}

// Run executes the loop to completion (spec §4.1 "run(query, chat_id,
// stream, is_result, context) → final_answer | null"). isResult=true means
// the caller is resuming after a handoff reply: no new origin item is
// created. Returns ("", false, nil) when the loop exits via a handoff —
// the answer arrives asynchronously through another agent.
func (a *Agent) Run(ctx context.Context, query, chatID string, streamEvents, isResult bool, runContext map[string]any) (answer string, ok bool, err error) {
	a.convID = chatID
	a.stopped.Store(false)

	if !isResult {
		a.appendStep(scratchpad.NewOrigin(query, a.cfg.Role))
	}

	if a.deps.Playbook != nil {
		a.deps.Playbook.EnsureInitial(ctx, chatID, chatID, query)
	}

	// conditions holds the configured termination conditions (spec §4.8);
	// config.ResolveTerminationConditions may already have appended a
	// StepLimit of MaxIterations. The implicit iteration budget
	// (a.cfg.MaxIterations) is checked before these conditions at every step,
	// so exhausting it is fatal even when such a StepLimit is present (spec
	// §4.1 "Iteration budget").
	conditions := a.cfg.TerminationConditions
	var errCount int

	for step := 0; ; step++ {
		if a.stopped.Load() {
			a.emit(ctx, chatID, streamEvents, stream.EventAgentComplete, map[string]any{"answer": "已停止"})
			return "", false, nil
		}

		// The implicit iteration budget is checked before any explicitly
		// configured condition: exhausting it without an explicit match (or
		// a final_answer) is fatal, never a graceful exit (spec §8 scenario
		// 6, Testable Properties).
		if step >= a.cfg.MaxIterations {
			ferr := toolerrors.NewFatalAgentError(a.cfg.AgentID, step)
			a.emit(ctx, chatID, streamEvents, stream.EventAgentError, map[string]any{"error": ferr.Error()})
			return "", false, ferr
		}

		termCtx := a.termContext(step, errCount > 0)
		if stopCond(conditions, termCtx) {
			latest := a.latestObservation()
			a.emit(ctx, chatID, streamEvents, stream.EventAgentComplete, map[string]any{"answer": latest})
			return latest, true, nil
		}

		if a.cfg.ToolMemoryEnabled && a.deps.ToolRegistry != nil {
			a.refreshToolMemory(ctx)
		}

		p := a.buildPrompt(ctx, query, step)

		llmCtx, cancel := context.WithTimeout(ctx, a.cfg.LLMTimeout)
		var text string
		var callErr error
		callModel := func(spanCtx context.Context) error {
			var cErr error
			text, _, cErr = a.deps.Model.Call(spanCtx, []model.Message{
				{Role: model.RoleSystem, Content: a.cfg.Instructions},
				{Role: model.RoleUser, Content: p},
			}, a.cfg.Card.ModelName)
			callErr = cErr
			return cErr
		}
		if a.deps.Telemetry.Tracer != nil {
			_ = telemetry.WrapSpan(llmCtx, a.deps.Telemetry.Tracer, "agent.call_model[${context.role}]",
				map[string]any{"role": a.cfg.Role, "agent_id": a.cfg.AgentID, "step": step}, callModel)
		} else {
			callModel(llmCtx)
		}
		cancel()

		if callErr != nil {
			if bad, isBad := asActionBad(callErr); isBad {
				a.emit(ctx, chatID, streamEvents, stream.EventAgentComplete, map[string]any{"answer": bad})
				return bad, true, nil
			}
			if llmCtx.Err() == context.DeadlineExceeded {
				a.logWarn(ctx, "engine: model call timed out", "agent_id", a.cfg.AgentID, "step", step)
				a.sleep(ctx, a.cfg.IterationRetryDelay)
				continue
			}
			errCount++
			a.appendStep(scratchpad.Step{Observation: callErr.Error(), Role: a.cfg.Role})
			a.sleep(ctx, a.cfg.IterationRetryDelay)
			continue
		}

		result := a.deps.Parser.Parse(ctx, text)
		a.emit(ctx, chatID, streamEvents, stream.EventAgentThinking, map[string]any{"thought": result.Thinking})

		if result.Tool.Name == parser.FinalAnswerTool {
			answerText := fmt.Sprint(result.Tool.Params)
			a.invokeFinalAnswerSentinel(ctx, answerText)
			if a.deps.Playbook != nil {
				a.deps.Playbook.Regenerate(ctx, chatID, chatID, query, answerText)
			}
			a.emit(ctx, chatID, streamEvents, stream.EventAgentComplete, map[string]any{
				"answer":    answerText,
				"synthetic": result.Synthetic,
			})
			return answerText, true, nil
		}

		if result.Tool.Name == handoffToolName {
			a.doHandoff(ctx, chatID, result)
			return "", false, nil
		}

		d, found := a.deps.ToolRegistry.Get(tools.Ident(result.Tool.Name))
		if !found {
			errCount++
			notFound := toolerrors.NewToolNotFound(result.Tool.Name)
			a.appendStep(scratchpad.Step{
				Thought:     result.Thinking,
				Action:      result.Tool.Name,
				ActionInput: scratchpad.StringifyActionInput(result.Tool.Params),
				Observation: notFound.Error(),
				Role:        a.cfg.Role,
			})
			a.sleep(ctx, a.cfg.IterationRetryDelay)
			continue
		}

		params := a.mergeImplicitParams(d, result.Tool.Params, chatID, a.cfg.AgentID, a.cfg.Role)
		execID := uuid.NewString()
		res, execErr := a.deps.Tools.Execute(ctx, chatID, a.cfg.AgentID, a.cfg.Role, d.Name, params)
		if execErr != nil {
			errCount++
			a.appendStep(scratchpad.Step{
				Thought:         result.Thinking,
				Action:          result.Tool.Name,
				ActionInput:     scratchpad.StringifyActionInput(params),
				Observation:     execErr.Error(),
				ToolExecutionID: execID,
				Role:            a.cfg.Role,
			})
			a.persistToolCall(ctx, chatID, result.Thinking, result.Tool.Name, params, execErr.Error(), execID)
			a.updateToolMemory(d.Name, paramTypesOf(d), query, false, "", execErr.Error())
			a.sleep(ctx, a.cfg.IterationRetryDelay)
			continue
		}

		observation := fmt.Sprint(res["result"])
		newStep := scratchpad.Step{
			Thought:         result.Thinking,
			Action:          result.Tool.Name,
			ActionInput:     scratchpad.StringifyActionInput(params),
			Observation:     observation,
			ToolExecutionID: execID,
			Role:            a.cfg.Role,
		}
		a.appendStep(newStep)
		a.persistToolCall(ctx, chatID, result.Thinking, result.Tool.Name, params, observation, execID)
		a.updateToolMemory(d.Name, paramTypesOf(d), query, true, observation, "")

		if a.deps.Playbook != nil {
			a.deps.Playbook.Regenerate(ctx, chatID, chatID, query, observation)
		}
	}
}

const handoffToolName = "handoff"

func paramTypesOf(d *tools.Descriptor) map[string]tools.ParamType {
	if len(d.Params) == 0 {
		return nil
	}
	out := make(map[string]tools.ParamType, len(d.Params))
	for name, spec := range d.Params {
		out[name] = spec.Type
	}
	return out
}

// termContext builds the termination Context for the current iteration
// (spec §4.8).
func (a *Agent) termContext(step int, errorOccurred bool) termination.Context {
	a.mu.Lock()
	defer a.mu.Unlock()
	var action, thought, observation string
	if n := len(a.scratchpad); n > 0 {
		last := a.scratchpad[n-1]
		action, thought, observation = last.Action, last.Thought, last.Observation
	}
	return termination.Context{
		CurrentStep:        step,
		CurrentAction:      action,
		CurrentThought:     thought,
		CurrentObservation: observation,
		ErrorOccurred:      errorOccurred,
	}
}

func stopCond(conditions []termination.Condition, ctx termination.Context) bool {
	for _, c := range conditions {
		if c.ShouldStop(ctx) {
			return true
		}
	}
	return false
}

func (a *Agent) latestObservation() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if n := len(a.scratchpad); n > 0 {
		return a.scratchpad[n-1].Observation
	}
	return ""
}

func (a *Agent) invokeFinalAnswerSentinel(ctx context.Context, answer string) {
	if a.deps.ToolRegistry == nil {
		return
	}
	d, ok := a.deps.ToolRegistry.Get(tools.Ident(parser.FinalAnswerTool))
	if !ok {
		return
	}
	_, _ = d.Invoke(ctx, map[string]any{"answer": answer})
}

func (a *Agent) doHandoff(ctx context.Context, chatID string, result parser.Result) {
	step := scratchpad.Step{
		Thought:     result.Thinking,
		Action:      result.Tool.Name,
		ActionInput: scratchpad.StringifyActionInput(result.Tool.Params),
		Role:        a.cfg.Role,
	}
	a.appendStep(step)

	params, _ := result.Tool.Params.(map[string]any)
	targetRole, _ := params["target_role"].(string)
	task, _ := params["task"].(string)
	description, _ := params["description"].(string)
	var handoffContext map[string]any
	if c, ok := params["context"].(map[string]any); ok {
		handoffContext = c
	}
	if a.deps.HandoffQueue != nil && targetRole != "" {
		if err := a.deps.HandoffQueue.PublishTask(ctx, targetRole, a.cfg.AgentID, a.cfg.Role, chatID, task, description, handoffContext); err != nil {
			a.logWarn(ctx, "engine: handoff publish failed", "target_role", targetRole, "err", err)
		}
	}
}

// ReceiveResult synthesizes the receive_result scratchpad step a listener
// appends before resuming the loop (spec §4.9 "Return path": "the core
// appends a synthetic receive_result scratchpad step containing the result
// payload, and re-enters the loop (without clearing context)").
func (a *Agent) ReceiveResult(resultPayload string) {
	a.appendStep(scratchpad.Step{
		Thought:     "receive_result",
		Action:      "receive_result",
		Observation: resultPayload,
		Role:        a.cfg.Role,
	})
}

func (a *Agent) buildPrompt(ctx context.Context, query string, step int) string {
	var descs []*tools.Descriptor
	if a.deps.ToolRegistry != nil {
		for _, name := range a.deps.ToolRegistry.Names() {
			if d, ok := a.deps.ToolRegistry.Get(tools.Ident(name)); ok {
				descs = append(descs, d)
			}
		}
	}

	pad := a.roleScratchpad()
	plannerObs := findPlannerObservation(pad)
	pb := ""
	if a.deps.Playbook != nil {
		if v, err := a.playbookText(ctx); err == nil {
			pb = v
		}
	}

	return prompt.Build(prompt.Vars{
		Template:           a.cfg.PromptTemplate,
		CurrentTime:        time.Now(),
		ToolDescriptors:    descs,
		Query:              query,
		PlannerObservation: plannerObs,
		Scratchpad:         pad,
		IncludeFields:      includeFieldsOrDefault(a.cfg.IncludeFields),
		Instructions:       a.cfg.Instructions,
		MaxIterations:      a.cfg.MaxIterations,
		CurrentIteration:   step,
		Playbook:           pb,
	})
}

func includeFieldsOrDefault(f prompt.IncludeFields) prompt.IncludeFields {
	if f == (prompt.IncludeFields{}) {
		return prompt.AllFields
	}
	return f
}

func findPlannerObservation(steps []scratchpad.Step) string {
	for i := len(steps) - 1; i >= 0; i-- {
		if steps[i].Action == "planner" {
			return steps[i].Observation
		}
	}
	return ""
}

// roleScratchpad returns the in-memory scratchpad windowed to
// ScratchpadMemorySize (spec §4.3: "The memory window is at most
// scratchpad_memory_size most-recent steps").
func (a *Agent) roleScratchpad() []scratchpad.Step {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := len(a.scratchpad)
	limit := a.cfg.ScratchpadMemorySize
	if limit <= 0 || n <= limit {
		out := make([]scratchpad.Step, n)
		copy(out, a.scratchpad)
		return out
	}
	out := make([]scratchpad.Step, limit)
	copy(out, a.scratchpad[n-limit:])
	return out
}

func (a *Agent) playbookText(ctx context.Context) (string, error) {
	if a.convID == "" || a.deps.Playbook.Store == nil {
		return "", nil
	}
	return a.deps.Playbook.Store.Get(ctx, a.convID)
}

func (a *Agent) persistToolCall(ctx context.Context, chatID, thought, action string, params any, observation, execID string) {
	if a.deps.Conversation == nil {
		return
	}
	rec := scratchpad.ToolCallRecord{
		Step: scratchpad.Step{
			Thought:         thought,
			Action:          action,
			ActionInput:     scratchpad.StringifyActionInput(params),
			Observation:     observation,
			ToolExecutionID: execID,
			Role:            a.cfg.Role,
		},
		Timestamp: time.Now().UTC(),
		Role:      a.cfg.Role,
	}
	_ = a.deps.Conversation.AppendToolCall(ctx, chatID, rec)
}

// refreshToolMemory loads each registered tool's learned usage guidance and
// carries it on the Descriptor so buildPrompt's tool listing includes it
// (spec §4.5 Read path, §4.2 "Load per-tool memory strings").
func (a *Agent) refreshToolMemory(ctx context.Context) {
	if a.deps.Memory == nil {
		return
	}
	for _, name := range a.deps.ToolRegistry.Names() {
		ident := tools.Ident(name)
		if text, ok := a.deps.Memory.Read(ctx, a.cfg.UserName, ident); ok {
			a.deps.ToolRegistry.SetMemory(ident, text)
		}
	}
}

// updateToolMemory fires one Tool Memory Manager learning cycle in the
// background after a tool call completes (spec §4.2 "Post-execution
// learning"); the result is advisory so a slow or failed analysis pass must
// never block the loop's next iteration.
func (a *Agent) updateToolMemory(name tools.Ident, paramTypes map[string]tools.ParamType, query string, success bool, observation, errMsg string) {
	if a.deps.Memory == nil {
		return
	}
	go a.deps.Memory.Update(context.Background(), tools.UpdateInput{
		ToolName:     name,
		Success:      success,
		ParamTypes:   paramTypes,
		UserQuery:    query,
		Observation:  observation,
		ErrorMessage: errMsg,
		UserName:     a.cfg.UserName,
		ConvID:       a.convID,
	})
}

func (a *Agent) emit(ctx context.Context, chatID string, enabled bool, typ stream.EventType, data any) {
	if !enabled || a.deps.Sink == nil {
		return
	}
	_ = a.deps.Sink.Send(ctx, chatID, stream.NewEvent(typ, chatID, a.cfg.AgentID, a.cfg.Role, data))
}

func (a *Agent) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func (a *Agent) logWarn(ctx context.Context, msg string, kv ...any) {
	if a.deps.Telemetry.Logger != nil {
		a.deps.Telemetry.Logger.Warn(ctx, msg, kv...)
	}
}

// asActionBad reports whether err is an ActionBadException, per spec §4.1
// error semantics ("ActionBadException from the LLM call layer: adopt its
// message as the final answer and break").
func asActionBad(err error) (string, bool) {
	var bad *toolerrors.ActionBadException
	if errors.As(err, &bad) {
		return bad.Error(), true
	}
	return "", false
}

// mergeImplicitParams merges tool-specific implicit fields into the parsed
// params (spec §4.2: "merged with implicit fields for specific tools:
// user_input gets chat_id, a generated node_id, and a back-reference to the
// agent; handoff gets sender_id, sender_role, chat_id; tools declaring
// need_history receive a serialized transcript of prior observations"). It
// is a method, not a free function, because need_history tools need the
// scratchpad the Agent holds.
func (a *Agent) mergeImplicitParams(d *tools.Descriptor, rawParams any, chatID, agentID, role string) map[string]any {
	params, ok := rawParams.(map[string]any)
	if !ok {
		params = map[string]any{"value": rawParams}
	} else {
		cp := make(map[string]any, len(params)+4)
		for k, v := range params {
			cp[k] = v
		}
		params = cp
	}

	switch d.Name {
	case "user_input":
		params["chat_id"] = chatID
		params["node_id"] = uuid.NewString()
		params["agent_id"] = agentID
	case tools.Ident(handoffToolName):
		params["sender_id"] = agentID
		params["sender_role"] = role
		params["chat_id"] = chatID
	}
	if d.NeedHistory {
		params["history"] = scratchpad.Transcript(a.Scratchpad())
	}
	return params
}
