// Command agentcore-demo wires a two-role team (planner, researcher) end to
// end over a real Redis instance, exercising the handoff round-trip
// described in spec §8 end-to-end scenario 2: the planner hands a task to
// the researcher, the researcher answers, and the result flows back to the
// planner which produces the final answer.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	anthropicmodel "github.com/orchestra-ai/agentcore/features/model/anthropic"
	"github.com/orchestra-ai/agentcore/runtime/agent/config"
	"github.com/orchestra-ai/agentcore/runtime/agent/engine"
	"github.com/orchestra-ai/agentcore/runtime/agent/kvs"
	"github.com/orchestra-ai/agentcore/runtime/agent/model"
	"github.com/orchestra-ai/agentcore/runtime/agent/parser"
	"github.com/orchestra-ai/agentcore/runtime/agent/playbook"
	"github.com/orchestra-ai/agentcore/runtime/agent/queue"
	"github.com/orchestra-ai/agentcore/runtime/agent/ratelimit"
	"github.com/orchestra-ai/agentcore/runtime/agent/session"
	"github.com/orchestra-ai/agentcore/runtime/agent/stream"
	"github.com/orchestra-ai/agentcore/runtime/agent/telemetry"
	"github.com/orchestra-ai/agentcore/runtime/agent/team"
	"github.com/orchestra-ai/agentcore/runtime/agent/termination"
	"github.com/orchestra-ai/agentcore/runtime/agent/tools"
)

func main() {
	redisAddr := flag.String("redis", "127.0.0.1:6379", "redis address backing the KVS")
	query := flag.String("query", "What is the capital of France, and why is it significant?", "the user query to seed the planner with")
	apiKey := flag.String("anthropic-key", os.Getenv("ANTHROPIC_API_KEY"), "Anthropic API key; empty uses a canned stub model")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	logger := telemetry.NewClueLogger()
	rdb := redis.NewClient(&redis.Options{Addr: *redisAddr})
	store := kvs.NewRedisStore(rdb)

	bus, err := queue.NewRedisBus(ctx, "agentcore-demo", rdb, store)
	if err != nil {
		log.Fatalf("queue bus: %v", err)
	}
	convStore := kvs.NewConversationStore(store)
	pbStore := kvs.NewPlaybookStore(store)
	sink := stream.MultiSink{kvs.NewChatStreamSink(store)}

	llm := newModelClient(*apiKey)

	planner := buildAgent(agentSpec{
		role:        "planner",
		modelName:   "claude-3-5-sonnet-20241022",
		description: "Breaks the user's request into sub-tasks and hands research work to the researcher role.",
		instructions: "You are the planning agent. Use the handoff tool to delegate research " +
			"to the researcher role, then use final_answer once you have enough information.",
		llm: llm, bus: bus, convStore: convStore, pbStore: pbStore, sink: sink, logger: logger,
	})
	researcher := buildAgent(agentSpec{
		role:        "researcher",
		modelName:   "claude-3-5-sonnet-20241022",
		description: "Answers focused research questions handed off by the planner.",
		instructions: "You are the research agent. Answer the task you were handed directly " +
			"with final_answer; do not hand off further.",
		llm: llm, bus: bus, convStore: convStore, pbStore: pbStore, sink: sink, logger: logger,
	})

	orch := team.New(team.Config{
		Roles: []team.RoleDescription{
			{Role: "planner", Description: planner.card.Description},
			{Role: "researcher", Description: researcher.card.Description},
		},
		TeamRules:  "The planner always delegates research to the researcher before answering.",
		StartRole:  "planner",
		ChatID:     "demo-chat-1",
		RoundLimit: 10,
	}, bus, logger)

	if err := orch.AddMember(ctx, "planner", planner.agent); err != nil {
		log.Fatalf("add planner: %v", err)
	}
	if err := orch.AddMember(ctx, "researcher", researcher.agent); err != nil {
		log.Fatalf("add researcher: %v", err)
	}

	sessions := session.NewManager[*team.Orchestrator](session.DefaultCeiling)
	sessions.Put("demo-chat-1", orch)
	defer sessions.Drain()

	answer, ok, err := orch.Run(ctx, *query, false)
	if err != nil {
		log.Fatalf("run: %v", err)
	}
	if !ok {
		fmt.Println("planner handed off; waiting for asynchronous result via the researcher's listener...")
		<-ctx.Done()
		return
	}
	fmt.Println("final answer:", answer)
}

type agentSpec struct {
	role         string
	modelName    string
	description  string
	instructions string
	llm          model.Client
	bus          *queue.Bus
	convStore    *kvs.ConversationStore
	pbStore      *kvs.PlaybookStore
	sink         stream.Sink
	logger       telemetry.Logger
}

type builtAgent struct {
	agent *engine.Agent
	card  engine.Card
}

func buildAgent(s agentSpec) builtAgent {
	card := engine.Card{Name: s.role, Description: s.description, ModelName: s.modelName}

	registry := tools.NewRegistry()
	registerFinalAnswer(registry)
	registerHandoff(registry)

	policy := &tools.ExecutionPolicy{Registry: registry, RateLimit: ratelimit.NewRegistry(), Sink: s.sink}

	p := &parser.Parser{Repair: &parser.ModelRepairer{Client: s.llm, ModelName: s.modelName}}

	pb := &playbook.Generator{Store: s.pbStore, Model: s.llm, ModelName: s.modelName, Sink: s.sink, Logger: s.logger}

	roleCfg := config.RoleConfig{
		MaxIterations:              8,
		LLMTimeoutSeconds:          30,
		IterationRetryDelaySeconds: 1,
		ScratchpadMemorySize:       20,
	}
	termConds, _ := roleCfg.ResolveTerminationConditions()
	if len(termConds) == 0 {
		termConds = []termination.Condition{termination.StepLimit{MaxIterations: roleCfg.MaxIterations}}
	}

	a := engine.New(engine.Config{
		Role:                  s.role,
		Card:                  card,
		PromptTemplate:        defaultPromptTemplate,
		Instructions:          s.instructions,
		MaxIterations:         roleCfg.MaxIterations,
		IterationRetryDelay:   roleCfg.IterationRetryDelay(),
		LLMTimeout:            roleCfg.LLMTimeout(),
		ScratchpadMemorySize:  roleCfg.ScratchpadMemorySize,
		TerminationConditions: termConds,
	}, engine.Deps{
		Model:        s.llm,
		Tools:        policy,
		ToolRegistry: registry,
		Parser:       p,
		Playbook:     pb,
		Conversation: s.convStore,
		Sink:         s.sink,
		Telemetry:    telemetry.Bundle{Logger: s.logger, Metrics: telemetry.NewNoopMetrics(), Tracer: telemetry.NewNoopTracer()},
		HandoffQueue: s.bus,
	})

	return builtAgent{agent: a, card: card}
}

const defaultPromptTemplate = `{instructions}

Current time: {CURRENT_TIME}
Tools available:
{tools}

{playbook}

User query: {query}

{agent_scratchpad}
`

func registerFinalAnswer(r *tools.Registry) {
	_ = r.Register(&tools.Descriptor{
		Name:        tools.Ident(parser.FinalAnswerTool),
		Description: "Signal that the agent has a complete answer for the current task.",
		Params: map[string]tools.ParamSpec{
			"answer": {Type: tools.ParamString, Required: true},
		},
		Invoke: func(ctx context.Context, params map[string]any) (tools.Result, error) {
			return tools.Result{"result": params["answer"]}, nil
		},
	})
}

func registerHandoff(r *tools.Registry) {
	_ = r.Register(&tools.Descriptor{
		Name:        "handoff",
		Description: "Delegate a task to another role on the team.",
		Params: map[string]tools.ParamSpec{
			"target_role": {Type: tools.ParamString, Required: true},
			"task":        {Type: tools.ParamString, Required: true},
			"description": {Type: tools.ParamString},
		},
		Invoke: func(ctx context.Context, params map[string]any) (tools.Result, error) {
			return tools.Result{"result": "handoff dispatched"}, nil
		},
	})
}

// newModelClient returns an Anthropic-backed client when an API key is
// supplied, otherwise a canned stub so the demo runs without network access.
func newModelClient(apiKey string) model.Client {
	if apiKey == "" {
		return model.ClientFunc(func(ctx context.Context, messages []model.Message, modelName string) (string, model.Usage, error) {
			return `Thought: I have enough information.
Answer: Paris is the capital of France, notable as a seat of government since the medieval period.`, model.Usage{}, nil
		})
	}
	c, err := anthropicmodel.NewFromAPIKey(apiKey, "claude-3-5-sonnet-20241022")
	if err != nil {
		log.Fatalf("anthropic client: %v", err)
	}
	return c
}
