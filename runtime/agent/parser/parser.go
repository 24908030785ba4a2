// Package parser converts a model's raw text response into a structured
// action record through a JSON / regex / LLM-repair cascade (spec §4.4
// Response Parser).
package parser

import (
	"context"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/orchestra-ai/agentcore/runtime/agent/model"
)

// FinalAnswerTool is the synthetic tool name the parser emits for a
// terminal "Answer:" line or any give-up path (spec §4.4 step 2, step 4).
const FinalAnswerTool = "final_answer"

// PythonTool is the name treated specially when its params arrive as a bare
// string, often a Markdown-fenced code block (spec §4.4 step 2 special
// case).
const PythonTool = "execute_python"

// Tool is one parsed action: a name and its parameters, which may be a
// map (structured call) or a bare string (final answer / unparseable
// input) (spec §4.4 Output).
type Tool struct {
	Name   string
	Params any
}

// Result is the parser's output (spec §4.4 Output: "{thinking: string,
// tool: {name: string, params: object|string}}").
type Result struct {
	Thinking string
	Tool     Tool
	// Synthetic marks a result produced by the cascade's last-resort give-up
	// path rather than a genuine "Answer:"/JSON/regex match (spec §9 open
	// question: repair can fail silently and the fallback issues
	// final_answer anyway; callers that care about answer provenance should
	// check this rather than assume every final_answer was earned).
	Synthetic bool
}

// Repairer calls an LLM to extract a structured action from text the regex
// cascade could not parse (spec §4.4 step 3).
type Repairer interface {
	Repair(ctx context.Context, text string) (string, error)
}

// ModelRepairer adapts a model.Client into a Repairer using a fixed
// extraction prompt template.
type ModelRepairer struct {
	Client    model.Client
	ModelName string
}

const repairPromptTemplate = `The following text should describe a single action but does not follow the
expected "Thought/Action/Action Input" or "Thought/Answer" format. Extract a
JSON object of the shape {"thinking": "...", "tool": {"name": "...",
"params": {...}}} (or params as a plain string if no structured parameters
exist) from it. Respond with JSON only.

Text:
%s`

// Repair implements Repairer.
func (r *ModelRepairer) Repair(ctx context.Context, text string) (string, error) {
	prompt := strings.ReplaceAll(repairPromptTemplate, "%s", text)
	out, _, err := r.Client.Call(ctx, []model.Message{
		{Role: model.RoleUser, Content: prompt},
	}, r.ModelName)
	return out, err
}

// Parser runs the direct-JSON / regex-structured / LLM-repair cascade over
// a model's raw text (spec §4.4).
type Parser struct {
	Repair Repairer // optional; nil disables stage 3
}

var (
	// Each regex below uses the class [:：] to accept either ASCII or
	// fullwidth colons (spec §4.4: "colon may be ASCII `:` or fullwidth `：`").
	thoughtRe = regexp.MustCompile(`(?s)Thought[:：]\s*(.*?)(?:\nAction[:：]|\nAnswer[:：]|$)`)
	answerRe  = regexp.MustCompile(`(?s)Answer[:：]\s*(.*)$`)
	bracketRe = regexp.MustCompile(`(?s)Action[:：]\s*([^[\s]+)\[(.*?)\]`)
	actionRe  = regexp.MustCompile(`(?s)Action[:：]\s*(.*?)(?:\nAction Input[:：]|$)`)
	inputRe   = regexp.MustCompile(`(?s)Action Input[:：]\s*(.*?)(?:\nThought[:：]|\nAction[:：]|\nAnswer[:：]|$)`)
)

// Parse runs the cascade over text (spec §4.4 Cascade).
func (p *Parser) Parse(ctx context.Context, text string) Result {
	if r, ok := parseDirectJSON(text); ok {
		return finalize(r)
	}
	if r, ok := parseRegexStructured(text); ok {
		return finalize(r)
	}
	if p.Repair != nil {
		repaired, err := p.Repair.Repair(ctx, text)
		if err == nil {
			if r, ok := parseDirectJSON(repaired); ok && r.Tool.Name != "" {
				return finalize(r)
			}
			if r, ok := parseRegexStructured(repaired); ok && r.Tool.Name != "" {
				return finalize(r)
			}
		}
	}
	return Result{
		Thinking: "",
		Tool: Tool{
			Name:   FinalAnswerTool,
			Params: strings.TrimSpace(text),
		},
		Synthetic: true,
	}
}

// parseDirectJSON implements cascade stage 1.
func parseDirectJSON(text string) (Result, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || trimmed[0] != '{' {
		return Result{}, false
	}
	var raw struct {
		Thinking string          `json:"thinking"`
		Tool     json.RawMessage `json:"tool"`
	}
	if err := json.Unmarshal([]byte(trimmed), &raw); err != nil {
		return Result{}, false
	}
	if raw.Tool == nil {
		return Result{}, false
	}
	var toolObj struct {
		Name   string          `json:"name"`
		Params json.RawMessage `json:"params"`
	}
	if err := json.Unmarshal(raw.Tool, &toolObj); err != nil {
		return Result{}, false
	}
	if toolObj.Name == "" {
		return Result{}, false
	}
	return Result{
		Thinking: raw.Thinking,
		Tool:     Tool{Name: toolObj.Name, Params: decodeParams(toolObj.Params)},
	}, true
}

// decodeParams parses raw JSON params; when the decoded value is itself a
// JSON-encoded string, it is parsed once more (spec §4.4 step 1: "If
// tool.params is a JSON string, parse it once more").
func decodeParams(raw json.RawMessage) any {
	if len(raw) == 0 {
		return map[string]any{}
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	if s, ok := v.(string); ok {
		var nested any
		if err := json.Unmarshal([]byte(s), &nested); err == nil {
			return nested
		}
		return s
	}
	return v
}

// parseRegexStructured implements cascade stage 2.
func parseRegexStructured(text string) (Result, bool) {
	thinking := ""
	if m := thoughtRe.FindStringSubmatch(text); m != nil {
		thinking = strings.TrimSpace(m[1])
	}

	if m := answerRe.FindStringSubmatch(text); m != nil {
		return Result{
			Thinking: thinking,
			Tool:     Tool{Name: FinalAnswerTool, Params: strings.TrimSpace(m[1])},
		}, true
	}

	if m := bracketRe.FindStringSubmatch(text); m != nil {
		name := strings.TrimSpace(m[1])
		params := parseBracketParams(strings.TrimSpace(m[2]))
		return Result{Thinking: thinking, Tool: pythonSpecialCase(name, params)}, true
	}

	am := actionRe.FindStringSubmatch(text)
	if am == nil {
		return Result{}, false
	}
	name := strings.TrimSpace(am[1])
	if name == "" {
		return Result{}, false
	}

	var params any = map[string]any{}
	if im := inputRe.FindStringSubmatch(text); im != nil {
		raw := strings.TrimSpace(im[1])
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err == nil {
			params = v
		} else {
			params = raw
		}
	}
	return Result{Thinking: thinking, Tool: pythonSpecialCase(name, params)}, true
}

// parseBracketParams decodes a bracket-form Action[...] payload: JSON if it
// starts with '{', else comma-separated k=v pairs with type coercion (spec
// §4.4 step 2 bracket-form).
func parseBracketParams(content string) any {
	if strings.HasPrefix(content, "{") {
		var v any
		if err := json.Unmarshal([]byte(content), &v); err == nil {
			return v
		}
		return content
	}
	if content == "" {
		return map[string]any{}
	}
	out := map[string]any{}
	for _, pair := range strings.Split(content, ",") {
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) != 2 {
			continue
		}
		key := strings.TrimSpace(kv[0])
		out[key] = coerce(strings.TrimSpace(kv[1]))
	}
	return out
}

// coerce applies the int/float/bool/else-string coercion spec §4.4 step 2
// describes for bracket-form k=v pairs, stripping surrounding quotes first.
func coerce(v string) any {
	v = strings.Trim(v, `"'`)
	if i, err := strconv.Atoi(v); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(v); err == nil {
		return b
	}
	return v
}

// pythonSpecialCase wraps a bare-string params payload for PythonTool into
// {code, language, enable_network} when params didn't parse as structured
// data (spec §4.4 step 2 special case).
func pythonSpecialCase(name string, params any) Tool {
	if name != PythonTool {
		return Tool{Name: name, Params: params}
	}
	s, ok := params.(string)
	if !ok {
		return Tool{Name: name, Params: params}
	}
	code := extractCodeBlock(s)
	return Tool{
		Name: name,
		Params: map[string]any{
			"code":           code,
			"language":       "python",
			"enable_network": false,
		},
	}
}

var fencedBlockRe = regexp.MustCompile("(?s)```(?:python)?\\n?(.*?)```")

func extractCodeBlock(s string) string {
	if m := fencedBlockRe.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(s)
}

// finalize applies the cascade-wide cleanup rule: an empty tool name falls
// back to final_answer with the thinking text as its params (spec §4.4
// closing paragraph). The thinking text itself is left unchanged.
func finalize(r Result) Result {
	if r.Tool.Name == "" {
		r.Tool = Tool{Name: FinalAnswerTool, Params: r.Thinking}
	}
	return r
}
