package telemetry

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.opentelemetry.io/otel/codes"
)

// traceTemplateRe matches ${context.<dotted.path>} placeholders in a span-name
// template, e.g. "agent.run[${context.role}]".
var traceTemplateRe = regexp.MustCompile(`\$\{context\.([a-zA-Z0-9_.]+)\}`)

// ResolveTraceName expands ${context.*} placeholders in template against the
// supplied context map. A placeholder whose path is absent resolves to the
// empty string rather than failing; callers always get a usable span name.
//
// Paths with dots walk nested map[string]any values, e.g. "context.agent.role"
// or "${context.agent.role}" looks up ctxVars["agent"].(map[string]any)["role"].
func ResolveTraceName(template string, ctxVars map[string]any) string {
	if !strings.Contains(template, "${context.") {
		return template
	}
	return traceTemplateRe.ReplaceAllStringFunc(template, func(m string) string {
		sub := traceTemplateRe.FindStringSubmatch(m)
		if len(sub) != 2 {
			return ""
		}
		return lookupPath(ctxVars, strings.Split(sub[1], "."))
	})
}

func lookupPath(vars map[string]any, path []string) string {
	var cur any = vars
	for _, seg := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return ""
		}
		cur, ok = m[seg]
		if !ok {
			return ""
		}
	}
	switch v := cur.(type) {
	case string:
		return v
	case nil:
		return ""
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// WrapSpan wraps fn's execution in a span whose name is resolved from a
// dynamic template against ctxVars (the Tracing Wrapper component of the
// agent runtime). It records errors and sets the span status before
// returning fn's error unchanged.
func WrapSpan(ctx context.Context, tracer Tracer, nameTemplate string, ctxVars map[string]any, fn func(context.Context) error) error {
	name := ResolveTraceName(nameTemplate, ctxVars)
	spanCtx, span := tracer.Start(ctx, name)
	defer span.End()
	if err := fn(spanCtx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	span.SetStatus(codes.Ok, "")
	return nil
}
