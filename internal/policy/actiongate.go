package policy

import (
	"context"
	"embed"
	"fmt"

	"github.com/open-policy-agent/opa/rego"
	"github.com/open-policy-agent/opa/storage/inmem"
	"go.opentelemetry.io/otel/attribute"
)

//go:embed rego/*.rego
var embeddedPolicies embed.FS

const (
	actionGateFile  = "rego/action_gate.rego"
	actionGateQuery = "data.tower.policy.action_gate.hold"
)

// ActionGate decides whether a proposed action type must be held for
// execution gating. The risky-type list from the policy file is loaded as
// OPA data and evaluated against an embedded Rego rule.
type ActionGate struct {
	query rego.PreparedEvalQuery
}

// NewActionGate compiles the embedded action gate policy with the given
// risky-type list.
func NewActionGate(ctx context.Context, cfg ActionGateConfig) (*ActionGate, error) {
	content, err := embeddedPolicies.ReadFile(actionGateFile)
	if err != nil {
		return nil, fmt.Errorf("reading embedded policy %s: %w", actionGateFile, err)
	}

	riskyTypes := cfg.RiskyTypes
	if riskyTypes == nil {
		riskyTypes = []string{}
	}
	data := map[string]interface{}{
		"policy": map[string]interface{}{
			"risky_types": riskyTypes,
		},
	}

	r := rego.New(
		rego.Query(actionGateQuery),
		rego.Module(actionGateFile, string(content)),
		rego.Store(inmem.NewFromObject(data)),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("preparing Rego policy %s: %w", actionGateFile, err)
	}

	return &ActionGate{query: query}, nil
}

// Hold reports whether an action of the given type must wait for an
// execution decision. Evaluation failures fail closed: an action we cannot
// classify is held, never auto-simulated.
func (g *ActionGate) Hold(ctx context.Context, actionType string) bool {
	ctx, span := tracer.Start(ctx, "policy.action_gate")
	defer span.End()
	span.SetAttributes(attribute.String("action.type", actionType))

	results, err := g.query.Eval(ctx, rego.EvalInput(map[string]interface{}{
		"type": actionType,
	}))
	if err != nil || len(results) == 0 || len(results[0].Expressions) == 0 {
		span.SetAttributes(attribute.Bool("action.hold", true))
		return true
	}

	hold, ok := results[0].Expressions[0].Value.(bool)
	if !ok {
		hold = true
	}
	span.SetAttributes(attribute.Bool("action.hold", hold))
	return hold
}
