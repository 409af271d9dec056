// Package agent orchestrates the gating pipeline for a single agent run:
// scrub, generate, classify, score, decide, persist, and open review gates
// where the policy demands them.
package agent

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Kushall-07/Ai-tower/internal/llm"
	towerotel "github.com/Kushall-07/Ai-tower/internal/otel"
	"github.com/Kushall-07/Ai-tower/internal/policy"
	"github.com/Kushall-07/Ai-tower/internal/risk"
	"github.com/Kushall-07/Ai-tower/internal/store"
	"github.com/Kushall-07/Ai-tower/internal/trust"
)

var tracer = towerotel.Tracer("github.com/Kushall-07/Ai-tower/internal/agent")

var (
	ErrEmptyPrompt = errors.New("prompt must not be empty")
)

// Runner wires the classifier, policy and store into the run pipeline.
type Runner struct {
	classifier *risk.Classifier
	generator  *llm.SafeGenerator
	policy     *policy.Policy
	gate       *policy.ActionGate
	store      *store.Store
}

// NewRunner assembles a runner from its collaborators.
func NewRunner(classifier *risk.Classifier, generator *llm.SafeGenerator, pol *policy.Policy, gate *policy.ActionGate, st *store.Store) *Runner {
	return &Runner{
		classifier: classifier,
		generator:  generator,
		policy:     pol,
		gate:       gate,
		store:      st,
	}
}

// RunResult is the full outcome of one agent run: the signed audit record,
// the approval gate if one was opened, and any actions proposed by the model.
type RunResult struct {
	Run      *store.AgentRun `json:"run"`
	Approval *store.Approval `json:"approval,omitempty"`
	Actions  []*store.Action `json:"actions,omitempty"`
}

// Run executes the gating pipeline for the given prompt. The LLM call never
// fails the run: upstream errors are folded into the trust score and audit
// record. The run record is persisted before any approval or action rows so
// their foreign run ID always resolves.
func (r *Runner) Run(ctx context.Context, prompt string) (*RunResult, error) {
	correlationID := uuid.New().String()
	ctx, span := tracer.Start(ctx, "agent.run",
		trace.WithAttributes(attribute.String("correlation_id", correlationID)))
	defer span.End()

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, ErrEmptyPrompt
	}

	gen := r.generator.Generate(ctx, prompt)

	// Classification covers both sides of the exchange: a harmless prompt
	// can still elicit a response that names credentials or PII.
	flags := r.classifier.Classify(ctx, prompt+" "+gen.Content)
	level := risk.Severity(flags)

	score := trust.Score(
		trust.WordCount(prompt),
		trust.WordCount(gen.Content),
		level,
		gen.UpstreamError,
	)

	decision, reasons := policy.Decide(ctx, flags, level, r.policy.Decisions)

	run := &store.AgentRun{
		CorrelationID:   correlationID,
		Prompt:          prompt,
		Response:        gen.Content,
		Model:           gen.Model,
		TrustScore:      score,
		RiskLevel:       string(level),
		PolicyDecision:  string(decision),
		PolicyRiskLevel: string(level),
		RiskFlags:       flags.Strings(),
		PolicyReasons:   reasons,
	}
	if gen.UpstreamError {
		run.LLMError = "upstream LLM call failed, fallback response used"
	}

	if err := r.store.InsertRun(ctx, run); err != nil {
		return nil, err
	}

	result := &RunResult{Run: run}

	if needsApproval(decision, level) {
		approval, err := r.store.CreateApproval(ctx, run.ID, string(level), string(decision))
		if err != nil {
			return nil, err
		}
		result.Approval = approval
	}

	// Blocked runs propose nothing; everything else gets the model's action
	// suggestions recorded through the same gate as explicit simulations.
	if decision != policy.DecisionBlock {
		for _, proposed := range llm.ExtractActions(gen.Content) {
			if !validActionType(proposed.Type) {
				log.Debug().Str("type", proposed.Type).Msg("proposed_action_type_rejected")
				continue
			}
			action, err := r.createGatedAction(ctx, run.ID, proposed.Type, proposed.Payload)
			if err != nil {
				return nil, err
			}
			result.Actions = append(result.Actions, action)
		}
	}

	span.SetAttributes(
		attribute.Int64("run_id", run.ID),
		attribute.String("risk_level", string(level)),
		attribute.String("policy_decision", string(decision)),
		attribute.Float64("trust_score", score),
	)
	log.Info().Int64("run_id", run.ID).Str("correlation_id", correlationID).
		Str("risk_level", string(level)).Str("policy_decision", string(decision)).
		Float64("trust_score", score).Bool("llm_error", gen.UpstreamError).
		Msg("agent_run_completed")

	return result, nil
}

// needsApproval reports whether a run must open a human review gate: any
// non-allow decision, or medium-and-above severity even when allowed.
func needsApproval(decision policy.Decision, level risk.Level) bool {
	if decision == policy.DecisionBlock || decision == policy.DecisionNeedsApproval {
		return true
	}
	return level == risk.LevelMedium || level == risk.LevelHigh
}

func (r *Runner) createGatedAction(ctx context.Context, runID int64, actionType string, payload map[string]interface{}) (*store.Action, error) {
	status := store.ActionSimulated
	if r.gate.Hold(ctx, actionType) {
		status = store.ActionPending
	}
	return r.store.CreateAction(ctx, runID, actionType, payload, status)
}
