package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// AgentRun is the immutable audit record for a single agent invocation.
// Records are never updated after insert; the signature covers every field
// except the database-assigned ID.
type AgentRun struct {
	ID              int64     `json:"id"`
	CreatedAt       time.Time `json:"created_at"`
	CorrelationID   string    `json:"correlation_id"`
	Prompt          string    `json:"prompt"`
	Response        string    `json:"response"`
	Model           string    `json:"model"`
	TrustScore      float64   `json:"trust_score"`
	RiskLevel       string    `json:"risk_level"`
	PolicyDecision  string    `json:"policy_decision"`
	PolicyRiskLevel string    `json:"policy_risk_level"`
	RiskFlags       []string  `json:"risk_flags"`
	PolicyReasons   []string  `json:"policy_reasons"`
	LLMError        string    `json:"llm_error,omitempty"`
	Signature       string    `json:"signature"`
}

// RunFilter narrows ListRuns results. Zero values mean "no filter".
type RunFilter struct {
	RiskLevel      string
	PolicyDecision string
	Limit          int
}

// Analytics aggregates run counts for dashboard cards.
type Analytics struct {
	TotalRuns        int            `json:"total_runs"`
	ByRiskLevel      map[string]int `json:"by_risk_level"`
	ByPolicyDecision map[string]int `json:"by_policy_decision"`
}

// signable is the canonical byte representation covered by the HMAC. The ID
// is excluded: it is assigned by the database after signing.
func (r *AgentRun) signable() ([]byte, error) {
	payload := struct {
		CreatedAt       string   `json:"created_at"`
		CorrelationID   string   `json:"correlation_id"`
		Prompt          string   `json:"prompt"`
		Response        string   `json:"response"`
		Model           string   `json:"model"`
		TrustScore      float64  `json:"trust_score"`
		RiskLevel       string   `json:"risk_level"`
		PolicyDecision  string   `json:"policy_decision"`
		PolicyRiskLevel string   `json:"policy_risk_level"`
		RiskFlags       []string `json:"risk_flags"`
		PolicyReasons   []string `json:"policy_reasons"`
		LLMError        string   `json:"llm_error"`
	}{
		CreatedAt:       r.CreatedAt.UTC().Format(time.RFC3339Nano),
		CorrelationID:   r.CorrelationID,
		Prompt:          r.Prompt,
		Response:        r.Response,
		Model:           r.Model,
		TrustScore:      r.TrustScore,
		RiskLevel:       r.RiskLevel,
		PolicyDecision:  r.PolicyDecision,
		PolicyRiskLevel: r.PolicyRiskLevel,
		RiskFlags:       r.RiskFlags,
		PolicyReasons:   r.PolicyReasons,
		LLMError:        r.LLMError,
	}
	return json.Marshal(payload)
}

// InsertRun signs and persists a new run record, assigning its ID and
// CreatedAt (if unset).
func (s *Store) InsertRun(ctx context.Context, run *AgentRun) error {
	ctx, span := tracer.Start(ctx, "store.insert_run",
		trace.WithAttributes(
			attribute.String("correlation_id", run.CorrelationID),
			attribute.String("risk_level", run.RiskLevel),
			attribute.String("policy_decision", run.PolicyDecision),
		))
	defer span.End()

	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	if run.RiskFlags == nil {
		run.RiskFlags = []string{}
	}
	if run.PolicyReasons == nil {
		run.PolicyReasons = []string{}
	}

	payload, err := run.signable()
	if err != nil {
		return fmt.Errorf("marshaling run: %w", err)
	}
	signature, err := s.signer.Sign(payload)
	if err != nil {
		return fmt.Errorf("signing run: %w", err)
	}
	run.Signature = signature

	flagsJSON, _ := json.Marshal(run.RiskFlags)
	reasonsJSON, _ := json.Marshal(run.PolicyReasons)

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO agent_runs (created_at, correlation_id, prompt, response, model,
			trust_score, risk_level, policy_decision, policy_risk_level,
			risk_flags_json, policy_reasons_json, llm_error, signature)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.CreatedAt, run.CorrelationID, run.Prompt, run.Response, run.Model,
		run.TrustScore, run.RiskLevel, run.PolicyDecision, run.PolicyRiskLevel,
		string(flagsJSON), string(reasonsJSON), nullString(run.LLMError), signature,
	)
	if err != nil {
		return fmt.Errorf("storing run: %w", err)
	}

	run.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading run id: %w", err)
	}
	return nil
}

// GetRun retrieves a run by ID.
func (s *Store) GetRun(ctx context.Context, id int64) (*AgentRun, error) {
	ctx, span := tracer.Start(ctx, "store.get_run",
		trace.WithAttributes(attribute.Int64("run_id", id)))
	defer span.End()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, created_at, correlation_id, prompt, response, model,
			trust_score, risk_level, policy_decision, policy_risk_level,
			risk_flags_json, policy_reasons_json, llm_error, signature
		FROM agent_runs WHERE id = ?`, id)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying run: %w", err)
	}
	return run, nil
}

// ListRuns returns runs matching the filter, newest first. A zero limit
// defaults to 50.
func (s *Store) ListRuns(ctx context.Context, filter RunFilter) ([]*AgentRun, error) {
	ctx, span := tracer.Start(ctx, "store.list_runs")
	defer span.End()

	query := `
		SELECT id, created_at, correlation_id, prompt, response, model,
			trust_score, risk_level, policy_decision, policy_risk_level,
			risk_flags_json, policy_reasons_json, llm_error, signature
		FROM agent_runs WHERE 1=1`
	args := []interface{}{}

	if filter.RiskLevel != "" {
		query += ` AND risk_level = ?`
		args = append(args, filter.RiskLevel)
	}
	if filter.PolicyDecision != "" {
		query += ` AND policy_decision = ?`
		args = append(args, filter.PolicyDecision)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []*AgentRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// RunAnalytics aggregates total run count plus breakdowns by risk level and
// policy decision.
func (s *Store) RunAnalytics(ctx context.Context) (*Analytics, error) {
	ctx, span := tracer.Start(ctx, "store.run_analytics")
	defer span.End()

	analytics := &Analytics{
		ByRiskLevel:      map[string]int{},
		ByPolicyDecision: map[string]int{},
	}

	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM agent_runs`).Scan(&analytics.TotalRuns); err != nil {
		return nil, fmt.Errorf("counting runs: %w", err)
	}

	if err := s.countBy(ctx, `SELECT LOWER(risk_level), COUNT(*) FROM agent_runs GROUP BY LOWER(risk_level)`, analytics.ByRiskLevel); err != nil {
		return nil, err
	}
	if err := s.countBy(ctx, `SELECT LOWER(policy_decision), COUNT(*) FROM agent_runs GROUP BY LOWER(policy_decision)`, analytics.ByPolicyDecision); err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int("total_runs", analytics.TotalRuns))
	return analytics, nil
}

func (s *Store) countBy(ctx context.Context, query string, into map[string]int) error {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("aggregating runs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var count int
		if err := rows.Scan(&key, &count); err != nil {
			return fmt.Errorf("scanning aggregate: %w", err)
		}
		if key == "" {
			key = "unknown"
		}
		into[key] = count
	}
	return rows.Err()
}

// VerifyRun recomputes the HMAC for a stored run and reports whether it
// matches the persisted signature.
func (s *Store) VerifyRun(ctx context.Context, id int64) (bool, error) {
	run, err := s.GetRun(ctx, id)
	if err != nil {
		return false, err
	}
	payload, err := run.signable()
	if err != nil {
		return false, fmt.Errorf("marshaling run: %w", err)
	}
	return s.signer.Verify(payload, run.Signature), nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (*AgentRun, error) {
	var run AgentRun
	var flagsJSON, reasonsJSON string
	var llmError sql.NullString

	err := row.Scan(&run.ID, &run.CreatedAt, &run.CorrelationID, &run.Prompt,
		&run.Response, &run.Model, &run.TrustScore, &run.RiskLevel,
		&run.PolicyDecision, &run.PolicyRiskLevel, &flagsJSON, &reasonsJSON,
		&llmError, &run.Signature)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(flagsJSON), &run.RiskFlags); err != nil {
		return nil, fmt.Errorf("unmarshaling risk flags: %w", err)
	}
	if err := json.Unmarshal([]byte(reasonsJSON), &run.PolicyReasons); err != nil {
		return nil, fmt.Errorf("unmarshaling policy reasons: %w", err)
	}
	if llmError.Valid {
		run.LLMError = llmError.String
	}
	return &run, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
