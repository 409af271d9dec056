package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ApprovalStatus is the review state of an approval record.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// Approval is a human review gate attached to an agent run. It starts
// pending and moves exactly once to approved or rejected; both are terminal.
type Approval struct {
	ID             int64          `json:"id"`
	CreatedAt      time.Time      `json:"created_at"`
	AgentRunID     int64          `json:"agent_run_id"`
	Status         ApprovalStatus `json:"status"`
	RiskLevel      string         `json:"risk_level"`
	PolicyDecision string         `json:"policy_decision"`
	DecidedAt      *time.Time     `json:"decided_at,omitempty"`
	DecidedBy      string         `json:"decided_by,omitempty"`
	DecisionReason string         `json:"decision_reason,omitempty"`

	// Prompt is joined in from the originating run for listing views.
	Prompt string `json:"prompt,omitempty"`
}

// CreateApproval persists a new pending approval for the given run.
func (s *Store) CreateApproval(ctx context.Context, runID int64, riskLevel, policyDecision string) (*Approval, error) {
	ctx, span := tracer.Start(ctx, "store.create_approval",
		trace.WithAttributes(
			attribute.Int64("run_id", runID),
			attribute.String("risk_level", riskLevel),
			attribute.String("policy_decision", policyDecision),
		))
	defer span.End()

	approval := &Approval{
		CreatedAt:      time.Now().UTC(),
		AgentRunID:     runID,
		Status:         ApprovalPending,
		RiskLevel:      riskLevel,
		PolicyDecision: policyDecision,
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO approvals (created_at, agent_run_id, status, risk_level, policy_decision)
		VALUES (?, ?, ?, ?, ?)`,
		approval.CreatedAt, approval.AgentRunID, string(approval.Status),
		approval.RiskLevel, approval.PolicyDecision,
	)
	if err != nil {
		return nil, fmt.Errorf("storing approval: %w", err)
	}

	approval.ID, err = result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading approval id: %w", err)
	}

	log.Info().Int64("approval_id", approval.ID).Int64("run_id", runID).
		Str("policy_decision", policyDecision).Msg("approval_created")
	return approval, nil
}

// GetApproval retrieves an approval by ID.
func (s *Store) GetApproval(ctx context.Context, id int64) (*Approval, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, created_at, agent_run_id, status, risk_level, policy_decision,
			decided_at, decided_by, decision_reason
		FROM approvals WHERE id = ?`, id)

	approval, err := scanApproval(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrApprovalNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying approval: %w", err)
	}
	return approval, nil
}

// LatestApprovalForRun returns the most recently created approval for the
// run, or ErrApprovalNotFound if the run has none.
func (s *Store) LatestApprovalForRun(ctx context.Context, runID int64) (*Approval, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, created_at, agent_run_id, status, risk_level, policy_decision,
			decided_at, decided_by, decision_reason
		FROM approvals WHERE agent_run_id = ?
		ORDER BY created_at DESC, id DESC LIMIT 1`, runID)

	approval, err := scanApproval(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrApprovalNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying approval: %w", err)
	}
	return approval, nil
}

// ListApprovals returns approvals newest first, optionally filtered by
// status, each joined with the originating run's prompt. A zero limit
// defaults to 100.
func (s *Store) ListApprovals(ctx context.Context, status ApprovalStatus, limit int) ([]*Approval, error) {
	ctx, span := tracer.Start(ctx, "store.list_approvals",
		trace.WithAttributes(attribute.String("status", string(status))))
	defer span.End()

	query := `
		SELECT a.id, a.created_at, a.agent_run_id, a.status, a.risk_level,
			a.policy_decision, a.decided_at, a.decided_by, a.decision_reason,
			COALESCE(r.prompt, '')
		FROM approvals a
		LEFT JOIN agent_runs r ON r.id = a.agent_run_id
		WHERE 1=1`
	args := []interface{}{}

	if status != "" {
		query += ` AND a.status = ?`
		args = append(args, string(status))
	}

	if limit <= 0 {
		limit = 100
	}
	query += ` ORDER BY a.created_at DESC, a.id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying approvals: %w", err)
	}
	defer rows.Close()

	var approvals []*Approval
	for rows.Next() {
		var a Approval
		var decidedAt sql.NullTime
		var decidedBy, reason sql.NullString
		err := rows.Scan(&a.ID, &a.CreatedAt, &a.AgentRunID, &a.Status,
			&a.RiskLevel, &a.PolicyDecision, &decidedAt, &decidedBy, &reason, &a.Prompt)
		if err != nil {
			return nil, fmt.Errorf("scanning approval: %w", err)
		}
		applyDecision(&a, decidedAt, decidedBy, reason)
		approvals = append(approvals, &a)
	}
	return approvals, rows.Err()
}

// Approve marks a pending approval as approved. Returns
// ErrApprovalNotPending if the record was already decided.
func (s *Store) Approve(ctx context.Context, id int64, decidedBy, reason string) error {
	return s.decideApproval(ctx, id, ApprovalApproved, decidedBy, reason)
}

// Reject marks a pending approval as rejected.
func (s *Store) Reject(ctx context.Context, id int64, decidedBy, reason string) error {
	return s.decideApproval(ctx, id, ApprovalRejected, decidedBy, reason)
}

// decideApproval performs the single allowed transition out of pending. The
// status guard in the WHERE clause makes the update a compare-and-set, so a
// lost race surfaces as zero affected rows rather than a silent overwrite.
func (s *Store) decideApproval(ctx context.Context, id int64, status ApprovalStatus, decidedBy, reason string) error {
	ctx, span := tracer.Start(ctx, "store.decide_approval",
		trace.WithAttributes(
			attribute.Int64("approval_id", id),
			attribute.String("status", string(status)),
		))
	defer span.End()

	now := time.Now().UTC()
	result, err := s.db.ExecContext(ctx, `
		UPDATE approvals SET status = ?, decided_at = ?, decided_by = ?, decision_reason = ?
		WHERE id = ? AND status = 'pending'`,
		string(status), now, decidedBy, reason, id,
	)
	if err != nil {
		return fmt.Errorf("updating approval: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		if _, err := s.GetApproval(ctx, id); err != nil {
			return err
		}
		return ErrApprovalNotPending
	}

	log.Info().Int64("approval_id", id).Str("status", string(status)).
		Str("decided_by", decidedBy).Msg("approval_decided")
	return nil
}

func scanApproval(row rowScanner) (*Approval, error) {
	var a Approval
	var decidedAt sql.NullTime
	var decidedBy, reason sql.NullString

	err := row.Scan(&a.ID, &a.CreatedAt, &a.AgentRunID, &a.Status, &a.RiskLevel,
		&a.PolicyDecision, &decidedAt, &decidedBy, &reason)
	if err != nil {
		return nil, err
	}
	applyDecision(&a, decidedAt, decidedBy, reason)
	return &a, nil
}

func applyDecision(a *Approval, decidedAt sql.NullTime, decidedBy, reason sql.NullString) {
	if decidedAt.Valid {
		t := decidedAt.Time
		a.DecidedAt = &t
	}
	if decidedBy.Valid {
		a.DecidedBy = decidedBy.String
	}
	if reason.Valid {
		a.DecisionReason = reason.String
	}
}
