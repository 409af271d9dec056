package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ActionStatus is the lifecycle state of a proposed action.
type ActionStatus string

const (
	ActionPending   ActionStatus = "pending"
	ActionSimulated ActionStatus = "simulated"
	ActionExecuted  ActionStatus = "executed"
	ActionCancelled ActionStatus = "cancelled"
)

// Terminal reports whether no further transitions are allowed from the status.
func (s ActionStatus) Terminal() bool {
	return s == ActionExecuted || s == ActionCancelled
}

// Action is a side effect an agent proposed against the outside world.
// Risky action types start pending (awaiting execution clearance); everything
// else starts simulated. Executed and cancelled are terminal.
type Action struct {
	ID              int64                  `json:"id"`
	CreatedAt       time.Time              `json:"created_at"`
	AgentRunID      int64                  `json:"agent_run_id"`
	Type            string                 `json:"type"`
	Payload         map[string]interface{} `json:"payload"`
	Status          ActionStatus           `json:"status"`
	ExecutedAt      *time.Time             `json:"executed_at,omitempty"`
	ExecutionResult map[string]interface{} `json:"execution_result,omitempty"`
}

// CreateAction persists a new action in the given initial status.
func (s *Store) CreateAction(ctx context.Context, runID int64, actionType string, payload map[string]interface{}, status ActionStatus) (*Action, error) {
	ctx, span := tracer.Start(ctx, "store.create_action",
		trace.WithAttributes(
			attribute.Int64("run_id", runID),
			attribute.String("action_type", actionType),
			attribute.String("status", string(status)),
		))
	defer span.End()

	if payload == nil {
		payload = map[string]interface{}{}
	}
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling payload: %w", err)
	}

	action := &Action{
		CreatedAt:  time.Now().UTC(),
		AgentRunID: runID,
		Type:       actionType,
		Payload:    payload,
		Status:     status,
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO actions (created_at, agent_run_id, type, payload_json, status)
		VALUES (?, ?, ?, ?, ?)`,
		action.CreatedAt, action.AgentRunID, action.Type, string(payloadJSON), string(action.Status),
	)
	if err != nil {
		return nil, fmt.Errorf("storing action: %w", err)
	}

	action.ID, err = result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading action id: %w", err)
	}

	log.Info().Int64("action_id", action.ID).Int64("run_id", runID).
		Str("type", actionType).Str("status", string(status)).Msg("action_created")
	return action, nil
}

// GetAction retrieves an action by ID.
func (s *Store) GetAction(ctx context.Context, id int64) (*Action, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, created_at, agent_run_id, type, payload_json, status,
			executed_at, execution_result_json
		FROM actions WHERE id = ?`, id)

	action, err := scanAction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrActionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying action: %w", err)
	}
	return action, nil
}

// ActionsByRun returns all actions for the run, newest first.
func (s *Store) ActionsByRun(ctx context.Context, runID int64) ([]*Action, error) {
	return s.queryActions(ctx, `
		SELECT id, created_at, agent_run_id, type, payload_json, status,
			executed_at, execution_result_json
		FROM actions WHERE agent_run_id = ?
		ORDER BY created_at DESC, id DESC`, runID)
}

// ListActions returns actions newest first, optionally filtered by status.
// A zero limit defaults to 100.
func (s *Store) ListActions(ctx context.Context, status ActionStatus, limit int) ([]*Action, error) {
	query := `
		SELECT id, created_at, agent_run_id, type, payload_json, status,
			executed_at, execution_result_json
		FROM actions WHERE 1=1`
	args := []interface{}{}

	if status != "" {
		query += ` AND status = ?`
		args = append(args, string(status))
	}
	if limit <= 0 {
		limit = 100
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	return s.queryActions(ctx, query, args...)
}

// MarkExecuted transitions a pending or simulated action to executed,
// recording the execution result. Returns ErrActionTerminal if the action
// was already executed or cancelled.
func (s *Store) MarkExecuted(ctx context.Context, id int64, result map[string]interface{}) error {
	ctx, span := tracer.Start(ctx, "store.mark_executed",
		trace.WithAttributes(attribute.Int64("action_id", id)))
	defer span.End()

	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshaling execution result: %w", err)
	}

	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE actions SET status = ?, executed_at = ?, execution_result_json = ?
		WHERE id = ? AND status IN ('pending', 'simulated')`,
		string(ActionExecuted), now, string(resultJSON), id,
	)
	if err != nil {
		return fmt.Errorf("updating action: %w", err)
	}

	rows, _ := res.RowsAffected()
	if rows == 0 {
		if _, err := s.GetAction(ctx, id); err != nil {
			return err
		}
		return ErrActionTerminal
	}

	log.Info().Int64("action_id", id).Msg("action_executed")
	return nil
}

// MarkCancelled transitions a pending or simulated action to cancelled.
func (s *Store) MarkCancelled(ctx context.Context, id int64) error {
	ctx, span := tracer.Start(ctx, "store.mark_cancelled",
		trace.WithAttributes(attribute.Int64("action_id", id)))
	defer span.End()

	res, err := s.db.ExecContext(ctx, `
		UPDATE actions SET status = ?
		WHERE id = ? AND status IN ('pending', 'simulated')`,
		string(ActionCancelled), id,
	)
	if err != nil {
		return fmt.Errorf("updating action: %w", err)
	}

	rows, _ := res.RowsAffected()
	if rows == 0 {
		if _, err := s.GetAction(ctx, id); err != nil {
			return err
		}
		return ErrActionTerminal
	}

	log.Info().Int64("action_id", id).Msg("action_cancelled")
	return nil
}

func (s *Store) queryActions(ctx context.Context, query string, args ...interface{}) ([]*Action, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying actions: %w", err)
	}
	defer rows.Close()

	var actions []*Action
	for rows.Next() {
		action, err := scanAction(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning action: %w", err)
		}
		actions = append(actions, action)
	}
	return actions, rows.Err()
}

func scanAction(row rowScanner) (*Action, error) {
	var a Action
	var payloadJSON string
	var executedAt sql.NullTime
	var resultJSON sql.NullString

	err := row.Scan(&a.ID, &a.CreatedAt, &a.AgentRunID, &a.Type, &payloadJSON,
		&a.Status, &executedAt, &resultJSON)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(payloadJSON), &a.Payload); err != nil {
		return nil, fmt.Errorf("unmarshaling payload: %w", err)
	}
	if executedAt.Valid {
		t := executedAt.Time
		a.ExecutedAt = &t
	}
	if resultJSON.Valid && resultJSON.String != "" {
		if err := json.Unmarshal([]byte(resultJSON.String), &a.ExecutionResult); err != nil {
			return nil, fmt.Errorf("unmarshaling execution result: %w", err)
		}
	}
	return &a, nil
}
