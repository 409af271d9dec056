// Package store persists the control tower's audit trail in SQLite.
//
// Three tables back the gating pipeline: agent_runs is the immutable,
// HMAC-signed record of every run; approvals and actions are small state
// machines whose transitions are guarded with compare-and-set updates so
// concurrent reviewers cannot double-decide a record.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	towerotel "github.com/Kushall-07/Ai-tower/internal/otel"
)

var tracer = towerotel.Tracer("github.com/Kushall-07/Ai-tower/internal/store")

// Domain errors surfaced by the store. Callers map these to HTTP statuses
// with errors.Is.
var (
	ErrRunNotFound        = errors.New("agent run not found")
	ErrApprovalNotFound   = errors.New("approval not found")
	ErrApprovalNotPending = errors.New("approval is not in pending status")
	ErrActionNotFound     = errors.New("action not found")
	ErrActionTerminal     = errors.New("action is in a terminal status")
)

// Store wraps the SQLite database holding runs, approvals and actions.
type Store struct {
	db     *sql.DB
	signer *Signer
}

// Open opens (creating if needed) the tower database at dbPath and applies
// the schema. signingKey is used to HMAC-sign agent run records.
func Open(dbPath string, signingKey string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening tower database: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS agent_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		created_at DATETIME NOT NULL,
		correlation_id TEXT NOT NULL,
		prompt TEXT NOT NULL,
		response TEXT NOT NULL,
		model TEXT NOT NULL,
		trust_score REAL NOT NULL,
		risk_level TEXT NOT NULL,
		policy_decision TEXT NOT NULL,
		policy_risk_level TEXT NOT NULL,
		risk_flags_json TEXT NOT NULL,
		policy_reasons_json TEXT NOT NULL,
		llm_error TEXT,
		signature TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_created ON agent_runs(created_at);
	CREATE INDEX IF NOT EXISTS idx_runs_risk ON agent_runs(risk_level);
	CREATE INDEX IF NOT EXISTS idx_runs_decision ON agent_runs(policy_decision);

	CREATE TABLE IF NOT EXISTS approvals (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		created_at DATETIME NOT NULL,
		agent_run_id INTEGER NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		risk_level TEXT NOT NULL,
		policy_decision TEXT NOT NULL,
		decided_at DATETIME,
		decided_by TEXT,
		decision_reason TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_approvals_run ON approvals(agent_run_id);
	CREATE INDEX IF NOT EXISTS idx_approvals_status ON approvals(status);

	CREATE TABLE IF NOT EXISTS actions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		created_at DATETIME NOT NULL,
		agent_run_id INTEGER NOT NULL,
		type TEXT NOT NULL,
		payload_json TEXT NOT NULL,
		status TEXT NOT NULL,
		executed_at DATETIME,
		execution_result_json TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_actions_run ON actions(agent_run_id);
	CREATE INDEX IF NOT EXISTS idx_actions_status ON actions(status);
	`

	if _, err := db.ExecContext(context.Background(), schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating tower schema: %w", err)
	}

	signer, err := NewSigner(signingKey)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating signer: %w", err)
	}

	return &Store{db: db, signer: signer}, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle for callers that need raw access.
func (s *Store) DB() *sql.DB {
	return s.db
}
