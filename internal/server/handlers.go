package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/Kushall-07/Ai-tower/internal/agent"
	"github.com/Kushall-07/Ai-tower/internal/dataset"
	"github.com/Kushall-07/Ai-tower/internal/requestctx"
	"github.com/Kushall-07/Ai-tower/internal/store"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeDomainError maps domain sentinels onto HTTP statuses: missing
// records are 404, illegal state transitions 409, execution without
// clearance 403, bad input 400. Anything unrecognized is a 500.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, agent.ErrEmptyPrompt),
		errors.Is(err, agent.ErrInvalidActionType):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, store.ErrRunNotFound),
		errors.Is(err, store.ErrApprovalNotFound),
		errors.Is(err, store.ErrActionNotFound),
		errors.Is(err, dataset.ErrDatasetNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, store.ErrApprovalNotPending),
		errors.Is(err, store.ErrActionTerminal):
		writeError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, agent.ErrActionNotPermitted):
		writeError(w, http.StatusForbidden, "approval_required", err.Error())
	case errors.Is(err, dataset.ErrUnsupportedSource),
		errors.Is(err, dataset.ErrUnsupportedOperation):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	default:
		log.Error().Err(err).Msg("request_failed")
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
	}
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func queryInt(r *http.Request, name string, fallback int) int {
	if raw := r.URL.Query().Get(name); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			return v
		}
	}
	return fallback
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "AI Control Tower backend running"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.startTime).String(),
	})
}

type agentRunRequest struct {
	Prompt string `json:"prompt"`
}

func (s *Server) handleAgentRun(w http.ResponseWriter, r *http.Request) {
	var req agentRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON: "+err.Error())
		return
	}

	result, err := s.runner.Run(r.Context(), req.Prompt)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	log.Info().Int64("run_id", result.Run.ID).
		Str("caller", requestctx.Caller(r.Context())).Msg("agent_run_served")
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleLogsRecent(w http.ResponseWriter, r *http.Request) {
	runs, err := s.store.ListRuns(r.Context(), store.RunFilter{
		RiskLevel:      r.URL.Query().Get("risk_level"),
		PolicyDecision: r.URL.Query().Get("policy_decision"),
		Limit:          queryInt(r, "limit", 50),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if runs == nil {
		runs = []*store.AgentRun{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleLogsAnalytics(w http.ResponseWriter, r *http.Request) {
	analytics, err := s.store.RunAnalytics(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, analytics)
}

func (s *Server) handleRunGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid run id")
		return
	}
	run, err := s.store.GetRun(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleRunVerify(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid run id")
		return
	}
	valid, err := s.store.VerifyRun(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"run_id": id, "valid": valid})
}

func (s *Server) handleApprovalsPending(w http.ResponseWriter, r *http.Request) {
	s.listApprovals(w, r, store.ApprovalPending, queryInt(r, "limit", 100))
}

func (s *Server) handleApprovalsAll(w http.ResponseWriter, r *http.Request) {
	s.listApprovals(w, r, store.ApprovalStatus(r.URL.Query().Get("status")), queryInt(r, "limit", 200))
}

func (s *Server) listApprovals(w http.ResponseWriter, r *http.Request, status store.ApprovalStatus, limit int) {
	approvals, err := s.store.ListApprovals(r.Context(), status, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if approvals == nil {
		approvals = []*store.Approval{}
	}
	writeJSON(w, http.StatusOK, approvals)
}

type approvalDecisionRequest struct {
	DecidedBy string `json:"decided_by"`
	Reason    string `json:"reason"`
}

func (s *Server) handleApprovalApprove(w http.ResponseWriter, r *http.Request) {
	s.decideApproval(w, r, s.runner.Approve)
}

func (s *Server) handleApprovalReject(w http.ResponseWriter, r *http.Request) {
	s.decideApproval(w, r, s.runner.Reject)
}

func (s *Server) decideApproval(w http.ResponseWriter, r *http.Request,
	decide func(ctx context.Context, id int64, decidedBy, reason string) (*store.Approval, error)) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid approval id")
		return
	}

	var req approvalDecisionRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	if req.DecidedBy == "" {
		req.DecidedBy = requestctx.Caller(r.Context())
	}

	approval, err := decide(r.Context(), id, req.DecidedBy, req.Reason)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, approval)
}

type actionSimulateRequest struct {
	AgentRunID int64                  `json:"agent_run_id"`
	Type       string                 `json:"type"`
	Payload    map[string]interface{} `json:"payload"`
}

func (s *Server) handleActionSimulate(w http.ResponseWriter, r *http.Request) {
	var req actionSimulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON: "+err.Error())
		return
	}
	if req.Type == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "type is required")
		return
	}

	action, err := s.runner.Simulate(r.Context(), req.AgentRunID, req.Type, req.Payload)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, action)
}

func (s *Server) handleActionsByRun(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid run id")
		return
	}
	actions, err := s.store.ActionsByRun(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if actions == nil {
		actions = []*store.Action{}
	}
	writeJSON(w, http.StatusOK, actions)
}

func (s *Server) handleActionsAll(w http.ResponseWriter, r *http.Request) {
	actions, err := s.store.ListActions(r.Context(),
		store.ActionStatus(r.URL.Query().Get("status")), queryInt(r, "limit", 100))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if actions == nil {
		actions = []*store.Action{}
	}
	writeJSON(w, http.StatusOK, actions)
}

func (s *Server) handleActionExecute(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid action id")
		return
	}
	action, err := s.runner.Execute(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, action)
}

func (s *Server) handleActionCancel(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid action id")
		return
	}
	action, err := s.runner.Cancel(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, action)
}

func (s *Server) handlePolicyGet(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"policy":  s.policy.Decisions,
		"actions": s.policy.Actions,
		"version": s.policy.VersionTag,
	})
}

func (s *Server) handleDataSources(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"sources": s.datasets.Sources()})
}

func (s *Server) handleDataDatasets(w http.ResponseWriter, r *http.Request) {
	source := r.URL.Query().Get("source")
	names, err := s.datasets.Datasets(source)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"source": source, "datasets": names})
}

func (s *Server) handleDataQuery(w http.ResponseWriter, r *http.Request) {
	var req dataset.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON: "+err.Error())
		return
	}

	result, err := s.datasets.Query(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
