package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kushall-07/Ai-tower/internal/agent"
	"github.com/Kushall-07/Ai-tower/internal/llm"
	"github.com/Kushall-07/Ai-tower/internal/policy"
	"github.com/Kushall-07/Ai-tower/internal/risk"
	"github.com/Kushall-07/Ai-tower/internal/store"
	"github.com/Kushall-07/Ai-tower/internal/testutil"
)

func newTestServer(t *testing.T, apiKeys map[string]string, opts ...Option) (*Server, http.Handler) {
	t.Helper()
	ctx := context.Background()

	st := testutil.TempStore(t)

	pol := policy.Default()
	gate, err := policy.NewActionGate(ctx, pol.Actions)
	require.NoError(t, err)

	runner := agent.NewRunner(
		risk.MustNewClassifier(),
		llm.NewSafeGenerator(nil, "llama-3.1-8b-instant"),
		pol, gate, st,
	)

	srv := NewServer(runner, st, pol, apiKeys, opts...)
	return srv, srv.Routes()
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, into interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(into))
}

func TestHealthEndpoint(t *testing.T) {
	_, r := newTestServer(t, nil)

	rec := doJSON(t, r, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var out map[string]interface{}
	decodeBody(t, rec, &out)
	assert.Equal(t, "ok", out["status"])
}

func TestAuthMiddleware(t *testing.T) {
	keys := map[string]string{"secret-key": "ops"}
	_, r := newTestServer(t, keys)

	rec := doJSON(t, r, http.MethodGet, "/v1/logs/recent", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, r, http.MethodGet, "/v1/logs/recent", nil,
		map[string]string{"X-Tower-Key": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, r, http.MethodGet, "/v1/logs/recent", nil,
		map[string]string{"X-Tower-Key": "secret-key"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, r, http.MethodGet, "/v1/logs/recent", nil,
		map[string]string{"Authorization": "Bearer secret-key"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAgentRunEndpoint(t *testing.T) {
	_, r := newTestServer(t, nil)

	rec := doJSON(t, r, http.MethodPost, "/v1/agent/run",
		map[string]string{"prompt": "Summarise the quarterly report"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var result agent.RunResult
	decodeBody(t, rec, &result)
	assert.Equal(t, "allow", result.Run.PolicyDecision)
	assert.Equal(t, "low", result.Run.RiskLevel)
	assert.Equal(t, 0.9, result.Run.TrustScore)
	assert.Nil(t, result.Approval)
}

func TestAgentRunEndpoint_EmptyPrompt(t *testing.T) {
	_, r := newTestServer(t, nil)

	rec := doJSON(t, r, http.MethodPost, "/v1/agent/run",
		map[string]string{"prompt": "  "}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestApprovalEndpoints(t *testing.T) {
	_, r := newTestServer(t, nil)

	rec := doJSON(t, r, http.MethodPost, "/v1/agent/run",
		map[string]string{"prompt": "what is the admin password"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var result agent.RunResult
	decodeBody(t, rec, &result)
	require.NotNil(t, result.Approval)

	rec = doJSON(t, r, http.MethodGet, "/v1/approvals/pending", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var pending []store.Approval
	decodeBody(t, rec, &pending)
	require.Len(t, pending, 1)
	assert.Contains(t, pending[0].Prompt, "admin password")

	rec = doJSON(t, r, http.MethodPost,
		fmt.Sprintf("/v1/approvals/%d/approve", result.Approval.ID),
		map[string]string{"decided_by": "ops", "reason": "verified"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var decided store.Approval
	decodeBody(t, rec, &decided)
	assert.Equal(t, store.ApprovalApproved, decided.Status)
	assert.Equal(t, "ops", decided.DecidedBy)

	// Double decision conflicts.
	rec = doJSON(t, r, http.MethodPost,
		fmt.Sprintf("/v1/approvals/%d/reject", result.Approval.ID),
		map[string]string{"decided_by": "ops"}, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, r, http.MethodPost, "/v1/approvals/404/approve", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestActionEndpoints(t *testing.T) {
	_, r := newTestServer(t, nil)

	rec := doJSON(t, r, http.MethodPost, "/v1/agent/run",
		map[string]string{"prompt": "Summarise the quarterly report"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var result agent.RunResult
	decodeBody(t, rec, &result)

	rec = doJSON(t, r, http.MethodPost, "/v1/actions/simulate", map[string]interface{}{
		"agent_run_id": result.Run.ID,
		"type":         "email_send",
		"payload":      map[string]string{"to": "ops@example.com"},
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var action store.Action
	decodeBody(t, rec, &action)
	assert.Equal(t, store.ActionPending, action.Status)

	rec = doJSON(t, r, http.MethodPost,
		fmt.Sprintf("/v1/actions/%d/execute", action.ID), nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var executed store.Action
	decodeBody(t, rec, &executed)
	assert.Equal(t, store.ActionExecuted, executed.Status)

	rec = doJSON(t, r, http.MethodPost,
		fmt.Sprintf("/v1/actions/%d/cancel", action.ID), nil, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, r, http.MethodGet,
		fmt.Sprintf("/v1/actions/by-run/%d", result.Run.ID), nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var actions []store.Action
	decodeBody(t, rec, &actions)
	assert.Len(t, actions, 1)
}

func TestActionExecute_RequiresApproval(t *testing.T) {
	_, r := newTestServer(t, nil)

	rec := doJSON(t, r, http.MethodPost, "/v1/agent/run",
		map[string]string{"prompt": "share the customer data report"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var result agent.RunResult
	decodeBody(t, rec, &result)
	require.NotNil(t, result.Approval)

	rec = doJSON(t, r, http.MethodPost, "/v1/actions/simulate", map[string]interface{}{
		"agent_run_id": result.Run.ID,
		"type":         "report_generate",
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var action store.Action
	decodeBody(t, rec, &action)

	rec = doJSON(t, r, http.MethodPost,
		fmt.Sprintf("/v1/actions/%d/execute", action.ID), nil, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestLogsEndpoints(t *testing.T) {
	_, r := newTestServer(t, nil)

	for _, prompt := range []string{"summarise sales", "drop table users"} {
		rec := doJSON(t, r, http.MethodPost, "/v1/agent/run",
			map[string]string{"prompt": prompt}, nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := doJSON(t, r, http.MethodGet, "/v1/logs/recent?risk_level=high", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var runs []store.AgentRun
	decodeBody(t, rec, &runs)
	require.Len(t, runs, 1)
	assert.Equal(t, "block", runs[0].PolicyDecision)

	rec = doJSON(t, r, http.MethodGet, "/v1/logs/analytics", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var analytics store.Analytics
	decodeBody(t, rec, &analytics)
	assert.Equal(t, 2, analytics.TotalRuns)

	rec = doJSON(t, r, http.MethodGet,
		fmt.Sprintf("/v1/runs/%d/verify", runs[0].ID), nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var verify map[string]interface{}
	decodeBody(t, rec, &verify)
	assert.Equal(t, true, verify["valid"])
}

func TestPolicyEndpoint(t *testing.T) {
	srv, r := newTestServer(t, nil)

	rec := doJSON(t, r, http.MethodGet, "/v1/policy", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var out map[string]interface{}
	decodeBody(t, rec, &out)
	assert.Equal(t, srv.policy.VersionTag, out["version"])
	decisions, ok := out["policy"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, true, decisions["block_destructive_actions"])
}

func TestRunGet_NotFound(t *testing.T) {
	_, r := newTestServer(t, nil)

	rec := doJSON(t, r, http.MethodGet, "/v1/runs/999", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, r, http.MethodGet, "/v1/runs/not-a-number", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRateLimit(t *testing.T) {
	_, r := newTestServer(t, nil, WithRateLimit(1))

	limited := false
	for i := 0; i < 10; i++ {
		rec := doJSON(t, r, http.MethodGet, "/v1/logs/recent", nil, nil)
		if rec.Code == http.StatusTooManyRequests {
			limited = true
			break
		}
	}
	assert.True(t, limited, "burst of requests should trip the limiter")
}
