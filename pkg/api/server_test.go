package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perpctl/tradeagent/pkg/chat"
	"github.com/perpctl/tradeagent/pkg/config"
	"github.com/perpctl/tradeagent/pkg/models"
	"github.com/perpctl/tradeagent/pkg/orchestrator"
	"github.com/perpctl/tradeagent/pkg/scheduler"
	"github.com/perpctl/tradeagent/pkg/store/memstore"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubRunner struct{}

func (stubRunner) Run(_ context.Context, opts orchestrator.RunOptions) *orchestrator.RunResult {
	return &orchestrator.RunResult{Response: "ok: " + opts.Goal, Success: true}
}

func testServer(t *testing.T) (*Server, *memstore.Bundle) {
	t.Helper()
	bundle := memstore.New()
	sched := scheduler.New(bundle.Scheduler, &config.SchedulerConfig{PollInterval: time.Second, LeaseDuration: time.Minute}, "test-owner")
	chatSvc := &chat.Service{Orchestrator: stubRunner{}, Scheduler: sched, Tasks: bundle.Tasks}
	s := NewServer(config.DefaultConfig(), bundle.Journal, bundle.Incidents, bundle.Playbooks, bundle.Tasks, sched, bundle, chatSvc, nil)
	return s, bundle
}

func TestHealthHandler_HealthyWithNoJobs(t *testing.T) {
	s, _ := testServer(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "healthy", resp.Checks["store"].Status)
}

func TestHealthHandler_UnhealthyWhenJobMissing(t *testing.T) {
	bundle := memstore.New()
	sched := scheduler.New(bundle.Scheduler, &config.SchedulerConfig{PollInterval: time.Second, LeaseDuration: time.Minute}, "test-owner")
	s := NewServer(config.DefaultConfig(), bundle.Journal, bundle.Incidents, bundle.Playbooks, bundle.Tasks, sched, bundle, nil, []string{"autonomy_scan"})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "unhealthy", resp.Status)
	assert.Equal(t, "unhealthy", resp.Checks["scheduler:autonomy_scan"].Status)
}

func TestRecentJournalHandler(t *testing.T) {
	s, bundle := testServer(t)
	require.NoError(t, bundle.Journal.Append(context.Background(), &models.JournalEntry{
		ID: "j1", CreatedAt: time.Now().UTC(), Outcome: models.JournalExecuted, Symbol: "BTC",
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/journal/recent", nil)
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "BTC")
}

func TestGetPlaybookHandler_NotFound(t *testing.T) {
	s, _ := testServer(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/playbooks/missing", nil)
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestChatWebhookHandler_RoutesToOrchestrator(t *testing.T) {
	s, _ := testServer(t)

	rec := httptest.NewRecorder()
	body := `{"channel":"C1","sender_id":"U1","text":"what is my exposure"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat/webhook", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok: what is my exposure")
}

func TestListScheduledTasksHandler(t *testing.T) {
	s, _ := testServer(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat/webhook", strings.NewReader(`{"channel":"C1","sender_id":"U1","text":"/schedule in 5m | send pnl"}`))
	req.Header.Set("Content-Type", "application/json")
	s.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/v1/scheduled_tasks", nil)
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "send pnl")
}
