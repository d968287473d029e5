package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/brindle-systems/swarm/pkg/bus"
	"github.com/brindle-systems/swarm/pkg/cache"
	"github.com/brindle-systems/swarm/pkg/clock"
	"github.com/brindle-systems/swarm/pkg/config"
	"github.com/brindle-systems/swarm/pkg/evolution"
	"github.com/brindle-systems/swarm/pkg/lifecycle"
	"github.com/brindle-systems/swarm/pkg/limiter"
	"github.com/brindle-systems/swarm/pkg/orchestrator"
	"github.com/brindle-systems/swarm/pkg/poolmaker"
	"github.com/brindle-systems/swarm/pkg/service"
	"github.com/brindle-systems/swarm/pkg/store"
	"github.com/brindle-systems/swarm/pkg/worker"
)

type fixedAnalyzer struct {
	req *config.Requirements
}

func (a *fixedAnalyzer) AnalyzeRequirements(_ context.Context, _ string, _ map[string]interface{}) (*config.Requirements, error) {
	return a.req, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clk := clock.NewFixed(time.Unix(0, 0))
	idgen := clock.NewSeededIDGen("wf")

	req := &config.Requirements{Flags: config.Flags{HasTesting: true, HasDocumentation: true}}
	req.ApplyDefaults(logger)

	st := store.NewMemory()
	b := bus.New(bus.Config{}, logger)
	lc := lifecycle.New(lifecycle.Config{StaleThreshold: time.Hour, SweepInterval: time.Hour}, clk, st, b, logger)
	evo := evolution.New(clk, clock.NewSeededIDGen("ver"), logger)
	lim := limiter.New(limiter.Config{}, logger)
	breakers := limiter.NewRegistry(limiter.BreakerConfig{})

	var ids []string
	for _, tmpl := range config.BuiltinTemplates() {
		ids = append(ids, tmpl.TemplateID)
	}
	templates := config.NewTemplateRegistry(config.BuiltinTemplates())
	factories := worker.NewRegistry()
	worker.RegisterDefaults(factories, ids)
	pm := poolmaker.New(&fixedAnalyzer{req: req}, templates, factories, &worker.StubLLMClient{Response: "ok"}, idgen, logger)

	cch := cache.NewMemory()
	orch := orchestrator.New(orchestrator.Config{MaxExecutionTime: 5 * time.Second}, pm, templates, lc, evo, lim, breakers, b, st, cch, clk, idgen, logger)
	svc := service.New(service.Config{StreamIdleHeartbeat: 20 * time.Millisecond}, orch, templates, lc, b, clk, idgen, logger)

	t.Cleanup(func() {
		lc.Stop()
		lim.Stop()
		b.Stop()
		cch.Close()
	})

	return NewServer(svc, logger)
}

func TestCreateAndExecuteWorkflowEndpoints(t *testing.T) {
	s := newTestServer(t)

	body, _ := json.Marshal(map[string]interface{}{"user_text": "write some docs", "session_id": "s1", "user_id": "u1"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/workflows", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created service.CreateWorkflowResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.WorkflowID)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/workflows/"+created.WorkflowID+"/execute", nil)
	rec = httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var executed service.ExecuteWorkflowResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &executed))
	require.Equal(t, "Completed", executed.Status)
}

func TestGetWorkflowStatusEndpointNotFound(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/workflows/missing", nil)
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Equal(t, "healthy", out["status"])
}

func TestPauseAndCancelEndpoints(t *testing.T) {
	s := newTestServer(t)

	body, _ := json.Marshal(map[string]interface{}{"user_text": "pause me", "session_id": "s1", "user_id": "u1"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/workflows", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	var created service.CreateWorkflowResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	req = httptest.NewRequest(http.MethodPost, "/api/v1/workflows/"+created.WorkflowID+"/pause", nil)
	rec = httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var paused service.ControlResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &paused))
	require.Equal(t, "Paused", paused.Status)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/workflows/"+created.WorkflowID+"/cancel", nil)
	rec = httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var cancelled service.ControlResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cancelled))
	require.Equal(t, "Cancelled", cancelled.Status)
}

func TestListActiveWorkflowsEndpoint(t *testing.T) {
	s := newTestServer(t)

	body, _ := json.Marshal(map[string]interface{}{"user_text": "one", "session_id": "s1", "user_id": "u1"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/workflows", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/workflows", nil)
	rec = httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var list service.ListActiveWorkflowsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Workflows, 1)
}

func TestStreamWorkflowUpdatesEndpoint(t *testing.T) {
	s := newTestServer(t)
	httpSrv := httptest.NewServer(s.engine)
	defer httpSrv.Close()

	body, _ := json.Marshal(map[string]interface{}{"user_text": "stream me", "session_id": "s1", "user_id": "u1"})
	resp, err := http.Post(httpSrv.URL+"/api/v1/workflows", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	var created service.CreateWorkflowResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))

	wsURL := "ws" + httpSrv.URL[len("http"):] + "/api/v1/workflows/" + created.WorkflowID + "/stream"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// The handshake completes before the handler registers its bus inbox;
	// give it a moment so the execute below isn't dropped as addressed to an
	// unknown recipient.
	time.Sleep(50 * time.Millisecond)

	go func() {
		_, err := http.Post(httpSrv.URL+"/api/v1/workflows/"+created.WorkflowID+"/execute", "application/json", nil)
		require.NoError(t, err)
	}()

	var update service.StreamUpdate
	require.NoError(t, conn.ReadJSON(&update))
	require.NotEmpty(t, update.UpdateID)
}
