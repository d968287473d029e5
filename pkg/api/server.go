// Package api exposes the Workflow Service (spec §6) over HTTP, using gin
// for request routing and gorilla/websocket for the streaming endpoint.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/brindle-systems/swarm/pkg/service"
)

// Server is the HTTP API server fronting a Workflow Service.
type Server struct {
	engine     *gin.Engine
	httpServer *http.Server
	svc        *service.Service
	logger     *slog.Logger
	upgrader   websocket.Upgrader
}

// NewServer builds a Server wired to svc and registers every route.
func NewServer(svc *service.Service, logger *slog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	e := gin.New()
	e.Use(gin.Recovery(), securityHeaders())

	s := &Server{
		engine: e,
		svc:    svc,
		logger: logger,
		// Streaming is consumed by trusted first-party clients in this
		// deployment shape; auth and origin restriction are deferred to the
		// ambient stack's outer layer (spec §7 scopes framework errors only).
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(_ *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}

	s.setupRoutes()
	return s
}

// setupRoutes registers every route of spec §6's external interface.
func (s *Server) setupRoutes() {
	s.engine.GET("/health", s.healthHandler)

	v1 := s.engine.Group("/api/v1")
	v1.POST("/workflows", s.createWorkflowHandler)
	v1.GET("/workflows", s.listActiveWorkflowsHandler)
	v1.GET("/workflows/:id", s.getWorkflowStatusHandler)
	v1.POST("/workflows/:id/execute", s.executeWorkflowHandler)
	v1.POST("/workflows/:id/pause", s.pauseWorkflowHandler)
	v1.POST("/workflows/:id/resume", s.resumeWorkflowHandler)
	v1.POST("/workflows/:id/cancel", s.cancelWorkflowHandler)
	v1.GET("/workflows/:id/stream", s.streamWorkflowUpdatesHandler)
}

// Start starts the HTTP server on addr (blocking).
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{Addr: addr, Handler: s.engine}
	return s.httpServer.ListenAndServe()
}

// StartWithListener starts the HTTP server on a pre-created listener. Used by
// test infrastructure to serve on a random OS-assigned port.
func (s *Server) StartWithListener(ln net.Listener) error {
	s.httpServer = &http.Server{Handler: s.engine}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// healthHandler handles GET /health (spec §6 CLI/demo surface).
func (s *Server) healthHandler(c *gin.Context) {
	stats := s.svc.Stats()
	c.JSON(http.StatusOK, gin.H{
		"status":           "healthy",
		"active_workflows": stats.ActiveWorkflows,
		"active_agents":    stats.ActiveAgents,
	})
}

type createWorkflowBody struct {
	UserText           string                 `json:"user_text" binding:"required"`
	SessionID          string                 `json:"session_id"`
	UserID             string                 `json:"user_id"`
	Hints              map[string]interface{} `json:"hints"`
	ContinueOnFailure  bool                   `json:"continue_on_failure"`
	AutoApplyEvolution bool                   `json:"auto_apply_evolution"`
}

func (s *Server) createWorkflowHandler(c *gin.Context) {
	var body createWorkflowBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := s.svc.CreateWorkflow(c.Request.Context(), service.CreateWorkflowRequest{
		UserText:           body.UserText,
		SessionID:          body.SessionID,
		UserID:             body.UserID,
		Hints:              body.Hints,
		ContinueOnFailure:  body.ContinueOnFailure,
		AutoApplyEvolution: body.AutoApplyEvolution,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (s *Server) executeWorkflowHandler(c *gin.Context) {
	resp, err := s.svc.ExecuteWorkflow(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) getWorkflowStatusHandler(c *gin.Context) {
	resp, err := s.svc.GetWorkflowStatus(c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) listActiveWorkflowsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, s.svc.ListActiveWorkflows(c.Query("user_id")))
}

func (s *Server) pauseWorkflowHandler(c *gin.Context) {
	resp, err := s.svc.PauseWorkflow(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) resumeWorkflowHandler(c *gin.Context) {
	resp, err := s.svc.ResumeWorkflow(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) cancelWorkflowHandler(c *gin.Context) {
	resp, err := s.svc.CancelWorkflow(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// streamWorkflowUpdatesHandler upgrades to a websocket and forwards every
// StreamUpdate (spec §6 stream_workflow_updates) as a JSON text frame.
func (s *Server) streamWorkflowUpdatesHandler(c *gin.Context) {
	workflowID := c.Param("id")

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "workflow_id", workflowID, "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// A read loop is required so the connection notices client-initiated
	// close frames and unblocks the stream below.
	go func() {
		for {
			if _, _, err := conn.NextReader(); err != nil {
				cancel()
				return
			}
		}
	}()

	err = s.svc.StreamWorkflowUpdates(ctx, workflowID, func(u service.StreamUpdate) error {
		conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		return conn.WriteJSON(u)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Warn("stream ended with error", "workflow_id", workflowID, "error", err)
	}
}
