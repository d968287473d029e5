package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/brindle-systems/swarm/pkg/lifecycle"
	"github.com/brindle-systems/swarm/pkg/orchestrator"
	"github.com/brindle-systems/swarm/pkg/service"
)

// writeServiceError maps a pkg/service/pkg/orchestrator error to the HTTP
// status spec §7's error taxonomy assigns it and writes the JSON body.
// Per §7's propagation policy, only framework errors (InvalidInput,
// PoolInstantiationFailed, InvalidTransition, unknown workflow/agent) ever
// reach this mapping — per-step worker failures are materialized inside a
// 200 response's step records instead.
func writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidRequest), errors.Is(err, orchestrator.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, orchestrator.ErrWorkflowNotFound), errors.Is(err, lifecycle.ErrUnknownAgent):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, orchestrator.ErrAlreadyExecuted), errors.Is(err, lifecycle.ErrInvalidTransition), errors.Is(err, lifecycle.ErrDependencyBlocked):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		slog.Error("unexpected service error", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
