package http

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/plateplan/backend/internal/domain"
	"github.com/plateplan/backend/internal/infrastructure/session"
	"github.com/plateplan/backend/internal/usecase"
)

// Handler holds dependencies for HTTP handlers
type Handler struct {
	solveService *usecase.SolveService
	sessions     *session.Store
}

// NewHandler creates a new HTTP handler
func NewHandler(solveService *usecase.SolveService, sessions *session.Store) *Handler {
	return &Handler{
		solveService: solveService,
		sessions:     sessions,
	}
}

// solveRequest is the wire form of a solve call: the engine request plus
// the optional supersede envelope (clientId + monotonically increasing seq).
type solveRequest struct {
	domain.SolveRequest
	ClientID string `json:"clientId,omitempty"`
	Seq      uint64 `json:"seq,omitempty"`
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "plateplan-backend",
		"version": "1.0.0",
	})
}

// SolveMeal handles meal solve requests. Infeasibility is a normal 200
// response value; only host failures become 5xx.
func (h *Handler) SolveMeal(c *gin.Context) {
	var req solveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	// The engine provides no in-flight cancellation, so superseding lives
	// here on the caller side: drop requests already outdated on arrival,
	// and discard results that went stale while solving.
	supersede := req.ClientID != ""
	if supersede && !h.sessions.Begin(req.ClientID, req.Seq) {
		c.JSON(http.StatusConflict, gin.H{"status": "superseded", "error": domain.ErrSuperseded.Error()})
		return
	}

	resp, err := h.solveService.Solve(c.Request.Context(), &req.SolveRequest)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidRequest) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		log.Printf("[http] solve failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "solve failed"})
		return
	}

	if supersede && !h.sessions.IsCurrent(req.ClientID, req.Seq) {
		c.JSON(http.StatusConflict, gin.H{"status": "superseded", "error": domain.ErrSuperseded.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}
