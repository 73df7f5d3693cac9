package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-routine-api/internal/dto"
	"github.com/noah-isme/sma-routine-api/internal/models"
	appErrors "github.com/noah-isme/sma-routine-api/pkg/errors"
	"github.com/noah-isme/sma-routine-api/pkg/response"
)

type conflictService interface {
	Check(ctx context.Context, req dto.CreateRoutineRequest) ([]models.Conflict, error)
	Get(ctx context.Context, id string) (*models.Conflict, error)
	ListUnresolved(ctx context.Context) ([]models.Conflict, error)
	CountUnresolved(ctx context.Context) (int, error)
	ListByRoutine(ctx context.Context, routineID string) ([]models.Conflict, error)
	UpdateStatus(ctx context.Context, id string, req dto.UpdateConflictStatusRequest, actor string) (*models.Conflict, error)
}

// ConflictHandler exposes the conflict ledger and the detection engine.
type ConflictHandler struct {
	service conflictService
}

// NewConflictHandler builds a ConflictHandler.
func NewConflictHandler(service conflictService) *ConflictHandler {
	return &ConflictHandler{service: service}
}

// Check godoc
// @Summary Detect conflicts for a proposed routine without scheduling it
// @Tags Conflicts
// @Accept json
// @Produce json
// @Param payload body dto.CreateRoutineRequest true "Routine proposal"
// @Success 200 {object} response.Envelope
// @Router /conflicts/check [post]
func (h *ConflictHandler) Check(c *gin.Context) {
	var req dto.CreateRoutineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid routine payload"))
		return
	}
	conflicts, err := h.service.Check(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, conflicts, nil, map[string]interface{}{"conflict_count": len(conflicts)})
}

// ListUnresolved godoc
// @Summary List unresolved conflicts, most severe first
// @Tags Conflicts
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /conflicts [get]
func (h *ConflictHandler) ListUnresolved(c *gin.Context) {
	conflicts, err := h.service.ListUnresolved(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, conflicts, nil)
}

// Summary godoc
// @Summary Count unresolved conflicts
// @Tags Conflicts
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /conflicts/summary [get]
func (h *ConflictHandler) Summary(c *gin.Context) {
	total, err := h.service.CountUnresolved(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.ConflictSummary{Unresolved: total}, nil)
}

// Get godoc
// @Summary Get a conflict
// @Tags Conflicts
// @Produce json
// @Param id path string true "Conflict ID"
// @Success 200 {object} response.Envelope
// @Router /conflicts/{id} [get]
func (h *ConflictHandler) Get(c *gin.Context) {
	conflict, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, conflict, nil)
}

// ListByRoutine godoc
// @Summary Conflicts involving a routine
// @Tags Conflicts
// @Produce json
// @Param id path string true "Routine ID"
// @Success 200 {object} response.Envelope
// @Router /routines/{id}/conflicts [get]
func (h *ConflictHandler) ListByRoutine(c *gin.Context) {
	conflicts, err := h.service.ListByRoutine(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, conflicts, nil)
}

// UpdateStatus godoc
// @Summary Acknowledge, resolve or ignore a conflict
// @Tags Conflicts
// @Accept json
// @Produce json
// @Param id path string true "Conflict ID"
// @Param payload body dto.UpdateConflictStatusRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Router /conflicts/{id}/status [patch]
func (h *ConflictHandler) UpdateStatus(c *gin.Context) {
	var req dto.UpdateConflictStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid conflict status payload"))
		return
	}
	conflict, err := h.service.UpdateStatus(c.Request.Context(), c.Param("id"), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, conflict, nil)
}
