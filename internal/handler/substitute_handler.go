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

type substituteService interface {
	IdentifyCandidates(ctx context.Context, routineID, date string) ([]models.Teacher, error)
	Allocate(ctx context.Context, req dto.AllocateSubstituteRequest, requestedBy string) (*models.Substitution, error)
	Remove(ctx context.Context, id, actor string) error
	Get(ctx context.Context, id string) (*models.Substitution, error)
	ListByRoutine(ctx context.Context, routineID string) ([]models.Substitution, error)
	History(ctx context.Context, teacherID string) ([]models.Substitution, error)
	UpdateStatus(ctx context.Context, id string, req dto.UpdateSubstitutionStatusRequest, actor string) (*models.Substitution, error)
}

// SubstituteHandler exposes substitute allocation endpoints.
type SubstituteHandler struct {
	service substituteService
}

// NewSubstituteHandler builds a SubstituteHandler.
func NewSubstituteHandler(service substituteService) *SubstituteHandler {
	return &SubstituteHandler{service: service}
}

// Candidates godoc
// @Summary Teachers free to substitute a routine on a date
// @Tags Substitutes
// @Produce json
// @Param routineId query string true "Routine ID"
// @Param date query string true "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /substitutes/candidates [get]
func (h *SubstituteHandler) Candidates(c *gin.Context) {
	routineID := c.Query("routineId")
	date := c.Query("date")
	if routineID == "" || date == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "routineId and date are required"))
		return
	}
	teachers, err := h.service.IdentifyCandidates(c.Request.Context(), routineID, date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, teachers, nil)
}

// Allocate godoc
// @Summary Assign a substitute teacher
// @Tags Substitutes
// @Accept json
// @Produce json
// @Param payload body dto.AllocateSubstituteRequest true "Substitution payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /substitutes [post]
func (h *SubstituteHandler) Allocate(c *gin.Context) {
	var req dto.AllocateSubstituteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid substitution payload"))
		return
	}
	substitution, err := h.service.Allocate(c.Request.Context(), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, substitution)
}

// Get godoc
// @Summary Get a substitution
// @Tags Substitutes
// @Produce json
// @Param id path string true "Substitution ID"
// @Success 200 {object} response.Envelope
// @Router /substitutes/{id} [get]
func (h *SubstituteHandler) Get(c *gin.Context) {
	substitution, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, substitution, nil)
}

// UpdateStatus godoc
// @Summary Complete or cancel a substitution
// @Tags Substitutes
// @Accept json
// @Produce json
// @Param id path string true "Substitution ID"
// @Param payload body dto.UpdateSubstitutionStatusRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Router /substitutes/{id}/status [patch]
func (h *SubstituteHandler) UpdateStatus(c *gin.Context) {
	var req dto.UpdateSubstitutionStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid substitution status payload"))
		return
	}
	substitution, err := h.service.UpdateStatus(c.Request.Context(), c.Param("id"), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, substitution, nil)
}

// Remove godoc
// @Summary Remove a substitution
// @Tags Substitutes
// @Param id path string true "Substitution ID"
// @Success 204
// @Router /substitutes/{id} [delete]
func (h *SubstituteHandler) Remove(c *gin.Context) {
	if err := h.service.Remove(c.Request.Context(), c.Param("id"), actorID(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListByRoutine godoc
// @Summary Substitutions of a routine
// @Tags Substitutes
// @Produce json
// @Param id path string true "Routine ID"
// @Success 200 {object} response.Envelope
// @Router /routines/{id}/substitutes [get]
func (h *SubstituteHandler) ListByRoutine(c *gin.Context) {
	substitutions, err := h.service.ListByRoutine(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, substitutions, nil)
}

// History godoc
// @Summary Substitutions covering a teacher's routines
// @Tags Substitutes
// @Produce json
// @Param teacherId path string true "Teacher ID"
// @Success 200 {object} response.Envelope
// @Router /teachers/{teacherId}/substitutes [get]
func (h *SubstituteHandler) History(c *gin.Context) {
	substitutions, err := h.service.History(c.Request.Context(), c.Param("teacherId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, substitutions, nil)
}
