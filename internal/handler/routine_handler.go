package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-routine-api/internal/dto"
	"github.com/noah-isme/sma-routine-api/internal/models"
	"github.com/noah-isme/sma-routine-api/internal/service"
	appErrors "github.com/noah-isme/sma-routine-api/pkg/errors"
	"github.com/noah-isme/sma-routine-api/pkg/response"
)

type routineService interface {
	Create(ctx context.Context, req dto.CreateRoutineRequest, actor string) (*service.RoutineResult, error)
	Update(ctx context.Context, id string, req dto.UpdateRoutineRequest, actor string) (*service.RoutineResult, error)
	Delete(ctx context.Context, id string, actor string) error
	Get(ctx context.Context, id string) (*models.Routine, error)
	ListByClass(ctx context.Context, classID string) ([]models.Routine, error)
	ListByTeacher(ctx context.Context, teacherID string) ([]models.Routine, error)
	ListByStatus(ctx context.Context, status models.RoutineStatus) ([]models.Routine, error)
	List(ctx context.Context, query dto.RoutineListQuery) ([]models.Routine, *models.Pagination, error)
}

// RoutineHandler exposes the routine lifecycle.
type RoutineHandler struct {
	service routineService
}

// NewRoutineHandler builds a RoutineHandler.
func NewRoutineHandler(service routineService) *RoutineHandler {
	return &RoutineHandler{service: service}
}

// List godoc
// @Summary List routines
// @Tags Routines
// @Produce json
// @Param class_id query string false "Class filter"
// @Param teacher_id query string false "Teacher filter"
// @Param room_id query string false "Room filter"
// @Param time_slot_id query string false "Time slot filter"
// @Param status query string false "ACTIVE, INACTIVE or CANCELLED"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /routines [get]
func (h *RoutineHandler) List(c *gin.Context) {
	var query dto.RoutineListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}
	routines, pagination, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, routines, pagination)
}

// Get godoc
// @Summary Get routine
// @Tags Routines
// @Produce json
// @Param id path string true "Routine ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /routines/{id} [get]
func (h *RoutineHandler) Get(c *gin.Context) {
	routine, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, routine, nil)
}

// ListByClass godoc
// @Summary Class timetable
// @Tags Routines
// @Produce json
// @Param classId path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /classes/{classId}/routines [get]
func (h *RoutineHandler) ListByClass(c *gin.Context) {
	routines, err := h.service.ListByClass(c.Request.Context(), c.Param("classId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, routines, nil)
}

// ListByTeacher godoc
// @Summary Teacher timetable
// @Tags Routines
// @Produce json
// @Param teacherId path string true "Teacher ID"
// @Success 200 {object} response.Envelope
// @Router /teachers/{teacherId}/routines [get]
func (h *RoutineHandler) ListByTeacher(c *gin.Context) {
	routines, err := h.service.ListByTeacher(c.Request.Context(), c.Param("teacherId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, routines, nil)
}

// ListByStatus godoc
// @Summary Routines by status
// @Tags Routines
// @Produce json
// @Param status path string true "ACTIVE, INACTIVE or CANCELLED"
// @Success 200 {object} response.Envelope
// @Router /routines/status/{status} [get]
func (h *RoutineHandler) ListByStatus(c *gin.Context) {
	routines, err := h.service.ListByStatus(c.Request.Context(), models.RoutineStatus(c.Param("status")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, routines, nil)
}

// Create godoc
// @Summary Schedule a routine
// @Description Rejected with 409 and the detected conflicts when the teacher, room or class is already booked in the slot.
// @Tags Routines
// @Accept json
// @Produce json
// @Param payload body dto.CreateRoutineRequest true "Routine payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /routines [post]
func (h *RoutineHandler) Create(c *gin.Context) {
	var req dto.CreateRoutineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid routine payload"))
		return
	}
	result, err := h.service.Create(c.Request.Context(), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	if !result.Committed() {
		response.Error(c, result.Err())
		return
	}
	response.Created(c, dto.RoutineResponse{Routine: result.Routine})
}

// Update godoc
// @Summary Update a routine
// @Tags Routines
// @Accept json
// @Produce json
// @Param id path string true "Routine ID"
// @Param payload body dto.UpdateRoutineRequest true "Routine payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /routines/{id} [put]
func (h *RoutineHandler) Update(c *gin.Context) {
	var req dto.UpdateRoutineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid routine payload"))
		return
	}
	result, err := h.service.Update(c.Request.Context(), c.Param("id"), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	if !result.Committed() {
		response.Error(c, result.Err())
		return
	}
	response.JSON(c, http.StatusOK, dto.RoutineResponse{Routine: result.Routine}, nil)
}

// Delete godoc
// @Summary Delete a routine and its ledger entries
// @Tags Routines
// @Param id path string true "Routine ID"
// @Success 204
// @Router /routines/{id} [delete]
func (h *RoutineHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), actorID(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
