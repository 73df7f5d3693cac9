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

type calendarService interface {
	Day(ctx context.Context, date string) (*models.CalendarDay, error)
	ListHolidays(ctx context.Context, query dto.CalendarRangeQuery) ([]models.Holiday, error)
	GetHoliday(ctx context.Context, id string) (*models.Holiday, error)
	CreateHoliday(ctx context.Context, req dto.HolidayRequest, actor string) (*models.Holiday, error)
	UpdateHoliday(ctx context.Context, id string, req dto.HolidayRequest, actor string) (*models.Holiday, error)
	DeleteHoliday(ctx context.Context, id, actor string) error
	ListExamPeriods(ctx context.Context, query dto.CalendarRangeQuery) ([]models.ExamPeriod, error)
	GetExamPeriod(ctx context.Context, id string) (*models.ExamPeriod, error)
	CreateExamPeriod(ctx context.Context, req dto.ExamPeriodRequest, actor string) (*models.ExamPeriod, error)
	UpdateExamPeriod(ctx context.Context, id string, req dto.ExamPeriodRequest, actor string) (*models.ExamPeriod, error)
	DeleteExamPeriod(ctx context.Context, id, actor string) error
}

// CalendarHandler manages holidays and exam periods.
type CalendarHandler struct {
	service calendarService
}

// NewCalendarHandler builds a CalendarHandler.
func NewCalendarHandler(service calendarService) *CalendarHandler {
	return &CalendarHandler{service: service}
}

// Day godoc
// @Summary Holidays and exam periods on a date
// @Tags Calendar
// @Produce json
// @Param date path string true "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /calendar/days/{date} [get]
func (h *CalendarHandler) Day(c *gin.Context) {
	day, err := h.service.Day(c.Request.Context(), c.Param("date"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, day, nil)
}

// ListHolidays godoc
// @Summary List holidays
// @Tags Calendar
// @Produce json
// @Param from query string false "Earliest date (YYYY-MM-DD)"
// @Param to query string false "Latest date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /calendar/holidays [get]
func (h *CalendarHandler) ListHolidays(c *gin.Context) {
	var query dto.CalendarRangeQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid calendar range"))
		return
	}
	holidays, err := h.service.ListHolidays(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, holidays, nil)
}

// GetHoliday godoc
// @Summary Get a holiday
// @Tags Calendar
// @Produce json
// @Param id path string true "Holiday ID"
// @Success 200 {object} response.Envelope
// @Router /calendar/holidays/{id} [get]
func (h *CalendarHandler) GetHoliday(c *gin.Context) {
	holiday, err := h.service.GetHoliday(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, holiday, nil)
}

// CreateHoliday godoc
// @Summary Register a holiday
// @Tags Calendar
// @Accept json
// @Produce json
// @Param payload body dto.HolidayRequest true "Holiday payload"
// @Success 201 {object} response.Envelope
// @Router /calendar/holidays [post]
func (h *CalendarHandler) CreateHoliday(c *gin.Context) {
	var req dto.HolidayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid holiday payload"))
		return
	}
	holiday, err := h.service.CreateHoliday(c.Request.Context(), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, holiday)
}

// UpdateHoliday godoc
// @Summary Update a holiday
// @Tags Calendar
// @Accept json
// @Produce json
// @Param id path string true "Holiday ID"
// @Param payload body dto.HolidayRequest true "Holiday payload"
// @Success 200 {object} response.Envelope
// @Router /calendar/holidays/{id} [put]
func (h *CalendarHandler) UpdateHoliday(c *gin.Context) {
	var req dto.HolidayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid holiday payload"))
		return
	}
	holiday, err := h.service.UpdateHoliday(c.Request.Context(), c.Param("id"), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, holiday, nil)
}

// DeleteHoliday godoc
// @Summary Delete a holiday
// @Tags Calendar
// @Param id path string true "Holiday ID"
// @Success 204
// @Router /calendar/holidays/{id} [delete]
func (h *CalendarHandler) DeleteHoliday(c *gin.Context) {
	if err := h.service.DeleteHoliday(c.Request.Context(), c.Param("id"), actorID(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListExamPeriods godoc
// @Summary List exam periods
// @Tags Calendar
// @Produce json
// @Param from query string false "Earliest date (YYYY-MM-DD)"
// @Param to query string false "Latest date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /calendar/exam-periods [get]
func (h *CalendarHandler) ListExamPeriods(c *gin.Context) {
	var query dto.CalendarRangeQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid calendar range"))
		return
	}
	periods, err := h.service.ListExamPeriods(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, periods, nil)
}

// GetExamPeriod godoc
// @Summary Get an exam period
// @Tags Calendar
// @Produce json
// @Param id path string true "Exam period ID"
// @Success 200 {object} response.Envelope
// @Router /calendar/exam-periods/{id} [get]
func (h *CalendarHandler) GetExamPeriod(c *gin.Context) {
	period, err := h.service.GetExamPeriod(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, period, nil)
}

// CreateExamPeriod godoc
// @Summary Register an exam period
// @Tags Calendar
// @Accept json
// @Produce json
// @Param payload body dto.ExamPeriodRequest true "Exam period payload"
// @Success 201 {object} response.Envelope
// @Router /calendar/exam-periods [post]
func (h *CalendarHandler) CreateExamPeriod(c *gin.Context) {
	var req dto.ExamPeriodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid exam period payload"))
		return
	}
	period, err := h.service.CreateExamPeriod(c.Request.Context(), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, period)
}

// UpdateExamPeriod godoc
// @Summary Update an exam period
// @Tags Calendar
// @Accept json
// @Produce json
// @Param id path string true "Exam period ID"
// @Param payload body dto.ExamPeriodRequest true "Exam period payload"
// @Success 200 {object} response.Envelope
// @Router /calendar/exam-periods/{id} [put]
func (h *CalendarHandler) UpdateExamPeriod(c *gin.Context) {
	var req dto.ExamPeriodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid exam period payload"))
		return
	}
	period, err := h.service.UpdateExamPeriod(c.Request.Context(), c.Param("id"), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, period, nil)
}

// DeleteExamPeriod godoc
// @Summary Delete an exam period
// @Tags Calendar
// @Param id path string true "Exam period ID"
// @Success 204
// @Router /calendar/exam-periods/{id} [delete]
func (h *CalendarHandler) DeleteExamPeriod(c *gin.Context) {
	if err := h.service.DeleteExamPeriod(c.Request.Context(), c.Param("id"), actorID(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
