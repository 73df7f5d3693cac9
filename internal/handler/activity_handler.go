package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-routine-api/internal/models"
	appErrors "github.com/noah-isme/sma-routine-api/pkg/errors"
	"github.com/noah-isme/sma-routine-api/pkg/response"
)

type auditHistory interface {
	History(ctx context.Context, resource, resourceID string) ([]models.AuditLog, error)
}

type notificationFeed interface {
	Recent(ctx context.Context, limit int) ([]models.Notification, error)
	Unread(ctx context.Context) ([]models.Notification, error)
	CountUnread(ctx context.Context) (int, error)
	MarkRead(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

var auditResources = map[string]string{
	"routines":     models.AuditResourceRoutine,
	"time-slots":   models.AuditResourceTimeSlot,
	"substitutes":  models.AuditResourceSubstitution,
	"conflicts":    models.AuditResourceConflict,
	"holidays":     models.AuditResourceHoliday,
	"exam-periods": models.AuditResourceExamPeriod,
}

// ActivityHandler exposes the audit trail and the notification feed.
type ActivityHandler struct {
	audit         auditHistory
	notifications notificationFeed
}

// NewActivityHandler builds an ActivityHandler.
func NewActivityHandler(audit auditHistory, notifications notificationFeed) *ActivityHandler {
	return &ActivityHandler{audit: audit, notifications: notifications}
}

// History godoc
// @Summary Audit history of a scheduling resource
// @Tags Activity
// @Produce json
// @Param resource path string true "routines, time-slots, substitutes, conflicts, holidays or exam-periods"
// @Param id path string true "Resource ID"
// @Success 200 {object} response.Envelope
// @Router /audit/{resource}/{id} [get]
func (h *ActivityHandler) History(c *gin.Context) {
	resource, ok := auditResources[strings.ToLower(c.Param("resource"))]
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown audit resource"))
		return
	}
	entries, err := h.audit.History(c.Request.Context(), resource, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// Notifications godoc
// @Summary Recent scheduling notifications
// @Tags Activity
// @Produce json
// @Param limit query int false "Maximum entries (default 20)"
// @Success 200 {object} response.Envelope
// @Router /notifications [get]
func (h *ActivityHandler) Notifications(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "limit must be a positive integer"))
			return
		}
		limit = parsed
	}
	items, err := h.notifications.Recent(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Unread godoc
// @Summary Unread scheduling notifications
// @Tags Activity
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /notifications/unread [get]
func (h *ActivityHandler) Unread(c *gin.Context) {
	items, err := h.notifications.Unread(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// UnreadCount godoc
// @Summary Number of unread notifications
// @Tags Activity
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /notifications/unread/count [get]
func (h *ActivityHandler) UnreadCount(c *gin.Context) {
	count, err := h.notifications.CountUnread(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"unread": count}, nil)
}

// MarkRead godoc
// @Summary Mark a notification as read
// @Tags Activity
// @Param id path string true "Notification ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /notifications/{id}/read [put]
func (h *ActivityHandler) MarkRead(c *gin.Context) {
	if err := h.notifications.MarkRead(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// DeleteNotification godoc
// @Summary Delete a notification
// @Tags Activity
// @Param id path string true "Notification ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /notifications/{id} [delete]
func (h *ActivityHandler) DeleteNotification(c *gin.Context) {
	if err := h.notifications.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
