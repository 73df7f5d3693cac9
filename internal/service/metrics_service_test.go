package service

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-routine-api/internal/models"
)

func TestMetricsServiceSnapshot(t *testing.T) {
	metrics := NewMetricsService()

	metrics.ObserveHTTPRequest(http.MethodGet, "/api/v1/routines", http.StatusOK, 20*time.Millisecond)
	metrics.RecordCacheOperation(true, time.Millisecond)
	metrics.RecordCacheOperation(false, time.Millisecond)
	metrics.RecordConflicts([]models.Conflict{
		{Type: models.ConflictTeacherDoubleBooking},
		{Type: models.ConflictTeacherDoubleBooking},
		{Type: models.ConflictClassDoubleBooking},
	}, time.Millisecond)
	metrics.ObserveRoutineWrite("create", OutcomeConflict)

	snapshot := metrics.Snapshot()
	assert.Equal(t, uint64(1), snapshot.RequestsTotal)
	assert.InDelta(t, 0.5, snapshot.CacheHitRatio, 0.0001)
	assert.Equal(t, uint64(2), snapshot.ConflictsDetected[models.ConflictTeacherDoubleBooking])
	assert.Equal(t, uint64(1), snapshot.ConflictsDetected[models.ConflictClassDoubleBooking])
	assert.Equal(t, uint64(0), snapshot.ConflictsDetected[models.ConflictClassroomDoubleBooking])
}

func TestMetricsServiceHandlerExposesCollectors(t *testing.T) {
	metrics := NewMetricsService()
	metrics.RecordConflicts([]models.Conflict{{Type: models.ConflictClassroomDoubleBooking}}, time.Millisecond)
	metrics.ObserveRoutineWrite("update", OutcomeCommitted)

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `scheduling_conflicts_detected_total{type="CLASSROOM_DOUBLE_BOOKING"} 1`))
	assert.True(t, strings.Contains(body, `routine_writes_total{operation="update",outcome="committed"} 1`))
}

func TestNilMetricsServiceIsSafe(t *testing.T) {
	var metrics *MetricsService
	metrics.ObserveHTTPRequest(http.MethodGet, "/", http.StatusOK, time.Millisecond)
	metrics.RecordConflicts([]models.Conflict{{Type: models.ConflictClassDoubleBooking}}, time.Millisecond)
	metrics.ObserveRoutineWrite("delete", OutcomeError)
	assert.Equal(t, MetricsSnapshot{}, metrics.Snapshot())

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
