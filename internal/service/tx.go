package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-routine-api/internal/models"
	"github.com/noah-isme/sma-routine-api/pkg/database"
	appErrors "github.com/noah-isme/sma-routine-api/pkg/errors"
)

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// runInTx executes fn inside a transaction. Errors from fn and from commit are returned
// unwrapped so callers can inspect storage constraint violations.
func runInTx(ctx context.Context, provider txProvider, fn func(tx *sqlx.Tx) error) (err error) {
	if provider == nil {
		return appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}
	tx, err := provider.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// constraintConflictTypes maps partial unique indexes to the invariant they protect.
var constraintConflictTypes = map[string]models.ConflictType{
	"ux_routines_teacher_slot_active":           models.ConflictTeacherDoubleBooking,
	"ux_routines_room_slot_active":              models.ConflictClassroomDoubleBooking,
	"ux_routines_class_slot_active":             models.ConflictClassDoubleBooking,
	"ux_substitutions_teacher_slot_date_active": models.ConflictTeacherDoubleBooking,
	"ux_substitutions_routine_date_active":      models.ConflictTeacherDoubleBooking,
}

// concurrencyConflict converts a unique violation into the conflict it represents.
// ok is false when err is not a unique violation.
func concurrencyConflict(err error, routineID string) (models.Conflict, bool) {
	constraint, ok := database.UniqueConstraint(err)
	if !ok {
		return models.Conflict{}, false
	}
	conflictType, known := constraintConflictTypes[constraint]
	if !known {
		conflictType = models.ConflictTimeSlotOverlap
	}
	severity := models.SeverityHigh
	if conflictType == models.ConflictTeacherDoubleBooking {
		severity = models.SeverityCritical
	}
	return models.Conflict{
		RoutineID:           routineID,
		Type:                conflictType,
		Severity:            severity,
		Status:              models.ConflictStatusDetected,
		Description:         fmt.Sprintf("A concurrent change claimed the same slot (%s)", constraint),
		SuggestedResolution: "Reload the timetable and retry",
	}, true
}

// conflictErr builds the 409 error carrying detected conflicts.
func conflictErr(message string, conflicts []models.Conflict, concurrency bool) error {
	base := appErrors.ErrConflict
	if concurrency {
		base = appErrors.ErrConcurrency
	}
	return appErrors.Wrap(&models.ConflictError{
		Message:              message,
		Conflicts:            conflicts,
		ConcurrencyViolation: concurrency,
	}, base.Code, base.Status, message)
}

// internalErr wraps unexpected failures unless they already carry an application error.
func internalErr(err error, message string) error {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}
