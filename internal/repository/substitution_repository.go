package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-routine-api/internal/models"
)

const substitutionColumns = `id, routine_id, time_slot_id, original_teacher_id, substitute_teacher_id, substitute_date, reason, status, created_by, created_at, updated_at`

// SubstitutionRepository persists date-specific teacher substitutions.
type SubstitutionRepository struct {
	db *sqlx.DB
}

// NewSubstitutionRepository constructs a SubstitutionRepository.
func NewSubstitutionRepository(db *sqlx.DB) *SubstitutionRepository {
	return &SubstitutionRepository{db: db}
}

func (r *SubstitutionRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// FindByID fetches a substitution by ID.
func (r *SubstitutionRepository) FindByID(ctx context.Context, id string) (*models.Substitution, error) {
	query := fmt.Sprintf("SELECT %s FROM substitutions WHERE id = $1", substitutionColumns)
	var substitution models.Substitution
	if err := r.db.GetContext(ctx, &substitution, query, id); err != nil {
		return nil, err
	}
	return &substitution, nil
}

// BusyTeacherIDs returns teachers holding an active substitution in the slot on the given date.
func (r *SubstitutionRepository) BusyTeacherIDs(ctx context.Context, exec sqlx.ExtContext, timeSlotID string, date time.Time) ([]string, error) {
	const query = `SELECT DISTINCT substitute_teacher_id FROM substitutions WHERE time_slot_id = $1 AND substitute_date = $2 AND status = $3`
	var ids []string
	if err := sqlx.SelectContext(ctx, r.exec(exec), &ids, query, timeSlotID, date, models.SubstitutionStatusActive); err != nil {
		return nil, fmt.Errorf("list busy substitute teachers: %w", err)
	}
	return ids, nil
}

// ListByRoutine returns substitutions registered for a routine, newest date first.
func (r *SubstitutionRepository) ListByRoutine(ctx context.Context, routineID string) ([]models.Substitution, error) {
	query := fmt.Sprintf("SELECT %s FROM substitutions WHERE routine_id = $1 ORDER BY substitute_date DESC, created_at DESC", substitutionColumns)
	var substitutions []models.Substitution
	if err := r.db.SelectContext(ctx, &substitutions, query, routineID); err != nil {
		return nil, fmt.Errorf("list substitutions by routine: %w", err)
	}
	return substitutions, nil
}

// ListByOriginalTeacher returns the substitution history of a teacher who was replaced.
func (r *SubstitutionRepository) ListByOriginalTeacher(ctx context.Context, teacherID string) ([]models.Substitution, error) {
	query := fmt.Sprintf("SELECT %s FROM substitutions WHERE original_teacher_id = $1 ORDER BY substitute_date DESC, created_at DESC", substitutionColumns)
	var substitutions []models.Substitution
	if err := r.db.SelectContext(ctx, &substitutions, query, teacherID); err != nil {
		return nil, fmt.Errorf("list substitutions by teacher: %w", err)
	}
	return substitutions, nil
}

// Create inserts a substitution using the provided executor.
func (r *SubstitutionRepository) Create(ctx context.Context, exec sqlx.ExtContext, substitution *models.Substitution) error {
	if substitution.ID == "" {
		substitution.ID = uuid.NewString()
	}
	if substitution.Status == "" {
		substitution.Status = models.SubstitutionStatusActive
	}
	now := time.Now().UTC()
	if substitution.CreatedAt.IsZero() {
		substitution.CreatedAt = now
	}
	substitution.UpdatedAt = now

	const query = `INSERT INTO substitutions (id, routine_id, time_slot_id, original_teacher_id, substitute_teacher_id, substitute_date, reason, status, created_by, created_at, updated_at)
		VALUES (:id, :routine_id, :time_slot_id, :original_teacher_id, :substitute_teacher_id, :substitute_date, :reason, :status, :created_by, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, substitution); err != nil {
		return fmt.Errorf("create substitution: %w", err)
	}
	return nil
}

// UpdateStatus changes the status of a substitution.
func (r *SubstitutionRepository) UpdateStatus(ctx context.Context, id string, status models.SubstitutionStatus) error {
	result, err := r.db.ExecContext(ctx, `UPDATE substitutions SET status = $1, updated_at = $2 WHERE id = $3`, status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update substitution status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("substitution rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a substitution.
func (r *SubstitutionRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM substitutions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete substitution: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("substitution rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
