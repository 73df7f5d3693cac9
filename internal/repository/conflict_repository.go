package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-routine-api/internal/models"
)

const conflictColumns = `id, routine_id, conflicting_routine_id, conflict_type, severity, status, description, suggested_resolution, resolved_by, resolved_at, created_at, updated_at`

// severityRank orders severities CRITICAL > HIGH > MEDIUM > LOW.
const severityRank = `CASE severity WHEN 'CRITICAL' THEN 4 WHEN 'HIGH' THEN 3 WHEN 'MEDIUM' THEN 2 ELSE 1 END`

// ConflictRepository is the conflict ledger.
type ConflictRepository struct {
	db *sqlx.DB
}

// NewConflictRepository constructs a ConflictRepository.
func NewConflictRepository(db *sqlx.DB) *ConflictRepository {
	return &ConflictRepository{db: db}
}

func (r *ConflictRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Create appends a ledger entry.
func (r *ConflictRepository) Create(ctx context.Context, conflict *models.Conflict) error {
	if conflict.ID == "" {
		conflict.ID = uuid.NewString()
	}
	if conflict.Status == "" {
		conflict.Status = models.ConflictStatusDetected
	}
	now := time.Now().UTC()
	if conflict.CreatedAt.IsZero() {
		conflict.CreatedAt = now
	}
	conflict.UpdatedAt = now

	const query = `INSERT INTO conflicts (id, routine_id, conflicting_routine_id, conflict_type, severity, status, description, suggested_resolution, resolved_by, resolved_at, created_at, updated_at)
		VALUES (:id, :routine_id, :conflicting_routine_id, :conflict_type, :severity, :status, :description, :suggested_resolution, :resolved_by, :resolved_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, conflict); err != nil {
		return fmt.Errorf("create conflict: %w", err)
	}
	return nil
}

// FindOpen returns the newest open ledger entry for the same collision, or nil. A collision is the
// existing routine, the conflict type and the description, which names the shared teacher, room or class.
// The candidate's routine ID is not part of the key since rejected creates never keep theirs.
func (r *ConflictRepository) FindOpen(ctx context.Context, conflictingRoutineID string, conflictType models.ConflictType, description string) (*models.Conflict, error) {
	query := fmt.Sprintf(`SELECT %s FROM conflicts WHERE conflicting_routine_id = $1 AND conflict_type = $2 AND description = $3 AND status IN ('DETECTED', 'ACKNOWLEDGED') ORDER BY created_at DESC LIMIT 1`, conflictColumns)
	var conflict models.Conflict
	if err := r.db.GetContext(ctx, &conflict, query, conflictingRoutineID, conflictType, description); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find open conflict: %w", err)
	}
	return &conflict, nil
}

// FindByID fetches a ledger entry by ID.
func (r *ConflictRepository) FindByID(ctx context.Context, id string) (*models.Conflict, error) {
	query := fmt.Sprintf("SELECT %s FROM conflicts WHERE id = $1", conflictColumns)
	var conflict models.Conflict
	if err := r.db.GetContext(ctx, &conflict, query, id); err != nil {
		return nil, err
	}
	return &conflict, nil
}

// ListUnresolved returns DETECTED entries, most severe and most recent first.
func (r *ConflictRepository) ListUnresolved(ctx context.Context) ([]models.Conflict, error) {
	query := fmt.Sprintf("SELECT %s FROM conflicts WHERE status = $1 ORDER BY %s DESC, created_at DESC", conflictColumns, severityRank)
	var conflicts []models.Conflict
	if err := r.db.SelectContext(ctx, &conflicts, query, models.ConflictStatusDetected); err != nil {
		return nil, fmt.Errorf("list unresolved conflicts: %w", err)
	}
	return conflicts, nil
}

// CountUnresolved counts DETECTED entries.
func (r *ConflictRepository) CountUnresolved(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM conflicts WHERE status = $1`, models.ConflictStatusDetected); err != nil {
		return 0, fmt.Errorf("count unresolved conflicts: %w", err)
	}
	return total, nil
}

// ListByRoutine returns entries where the routine was either the trigger or the existing collision.
func (r *ConflictRepository) ListByRoutine(ctx context.Context, routineID string) ([]models.Conflict, error) {
	query := fmt.Sprintf("SELECT %s FROM conflicts WHERE routine_id = $1 OR conflicting_routine_id = $1 ORDER BY created_at DESC", conflictColumns)
	var conflicts []models.Conflict
	if err := r.db.SelectContext(ctx, &conflicts, query, routineID); err != nil {
		return nil, fmt.Errorf("list conflicts by routine: %w", err)
	}
	return conflicts, nil
}

// UpdateStatus moves an entry to a new status and stamps the resolution fields.
func (r *ConflictRepository) UpdateStatus(ctx context.Context, conflict *models.Conflict) error {
	conflict.UpdatedAt = time.Now().UTC()
	const query = `UPDATE conflicts SET status = :status, resolved_by = :resolved_by, resolved_at = :resolved_at, updated_at = :updated_at WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, conflict)
	if err != nil {
		return fmt.Errorf("update conflict status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("conflict rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteByRoutine removes every entry referencing the routine and reports how many were removed.
func (r *ConflictRepository) DeleteByRoutine(ctx context.Context, exec sqlx.ExtContext, routineID string) (int64, error) {
	result, err := r.exec(exec).ExecContext(ctx, `DELETE FROM conflicts WHERE routine_id = $1 OR conflicting_routine_id = $1`, routineID)
	if err != nil {
		return 0, fmt.Errorf("delete conflicts by routine: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("conflict rows affected: %w", err)
	}
	return affected, nil
}
