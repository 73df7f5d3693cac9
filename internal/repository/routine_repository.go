package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-routine-api/internal/models"
)

const routineColumns = `id, class_id, teacher_id, subject_id, lesson_id, time_slot_id, room_id, routine_type, status, created_by, created_at, updated_at`

// RoutineRepository is the assignment store backing conflict detection and the routine lifecycle.
type RoutineRepository struct {
	db *sqlx.DB
}

// NewRoutineRepository constructs a RoutineRepository.
func NewRoutineRepository(db *sqlx.DB) *RoutineRepository {
	return &RoutineRepository{db: db}
}

func (r *RoutineRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// FindByID fetches a routine by ID.
func (r *RoutineRepository) FindByID(ctx context.Context, id string) (*models.Routine, error) {
	query := fmt.Sprintf("SELECT %s FROM routines WHERE id = $1", routineColumns)
	var routine models.Routine
	if err := r.db.GetContext(ctx, &routine, query, id); err != nil {
		return nil, err
	}
	return &routine, nil
}

// FindActiveByTeacherAndSlot returns active routines occupying the teacher in the slot.
func (r *RoutineRepository) FindActiveByTeacherAndSlot(ctx context.Context, teacherID, timeSlotID string) ([]models.Routine, error) {
	return r.findActiveBy(ctx, "teacher_id", teacherID, timeSlotID)
}

// FindActiveByRoomAndSlot returns active routines occupying the room in the slot.
func (r *RoutineRepository) FindActiveByRoomAndSlot(ctx context.Context, roomID, timeSlotID string) ([]models.Routine, error) {
	return r.findActiveBy(ctx, "room_id", roomID, timeSlotID)
}

// FindActiveByClassAndSlot returns active routines occupying the class in the slot.
func (r *RoutineRepository) FindActiveByClassAndSlot(ctx context.Context, classID, timeSlotID string) ([]models.Routine, error) {
	return r.findActiveBy(ctx, "class_id", classID, timeSlotID)
}

// TeacherBusyInSlot reports whether the teacher holds an active routine in the slot. Pass the
// open transaction as exec so the answer reflects what the transaction will commit against.
func (r *RoutineRepository) TeacherBusyInSlot(ctx context.Context, exec sqlx.ExtContext, teacherID, timeSlotID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM routines WHERE teacher_id = $1 AND time_slot_id = $2 AND status = $3)`
	var busy bool
	if err := sqlx.GetContext(ctx, r.exec(exec), &busy, query, teacherID, timeSlotID, models.RoutineStatusActive); err != nil {
		return false, fmt.Errorf("check teacher slot occupancy: %w", err)
	}
	return busy, nil
}

func (r *RoutineRepository) findActiveBy(ctx context.Context, column, value, timeSlotID string) ([]models.Routine, error) {
	query := fmt.Sprintf("SELECT %s FROM routines WHERE %s = $1 AND time_slot_id = $2 AND status = $3 ORDER BY created_at", routineColumns, column)
	var routines []models.Routine
	if err := r.db.SelectContext(ctx, &routines, query, value, timeSlotID, models.RoutineStatusActive); err != nil {
		return nil, fmt.Errorf("find active routines by %s: %w", column, err)
	}
	return routines, nil
}

// ListByClass returns routines for a class ordered by slot.
func (r *RoutineRepository) ListByClass(ctx context.Context, classID string) ([]models.Routine, error) {
	return r.listBy(ctx, "class_id", classID)
}

// ListByTeacher returns routines for a teacher ordered by slot.
func (r *RoutineRepository) ListByTeacher(ctx context.Context, teacherID string) ([]models.Routine, error) {
	return r.listBy(ctx, "teacher_id", teacherID)
}

// ListByStatus returns routines having the given status.
func (r *RoutineRepository) ListByStatus(ctx context.Context, status models.RoutineStatus) ([]models.Routine, error) {
	return r.listBy(ctx, "status", string(status))
}

func (r *RoutineRepository) listBy(ctx context.Context, column, value string) ([]models.Routine, error) {
	query := fmt.Sprintf("SELECT %s FROM routines WHERE %s = $1 ORDER BY time_slot_id, created_at", routineColumns, column)
	var routines []models.Routine
	if err := r.db.SelectContext(ctx, &routines, query, value); err != nil {
		return nil, fmt.Errorf("list routines by %s: %w", column, err)
	}
	return routines, nil
}

// List returns routines matching filters along with total count.
func (r *RoutineRepository) List(ctx context.Context, filter models.RoutineFilter) ([]models.Routine, int, error) {
	base := "FROM routines WHERE 1=1"
	var conditions []string
	var args []interface{}

	add := func(column, value string) {
		if value == "" {
			return
		}
		conditions = append(conditions, fmt.Sprintf("%s = $%d", column, len(args)+1))
		args = append(args, value)
	}
	add("class_id", filter.ClassID)
	add("teacher_id", filter.TeacherID)
	add("room_id", filter.RoomID)
	add("time_slot_id", filter.TimeSlotID)
	add("status", string(filter.Status))

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"created_at": "created_at",
		"updated_at": "updated_at",
		"status":     "status",
	}
	column, ok := allowedSorts[filter.SortBy]
	if !ok {
		column = "created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", routineColumns, base, column, order, size, offset)
	var routines []models.Routine
	if err := r.db.SelectContext(ctx, &routines, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list routines: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) %s", base), args...); err != nil {
		return nil, 0, fmt.Errorf("count routines: %w", err)
	}
	return routines, total, nil
}

// Create inserts a routine using the provided executor.
func (r *RoutineRepository) Create(ctx context.Context, exec sqlx.ExtContext, routine *models.Routine) error {
	if routine.ID == "" {
		routine.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if routine.CreatedAt.IsZero() {
		routine.CreatedAt = now
	}
	routine.UpdatedAt = now

	const query = `INSERT INTO routines (id, class_id, teacher_id, subject_id, lesson_id, time_slot_id, room_id, routine_type, status, created_by, created_at, updated_at)
		VALUES (:id, :class_id, :teacher_id, :subject_id, :lesson_id, :time_slot_id, :room_id, :routine_type, :status, :created_by, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, routine); err != nil {
		return fmt.Errorf("create routine: %w", err)
	}
	return nil
}

// Update persists the mutable routine fields using the provided executor.
func (r *RoutineRepository) Update(ctx context.Context, exec sqlx.ExtContext, routine *models.Routine) error {
	routine.UpdatedAt = time.Now().UTC()
	const query = `UPDATE routines SET teacher_id = :teacher_id, subject_id = :subject_id, lesson_id = :lesson_id, time_slot_id = :time_slot_id, room_id = :room_id, routine_type = :routine_type, status = :status, updated_at = :updated_at WHERE id = :id`
	result, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, routine)
	if err != nil {
		return fmt.Errorf("update routine: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("routine rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a routine using the provided executor.
func (r *RoutineRepository) Delete(ctx context.Context, exec sqlx.ExtContext, id string) error {
	result, err := r.exec(exec).ExecContext(ctx, `DELETE FROM routines WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete routine: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("routine rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
