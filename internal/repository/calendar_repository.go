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

const (
	holidayColumns    = `id, name, holiday_date, description, holiday_type, created_by, created_at, updated_at`
	examPeriodColumns = `id, name, start_date, end_date, description, exam_type, created_by, created_at, updated_at`
)

// CalendarRepository persists holidays and exam periods.
type CalendarRepository struct {
	db *sqlx.DB
}

// NewCalendarRepository constructs a CalendarRepository.
func NewCalendarRepository(db *sqlx.DB) *CalendarRepository {
	return &CalendarRepository{db: db}
}

// HolidaysOn returns holidays falling on day.
func (r *CalendarRepository) HolidaysOn(ctx context.Context, day time.Time) ([]models.Holiday, error) {
	query := fmt.Sprintf("SELECT %s FROM holidays WHERE holiday_date = $1 ORDER BY name", holidayColumns)
	var holidays []models.Holiday
	if err := r.db.SelectContext(ctx, &holidays, query, day); err != nil {
		return nil, fmt.Errorf("list holidays on date: %w", err)
	}
	return holidays, nil
}

// ExamPeriodsOn returns exam periods whose range includes day.
func (r *CalendarRepository) ExamPeriodsOn(ctx context.Context, day time.Time) ([]models.ExamPeriod, error) {
	query := fmt.Sprintf("SELECT %s FROM exam_periods WHERE start_date <= $1 AND end_date >= $1 ORDER BY start_date", examPeriodColumns)
	var periods []models.ExamPeriod
	if err := r.db.SelectContext(ctx, &periods, query, day); err != nil {
		return nil, fmt.Errorf("list exam periods on date: %w", err)
	}
	return periods, nil
}

// ListHolidays returns holidays inside the range ordered by date.
func (r *CalendarRepository) ListHolidays(ctx context.Context, window models.CalendarRange) ([]models.Holiday, error) {
	where, args := rangeClause(window, "holiday_date", "holiday_date")
	query := fmt.Sprintf("SELECT %s FROM holidays WHERE %s ORDER BY holiday_date, name", holidayColumns, where)
	var holidays []models.Holiday
	if err := r.db.SelectContext(ctx, &holidays, query, args...); err != nil {
		return nil, fmt.Errorf("list holidays: %w", err)
	}
	return holidays, nil
}

// ListExamPeriods returns exam periods intersecting the range ordered by start date.
func (r *CalendarRepository) ListExamPeriods(ctx context.Context, window models.CalendarRange) ([]models.ExamPeriod, error) {
	where, args := rangeClause(window, "end_date", "start_date")
	query := fmt.Sprintf("SELECT %s FROM exam_periods WHERE %s ORDER BY start_date, name", examPeriodColumns, where)
	var periods []models.ExamPeriod
	if err := r.db.SelectContext(ctx, &periods, query, args...); err != nil {
		return nil, fmt.Errorf("list exam periods: %w", err)
	}
	return periods, nil
}

// rangeClause keeps rows whose endColumn is on or after From and whose startColumn is on or before To.
func rangeClause(window models.CalendarRange, endColumn, startColumn string) (string, []interface{}) {
	where := []string{"1=1"}
	var args []interface{}
	if window.From != nil {
		args = append(args, *window.From)
		where = append(where, fmt.Sprintf("%s >= $%d", endColumn, len(args)))
	}
	if window.To != nil {
		args = append(args, *window.To)
		where = append(where, fmt.Sprintf("%s <= $%d", startColumn, len(args)))
	}
	return strings.Join(where, " AND "), args
}

// FindHoliday fetches a holiday by ID.
func (r *CalendarRepository) FindHoliday(ctx context.Context, id string) (*models.Holiday, error) {
	query := fmt.Sprintf("SELECT %s FROM holidays WHERE id = $1", holidayColumns)
	var holiday models.Holiday
	if err := r.db.GetContext(ctx, &holiday, query, id); err != nil {
		return nil, err
	}
	return &holiday, nil
}

// FindExamPeriod fetches an exam period by ID.
func (r *CalendarRepository) FindExamPeriod(ctx context.Context, id string) (*models.ExamPeriod, error) {
	query := fmt.Sprintf("SELECT %s FROM exam_periods WHERE id = $1", examPeriodColumns)
	var period models.ExamPeriod
	if err := r.db.GetContext(ctx, &period, query, id); err != nil {
		return nil, err
	}
	return &period, nil
}

// CreateHoliday inserts a holiday.
func (r *CalendarRepository) CreateHoliday(ctx context.Context, holiday *models.Holiday) error {
	if holiday.ID == "" {
		holiday.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if holiday.CreatedAt.IsZero() {
		holiday.CreatedAt = now
	}
	holiday.UpdatedAt = now
	const query = `INSERT INTO holidays (id, name, holiday_date, description, holiday_type, created_by, created_at, updated_at)
		VALUES (:id, :name, :holiday_date, :description, :holiday_type, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, holiday); err != nil {
		return fmt.Errorf("create holiday: %w", err)
	}
	return nil
}

// UpdateHoliday rewrites a holiday's name, date, description and type.
func (r *CalendarRepository) UpdateHoliday(ctx context.Context, holiday *models.Holiday) error {
	holiday.UpdatedAt = time.Now().UTC()
	const query = `UPDATE holidays SET name = :name, holiday_date = :holiday_date, description = :description,
		holiday_type = :holiday_type, updated_at = :updated_at WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, holiday)
	if err != nil {
		return fmt.Errorf("update holiday: %w", err)
	}
	return requireAffected(result, "holiday")
}

// DeleteHoliday removes a holiday.
func (r *CalendarRepository) DeleteHoliday(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM holidays WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete holiday: %w", err)
	}
	return requireAffected(result, "holiday")
}

// CreateExamPeriod inserts an exam period.
func (r *CalendarRepository) CreateExamPeriod(ctx context.Context, period *models.ExamPeriod) error {
	if period.ID == "" {
		period.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if period.CreatedAt.IsZero() {
		period.CreatedAt = now
	}
	period.UpdatedAt = now
	const query = `INSERT INTO exam_periods (id, name, start_date, end_date, description, exam_type, created_by, created_at, updated_at)
		VALUES (:id, :name, :start_date, :end_date, :description, :exam_type, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, period); err != nil {
		return fmt.Errorf("create exam period: %w", err)
	}
	return nil
}

// UpdateExamPeriod rewrites an exam period.
func (r *CalendarRepository) UpdateExamPeriod(ctx context.Context, period *models.ExamPeriod) error {
	period.UpdatedAt = time.Now().UTC()
	const query = `UPDATE exam_periods SET name = :name, start_date = :start_date, end_date = :end_date, description = :description,
		exam_type = :exam_type, updated_at = :updated_at WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, period)
	if err != nil {
		return fmt.Errorf("update exam period: %w", err)
	}
	return requireAffected(result, "exam period")
}

// DeleteExamPeriod removes an exam period.
func (r *CalendarRepository) DeleteExamPeriod(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM exam_periods WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete exam period: %w", err)
	}
	return requireAffected(result, "exam period")
}

func requireAffected(result sql.Result, noun string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", noun, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
