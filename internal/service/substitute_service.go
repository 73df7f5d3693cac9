package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-routine-api/internal/dto"
	"github.com/noah-isme/sma-routine-api/internal/models"
	appErrors "github.com/noah-isme/sma-routine-api/pkg/errors"
)

const dateLayout = "2006-01-02"

type substitutionStore interface {
	FindByID(ctx context.Context, id string) (*models.Substitution, error)
	BusyTeacherIDs(ctx context.Context, exec sqlx.ExtContext, timeSlotID string, date time.Time) ([]string, error)
	ListByRoutine(ctx context.Context, routineID string) ([]models.Substitution, error)
	ListByOriginalTeacher(ctx context.Context, teacherID string) ([]models.Substitution, error)
	Create(ctx context.Context, exec sqlx.ExtContext, substitution *models.Substitution) error
	UpdateStatus(ctx context.Context, id string, status models.SubstitutionStatus) error
	Delete(ctx context.Context, id string) error
}

type teacherDirectory interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
	LockForAssignment(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Teacher, error)
	ListAvailable(ctx context.Context) ([]models.Teacher, error)
}

type routineFinder interface {
	FindByID(ctx context.Context, id string) (*models.Routine, error)
	FindActiveByTeacherAndSlot(ctx context.Context, teacherID, timeSlotID string) ([]models.Routine, error)
	TeacherBusyInSlot(ctx context.Context, exec sqlx.ExtContext, teacherID, timeSlotID string) (bool, error)
}

type substitutionNotifier interface {
	SubstituteAssigned(ctx context.Context, substitution *models.Substitution)
}

// SubstituteService finds and assigns replacement teachers for single routine occurrences.
type SubstituteService struct {
	repo      substitutionStore
	teachers  teacherDirectory
	routines  routineFinder
	slots     timeSlotLookup
	tx        txProvider
	cache     *CacheService
	notifier  substitutionNotifier
	calendar  holidayCalendar
	audit     *AuditService
	validator *validator.Validate
	logger    *zap.Logger
}

type holidayCalendar interface {
	IsHoliday(ctx context.Context, day time.Time) (bool, error)
}

// NewSubstituteService constructs a SubstituteService.
func NewSubstituteService(
	repo substitutionStore,
	teachers teacherDirectory,
	routines routineFinder,
	slots timeSlotLookup,
	tx txProvider,
	cache *CacheService,
	notifier substitutionNotifier,
	audit *AuditService,
	validate *validator.Validate,
	logger *zap.Logger,
) *SubstituteService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubstituteService{
		repo:      repo,
		teachers:  teachers,
		routines:  routines,
		slots:     slots,
		tx:        tx,
		cache:     cache,
		notifier:  notifier,
		audit:     audit,
		validator: validate,
		logger:    logger,
	}
}

// IdentifyCandidates lists available teachers who are free in the routine's slot on date.
func (s *SubstituteService) IdentifyCandidates(ctx context.Context, routineID, date string) ([]models.Teacher, error) {
	routine, day, err := s.resolveOccurrence(ctx, routineID, date)
	if err != nil {
		return nil, err
	}
	pool, err := s.teachers.ListAvailable(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list available teachers")
	}
	busy, err := s.repo.BusyTeacherIDs(ctx, nil, routine.TimeSlotID, day)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list busy teachers")
	}
	excluded := make(map[string]struct{}, len(busy)+1)
	excluded[routine.TeacherID] = struct{}{}
	for _, id := range busy {
		excluded[id] = struct{}{}
	}

	candidates := make([]models.Teacher, 0, len(pool))
	for _, teacher := range pool {
		if _, skip := excluded[teacher.ID]; skip {
			continue
		}
		assigned, err := s.routines.FindActiveByTeacherAndSlot(ctx, teacher.ID, routine.TimeSlotID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check teacher occupancy")
		}
		if len(assigned) > 0 {
			continue
		}
		candidates = append(candidates, teacher)
	}
	return candidates, nil
}

// Allocate assigns a substitute teacher to a routine occurrence. Availability and occupancy are
// read inside the write transaction with the teacher row share-locked; the store's uniqueness
// indexes settle races between substitutions.
func (s *SubstituteService) Allocate(ctx context.Context, req dto.AllocateSubstituteRequest, requestedBy string) (*models.Substitution, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid substitution payload")
	}
	routine, day, err := s.resolveOccurrence(ctx, req.RoutineID, req.Date)
	if err != nil {
		return nil, err
	}
	if req.SubstituteTeacherID == routine.TeacherID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "substitute must differ from the original teacher")
	}
	teacher, err := s.teachers.FindByID(ctx, req.SubstituteTeacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "substitute teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load substitute teacher")
	}

	substitution := &models.Substitution{
		RoutineID:           routine.ID,
		TimeSlotID:          routine.TimeSlotID,
		OriginalTeacherID:   routine.TeacherID,
		SubstituteTeacherID: teacher.ID,
		SubstituteDate:      day,
		Reason:              req.Reason,
		Status:              models.SubstitutionStatusActive,
		CreatedBy:           requestedBy,
	}

	err = runInTx(ctx, s.tx, func(tx *sqlx.Tx) error {
		locked, err := s.teachers.LockForAssignment(ctx, tx, teacher.ID)
		if err != nil {
			return err
		}
		if !locked.IsAvailable {
			return unavailableConflict(routine.ID, teacher.ID)
		}
		assigned, err := s.routines.TeacherBusyInSlot(ctx, tx, teacher.ID, routine.TimeSlotID)
		if err != nil {
			return err
		}
		if assigned {
			return busyConflict(routine.ID, fmt.Sprintf("Teacher %s already teaches a routine in this slot", teacher.ID))
		}
		busy, err := s.repo.BusyTeacherIDs(ctx, tx, routine.TimeSlotID, day)
		if err != nil {
			return err
		}
		for _, id := range busy {
			if id == teacher.ID {
				return busyConflict(routine.ID, fmt.Sprintf("Teacher %s already substitutes in this slot on %s", teacher.ID, req.Date))
			}
		}
		return s.repo.Create(ctx, tx, substitution)
	})
	if err != nil {
		if conflict, ok := concurrencyConflict(err, routine.ID); ok {
			s.logger.Warn("substitution rejected by storage constraint",
				zap.String("routine_id", routine.ID),
				zap.String("substitute_teacher_id", teacher.ID),
			)
			return nil, conflictErr("substitution conflicts with a concurrent change", []models.Conflict{conflict}, true)
		}
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "substitute teacher not found")
		}
		return nil, internalErr(err, "failed to allocate substitute")
	}

	s.invalidate(ctx)
	s.audit.Record(ctx, requestedBy, models.AuditActionCreate, models.AuditResourceSubstitution, substitution.ID, nil, substitution)
	if s.notifier != nil {
		s.notifier.SubstituteAssigned(ctx, substitution)
	}
	s.logger.Info("substitute allocated",
		zap.String("substitution_id", substitution.ID),
		zap.String("routine_id", routine.ID),
		zap.String("date", req.Date),
	)
	return substitution, nil
}

// Remove deletes a substitution. The routine is untouched.
func (s *SubstituteService) Remove(ctx context.Context, id, actor string) error {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "substitution not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete substitution")
	}
	s.invalidate(ctx)
	s.audit.Record(ctx, actor, models.AuditActionDelete, models.AuditResourceSubstitution, id, existing, nil)
	return nil
}

// Get returns a substitution by ID.
func (s *SubstituteService) Get(ctx context.Context, id string) (*models.Substitution, error) {
	substitution, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "substitution not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load substitution")
	}
	return substitution, nil
}

// ListByRoutine returns substitutions recorded for a routine.
func (s *SubstituteService) ListByRoutine(ctx context.Context, routineID string) ([]models.Substitution, error) {
	return readThrough(ctx, s.cache, substitutionKey("routine", routineID), func() ([]models.Substitution, error) {
		substitutions, err := s.repo.ListByRoutine(ctx, routineID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list substitutions")
		}
		return substitutions, nil
	})
}

// History returns substitutions covering a teacher's routines.
func (s *SubstituteService) History(ctx context.Context, teacherID string) ([]models.Substitution, error) {
	return readThrough(ctx, s.cache, substitutionKey("teacher", teacherID), func() ([]models.Substitution, error) {
		substitutions, err := s.repo.ListByOriginalTeacher(ctx, teacherID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list substitution history")
		}
		return substitutions, nil
	})
}

// UpdateStatus closes an active substitution as COMPLETED or CANCELLED.
func (s *SubstituteService) UpdateStatus(ctx context.Context, id string, req dto.UpdateSubstitutionStatusRequest, actor string) (*models.Substitution, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid substitution status payload")
	}
	substitution, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if substitution.Status != models.SubstitutionStatusActive {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("substitution is already %s", substitution.Status))
	}
	before := *substitution
	if err := s.repo.UpdateStatus(ctx, id, req.Status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "substitution not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update substitution")
	}
	substitution.Status = req.Status
	substitution.UpdatedAt = time.Now().UTC()
	s.invalidate(ctx)
	s.audit.Record(ctx, actor, models.AuditActionUpdate, models.AuditResourceSubstitution, id, before, substitution)
	return substitution, nil
}

// resolveOccurrence loads the routine and checks that date falls on its slot's weekday.
// AttachCalendar makes allocation reject dates that fall on a holiday.
func (s *SubstituteService) AttachCalendar(calendar holidayCalendar) {
	s.calendar = calendar
}

func (s *SubstituteService) resolveOccurrence(ctx context.Context, routineID, date string) (*models.Routine, time.Time, error) {
	day, err := time.Parse(dateLayout, date)
	if err != nil {
		return nil, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "date must use YYYY-MM-DD")
	}
	routine, err := s.routines.FindByID(ctx, routineID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, time.Time{}, appErrors.Clone(appErrors.ErrNotFound, "routine not found")
		}
		return nil, time.Time{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load routine")
	}
	slot, err := s.slots.FindByID(ctx, routine.TimeSlotID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, time.Time{}, appErrors.Clone(appErrors.ErrNotFound, "time slot not found")
		}
		return nil, time.Time{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load time slot")
	}
	weekday, ok := slot.DayOfWeek.Weekday()
	if !ok || weekday != day.Weekday() {
		return nil, time.Time{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("date %s is not a %s", date, slot.DayOfWeek))
	}
	if s.calendar != nil {
		holiday, err := s.calendar.IsHoliday(ctx, day)
		if err != nil {
			return nil, time.Time{}, internalErr(err, "failed to check calendar")
		}
		if holiday {
			return nil, time.Time{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("date %s is a holiday", date))
		}
	}
	return routine, day, nil
}

func unavailableConflict(routineID, teacherID string) error {
	description := fmt.Sprintf("Teacher %s is not available for substitution", teacherID)
	return conflictErr(description, []models.Conflict{{
		RoutineID:           routineID,
		Type:                models.ConflictTeacherUnavailable,
		Severity:            models.SeverityHigh,
		Status:              models.ConflictStatusDetected,
		Description:         description,
		SuggestedResolution: "Choose another substitute teacher",
	}}, false)
}

func busyConflict(routineID, description string) error {
	return conflictErr(description, []models.Conflict{{
		RoutineID:           routineID,
		Type:                models.ConflictTeacherDoubleBooking,
		Severity:            models.SeverityCritical,
		Status:              models.ConflictStatusDetected,
		Description:         description,
		SuggestedResolution: "Choose another substitute teacher",
	}}, false)
}

func (s *SubstituteService) invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, substitutionCachePattern); err != nil {
		s.logger.Warn("failed to invalidate substitution cache", zap.Error(err))
	}
}
