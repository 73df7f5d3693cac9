package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-routine-api/internal/dto"
	"github.com/noah-isme/sma-routine-api/internal/models"
	appErrors "github.com/noah-isme/sma-routine-api/pkg/errors"
)

type routineStore interface {
	FindByID(ctx context.Context, id string) (*models.Routine, error)
	ListByClass(ctx context.Context, classID string) ([]models.Routine, error)
	ListByTeacher(ctx context.Context, teacherID string) ([]models.Routine, error)
	ListByStatus(ctx context.Context, status models.RoutineStatus) ([]models.Routine, error)
	List(ctx context.Context, filter models.RoutineFilter) ([]models.Routine, int, error)
	Create(ctx context.Context, exec sqlx.ExtContext, routine *models.Routine) error
	Update(ctx context.Context, exec sqlx.ExtContext, routine *models.Routine) error
	Delete(ctx context.Context, exec sqlx.ExtContext, id string) error
}

type timeSlotLookup interface {
	FindByID(ctx context.Context, id string) (*models.TimeSlot, error)
}

type conflictDetector interface {
	Detect(ctx context.Context, candidate *models.Routine) ([]models.Conflict, error)
}

type conflictCleaner interface {
	DeleteByRoutine(ctx context.Context, exec sqlx.ExtContext, routineID string) (int64, error)
}

// RoutineResult is the outcome of a routine write. Exactly one of Routine or Conflicts is set.
type RoutineResult struct {
	Routine     *models.Routine
	Conflicts   []models.Conflict
	Concurrency bool
}

// Committed reports whether the write was persisted.
func (r *RoutineResult) Committed() bool {
	return r != nil && r.Routine != nil && len(r.Conflicts) == 0
}

// Err converts a rejected result into a conflict error for transport adapters.
func (r *RoutineResult) Err() error {
	if r == nil || len(r.Conflicts) == 0 {
		return nil
	}
	if r.Concurrency {
		return conflictErr("routine conflicts with a concurrent change", r.Conflicts, true)
	}
	return conflictErr(fmt.Sprintf("routine has %d scheduling conflict(s)", len(r.Conflicts)), r.Conflicts, false)
}

// RoutineService owns the routine lifecycle: validate, detect, persist, invalidate, audit.
type RoutineService struct {
	repo      routineStore
	slots     timeSlotLookup
	detector  conflictDetector
	ledger    conflictCleaner
	tx        txProvider
	cache     *CacheService
	audit     *AuditService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewRoutineService wires routine lifecycle dependencies.
func NewRoutineService(
	repo routineStore,
	slots timeSlotLookup,
	detector conflictDetector,
	ledger conflictCleaner,
	tx txProvider,
	cache *CacheService,
	audit *AuditService,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
) *RoutineService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RoutineService{
		repo:      repo,
		slots:     slots,
		detector:  detector,
		ledger:    ledger,
		tx:        tx,
		cache:     cache,
		audit:     audit,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
	}
}

// Create validates and schedules a routine. Conflicts are returned in the result and nothing is stored.
func (s *RoutineService) Create(ctx context.Context, req dto.CreateRoutineRequest, actor string) (*RoutineResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid routine payload")
	}
	if err := s.ensureTimeSlot(ctx, req.TimeSlotID); err != nil {
		return nil, err
	}

	routine := &models.Routine{
		ID:         uuid.NewString(),
		ClassID:    req.ClassID,
		TeacherID:  req.TeacherID,
		SubjectID:  req.SubjectID,
		LessonID:   req.LessonID,
		TimeSlotID: req.TimeSlotID,
		RoomID:     req.RoomID,
		Type:       req.Type,
		Status:     req.Status,
		CreatedBy:  actor,
	}
	if routine.Type == "" {
		routine.Type = models.RoutineTypeRegular
	}
	if routine.Status == "" {
		routine.Status = models.RoutineStatusActive
	}

	conflicts, err := s.detector.Detect(ctx, routine)
	if err != nil {
		s.metrics.ObserveRoutineWrite("create", OutcomeError)
		return nil, err
	}
	if len(conflicts) > 0 {
		s.metrics.ObserveRoutineWrite("create", OutcomeConflict)
		return &RoutineResult{Conflicts: conflicts}, nil
	}

	err = runInTx(ctx, s.tx, func(tx *sqlx.Tx) error {
		return s.repo.Create(ctx, tx, routine)
	})
	if result, handled := s.storageOutcome("create", routine.ID, err); handled {
		return result, nil
	}
	if err != nil {
		s.metrics.ObserveRoutineWrite("create", OutcomeError)
		return nil, internalErr(err, "failed to create routine")
	}

	s.invalidate(ctx)
	s.audit.Record(ctx, actor, models.AuditActionCreate, models.AuditResourceRoutine, routine.ID, nil, routine)
	s.metrics.ObserveRoutineWrite("create", OutcomeCommitted)
	return &RoutineResult{Routine: routine}, nil
}

// Update re-validates a routine against proposed values. The class cannot change.
func (s *RoutineService) Update(ctx context.Context, id string, req dto.UpdateRoutineRequest, actor string) (*RoutineResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid routine payload")
	}
	existing, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.Status == models.RoutineStatusCancelled {
		return nil, appErrors.Clone(appErrors.ErrValidation, "cancelled routines cannot be modified")
	}
	if req.Status != "" && !routineTransitionAllowed(existing.Status, req.Status) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("cannot move routine from %s to %s", existing.Status, req.Status))
	}
	if err := s.ensureTimeSlot(ctx, req.TimeSlotID); err != nil {
		return nil, err
	}

	proposed := *existing
	proposed.TeacherID = req.TeacherID
	proposed.SubjectID = req.SubjectID
	proposed.LessonID = req.LessonID
	proposed.TimeSlotID = req.TimeSlotID
	proposed.RoomID = req.RoomID
	if req.Type != "" {
		proposed.Type = req.Type
	}
	if req.Status != "" {
		proposed.Status = req.Status
	}

	conflicts, err := s.detector.Detect(ctx, &proposed)
	if err != nil {
		s.metrics.ObserveRoutineWrite("update", OutcomeError)
		return nil, err
	}
	if len(conflicts) > 0 {
		s.metrics.ObserveRoutineWrite("update", OutcomeConflict)
		return &RoutineResult{Conflicts: conflicts}, nil
	}

	err = runInTx(ctx, s.tx, func(tx *sqlx.Tx) error {
		return s.repo.Update(ctx, tx, &proposed)
	})
	if result, handled := s.storageOutcome("update", proposed.ID, err); handled {
		return result, nil
	}
	if err != nil {
		s.metrics.ObserveRoutineWrite("update", OutcomeError)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "routine not found")
		}
		return nil, internalErr(err, "failed to update routine")
	}

	s.invalidate(ctx)
	s.audit.Record(ctx, actor, models.AuditActionUpdate, models.AuditResourceRoutine, proposed.ID, existing, proposed)
	s.metrics.ObserveRoutineWrite("update", OutcomeCommitted)
	return &RoutineResult{Routine: &proposed}, nil
}

// Delete removes a routine together with every ledger entry that references it. Its substitutions
// go with it through the foreign key cascade, so both cache regions are cleared.
// A failed delete leaves no partial state, so it can be retried.
func (s *RoutineService) Delete(ctx context.Context, id string, actor string) error {
	existing, err := s.load(ctx, id)
	if err != nil {
		return err
	}

	var removed int64
	err = runInTx(ctx, s.tx, func(tx *sqlx.Tx) error {
		n, err := s.ledger.DeleteByRoutine(ctx, tx, id)
		if err != nil {
			return err
		}
		removed = n
		return s.repo.Delete(ctx, tx, id)
	})
	if err != nil {
		s.metrics.ObserveRoutineWrite("delete", OutcomeError)
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "routine not found")
		}
		return internalErr(err, "failed to delete routine")
	}

	s.invalidate(ctx, substitutionCachePattern)
	s.audit.Record(ctx, actor, models.AuditActionDelete, models.AuditResourceRoutine, id, existing, nil)
	s.metrics.ObserveRoutineWrite("delete", OutcomeCommitted)
	s.logger.Info("routine deleted", zap.String("routine_id", id), zap.Int64("conflicts_removed", removed))
	return nil
}

// Get returns a routine by ID.
func (s *RoutineService) Get(ctx context.Context, id string) (*models.Routine, error) {
	return readThrough(ctx, s.cache, routineKey("id", id), func() (*models.Routine, error) {
		return s.load(ctx, id)
	})
}

// ListByClass returns the timetable of a class.
func (s *RoutineService) ListByClass(ctx context.Context, classID string) ([]models.Routine, error) {
	return readThrough(ctx, s.cache, routineKey("class", classID), func() ([]models.Routine, error) {
		routines, err := s.repo.ListByClass(ctx, classID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list class routines")
		}
		return routines, nil
	})
}

// ListByTeacher returns the timetable of a teacher.
func (s *RoutineService) ListByTeacher(ctx context.Context, teacherID string) ([]models.Routine, error) {
	return readThrough(ctx, s.cache, routineKey("teacher", teacherID), func() ([]models.Routine, error) {
		routines, err := s.repo.ListByTeacher(ctx, teacherID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teacher routines")
		}
		return routines, nil
	})
}

// ListByStatus returns routines having the given status.
func (s *RoutineService) ListByStatus(ctx context.Context, status models.RoutineStatus) ([]models.Routine, error) {
	switch status {
	case models.RoutineStatusActive, models.RoutineStatusInactive, models.RoutineStatusCancelled:
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid routine status")
	}
	return readThrough(ctx, s.cache, routineKey("status", string(status)), func() ([]models.Routine, error) {
		routines, err := s.repo.ListByStatus(ctx, status)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list routines by status")
		}
		return routines, nil
	})
}

// List returns a filtered, paginated routine list.
func (s *RoutineService) List(ctx context.Context, query dto.RoutineListQuery) ([]models.Routine, *models.Pagination, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid routine filters")
	}
	filter := models.RoutineFilter{
		ClassID:    query.ClassID,
		TeacherID:  query.TeacherID,
		RoomID:     query.RoomID,
		TimeSlotID: query.TimeSlotID,
		Status:     models.RoutineStatus(query.Status),
		Page:       query.Page,
		PageSize:   query.PageSize,
		SortBy:     query.SortBy,
		SortOrder:  query.SortOrder,
	}
	routines, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list routines")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return routines, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

func (s *RoutineService) load(ctx context.Context, id string) (*models.Routine, error) {
	routine, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "routine not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load routine")
	}
	return routine, nil
}

func (s *RoutineService) ensureTimeSlot(ctx context.Context, id string) error {
	if _, err := s.slots.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "time slot not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load time slot")
	}
	return nil
}

// storageOutcome turns a unique violation raised by the store into a concurrency result.
func (s *RoutineService) storageOutcome(operation, routineID string, err error) (*RoutineResult, bool) {
	if err == nil {
		return nil, false
	}
	conflict, ok := concurrencyConflict(err, routineID)
	if !ok {
		return nil, false
	}
	s.metrics.ObserveRoutineWrite(operation, OutcomeConcurrency)
	s.logger.Warn("routine write rejected by storage constraint",
		zap.String("operation", operation),
		zap.String("routine_id", routineID),
		zap.String("conflict_type", string(conflict.Type)),
	)
	return &RoutineResult{Conflicts: []models.Conflict{conflict}, Concurrency: true}, true
}

func (s *RoutineService) invalidate(ctx context.Context, extra ...string) {
	if err := s.cache.Invalidate(ctx, append([]string{routineCachePattern}, extra...)...); err != nil {
		s.logger.Warn("failed to invalidate routine cache", zap.Error(err))
	}
}

// routineTransitionAllowed enforces ACTIVE <-> INACTIVE, either -> CANCELLED, CANCELLED terminal.
func routineTransitionAllowed(from, to models.RoutineStatus) bool {
	if from == to {
		return true
	}
	return from != models.RoutineStatusCancelled
}
