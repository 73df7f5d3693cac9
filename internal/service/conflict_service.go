package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-routine-api/internal/dto"
	"github.com/noah-isme/sma-routine-api/internal/models"
	appErrors "github.com/noah-isme/sma-routine-api/pkg/errors"
)

// Suggested resolutions attached to detected conflicts.
const (
	resolutionTeacher = "Choose a different time slot or teacher"
	resolutionRoom    = "Choose a different classroom or time slot"
	resolutionClass   = "Choose a different time slot"
)

type occupancyReader interface {
	FindActiveByTeacherAndSlot(ctx context.Context, teacherID, timeSlotID string) ([]models.Routine, error)
	FindActiveByRoomAndSlot(ctx context.Context, roomID, timeSlotID string) ([]models.Routine, error)
	FindActiveByClassAndSlot(ctx context.Context, classID, timeSlotID string) ([]models.Routine, error)
}

type conflictLedger interface {
	Create(ctx context.Context, conflict *models.Conflict) error
	FindOpen(ctx context.Context, conflictingRoutineID string, conflictType models.ConflictType, description string) (*models.Conflict, error)
	FindByID(ctx context.Context, id string) (*models.Conflict, error)
	ListUnresolved(ctx context.Context) ([]models.Conflict, error)
	CountUnresolved(ctx context.Context) (int, error)
	ListByRoutine(ctx context.Context, routineID string) ([]models.Conflict, error)
	UpdateStatus(ctx context.Context, conflict *models.Conflict) error
}

type conflictNotifier interface {
	ConflictsDetected(ctx context.Context, routineID string, conflicts []models.Conflict)
}

// ConflictServiceConfig tunes ledger behaviour.
type ConflictServiceConfig struct {
	Deduplicate bool
}

// ConflictService detects double bookings and manages the conflict ledger.
type ConflictService struct {
	routines  occupancyReader
	ledger    conflictLedger
	metrics   *MetricsService
	notifier  conflictNotifier
	audit     *AuditService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ConflictServiceConfig
}

// NewConflictService wires the detection engine.
func NewConflictService(
	routines occupancyReader,
	ledger conflictLedger,
	metrics *MetricsService,
	notifier conflictNotifier,
	audit *AuditService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg ConflictServiceConfig,
) *ConflictService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConflictService{
		routines:  routines,
		ledger:    ledger,
		metrics:   metrics,
		notifier:  notifier,
		audit:     audit,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
	}
}

// Detect reports every active routine that shares the candidate's teacher, room or class in
// the same slot. The candidate's own ID is excluded so updates do not collide with themselves.
// Inactive candidates never conflict. Detected conflicts are appended to the ledger even if the
// caller later aborts.
func (s *ConflictService) Detect(ctx context.Context, candidate *models.Routine) ([]models.Conflict, error) {
	if candidate == nil || !candidate.IsActive() {
		return nil, nil
	}
	start := time.Now()

	checks := []struct {
		conflictType models.ConflictType
		severity     models.ConflictSeverity
		resolution   string
		find         func(context.Context, string, string) ([]models.Routine, error)
		key          string
		describe     func(existing models.Routine) string
	}{
		{
			conflictType: models.ConflictTeacherDoubleBooking,
			severity:     models.SeverityCritical,
			resolution:   resolutionTeacher,
			find:         s.routines.FindActiveByTeacherAndSlot,
			key:          candidate.TeacherID,
			describe: func(existing models.Routine) string {
				return fmt.Sprintf("Teacher %s is already assigned to class %s at this time", candidate.TeacherID, existing.ClassID)
			},
		},
		{
			conflictType: models.ConflictClassroomDoubleBooking,
			severity:     models.SeverityHigh,
			resolution:   resolutionRoom,
			find:         s.routines.FindActiveByRoomAndSlot,
			key:          candidate.RoomID,
			describe: func(existing models.Routine) string {
				return fmt.Sprintf("Classroom %s is already booked by class %s at this time", candidate.RoomID, existing.ClassID)
			},
		},
		{
			conflictType: models.ConflictClassDoubleBooking,
			severity:     models.SeverityHigh,
			resolution:   resolutionClass,
			find:         s.routines.FindActiveByClassAndSlot,
			key:          candidate.ClassID,
			describe: func(existing models.Routine) string {
				return fmt.Sprintf("Class %s already has a routine scheduled at this time", candidate.ClassID)
			},
		},
	}

	var conflicts []models.Conflict
	for _, check := range checks {
		existing, err := check.find(ctx, check.key, candidate.TimeSlotID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check routine occupancy")
		}
		for _, routine := range existing {
			if routine.ID == candidate.ID {
				continue
			}
			conflictingID := routine.ID
			conflicts = append(conflicts, models.Conflict{
				RoutineID:            candidate.ID,
				ConflictingRoutineID: &conflictingID,
				Type:                 check.conflictType,
				Severity:             check.severity,
				Status:               models.ConflictStatusDetected,
				Description:          check.describe(routine),
				SuggestedResolution:  check.resolution,
			})
		}
	}

	s.metrics.RecordConflicts(conflicts, time.Since(start))
	if len(conflicts) == 0 {
		return nil, nil
	}

	for i := range conflicts {
		s.record(ctx, &conflicts[i])
	}
	if s.notifier != nil {
		s.notifier.ConflictsDetected(ctx, candidate.ID, conflicts)
	}
	s.logger.Info("scheduling conflicts detected",
		zap.String("routine_id", candidate.ID),
		zap.String("time_slot_id", candidate.TimeSlotID),
		zap.Int("conflicts", len(conflicts)),
	)
	return conflicts, nil
}

// Check runs detection for an unsaved routine proposal. Nothing is scheduled; conflicts are still
// appended to the ledger under a fresh routine ID.
func (s *ConflictService) Check(ctx context.Context, req dto.CreateRoutineRequest) ([]models.Conflict, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid routine payload")
	}
	candidate := &models.Routine{
		ID:         uuid.NewString(),
		ClassID:    req.ClassID,
		TeacherID:  req.TeacherID,
		SubjectID:  req.SubjectID,
		LessonID:   req.LessonID,
		TimeSlotID: req.TimeSlotID,
		RoomID:     req.RoomID,
		Type:       req.Type,
		Status:     req.Status,
	}
	if candidate.Status == "" {
		candidate.Status = models.RoutineStatusActive
	}
	conflicts, err := s.Detect(ctx, candidate)
	if err != nil {
		return nil, err
	}
	if conflicts == nil {
		conflicts = []models.Conflict{}
	}
	return conflicts, nil
}

// record appends the conflict to the ledger. With deduplication on, an open entry for the same
// collision is reused, so repeated rejected attempts leave a single row.
// Ledger failures are logged; the detection result is still returned to the caller.
func (s *ConflictService) record(ctx context.Context, conflict *models.Conflict) {
	if s.ledger == nil {
		return
	}
	if s.cfg.Deduplicate && conflict.ConflictingRoutineID != nil {
		existing, err := s.ledger.FindOpen(ctx, *conflict.ConflictingRoutineID, conflict.Type, conflict.Description)
		if err != nil {
			s.logger.Warn("failed to look up open conflict", zap.String("routine_id", conflict.RoutineID), zap.Error(err))
		} else if existing != nil {
			*conflict = *existing
			return
		}
	}
	if err := s.ledger.Create(ctx, conflict); err != nil {
		s.logger.Warn("failed to persist conflict",
			zap.String("routine_id", conflict.RoutineID),
			zap.String("type", string(conflict.Type)),
			zap.Error(err),
		)
	}
}

// Get returns a ledger entry.
func (s *ConflictService) Get(ctx context.Context, id string) (*models.Conflict, error) {
	conflict, err := s.ledger.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "conflict not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load conflict")
	}
	return conflict, nil
}

// ListUnresolved returns DETECTED entries, most severe first.
func (s *ConflictService) ListUnresolved(ctx context.Context) ([]models.Conflict, error) {
	conflicts, err := s.ledger.ListUnresolved(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list unresolved conflicts")
	}
	return conflicts, nil
}

// CountUnresolved counts DETECTED entries.
func (s *ConflictService) CountUnresolved(ctx context.Context) (int, error) {
	total, err := s.ledger.CountUnresolved(ctx)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count unresolved conflicts")
	}
	return total, nil
}

// ListByRoutine returns entries involving the routine on either side.
func (s *ConflictService) ListByRoutine(ctx context.Context, routineID string) ([]models.Conflict, error) {
	conflicts, err := s.ledger.ListByRoutine(ctx, routineID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list routine conflicts")
	}
	return conflicts, nil
}

// UpdateStatus applies a workflow transition:
// DETECTED -> ACKNOWLEDGED, and DETECTED|ACKNOWLEDGED -> RESOLVED|IGNORED.
// RESOLVED and IGNORED are terminal and stamp the acting user and time.
func (s *ConflictService) UpdateStatus(ctx context.Context, id string, req dto.UpdateConflictStatusRequest, actor string) (*models.Conflict, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid conflict status payload")
	}
	conflict, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !conflictTransitionAllowed(conflict.Status, req.Status) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("cannot move conflict from %s to %s", conflict.Status, req.Status))
	}

	before := *conflict
	conflict.Status = req.Status
	if req.Status == models.ConflictStatusResolved || req.Status == models.ConflictStatusIgnored {
		now := time.Now().UTC()
		conflict.ResolvedAt = &now
		if actor != "" {
			resolvedBy := actor
			conflict.ResolvedBy = &resolvedBy
		}
	}
	if err := s.ledger.UpdateStatus(ctx, conflict); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "conflict not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update conflict")
	}
	s.audit.Record(ctx, actor, models.AuditActionUpdate, models.AuditResourceConflict, conflict.ID, before, conflict)
	return conflict, nil
}

func conflictTransitionAllowed(from, to models.ConflictStatus) bool {
	switch to {
	case models.ConflictStatusAcknowledged:
		return from == models.ConflictStatusDetected
	case models.ConflictStatusResolved, models.ConflictStatusIgnored:
		return from.Open()
	default:
		return false
	}
}
