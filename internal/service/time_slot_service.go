package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-routine-api/internal/dto"
	"github.com/noah-isme/sma-routine-api/internal/models"
	"github.com/noah-isme/sma-routine-api/pkg/database"
	appErrors "github.com/noah-isme/sma-routine-api/pkg/errors"
)

type timeSlotRepository interface {
	FindByID(ctx context.Context, id string) (*models.TimeSlot, error)
	ListByDay(ctx context.Context, day models.DayOfWeek) ([]models.TimeSlot, error)
	Create(ctx context.Context, slot *models.TimeSlot) error
	Update(ctx context.Context, slot *models.TimeSlot) error
	Delete(ctx context.Context, id string) error
	CountRoutines(ctx context.Context, id string) (int, error)
}

// TimeSlotService maintains the weekly slot catalog. Slots on the same day never overlap.
type TimeSlotService struct {
	repo      timeSlotRepository
	cache     *CacheService
	audit     *AuditService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTimeSlotService constructs a TimeSlotService.
func NewTimeSlotService(repo timeSlotRepository, cache *CacheService, audit *AuditService, validate *validator.Validate, logger *zap.Logger) *TimeSlotService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimeSlotService{repo: repo, cache: cache, audit: audit, validator: validate, logger: logger}
}

// Create adds a slot after checking it against the same day's catalog.
func (s *TimeSlotService) Create(ctx context.Context, req dto.TimeSlotRequest, actor string) (*models.TimeSlot, error) {
	slot, err := s.prepare(ctx, "", req)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, slot); err != nil {
		if overlap, ok := s.overlapViolation(err, slot); ok {
			return nil, overlap
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create time slot")
	}
	s.invalidate(ctx)
	s.audit.Record(ctx, actor, models.AuditActionCreate, models.AuditResourceTimeSlot, slot.ID, nil, slot)
	return slot, nil
}

// Update replaces a slot's day, times and label.
func (s *TimeSlotService) Update(ctx context.Context, id string, req dto.TimeSlotRequest, actor string) (*models.TimeSlot, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	slot, err := s.prepare(ctx, id, req)
	if err != nil {
		return nil, err
	}
	slot.ID = id
	slot.CreatedAt = existing.CreatedAt
	if err := s.repo.Update(ctx, slot); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "time slot not found")
		}
		if overlap, ok := s.overlapViolation(err, slot); ok {
			return nil, overlap
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update time slot")
	}
	s.invalidate(ctx)
	s.audit.Record(ctx, actor, models.AuditActionUpdate, models.AuditResourceTimeSlot, id, existing, slot)
	return slot, nil
}

// Delete removes a slot that no routine references.
func (s *TimeSlotService) Delete(ctx context.Context, id, actor string) error {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	inUse, err := s.repo.CountRoutines(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check time slot usage")
	}
	if inUse > 0 {
		return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("time slot is used by %d routine(s)", inUse))
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "time slot not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete time slot")
	}
	s.invalidate(ctx)
	s.audit.Record(ctx, actor, models.AuditActionDelete, models.AuditResourceTimeSlot, id, existing, nil)
	return nil
}

// Get returns a slot by ID.
func (s *TimeSlotService) Get(ctx context.Context, id string) (*models.TimeSlot, error) {
	return readThrough(ctx, s.cache, timeSlotKey("id", id), func() (*models.TimeSlot, error) {
		slot, err := s.repo.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "time slot not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load time slot")
		}
		return slot, nil
	})
}

// ListByDay returns slots for a day ordered by start time. An empty day lists the whole week.
func (s *TimeSlotService) ListByDay(ctx context.Context, day string) ([]models.TimeSlot, error) {
	var parsed models.DayOfWeek
	if day != "" {
		var ok bool
		if parsed, ok = models.ParseDayOfWeek(day); !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid day of week")
		}
	}
	key := timeSlotKey("day", "all")
	if parsed != "" {
		key = timeSlotKey("day", string(parsed))
	}
	return readThrough(ctx, s.cache, key, func() ([]models.TimeSlot, error) {
		slots, err := s.repo.ListByDay(ctx, parsed)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list time slots")
		}
		return slots, nil
	})
}

// prepare validates the request and rejects overlaps with other slots of the day.
func (s *TimeSlotService) prepare(ctx context.Context, selfID string, req dto.TimeSlotRequest) (*models.TimeSlot, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid time slot payload")
	}
	day, ok := models.ParseDayOfWeek(req.DayOfWeek)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid day of week")
	}
	interval, err := NewInterval(req.StartTime, req.EndTime)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}

	existing, err := s.repo.ListByDay(ctx, day)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load time slots")
	}
	var conflicts []models.Conflict
	for _, other := range FindOverlapping(day, interval, existing) {
		if other.ID == selfID {
			continue
		}
		conflicts = append(conflicts, models.Conflict{
			Type:                models.ConflictTimeSlotOverlap,
			Severity:            models.SeverityMedium,
			Status:              models.ConflictStatusDetected,
			Description:         fmt.Sprintf("Overlaps %s %s-%s", other.DayOfWeek, other.StartTime, other.EndTime),
			SuggestedResolution: "Adjust the start or end time",
		})
	}
	if len(conflicts) > 0 {
		return nil, conflictErr("time slot overlaps an existing slot", conflicts, false)
	}

	return &models.TimeSlot{
		DayOfWeek: day,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Label:     req.Label,
	}, nil
}

// overlapViolation maps the storage exclusion constraint to a concurrency conflict. It fires when a
// concurrent write slipped an overlapping slot in after prepare ran.
func (s *TimeSlotService) overlapViolation(err error, slot *models.TimeSlot) (error, bool) {
	constraint, ok := database.ExclusionConstraint(err)
	if !ok {
		return nil, false
	}
	s.logger.Warn("time slot write rejected by storage constraint",
		zap.String("constraint", constraint),
		zap.String("day_of_week", string(slot.DayOfWeek)),
	)
	return conflictErr("time slot overlaps a concurrently saved slot", []models.Conflict{{
		Type:                models.ConflictTimeSlotOverlap,
		Severity:            models.SeverityMedium,
		Status:              models.ConflictStatusDetected,
		Description:         fmt.Sprintf("%s %s-%s overlaps a slot saved concurrently (%s)", slot.DayOfWeek, slot.StartTime, slot.EndTime, constraint),
		SuggestedResolution: "Reload the slot catalog and adjust the start or end time",
	}}, true), true
}

func (s *TimeSlotService) invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, timeSlotCachePattern); err != nil {
		s.logger.Warn("failed to invalidate time slot cache", zap.Error(err))
	}
}
