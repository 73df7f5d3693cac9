package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-routine-api/internal/dto"
	"github.com/noah-isme/sma-routine-api/internal/models"
	appErrors "github.com/noah-isme/sma-routine-api/pkg/errors"
)

type calendarStore interface {
	HolidaysOn(ctx context.Context, day time.Time) ([]models.Holiday, error)
	ExamPeriodsOn(ctx context.Context, day time.Time) ([]models.ExamPeriod, error)
	ListHolidays(ctx context.Context, window models.CalendarRange) ([]models.Holiday, error)
	ListExamPeriods(ctx context.Context, window models.CalendarRange) ([]models.ExamPeriod, error)
	FindHoliday(ctx context.Context, id string) (*models.Holiday, error)
	FindExamPeriod(ctx context.Context, id string) (*models.ExamPeriod, error)
	CreateHoliday(ctx context.Context, holiday *models.Holiday) error
	UpdateHoliday(ctx context.Context, holiday *models.Holiday) error
	DeleteHoliday(ctx context.Context, id string) error
	CreateExamPeriod(ctx context.Context, period *models.ExamPeriod) error
	UpdateExamPeriod(ctx context.Context, period *models.ExamPeriod) error
	DeleteExamPeriod(ctx context.Context, id string) error
}

// CalendarService keeps the holiday and exam period calendar that substitute allocation consults.
type CalendarService struct {
	repo      calendarStore
	cache     *CacheService
	audit     *AuditService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCalendarService constructs a CalendarService.
func NewCalendarService(repo calendarStore, cache *CacheService, audit *AuditService, validate *validator.Validate, logger *zap.Logger) *CalendarService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CalendarService{repo: repo, cache: cache, audit: audit, validator: validate, logger: logger}
}

// Day reports the holidays and exam periods covering date.
func (s *CalendarService) Day(ctx context.Context, date string) (*models.CalendarDay, error) {
	day, err := time.Parse(dateLayout, date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date must use YYYY-MM-DD")
	}
	holidays, err := s.holidaysOn(ctx, day)
	if err != nil {
		return nil, err
	}
	periods, err := s.examPeriodsOn(ctx, day)
	if err != nil {
		return nil, err
	}
	if holidays == nil {
		holidays = []models.Holiday{}
	}
	if periods == nil {
		periods = []models.ExamPeriod{}
	}
	return &models.CalendarDay{
		Date:        date,
		IsHoliday:   len(holidays) > 0,
		IsExam:      len(periods) > 0,
		Holidays:    holidays,
		ExamPeriods: periods,
	}, nil
}

// IsHoliday reports whether any holiday falls on day.
func (s *CalendarService) IsHoliday(ctx context.Context, day time.Time) (bool, error) {
	holidays, err := s.holidaysOn(ctx, day)
	if err != nil {
		return false, err
	}
	return len(holidays) > 0, nil
}

// IsExamPeriod reports whether any exam period covers day.
func (s *CalendarService) IsExamPeriod(ctx context.Context, day time.Time) (bool, error) {
	periods, err := s.examPeriodsOn(ctx, day)
	if err != nil {
		return false, err
	}
	return len(periods) > 0, nil
}

// ListHolidays returns holidays between the optional bounds.
func (s *CalendarService) ListHolidays(ctx context.Context, query dto.CalendarRangeQuery) ([]models.Holiday, error) {
	window, err := s.window(query)
	if err != nil {
		return nil, err
	}
	holidays, err := s.repo.ListHolidays(ctx, window)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list holidays")
	}
	return holidays, nil
}

// ListExamPeriods returns exam periods intersecting the optional bounds.
func (s *CalendarService) ListExamPeriods(ctx context.Context, query dto.CalendarRangeQuery) ([]models.ExamPeriod, error) {
	window, err := s.window(query)
	if err != nil {
		return nil, err
	}
	periods, err := s.repo.ListExamPeriods(ctx, window)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list exam periods")
	}
	return periods, nil
}

// GetHoliday returns a holiday by ID.
func (s *CalendarService) GetHoliday(ctx context.Context, id string) (*models.Holiday, error) {
	holiday, err := s.repo.FindHoliday(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "holiday not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load holiday")
	}
	return holiday, nil
}

// CreateHoliday registers a holiday. Type defaults to PUBLIC.
func (s *CalendarService) CreateHoliday(ctx context.Context, req dto.HolidayRequest, actor string) (*models.Holiday, error) {
	holiday, err := s.buildHoliday(req)
	if err != nil {
		return nil, err
	}
	holiday.CreatedBy = actor
	if err := s.repo.CreateHoliday(ctx, holiday); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create holiday")
	}
	s.invalidate(ctx)
	s.audit.Record(ctx, actor, models.AuditActionCreate, models.AuditResourceHoliday, holiday.ID, nil, holiday)
	return holiday, nil
}

// UpdateHoliday replaces a holiday's name, date, description and type.
func (s *CalendarService) UpdateHoliday(ctx context.Context, id string, req dto.HolidayRequest, actor string) (*models.Holiday, error) {
	existing, err := s.GetHoliday(ctx, id)
	if err != nil {
		return nil, err
	}
	holiday, err := s.buildHoliday(req)
	if err != nil {
		return nil, err
	}
	holiday.ID = id
	holiday.CreatedBy = existing.CreatedBy
	holiday.CreatedAt = existing.CreatedAt
	if err := s.repo.UpdateHoliday(ctx, holiday); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "holiday not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update holiday")
	}
	s.invalidate(ctx)
	s.audit.Record(ctx, actor, models.AuditActionUpdate, models.AuditResourceHoliday, id, existing, holiday)
	return holiday, nil
}

// DeleteHoliday removes a holiday.
func (s *CalendarService) DeleteHoliday(ctx context.Context, id, actor string) error {
	existing, err := s.GetHoliday(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteHoliday(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "holiday not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete holiday")
	}
	s.invalidate(ctx)
	s.audit.Record(ctx, actor, models.AuditActionDelete, models.AuditResourceHoliday, id, existing, nil)
	return nil
}

// GetExamPeriod returns an exam period by ID.
func (s *CalendarService) GetExamPeriod(ctx context.Context, id string) (*models.ExamPeriod, error) {
	period, err := s.repo.FindExamPeriod(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "exam period not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam period")
	}
	return period, nil
}

// CreateExamPeriod registers an exam period. Type defaults to MIDTERM.
func (s *CalendarService) CreateExamPeriod(ctx context.Context, req dto.ExamPeriodRequest, actor string) (*models.ExamPeriod, error) {
	period, err := s.buildExamPeriod(req)
	if err != nil {
		return nil, err
	}
	period.CreatedBy = actor
	if err := s.repo.CreateExamPeriod(ctx, period); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create exam period")
	}
	s.invalidate(ctx)
	s.audit.Record(ctx, actor, models.AuditActionCreate, models.AuditResourceExamPeriod, period.ID, nil, period)
	return period, nil
}

// UpdateExamPeriod replaces an exam period.
func (s *CalendarService) UpdateExamPeriod(ctx context.Context, id string, req dto.ExamPeriodRequest, actor string) (*models.ExamPeriod, error) {
	existing, err := s.GetExamPeriod(ctx, id)
	if err != nil {
		return nil, err
	}
	period, err := s.buildExamPeriod(req)
	if err != nil {
		return nil, err
	}
	period.ID = id
	period.CreatedBy = existing.CreatedBy
	period.CreatedAt = existing.CreatedAt
	if err := s.repo.UpdateExamPeriod(ctx, period); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "exam period not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update exam period")
	}
	s.invalidate(ctx)
	s.audit.Record(ctx, actor, models.AuditActionUpdate, models.AuditResourceExamPeriod, id, existing, period)
	return period, nil
}

// DeleteExamPeriod removes an exam period.
func (s *CalendarService) DeleteExamPeriod(ctx context.Context, id, actor string) error {
	existing, err := s.GetExamPeriod(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteExamPeriod(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "exam period not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete exam period")
	}
	s.invalidate(ctx)
	s.audit.Record(ctx, actor, models.AuditActionDelete, models.AuditResourceExamPeriod, id, existing, nil)
	return nil
}

func (s *CalendarService) holidaysOn(ctx context.Context, day time.Time) ([]models.Holiday, error) {
	return readThrough(ctx, s.cache, calendarKey("holidays", day.Format(dateLayout)), func() ([]models.Holiday, error) {
		holidays, err := s.repo.HolidaysOn(ctx, day)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check holidays")
		}
		return holidays, nil
	})
}

func (s *CalendarService) examPeriodsOn(ctx context.Context, day time.Time) ([]models.ExamPeriod, error) {
	return readThrough(ctx, s.cache, calendarKey("exams", day.Format(dateLayout)), func() ([]models.ExamPeriod, error) {
		periods, err := s.repo.ExamPeriodsOn(ctx, day)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check exam periods")
		}
		return periods, nil
	})
}

func (s *CalendarService) buildHoliday(req dto.HolidayRequest) (*models.Holiday, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid holiday payload")
	}
	day, _ := time.Parse(dateLayout, req.Date)
	holiday := &models.Holiday{Name: req.Name, Date: day, Description: req.Description, Type: req.Type}
	if holiday.Type == "" {
		holiday.Type = models.HolidayPublic
	}
	return holiday, nil
}

func (s *CalendarService) buildExamPeriod(req dto.ExamPeriodRequest) (*models.ExamPeriod, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid exam period payload")
	}
	start, _ := time.Parse(dateLayout, req.StartDate)
	end, _ := time.Parse(dateLayout, req.EndDate)
	if end.Before(start) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "endDate must be on or after startDate")
	}
	period := &models.ExamPeriod{Name: req.Name, StartDate: start, EndDate: end, Description: req.Description, Type: req.Type}
	if period.Type == "" {
		period.Type = models.ExamMidterm
	}
	return period, nil
}

func (s *CalendarService) window(query dto.CalendarRangeQuery) (models.CalendarRange, error) {
	if err := s.validator.Struct(query); err != nil {
		return models.CalendarRange{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid calendar range")
	}
	var window models.CalendarRange
	if query.From != "" {
		from, _ := time.Parse(dateLayout, query.From)
		window.From = &from
	}
	if query.To != "" {
		to, _ := time.Parse(dateLayout, query.To)
		window.To = &to
	}
	if window.From != nil && window.To != nil && window.To.Before(*window.From) {
		return models.CalendarRange{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("range end %s is before start %s", query.To, query.From))
	}
	return window, nil
}

func (s *CalendarService) invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, calendarCachePattern); err != nil {
		s.logger.Warn("failed to invalidate calendar cache", zap.Error(err))
	}
}
