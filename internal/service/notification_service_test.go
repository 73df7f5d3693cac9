package service

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-routine-api/internal/models"
	appErrors "github.com/noah-isme/sma-routine-api/pkg/errors"
	"github.com/noah-isme/sma-routine-api/pkg/jobs"
)

type notificationRepoStub struct {
	mu         sync.Mutex
	created    []models.Notification
	deliveries map[string]models.DeliveryStatus
	createErr  error
}

func (s *notificationRepoStub) ListUnread(ctx context.Context) ([]models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Notification
	for _, n := range s.created {
		if !n.Read() {
			out = append(out, n)
		}
	}
	return out, nil
}

func (s *notificationRepoStub) CountUnread(ctx context.Context) (int, error) {
	unread, err := s.ListUnread(ctx)
	return len(unread), err
}

func (s *notificationRepoStub) MarkRead(ctx context.Context, id string, readAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.created {
		if s.created[i].ID == id {
			if s.created[i].ReadAt == nil {
				s.created[i].ReadAt = &readAt
			}
			return nil
		}
	}
	return sql.ErrNoRows
}

func (s *notificationRepoStub) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.created {
		if s.created[i].ID == id {
			s.created = append(s.created[:i], s.created[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

func newNotificationRepoStub() *notificationRepoStub {
	return &notificationRepoStub{deliveries: map[string]models.DeliveryStatus{}}
}

func (s *notificationRepoStub) Create(ctx context.Context, notification *models.Notification) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if notification.ID == "" {
		notification.ID = "n-" + string(notification.Type)
	}
	s.created = append(s.created, *notification)
	return nil
}

func (s *notificationRepoStub) MarkDelivery(ctx context.Context, id string, status models.DeliveryStatus, deliveredAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deliveries[id] = status
	return nil
}

func (s *notificationRepoStub) ListRecent(ctx context.Context, limit int) ([]models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Notification(nil), s.created...), nil
}

func (s *notificationRepoStub) types() []models.NotificationType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.NotificationType, 0, len(s.created))
	for _, n := range s.created {
		out = append(out, n.Type)
	}
	return out
}

type dispatcherStub struct {
	mu   sync.Mutex
	jobs []jobs.Job
	err  error
}

func (d *dispatcherStub) Enqueue(job jobs.Job) error {
	if d.err != nil {
		return d.err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.jobs = append(d.jobs, job)
	return nil
}

func TestNotificationServiceConflictsDetectedEnqueues(t *testing.T) {
	repo := newNotificationRepoStub()
	dispatcher := &dispatcherStub{}
	svc := NewNotificationService(repo, nil)
	svc.AttachQueue(dispatcher)

	svc.ConflictsDetected(context.Background(), "r-new", []models.Conflict{
		{Severity: models.SeverityCritical, Description: "Teacher teacher-1 is already assigned"},
		{Severity: models.SeverityHigh, Description: "Class class-1 already has a routine"},
	})

	require.Len(t, repo.created, 1)
	assert.Equal(t, "2 scheduling conflict(s) detected", repo.created[0].Title)
	assert.Contains(t, repo.created[0].Message, "[CRITICAL] Teacher teacher-1 is already assigned")
	require.Len(t, dispatcher.jobs, 1)
	assert.Equal(t, NotificationJobType, dispatcher.jobs[0].Type)

	require.NoError(t, svc.Deliver(context.Background(), dispatcher.jobs[0]))
	assert.Equal(t, models.DeliverySent, repo.deliveries[repo.created[0].ID])
}

func TestNotificationServiceSkipsEmptyConflicts(t *testing.T) {
	repo := newNotificationRepoStub()
	svc := NewNotificationService(repo, nil)
	svc.ConflictsDetected(context.Background(), "r1", nil)
	assert.Empty(t, repo.created)
}

func TestNotificationServiceFailuresAreSwallowed(t *testing.T) {
	repo := newNotificationRepoStub()
	svc := NewNotificationService(repo, nil)
	svc.AttachQueue(&dispatcherStub{err: errors.New("queue full")})

	assert.NotPanics(t, func() {
		svc.SubstituteAssigned(context.Background(), &models.Substitution{ID: "s1", SubstituteDate: time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)})
	})
	assert.Len(t, repo.created, 1)

	repo.createErr = errors.New("db down")
	assert.NotPanics(t, func() {
		svc.SubstituteAssigned(context.Background(), &models.Substitution{ID: "s2"})
	})
}

func TestNotificationServiceDeadLetterMarksFailed(t *testing.T) {
	repo := newNotificationRepoStub()
	svc := NewNotificationService(repo, nil)

	svc.DeadLetter(context.Background(), jobs.Job{Payload: models.Notification{ID: "n1"}}, errors.New("smtp down"))
	assert.Equal(t, models.DeliveryFailed, repo.deliveries["n1"])

	assert.Error(t, svc.Deliver(context.Background(), jobs.Job{Payload: "garbage"}))
}

func TestNotificationServiceReadState(t *testing.T) {
	repo := newNotificationRepoStub()
	svc := NewNotificationService(repo, nil)
	ctx := context.Background()

	svc.ConflictsDetected(ctx, "r1", []models.Conflict{{Severity: models.SeverityCritical, Description: "teacher busy"}})
	svc.SubstituteAssigned(ctx, &models.Substitution{ID: "s1", RoutineID: "r1", OriginalTeacherID: "T1", SubstituteTeacherID: "T3"})

	total, err := svc.CountUnread(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	require.NoError(t, svc.MarkRead(ctx, "n-CONFLICT_DETECTED"))
	require.NoError(t, svc.MarkRead(ctx, "n-CONFLICT_DETECTED"))
	unread, err := svc.Unread(ctx)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, models.NotificationSubstituteAssigned, unread[0].Type)

	err = svc.MarkRead(ctx, "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	require.NoError(t, svc.Delete(ctx, "n-SUBSTITUTE_ASSIGNED"))
	total, err = svc.CountUnread(ctx)
	require.NoError(t, err)
	assert.Zero(t, total)
	err = svc.Delete(ctx, "n-SUBSTITUTE_ASSIGNED")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
