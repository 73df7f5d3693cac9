package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-routine-api/internal/dto"
	"github.com/noah-isme/sma-routine-api/internal/models"
	appErrors "github.com/noah-isme/sma-routine-api/pkg/errors"
)

// routineStoreStub is an in-memory routine table shared by the scheduling tests.
type routineStoreStub struct {
	mu        sync.Mutex
	routines  map[string]models.Routine
	createErr error
	updateErr error
}

func newRoutineStoreStub(seed ...models.Routine) *routineStoreStub {
	store := &routineStoreStub{routines: map[string]models.Routine{}}
	for _, r := range seed {
		if r.Status == "" {
			r.Status = models.RoutineStatusActive
		}
		store.routines[r.ID] = r
	}
	return store
}

func (s *routineStoreStub) FindByID(ctx context.Context, id string) (*models.Routine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.routines[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &r, nil
}

func (s *routineStoreStub) filter(match func(models.Routine) bool) []models.Routine {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Routine
	for _, r := range s.routines {
		if match(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *routineStoreStub) FindActiveByTeacherAndSlot(ctx context.Context, teacherID, timeSlotID string) ([]models.Routine, error) {
	return s.filter(func(r models.Routine) bool {
		return r.IsActive() && r.TeacherID == teacherID && r.TimeSlotID == timeSlotID
	}), nil
}

func (s *routineStoreStub) FindActiveByRoomAndSlot(ctx context.Context, roomID, timeSlotID string) ([]models.Routine, error) {
	return s.filter(func(r models.Routine) bool {
		return r.IsActive() && r.RoomID == roomID && r.TimeSlotID == timeSlotID
	}), nil
}

func (s *routineStoreStub) FindActiveByClassAndSlot(ctx context.Context, classID, timeSlotID string) ([]models.Routine, error) {
	return s.filter(func(r models.Routine) bool {
		return r.IsActive() && r.ClassID == classID && r.TimeSlotID == timeSlotID
	}), nil
}

func (s *routineStoreStub) TeacherBusyInSlot(ctx context.Context, exec sqlx.ExtContext, teacherID, timeSlotID string) (bool, error) {
	assigned, err := s.FindActiveByTeacherAndSlot(ctx, teacherID, timeSlotID)
	return len(assigned) > 0, err
}

func (s *routineStoreStub) ListByClass(ctx context.Context, classID string) ([]models.Routine, error) {
	return s.filter(func(r models.Routine) bool { return r.ClassID == classID }), nil
}

func (s *routineStoreStub) ListByTeacher(ctx context.Context, teacherID string) ([]models.Routine, error) {
	return s.filter(func(r models.Routine) bool { return r.TeacherID == teacherID }), nil
}

func (s *routineStoreStub) ListByStatus(ctx context.Context, status models.RoutineStatus) ([]models.Routine, error) {
	return s.filter(func(r models.Routine) bool { return r.Status == status }), nil
}

func (s *routineStoreStub) List(ctx context.Context, filter models.RoutineFilter) ([]models.Routine, int, error) {
	out := s.filter(func(r models.Routine) bool {
		return filter.ClassID == "" || r.ClassID == filter.ClassID
	})
	return out, len(out), nil
}

func (s *routineStoreStub) Create(ctx context.Context, exec sqlx.ExtContext, routine *models.Routine) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.routines[routine.ID] = *routine
	return nil
}

func (s *routineStoreStub) Update(ctx context.Context, exec sqlx.ExtContext, routine *models.Routine) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.routines[routine.ID]; !ok {
		return sql.ErrNoRows
	}
	s.routines[routine.ID] = *routine
	return nil
}

func (s *routineStoreStub) Delete(ctx context.Context, exec sqlx.ExtContext, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.routines[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.routines, id)
	return nil
}

// ledgerStub is an in-memory conflicts table.
type ledgerStub struct {
	mu        sync.Mutex
	entries   []models.Conflict
	createErr error
	seq       int
}

func (l *ledgerStub) Create(ctx context.Context, conflict *models.Conflict) error {
	if l.createErr != nil {
		return l.createErr
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seq++
	conflict.ID = fmt.Sprintf("c-%d", l.seq)
	l.entries = append(l.entries, *conflict)
	return nil
}

func (l *ledgerStub) FindOpen(ctx context.Context, conflictingRoutineID string, conflictType models.ConflictType, description string) (*models.Conflict, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, c := range l.entries {
		if c.ConflictingRoutineID != nil && *c.ConflictingRoutineID == conflictingRoutineID &&
			c.Type == conflictType && c.Description == description && c.Status.Open() {
			found := c
			return &found, nil
		}
	}
	return nil, nil
}

func (l *ledgerStub) FindByID(ctx context.Context, id string) (*models.Conflict, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, c := range l.entries {
		if c.ID == id {
			found := c
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (l *ledgerStub) ListUnresolved(ctx context.Context) ([]models.Conflict, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []models.Conflict
	for _, c := range l.entries {
		if c.Status == models.ConflictStatusDetected {
			out = append(out, c)
		}
	}
	return out, nil
}

func (l *ledgerStub) CountUnresolved(ctx context.Context) (int, error) {
	out, _ := l.ListUnresolved(ctx)
	return len(out), nil
}

func (l *ledgerStub) ListByRoutine(ctx context.Context, routineID string) ([]models.Conflict, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []models.Conflict
	for _, c := range l.entries {
		if c.RoutineID == routineID || (c.ConflictingRoutineID != nil && *c.ConflictingRoutineID == routineID) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (l *ledgerStub) UpdateStatus(ctx context.Context, conflict *models.Conflict) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.entries {
		if l.entries[i].ID == conflict.ID {
			l.entries[i] = *conflict
			return nil
		}
	}
	return sql.ErrNoRows
}

func (l *ledgerStub) DeleteByRoutine(ctx context.Context, exec sqlx.ExtContext, routineID string) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	kept := l.entries[:0]
	var removed int64
	for _, c := range l.entries {
		if c.RoutineID == routineID || (c.ConflictingRoutineID != nil && *c.ConflictingRoutineID == routineID) {
			removed++
			continue
		}
		kept = append(kept, c)
	}
	l.entries = kept
	return removed, nil
}

func (l *ledgerStub) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

type conflictNotifierStub struct {
	calls int
}

func (n *conflictNotifierStub) ConflictsDetected(ctx context.Context, routineID string, conflicts []models.Conflict) {
	n.calls++
}

func mondayRoutine(id, teacher, room, class string) models.Routine {
	return models.Routine{
		ID:         id,
		ClassID:    class,
		TeacherID:  teacher,
		SubjectID:  "math",
		LessonID:   "lesson-1",
		TimeSlotID: "mon-0900",
		RoomID:     room,
		Type:       models.RoutineTypeRegular,
		Status:     models.RoutineStatusActive,
	}
}

func newConflictServiceFixture(store *routineStoreStub, ledger *ledgerStub, dedupe bool) (*ConflictService, *conflictNotifierStub) {
	notifier := &conflictNotifierStub{}
	svc := NewConflictService(store, ledger, NewMetricsService(), notifier, nil, nil, nil, ConflictServiceConfig{Deduplicate: dedupe})
	return svc, notifier
}

func TestConflictServiceDetectTeacherDoubleBooking(t *testing.T) {
	store := newRoutineStoreStub(mondayRoutine("r1", "T1", "R1", "C1"))
	ledger := &ledgerStub{}
	svc, notifier := newConflictServiceFixture(store, ledger, true)

	candidate := mondayRoutine("r2", "T1", "R2", "C2")
	conflicts, err := svc.Detect(context.Background(), &candidate)
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, models.ConflictTeacherDoubleBooking, conflicts[0].Type)
	assert.Equal(t, models.SeverityCritical, conflicts[0].Severity)
	assert.Equal(t, "r2", conflicts[0].RoutineID)
	require.NotNil(t, conflicts[0].ConflictingRoutineID)
	assert.Equal(t, "r1", *conflicts[0].ConflictingRoutineID)
	assert.Equal(t, resolutionTeacher, conflicts[0].SuggestedResolution)
	assert.Equal(t, 1, ledger.len())
	assert.Equal(t, 1, notifier.calls)
}

func TestConflictServiceDetectAllDimensions(t *testing.T) {
	store := newRoutineStoreStub(mondayRoutine("r1", "T1", "R1", "C1"))
	svc, _ := newConflictServiceFixture(store, &ledgerStub{}, true)

	candidate := mondayRoutine("r2", "T1", "R1", "C1")
	conflicts, err := svc.Detect(context.Background(), &candidate)
	require.NoError(t, err)
	require.Len(t, conflicts, 3)
	assert.Equal(t, models.ConflictTeacherDoubleBooking, conflicts[0].Type)
	assert.Equal(t, models.ConflictClassroomDoubleBooking, conflicts[1].Type)
	assert.Equal(t, models.SeverityHigh, conflicts[1].Severity)
	assert.Equal(t, models.ConflictClassDoubleBooking, conflicts[2].Type)
}

func TestConflictServiceDetectExcludesSelfAndInactive(t *testing.T) {
	existing := mondayRoutine("r1", "T1", "R1", "C1")
	inactive := mondayRoutine("r3", "T2", "R2", "C2")
	inactive.Status = models.RoutineStatusInactive
	store := newRoutineStoreStub(existing, inactive)
	ledger := &ledgerStub{}
	svc, notifier := newConflictServiceFixture(store, ledger, true)

	conflicts, err := svc.Detect(context.Background(), &existing)
	require.NoError(t, err)
	assert.Empty(t, conflicts)

	candidate := mondayRoutine("r4", "T2", "R2", "C2")
	conflicts, err = svc.Detect(context.Background(), &candidate)
	require.NoError(t, err)
	assert.Empty(t, conflicts)

	candidate.TeacherID = "T1"
	candidate.Status = models.RoutineStatusInactive
	conflicts, err = svc.Detect(context.Background(), &candidate)
	require.NoError(t, err)
	assert.Empty(t, conflicts)
	assert.Zero(t, ledger.len())
	assert.Zero(t, notifier.calls)
}

func TestConflictServiceDetectIsIdempotent(t *testing.T) {
	store := newRoutineStoreStub(mondayRoutine("r1", "T1", "R1", "C1"))
	ledger := &ledgerStub{}
	svc, _ := newConflictServiceFixture(store, ledger, true)

	candidate := mondayRoutine("r2", "T1", "R1", "C2")
	first, err := svc.Detect(context.Background(), &candidate)
	require.NoError(t, err)
	second, err := svc.Detect(context.Background(), &candidate)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 2, ledger.len(), "open entries are reused")
}

func TestConflictServiceDetectAppendsWithoutDeduplication(t *testing.T) {
	store := newRoutineStoreStub(mondayRoutine("r1", "T1", "R1", "C1"))
	ledger := &ledgerStub{}
	svc, _ := newConflictServiceFixture(store, ledger, false)

	candidate := mondayRoutine("r2", "T1", "R2", "C2")
	for i := 0; i < 2; i++ {
		conflicts, err := svc.Detect(context.Background(), &candidate)
		require.NoError(t, err)
		require.Len(t, conflicts, 1)
	}
	assert.Equal(t, 2, ledger.len())
}

func TestConflictServiceDetectSurvivesLedgerFailure(t *testing.T) {
	store := newRoutineStoreStub(mondayRoutine("r1", "T1", "R1", "C1"))
	svc, _ := newConflictServiceFixture(store, &ledgerStub{createErr: fmt.Errorf("disk full")}, true)

	candidate := mondayRoutine("r2", "T1", "R2", "C2")
	conflicts, err := svc.Detect(context.Background(), &candidate)
	require.NoError(t, err)
	assert.Len(t, conflicts, 1)
}

func TestConflictServiceUpdateStatusTransitions(t *testing.T) {
	store := newRoutineStoreStub(mondayRoutine("r1", "T1", "R1", "C1"))
	ledger := &ledgerStub{}
	svc, _ := newConflictServiceFixture(store, ledger, true)

	candidate := mondayRoutine("r2", "T1", "R2", "C2")
	conflicts, err := svc.Detect(context.Background(), &candidate)
	require.NoError(t, err)
	id := conflicts[0].ID

	total, err := svc.CountUnresolved(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, total)

	acked, err := svc.UpdateStatus(context.Background(), id, dto.UpdateConflictStatusRequest{Status: models.ConflictStatusAcknowledged}, "planner-1")
	require.NoError(t, err)
	assert.Equal(t, models.ConflictStatusAcknowledged, acked.Status)
	assert.Nil(t, acked.ResolvedAt)

	_, err = svc.UpdateStatus(context.Background(), id, dto.UpdateConflictStatusRequest{Status: models.ConflictStatusAcknowledged}, "planner-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	resolved, err := svc.UpdateStatus(context.Background(), id, dto.UpdateConflictStatusRequest{Status: models.ConflictStatusResolved}, "planner-1")
	require.NoError(t, err)
	require.NotNil(t, resolved.ResolvedBy)
	assert.Equal(t, "planner-1", *resolved.ResolvedBy)
	assert.NotNil(t, resolved.ResolvedAt)

	_, err = svc.UpdateStatus(context.Background(), id, dto.UpdateConflictStatusRequest{Status: models.ConflictStatusIgnored}, "planner-1")
	require.Error(t, err)

	total, err = svc.CountUnresolved(context.Background())
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestConflictServiceGetNotFound(t *testing.T) {
	svc, _ := newConflictServiceFixture(newRoutineStoreStub(), &ledgerStub{}, true)

	_, err := svc.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	_, err = svc.UpdateStatus(context.Background(), "missing", dto.UpdateConflictStatusRequest{Status: "OPEN"}, "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestConflictServiceCheckProposal(t *testing.T) {
	store := newRoutineStoreStub(mondayRoutine("r1", "T1", "R1", "C1"))
	svc, _ := newConflictServiceFixture(store, &ledgerStub{}, true)

	conflicts, err := svc.Check(context.Background(), dto.CreateRoutineRequest{
		ClassID: "C2", TeacherID: "T2", SubjectID: "math", LessonID: "lesson-1", TimeSlotID: "mon-0900", RoomID: "R1",
	})
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, models.ConflictClassroomDoubleBooking, conflicts[0].Type)
	assert.NotEmpty(t, conflicts[0].RoutineID)

	conflicts, err = svc.Check(context.Background(), dto.CreateRoutineRequest{
		ClassID: "C2", TeacherID: "T2", SubjectID: "math", LessonID: "lesson-1", TimeSlotID: "mon-1000", RoomID: "R1",
	})
	require.NoError(t, err)
	assert.NotNil(t, conflicts)
	assert.Empty(t, conflicts)

	_, err = svc.Check(context.Background(), dto.CreateRoutineRequest{ClassID: "C2"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
