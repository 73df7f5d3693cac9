package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-routine-api/internal/dto"
	"github.com/noah-isme/sma-routine-api/internal/models"
	appErrors "github.com/noah-isme/sma-routine-api/pkg/errors"
)

type txProviderMock struct {
	db *sqlx.DB
}

func newTxProviderMock(t *testing.T) (txProvider, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	t.Cleanup(func() { db.Close() })
	return &txProviderMock{db: sqlxdb}, mock
}

func (t *txProviderMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return t.db.BeginTxx(ctx, opts)
}

type slotLookupStub map[string]models.TimeSlot

func (s slotLookupStub) FindByID(ctx context.Context, id string) (*models.TimeSlot, error) {
	slot, ok := s[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &slot, nil
}

var testSlots = slotLookupStub{
	"mon-0900": {ID: "mon-0900", DayOfWeek: models.Monday, StartTime: "09:00", EndTime: "10:00"},
	"mon-1000": {ID: "mon-1000", DayOfWeek: models.Monday, StartTime: "10:00", EndTime: "11:00"},
}

type routineFixture struct {
	svc    *RoutineService
	store  *routineStoreStub
	ledger *ledgerStub
	audit  *auditRepoStub
	cache  *memoryCacheRepo
	mock   sqlmock.Sqlmock
}

func newRoutineFixture(t *testing.T, seed ...models.Routine) routineFixture {
	t.Helper()
	store := newRoutineStoreStub(seed...)
	ledger := &ledgerStub{}
	auditRepo := &auditRepoStub{}
	cacheRepo := newMemoryCacheRepo()
	tx, mock := newTxProviderMock(t)
	metrics := NewMetricsService()
	detector := NewConflictService(store, ledger, metrics, nil, nil, nil, nil, ConflictServiceConfig{Deduplicate: true})
	svc := NewRoutineService(
		store,
		testSlots,
		detector,
		ledger,
		tx,
		NewCacheService(cacheRepo, metrics, time.Minute, nil, true),
		NewAuditService(auditRepo, nil),
		metrics,
		nil,
		nil,
	)
	return routineFixture{svc: svc, store: store, ledger: ledger, audit: auditRepo, cache: cacheRepo, mock: mock}
}

func createRequest(teacher, room, class, slot string) dto.CreateRoutineRequest {
	return dto.CreateRoutineRequest{
		ClassID:    class,
		TeacherID:  teacher,
		SubjectID:  "math",
		LessonID:   "lesson-1",
		TimeSlotID: slot,
		RoomID:     room,
	}
}

func TestRoutineServiceCreateOnEmptyStore(t *testing.T) {
	f := newRoutineFixture(t)
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	result, err := f.svc.Create(context.Background(), createRequest("T1", "R1", "C1", "mon-0900"), "planner-1")
	require.NoError(t, err)
	require.True(t, result.Committed())
	assert.Empty(t, result.Conflicts)
	assert.NoError(t, result.Err())
	assert.Equal(t, models.RoutineTypeRegular, result.Routine.Type)
	assert.Equal(t, models.RoutineStatusActive, result.Routine.Status)
	assert.Equal(t, "planner-1", result.Routine.CreatedBy)

	stored, err := f.store.FindByID(context.Background(), result.Routine.ID)
	require.NoError(t, err)
	assert.Equal(t, "T1", stored.TeacherID)
	assert.Equal(t, []string{models.AuditActionCreate}, f.audit.actions())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.svc.metrics.routineWrites.WithLabelValues("create", OutcomeCommitted)))
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestRoutineServiceCreateRejectsTeacherDoubleBooking(t *testing.T) {
	f := newRoutineFixture(t, mondayRoutine("r1", "T1", "R1", "C1"))

	result, err := f.svc.Create(context.Background(), createRequest("T1", "R2", "C2", "mon-0900"), "planner-1")
	require.NoError(t, err)
	require.False(t, result.Committed())
	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, models.ConflictTeacherDoubleBooking, result.Conflicts[0].Type)
	assert.Equal(t, models.SeverityCritical, result.Conflicts[0].Severity)
	assert.False(t, result.Concurrency)

	appErr := appErrors.FromError(result.Err())
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	conflictErr, ok := models.AsConflictError(result.Err())
	require.True(t, ok)
	assert.Len(t, conflictErr.Conflicts, 1)

	teacherRoutines, err := f.store.ListByTeacher(context.Background(), "T1")
	require.NoError(t, err)
	assert.Len(t, teacherRoutines, 1)
	assert.Empty(t, f.audit.actions())
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestRoutineServiceCreateMapsUniqueViolation(t *testing.T) {
	f := newRoutineFixture(t)
	f.store.createErr = &pq.Error{Code: "23505", Constraint: "ux_routines_room_slot_active"}
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	result, err := f.svc.Create(context.Background(), createRequest("T1", "R1", "C1", "mon-0900"), "planner-1")
	require.NoError(t, err)
	require.True(t, result.Concurrency)
	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, models.ConflictClassroomDoubleBooking, result.Conflicts[0].Type)

	appErr := appErrors.FromError(result.Err())
	assert.Equal(t, appErrors.ErrConcurrency.Code, appErr.Code)
	conflictErr, ok := models.AsConflictError(result.Err())
	require.True(t, ok)
	assert.True(t, conflictErr.ConcurrencyViolation)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.svc.metrics.routineWrites.WithLabelValues("create", OutcomeConcurrency)))
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestRoutineServiceCreateValidation(t *testing.T) {
	f := newRoutineFixture(t)

	_, err := f.svc.Create(context.Background(), dto.CreateRoutineRequest{ClassID: "C1"}, "planner-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	req := createRequest("T1", "R1", "C1", "mon-0900")
	req.Type = "WEEKEND"
	_, err = f.svc.Create(context.Background(), req, "planner-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = f.svc.Create(context.Background(), createRequest("T1", "R1", "C1", "tue-0900"), "planner-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestRoutineServiceUpdateMovesToFreeSlot(t *testing.T) {
	f := newRoutineFixture(t,
		mondayRoutine("r1", "T1", "R1", "C1"),
		mondayRoutine("r2", "T2", "R2", "C2"),
	)
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	result, err := f.svc.Update(context.Background(), "r1", dto.UpdateRoutineRequest{
		TeacherID:  "T1",
		SubjectID:  "math",
		LessonID:   "lesson-1",
		TimeSlotID: "mon-1000",
		RoomID:     "R1",
	}, "planner-1")
	require.NoError(t, err)
	require.True(t, result.Committed())
	assert.Equal(t, "mon-1000", result.Routine.TimeSlotID)
	assert.Equal(t, "C1", result.Routine.ClassID)

	other := mondayRoutine("r2", "T2", "R2", "C2")
	conflicts, err := f.svc.detector.Detect(context.Background(), &other)
	require.NoError(t, err)
	assert.Empty(t, conflicts)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestRoutineServiceUpdateDetectsAgainstProposedValues(t *testing.T) {
	f := newRoutineFixture(t,
		mondayRoutine("r1", "T1", "R1", "C1"),
		mondayRoutine("r2", "T2", "R2", "C2"),
	)

	result, err := f.svc.Update(context.Background(), "r1", dto.UpdateRoutineRequest{
		TeacherID:  "T2",
		SubjectID:  "math",
		LessonID:   "lesson-1",
		TimeSlotID: "mon-0900",
		RoomID:     "R1",
	}, "planner-1")
	require.NoError(t, err)
	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, models.ConflictTeacherDoubleBooking, result.Conflicts[0].Type)

	stored, err := f.store.FindByID(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, "T1", stored.TeacherID)
}

func TestRoutineServiceUpdateCancelledIsTerminal(t *testing.T) {
	cancelled := mondayRoutine("r1", "T1", "R1", "C1")
	cancelled.Status = models.RoutineStatusCancelled
	f := newRoutineFixture(t, cancelled)

	_, err := f.svc.Update(context.Background(), "r1", dto.UpdateRoutineRequest{
		TeacherID:  "T1",
		SubjectID:  "math",
		LessonID:   "lesson-1",
		TimeSlotID: "mon-0900",
		RoomID:     "R1",
		Status:     models.RoutineStatusActive,
	}, "planner-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = f.svc.Update(context.Background(), "r1", dto.UpdateRoutineRequest{
		TeacherID:  "T9",
		SubjectID:  "math",
		LessonID:   "lesson-1",
		TimeSlotID: "mon-1000",
		RoomID:     "R9",
	}, "planner-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	stored, err := f.store.FindByID(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, "T1", stored.TeacherID)
	assert.Equal(t, models.RoutineStatusCancelled, stored.Status)
	assert.Empty(t, f.audit.actions())
	assert.NoError(t, f.mock.ExpectationsWereMet())

	_, err = f.svc.Update(context.Background(), "missing", dto.UpdateRoutineRequest{
		TeacherID: "T1", SubjectID: "math", LessonID: "lesson-1", TimeSlotID: "mon-0900", RoomID: "R1",
	}, "planner-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestRoutineServiceDeleteRemovesLedgerRows(t *testing.T) {
	f := newRoutineFixture(t, mondayRoutine("r1", "T1", "R1", "C1"), mondayRoutine("r9", "T9", "R9", "C9"))

	rejected, err := f.svc.Create(context.Background(), createRequest("T1", "R2", "C2", "mon-0900"), "planner-1")
	require.NoError(t, err)
	require.Len(t, rejected.Conflicts, 1)
	require.Equal(t, 1, f.ledger.len())

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	require.NoError(t, f.svc.Delete(context.Background(), "r1", "planner-1"))

	remaining, err := f.ledger.ListByRoutine(context.Background(), "r1")
	require.NoError(t, err)
	assert.Empty(t, remaining)
	_, err = f.store.FindByID(context.Background(), "r1")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.Equal(t, []string{models.AuditActionDelete}, f.audit.actions())
	assert.NoError(t, f.mock.ExpectationsWereMet())

	err = f.svc.Delete(context.Background(), "r1", "planner-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestRoutineServiceRepeatedRejectedCreatesShareLedgerRow(t *testing.T) {
	f := newRoutineFixture(t, mondayRoutine("r1", "T1", "R1", "C1"))

	var ids []string
	for i := 0; i < 3; i++ {
		result, err := f.svc.Create(context.Background(), createRequest("T1", "R2", "C2", "mon-0900"), "planner-1")
		require.NoError(t, err)
		require.False(t, result.Committed())
		require.Len(t, result.Conflicts, 1)
		ids = append(ids, result.Conflicts[0].ID)
	}
	assert.Equal(t, 1, f.ledger.len())
	assert.Equal(t, ids[0], ids[2])

	result, err := f.svc.Create(context.Background(), createRequest("T1", "R3", "C3", "mon-0900"), "planner-1")
	require.NoError(t, err)
	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, 1, f.ledger.len(), "same teacher against the same routine is one collision")

	result, err = f.svc.Create(context.Background(), createRequest("T2", "R1", "C3", "mon-0900"), "planner-1")
	require.NoError(t, err)
	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, models.ConflictClassroomDoubleBooking, result.Conflicts[0].Type)
	assert.Equal(t, 2, f.ledger.len())

	open, err := f.ledger.ListUnresolved(context.Background())
	require.NoError(t, err)
	resolvedAt := time.Now()
	open[0].Status = models.ConflictStatusResolved
	open[0].ResolvedAt = &resolvedAt
	require.NoError(t, f.ledger.UpdateStatus(context.Background(), &open[0]))

	_, err = f.svc.Create(context.Background(), createRequest("T1", "R2", "C2", "mon-0900"), "planner-1")
	require.NoError(t, err)
	assert.Equal(t, 3, f.ledger.len(), "a closed entry is not reused")
}

func TestRoutineServiceDeleteClearsSubstitutionCache(t *testing.T) {
	f := newRoutineFixture(t, mondayRoutine("r1", "T1", "R1", "C1"))
	substitutions := newSubstitutionStoreStub()
	substitutions.items["s-1"] = models.Substitution{
		ID: "s-1", RoutineID: "r1", TimeSlotID: "mon-0900", OriginalTeacherID: "T1", SubstituteTeacherID: "T3",
		Status: models.SubstitutionStatusActive,
	}
	substitutes := NewSubstituteService(substitutions, staff, f.store, testSlots, nil,
		NewCacheService(f.cache, nil, time.Minute, nil, true), nil, nil, nil, nil)

	listed, err := substitutes.ListByRoutine(context.Background(), "r1")
	require.NoError(t, err)
	require.Len(t, listed, 1)
	_, err = substitutes.History(context.Background(), "T1")
	require.NoError(t, err)
	require.True(t, f.cache.has(substitutionKey("routine", "r1")))
	require.True(t, f.cache.has(substitutionKey("teacher", "T1")))

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	require.NoError(t, f.svc.Delete(context.Background(), "r1", "planner-1"))
	delete(substitutions.items, "s-1")

	assert.False(t, f.cache.has(substitutionKey("routine", "r1")))
	assert.False(t, f.cache.has(substitutionKey("teacher", "T1")))
	listed, err = substitutes.ListByRoutine(context.Background(), "r1")
	require.NoError(t, err)
	assert.Empty(t, listed)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestRoutineServiceReadsAreCachedAndInvalidated(t *testing.T) {
	f := newRoutineFixture(t, mondayRoutine("r1", "T1", "R1", "C1"))

	routines, err := f.svc.ListByClass(context.Background(), "C1")
	require.NoError(t, err)
	require.Len(t, routines, 1)
	assert.Contains(t, f.cache.keys(), routineKey("class", "C1"))

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	_, err = f.svc.Create(context.Background(), createRequest("T2", "R2", "C1", "mon-1000"), "planner-1")
	require.NoError(t, err)
	assert.NotContains(t, f.cache.keys(), routineKey("class", "C1"))

	routines, err = f.svc.ListByClass(context.Background(), "C1")
	require.NoError(t, err)
	assert.Len(t, routines, 2)

	_, err = f.svc.ListByStatus(context.Background(), "PAUSED")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestRoutineServiceListPagination(t *testing.T) {
	f := newRoutineFixture(t, mondayRoutine("r1", "T1", "R1", "C1"))

	routines, page, err := f.svc.List(context.Background(), dto.RoutineListQuery{ClassID: "C1", PageSize: 500})
	require.NoError(t, err)
	assert.Len(t, routines, 1)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 20, page.PageSize)
	assert.Equal(t, 1, page.TotalCount)
}

func TestRoutineTransitionAllowed(t *testing.T) {
	assert.True(t, routineTransitionAllowed(models.RoutineStatusActive, models.RoutineStatusInactive))
	assert.True(t, routineTransitionAllowed(models.RoutineStatusInactive, models.RoutineStatusActive))
	assert.True(t, routineTransitionAllowed(models.RoutineStatusInactive, models.RoutineStatusCancelled))
	assert.True(t, routineTransitionAllowed(models.RoutineStatusCancelled, models.RoutineStatusCancelled))
	assert.False(t, routineTransitionAllowed(models.RoutineStatusCancelled, models.RoutineStatusInactive))
}
