package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-routine-api/internal/models"
)

var conflictRowColumns = []string{"id", "routine_id", "conflicting_routine_id", "conflict_type", "severity", "status", "description", "suggested_resolution", "resolved_by", "resolved_at", "created_at", "updated_at"}

func newConflictRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestConflictRepositoryCreateDefaultsStatus(t *testing.T) {
	db, mock, cleanup := newConflictRepoMock(t)
	defer cleanup()
	repo := NewConflictRepository(db)

	mock.ExpectExec("INSERT INTO conflicts").
		WithArgs(sqlmock.AnyArg(), "r-new", "r-old", "TEACHER_DOUBLE_BOOKING", "CRITICAL", "DETECTED", "teacher busy", "Choose a different time slot or teacher", nil, nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	existing := "r-old"
	conflict := &models.Conflict{
		RoutineID:            "r-new",
		ConflictingRoutineID: &existing,
		Type:                 models.ConflictTeacherDoubleBooking,
		Severity:             models.SeverityCritical,
		Description:          "teacher busy",
		SuggestedResolution:  "Choose a different time slot or teacher",
	}
	require.NoError(t, repo.Create(context.Background(), conflict))
	assert.Equal(t, models.ConflictStatusDetected, conflict.Status)
	assert.NotEmpty(t, conflict.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConflictRepositoryFindOpenMissingReturnsNil(t *testing.T) {
	db, mock, cleanup := newConflictRepoMock(t)
	defer cleanup()
	repo := NewConflictRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM conflicts WHERE conflicting_routine_id = $1 AND conflict_type = $2 AND description = $3")).
		WithArgs("r-old", "CLASS_DOUBLE_BOOKING", "Class C1 already has a routine scheduled at this time").
		WillReturnRows(sqlmock.NewRows(conflictRowColumns))

	conflict, err := repo.FindOpen(context.Background(), "r-old", models.ConflictClassDoubleBooking, "Class C1 already has a routine scheduled at this time")
	require.NoError(t, err)
	assert.Nil(t, conflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConflictRepositoryListUnresolvedOrdering(t *testing.T) {
	db, mock, cleanup := newConflictRepoMock(t)
	defer cleanup()
	repo := NewConflictRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(conflictRowColumns).
		AddRow("c1", "r1", "r0", "TEACHER_DOUBLE_BOOKING", "CRITICAL", "DETECTED", "d", "s", nil, nil, now, now).
		AddRow("c2", "r1", "r0", "CLASSROOM_DOUBLE_BOOKING", "HIGH", "DETECTED", "d", "s", nil, nil, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE status = $1 ORDER BY CASE severity WHEN 'CRITICAL' THEN 4")).
		WithArgs("DETECTED").
		WillReturnRows(rows)

	conflicts, err := repo.ListUnresolved(context.Background())
	require.NoError(t, err)
	require.Len(t, conflicts, 2)
	assert.Equal(t, models.SeverityCritical, conflicts[0].Severity)
	require.NotNil(t, conflicts[0].ConflictingRoutineID)
	assert.Equal(t, "r0", *conflicts[0].ConflictingRoutineID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConflictRepositoryDeleteByRoutine(t *testing.T) {
	db, mock, cleanup := newConflictRepoMock(t)
	defer cleanup()
	repo := NewConflictRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM conflicts WHERE routine_id = $1 OR conflicting_routine_id = $1")).
		WithArgs("r1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)
	removed, err := repo.DeleteByRoutine(context.Background(), tx, "r1")
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	assert.Equal(t, int64(2), removed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConflictRepositoryCountUnresolved(t *testing.T) {
	db, mock, cleanup := newConflictRepoMock(t)
	defer cleanup()
	repo := NewConflictRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM conflicts WHERE status = $1")).
		WithArgs("DETECTED").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	total, err := repo.CountUnresolved(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}
