package postgres_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/saransh1220/filebox/internal/modules/files/domain"
	"github.com/saransh1220/filebox/internal/modules/files/infrastructure/persistence/postgres"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func expectServiceRole(mock sqlmock.Sqlmock) {
	mock.ExpectBegin()
	mock.ExpectExec(`SELECT set_config\('app.role', 'service', true\)`).
		WillReturnResult(sqlmock.NewResult(0, 1))
}

func TestPgOrphanRecorder_Record(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	userID := uuid.New()
	rec := postgres.NewOrphanRecorder(db, userID)
	ctx := context.Background()
	key := userID.String() + "/1700000000000-a.txt"

	expectUserScope(mock, userID)
	mock.ExpectExec(`INSERT INTO orphaned_objects .* ON CONFLICT \(object_key\) DO UPDATE`).
		WithArgs(userID, key, "upload_compensation", "access denied").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	require.NoError(t, rec.Record(ctx, key, domain.OrphanUploadCompensation, errors.New("access denied")))

	expectUserScope(mock, userID)
	mock.ExpectExec(`INSERT INTO orphaned_objects`).WillReturnError(errors.New("db down"))
	mock.ExpectRollback()
	assert.Error(t, rec.Record(ctx, key, domain.OrphanDeleteCleanup, nil))

	require.NoError(t, mock.ExpectationsWereMet())

	err := rec.Record(ctx, uuid.New().String()+"/x", domain.OrphanDeleteCleanup, nil)
	assert.ErrorContains(t, err, "outside scope")
}

func TestPgOrphanRepository_Pending(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := postgres.NewOrphanRepository(db)
	ctx := context.Background()

	o := domain.Orphan{
		ID: uuid.New(), UserID: uuid.New(), ObjectKey: "k", Reason: domain.OrphanDeleteCleanup,
		Attempts: 2, LastError: "503", CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	expectServiceRole(mock)
	mock.ExpectQuery(`SELECT .* FROM orphaned_objects\s+WHERE attempts < \$1 ORDER BY created_at ASC LIMIT \$2`).
		WithArgs(10, 100).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "object_key", "reason", "attempts", "last_error", "created_at", "updated_at",
		}).AddRow(o.ID, o.UserID, o.ObjectKey, string(o.Reason), o.Attempts, o.LastError, o.CreatedAt, o.UpdatedAt))
	mock.ExpectCommit()

	got, err := repo.Pending(ctx, 100, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, o.ID, got[0].ID)
	assert.Equal(t, domain.OrphanDeleteCleanup, got[0].Reason)
	assert.Equal(t, 2, got[0].Attempts)

	expectServiceRole(mock)
	mock.ExpectQuery(`SELECT .* FROM orphaned_objects`).WillReturnError(errors.New("db down"))
	mock.ExpectRollback()
	_, err = repo.Pending(ctx, 100, 10)
	assert.Error(t, err)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgOrphanRepository_Settle(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := postgres.NewOrphanRepository(db)
	ctx := context.Background()
	userID, id := uuid.New(), uuid.New()

	expectServiceRole(mock)
	mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM files WHERE user_id = \$1 AND name = \$2\)`).
		WithArgs(userID, "1-a.txt").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectCommit()
	exists, err := repo.RecordExists(ctx, userID, "1-a.txt")
	require.NoError(t, err)
	assert.True(t, exists)

	expectServiceRole(mock)
	mock.ExpectExec(`DELETE FROM orphaned_objects WHERE id = \$1`).WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	require.NoError(t, repo.Resolve(ctx, id))

	long := strings.Repeat("e", 2000)
	expectServiceRole(mock)
	mock.ExpectExec(`UPDATE orphaned_objects\s+SET attempts = attempts \+ 1`).
		WithArgs(id, long[:1024]).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	require.NoError(t, repo.MarkFailed(ctx, id, long))

	require.NoError(t, mock.ExpectationsWereMet())
}
