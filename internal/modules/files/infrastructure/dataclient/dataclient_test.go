package dataclient_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	authdomain "github.com/saransh1220/filebox/internal/modules/auth/domain"
	"github.com/saransh1220/filebox/internal/modules/files/infrastructure/dataclient"
	fsapp "github.com/saransh1220/filebox/internal/modules/filestorage/application"
	fsdomain "github.com/saransh1220/filebox/internal/modules/filestorage/domain"
	"github.com/saransh1220/filebox/internal/modules/filestorage/infrastructure/local"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	factory *dataclient.Factory
	mock    sqlmock.Sqlmock
	dir     string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	dir := t.TempDir()
	storage, err := local.NewLocalStorage(dir)
	require.NoError(t, err)

	return &fixture{
		factory: dataclient.NewFactory(sqlx.NewDb(sqlDB, "sqlmock"), fsapp.NewObjectService(storage, nil)),
		mock:    mock,
		dir:     dir,
	}
}

func TestScoped_BoundToIdentity(t *testing.T) {
	fx := newFixture(t)
	alice := uuid.New()
	dc := fx.factory.Scope(&authdomain.Identity{UserID: alice, Email: "alice@example.com"})
	assert.Equal(t, alice, dc.UserID())

	fx.mock.ExpectBegin()
	fx.mock.ExpectExec(`set_config\('app.current_user_id'`).WithArgs(alice.String()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	fx.mock.ExpectQuery(`SELECT .* FROM files WHERE user_id = \$1`).WithArgs(alice).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "size", "type", "user_id", "created_at"}))
	fx.mock.ExpectCommit()

	files, err := dc.Files().List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, files)
	require.NoError(t, fx.mock.ExpectationsWereMet())
}

func TestScoped_ObjectsRefuseForeignKeys(t *testing.T) {
	fx := newFixture(t)
	alice, bob := uuid.New(), uuid.New()
	dc := fx.factory.Scope(&authdomain.Identity{UserID: alice})
	ctx := context.Background()

	own := alice.String() + "/1-a.txt"
	require.NoError(t, dc.Objects().Put(ctx, own, bytes.NewBufferString("hi"), 2, "text/plain"))
	_, err := os.Stat(filepath.Join(fx.dir, alice.String(), "1-a.txt"))
	require.NoError(t, err)

	foreign := bob.String() + "/1-a.txt"
	assert.ErrorIs(t, dc.Objects().Put(ctx, foreign, bytes.NewBufferString("x"), 1, "text/plain"), fsdomain.ErrKeyOutOfScope)
	assert.ErrorIs(t, dc.Objects().Remove(ctx, foreign), fsdomain.ErrKeyOutOfScope)

	escape := alice.String() + "/../" + bob.String() + "/1-a.txt"
	assert.ErrorIs(t, dc.Objects().Remove(ctx, escape), fsdomain.ErrInvalidKey)

	require.NoError(t, dc.Objects().Remove(ctx, own))
}

func TestAdmin_CrossesUsers(t *testing.T) {
	fx := newFixture(t)
	bob := uuid.New()
	key := bob.String() + "/1-a.txt"

	require.NoError(t, fx.factory.Scope(&authdomain.Identity{UserID: bob}).Objects().
		Put(context.Background(), key, bytes.NewBufferString("leak"), 4, "text/plain"))

	admin := fx.factory.Admin()
	require.NoError(t, admin.RemoveObject(context.Background(), key))
	_, err := os.Stat(filepath.Join(fx.dir, bob.String(), "1-a.txt"))
	assert.True(t, os.IsNotExist(err))

	fx.mock.ExpectBegin()
	fx.mock.ExpectExec(`set_config\('app.role', 'service', true\)`).WillReturnResult(sqlmock.NewResult(0, 1))
	fx.mock.ExpectQuery(`SELECT EXISTS`).WithArgs(bob, "1-a.txt").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	fx.mock.ExpectCommit()

	exists, err := admin.RecordExists(context.Background(), bob, "1-a.txt")
	require.NoError(t, err)
	assert.False(t, exists)
	require.NoError(t, fx.mock.ExpectationsWereMet())
}
