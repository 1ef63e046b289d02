// Package dataclient hands out the two kinds of data access the files module
// has: a Scoped client bound to one authenticated user, and the Admin client
// the reconciler uses. They are distinct types so the privileged one cannot
// be passed where a user's client is expected.
package dataclient

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	authdomain "github.com/saransh1220/filebox/internal/modules/auth/domain"
	"github.com/saransh1220/filebox/internal/modules/files/application"
	"github.com/saransh1220/filebox/internal/modules/files/domain"
	"github.com/saransh1220/filebox/internal/modules/files/infrastructure/persistence/postgres"
	fsapp "github.com/saransh1220/filebox/internal/modules/filestorage/application"
)

var (
	_ domain.DataClient       = (*Scoped)(nil)
	_ application.OrphanAdmin = (*Admin)(nil)
)

type Factory struct {
	db      *sqlx.DB
	objects *fsapp.ObjectService
}

func NewFactory(db *sqlx.DB, objects *fsapp.ObjectService) *Factory {
	return &Factory{db: db, objects: objects}
}

// Scope returns a client that can only read and write identity's data.
func (f *Factory) Scope(identity *authdomain.Identity) *Scoped {
	return &Scoped{
		userID:  identity.UserID,
		files:   postgres.NewFileRepository(f.db, identity.UserID),
		objects: f.objects.ForUser(identity.UserID),
		orphans: postgres.NewOrphanRecorder(f.db, identity.UserID),
	}
}

// Admin returns the cross-user client for orphan reconciliation.
func (f *Factory) Admin() *Admin {
	return &Admin{
		orphans: postgres.NewOrphanRepository(f.db),
		objects: f.objects,
	}
}

// Scoped is a domain.DataClient for a single user.
type Scoped struct {
	userID  uuid.UUID
	files   *postgres.PgFileRepository
	objects *fsapp.UserObjects
	orphans *postgres.PgOrphanRecorder
}

func (s *Scoped) UserID() uuid.UUID {
	return s.userID
}

func (s *Scoped) Files() domain.MetadataStore {
	return s.files
}

func (s *Scoped) Objects() domain.ObjectStore {
	return s.objects
}

func (s *Scoped) Orphans() domain.OrphanRecorder {
	return s.orphans
}

// Admin bypasses row level security and the per-user key prefix.
type Admin struct {
	orphans *postgres.PgOrphanRepository
	objects *fsapp.ObjectService
}

func (a *Admin) PendingOrphans(ctx context.Context, limit, maxAttempts int) ([]domain.Orphan, error) {
	return a.orphans.Pending(ctx, limit, maxAttempts)
}

func (a *Admin) RecordExists(ctx context.Context, userID uuid.UUID, name string) (bool, error) {
	return a.orphans.RecordExists(ctx, userID, name)
}

func (a *Admin) RemoveObject(ctx context.Context, key string) error {
	return a.objects.Remove(ctx, key)
}

func (a *Admin) ResolveOrphan(ctx context.Context, id uuid.UUID) error {
	return a.orphans.Resolve(ctx, id)
}

func (a *Admin) MarkOrphanFailed(ctx context.Context, id uuid.UUID, cause string) error {
	return a.orphans.MarkFailed(ctx, id, cause)
}
