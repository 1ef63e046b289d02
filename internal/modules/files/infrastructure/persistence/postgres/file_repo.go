package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/saransh1220/filebox/internal/modules/files/domain"
)

const fileColumns = `id, name, size, type, user_id, created_at`

// PgFileRepository is the domain.MetadataStore of a single user.
type PgFileRepository struct {
	db     *sqlx.DB
	userID uuid.UUID
}

// NewFileRepository returns a metadata store bound to userID. Every statement
// runs under that user's row level security scope.
func NewFileRepository(db *sqlx.DB, userID uuid.UUID) *PgFileRepository {
	return &PgFileRepository{db: db, userID: userID}
}

// List implements domain.MetadataStore
func (r *PgFileRepository) List(ctx context.Context) ([]domain.File, error) {
	files := []domain.File{}
	query := `SELECT ` + fileColumns + ` FROM files WHERE user_id = $1 ORDER BY created_at DESC, id DESC`

	err := withUserScope(ctx, r.db, r.userID, func(tx *sqlx.Tx) error {
		return tx.SelectContext(ctx, &files, query, r.userID)
	})
	if err != nil {
		return nil, storeError(domain.StoreRead, err)
	}
	return files, nil
}

// Insert implements domain.MetadataStore. The database assigns ID and CreatedAt.
func (r *PgFileRepository) Insert(ctx context.Context, f *domain.File) error {
	if f.UserID == uuid.Nil {
		f.UserID = r.userID
	}
	if f.UserID != r.userID {
		return storeError(domain.StoreWrite, fmt.Errorf("record owner %s outside scope", f.UserID))
	}

	query := `INSERT INTO files (name, size, type, user_id) VALUES ($1, $2, $3, $4) RETURNING id, created_at`

	err := withUserScope(ctx, r.db, r.userID, func(tx *sqlx.Tx) error {
		return tx.QueryRowxContext(ctx, query, f.Name, f.Size, f.Type, f.UserID).Scan(&f.ID, &f.CreatedAt)
	})
	if err != nil {
		return storeError(domain.StoreWrite, err)
	}
	return nil
}

// Get implements domain.MetadataStore. Records of other users are not found.
func (r *PgFileRepository) Get(ctx context.Context, id uuid.UUID) (*domain.File, error) {
	file := &domain.File{}
	query := `SELECT ` + fileColumns + ` FROM files WHERE id = $1 AND user_id = $2`

	err := withUserScope(ctx, r.db, r.userID, func(tx *sqlx.Tx) error {
		return tx.GetContext(ctx, file, query, id, r.userID)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, storeError(domain.StoreRead, err)
	}
	return file, nil
}

// Delete implements domain.MetadataStore
func (r *PgFileRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM files WHERE id = $1 AND user_id = $2`

	err := withUserScope(ctx, r.db, r.userID, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, query, id, r.userID)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return domain.ErrNotFound
		}
		return nil
	})
	if errors.Is(err, domain.ErrNotFound) {
		return domain.ErrNotFound
	}
	if err != nil {
		return storeError(domain.StoreDelete, err)
	}
	return nil
}

func storeError(kind domain.StoreErrorKind, err error) error {
	return &domain.StoreError{Kind: kind, Store: domain.MetadataStoreName, Err: err}
}
