package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/saransh1220/filebox/internal/modules/files/domain"
)

const orphanColumns = `id, user_id, object_key, reason, attempts, last_error, created_at, updated_at`

// maxErrorLen caps the stored last_error, in bytes.
const maxErrorLen = 1024

// PgOrphanRecorder records orphans for a single user.
type PgOrphanRecorder struct {
	db     *sqlx.DB
	userID uuid.UUID
}

func NewOrphanRecorder(db *sqlx.DB, userID uuid.UUID) *PgOrphanRecorder {
	return &PgOrphanRecorder{db: db, userID: userID}
}

// Record implements domain.OrphanRecorder. Recording the same key again
// refreshes its reason and error.
func (r *PgOrphanRecorder) Record(ctx context.Context, key string, reason domain.OrphanReason, cause error) error {
	if !strings.HasPrefix(key, r.userID.String()+"/") {
		return fmt.Errorf("orphan key %q outside scope", key)
	}

	query := `INSERT INTO orphaned_objects (user_id, object_key, reason, last_error)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (object_key) DO UPDATE
		SET reason = EXCLUDED.reason, last_error = EXCLUDED.last_error, updated_at = now()`

	return withUserScope(ctx, r.db, r.userID, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, query, r.userID, key, string(reason), errorText(cause))
		return err
	})
}

// PgOrphanRepository reads and settles orphans of every user. It runs
// under the service role and must only be used by the reconciler.
type PgOrphanRepository struct {
	db *sqlx.DB
}

func NewOrphanRepository(db *sqlx.DB) *PgOrphanRepository {
	return &PgOrphanRepository{db: db}
}

// Pending returns up to limit orphans with fewer than maxAttempts attempts, oldest first.
func (r *PgOrphanRepository) Pending(ctx context.Context, limit, maxAttempts int) ([]domain.Orphan, error) {
	orphans := []domain.Orphan{}
	query := `SELECT ` + orphanColumns + ` FROM orphaned_objects
		WHERE attempts < $1 ORDER BY created_at ASC LIMIT $2`

	err := withServiceRole(ctx, r.db, func(tx *sqlx.Tx) error {
		return tx.SelectContext(ctx, &orphans, query, maxAttempts, limit)
	})
	if err != nil {
		return nil, err
	}
	return orphans, nil
}

// RecordExists reports whether userID has a file record called name.
func (r *PgOrphanRepository) RecordExists(ctx context.Context, userID uuid.UUID, name string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM files WHERE user_id = $1 AND name = $2)`

	err := withServiceRole(ctx, r.db, func(tx *sqlx.Tx) error {
		return tx.GetContext(ctx, &exists, query, userID, name)
	})
	return exists, err
}

func (r *PgOrphanRepository) Resolve(ctx context.Context, id uuid.UUID) error {
	return withServiceRole(ctx, r.db, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `DELETE FROM orphaned_objects WHERE id = $1`, id)
		return err
	})
}

// MarkFailed counts a failed attempt against the orphan.
func (r *PgOrphanRepository) MarkFailed(ctx context.Context, id uuid.UUID, cause string) error {
	query := `UPDATE orphaned_objects
		SET attempts = attempts + 1, last_error = $2, updated_at = now()
		WHERE id = $1`

	return withServiceRole(ctx, r.db, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, query, id, truncate(cause))
		return err
	})
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	return truncate(err.Error())
}

func truncate(s string) string {
	if len(s) > maxErrorLen {
		return strings.ToValidUTF8(s[:maxErrorLen], "")
	}
	return s
}
