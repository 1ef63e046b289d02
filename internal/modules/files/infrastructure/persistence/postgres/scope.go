package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Session settings read by the row level security policies on files and
// orphaned_objects. Both are transaction local.
const (
	setUserScope   = `SELECT set_config('app.current_user_id', $1, true)`
	setServiceRole = `SELECT set_config('app.role', 'service', true)`
)

// withUserScope runs fn in a transaction that the database only lets see
// rows owned by userID.
func withUserScope(ctx context.Context, db *sqlx.DB, userID uuid.UUID, fn func(*sqlx.Tx) error) error {
	if userID == uuid.Nil {
		return fmt.Errorf("user scope: empty user id")
	}
	return inTx(ctx, db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, setUserScope, userID.String()); err != nil {
			return fmt.Errorf("set user scope: %w", err)
		}
		return fn(tx)
	})
}

// withServiceRole runs fn in a transaction that bypasses the ownership
// policies. Only the orphan admin uses it.
func withServiceRole(ctx context.Context, db *sqlx.DB, fn func(*sqlx.Tx) error) error {
	return inTx(ctx, db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, setServiceRole); err != nil {
			return fmt.Errorf("set service role: %w", err)
		}
		return fn(tx)
	})
}

func inTx(ctx context.Context, db *sqlx.DB, fn func(*sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
