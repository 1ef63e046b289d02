package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/saransh1220/filebox/internal/modules/files/domain"
	"github.com/saransh1220/filebox/internal/shared/logging"
)

// OrphanAdmin is the privileged access the reconciler needs. It crosses
// user boundaries and is never handed to request code.
type OrphanAdmin interface {
	PendingOrphans(ctx context.Context, limit, maxAttempts int) ([]domain.Orphan, error)
	RecordExists(ctx context.Context, userID uuid.UUID, name string) (bool, error)
	RemoveObject(ctx context.Context, key string) error
	ResolveOrphan(ctx context.Context, id uuid.UUID) error
	MarkOrphanFailed(ctx context.Context, id uuid.UUID, cause string) error
}

// SweepResult counts what one sweep did.
type SweepResult struct {
	Scanned int
	Removed int
	Kept    int
	Failed  int
}

// Reconciler removes orphaned objects that inline compensation gave up on.
type Reconciler struct {
	admin       OrphanAdmin
	batch       int
	maxAttempts int
	metrics     *Metrics
	logger      *slog.Logger
}

func NewReconciler(admin OrphanAdmin, batch, maxAttempts int, metrics *Metrics, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	if batch <= 0 {
		batch = 100
	}
	if maxAttempts <= 0 {
		maxAttempts = 10
	}
	return &Reconciler{
		admin:       admin,
		batch:       batch,
		maxAttempts: maxAttempts,
		metrics:     metrics,
		logger:      logger.With(logging.Component("reconciler")),
	}
}

// Sweep handles one batch of pending orphans, oldest first. If a record for
// the object exists by now the object is kept, otherwise it is removed.
// Failures are counted against the orphan and retried on a later sweep.
func (r *Reconciler) Sweep(ctx context.Context) (SweepResult, error) {
	var res SweepResult

	orphans, err := r.admin.PendingOrphans(ctx, r.batch, r.maxAttempts)
	if err != nil {
		return res, fmt.Errorf("load pending orphans: %w", err)
	}
	res.Scanned = len(orphans)

	for _, o := range orphans {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		removed, err := r.reconcile(ctx, o)
		switch {
		case err != nil:
			res.Failed++
			r.metrics.reconcile("failed")
			r.logger.WarnContext(ctx, "orphan not reconciled",
				logging.ObjectKey(o.ObjectKey), logging.Error(err), slog.Int("attempts", o.Attempts+1))
			if markErr := r.admin.MarkOrphanFailed(ctx, o.ID, err.Error()); markErr != nil {
				r.logger.ErrorContext(ctx, "orphan attempt not recorded", logging.ObjectKey(o.ObjectKey), logging.Error(markErr))
			}
		case removed:
			res.Removed++
			r.metrics.reconcile("removed")
		default:
			res.Kept++
			r.metrics.reconcile("kept")
		}
	}

	if res.Scanned > 0 {
		r.logger.InfoContext(ctx, "orphan sweep finished",
			slog.Int("scanned", res.Scanned), slog.Int("removed", res.Removed),
			slog.Int("kept", res.Kept), slog.Int("failed", res.Failed))
	}
	return res, nil
}

// reconcile settles one orphan and reports whether its object was removed.
func (r *Reconciler) reconcile(ctx context.Context, o domain.Orphan) (bool, error) {
	userID, name, ok := domain.SplitObjectKey(o.ObjectKey)
	if !ok || userID != o.UserID {
		return false, fmt.Errorf("malformed object key %q", o.ObjectKey)
	}

	exists, err := r.admin.RecordExists(ctx, userID, name)
	if err != nil {
		return false, fmt.Errorf("check record: %w", err)
	}

	if !exists {
		if err := r.admin.RemoveObject(ctx, o.ObjectKey); err != nil {
			return false, fmt.Errorf("remove object: %w", err)
		}
	}

	if err := r.admin.ResolveOrphan(ctx, o.ID); err != nil {
		return false, fmt.Errorf("resolve orphan: %w", err)
	}
	return !exists, nil
}

// Run sweeps once and logs the outcome; it is what the scheduler calls.
func (r *Reconciler) Run(ctx context.Context) {
	if _, err := r.Sweep(ctx); err != nil {
		r.logger.ErrorContext(ctx, "orphan sweep failed", logging.Error(err))
	}
}
