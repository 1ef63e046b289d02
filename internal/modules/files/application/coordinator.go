package application

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/saransh1220/filebox/internal/modules/files/domain"
	"github.com/saransh1220/filebox/internal/shared/logging"
)

// Coordinator runs upload, list and delete across the metadata and object
// stores of a caller's DataClient and keeps the two consistent:
// an object exists exactly when its record does.
//
// Upload writes the object first and the record second, removing the object
// again if the record cannot be written. Delete removes the record first and
// the object second. Objects that cannot be removed are logged, counted and
// recorded as orphans for the Reconciler.
type Coordinator struct {
	policy    domain.UploadPolicy
	retry     RetryPolicy
	now       func() time.Time
	lastMs    atomic.Int64
	observers []domain.StateObserver
	events    domain.EventPublisher
	metrics   *Metrics
	logger    *slog.Logger
}

type Option func(*Coordinator)

// WithClock replaces time.Now for key derivation.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *Coordinator) { c.retry = p }
}

func WithObserver(o domain.StateObserver) Option {
	return func(c *Coordinator) {
		if o != nil {
			c.observers = append(c.observers, o)
		}
	}
}

// WithMetrics counts transitions and orphans.
func WithMetrics(m *Metrics) Option {
	return func(c *Coordinator) {
		if m != nil {
			c.metrics = m
			c.observers = append(c.observers, m)
		}
	}
}

func WithEvents(p domain.EventPublisher) Option {
	return func(c *Coordinator) { c.events = p }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.logger = l
		}
	}
}

func NewCoordinator(policy domain.UploadPolicy, opts ...Option) *Coordinator {
	c := &Coordinator{
		policy: policy,
		retry:  DefaultRetryPolicy(),
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(logging.Component("files"))
	return c
}

// Policy returns the upload policy the coordinator validates against.
func (c *Coordinator) Policy() domain.UploadPolicy {
	return c.policy
}

// Upload validates in, stores its bytes and then its record.
func (c *Coordinator) Upload(ctx context.Context, dc domain.DataClient, in domain.UploadInput) (*domain.UploadResult, error) {
	st := c.track(domain.OperationUpload)

	if err := c.policy.Validate(in); err != nil {
		st.to(domain.StateFailed)
		return nil, err
	}

	userID := dc.UserID()
	contentType := domain.NormalizeType(in.ContentType)
	name := domain.RecordName(c.stamp(), in.Filename)
	key := domain.ObjectKey(userID, name)
	log := c.logger.With(logging.UserID(userID), logging.ObjectKey(key))

	st.to(domain.StateWritingPrimary)
	if err := dc.Objects().Put(ctx, key, bytes.NewReader(in.Data), in.Size(), contentType); err != nil {
		st.to(domain.StateFailed)
		log.ErrorContext(ctx, "object write failed", logging.Error(err))
		return nil, &domain.StoreError{Kind: domain.StoreWrite, Store: domain.ObjectStoreName, Err: err}
	}

	st.to(domain.StateWritingSecondary)
	record := &domain.File{
		Name:   name,
		Size:   in.Size(),
		Type:   contentType,
		UserID: userID,
	}
	if err := dc.Files().Insert(ctx, record); err != nil {
		st.to(domain.StateCompensating)
		insertErr := asStoreError(err, domain.StoreWrite, domain.MetadataStoreName)
		compErr := c.compensate(ctx, dc, key, insertErr, log)
		st.to(domain.StateFailed)
		if compErr != nil {
			return nil, multierror.Append(insertErr, compErr)
		}
		return nil, insertErr
	}

	st.to(domain.StateDone)
	log.InfoContext(ctx, "file uploaded", slog.Int64("size", record.Size), slog.String("type", record.Type))
	c.publish(userID, domain.EventFileUploaded, record)

	return &domain.UploadResult{Path: key, File: record}, nil
}

// compensate removes an object whose record could not be written.
// It runs detached from ctx cancellation so a client hanging up mid-upload
// cannot leave the object behind.
func (c *Coordinator) compensate(ctx context.Context, dc domain.DataClient, key string, cause error, log *slog.Logger) error {
	ctx = context.WithoutCancel(ctx)

	err := removeWithRetry(ctx, dc.Objects(), key, c.retry)
	if err == nil {
		log.WarnContext(ctx, "record insert failed, object removed", logging.Error(cause))
		return nil
	}

	log.ErrorContext(ctx, "compensation failed, object orphaned",
		logging.Error(err), slog.String("cause", cause.Error()))
	c.metrics.orphan(domain.OrphanUploadCompensation)
	c.recordOrphan(ctx, dc, key, domain.OrphanUploadCompensation, err, log)

	return fmt.Errorf("compensating remove of %s: %w", key, err)
}

// List returns the caller's records, newest first.
func (c *Coordinator) List(ctx context.Context, dc domain.DataClient) ([]domain.File, error) {
	files, err := dc.Files().List(ctx)
	if err != nil {
		return nil, asStoreError(err, domain.StoreRead, domain.MetadataStoreName)
	}
	if files == nil {
		files = []domain.File{}
	}
	return files, nil
}

// Delete removes the record and then its object. Once the record is gone the
// operation succeeds even if the object cannot be removed.
func (c *Coordinator) Delete(ctx context.Context, dc domain.DataClient, id uuid.UUID) error {
	st := c.track(domain.OperationDelete)

	file, err := dc.Files().Get(ctx, id)
	if err != nil {
		st.to(domain.StateFailed)
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return asStoreError(err, domain.StoreRead, domain.MetadataStoreName)
	}

	userID := dc.UserID()
	key := domain.ObjectKey(userID, file.Name)
	log := c.logger.With(logging.UserID(userID), logging.ObjectKey(key))

	st.to(domain.StateWritingPrimary)
	if err := dc.Files().Delete(ctx, id); err != nil {
		st.to(domain.StateFailed)
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		log.ErrorContext(ctx, "record delete failed", logging.Error(err))
		return asStoreError(err, domain.StoreDelete, domain.MetadataStoreName)
	}

	st.to(domain.StateWritingSecondary)
	cleanupCtx := context.WithoutCancel(ctx)
	if err := removeWithRetry(cleanupCtx, dc.Objects(), key, c.retry); err != nil {
		log.WarnContext(ctx, "storage cleanup failed, object orphaned", logging.Error(err))
		c.metrics.orphan(domain.OrphanDeleteCleanup)
		c.recordOrphan(cleanupCtx, dc, key, domain.OrphanDeleteCleanup, err, log)
	}

	st.to(domain.StateDone)
	log.InfoContext(ctx, "file deleted")
	c.publish(userID, domain.EventFileDeleted, file)
	return nil
}

func (c *Coordinator) recordOrphan(ctx context.Context, dc domain.DataClient, key string, reason domain.OrphanReason, cause error, log *slog.Logger) {
	if err := dc.Orphans().Record(ctx, key, reason, cause); err != nil {
		log.ErrorContext(ctx, "orphan not recorded", logging.Error(err), slog.String("reason", string(reason)))
	}
}

func (c *Coordinator) publish(userID uuid.UUID, eventType string, file *domain.File) {
	if c.events != nil {
		c.events.Publish(userID, eventType, file)
	}
}

// stamp returns the key timestamp, strictly increasing per process so two
// uploads of the same name never derive the same key here.
func (c *Coordinator) stamp() time.Time {
	for {
		ms := c.now().UnixMilli()
		last := c.lastMs.Load()
		if ms <= last {
			ms = last + 1
		}
		if c.lastMs.CompareAndSwap(last, ms) {
			return time.UnixMilli(ms)
		}
	}
}

func asStoreError(err error, kind domain.StoreErrorKind, store string) error {
	var se *domain.StoreError
	if errors.As(err, &se) {
		return err
	}
	return &domain.StoreError{Kind: kind, Store: store, Err: err}
}

type tracker struct {
	op        domain.Operation
	state     domain.State
	observers []domain.StateObserver
}

func (c *Coordinator) track(op domain.Operation) *tracker {
	return &tracker{op: op, state: domain.StateValidating, observers: c.observers}
}

func (t *tracker) to(next domain.State) {
	for _, o := range t.observers {
		o.Transition(t.op, t.state, next)
	}
	t.state = next
}
