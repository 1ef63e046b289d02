package files

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	authdomain "github.com/saransh1220/filebox/internal/modules/auth/domain"
	"github.com/saransh1220/filebox/internal/modules/files/application"
	"github.com/saransh1220/filebox/internal/modules/files/domain"
	"github.com/saransh1220/filebox/internal/modules/files/infrastructure/dataclient"
	files_http "github.com/saransh1220/filebox/internal/modules/files/interfaces/http"
	fsapp "github.com/saransh1220/filebox/internal/modules/filestorage/application"
	"github.com/saransh1220/filebox/internal/shared/infrastructure/config"
)

// Module represents the Files module
type Module struct {
	coordinator *application.Coordinator
	reconciler  *application.Reconciler
	factory     *dataclient.Factory
	handler     *files_http.FileHandler
	scheduler   *cron.Cron
	cancel      context.CancelFunc
}

// NewModule wires the coordinator, the data client factory and the orphan
// reconciler. events may be nil.
func NewModule(
	db *sqlx.DB,
	objects *fsapp.ObjectService,
	uploadCfg config.UploadConfig,
	reconcileCfg config.ReconcileConfig,
	events domain.EventPublisher,
	reg prometheus.Registerer,
	logger *slog.Logger,
) (*Module, error) {
	if logger == nil {
		logger = slog.Default()
	}
	metrics := application.NewMetrics(reg)
	factory := dataclient.NewFactory(db, objects)

	opts := []application.Option{
		application.WithRetryPolicy(application.RetryPolicy{
			Attempts: reconcileCfg.CompensationAttempts,
			Backoff:  reconcileCfg.CompensationBackoff,
		}),
		application.WithMetrics(metrics),
		application.WithLogger(logger),
	}
	if events != nil {
		opts = append(opts, application.WithEvents(events))
	}
	coordinator := application.NewCoordinator(
		domain.NewUploadPolicy(uploadCfg.MaxBytes, uploadCfg.AllowedTypes),
		opts...,
	)
	reconciler := application.NewReconciler(
		factory.Admin(), reconcileCfg.Batch, reconcileCfg.MaxAttempts, metrics, logger,
	)

	m := &Module{
		coordinator: coordinator,
		reconciler:  reconciler,
		factory:     factory,
		handler:     files_http.NewFileHandler(coordinator, logger),
	}

	if reconcileCfg.Schedule != "" {
		cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelInfo))
		m.scheduler = cron.New(
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		)
		ctx, cancel := context.WithCancel(context.Background())
		m.cancel = cancel
		if _, err := m.scheduler.AddFunc(reconcileCfg.Schedule, func() { reconciler.Run(ctx) }); err != nil {
			cancel()
			return nil, fmt.Errorf("invalid RECONCILE_SCHEDULE %q: %w", reconcileCfg.Schedule, err)
		}
	}

	return m, nil
}

// Scope returns the data client for an authenticated caller. The gateway
// attaches it to every authenticated request.
func (m *Module) Scope(identity *authdomain.Identity) domain.DataClient {
	return m.factory.Scope(identity)
}

// Coordinator returns the file lifecycle coordinator
func (m *Module) Coordinator() *application.Coordinator {
	return m.coordinator
}

func (m *Module) Reconciler() *application.Reconciler {
	return m.reconciler
}

// HTTPHandler returns the HTTP handler for the files module
func (m *Module) HTTPHandler() *files_http.FileHandler {
	return m.handler
}

// Start begins the scheduled orphan sweeps, if a schedule is configured.
func (m *Module) Start() {
	if m.scheduler != nil {
		m.scheduler.Start()
	}
}

// Stop cancels a running sweep and waits for it to return.
func (m *Module) Stop(ctx context.Context) error {
	if m.scheduler == nil {
		return nil
	}
	m.cancel()
	select {
	case <-m.scheduler.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
