// Package app builds the long-lived services shared by the submit and
// validate commands: stores, publisher, progress hub, pacing and fetchers.
package app

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/JakeFAU/primerblast-validator/internal/api"
	"github.com/JakeFAU/primerblast-validator/internal/clock/system"
	"github.com/JakeFAU/primerblast-validator/internal/config"
	collyfetcher "github.com/JakeFAU/primerblast-validator/internal/fetcher/colly"
	idgen "github.com/JakeFAU/primerblast-validator/internal/id/uuid"
	"github.com/JakeFAU/primerblast-validator/internal/metrics"
	"github.com/JakeFAU/primerblast-validator/internal/policy/ratelimit"
	"github.com/JakeFAU/primerblast-validator/internal/primerblast"
	"github.com/JakeFAU/primerblast-validator/internal/progress"
	progresssinks "github.com/JakeFAU/primerblast-validator/internal/progress/sinks"
	gcppublisher "github.com/JakeFAU/primerblast-validator/internal/publisher/pubsub"
	gcsstorage "github.com/JakeFAU/primerblast-validator/internal/storage/gcs"
	localstorage "github.com/JakeFAU/primerblast-validator/internal/storage/local"
	memorystorage "github.com/JakeFAU/primerblast-validator/internal/storage/memory"
	pgstore "github.com/JakeFAU/primerblast-validator/internal/storage/postgres"
	sqlitestore "github.com/JakeFAU/primerblast-validator/internal/storage/sqlite"
)

// Options overrides collaborators that are otherwise built from config.
type Options struct {
	// Registerer receives the progress collectors (default: the process registry).
	Registerer prometheus.Registerer
	// Publisher replaces the Pub/Sub client when pubsub.topic is set.
	Publisher primerblast.Publisher
	Clock     primerblast.Clock
	IDs       primerblast.IDGenerator
}

// App holds the shared services for one process.
type App struct {
	cfg    config.Config
	logger *zap.Logger
	clock  primerblast.Clock
	ids    primerblast.IDGenerator

	blobs     primerblast.BlobStore
	results   primerblast.ResultStore
	publisher primerblast.Publisher
	tally     *progresssinks.TallySink
	hub       *progress.Hub
	limiter   *ratelimit.Limiter
	spacer    *ratelimit.Spacer

	gcsClient *storage.Client
	closers   []func() error
}

// New builds an App from cfg. On failure everything already opened is closed.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger, opts Options) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{
		cfg:     cfg,
		logger:  logger,
		clock:   opts.Clock,
		ids:     opts.IDs,
		tally:   progresssinks.NewTallySink(),
		limiter: ratelimit.New(ratelimit.Config{RequestsPerSecond: cfg.Submit.RequestsPerSecond, Burst: cfg.Submit.Burst}),
		spacer:  ratelimit.NewSpacer(cfg.RequestSpacing()),
	}
	if a.clock == nil {
		a.clock = system.New()
	}
	if a.ids == nil {
		a.ids = idgen.New()
	}
	metrics.Init()

	if err := a.build(ctx, opts); err != nil {
		if cerr := a.Close(context.WithoutCancel(ctx)); cerr != nil {
			logger.Warn("cleanup after failed build", zap.Error(cerr))
		}
		return nil, err
	}
	return a, nil
}

func (a *App) build(ctx context.Context, opts Options) error {
	if err := a.setupStorage(ctx); err != nil {
		return err
	}
	if err := a.setupResultStore(ctx); err != nil {
		return err
	}
	if err := a.setupPublisher(ctx, opts.Publisher); err != nil {
		return err
	}
	return a.setupProgress(opts.Registerer)
}

func (a *App) setupStorage(ctx context.Context) error {
	var err error
	switch a.cfg.Storage.Provider {
	case config.ProviderGCS:
		a.gcsClient, err = storage.NewClient(ctx)
		if err != nil {
			return fmt.Errorf("gcs client init failed: %w", err)
		}
		a.closers = append(a.closers, a.gcsClient.Close)
		a.blobs, err = gcsstorage.New(a.gcsClient, gcsstorage.Config{
			Bucket: a.cfg.Storage.GCSBucket,
			Prefix: a.cfg.Storage.Prefix,
		})
		if err != nil {
			return fmt.Errorf("gcs blob store init failed: %w", err)
		}
		a.logger.Info("using GCS blob store", zap.String("bucket", a.cfg.Storage.GCSBucket))
	case config.ProviderLocal:
		a.blobs, err = localstorage.New(localstorage.Config{BaseDir: a.cfg.Storage.BaseDir})
		if err != nil {
			return fmt.Errorf("local blob store init failed: %w", err)
		}
		a.logger.Info("using local blob store", zap.String("path", a.cfg.Storage.BaseDir))
	case config.ProviderMemory:
		a.blobs = memorystorage.NewBlobStore()
		a.logger.Info("using in-memory blob store")
	default:
		a.logger.Debug("no blob store configured")
	}
	return nil
}

func (a *App) setupResultStore(ctx context.Context) error {
	var err error
	switch a.cfg.Store.Driver {
	case config.DriverPostgres:
		var pg *pgstore.ResultStore
		pg, err = pgstore.New(ctx, pgstore.Config{
			DSN:      a.cfg.Store.DSN,
			Table:    a.cfg.Store.Table,
			MaxConns: a.cfg.Store.MaxConns,
		})
		if err == nil {
			a.results = pg
		}
	case config.DriverSQLite:
		var lite *sqlitestore.ResultStore
		lite, err = sqlitestore.New(ctx, a.cfg.Store.DSN, a.cfg.Store.Table)
		if err == nil {
			a.results = lite
		}
	default:
		a.logger.Debug("no result store configured")
		return nil
	}
	if err != nil {
		return fmt.Errorf("%s result store init failed: %w", a.cfg.Store.Driver, err)
	}
	a.closers = append(a.closers, a.results.Close)
	a.logger.Info("result store ready", zap.String("driver", a.cfg.Store.Driver), zap.String("table", a.cfg.Store.Table))
	return nil
}

func (a *App) setupPublisher(ctx context.Context, injected primerblast.Publisher) error {
	if a.cfg.PubSub.Topic == "" {
		a.logger.Debug("no Pub/Sub topic configured, run notices disabled")
		return nil
	}
	if injected != nil {
		a.publisher = injected
		return nil
	}
	client, err := pubsub.NewClient(ctx, a.cfg.PubSub.ProjectID)
	if err != nil {
		return fmt.Errorf("pubsub client init failed: %w", err)
	}
	pub := gcppublisher.New(client, map[string]string{"source": "primerblast-validator"})
	a.closers = append(a.closers, pub.Close)
	a.publisher = pub
	a.logger.Info("Pub/Sub publisher initialized",
		zap.String("project", a.cfg.PubSub.ProjectID),
		zap.String("topic", a.cfg.PubSub.Topic),
	)
	return nil
}

func (a *App) setupProgress(reg prometheus.Registerer) error {
	promSink, err := progresssinks.NewPrometheusSink(reg)
	if err != nil {
		return fmt.Errorf("progress metrics init failed: %w", err)
	}
	sinkList := []progress.Sink{
		a.tally,
		promSink,
		progresssinks.NewLogSink(a.logger.Named("progress")),
	}
	if a.publisher != nil {
		pubSink, err := progresssinks.NewPublisherSink(a.publisher, a.cfg.PubSub.Topic)
		if err != nil {
			return fmt.Errorf("progress publisher init failed: %w", err)
		}
		sinkList = append(sinkList, pubSink)
	}
	a.hub = progress.NewHub(progress.Config{
		BufferSize:     a.cfg.Progress.BufferSize,
		MaxBatchEvents: a.cfg.Progress.MaxBatchEvents,
		MaxBatchWait:   a.cfg.BatchWait(),
		SinkTimeout:    a.cfg.SinkTimeout(),
		Logger:         a.logger.Named("progress_hub"),
	}, sinkList...)
	return nil
}

// Config returns the configuration the App was built from.
func (a *App) Config() config.Config { return a.cfg }

// Logger returns the shared logger.
func (a *App) Logger() *zap.Logger { return a.logger }

// Clock returns the shared clock.
func (a *App) Clock() primerblast.Clock { return a.clock }

// Blobs returns the configured blob store, or nil.
func (a *App) Blobs() primerblast.BlobStore { return a.blobs }

// Results returns the configured result store, or nil.
func (a *App) Results() primerblast.ResultStore { return a.results }

// Tally exposes live run snapshots.
func (a *App) Tally() *progresssinks.TallySink { return a.tally }

// Limiter paces submissions.
func (a *App) Limiter() *ratelimit.Limiter { return a.limiter }

// Spacer paces result fetches across every worker.
func (a *App) Spacer() *ratelimit.Spacer { return a.spacer }

// NewRun allocates a run ID and a Reporter bound to the progress hub.
func (a *App) NewRun(kind progress.Kind) (uuid.UUID, *progress.Reporter, error) {
	runID, err := a.ids.NewRunID()
	if err != nil {
		return uuid.Nil, nil, err
	}
	return runID, progress.NewReporter(a.hub, runID, kind, a.clock.Now), nil
}

// SubmitFetcher returns a fetcher that posts forms and never follows
// redirects.
func (a *App) SubmitFetcher() *collyfetcher.Fetcher {
	return collyfetcher.New(collyfetcher.Config{
		UserAgent:    a.cfg.NCBI.UserAgent,
		Timeout:      a.cfg.FetchTimeout(),
		MaxBodyBytes: a.cfg.NCBI.MaxBodyBytes,
		Name:         "submit",
	})
}

// ResultsFetcher returns a fetcher for result pages.
func (a *App) ResultsFetcher() *collyfetcher.Fetcher {
	return collyfetcher.New(collyfetcher.Config{
		UserAgent:       a.cfg.NCBI.UserAgent,
		Timeout:         a.cfg.FetchTimeout(),
		FollowRedirects: true,
		MaxBodyBytes:    a.cfg.NCBI.MaxBodyBytes,
		Name:            "results",
	})
}

// ServeStatus runs the status server in the background until ctx ends. It
// does nothing when metrics.addr is empty.
func (a *App) ServeStatus(ctx context.Context) {
	addr := a.cfg.Metrics.Addr
	if addr == "" {
		return
	}
	srv := api.NewServer(a.tally, metrics.Handler(), a.logger.Named("api"))
	go func() {
		if err := srv.ListenAndServe(ctx, addr); err != nil {
			a.logger.Error("status server stopped", zap.Error(err))
		}
	}()
}

// Close flushes pending progress events and releases every client. Errors
// are joined; shutdown continues past failures.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.hub != nil {
		if err := a.hub.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close progress hub: %w", err))
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
