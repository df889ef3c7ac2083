package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	temporalsdkclient "go.temporal.io/sdk/client"

	"github.com/yungbote/deskbase-backend/internal/data/db"
	apphttp "github.com/yungbote/deskbase-backend/internal/http"
	"github.com/yungbote/deskbase-backend/internal/jobs/scheduler"
	"github.com/yungbote/deskbase-backend/internal/observability"
	"github.com/yungbote/deskbase-backend/internal/platform/gcp"
	"github.com/yungbote/deskbase-backend/internal/platform/logger"
	"github.com/yungbote/deskbase-backend/internal/platform/redisx"
	"github.com/yungbote/deskbase-backend/internal/platform/sendgrid"
	"github.com/yungbote/deskbase-backend/internal/realtime"
	"github.com/yungbote/deskbase-backend/internal/realtime/bus"
	"github.com/yungbote/deskbase-backend/internal/services"
	"github.com/yungbote/deskbase-backend/internal/temporalx"
	"github.com/yungbote/deskbase-backend/internal/temporalx/reconcilerun"
	"github.com/yungbote/deskbase-backend/internal/temporalx/temporalworker"
)

type App struct {
	Log      *logger.Logger
	Cfg      Config
	DB       *db.Service
	Redis    *goredis.Client
	Bus      bus.Bus
	Hub      *realtime.SSEHub
	Metrics  *observability.Metrics
	Temporal temporalsdkclient.Client
	Archive  gcp.ArchiveStore
	Mail     sendgrid.Client
	Repos    Repos
	Services Services

	shutdownOtel func(context.Context) error
}

// New connects every configured backend and wires repos and services.
// Redis, GCS, SendGrid and Temporal are optional. Without them locks and
// events stay in-process, statements are not archived, quotations are not
// emailed and reconciliation runs inline.
func New(ctx context.Context, log *logger.Logger, cfg Config) (*App, error) {
	a := &App{Log: log, Cfg: cfg, Metrics: observability.NewMetrics()}
	a.shutdownOtel = observability.InitOTel(ctx, log, cfg.otelConfig())

	dbs, err := db.Open(log, cfg.DBConfig())
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init database: %w", err)
	}
	a.DB = dbs
	if cfg.AutoMigrate {
		if err := Migrate(dbs); err != nil {
			a.Close()
			return nil, err
		}
	}

	a.Redis, err = redisx.NewClient(log, cfg.RedisAddr)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init redis: %w", err)
	}
	a.Bus = bus.New(log, a.Redis, cfg.RedisChannel)
	a.Hub = realtime.NewSSEHub(log)

	a.Archive, err = gcp.NewArchiveStore(ctx, log, cfg.StatementBucket)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init statement archive: %w", err)
	}

	a.Mail, err = sendgrid.New(log, cfg.SendGrid)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init mail: %w", err)
	}

	a.Temporal, err = temporalx.NewClient(log, cfg.Temporal)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init temporal: %w", err)
	}
	var dispatcher services.ReconcileDispatcher
	if a.Temporal != nil {
		dispatcher = reconcilerun.NewDispatcher(a.Temporal, cfg.Temporal.TaskQueue)
	}

	a.Repos = wireRepos(dbs.DB(), log)
	a.Services = wireServices(serviceDeps{
		db:         dbs.DB(),
		log:        log,
		repos:      a.Repos,
		rdb:        a.Redis,
		bus:        a.Bus,
		metrics:    a.Metrics,
		archive:    a.Archive,
		dispatcher: dispatcher,
		mail:       a.Mail,
		holdTTL:    cfg.BookingHoldTTL,
	})
	return a, nil
}

func Migrate(dbs *db.Service) error {
	if err := db.AutoMigrateAll(dbs.DB()); err != nil {
		return err
	}
	return db.EnsureIndexes(dbs.DB())
}

// Serve runs the API, the event forwarder, the metrics endpoint and the
// scheduler until ctx is cancelled or one of them fails.
func (a *App) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := a.Bus.StartForwarder(ctx, a.Hub.Broadcast); err != nil {
		return fmt.Errorf("start event forwarder: %w", err)
	}
	a.Metrics.StartServer(ctx, a.Log, a.Cfg.MetricsAddr)

	cfg := a.routerConfig()
	if a.Cfg.SchedulerEnabled {
		s, err := a.newScheduler(cfg)
		if err != nil {
			return err
		}
		s.Start(ctx)
		defer s.Stop()
	}

	srv := apphttp.NewServer(cfg)
	addr := ":" + a.Cfg.Port
	a.Log.Info("Server listening", "addr", addr)
	return srv.Run(ctx, addr)
}

const schedulerLockPrefix = "deskbase:lock:"

func (a *App) newScheduler(cfg apphttp.RouterConfig) (*scheduler.Scheduler, error) {
	s := scheduler.New(a.Log, a.Metrics)
	s.UseLocker(redisx.NewTryLocker(a.Redis, schedulerLockPrefix))
	deps := scheduler.Deps{
		Holds:      a.Services.Booking,
		Quotations: a.Services.Quotation,
		Invoices:   a.Services.Billing,
	}
	// With a worker available the nightly pass belongs there.
	if a.Temporal == nil {
		deps.Reconcile = a.Services.Reconciliation
	}
	if err := scheduler.RegisterDefaults(s, deps); err != nil {
		return nil, fmt.Errorf("register jobs: %w", err)
	}
	if limiter := cfg.RateLimiter; limiter != nil {
		err := s.Add(scheduler.Job{Name: "prune_rate_limiter", Spec: "@every 10m", Timeout: time.Minute, Local: true, Run: func(context.Context) error {
			limiter.Prune()
			return nil
		}})
		if err != nil {
			return nil, fmt.Errorf("register jobs: %w", err)
		}
	}
	return s, nil
}

// RunWorker polls the reconcile task queue and runs the nightly pass until
// ctx is cancelled.
func (a *App) RunWorker(ctx context.Context) error {
	if a.Temporal == nil {
		return errors.New("worker needs TEMPORAL_ADDRESS")
	}
	runner, err := temporalworker.NewRunner(a.Log, a.Cfg.Temporal, a.Temporal, a.Services.Reconciliation)
	if err != nil {
		return err
	}
	if err := runner.Start(ctx); err != nil {
		return fmt.Errorf("start temporal worker: %w", err)
	}
	a.Metrics.StartServer(ctx, a.Log, a.Cfg.MetricsAddr)
	if a.Cfg.SchedulerEnabled {
		s := scheduler.New(a.Log, a.Metrics)
		s.UseLocker(redisx.NewTryLocker(a.Redis, schedulerLockPrefix))
		if err := scheduler.RegisterDefaults(s, scheduler.Deps{Reconcile: a.Services.Reconciliation}); err != nil {
			return fmt.Errorf("register jobs: %w", err)
		}
		s.Start(ctx)
		defer s.Stop()
	}
	<-ctx.Done()
	return nil
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.Temporal != nil {
		a.Temporal.Close()
	}
	if a.Archive != nil {
		_ = a.Archive.Close()
	}
	if a.Bus != nil {
		_ = a.Bus.Close()
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.DB != nil {
		_ = a.DB.Close()
	}
	if a.shutdownOtel != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = a.shutdownOtel(ctx)
		cancel()
	}
	a.Log.Sync()
}
