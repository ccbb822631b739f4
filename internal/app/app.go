package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"WeatherAlertWatch/internal/alerttype"
	"WeatherAlertWatch/internal/api"
	"WeatherAlertWatch/internal/broadcast"
	"WeatherAlertWatch/internal/config"
	"WeatherAlertWatch/internal/domain"
	"WeatherAlertWatch/internal/geo"
	"WeatherAlertWatch/internal/infrastructure/eventlog"
	"WeatherAlertWatch/internal/infrastructure/fileio"
	"WeatherAlertWatch/internal/infrastructure/fswatch"
	"WeatherAlertWatch/internal/infrastructure/mail"
	"WeatherAlertWatch/internal/infrastructure/push"
	"WeatherAlertWatch/internal/infrastructure/scheduler"
	"WeatherAlertWatch/internal/infrastructure/storage"
	"WeatherAlertWatch/internal/logging"
	"WeatherAlertWatch/internal/notify"
	"WeatherAlertWatch/internal/ports"
	"WeatherAlertWatch/internal/usecase"
)

const (
	systemLabel     = "系統"
	shutdownTimeout = 5 * time.Second
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg        config.Config
	logger     *slog.Logger
	registry   *alerttype.Registry
	dispatcher *notify.Dispatcher
	recent     *notify.Recent
	pipeline   *usecase.Pipeline
	watcher    *fswatch.Watcher
	db         *sql.DB
}

// New builds the runnable application. The postgres history backend is connected here.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}
	loc := cfg.Location()
	locks := fileio.NewLocks()

	if err := os.MkdirAll(cfg.Watch.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create watch dir: %w", err)
	}

	a := &Application{cfg: cfg, logger: baseLogger}

	history, err := a.historyStore(ctx, locks)
	if err != nil {
		return nil, err
	}

	publisher, err := broadcast.NewPublisher(locks, cfg.Artifacts.Charset)
	if err != nil {
		return nil, fmt.Errorf("artifact publisher: %w", err)
	}
	generator := broadcast.NewGenerator(
		broadcast.NewRenderer(geo.Default(), loc),
		publisher,
		broadcast.Targets{
			Counties:  filepath.Join(cfg.Artifacts.Dir, cfg.Artifacts.Counties),
			Townships: filepath.Join(cfg.Artifacts.Dir, cfg.Artifacts.Townships),
		},
		broadcast.Targets{
			Counties:  filepath.Join(cfg.Artifacts.Dir, cfg.Artifacts.TestCounties),
			Townships: filepath.Join(cfg.Artifacts.Dir, cfg.Artifacts.TestTownships),
		},
	)

	a.registry = alerttype.NewRegistry()
	a.registry.Register(alerttype.NewThunderstorm(alerttype.ThunderstormOptions{
		FormalStatus:  cfg.Alert.FormalStatus,
		FormalMsgType: cfg.Alert.FormalMsgType,
		Location:      loc,
		Generator:     generator,
	}))

	var mailer ports.Mailer
	if cfg.SMTP.Host != "" {
		mailer = mail.NewSMTPMailer(mail.Options{
			Host:      cfg.SMTP.Host,
			Port:      cfg.SMTP.Port,
			Username:  cfg.SMTP.Username,
			Password:  cfg.SMTP.Password,
			SSL:       cfg.SMTP.SSL,
			Sender:    cfg.SMTP.Sender,
			Receivers: cfg.SMTP.Receivers,
			Timeout:   cfg.SMTP.Timeout,
		})
	} else {
		baseLogger.Warn("smtp host not configured, email notifications disabled")
	}

	var pusher ports.Pusher
	if cfg.Push.URL != "" {
		pusher = push.NewNotifier(cfg.Push.URL, &http.Client{Timeout: cfg.Push.Timeout})
	}

	a.recent = notify.NewRecent(cfg.Notify.RecentSize)
	a.dispatcher = notify.New(notify.Options{
		EventLog:      eventlog.NewFileLog(cfg.EventLog.Dir, loc, locks, baseLogger.With("component", "eventlog")),
		Mailer:        mailer,
		Label:         a.label,
		Subject:       cfg.Notify.Subject,
		SuccessSuffix: cfg.Notify.SuccessSuffix,
		FailureSuffix: cfg.Notify.FailureSuffix,
		Location:      loc,
		Recent:        a.recent,
		Logger:        baseLogger.With("component", "dispatcher"),
	})

	a.pipeline = usecase.NewPipeline(usecase.PipelineDeps{
		Registry:        a.registry,
		History:         history,
		Dispatcher:      a.dispatcher,
		Pusher:          pusher,
		EmailOnSuccess:  cfg.Notify.EmailOnSuccess,
		DuplicateSuffix: cfg.Notify.DuplicateSuffix,
		Logger:          baseLogger.With("component", "pipeline"),
	})
	a.watcher = fswatch.New(cfg.Watch.Dir, cfg.Watch.Extension)

	return a, nil
}

// Run watches until ctx ends or watching fails, then releases resources.
func (a *Application) Run(ctx context.Context) error {
	defer a.close()

	collector := scheduler.NewCollector(a.cfg.Pipeline.DebounceDelay, a.pipeline.Release(ctx))
	sched := usecase.NewScheduler(usecase.SchedulerDeps{
		Watcher:    a.watcher,
		Intake:     usecase.NewIntake(a.registry, a.dispatcher, collector, a.cfg.Watch.SettleDelay, a.logger.With("component", "intake")),
		Collector:  collector,
		Pipeline:   a.pipeline,
		Dispatcher: a.dispatcher,
		WatchDir:   a.cfg.Watch.Dir,
		Logger:     a.logger.With("component", "scheduler"),
	})

	server := a.startStatusServer()
	err := sched.Run(ctx)
	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if sErr := server.Shutdown(shutdownCtx); sErr != nil {
			a.logger.Warn("status server shutdown", "error", sErr)
		}
	}
	return err
}

// Handler exposes the status API for embedding and tests.
func (a *Application) Handler() http.Handler {
	return api.NewRouter(a.recent, a.cfg.Watch.Dir, a.logger.With("component", "api"))
}

func (a *Application) startStatusServer() *http.Server {
	if a.cfg.HTTP.Addr == "" {
		return nil
	}
	server := &http.Server{
		Addr:              a.cfg.HTTP.Addr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		a.logger.Info("status api listening", "addr", a.cfg.HTTP.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("status api stopped", "error", err)
		}
	}()
	return server
}

func (a *Application) historyStore(ctx context.Context, locks *fileio.Locks) (ports.HistoryStore, error) {
	switch a.cfg.History.Backend {
	case "postgres":
		db, err := storage.OpenPostgres(ctx, a.cfg.History.DSN)
		if err != nil {
			return nil, fmt.Errorf("open history database: %w", err)
		}
		a.db = db
		return storage.NewPostgresHistoryStore(db, a.cfg.History.Capacity), nil
	default:
		return storage.NewJSONHistoryStore(a.cfg.History.Dir, a.cfg.History.Capacity, locks), nil
	}
}

func (a *Application) label(event domain.EventType) string {
	if event == "" {
		return systemLabel
	}
	h, err := a.registry.Resolve(event)
	if err != nil {
		return string(event)
	}
	return h.Label()
}

func (a *Application) close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("close history database", "error", err)
		}
	}
}
