package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"WeatherAlertWatch/internal/domain"
	"WeatherAlertWatch/internal/ports"
)

const arrivalBuffer = 256

// SchedulerDeps wires the watch loop.
type SchedulerDeps struct {
	Watcher    ports.Watcher
	Intake     *Intake
	Collector  ports.Scheduler
	Pipeline   *Pipeline
	Dispatcher ports.Dispatcher
	WatchDir   string
	Logger     *slog.Logger
}

// Scheduler connects the directory watcher to intake, the debounce collector and the
// pipeline, and owns their lifecycle.
type Scheduler struct {
	watcher    ports.Watcher
	intake     *Intake
	collector  ports.Scheduler
	pipeline   *Pipeline
	dispatcher ports.Dispatcher
	watchDir   string
	logger     *slog.Logger
	now        func() time.Time
}

// NewScheduler returns the watch loop driver.
func NewScheduler(deps SchedulerDeps) *Scheduler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		watcher:    deps.Watcher,
		intake:     deps.Intake,
		collector:  deps.Collector,
		pipeline:   deps.Pipeline,
		dispatcher: deps.Dispatcher,
		watchDir:   deps.WatchDir,
		logger:     logger,
		now:        time.Now,
	}
}

// Run ensures history exists, then watches until ctx ends or the watcher fails. The watcher
// delivers files already present before new ones. Watch failures are reported and returned.
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.pipeline.Ensure(ctx); err != nil {
		s.logger.Error("history initialisation failed", "error", err)
		s.dispatcher.Dispatch(ctx, domain.Outcome{
			Message:   fmt.Sprintf("failed to initialise processed history, service stopped (error: %v)", err),
			SendEmail: true,
		})
		return err
	}

	arrivals := make(chan Arrival, arrivalBuffer)
	intakeDone := make(chan struct{})
	go func() {
		defer close(intakeDone)
		s.intake.Run(ctx, arrivals)
	}()

	s.logger.Info("watching", "dir", s.watchDir)
	watchErr := s.watcher.Watch(ctx, func(path string) {
		s.enqueue(ctx, arrivals, path)
	})
	close(arrivals)
	<-intakeDone
	s.intake.Wait()

	if dropped := s.collector.Stop(); len(dropped) > 0 {
		s.logger.Warn("pending observations dropped", "count", len(dropped), "paths", domain.Batch(dropped).Paths())
	}
	s.collector.Wait()

	if watchErr != nil {
		s.logger.Error("watch failed", "error", watchErr)
		s.dispatcher.Dispatch(context.WithoutCancel(ctx), domain.Outcome{
			Message:     fmt.Sprintf("directory watch failed, service stopped (error: %v)", watchErr),
			Identifiers: []string{s.watchDir},
			SendEmail:   true,
		})
		return watchErr
	}
	return nil
}

func (s *Scheduler) enqueue(ctx context.Context, arrivals chan<- Arrival, path string) {
	select {
	case arrivals <- Arrival{Path: path, At: s.now()}:
	case <-ctx.Done():
	}
}
