package usecase

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"WeatherAlertWatch/internal/domain"
	"WeatherAlertWatch/internal/infrastructure/scheduler"
	"WeatherAlertWatch/internal/infrastructure/storage"
)

// scriptedWatcher reports the given paths (startup listing first), then returns err or waits
// for cancellation.
type scriptedWatcher struct {
	paths []string
	err   error
}

func (w *scriptedWatcher) Watch(ctx context.Context, onFile func(path string)) error {
	for _, p := range w.paths {
		onFile(p)
	}
	if w.err != nil {
		return w.err
	}
	<-ctx.Done()
	return nil
}

func newScheduler(ctx context.Context, f *fixture, w *scriptedWatcher) *Scheduler {
	collector := scheduler.NewCollector(20*time.Millisecond, f.pipeline.Release(ctx))
	return NewScheduler(SchedulerDeps{
		Watcher:    w,
		Intake:     NewIntake(f.registry, f.dispatcher, collector, 0, nil),
		Collector:  collector,
		Pipeline:   f.pipeline,
		Dispatcher: f.dispatcher,
		WatchDir:   filepath.Join(f.dir, "in"),
	})
}

func TestSchedulerRunProcessesExistingAndNewFiles(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	existing := f.write(t, "old.cap", formalAlert("OLD"))
	created := f.write(t, "new.cap", formalAlert("NEW"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := newScheduler(ctx, f, &scriptedWatcher{paths: []string{existing, created}})
	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx) }()

	require.Eventually(t, func() bool {
		ledger, err := f.history.Load(context.Background(), domain.EventThunderstorm)
		return err == nil && len(ledger.Entries) == 2
	}, 5*time.Second, 10*time.Millisecond)

	ledger, err := f.history.Load(context.Background(), domain.EventThunderstorm)
	require.NoError(t, err)
	assert.Equal(t, []string{"OLD", "NEW"}, ledger.Entries)
	assert.NotEmpty(t, f.pusher.Snapshot())

	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestSchedulerRunReportsWatchFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	watchErr := errors.New("watched directory removed")
	s := newScheduler(context.Background(), f, &scriptedWatcher{err: watchErr})

	err := s.Run(context.Background())
	require.ErrorIs(t, err, watchErr)

	failed := findOutcome(t, f.dispatcher.Snapshot(), "directory watch failed")
	assert.True(t, failed.SendEmail)
	assert.Equal(t, []string{filepath.Join(f.dir, "in")}, failed.Identifiers)
}

func TestSchedulerRunStopsWhenHistoryCannotBeCreated(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	blocker := filepath.Join(f.dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))
	f.pipeline.history = storage.NewJSONHistoryStore(blocker, 3, f.locks)

	watcher := &scriptedWatcher{}
	s := newScheduler(context.Background(), f, watcher)

	err := s.Run(context.Background())
	require.Error(t, err)

	outcomes := f.dispatcher.Snapshot()
	require.Len(t, outcomes, 1)
	assert.Contains(t, outcomes[0].Message, "failed to initialise processed history")
	assert.True(t, outcomes[0].SendEmail)
}
