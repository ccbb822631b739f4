package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"WeatherAlertWatch/internal/alerttype"
	"WeatherAlertWatch/internal/domain"
	"WeatherAlertWatch/internal/infrastructure/parser"
	"WeatherAlertWatch/internal/ports"
)

// Arrival is a watcher notification stamped with the time it was seen.
type Arrival struct {
	Path string
	At   time.Time
}

// Intake waits for a newly created file to settle, parses it and resolves its event type
// before handing it to the collector. Rejected files are reported and renamed as failures.
// Call Wait after Run returns to drain background reports.
type Intake struct {
	registry   *alerttype.Registry
	dispatcher ports.Dispatcher
	sink       ports.Scheduler
	settle     time.Duration
	logger     *slog.Logger
	now        func() time.Time
	pending    sync.WaitGroup
}

// NewIntake wires the intake stage.
func NewIntake(registry *alerttype.Registry, dispatcher ports.Dispatcher, sink ports.Scheduler, settle time.Duration, logger *slog.Logger) *Intake {
	if logger == nil {
		logger = slog.Default()
	}
	return &Intake{
		registry:   registry,
		dispatcher: dispatcher,
		sink:       sink,
		settle:     settle,
		logger:     logger,
		now:        time.Now,
	}
}

// Run consumes arrivals in order until the channel closes or ctx ends. Each arrival waits
// only for what remains of its own settle delay, so a burst is not serialised behind it.
func (i *Intake) Run(ctx context.Context, arrivals <-chan Arrival) {
	for {
		select {
		case <-ctx.Done():
			return
		case a, ok := <-arrivals:
			if !ok {
				return
			}
			if wait := time.Until(a.At.Add(i.settle)); wait > 0 {
				timer := time.NewTimer(wait)
				select {
				case <-ctx.Done():
					timer.Stop()
					return
				case <-timer.C:
				}
			}
			i.Observe(ctx, a)
		}
	}
}

// Observe processes one settled arrival. Parsing and the hand-off to the collector stay on the
// caller's ordered path; the receipt and any rejection are reported in the background so a
// slow mailer cannot hold back later arrivals.
func (i *Intake) Observe(ctx context.Context, a Arrival) {
	reason := i.admit(a)
	i.report(ctx, a, reason)
}

// admit queues the file and returns "" or the rejection reason.
func (i *Intake) admit(a Arrival) string {
	doc, err := parser.ParseFile(a.Path)
	if err != nil {
		return fmt.Sprintf("failed to load CAP file (error: %v)", err)
	}

	code := parser.EventCode(doc)
	if code == "" {
		return "failed to resolve event type"
	}

	handler, err := i.registry.Resolve(domain.EventType(code))
	if err != nil {
		return fmt.Sprintf("unsupported event type (weatherEvent: %s)", code)
	}

	i.logger.Debug("observation queued", "path", a.Path, "event_type", string(handler.Type()))
	i.sink.OnEvent(domain.Observation{
		Path:       a.Path,
		EventType:  handler.Type(),
		Document:   doc,
		ObservedAt: a.At,
	})
	return ""
}

func (i *Intake) report(ctx context.Context, a Arrival, reason string) {
	if reason != "" {
		i.logger.Warn("file rejected", "path", a.Path, "reason", reason)
	}
	rejectedAt := i.now()
	ctx = context.WithoutCancel(ctx)

	i.pending.Add(1)
	go func() {
		defer i.pending.Done()
		i.dispatcher.Dispatch(ctx, domain.Outcome{
			Message:     "received new CAP file",
			Identifiers: []string{a.Path},
			At:          a.At,
		})
		if reason == "" {
			return
		}
		i.dispatcher.Dispatch(ctx, domain.Outcome{
			Message:     reason,
			Identifiers: []string{a.Path},
			Rename:      []string{a.Path},
			SendEmail:   true,
			At:          rejectedAt,
		})
	}()
}

// Wait blocks until every background report has been dispatched.
func (i *Intake) Wait() {
	i.pending.Wait()
}
