package ports

import (
	"context"
	"time"

	"WeatherAlertWatch/internal/domain"
)

// HistoryStore persists processed identifiers for deduplication.
type HistoryStore interface {
	Ensure(ctx context.Context, event domain.EventType) error
	Load(ctx context.Context, event domain.EventType) (domain.Ledger, error)
	Persist(ctx context.Context, event domain.EventType, ledger domain.Ledger) error
	Location(event domain.EventType) string
}

// Mailer sends plain-text notification emails.
type Mailer interface {
	Send(ctx context.Context, subject, body string) error
}

// Pusher forwards broadcast summaries to the push-notification endpoint.
type Pusher interface {
	Push(ctx context.Context, eventCode int, message string) error
}

// EventLog appends operator-facing dated log entries.
type EventLog interface {
	Write(event domain.EventType, at time.Time, message string, identifiers []string) error
}

// Dispatcher fans an outcome out to log, rename and email side effects.
type Dispatcher interface {
	Dispatch(ctx context.Context, outcome domain.Outcome)
}

// Watcher delivers created-file paths until ctx ends or watching fails.
type Watcher interface {
	Watch(ctx context.Context, onFile func(path string)) error
}

// Scheduler hands observations to the batching stage.
type Scheduler interface {
	OnEvent(obs domain.Observation)
	Stop() []domain.Observation
	Wait()
}
