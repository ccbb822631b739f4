// Package alerttype holds the per-event-type capabilities (classification, artifact
// generation, push formatting) the pipeline dispatches to.
package alerttype

import (
	"context"
	"fmt"

	"WeatherAlertWatch/internal/domain"
)

// Handler captures everything the pipeline needs to know about one alert family.
type Handler interface {
	Type() domain.EventType
	Label() string
	Classify(doc *domain.Document, path string) (domain.CapRecord, error)
	Generate(ctx context.Context, p domain.Partition) (domain.ArtifactPair, error)
	PushMessage(p domain.Partition) (code int, message string)
}

// Registry keeps a mapping from event types to their handlers.
type Registry struct {
	handlers map[domain.EventType]Handler
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: map[domain.EventType]Handler{}}
}

// Register adds or replaces a handler.
func (r *Registry) Register(h Handler) {
	if r.handlers == nil {
		r.handlers = map[domain.EventType]Handler{}
	}
	r.handlers[h.Type()] = h
}

// Resolve returns the handler for an event type or an UnsupportedEventType error.
func (r *Registry) Resolve(event domain.EventType) (Handler, error) {
	if h, ok := r.handlers[event]; ok {
		return h, nil
	}
	return nil, &domain.Error{Kind: domain.KindUnsupportedEventType, Detail: fmt.Sprintf("event type %q is not registered", event)}
}

// Types lists registered event types.
func (r *Registry) Types() []domain.EventType {
	out := make([]domain.EventType, 0, len(r.handlers))
	for t := range r.handlers {
		out = append(out, t)
	}
	return out
}
