// Package portstest provides in-memory port implementations for tests.
package portstest

import (
	"context"
	"sync"
	"time"

	"WeatherAlertWatch/internal/domain"
)

// LogEntry is one recorded EventLog write.
type LogEntry struct {
	Event       domain.EventType
	At          time.Time
	Message     string
	Identifiers []string
}

// MockEventLog records writes; Err is returned from every Write when set.
type MockEventLog struct {
	Err error

	mu      sync.Mutex
	Entries []LogEntry
}

// Write implements ports.EventLog.
func (m *MockEventLog) Write(event domain.EventType, at time.Time, message string, identifiers []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Entries = append(m.Entries, LogEntry{Event: event, At: at, Message: message, Identifiers: identifiers})
	return m.Err
}

// Snapshot returns a copy of the recorded entries.
func (m *MockEventLog) Snapshot() []LogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]LogEntry(nil), m.Entries...)
}

// Mail is one recorded Mailer send.
type Mail struct {
	Subject string
	Body    string
}

// MockMailer records sends.
type MockMailer struct {
	Err error

	mu    sync.Mutex
	Calls []Mail
}

// Send implements ports.Mailer.
func (m *MockMailer) Send(ctx context.Context, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, Mail{Subject: subject, Body: body})
	return m.Err
}

// Snapshot returns a copy of the recorded mails.
func (m *MockMailer) Snapshot() []Mail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Mail(nil), m.Calls...)
}

// Push is one recorded Pusher call.
type Push struct {
	Code    int
	Message string
}

// MockPusher records pushes.
type MockPusher struct {
	Err error

	mu    sync.Mutex
	Calls []Push
}

// Push implements ports.Pusher.
func (m *MockPusher) Push(ctx context.Context, eventCode int, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, Push{Code: eventCode, Message: message})
	return m.Err
}

// Snapshot returns a copy of the recorded pushes.
func (m *MockPusher) Snapshot() []Push {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Push(nil), m.Calls...)
}

// MockDispatcher records outcomes without side effects.
type MockDispatcher struct {
	mu       sync.Mutex
	Outcomes []domain.Outcome
}

// Dispatch implements ports.Dispatcher.
func (m *MockDispatcher) Dispatch(ctx context.Context, o domain.Outcome) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Outcomes = append(m.Outcomes, o)
}

// Snapshot returns a copy of the recorded outcomes.
func (m *MockDispatcher) Snapshot() []domain.Outcome {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Outcome(nil), m.Outcomes...)
}
