package service

import (
	"context"
	"encoding/json"
	"log"
	"sync"
)

// ─────────────────────────────────────────────────────────────
// EventEmitter: decouples services from their front end
// ─────────────────────────────────────────────────────────────

// EventEmitter receives service events ("page:saved", "page:reloaded",
// ...). The CLI and the MCP server log them; tests record them.
type EventEmitter interface {
	Emit(ctx context.Context, event string, data any)
}

// LogEmitter writes every event to the standard logger as one line.
type LogEmitter struct{}

func (LogEmitter) Emit(_ context.Context, event string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		log.Printf("[EVENT] %s %v", event, data)
		return
	}
	log.Printf("[EVENT] %s %s", event, payload)
}

// NopEmitter drops every event.
type NopEmitter struct{}

func (NopEmitter) Emit(context.Context, string, any) {}

// MockEmitter is a test-friendly EventEmitter that records all calls.
// Autosave emits from cron goroutines, so recording is locked.
type MockEmitter struct {
	mu     sync.Mutex
	Events []EmittedEvent
}

// EmittedEvent holds a single recorded emission for test assertions.
type EmittedEvent struct {
	Event string
	Data  any
}

func (m *MockEmitter) Emit(_ context.Context, event string, data any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, EmittedEvent{Event: event, Data: data})
}

// Count returns how many times event was emitted.
func (m *MockEmitter) Count(event string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.Events {
		if e.Event == event {
			n++
		}
	}
	return n
}
