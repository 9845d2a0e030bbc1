package manager

import "github.com/google/uuid"

// Event names published by the Manager.
const (
	EventLoadStart      = "load_start"
	EventLoadDone       = "load_done"
	EventLoadError      = "load_error"
	EventUnload         = "unload"
	EventGenerateStart  = "generate_start"
	EventGenerateDone   = "generate_done"
	EventGenerateError  = "generate_error"
	EventLockRecovered  = "lock_recovered"
	EventVisionFallback = "vision_fallback"
)

// Event represents a manager lifecycle event.
// Minimal and stable: name + model path and optional fields via key/values.
// Events that belong to one request share its RequestID.
type Event struct {
	Name      string
	Model     string
	RequestID string
	Fields    map[string]any
}

// EventPublisher receives events from the manager. Implementations should be
// lightweight and non-blocking; Publish must not panic.
type EventPublisher interface {
	Publish(Event)
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}

func newRequestID() string { return uuid.NewString() }
