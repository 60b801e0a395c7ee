package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/citypd/platform/internal/shared/types"
)

// CaseStreamPrefix prefixes the per-case event stream
const CaseStreamPrefix = "case-"

// Event is a committed domain event as published to the event store
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Stream    string    `json:"stream"`
	Timestamp time.Time `json:"timestamp"`
	ActorID   types.ID  `json:"actor_id,omitempty"`
	Data      any       `json:"data"`
}

// NewCaseEvent creates an event on the case's stream
func NewCaseEvent(caseID types.ID, eventType string, actor types.ID, at time.Time, data any) Event {
	if at.IsZero() {
		at = time.Now()
	}
	return Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Stream:    CaseStream(caseID),
		Timestamp: at.UTC(),
		ActorID:   actor,
		Data:      data,
	}
}

// WithID overrides the generated event ID. Reusing the journal entry's ID
// makes republishing idempotent in the event store.
func (e Event) WithID(id string) Event {
	if id != "" {
		e.ID = id
	}
	return e
}

// CaseStream returns the stream name of a case
func CaseStream(caseID types.ID) string {
	return CaseStreamPrefix + caseID.String()
}

// Publisher appends events to their streams
type Publisher interface {
	Publish(ctx context.Context, events ...Event) error
}

// Recorder is an in-memory Publisher
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// NewRecorder creates an empty recorder
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Publish records events
func (r *Recorder) Publish(ctx context.Context, events ...Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, events...)
	return nil
}

// Stream returns the recorded events of one stream in publish order
func (r *Recorder) Stream(stream string) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Event
	for _, e := range r.events {
		if e.Stream == stream {
			out = append(out, e)
		}
	}
	return out
}

// Len returns the number of recorded events
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}
