package gradio

import "sync"

// Event names published by the client.
const (
	EventResolveDone    = "resolve_done"
	EventWakeupPoll     = "wakeup_poll"
	EventLoginDone      = "login_done"
	EventNegotiateDone  = "negotiate_done"
	EventUploadDone     = "upload_done"
	EventQueueJoined    = "queue_joined"
	EventPredictionDone = "prediction_done"
	EventCancelDone     = "cancel_done"
)

// Event represents a client lifecycle event.
// Minimal and stable: name + api root and optional fields via key/values.
type Event struct {
	Name    string
	APIRoot string
	Fields  map[string]any
}

// EventPublisher receives events from the client. Implementations should be
// lightweight and non-blocking; Publish must not panic.
type EventPublisher interface {
	Publish(Event)
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}

// MemoryPublisher stores events in-memory for tests.
type MemoryPublisher struct {
	mu     sync.Mutex
	events []Event
}

func NewMemoryPublisher() *MemoryPublisher { return &MemoryPublisher{} }

func (p *MemoryPublisher) Publish(e Event) {
	p.mu.Lock()
	p.events = append(p.events, e)
	p.mu.Unlock()
}

func (p *MemoryPublisher) Events() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Event, len(p.events))
	copy(out, p.events)
	return out
}

// Names returns the published event names in order.
func (p *MemoryPublisher) Names() []string {
	evs := p.Events()
	out := make([]string, len(evs))
	for i, e := range evs {
		out[i] = e.Name
	}
	return out
}
