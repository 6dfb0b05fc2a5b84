package events

import (
	"sync"
	"time"
)

// Type names a domain event.
type Type string

const (
	StageCompleted Type = "stageCompleted"
	LevelCompleted Type = "levelCompleted"
	BossCompleted  Type = "bossCompleted"
	GameCompleted  Type = "gameCompleted"
)

// Event is emitted after a state mutation has been applied. Presentation code
// subscribes to render celebrations; nothing in the engine depends on delivery.
type Event struct {
	Type       Type      `json:"type"`
	BossID     int       `json:"bossId,omitempty"`
	LevelID    int       `json:"levelId,omitempty"`
	StageID    int       `json:"stageId,omitempty"`
	StageType  string    `json:"stageType,omitempty"`
	XPAwarded  int       `json:"xpAwarded,omitempty"`
	Stars      int       `json:"stars,omitempty"`
	Badge      string    `json:"badge,omitempty"`
	Difficulty string    `json:"difficulty,omitempty"`
	At         time.Time `json:"at"`
}

// Handler receives published events synchronously, on the publisher's goroutine.
type Handler func(Event)

// Bus fans events out to subscribers.
type Bus struct {
	mu       sync.RWMutex
	handlers []Handler
}

func NewBus() *Bus {
	return &Bus{}
}

func (b *Bus) Subscribe(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

func (b *Bus) Publish(e Event) {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	b.mu.RLock()
	handlers := append([]Handler(nil), b.handlers...)
	b.mu.RUnlock()
	for _, h := range handlers {
		h(e)
	}
}

// Recorder keeps the most recent events until they are drained.
type Recorder struct {
	mu     sync.Mutex
	limit  int
	events []Event
}

// NewRecorder keeps at most limit events, dropping the oldest.
func NewRecorder(limit int) *Recorder {
	if limit <= 0 {
		limit = 64
	}
	return &Recorder{limit: limit}
}

// Handle is a Handler.
func (r *Recorder) Handle(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	if over := len(r.events) - r.limit; over > 0 {
		r.events = append([]Event(nil), r.events[over:]...)
	}
}

// Drain returns recorded events oldest first and forgets them.
func (r *Recorder) Drain() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.events
	r.events = nil
	if out == nil {
		out = []Event{}
	}
	return out
}
