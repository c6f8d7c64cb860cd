package events

import (
	"sync"

	"github.com/akolanti/StudyHelper/internal/config"
	"github.com/akolanti/StudyHelper/internal/domain/sessionModel"
	"github.com/akolanti/StudyHelper/pkg/logger_i"
)

type EventType string

const (
	EventUpload     EventType = "upload"
	EventCatalog    EventType = "catalog"
	EventSelection  EventType = "selection"
	EventTranscript EventType = "transcript"
	EventPane       EventType = "pane"
)

// Event is a presentation-facing change notice. Only the field matching Type
// is set.
type Event struct {
	Type       EventType
	Upload     sessionModel.UploadTask
	Catalog    sessionModel.CatalogSnapshot
	Selection  sessionModel.DocumentRef
	Turn       sessionModel.ChatTurn
	Pending    bool
	ActivePane sessionModel.Pane
}

// Publisher is what the session components need from the bus.
type Publisher interface {
	Publish(event Event)
}

// Bus fans events out to subscribers. Publishing never blocks; a subscriber
// that falls behind loses events and should re-read the session view.
type Bus struct {
	mu     sync.Mutex
	subs   map[chan Event]struct{}
	log    *logger_i.Logger
	depth  int
	closed bool
}

func New() *Bus {
	return &Bus{
		subs:  make(map[chan Event]struct{}),
		log:   logger_i.NewLogger("events"),
		depth: config.SessionEventBufferDepth,
	}
}

// Subscribe registers a subscriber and returns its channel and a cancel func
// that closes it. After Close the channel comes back already closed.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	if b == nil {
		return nil, func() {}
	}
	ch := make(chan Event, b.depth)
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	b.subs[ch] = struct{}{}
	count := len(b.subs)
	b.mu.Unlock()
	b.log.Debug("subscribe", "subs", count)

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subs[ch]; !ok {
			return
		}
		delete(b.subs, ch)
		close(ch)
		b.log.Debug("unsubscribe")
	}
}

// Close ends every subscription. Later publishes are dropped.
func (b *Bus) Close() {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for ch := range b.subs {
		delete(b.subs, ch)
		close(ch)
	}
}

func (b *Bus) Publish(event Event) {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	dropped := 0
	for sub := range b.subs {
		select {
		case sub <- event:
		default:
			dropped++
		}
	}
	if dropped > 0 {
		b.log.Debug("events dropped", "type", event.Type, "count", dropped)
	}
}

// Discard is a Publisher that drops everything.
type Discard struct{}

func (Discard) Publish(Event) {}
