package selector

import (
	"sync"

	"github.com/akolanti/StudyHelper/internal/domain/commonModels"
	"github.com/akolanti/StudyHelper/internal/domain/sessionModel"
	"github.com/akolanti/StudyHelper/internal/session/events"
)

// Selector holds the currently viewed document. It never checks the
// reference against the catalog, and a refresh never clears it.
type Selector struct {
	mu        sync.Mutex
	current   sessionModel.DocumentRef
	selected  bool
	publisher events.Publisher
	onSelect  func(sessionModel.DocumentRef)
}

type Option func(*Selector)

func WithPublisher(p events.Publisher) Option {
	return func(s *Selector) {
		if p != nil {
			s.publisher = p
		}
	}
}

// OnSelect registers the document-selected listener.
func OnSelect(fn func(sessionModel.DocumentRef)) Option {
	return func(s *Selector) {
		s.onSelect = fn
	}
}

func New(opts ...Option) *Selector {
	s := &Selector{publisher: events.Discard{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Selector) Select(ref sessionModel.DocumentRef) {
	s.mu.Lock()
	s.current = ref
	s.selected = true
	s.publisher.Publish(events.Event{Type: events.EventSelection, Selection: ref})
	s.mu.Unlock()

	if s.onSelect != nil {
		s.onSelect(ref)
	}
}

func (s *Selector) Current() (sessionModel.DocumentRef, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current, s.selected
}

// Lookup finds the selected document in documents. ok is false when nothing
// is selected or the selection is no longer listed.
func (s *Selector) Lookup(documents []commonModels.DocumentRecord) (commonModels.DocumentRecord, bool) {
	ref, selected := s.Current()
	if !selected {
		return commonModels.DocumentRecord{}, false
	}
	return Find(documents, ref)
}

func Find(documents []commonModels.DocumentRecord, ref sessionModel.DocumentRef) (commonModels.DocumentRecord, bool) {
	for _, doc := range documents {
		if sessionModel.DocumentRef(doc.URL) == ref {
			return doc, true
		}
	}
	return commonModels.DocumentRecord{}, false
}

// Resolve turns a url, id or file name into a reference. Unknown values are
// taken as a url so they can still be selected.
func Resolve(documents []commonModels.DocumentRecord, value string) sessionModel.DocumentRef {
	if _, ok := Find(documents, sessionModel.DocumentRef(value)); ok {
		return sessionModel.DocumentRef(value)
	}
	for _, doc := range documents {
		if doc.ID == value || doc.Name == value {
			return sessionModel.DocumentRef(doc.URL)
		}
	}
	return sessionModel.DocumentRef(value)
}
