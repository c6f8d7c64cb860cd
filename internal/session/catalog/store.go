package catalog

import (
	"context"
	"sync"

	"github.com/akolanti/StudyHelper/internal/config"
	"github.com/akolanti/StudyHelper/internal/domain/commonModels"
	"github.com/akolanti/StudyHelper/internal/domain/sessionModel"
	"github.com/akolanti/StudyHelper/internal/session/events"
	"github.com/akolanti/StudyHelper/pkg/logger_i"
)

type Fetcher interface {
	FetchDocuments(ctx context.Context, userID string) ([]commonModels.DocumentRecord, error)
}

// Store holds the last fetched document list for one user. Refreshes may
// overlap: loading stays set until none is outstanding and the response
// that resolves last decides the list and the error. In strict mode only
// the response to the latest issued refresh is applied.
type Store struct {
	mu          sync.Mutex
	documents   []commonModels.DocumentRecord
	state       sessionModel.CatalogState
	outstanding int
	issued      uint64
	lastFailed  bool

	strict    bool
	fetcher   Fetcher
	publisher events.Publisher
	log       *logger_i.Logger
	wg        sync.WaitGroup
}

type Option func(*Store)

func WithPublisher(p events.Publisher) Option {
	return func(s *Store) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithStrictOrdering drops responses older than the latest issued refresh.
func WithStrictOrdering(strict bool) Option {
	return func(s *Store) {
		s.strict = strict
	}
}

func New(fetcher Fetcher, opts ...Option) *Store {
	s := &Store{
		documents: []commonModels.DocumentRecord{},
		state:     sessionModel.CatalogIdle{},
		fetcher:   fetcher,
		publisher: events.Discard{},
		log:       logger_i.NewLogger("catalog"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Refresh fetches the catalog and waits for it. The returned error is also
// recorded as the store's error state.
func (s *Store) Refresh(ctx context.Context, userID string) error {
	if userID == "" {
		return sessionModel.ErrMissingInput
	}
	seq := s.begin()
	docs, err := s.fetcher.FetchDocuments(ctx, userID)
	s.finish(seq, docs, err)
	return err
}

// RefreshAsync marks the store loading before it returns and fetches in the
// background.
func (s *Store) RefreshAsync(ctx context.Context, userID string) error {
	if userID == "" {
		return sessionModel.ErrMissingInput
	}
	seq := s.begin()
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		docs, err := s.fetcher.FetchDocuments(ctx, userID)
		s.finish(seq, docs, err)
	}()
	return nil
}

// Wait blocks until background refreshes have resolved.
func (s *Store) Wait() {
	s.wg.Wait()
}

func (s *Store) Snapshot() sessionModel.CatalogSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outstanding++
	s.issued++
	s.state = sessionModel.CatalogLoading{}
	s.publishLocked()
	return s.issued
}

func (s *Store) finish(seq uint64, docs []commonModels.DocumentRecord, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outstanding--

	stale := s.strict && seq < s.issued
	switch {
	case stale:
		s.log.Debug("dropped stale catalog response", "seq", seq, "latest", s.issued)
	case err != nil:
		s.log.Error("catalog fetch failed", "seq", seq, "error", err)
		s.lastFailed = true
	default:
		if docs == nil {
			docs = []commonModels.DocumentRecord{}
		}
		s.documents = docs
		s.lastFailed = false
		s.log.Debug("catalog loaded", "seq", seq, "count", len(docs))
	}

	if s.outstanding > 0 {
		s.state = sessionModel.CatalogLoading{}
	} else if s.lastFailed {
		s.state = sessionModel.CatalogFailed{Message: config.CatalogFailedMessage}
	} else {
		s.state = sessionModel.CatalogLoaded{}
	}
	s.publishLocked()
}

func (s *Store) snapshotLocked() sessionModel.CatalogSnapshot {
	docs := make([]commonModels.DocumentRecord, len(s.documents))
	copy(docs, s.documents)
	return sessionModel.CatalogSnapshot{Documents: docs, State: s.state}
}

func (s *Store) publishLocked() {
	s.publisher.Publish(events.Event{Type: events.EventCatalog, Catalog: s.snapshotLocked()})
}
