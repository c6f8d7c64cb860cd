package conversation

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/akolanti/StudyHelper/internal/config"
	"github.com/akolanti/StudyHelper/internal/domain/sessionModel"
	"github.com/akolanti/StudyHelper/internal/session/events"
	"github.com/akolanti/StudyHelper/pkg/logger_i"
)

type Asker interface {
	Ask(ctx context.Context, question, userID string) (string, error)
}

// Session is the chat transcript and the one request it may have in flight.
// Turns are only ever appended.
type Session struct {
	mu         sync.Mutex
	transcript []sessionModel.ChatTurn
	pending    bool
	input      string

	asker     Asker
	publisher events.Publisher
	log       *logger_i.Logger
}

type Option func(*Session)

func WithPublisher(p events.Publisher) Option {
	return func(s *Session) {
		if p != nil {
			s.publisher = p
		}
	}
}

func New(asker Asker, opts ...Option) *Session {
	s := &Session{
		transcript: []sessionModel.ChatTurn{},
		asker:      asker,
		publisher:  events.Discard{},
		log:        logger_i.NewLogger("conversation"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) SetInput(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.input = text
}

func (s *Session) Input() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.input
}

func (s *Session) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

func (s *Session) Transcript() []sessionModel.ChatTurn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]sessionModel.ChatTurn, len(s.transcript))
	copy(out, s.transcript)
	return out
}

// Ask appends the question, waits for the answer and appends it or an error
// turn. Service failures end up in the transcript and are not returned;
// the only errors are ErrMissingInput and ErrRequestPending, and neither
// changes the session.
func (s *Session) Ask(ctx context.Context, text, userID string) error {
	question := strings.TrimSpace(text)
	if question == "" || userID == "" {
		return sessionModel.ErrMissingInput
	}

	s.mu.Lock()
	if s.pending {
		s.mu.Unlock()
		return sessionModel.ErrRequestPending
	}
	s.appendLocked(sessionModel.UserTurn(question))
	s.input = ""
	s.pending = true
	s.publishPendingLocked()
	s.mu.Unlock()

	answer, err := s.asker.Ask(ctx, question, userID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.log.Error("chat request failed", "error", err)
		s.appendLocked(sessionModel.ErrorTurn(errorText(err)))
	} else {
		s.appendLocked(sessionModel.AssistantTurn(answer))
	}
	s.pending = false
	s.publishPendingLocked()
	return nil
}

// Send asks whatever is in the input buffer.
func (s *Session) Send(ctx context.Context, userID string) error {
	return s.Ask(ctx, s.Input(), userID)
}

// HandleKey sends the input buffer on Enter without Shift. handled reports
// whether the key was a send.
func (s *Session) HandleKey(ctx context.Context, key sessionModel.KeyPress, userID string) (handled bool, err error) {
	if !key.SubmitsMessage() {
		return false, nil
	}
	return true, s.Send(ctx, userID)
}

func (s *Session) appendLocked(turn sessionModel.ChatTurn) {
	s.transcript = append(s.transcript, turn)
	s.publisher.Publish(events.Event{Type: events.EventTranscript, Turn: turn, Pending: s.pending})
}

func (s *Session) publishPendingLocked() {
	s.publisher.Publish(events.Event{Type: events.EventTranscript, Pending: s.pending})
}

func errorText(err error) string {
	var svcErr *sessionModel.ServiceError
	if errors.As(err, &svcErr) && strings.TrimSpace(svcErr.Message) != "" {
		return svcErr.Message
	}
	return config.ChatFallbackError
}
