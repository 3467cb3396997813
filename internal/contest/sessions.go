package contest

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/lithammer/shortuuid/v3"
)

var ErrNoRoomSlotAvailable = errors.New("no room slot available")

// SessionOptions configures a new contest session.
type SessionOptions struct {
	// HostID is the connection id with start privileges. The host is
	// auto-joined at score 0 on registration.
	HostID string

	// HostName is the host's display name.
	HostName string

	// QuestionCount is the target number of questions, fixed once the
	// session starts. Zero or negative means the default of 10.
	QuestionCount int

	// Source supplies the questions.
	Source QuestionSource

	// Broadcaster fans events out to the room.
	Broadcaster Broadcaster

	// Clock drives the reveal deadline and inter-question pauses.
	// Nil means the wall clock.
	Clock clock.Clock

	// Timings overrides the question loop delays. Zero fields keep
	// the defaults (60s answer window, 3s reveal pause, 2s skip pause).
	Timings Timings
}

const defaultQuestionCount = 10

func (o SessionOptions) withDefaults() SessionOptions {
	if o.QuestionCount <= 0 {
		o.QuestionCount = defaultQuestionCount
	}
	if o.Clock == nil {
		o.Clock = clock.New()
	}
	o.Timings = o.Timings.withDefaults()
	return o
}

// Sessions is the process-wide registry of contest sessions keyed by
// room code.
//
// The zero value is ready to use.
type Sessions struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewSessions returns an in-memory session registry.
func NewSessions() *Sessions {
	return &Sessions{sessions: map[string]*Session{}}
}

// Register creates a session under a fresh room code and auto-joins
// the host. Codes are retried against the registry on collision, so
// two concurrently created rooms can never share one.
func (s *Sessions) Register(ctx context.Context, opts SessionOptions) (*Session, error) {
	opts = opts.withDefaults()

	s.mu.Lock()
	if s.sessions == nil {
		s.sessions = map[string]*Session{}
	}

	id := newRoomID()
	retries := 50
	for retries > 0 {
		if _, exist := s.sessions[id]; !exist {
			break
		}
		id = newRoomID()
		retries--
	}
	if retries <= 0 {
		s.mu.Unlock()
		return nil, ErrNoRoomSlotAvailable
	}

	session := newSession(id, opts)
	s.sessions[id] = session
	s.mu.Unlock()

	session.Join(ctx, opts.HostID, opts.HostName)

	return session, nil
}

// Get retrieves a session by room code.
func (s *Sessions) Get(id string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	return session, ok
}

// Delete removes a session from the registry. Idempotent.
func (s *Sessions) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// Len returns the number of registered sessions.
func (s *Sessions) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Disconnect routes a dropped connection to every session it
// participates in and drops the sessions it terminated.
func (s *Sessions) Disconnect(ctx context.Context, connID string) {
	s.mu.RLock()
	snapshot := make([]*Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		snapshot = append(snapshot, session)
	}
	s.mu.RUnlock()

	for _, session := range snapshot {
		if session.Disconnect(ctx, connID) {
			s.Delete(session.ID())
		}
	}
}

func newRoomID() string {
	return strings.ToUpper(shortuuid.New()[:5])
}
