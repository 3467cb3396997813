package contest

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"contest-backend/api"
	"contest-backend/internal/questions"

	"github.com/benbjohnson/clock"
)

var (
	ErrNotHost          = errors.New("requester is not the contest host")
	ErrAlreadyRunning   = errors.New("contest already running")
	ErrNoActiveQuestion = errors.New("no active question")
	ErrQuestionMismatch = errors.New("question id does not match the active question")
	ErrAlreadyAnswered  = errors.New("connection already answered this question")
	ErrNotInRoom        = errors.New("connection is not a room member")
)

// Session end reasons surfaced to clients in contestEnded events.
const (
	ReasonHostDisconnected = "host disconnected"
	ReasonNoQuestions      = "no questions available"
)

const (
	pointsPerCorrectAnswer = 10

	// Timeout applied to broadcasts issued from timer callbacks, which
	// have no request context to inherit.
	broadcastTimeout = 5 * time.Second
)

// QuestionSource supplies one question per draw, uniformly at random
// with replacement from a fixed pool.
type QuestionSource interface {
	Draw() (questions.Question, bool)
}

// Broadcaster is the fan-out primitive a session addresses rooms
// through. The session manages room subscriptions but never talks to
// individual websockets.
type Broadcaster interface {
	JoinRoom(roomID, connID string)
	LeaveRoom(roomID, connID string)
	CloseRoom(roomID string)
	ToRoom(ctx context.Context, roomID string, v any) error
}

// Timings holds the delays driving the question loop.
type Timings struct {
	// AnswerWindow is how long a question accepts answers before the
	// reveal deadline fires.
	AnswerWindow time.Duration

	// RevealDelay is the pause after a reveal with recorded answers,
	// letting clients display the reveal panel.
	RevealDelay time.Duration

	// SkipDelay is the shorter pause after a reveal nobody answered.
	SkipDelay time.Duration
}

func (t Timings) withDefaults() Timings {
	if t.AnswerWindow <= 0 {
		t.AnswerWindow = 60 * time.Second
	}
	if t.RevealDelay <= 0 {
		t.RevealDelay = 3 * time.Second
	}
	if t.SkipDelay <= 0 {
		t.SkipDelay = 2 * time.Second
	}
	return t
}

// Member is a room participant.
type Member struct {
	name  string
	score int
	seq   int // join order, breaks leaderboard ties
}

type answer struct {
	choice int
	at     time.Time
}

// Session is one room's authoritative contest state.
//
// Multiple goroutines may invoke methods on a Session simultaneously;
// every mutation runs as a short serialized step under the session
// mutex, timer callbacks included.
type Session struct {
	id     string
	hostID string

	source  QuestionSource
	gw      Broadcaster
	clock   clock.Clock
	timings Timings

	mu            sync.Mutex
	members       map[string]*Member
	joinSeq       int
	questionCount int
	questionIndex int
	current       *questions.Question
	answers       map[string]answer
	running       bool
	revealed      bool
	ended         bool
	revealTimer   *clock.Timer
	advanceTimer  *clock.Timer
}

func newSession(id string, opts SessionOptions) *Session {
	return &Session{
		id:            id,
		hostID:        opts.HostID,
		source:        opts.Source,
		gw:            opts.Broadcaster,
		clock:         opts.Clock,
		timings:       opts.Timings,
		questionCount: opts.QuestionCount,
		members:       map[string]*Member{},
		answers:       map[string]answer{},
	}
}

// ID returns the room code.
func (s *Session) ID() string {
	return s.id
}

// Host returns the connection id holding start privileges.
func (s *Session) Host() string {
	return s.hostID
}

// Running reports whether the question loop is active.
func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NumMembers returns the current member count.
func (s *Session) NumMembers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.members)
}

// Join adds a member at score 0 and broadcasts the updated leaderboard.
// Rejoining under the same connection id resets that member's score.
func (s *Session) Join(ctx context.Context, connID, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m, ok := s.members[connID]; ok {
		m.name = name
		m.score = 0
	} else {
		s.joinSeq++
		s.members[connID] = &Member{name: name, seq: s.joinSeq}
	}
	s.gw.JoinRoom(s.id, connID)
	s.broadcastLobbyUpdateLocked(ctx)
}

// Leave removes a member if present and broadcasts the updated
// leaderboard either way. It reports whether the session emptied out
// and should be dropped from the registry.
func (s *Session) Leave(ctx context.Context, connID string) (empty bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.members, connID)
	delete(s.answers, connID)
	s.gw.LeaveRoom(s.id, connID)
	s.broadcastLobbyUpdateLocked(ctx)

	if len(s.members) == 0 {
		s.discardLocked()
		return true
	}
	return false
}

// Disconnect handles a dropped transport connection. A host disconnect
// terminates the whole session. It reports whether the session should
// be dropped from the registry.
func (s *Session) Disconnect(ctx context.Context, connID string) (done bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, wasMember := s.members[connID]
	if !wasMember && connID != s.hostID {
		return false
	}

	delete(s.members, connID)
	delete(s.answers, connID)
	s.gw.LeaveRoom(s.id, connID)
	s.broadcastLobbyUpdateLocked(ctx)

	if connID == s.hostID {
		s.endLocked(ctx, ReasonHostDisconnected)
		s.gw.CloseRoom(s.id)
		return true
	}
	if len(s.members) == 0 {
		s.discardLocked()
		return true
	}
	return false
}

// Start begins the question loop. Only the host may start, and only
// once.
func (s *Session) Start(ctx context.Context, connID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if connID != s.hostID {
		return ErrNotHost
	}
	if s.running || s.ended {
		return ErrAlreadyRunning
	}

	s.running = true
	s.questionIndex = 0
	s.askNextLocked(ctx)

	slog.Info("contest started",
		slog.String("room_id", s.id),
		slog.Int("question_count", s.questionCount))
	return nil
}

// SubmitAnswer records one answer for the active question. Recording
// the last missing member answer triggers the reveal immediately.
func (s *Session) SubmitAnswer(ctx context.Context, connID, questionID string, choice int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return ErrNoActiveQuestion
	}
	if s.current.ID != questionID {
		return ErrQuestionMismatch
	}
	if _, ok := s.members[connID]; !ok {
		return ErrNotInRoom
	}
	if _, ok := s.answers[connID]; ok {
		return ErrAlreadyAnswered
	}

	s.answers[connID] = answer{choice: choice, at: s.clock.Now()}

	if len(s.answers) == len(s.members) {
		s.revealLocked(ctx)
	}
	return nil
}

// askNextLocked is the advance step: end the contest once the target
// count is reached, otherwise draw and broadcast the next question and
// arm the reveal deadline.
func (s *Session) askNextLocked(ctx context.Context) {
	if s.questionIndex >= s.questionCount {
		s.endLocked(ctx, "")
		return
	}

	q, ok := s.source.Draw()
	if !ok {
		s.endLocked(ctx, ReasonNoQuestions)
		return
	}

	s.answers = map[string]answer{}
	s.current = &q
	s.revealed = false

	s.broadcastLocked(ctx, api.Response[api.QuestionData]{
		Type: api.ResponseTypeQuestion,
		Data: api.QuestionData{ID: q.ID, Text: q.Text, Choices: q.Choices},
	})

	if s.revealTimer != nil {
		s.revealTimer.Stop()
	}
	epoch := s.questionIndex
	s.revealTimer = s.clock.AfterFunc(s.timings.AnswerWindow, func() {
		s.onDeadline(epoch)
	})

	slog.Info("question broadcast",
		slog.String("room_id", s.id),
		slog.String("question_id", q.ID),
		slog.Int("index", s.questionIndex))
}

// onDeadline fires when the answer window elapses. The state may have
// moved on since the timer was armed, so it re-checks everything it
// expects before revealing.
func (s *Session) onDeadline(epoch int) {
	ctx, cancel := context.WithTimeout(context.Background(), broadcastTimeout)
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ended || !s.running || s.revealed || s.current == nil || s.questionIndex != epoch {
		return
	}
	s.revealLocked(ctx)
}

// revealLocked is the reveal step: disclose the correct index, award
// points to members still present, advance the question index and
// schedule the next advance step. The revealed guard makes the
// deadline timer and the early full-membership trigger mutually
// exclusive; only the first to run scores.
func (s *Session) revealLocked(ctx context.Context) {
	if s.revealed || s.current == nil {
		return
	}
	s.revealed = true

	if s.revealTimer != nil {
		s.revealTimer.Stop()
		s.revealTimer = nil
	}

	q := *s.current
	s.current = nil

	type scoredAnswer struct {
		entry api.ScoredEntry
		at    time.Time
	}
	scoredAnswers := []scoredAnswer{}
	for connID, ans := range s.answers {
		member, ok := s.members[connID]
		if !ok {
			// Answered, then left before the reveal. Not scored.
			continue
		}
		if ans.choice != q.AnswerIndex {
			continue
		}
		member.score += pointsPerCorrectAnswer
		scoredAnswers = append(scoredAnswers, scoredAnswer{
			entry: api.ScoredEntry{Name: member.name, Points: pointsPerCorrectAnswer},
			at:    ans.at,
		})
	}
	// Fastest correct answer first.
	sort.Slice(scoredAnswers, func(i, j int) bool {
		return scoredAnswers[i].at.Before(scoredAnswers[j].at)
	})
	scored := make([]api.ScoredEntry, 0, len(scoredAnswers))
	for _, sa := range scoredAnswers {
		scored = append(scored, sa.entry)
	}

	delay := s.timings.RevealDelay
	if len(s.answers) == 0 {
		delay = s.timings.SkipDelay
	}

	s.questionIndex++

	s.broadcastLocked(ctx, api.Response[api.RevealData]{
		Type: api.ResponseTypeReveal,
		Data: api.RevealData{
			CorrectIndex: q.AnswerIndex,
			Scored:       scored,
			Leaderboard:  s.leaderboardLocked(),
		},
	})

	if s.advanceTimer != nil {
		s.advanceTimer.Stop()
	}
	epoch := s.questionIndex
	s.advanceTimer = s.clock.AfterFunc(delay, func() {
		s.onAdvance(epoch)
	})

	slog.Info("question revealed",
		slog.String("room_id", s.id),
		slog.String("question_id", q.ID),
		slog.Int("scored", len(scored)))
}

// onAdvance fires after the post-reveal pause and moves the loop to
// the next question, unless the session ended in between.
func (s *Session) onAdvance(epoch int) {
	ctx, cancel := context.WithTimeout(context.Background(), broadcastTimeout)
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ended || !s.running || s.questionIndex != epoch {
		return
	}
	s.askNextLocked(ctx)
}

// endLocked finishes the session: timers cancelled, contestEnded
// broadcast with the final leaderboard. Ended is terminal.
func (s *Session) endLocked(ctx context.Context, reason string) {
	if s.ended {
		return
	}
	s.ended = true
	s.running = false
	s.current = nil
	s.stopTimersLocked()

	s.broadcastLocked(ctx, api.Response[api.ContestEndedData]{
		Type: api.ResponseTypeContestEnded,
		Data: api.ContestEndedData{
			Leaderboard: s.leaderboardLocked(),
			Reason:      reason,
		},
	})

	slog.Info("contest ended",
		slog.String("room_id", s.id),
		slog.String("reason", reason))
}

// discardLocked tears down a session nobody is left in. No broadcast:
// the room is empty.
func (s *Session) discardLocked() {
	s.ended = true
	s.running = false
	s.current = nil
	s.stopTimersLocked()
	s.gw.CloseRoom(s.id)
}

func (s *Session) stopTimersLocked() {
	if s.revealTimer != nil {
		s.revealTimer.Stop()
		s.revealTimer = nil
	}
	if s.advanceTimer != nil {
		s.advanceTimer.Stop()
		s.advanceTimer = nil
	}
}

// leaderboardLocked snapshots members sorted by score descending,
// ties broken by join order.
func (s *Session) leaderboardLocked() []api.LeaderboardEntry {
	members := make([]*Member, 0, len(s.members))
	for _, m := range s.members {
		members = append(members, m)
	}
	sort.Slice(members, func(i, j int) bool {
		if members[i].score != members[j].score {
			return members[i].score > members[j].score
		}
		return members[i].seq < members[j].seq
	})

	entries := make([]api.LeaderboardEntry, 0, len(members))
	for _, m := range members {
		entries = append(entries, api.LeaderboardEntry{Name: m.name, Score: m.score})
	}
	return entries
}

func (s *Session) broadcastLobbyUpdateLocked(ctx context.Context) {
	s.broadcastLocked(ctx, api.Response[api.LobbyUpdateData]{
		Type: api.ResponseTypeLobbyUpdate,
		Data: api.LobbyUpdateData{
			RoomID:      s.id,
			Leaderboard: s.leaderboardLocked(),
		},
	})
}

func (s *Session) broadcastLocked(ctx context.Context, v any) {
	if err := s.gw.ToRoom(ctx, s.id, v); err != nil {
		slog.Error("room broadcast",
			slog.String("room_id", s.id),
			slog.Any("error", err))
	}
}
