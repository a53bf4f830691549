package engine

import (
	"context"
	"sync"
	"time"

	"live-quiz-service/internal/domain"

	"github.com/google/uuid"
)

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// ResultsWriter persists one finalized results aggregate per game.
type ResultsWriter interface {
	SaveResults(ctx context.Context, results domain.GameResults) error
}

// Config tunes the engine; zero values fall back to defaults.
type Config struct {
	MaxSessions   int  // concurrent live sessions, default 1000
	PinDigits     int  // join code length, default 6
	AllowLateJoin bool // admit new usernames after the game started
	BaseScore     int  // minimum score for a correct answer
	MaxScore      int  // score for an instant correct answer
}

func (c Config) withDefaults() Config {
	if c.MaxSessions <= 0 {
		c.MaxSessions = 1000
	}
	if c.PinDigits <= 0 {
		c.PinDigits = 6
	}
	if c.BaseScore <= 0 {
		c.BaseScore = DefaultBaseScore
	}
	if c.MaxScore <= 0 {
		c.MaxScore = DefaultMaxScore
	}
	// A base above the max would invert the time decay; degrade to flat
	// scoring instead.
	if c.MaxScore < c.BaseScore {
		c.MaxScore = c.BaseScore
	}
	return c
}

// Engine is the process-wide registry of live game sessions: the only
// place sessions are created and destroyed. Its lock guards the session
// table alone; gameplay inside a session never contends with registry
// housekeeping or with other sessions.
type Engine struct {
	cfg     Config
	quizzes QuizRepository
	results ResultsWriter
	pins    *PinRegistry
	now     func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

// New builds an engine. pinSink may be nil.
func New(cfg Config, quizzes QuizRepository, results ResultsWriter, pinSink PinSink) *Engine {
	cfg = cfg.withDefaults()
	return &Engine{
		cfg:      cfg,
		quizzes:  quizzes,
		results:  results,
		pins:     NewPinRegistry(cfg.PinDigits, pinSink),
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// CreateSession snapshots the quiz, allocates a session in lobby state and
// binds a fresh pin to it. Session ids are random and never reused.
func (e *Engine) CreateSession(ctx context.Context, quizID, hostID string, captchaEnabled bool) (*Session, error) {
	quiz, err := e.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	if len(e.sessions) >= e.cfg.MaxSessions {
		e.mu.Unlock()
		return nil, domain.ErrCapacityExceeded
	}
	id := uuid.NewString()
	// Reserve the slot before issuing the pin so a concurrent create
	// burst cannot overshoot the capacity limit.
	e.sessions[id] = nil
	e.mu.Unlock()

	pin, err := e.pins.Issue(id)
	if err != nil {
		e.mu.Lock()
		delete(e.sessions, id)
		e.mu.Unlock()
		return nil, err
	}

	session := newSessionWithClock(id, pin, hostID, quiz.Clone(), captchaEnabled, e.cfg, e.results, e.now)
	e.mu.Lock()
	e.sessions[id] = session
	e.mu.Unlock()
	return session, nil
}

// Get looks up a live session by id.
func (e *Engine) Get(sessionID string) (*Session, error) {
	e.mu.RLock()
	session, ok := e.sessions[sessionID]
	e.mu.RUnlock()
	if !ok || session == nil {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// ResolvePin looks up a live session by its join code.
func (e *Engine) ResolvePin(pin string) (*Session, error) {
	sessionID, err := e.pins.Resolve(pin)
	if err != nil {
		return nil, err
	}
	return e.Get(sessionID)
}

// Destroy removes a session and releases its pin. Destroying an unknown
// id is a no-op so duplicate cleanup calls are harmless.
func (e *Engine) Destroy(sessionID string) {
	e.mu.Lock()
	session, ok := e.sessions[sessionID]
	delete(e.sessions, sessionID)
	e.mu.Unlock()

	if !ok || session == nil {
		return
	}
	e.pins.Release(session.Pin())
	session.closeSubscribers()
}

// Len reports the number of live sessions.
func (e *Engine) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.sessions)
}
