package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"live-quiz-service/internal/domain"

	"github.com/google/uuid"
)

// Session states, linear with no cycles: LOBBY -> IN_PROGRESS -> FINISHED.
const (
	StateLobby      = "LOBBY"
	StateInProgress = "IN_PROGRESS"
	StateFinished   = "FINISHED"
)

// Session owns one quiz playthrough: the state machine, the roster and the
// answer ledger. Every mutation is serialized behind one mutex so a burst
// of concurrent submissions, a host advancing the question and players
// joining or dropping can interleave in any order without corrupting
// state. Different sessions never share a lock.
type Session struct {
	id             string
	pin            string
	hostID         string
	quiz           domain.Quiz
	captchaEnabled bool
	cfg            Config
	results        ResultsWriter
	now            func() time.Time

	mu              sync.Mutex
	started         bool
	finished        bool
	currentQuestion int
	questionShow    bool
	players         map[string]*Player
	bySID           map[string]string
	ledger          map[int]map[string]domain.AnswerData
	customData      map[string]string
	subscribers     map[chan Event]struct{}
	finalized       *domain.GameResults
}

func newSession(id, pin, hostID string, quiz domain.Quiz, captchaEnabled bool, cfg Config, results ResultsWriter) *Session {
	return newSessionWithClock(id, pin, hostID, quiz, captchaEnabled, cfg, results, time.Now)
}

// newSessionWithClock allows deterministic timestamps in tests.
func newSessionWithClock(id, pin, hostID string, quiz domain.Quiz, captchaEnabled bool, cfg Config, results ResultsWriter, now func() time.Time) *Session {
	return &Session{
		id:              id,
		pin:             pin,
		hostID:          hostID,
		quiz:            quiz,
		captchaEnabled:  captchaEnabled,
		cfg:             cfg,
		results:         results,
		now:             now,
		currentQuestion: -1,
		players:         make(map[string]*Player),
		bySID:           make(map[string]string),
		ledger:          make(map[int]map[string]domain.AnswerData),
		customData:      make(map[string]string),
		subscribers:     make(map[chan Event]struct{}),
	}
}

func (s *Session) ID() string     { return s.id }
func (s *Session) Pin() string    { return s.pin }
func (s *Session) HostID() string { return s.hostID }

// Quiz returns the content snapshot the session was created with. Edits to
// the source quiz never reach a running game.
func (s *Session) Quiz() domain.Quiz { return s.quiz }

// State reports the lifecycle phase.
func (s *Session) State() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.finished:
		return StateFinished
	case s.started:
		return StateInProgress
	default:
		return StateLobby
	}
}

// CurrentQuestion returns the active question index (-1 in the lobby) and
// whether it is open for answers.
func (s *Session) CurrentQuestion() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentQuestion, s.questionShow
}

// Start moves the session out of the lobby. Starting twice, or after the
// game finished, is a host client bug and is rejected.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started || s.finished {
		return domain.ErrInvalidTransition
	}
	s.started = true
	s.broadcastLocked(Event{Type: EventGameStarted})
	return nil
}

// AdvanceQuestion moves to the next question and opens it for answers,
// broadcasting the key-stripped question view. Advancing past the last
// question finishes the game and finalizes results instead; finished
// reports that transition. A persistence failure surfaces as
// ErrPersistenceFailed but the FINISHED transition stands either way.
func (s *Session) AdvanceQuestion(ctx context.Context) (finished bool, err error) {
	s.mu.Lock()
	if !s.started || s.finished {
		s.mu.Unlock()
		return false, domain.ErrInvalidTransition
	}

	s.currentQuestion++
	if s.currentQuestion >= len(s.quiz.Questions) {
		results := s.finishLocked()
		s.mu.Unlock()
		return true, s.persist(ctx, results)
	}

	s.questionShow = true
	view := s.quiz.Questions[s.currentQuestion].View(s.currentQuestion)
	s.broadcastLocked(Event{Type: EventQuestion, Payload: view})
	s.mu.Unlock()
	return false, nil
}

// HideQuestion closes answer submission for the current question without
// advancing, e.g. for a reveal screen. Hiding an already hidden question
// is a no-op.
func (s *Session) HideQuestion() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.questionShow {
		return
	}
	s.questionShow = false
	s.broadcastLocked(Event{Type: EventQuestionHidden})
}

// End finishes the game early on the host's request, finalizing results
// from whatever the ledger holds so far.
func (s *Session) End(ctx context.Context) error {
	s.mu.Lock()
	if !s.started || s.finished {
		s.mu.Unlock()
		return domain.ErrInvalidTransition
	}
	results := s.finishLocked()
	s.mu.Unlock()
	return s.persist(ctx, results)
}

// SubmitAnswer validates, scores and records one answer. At most one
// submission per player and question is ever accepted; everything else is
// rejected with a reason the transport can surface, never a fatal error.
// A submission racing a question change simply loses: it is rejected as
// stale rather than attributed to the new question.
func (s *Session) SubmitAnswer(username string, questionIndex int, payload domain.AnswerPayload, timeTakenMs float64) (domain.AnswerData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.players[username]; !ok {
		return domain.AnswerData{}, domain.ErrUnknownPlayer
	}
	if !s.started || s.finished || questionIndex != s.currentQuestion {
		return domain.AnswerData{}, domain.ErrStaleQuestion
	}
	if !s.questionShow {
		return domain.AnswerData{}, domain.ErrQuestionHidden
	}

	question := s.quiz.Questions[questionIndex]
	if question.Type == domain.QuestionSlide {
		return domain.AnswerData{}, domain.ErrNotAnswerable
	}
	if _, dup := s.ledger[questionIndex][username]; dup {
		return domain.AnswerData{}, domain.ErrDuplicateAnswer
	}

	limit := question.TimeLimitMs()
	if timeTakenMs < 0 {
		timeTakenMs = 0
	}
	if timeTakenMs > limit {
		timeTakenMs = limit
	}

	correct := Validate(question, payload)
	record := domain.AnswerData{
		Username:      username,
		QuestionIndex: questionIndex,
		Answer:        payload.String(),
		Right:         correct,
		TimeTakenMs:   timeTakenMs,
		Score:         Score(correct, timeTakenMs, limit, s.cfg.BaseScore, s.cfg.MaxScore),
	}
	if s.ledger[questionIndex] == nil {
		s.ledger[questionIndex] = make(map[string]domain.AnswerData)
	}
	s.ledger[questionIndex][username] = record

	s.broadcastLocked(Event{Type: EventLeaderboard, Payload: s.leaderboardLocked()})
	return record, nil
}

// Results returns the finalized aggregate once the game has finished. The
// second return is false while the game is still running.
func (s *Session) Results() (domain.GameResults, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finalized == nil {
		return domain.GameResults{}, false
	}
	return *s.finalized, true
}

// finishLocked performs the FINISHED transition and builds the results
// aggregate from the ledger. Totals are recomputed as sums here rather
// than trusting any running accumulator.
func (s *Session) finishLocked() domain.GameResults {
	s.finished = true
	s.questionShow = false

	answers := make([]domain.AnswerData, 0)
	indexes := make([]int, 0, len(s.ledger))
	for index := range s.ledger {
		indexes = append(indexes, index)
	}
	sort.Ints(indexes)
	for _, index := range indexes {
		byPlayer := s.ledger[index]
		usernames := make([]string, 0, len(byPlayer))
		for username := range byPlayer {
			usernames = append(usernames, username)
		}
		sort.Strings(usernames)
		for _, username := range usernames {
			answers = append(answers, byPlayer[username])
		}
	}

	var customData map[string]string
	if len(s.customData) > 0 {
		customData = make(map[string]string, len(s.customData))
		for username, value := range s.customData {
			customData[username] = value
		}
	}

	results := domain.GameResults{
		ID:              uuid.NewString(),
		QuizID:          s.quiz.ID,
		HostID:          s.hostID,
		Timestamp:       s.now(),
		PlayerCount:     len(s.players),
		Answers:         answers,
		PlayerScores:    s.totalsLocked(),
		CustomFieldData: customData,
		Title:           s.quiz.Title,
		Description:     s.quiz.Description,
		Questions:       s.quiz.Questions,
	}
	s.finalized = &results

	s.broadcastLocked(Event{Type: EventGameFinished, Payload: domain.GameSummary{
		ResultID:     results.ID,
		PlayerCount:  results.PlayerCount,
		PlayerScores: results.PlayerScores,
	}})
	return results
}

// persist writes the finalized aggregate outside the session lock.
func (s *Session) persist(ctx context.Context, results domain.GameResults) error {
	if s.results == nil {
		return nil
	}
	if err := s.results.SaveResults(ctx, results); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPersistenceFailed, err)
	}
	return nil
}
