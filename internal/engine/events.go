package engine

// EventType names a broadcast event fanned out to session subscribers.
type EventType string

const (
	EventGameStarted    EventType = "gameStarted"
	EventQuestion       EventType = "question"
	EventQuestionHidden EventType = "questionHidden"
	EventPlayerJoined   EventType = "playerJoined"
	EventPlayerLeft     EventType = "playerLeft"
	EventLeaderboard    EventType = "leaderboard"
	EventGameFinished   EventType = "gameFinished"
)

// Event is one broadcast message. Payload shape depends on Type: a
// domain.QuestionView for question events, domain.Leaderboard for
// leaderboard updates, domain.GameSummary when the game finishes and a
// playerEvent for roster changes.
type Event struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload,omitempty"`
}

type playerEvent struct {
	Username string `json:"username"`
}

// Subscribe registers a listener for session events. The channel is
// buffered; slow consumers have stale events dropped rather than blocking
// gameplay. The caller must invoke cancel to avoid leaks.
func (s *Session) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 8)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) broadcastLocked(event Event) {
	for ch := range s.subscribers {
		select {
		case ch <- event:
		default:
			// Drop the oldest buffered event so slow clients never block
			// the session lock.
			select {
			case <-ch:
			default:
			}
			ch <- event
		}
	}
}

func (s *Session) closeSubscribers() {
	s.mu.Lock()
	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
	}
	s.mu.Unlock()
}
