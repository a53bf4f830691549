package engine

import (
	"sort"
	"time"

	"live-quiz-service/internal/domain"
)

// Player is a roster entry. SID is the current connection identifier and
// is empty while the player is disconnected; the player itself stays in
// the roster (and keeps all recorded answers) until the session is
// destroyed.
type Player struct {
	Username string
	SID      string
	JoinedAt time.Time
}

// Join registers a player. A username held by a disconnected player is
// reclaimed as a reconnect; a username held by a connected player is
// rejected. New players may join mid-game only when late join is enabled.
// customData is the player's value for the quiz's custom field, if any.
func (s *Session) Join(username, sid string, captchaPassed bool, customData string) (Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finished {
		return Player{}, domain.ErrGameFinished
	}
	if s.captchaEnabled && !captchaPassed {
		return Player{}, domain.ErrCaptchaFailed
	}

	if existing, ok := s.players[username]; ok {
		if existing.SID != "" {
			return Player{}, domain.ErrUsernameTaken
		}
		return s.attachLocked(existing, sid), nil
	}

	if s.started && !s.cfg.AllowLateJoin {
		return Player{}, domain.ErrGameAlreadyStarted
	}

	player := &Player{
		Username: username,
		SID:      sid,
		JoinedAt: s.now(),
	}
	s.players[username] = player
	s.bySID[sid] = username
	if s.quiz.CustomField != "" && customData != "" {
		s.customData[username] = customData
	}
	s.broadcastLocked(Event{Type: EventPlayerJoined, Payload: playerEvent{Username: username}})
	return *player, nil
}

// Reconnect reattaches a disconnected player to a new connection without
// touching their standing.
func (s *Session) Reconnect(username, newSID string) (Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	player, ok := s.players[username]
	if !ok {
		return Player{}, domain.ErrPlayerNotFound
	}
	if player.SID != "" {
		return Player{}, domain.ErrUsernameTaken
	}
	return s.attachLocked(player, newSID), nil
}

func (s *Session) attachLocked(player *Player, sid string) Player {
	player.SID = sid
	s.bySID[sid] = player.Username
	s.broadcastLocked(Event{Type: EventPlayerJoined, Payload: playerEvent{Username: player.Username}})
	return *player
}

// Disconnect clears the connection identifier for whichever player owns
// sid. The player keeps their roster slot and answers for a later
// reconnect; an unknown sid is a no-op.
func (s *Session) Disconnect(sid string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	username, ok := s.bySID[sid]
	if !ok {
		return
	}
	delete(s.bySID, sid)
	if player, ok := s.players[username]; ok && player.SID == sid {
		player.SID = ""
		s.broadcastLocked(Event{Type: EventPlayerLeft, Payload: playerEvent{Username: username}})
	}
}

// Players returns a roster snapshot.
func (s *Session) Players() []Player {
	s.mu.Lock()
	defer s.mu.Unlock()

	players := make([]Player, 0, len(s.players))
	for _, player := range s.players {
		players = append(players, *player)
	}
	sort.Slice(players, func(i, j int) bool { return players[i].Username < players[j].Username })
	return players
}

// Leaderboard returns the scoreboard ordered by total score, ties broken
// by username.
func (s *Session) Leaderboard() domain.Leaderboard {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.leaderboardLocked()
}

func (s *Session) leaderboardLocked() domain.Leaderboard {
	totals := s.totalsLocked()
	entries := make([]domain.LeaderboardEntry, 0, len(s.players))
	for username, player := range s.players {
		entries = append(entries, domain.LeaderboardEntry{
			Username:  username,
			Score:     totals[username],
			Connected: player.SID != "",
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].Username < entries[j].Username
	})
	return domain.Leaderboard{
		GameID:    s.id,
		Entries:   entries,
		UpdatedAt: s.now(),
	}
}

// totalsLocked sums recorded scores per player from the ledger. Players
// with no submissions map to zero, never to a missing key.
func (s *Session) totalsLocked() map[string]int {
	totals := make(map[string]int, len(s.players))
	for username := range s.players {
		totals[username] = 0
	}
	for _, byPlayer := range s.ledger {
		for username, answer := range byPlayer {
			totals[username] += answer.Score
		}
	}
	return totals
}
