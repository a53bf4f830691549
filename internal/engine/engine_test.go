package engine_test

import (
	"context"
	"errors"
	"testing"

	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/engine"
)

func TestCreateGetDestroy(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(engine.Config{})

	session, err := eng.CreateSession(ctx, "quiz-1", "host-1", false)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if session.Pin() == "" || session.ID() == "" {
		t.Fatalf("expected id and pin assigned, got %+v", session)
	}

	got, err := eng.Get(session.ID())
	if err != nil || got != session {
		t.Fatalf("get: %v", err)
	}
	byPin, err := eng.ResolvePin(session.Pin())
	if err != nil || byPin != session {
		t.Fatalf("resolve pin: %v", err)
	}

	eng.Destroy(session.ID())
	if _, err := eng.Get(session.ID()); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected session gone, got %v", err)
	}
	if _, err := eng.ResolvePin(session.Pin()); !errors.Is(err, domain.ErrPinNotFound) {
		t.Fatalf("expected pin released, got %v", err)
	}
	eng.Destroy(session.ID()) // idempotent
}

func TestCreateSessionUnknownQuiz(t *testing.T) {
	eng, _ := newTestEngine(engine.Config{})
	if _, err := eng.CreateSession(context.Background(), "missing", "host-1", false); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected quiz lookup failure, got %v", err)
	}
}

func TestCapacityLimit(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(engine.Config{MaxSessions: 2})

	first, err := eng.CreateSession(ctx, "quiz-1", "host-1", false)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := eng.CreateSession(ctx, "quiz-1", "host-1", false); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := eng.CreateSession(ctx, "quiz-1", "host-1", false); !errors.Is(err, domain.ErrCapacityExceeded) {
		t.Fatalf("expected capacity rejection, got %v", err)
	}

	eng.Destroy(first.ID())
	if _, err := eng.CreateSession(ctx, "quiz-1", "host-1", false); err != nil {
		t.Fatalf("expected capacity freed after destroy, got %v", err)
	}
	if eng.Len() != 2 {
		t.Fatalf("expected 2 live sessions, got %d", eng.Len())
	}
}

func TestScoreBoundsSurviveBaseAboveDefaultMax(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(engine.Config{BaseScore: 1500})
	session := mustCreate(t, eng)

	if _, err := session.Join("alice", "s1", true, ""); err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := session.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := session.AdvanceQuestion(ctx); err != nil {
		t.Fatalf("advance: %v", err)
	}
	instant, err := session.SubmitAnswer("alice", 0, domain.AnswerPayload{Answer: "Paris"}, 0)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := session.AdvanceQuestion(ctx); err != nil {
		t.Fatalf("advance: %v", err)
	}
	slow, err := session.SubmitAnswer("alice", 1, domain.AnswerPayload{Answer: "paris"}, 20000)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if slow.Score < 1500 {
		t.Fatalf("expected configured base to floor scores, got %d", slow.Score)
	}
	if instant.Score < slow.Score {
		t.Fatalf("decay inverted: instant %d < slowest %d", instant.Score, slow.Score)
	}
}

func TestQuizSnapshotIsolatedFromSource(t *testing.T) {
	ctx := context.Background()
	source := sampleQuiz()
	quizzes := staticQuizRepo{"quiz-1": source}
	eng := engine.New(engine.Config{}, quizzes, &capturingWriter{}, nil)

	session, err := eng.CreateSession(ctx, "quiz-1", "host-1", false)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Mutating the source after creation must not reach the session.
	source.Questions[0].Choices[1].Right = false
	quizzes["quiz-1"] = domain.Quiz{ID: "quiz-1", Title: "Edited"}

	snapshot := session.Quiz()
	if snapshot.Title != "Capitals" {
		t.Fatalf("expected snapshot title, got %q", snapshot.Title)
	}
	if !snapshot.Questions[0].Choices[1].Right {
		t.Fatalf("expected snapshot answer key untouched by source edit")
	}
}
