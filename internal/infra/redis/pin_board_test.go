package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"live-quiz-service/internal/domain"

	miniredis "github.com/alicebob/miniredis/v2"
)

func TestPinBoardMirrorsLifecycle(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	board := NewPinBoard(newClient(mr), time.Minute)

	board.PinIssued("123456", "session-1")
	if !mr.Exists("game:pin:123456") {
		t.Fatalf("expected pin key to be set")
	}

	sessionID, err := board.Lookup(context.Background(), "123456")
	if err != nil || sessionID != "session-1" {
		t.Fatalf("lookup: got %q, %v", sessionID, err)
	}

	board.PinReleased("123456")
	if mr.Exists("game:pin:123456") {
		t.Fatalf("expected pin key to be removed")
	}
	if _, err := board.Lookup(context.Background(), "123456"); !errors.Is(err, domain.ErrPinNotFound) {
		t.Fatalf("expected pin not found, got %v", err)
	}
}
