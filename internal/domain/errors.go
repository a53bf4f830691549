package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionNotFound is returned for an unknown or destroyed game session.
	ErrSessionNotFound = errors.New("game session not found")
	// ErrPinNotFound is returned when a pin resolves to no live session.
	ErrPinNotFound = errors.New("game pin not found")
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrPlayerNotFound is returned when a reconnect names an unknown player.
	ErrPlayerNotFound = errors.New("player not found in game")

	// ErrInvalidTransition flags state-machine misuse by the host client.
	ErrInvalidTransition = errors.New("invalid game state transition")
	// ErrCapacityExceeded is returned when the concurrent session limit is hit.
	ErrCapacityExceeded = errors.New("maximum concurrent games reached")
	// ErrPersistenceFailed wraps a failed results write; the in-memory game
	// still finishes and the ledger is retained for retry.
	ErrPersistenceFailed = errors.New("failed to persist game results")

	// ErrAnswerRejected is the category for every refused submission; match
	// it with errors.Is to treat all rejection reasons uniformly.
	ErrAnswerRejected  = errors.New("answer rejected")
	ErrStaleQuestion   = fmt.Errorf("%w: stale question", ErrAnswerRejected)
	ErrQuestionHidden  = fmt.Errorf("%w: question not open", ErrAnswerRejected)
	ErrDuplicateAnswer = fmt.Errorf("%w: already answered", ErrAnswerRejected)
	ErrNotAnswerable   = fmt.Errorf("%w: question is not answerable", ErrAnswerRejected)
	ErrUnknownPlayer   = fmt.Errorf("%w: unknown player", ErrAnswerRejected)

	// ErrJoinRejected is the category for refused joins.
	ErrJoinRejected       = errors.New("join rejected")
	ErrCaptchaFailed      = fmt.Errorf("%w: captcha failed", ErrJoinRejected)
	ErrUsernameTaken      = fmt.Errorf("%w: username already taken", ErrJoinRejected)
	ErrGameAlreadyStarted = fmt.Errorf("%w: game already started", ErrJoinRejected)
	ErrGameFinished       = fmt.Errorf("%w: game already finished", ErrJoinRejected)
)
