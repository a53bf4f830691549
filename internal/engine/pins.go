package engine

import (
	"fmt"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"live-quiz-service/internal/domain"
)

// PinSink observes pin lifecycle events, e.g. to mirror live pins into
// Redis for ops tooling or cross-instance lookups. Calls are best-effort
// and must not block for long; they run outside the registry lock.
type PinSink interface {
	PinIssued(pin, sessionID string)
	PinReleased(pin string)
}

// PinRegistry maintains the bijection between short join codes and live
// session ids. Pins are uniformly random decimal codes without a leading
// zero, so a 6-digit registry has 900,000 usable codes.
type PinRegistry struct {
	digits int
	sink   PinSink

	mu        sync.Mutex
	rnd       *rand.Rand
	bindings  map[string]string // pin -> session id
	bySession map[string]string // session id -> pin
}

// NewPinRegistry creates a registry issuing pins of the given number of
// digits (minimum 6 is enforced to keep collision retries rare).
func NewPinRegistry(digits int, sink PinSink) *PinRegistry {
	if digits < 6 {
		digits = 6
	}
	return &PinRegistry{
		digits:    digits,
		sink:      sink,
		rnd:       rand.New(rand.NewSource(time.Now().UnixNano())),
		bindings:  make(map[string]string),
		bySession: make(map[string]string),
	}
}

// Issue binds a fresh pin to sessionID, regenerating on collision.
func (r *PinRegistry) Issue(sessionID string) (string, error) {
	r.mu.Lock()
	low := 1
	for i := 1; i < r.digits; i++ {
		low *= 10
	}
	var pin string
	for attempts := 0; ; attempts++ {
		if attempts >= 1000 {
			r.mu.Unlock()
			return "", fmt.Errorf("pin space exhausted after %d attempts", attempts)
		}
		pin = strconv.Itoa(low + r.rnd.Intn(9*low))
		if _, taken := r.bindings[pin]; !taken {
			break
		}
	}
	r.bindings[pin] = sessionID
	r.bySession[sessionID] = pin
	r.mu.Unlock()

	if r.sink != nil {
		r.sink.PinIssued(pin, sessionID)
	}
	return pin, nil
}

// Resolve returns the session id a pin is currently bound to.
func (r *PinRegistry) Resolve(pin string) (string, error) {
	r.mu.Lock()
	sessionID, ok := r.bindings[pin]
	r.mu.Unlock()
	if !ok {
		return "", domain.ErrPinNotFound
	}
	return sessionID, nil
}

// Release frees a pin for reuse. Releasing an unknown pin is a no-op.
func (r *PinRegistry) Release(pin string) {
	r.mu.Lock()
	sessionID, ok := r.bindings[pin]
	if ok {
		delete(r.bindings, pin)
		delete(r.bySession, sessionID)
	}
	r.mu.Unlock()

	if ok && r.sink != nil {
		r.sink.PinReleased(pin)
	}
}
