package redis

import (
	"context"
	"time"

	"live-quiz-service/internal/domain"

	"github.com/redis/go-redis/v9"
)

// PinBoard mirrors live game pins into Redis (SET game:pin:{pin} ->
// session id) so ops tooling and sibling instances can see which codes
// are active. The in-process registry stays authoritative; board writes
// are best-effort liveness markers with a TTL safety net against leaked
// keys.
type PinBoard struct {
	client *redis.Client
	ttl    time.Duration
}

func NewPinBoard(client *redis.Client, ttl time.Duration) *PinBoard {
	return &PinBoard{client: client, ttl: ttl}
}

// PinIssued records a fresh pin binding.
func (b *PinBoard) PinIssued(pin, sessionID string) {
	_ = b.client.Set(context.Background(), b.key(pin), sessionID, b.ttl).Err()
}

// PinReleased drops a retired pin.
func (b *PinBoard) PinReleased(pin string) {
	_ = b.client.Del(context.Background(), b.key(pin)).Err()
}

// Lookup resolves a mirrored pin to its session id.
func (b *PinBoard) Lookup(ctx context.Context, pin string) (string, error) {
	sessionID, err := b.client.Get(ctx, b.key(pin)).Result()
	if err == redis.Nil {
		return "", domain.ErrPinNotFound
	}
	if err != nil {
		return "", err
	}
	return sessionID, nil
}

func (b *PinBoard) key(pin string) string {
	return "game:pin:" + pin
}
