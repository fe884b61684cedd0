package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Marker remembers keys for a while; the reminder worker uses it so a
// reminder goes out once even when scans overlap.
type Marker struct {
	client *redis.Client
}

func NewMarker(client *redis.Client) *Marker {
	return &Marker{client: client}
}

// MarkOnce sets key if absent and reports whether this call set it.
func (m *Marker) MarkOnce(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := m.client.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("mark %s: %w", key, err)
	}
	return ok, nil
}
