package redis

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// advanceFloor stores ARGV[1] only when it is above the current floor and
// refreshes the expiry either way.
var advanceFloor = goredis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if not cur or tonumber(ARGV[1]) > tonumber(cur) then
	redis.call('SET', KEYS[1], ARGV[1])
end
if tonumber(ARGV[2]) > 0 then
	redis.call('PEXPIRE', KEYS[1], ARGV[2])
end
return 1
`)

// GenerationTracker implements ports.GenerationTracker in Redis so several
// terminals share one replay floor per tag identity.
type GenerationTracker struct {
	client *goredis.Client
	prefix string
	ttl    time.Duration
}

// NewGenerationTracker creates a tracker. A zero ttl keeps floors forever.
func NewGenerationTracker(client *goredis.Client, prefix string, ttl time.Duration) *GenerationTracker {
	if prefix == "" {
		prefix = "gen:"
	}
	return &GenerationTracker{client: client, prefix: prefix, ttl: ttl}
}

func (g *GenerationTracker) key(identity []byte) string {
	return g.prefix + hex.EncodeToString(identity)
}

// Floor returns the stored floor, ok=false when the identity is unknown.
func (g *GenerationTracker) Floor(ctx context.Context, identity []byte) (uint32, bool, error) {
	val, err := g.client.Get(ctx, g.key(identity)).Result()
	if errors.Is(err, goredis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("redis generation get: %w", err)
	}
	floor, err := strconv.ParseUint(val, 10, 32)
	if err != nil {
		return 0, false, fmt.Errorf("redis generation parse %q: %w", val, err)
	}
	return uint32(floor), true, nil
}

// Advance raises the floor; lower values are ignored.
func (g *GenerationTracker) Advance(ctx context.Context, identity []byte, floor uint32) error {
	err := advanceFloor.Run(ctx, g.client, []string{g.key(identity)}, floor, g.ttl.Milliseconds()).Err()
	if err != nil {
		return fmt.Errorf("redis generation advance: %w", err)
	}
	return nil
}
