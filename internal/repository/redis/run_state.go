package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	"github.com/redis/go-redis/v9"
)

// Key patterns for Redis run state.
func statusKey(runID string) string { return "run:" + runID + ":status" }
func lockKey(runID string) string   { return "run:" + runID + ":lock" }
func timerKey(runID string) string  { return "run:" + runID + ":timer" }

// TimerKeyPrefix and TimerKeySuffix frame the keys whose expiry triggers
// an automatic round.
const (
	TimerKeyPrefix = "run:"
	TimerKeySuffix = ":timer"
)

var (
	codecOnce sync.Once
	encoder   *zstd.Encoder
	decoder   *zstd.Decoder
)

func codec() (*zstd.Encoder, *zstd.Decoder) {
	codecOnce.Do(func() {
		encoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
		decoder, _ = zstd.NewReader(nil)
	})
	return encoder, decoder
}

// SetStatus stores the compressed status snapshot of a run.
func (c *Client) SetStatus(ctx context.Context, runID string, status json.RawMessage) error {
	enc, _ := codec()
	return c.rdb.Set(ctx, statusKey(runID), enc.EncodeAll(status, nil), 0).Err()
}

// GetStatus returns the cached status snapshot, or nil if none is cached.
func (c *Client) GetStatus(ctx context.Context, runID string) (json.RawMessage, error) {
	data, err := c.rdb.Get(ctx, statusKey(runID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run status: %w", err)
	}
	_, dec := codec()
	raw, err := dec.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress run status: %w", err)
	}
	return json.RawMessage(raw), nil
}

// releaseScript deletes the lock only when it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// AcquireLock takes the per-run advance lock. ok is false when another
// process holds it.
func (c *Client) AcquireLock(ctx context.Context, runID string, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()
	ok, err := c.rdb.SetNX(ctx, lockKey(runID), token, ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("acquire run lock: %w", err)
	}
	return token, ok, nil
}

// ReleaseLock drops the lock if token still owns it.
func (c *Client) ReleaseLock(ctx context.Context, runID, token string) error {
	if err := releaseScript.Run(ctx, c.rdb, []string{lockKey(runID)}, token).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("release run lock: %w", err)
	}
	return nil
}

// timerGracePeriod delays expiry slightly past the advertised deadline.
const timerGracePeriod = time.Second

// SetTimer creates a timer key with a TTL. When the key expires, Redis
// keyspace notifications trigger the next round.
func (c *Client) SetTimer(ctx context.Context, runID string, deadline time.Time) error {
	ttl := time.Until(deadline) + timerGracePeriod
	if ttl <= 0 {
		ttl = time.Second
	}
	return c.rdb.Set(ctx, timerKey(runID), deadline.Unix(), ttl).Err()
}

// ClearTimer removes the timer for a run.
func (c *Client) ClearTimer(ctx context.Context, runID string) error {
	return c.rdb.Del(ctx, timerKey(runID)).Err()
}

// DeleteRunData removes all Redis data for a run.
func (c *Client) DeleteRunData(ctx context.Context, runID string) error {
	return c.rdb.Del(ctx, statusKey(runID), lockKey(runID), timerKey(runID)).Err()
}
