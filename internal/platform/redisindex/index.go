// Package redisindex mirrors synced entities into Redis hashes, one hash per
// entity, for consumers that read the external index directly.
package redisindex

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/phrazzld/mentorbook-api/internal/config"
	"github.com/phrazzld/mentorbook-api/internal/outbox"
)

// Hash fields written for every entity.
const (
	FieldEntityType = "entity_type"
	FieldEntityID   = "entity_id"
	FieldPayload    = "payload"
	FieldSyncedAt   = "synced_at"
)

// Commands is the subset of the Redis client used by Target.
// *redis.Client satisfies it.
type Commands interface {
	HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Target implements outbox.SyncTarget on Redis.
type Target struct {
	client Commands
	prefix string
	now    func() time.Time
	logger *slog.Logger
}

var _ outbox.SyncTarget = (*Target)(nil)

// NewTarget creates a target writing keys under prefix.
func NewTarget(client Commands, prefix string, logger *slog.Logger) *Target {
	if logger == nil {
		logger = slog.Default()
	}
	return &Target{
		client: client,
		prefix: prefix,
		now:    func() time.Time { return time.Now().UTC() },
		logger: logger.With(slog.String("component", "redis_sync_target")),
	}
}

// NewClient connects to Redis and verifies the connection with PING.
func NewClient(ctx context.Context, cfg config.RedisSyncConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// Key returns the hash key of an entity.
func (t *Target) Key(entityType, entityID string) string {
	return fmt.Sprintf("%s:%s:%s", t.prefix, entityType, entityID)
}

// Upsert implements outbox.SyncTarget.
func (t *Target) Upsert(ctx context.Context, entityType, entityID string, payload json.RawMessage) error {
	if len(payload) == 0 {
		payload = json.RawMessage(`{}`)
	}
	key := t.Key(entityType, entityID)
	err := t.client.HSet(ctx, key,
		FieldEntityType, entityType,
		FieldEntityID, entityID,
		FieldPayload, string(payload),
		FieldSyncedAt, t.now().Format(time.RFC3339Nano),
	).Err()
	if err != nil {
		return fmt.Errorf("redis HSET %s: %w", key, err)
	}
	return nil
}

// Delete implements outbox.SyncTarget. Deleting a missing key succeeds.
func (t *Target) Delete(ctx context.Context, entityType, entityID string) error {
	key := t.Key(entityType, entityID)
	removed, err := t.client.Del(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("redis DEL %s: %w", key, err)
	}
	if removed == 0 {
		t.logger.DebugContext(ctx, "entity already absent", slog.String("key", key))
	}
	return nil
}
