package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/liveshop/backend/internal/models"
)

// SessionTTL bounds how long a live session snapshot survives without
// writes. Every write resets it, so only an abandoned session expires.
const SessionTTL = 24 * time.Hour

// liveEventsChannel carries LiveEvent payloads from mutating handlers to
// the websocket hub.
const liveEventsChannel = "live:events"

// RedisClient wraps redis operations for session snapshots and live events
type RedisClient struct {
	client *redis.Client
	ctx    context.Context
}

// NewRedisClient creates a new Redis client
func NewRedisClient(addr, password string, db int) (*RedisClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisClient{
		client: client,
		ctx:    ctx,
	}, nil
}

// Close closes the Redis connection
func (r *RedisClient) Close() error {
	return r.client.Close()
}

// GetClient returns the underlying Redis client
func (r *RedisClient) GetClient() *redis.Client {
	return r.client
}

func sessionKey(broadcastID int64) string {
	return fmt.Sprintf("broadcast:%d", broadcastID)
}

// SetSessionSnapshot stores the snapshot and resets its TTL. Mutating
// operations call this after every change so an active session never expires.
func (r *RedisClient) SetSessionSnapshot(broadcastID int64, snapshot *models.SessionSnapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal session snapshot: %w", err)
	}
	return r.client.Set(r.ctx, sessionKey(broadcastID), data, SessionTTL).Err()
}

// GetSessionSnapshot loads the snapshot for a broadcast. Returns (nil, nil)
// when no session is cached, which callers treat as "not live".
func (r *RedisClient) GetSessionSnapshot(broadcastID int64) (*models.SessionSnapshot, error) {
	data, err := r.client.Get(r.ctx, sessionKey(broadcastID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var snapshot models.SessionSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session snapshot: %w", err)
	}
	return &snapshot, nil
}

// DeleteSessionSnapshot removes the snapshot when a session ends.
func (r *RedisClient) DeleteSessionSnapshot(broadcastID int64) error {
	return r.client.Del(r.ctx, sessionKey(broadcastID)).Err()
}

// PublishLiveEvent fans a session change out to all hub instances.
func (r *RedisClient) PublishLiveEvent(event models.LiveEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal live event: %w", err)
	}
	return r.client.Publish(r.ctx, liveEventsChannel, data).Err()
}

// SubscribeLiveEvents subscribes to the live event channel. The caller owns
// the returned PubSub and must close it.
func (r *RedisClient) SubscribeLiveEvents() *redis.PubSub {
	return r.client.Subscribe(r.ctx, liveEventsChannel)
}
