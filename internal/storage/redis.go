package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/parley-engine/parley/pkg/state"
)

// SaveStateTTL bounds how long an idle save lives in Redis.
const SaveStateTTL = 24 * time.Hour

// RedisStorage implements the Storage interface using Redis for save
// states and the filesystem for static content.
type RedisStorage struct {
	client  *redis.Client
	logger  *slog.Logger
	dataDir string
}

// Ensure RedisStorage implements Storage interface
var _ Storage = (*RedisStorage)(nil)

// NewRedisStorage creates a new Redis storage instance
func NewRedisStorage(redisURL string, dataDir string, logger *slog.Logger) *RedisStorage {
	rdb := redis.NewClient(&redis.Options{
		Addr: redisURL,
	})

	if dataDir == "" {
		dataDir = "./data"
	}

	return &RedisStorage{
		client:  rdb,
		logger:  logger,
		dataDir: dataDir,
	}
}

func (r *RedisStorage) Ping(ctx context.Context) error {
	cmd := r.client.Ping(ctx)
	if err := cmd.Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *RedisStorage) Close() error {
	if err := r.client.Close(); err != nil {
		r.logger.Error("Failed to close Redis connection", "error", err)
		return err
	}
	r.logger.Info("Redis connection closed")
	return nil
}

// WaitForConnection waits for Redis to become available (used during startup)
func (r *RedisStorage) WaitForConnection(ctx context.Context) error {
	maxRetries := 30
	retryDelay := 2 * time.Second

	for i := 0; i < maxRetries; i++ {
		if err := r.Ping(ctx); err != nil {
			r.logger.Debug("Redis not ready yet", "error", err, "attempt", i+1)

			select {
			case <-ctx.Done():
				return fmt.Errorf("context cancelled while waiting for redis: %w", ctx.Err())
			case <-time.After(retryDelay):
				continue
			}
		}

		r.logger.Info("Redis connection established")
		return nil
	}

	return fmt.Errorf("redis did not become available after %d attempts", maxRetries)
}

// Save state operations (Redis-backed)

func saveStateKey(id uuid.UUID) string {
	return "savestate:" + id.String()
}

func (r *RedisStorage) SaveGameState(ctx context.Context, gs *state.SaveState) error {
	gs.UpdatedAt = time.Now()

	data, err := json.Marshal(gs)
	if err != nil {
		r.logger.Error("Failed to marshal save state", "uuid", gs.ID, "error", err)
		return fmt.Errorf("failed to marshal save state: %w", err)
	}

	cmd := r.client.Set(ctx, saveStateKey(gs.ID), string(data), SaveStateTTL)
	if err := cmd.Err(); err != nil {
		r.logger.Error("Failed to save save state", "uuid", gs.ID, "error", err)
		return fmt.Errorf("failed to save save state: %w", err)
	}

	return nil
}

func (r *RedisStorage) LoadGameState(ctx context.Context, id uuid.UUID) (*state.SaveState, error) {
	cmd := r.client.Get(ctx, saveStateKey(id))
	if err := cmd.Err(); err != nil {
		if err == redis.Nil {
			r.logger.Warn("Save state not found", "uuid", id)
			return nil, nil // Return nil for not found
		}
		r.logger.Error("Failed to load save state", "uuid", id, "error", err)
		return nil, fmt.Errorf("failed to load save state: %w", err)
	}

	data := cmd.Val()
	if data == "" {
		r.logger.Warn("Save state not found", "uuid", id)
		return nil, nil
	}

	var gs state.SaveState
	if err := json.Unmarshal([]byte(data), &gs); err != nil {
		r.logger.Error("Failed to unmarshal save state", "uuid", id, "error", err)
		return nil, fmt.Errorf("failed to unmarshal save state: %w", err)
	}

	return &gs, nil
}

func (r *RedisStorage) DeleteGameState(ctx context.Context, id uuid.UUID) error {
	cmd := r.client.Del(ctx, saveStateKey(id))
	if err := cmd.Err(); err != nil {
		r.logger.Error("Failed to delete save state", "uuid", id, "error", err)
		return fmt.Errorf("failed to delete save state: %w", err)
	}
	return nil
}
