package authstate

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Snapshot is the durable subset of the store's state. Transient loading and
// error fields are deliberately excluded; a restored snapshot is not trusted
// until InitializeAuth re-validates it.
type Snapshot struct {
	Principal   *Principal `json:"principal,omitempty"`
	Permissions []string   `json:"permissions"`
	Initialized bool       `json:"initialized"`
}

// SnapshotStorage persists the snapshot across process restarts.
type SnapshotStorage interface {
	Load(ctx context.Context) (*Snapshot, error)
	Save(ctx context.Context, snap Snapshot) error
	Clear(ctx context.Context) error
}

// RedisSnapshotStorage keeps the snapshot in Redis under a per-client key.
type RedisSnapshotStorage struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedisSnapshotStorage constructs a RedisSnapshotStorage.
func NewRedisSnapshotStorage(client *redis.Client, key string, ttl time.Duration) *RedisSnapshotStorage {
	return &RedisSnapshotStorage{client: client, key: "authstate:" + key, ttl: ttl}
}

// Load reads the stored snapshot, returning nil when none exists.
func (r *RedisSnapshotStorage) Load(ctx context.Context) (*Snapshot, error) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Save writes the snapshot.
func (r *RedisSnapshotStorage) Save(ctx context.Context, snap Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.key, data, r.ttl).Err()
}

// Clear removes the snapshot.
func (r *RedisSnapshotStorage) Clear(ctx context.Context) error {
	return r.client.Del(ctx, r.key).Err()
}

var _ SnapshotStorage = (*RedisSnapshotStorage)(nil)

func (s *Store) loadSnapshot(ctx context.Context) *Snapshot {
	if s.storage == nil {
		return nil
	}
	snap, err := s.storage.Load(ctx)
	if err != nil {
		s.logger.Warn("load auth snapshot", slog.Any("error", err))
		return nil
	}
	return snap
}

// persistLocked saves the durable subset of state. Callers hold s.mu.
func (s *Store) persistLocked(ctx context.Context) {
	if s.storage == nil {
		return
	}
	snap := Snapshot{
		Principal:   s.principal,
		Permissions: append([]string(nil), s.permissions...),
		Initialized: s.phase == Ready,
	}
	if err := s.storage.Save(ctx, snap); err != nil {
		s.logger.Warn("save auth snapshot", slog.Any("error", err))
	}
}
