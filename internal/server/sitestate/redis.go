package sitestate

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/dmitrijs2005/sic/internal/server/models"
	"github.com/redis/go-redis/v9"
)

const (
	// DefaultKey is the Redis hash holding the site state.
	DefaultKey = "sic:site_state"

	fieldLocked   = "locked"
	fieldShutdown = "shutdown_requested"
	fieldBy       = "changed_by"
	fieldAt       = "changed_at"
)

// hashCommands is the subset of *redis.Client used by RedisStore.
type hashCommands interface {
	HSet(ctx context.Context, key string, values ...any) *redis.IntCmd
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
}

// RedisStore shares the site state between server instances.
type RedisStore struct {
	rdb hashCommands
	key string
}

func NewRedisStore(rdb hashCommands, key string) *RedisStore {
	if key == "" {
		key = DefaultKey
	}
	return &RedisStore{rdb: rdb, key: key}
}

// NewRedisClient connects to addr and checks the connection with PING.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return client, nil
}

func (s *RedisStore) Get(ctx context.Context) (models.SiteState, error) {
	m, err := s.rdb.HGetAll(ctx, s.key).Result()
	if err != nil {
		return models.SiteState{}, fmt.Errorf("redis hgetall: %w", err)
	}

	var st models.SiteState
	st.Locked, _ = strconv.ParseBool(m[fieldLocked])
	st.ShutdownRequested, _ = strconv.ParseBool(m[fieldShutdown])
	st.ChangedBy = m[fieldBy]
	if v := m[fieldAt]; v != "" {
		at, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return models.SiteState{}, fmt.Errorf("redis %s: %w", fieldAt, err)
		}
		st.ChangedAt = at
	}
	return st, nil
}

func (s *RedisStore) SetLocked(ctx context.Context, locked bool, by string, at time.Time) error {
	return s.hset(ctx, fieldLocked, strconv.FormatBool(locked), fieldBy, by, fieldAt, at.UTC().Format(time.RFC3339Nano))
}

func (s *RedisStore) RequestShutdown(ctx context.Context, by string, at time.Time) error {
	return s.hset(ctx, fieldShutdown, "true", fieldBy, by, fieldAt, at.UTC().Format(time.RFC3339Nano))
}

func (s *RedisStore) hset(ctx context.Context, values ...any) error {
	if err := s.rdb.HSet(ctx, s.key, values...).Err(); err != nil {
		return fmt.Errorf("redis hset: %w", err)
	}
	return nil
}
