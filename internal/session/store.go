// Package session keeps per-sender conversation state behind a TTL store and
// serializes each sender's read-modify-write with a lock.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	goredis "github.com/redis/go-redis/v9"

	"github.com/huguadventures/travel-assistant-go/internal/model"
	"github.com/huguadventures/travel-assistant-go/internal/redis"
)

// Store persists sessions keyed by sender identity. Get returns nil, nil
// when no session exists. Put refreshes the TTL.
type Store interface {
	Get(ctx context.Context, sender string) (*model.ConversationSession, error)
	Put(ctx context.Context, sender string, s *model.ConversationSession) error
	Delete(ctx context.Context, sender string) error
}

// MemoryStore is a single-instance store. Sessions idle longer than the TTL
// are evicted by the cache janitor.
type MemoryStore struct {
	cache *cache.Cache
	ttl   time.Duration
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		cache: cache.New(ttl, ttl/4+time.Minute),
		ttl:   ttl,
	}
}

func (m *MemoryStore) Get(_ context.Context, sender string) (*model.ConversationSession, error) {
	v, ok := m.cache.Get(sender)
	if !ok {
		return nil, nil
	}
	s := v.(model.ConversationSession)
	return &s, nil
}

// Put stores a copy, so later mutation of s needs another Put to persist.
func (m *MemoryStore) Put(_ context.Context, sender string, s *model.ConversationSession) error {
	s.UpdatedAt = time.Now()
	m.cache.Set(sender, *s, m.ttl)
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, sender string) error {
	m.cache.Delete(sender)
	return nil
}

// RedisStore keeps sessions as JSON so several instances can share them.
type RedisStore struct {
	client goredis.Cmdable
	ttl    time.Duration
}

func NewRedisStore(client goredis.Cmdable, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (r *RedisStore) Get(ctx context.Context, sender string) (*model.ConversationSession, error) {
	raw, err := r.client.Get(ctx, redis.SessionKey(sender)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	var s model.ConversationSession
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &s, nil
}

func (r *RedisStore) Put(ctx context.Context, sender string, s *model.ConversationSession) error {
	s.UpdatedAt = time.Now()
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := r.client.Set(ctx, redis.SessionKey(sender), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("put session: %w", err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, sender string) error {
	if err := r.client.Del(ctx, redis.SessionKey(sender)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
