package conversation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kuznetsov-tulips/tulip-bot/internal/redis"
)

// Store keeps the current state per user. Get returns nil when the user
// has no conversation in progress.
type Store interface {
	Get(ctx context.Context, userID int64) (State, error)
	Put(ctx context.Context, userID int64, s State) error
	Delete(ctx context.Context, userID int64) error
}

type MemoryStore struct {
	mu     sync.RWMutex
	states map[int64]State
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[int64]State)}
}

func (m *MemoryStore) Get(_ context.Context, userID int64) (State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.states[userID], nil
}

func (m *MemoryStore) Put(_ context.Context, userID int64, s State) error {
	if s == nil {
		return errors.New("nil conversation state")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[userID] = s
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, userID)
	return nil
}

type redisKV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	ConversationKey(userID int64) string
}

// RedisStore survives restarts; abandoned conversations expire after ttl.
type RedisStore struct {
	client redisKV
	ttl    time.Duration
}

func NewRedisStore(client redisKV, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (r *RedisStore) Get(ctx context.Context, userID int64) (State, error) {
	raw, err := r.client.Get(ctx, r.client.ConversationKey(userID))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("loading conversation: %w", err)
	}
	return Decode([]byte(raw))
}

func (r *RedisStore) Put(ctx context.Context, userID int64, s State) error {
	if s == nil {
		return errors.New("nil conversation state")
	}
	raw, err := Encode(s)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.client.ConversationKey(userID), string(raw), r.ttl); err != nil {
		return fmt.Errorf("saving conversation: %w", err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, userID int64) error {
	if err := r.client.Del(ctx, r.client.ConversationKey(userID)); err != nil {
		return fmt.Errorf("clearing conversation: %w", err)
	}
	return nil
}
