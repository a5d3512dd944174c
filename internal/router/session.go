package router

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/povarna/corporate-assistant/internal/models"
)

// SessionStore keeps the currently selected agent per user. Implementations
// must isolate keys: concurrent updates for different users never interfere.
type SessionStore interface {
	Get(ctx context.Context, userID string) (models.Domain, bool, error)
	Set(ctx context.Context, userID string, domain models.Domain) error
	Clear(ctx context.Context, userID string) error
}

// MemorySessionStore is the process-local store. Sessions live for the
// process lifetime, which is acceptable for this scope.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]models.Domain
}

// NewMemorySessionStore creates an empty store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]models.Domain)}
}

func (s *MemorySessionStore) Get(ctx context.Context, userID string) (models.Domain, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	domain, ok := s.sessions[userID]
	return domain, ok, nil
}

func (s *MemorySessionStore) Set(ctx context.Context, userID string, domain models.Domain) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[userID] = domain
	return nil
}

func (s *MemorySessionStore) Clear(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
	return nil
}

// RedisSessionStore shares sessions across bot replicas.
type RedisSessionStore struct {
	client *redis.Client
}

// NewRedisSessionStore builds a store over an existing Redis client.
func NewRedisSessionStore(client *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{client: client}
}

func sessionKey(userID string) string {
	return "session:agent:" + userID
}

func (s *RedisSessionStore) Get(ctx context.Context, userID string) (models.Domain, bool, error) {
	val, err := s.client.Get(ctx, sessionKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("session get failed: %w", err)
	}

	domain, ok := models.ParseDomain(val)
	if !ok {
		// Stale value from an older deployment; treat as no selection.
		return "", false, nil
	}
	return domain, true, nil
}

func (s *RedisSessionStore) Set(ctx context.Context, userID string, domain models.Domain) error {
	if err := s.client.Set(ctx, sessionKey(userID), domain.String(), 0).Err(); err != nil {
		return fmt.Errorf("session set failed: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) Clear(ctx context.Context, userID string) error {
	if err := s.client.Del(ctx, sessionKey(userID)).Err(); err != nil {
		return fmt.Errorf("session clear failed: %w", err)
	}
	return nil
}
