// internal/dialogue/session/store.go
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"riskbot-engine/internal/common/database"
	"riskbot-engine/internal/models"
)

// SnapshotStore persists the slot values of a session so they can be carried
// over into the replacement session after idle eviction. Pending-intent state
// is deliberately not persisted; a revived session never resumes an ask.
type SnapshotStore interface {
	Save(ctx context.Context, sessionID string, snapshot map[models.SlotName]string) error
	Load(ctx context.Context, sessionID string) (map[models.SlotName]string, bool, error)
	Delete(ctx context.Context, sessionID string) error
}

const snapshotKeyPrefix = "session:slots:"

// RedisSnapshotStore keeps slot snapshots in Redis with a TTL, so snapshots
// outlive a process restart but still age out on their own.
type RedisSnapshotStore struct {
	client *database.RedisClient
	ttl    time.Duration
}

func NewRedisSnapshotStore(client *database.RedisClient, ttl time.Duration) *RedisSnapshotStore {
	return &RedisSnapshotStore{client: client, ttl: ttl}
}

func (s *RedisSnapshotStore) Save(ctx context.Context, sessionID string, snapshot map[models.SlotName]string) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal slot snapshot: %w", err)
	}
	return s.client.Set(ctx, snapshotKeyPrefix+sessionID, payload, s.ttl)
}

func (s *RedisSnapshotStore) Load(ctx context.Context, sessionID string) (map[models.SlotName]string, bool, error) {
	raw, err := s.client.Get(ctx, snapshotKeyPrefix+sessionID)
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load slot snapshot: %w", err)
	}
	var snapshot map[models.SlotName]string
	if err := json.Unmarshal([]byte(raw), &snapshot); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal slot snapshot: %w", err)
	}
	return snapshot, true, nil
}

func (s *RedisSnapshotStore) Delete(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, snapshotKeyPrefix+sessionID)
}

type memoryEntry struct {
	snapshot  map[models.SlotName]string
	expiresAt time.Time
}

// MemorySnapshotStore is the fallback when no Redis is configured.
type MemorySnapshotStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

func NewMemorySnapshotStore(ttl time.Duration) *MemorySnapshotStore {
	return &MemorySnapshotStore{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (s *MemorySnapshotStore) Save(_ context.Context, sessionID string, snapshot map[models.SlotName]string) error {
	copied := make(map[models.SlotName]string, len(snapshot))
	for k, v := range snapshot {
		copied[k] = v
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	// opportunistic prune: sessions that never come back would otherwise
	// leave their snapshots behind forever
	for id, entry := range s.entries {
		if now.After(entry.expiresAt) {
			delete(s.entries, id)
		}
	}
	s.entries[sessionID] = memoryEntry{snapshot: copied, expiresAt: now.Add(s.ttl)}
	return nil
}

func (s *MemorySnapshotStore) Load(_ context.Context, sessionID string) (map[models.SlotName]string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[sessionID]
	if !ok {
		return nil, false, nil
	}
	if s.now().After(entry.expiresAt) {
		delete(s.entries, sessionID)
		return nil, false, nil
	}
	copied := make(map[models.SlotName]string, len(entry.snapshot))
	for k, v := range entry.snapshot {
		copied[k] = v
	}
	return copied, true, nil
}

func (s *MemorySnapshotStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, sessionID)
	return nil
}
