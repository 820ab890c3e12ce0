package draft

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nurpe/snowops-agreements/internal/model"
)

type memoryEntry struct {
	draft     model.Draft
	expiresAt time.Time
}

// MemoryStore is a process-local Store used when no redis is configured.
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[uuid.UUID]memoryEntry
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{ttl: ttl, now: time.Now, entries: map[uuid.UUID]memoryEntry{}}
}

func (s *MemoryStore) Save(_ context.Context, d model.Draft) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[d.OwnerID] = memoryEntry{draft: d, expiresAt: s.now().Add(s.ttl)}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, ownerID uuid.UUID) (*model.Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[ownerID]
	if !ok {
		return nil, ErrNotFound
	}
	if !s.now().Before(entry.expiresAt) {
		delete(s.entries, ownerID)
		return nil, ErrNotFound
	}
	d := entry.draft
	return &d, nil
}

func (s *MemoryStore) Delete(_ context.Context, ownerID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, ownerID)
	return nil
}

func (s *MemoryStore) ActiveTempKeys(_ context.Context) (map[string]struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	keys := map[string]struct{}{}
	for owner, entry := range s.entries {
		if !now.Before(entry.expiresAt) {
			delete(s.entries, owner)
			continue
		}
		if a := entry.draft.Attachment; a != nil && a.Key != "" {
			keys[a.Key] = struct{}{}
		}
	}
	return keys, nil
}
