package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lepestok-ai/server/internal/agent/model"
	errx "github.com/lepestok-ai/server/internal/core/error"
	logx "github.com/lepestok-ai/server/pkg/logger"
)

// MemoryStore keeps sessions in a keyed map guarded by a RWMutex. A
// background sweep removes expired entries; reads of an expired-but-unswept
// session still behave as not found.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*model.Session
	ttl      time.Duration

	now      func() time.Time // overridable in tests
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewMemoryStore builds a memory store and starts its sweep goroutine.
func NewMemoryStore(ttl, sweepInterval time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if sweepInterval <= 0 {
		sweepInterval = DefaultSweepInterval
	}
	s := &MemoryStore{
		sessions: make(map[string]*model.Session),
		ttl:      ttl,
		now:      time.Now,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go s.sweepLoop(sweepInterval)
	return s
}

func (s *MemoryStore) newSession(id string) *model.Session {
	now := s.now()
	return &model.Session{
		ID:        id,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
}

// GetOrCreate implements Store.
func (s *MemoryStore) GetOrCreate(ctx context.Context, id string) (*model.Session, error) {
	if id == "" {
		id = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if stored, ok := s.sessions[id]; ok && !stored.Expired(s.now()) {
		return cloneSession(stored), nil
	}

	// Unknown or expired id: preserve the caller-asserted identity.
	created := s.newSession(id)
	s.sessions[id] = created
	logx.Debug().Str("session_id", id).Msg("session created")
	return cloneSession(created), nil
}

// Get implements Store.
func (s *MemoryStore) Get(ctx context.Context, id string) (*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.sessions[id]
	if !ok {
		return nil, errx.ErrNotFound
	}
	if stored.Expired(s.now()) {
		// Lazy removal ahead of the sweep.
		delete(s.sessions, id)
		return nil, errx.ErrNotFound
	}
	return cloneSession(stored), nil
}

// Update implements Store.
func (s *MemoryStore) Update(ctx context.Context, id string, mutate func(*model.Session)) (*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.sessions[id]
	if !ok || stored.Expired(s.now()) {
		if ok {
			delete(s.sessions, id)
		}
		return nil, errx.ErrNotFound
	}

	mutate(stored)
	now := s.now()
	stored.UpdatedAt = now
	stored.ExpiresAt = now.Add(s.ttl)
	return cloneSession(stored), nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, id)
	return nil
}

// Stats implements Store.
func (s *MemoryStore) Stats(ctx context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var stats Stats
	now := s.now()
	for _, stored := range s.sessions {
		if stored.Expired(now) {
			stats.Expired++
		} else {
			stats.Live++
		}
	}
	return stats, nil
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	s.stopOnce.Do(func() {
		close(s.stop)
		<-s.done
	})
	return nil
}

func (s *MemoryStore) sweepLoop(interval time.Duration) {
	defer close(s.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

// sweep collects candidate ids under a read lock, then removes each stale
// entry under a short write lock so readers are never blocked for more than
// one test-and-delete.
func (s *MemoryStore) sweep() {
	s.mu.RLock()
	now := s.now()
	candidates := make([]string, 0)
	for id, stored := range s.sessions {
		if stored.Expired(now) {
			candidates = append(candidates, id)
		}
	}
	s.mu.RUnlock()

	removed := 0
	for _, id := range candidates {
		s.mu.Lock()
		if stored, ok := s.sessions[id]; ok && stored.Expired(s.now()) {
			delete(s.sessions, id)
			removed++
		}
		s.mu.Unlock()
	}
	if removed > 0 {
		logx.Debug().Int("removed", removed).Msg("session sweep completed")
	}
}

var _ Store = (*MemoryStore)(nil)
