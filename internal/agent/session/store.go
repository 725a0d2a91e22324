package session

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	errx "github.com/lepestok-ai/server/internal/core/error"
	"github.com/lepestok-ai/server/internal/agent/model"
)

// Store defines session storage operations.
//
// Consistency model: a session is the unit of storage and concurrent updates
// resolve as last-write-wins. Callers must not expect transactional isolation
// across turns (see Update).
type Store interface {
	// GetOrCreate returns the live session for id, or creates one. An empty
	// id generates a fresh random id. A supplied id that is unknown or
	// expired creates a new session keyed by that exact id, so a caller that
	// lost its session can resume deterministically.
	GetOrCreate(ctx context.Context, id string) (*model.Session, error)

	// Get returns the session or errx.ErrNotFound. An expired session is
	// not found regardless of whether the sweep has removed it yet.
	Get(ctx context.Context, id string) (*model.Session, error)

	// Update applies mutate to the stored session, bumps UpdatedAt and
	// ExpiresAt, persists the result and returns it.
	// Returns errx.ErrNotFound for unknown or expired sessions.
	Update(ctx context.Context, id string, mutate func(*model.Session)) (*model.Session, error)

	// Delete removes the session. Deleting an absent session is not an error.
	Delete(ctx context.Context, id string) error

	// Stats reports store occupancy.
	Stats(ctx context.Context) (Stats, error)

	// Close releases resources and stops any background sweep.
	Close() error
}

// Stats is a snapshot of store occupancy. Expired counts entries past their
// TTL that the sweep has not removed yet; stores with native expiry report 0.
type Stats struct {
	Live    int `json:"live"`
	Expired int `json:"expired"`
}

// StoreType selects the storage driver.
type StoreType string

const (
	StoreTypeMemory StoreType = "memory"
	StoreTypeRedis  StoreType = "redis"
)

// StoreOption is a functional option for configuring a session store.
type StoreOption func(*storeConfig)

type storeConfig struct {
	redisClient   *redis.Client
	ttl           time.Duration
	sweepInterval time.Duration
}

// WithRedisClient sets the Redis client for the Redis driver.
func WithRedisClient(client *redis.Client) StoreOption {
	return func(c *storeConfig) {
		c.redisClient = client
	}
}

// WithTTL overrides the default 24h session TTL.
func WithTTL(ttl time.Duration) StoreOption {
	return func(c *storeConfig) {
		c.ttl = ttl
	}
}

// WithSweepInterval overrides how often the memory driver purges expired
// sessions.
func WithSweepInterval(d time.Duration) StoreOption {
	return func(c *storeConfig) {
		c.sweepInterval = d
	}
}

const (
	// DefaultTTL keeps a session alive for a day after its last touch.
	DefaultTTL = 24 * time.Hour
	// DefaultSweepInterval is how often the memory driver scans for
	// expired entries.
	DefaultSweepInterval = time.Minute
)

// NewStore creates a session store of the given driver type.
// The Redis driver requires WithRedisClient.
func NewStore(storeType StoreType, opts ...StoreOption) (Store, error) {
	config := &storeConfig{
		ttl:           DefaultTTL,
		sweepInterval: DefaultSweepInterval,
	}
	for _, opt := range opts {
		opt(config)
	}

	switch storeType {
	case StoreTypeMemory:
		return NewMemoryStore(config.ttl, config.sweepInterval), nil
	case StoreTypeRedis:
		if config.redisClient == nil {
			return nil, errx.ErrInvalidConfig
		}
		return NewRedisStore(config.redisClient, config.ttl), nil
	default:
		return nil, errx.ErrInvalidConfig
	}
}

// cloneSession returns a deep-enough copy so callers never share slices with
// the stored value.
func cloneSession(s *model.Session) *model.Session {
	out := *s
	out.Turns = append([]model.Turn(nil), s.Turns...)
	out.Cart.Items = append([]model.CartItem(nil), s.Cart.Items...)
	if s.City != nil {
		city := *s.City
		out.City = &city
	}
	if s.Coordinate != nil {
		coord := *s.Coordinate
		out.Coordinate = &coord
	}
	if s.Budget != nil {
		budget := *s.Budget
		out.Budget = &budget
	}
	if s.Customer != nil {
		customer := *s.Customer
		out.Customer = &customer
	}
	return &out
}
