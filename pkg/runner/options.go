package runner

import (
	"log/slog"
	"time"

	"github.com/aretw0/canopy/pkg/domain"
	"github.com/aretw0/canopy/pkg/observability"
	"github.com/aretw0/canopy/pkg/ports"
)

// DefaultInterval is the tick period of Run when none is configured.
const DefaultInterval = 100 * time.Millisecond

// DefaultLockTTL bounds how long an export or import may hold an entity lock.
const DefaultLockTTL = 10 * time.Second

type config struct {
	interval  time.Duration
	maxPasses int
	dynamic   bool
	logger    *slog.Logger
	store     ports.SnapshotStore
	locker    ports.DistributedLocker
	lockTTL   time.Duration
	metrics   *observability.Metrics
	afterTick func(id string, seq uint64, s domain.Status)
	afterPass func(pass uint64)
	clock     func() time.Time
	codec     any
}

// Option defines a functional option for configuring the Runner.
type Option func(*config)

// WithInterval sets the period between passes of Run. Values that are not
// positive fall back to DefaultInterval.
func WithInterval(d time.Duration) Option {
	return func(c *config) {
		c.interval = d
	}
}

// WithMaxPasses makes Run return after n passes. Zero means run until cancelled.
func WithMaxPasses(n int) Option {
	return func(c *config) {
		c.maxPasses = n
	}
}

// WithDynamicBlobs gives new entities growable stores instead of fixed ones.
// Dynamic entities cannot be exported.
func WithDynamicBlobs() Option {
	return func(c *config) {
		c.dynamic = true
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithStore configures the SnapshotStore used by Export and Import.
func WithStore(store ports.SnapshotStore) Option {
	return func(c *config) {
		c.store = store
	}
}

// WithLocker serializes Export and Import of an entity across instances.
func WithLocker(locker ports.DistributedLocker, ttl time.Duration) Option {
	return func(c *config) {
		c.locker = locker
		c.lockTTL = ttl
	}
}

// WithMetrics records tick outcomes and pass durations.
// Node level counters are installed on the tree itself through Metrics.Hooks.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *config) {
		c.metrics = m
	}
}

// WithAfterTick registers a callback invoked after each entity tick.
// It runs with the runner locked and must not call back into it.
func WithAfterTick(fn func(id string, seq uint64, s domain.Status)) Option {
	return func(c *config) {
		c.afterTick = fn
	}
}

// WithAfterPass registers a callback invoked after each pass, once the
// runner is unlocked again.
func WithAfterPass(fn func(pass uint64)) Option {
	return func(c *config) {
		c.afterPass = fn
	}
}

// WithClock replaces time.Now for Delta and snapshot timestamps.
func WithClock(clock func() time.Time) Option {
	return func(c *config) {
		c.clock = clock
	}
}

// WithCodec sets how entity data is carried in snapshots.
// The codec must be a Codec of the runner's data type.
func WithCodec[T any](codec Codec[T]) Option {
	return func(c *config) {
		c.codec = codec
	}
}
