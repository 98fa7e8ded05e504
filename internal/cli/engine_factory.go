package cli

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"

	"github.com/aretw0/canopy"
	"github.com/aretw0/canopy/pkg/adapters/redis"
	"github.com/aretw0/canopy/pkg/persistence/middleware"
	"github.com/aretw0/canopy/pkg/ports"
	"github.com/aretw0/canopy/pkg/runner"
)

// snapshotBackend bundles the optional store and locker for snapshot exchange.
type snapshotBackend struct {
	store  ports.SnapshotStore
	locker ports.DistributedLocker
	close  func() error
}

func (b *snapshotBackend) enabled() bool { return b.store != nil }

// Close releases the backend connection.
func (b *snapshotBackend) Close() error {
	if b.close == nil {
		return nil
	}
	return b.close()
}

// setupStore connects to redis when an address is configured.
func setupStore(opts RunOptions, logger *slog.Logger) (*snapshotBackend, error) {
	if opts.RedisAddr == "" {
		if opts.Resume || opts.Release {
			return nil, fmt.Errorf("--resume and --release need --redis")
		}
		return &snapshotBackend{}, nil
	}

	var storeOpts []redis.Option
	if opts.RedisPrefix != "" {
		storeOpts = append(storeOpts, redis.WithPrefix(opts.RedisPrefix))
	}
	if opts.RedisTTL > 0 {
		storeOpts = append(storeOpts, redis.WithTTL(opts.RedisTTL))
	}
	mws, err := storeMiddlewares(opts)
	if err != nil {
		return nil, err
	}

	store := redis.New(opts.RedisAddr, "", 0, storeOpts...)
	logger.Info("snapshot store connected", "addr", opts.RedisAddr,
		"encrypted", opts.EncryptionKey != "", "masked", len(opts.Mask))

	return &snapshotBackend{
		store:  middleware.Chain(store, mws...),
		locker: redis.NewLocker(store.Client(), store.Prefix()),
		close:  store.Close,
	}, nil
}

// storeMiddlewares builds the masking and encryption layers. Masking runs
// first so encrypted payloads never carry masked values.
func storeMiddlewares(opts RunOptions) ([]middleware.Middleware, error) {
	var mws []middleware.Middleware
	if len(opts.Mask) > 0 {
		mws = append(mws, middleware.NewPIIMiddleware(opts.Mask))
	}
	if opts.EncryptionKey == "" {
		if len(opts.FallbackKeys) > 0 {
			return nil, fmt.Errorf("--fallback-key needs --encryption-key")
		}
		return mws, nil
	}

	active, err := decodeKey32(opts.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("invalid --encryption-key: %w", err)
	}
	cfg := middleware.EncryptionConfig{ActiveKey: active}
	for _, k := range opts.FallbackKeys {
		fallback, err := decodeKey32(k)
		if err != nil {
			return nil, fmt.Errorf("invalid --fallback-key: %w", err)
		}
		cfg.FallbackKeys = append(cfg.FallbackKeys, fallback)
	}
	return append(mws, middleware.NewEncryptionMiddleware(cfg)), nil
}

func decodeKey32(s string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, err
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("key must decode to 32 bytes, got %d", len(key))
	}
	return key, nil
}

// createEngine initializes an engine with the builtin actions and the CLI conventions.
func createEngine(opts RunOptions, logger *slog.Logger, backend *snapshotBackend, extra ...canopy.Option) (*canopy.Engine, error) {
	runnerOpts := []runner.Option{}
	if opts.Interval > 0 {
		runnerOpts = append(runnerOpts, runner.WithInterval(opts.Interval))
	}
	if opts.Passes > 0 {
		runnerOpts = append(runnerOpts, runner.WithMaxPasses(opts.Passes))
	}
	if backend.enabled() {
		runnerOpts = append(runnerOpts,
			runner.WithStore(backend.store),
			runner.WithLocker(backend.locker, runner.DefaultLockTTL),
		)
	}

	engineOpts := []canopy.Option{
		canopy.WithRegistry(Builtins(opts.output())),
		canopy.WithRunnerOptions(runnerOpts...),
	}
	if opts.Debug {
		engineOpts = append(engineOpts, canopy.WithLifecycleHooks(createDebugHooks(logger)))
	}
	engineOpts = append(engineOpts, extra...)

	engine, err := canopy.New(opts.Path, engineOpts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing canopy: %w", err)
	}
	return engine, nil
}

// populate resumes stored entities and spawns the requested number of new ones.
func populate(ctx context.Context, engine *canopy.Engine, opts RunOptions, backend *snapshotBackend) error {
	if opts.Resume && backend.enabled() {
		n, err := engine.Runner().ImportAll(ctx)
		if err != nil {
			return fmt.Errorf("failed to resume entities: %w", err)
		}
		printSystemMessage(opts.output(), "Resumed %d entities.", n)
	}

	data, err := opts.initialData()
	if err != nil {
		return err
	}
	for i := 1; i <= opts.Entities; i++ {
		if _, err := engine.Spawn(fmt.Sprintf("entity-%d", i), data); err != nil {
			return err
		}
	}
	return nil
}

// release hands every entity over to the store.
func release(engine *canopy.Engine, opts RunOptions, backend *snapshotBackend, logger *slog.Logger) error {
	if !opts.Release || !backend.enabled() {
		return nil
	}
	ctx := context.Background()
	for _, info := range engine.Entities() {
		if err := engine.Runner().Release(ctx, info.ID); err != nil {
			return fmt.Errorf("failed to release %s: %w", info.ID, err)
		}
		logger.Info("entity released", "entity", info.ID, "seq", info.Seq)
	}
	return nil
}
