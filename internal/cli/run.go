package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/aretw0/canopy"
)

// RunOptions contains all the configuration for the run and serve commands.
type RunOptions struct {
	Path     string
	Entities int
	Passes   int
	Interval time.Duration
	Headless bool
	Debug    bool
	LogLevel string
	// Data is a JSON object copied into every new entity's blackboard.
	Data string
	// RedisAddr enables snapshot exchange through redis.
	RedisAddr   string
	RedisPrefix string
	RedisTTL    time.Duration
	// Resume imports every stored entity before spawning new ones.
	Resume bool
	// Release exports every entity to the store on exit.
	Release bool
	// EncryptionKey is a base64 AES-256 key sealing stored snapshots.
	EncryptionKey string
	// FallbackKeys decrypt snapshots sealed with rotated keys.
	FallbackKeys []string
	// Mask lists regular expressions of data keys hidden from the store.
	Mask []string

	Output io.Writer
}

func (o *RunOptions) output() io.Writer {
	if o.Output == nil {
		return os.Stdout
	}
	return o.Output
}

func (o *RunOptions) initialData() (map[string]any, error) {
	if o.Data == "" {
		return nil, nil
	}
	var data map[string]any
	if err := json.Unmarshal([]byte(o.Data), &data); err != nil {
		return nil, fmt.Errorf("error parsing --data JSON: %w", err)
	}
	return data, nil
}

// Execute handles the 'run' command: it ticks the entities of the definition
// until the pass limit is reached or the process is interrupted.
func Execute(opts RunOptions) error {
	logger := createLogger(opts.LogLevel, opts.Debug)
	out := opts.output()

	store, err := setupStore(opts, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	engine, err := createEngine(opts, logger, store, canopy.WithLogger(logger))
	if err != nil {
		return err
	}

	sigCtx := NewSignalContext(context.Background())
	defer sigCtx.Cancel()

	if err := populate(sigCtx, engine, opts, store); err != nil {
		return err
	}

	tracer := canopy.NewTracer(out)
	tracer.Headless = opts.Headless
	tracer.Attach(engine)

	if !opts.Headless {
		printSystemMessage(out, "Running %q with %d entities.", engine.Name, len(engine.Entities()))
	}
	if err := engine.Run(sigCtx); err != nil {
		return err
	}

	if err := release(engine, opts, store, logger); err != nil {
		return err
	}
	if !opts.Headless {
		if sig := sigCtx.Signal(); sig != nil {
			printSystemMessage(out, "Interrupted by %v after %d passes.", sig, engine.Runner().Passes())
		} else {
			printSystemMessage(out, "Finished after %d passes.", engine.Runner().Passes())
		}
	}
	return nil
}
