package canopy

import (
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/canopy/internal/presentation/graph"
)

// Tracer writes the state of every entity after each pass.
// This allows for easy testing and integration with different frontends.
type Tracer struct {
	Output io.Writer
	// Headless prints one status line per entity instead of its tree.
	Headless bool
}

// NewTracer creates a Tracer writing to w.
func NewTracer(w io.Writer) *Tracer {
	return &Tracer{Output: w}
}

// Attach prints engine state after every pass of engine.
func (t *Tracer) Attach(engine *Engine) {
	engine.OnPass(func(pass uint64) {
		_ = t.Print(engine, pass)
	})
}

// Print writes the current state of every entity of engine.
func (t *Tracer) Print(engine *Engine, pass uint64) error {
	if t.Output == nil {
		return fmt.Errorf("output writer must be set (use os.Stdout)")
	}
	if !t.Headless {
		fmt.Fprintf(t.Output, "--- pass %d ---\n", pass)
	}
	for _, info := range engine.Entities() {
		if t.Headless {
			fmt.Fprintf(t.Output, "%d %s %s\n", pass, info.ID, info.Status)
			continue
		}
		states, err := engine.Inspect(info.ID)
		if err != nil {
			return err
		}
		fmt.Fprintf(t.Output, "[%s] seq=%d %s\n", info.ID, info.Seq, info.Status)
		fmt.Fprintln(t.Output, strings.Join(graph.Render(states, info.Seq), "\n"))
	}
	return nil
}
