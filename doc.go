/*
Package canopy is a behavior tree engine for driving many entities through
one shared tree.

A tree is built once, validated and then treated as immutable. All mutable
per-entity state (running flags, counters, timers, priority caches) lives in a
blob store owned by the entity, so ticking a thousand NPCs costs one tree and
a thousand small stores. Stores come in two flavors: a growable Dynamic store
and a Fixed store preallocated from the tree's own size queries, whose packed
bytes can be exported and resumed by another process.

# Packages

  - pkg/bt: nodes, composites, decorators and the Tree itself.
  - pkg/blob: Dynamic and Fixed per-entity stores.
  - pkg/runner: ticks registered entities on an interval and exchanges
    snapshots through a ports.SnapshotStore (memory or redis).
  - pkg/dsl: YAML/JSON tree definitions with expr conditions.
  - pkg/adapters/http: read-only inspection server with /metrics.

# Usage

The Engine in this package wires those together for blackboard entities:

	reg := canopy.NewRegistry()
	reg.RegisterFunc("hurt", func(ctx *bt.Context[canopy.Board]) domain.Status {
		ctx.Data.Incr("hp", -1)
		return domain.Success
	})

	eng, err := canopy.New("sentry.yaml", canopy.WithRegistry(reg))
	if err != nil {
		log.Fatal(err)
	}
	eng.Spawn("guard-1", map[string]any{"hp": 10})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	eng.Run(ctx)
*/
package canopy
