/*
Package runner drives many entities through one behavior tree.

Each entity owns a blob store and a tick Context. A pass binds the entity's
store to the tree, ticks it once and unbinds it, for every entity in the
order they were added. Run repeats passes on a fixed period until its
context is cancelled.

Entities backed by fixed stores can be exported to and imported from a
ports.SnapshotStore, which lets another process resume them exactly where
they stopped.

# Usage

	r := runner.New(tree,
		runner.WithInterval(100*time.Millisecond),
		runner.WithStore(store),
	)
	r.Add("orc-1", data)

	if err := r.Run(ctx); err != nil {
		log.Fatal(err)
	}
*/
package runner
