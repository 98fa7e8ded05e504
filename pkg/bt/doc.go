/*
Package bt is a tick-driven behavior tree whose nodes hold no per-entity state.

A Tree is built once and shared by any number of entities. Everything a node
remembers between ticks lives in a blob.TreeBlob owned by the entity, so the
same tree can drive thousands of agents by binding each agent's store before
ticking it.

# Tick protocol

Every node follows the same re-entrant state machine on Tick:

 1. If the node is not running, OnEnter is called and the node becomes running.
 2. Update computes the status.
 3. LastStatus and LastSeq are recorded in the node's blob.
 4. On SUCCESS or FAILURE, OnTerminate is called and the node stops running.

# Building

Trees are assembled from constructor functions and validated by NewTree:

	tree, err := bt.NewTree("guard",
		bt.Selector(
			bt.If(bt.Check("enemy near", enemyNear), bt.Do("attack", attack)),
			bt.Repeat(-1, bt.Do("patrol", patrol)),
		),
	)

	store := tree.NewFixedBlob()
	tree.BindTreeBlob(store)
	status := tree.Tick(&bt.Context[*Agent]{Seq: 1, Data: agent})
	tree.UnbindTreeBlob()

Node ids are assigned in pre-order starting at 1 for the root.
*/
package bt
