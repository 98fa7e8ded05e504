package bt

import (
	"testing"

	"github.com/aretw0/canopy/pkg/blob"
	"github.com/aretw0/canopy/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTick_EnterUpdateTerminate(t *testing.T) {
	a := newStub("A", domain.Running)
	var events []string
	h := newHarness(t, act(a), WithLifecycleHooks(domain.LifecycleHooks{
		OnNodeEnter: func(e domain.NodeEvent) {
			events = append(events, "enter:"+e.Name)
		},
		OnNodeTerminate: func(e domain.NodeEvent) {
			events = append(events, "terminate:"+e.Name+":"+e.Status.String())
		},
	}))
	node := h.tree.Root().Children()[0]

	_, ticked := node.State(h.tree.TreeBlob())
	assert.False(t, ticked, "blobs are created lazily")
	assert.Equal(t, domain.Undefined, h.tree.LastStatus())

	// 1. Round in progress: one enter, no terminate.
	assert.Equal(t, domain.Running, h.tick())
	assert.Equal(t, domain.Running, h.tick())
	assert.Equal(t, 1, a.enters)
	assert.Equal(t, 2, a.updates)
	assert.Zero(t, a.terminates)

	st, ok := node.State(h.tree.TreeBlob())
	require.True(t, ok)
	assert.True(t, st.Running)
	assert.Equal(t, domain.Running, st.LastStatus)
	assert.Equal(t, uint64(2), st.LastSeq)

	// 2. Terminal tick closes the round.
	a.status = domain.Success
	assert.Equal(t, domain.Success, h.tick())
	assert.Equal(t, 1, a.enters)
	assert.Equal(t, 1, a.terminates)
	assert.Equal(t, domain.Success, a.terminated)

	st, _ = node.State(h.tree.TreeBlob())
	assert.False(t, st.Running)
	assert.Equal(t, domain.Success, st.LastStatus)
	assert.Equal(t, uint64(3), st.LastSeq)

	// 3. The next tick starts a new round.
	a.status = domain.Failure
	assert.Equal(t, domain.Failure, h.tick())
	assert.Equal(t, 2, a.enters)
	assert.Equal(t, 2, a.terminates)
	assert.Equal(t, domain.Failure, h.tree.LastStatus())

	assert.Equal(t, []string{
		"enter:test", "enter:A",
		"terminate:A:SUCCESS", "terminate:test:SUCCESS",
		"enter:test", "enter:A",
		"terminate:A:FAILURE", "terminate:test:FAILURE",
	}, events)
}

type countBlob struct {
	blob.NodeBlob
	n int
}

// everyThird returns SUCCESS on every third tick of the same entity.
func everyThird() *Node[none] {
	return NewStatefulAction[countBlob, none]("work", ActionFunc[none](func(ctx *Context[none]) domain.Status {
		b := BlobOf[countBlob](ctx)
		b.n++
		if b.n%3 == 0 {
			return domain.Success
		}
		return domain.Running
	}))
}

func TestTick_FreshStoreReplaysRun(t *testing.T) {
	tree, err := NewTree("replay", Repeat(2, everyThird()))
	require.NoError(t, err)

	run := func(tb blob.TreeBlob, n int) []domain.Status {
		tree.BindTreeBlob(tb)
		defer tree.UnbindTreeBlob()
		out := make([]domain.Status, n)
		for i := range out {
			out[i] = tree.Tick(&Context[none]{Seq: uint64(i + 1)})
		}
		return out
	}

	want := []domain.Status{
		domain.Running, domain.Running, domain.Running,
		domain.Running, domain.Running, domain.Success,
	}

	stores := map[string]func() blob.TreeBlob{
		"dynamic": func() blob.TreeBlob { return tree.NewDynamicBlob() },
		"fixed":   func() blob.TreeBlob { return tree.NewFixedBlob() },
	}
	for name, fresh := range stores {
		t.Run(name, func(t *testing.T) {
			first := fresh()
			assert.Equal(t, want, run(first, 6))
			assert.Equal(t, want, run(fresh(), 6), "a fresh store must not see the first entity's state")
		})
	}
}

func TestTick_InterleavedEntitiesDoNotLeak(t *testing.T) {
	tree, err := NewTree("interleave", Repeat(2, everyThird()))
	require.NoError(t, err)

	a, b := tree.NewFixedBlob(), tree.NewFixedBlob()
	var gotA, gotB []domain.Status
	for seq := uint64(1); seq <= 6; seq++ {
		gotA = append(gotA, tree.TickBlob(a, &Context[none]{Seq: seq}))
		if seq > 3 {
			gotB = append(gotB, tree.TickBlob(b, &Context[none]{Seq: seq}))
		}
	}

	assert.Equal(t, domain.Success, gotA[5])
	assert.Equal(t, []domain.Status{domain.Running, domain.Running, domain.Running}, gotB)
}

func TestTick_BlobOfRejectsWrongType(t *testing.T) {
	wrong := NewAction[none]("wrong", ActionFunc[none](func(ctx *Context[none]) domain.Status {
		BlobOf[countBlob](ctx)
		return domain.Success
	}))
	h := newHarness(t, wrong)
	assert.Panics(t, func() { h.tick() })
}

func TestTick_WarmTickDoesNotAllocate(t *testing.T) {
	a := newStub("A", domain.Success)
	b := newStub("B", domain.Running)
	c := newStub("C", domain.Failure)
	c.weight = 3

	tree, err := NewTree("warm", Parallel(
		act(a),
		Selector(act(c), Repeat(-1, act(newStub("D", domain.Success)))),
		StatefulSequence(Invert(act(newStub("E", domain.Failure))), act(b)),
	))
	require.NoError(t, err)

	tree.BindTreeBlob(tree.NewFixedBlob())
	ctx := &Context[none]{}
	ctx.Seq++
	require.Equal(t, domain.Running, tree.Tick(ctx))

	allocs := testing.AllocsPerRun(100, func() {
		ctx.Seq++
		tree.Tick(ctx)
	})
	assert.Zero(t, allocs)
}
