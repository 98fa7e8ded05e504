package bt

import (
	"math"
	"testing"

	"github.com/aretw0/canopy/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequence_AdvancesAsChildrenSucceed(t *testing.T) {
	a, b := newStub("A", domain.Running), newStub("B", domain.Running)
	h := newHarness(t, Sequence(act(a), act(b)))

	assert.Equal(t, domain.Running, h.tick())
	assert.Equal(t, 1, a.updates)
	assert.Zero(t, b.updates, "B must wait for A")

	a.status = domain.Success
	assert.Equal(t, domain.Running, h.tick())
	assert.Equal(t, 1, b.updates)

	b.status = domain.Success
	assert.Equal(t, domain.Success, h.tick())
}

func TestSequence_FailureStops(t *testing.T) {
	a, b := newStub("A", domain.Failure), newStub("B", domain.Success)
	h := newHarness(t, Sequence(act(a), act(b)))

	assert.Equal(t, domain.Failure, h.tick())
	assert.Zero(t, b.updates)
}

func TestSelector_FallsThroughFailures(t *testing.T) {
	a, b := newStub("A", domain.Failure), newStub("B", domain.Success)
	h := newHarness(t, Selector(act(a), act(b)))

	assert.Equal(t, domain.Success, h.tick())
	assert.Equal(t, 1, a.updates)
	assert.Equal(t, 1, b.updates)

	b.status = domain.Failure
	assert.Equal(t, domain.Failure, h.tick(), "fails only when every child fails")

	a.status = domain.Success
	assert.Equal(t, domain.Success, h.tick())
	assert.Equal(t, 2, b.updates, "B is not reached once A succeeds")
}

func TestParallel(t *testing.T) {
	t.Run("failure wins over running", func(t *testing.T) {
		a, b := newStub("A", domain.Failure), newStub("B", domain.Running)
		h := newHarness(t, Parallel(act(a), act(b)))
		assert.Equal(t, domain.Failure, h.tick())
		assert.Equal(t, 1, b.updates, "every child is ticked")
	})

	t.Run("all succeed", func(t *testing.T) {
		a, b := newStub("A", domain.Success), newStub("B", domain.Success)
		h := newHarness(t, Parallel(act(a), act(b)))
		assert.Equal(t, domain.Success, h.tick())
	})

	t.Run("running otherwise", func(t *testing.T) {
		a, b := newStub("A", domain.Success), newStub("B", domain.Running)
		h := newHarness(t, Parallel(act(a), act(b)))
		assert.Equal(t, domain.Running, h.tick())
		assert.Equal(t, domain.Running, h.tick())
		assert.Equal(t, 2, a.updates, "stateless parallel re-ticks finished children")
	})
}

func TestComposite_PriorityOrder(t *testing.T) {
	tests := []struct {
		name    string
		weights []uint
		want    []string
	}{
		{"equal weights keep declaration order", []uint{1, 1, 1}, []string{"A", "B", "C"}},
		{"higher priority first", []uint{1, 3, 2}, []string{"B", "C", "A"}},
		{"ties by declaration order", []uint{2, 1, 2}, []string{"A", "C", "B"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var trace []string
			var children []*Node[none]
			for i, name := range []string{"A", "B", "C"} {
				s := newStub(name, domain.Failure)
				s.weight = tt.weights[i]
				s.trace = &trace
				children = append(children, act(s))
			}
			h := newHarness(t, Selector(children...))

			assert.Equal(t, domain.Failure, h.tick())
			assert.Equal(t, tt.want, trace)
		})
	}
}

func TestComposite_PriorityIsMaxOfChildren(t *testing.T) {
	var trace []string
	low1, low2, high := newStub("low1", domain.Failure), newStub("low2", domain.Failure), newStub("high", domain.Failure)
	high.weight = 4
	for _, s := range []*stub{low1, low2, high} {
		s.trace = &trace
	}

	h := newHarness(t, Selector(
		Selector(act(low1), act(low2)),
		Sequence(act(high)),
	))
	h.tick()

	assert.Equal(t, []string{"high", "low1", "low2"}, trace)
}

// favorite prefers the child whose index matches the entity payload.
type favorite struct {
	index int
	trace *[]int
}

func (f *favorite) Update(*Context[int]) domain.Status {
	*f.trace = append(*f.trace, f.index)
	return domain.Success
}

func (f *favorite) Priority(ctx *Context[int]) uint {
	if ctx.Data == f.index {
		return 5
	}
	return 1
}

func TestComposite_PriorityCacheIsPerEntity(t *testing.T) {
	var trace []int
	tree, err := NewTree("favorites", Selector(
		NewAction[int]("zero", &favorite{index: 0, trace: &trace}),
		NewAction[int]("one", &favorite{index: 1, trace: &trace}),
	))
	require.NoError(t, err)

	a, b := tree.NewFixedBlob(), tree.NewFixedBlob()

	// Both entities tick at the same sequence number.
	tree.TickBlob(a, &Context[int]{Seq: 1, Data: 0})
	tree.TickBlob(b, &Context[int]{Seq: 1, Data: 1})
	assert.Equal(t, []int{0, 1}, trace)

	// A changed preference is seen on the next sequence number.
	tree.TickBlob(a, &Context[int]{Seq: 2, Data: 1})
	assert.Equal(t, []int{0, 1, 1}, trace)
}

func TestStatefulSequence_ResumesAtPendingChild(t *testing.T) {
	a, b := newStub("A", domain.Success), newStub("B", domain.Running)
	h := newHarness(t, StatefulSequence(act(a), act(b)))

	assert.Equal(t, domain.Running, h.tick())
	assert.Equal(t, domain.Running, h.tick())
	assert.Equal(t, 1, a.updates, "A already succeeded this round")
	assert.Equal(t, 2, b.updates)

	b.status = domain.Success
	assert.Equal(t, domain.Success, h.tick())

	// The round ended, so the skip set was cleared.
	b.status = domain.Running
	assert.Equal(t, domain.Running, h.tick())
	assert.Equal(t, 2, a.updates)
}

func TestStatefulSelector_SkipsFailedChildren(t *testing.T) {
	a, b, c := newStub("A", domain.Failure), newStub("B", domain.Running), newStub("C", domain.Success)
	h := newHarness(t, StatefulSelector(act(a), act(b), act(c)))

	assert.Equal(t, domain.Running, h.tick())
	assert.Equal(t, domain.Running, h.tick())
	assert.Equal(t, 1, a.updates)
	assert.Equal(t, 2, b.updates)

	b.status = domain.Failure
	assert.Equal(t, domain.Success, h.tick())
	assert.Equal(t, 1, c.updates)

	assert.Equal(t, domain.Success, h.tick())
	assert.Equal(t, 2, a.updates, "skip set cleared when the selector terminated")
}

func TestStatefulParallel_SkipsSucceededChildren(t *testing.T) {
	a, b := newStub("A", domain.Success), newStub("B", domain.Running)
	h := newHarness(t, StatefulParallel(act(a), act(b)))

	assert.Equal(t, domain.Running, h.tick())
	assert.Equal(t, domain.Running, h.tick())
	assert.Equal(t, 1, a.updates)

	b.status = domain.Success
	assert.Equal(t, domain.Success, h.tick())
	assert.Equal(t, 3, b.updates)

	h.tick()
	assert.Equal(t, 2, a.updates)
}

func TestStatefulComposite_SkipSetIsPerEntity(t *testing.T) {
	a, b := newStub("A", domain.Success), newStub("B", domain.Running)
	tree, err := NewTree("skip", StatefulSequence(act(a), act(b)))
	require.NoError(t, err)

	first, second := tree.NewFixedBlob(), tree.NewFixedBlob()
	tree.TickBlob(first, &Context[none]{Seq: 1})
	tree.TickBlob(second, &Context[none]{Seq: 1})
	assert.Equal(t, 2, a.updates, "each entity runs A once")

	tree.TickBlob(first, &Context[none]{Seq: 2})
	tree.TickBlob(second, &Context[none]{Seq: 2})
	assert.Equal(t, 2, a.updates)
	assert.Equal(t, 4, b.updates)
}

func TestRandomSelector_ZeroWeightNeverPicked(t *testing.T) {
	a, b := newStub("A", domain.Success), newStub("B", domain.Success)
	b.weight = 0
	h := newHarness(t, RandomSelector(act(a), act(b)), seeded())

	for range 100 {
		require.Equal(t, domain.Success, h.tick())
	}
	assert.Equal(t, 100, a.updates)
	assert.Zero(t, b.updates)

	a.status = domain.Failure
	assert.Equal(t, domain.Failure, h.tick(), "the pool is exhausted once A fails")
	assert.Zero(t, b.updates)
}

func TestRandomSelector_EqualWeightsAreUniform(t *testing.T) {
	a, b := newStub("A", domain.Success), newStub("B", domain.Success)
	h := newHarness(t, RandomSelector(act(a), act(b)), seeded())

	const trials = 100000
	for range trials {
		h.tick()
	}

	require.Equal(t, trials, a.updates+b.updates)
	diff := math.Abs(float64(a.updates - b.updates))
	assert.Less(t, diff/float64(max(a.updates, b.updates)), 0.3)
}

func TestRandomSelector_ResamplesAfterFailure(t *testing.T) {
	a, b := newStub("A", domain.Failure), newStub("B", domain.Success)
	h := newHarness(t, RandomSelector(act(a), act(b)), seeded())

	const trials = 200
	for range trials {
		require.Equal(t, domain.Success, h.tick())
	}
	assert.Equal(t, trials, b.updates)
	assert.LessOrEqual(t, a.updates, trials, "a failed child is not redrawn within a tick")
	assert.Positive(t, a.updates)
}

func TestStatefulRandomSelector_DoesNotRedrawFailedChild(t *testing.T) {
	a, b := newStub("A", domain.Failure), newStub("B", domain.Running)
	h := newHarness(t, StatefulRandomSelector(act(a), act(b)), seeded())

	for range 50 {
		require.Equal(t, domain.Running, h.tick())
	}
	assert.LessOrEqual(t, a.updates, 1)
	assert.Equal(t, 50, b.updates)
}

func TestSwitch_RunsFirstMatchingCase(t *testing.T) {
	var trace []string
	attack, flee, idle := newStub("attack", domain.Success), newStub("flee", domain.Success), newStub("idle", domain.Success)
	for _, s := range []*stub{attack, flee, idle} {
		s.trace = &trace
	}
	enemy, hurt := false, true

	h := newHarness(t, Switch(
		Case(Check("enemy", func(*Context[none]) bool { return enemy }), act(attack)),
		Case(Check("hurt", func(*Context[none]) bool { return hurt }), act(flee)),
		act(idle),
	))

	assert.Equal(t, domain.Success, h.tick())
	hurt = false
	assert.Equal(t, domain.Success, h.tick())
	enemy = true
	assert.Equal(t, domain.Success, h.tick())

	assert.Equal(t, []string{"flee", "idle", "attack"}, trace)
}
