package bt

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/aretw0/canopy/pkg/domain"
	"github.com/stretchr/testify/require"
)

type none = struct{}

// stub is an action whose status is set by the test.
type stub struct {
	name       string
	status     domain.Status
	weight     uint
	trace      *[]string
	updates    int
	enters     int
	terminates int
	terminated domain.Status
}

func newStub(name string, status domain.Status) *stub {
	return &stub{name: name, status: status, weight: 1}
}

func (s *stub) Update(*Context[none]) domain.Status {
	s.updates++
	if s.trace != nil {
		*s.trace = append(*s.trace, s.name)
	}
	return s.status
}

func (s *stub) OnEnter(*Context[none]) { s.enters++ }

func (s *stub) OnTerminate(_ *Context[none], st domain.Status) {
	s.terminates++
	s.terminated = st
}

func (s *stub) Priority(*Context[none]) uint { return s.weight }

func act(s *stub) *Node[none] {
	return NewAction[none](s.name, s)
}

// script returns its statuses in a loop.
type script struct {
	statuses []domain.Status
	updates  int
	enters   int
}

func (s *script) Update(*Context[none]) domain.Status {
	st := s.statuses[s.updates%len(s.statuses)]
	s.updates++
	return st
}

func (s *script) OnEnter(*Context[none]) { s.enters++ }

type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func seeded() Option {
	return WithRand(rand.New(rand.NewPCG(7, 11)))
}

type harness struct {
	tree *Tree[none]
	ctx  Context[none]
}

func newHarness(t *testing.T, child *Node[none], opts ...Option) *harness {
	t.Helper()
	tree, err := NewTree("test", child, opts...)
	require.NoError(t, err)
	return &harness{tree: tree}
}

func (h *harness) tick() domain.Status {
	h.ctx.Seq++
	return h.tree.Tick(&h.ctx)
}

func (h *harness) ticks(n int) []domain.Status {
	out := make([]domain.Status, n)
	for i := range out {
		out[i] = h.tick()
	}
	return out
}
