package bt

// maxStatefulChildren bounds the width of stateful composites so their skip
// set fits in a pointer-free blob.
const maxStatefulChildren = 256

// skipSet marks children already terminal in the current round.
type skipSet [maxStatefulChildren / 64]uint64

func (s *skipSet) has(i int) bool { return s[i>>6]&(1<<(uint(i)&63)) != 0 }
func (s *skipSet) set(i int)      { s[i>>6] |= 1 << (uint(i) & 63) }
func (s *skipSet) reset()         { *s = skipSet{} }

// childQueue yields child indexes in visit order. Flat queues are consumed
// front to back; heap queues pop the highest priority, lowest index first.
type childQueue struct {
	items []uint
	prio  []uint
	heap  bool
}

func (q *childQueue) pop() (int, bool) {
	if len(q.items) == 0 {
		return 0, false
	}
	top := q.items[0]
	if !q.heap {
		q.items = q.items[1:]
		return int(top), true
	}
	last := len(q.items) - 1
	q.items[0] = q.items[last]
	q.items = q.items[:last]
	q.down(0)
	return int(top), true
}

func (q *childQueue) before(a, b uint) bool {
	pa, pb := q.prio[a], q.prio[b]
	return pa > pb || (pa == pb && a < b)
}

func (q *childQueue) init() {
	for i := len(q.items)/2 - 1; i >= 0; i-- {
		q.down(i)
	}
}

func (q *childQueue) down(i int) {
	n := len(q.items)
	for {
		l := 2*i + 1
		if l >= n {
			return
		}
		best := l
		if r := l + 1; r < n && q.before(q.items[r], q.items[l]) {
			best = r
		}
		if !q.before(q.items[best], q.items[i]) {
			return
		}
		q.items[i], q.items[best] = q.items[best], q.items[i]
		i = best
	}
}
