package blob_test

import (
	"testing"

	"github.com/aretw0/canopy/pkg/blob"
	"github.com/aretw0/canopy/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counterBlob struct {
	blob.NodeBlob
	Count int
	Stamp int64
}

type wideBlob struct {
	blob.NodeBlob
	Pad [256]byte
}

type namedBlob struct {
	blob.NodeBlob
	Name string
}

func requirePanicIs(t *testing.T, target error, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		require.NotNil(t, r, "expected a panic")
		err, ok := r.(error)
		require.True(t, ok, "panic value %v is not an error", r)
		assert.ErrorIs(t, err, target)
	}()
	fn()
}

func stores(numNodes int) map[string]blob.TreeBlob {
	return map[string]blob.TreeBlob{
		"dynamic": blob.NewDynamic(),
		"fixed":   blob.NewFixed(numNodes, blob.SizeOf[counterBlob]()),
	}
}

func TestMake_IsIdempotent(t *testing.T) {
	for name, tb := range stores(4) {
		t.Run(name, func(t *testing.T) {
			inits := 0
			init := func(b *counterBlob) {
				inits++
				b.Count = 10
			}

			first := blob.Make(tb, 2, init, 0)
			assert.Equal(t, 10, first.Count)
			first.Count++

			second := blob.Make(tb, 2, init, 0)
			assert.Same(t, first, second)
			assert.Equal(t, 11, second.Count)
			assert.Equal(t, 1, inits, "init must run once per id")
			assert.Equal(t, 1, tb.Len())
		})
	}
}

func TestMake_FreshBlobIsZeroed(t *testing.T) {
	for name, tb := range stores(3) {
		t.Run(name, func(t *testing.T) {
			b := blob.Make[counterBlob](tb, 3, nil, 3)
			assert.False(t, b.Running)
			assert.Equal(t, domain.Undefined, b.LastStatus)
			assert.Zero(t, b.Count)

			_, ok := b.CachedPriority(0)
			assert.False(t, ok, "zero priority means uncomputed")
		})
	}
}

func TestLookup_DoesNotAllocate(t *testing.T) {
	for name, tb := range stores(4) {
		t.Run(name, func(t *testing.T) {
			_, ok := blob.Lookup[counterBlob](tb, 1)
			assert.False(t, ok)
			assert.Zero(t, tb.Len())

			made := blob.Make[counterBlob](tb, 1, nil, 0)
			got, ok := blob.Lookup[counterBlob](tb, 1)
			require.True(t, ok)
			assert.Same(t, made, got)

			tb.Reset()
			_, ok = blob.Lookup[counterBlob](tb, 1)
			assert.False(t, ok)
			assert.Zero(t, tb.Len())
		})
	}
}

func TestNodeBlob_PriorityCacheIsKeyedBySeq(t *testing.T) {
	var b blob.NodeBlob
	b.CachePriority(7, 3)

	p, ok := b.CachedPriority(7)
	assert.True(t, ok)
	assert.Equal(t, uint(3), p)

	_, ok = b.CachedPriority(8)
	assert.False(t, ok)
}

func TestDynamic_GrowsOnDemand(t *testing.T) {
	d := blob.NewDynamic()
	for id := domain.NodeID(100); id >= 1; id-- {
		b := blob.Make[counterBlob](d, id, nil, 0)
		b.Count = int(id)
	}
	assert.Equal(t, 100, d.Len())

	b, ok := blob.Lookup[counterBlob](d, 42)
	require.True(t, ok)
	assert.Equal(t, 42, b.Count)
}

func TestDynamic_RejectsZeroID(t *testing.T) {
	requirePanicIs(t, domain.ErrBlobCapacity, func() {
		blob.Make[counterBlob](blob.NewDynamic(), 0, nil, 0)
	})
}

func TestFixed_CapacityIsFatal(t *testing.T) {
	t.Run("NumNodes not enough", func(t *testing.T) {
		f := blob.NewFixed(2, blob.SizeOf[counterBlob]())
		blob.Make[counterBlob](f, 2, nil, 0)
		requirePanicIs(t, domain.ErrBlobCapacity, func() {
			blob.Make[counterBlob](f, 3, nil, 0)
		})
	})

	t.Run("MaxBlobSize not enough", func(t *testing.T) {
		f := blob.NewFixed(2, blob.SizeOf[counterBlob]())
		requirePanicIs(t, domain.ErrBlobCapacity, func() {
			blob.Make[wideBlob](f, 1, nil, 0)
		})
		assert.Zero(t, f.Len())
	})

	t.Run("pointers rejected", func(t *testing.T) {
		f := blob.NewFixed(1, blob.SizeOf[namedBlob]())
		requirePanicIs(t, domain.ErrBlobLayout, func() {
			blob.Make[namedBlob](f, 1, nil, 0)
		})
	})
}

func TestFixed_SnapshotLayout(t *testing.T) {
	size := blob.SizeOf[counterBlob]()
	src := blob.NewFixed(3, size)

	b := blob.Make[counterBlob](src, 2, nil, 0)
	b.Count = 7
	b.LastStatus = domain.Running
	b.LastSeq = 99

	data, err := src.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, data, 3*(1+size))
	assert.Equal(t, byte(0), data[0], "slot 1 is empty")
	assert.Equal(t, byte(1), data[1+size], "slot 2 exists")
	assert.Equal(t, byte(0), data[2*(1+size)], "slot 3 is empty")

	dst := blob.NewFixed(3, size)
	require.NoError(t, dst.UnmarshalBinary(data))
	assert.Equal(t, 1, dst.Len())

	restored, ok := blob.Lookup[counterBlob](dst, 2)
	require.True(t, ok)
	assert.Equal(t, 7, restored.Count)
	assert.Equal(t, domain.Running, restored.LastStatus)
	assert.Equal(t, uint64(99), restored.LastSeq)

	_, ok = blob.Lookup[counterBlob](dst, 1)
	assert.False(t, ok)
}

func TestFixed_UnmarshalRejectsWrongLength(t *testing.T) {
	f := blob.NewFixed(2, 16)
	err := f.UnmarshalBinary(make([]byte, 10))
	assert.ErrorIs(t, err, domain.ErrSnapshotLayout)
}
