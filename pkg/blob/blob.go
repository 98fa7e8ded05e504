package blob

import (
	"reflect"
	"unsafe"

	"github.com/aretw0/canopy/pkg/domain"
)

// NodeBlob is the state every node keeps per entity.
type NodeBlob struct {
	Running    bool
	LastStatus domain.Status
	LastSeq    uint64

	prioritySeq uint64
	priority    uint
}

// Base returns b itself. Types embedding NodeBlob satisfy Blob through it.
func (b *NodeBlob) Base() *NodeBlob { return b }

// CachedPriority returns the priority memoized for the tick seq, if any.
func (b *NodeBlob) CachedPriority(seq uint64) (uint, bool) {
	if b.priority != 0 && b.prioritySeq == seq {
		return b.priority, true
	}
	return 0, false
}

// CachePriority memoizes p for the tick seq.
func (b *NodeBlob) CachePriority(seq uint64, p uint) {
	b.priority = p
	b.prioritySeq = seq
}

// Blob is implemented by pointers to structs embedding NodeBlob.
type Blob interface {
	Base() *NodeBlob
}

// TreeBlob maps node ids to blobs for one entity.
// The two implementations are Dynamic and Fixed.
type TreeBlob interface {
	// Len returns how many blobs are allocated.
	Len() int
	// Reset drops every blob so the next tick starts from a fresh entity.
	Reset()

	get(idx int, size uintptr) (unsafe.Pointer, bool)
	put(idx int, size uintptr, rt reflect.Type, alloc func() unsafe.Pointer) unsafe.Pointer
	peek(idx int) (unsafe.Pointer, bool)
	reserve(n int)
}

// Make returns the blob of type B for id, allocating it on first use.
// A fresh blob is zeroed and passed to init once. Later calls return the
// same instance untouched. A positive reserve lets the store pre-size
// itself for that many nodes.
//
// Every call for a given id must use the same B.
func Make[B any, PB interface {
	*B
	Blob
}](tb TreeBlob, id domain.NodeID, init func(PB), reserve int) PB {
	if reserve > 0 {
		tb.reserve(reserve)
	}
	var zero B
	size := unsafe.Sizeof(zero)
	if p, ok := tb.get(id.Index(), size); ok {
		return PB((*B)(p))
	}
	p := tb.put(id.Index(), size, reflect.TypeFor[B](), func() unsafe.Pointer {
		return unsafe.Pointer(new(B))
	})
	b := PB((*B)(p))
	if init != nil {
		init(b)
	}
	return b
}

// Lookup returns the blob for id without allocating one.
func Lookup[B any, PB interface {
	*B
	Blob
}](tb TreeBlob, id domain.NodeID) (PB, bool) {
	p, ok := tb.peek(id.Index())
	if !ok {
		return nil, false
	}
	return PB((*B)(p)), true
}

// SizeOf returns the number of bytes a blob of type B occupies.
func SizeOf[B any]() int {
	var zero B
	return int(unsafe.Sizeof(zero))
}
