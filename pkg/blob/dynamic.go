package blob

import (
	"fmt"
	"reflect"
	"slices"
	"unsafe"

	"github.com/aretw0/canopy/pkg/domain"
)

// Dynamic is a growable TreeBlob holding one heap block per node.
type Dynamic struct {
	slots []unsafe.Pointer
	n     int
}

// NewDynamic creates an empty dynamic store.
func NewDynamic() *Dynamic {
	return &Dynamic{}
}

// Len returns how many blobs are allocated.
func (d *Dynamic) Len() int { return d.n }

// Reset drops every blob.
func (d *Dynamic) Reset() {
	clear(d.slots)
	d.n = 0
}

func (d *Dynamic) get(idx int, _ uintptr) (unsafe.Pointer, bool) {
	if idx < 0 {
		panic(fmt.Errorf("%w: invalid node id %d", domain.ErrBlobCapacity, idx+1))
	}
	if idx < len(d.slots) && d.slots[idx] != nil {
		return d.slots[idx], true
	}
	return nil, false
}

func (d *Dynamic) put(idx int, _ uintptr, _ reflect.Type, alloc func() unsafe.Pointer) unsafe.Pointer {
	if idx >= len(d.slots) {
		d.slots = slices.Grow(d.slots, idx+1-len(d.slots))[:idx+1]
	}
	p := alloc()
	d.slots[idx] = p
	d.n++
	return p
}

func (d *Dynamic) peek(idx int) (unsafe.Pointer, bool) {
	if idx < 0 || idx >= len(d.slots) || d.slots[idx] == nil {
		return nil, false
	}
	return d.slots[idx], true
}

func (d *Dynamic) reserve(n int) {
	if cap(d.slots) < n {
		d.slots = slices.Grow(d.slots, n-len(d.slots))
	}
}
