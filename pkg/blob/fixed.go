package blob

import (
	"fmt"
	"reflect"
	"sync"
	"unsafe"

	"github.com/aretw0/canopy/pkg/domain"
)

// Fixed is a TreeBlob backed by one preallocated buffer.
//
// Each node owns a slot made of an existence word followed by MaxBlobSize
// payload bytes, rounded up to whole words so every blob is 8-byte aligned.
// The exported snapshot format (MarshalBinary) is the packed layout of
// NumNodes slots of 1 existence byte + MaxBlobSize payload bytes.
type Fixed struct {
	numNodes    int
	maxBlobSize int
	stride      int
	words       []uint64
	n           int
}

// NewFixed preallocates room for numNodes blobs of at most maxBlobSize bytes.
func NewFixed(numNodes, maxBlobSize int) *Fixed {
	if numNodes < 0 || maxBlobSize < 0 {
		panic(fmt.Errorf("%w: negative fixed blob dimensions %dx%d", domain.ErrBlobCapacity, numNodes, maxBlobSize))
	}
	stride := 1 + (maxBlobSize+7)/8
	return &Fixed{
		numNodes:    numNodes,
		maxBlobSize: maxBlobSize,
		stride:      stride,
		words:       make([]uint64, numNodes*stride),
	}
}

// NumNodes returns the number of slots.
func (f *Fixed) NumNodes() int { return f.numNodes }

// MaxBlobSize returns the payload size of each slot in bytes.
func (f *Fixed) MaxBlobSize() int { return f.maxBlobSize }

// Len returns how many blobs are allocated.
func (f *Fixed) Len() int { return f.n }

// Reset drops every blob without releasing the buffer.
func (f *Fixed) Reset() {
	clear(f.words)
	f.n = 0
}

func (f *Fixed) get(idx int, size uintptr) (unsafe.Pointer, bool) {
	if idx < 0 || idx >= f.numNodes {
		panic(fmt.Errorf("%w: NumNodes not enough (id %d, capacity %d)", domain.ErrBlobCapacity, idx+1, f.numNodes))
	}
	if size > uintptr(f.maxBlobSize) {
		panic(fmt.Errorf("%w: MaxBlobSize not enough (blob %d bytes, slot %d bytes)", domain.ErrBlobCapacity, size, f.maxBlobSize))
	}
	base := idx * f.stride
	if f.words[base] == 0 {
		return nil, false
	}
	return unsafe.Pointer(&f.words[base+1]), true
}

func (f *Fixed) put(idx int, _ uintptr, rt reflect.Type, _ func() unsafe.Pointer) unsafe.Pointer {
	if hasPointers(rt) {
		panic(fmt.Errorf("%w: %s contains pointers", domain.ErrBlobLayout, rt))
	}
	base := idx * f.stride
	clear(f.words[base+1 : base+f.stride])
	f.words[base] = 1
	f.n++
	return unsafe.Pointer(&f.words[base+1])
}

func (f *Fixed) peek(idx int) (unsafe.Pointer, bool) {
	if idx < 0 || idx >= f.numNodes {
		return nil, false
	}
	base := idx * f.stride
	if f.words[base] == 0 {
		return nil, false
	}
	return unsafe.Pointer(&f.words[base+1]), true
}

func (f *Fixed) reserve(int) {}

func (f *Fixed) payload(idx int) []byte {
	if f.maxBlobSize == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&f.words[idx*f.stride+1])), f.maxBlobSize)
}

// SnapshotSize returns the length of the buffer produced by MarshalBinary.
func (f *Fixed) SnapshotSize() int {
	return f.numNodes * (1 + f.maxBlobSize)
}

// MarshalBinary encodes the store in the packed slot layout.
// Payload bytes are copied verbatim, so snapshots are only portable between
// processes sharing the same tree build, architecture and endianness.
func (f *Fixed) MarshalBinary() ([]byte, error) {
	size := 1 + f.maxBlobSize
	out := make([]byte, f.SnapshotSize())
	for i := range f.numNodes {
		if f.words[i*f.stride] == 0 {
			continue
		}
		out[i*size] = 1
		copy(out[i*size+1:(i+1)*size], f.payload(i))
	}
	return out, nil
}

// UnmarshalBinary replaces the store contents with a packed snapshot.
func (f *Fixed) UnmarshalBinary(data []byte) error {
	if len(data) != f.SnapshotSize() {
		return fmt.Errorf("%w: got %d bytes, want %d (%d slots of 1+%d)",
			domain.ErrSnapshotLayout, len(data), f.SnapshotSize(), f.numNodes, f.maxBlobSize)
	}
	f.Reset()
	size := 1 + f.maxBlobSize
	for i := range f.numNodes {
		if data[i*size] == 0 || f.maxBlobSize == 0 {
			continue
		}
		f.words[i*f.stride] = 1
		f.n++
		copy(f.payload(i), data[i*size+1:(i+1)*size])
	}
	return nil
}

var pointerCache sync.Map

func hasPointers(t reflect.Type) bool {
	if v, ok := pointerCache.Load(t); ok {
		return v.(bool)
	}
	found := scanPointers(t)
	pointerCache.Store(t, found)
	return found
}

func scanPointers(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.UnsafePointer, reflect.Map, reflect.Slice,
		reflect.String, reflect.Interface, reflect.Chan, reflect.Func:
		return true
	case reflect.Array:
		return t.Len() > 0 && scanPointers(t.Elem())
	case reflect.Struct:
		for i := range t.NumField() {
			if scanPointers(t.Field(i).Type) {
				return true
			}
		}
	}
	return false
}
