// Package nativemem hands out fixed memory blocks suitable for building
// C-layout structures that outlive a single call frame. The allocation
// policy is an interface so callers can swap the backing strategy, and the
// default heap keeps a registry of live blocks so tests can audit frees.
package nativemem

import (
	"errors"
	"fmt"
	"sync"
	"unsafe"
)

var (
	// ErrExhausted marks an allocation rejected by a configured limit.
	ErrExhausted = errors.New("allocation limit reached")

	// ErrBadFree marks a free of a pointer that is not currently allocated.
	ErrBadFree = errors.New("free of unknown or already freed pointer")
)

// Allocator grants and releases fixed blocks addressed by raw pointers.
// Alloc(0) must return a valid, unique, non-nil pointer. Free(nil) is a
// no-op; freeing the same block twice is an error.
type Allocator interface {
	Alloc(n int) (unsafe.Pointer, error)
	Free(p unsafe.Pointer) error
}

// Heap is an Allocator backed by ordinary Go memory. Blocks are 8-byte
// aligned and stay reachable through the registry until freed, so the
// pointers may be stored in structures the garbage collector cannot see.
// The zero value is ready to use. Safe for concurrent use.
type Heap struct {
	// Limit caps live bytes when non-zero; allocations beyond it fail
	// with ErrExhausted.
	Limit int

	mu     sync.Mutex
	blocks map[uintptr]block
	allocs uint64
	frees  uint64
	live   int
}

type block struct {
	words []uint64 // word-sized backing keeps blocks aligned and reachable
	size  int
}

func NewHeap() *Heap {
	return &Heap{blocks: make(map[uintptr]block)}
}

func (h *Heap) Alloc(n int) (unsafe.Pointer, error) {
	if n < 0 {
		return nil, fmt.Errorf("negative allocation size %d", n)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.Limit > 0 && h.live+n > h.Limit {
		return nil, fmt.Errorf("%w: %d bytes live, %d requested, limit %d", ErrExhausted, h.live, n, h.Limit)
	}
	if h.blocks == nil {
		h.blocks = make(map[uintptr]block)
	}
	nw := (n + 7) / 8
	if nw == 0 {
		nw = 1 // zero-size blocks still need an address of their own
	}
	words := make([]uint64, nw)
	p := unsafe.Pointer(&words[0])
	h.blocks[uintptr(p)] = block{words: words, size: n}
	h.allocs++
	h.live += n
	return p, nil
}

func (h *Heap) Free(p unsafe.Pointer) error {
	if p == nil {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	b, ok := h.blocks[uintptr(p)]
	if !ok {
		return fmt.Errorf("%w: %#x", ErrBadFree, uintptr(p))
	}
	delete(h.blocks, uintptr(p))
	h.frees++
	h.live -= b.size
	return nil
}

// LiveAllocs returns the number of blocks allocated and not yet freed.
func (h *Heap) LiveAllocs() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.blocks)
}

// LiveBytes returns the net requested size of all live blocks.
func (h *Heap) LiveBytes() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.live
}

// TotalAllocs returns the number of successful Alloc calls over the
// Heap's lifetime.
func (h *Heap) TotalAllocs() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.allocs
}

// TotalFrees returns the number of successful Free calls of non-nil
// pointers over the Heap's lifetime.
func (h *Heap) TotalFrees() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.frees
}

// Default is the allocator used when callers do not bring their own.
var Default = NewHeap()
