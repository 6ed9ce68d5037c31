package nativemem_test

import (
	"errors"
	"testing"
	"unsafe"

	"github.com/5amu/svctrig/pkg/nativemem"
)

func TestHeapAllocFree(t *testing.T) {
	h := nativemem.NewHeap()

	p, err := h.Alloc(32)
	if err != nil {
		t.Fatal(err)
	}
	if p == nil {
		t.Fatal("nil pointer from Alloc")
	}
	if h.LiveAllocs() != 1 || h.LiveBytes() != 32 {
		t.Errorf("live = %d blocks / %d bytes, expected 1/32", h.LiveAllocs(), h.LiveBytes())
	}

	// blocks must be usable as raw byte storage
	b := unsafe.Slice((*byte)(p), 32)
	for i := range b {
		b[i] = byte(i)
	}
	if b[31] != 31 {
		t.Error("block not writable")
	}

	if err := h.Free(p); err != nil {
		t.Fatal(err)
	}
	if h.LiveAllocs() != 0 || h.LiveBytes() != 0 {
		t.Errorf("live after free = %d blocks / %d bytes", h.LiveAllocs(), h.LiveBytes())
	}
}

func TestHeapAlignment(t *testing.T) {
	h := nativemem.NewHeap()
	for _, n := range []int{0, 1, 3, 8, 17} {
		p, err := h.Alloc(n)
		if err != nil {
			t.Fatal(err)
		}
		if uintptr(p)%8 != 0 {
			t.Errorf("Alloc(%d) returned unaligned pointer %#x", n, uintptr(p))
		}
	}
}

func TestHeapZeroSize(t *testing.T) {
	h := nativemem.NewHeap()
	p1, err := h.Alloc(0)
	if err != nil {
		t.Fatal(err)
	}
	p2, err := h.Alloc(0)
	if err != nil {
		t.Fatal(err)
	}
	if p1 == nil || p2 == nil {
		t.Fatal("zero-size allocation returned nil")
	}
	if p1 == p2 {
		t.Error("zero-size allocations share an address")
	}
	if h.LiveBytes() != 0 {
		t.Errorf("LiveBytes = %d, expected 0", h.LiveBytes())
	}
	if h.LiveAllocs() != 2 {
		t.Errorf("LiveAllocs = %d, expected 2", h.LiveAllocs())
	}
}

func TestHeapNegativeSize(t *testing.T) {
	h := nativemem.NewHeap()
	if _, err := h.Alloc(-1); err == nil {
		t.Error("expected error for negative size")
	}
}

func TestHeapFreeDiscipline(t *testing.T) {
	h := nativemem.NewHeap()

	if err := h.Free(nil); err != nil {
		t.Errorf("Free(nil) = %v, expected no-op", err)
	}

	p, err := h.Alloc(8)
	if err != nil {
		t.Fatal(err)
	}
	if err := h.Free(p); err != nil {
		t.Fatal(err)
	}
	err = h.Free(p)
	if !errors.Is(err, nativemem.ErrBadFree) {
		t.Errorf("double free = %v, expected ErrBadFree", err)
	}

	var local byte
	err = h.Free(unsafe.Pointer(&local))
	if !errors.Is(err, nativemem.ErrBadFree) {
		t.Errorf("foreign free = %v, expected ErrBadFree", err)
	}
}

func TestHeapLimit(t *testing.T) {
	h := nativemem.NewHeap()
	h.Limit = 16

	p, err := h.Alloc(12)
	if err != nil {
		t.Fatal(err)
	}
	_, err = h.Alloc(8)
	if !errors.Is(err, nativemem.ErrExhausted) {
		t.Errorf("over-limit alloc = %v, expected ErrExhausted", err)
	}

	// freeing makes room again
	if err := h.Free(p); err != nil {
		t.Fatal(err)
	}
	if _, err := h.Alloc(8); err != nil {
		t.Errorf("alloc after free = %v", err)
	}
}

func TestHeapCounters(t *testing.T) {
	h := nativemem.NewHeap()
	var ptrs []unsafe.Pointer
	for i := 0; i < 5; i++ {
		p, err := h.Alloc(i * 4)
		if err != nil {
			t.Fatal(err)
		}
		ptrs = append(ptrs, p)
	}
	for _, p := range ptrs {
		if err := h.Free(p); err != nil {
			t.Fatal(err)
		}
	}
	if h.TotalAllocs() != 5 || h.TotalFrees() != 5 {
		t.Errorf("counters = %d/%d, expected 5/5", h.TotalAllocs(), h.TotalFrees())
	}
	if h.LiveAllocs() != 0 {
		t.Errorf("leaked %d blocks", h.LiveAllocs())
	}
}

func TestHeapZeroValue(t *testing.T) {
	var h nativemem.Heap
	p, err := h.Alloc(4)
	if err != nil {
		t.Fatal(err)
	}
	if err := h.Free(p); err != nil {
		t.Fatal(err)
	}
}
