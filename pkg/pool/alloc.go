package pool

import (
	"unsafe"

	"github.com/pkg/errors"
)

// Allocator is the external page-allocator collaborator described in the
// pool's contract: it hands back raw, uninitialized byte regions and may
// fail. It stands in for the platform's aligned_alloc/free pair. Pool
// never assumes this succeeds; every call site turns a nil return into
// ErrOutOfMemory.
//
// Implementations need not be safe for concurrent use by multiple
// goroutines: a Pool (and everything built on it) is single-owner, per
// spec.md's Non-goals.
type Allocator interface {
	// Alloc returns a byte slice of exactly size bytes, or nil on failure.
	Alloc(size int) []byte
	// AlignedAlloc returns a byte slice of exactly size bytes whose first
	// byte's address is a multiple of alignment (a power of two), or nil
	// on failure.
	AlignedAlloc(size, alignment int) []byte
	// Free releases a slice previously returned by Alloc/AlignedAlloc.
	// Implementations may no-op if the host runtime's GC makes this
	// unnecessary; Pool calls it anyway so that an Allocator backed by a
	// real arena (mmap, C malloc via cgo, ...) behaves correctly.
	Free(b []byte)
}

// goAllocator is the default Allocator, backed by the Go runtime's own
// allocator. Aligned requests over-allocate and return an aligned
// sub-slice, the same trick used across the retrieved arena
// implementations that avoid cgo (e.g. a chunked bump allocator slicing
// into a []byte with pointer-size alignment).
type goAllocator struct{}

// DefaultAllocator is the Allocator used by Create when none is supplied
// via WithAllocator.
var DefaultAllocator Allocator = goAllocator{}

func (goAllocator) Alloc(size int) []byte {
	if size < 0 {
		return nil
	}
	return make([]byte, size)
}

func (goAllocator) AlignedAlloc(size, alignment int) []byte {
	if size < 0 || alignment <= 0 || alignment&(alignment-1) != 0 {
		return nil
	}
	buf := make([]byte, size+alignment-1)
	if len(buf) == 0 {
		return buf
	}
	base := uintptr(unsafe.Pointer(&buf[0]))
	aligned := (base + uintptr(alignment-1)) &^ uintptr(alignment-1)
	offset := int(aligned - base)
	return buf[offset : offset+size : offset+size]
}

func (goAllocator) Free(_ []byte) {
	// The Go garbage collector reclaims goAllocator memory once
	// unreferenced; nothing to do here. Kept as an explicit no-op (rather
	// than omitted) so swapping in a cgo/mmap-backed Allocator is a
	// drop-in change.
}

// alignUp rounds n up to the next multiple of alignment (a power of two).
func alignUp(n, alignment int) int {
	return (n + alignment - 1) &^ (alignment - 1)
}

func wrapAllocFailure(what string) error {
	return errors.Wrap(ErrOutOfMemory, what)
}
