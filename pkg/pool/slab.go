package pool

import "unsafe"

// AllocSlab draws n contiguous, zeroed T values from the pool's
// aligned-large path (page-aligned, tracked on the large list like any
// other aligned-large allocation) and returns them as a slice.
//
// This is the pool-backed slab source radix trees use for node storage
// (spec.md §4.2): the same shape as the teacher's arenaAllocSlice[T],
// generalized from a single C arena to the pool's chunk/large split.
//
// Safety invariant callers must preserve: every pointer stored in a T
// value returned by AllocSlab must point only at memory that is itself
// kept reachable independently of this slab (e.g. another AllocSlab
// result retained in a slice field) -- the Go runtime does not scan this
// memory for pointers (it was obtained as raw bytes), so any pointer
// whose sole reachability path runs through a slab would be invisible to
// the garbage collector.
func AllocSlab[T any](p *Pool, n int) ([]T, error) {
	if n <= 0 {
		return nil, nil
	}
	var zero T
	elemSize := int(unsafe.Sizeof(zero))
	buf, err := p.AllocAligned(elemSize*n, pageSize())
	if err != nil {
		return nil, err
	}
	clear(buf)
	return unsafe.Slice((*T)(unsafe.Pointer(&buf[0])), n), nil
}
