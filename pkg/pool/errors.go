package pool

import "github.com/pkg/errors"

// ErrOutOfMemory is returned (often wrapped) whenever the underlying
// allocator fails to satisfy a chunk, large-allocation, or cleanup-entry
// request.
var ErrOutOfMemory = errors.New("pool: out of memory")

// FreeResult is the outcome of Pool.Free.
type FreeResult int

const (
	// Freed means the pointer was tracked as a large allocation and has
	// now been released back to the underlying allocator.
	Freed FreeResult = iota
	// Declined means the pointer was not tracked as a large allocation
	// (it may be a small allocation, or not owned by this pool at all);
	// nothing was freed.
	Declined
)

func (r FreeResult) String() string {
	if r == Freed {
		return "Freed"
	}
	return "Declined"
}
