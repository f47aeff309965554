// Package pool implements a region-based memory pool: a singly-linked
// chain of fixed-size chunks serving a bump-pointer fast path for small
// allocations, a side list of individually-freeable large allocations,
// and a LIFO stack of deferred cleanup actions run at destruction.
//
// It is the Go rendition of nginx's ngx_pool_t (src/core/ngx_palloc.c):
// same chunk-chain/large-list/cleanup-stack split, same "current" cursor
// advancement heuristic, same single-owner, non-reentrant contract. See
// SPEC_FULL.md for the full requirements this package implements.
package pool

import (
	"os"

	"k8s.io/klog/v2"
)

// DefaultAlignment is the alignment used by the aligned allocation path,
// matching the platform pool alignment called out in spec.md §4.1 (16
// bytes is the conventional 64-bit choice; ngx_palloc uses NGX_ALIGNMENT,
// sizeof(unsigned long), which is also 8 or 16 depending on platform).
const DefaultAlignment = 16

// failedThreshold is the number of allocation failures a chunk tolerates
// before the pool's "current" cursor is advanced past it. The count is
// compared before it is incremented, so current moves past a chunk on
// that chunk's 6th-or-later failure. ngx_palloc_block uses the same
// literal (`p->d.failed++ > 4`).
const failedThreshold = 4

// maxLargeTombstoneScan bounds how many large-list entries are inspected
// for a reusable tombstone before giving up and appending a fresh entry
// (ngx_palloc_large: `if (n++ > 3) break;`, i.e. at most 4 entries).
const maxLargeTombstoneScan = 4

// pageSize returns the platform's page size, used to derive
// MaxAllocFromPool and the radix tree's default preallocation depth.
func pageSize() int {
	if sz := os.Getpagesize(); sz > 0 {
		return sz
	}
	return 4096
}

// chunk is one contiguous allocation from the underlying Allocator,
// hosting a bump-pointer region for small allocations.
type chunk struct {
	buf    []byte
	last   int // bump cursor, offset into buf
	failed int // allocation attempts that failed to fit since creation
	next   *chunk
}

func (c *chunk) end() int { return len(c.buf) }

// largeEntry is one node of the pool's large-allocation list.
// alloc == nil marks a tombstone: the backing memory has been freed but
// the entry itself is kept for reuse by a later large allocation.
type largeEntry struct {
	alloc []byte
	next  *largeEntry
}

// cleanupEntry is one node of the pool's LIFO cleanup stack.
// handler == nil means "skip me" (either never installed, or already
// run via RunCleanupForFD).
type cleanupEntry struct {
	handler func(data []byte)
	data    []byte

	// isCloseFile and fileFD identify an entry installed by
	// CleanupCloseFile so RunCleanupForFD can find and fire it early,
	// mirroring ngx_pool_cleanup_t's is_file file descriptor tagging.
	isCloseFile bool
	fileFD      int

	next *cleanupEntry
}

// Cleanup is the handle returned by RegisterCleanup so the caller can
// install a handler and populate its data.
type Cleanup struct {
	entry *cleanupEntry
}

// SetHandler installs the function to run at Destroy time.
func (c *Cleanup) SetHandler(h func(data []byte)) {
	c.entry.handler = h
}

// Data returns the bytes allocated for this cleanup entry (nil if
// RegisterCleanup was called with size 0).
func (c *Cleanup) Data() []byte {
	return c.entry.data
}

// Pool is a chain of chunks plus a large-allocation list and a cleanup
// stack. The zero value is not usable; construct with Create.
//
// Pool is single-owner: no method is safe for concurrent use, matching
// spec.md §5 ("strictly single-owner, cooperative... no operation is
// reentrant or thread-safe").
type Pool struct {
	allocator Allocator
	log       klog.Logger

	chunkSize int
	max       int // small-allocation threshold

	first   *chunk
	current *chunk

	large   *largeEntry
	cleanup *cleanupEntry
}

// Option configures a Pool at Create time.
type Option func(*Pool)

// WithAllocator overrides the Allocator used for chunk, large, and
// aligned-large allocations. Defaults to DefaultAllocator.
func WithAllocator(a Allocator) Option {
	return func(p *Pool) { p.allocator = a }
}

// MaxAllocFromPool is the hard cap on the small-allocation threshold:
// page_size - 1. Requests above this size always go through the large
// path, regardless of chunk size, per spec.md §4.1's rationale (a
// request that size forces a new chunk anyway, so there is nothing to
// gain from the small path).
func MaxAllocFromPool() int {
	return pageSize() - 1
}

// Create allocates one chunk of chunkSize bytes and returns a Pool backed
// by it. log is the structured diagnostic sink; it never causes Create
// to fail. Returns ErrOutOfMemory if the underlying allocator fails.
func Create(chunkSize int, log klog.Logger, opts ...Option) (*Pool, error) {
	p := &Pool{
		allocator: DefaultAllocator,
		log:       log,
		chunkSize: chunkSize,
	}
	for _, opt := range opts {
		opt(p)
	}

	c, err := p.newChunk(chunkSize)
	if err != nil {
		return nil, err
	}
	p.first = c
	p.current = c

	maxAlloc := MaxAllocFromPool()
	p.max = chunkSize
	if p.max > maxAlloc {
		p.max = maxAlloc
	}

	p.log.V(4).Info("pool created", "chunkSize", chunkSize, "max", p.max)
	return p, nil
}

func (p *Pool) newChunk(size int) (*chunk, error) {
	buf := p.allocator.AlignedAlloc(size, DefaultAlignment)
	if buf == nil {
		return nil, wrapAllocFailure("allocate pool chunk")
	}
	return &chunk{buf: buf}, nil
}

// Alloc returns size aligned bytes from the pool. If size is within the
// small-allocation threshold it is served from the bump-pointer chunk
// chain; otherwise it is delegated to the large-allocation path.
func (p *Pool) Alloc(size int) ([]byte, error) {
	if size <= p.max {
		return p.allocSmall(size, true)
	}
	return p.allocLarge(size)
}

// AllocUnaligned is identical to Alloc except the bump cursor is not
// rounded up to DefaultAlignment first. Used for raw byte buffers where
// the caller does not need alignment (ngx_pnalloc).
func (p *Pool) AllocUnaligned(size int) ([]byte, error) {
	if size <= p.max {
		return p.allocSmall(size, false)
	}
	return p.allocLarge(size)
}

// AllocZeroed is Alloc followed by a zero-fill of the returned region
// (ngx_pcalloc).
func (p *Pool) AllocZeroed(size int) ([]byte, error) {
	b, err := p.Alloc(size)
	if err != nil {
		return nil, err
	}
	for i := range b {
		b[i] = 0
	}
	return b, nil
}

func (p *Pool) allocSmall(size int, aligned bool) ([]byte, error) {
	for c := p.current; c != nil; c = c.next {
		last := c.last
		if aligned {
			last = alignUp(last, DefaultAlignment)
		}
		if c.end()-last >= size {
			c.last = last + size
			return c.buf[last : last+size : last+size], nil
		}
	}
	return p.grow(size, aligned)
}

// grow allocates a fresh chunk the same size as the pool's first chunk,
// carves size bytes from its front, and appends it to the chain. Before
// appending, it walks from current to the last existing chunk, bumping
// each visited chunk's failed counter and advancing current past any
// chunk whose failed count exceeds failedThreshold -- spec.md §4.1's
// "migrate current forward past persistently-failing chunks" heuristic,
// mirroring ngx_palloc_block's `for (p = current; p->d.next; ...)` loop.
func (p *Pool) grow(size int, aligned bool) ([]byte, error) {
	chunkSize := p.chunkSize
	if size > chunkSize {
		// Alloc never sends a request wider than the chunk size here
		// (p.max <= chunkSize), but the cleanup and large-list entries
		// call allocSmall directly without the p.max check, so a pool
		// with a tiny chunk size can reach here; chunkSize is grown to
		// fit the request.
		chunkSize = size
	}
	next, err := p.newChunk(chunkSize)
	if err != nil {
		return nil, err
	}

	start := 0
	if aligned {
		start = alignUp(start, DefaultAlignment)
	}
	next.last = start + size

	current := p.current
	last := current
	for last.next != nil {
		if last.failed > failedThreshold {
			current = last.next
		}
		last.failed++
		last = last.next
	}
	last.next = next
	if current == nil {
		// Never happens in practice (the walk only ever reassigns current
		// to an existing, non-nil chunk), but mirrors ngx_palloc_block's
		// `pool->current = current ? current : new` for the degenerate
		// case spec.md §4.1 calls out: "if the chain was empty of good
		// chunks, current becomes the new chunk."
		current = next
	}
	p.current = current

	return next.buf[start : start+size : start+size], nil
}

// Free releases a large allocation previously returned by the large path
// back to the underlying allocator. Small allocations cannot be freed
// individually; Free on a pointer that is not a tracked large allocation
// returns Declined without searching the chunk chain.
func (p *Pool) Free(b []byte) FreeResult {
	if len(b) == 0 {
		return Declined
	}
	for l := p.large; l != nil; l = l.next {
		if sameBacking(l.alloc, b) {
			p.allocator.Free(l.alloc)
			l.alloc = nil
			p.log.V(4).Info("freed large allocation")
			return Freed
		}
	}
	return Declined
}

// sameBacking reports whether a and b refer to the same backing array
// (address and length), i.e. whether b is (a view of) the slice a large
// entry is tracking.
func sameBacking(a, b []byte) bool {
	if len(a) != len(b) || len(a) == 0 {
		return false
	}
	return &a[0] == &b[0]
}

// Reset frees every tracked large allocation, then rewinds every chunk's
// bump cursor to its start and zeroes its failed counter, returning the
// pool to its post-Create state without freeing the first chunk. Cleanup
// entries survive a reset unchanged and fire only at Destroy time -- an
// explicit, intentional deviation nginx documents the same way (see
// spec.md §9, "Open question -- cleanup during reset").
func (p *Pool) Reset() {
	for l := p.large; l != nil; l = l.next {
		if l.alloc != nil {
			p.allocator.Free(l.alloc)
			l.alloc = nil
		}
	}
	for c := p.first; c != nil; c = c.next {
		c.last = 0
		c.failed = 0
	}
	p.current = p.first
	p.large = nil
}

// Destroy invokes every cleanup handler (skipping nulled ones) in LIFO
// stack order, frees every non-nil large allocation, then frees every
// chunk in chain order. After Destroy the Pool must not be used again.
func (p *Pool) Destroy() {
	for c := p.cleanup; c != nil; c = c.next {
		if c.handler != nil {
			p.log.V(4).Info("running cleanup")
			c.handler(c.data)
		}
	}
	for l := p.large; l != nil; l = l.next {
		if l.alloc != nil {
			p.allocator.Free(l.alloc)
		}
	}
	for c := p.first; c != nil; {
		next := c.next
		p.allocator.Free(c.buf)
		c = next
	}
	p.first = nil
	p.current = nil
	p.large = nil
	p.cleanup = nil
}
