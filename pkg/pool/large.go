package pool

// sizeOfLargeEntry is the pool-allocated footprint of a largeEntry node.
// Used only to size the small allocation that carries new large-list
// nodes, the same way ngx_palloc_large calls ngx_palloc(pool,
// sizeof(ngx_pool_large_t)) for its own bookkeeping node.
const sizeOfLargeEntry = 32

func (p *Pool) allocLarge(size int) ([]byte, error) {
	buf := p.allocator.Alloc(size)
	if buf == nil {
		return nil, wrapAllocFailure("large allocation")
	}

	n := 0
	for l := p.large; l != nil; l = l.next {
		if l.alloc == nil {
			l.alloc = buf
			return buf, nil
		}
		n++
		if n >= maxLargeTombstoneScan {
			break
		}
	}

	entry, err := p.newLargeEntry(buf)
	if err != nil {
		return nil, err
	}
	entry.next = p.large
	p.large = entry
	return buf, nil
}

// AllocAligned is identical to the large path except the underlying
// allocator is called with alignment, and tombstone reuse is skipped:
// the entry is always fresh and pushed at the head. This is the sole
// source of radix-tree slabs (package radix calls it with alignment set
// to the platform page size).
func (p *Pool) AllocAligned(size, alignment int) ([]byte, error) {
	buf := p.allocator.AlignedAlloc(size, alignment)
	if buf == nil {
		return nil, wrapAllocFailure("aligned large allocation")
	}

	entry, err := p.newLargeEntry(buf)
	if err != nil {
		return nil, err
	}
	entry.next = p.large
	p.large = entry
	return buf, nil
}

func (p *Pool) newLargeEntry(buf []byte) (*largeEntry, error) {
	backing, err := p.allocSmall(sizeOfLargeEntry, true)
	if err != nil {
		return nil, err
	}
	// backing is never read as bytes; it just reserves pool-owned storage
	// for the entry struct itself, the way ngx_palloc_large pulls its
	// ngx_pool_large_t node from the small path.
	_ = backing
	return &largeEntry{alloc: buf}, nil
}
