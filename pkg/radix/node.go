// Package radix implements a bitwise radix (prefix) tree keyed on fixed
// width bit strings -- IPv4 32-bit keys and IPv6 128-bit keys, with a
// mask-bounded walk depth so a value can be attached to any prefix, not
// just full-length keys.
//
// It is the Go rendition of nginx's ngx_radix_tree_t (src/core/
// ngx_radix_tree.c): node storage is carved from page-sized slabs drawn
// from a pool.Pool, and nodes freed by Delete are kept on an intrusive
// free list (the freed node's Right field repurposed as the list's next
// pointer) rather than returned to the pool. See SPEC_FULL.md.
package radix

import (
	"os"
	"unsafe"

	"github.com/kilnhttp/arena/pkg/pool"
)

// NoValue is the sentinel stored in a Node's Value field to mean "this
// prefix carries no value," matching ngx_radix_tree.h's
// NGX_RADIX_NO_VALUE ((uintptr_t) -1).
const NoValue = ^uintptr(0)

// Node is one bit position in the tree. Left and Right are the child
// reached by a 0 or 1 bit respectively; Parent lets Delete walk back up
// to prune now-empty ancestors without a caller-maintained path stack.
//
// Node is carved out of a pool-owned slab (see Tree.allocNode): every
// pointer field here must only ever reference another Node from a slab
// kept reachable via Tree.slabs, never memory whose sole reference would
// otherwise be invisible to the garbage collector.
type Node struct {
	Left, Right, Parent *Node
	Value               uintptr
}

var nodeSize = int(unsafe.Sizeof(Node{}))

// Tree is a radix tree plus its own node allocator: a free list of
// deleted nodes and a cursor into the most recently carved slab.
type Tree struct {
	p    *pool.Pool
	root *Node
	free *Node

	// slabs holds every slab ever carved for this tree in an ordinary,
	// GC-scanned slice so the backing arrays -- and therefore every
	// intra-slab Node pointer -- stay reachable for as long as the tree
	// itself does, independent of what pool.AllocSlab returned them as.
	slabs  [][]Node
	cursor []Node
}

// pageSize mirrors pool's own page-size helper; kept local so this
// package does not need pool to export it.
func pageSize() int {
	if sz := os.Getpagesize(); sz > 0 {
		return sz
	}
	return 4096
}

// allocNode returns a fresh, unlinked Node: popped off the free list if
// one is available (ngx_radix_alloc's fast path), otherwise carved from
// the tree's current slab, carving a new page-sized slab from the pool
// first if the current one is exhausted.
func (t *Tree) allocNode() (*Node, error) {
	if t.free != nil {
		n := t.free
		t.free = n.Right
		return n, nil
	}

	if len(t.cursor) == 0 {
		n := pageSize() / nodeSize
		if n < 1 {
			n = 1
		}
		slab, err := pool.AllocSlab[Node](t.p, n)
		if err != nil {
			return nil, err
		}
		t.slabs = append(t.slabs, slab)
		t.cursor = slab
	}

	n := &t.cursor[0]
	t.cursor = t.cursor[1:]
	return n, nil
}
