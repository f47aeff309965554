package radix

import "github.com/kilnhttp/arena/pkg/pool"

// Create allocates a tree's root node from p and, if preallocate is
// nonzero, eagerly builds the first preallocate levels as a complete
// binary tree (every node present, all carrying NoValue) so that the
// first real insertions at shallow depths do not each pay for a fresh
// slab carve. preallocate == -1 selects a platform default sized to pack
// the preallocated levels into a single page, the same table
// ngx_radix_tree_create uses keyed off how many Nodes fit in a page.
func Create(p *pool.Pool, preallocate int) (*Tree, error) {
	t := &Tree{p: p}

	root, err := t.allocNode()
	if err != nil {
		return nil, err
	}
	root.Left, root.Right, root.Parent = nil, nil, nil
	root.Value = NoValue
	t.root = root

	if preallocate == 0 {
		return t, nil
	}

	if preallocate == -1 {
		switch pageSize() / nodeSize {
		case 128: // amd64: 4K page, 32-byte node
			preallocate = 6
		case 256: // i386 / sparc64 64-bit: smaller node or 8K page
			preallocate = 7
		default:
			preallocate = 8
		}
	}

	var mask, inc uint32
	inc = 0x80000000
	for ; preallocate > 0; preallocate-- {
		mask >>= 1
		mask |= 0x80000000

		key := uint32(0)
		for {
			if err := t.Insert32(key, mask, NoValue); err != nil {
				return nil, err
			}
			key += inc
			if key == 0 {
				break
			}
		}
		inc >>= 1
	}

	return t, nil
}

// Insert32 attaches value to the prefix key/mask, walking from the root
// one bit at a time (most significant first) for as long as mask's
// corresponding bit is set, allocating any nodes the walk does not find
// already present. Returns ErrBusy if the prefix already carries a value
// other than NoValue.
func (t *Tree) Insert32(key, mask uint32, value uintptr) error {
	var bit uint32 = 0x80000000

	node := t.root
	next := t.root

	for bit&mask != 0 {
		if key&bit != 0 {
			next = node.Right
		} else {
			next = node.Left
		}
		if next == nil {
			break
		}
		bit >>= 1
		node = next
	}

	if next != nil {
		if node.Value != NoValue {
			return ErrBusy
		}
		node.Value = value
		return nil
	}

	for bit&mask != 0 {
		next, err := t.allocNode()
		if err != nil {
			return err
		}
		next.Left, next.Right = nil, nil
		next.Parent = node
		next.Value = NoValue

		if key&bit != 0 {
			node.Right = next
		} else {
			node.Left = next
		}

		bit >>= 1
		node = next
	}

	node.Value = value
	return nil
}

// Delete32 clears the value at key/mask. If the matched node is an
// internal node (has children) its value is reset to NoValue rather than
// the node itself being unlinked. A leaf node (and any ancestor left
// childless and valueless by the removal) is unlinked and pushed onto
// the tree's free list for reuse by a later Insert32/Insert128.
func (t *Tree) Delete32(key, mask uint32) error {
	var bit uint32 = 0x80000000
	node := t.root

	for node != nil && bit&mask != 0 {
		if key&bit != 0 {
			node = node.Right
		} else {
			node = node.Left
		}
		bit >>= 1
	}

	if node == nil {
		return ErrNotFound
	}

	if node.Right != nil || node.Left != nil {
		if node.Value != NoValue {
			node.Value = NoValue
			return nil
		}
		return ErrNotFound
	}

	for {
		if node.Parent.Right == node {
			node.Parent.Right = nil
		} else {
			node.Parent.Left = nil
		}

		node.Right = t.free
		t.free = node

		node = node.Parent

		if node.Right != nil || node.Left != nil {
			break
		}
		if node.Value != NoValue {
			break
		}
		if node.Parent == nil {
			break
		}
	}

	return nil
}

// Find32 returns the value of the longest matching prefix of key: the
// value of the deepest node on key's root-to-leaf path that carries
// anything other than NoValue. ok is false if no node on the path has a
// value set.
func (t *Tree) Find32(key uint32) (value uintptr, ok bool) {
	var bit uint32 = 0x80000000
	result := NoValue
	node := t.root

	for node != nil {
		if node.Value != NoValue {
			result = node.Value
		}
		if key&bit != 0 {
			node = node.Right
		} else {
			node = node.Left
		}
		bit >>= 1
	}

	if result == NoValue {
		return 0, false
	}
	return result, true
}
