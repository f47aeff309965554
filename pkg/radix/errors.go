package radix

import "github.com/pkg/errors"

// ErrBusy is returned by Insert when the target prefix already carries a
// value (ngx_radix32tree_insert's NGX_BUSY).
var ErrBusy = errors.New("radix: prefix already occupied")

// ErrNotFound is returned by Delete when mask walks off the tree before
// reaching a node (ngx_radix32tree_delete's NGX_ERROR case where the walk
// hits a nil child) or when the matched node has children and carries no
// value to clear. A matched leaf is unlinked whatever its value.
var ErrNotFound = errors.New("radix: prefix not found")
