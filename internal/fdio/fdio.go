// Package fdio is the file-descriptor collaborator used by pool's
// built-in cleanup handlers: the thin close(fd)/unlink(path) seam
// ngx_pool_cleanup_file and ngx_pool_delete_file call through, and the
// advisory-lock seam backing pool.CleanupReleaseFileLock. Kept as its
// own internal package, rather than inlined into pool, so tests can
// substitute a fake that records calls without touching the real
// filesystem.
package fdio

import (
	"os"

	"github.com/gofrs/flock"
	"github.com/pkg/errors"
)

// Closer closes a file descriptor and removes a path by name. It is the
// interface pool.CleanupCloseFile and pool.CleanupDeleteThenCloseFile
// collaborate with; implementations need not be safe for concurrent use.
type Closer interface {
	Close(fd int) error
	Unlink(name string) error
}

// Unlocker releases an advisory lock. gofrs/flock's *flock.Flock already
// satisfies this.
type Unlocker interface {
	Unlock() error
}

// OSFiles is the default Closer, backed directly by the os package.
type OSFiles struct{}

func (OSFiles) Close(fd int) error {
	f := os.NewFile(uintptr(fd), "")
	if f == nil {
		return errors.Errorf("fdio: invalid file descriptor %d", fd)
	}
	return f.Close()
}

func (OSFiles) Unlink(name string) error {
	if err := os.Remove(name); err != nil {
		return errors.Wrapf(err, "fdio: unlink %q", name)
	}
	return nil
}

// NewLock opens (creating if necessary) an advisory lock file at path and
// returns it already locked, ready to hand to pool.CleanupReleaseFileLock.
func NewLock(path string) (*flock.Flock, error) {
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, errors.Wrapf(err, "fdio: acquire lock %q", path)
	}
	if !ok {
		return nil, errors.Errorf("fdio: lock %q already held", path)
	}
	return lock, nil
}
