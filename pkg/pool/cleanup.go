package pool

import (
	"os"

	"github.com/kilnhttp/arena/internal/fdio"
	"github.com/pkg/errors"
)

// sizeOfCleanupEntry mirrors sizeOfLargeEntry: the pool-allocated
// footprint reserved for a cleanup stack node.
const sizeOfCleanupEntry = 24

// RegisterCleanup allocates a cleanup entry from the pool; if size > 0 it
// also allocates size bytes from the pool and binds them to the entry's
// data, returning a Cleanup handle the caller uses to install a handler
// and populate data. The handler is nil until SetHandler is called --
// nil means "skip me" at Destroy time.
func (p *Pool) RegisterCleanup(size int) (*Cleanup, error) {
	if _, err := p.allocSmall(sizeOfCleanupEntry, true); err != nil {
		return nil, err
	}

	var data []byte
	if size > 0 {
		var err error
		data, err = p.Alloc(size)
		if err != nil {
			return nil, err
		}
	}

	entry := &cleanupEntry{data: data, fileFD: -1}
	entry.next = p.cleanup
	p.cleanup = entry
	p.log.V(4).Info("add cleanup")
	return &Cleanup{entry: entry}, nil
}

// RunCleanupForFD walks the cleanup stack for a close-file entry (one
// registered via CleanupCloseFile) whose bound file descriptor matches
// fd; if found, it runs the handler immediately and clears it so Destroy
// does not re-run it (ngx_pool_run_cleanup_file).
func (p *Pool) RunCleanupForFD(fd int) {
	for c := p.cleanup; c != nil; c = c.next {
		if !c.isCloseFile || c.fileFD != fd || c.handler == nil {
			continue
		}
		c.handler(c.data)
		c.handler = nil
		return
	}
}

// CleanupCloseFile registers the built-in close-file cleanup: at
// Destroy, fd is closed and any error is logged (not propagated),
// matching ngx_pool_cleanup_file.
func (p *Pool) CleanupCloseFile(fd int, name string, files fdio.Closer) (*Cleanup, error) {
	c, err := p.RegisterCleanup(0)
	if err != nil {
		return nil, err
	}
	c.entry.isCloseFile = true
	c.entry.fileFD = fd
	c.SetHandler(func([]byte) {
		if err := files.Close(fd); err != nil {
			p.log.Error(err, "file cleanup: close failed", "fd", fd, "name", name)
		}
	})
	return c, nil
}

// CleanupDeleteThenCloseFile registers the built-in delete-then-close
// cleanup: at Destroy, name is unlinked (ENOENT treated as non-fatal),
// then fd is closed; both failures are logged, never propagated,
// matching ngx_pool_delete_file.
func (p *Pool) CleanupDeleteThenCloseFile(fd int, name string, files fdio.Closer) (*Cleanup, error) {
	c, err := p.RegisterCleanup(0)
	if err != nil {
		return nil, err
	}
	c.SetHandler(func([]byte) {
		if err := files.Unlink(name); err != nil && !os.IsNotExist(errors.Cause(err)) {
			p.log.Error(err, "file cleanup: unlink failed", "name", name)
		}
		if err := files.Close(fd); err != nil {
			p.log.Error(err, "file cleanup: close failed", "fd", fd, "name", name)
		}
	})
	return c, nil
}

// CleanupReleaseFileLock registers a third built-in cleanup that
// releases an advisory file lock at Destroy time, logging (not
// propagating) an unlock failure. This supplements the two nginx file
// handlers with the flock-based equivalent used by request-scoped pools
// that hold a lock across the request's lifetime (see SPEC_FULL.md).
func (p *Pool) CleanupReleaseFileLock(lock fdio.Unlocker) (*Cleanup, error) {
	c, err := p.RegisterCleanup(0)
	if err != nil {
		return nil, err
	}
	c.SetHandler(func([]byte) {
		if err := lock.Unlock(); err != nil {
			p.log.Error(err, "file lock cleanup: unlock failed")
		}
	})
	return c, nil
}
