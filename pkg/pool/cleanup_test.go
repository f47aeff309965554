package pool

import (
	"testing"

	"k8s.io/klog/v2"
)

type fakeFiles struct {
	closed  []int
	unlinks []string
}

func (f *fakeFiles) Close(fd int) error {
	f.closed = append(f.closed, fd)
	return nil
}

func (f *fakeFiles) Unlink(name string) error {
	f.unlinks = append(f.unlinks, name)
	return nil
}

type fakeLock struct {
	unlocked bool
}

func (f *fakeLock) Unlock() error {
	f.unlocked = true
	return nil
}

func TestRegisterCleanupRunsAtDestroy(t *testing.T) {
	p, err := Create(1024, klog.Background())
	requireNoError(t, err)

	c, err := p.RegisterCleanup(8)
	requireNoError(t, err)
	assertEqual(t, 8, len(c.Data()))

	ran := false
	c.SetHandler(func(data []byte) {
		ran = true
		assertEqual(t, 8, len(data))
	})

	p.Destroy()
	if !ran {
		t.Fatal("expected cleanup handler to run at Destroy")
	}
}

func TestCleanupCloseFile(t *testing.T) {
	p, err := Create(1024, klog.Background())
	requireNoError(t, err)

	files := &fakeFiles{}
	_, err = p.CleanupCloseFile(7, "/tmp/whatever", files)
	requireNoError(t, err)

	p.Destroy()
	assertEqual(t, 1, len(files.closed))
	assertEqual(t, 7, files.closed[0])
}

func TestCleanupDeleteThenCloseFile(t *testing.T) {
	p, err := Create(1024, klog.Background())
	requireNoError(t, err)

	files := &fakeFiles{}
	_, err = p.CleanupDeleteThenCloseFile(7, "/tmp/whatever", files)
	requireNoError(t, err)

	p.Destroy()
	assertEqual(t, 1, len(files.unlinks))
	assertEqual(t, "/tmp/whatever", files.unlinks[0])
	assertEqual(t, 1, len(files.closed))
}

func TestCleanupReleaseFileLock(t *testing.T) {
	p, err := Create(1024, klog.Background())
	requireNoError(t, err)

	lock := &fakeLock{}
	_, err = p.CleanupReleaseFileLock(lock)
	requireNoError(t, err)

	p.Destroy()
	if !lock.unlocked {
		t.Fatal("expected the lock to be released at Destroy")
	}
}

func TestRunCleanupForFDFiresEarlyAndOnlyOnce(t *testing.T) {
	p, err := Create(1024, klog.Background())
	requireNoError(t, err)

	files := &fakeFiles{}
	_, err = p.CleanupCloseFile(9, "/tmp/early", files)
	requireNoError(t, err)

	p.RunCleanupForFD(9)
	assertEqual(t, 1, len(files.closed))

	// Destroy must not run it a second time.
	p.Destroy()
	assertEqual(t, 1, len(files.closed))
}
