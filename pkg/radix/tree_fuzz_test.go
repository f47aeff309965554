package radix

import (
	"testing"

	"github.com/kilnhttp/arena/pkg/pool"
	"k8s.io/klog/v2"
)

func newFuzzPool(t *testing.T) (*pool.Pool, error) {
	t.Helper()
	return pool.Create(4096, klog.Background())
}

// FuzzInsertFind checks that a tree never panics under arbitrary
// key/mask/value triples and that an exact-width insert is always found
// by its own key immediately afterward -- the bit-walking logic in
// Insert32/Find32 is the part of this package most sensitive to off-by-
// one shifts, so it is the natural fuzz target (the teacher's retrieved
// pack uses *_fuzz_test.go files the same way for bit-level codecs).
func FuzzInsertFind(f *testing.F) {
	f.Add(uint32(0xC0A80000), uint32(0xFFFFFF00), uint64(1))
	f.Add(uint32(0), uint32(0), uint64(0))
	f.Add(uint32(0xFFFFFFFF), uint32(0xFFFFFFFF), uint64(42))

	f.Fuzz(func(t *testing.T, key, mask uint32, value uint64) {
		if uintptr(value) == NoValue {
			// NoValue is reserved -- spec.md §9 requires callers never
			// store it, so Insert32/Find32 are not obligated to round-trip
			// it as a real value.
			t.Skip()
		}

		p, err := newFuzzPool(t)
		if err != nil {
			t.Skip()
		}
		tr, err := Create(p, 0)
		if err != nil {
			t.Skip()
		}

		err = tr.Insert32(key, mask, uintptr(value))
		if err != nil && err != ErrBusy {
			t.Fatalf("unexpected Insert32 error: %v", err)
		}
		if err == ErrBusy {
			return
		}

		got, ok := tr.Find32(key)
		if !ok {
			t.Fatalf("Find32(%#x) found nothing right after Insert32(%#x, %#x, %d)", key, key, mask, value)
		}
		if mask == 0xFFFFFFFF && got != uintptr(value) {
			t.Fatalf("full-mask insert: Find32 returned %d, want %d", got, value)
		}
	})
}
