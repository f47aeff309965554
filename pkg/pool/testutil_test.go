package pool

import (
	"fmt"
	"testing"
)

func requireNoError(t *testing.T, err error, msgAndArgs ...any) {
	t.Helper()
	if err != nil {
		t.Fatalf("%sunexpected error: %v", formatPrefix(msgAndArgs...), err)
	}
}

func requireError(t *testing.T, err error, msgAndArgs ...any) {
	t.Helper()
	if err == nil {
		t.Fatalf("%sexpected an error but got nil", formatPrefix(msgAndArgs...))
	}
}

func assertEqual[T comparable](t *testing.T, expected, actual T, msgAndArgs ...any) {
	t.Helper()
	if expected != actual {
		t.Fatalf("%sexpected %v, got %v", formatPrefix(msgAndArgs...), expected, actual)
	}
}

func formatPrefix(msgAndArgs ...any) string {
	if len(msgAndArgs) == 0 {
		return ""
	}
	format, ok := msgAndArgs[0].(string)
	if ok && len(msgAndArgs) > 1 {
		return fmt.Sprintf(format, msgAndArgs[1:]...) + ": "
	}
	return fmt.Sprintf("%v", msgAndArgs[0]) + ": "
}
