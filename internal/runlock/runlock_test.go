package runlock

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestAcquireThenReleaseRoundTrips(t *testing.T) {
	dir := t.TempDir()
	l := New(dir)
	if err := l.Acquire(); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, ".run.lock")); err != nil {
		t.Fatalf("expected lock file to exist: %v", err)
	}
	if err := l.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
}

func TestAcquireFailsWhenAlreadyHeld(t *testing.T) {
	dir := t.TempDir()
	first := New(dir)
	if err := first.Acquire(); err != nil {
		t.Fatalf("first Acquire: %v", err)
	}
	defer first.Release()

	second := New(dir)
	err := second.Acquire()
	if !errors.Is(err, ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
}

func TestReleaseIsSafeWithoutAcquire(t *testing.T) {
	dir := t.TempDir()
	l := New(dir)
	if err := l.Release(); err != nil {
		t.Fatalf("Release without Acquire: %v", err)
	}
}
