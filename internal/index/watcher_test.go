package index

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func startWatch(t *testing.T, file string) *atomic.Int32 {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	var reloads atomic.Int32
	go Watch(ctx, file, 50*time.Millisecond, quietLogger(), func() error {
		reloads.Add(1)
		return nil
	})
	time.Sleep(100 * time.Millisecond)
	return &reloads
}

func TestWatcher_WriteTriggersReload(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "registry.json")
	_ = os.WriteFile(file, []byte("{}"), 0o644)

	reloads := startWatch(t, file)

	_ = os.WriteFile(file, []byte(`{"a":{"id":"a","kind":"note"}}`), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return reloads.Load() >= 1
	}, "write did not trigger a reload")
}

func TestWatcher_AtomicReplaceTriggersReload(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "registry.json")
	_ = os.WriteFile(file, []byte("{}"), 0o644)

	reloads := startWatch(t, file)

	tmp := filepath.Join(dir, ".tmp-registry")
	_ = os.WriteFile(tmp, []byte(`{"b":{"id":"b"}}`), 0o644)
	_ = os.Rename(tmp, file)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return reloads.Load() >= 1
	}, "rename over the watched file did not trigger a reload")
}

func TestWatcher_DebouncesBursts(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "registry.json")
	_ = os.WriteFile(file, []byte("{}"), 0o644)

	reloads := startWatch(t, file)

	for range 10 {
		_ = os.WriteFile(file, []byte("{}"), 0o644)
	}

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return reloads.Load() >= 1
	}, "burst did not trigger a reload")
	time.Sleep(200 * time.Millisecond)
	if n := reloads.Load(); n > 2 {
		t.Errorf("reloads = %d, burst should collapse", n)
	}
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "registry.json")
	_ = os.WriteFile(file, []byte("{}"), 0o644)

	reloads := startWatch(t, file)

	_ = os.WriteFile(filepath.Join(dir, "notes.md"), []byte("# hi"), 0o644)
	time.Sleep(300 * time.Millisecond)
	if n := reloads.Load(); n != 0 {
		t.Errorf("reloads = %d, want 0", n)
	}
}
