package watch

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startWatcher(t *testing.T, dir string, debounce time.Duration, filter Filter, timeout time.Duration) (chan []ChangeEvent, context.Context) {
	t.Helper()
	w, err := NewWatcher(dir, debounce, filter, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = w.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	t.Cleanup(cancel)

	out := make(chan []ChangeEvent, 10)
	go func() { _ = w.Run(ctx, out) }()
	return out, ctx
}

func TestWatcher_CreateFileTriggersEvent(t *testing.T) {
	dir := t.TempDir()
	writeGoFile(t, dir, "init.go", "package p\n")
	out, _ := startWatcher(t, dir, 50*time.Millisecond, nil, 3*time.Second)

	writeGoFile(t, dir, "new.go", "package p\nfunc New() {}\n")

	batch := waitForBatch(t, out, 2*time.Second)
	assertContainsPath(t, batch, filepath.Join(dir, "new.go"))
}

func TestWatcher_ModifyFileTriggersEvent(t *testing.T) {
	dir := t.TempDir()
	writeGoFile(t, dir, "main.go", "package p\n")
	out, _ := startWatcher(t, dir, 50*time.Millisecond, nil, 3*time.Second)

	writeGoFile(t, dir, "main.go", "package p\nfunc Hello() {}\n")

	batch := waitForBatch(t, out, 2*time.Second)
	assertContainsPath(t, batch, filepath.Join(dir, "main.go"))
}

func TestWatcher_DeleteFileTriggersEvent(t *testing.T) {
	dir := t.TempDir()
	writeGoFile(t, dir, "del.go", "package p\n")
	out, _ := startWatcher(t, dir, 50*time.Millisecond, nil, 3*time.Second)

	_ = os.Remove(filepath.Join(dir, "del.go"))

	batch := waitForBatch(t, out, 2*time.Second)
	assertContainsPath(t, batch, filepath.Join(dir, "del.go"))
}

func TestWatcher_IgnoredFiles(t *testing.T) {
	tests := []struct {
		name   string
		file   string
		filter Filter
	}{
		{"non-go file", "readme.md", nil},
		{"test file", "cart_test.go", nil},
		{"hidden file", ".scratch.go", nil},
		{"rejected by filter", "cart_gen.go", func(path string) bool {
			return !strings.HasSuffix(path, "_gen.go")
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeGoFile(t, dir, "init.go", "package p\n")
			out, ctx := startWatcher(t, dir, 50*time.Millisecond, tt.filter, time.Second)

			writeGoFile(t, dir, tt.file, "package p\n")

			select {
			case batch := <-out:
				t.Fatalf("expected no events for %s, got %v", tt.file, batch)
			case <-ctx.Done():
			}
		})
	}
}

func TestWatcher_DebounceCoalescesEvents(t *testing.T) {
	dir := t.TempDir()
	writeGoFile(t, dir, "init.go", "package p\n")
	out, _ := startWatcher(t, dir, 200*time.Millisecond, nil, 3*time.Second)

	for i := 0; i < 5; i++ {
		writeGoFile(t, dir, "rapid.go", "package p\n// v"+string(rune('0'+i))+"\n")
		time.Sleep(20 * time.Millisecond)
	}

	batch := waitForBatch(t, out, 2*time.Second)

	count := 0
	for _, ev := range batch {
		if filepath.Base(ev.Path) == "rapid.go" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected 1 coalesced event for rapid.go, got %d", count)
	}
}

func TestWatcher_ContextCancellationStops(t *testing.T) {
	dir := t.TempDir()
	writeGoFile(t, dir, "init.go", "package p\n")

	w, err := NewWatcher(dir, 50*time.Millisecond, nil, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = w.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan []ChangeEvent, 10)

	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, out)
	}()

	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after context cancellation")
	}
}

func TestNewWatcher_MissingDir(t *testing.T) {
	if _, err := NewWatcher(filepath.Join(t.TempDir(), "missing"), time.Millisecond, nil, testLogger()); err == nil {
		t.Fatal("expected an error for a missing directory")
	}
}

func TestSession_MinesOnStartAndOnChange(t *testing.T) {
	dir := t.TempDir()
	writeGoFile(t, dir, "cart.go", "package p\n")

	var mu sync.Mutex
	var passes [][]ChangeEvent
	passed := make(chan struct{}, 10)
	run := func(_ context.Context, changes []ChangeEvent) error {
		mu.Lock()
		passes = append(passes, changes)
		mu.Unlock()
		passed <- struct{}{}
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- NewSession(dir, 50*time.Millisecond, nil, run, testLogger()).Run(ctx) }()

	waitForPass(t, passed)
	writeGoFile(t, dir, "cart.go", "package p\nfunc Total() {}\n")
	waitForPass(t, passed)

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("session returned %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if passes[0] != nil {
		t.Fatalf("initial pass should have no changes, got %v", passes[0])
	}
	assertContainsPath(t, passes[1], filepath.Join(dir, "cart.go"))
}

func TestSession_FailingPassKeepsWatching(t *testing.T) {
	dir := t.TempDir()
	writeGoFile(t, dir, "cart.go", "package p\n")

	passed := make(chan struct{}, 10)
	run := func(context.Context, []ChangeEvent) error {
		passed <- struct{}{}
		return os.ErrInvalid
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	go func() { _ = NewSession(dir, 50*time.Millisecond, nil, run, testLogger()).Run(ctx) }()

	waitForPass(t, passed)
	writeGoFile(t, dir, "cart.go", "package p\n// edited\n")
	waitForPass(t, passed)
}

// --- helpers ---

func writeGoFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func waitForBatch(t *testing.T, ch <-chan []ChangeEvent, timeout time.Duration) []ChangeEvent {
	t.Helper()
	select {
	case batch := <-ch:
		return batch
	case <-time.After(timeout):
		t.Fatal("timed out waiting for batch")
		return nil
	}
}

func waitForPass(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for a mining pass")
	}
}

func assertContainsPath(t *testing.T, batch []ChangeEvent, path string) {
	t.Helper()
	for _, ev := range batch {
		if ev.Path == path {
			return
		}
	}
	t.Fatalf("batch does not contain %s; got %v", path, batch)
}
