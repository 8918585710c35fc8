package confloader

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func quietWatcher(t *testing.T, opts ...WatcherOption) *Watcher {
	t.Helper()
	opts = append([]WatcherOption{WithWatcherLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	w, err := NewWatcher(opts...)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	t.Cleanup(func() { w.Stop() })
	return w
}

func TestNewWatcher(t *testing.T) {
	w, err := NewWatcher()
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Stop()

	if w.fsw == nil {
		t.Error("NewWatcher() fsnotify watcher is nil")
	}
	if w.debounce != DefaultDebounce {
		t.Errorf("debounce = %v, want %v", w.debounce, DefaultDebounce)
	}
	if w.logger == nil {
		t.Error("NewWatcher() logger is nil")
	}
}

func TestWatcher_Watch_NonexistentDir(t *testing.T) {
	w := quietWatcher(t)

	if err := w.Watch("/nonexistent/dir/config.yaml"); err == nil {
		t.Error("Watch() should fail for a missing directory")
	}
}

func TestWatcher_StopTwice(t *testing.T) {
	w := quietWatcher(t)
	w.StartAsync()

	if err := w.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
	if err := w.Stop(); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}
}

func TestWatcher_FileChange(t *testing.T) {
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configFile, []byte("log:\n  level: info\n"), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	w := quietWatcher(t)
	if err := w.Watch(configFile); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	changed := make(chan string, 10)
	w.OnChange(func(path string) {
		select {
		case changed <- path:
		default:
		}
	})

	w.StartAsync()
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(configFile, []byte("log:\n  level: debug\n"), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	select {
	case path := <-changed:
		if filepath.Base(path) != "config.yaml" {
			t.Errorf("OnChange() path = %q, want config.yaml", path)
		}
	case <-time.After(2 * time.Second):
		t.Error("OnChange() callback was not triggered within timeout")
	}
}

func TestWatcher_IgnoresSiblingFiles(t *testing.T) {
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configFile, []byte("a: 1\n"), 0644); err != nil {
		t.Fatal(err)
	}

	w := quietWatcher(t)
	if err := w.Watch(configFile); err != nil {
		t.Fatal(err)
	}

	changed := make(chan string, 10)
	w.OnChange(func(path string) { changed <- path })

	w.StartAsync()
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(filepath.Join(tmpDir, "other.yaml"), []byte("b: 2\n"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case path := <-changed:
		t.Errorf("unexpected change notification for %q", path)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcher_Debounce(t *testing.T) {
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configFile, []byte("v: 0\n"), 0644); err != nil {
		t.Fatal(err)
	}

	w := quietWatcher(t, WithDebounce(200*time.Millisecond))
	if err := w.Watch(configFile); err != nil {
		t.Fatal(err)
	}

	changed := make(chan string, 10)
	w.OnChange(func(path string) { changed <- path })

	w.StartAsync()
	time.Sleep(100 * time.Millisecond)

	for i := 1; i <= 3; i++ {
		if err := os.WriteFile(configFile, []byte(fmt.Sprintf("v: %d\n", i)), 0644); err != nil {
			t.Fatal(err)
		}
	}

	select {
	case <-changed:
	case <-time.After(2 * time.Second):
		t.Fatal("OnChange() callback was not triggered within timeout")
	}

	select {
	case path := <-changed:
		t.Errorf("burst of writes produced a second notification for %q", path)
	case <-time.After(500 * time.Millisecond):
	}
}

func TestWatcher_StopDropsPending(t *testing.T) {
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configFile, []byte("v: 0\n"), 0644); err != nil {
		t.Fatal(err)
	}

	w := quietWatcher(t, WithDebounce(300*time.Millisecond))
	if err := w.Watch(configFile); err != nil {
		t.Fatal(err)
	}

	changed := make(chan string, 10)
	w.OnChange(func(path string) { changed <- path })

	w.StartAsync()
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(configFile, []byte("v: 1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)
	if err := w.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	select {
	case path := <-changed:
		t.Errorf("notification for %q after Stop", path)
	case <-time.After(500 * time.Millisecond):
	}
}

func TestWatcher_NotifyRunsEveryCallback(t *testing.T) {
	w := quietWatcher(t, WithDebounce(0))

	var got []string
	w.OnChange(func(path string) { got = append(got, "first:"+path) })
	w.OnChange(func(path string) {
		got = append(got, "second:"+path)
		// Registering from inside a callback must not affect this round.
		w.OnChange(func(string) { got = append(got, "late") })
	})

	w.schedule("/etc/minikv.yaml")

	want := []string{"first:/etc/minikv.yaml", "second:/etc/minikv.yaml"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("callbacks = %v, want %v", got, want)
	}
	if n := len(w.callbacks); n != 3 {
		t.Errorf("len(callbacks) = %d, want 3", n)
	}
}
