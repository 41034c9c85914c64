package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func startSource(t *testing.T, root string, recursive bool) *Source {
	t.Helper()
	src, err := NewSource(Config{Root: root, Recursive: recursive, Debounce: 20 * time.Millisecond}, quietConsole())
	if err != nil {
		t.Fatalf("NewSource() error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		src.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return src
}

// next returns the first event for which match is true.
func next(t *testing.T, src *Source, match func(FileEvent) bool) FileEvent {
	t.Helper()
	timeout := time.After(3 * time.Second)
	for {
		select {
		case ev := <-src.Events():
			if match(ev) {
				return ev
			}
		case <-timeout:
			t.Fatal("timed out waiting for event")
		}
	}
}

func TestSource_FileLifecycle(t *testing.T) {
	root := t.TempDir()
	src := startSource(t, root, false)

	if err := os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	img := filepath.Join(root, "a.png")
	if err := os.WriteFile(img, pngBytes(t, 1), 0o644); err != nil {
		t.Fatal(err)
	}

	ev := next(t, src, func(FileEvent) bool { return true })
	if ev.Path != img || ev.Kind != Added {
		t.Fatalf("first event = %+v, want add of %s (create and write merged, txt ignored)", ev, img)
	}

	if err := os.Remove(img); err != nil {
		t.Fatal(err)
	}
	ev = next(t, src, func(ev FileEvent) bool { return ev.Path == img })
	if ev.Kind != Removed {
		t.Errorf("event after remove = %+v, want unlink", ev)
	}
}

func TestSource_RecursiveNewDirectory(t *testing.T) {
	root := t.TempDir()
	src := startSource(t, root, true)

	dir := filepath.Join(root, "sub")
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	ev := next(t, src, func(ev FileEvent) bool { return ev.Path == dir })
	if ev.Kind != AddedDir {
		t.Fatalf("event = %+v, want addDir", ev)
	}

	img := filepath.Join(dir, "b.jpg")
	if err := os.WriteFile(img, []byte("jpeg"), 0o644); err != nil {
		t.Fatal(err)
	}
	ev = next(t, src, func(ev FileEvent) bool { return ev.Path == img })
	if ev.Kind != Added {
		t.Errorf("event = %+v, want add in new subdirectory", ev)
	}
	if got := src.WatchedDirs(); got != 2 {
		t.Errorf("WatchedDirs() = %d, want 2", got)
	}
}
