package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/afero"

	"webpconv/convert"
)

func TestLoop_ReactsAndReports(t *testing.T) {
	r, fs, _ := newTestReactor(t, "out")
	for _, name := range []string{"a.png", "b.png"} {
		write(t, fs, filepath.Join("src", name), pngBytes(t, 1))
	}

	loop := &Loop{Reactor: r, Console: quietConsole(), Workers: 2, Settle: 20 * time.Millisecond, Quality: 75}
	events := make(chan FileEvent, 2)
	events <- FileEvent{Path: filepath.Join("src", "a.png"), Kind: Added}
	events <- FileEvent{Path: filepath.Join("src", "b.png"), Kind: Added}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx, events) }()

	deadline := time.Now().Add(2 * time.Second)
	for !(exists(t, fs, filepath.Join("out", "a.png.webp")) && exists(t, fs, filepath.Join("out", "b.png.webp"))) {
		if time.Now().After(deadline) {
			t.Fatal("outputs not generated in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
	// let the settle timer fire
	time.Sleep(100 * time.Millisecond)

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := loop.Reports(); got != 1 {
		t.Errorf("Reports() = %d, want 1", got)
	}
	if s := loop.Summary(); s.Seen != 0 {
		t.Errorf("stats not reset after report: %+v", s)
	}
}

func TestLoop_NoReportWithoutWork(t *testing.T) {
	r, _, _ := newTestReactor(t, "")
	loop := &Loop{Reactor: r, Console: quietConsole(), Workers: 1, Settle: 10 * time.Millisecond}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	events := make(chan FileEvent, 1)
	events <- FileEvent{Path: "src/sub", Kind: AddedDir}
	if err := loop.Run(ctx, events); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := loop.Reports(); got != 0 {
		t.Errorf("Reports() = %d, want 0", got)
	}
}

// slowEncoder takes long enough that fsnotify reports the stale output's
// removal while the new one is still being written.
type slowEncoder struct {
	delay time.Duration
	calls atomic.Int64
}

func (e *slowEncoder) Name() string { return "slow" }

func (e *slowEncoder) Encode(ctx context.Context, _, dst string, _ int) error {
	e.calls.Add(1)
	select {
	case <-time.After(e.delay):
	case <-ctx.Done():
		return ctx.Err()
	}
	return os.WriteFile(dst, tinyWebp, 0o644)
}

func TestLoop_ChangeConvertsOnce(t *testing.T) {
	root := t.TempDir()
	img := filepath.Join(root, "a.png")
	if err := os.WriteFile(img, pngBytes(t, 1), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(img+".webp", tinyWebp, 0o644); err != nil {
		t.Fatal(err)
	}

	fs := afero.NewOsFs()
	enc := &slowEncoder{delay: 400 * time.Millisecond}
	req := convert.Request{Action: convert.ActionGenerate, Watch: true, InputPath: root, Quality: 75}
	d := convert.NewDispatcher(fs, convert.NewResolver(fs, root, "", false), enc, req, quietConsole())
	loop := &Loop{Reactor: NewReactor(fs, d, quietConsole()), Console: quietConsole(), Workers: 4, Settle: 50 * time.Millisecond}

	src := startSource(t, root, false)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx, src.Events()) }()
	defer func() {
		cancel()
		<-done
	}()

	if err := os.WriteFile(img, pngBytes(t, 2), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for enc.calls.Load() == 0 || !exists(t, fs, img+".webp") {
		if time.Now().After(deadline) {
			t.Fatal("webp not regenerated in time")
		}
		time.Sleep(10 * time.Millisecond)
	}
	// give a second conversion time to show up
	time.Sleep(600 * time.Millisecond)

	if got := enc.calls.Load(); got != 1 {
		t.Errorf("encoder calls for one change = %d, want 1", got)
	}
}
