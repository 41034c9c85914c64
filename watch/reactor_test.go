package watch

import (
	"context"
	"path/filepath"
	"testing"

	"webpconv/convert"
)

func TestReactor_AddedGenerates(t *testing.T) {
	r, fs, enc := newTestReactor(t, "out")
	src := filepath.Join("src", "a", "b.png")
	write(t, fs, src, pngBytes(t, 1))

	results := r.React(context.Background(), FileEvent{Path: src, Kind: Added})

	if len(results) != 1 || results[0].Outcome != convert.Succeeded {
		t.Fatalf("React(add) = %+v", results)
	}
	if !exists(t, fs, filepath.Join("out", "a", "b.png.webp")) {
		t.Error("output not generated")
	}
	if calls, _ := enc.snapshot(); len(calls) != 1 {
		t.Errorf("encoder calls = %v", calls)
	}
}

func TestReactor_AddedWebpIgnored(t *testing.T) {
	r, fs, enc := newTestReactor(t, "")
	path := filepath.Join("src", "a.png.webp")
	write(t, fs, path, tinyWebp)

	if results := r.React(context.Background(), FileEvent{Path: path, Kind: Added}); len(results) != 0 {
		t.Errorf("React(add webp) = %+v, want nothing", results)
	}
	if calls, _ := enc.snapshot(); len(calls) != 0 {
		t.Errorf("encoder called for a webp")
	}
}

func TestReactor_ChangedDeletesBeforeRegenerating(t *testing.T) {
	r, fs, enc := newTestReactor(t, "")
	src := filepath.Join("src", "a.png")
	write(t, fs, src, pngBytes(t, 1))
	write(t, fs, src+".webp", []byte("stale"))

	results := r.React(context.Background(), FileEvent{Path: src, Kind: Changed})

	if len(results) != 2 {
		t.Fatalf("React(change) = %+v, want delete then generate", results)
	}
	if results[0].Action != convert.ActionDeleteWebp || results[0].Outcome != convert.Succeeded {
		t.Errorf("first result = %+v, want webp deletion", results[0])
	}
	if results[1].Action != convert.ActionGenerate || results[1].Outcome != convert.Succeeded {
		t.Errorf("second result = %+v, want generation", results[1])
	}
	_, existed := enc.snapshot()
	if len(existed) != 1 || existed[0] {
		t.Errorf("stale webp still present when the encoder ran: %v", existed)
	}
}

func TestReactor_ChangedWithSameContentIsNoop(t *testing.T) {
	r, fs, enc := newTestReactor(t, "")
	src := filepath.Join("src", "a.png")
	write(t, fs, src, pngBytes(t, 1))

	r.React(context.Background(), FileEvent{Path: src, Kind: Added})
	if results := r.React(context.Background(), FileEvent{Path: src, Kind: Changed}); len(results) != 0 {
		t.Errorf("React(change, same bytes) = %+v, want nothing", results)
	}

	write(t, fs, src, pngBytes(t, 3))
	if results := r.React(context.Background(), FileEvent{Path: src, Kind: Changed}); len(results) != 2 {
		t.Errorf("React(change, new bytes) = %+v, want delete then generate", results)
	}
	if calls, _ := enc.snapshot(); len(calls) != 2 {
		t.Errorf("encoder calls = %v, want 2", calls)
	}
}

func TestReactor_SourceRemovedDeletesOutput(t *testing.T) {
	r, fs, _ := newTestReactor(t, "out")
	src := filepath.Join("src", "a.jpg")
	out := filepath.Join("out", "a.jpg.webp")
	write(t, fs, out, tinyWebp)

	results := r.React(context.Background(), FileEvent{Path: src, Kind: Removed})

	if len(results) != 1 || results[0].Outcome != convert.Succeeded {
		t.Fatalf("React(unlink source) = %+v", results)
	}
	if exists(t, fs, out) {
		t.Error("output of removed source still present")
	}
}

func TestReactor_SourceRemovedWithoutOutput(t *testing.T) {
	r, _, _ := newTestReactor(t, "out")
	if results := r.React(context.Background(), FileEvent{Path: filepath.Join("src", "a.jpg"), Kind: Removed}); len(results) != 0 {
		t.Errorf("React() = %+v, want nothing", results)
	}
}

func TestReactor_WebpRemoved(t *testing.T) {
	tests := []struct {
		name         string
		withSource   bool
		outputExists bool
		converting   bool
		wantGenerate bool
	}{
		{"source present regenerates", true, false, false, true},
		{"source gone is a no-op", false, false, false, false},
		{"output already recreated", true, true, false, false},
		{"source being converted", true, false, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, fs, enc := newTestReactor(t, "")
			src := filepath.Join("src", "a.png")
			if tt.withSource {
				write(t, fs, src, pngBytes(t, 1))
			}
			if tt.outputExists {
				write(t, fs, src+".webp", tinyWebp)
			}
			if tt.converting {
				r.begin(src)
				defer r.end(src)
			}

			results := r.React(context.Background(), FileEvent{Path: src + ".webp", Kind: Removed})

			if got := len(results) == 1; got != tt.wantGenerate {
				t.Fatalf("React(unlink webp) = %+v, want generate=%v", results, tt.wantGenerate)
			}
			if calls, _ := enc.snapshot(); (len(calls) == 1) != tt.wantGenerate {
				t.Errorf("encoder calls = %v", calls)
			}
			if tt.wantGenerate && !exists(t, fs, src+".webp") {
				t.Error("webp not regenerated")
			}
		})
	}
}

func TestReactor_DirectoryEventsOnlyLog(t *testing.T) {
	r, _, enc := newTestReactor(t, "")
	for _, kind := range []EventKind{AddedDir, RemovedDir} {
		if results := r.React(context.Background(), FileEvent{Path: "src/sub", Kind: kind}); len(results) != 0 {
			t.Errorf("React(%s) = %+v", kind, results)
		}
	}
	if calls, _ := enc.snapshot(); len(calls) != 0 {
		t.Errorf("encoder calls = %v", calls)
	}
}
