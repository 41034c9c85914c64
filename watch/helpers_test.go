package watch

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/png"
	"io"
	"path/filepath"
	"sync"
	"testing"

	"github.com/spf13/afero"

	"webpconv/convert"
	"webpconv/logger"
)

var tinyWebp, _ = base64.StdEncoding.DecodeString("UklGRhoAAABXRUJQVlA4TA0AAAAvAAAAEAcQERGIiP4HAA==")

func quietConsole() *logger.Console {
	return logger.NewConsole(&logger.Options{Output: io.Discard})
}

func pngBytes(t *testing.T, w int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, w, 1))); err != nil {
		t.Fatalf("png.Encode() error = %v", err)
	}
	return buf.Bytes()
}

// recordingEncoder notes, for every call, whether the destination already
// existed when the encoder was asked to write it.
type recordingEncoder struct {
	fs afero.Fs

	mu         sync.Mutex
	calls      []string
	dstExisted []bool
}

func (e *recordingEncoder) Name() string { return "recording" }

func (e *recordingEncoder) Encode(_ context.Context, src, dst string, _ int) error {
	existed, _ := afero.Exists(e.fs, dst)
	e.mu.Lock()
	e.calls = append(e.calls, src)
	e.dstExisted = append(e.dstExisted, existed)
	e.mu.Unlock()
	return afero.WriteFile(e.fs, dst, tinyWebp, 0o644)
}

func (e *recordingEncoder) snapshot() ([]string, []bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.calls...), append([]bool(nil), e.dstExisted...)
}

func newTestReactor(t *testing.T, outputRoot string) (*Reactor, afero.Fs, *recordingEncoder) {
	t.Helper()
	fs := afero.NewMemMapFs()
	if err := fs.MkdirAll("src", 0o755); err != nil {
		t.Fatal(err)
	}
	enc := &recordingEncoder{fs: fs}
	req := convert.Request{Action: convert.ActionGenerate, Watch: true, InputPath: "src", OutputPath: outputRoot, Recursive: true, Quality: 75}
	res := convert.NewResolver(fs, req.InputPath, req.OutputPath, req.Recursive)
	d := convert.NewDispatcher(fs, res, enc, req, quietConsole())
	return NewReactor(fs, d, quietConsole()), fs, enc
}

func write(t *testing.T, fs afero.Fs, path string, data []byte) {
	t.Helper()
	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := afero.WriteFile(fs, path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func exists(t *testing.T, fs afero.Fs, path string) bool {
	t.Helper()
	ok, err := afero.Exists(fs, path)
	if err != nil {
		t.Fatal(err)
	}
	return ok
}
