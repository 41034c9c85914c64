package convert

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"io"
	"path/filepath"
	"sync"
	"testing"

	"github.com/spf13/afero"

	"webpconv/logger"
)

// tinyWebp is a 1x1 lossless webp image.
var tinyWebp, _ = base64.StdEncoding.DecodeString("UklGRhoAAABXRUJQVlA4TA0AAAAvAAAAEAcQERGIiP4HAA==")

func quietConsole() *logger.Console {
	return logger.NewConsole(&logger.Options{Output: io.Discard})
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode() error = %v", err)
	}
	return buf.Bytes()
}

func writeFiles(t *testing.T, fs afero.Fs, files map[string][]byte) {
	t.Helper()
	for name, data := range files {
		if err := fs.MkdirAll(filepath.Dir(name), 0o755); err != nil {
			t.Fatalf("MkdirAll() error = %v", err)
		}
		if err := afero.WriteFile(fs, name, data, 0o644); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
	}
}

type fakeEncoder struct {
	fs  afero.Fs
	err error

	mu    sync.Mutex
	calls []string
}

func (f *fakeEncoder) Name() string { return "fake" }

func (f *fakeEncoder) Encode(_ context.Context, src, dst string, _ int) error {
	f.mu.Lock()
	f.calls = append(f.calls, src)
	f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	return afero.WriteFile(f.fs, dst, tinyWebp, 0o644)
}

func (f *fakeEncoder) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}
