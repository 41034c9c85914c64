package convert

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"path/filepath"

	"github.com/gen2brain/webp"
	"github.com/spf13/afero"
)

// DefaultMethod is libwebp's speed/size trade-off (0 fast .. 6 small).
const DefaultMethod = 4

// Library encodes in-process with gen2brain/webp. Animated GIFs contribute
// their first frame only.
type Library struct {
	Fs     afero.Fs
	Method int
}

func NewLibrary(fs afero.Fs) *Library {
	return &Library{Fs: fs, Method: DefaultMethod}
}

func (l *Library) Name() string {
	return "gen2brain/webp"
}

func (l *Library) Encode(ctx context.Context, src, dst string, quality int) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	f, err := l.Fs.Open(src)
	if err != nil {
		return fmt.Errorf("error opening file: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return fmt.Errorf("error decoding image: %w", err)
	}

	tempFile, err := afero.TempFile(l.Fs, filepath.Dir(dst), ".*.webp.tmp")
	if err != nil {
		return fmt.Errorf("error creating temporary file: %w", err)
	}
	tempPath := tempFile.Name()

	defer func() {
		if err != nil {
			l.Fs.Remove(tempPath)
		}
	}()

	if err = l.encode(tempFile, img, quality); err != nil {
		tempFile.Close()
		return fmt.Errorf("error encoding to WebP: %w", err)
	}
	if err = tempFile.Close(); err != nil {
		return fmt.Errorf("error closing temporary file: %w", err)
	}

	if err = l.Fs.Rename(tempPath, dst); err != nil {
		return fmt.Errorf("error renaming file: %w", err)
	}
	return nil
}

func (l *Library) encode(w io.Writer, img image.Image, quality int) error {
	return webp.Encode(w, img, webp.Options{Quality: quality, Method: l.Method})
}

// SelfTest encodes a 1x1 image to check the bundled encoder can run here.
func (l *Library) SelfTest() error {
	return l.encode(io.Discard, image.NewRGBA(image.Rect(0, 0, 1, 1)), 75)
}
