package convert

import (
	"errors"
	"fmt"
	"image"
	"io"

	"github.com/h2non/filetype"
	"github.com/spf13/afero"
	xwebp "golang.org/x/image/webp"
)

var (
	ErrNotImage    = errors.New("content is not an image")
	ErrEmptyOutput = errors.New("encoder produced an empty file")
)

const headerSize = 261

// sniffImage checks the file's magic bytes, not its name.
func sniffImage(fs afero.Fs, path string) error {
	f, err := fs.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	head := make([]byte, headerSize)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return fmt.Errorf("reading header: %w", err)
	}
	if !filetype.IsImage(head[:n]) {
		return ErrNotImage
	}
	return nil
}

// InspectWebp returns the size and dimensions of an encoded webp file.
func InspectWebp(fs afero.Fs, path string) (int64, image.Config, error) {
	info, err := fs.Stat(path)
	if err != nil {
		return 0, image.Config{}, err
	}
	if info.Size() == 0 {
		return 0, image.Config{}, ErrEmptyOutput
	}

	f, err := fs.Open(path)
	if err != nil {
		return info.Size(), image.Config{}, err
	}
	defer f.Close()

	cfg, err := xwebp.DecodeConfig(f)
	if err != nil {
		return info.Size(), image.Config{}, fmt.Errorf("decoding webp header: %w", err)
	}
	return info.Size(), cfg, nil
}
