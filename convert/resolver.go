package convert

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

var ErrNotDirectory = errors.New("exists and is not a directory")

// Resolver maps source images under an input root to webp files under an
// output root. With no output root the webp is written next to its source.
type Resolver struct {
	fs         afero.Fs
	inputRoot  string
	outputRoot string
	recursive  bool
}

func NewResolver(fs afero.Fs, inputRoot, outputRoot string, recursive bool) *Resolver {
	r := &Resolver{fs: fs, recursive: recursive}
	if inputRoot != "" {
		r.inputRoot = filepath.Clean(inputRoot)
	}
	if outputRoot != "" {
		r.outputRoot = filepath.Clean(outputRoot)
	}
	return r
}

// Target returns the webp path for filePath without touching the filesystem.
func (r *Resolver) Target(filePath string) string {
	if r.outputRoot == "" {
		return filePath + WebpExt
	}
	return filepath.Join(r.outputDir(filePath), filepath.Base(filePath)) + WebpExt
}

func (r *Resolver) outputDir(filePath string) string {
	if !r.recursive {
		return r.outputRoot
	}
	rel, err := filepath.Rel(r.inputRoot, filepath.Dir(filePath))
	if err != nil || outside(rel) {
		return r.outputRoot
	}
	return filepath.Join(r.outputRoot, rel)
}

// Resolve is Target plus creation of any missing output directories. It is
// safe to call repeatedly and from several goroutines.
func (r *Resolver) Resolve(filePath string) (string, error) {
	target := r.Target(filePath)
	dir := filepath.Dir(target)

	if info, err := r.fs.Stat(dir); err == nil {
		if !info.IsDir() {
			return "", fmt.Errorf("output directory %s %w", dir, ErrNotDirectory)
		}
		return target, nil
	}

	if err := r.fs.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory %s: %w", dir, err)
	}
	return target, nil
}

// Source maps a generated webp back to the image it was made from. ok is
// false when webpPath does not look like one of our outputs.
func (r *Resolver) Source(webpPath string) (string, bool) {
	if !IsWebp(webpPath) {
		return "", false
	}
	stem := strings.TrimSuffix(webpPath, filepath.Ext(webpPath))
	if !IsSourceImage(stem) {
		return "", false
	}
	if r.outputRoot == "" {
		return stem, true
	}

	base := filepath.Base(stem)
	if !r.recursive {
		return filepath.Join(r.inputRoot, base), true
	}
	rel, err := filepath.Rel(r.outputRoot, filepath.Dir(stem))
	if err != nil || outside(rel) {
		return stem, true
	}
	return filepath.Join(r.inputRoot, rel, base), true
}

func outside(rel string) bool {
	return rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
