package convert

import (
	"errors"
	"iter"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

var errStopWalk = errors.New("walk stopped")

// Files lazily yields every non-directory entry under root. Subdirectories are
// descended only when recursive is set. Unreadable entries are yielded with
// their error so the caller decides whether to log or stop. Each range over
// the sequence walks the tree afresh.
func Files(fs afero.Fs, root string, recursive bool) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		_ = afero.Walk(fs, root, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				if !yield(path, err) {
					return errStopWalk
				}
				return nil
			}

			if info.IsDir() {
				if path != root && !recursive {
					return filepath.SkipDir
				}
				return nil
			}

			if !yield(path, nil) {
				return errStopWalk
			}
			return nil
		})
	}
}
