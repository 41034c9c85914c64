// Package watch keeps an output tree in step with a source tree by reacting to
// file-system notifications.
package watch

type EventKind int

const (
	Added EventKind = iota
	Changed
	Removed
	AddedDir
	RemovedDir
)

func (k EventKind) String() string {
	switch k {
	case Added:
		return "add"
	case Changed:
		return "change"
	case Removed:
		return "unlink"
	case AddedDir:
		return "addDir"
	case RemovedDir:
		return "unlinkDir"
	}
	return "unknown"
}

type FileEvent struct {
	Path string
	Kind EventKind
}

// merge folds a new event for a path into one still waiting in the debounce
// window. keep=false means the two cancel out.
func merge(prev, next EventKind) (kind EventKind, keep bool) {
	switch {
	case prev == Added && next == Changed:
		return Added, true
	case prev == Added && next == Removed:
		return 0, false
	case prev == Removed && (next == Added || next == Changed):
		return Changed, true
	}
	return next, true
}
