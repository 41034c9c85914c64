package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/afero"

	"webpconv/convert"
	"webpconv/logger"
)

const (
	DefaultDebounce   = 100 * time.Millisecond
	DefaultBufferSize = 256
)

type Config struct {
	Root       string
	Recursive  bool
	Debounce   time.Duration
	BufferSize int
}

type pending struct {
	kind  EventKind
	timer *time.Timer
}

// Source turns fsnotify notifications under Root into debounced FileEvents
// for images and directories. Other files are ignored.
type Source struct {
	cfg     Config
	fs      afero.Fs
	watcher *fsnotify.Watcher
	console *logger.Console

	events chan FileEvent
	done   chan struct{}

	mu      sync.Mutex
	dirs    map[string]bool
	pending map[string]*pending
}

func NewSource(cfg Config, console *logger.Console) (*Source, error) {
	if cfg.Debounce < 0 {
		cfg.Debounce = 0
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultBufferSize
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}

	s := &Source{
		cfg:     cfg,
		fs:      afero.NewOsFs(),
		watcher: w,
		console: console,
		events:  make(chan FileEvent, cfg.BufferSize),
		done:    make(chan struct{}),
		dirs:    make(map[string]bool),
		pending: make(map[string]*pending),
	}

	if err := s.addTree(cfg.Root); err != nil {
		w.Close()
		return nil, err
	}
	return s, nil
}

func (s *Source) Events() <-chan FileEvent {
	return s.events
}

// WatchedDirs returns the number of directories currently subscribed.
func (s *Source) WatchedDirs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.dirs)
}

// Run pumps notifications until ctx is cancelled, then closes the watcher.
// The events channel is never closed; consumers stop on ctx as well.
func (s *Source) Run(ctx context.Context) error {
	defer s.stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return nil
			}
			s.translate(ev)
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return nil
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				s.console.Warn("watch event queue overflowed, some changes under %s were missed", s.cfg.Root)
				continue
			}
			s.console.Error("watch error: %v", err)
		}
	}
}

func (s *Source) stop() {
	s.mu.Lock()
	for path, p := range s.pending {
		p.timer.Stop()
		delete(s.pending, path)
	}
	s.mu.Unlock()

	close(s.done)
	s.watcher.Close()
}

func (s *Source) addTree(root string) error {
	if !s.cfg.Recursive {
		return s.addDir(root)
	}
	return afero.Walk(s.fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			s.console.Debug("cannot access %s: %v", path, err)
			return nil
		}
		if !info.IsDir() {
			return nil
		}
		return s.addDir(path)
	})
}

func (s *Source) addDir(path string) error {
	if err := s.watcher.Add(path); err != nil {
		return fmt.Errorf("watching %s: %w", path, err)
	}
	s.mu.Lock()
	s.dirs[path] = true
	s.mu.Unlock()
	return nil
}

func (s *Source) isDir(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirs[path]
}

func (s *Source) forgetDir(path string) {
	s.mu.Lock()
	prefix := path + string(filepath.Separator)
	for dir := range s.dirs {
		if dir == path || strings.HasPrefix(dir, prefix) {
			delete(s.dirs, dir)
		}
	}
	s.mu.Unlock()
	_ = s.watcher.Remove(path)
}

func (s *Source) translate(ev fsnotify.Event) {
	path := ev.Name

	switch {
	case ev.Has(fsnotify.Create):
		info, err := s.fs.Stat(path)
		if err == nil && info.IsDir() {
			if !s.cfg.Recursive {
				s.send(FileEvent{Path: path, Kind: AddedDir})
				return
			}
			if err := s.addTree(path); err != nil {
				s.console.Error("%v", err)
			}
			s.send(FileEvent{Path: path, Kind: AddedDir})
			s.scanNew(path)
			return
		}
		s.schedule(path, Added)
	case ev.Has(fsnotify.Write):
		s.schedule(path, Changed)
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		if s.isDir(path) {
			if path == s.cfg.Root {
				s.console.Warn("watched directory %s was removed", path)
			}
			s.forgetDir(path)
			s.send(FileEvent{Path: path, Kind: RemovedDir})
			return
		}
		s.schedule(path, Removed)
	}
}

// scanNew reports images that landed in a directory before it was subscribed.
func (s *Source) scanNew(dir string) {
	for path, err := range convert.Files(s.fs, dir, true) {
		if err == nil {
			s.schedule(path, Added)
		}
	}
}

func (s *Source) schedule(path string, kind EventKind) {
	if !convert.IsSupported(path) {
		return
	}
	if s.cfg.Debounce == 0 {
		s.send(FileEvent{Path: path, Kind: kind})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.pending[path]; ok {
		merged, keep := merge(p.kind, kind)
		if !keep {
			p.timer.Stop()
			delete(s.pending, path)
			return
		}
		p.kind = merged
		p.timer.Reset(s.cfg.Debounce)
		return
	}

	s.pending[path] = &pending{
		kind:  kind,
		timer: time.AfterFunc(s.cfg.Debounce, func() { s.flush(path) }),
	}
}

func (s *Source) flush(path string) {
	s.mu.Lock()
	p, ok := s.pending[path]
	if ok {
		delete(s.pending, path)
	}
	s.mu.Unlock()

	if ok {
		s.send(FileEvent{Path: path, Kind: p.kind})
	}
}

func (s *Source) send(ev FileEvent) {
	select {
	case s.events <- ev:
	case <-s.done:
	}
}
