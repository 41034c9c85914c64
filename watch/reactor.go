package watch

import (
	"context"
	"io"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/spf13/afero"

	"webpconv/convert"
	"webpconv/logger"
)

// Reactor maps one FileEvent to the conversions and deletions that keep the
// output tree in sync. It only remembers content hashes of converted
// sources, so an editor rewriting identical bytes does not trigger work.
type Reactor struct {
	fs         afero.Fs
	dispatcher *convert.Dispatcher
	resolver   *convert.Resolver
	console    *logger.Console

	mu       sync.Mutex
	hashes   map[string]uint64
	inflight map[string]int
}

func NewReactor(fs afero.Fs, dispatcher *convert.Dispatcher, console *logger.Console) *Reactor {
	return &Reactor{
		fs:         fs,
		dispatcher: dispatcher,
		resolver:   dispatcher.Resolver(),
		console:    console,
		hashes:     make(map[string]uint64),
		inflight:   make(map[string]int),
	}
}

func (r *Reactor) React(ctx context.Context, ev FileEvent) []convert.Result {
	switch ev.Kind {
	case AddedDir:
		r.console.Success("[add new dir] %s", ev.Path)
	case RemovedDir:
		r.console.Success("[delete old dir] %s", ev.Path)
	case Added:
		if convert.IsSourceImage(ev.Path) {
			r.console.Success("[add new img] %s [size is: %s]", ev.Path, r.size(ev.Path))
			return []convert.Result{r.generate(ctx, ev.Path)}
		}
	case Changed:
		if convert.IsSourceImage(ev.Path) {
			return r.changed(ctx, ev.Path)
		}
	case Removed:
		if convert.IsWebp(ev.Path) {
			return r.webpRemoved(ctx, ev.Path)
		}
		if convert.IsSourceImage(ev.Path) {
			return r.sourceRemoved(ev.Path)
		}
	}
	return nil
}

// changed drops the stale webp before regenerating it.
func (r *Reactor) changed(ctx context.Context, path string) []convert.Result {
	r.begin(path)
	defer r.end(path)

	target := r.resolver.Target(path)

	if sum, err := r.hash(path); err == nil && r.exists(target) {
		r.mu.Lock()
		prev, seen := r.hashes[path]
		r.mu.Unlock()
		if seen && prev == sum {
			r.console.Debug("[change the img] %s content unchanged, skipped", path)
			return nil
		}
	}

	r.console.Success("[change the img] %s [size is: %s]", path, r.size(path))

	var results []convert.Result
	if r.exists(target) {
		res := r.dispatcher.Remove(target)
		r.console.Success("[delete old webp] %s %s", target, res.Outcome)
		results = append(results, res)
	}
	return append(results, r.generate(ctx, path))
}

func (r *Reactor) sourceRemoved(path string) []convert.Result {
	r.forget(path)

	target := r.resolver.Target(path)
	if !r.exists(target) {
		return nil
	}
	res := r.dispatcher.Remove(target)
	r.console.Success("[delete old webp] %s %s", target, res.Outcome)
	return []convert.Result{res}
}

// webpRemoved regenerates an output deleted by hand, as long as its source
// is still around and nothing has recreated the output meanwhile.
func (r *Reactor) webpRemoved(ctx context.Context, path string) []convert.Result {
	src, ok := r.resolver.Source(path)
	if !ok {
		return nil
	}
	if !r.exists(src) {
		r.console.Warn("[deleteWebp no such file] %s", src)
		return nil
	}
	if r.busy(src) {
		r.console.Debug("[deleteWebp] %s is being converted, skipped", src)
		return nil
	}
	if r.exists(path) {
		return nil
	}
	return []convert.Result{r.generate(ctx, src)}
}

func (r *Reactor) generate(ctx context.Context, path string) convert.Result {
	r.begin(path)
	defer r.end(path)

	res := r.dispatcher.Generate(ctx, path)
	if res.Outcome != convert.Succeeded {
		return res
	}
	if sum, err := r.hash(path); err == nil {
		r.mu.Lock()
		r.hashes[path] = sum
		r.mu.Unlock()
	}
	return res
}

// begin and end bracket work on a source; calls nest.
func (r *Reactor) begin(path string) {
	r.mu.Lock()
	r.inflight[path]++
	r.mu.Unlock()
}

func (r *Reactor) end(path string) {
	r.mu.Lock()
	if r.inflight[path]--; r.inflight[path] <= 0 {
		delete(r.inflight, path)
	}
	r.mu.Unlock()
}

func (r *Reactor) busy(path string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.inflight[path] > 0
}

func (r *Reactor) forget(path string) {
	r.mu.Lock()
	delete(r.hashes, path)
	r.mu.Unlock()
}

func (r *Reactor) hash(path string) (uint64, error) {
	f, err := r.fs.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	d := xxhash.New()
	if _, err := io.Copy(d, f); err != nil {
		return 0, err
	}
	return d.Sum64(), nil
}

func (r *Reactor) exists(path string) bool {
	ok, err := afero.Exists(r.fs, path)
	return err == nil && ok
}

func (r *Reactor) size(path string) string {
	info, err := r.fs.Stat(path)
	if err != nil {
		return "?"
	}
	return logger.ByteSize(info.Size())
}
