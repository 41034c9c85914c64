package main

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/spf13/afero"

	"webpconv/convert"
	"webpconv/logger"
	"webpconv/watch"
)

type Processor struct {
	Config     *Config
	Console    *logger.Console
	Fs         afero.Fs
	Encoder    convert.Encoder
	Resolver   *convert.Resolver
	Dispatcher *convert.Dispatcher

	stats convert.Stats
}

func NewProcessor(cfg *Config, console *logger.Console, fs afero.Fs, encoder convert.Encoder) *Processor {
	req := cfg.Request

	inputRoot := req.InputPath
	if info, err := fs.Stat(inputRoot); err == nil && !info.IsDir() {
		inputRoot = filepath.Dir(inputRoot)
	}

	resolver := convert.NewResolver(fs, inputRoot, req.OutputPath, req.Recursive)
	return &Processor{
		Config:     cfg,
		Console:    console,
		Fs:         fs,
		Encoder:    encoder,
		Resolver:   resolver,
		Dispatcher: convert.NewDispatcher(fs, resolver, encoder, req, console),
	}
}

func (p *Processor) ProcessPath(ctx context.Context) error {
	req := p.Config.Request

	fileInfo, err := p.Fs.Stat(req.InputPath)
	if err != nil {
		return fmt.Errorf("path validation error: %w", err)
	}

	if req.OutputPath != "" {
		if err := p.Fs.MkdirAll(req.OutputPath, 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}

	mode := string(req.Action)
	if req.Watch {
		mode = "watch"
	}
	p.Console.Info("%s is beginning at %s", mode, time.Now().Format("2006-01-02 15:04:05"))
	p.Console.Info("inputPath: %s", req.InputPath)
	p.Console.Info("outputPath: %s", firstNonEmpty(req.OutputPath, req.InputPath))

	switch {
	case req.Watch:
		return p.Watch(ctx, req.InputPath)
	case fileInfo.IsDir():
		return p.ProcessDirectory(ctx, req.InputPath)
	default:
		return p.ProcessSingleFile(ctx, req.InputPath)
	}
}

func (p *Processor) ProcessDirectory(ctx context.Context, dirPath string) error {
	req := p.Config.Request
	p.Console.Info("Processing directory: %s (action: %s, recursive: %v, workers: %d, quality: %d, encoder: %s)",
		dirPath, req.Action, req.Recursive, p.Config.Workers, req.Quality, p.Encoder.Name())

	total := p.countFiles(dirPath)
	if total == 0 {
		p.Console.Warn("No files found to process")
		return nil
	}

	p.Console.Info("Starting batch processing of %d files", total)
	timer := p.Console.StartTimer("Batch")

	if err := p.processFilesParallel(ctx, dirPath, total, &p.stats); err != nil {
		return err
	}

	p.displayResults(p.stats.Snapshot(), timer.End())
	return nil
}

// countFiles is a first pass over the tree so the progress bar knows its total.
func (p *Processor) countFiles(dirPath string) int {
	n := 0
	for path, err := range convert.Files(p.Fs, dirPath, p.Config.Request.Recursive) {
		if err == nil && convert.IsSupported(path) {
			n++
		}
	}
	return n
}

func (p *Processor) processFilesParallel(ctx context.Context, dirPath string, total int, stats *convert.Stats) error {
	pool, err := ants.NewPool(p.Config.Workers)
	if err != nil {
		return fmt.Errorf("creating worker pool: %w", err)
	}
	defer pool.Release()

	var bar *logger.ProgressBar
	if !p.Config.Request.ShowLog {
		bar = p.Console.NewProgressBar(int64(total), "Processing images")
	}

	var wg sync.WaitGroup
	for path, err := range convert.Files(p.Fs, dirPath, p.Config.Request.Recursive) {
		if ctx.Err() != nil {
			p.Console.Warn("Interrupted, waiting for running conversions")
			break
		}
		if err != nil {
			p.Console.Warn("Cannot read %s: %v", path, err)
			continue
		}
		if !convert.IsSupported(path) {
			p.Dispatcher.Handle(ctx, path)
			continue
		}

		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			res := p.Dispatcher.Handle(ctx, path)
			stats.Record(res)
			if bar != nil {
				bar.Increment(res.Outcome != convert.Failed)
			}
		})
		if submitErr != nil {
			wg.Done()
			p.Console.Error("Cannot schedule %s: %v", path, submitErr)
		}
	}

	wg.Wait()
	if bar != nil {
		bar.Complete()
	}
	return nil
}

func (p *Processor) ProcessSingleFile(ctx context.Context, filePath string) error {
	if !convert.IsSupported(filePath) {
		p.Console.Warn("%s is not supported, only jpg, jpeg, png, gif and webp images are", filePath)
		return nil
	}

	p.Console.Info("Processing file: %s", filePath)
	timer := p.Console.StartTimer("File conversion")

	// A failed conversion is already logged by the dispatcher and only
	// shows up in the summary; it does not fail the run.
	p.stats.Record(p.Dispatcher.Handle(ctx, filePath))
	p.displayResults(p.stats.Snapshot(), timer.End())
	return nil
}

// Summary reports what the last batch or single-file run did.
func (p *Processor) Summary() convert.Summary {
	return p.stats.Snapshot()
}

func (p *Processor) Watch(ctx context.Context, root string) error {
	req := p.Config.Request

	src, err := watch.NewSource(watch.Config{
		Root:      root,
		Recursive: req.Recursive,
		Debounce:  p.Config.Debounce,
	}, p.Console)
	if err != nil {
		return err
	}

	loop := &watch.Loop{
		Reactor: watch.NewReactor(p.Fs, p.Dispatcher, p.Console),
		Console: p.Console,
		Workers: p.Config.Workers,
		Settle:  p.Config.Settle,
		Quality: req.Quality,
	}

	p.Console.Info("Watching %s (%d directories, recursive: %v, encoder: %s); press Ctrl+C to stop",
		root, src.WatchedDirs(), req.Recursive, p.Encoder.Name())

	errc := make(chan error, 1)
	go func() { errc <- src.Run(ctx) }()

	if err := loop.Run(ctx, p.seed(ctx, root, src.Events())); err != nil {
		return err
	}
	return <-errc
}

// seed emits an add event for every image that has no webp yet, then relays
// live events.
func (p *Processor) seed(ctx context.Context, root string, live <-chan watch.FileEvent) <-chan watch.FileEvent {
	out := make(chan watch.FileEvent)

	emit := func(ev watch.FileEvent) bool {
		select {
		case out <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	go func() {
		for path, err := range convert.Files(p.Fs, root, p.Config.Request.Recursive) {
			if err != nil || !convert.IsSourceImage(path) {
				continue
			}
			if ok, _ := afero.Exists(p.Fs, p.Resolver.Target(path)); ok {
				continue
			}
			if !emit(watch.FileEvent{Path: path, Kind: watch.Added}) {
				return
			}
		}
		for {
			select {
			case ev := <-live:
				if !emit(ev) {
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

func (p *Processor) displayResults(s convert.Summary, elapsed time.Duration) {
	req := p.Config.Request

	var ratio float64
	if s.InputBytes > 0 {
		ratio = float64(s.OutputBytes) / float64(s.InputBytes) * 100
	}

	if p.Console.JSON {
		p.Console.Logger.Info().
			Str("action", string(req.Action)).
			Int("succeeded", s.Succeeded).
			Int("failed", s.Failed).
			Int("missing", s.Missing).
			Int("skipped", s.Skipped).
			Int64("input_bytes", s.InputBytes).
			Int64("output_bytes", s.OutputBytes).
			Dur("elapsed", elapsed).
			Msg("summary")
	} else {
		table := p.Console.NewTable([]string{"Metric", "Value"})
		table.AddRow("Action", string(req.Action))
		table.AddRow("Processed files", fmt.Sprintf("%d/%d", s.Succeeded, s.Acted()+s.Missing))
		table.AddRow("Failed files", fmt.Sprintf("%d", s.Failed))
		table.AddRow("Missing files", fmt.Sprintf("%d", s.Missing))
		table.AddRow("Skipped files", fmt.Sprintf("%d", s.Skipped))
		if req.Action == convert.ActionGenerate {
			table.AddRow("Encoder", p.Encoder.Name())
			table.AddRow("Quality", fmt.Sprintf("%d", req.Quality))
			table.AddRow("Original size", logger.ByteSize(s.InputBytes))
			table.AddRow("WebP size", logger.ByteSize(s.OutputBytes))
			table.AddRow("Compression ratio", fmt.Sprintf("%.1f%%", ratio))
			if s.InputBytes > s.OutputBytes && s.OutputBytes > 0 {
				table.AddRow("Space saved", logger.ByteSize(s.InputBytes-s.OutputBytes))
			}
		} else {
			table.AddRow("Freed space", logger.ByteSize(s.InputBytes))
		}
		table.AddRow("Duration", elapsed.String())

		p.Console.Info("Processing Summary:")
		table.Print()
	}

	quality := ""
	if req.Action == convert.ActionGenerate {
		quality = fmt.Sprintf(" quality is %d", req.Quality)
	}
	p.Console.Success("%s is completed at %s [total is %d%s]",
		req.Action, time.Now().Format("2006-01-02 15:04:05"), s.Succeeded, quality)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
