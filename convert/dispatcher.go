package convert

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/spf13/afero"

	"webpconv/logger"
)

// Dispatcher applies the requested action to individual files. Every method
// is safe to call concurrently; per-file failures are reported in the Result
// and logged, never returned as errors.
type Dispatcher struct {
	fs       afero.Fs
	resolver *Resolver
	encoder  Encoder
	request  Request
	console  *logger.Console
}

func NewDispatcher(fs afero.Fs, resolver *Resolver, encoder Encoder, req Request, console *logger.Console) *Dispatcher {
	return &Dispatcher{
		fs:       fs,
		resolver: resolver,
		encoder:  encoder,
		request:  req,
		console:  console,
	}
}

func (d *Dispatcher) Resolver() *Resolver {
	return d.resolver
}

func (d *Dispatcher) Request() Request {
	return d.request
}

// Handle routes filePath to the action of the request. Files outside the
// action's extension set are skipped without touching them.
func (d *Dispatcher) Handle(ctx context.Context, filePath string) Result {
	if !IsSupported(filePath) {
		d.console.Debug("%s is not a jpg, jpeg, png, gif or webp file, skipped", filePath)
		return Result{Path: filePath, Action: d.request.Action, Outcome: Skipped}
	}

	switch d.request.Action {
	case ActionDeleteWebp:
		if !IsWebp(filePath) {
			return Result{Path: filePath, Action: ActionDeleteWebp, Outcome: Skipped}
		}
		return d.Remove(filePath)
	case ActionDeleteNonWebp:
		if IsWebp(filePath) {
			return Result{Path: filePath, Action: ActionDeleteNonWebp, Outcome: Skipped}
		}
		return d.Remove(filePath)
	default:
		if IsWebp(filePath) {
			return Result{Path: filePath, Action: ActionGenerate, Outcome: Skipped}
		}
		return d.Generate(ctx, filePath)
	}
}

// Generate converts one source image to webp.
func (d *Dispatcher) Generate(ctx context.Context, filePath string) Result {
	res := Result{Path: filePath, Action: ActionGenerate}

	if !IsSourceImage(filePath) {
		res.Outcome = Skipped
		return res
	}

	info, err := d.fs.Stat(filePath)
	if err != nil {
		return d.statFailed(res, err)
	}
	res.InputSize = info.Size()

	if d.request.ShowLog {
		d.console.Log("[read input file] %s [size is: %s]", filePath, logger.ByteSize(res.InputSize))
	}

	if err := sniffImage(d.fs, filePath); err != nil {
		return d.fail(res, err)
	}

	out, err := d.resolver.Resolve(filePath)
	if err != nil {
		return d.fail(res, err)
	}
	res.Output = out

	if c, ok := d.encoder.(*Cwebp); ok && d.request.ShowLog {
		d.console.Debug("%s", c.CommandLine(filePath, out, d.request.Quality))
	}

	start := time.Now()
	err = d.encoder.Encode(ctx, filePath, out, d.request.Quality)
	res.Elapsed = time.Since(start)
	if err != nil {
		return d.fail(res, err)
	}

	size, cfg, err := InspectWebp(d.fs, out)
	res.OutputSize = size
	switch {
	case errors.Is(err, ErrEmptyOutput), errors.Is(err, os.ErrNotExist):
		return d.fail(res, err)
	case err != nil:
		d.console.Warn("[generate webp] %s: %v", out, err)
	default:
		res.Width, res.Height = cfg.Width, cfg.Height
	}

	res.Outcome = Succeeded
	if d.request.ShowLog {
		d.console.Success("[generate webp] %s [old size is: %s webp size is: %s %dx%d] %s",
			out, logger.ByteSize(res.InputSize), logger.ByteSize(res.OutputSize),
			res.Width, res.Height, res.Outcome)
	}
	return res
}

// Remove deletes filePath. A missing file is reported, not treated as an error.
func (d *Dispatcher) Remove(filePath string) Result {
	res := Result{Path: filePath, Action: ActionDeleteNonWebp}
	if IsWebp(filePath) {
		res.Action = ActionDeleteWebp
	}

	info, err := d.fs.Stat(filePath)
	if err != nil {
		return d.statFailed(res, err)
	}
	res.InputSize = info.Size()

	if err := d.fs.Remove(filePath); err != nil {
		return d.fail(res, err)
	}

	res.Outcome = Succeeded
	if d.request.ShowLog {
		d.console.Success("[%s] %s %s", res.Action, filePath, res.Outcome)
	}
	return res
}

func (d *Dispatcher) statFailed(res Result, err error) Result {
	if errors.Is(err, os.ErrNotExist) {
		res.Outcome = Missing
		res.Err = err
		d.console.Warn("[%s no such file] %s", res.Action, res.Path)
		return res
	}
	return d.fail(res, err)
}

func (d *Dispatcher) fail(res Result, err error) Result {
	res.Outcome = Failed
	res.Err = err
	d.console.Error("[%s] %s %s: %v", res.Action, res.Path, res.Outcome, err)
	return res
}
