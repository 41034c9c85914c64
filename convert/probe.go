package convert

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/afero"
)

const (
	BackendAuto    = "auto"
	BackendCwebp   = "cwebp"
	BackendLibrary = "library"
)

const probeTimeout = 5 * time.Second

type ProbeOptions struct {
	Backend   string
	CwebpPath string
	Verbose   bool
	Fs        afero.Fs
}

// Detect picks the encoder once per process. In auto mode a working cwebp
// binary wins; otherwise the bundled library is used after a self-test.
func Detect(ctx context.Context, opts ProbeOptions) (Encoder, error) {
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}

	switch opts.Backend {
	case BackendCwebp:
		c, err := probeCwebp(ctx, opts)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNoEncoder, err)
		}
		return c, nil
	case BackendLibrary:
		lib, err := probeLibrary(opts)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNoEncoder, err)
		}
		return lib, nil
	case BackendAuto, "":
		c, cerr := probeCwebp(ctx, opts)
		if cerr == nil {
			return c, nil
		}
		lib, lerr := probeLibrary(opts)
		if lerr == nil {
			return lib, nil
		}
		return nil, fmt.Errorf("%w: cwebp: %v; library: %v", ErrNoEncoder, cerr, lerr)
	}
	return nil, fmt.Errorf("unknown backend %q: use auto, cwebp or library", opts.Backend)
}

func probeCwebp(ctx context.Context, opts ProbeOptions) (*Cwebp, error) {
	c := NewCwebp(opts.CwebpPath, opts.Verbose)

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	if _, err := c.Version(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func probeLibrary(opts ProbeOptions) (*Library, error) {
	lib := NewLibrary(opts.Fs)
	if err := lib.SelfTest(); err != nil {
		return nil, err
	}
	return lib, nil
}
