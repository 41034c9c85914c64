// Package convert turns raster images into WebP files. It owns the mapping
// from source paths to output paths, the per-file action dispatch and the
// encoder backends (a local cwebp binary or the bundled gen2brain/webp library).
package convert

import (
	"errors"
	"fmt"
	"strings"
)

type Action string

const (
	ActionGenerate      Action = "generateWebp"
	ActionDeleteWebp    Action = "deleteWebp"
	ActionDeleteNonWebp Action = "deleteNotWebp"
)

var ErrInvalidAction = errors.New("invalid action")

// ParseAction accepts the canonical action names plus their short and
// kebab-case spellings.
func ParseAction(s string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "generatewebp", "generate", "generate-webp":
		return ActionGenerate, nil
	case "deletewebp", "delete-webp":
		return ActionDeleteWebp, nil
	case "deletenotwebp", "deletenonwebp", "delete-not-webp", "delete-non-webp":
		return ActionDeleteNonWebp, nil
	}
	return "", fmt.Errorf("%w %q: use generateWebp, deleteWebp or deleteNotWebp", ErrInvalidAction, s)
}

// Request describes one invocation. It is not modified after validation.
type Request struct {
	Action     Action
	Watch      bool
	InputPath  string
	OutputPath string
	Recursive  bool
	Quality    int
	ShowLog    bool
}

func (r Request) Validate() error {
	if r.InputPath == "" {
		return errors.New("input path is required")
	}
	if r.Quality < 0 || r.Quality > 100 {
		return fmt.Errorf("quality must be in range 0-100, got %d", r.Quality)
	}
	switch r.Action {
	case ActionGenerate, ActionDeleteWebp, ActionDeleteNonWebp:
	default:
		return fmt.Errorf("%w %q", ErrInvalidAction, r.Action)
	}
	return nil
}
