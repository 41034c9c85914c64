package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

var ErrNoEncoder = errors.New("no webp encoder available")

// Encoder writes a webp rendition of src to dst.
type Encoder interface {
	Name() string
	Encode(ctx context.Context, src, dst string, quality int) error
}

// ExecuteCommand runs command with args and returns its combined output.
// On failure the error carries the diagnostic stderr text.
func ExecuteCommand(ctx context.Context, command string, args []string) (string, error) {
	cmd := exec.CommandContext(ctx, command, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	output := stdout.String() + stderr.String()

	if err != nil {
		diag := strings.TrimSpace(stderr.String())
		if diag == "" {
			return output, fmt.Errorf("%s: %w", command, err)
		}
		return output, fmt.Errorf("%s: %w: %s", command, err, diag)
	}

	return output, nil
}
