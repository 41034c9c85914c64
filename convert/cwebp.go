package convert

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

const DefaultCwebp = "cwebp"

// Cwebp encodes through a locally installed cwebp binary.
type Cwebp struct {
	Path    string
	Verbose bool
}

func NewCwebp(path string, verbose bool) *Cwebp {
	if path == "" {
		path = DefaultCwebp
	}
	return &Cwebp{Path: path, Verbose: verbose}
}

func (c *Cwebp) Name() string {
	return "cwebp"
}

func (c *Cwebp) Args(src, dst string, quality int) []string {
	args := []string{"-q", strconv.Itoa(quality)}
	if !c.Verbose {
		args = append(args, "-quiet")
	}
	return append(args, src, "-o", dst)
}

// CommandLine is the shell rendering of the encode command, for logs.
func (c *Cwebp) CommandLine(src, dst string, quality int) string {
	parts := []string{shellQuote(c.Path)}
	for _, a := range c.Args(src, dst, quality) {
		parts = append(parts, shellQuote(a))
	}
	return strings.Join(parts, " ")
}

func (c *Cwebp) Encode(ctx context.Context, src, dst string, quality int) error {
	if _, err := ExecuteCommand(ctx, c.Path, c.Args(src, dst, quality)); err != nil {
		return fmt.Errorf("encoding %s: %w", src, err)
	}
	return nil
}

// Version runs "cwebp -version". A failure means the binary is not usable.
func (c *Cwebp) Version(ctx context.Context) (string, error) {
	out, err := ExecuteCommand(ctx, c.Path, []string{"-version"})
	return strings.TrimSpace(out), err
}

func shellQuote(s string) string {
	if !strings.ContainsAny(s, " \t\"'") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}
