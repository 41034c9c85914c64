package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"webpconv/convert"
	"webpconv/logger"
)

func main() {
	if err := NewRootCommand(run).Execute(); err != nil {
		os.Stderr.WriteString("webpconv: " + err.Error() + "\n")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *Config) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	console := logger.NewConsole(cfg.LoggerOptions()).With("run", uuid.NewString())

	spinner := console.StartSpinner("Looking for a webp encoder")
	encoder, err := convert.Detect(ctx, convert.ProbeOptions{
		Backend:   cfg.Backend,
		CwebpPath: cfg.CwebpPath,
		Verbose:   cfg.Request.ShowLog,
	})
	if err != nil {
		spinner.Stop(false, "No usable webp encoder")
		return err
	}
	spinner.Stop(true, fmt.Sprintf("Running with the %s encoder", encoder.Name()))

	processor := NewProcessor(cfg, console, afero.NewOsFs(), encoder)
	if err := processor.ProcessPath(ctx); err != nil {
		console.Error("Processing error: %v", err)
		return err
	}
	return nil
}
