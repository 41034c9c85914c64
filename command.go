package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"webpconv/convert"
	"webpconv/logger"
	"webpconv/watch"
)

type Config struct {
	Request   convert.Request
	Version   string
	Workers   int
	Backend   string
	CwebpPath string
	Debounce  time.Duration
	Settle    time.Duration
	LogJSON   bool
	NoColor   bool
	Debug     bool
}

var (
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// Runner executes a validated configuration.
type Runner func(ctx context.Context, cfg *Config) error

func NewRootCommand(run Runner) *cobra.Command {
	v := viper.New()
	var cfgFile string
	var showVersion bool

	cmd := &cobra.Command{
		Use:   "webpconv [inputDir | image] [outputDir]",
		Short: "Convert jpg, png and gif images to webp",
		Long: `webpconv converts jpg, jpeg, png and gif images to webp with a local cwebp
binary, or with the bundled encoder when cwebp is not installed.

It runs once over a directory (or a single image), or keeps watching a
directory and converts images as they are added, changed or removed.
The deleteWebp and deleteNotWebp actions clean up generated webp files or
the original images.`,
		Args:          cobra.MaximumNArgs(2),
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				printVersion()
				return nil
			}
			if err := loadConfigFile(v, cfgFile); err != nil {
				return err
			}
			cfg, err := configFromViper(v, args)
			if err != nil {
				return err
			}
			cmd.SilenceUsage = true
			return run(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringP("input", "I", "", "input image directory or single image")
	flags.StringP("output", "O", "", "output directory for webp files (default: next to each image)")
	flags.BoolP("watch", "W", false, "keep watching the input directory")
	flags.BoolP("recursive", "R", false, "descend into subdirectories")
	flags.StringP("action", "A", string(convert.ActionGenerate), "generateWebp, deleteWebp or deleteNotWebp")
	flags.IntP("quality", "Q", 75, "webp quality (0-100)")
	flags.BoolP("show-log", "L", false, "log every file")
	flags.Int("workers", runtime.NumCPU(), "number of concurrent conversions")
	flags.String("backend", convert.BackendAuto, "encoder: auto, cwebp or library")
	flags.String("cwebp", convert.DefaultCwebp, "path of the cwebp binary")
	flags.Duration("debounce", watch.DefaultDebounce, "watch: quiet time per file before reacting")
	flags.Duration("settle", watch.DefaultSettle, "watch: quiet time before printing a summary")
	flags.Bool("log-json", false, "log JSON records instead of console lines")
	flags.Bool("no-color", false, "disable colored output")
	flags.Bool("debug", false, "enable debug logging")
	flags.StringVar(&cfgFile, "config", "", "config file (default $HOME/.webpconv/config.yaml)")
	flags.BoolVarP(&showVersion, "version", "V", false, "show version information")

	_ = v.BindPFlags(flags)
	v.SetEnvPrefix("WEBPCONV")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	return cmd
}

func loadConfigFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.webpconv")
		v.AddConfigPath("/etc/webpconv")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}
	return nil
}

func configFromViper(v *viper.Viper, args []string) (*Config, error) {
	action, err := convert.ParseAction(v.GetString("action"))
	if err != nil {
		return nil, err
	}

	input, output := v.GetString("input"), v.GetString("output")
	for _, arg := range args {
		switch {
		case input == "":
			input = arg
		case output == "":
			output = arg
		default:
			return nil, fmt.Errorf("unexpected argument %q", arg)
		}
	}

	cfg := &Config{
		Request: convert.Request{
			Action:     action,
			Watch:      v.GetBool("watch"),
			InputPath:  input,
			OutputPath: output,
			Recursive:  v.GetBool("recursive"),
			Quality:    v.GetInt("quality"),
			ShowLog:    v.GetBool("show-log"),
		},
		Version:   Version,
		Workers:   v.GetInt("workers"),
		Backend:   strings.ToLower(v.GetString("backend")),
		CwebpPath: v.GetString("cwebp"),
		Debounce:  v.GetDuration("debounce"),
		Settle:    v.GetDuration("settle"),
		LogJSON:   v.GetBool("log-json"),
		NoColor:   v.GetBool("no-color"),
		Debug:     v.GetBool("debug"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) validate() error {
	if err := cfg.Request.Validate(); err != nil {
		return err
	}

	info, err := os.Stat(cfg.Request.InputPath)
	if err != nil {
		return fmt.Errorf("input path: %w", err)
	}
	if cfg.Request.Watch && !info.IsDir() {
		return fmt.Errorf("watch mode needs a directory, %s is a file", cfg.Request.InputPath)
	}

	if cfg.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", cfg.Workers)
	}
	switch cfg.Backend {
	case convert.BackendAuto, convert.BackendCwebp, convert.BackendLibrary:
	default:
		return fmt.Errorf("unknown backend %q: use auto, cwebp or library", cfg.Backend)
	}
	if cfg.Debounce < 0 || cfg.Settle < 0 {
		return errors.New("debounce and settle must not be negative")
	}
	return nil
}

func (cfg *Config) LoggerOptions() *logger.Options {
	opts := logger.DefaultOptions()
	opts.EnableJSON = cfg.LogJSON
	opts.EnableColors = !cfg.NoColor
	if cfg.Debug {
		opts.Level = zerolog.DebugLevel
		opts.AddSource = true
	}
	return opts
}

func printVersion() {
	console := logger.NewConsole(logger.DefaultOptions())
	console.Box("webpconv version information", fmt.Sprintf(
		"Version: %s\nBuild date: %s\nGit commit: %s",
		Version, BuildDate, GitCommit,
	))
}
