package logger

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"
)

type Options struct {
	Output       io.Writer
	TimeFormat   string
	Level        zerolog.Level
	AddSource    bool
	EnableJSON   bool
	EnableColors bool
}

func DefaultOptions() *Options {
	return &Options{
		Output:       os.Stdout,
		TimeFormat:   "2006-01-02 15:04:05.000",
		Level:        zerolog.InfoLevel,
		EnableColors: true,
	}
}

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("4")).Bold(true)
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	fatalStyle   = lipgloss.NewStyle().Background(lipgloss.Color("1")).Foreground(lipgloss.Color("7")).Bold(true)
	titleStyle   = lipgloss.NewStyle().Bold(true)
	boxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// Console is the human-facing log facade. Messages go through zerolog so the
// same call sites produce either colored console lines or JSON records.
type Console struct {
	Logger    zerolog.Logger
	Out       io.Writer
	Colorized bool
	JSON      bool
}

func NewConsole(opts *Options) *Console {
	if opts == nil {
		opts = DefaultOptions()
	}
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	var w io.Writer = out
	if !opts.EnableJSON {
		w = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: opts.TimeFormat,
			NoColor:    !opts.EnableColors,
		}
	}

	ctx := zerolog.New(w).Level(opts.Level).With().Timestamp()
	if opts.AddSource {
		ctx = ctx.CallerWithSkipFrameCount(3)
	}

	return &Console{
		Logger:    ctx.Logger(),
		Out:       out,
		Colorized: opts.EnableColors && !opts.EnableJSON,
		JSON:      opts.EnableJSON,
	}
}

// With returns a console whose records all carry key=value.
func (c *Console) With(key, value string) *Console {
	c2 := *c
	c2.Logger = c.Logger.With().Str(key, value).Logger()
	return &c2
}

func (c *Console) decorate(symbol string, style lipgloss.Style, format string, args ...interface{}) string {
	msg := fmt.Sprintf(format, args...)
	if c.JSON {
		return msg
	}
	msg = symbol + " " + msg
	if c.Colorized {
		msg = style.Render(msg)
	}
	return msg
}

func (c *Console) Success(format string, args ...interface{}) {
	c.Logger.Info().Msg(c.decorate("✓", successStyle, format, args...))
}

func (c *Console) Info(format string, args ...interface{}) {
	c.Logger.Info().Msg(c.decorate("ℹ", infoStyle, format, args...))
}

func (c *Console) Log(format string, args ...interface{}) {
	c.Logger.Info().Msgf(format, args...)
}

func (c *Console) Debug(format string, args ...interface{}) {
	c.Logger.Debug().Msgf(format, args...)
}

func (c *Console) Warn(format string, args ...interface{}) {
	c.Logger.Warn().Msg(c.decorate("⚠", warnStyle, format, args...))
}

func (c *Console) Error(format string, args ...interface{}) {
	c.Logger.Error().Msg(c.decorate("✖", errorStyle, format, args...))
}

func (c *Console) Fatal(format string, args ...interface{}) {
	c.Logger.Error().Msg(c.decorate("💀", fatalStyle, format, args...))
	os.Exit(1)
}

func (c *Console) StartSpinner(message string) *Spinner {
	out := c.Out
	if c.JSON {
		out = io.Discard
	}
	s := NewSpinner(message, out, c)
	s.Start()
	return s
}

func (c *Console) NewProgressBar(total int64, label string) *ProgressBar {
	out := c.Out
	if c.JSON {
		out = io.Discard
	}
	return NewProgressBar(total, label, out)
}

func (c *Console) NewTable(headers []string) *Table {
	return NewTable(headers, c.Out, c.Colorized)
}

// Box prints content framed by a rounded border with title on the first line.
func (c *Console) Box(title string, content string) {
	fmt.Fprintln(c.Out, boxStyle.Render(titleStyle.Render(title)+"\n"+content))
}

type Timer struct {
	StartTime time.Time
	Name      string
	Console   *Console
}

func (c *Console) StartTimer(name string) *Timer {
	return &Timer{
		Name:      name,
		StartTime: time.Now(),
		Console:   c,
	}
}

func (t *Timer) End() time.Duration {
	duration := time.Since(t.StartTime).Round(time.Millisecond)
	t.Console.Logger.Debug().Dur("elapsed", duration).Msgf("%s completed", t.Name)
	return duration
}
