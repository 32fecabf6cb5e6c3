// Package debug builds the zerolog loggers used by the command line and the
// language server.
package debug

import (
	"fmt"
	"io"
	"runtime"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
)

const timeFormat = "2006-01-02T15:04:05.0000Z"

// TimeHook stamps events with millisecond precision and no timezone.
type TimeHook struct {
	Format string
	now    func() time.Time
}

func (t TimeHook) Run(e *zerolog.Event, _ zerolog.Level, _ string) {
	format := t.Format
	if format == "" {
		format = timeFormat
	}
	now := time.Now
	if t.now != nil {
		now = t.now
	}
	e.Str("time", now().Format(format))
}

// CallerHook adds the package, file and line of the logging call.
type CallerHook struct {
	WithColor bool
	// Skip is the number of frames between the hook and the logging call.
	Skip int
}

func (c CallerHook) Run(e *zerolog.Event, _ zerolog.Level, _ string) {
	skip := c.Skip
	if skip == 0 {
		skip = 4
	}
	pc, file, line, ok := runtime.Caller(skip)
	if !ok {
		return
	}

	pkg := ""
	if fn := runtime.FuncForPC(pc); fn != nil {
		pkg, _ = SplitFuncName(fn.Name())
	}

	e.Str("caller", FormatCaller(pkg, file, line, c.WithColor))
}

// SplitFuncName splits a runtime function name into its package path and the
// function, keeping method receivers with the function.
func SplitFuncName(name string) (pkg, function string) {
	lastSlash := strings.LastIndexByte(name, '/')
	if lastSlash < 0 {
		lastSlash = 0
	}

	dot := strings.IndexByte(name[lastSlash:], '.')
	if dot < 0 {
		return name, ""
	}
	dot += lastSlash

	pkg, function = name[:dot], name[dot+1:]

	if strings.Contains(pkg, ".(") {
		parts := strings.SplitN(pkg, ".(", 2)
		pkg = parts[0]
		function = "(" + parts[1] + "." + function
	}

	return pkg, function
}

func FormatCaller(pkg, path string, line int, colorize bool) string {
	file := path
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		file = path[i+1:]
	}

	if colorize {
		file = color.New(color.Bold).Sprint(file)
		num := color.New(color.FgHiRed, color.Bold).Sprintf("%d", line)
		sep := color.New(color.Faint).Sprint(":")
		return fmt.Sprintf("%s%s%s%s%s", pkg, sep, file, sep, num)
	}

	return fmt.Sprintf("%s:%s:%d", pkg, file, line)
}

// LoggerOpts configures NewLogger.
type LoggerOpts struct {
	Level   zerolog.Level
	Console bool
	Color   bool
	Caller  bool
}

// NewLogger builds a logger writing to w. Console output is human readable,
// otherwise every line is a JSON object.
func NewLogger(w io.Writer, opts LoggerOpts) zerolog.Logger {
	out := w
	if opts.Console {
		out = zerolog.ConsoleWriter{
			Out:        w,
			NoColor:    !opts.Color,
			TimeFormat: time.TimeOnly,
		}
	}

	logger := zerolog.New(out).Level(opts.Level).Hook(TimeHook{})
	if opts.Caller {
		logger = logger.Hook(CallerHook{WithColor: opts.Color && opts.Console})
	}
	return logger
}
