package log

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	cerrors "github.com/cockroachdb/errors"
	"github.com/rs/zerolog"

	"github.com/YuminosukeSato/freightml/pkg/errors"
)

// Log output formats accepted by Options.Format.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// Options configures the process logger.
type Options struct {
	Level     string    // debug, info, warn, error, disabled
	Format    string    // console or json
	Out       io.Writer // defaults to os.Stderr; stdout is reserved for results
	Component string    // added as ml.component to every record
}

var (
	globalMu     sync.RWMutex
	globalLogger Logger = &zerologLogger{zl: zerolog.Nop()}
	marshalOnce  sync.Once
)

// GetLogger returns the process logger. It is a no-op logger until Setup runs.
func GetLogger() Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalLogger
}

// SetLogger replaces the process logger.
func SetLogger(l Logger) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalLogger = l
}

// Setup builds a zerolog-backed Logger from opts, installs it as the process
// logger and routes pkg/errors warnings through it.
func Setup(opts Options) (Logger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	logger := New(opts.Out, opts.Format, level)
	if opts.Component != "" {
		logger = logger.With(ComponentKey, opts.Component)
	}
	SetLogger(logger)
	errors.SetZerologWarnFunc(func(w error) {
		logger.Warn("warning", WarningKey, w)
	})
	return logger, nil
}

// New returns a zerolog-backed Logger writing to w.
func New(w io.Writer, format string, level Level) Logger {
	installMarshalers()
	if w == nil {
		w = os.Stderr
	}
	if format != FormatJSON {
		w = zerolog.ConsoleWriter{
			Out:        w,
			NoColor:    true,
			TimeFormat: "15:04:05.000",
			FormatLevel: func(i interface{}) string {
				return strings.ToUpper(fmt.Sprintf("%-5s", i))
			},
		}
	}
	zl := zerolog.New(w).Level(toZerologLevel(level)).With().Timestamp().Logger()
	return &zerologLogger{zl: zl}
}

func installMarshalers() {
	marshalOnce.Do(func() {
		zerolog.ErrorStackMarshaler = func(err error) interface{} {
			if st := extractStacktrace(err); st != "" {
				return st
			}
			return nil
		}
		zerolog.CallerMarshalFunc = func(pc uintptr, file string, line int) string {
			parts := strings.Split(file, "/")
			return parts[len(parts)-1] + ":" + strconv.Itoa(line)
		}
	})
}

// extractStacktrace pulls the first safe detail that cockroachdb/errors
// records with WithStack.
func extractStacktrace(err error) string {
	safeDetails := cerrors.GetSafeDetails(err).SafeDetails
	if len(safeDetails) > 0 {
		return safeDetails[0]
	}
	return ""
}

func toZerologLevel(l Level) zerolog.Level {
	switch {
	case l >= LevelDisabled:
		return zerolog.Disabled
	case l >= LevelError:
		return zerolog.ErrorLevel
	case l >= LevelWarn:
		return zerolog.WarnLevel
	case l >= LevelInfo:
		return zerolog.InfoLevel
	default:
		return zerolog.DebugLevel
	}
}

type zerologLogger struct {
	zl zerolog.Logger
}

func (z *zerologLogger) Debug(msg string, fields ...any) {
	z.emit(z.zl.Debug(), msg, fields)
}

func (z *zerologLogger) Info(msg string, fields ...any) {
	z.emit(z.zl.Info(), msg, fields)
}

func (z *zerologLogger) Warn(msg string, fields ...any) {
	z.emit(z.zl.Warn(), msg, fields)
}

func (z *zerologLogger) Error(msg string, fields ...any) {
	e := z.zl.Error()
	if len(fields) > 0 {
		if err, ok := fields[0].(error); ok {
			e = e.Stack().Err(err)
			fields = fields[1:]
		}
	}
	z.emit(e, msg, fields)
}

func (z *zerologLogger) With(fields ...any) Logger {
	ctx := z.zl.With()
	for i := 0; i+1 < len(fields); i += 2 {
		ctx = ctx.Interface(fmt.Sprint(fields[i]), fields[i+1])
	}
	return &zerologLogger{zl: ctx.Logger()}
}

func (z *zerologLogger) Enabled(_ context.Context, level Level) bool {
	zlLevel := toZerologLevel(level)
	return zlLevel != zerolog.Disabled && zlLevel >= z.zl.GetLevel() && zlLevel >= zerolog.GlobalLevel()
}

func (z *zerologLogger) emit(e *zerolog.Event, msg string, fields []any) {
	if e == nil {
		return
	}
	for i := 0; i+1 < len(fields); i += 2 {
		key := fmt.Sprint(fields[i])
		switch v := fields[i+1].(type) {
		case zerolog.LogObjectMarshaler:
			e = e.Object(key, v)
		case error:
			e = e.AnErr(key, v)
		case string:
			e = e.Str(key, v)
		case int:
			e = e.Int(key, v)
		case float64:
			e = e.Float64(key, v)
		case bool:
			e = e.Bool(key, v)
		default:
			e = e.Interface(key, v)
		}
	}
	e.Msg(msg)
}
