package logger

import (
	"io"
	"os"
	"runtime"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

type FBLogger struct {
	zerolog.Logger
}

// Logger is the package level logger used by every component of the driver.
var Logger = &FBLogger{zerolog.New(os.Stderr).With().Timestamp().Logger()}

// enable pretty printing for interactive terminals and json for production.
func init() {
	// for tty terminal enable pretty logs
	if isatty.IsTerminal(os.Stdout.Fd()) && runtime.GOOS != "windows" {
		Logger = &FBLogger{Logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})}
	} else {
		// UNIX Time is faster and smaller than most timestamps
		// If you set zerolog.TimeFieldFormat to an empty string,
		// logs will write with UNIX time.
		zerolog.TimeFieldFormat = ""
	}
	// by default only log warnings and above
	Logger.Logger = Logger.Level(zerolog.WarnLevel)
}

// SetLogLevel sets the log level of the package level logger.
// Accepts "trace", "debug", "info", "warn", "error", "fatal", "panic" and "disabled".
func SetLogLevel(l string) error {
	lvl, err := zerolog.ParseLevel(l)
	if err != nil {
		return err
	}
	Logger.Logger = Logger.Level(lvl)
	return nil
}

// SetLogOutput redirects the package level logger.
func SetLogOutput(w io.Writer) {
	Logger.Logger = Logger.Output(w)
}

// Sets connection id, correlation id, and query id to be used by the logger.
// Empty ids are omitted.
func WithContext(connectionId string, correlationId string, queryId string) *FBLogger {
	ctx := Logger.With()
	if connectionId != "" {
		ctx = ctx.Str("connId", connectionId)
	}
	if correlationId != "" {
		ctx = ctx.Str("corrId", correlationId)
	}
	if queryId != "" {
		ctx = ctx.Str("queryId", queryId)
	}
	return &FBLogger{ctx.Logger()}
}

// Track is used with Duration to time an operation.
//
//	msg, start := logger.Track("Submit")
//	defer logger.Duration(msg, start)
func Track(msg string) (string, time.Time) {
	return msg, time.Now()
}

// Duration logs a debug message with the time elapsed since start.
func Duration(msg string, start time.Time) {
	Logger.Duration(msg, start)
}

// Duration logs a debug message with the time elapsed since start.
func (l *FBLogger) Duration(msg string, start time.Time) {
	l.Debug().Msgf("%v elapsed time: %v", msg, time.Since(start))
}

func Debug() *zerolog.Event {
	return Logger.Debug()
}

func Info() *zerolog.Event {
	return Logger.Info()
}

func Warn() *zerolog.Event {
	return Logger.Warn()
}

func Error() *zerolog.Event {
	return Logger.Error()
}

func Err(err error) *zerolog.Event {
	return Logger.Err(err)
}
