package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/nerrad567/aha-recorder/internal/infrastructure/config"
	"github.com/nerrad567/aha-recorder/internal/infrastructure/errchain"
)

// Logger is the slog.Logger handed to every component, plus ErrorChain.
//
// Thread Safety: All methods are safe for concurrent use.
type Logger struct {
	*slog.Logger
}

// New builds the process logger from the Logging section. Output "stdout"
// selects standard output; anything else logs to standard error.
//
// Parameters:
//   - cfg: Logging section settings
//   - version: Attached to every record
//
// Returns:
//   - *Logger: Configured logger
func New(cfg config.LoggingConfig, version string) *Logger {
	var w io.Writer = os.Stderr
	if strings.EqualFold(cfg.Output, "stdout") {
		w = os.Stdout
	}
	return NewWithWriter(w, cfg, version)
}

// NewWithWriter is New with an explicit destination; cfg.Output is ignored.
func NewWithWriter(w io.Writer, cfg config.LoggingConfig, version string) *Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var h slog.Handler = slog.NewTextHandler(w, opts)
	if strings.EqualFold(cfg.Format, "json") {
		h = slog.NewJSONHandler(w, opts)
	}

	return &Logger{Logger: slog.New(h).With("service", "aharecorder", "version", version)}
}

// parseLevel accepts slog's level names in any case, plus "warning".
// Anything else means info.
func parseLevel(level string) slog.Level {
	if strings.EqualFold(level, "warning") {
		return slog.LevelWarn
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// With returns a child logger carrying args on every record.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// ErrorChain logs err at error level. The outermost message goes to
// "error" and the messages of its causes, outermost first, to "caused_by".
//
//	log.ErrorChain("poll failed", err, "backend", "Csv")
func (l *Logger) ErrorChain(msg string, err error, args ...any) {
	chain := errchain.Messages(err)
	if len(chain) == 0 {
		l.Error(msg, args...)
		return
	}

	attrs := make([]any, 0, len(args)+4)
	attrs = append(attrs, "error", chain[0])
	attrs = append(attrs, args...)
	if len(chain) > 1 {
		attrs = append(attrs, "caused_by", chain[1:])
	}
	l.Error(msg, attrs...)
}

// Default is the logger used before the configuration is loaded: text at
// info level on standard error.
func Default() *Logger {
	return New(config.DefaultLoggingConfig(), "dev")
}
