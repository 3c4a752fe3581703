package utils

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// InitLogger sets the default slog logger.
//   - writes to stdout, and to logFile as well when it is not empty
//   - compact time format and file:line source
//
// The returned closer closes the log file, it is a no-op without one.
func InitLogger(level slog.Level, logFile string) (io.Closer, error) {
	var out io.Writer = os.Stdout
	var closer io.Closer = nopCloser{}
	if logFile != "" {
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
		if err != nil {
			return closer, fmt.Errorf("open log file: %w", err)
		}
		out = io.MultiWriter(os.Stdout, file)
		closer = file
	}

	handler := slog.NewTextHandler(out, &slog.HandlerOptions{
		Level:       level,
		AddSource:   true,
		ReplaceAttr: replaceAttr,
	})
	slog.SetDefault(slog.New(handler))
	return closer, nil
}

func replaceAttr(groups []string, a slog.Attr) slog.Attr {
	if a.Key == slog.TimeKey {
		if t, ok := a.Value.Any().(time.Time); ok {
			a.Value = slog.StringValue(t.Format("15:04:05.000"))
		}
	}
	if a.Key == slog.SourceKey {
		if source, ok := a.Value.Any().(*slog.Source); ok {
			file := source.File
			if lastSlash := strings.LastIndexByte(file, '/'); lastSlash >= 0 {
				file = file[lastSlash+1:]
			}
			a.Value = slog.StringValue(fmt.Sprintf("%s:%d", file, source.Line))
		}
	}
	return a
}

// SilenceLogger discards all log output. Used by tests.
func SilenceLogger() {
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
