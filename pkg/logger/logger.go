package logger

import (
	"context"
	"io"
	"log"
	"log/slog"
	"strings"
)

// FromSlog returns a stdlib *log.Logger whose lines become slog records at
// level, tagged with component. Libraries that only accept a stdlib logger
// (sarama, gin's debug writer) write through it.
func FromSlog(l *slog.Logger, component string, level slog.Level) *log.Logger {
	return log.New(Writer(l, component, level), "", 0)
}

// Writer adapts a slog.Logger to io.Writer, one record per written line.
func Writer(l *slog.Logger, component string, level slog.Level) io.Writer {
	return &slogWriter{logger: l.With("component", component), level: level}
}

type slogWriter struct {
	logger *slog.Logger
	level  slog.Level
}

func (w *slogWriter) Write(p []byte) (int, error) {
	for _, line := range strings.Split(strings.TrimRight(string(p), "\r\n"), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			w.logger.Log(context.Background(), w.level, line)
		}
	}
	return len(p), nil
}
