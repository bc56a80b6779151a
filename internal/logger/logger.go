package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
)

type Logger struct {
	service  string
	hostname string
	handler  *slog.Logger
}

// New creates a JSON logger on stdout for the given service name.
func New(service string) *Logger {
	return NewWithWriter(service, os.Stdout)
}

// NewWithWriter creates a JSON logger writing to w.
func NewWithWriter(service string, w io.Writer) *Logger {
	hostname, _ := os.Hostname()

	handler := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	return &Logger{
		service:  service,
		hostname: hostname,
		handler:  handler,
	}
}

// Discard returns a logger that drops everything. Used by tests.
func Discard() *Logger {
	return NewWithWriter("test", io.Discard)
}

// GenerateRequestID returns a fresh request id.
func GenerateRequestID() string {
	return uuid.NewString()
}

func (l *Logger) Info(action, message, requestID string, fields map[string]interface{}) {
	l.log(slog.LevelInfo, action, message, requestID, fields)
}

func (l *Logger) Debug(action, message, requestID string, fields map[string]interface{}) {
	l.log(slog.LevelDebug, action, message, requestID, fields)
}

func (l *Logger) Error(action, message, requestID string, err error, fields map[string]interface{}) {
	attrs := l.baseAttrs(action, requestID, fields)
	if err != nil {
		attrs = append(attrs, slog.Group("error",
			slog.String("msg", err.Error()),
			slog.String("stack", string(debug.Stack())),
		))
	}
	l.handler.LogAttrs(context.TODO(), slog.LevelError, message, attrs...)
}

func (l *Logger) log(level slog.Level, action, message, requestID string, fields map[string]interface{}) {
	l.handler.LogAttrs(context.TODO(), level, message, l.baseAttrs(action, requestID, fields)...)
}

func (l *Logger) baseAttrs(action, requestID string, fields map[string]interface{}) []slog.Attr {
	attrs := []slog.Attr{
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
		slog.String("service", l.service),
		slog.String("hostname", l.hostname),
		slog.String("action", action),
		slog.String("request_id", requestID),
	}
	if len(fields) > 0 {
		details := make([]any, 0, len(fields))
		for k, v := range fields {
			details = append(details, slog.Any(k, v))
		}
		attrs = append(attrs, slog.Group("details", details...))
	}
	return attrs
}
