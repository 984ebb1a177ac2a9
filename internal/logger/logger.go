// Package logger provides structured logging functionality
// using the Uber zap logging library.
package logger

import (
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Log is the global SugaredLogger. It is a no-op logger until Init is called,
// so packages may log from tests without initialising it.
var Log = zap.NewNop().Sugar()

// Init builds the global logger with the given level
// ("debug", "info", "warn", "error", ...).
func Init(level string) error {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return err
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	zl, err := cfg.Build()
	if err != nil {
		return err
	}
	Log = zl.Sugar()

	return nil
}

// Sync flushes any buffered log entries to the output.
// It should be called when shutting down to ensure all logs are written.
func Sync() error {
	if err := Log.Sync(); err != nil && !errors.Is(err, os.ErrInvalid) {
		return err
	}

	return nil
}

// WithLoggingHTTPMiddleware logs method, uri, status, duration, size and the
// chi request id of every request.
func WithLoggingHTTPMiddleware(h http.Handler) http.Handler {
	logFn := func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		h.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		Log.Infow(
			"request served",
			"request_id", middleware.GetReqID(r.Context()),
			"uri", r.RequestURI,
			"method", r.Method,
			"status", status,
			"duration", time.Since(start),
			"size", ww.BytesWritten(),
		)
	}

	return http.HandlerFunc(logFn)
}
