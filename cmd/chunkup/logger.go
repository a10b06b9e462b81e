package main

import (
	"context"
	"io"
	"net/http"
	"time"

	// Packages
	logrus "github.com/sirupsen/logrus"
)

///////////////////////////////////////////////////////////////////////////////
// TYPES

// logger writes leveled text logs, and logs each HTTP request when used as
// router middleware.
type logger struct {
	*logrus.Logger
}

type statusWriter struct {
	http.ResponseWriter
	status int
	size   int64
}

///////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

func newLogger(w io.Writer, debug bool) *logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if debug {
		l.SetLevel(logrus.DebugLevel)
	} else {
		l.SetLevel(logrus.InfoLevel)
	}
	return &logger{l}
}

///////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

func (l *logger) Print(ctx context.Context, args ...any) {
	l.WithContext(ctx).Info(args...)
}

func (l *logger) Printf(ctx context.Context, format string, args ...any) {
	l.WithContext(ctx).Infof(format, args...)
}

func (l *logger) Debugf(ctx context.Context, format string, args ...any) {
	l.WithContext(ctx).Debugf(format, args...)
}

// WrapFunc logs the method, path, status and duration of each request.
func (l *logger) WrapFunc(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next(sw, r)
		entry := l.WithContext(r.Context()).WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   sw.status,
			"bytes":    sw.size,
			"duration": time.Since(start).Truncate(time.Microsecond),
		})
		if sw.status >= http.StatusInternalServerError {
			entry.Error(http.StatusText(sw.status))
		} else {
			entry.Info(http.StatusText(sw.status))
		}
	}
}

///////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.size += int64(n)
	return n, err
}

func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
