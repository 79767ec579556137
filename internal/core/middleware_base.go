package core

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"weatheralert/internal/types"
)

// statusRecorder remembers the first status written downstream.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	if sr.status == 0 {
		sr.status = code
	}
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	return sr.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (sr *statusRecorder) Unwrap() http.ResponseWriter { return sr.ResponseWriter }

// Status returns the recorded status, 200 when nothing was written.
func (sr *statusRecorder) Status() int {
	if sr.status == 0 {
		return http.StatusOK
	}
	return sr.status
}

// panicBody is served when the error envelope itself cannot be encoded.
const panicBody = `{"error":{"code":"internal_unexpected","message":"an unexpected error occurred","request_id":""}}`

// Recoverer converts a handler panic into a 500 envelope and logs the stack.
// It must wrap every other middleware.
func (s *Server) Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rvr := recover()
			if rvr == nil {
				return
			}
			if rvr == http.ErrAbortHandler {
				panic(rvr)
			}

			s.Logger.ErrorContext(r.Context(), "panic recovered",
				"method", r.Method,
				"path", r.URL.Path,
				"panic", fmt.Sprint(rvr),
				"stack", string(debug.Stack()),
			)

			body, err := json.Marshal(APIErrorResponse{Error: ErrorDetail{
				Code:      string(types.ErrCodeInternalUnexpected),
				Message:   "an unexpected error occurred",
				RequestID: types.GetRequestID(r.Context()),
			}})
			if err != nil {
				body = []byte(panicBody)
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write(body)
		}()

		next.ServeHTTP(w, r)
	})
}

// loggedHeaders are included in request logs. Anything else is omitted.
var loggedHeaders = []string{"User-Agent", "X-Forwarded-For", "Content-Type"}

// RequestLogger emits one entry per request: INFO below 400, WARN for 4xx,
// ERROR for 5xx. Headers listed in redacted are logged as present but masked.
func RequestLogger(logger *slog.Logger, redacted []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sr := &statusRecorder{ResponseWriter: w}

			next.ServeHTTP(sr, r)

			status := sr.Status()
			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", status),
				slog.Int64("duration_ms", time.Since(start).Milliseconds()),
			}
			if id := types.GetRequestID(r.Context()); id != "" {
				attrs = append(attrs, slog.String("request_id", id))
			}
			if h := headerAttrs(r.Header, redacted); len(h) > 0 {
				attrs = append(attrs, slog.Any("headers", slog.GroupValue(h...)))
			}

			logger.LogAttrs(r.Context(), levelForStatus(status), "request completed", attrs...)
		})
	}
}

func headerAttrs(h http.Header, redacted []string) []slog.Attr {
	var out []slog.Attr
	for _, name := range loggedHeaders {
		if v := h.Values(name); len(v) > 0 {
			out = append(out, slog.String(strings.ToLower(name), strings.Join(v, ", ")))
		}
	}
	for _, name := range redacted {
		if h.Get(name) != "" {
			out = append(out, slog.String(strings.ToLower(name), "[REDACTED]"))
		}
	}
	return out
}

func levelForStatus(status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// SecurityHeadersMiddleware marks every ops response as non-cacheable and
// non-embeddable.
func SecurityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}
