package httpapi

import (
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/sovereign-xds/sovereign/internal/logctx"
)

// withRequestContext assigns a request_id and populates logctx.Fields for
// the lifetime of the request, then logs one summary line on the way out —
// replacing the reference implementation's threading.local() log queue
// (src/sovereign/logs.py) with a value carried on the request's Context,
// per spec.md §9.
func withRequestContext(log *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, fields := logctx.New(r.Context())
		fields.RequestID = uuid.NewString()
		fields.ClientIP = clientIP(r)

		w.Header().Set("X-Request-Id", fields.RequestID)

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(ctx))

		args := append(fields.Args(), "method", r.Method, "path", r.URL.Path,
			"status", rec.status, "duration_ms", time.Since(start).Milliseconds())
		if rec.status >= 500 {
			log.Error("request", args...)
		} else {
			log.Info("request", args...)
		}
	})
}

// recoverPanic turns a panic anywhere downstream into a 500 response instead
// of killing the server, matching the teacher's pattern of never letting one
// bad request bring down the whole process.
func recoverPanic(log *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				fields := logctx.From(r.Context())
				log.Error("panic in handler", "request_id", fields.RequestID, "panic", rec)
				writeError(w, r, 500, "InternalError", "")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
