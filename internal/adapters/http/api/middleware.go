package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/okian/tradeval/pkg/logger"
	"github.com/okian/tradeval/pkg/metrics"
)

// slowRequest is logged at warn level.
const slowRequest = time.Second

// instrument records request count, latency and error family for endpoint.
func instrument(endpoint string, next http.HandlerFunc) http.HandlerFunc {
	log := logger.Get().Named("http")
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next(sw, r)

		took := time.Since(start)
		code := strconv.Itoa(sw.status)
		metrics.RecordHTTPRequest(endpoint, r.Method, code)
		metrics.RecordHTTPRequestDuration(endpoint, r.Method, code, float64(took.Milliseconds()))

		if sw.status >= http.StatusBadRequest {
			kind := kindForStatus(sw.status)
			severity := "medium"
			if sw.status >= http.StatusInternalServerError {
				severity = "high"
			}
			metrics.RecordErrorByEndpoint(endpoint, r.Method, kind)
			metrics.RecordErrorByType(kind, severity)
		}
		if took >= slowRequest {
			log.Warn(r.Context(), "slow request",
				logger.String("endpoint", endpoint),
				logger.String("method", r.Method),
				logger.Int("status", sw.status),
				logger.Duration("took", took),
			)
		}
	}
}

// kindForStatus inverts statusFor for metrics labels.
func kindForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "validation"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusMethodNotAllowed:
		return "method_not_allowed"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "insufficient_data"
	case http.StatusTooManyRequests:
		return "backpressure"
	case http.StatusServiceUnavailable:
		return "unavailable"
	}
	if status >= http.StatusInternalServerError {
		return "internal_error"
	}
	return "client_error"
}

// statusWriter remembers the status code written through it.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }
