package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// HTTPMiddleware records request counts, latency and error classes
func HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := Global()
		if m == nil {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		path := routeLabel(r)

		m.APIRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(status)).Inc()
		m.APIRequestDurationSeconds.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())

		if status >= 400 {
			m.APIErrorsTotal.WithLabelValues(categorizeStatus(status)).Inc()
		}
	})
}

// routeLabel returns the chi route pattern, or the path with ids folded
// when the request never reached a route
func routeLabel(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}

	parts := strings.Split(r.URL.Path, "/")
	for i, part := range parts {
		switch {
		case part == "":
		case isUUID(part):
			parts[i] = "{id}"
		case isNumber(part):
			parts[i] = "{stepID}"
		}
	}
	return strings.Join(parts, "/")
}

func isUUID(s string) bool {
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}

func isNumber(s string) bool {
	_, err := strconv.Atoi(s)
	return err == nil
}

// categorizeStatus maps an error status to the error_type label
func categorizeStatus(status int) string {
	switch {
	case status == http.StatusBadGateway:
		return "upstream_error"
	case status == http.StatusServiceUnavailable:
		return "unavailable"
	case status >= 500:
		return "server_error"
	case status == http.StatusTooManyRequests:
		return "rate_limited"
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return "auth_error"
	case status == http.StatusNotFound:
		return "not_found"
	case status == http.StatusConflict:
		return "conflict"
	case status == http.StatusBadRequest:
		return "bad_request"
	case status == http.StatusUnprocessableEntity:
		return "validation_error"
	case status >= 400:
		return "client_error"
	default:
		return "unknown"
	}
}
