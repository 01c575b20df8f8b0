package server

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/mhatami/trendpulse/internal/logger"
)

// SetCORS sets permissive CORS headers.
func SetCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		SetCORS(w)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client := clientIP(r)
		if !s.limiter.Allow(client) {
			s.metrics.RateLimited.Inc()
			slog.Warn("rate limited", "client", client, "path", r.URL.Path)
			writeJSON(w, http.StatusTooManyRequests, errorBody{
				Error:  "RateLimited",
				Detail: "Rate limit exceeded. Try again later.",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// handle registers h under pattern, tagging each request with a trace id
// and recording it under route in the request metrics.
func (s *Server) handle(mux *http.ServeMux, pattern, route string, h http.HandlerFunc) {
	mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		traceID := logger.NewTraceID()
		ctx := logger.WithTraceID(r.Context(), traceID)
		w.Header().Set("X-Trace-Id", traceID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		defer func() {
			if p := recover(); p != nil {
				slog.Error("handler panic", "trace_id", traceID, "route", route, "panic", p)
				if !rec.wrote {
					writeJSON(rec, http.StatusInternalServerError, errorBody{Error: "Internal", Detail: "internal error"})
				}
			}
			took := time.Since(start)
			s.metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
			s.metrics.HTTPDuration.WithLabelValues(route).Observe(took.Seconds())
			slog.Debug("request",
				"trace_id", traceID,
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"took_ms", took.Milliseconds())
		}()
		h(rec, r.WithContext(ctx))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	wrote  bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.wrote {
		r.status = code
		r.wrote = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	r.wrote = true
	return r.ResponseWriter.Write(b)
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
