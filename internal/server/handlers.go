package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/mhatami/trendpulse/internal/apperr"
	"github.com/mhatami/trendpulse/internal/logger"
	"github.com/mhatami/trendpulse/internal/model"
)

// DefaultPeriod applies when a prices request omits the period.
const DefaultPeriod = "1y"

// maxBody caps request bodies.
const maxBody = 1 << 20

type pricesRequest struct {
	Symbol string `json:"symbol"`
	Period string `json:"period"`
}

type indicatorsRequest struct {
	Symbol     string                `json:"symbol"`
	Indicators []model.IndicatorSpec `json:"indicators"`
}

type errorBody struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

// RegisterRoutes registers all HTTP routes on the provided mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	s.handle(mux, "GET /{$}", "/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "Welcome to TrendPulse API"})
	})
	s.handle(mux, "GET /favicon.ico", "/favicon.ico", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	s.handle(mux, "GET /healthz", "/healthz", s.health.ServeHTTP)
	s.handle(mux, "GET /metrics", "/metrics", s.metrics.Handler().ServeHTTP)
	s.handle(mux, "GET /{symbol}", "/{symbol}", s.handleDetails)
	s.handle(mux, "POST /prices", "/prices", s.handlePrices)
	s.handle(mux, "POST /indicators", "/indicators", s.handleIndicators)
	s.handle(mux, "POST /clear_cache", "/clear_cache", s.handleClearCache)
	mux.HandleFunc("OPTIONS /", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func (s *Server) handleDetails(w http.ResponseWriter, r *http.Request) {
	d, err := s.svc.Details(r.Context(), r.PathValue("symbol"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handlePrices(w http.ResponseWriter, r *http.Request) {
	var req pricesRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Period == "" {
		req.Period = DefaultPeriod
	}
	t, err := s.svc.Prices(r.Context(), req.Symbol, req.Period)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleIndicators(w http.ResponseWriter, r *http.Request) {
	var req indicatorsRequest
	if !decode(w, r, &req) {
		return
	}
	t, err := s.svc.Indicators(r.Context(), req.Symbol, req.Indicators)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleClearCache(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.ClearCache(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Cache cleared"})
}

// decode reads a JSON body into v, answering 400 itself on failure.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	if err := dec.Decode(v); err != nil {
		detail := "invalid JSON body"
		if errors.Is(err, io.EOF) {
			detail = "empty request body"
		}
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "InvalidRequest", Detail: detail})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("write response failed", "error", err)
	}
}

// writeError maps err onto its category's status. Internal failures get a
// generic detail; the cause is only logged.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	cat := apperr.CategoryOf(err)
	body := errorBody{Error: apperr.KindOf(err), Detail: err.Error()}
	if e, ok := apperr.As(err); ok && e.Message != "" {
		body.Detail = e.Message
	}

	attrs := append(logger.LogWithTrace(r.Context()), "path", r.URL.Path, "kind", body.Error, "error", err)
	switch cat {
	case apperr.CategoryInternal, apperr.CategoryUpstream:
		slog.Error("request failed", attrs...)
		if cat == apperr.CategoryInternal {
			body.Detail = "internal error"
		}
	default:
		slog.Info("request rejected", attrs...)
	}
	writeJSON(w, cat.HTTPStatus(), body)
}
