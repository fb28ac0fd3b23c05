package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	goMiniAuth "github.com/MrEthical07/goMiniAuth"
	promexport "github.com/MrEthical07/goMiniAuth/metrics/export/prometheus"
	"github.com/MrEthical07/goMiniAuth/middleware"
)

const maxJSONBody = 1 << 20

type server struct {
	engine *goMiniAuth.Engine
	logger *slog.Logger
}

func newRouter(engine *goMiniAuth.Engine, logger *slog.Logger, internalSecret []byte) http.Handler {
	s := &server{engine: engine, logger: logger}
	guard := middleware.Guard(engine)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", s.login)
	mux.HandleFunc("POST /api/auth/refresh", s.refresh)
	mux.Handle("POST /api/auth/logout", guard(http.HandlerFunc(s.logout)))
	mux.Handle("GET /api/auth/session", guard(http.HandlerFunc(s.getSession)))
	mux.Handle("POST /api/auth/session", middleware.RequireSignature(internalSecret)(http.HandlerFunc(s.setSession)))
	mux.Handle("GET /metrics", promexport.NewPrometheusExporter(engine).Handler())

	return middleware.ClientIP(requestLogger(logger, mux))
}

func (s *server) login(w http.ResponseWriter, r *http.Request) {
	initData, ok := middleware.BearerToken(r)
	if !ok {
		writeError(w, http.StatusForbidden, "missing authorization")
		return
	}

	pair, err := s.engine.Login(r.Context(), initData)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (s *server) refresh(w http.ResponseWriter, r *http.Request) {
	initData, ok := middleware.BearerToken(r)
	if !ok {
		writeError(w, http.StatusForbidden, "missing authorization")
		return
	}

	var req refreshRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	pair, err := s.engine.Refresh(r.Context(), initData, req.RefreshToken)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

func (s *server) logout(w http.ResponseWriter, r *http.Request) {
	claims, _ := goMiniAuth.ClaimsFromContext(r.Context())
	if err := s.engine.Logout(r.Context(), claims.UserID); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) getSession(w http.ResponseWriter, r *http.Request) {
	claims, _ := goMiniAuth.ClaimsFromContext(r.Context())
	view, err := s.engine.GetSession(r.Context(), claims.UserID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type setSessionRequest struct {
	UserID int64 `json:"user_id"`
	goMiniAuth.SessionPatch
}

func (s *server) setSession(w http.ResponseWriter, r *http.Request) {
	var req setSessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	view, err := s.engine.SetSession(r.Context(), req.UserID, req.SessionPatch)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// fail maps engine errors to HTTP statuses. Store failures are logged and
// reported without detail.
func (s *server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "error", err)
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, goMiniAuth.ErrSignatureInvalid):
		return http.StatusForbidden
	case errors.Is(err, goMiniAuth.ErrIdentityInvalid), errors.Is(err, goMiniAuth.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, goMiniAuth.ErrLoginRateLimited), errors.Is(err, goMiniAuth.ErrRefreshRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, goMiniAuth.ErrTokenInvalid):
		return http.StatusUnauthorized
	case errors.Is(err, goMiniAuth.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, goMiniAuth.ErrSessionConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func requestLogger(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}
