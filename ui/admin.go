package ui

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"deview/domain/core"
	"deview/internal"
	apperrors "deview/internal/errors"
	"deview/internal/metrics"
	"deview/internal/session"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Pinger is a dependency the health check pings.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Admin is the operator listener: metrics, health, catalog lookups and pprof.
type Admin struct {
	router   *chi.Mux
	metrics  *metrics.Metrics
	sessions *session.Manager
	service  *session.Service
	checks   map[string]Pinger
	logger   *internal.Logger
}

// NewAdmin builds the admin router. checks may be nil.
func NewAdmin(m *metrics.Metrics, sessions *session.Manager, service *session.Service, checks map[string]Pinger) *Admin {
	a := &Admin{
		router:   chi.NewRouter(),
		metrics:  m,
		sessions: sessions,
		service:  service,
		checks:   checks,
		logger:   internal.DefaultLogger.With("Admin"),
	}
	a.setupMiddleware()
	a.setupRoutes()
	return a
}

// Handler exposes the router for an http.Server or httptest.
func (a *Admin) Handler() http.Handler {
	return a.router
}

func (a *Admin) setupMiddleware() {
	a.router.Use(middleware.Logger)
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Compress(5))
}

func (a *Admin) setupRoutes() {
	a.router.Handle("/metrics", a.metrics.Handler())
	a.router.Get("/healthz", a.handleHealth)
	a.router.Get("/uploads/{id}", a.handleUpload)
	a.router.Delete("/uploads/{id}", a.handleDeleteUpload)
	a.router.Get("/storage", a.handleStorage)
	a.router.Mount("/debug", middleware.Profiler())
}

func (a *Admin) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string, len(a.checks))
	for name, p := range a.checks {
		if err := p.Ping(ctx); err != nil {
			a.logger.Warn("health check %s failed: %v", name, err)
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	body := map[string]interface{}{
		"status":   "ok",
		"sessions": a.sessions.Len(),
		"checks":   checks,
	}
	if status != http.StatusOK {
		body["status"] = "degraded"
	}
	writeJSON(w, status, body)
}

func (a *Admin) handleUpload(w http.ResponseWriter, r *http.Request) {
	id, err := uploadParam(r)
	if err != nil {
		a.writeError(w, err)
		return
	}
	u, err := a.service.Lookup(r.Context(), id)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (a *Admin) handleDeleteUpload(w http.ResponseWriter, r *http.Request) {
	id, err := uploadParam(r)
	if err != nil {
		a.writeError(w, err)
		return
	}
	if err := a.service.Delete(r.Context(), id); err != nil {
		a.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *Admin) handleStorage(w http.ResponseWriter, r *http.Request) {
	keys, err := a.service.StoredFiles(r.Context())
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"count": len(keys), "keys": keys})
}

func uploadParam(r *http.Request) (core.UploadID, error) {
	id, err := core.ParseUploadID(chi.URLParam(r, "id"))
	if err != nil {
		return "", apperrors.InvalidInput(err.Error())
	}
	return id, nil
}

// writeError answers with the status of the error's code. Server-side
// failures only expose the top-level message.
func (a *Admin) writeError(w http.ResponseWriter, err error) {
	if !apperrors.IsAppError(err) && core.IsNotFoundError(err) {
		err = apperrors.WithCode(apperrors.CodeNotFound, err)
	}
	code := apperrors.GetCode(err)
	status := statusForCode(code)

	msg := err.Error()
	if status >= http.StatusInternalServerError {
		a.logger.Error("request failed: %v", err)
		msg = "internal error"
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) && code != apperrors.CodeInternalError {
			msg = appErr.Message
		}
	}
	writeJSON(w, status, map[string]string{"error": msg, "code": code})
}

func statusForCode(code string) int {
	switch code {
	case apperrors.CodeNotFound:
		return http.StatusNotFound
	case apperrors.CodeInvalidInput:
		return http.StatusBadRequest
	case apperrors.CodeDatabaseError, apperrors.CodeStorageError, apperrors.CodeExternalService:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		internal.DefaultLogger.Warn("[Admin] failed to encode response: %v", err)
	}
}
