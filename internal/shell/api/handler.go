// Package api exposes the stack's observed state over HTTP for dashboards
// and scripts. It is read-only: lifecycle changes go through the CLI.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	corestack "github.com/modelstack/modelstack/internal/core/stack"
	"github.com/modelstack/modelstack/internal/shell/store"
)

// =============================================================================
// Handler
// =============================================================================

// StatusProvider reports the current stack status.
type StatusProvider interface {
	Status(ctx context.Context) (*corestack.StackStatus, error)
}

// Handler provides HTTP handlers for the status API.
type Handler struct {
	status StatusProvider
	runs   store.Store // may be nil; run endpoints then return 404
	logger *slog.Logger
}

// NewHandler creates a new API handler.
func NewHandler(status StatusProvider, runs store.Store, l *slog.Logger) *Handler {
	if l == nil {
		l = slog.Default()
	}
	return &Handler{
		status: status,
		runs:   runs,
		logger: l.With("component", "api"),
	}
}

// Routes returns the router with all routes configured.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.handleHealthz)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", h.handleStatus)
		r.Route("/runs", func(r chi.Router) {
			r.Get("/", h.handleListRuns)
			r.Get("/last", h.handleLastRun)
			r.Get("/{id}", h.handleGetRun)
		})
	})

	return r
}

// =============================================================================
// Health
// =============================================================================

func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// =============================================================================
// Stack Status
// =============================================================================

type serviceStatusResponse struct {
	Name      string `json:"name"`
	Container string `json:"container"`
	State     string `json:"state"`
	Health    string `json:"health"`
	URL       string `json:"url,omitempty"`
}

type statusResponse struct {
	State    string                  `json:"state"`
	Services []serviceStatusResponse `json:"services"`
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.status.Status(r.Context())
	if err != nil {
		h.logger.Error("status query failed", "error", err)
		writeJSONError(w, http.StatusBadGateway, "failed to query stack status")
		return
	}

	resp := statusResponse{
		State:    status.State,
		Services: make([]serviceStatusResponse, 0, len(status.Services)),
	}
	for _, svc := range status.Services {
		entry := serviceStatusResponse{
			Name:      svc.Name,
			Container: svc.ContainerName,
			State:     string(svc.Container),
			Health:    string(svc.Health),
		}
		if svc.Port > 0 {
			entry.URL = "http://localhost:" + strconv.Itoa(svc.Port)
		}
		resp.Services = append(resp.Services, entry)
	}

	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// Run History
// =============================================================================

func (h *Handler) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		writeJSONError(w, http.StatusNotFound, "run history is not enabled")
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeJSONError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	runs, err := h.runs.ListRuns(r.Context(), limit)
	if err != nil {
		h.logger.Error("list runs failed", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (h *Handler) handleLastRun(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		writeJSONError(w, http.StatusNotFound, "run history is not enabled")
		return
	}

	run, err := h.runs.LastRun(r.Context())
	if errors.Is(err, store.ErrNotFound) {
		writeJSONError(w, http.StatusNotFound, "no runs recorded")
		return
	}
	if err != nil {
		h.logger.Error("last run query failed", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to load last run")
		return
	}

	writeJSON(w, http.StatusOK, run)
}

func (h *Handler) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		writeJSONError(w, http.StatusNotFound, "run history is not enabled")
		return
	}

	id := chi.URLParam(r, "id")
	run, err := h.runs.GetRun(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeJSONError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		h.logger.Error("run query failed", "id", id, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to load run")
		return
	}

	writeJSON(w, http.StatusOK, run)
}

// =============================================================================
// Response Helpers
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
