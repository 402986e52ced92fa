package api

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yurtlab/pjinventory/internal/inventory"
	"github.com/yurtlab/pjinventory/internal/report"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeNotFound(w, "no such route")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, ErrCodeMethodNotAllow, "the report server is read-only")
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/metrics", s.handleMetrics)

		r.Route("/projectors", func(r chi.Router) {
			r.Get("/", s.handleProjectors)
			r.Get("/{serial}", s.handleProjectors)
		})
		r.Route("/bulbs", func(r chi.Router) {
			r.Get("/", s.handleBulbs)
			r.Get("/{id}", s.handleBulbs)
		})
		r.Get("/slots", s.handleSlots)
		r.Get("/positions", s.handlePositions)
		r.Get("/export.xlsx", s.handleExport)
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if s.metrics == nil {
		writeNotFound(w, "metrics are not collected")
		return
	}
	promhttp.HandlerFor(s.metrics, promhttp.HandlerOpts{}).ServeHTTP(w, r)
}

func (s *Server) handleProjectors(w http.ResponseWriter, r *http.Request) {
	serial := chi.URLParam(r, "serial")
	if serial == "" {
		serial = inventory.AllProjectors
	}
	reports, err := s.inventory.ProjectorReport(r.Context(), serial)
	if err != nil {
		s.writeInventoryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"projectors": orEmpty(reports),
		"count":      len(reports),
	})
}

func (s *Server) handleBulbs(w http.ResponseWriter, r *http.Request) {
	id := inventory.AllBulbs
	if param := chi.URLParam(r, "id"); param != "" {
		parsed, err := strconv.ParseInt(param, 10, 64)
		if err != nil || parsed < 1 {
			writeBadRequest(w, "bulb id must be a positive integer")
			return
		}
		id = parsed
	}
	reports, err := s.inventory.BulbReport(r.Context(), id)
	if err != nil {
		s.writeInventoryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"bulbs": orEmpty(reports),
		"count": len(reports),
	})
}

func (s *Server) handleSlots(w http.ResponseWriter, r *http.Request) {
	slots, err := s.inventory.InstalledSlots(r.Context())
	if err != nil {
		s.writeInventoryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"slots": orEmpty(slots)})
}

func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	positions, err := s.inventory.Positions(r.Context())
	if err != nil {
		s.writeInventoryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"positions": orEmpty(positions)})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	projectors, err := s.inventory.ProjectorReport(ctx, inventory.AllProjectors)
	if err != nil {
		s.writeInventoryError(w, r, err)
		return
	}
	bulbs, err := s.inventory.BulbReport(ctx, inventory.AllBulbs)
	if err != nil {
		s.writeInventoryError(w, r, err)
		return
	}

	// Buffer so a failed render can still answer with a JSON error.
	var buf bytes.Buffer
	if err := report.WriteWorkbook(&buf, projectors, bulbs); err != nil {
		s.writeInventoryError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="pjinventory.xlsx"`)
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w) //nolint:errcheck // Best-effort write; connection may be closed
}

// orEmpty keeps empty lists encoding as [] rather than null.
func orEmpty[T any](list []T) []T {
	if list == nil {
		return []T{}
	}
	return list
}
