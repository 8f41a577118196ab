package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"ridesdash/internal/charts"
	"ridesdash/internal/core"
	applog "ridesdash/internal/log"
	"ridesdash/internal/records"
)

// loadFailedMessage is the only error detail clients ever see for a failed load.
const loadFailedMessage = "Failed to load data"

// dashboardResponse is the dashboard JSON plus data freshness.
type dashboardResponse struct {
	charts.Dashboard
	LastImport *core.Import `json:"last_import,omitempty"`
}

// handleIndex renders the dashboard page shell; the charts are drawn by
// the client from /api/dashboard.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		s.logger.ErrorContext(r.Context(), "Templates not loaded", applog.FieldPath, r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	type view struct{ ID, Title string }
	data := struct {
		Title string
		Views []view
	}{Title: "Ride Data Dashboard"}
	for _, v := range charts.Views {
		data.Views = append(data.Views, view{ID: v, Title: charts.Title(v)})
	}

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "dashboard.html", data); err != nil {
		s.log.LogError(r.Context(), "Dashboard template execution failed", err,
			applog.ComponentTemplate, applog.OpRender, applog.NewFields().With("template", "dashboard.html"))
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

// handleRides returns the raw snapshot as {locations, categories, rides}.
func (s *Server) handleRides(w http.ResponseWriter, r *http.Request) {
	snap, err := s.loadSnapshot(r.Context())
	if err != nil {
		s.loadFailed(w)
		return
	}
	NewJSONResponse().Body(snap).Write(w)
}

// handleDashboard returns every view in chart-ready form.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	snap, err := s.loadSnapshot(r.Context())
	if err != nil {
		s.loadFailed(w)
		return
	}

	resp := dashboardResponse{Dashboard: charts.BuildDashboard(snap)}
	if s.imports != nil {
		if imp, ok := s.imports.LastImport(); ok {
			resp.LastImport = &imp
		}
	}
	NewJSONResponse().Body(resp).Write(w)
}

// handleChart renders /charts/{view}.png.
func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	view, ok := strings.CutSuffix(r.PathValue("file"), ".png")
	if !ok || !charts.KnownView(view) {
		writeError(w, http.StatusNotFound, "Unknown chart")
		return
	}

	size, err := ParseChartSize(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	snap, err := s.loadSnapshot(r.Context())
	if err != nil {
		s.loadFailed(w)
		return
	}

	key := fmt.Sprintf("%s|%dx%d|%016x", view, size.Width, size.Height, snap.Digest())
	if png, ok := s.cachedChart(key); ok {
		writePNG(w, png)
		return
	}

	var buf bytes.Buffer
	err = charts.RenderPNG(&buf, view, snap, size)
	switch {
	case errors.Is(err, charts.ErrNoData):
		s.metrics.ObserveRender(view, "no_data")
		w.WriteHeader(http.StatusNoContent)
		return
	case err != nil:
		s.metrics.ObserveRender(view, "error")
		s.log.LogError(r.Context(), "Chart rendering failed", err,
			applog.ComponentCharts, applog.OpRender, applog.NewFields().With(applog.FieldView, view))
		writeError(w, http.StatusInternalServerError, "Failed to render chart")
		return
	}

	s.metrics.ObserveRender(view, "success")
	if s.chartCache != nil {
		s.chartCache.Set(key, buf.Bytes())
	}
	writePNG(w, buf.Bytes())
}

// cachedChart looks key up when the chart cache is enabled.
func (s *Server) cachedChart(key string) ([]byte, bool) {
	if s.chartCache == nil {
		return nil, false
	}
	png, ok := s.chartCache.Get(key)
	s.metrics.ObserveCache(ok, s.chartCache.Size())
	return png, ok
}

func writePNG(w http.ResponseWriter, png []byte) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	_, _ = w.Write(png)
}

// loadFailed answers with the generic 500. The loader has already logged
// the cause.
func (s *Server) loadFailed(w http.ResponseWriter) {
	writeError(w, http.StatusInternalServerError, loadFailedMessage)
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	}).Write(w)
}

// handleReady checks templates, the data source and reports the last import.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.loadTimeout)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	switch {
	case s.loader == nil:
		checks["data_source"] = "not_configured"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	default:
		if err := records.Check(ctx, s.loader); err != nil {
			s.logger.WarnContext(ctx, "Readiness probe failed", applog.FieldBackend, s.backend, applog.FieldError, err)
			checks["data_source"] = "failed"
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
		} else {
			checks["data_source"] = "ok"
		}
	}

	checks["rate_limiter"] = map[string]any{
		"active_clients": s.rateLimiter.ActiveClients(),
		"status":         "ok",
	}

	response := map[string]any{
		"status":    status,
		"backend":   s.backend,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks":    checks,
	}
	if s.imports != nil {
		if imp, ok := s.imports.LastImport(); ok {
			response["last_import"] = imp
		}
	}

	NewJSONResponse().Status(httpStatus).Body(response).Write(w)
}
