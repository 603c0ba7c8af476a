package http

import (
	"bytes"
	"errors"
	"net/http"
	"time"

	"ecomdash/internal/core"
	"ecomdash/internal/dashboard"
	"ecomdash/internal/log"
	"ecomdash/internal/services"
)

// chartPanel is a bar panel with its rendered chart.
type chartPanel struct {
	dashboard.Panel
	SVG string
}

// dashboardData feeds the "dashboard" template.
type dashboardData struct {
	View   dashboard.ViewModel
	Daily  string
	Panels []chartPanel
}

type pageData struct {
	Title     string
	Bounds    core.DateRange
	Dashboard *dashboardData
	Error     string
}

func buildDashboardData(vm dashboard.ViewModel) (*dashboardData, error) {
	charts, err := dashboard.RenderCharts(vm)
	if err != nil {
		return nil, err
	}
	data := &dashboardData{View: vm, Daily: charts.Daily}
	for _, p := range vm.Panels() {
		data.Panels = append(data.Panels, chartPanel{Panel: p, SVG: charts.Panels[p.ID]})
	}
	return data, nil
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).String(),
	})
}

// handleReady reports whether templates are parsed and a dataset is loaded.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]interface{})

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if s.dashboard == nil || !s.dashboard.Ready() {
		checks["dataset"] = "failed: dataset not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		bounds, _ := s.dashboard.Bounds()
		checks["dataset"] = map[string]interface{}{
			"status": "ok",
			"start":  bounds.Start.String(),
			"end":    bounds.End.String(),
		}
	}

	switch {
	case s.reports == nil || !s.reports.Enabled():
		checks["reports"] = "disabled"
	default:
		checks["reports"] = "ok"
	}

	checks["rate_limiter"] = map[string]interface{}{
		"active_clients": s.limiter.Clients(),
		"status":         "ok",
	}

	writeJSON(w, httpStatus, map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleIndex renders the full page over the whole dataset, with the date
// inputs seeded from its bounds.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.FromContext(ctx)

	if s.templates == nil {
		logger.ErrorContext(ctx, "Templates not loaded", log.FieldPath, r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	data := pageData{Title: dashboard.Title}
	status := http.StatusOK

	res, err := s.dashboard.Compute(ctx, core.DateRange{}, services.OriginHTTP)
	switch {
	case errors.Is(err, services.ErrNotLoaded):
		data.Error = "The dataset is not loaded yet."
		status = http.StatusServiceUnavailable
	case err != nil:
		logger.ErrorContext(ctx, "Dashboard compute failed", log.FieldError, err)
		data.Error = "Failed to compute the dashboard."
		status = http.StatusInternalServerError
	default:
		data.Bounds = res.View.Bounds
		if data.Dashboard, err = buildDashboardData(res.View); err != nil {
			logger.ErrorContext(ctx, "Chart rendering failed", log.FieldError, err)
			http.Error(w, "chart rendering failed", http.StatusInternalServerError)
			return
		}
	}

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "index.html", data); err != nil {
		logger.ErrorContext(ctx, "Index template execution failed", log.FieldError, err, "template", "index.html")
		http.Error(w, "template execution failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}
