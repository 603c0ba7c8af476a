package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"ecomdash/internal/analytics"
	"ecomdash/internal/core"
	"ecomdash/internal/export"
	"ecomdash/internal/log"
	"ecomdash/internal/services"
)

const computeTimeout = 10 * time.Second

type exportFormat struct {
	name        string
	contentType string
	write       func(io.Writer, core.Snapshot) error
}

var (
	exportXLSX = exportFormat{export.FormatXLSX, export.ContentTypeXLSX, export.WriteXLSX}
	exportCSV  = exportFormat{export.FormatCSV, export.ContentTypeCSV, export.WriteCSV}
)

func (s *Server) compute(ctx context.Context, rng core.DateRange) (services.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, computeTimeout)
	defer cancel()
	return s.dashboard.Compute(ctx, rng, services.OriginHTTP)
}

// handleDashboardPartial redraws the dashboard for the submitted range. A
// reversed range leaves the page as it was: the response carries an error
// fragment and a range:rejected trigger with the last accepted range.
func (s *Server) handleDashboardPartial(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.FromContext(ctx)

	if s.templates == nil {
		InternalServerError("Templates not loaded").Write(w)
		return
	}

	rng, err := ParseRangeQuery(r.URL.Query())
	if err != nil {
		BadRequestError(err.Error()).
			TriggerErrorNotification(err.Error()).
			Header("HX-Retarget", "#range-error").
			Header("HX-Reswap", "innerHTML").
			Write(w)
		return
	}

	res, err := s.compute(ctx, rng)
	if err != nil {
		s.writeComputeError(w, r, err)
		return
	}

	data, err := buildDashboardData(res.View)
	if err != nil {
		logger.ErrorContext(ctx, "Chart rendering failed", log.FieldError, err)
		InternalServerError("Failed to draw the charts").Write(w)
		return
	}

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "dashboard_partial", data); err != nil {
		logger.ErrorContext(ctx, "Dashboard template execution failed", log.FieldError, err, "template", "dashboard_partial")
		InternalServerError("Failed to render the dashboard").Write(w)
		return
	}

	NewHTMXResponse().
		TriggerDashboardUpdated(res.View.Range).
		BodyHTML(buf.String()).
		Write(w)
}

// writeComputeError maps compute failures for HTMX requests.
func (s *Server) writeComputeError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, core.ErrInvalidRange):
		log.FromContext(ctx).InfoContext(ctx, "Range rejected",
			log.FieldError, err,
			log.FieldErrorType, log.ErrorTypeInvalidRange)
		msg := "Start date must not be after end date."
		UnprocessableEntityError(msg).
			TriggerRangeRejected(s.previousRange(r)).
			TriggerErrorNotification(msg).
			Header("HX-Retarget", "#range-error").
			Header("HX-Reswap", "innerHTML").
			Write(w)
	case errors.Is(err, services.ErrNotLoaded):
		ServiceUnavailableError("The dataset is not loaded yet.").Write(w)
	default:
		log.FromContext(ctx).ErrorContext(ctx, "Dashboard compute failed", log.FieldError, err)
		InternalServerError("Failed to compute the dashboard.").Write(w)
	}
}

// previousRange is the range the page showed before the rejected request.
// The form carries it as prev_start/prev_end; the dataset bounds are the
// fallback.
func (s *Server) previousRange(r *http.Request) core.DateRange {
	q := r.URL.Query()
	prev, err := ParseRange(func(k string) string { return q.Get("prev_" + k) })
	if err == nil && !prev.Start.IsEmpty() && !prev.End.IsEmpty() && prev.Validate() == nil {
		return prev
	}
	bounds, _ := s.dashboard.Bounds()
	return bounds
}

// handleDashboardJSON returns the snapshot for the requested range. With
// top_n the ranked aggregates are cut to that many groups.
func (s *Server) handleDashboardJSON(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	q := r.URL.Query()
	rng, err := ParseRangeQuery(q)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	topN, err := ParseTopN(q.Get("top_n"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.compute(ctx, rng)
	if err != nil {
		s.writeJSONComputeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, analytics.Truncate(res.Snapshot, topN))
}

func (s *Server) writeJSONComputeError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, core.ErrInvalidRange):
		writeJSONError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, services.ErrNotLoaded):
		writeJSONError(w, http.StatusServiceUnavailable, err.Error())
	default:
		log.FromContext(ctx).ErrorContext(ctx, "Dashboard compute failed", log.FieldError, err)
		writeJSONError(w, http.StatusInternalServerError, "failed to compute dashboard")
	}
}

// handleExport streams the full aggregates of a range as a download.
func (s *Server) handleExport(format exportFormat) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		logger := log.FromContext(ctx)

		rng, err := ParseRangeQuery(r.URL.Query())
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}

		res, err := s.compute(ctx, rng)
		if err != nil {
			s.writeJSONComputeError(w, r, err)
			return
		}

		var buf bytes.Buffer
		if err := format.write(&buf, res.Snapshot); err != nil {
			logger.ErrorContext(ctx, "Export failed",
				log.FieldFormat, format.name,
				log.FieldOperation, log.OpExport,
				log.FieldError, err)
			writeJSONError(w, http.StatusInternalServerError, "export failed")
			return
		}

		if s.metrics != nil {
			s.metrics.Exports.WithLabelValues(format.name).Inc()
		}
		logger.InfoContext(ctx, "Dashboard exported",
			log.FieldFormat, format.name,
			log.FieldRangeStart, res.Snapshot.Range.Start.String(),
			log.FieldRangeEnd, res.Snapshot.Range.End.String(),
			log.FieldRows, res.Snapshot.Rows)

		filename := fmt.Sprintf("dashboard_%s_%s.%s",
			res.Snapshot.Range.Start.String(), res.Snapshot.Range.End.String(), format.name)
		w.Header().Set("Content-Type", format.contentType)
		w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(buf.Bytes())
	})
}
