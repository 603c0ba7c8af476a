package http

import (
	"database/sql"
	"errors"
	"net/http"

	"ecomdash/internal/core"
	"ecomdash/internal/log"
	"ecomdash/internal/services"
)

type reportAccepted struct {
	CorrelationID string `json:"correlation_id"`
	Status        string `json:"status"`
	Start         string `json:"start,omitempty"`
	End           string `json:"end,omitempty"`
	TopN          int    `json:"top_n"`
	Location      string `json:"location"`
}

type reportStatus struct {
	CorrelationID string `json:"correlation_id"`
	Status        string `json:"status"`
	Start         string `json:"start,omitempty"`
	End           string `json:"end,omitempty"`
	Rows          int64  `json:"rows"`
	TotalOrders   int64  `json:"total_orders"`
	Error         string `json:"error,omitempty"`
	CreatedAt     string `json:"created_at,omitempty"`
}

// handleCreateReport queues a report for the worker. The body is JSON or
// form-encoded with optional start, end and top_n.
func (s *Server) handleCreateReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.FromContext(ctx)

	if s.reports == nil || !s.reports.Enabled() {
		writeJSONError(w, http.StatusServiceUnavailable, services.ErrReportsDisabled.Error())
		return
	}

	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		writeJSONError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	rng, err := ParseRange(p.Get)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	topN, err := ParseTopN(p.Get("top_n"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	msg, err := s.reports.Enqueue(ctx, rng, topN)
	switch {
	case errors.Is(err, core.ErrInvalidRange):
		writeJSONError(w, http.StatusUnprocessableEntity, err.Error())
		return
	case err != nil:
		logger.ErrorContext(ctx, "Report enqueue failed",
			log.FieldOperation, log.OpPublish,
			log.FieldError, err)
		writeJSONError(w, http.StatusServiceUnavailable, "report queue unavailable")
		return
	}

	logger.InfoContext(ctx, "Report queued",
		log.FieldCorrelationID, msg.CorrelationID,
		log.FieldRangeStart, msg.Start,
		log.FieldRangeEnd, msg.End)

	location := "/api/reports/" + msg.CorrelationID
	w.Header().Set("Location", location)
	writeJSON(w, http.StatusAccepted, reportAccepted{
		CorrelationID: msg.CorrelationID,
		Status:        services.ReportPending,
		Start:         msg.Start,
		End:           msg.End,
		TopN:          msg.TopN,
		Location:      location,
	})
}

// handleGetReport returns a tracked report run.
func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if s.reports == nil {
		writeJSONError(w, http.StatusServiceUnavailable, services.ErrReportsDisabled.Error())
		return
	}

	id := r.PathValue("id")
	if err := validate.Var(id, "uuid4"); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid report id")
		return
	}

	run, err := s.reports.Get(ctx, id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		writeJSONError(w, http.StatusNotFound, "report not found")
		return
	case errors.Is(err, services.ErrReportsDisabled):
		writeJSONError(w, http.StatusServiceUnavailable, err.Error())
		return
	case err != nil:
		log.FromContext(ctx).ErrorContext(ctx, "Report lookup failed",
			log.FieldCorrelationID, id,
			log.FieldError, err)
		writeJSONError(w, http.StatusInternalServerError, "report lookup failed")
		return
	}

	writeJSON(w, http.StatusOK, reportStatus{
		CorrelationID: run.CorrelationID,
		Status:        run.Status,
		Start:         run.RangeStart,
		End:           run.RangeEnd,
		Rows:          run.RowCount,
		TotalOrders:   run.TotalOrders,
		Error:         run.Error,
		CreatedAt:     run.CreatedAt,
	})
}
