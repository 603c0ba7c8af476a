package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"ecomdash/internal/core"
)

// Report result statuses.
const (
	StatusOK       = "ok"
	StatusRejected = "rejected"
	StatusFailed   = "failed"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func messageValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// ReportRequest asks a worker to compute the dashboard for a date range.
// Empty Start or End fall back to the dataset bounds.
type ReportRequest struct {
	CorrelationID string    `json:"correlation_id" validate:"required,uuid4"`
	Start         string    `json:"start,omitempty" validate:"omitempty,datetime=2006-01-02"`
	End           string    `json:"end,omitempty" validate:"omitempty,datetime=2006-01-02"`
	TopN          int       `json:"top_n,omitempty" validate:"omitempty,min=1,max=50"`
	RequestedAt   time.Time `json:"requested_at"`
}

// NewReportRequest creates a request with a fresh correlation id.
func NewReportRequest(r core.DateRange, topN int) *ReportRequest {
	req := &ReportRequest{
		CorrelationID: uuid.NewString(),
		TopN:          topN,
		RequestedAt:   time.Now().UTC(),
	}
	if !r.Start.IsEmpty() {
		req.Start = r.Start.String()
	}
	if !r.End.IsEmpty() {
		req.End = r.End.String()
	}
	return req
}

// Validate checks field formats. It does not check Start <= End; that is
// the pipeline's job and yields an InvalidRangeError.
func (m *ReportRequest) Validate() error {
	if err := messageValidator().Struct(m); err != nil {
		return fmt.Errorf("invalid report request: %w", err)
	}
	return nil
}

// Range parses Start and End. Call Validate first.
func (m *ReportRequest) Range() (core.DateRange, error) {
	var r core.DateRange
	var err error
	if m.Start != "" {
		if r.Start, err = core.ParseDate(m.Start); err != nil {
			return core.DateRange{}, err
		}
	}
	if m.End != "" {
		if r.End, err = core.ParseDate(m.End); err != nil {
			return core.DateRange{}, err
		}
	}
	return r, nil
}

func (m *ReportRequest) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ReportRequestFromJSON(data []byte) (*ReportRequest, error) {
	var msg ReportRequest
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// ReportResult is published once per handled request.
type ReportResult struct {
	CorrelationID string         `json:"correlation_id"`
	Status        string         `json:"status"`
	Error         string         `json:"error,omitempty"`
	Snapshot      *core.Snapshot `json:"snapshot,omitempty"`
	CompletedAt   time.Time      `json:"completed_at"`
}

func NewReportResult(correlationID string, snap *core.Snapshot, err error) *ReportResult {
	res := &ReportResult{
		CorrelationID: correlationID,
		Status:        StatusOK,
		Snapshot:      snap,
		CompletedAt:   time.Now().UTC(),
	}
	if err != nil {
		res.Status = StatusFailed
		if errors.Is(err, core.ErrInvalidRange) {
			res.Status = StatusRejected
		}
		res.Error = err.Error()
		res.Snapshot = nil
	}
	return res
}

func (m *ReportResult) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ReportResultFromJSON(data []byte) (*ReportResult, error) {
	var msg ReportResult
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
