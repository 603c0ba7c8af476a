// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data.
// Range and report parameters arrive either as query strings (HTMX filter
// form) or as JSON/form bodies (report API); both go through the same
// validator rules.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"ecomdash/internal/core"
)

const maxBodyBytes = 64 << 10

var validate = validator.New(validator.WithRequiredStructEnabled())

// RangeParams are the raw filter values as submitted.
type RangeParams struct {
	Start string `validate:"omitempty,datetime=2006-01-02"`
	End   string `validate:"omitempty,datetime=2006-01-02"`
}

// RequestError is a malformed request parameter. It maps to 400.
type RequestError struct {
	Field  string
	Value  string
	Reason string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// ParseRange reads start and end through get. Missing values stay unset and
// are resolved against the loaded table later; badly formatted dates fail
// with *RequestError. Ordering is not checked here.
func ParseRange(get func(string) string) (core.DateRange, error) {
	p := RangeParams{
		Start: sanitizeInput(get("start")),
		End:   sanitizeInput(get("end")),
	}
	if err := validate.Struct(p); err != nil {
		return core.DateRange{}, requestError(err, p)
	}

	var r core.DateRange
	var err error
	if p.Start != "" {
		if r.Start, err = core.ParseDate(p.Start); err != nil {
			return core.DateRange{}, &RequestError{Field: "start", Value: p.Start, Reason: err.Error()}
		}
	}
	if p.End != "" {
		if r.End, err = core.ParseDate(p.End); err != nil {
			return core.DateRange{}, &RequestError{Field: "end", Value: p.End, Reason: err.Error()}
		}
	}
	return r, nil
}

// ParseRangeQuery parses start/end from a query string.
func ParseRangeQuery(q url.Values) (core.DateRange, error) {
	return ParseRange(q.Get)
}

func requestError(err error, p RangeParams) error {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) || len(ve) == 0 {
		return err
	}
	fe := ve[0]
	field := strings.ToLower(fe.Field())
	value := p.Start
	if field == "end" {
		value = p.End
	}
	return &RequestError{Field: field, Value: value, Reason: "expected YYYY-MM-DD"}
}

// ParseTopN reads an optional top-N override in [1, 50]. Empty means 0,
// the configured default.
func ParseTopN(s string) (int, error) {
	s = sanitizeInput(s)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, &RequestError{Field: "top_n", Value: s, Reason: "not a number"}
	}
	if err := validate.Var(n, "min=1,max=50"); err != nil {
		return 0, &RequestError{Field: "top_n", Value: s, Reason: "must be between 1 and 50"}
	}
	return n, nil
}

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data, commonly used with HTMX.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]interface{}
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser creates a parser for the given request.
// It reads the body once, up to 64KiB, and stores it for subsequent parsing.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	if r.Body != nil {
		p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	}
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	// Try JSON first if content looks like JSON
	if p.body[0] == '{' {
		p.jsonData = make(map[string]interface{})
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.err = err
			return err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(string(p.body))
	return p.err
}

// Get returns a string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

// stringValue converts an interface{} to string.
func stringValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}
