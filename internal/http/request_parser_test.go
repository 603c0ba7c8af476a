package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"ecomdash/internal/core"
)

func TestParseRangeQuery(t *testing.T) {
	tests := []struct {
		name      string
		query     url.Values
		want      core.DateRange
		wantField string // non-empty means a *RequestError on this field
	}{
		{
			name:  "both bounds",
			query: url.Values{"start": {"2017-01-01"}, "end": {"2017-12-31"}},
			want:  core.DateRange{Start: core.NewDate(2017, 1, 1), End: core.NewDate(2017, 12, 31)},
		},
		{
			name:  "missing values stay unset",
			query: url.Values{},
			want:  core.DateRange{},
		},
		{
			name:  "only end",
			query: url.Values{"end": {" 2018-08-29 "}},
			want:  core.DateRange{End: core.NewDate(2018, 8, 29)},
		},
		{
			name:  "reversed range is not checked here",
			query: url.Values{"start": {"2018-02-01"}, "end": {"2018-01-01"}},
			want:  core.DateRange{Start: core.NewDate(2018, 2, 1), End: core.NewDate(2018, 1, 1)},
		},
		{
			name:      "bad start format",
			query:     url.Values{"start": {"01/02/2018"}},
			wantField: "start",
		},
		{
			name:      "impossible end date",
			query:     url.Values{"start": {"2018-01-01"}, "end": {"2018-02-30"}},
			wantField: "end",
		},
		{
			name:      "timestamp is not a date",
			query:     url.Values{"end": {"2018-01-01 10:00:00"}},
			wantField: "end",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRangeQuery(tt.query)
			if tt.wantField != "" {
				var re *RequestError
				if !errors.As(err, &re) {
					t.Fatalf("error = %v, want *RequestError", err)
				}
				if re.Field != tt.wantField {
					t.Errorf("Field = %q, want %q", re.Field, tt.wantField)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Key() != tt.want.Key() {
				t.Errorf("range = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestParseTopN(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"", 0, false},
		{"5", 5, false},
		{"50", 50, false},
		{"0", 0, true},
		{"51", 0, true},
		{"five", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseTopN(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseTopN(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseTopN(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestRequestBodyParser_JSON(t *testing.T) {
	body := `{"start": "2018-01-01", "end": "2018-03-31", "top_n": 10}`
	req := httptest.NewRequest(http.MethodPost, "/api/reports", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if !parser.IsJSON() {
		t.Error("Expected IsJSON() to be true")
	}
	if start := parser.Get("start"); start != "2018-01-01" {
		t.Errorf("Get('start') = %q, want '2018-01-01'", start)
	}
	if topN := parser.Get("top_n"); topN != "10" {
		t.Errorf("Get('top_n') = %q, want '10'", topN)
	}
	if missing := parser.Get("missing"); missing != "" {
		t.Errorf("Get('missing') = %q, want empty string", missing)
	}
}

func TestRequestBodyParser_FormData(t *testing.T) {
	body := "start=2018-01-01&end=+2018-03-31%0A"
	req := httptest.NewRequest(http.MethodPost, "/api/reports", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if parser.IsJSON() {
		t.Error("Expected IsJSON() to be false for form data")
	}
	if end := parser.Get("end"); end != "2018-03-31" {
		t.Errorf("Get('end') = %q, want '2018-03-31'", end)
	}

	r, err := ParseRange(parser.Get)
	if err != nil {
		t.Fatalf("ParseRange() error = %v", err)
	}
	if r.Start.String() != "2018-01-01" || r.End.String() != "2018-03-31" {
		t.Errorf("range = %s", r)
	}
}

func TestRequestBodyParser_EmptyBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/reports", strings.NewReader(""))

	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if val := parser.Get("start"); val != "" {
		t.Errorf("Get('start') = %q, want empty string", val)
	}
}

func TestRequestBodyParser_MalformedJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/reports", strings.NewReader(`{"start": `))

	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err == nil {
		t.Fatal("expected a parse error")
	}
}

func TestSanitizeInput(t *testing.T) {
	if got := sanitizeInput(" 2018-01-01\x00\x07 "); got != "2018-01-01" {
		t.Errorf("sanitizeInput = %q", got)
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.9:5555"
	if got := clientIP(req); got != "10.0.0.9" {
		t.Errorf("clientIP = %q, want 10.0.0.9", got)
	}

	req.Header.Set("X-Real-IP", "10.1.1.1")
	if got := clientIP(req); got != "10.1.1.1" {
		t.Errorf("clientIP = %q, want 10.1.1.1", got)
	}

	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	if got := clientIP(req); got != "203.0.113.7" {
		t.Errorf("clientIP = %q, want 203.0.113.7", got)
	}
}
