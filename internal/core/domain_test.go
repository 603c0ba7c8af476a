package core

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestDateRangeValidate(t *testing.T) {
	cases := []struct {
		r  DateRange
		ok bool
	}{
		{DateRange{Start: NewDate(2018, 1, 1), End: NewDate(2018, 1, 1)}, true},
		{DateRange{Start: NewDate(2018, 1, 1), End: NewDate(2018, 1, 3)}, true},
		{DateRange{Start: NewDate(2018, 1, 3), End: NewDate(2018, 1, 1)}, false},
		{DateRange{}, true}, // unset bounds resolved later
	}
	for i, tc := range cases {
		err := tc.r.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok {
			if !errors.Is(err, ErrInvalidRange) {
				t.Fatalf("case %d expected ErrInvalidRange, got %v", i, err)
			}
			var ire *InvalidRangeError
			if !errors.As(err, &ire) || ire.Start != tc.r.Start {
				t.Fatalf("case %d expected *InvalidRangeError, got %T", i, err)
			}
		}
	}
}

func TestDateRangeContainsIsDayInclusive(t *testing.T) {
	r := DateRange{Start: NewDate(2018, 1, 1), End: NewDate(2018, 1, 2)}
	in := []time.Time{
		time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2018, 1, 2, 23, 59, 59, 0, time.UTC),
	}
	out := []time.Time{
		time.Date(2017, 12, 31, 23, 59, 59, 0, time.UTC),
		time.Date(2018, 1, 3, 0, 0, 0, 0, time.UTC),
	}
	for _, ts := range in {
		if !r.Contains(ts) {
			t.Fatalf("expected %v inside %v", ts, r)
		}
	}
	for _, ts := range out {
		if r.Contains(ts) {
			t.Fatalf("expected %v outside %v", ts, r)
		}
	}
}

func TestMalformedInputErrorMessage(t *testing.T) {
	err := error(&MalformedInputError{Row: 3, Column: ColPurchasedAt, Value: "nope", Reason: "unparsable timestamp"})
	if !errors.Is(err, ErrMalformedInput) {
		t.Fatalf("expected ErrMalformedInput")
	}
	want := `malformed input: row 3 column order_purchase_timestamp ("nope"): unparsable timestamp`
	if err.Error() != want {
		t.Fatalf("got %q", err.Error())
	}
}

func TestDateJSON(t *testing.T) {
	b, err := json.Marshal(DateRange{Start: NewDate(2018, 2, 1), End: NewDate(2018, 2, 28)})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back DateRange
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Start != NewDate(2018, 2, 1) || back.End != NewDate(2018, 2, 28) {
		t.Fatalf("unexpected round trip: %s", b)
	}
}
