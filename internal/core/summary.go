package core

import "encoding/json"

// KeyCount is one group of an aggregate: a grouping key and the number of
// distinct ids that fall under it.
type KeyCount struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// Aggregate is a derived table in first-seen key order.
type Aggregate []KeyCount

// DayCount is one bucket of the daily order series.
type DayCount struct {
	Day   Date `json:"day"`
	Count int  `json:"count"`
}

// Total sums the counts of every bucket.
func (a Aggregate) Total() int {
	n := 0
	for _, kc := range a {
		n += kc.Count
	}
	return n
}

// Snapshot is everything the dashboard shows for one filtered view.
type Snapshot struct {
	Range       DateRange  `json:"range"`
	Bounds      DateRange  `json:"bounds"`
	Rows        int        `json:"rows"`
	TotalOrders int        `json:"total_orders"`
	Daily       []DayCount `json:"daily_orders"`
	ByCity      Aggregate  `json:"by_city"`
	ByState     Aggregate  `json:"by_state"`
	ByProduct   Aggregate  `json:"by_product"`
	ByCategory  Aggregate  `json:"by_category"`
	ByPayment   Aggregate  `json:"by_payment_type"`
}

// MarshalText renders the date as YYYY-MM-DD. It shadows the promoted
// time.Time methods so payloads carry days, not instants.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	return d.UnmarshalText([]byte(s))
}

// UnmarshalText accepts YYYY-MM-DD or an empty string.
func (d *Date) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
