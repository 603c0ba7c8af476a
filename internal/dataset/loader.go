package dataset

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"ecomdash/internal/core"
)

// nanValues are cells the source uses for "no value". They become empty keys,
// which the aggregations skip.
var nanValues = []string{"NA", "NaN", "nan", "<nil>", "null"}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// loadOptions keep every column as a string; the timestamp column is parsed
// by the loader itself so a bad row can be reported precisely.
func loadOptions() []dataframe.LoadOption {
	return []dataframe.LoadOption{
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(nanValues),
	}
}

// LoadFile loads a .csv or .xlsx file, chosen by extension.
func LoadFile(path string) (*Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return LoadXLSX(path, "")
	default:
		f, err := os.Open(path)
		if err != nil {
			return nil, &core.MalformedInputError{Reason: fmt.Sprintf("open %s: %v", path, err)}
		}
		defer f.Close()
		return LoadCSV(f)
	}
}

// LoadCSV reads a comma separated file with a header row.
func LoadCSV(r io.Reader) (*Table, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	df := dataframe.ReadCSV(br, loadOptions()...)
	if df.Err != nil {
		return nil, &core.MalformedInputError{Reason: "read csv: " + df.Err.Error()}
	}
	return fromFrame(df)
}

// FromRecords builds a table from a header row followed by data rows. Every
// source (csv, xlsx, sqlite, sheets) funnels through here, so validation is
// identical regardless of where the rows came from.
func FromRecords(records [][]string) (*Table, error) {
	if len(records) == 0 {
		return nil, &core.MalformedInputError{Reason: "missing header row"}
	}
	if len(records) == 1 {
		if err := checkColumns(trimHeader(append([]string(nil), records[0]...))); err != nil {
			return nil, err
		}
		return nil, &core.MalformedInputError{Reason: core.ErrEmptyDataset.Error()}
	}
	df := dataframe.LoadRecords(padRecords(records), loadOptions()...)
	if df.Err != nil {
		return nil, &core.MalformedInputError{Reason: "load records: " + df.Err.Error()}
	}
	return fromFrame(df)
}

func fromFrame(df dataframe.DataFrame) (*Table, error) {
	if err := checkColumns(df.Names()); err != nil {
		return nil, err
	}
	if df.Nrow() == 0 {
		return nil, &core.MalformedInputError{Reason: core.ErrEmptyDataset.Error()}
	}

	cols := make(map[string][]string, len(core.RequiredColumns))
	for _, name := range core.RequiredColumns {
		cols[name] = columnValues(df.Col(name))
	}

	n := df.Nrow()
	rows := make([]core.OrderRecord, n)
	stamps := cols[core.ColPurchasedAt]
	for i := 0; i < n; i++ {
		ts, ok := parseTimestamp(stamps[i])
		if !ok {
			return nil, &core.MalformedInputError{
				Row:    i + 1,
				Column: core.ColPurchasedAt,
				Value:  stamps[i],
				Reason: "unparsable timestamp",
			}
		}
		rows[i] = core.OrderRecord{
			OrderID:       cols[core.ColOrderID][i],
			CustomerID:    cols[core.ColCustomerID][i],
			CustomerCity:  cols[core.ColCustomerCity][i],
			CustomerState: cols[core.ColCustomerState][i],
			ProductID:     cols[core.ColProductID][i],
			Category:      cols[core.ColCategory][i],
			PaymentType:   cols[core.ColPaymentType][i],
			PurchasedAt:   ts,
		}
	}

	t := newTable(rows)
	slog.Debug("Dataset loaded",
		"component", "dataset",
		"rows", t.Len(),
		"min_timestamp", t.MinTimestamp(),
		"max_timestamp", t.MaxTimestamp())
	return t, nil
}

// columnValues flattens a string series, mapping NaN cells to "".
func columnValues(s series.Series) []string {
	vals := s.Records()
	nan := s.IsNaN()
	for i := range vals {
		if nan[i] {
			vals[i] = ""
		} else {
			vals[i] = strings.TrimSpace(vals[i])
		}
	}
	return vals
}

func checkColumns(header []string) error {
	have := make(map[string]bool, len(header))
	for _, h := range header {
		have[h] = true
	}
	for _, name := range core.RequiredColumns {
		if !have[name] {
			return &core.MalformedInputError{Column: name, Reason: "missing column"}
		}
	}
	return nil
}

// padRecords right-pads ragged rows to the header width. Spreadsheet sources
// drop trailing empty cells.
func padRecords(records [][]string) [][]string {
	width := len(records[0])
	out := make([][]string, len(records))
	for i, rec := range records {
		row := make([]string, width)
		copy(row, rec)
		out[i] = row
	}
	out[0] = trimHeader(out[0])
	return out
}

func trimHeader(h []string) []string {
	for i := range h {
		h[i] = strings.TrimSpace(h[i])
	}
	return h
}
