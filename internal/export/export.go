// Package export writes a computed snapshot as a workbook or a flat CSV.
// Aggregates are exported in full, largest group first, not cut to the
// dashboard's top N.
package export

import (
	"fmt"
	"io"
	"strconv"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/xuri/excelize/v2"

	"ecomdash/internal/analytics"
	"ecomdash/internal/core"
)

// Formats.
const (
	FormatXLSX = "xlsx"
	FormatCSV  = "csv"
)

const (
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	ContentTypeCSV  = "text/csv; charset=utf-8"
)

// section is one exported table.
type section struct {
	name   string // aggregate name in CSV, sheet name in XLSX
	header [2]string
	rows   [][2]string
}

func sections(s core.Snapshot) []section {
	daily := section{name: "daily_orders", header: [2]string{"day", "orders"}}
	for _, d := range s.Daily {
		daily.rows = append(daily.rows, [2]string{d.Day.String(), strconv.Itoa(d.Count)})
	}
	return []section{
		daily,
		aggSection("by_city", "customer_city", "customers", s.ByCity),
		aggSection("by_state", "customer_state", "customers", s.ByState),
		aggSection("by_product", "product_id", "orders", s.ByProduct),
		aggSection("by_category", "product_category_name", "orders", s.ByCategory),
		aggSection("by_payment_type", "payment_type", "orders", s.ByPayment),
	}
}

func aggSection(name, key, unit string, agg core.Aggregate) section {
	sec := section{name: name, header: [2]string{key, unit}}
	for _, kc := range analytics.TopN(agg, 0) {
		sec.rows = append(sec.rows, [2]string{kc.Key, strconv.Itoa(kc.Count)})
	}
	return sec
}

func summary(s core.Snapshot) [][2]string {
	return [][2]string{
		{"range_start", s.Range.Start.String()},
		{"range_end", s.Range.End.String()},
		{"data_start", s.Bounds.Start.String()},
		{"data_end", s.Bounds.End.String()},
		{"rows", strconv.Itoa(s.Rows)},
		{"total_orders", strconv.Itoa(s.TotalOrders)},
	}
}

// WriteCSV writes every aggregate as long-format rows of
// (aggregate, key, count), preceded by the summary figures.
func WriteCSV(w io.Writer, s core.Snapshot) error {
	var aggs, keys, counts []string
	for _, kv := range summary(s) {
		aggs = append(aggs, "summary")
		keys = append(keys, kv[0])
		counts = append(counts, kv[1])
	}
	for _, sec := range sections(s) {
		for _, row := range sec.rows {
			aggs = append(aggs, sec.name)
			keys = append(keys, row[0])
			counts = append(counts, row[1])
		}
	}

	df := dataframe.New(
		series.New(aggs, series.String, "aggregate"),
		series.New(keys, series.String, "key"),
		series.New(counts, series.String, "value"),
	)
	if df.Err != nil {
		return fmt.Errorf("build export frame: %w", df.Err)
	}
	if err := df.WriteCSV(w); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// WriteXLSX writes a workbook with a Summary sheet and one sheet per
// aggregate.
func WriteXLSX(w io.Writer, s core.Snapshot) error {
	f := excelize.NewFile()
	defer f.Close()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	const first = "Summary"
	if err := f.SetSheetName(f.GetSheetName(0), first); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := writeSheet(f, first, [2]string{"metric", "value"}, summary(s), bold); err != nil {
		return err
	}

	for _, sec := range sections(s) {
		if _, err := f.NewSheet(sec.name); err != nil {
			return fmt.Errorf("create sheet %s: %w", sec.name, err)
		}
		if err := writeSheet(f, sec.name, sec.header, sec.rows, bold); err != nil {
			return err
		}
	}

	f.SetActiveSheet(0)
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, header [2]string, rows [][2]string, headerStyle int) error {
	if err := f.SetSheetRow(sheet, "A1", &[]interface{}{header[0], header[1]}); err != nil {
		return fmt.Errorf("write %s header: %w", sheet, err)
	}
	if err := f.SetCellStyle(sheet, "A1", "B1", headerStyle); err != nil {
		return fmt.Errorf("style %s header: %w", sheet, err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		var value interface{} = row[1]
		if n, err := strconv.Atoi(row[1]); err == nil {
			value = n
		}
		if err := f.SetSheetRow(sheet, cell, &[]interface{}{row[0], value}); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}

	if err := f.SetColWidth(sheet, "A", "A", 28); err != nil {
		return fmt.Errorf("size %s columns: %w", sheet, err)
	}
	return nil
}
