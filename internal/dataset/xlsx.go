package dataset

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"ecomdash/internal/core"
)

// LoadXLSX reads the named sheet of a workbook, or the first sheet when sheet
// is empty.
func LoadXLSX(path, sheet string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, &core.MalformedInputError{Reason: fmt.Sprintf("open workbook %s: %v", path, err)}
	}
	defer f.Close()
	return loadWorkbook(f, sheet)
}

// ReadXLSX is LoadXLSX over an already open stream.
func ReadXLSX(r io.Reader, sheet string) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, &core.MalformedInputError{Reason: "open workbook: " + err.Error()}
	}
	defer f.Close()
	return loadWorkbook(f, sheet)
}

func loadWorkbook(f *excelize.File, sheet string) (*Table, error) {
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, &core.MalformedInputError{Reason: "workbook has no sheets"}
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, &core.MalformedInputError{Reason: fmt.Sprintf("read sheet %q: %v", sheet, err)}
	}
	return FromRecords(rows)
}
