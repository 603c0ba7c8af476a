package export

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"ecomdash/internal/core"
)

func snapshot() core.Snapshot {
	return core.Snapshot{
		Range:       core.DateRange{Start: core.NewDate(2018, 1, 1), End: core.NewDate(2018, 1, 3)},
		Bounds:      core.DateRange{Start: core.NewDate(2017, 1, 1), End: core.NewDate(2018, 12, 31)},
		Rows:        5,
		TotalOrders: 4,
		Daily: []core.DayCount{
			{Day: core.NewDate(2018, 1, 1), Count: 3},
			{Day: core.NewDate(2018, 1, 3), Count: 1},
		},
		ByCity:     core.Aggregate{{Key: "rio", Count: 1}, {Key: "sao paulo", Count: 2}},
		ByState:    core.Aggregate{{Key: "RJ", Count: 1}, {Key: "SP", Count: 2}},
		ByProduct:  core.Aggregate{{Key: "p1", Count: 4}},
		ByCategory: core.Aggregate{},
		ByPayment:  core.Aggregate{{Key: "boleto", Count: 1}, {Key: "credit_card", Count: 3}},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, snapshot()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)

	assert.Equal(t, []string{"aggregate", "key", "value"}, records[0])
	assert.Contains(t, records, []string{"summary", "total_orders", "4"})
	assert.Contains(t, records, []string{"summary", "range_start", "2018-01-01"})
	assert.Contains(t, records, []string{"daily_orders", "2018-01-03", "1"})

	// Largest group first.
	var cities [][]string
	for _, r := range records {
		if r[0] == "by_city" {
			cities = append(cities, r)
		}
	}
	assert.Equal(t, [][]string{{"by_city", "sao paulo", "2"}, {"by_city", "rio", "1"}}, cities)

	for _, r := range records {
		assert.NotEqual(t, "by_category", r[0], "empty aggregate should have no rows")
	}
}

func TestWriteCSVEmptySnapshot(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, core.Snapshot{}))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	// Header plus the summary block.
	assert.Len(t, records, 7)
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, snapshot()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{
		"Summary", "daily_orders", "by_city", "by_state", "by_product", "by_category", "by_payment_type",
	}, f.GetSheetList())

	rows, err := f.GetRows("by_payment_type")
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"payment_type", "orders"},
		{"credit_card", "3"},
		{"boleto", "1"},
	}, rows)

	total, err := f.GetCellValue("Summary", "B7")
	require.NoError(t, err)
	assert.Equal(t, "4", total)

	rows, err = f.GetRows("by_category")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
