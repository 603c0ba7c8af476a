package google

import (
	"fmt"
	"strings"
)

// toRecords converts a Sheets values matrix into string rows. Fully blank
// rows are dropped; Sheets omits trailing empty cells, and the loader pads
// ragged rows back to header width.
func toRecords(values [][]interface{}) [][]string {
	out := make([][]string, 0, len(values))
	for _, row := range values {
		rec := toStrings(row)
		if isBlank(rec) {
			continue
		}
		out = append(out, rec)
	}
	return out
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		if v == nil {
			continue
		}
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func isBlank(rec []string) bool {
	for _, s := range rec {
		if s != "" {
			return false
		}
	}
	return true
}
