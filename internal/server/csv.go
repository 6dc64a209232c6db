package server

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"alertscope/internal/models"
)

// encodeCSV writes one row per alert. The header is the union of all alert
// keys in lexicographic order; keys an alert lacks become empty cells.
func encodeCSV(alerts []models.ReadableAlert) ([]byte, error) {
	seen := make(map[string]struct{})
	var columns []string
	for _, alert := range alerts {
		for key := range alert {
			if _, ok := seen[key]; !ok {
				seen[key] = struct{}{}
				columns = append(columns, key)
			}
		}
	}
	sort.Strings(columns)

	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	if err := cw.Write(columns); err != nil {
		return nil, err
	}

	row := make([]string, len(columns))
	for _, alert := range alerts {
		for i, col := range columns {
			row[i] = csvCell(alert[col])
		}
		if err := cw.Write(row); err != nil {
			return nil, err
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func csvCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case json.Number:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}
