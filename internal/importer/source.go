package importer

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// DecodeCSV parses CSV text with a header row into flat records.
func DecodeCSV(text string) ([]Record, error) {
	r := csv.NewReader(strings.NewReader(text))
	r.TrimLeadingSpace = true
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv: %w", err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("csv must contain a header row and at least one record")
	}

	header := rows[0]
	records := make([]Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec := make(Record, len(header))
		for i, col := range header {
			if i < len(row) {
				rec[col] = row[i]
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

// DecodeJSON parses a JSON array of flat objects into records. Scalar values
// are coerced to strings; nested values are rejected.
func DecodeJSON(data []byte) ([]Record, error) {
	var rows []map[string]any
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse json records: %w", err)
	}

	records := make([]Record, 0, len(rows))
	for i, row := range rows {
		rec := make(Record, len(row))
		for k, v := range row {
			s, err := coerceScalar(v)
			if err != nil {
				return nil, fmt.Errorf("record %d field %q: %w", i, k, err)
			}
			rec[k] = s
		}
		records = append(records, rec)
	}
	return records, nil
}

func coerceScalar(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	case bool:
		return strconv.FormatBool(t), nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	default:
		return "", fmt.Errorf("unsupported nested value")
	}
}
