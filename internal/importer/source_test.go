package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeCSV(t *testing.T) {
	csvText := "Reporter Name,Reporter Phone,Loan Amount\nAlice,5551234567,5000\nBob,5559876543,2500\n"

	records, err := DecodeCSV(csvText)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Alice", records[0]["Reporter Name"])
	assert.Equal(t, "5000", records[0]["Loan Amount"])
	assert.Equal(t, "Bob", records[1]["Reporter Name"])
}

func TestDecodeCSVRequiresHeaderAndRows(t *testing.T) {
	_, err := DecodeCSV("Reporter Name,Phone\n")
	assert.Error(t, err)

	_, err = DecodeCSV("")
	assert.Error(t, err)
}

func TestDecodeCSVShortRow(t *testing.T) {
	// Ragged rows are a parse error under encoding/csv defaults.
	_, err := DecodeCSV("a,b,c\n1,2\n")
	assert.Error(t, err)
}

func TestDecodeJSON(t *testing.T) {
	payload := []byte(`[
		{"name": "Alice", "amount": 5000, "active": true, "note": null},
		{"name": "Bob", "amount": 2500.5, "active": false, "note": "late"}
	]`)

	records, err := DecodeJSON(payload)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Alice", records[0]["name"])
	assert.Equal(t, "5000", records[0]["amount"])
	assert.Equal(t, "true", records[0]["active"])
	assert.Equal(t, "", records[0]["note"])
	assert.Equal(t, "2500.5", records[1]["amount"])
}

func TestDecodeJSONRejectsNestedValues(t *testing.T) {
	_, err := DecodeJSON([]byte(`[{"name": {"first": "Alice"}}]`))
	assert.Error(t, err)

	_, err = DecodeJSON([]byte(`[{"tags": ["a", "b"]}]`))
	assert.Error(t, err)
}

func TestDecodeJSONRejectsNonArray(t *testing.T) {
	_, err := DecodeJSON([]byte(`{"name": "Alice"}`))
	assert.Error(t, err)
}
