package server

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alertscope/internal/models"
)

func TestEncodeCSVColumnsAreSortedUnion(t *testing.T) {
	data, err := encodeCSV([]models.ReadableAlert{
		{"b": "1"},
		{"a": "2", "c": "3"},
	})
	require.NoError(t, err)
	assert.Equal(t, "a,b,c\n,1,\n2,,3\n", string(data))
}

func TestEncodeCSVQuotesSeparators(t *testing.T) {
	data, err := encodeCSV([]models.ReadableAlert{{"Tags": "disk, prod"}})
	require.NoError(t, err)
	assert.Equal(t, "Tags\n\"disk, prod\"\n", string(data))
}

func TestCSVCell(t *testing.T) {
	tests := []struct {
		in       any
		expected string
	}{
		{nil, ""},
		{"text", "text"},
		{2.0, "2"},
		{0.1, "0.1"},
		{1704067200123.0, "1704067200123"},
		{json.Number("42"), "42"},
		{true, "true"},
		{7, "7"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, csvCell(tt.in), "%v", tt.in)
	}
}
