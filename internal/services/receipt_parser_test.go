package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBarcodeLine(t *testing.T) {
	parser := NewReceiptParser()

	parsed, err := parser.Parse("MILK WHOLE GAL 04900000634 $3.49 F")
	require.NoError(t, err)
	require.Len(t, parsed.Lines, 1)

	line := parsed.Lines[0]
	assert.Equal(t, "MILK WHOLE GAL", line.Name)
	require.NotNil(t, line.Barcode)
	assert.Equal(t, "04900000634", *line.Barcode)
	require.NotNil(t, line.TotalPrice)
	assert.Equal(t, 3.49, *line.TotalPrice)
}

func TestParsePriceLine(t *testing.T) {
	parser := NewReceiptParser()

	parsed, err := parser.Parse("BANANAS 1.29")
	require.NoError(t, err)
	require.Len(t, parsed.Lines, 1)

	line := parsed.Lines[0]
	assert.Equal(t, "BANANAS", line.Name)
	assert.Nil(t, line.Barcode)
	require.NotNil(t, line.TotalPrice)
	assert.Equal(t, 1.29, *line.TotalPrice)
}

func TestParseQuantityLine(t *testing.T) {
	parser := NewReceiptParser()

	// The quantity token must not end up inside the parsed name
	parsed, err := parser.Parse("2 x BREAD $3.00")
	require.NoError(t, err)
	require.Len(t, parsed.Lines, 1)

	line := parsed.Lines[0]
	assert.Equal(t, "BREAD", line.Name)
	require.NotNil(t, line.TotalPrice)
	assert.Equal(t, 3.00, *line.TotalPrice)
}

func TestParseExcludesReceiptNoise(t *testing.T) {
	parser := NewReceiptParser()

	text := `SUBTOTAL 12.48
TAX 0.87
TOTAL 13.35
THANK YOU FOR SHOPPING
VISA ************1234
==========
BREAD 2.50`

	parsed, err := parser.Parse(text)
	require.NoError(t, err)
	require.Len(t, parsed.Lines, 1)
	assert.Equal(t, "BREAD", parsed.Lines[0].Name)
}

func TestParseExtractsTotal(t *testing.T) {
	parser := NewReceiptParser()

	parsed, err := parser.Parse("MILK 3.49\nTOTAL $12.87")
	require.NoError(t, err)
	require.NotNil(t, parsed.Total)
	assert.Equal(t, 12.87, *parsed.Total)
}

func TestParseExtractsDate(t *testing.T) {
	parser := NewReceiptParser()

	parsed, err := parser.Parse("MILK 3.49\n03/15/2026 14:22")
	require.NoError(t, err)
	require.NotNil(t, parsed.Date)
	assert.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), *parsed.Date)
}

func TestParseKeepsNameOnlyLines(t *testing.T) {
	parser := NewReceiptParser()

	parsed, err := parser.Parse("ORGANIC APPLES")
	require.NoError(t, err)
	require.Len(t, parsed.Lines, 1)
	assert.Equal(t, "ORGANIC APPLES", parsed.Lines[0].Name)
	assert.Nil(t, parsed.Lines[0].TotalPrice)
}

func TestParseFixesPipeArtifacts(t *testing.T) {
	parser := NewReceiptParser()

	// OCR commonly reads "1" as "|"
	parsed, err := parser.Parse("MILK |.99")
	require.NoError(t, err)
	require.Len(t, parsed.Lines, 1)
	require.NotNil(t, parsed.Lines[0].TotalPrice)
	assert.Equal(t, 1.99, *parsed.Lines[0].TotalPrice)
}

func TestParseCommaDecimalPrice(t *testing.T) {
	parser := NewReceiptParser()

	parsed, err := parser.Parse("LATTE INTERO 1,99")
	require.NoError(t, err)
	require.Len(t, parsed.Lines, 1)
	require.NotNil(t, parsed.Lines[0].TotalPrice)
	assert.Equal(t, 1.99, *parsed.Lines[0].TotalPrice)
}

func TestParseEmptyText(t *testing.T) {
	parser := NewReceiptParser()

	parsed, err := parser.Parse("")
	require.NoError(t, err)
	assert.Empty(t, parsed.Lines)
	assert.Nil(t, parsed.Total)
	assert.Nil(t, parsed.Date)
}

func TestParseLineNumbersAreSequential(t *testing.T) {
	parser := NewReceiptParser()

	text := `MILK 3.49
SUBTOTAL 3.49
BREAD 2.50
EGGS 4.99`

	parsed, err := parser.Parse(text)
	require.NoError(t, err)
	require.Len(t, parsed.Lines, 3)
	for i, line := range parsed.Lines {
		assert.Equal(t, i, line.LineNumber)
	}
}
