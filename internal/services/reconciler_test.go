package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cartwheelhq/cartwheel/internal/models"
)

func floatPtr(f float64) *float64 { return &f }

func reconcileList() []models.ListItem {
	barcode := "111"
	return []models.ListItem{
		{ID: 1, Name: "Latte Intero 1L", Position: 0, CatalogBarcode: &barcode},
		{ID: 2, Name: "Pane", Position: 1},
		{ID: 3, Name: "Detersivo", Position: 2},
	}
}

func TestReconcileBarcodeMatchWins(t *testing.T) {
	barcode := "111"
	lines := []models.ReceiptLine{
		{RawText: "LATTE UHT 111 $1.99", Name: "LATTE UHT", Barcode: &barcode, TotalPrice: floatPtr(1.99), LineNumber: 0},
	}

	result := Reconcile(7, 10, lines, reconcileList())

	require.Len(t, result.Matched, 1)
	assert.Equal(t, 1, *result.Matched[0].MatchedListItemID)
	assert.Equal(t, 100.0, *result.Matched[0].MatchConfidence)
	assert.Equal(t, models.MatchStatusMatched, result.Matched[0].MatchStatus)
}

func TestReconcileEndToEnd(t *testing.T) {
	barcode := "111"
	lines := []models.ReceiptLine{
		{RawText: "LATTE 111 $1.99", Name: "LATTE", Barcode: &barcode, TotalPrice: floatPtr(1.99), LineNumber: 0},
		{RawText: "PANE CASERECCIO $2.50", Name: "Pane", TotalPrice: floatPtr(2.50), LineNumber: 1},
		{RawText: "GELATO $4.00", Name: "Gelato", TotalPrice: floatPtr(4.00), LineNumber: 2},
		{RawText: "   ", LineNumber: 3},
	}

	result := Reconcile(7, 10, lines, reconcileList())

	// Line 0 matches by barcode, line 1 by exact name
	require.Len(t, result.Matched, 2)
	assert.Equal(t, 1, *result.Matched[0].MatchedListItemID)
	assert.Equal(t, 2, *result.Matched[1].MatchedListItemID)

	// Gelato matches nothing on the list
	require.Len(t, result.Extra, 1)
	assert.Equal(t, "GELATO $4.00", result.Extra[0].RawText)
	assert.Nil(t, result.Extra[0].MatchedListItemID)

	// Blank line is ignored, not extra
	require.Len(t, result.Ignored, 1)
	assert.Equal(t, 3, result.Ignored[0].LineNumber)

	// Detersivo never got a confirmed match
	require.Len(t, result.Missing, 1)
	assert.Equal(t, 3, result.Missing[0].ID)

	assert.Equal(t, models.ReconciliationSummary{
		TotalLines:   4,
		Matched:      2,
		Unmatched:    0,
		Extra:        1,
		Ignored:      1,
		MissingItems: 1,
	}, result.Summary)
}

func TestReconcileNoDoubleConsume(t *testing.T) {
	items := []models.ListItem{
		{ID: 1, Name: "Pane", Position: 0},
	}
	lines := []models.ReceiptLine{
		{RawText: "PANE $2.50", Name: "Pane", LineNumber: 0},
		{RawText: "PANE $2.50", Name: "Pane", LineNumber: 1},
	}

	result := Reconcile(1, 1, lines, items)

	// The single list item absorbs exactly one line; the duplicate
	// cannot match it again
	require.Len(t, result.Matched, 1)
	assert.Equal(t, 0, result.Matched[0].LineNumber)
	assert.Empty(t, result.Missing)

	ids := make(map[int]int)
	for _, ri := range result.Matched {
		ids[*ri.MatchedListItemID]++
	}
	for id, count := range ids {
		assert.Equal(t, 1, count, "item %d consumed more than once", id)
	}
}

func TestReconcileSuggestionDoesNotConsume(t *testing.T) {
	items := []models.ListItem{
		{ID: 1, Name: "Latte Intero 1L", Position: 0},
	}
	lines := []models.ReceiptLine{
		{RawText: "LATTE SCREMATO 1L", Name: "Latte Scremato 1L", LineNumber: 0},
		{RawText: "LATTE INTERO 1L", Name: "Latte Intero 1L", LineNumber: 1},
	}

	result := Reconcile(1, 1, lines, items)

	// The fuzzy first line is only a suggestion; the exact second line
	// still gets the item
	require.Len(t, result.Unmatched, 1)
	assert.Equal(t, 0, result.Unmatched[0].LineNumber)
	require.NotNil(t, result.Unmatched[0].MatchConfidence)
	assert.Less(t, *result.Unmatched[0].MatchConfidence, MatchThreshold)
	assert.GreaterOrEqual(t, *result.Unmatched[0].MatchConfidence, SuggestThreshold)

	require.Len(t, result.Matched, 1)
	assert.Equal(t, 1, result.Matched[0].LineNumber)
	assert.Empty(t, result.Missing)
}

func TestReconcileTieBreaksToEarliestPosition(t *testing.T) {
	items := []models.ListItem{
		{ID: 5, Name: "Milk", Position: 2},
		{ID: 6, Name: "Milk", Position: 0},
	}
	lines := []models.ReceiptLine{
		{RawText: "MILK", Name: "Milk", LineNumber: 0},
	}

	result := Reconcile(1, 1, lines, items)

	require.Len(t, result.Matched, 1)
	assert.Equal(t, 6, *result.Matched[0].MatchedListItemID)
}

func TestReconcileIsDeterministic(t *testing.T) {
	barcode := "111"
	lines := []models.ReceiptLine{
		{RawText: "LATTE 111", Name: "LATTE", Barcode: &barcode, LineNumber: 0},
		{RawText: "PANE", Name: "Pane", LineNumber: 1},
		{RawText: "GELATO", Name: "Gelato", LineNumber: 2},
	}

	first := Reconcile(7, 10, lines, reconcileList())
	second := Reconcile(7, 10, lines, reconcileList())

	assert.Equal(t, first, second)
}

func TestReconcileEmptyReceipt(t *testing.T) {
	result := Reconcile(1, 1, nil, reconcileList())

	assert.Equal(t, 0, result.Summary.TotalLines)
	assert.Len(t, result.Missing, 3, "every list item is missing when the receipt has no lines")
}

func TestReconcileUnknownBarcodeFallsBackToName(t *testing.T) {
	unknown := "999"
	lines := []models.ReceiptLine{
		{RawText: "PANE 999", Name: "Pane", Barcode: &unknown, LineNumber: 0},
	}

	result := Reconcile(1, 1, lines, reconcileList())

	require.Len(t, result.Matched, 1)
	assert.Equal(t, 2, *result.Matched[0].MatchedListItemID)
	assert.Equal(t, 100.0, *result.Matched[0].MatchConfidence)
}
