package services

import (
	"github.com/cartwheelhq/cartwheel/internal/models"
)

// Reconcile classifies parsed receipt lines against a shopping list's
// items. Lines are processed in receipt order; a confirmed match
// consumes its list item so no item can absorb two lines. The result is
// a pure function of its inputs and never mutates the list.
func Reconcile(receiptID, listID int, lines []models.ReceiptLine, items []models.ListItem) *models.ReconciliationResult {
	result := &models.ReconciliationResult{
		ReceiptID: receiptID,
		ListID:    listID,
		Matched:   []models.ReceiptItem{},
		Unmatched: []models.ReceiptItem{},
		Extra:     []models.ReceiptItem{},
		Ignored:   []models.ReceiptItem{},
		Missing:   []models.ListItem{},
	}

	consumed := make(map[int]bool, len(items))

	for _, line := range lines {
		ri := models.ReceiptItem{
			ReceiptID:  receiptID,
			LineNumber: line.LineNumber,
			RawText:    line.RawText,
			Barcode:    line.Barcode,
		}
		if line.Name != "" {
			name := line.Name
			ri.ParsedName = &name
		}
		if line.TotalPrice != nil {
			price := *line.TotalPrice
			ri.ParsedTotalPrice = &price
		}

		if line.Name == "" && line.Barcode == nil {
			ri.MatchStatus = models.MatchStatusIgnored
			result.Ignored = append(result.Ignored, ri)
			continue
		}

		// Barcode match wins outright and consumes the item
		if line.Barcode != nil {
			if item := firstUnconsumedByBarcode(items, consumed, *line.Barcode); item != nil {
				conf := 100.0
				ri.MatchStatus = models.MatchStatusMatched
				ri.MatchConfidence = &conf
				ri.MatchedListItemID = &item.ID
				consumed[item.ID] = true
				result.Matched = append(result.Matched, ri)
				continue
			}
		}

		best, score := bestNameMatch(line.Name, items, consumed)
		switch {
		case best != nil && score >= MatchThreshold:
			ri.MatchStatus = models.MatchStatusMatched
			ri.MatchConfidence = &score
			ri.MatchedListItemID = &best.ID
			consumed[best.ID] = true
			result.Matched = append(result.Matched, ri)
		case best != nil && score >= SuggestThreshold:
			// Suggestion only; the item stays available for later lines
			ri.MatchStatus = models.MatchStatusUnmatched
			ri.MatchConfidence = &score
			ri.MatchedListItemID = &best.ID
			result.Unmatched = append(result.Unmatched, ri)
		default:
			ri.MatchStatus = models.MatchStatusExtra
			result.Extra = append(result.Extra, ri)
		}
	}

	// Anything never consumed by a confirmed match is missing
	for i := range items {
		if !consumed[items[i].ID] {
			result.Missing = append(result.Missing, items[i])
		}
	}

	result.Summary = models.ReconciliationSummary{
		TotalLines:   len(lines),
		Matched:      len(result.Matched),
		Unmatched:    len(result.Unmatched),
		Extra:        len(result.Extra),
		Ignored:      len(result.Ignored),
		MissingItems: len(result.Missing),
	}

	return result
}

// firstUnconsumedByBarcode returns the unconsumed list item with the
// given catalog barcode, preferring the earliest list position.
func firstUnconsumedByBarcode(items []models.ListItem, consumed map[int]bool, barcode string) *models.ListItem {
	var best *models.ListItem
	for i := range items {
		item := &items[i]
		if consumed[item.ID] {
			continue
		}
		if item.CatalogBarcode == nil || *item.CatalogBarcode != barcode {
			continue
		}
		if best == nil || item.Position < best.Position {
			best = item
		}
	}
	return best
}

// bestNameMatch scores the parsed name against every unconsumed item
// and returns the highest scorer, tie-breaking to the earliest position
// so reruns over the same inputs classify identically.
func bestNameMatch(name string, items []models.ListItem, consumed map[int]bool) (*models.ListItem, float64) {
	if name == "" {
		return nil, 0
	}
	var best *models.ListItem
	bestScore := 0.0
	for i := range items {
		item := &items[i]
		if consumed[item.ID] {
			continue
		}
		score := ScoreNames(name, item.Name)
		if score > bestScore || (score == bestScore && best != nil && score > 0 && item.Position < best.Position) {
			best = item
			bestScore = score
		}
	}
	if bestScore < SuggestThreshold {
		return nil, bestScore
	}
	return best, bestScore
}
