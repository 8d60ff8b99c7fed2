package services

import (
	"github.com/google/uuid"

	"github.com/cartwheelhq/cartwheel/internal/models"
)

// ScanSession accumulates barcode scans during one continuous
// verification session. Repeated scans of the same barcode bump the
// quantity instead of producing duplicate commits; the flush at session
// end yields exactly one commit per barcode.
type ScanSession struct {
	ID     string
	ListID int

	entries   []*ScanEntry
	byBarcode map[string]*ScanEntry
}

// ScanEntry is the accumulated state for one barcode within a session
type ScanEntry struct {
	Barcode  string
	Quantity float64
	ItemID   *int // nil when the barcode matched no pending item
	Extra    bool // queued as an extra-item candidate
}

// NewScanSession starts a fresh session for a list
func NewScanSession(listID int) *ScanSession {
	return &ScanSession{
		ID:        uuid.NewString(),
		ListID:    listID,
		byBarcode: make(map[string]*ScanEntry),
	}
}

// ResolveBarcode finds the pending list item whose catalog barcode
// exactly matches the scanned code. Ties break to the first pending
// item in list order, which is stable across runs.
func ResolveBarcode(items []models.ListItem, barcode string) *models.ListItem {
	if barcode == "" {
		return nil
	}
	var best *models.ListItem
	for i := range items {
		item := &items[i]
		if item.CatalogBarcode == nil || *item.CatalogBarcode != barcode {
			continue
		}
		if ClassifyItem(item) != ItemStatePending {
			continue
		}
		if best == nil || item.Position < best.Position {
			best = item
		}
	}
	return best
}

// Scan records one barcode read against the list snapshot. An already
// seen barcode accumulates quantity; a new barcode either binds to the
// first matching pending item or is queued as an extra candidate.
func (s *ScanSession) Scan(items []models.ListItem, barcode string) *ScanEntry {
	if entry, ok := s.byBarcode[barcode]; ok {
		entry.Quantity++
		return entry
	}

	entry := &ScanEntry{Barcode: barcode, Quantity: 1}
	if match := ResolveBarcode(items, barcode); match != nil {
		id := match.ID
		entry.ItemID = &id
	} else {
		entry.Extra = true
	}

	s.entries = append(s.entries, entry)
	s.byBarcode[barcode] = entry
	return entry
}

// Commits returns the accumulated entries in first-scan order, one per
// barcode, ready to be flushed as upserts.
func (s *ScanSession) Commits() []ScanEntry {
	out := make([]ScanEntry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, *e)
	}
	return out
}

// Len returns the number of distinct barcodes scanned so far
func (s *ScanSession) Len() int {
	return len(s.entries)
}

// Discard drops all not-yet-committed entries. Closing the scanner
// cancels the session; anything already flushed is never rolled back.
func (s *ScanSession) Discard() {
	s.entries = nil
	s.byBarcode = make(map[string]*ScanEntry)
}
