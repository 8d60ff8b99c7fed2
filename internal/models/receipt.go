package models

import (
	"time"
)

// ReceiptStatus represents the processing status of a receipt
type ReceiptStatus string

const (
	ReceiptStatusPending    ReceiptStatus = "pending"
	ReceiptStatusProcessing ReceiptStatus = "processing"
	ReceiptStatusProcessed  ReceiptStatus = "processed"
	ReceiptStatusFailed     ReceiptStatus = "failed"
	ReceiptStatusReconciled ReceiptStatus = "reconciled"
)

// Valid reports whether s is a known receipt status. Handlers check
// this before a status reaches a query filter.
func (s ReceiptStatus) Valid() bool {
	switch s {
	case ReceiptStatusPending, ReceiptStatusProcessing, ReceiptStatusProcessed,
		ReceiptStatusFailed, ReceiptStatusReconciled:
		return true
	}
	return false
}

// MatchStatus represents the reconciliation outcome of a receipt line
type MatchStatus string

const (
	MatchStatusMatched   MatchStatus = "matched"
	MatchStatusUnmatched MatchStatus = "unmatched"
	MatchStatusExtra     MatchStatus = "extra"
	MatchStatusIgnored   MatchStatus = "ignored"
)

// Receipt represents an uploaded receipt image tied to a shopping list
type Receipt struct {
	ID               int           `json:"id"`
	UserID           int           `json:"user_id"`
	ListID           *int          `json:"list_id,omitempty"`
	S3Bucket         string        `json:"s3_bucket"`
	S3Key            string        `json:"s3_key"`
	OriginalFilename *string       `json:"original_filename,omitempty"`
	ContentType      *string       `json:"content_type,omitempty"`
	FileSizeBytes    *int64        `json:"file_size_bytes,omitempty"`
	Status           ReceiptStatus `json:"status"`
	OCRText          *string       `json:"ocr_text,omitempty"`
	ErrorMessage     *string       `json:"error_message,omitempty"`
	ReceiptDate      *time.Time    `json:"receipt_date,omitempty"`
	ReceiptTotal     *float64      `json:"receipt_total,omitempty"`
	UploadedAt       time.Time     `json:"uploaded_at"`
	ProcessedAt      *time.Time    `json:"processed_at,omitempty"`
	ReconciledAt     *time.Time    `json:"reconciled_at,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// ReceiptWithItems includes the parsed line items
type ReceiptWithItems struct {
	Receipt
	Items    []ReceiptItem `json:"items"`
	ImageURL *string       `json:"image_url,omitempty"`
}

// ReceiptLine is a single parsed line as it comes out of the OCR
// parsing stage, before reconciliation
type ReceiptLine struct {
	RawText    string
	Name       string
	Barcode    *string
	TotalPrice *float64
	LineNumber int
}

// ReceiptItem represents a stored receipt line with its match outcome.
// MatchConfidence is present only when a text-similarity match was
// attempted; barcode matches carry confidence 100.
type ReceiptItem struct {
	ID                int         `json:"id"`
	ReceiptID         int         `json:"receipt_id"`
	LineNumber        int         `json:"line_number"`
	RawText           string      `json:"raw_text"`
	ParsedName        *string     `json:"parsed_name,omitempty"`
	ParsedTotalPrice  *float64    `json:"parsed_total_price,omitempty"`
	Barcode           *string     `json:"barcode,omitempty"`
	MatchStatus       MatchStatus `json:"match_status"`
	MatchConfidence   *float64    `json:"match_confidence,omitempty"`
	MatchedListItemID *int        `json:"matched_list_item_id,omitempty"`
	CreatedAt         time.Time   `json:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at"`
}

// ReconciliationSummary holds the aggregate counts of a reconciliation run
type ReconciliationSummary struct {
	TotalLines   int `json:"total_lines"`
	Matched      int `json:"matched"`
	Unmatched    int `json:"unmatched"`
	Extra        int `json:"extra"`
	Ignored      int `json:"ignored"`
	MissingItems int `json:"missing_items"`
}

// ReconciliationResult classifies every receipt line against the list
// and surfaces list items no receipt line accounted for. It is a
// read-only report; applying its conclusions back to the list is a
// separate explicit action.
type ReconciliationResult struct {
	ReceiptID int                   `json:"receipt_id"`
	ListID    int                   `json:"list_id"`
	Matched   []ReceiptItem         `json:"matched_items"`
	Unmatched []ReceiptItem         `json:"unmatched_items"`
	Extra     []ReceiptItem         `json:"extra_items"`
	Ignored   []ReceiptItem         `json:"ignored_items"`
	Missing   []ListItem            `json:"missing_items"`
	Summary   ReconciliationSummary `json:"summary"`
}

// Lines returns all classified receipt items in line order
func (r *ReconciliationResult) Lines() []ReceiptItem {
	all := make([]ReceiptItem, 0, len(r.Matched)+len(r.Unmatched)+len(r.Extra)+len(r.Ignored))
	all = append(all, r.Matched...)
	all = append(all, r.Unmatched...)
	all = append(all, r.Extra...)
	all = append(all, r.Ignored...)
	return all
}

// CreateReceiptRequest is used when recording an uploaded receipt
type CreateReceiptRequest struct {
	UserID           int
	ListID           *int
	S3Bucket         string
	S3Key            string
	OriginalFilename string
	ContentType      string
	FileSizeBytes    int64
}

// ApplyExtrasRequest selects which extra receipt lines to add to the list
type ApplyExtrasRequest struct {
	ReceiptItemIDs []int `json:"receipt_item_ids"`
}

// ReceiptListParams contains parameters for listing receipts
type ReceiptListParams struct {
	Limit  int
	Offset int
	Status *string
	UserID int
}
