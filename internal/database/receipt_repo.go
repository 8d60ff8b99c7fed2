package database

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/cartwheelhq/cartwheel/internal/models"
)

var (
	ErrReceiptNotFound     = errors.New("receipt not found")
	ErrReceiptItemNotFound = errors.New("receipt item not found")
)

// CreateReceipt records an uploaded receipt image
func (db *DB) CreateReceipt(ctx context.Context, req *models.CreateReceiptRequest) (*models.Receipt, error) {
	receipt := &models.Receipt{}
	err := db.Pool.QueryRow(ctx, `
		INSERT INTO receipts (user_id, list_id, s3_bucket, s3_key, original_filename, content_type, file_size_bytes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, user_id, list_id, s3_bucket, s3_key, original_filename, content_type,
			file_size_bytes, status, ocr_text, error_message, receipt_date, receipt_total,
			uploaded_at, processed_at, reconciled_at, created_at, updated_at
	`, req.UserID, req.ListID, req.S3Bucket, req.S3Key, req.OriginalFilename, req.ContentType, req.FileSizeBytes).Scan(
		&receipt.ID, &receipt.UserID, &receipt.ListID, &receipt.S3Bucket, &receipt.S3Key,
		&receipt.OriginalFilename, &receipt.ContentType, &receipt.FileSizeBytes,
		&receipt.Status, &receipt.OCRText, &receipt.ErrorMessage,
		&receipt.ReceiptDate, &receipt.ReceiptTotal,
		&receipt.UploadedAt, &receipt.ProcessedAt, &receipt.ReconciledAt,
		&receipt.CreatedAt, &receipt.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

// UpdateReceiptStatus transitions a receipt through the pipeline
func (db *DB) UpdateReceiptStatus(ctx context.Context, id int, status models.ReceiptStatus, ocrText, errorMessage *string) error {
	result, err := db.Pool.Exec(ctx, `
		UPDATE receipts
		SET status = $2,
		    ocr_text = COALESCE($3, ocr_text),
		    error_message = $4,
		    processed_at = CASE WHEN $2 IN ('processed', 'failed') THEN NOW() ELSE processed_at END,
		    updated_at = NOW()
		WHERE id = $1
	`, id, string(status), ocrText, errorMessage)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrReceiptNotFound
	}
	return nil
}

// UpdateReceiptMetadata records the date and total parsed from the OCR text
func (db *DB) UpdateReceiptMetadata(ctx context.Context, id int, date *time.Time, total *float64) error {
	_, err := db.Pool.Exec(ctx, `
		UPDATE receipts
		SET receipt_date = COALESCE($2, receipt_date),
		    receipt_total = COALESCE($3, receipt_total),
		    updated_at = NOW()
		WHERE id = $1
	`, id, date, total)
	return err
}

// GetReceiptByID retrieves a receipt with its line items
func (db *DB) GetReceiptByID(ctx context.Context, id int) (*models.ReceiptWithItems, error) {
	receipt := &models.ReceiptWithItems{}
	err := db.Pool.QueryRow(ctx, `
		SELECT id, user_id, list_id, s3_bucket, s3_key, original_filename, content_type,
			file_size_bytes, status, ocr_text, error_message, receipt_date, receipt_total,
			uploaded_at, processed_at, reconciled_at, created_at, updated_at
		FROM receipts
		WHERE id = $1
	`, id).Scan(
		&receipt.ID, &receipt.UserID, &receipt.ListID, &receipt.S3Bucket, &receipt.S3Key,
		&receipt.OriginalFilename, &receipt.ContentType, &receipt.FileSizeBytes,
		&receipt.Status, &receipt.OCRText, &receipt.ErrorMessage,
		&receipt.ReceiptDate, &receipt.ReceiptTotal,
		&receipt.UploadedAt, &receipt.ProcessedAt, &receipt.ReconciledAt,
		&receipt.CreatedAt, &receipt.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrReceiptNotFound
		}
		return nil, err
	}

	rows, err := db.Pool.Query(ctx, `
		SELECT id, receipt_id, line_number, raw_text, parsed_name, parsed_total_price,
			barcode, match_status, match_confidence, matched_list_item_id, created_at, updated_at
		FROM receipt_items
		WHERE receipt_id = $1
		ORDER BY line_number ASC
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	receipt.Items = []models.ReceiptItem{}
	for rows.Next() {
		item := models.ReceiptItem{}
		err := rows.Scan(
			&item.ID, &item.ReceiptID, &item.LineNumber, &item.RawText,
			&item.ParsedName, &item.ParsedTotalPrice, &item.Barcode,
			&item.MatchStatus, &item.MatchConfidence, &item.MatchedListItemID,
			&item.CreatedAt, &item.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		receipt.Items = append(receipt.Items, item)
	}

	return receipt, nil
}

// ReplaceReceiptItems stores the parsed lines of a receipt, replacing
// any previous parse so reprocessing stays idempotent
func (db *DB) ReplaceReceiptItems(ctx context.Context, receiptID int, lines []models.ReceiptLine) error {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DELETE FROM receipt_items WHERE receipt_id = $1", receiptID); err != nil {
		return err
	}

	for _, line := range lines {
		var name *string
		if line.Name != "" {
			n := line.Name
			name = &n
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO receipt_items (receipt_id, line_number, raw_text, parsed_name, parsed_total_price, barcode)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, receiptID, line.LineNumber, line.RawText, name, line.TotalPrice, line.Barcode)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// SaveReconciliation persists a reconciliation run: per-line match
// outcomes plus the receipt's reconciled timestamp
func (db *DB) SaveReconciliation(ctx context.Context, receiptID int, result *models.ReconciliationResult) error {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, item := range result.Lines() {
		_, err := tx.Exec(ctx, `
			UPDATE receipt_items
			SET match_status = $3,
			    match_confidence = $4,
			    matched_list_item_id = $5,
			    updated_at = NOW()
			WHERE receipt_id = $1 AND line_number = $2
		`, receiptID, item.LineNumber, string(item.MatchStatus), item.MatchConfidence, item.MatchedListItemID)
		if err != nil {
			return err
		}
	}

	_, err = tx.Exec(ctx, `
		UPDATE receipts
		SET status = 'reconciled', reconciled_at = NOW(), updated_at = NOW()
		WHERE id = $1
	`, receiptID)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// GetReceiptItemByID retrieves a single stored receipt line
func (db *DB) GetReceiptItemByID(ctx context.Context, id int) (*models.ReceiptItem, error) {
	item := &models.ReceiptItem{}
	err := db.Pool.QueryRow(ctx, `
		SELECT id, receipt_id, line_number, raw_text, parsed_name, parsed_total_price,
			barcode, match_status, match_confidence, matched_list_item_id, created_at, updated_at
		FROM receipt_items
		WHERE id = $1
	`, id).Scan(
		&item.ID, &item.ReceiptID, &item.LineNumber, &item.RawText,
		&item.ParsedName, &item.ParsedTotalPrice, &item.Barcode,
		&item.MatchStatus, &item.MatchConfidence, &item.MatchedListItemID,
		&item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrReceiptItemNotFound
		}
		return nil, err
	}
	return item, nil
}

// ListReceipts returns a paginated list of a user's receipts
func (db *DB) ListReceipts(ctx context.Context, params *models.ReceiptListParams) ([]*models.Receipt, int, error) {
	statusFilter := ""
	args := []any{params.UserID}
	if params.Status != nil && *params.Status != "" {
		args = append(args, *params.Status)
		statusFilter = " AND status = $" + strconv.Itoa(len(args))
	}

	var total int
	err := db.Pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM receipts WHERE user_id = $1"+statusFilter,
		args...).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := db.Pool.Query(ctx, `
		SELECT id, user_id, list_id, s3_bucket, s3_key, original_filename, content_type,
			file_size_bytes, status, ocr_text, error_message, receipt_date, receipt_total,
			uploaded_at, processed_at, reconciled_at, created_at, updated_at
		FROM receipts
		WHERE user_id = $1`+statusFilter+`
		ORDER BY created_at DESC
		LIMIT $`+strconv.Itoa(len(args)+1)+` OFFSET $`+strconv.Itoa(len(args)+2),
		append(args, params.Limit, params.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var receipts []*models.Receipt
	for rows.Next() {
		receipt := &models.Receipt{}
		err := rows.Scan(
			&receipt.ID, &receipt.UserID, &receipt.ListID, &receipt.S3Bucket, &receipt.S3Key,
			&receipt.OriginalFilename, &receipt.ContentType, &receipt.FileSizeBytes,
			&receipt.Status, &receipt.OCRText, &receipt.ErrorMessage,
			&receipt.ReceiptDate, &receipt.ReceiptTotal,
			&receipt.UploadedAt, &receipt.ProcessedAt, &receipt.ReconciledAt,
			&receipt.CreatedAt, &receipt.UpdatedAt,
		)
		if err != nil {
			return nil, 0, err
		}
		receipts = append(receipts, receipt)
	}

	return receipts, total, nil
}

// DeleteReceipt deletes a receipt and its items
func (db *DB) DeleteReceipt(ctx context.Context, id int) error {
	result, err := db.Pool.Exec(ctx, "DELETE FROM receipts WHERE id = $1", id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrReceiptNotFound
	}
	return nil
}
