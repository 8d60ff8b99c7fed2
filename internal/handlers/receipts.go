package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/cartwheelhq/cartwheel/internal/config"
	"github.com/cartwheelhq/cartwheel/internal/database"
	"github.com/cartwheelhq/cartwheel/internal/middleware"
	"github.com/cartwheelhq/cartwheel/internal/models"
	"github.com/cartwheelhq/cartwheel/internal/services"
)

// maxReceiptSize caps uploaded receipt images at 10MB
const maxReceiptSize = 10 * 1024 * 1024

// ReceiptHandler handles receipt upload, processing and reconciliation
type ReceiptHandler struct {
	db      *database.DB
	cfg     *config.Config
	storage *services.StorageService
	ocr     *services.OCRService
	parser  *services.ReceiptParser
	catalog *services.CatalogService
	events  *services.ListEventsHub
}

// NewReceiptHandler creates a new receipt handler
func NewReceiptHandler(
	db *database.DB,
	cfg *config.Config,
	storage *services.StorageService,
	ocr *services.OCRService,
	events *services.ListEventsHub,
) *ReceiptHandler {
	return &ReceiptHandler{
		db:      db,
		cfg:     cfg,
		storage: storage,
		ocr:     ocr,
		parser:  services.NewReceiptParser(),
		catalog: services.NewCatalogService(db),
		events:  events,
	}
}

// UploadReceipt handles receipt image upload and OCR processing
func (h *ReceiptHandler) UploadReceipt(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	if userID == 0 {
		return Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	file, err := c.FormFile("image")
	if err != nil {
		return Error(c, fiber.StatusBadRequest, "image file is required")
	}

	contentType := file.Header.Get("Content-Type")
	if !isValidImageType(contentType) {
		return Error(c, fiber.StatusBadRequest, "invalid image type. Supported: JPEG, PNG, WebP")
	}
	if file.Size > maxReceiptSize {
		return Error(c, fiber.StatusBadRequest, "file too large. Maximum size is 10MB")
	}

	// Optional list to reconcile against later
	var listID *int
	if listIDStr := c.FormValue("list_id"); listIDStr != "" {
		if id, err := strconv.Atoi(listIDStr); err == nil {
			listID = &id
		}
	}

	s3Key := generateS3Key(userID, file.Filename)

	src, err := file.Open()
	if err != nil {
		return Error(c, fiber.StatusInternalServerError, "failed to read file")
	}
	defer src.Close()

	// Read into memory for both the S3 upload and OCR
	imageBytes, err := io.ReadAll(src)
	if err != nil {
		return Error(c, fiber.StatusInternalServerError, "failed to read file")
	}

	uploadResult, err := h.storage.Upload(c.Context(), s3Key, bytes.NewReader(imageBytes), file.Size, contentType)
	if err != nil {
		return Error(c, fiber.StatusInternalServerError, "failed to upload image")
	}

	receipt, err := h.db.CreateReceipt(c.Context(), &models.CreateReceiptRequest{
		UserID:           userID,
		ListID:           listID,
		S3Bucket:         uploadResult.Bucket,
		S3Key:            s3Key,
		OriginalFilename: file.Filename,
		ContentType:      contentType,
		FileSizeBytes:    file.Size,
	})
	if err != nil {
		if deleteErr := h.storage.Delete(c.Context(), s3Key); deleteErr != nil {
			log.Printf("Warning: Failed to clean up S3 object %s after receipt creation failure: %v", s3Key, deleteErr)
		}
		return Error(c, fiber.StatusInternalServerError, "failed to create receipt record")
	}

	if err := h.db.UpdateReceiptStatus(c.Context(), receipt.ID, models.ReceiptStatusProcessing, nil, nil); err != nil {
		log.Printf("Warning: Failed to update receipt %d status to processing: %v", receipt.ID, err)
	}

	ocrResult, err := h.ocr.ProcessImage(imageBytes)
	if err != nil {
		errMsg := err.Error()
		if statusErr := h.db.UpdateReceiptStatus(c.Context(), receipt.ID, models.ReceiptStatusFailed, nil, &errMsg); statusErr != nil {
			log.Printf("Warning: Failed to update receipt %d status to failed: %v", receipt.ID, statusErr)
		}
		return Error(c, fiber.StatusInternalServerError, "OCR processing failed")
	}

	parsed, err := h.parser.Parse(ocrResult.Text)
	if err != nil {
		errMsg := err.Error()
		if statusErr := h.db.UpdateReceiptStatus(c.Context(), receipt.ID, models.ReceiptStatusFailed, &ocrResult.Text, &errMsg); statusErr != nil {
			log.Printf("Warning: Failed to update receipt %d status to failed: %v", receipt.ID, statusErr)
		}
		return Error(c, fiber.StatusInternalServerError, "failed to parse receipt")
	}

	if err := h.db.UpdateReceiptStatus(c.Context(), receipt.ID, models.ReceiptStatusProcessed, &ocrResult.Text, nil); err != nil {
		log.Printf("Warning: Failed to update receipt %d status to processed: %v", receipt.ID, err)
	}
	if err := h.db.UpdateReceiptMetadata(c.Context(), receipt.ID, parsed.Date, parsed.Total); err != nil {
		log.Printf("Warning: Failed to update receipt %d metadata: %v", receipt.ID, err)
	}

	if err := h.db.ReplaceReceiptItems(c.Context(), receipt.ID, parsed.Lines); err != nil {
		return Error(c, fiber.StatusInternalServerError, "failed to store receipt items")
	}

	fullReceipt, err := h.db.GetReceiptByID(c.Context(), receipt.ID)
	if err != nil {
		return Error(c, fiber.StatusInternalServerError, "failed to retrieve receipt")
	}

	imageURL, _ := h.storage.GetPresignedURL(c.Context(), s3Key, 1*time.Hour)
	fullReceipt.ImageURL = &imageURL

	return Success(c, fullReceipt)
}

// ReprocessReceipt re-runs the parser over the stored OCR text,
// replacing the previous parse
func (h *ReceiptHandler) ReprocessReceipt(c *fiber.Ctx) error {
	receipt, ok := h.loadOwnedReceipt(c)
	if !ok {
		return nil
	}

	if receipt.OCRText == nil || *receipt.OCRText == "" {
		return Error(c, fiber.StatusConflict, "receipt has no OCR text to reprocess")
	}

	parsed, err := h.parser.Parse(*receipt.OCRText)
	if err != nil {
		return Error(c, fiber.StatusInternalServerError, "failed to parse receipt")
	}

	if err := h.db.ReplaceReceiptItems(c.Context(), receipt.ID, parsed.Lines); err != nil {
		return Error(c, fiber.StatusInternalServerError, "failed to store receipt items")
	}
	if err := h.db.UpdateReceiptMetadata(c.Context(), receipt.ID, parsed.Date, parsed.Total); err != nil {
		log.Printf("Warning: Failed to update receipt %d metadata: %v", receipt.ID, err)
	}
	if err := h.db.UpdateReceiptStatus(c.Context(), receipt.ID, models.ReceiptStatusProcessed, nil, nil); err != nil {
		log.Printf("Warning: Failed to update receipt %d status: %v", receipt.ID, err)
	}

	full, err := h.db.GetReceiptByID(c.Context(), receipt.ID)
	if err != nil {
		return Error(c, fiber.StatusInternalServerError, "failed to retrieve receipt")
	}
	return Success(c, full)
}

// ReconcileReceipt matches the receipt's parsed lines against a
// shopping list and persists the outcome. Running it again replaces the
// previous outcome; it never mutates the list itself.
func (h *ReceiptHandler) ReconcileReceipt(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	receipt, ok := h.loadOwnedReceipt(c)
	if !ok {
		return nil
	}

	if receipt.Status != models.ReceiptStatusProcessed && receipt.Status != models.ReceiptStatusReconciled {
		return Error(c, fiber.StatusConflict, "receipt has not been processed yet")
	}

	// List from the request body wins over the one set at upload
	var req struct {
		ListID *int `json:"list_id"`
	}
	if err := c.BodyParser(&req); err == nil && req.ListID != nil {
		receipt.ListID = req.ListID
	}
	if receipt.ListID == nil {
		return Error(c, fiber.StatusBadRequest, "list_id is required")
	}

	list, err := h.db.GetListByID(c.Context(), *receipt.ListID, userID)
	if err != nil {
		if errors.Is(err, database.ErrListNotFound) {
			return Error(c, fiber.StatusNotFound, "list not found")
		}
		if errors.Is(err, database.ErrNotListOwner) {
			return Error(c, fiber.StatusForbidden, "access denied")
		}
		return Error(c, fiber.StatusInternalServerError, "failed to get list")
	}

	lines := make([]models.ReceiptLine, 0, len(receipt.Items))
	for _, item := range receipt.Items {
		line := models.ReceiptLine{
			RawText:    item.RawText,
			Barcode:    item.Barcode,
			TotalPrice: item.ParsedTotalPrice,
			LineNumber: item.LineNumber,
		}
		if item.ParsedName != nil {
			line.Name = *item.ParsedName
		}
		lines = append(lines, line)
	}

	result := services.Reconcile(receipt.ID, list.ID, lines, list.Items)

	if err := h.db.SaveReconciliation(c.Context(), receipt.ID, result); err != nil {
		return Error(c, fiber.StatusInternalServerError, "failed to save reconciliation")
	}

	return Success(c, result)
}

// ApplyExtras adds selected extra receipt lines to the shopping list as
// pre-verified extra items
func (h *ReceiptHandler) ApplyExtras(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	receipt, ok := h.loadOwnedReceipt(c)
	if !ok {
		return nil
	}

	if receipt.ListID == nil {
		return Error(c, fiber.StatusConflict, "receipt is not tied to a list")
	}

	list, err := h.db.GetListByID(c.Context(), *receipt.ListID, userID)
	if err != nil {
		return Error(c, fiber.StatusInternalServerError, "failed to get list")
	}

	var req models.ApplyExtrasRequest
	if err := c.BodyParser(&req); err != nil {
		return Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	if len(req.ReceiptItemIDs) == 0 {
		return Error(c, fiber.StatusBadRequest, "receipt_item_ids is required")
	}

	byID := make(map[int]*models.ReceiptItem, len(receipt.Items))
	for i := range receipt.Items {
		byID[receipt.Items[i].ID] = &receipt.Items[i]
	}

	var added []models.ListItem
	for _, itemID := range req.ReceiptItemIDs {
		line, ok := byID[itemID]
		if !ok {
			return Error(c, fiber.StatusBadRequest, fmt.Sprintf("receipt item %d does not belong to this receipt", itemID))
		}
		if line.MatchStatus != models.MatchStatusExtra {
			return Error(c, fiber.StatusBadRequest, fmt.Sprintf("receipt item %d is not an extra line", itemID))
		}

		barcode := ""
		if line.Barcode != nil {
			barcode = *line.Barcode
		}

		productName := line.ParsedName
		source := models.NameSourceManual
		if barcode != "" {
			if res, err := h.catalog.Lookup(c.Context(), barcode); err == nil && res.Found {
				name := res.ProductName
				productName = &name
				source = models.NameSourceCatalog
			}
		}
		if productName == nil {
			source = models.NameSourceNone
		}

		item, err := h.db.AddExtraItem(c.Context(), list.ID, barcode, 1, "pcs", productName, source)
		if err != nil {
			return Error(c, fiber.StatusInternalServerError, "failed to add extra item")
		}
		added = append(added, *item)
	}

	h.events.Publish(list.ID, "items_added", nil)
	return Success(c, added)
}

// ListReceipts returns a paginated list of the user's receipts
func (h *ReceiptHandler) ListReceipts(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	if userID == 0 {
		return Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	params := &models.ReceiptListParams{
		UserID: userID,
		Limit:  c.QueryInt("limit", 20),
		Offset: c.QueryInt("offset", 0),
	}
	if status := c.Query("status"); status != "" {
		if !models.ReceiptStatus(status).Valid() {
			return Error(c, fiber.StatusBadRequest, "invalid status filter")
		}
		params.Status = &status
	}
	if params.Limit < 1 || params.Limit > 100 {
		params.Limit = 20
	}
	if params.Offset < 0 {
		params.Offset = 0
	}

	receipts, total, err := h.db.ListReceipts(c.Context(), params)
	if err != nil {
		return Error(c, fiber.StatusInternalServerError, "failed to list receipts")
	}

	return SuccessWithMeta(c, receipts, total, params.Limit, params.Offset)
}

// GetReceipt returns a single receipt with its parsed lines
func (h *ReceiptHandler) GetReceipt(c *fiber.Ctx) error {
	receipt, ok := h.loadOwnedReceipt(c)
	if !ok {
		return nil
	}

	imageURL, _ := h.storage.GetPresignedURL(c.Context(), receipt.S3Key, 1*time.Hour)
	receipt.ImageURL = &imageURL

	return Success(c, receipt)
}

// DeleteReceipt deletes a receipt, its lines and the stored image
func (h *ReceiptHandler) DeleteReceipt(c *fiber.Ctx) error {
	receipt, ok := h.loadOwnedReceipt(c)
	if !ok {
		return nil
	}

	if err := h.db.DeleteReceipt(c.Context(), receipt.ID); err != nil {
		return Error(c, fiber.StatusInternalServerError, "failed to delete receipt")
	}

	if err := h.storage.Delete(c.Context(), receipt.S3Key); err != nil {
		log.Printf("Warning: Failed to delete S3 object %s: %v", receipt.S3Key, err)
	}

	return Success(c, fiber.Map{"deleted": true})
}

// loadOwnedReceipt parses the :id param, fetches the receipt and
// enforces ownership. On failure the error response has already been
// written and the caller should return nil.
func (h *ReceiptHandler) loadOwnedReceipt(c *fiber.Ctx) (*models.ReceiptWithItems, bool) {
	userID := middleware.GetUserID(c)
	if userID == 0 {
		Error(c, fiber.StatusUnauthorized, "unauthorized")
		return nil, false
	}

	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		Error(c, fiber.StatusBadRequest, "invalid receipt ID")
		return nil, false
	}

	receipt, err := h.db.GetReceiptByID(c.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrReceiptNotFound) {
			Error(c, fiber.StatusNotFound, "receipt not found")
		} else {
			Error(c, fiber.StatusInternalServerError, "failed to get receipt")
		}
		return nil, false
	}
	if receipt.UserID != userID {
		Error(c, fiber.StatusForbidden, "access denied")
		return nil, false
	}

	return receipt, true
}

// isValidImageType checks if the content type is a supported image format
func isValidImageType(contentType string) bool {
	switch contentType {
	case "image/jpeg", "image/jpg", "image/png", "image/webp":
		return true
	}
	return false
}

// generateS3Key creates a unique object key for a receipt image
func generateS3Key(userID int, filename string) string {
	return fmt.Sprintf("receipts/%d/%s-%s", userID, time.Now().Format("20060102"), uuid.NewString()+"-"+filename)
}
