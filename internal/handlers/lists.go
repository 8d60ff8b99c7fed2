package handlers

import (
	"errors"
	"log"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/cartwheelhq/cartwheel/internal/database"
	"github.com/cartwheelhq/cartwheel/internal/middleware"
	"github.com/cartwheelhq/cartwheel/internal/models"
	"github.com/cartwheelhq/cartwheel/internal/services"
)

// subscribeTimeout bounds how long an event subscription request may
// hang before returning empty-handed
const subscribeTimeout = 25 * time.Second

// ListLists returns a paginated list of the user's shopping lists
func (h *Handler) ListLists(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	if userID == 0 {
		return Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	params := &models.ListListParams{
		UserID: userID,
		Limit:  c.QueryInt("limit", 20),
		Offset: c.QueryInt("offset", 0),
	}
	if status := c.Query("status"); status != "" {
		if !models.ListStatus(status).Valid() {
			return Error(c, fiber.StatusBadRequest, "invalid status filter")
		}
		params.Status = models.ListStatus(status)
	}
	if params.Limit < 1 || params.Limit > 100 {
		params.Limit = 20
	}
	if params.Offset < 0 {
		params.Offset = 0
	}

	lists, total, err := h.db.ListShoppingLists(c.Context(), params)
	if err != nil {
		return Error(c, fiber.StatusInternalServerError, "failed to list shopping lists")
	}

	return SuccessWithMeta(c, lists, total, params.Limit, params.Offset)
}

// CreateList creates a new shopping list, optionally pre-populated
func (h *Handler) CreateList(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	if userID == 0 {
		return Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var req models.CreateListRequest
	if err := c.BodyParser(&req); err != nil {
		return Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	if req.Name == "" {
		return Error(c, fiber.StatusBadRequest, "list name is required")
	}
	for _, item := range req.Items {
		if item.Name == "" {
			return Error(c, fiber.StatusBadRequest, "item name is required")
		}
	}

	list, err := h.db.CreateList(c.Context(), userID, &req)
	if err != nil {
		return Error(c, fiber.StatusInternalServerError, "failed to create list")
	}

	return Success(c, list)
}

// GetList returns a list with all of its items
func (h *Handler) GetList(c *fiber.Ctx) error {
	list, ok := h.loadOwnedList(c)
	if !ok {
		return nil
	}
	return Success(c, list)
}

// UpdateList updates a list's name or status
func (h *Handler) UpdateList(c *fiber.Ctx) error {
	list, ok := h.loadOwnedList(c)
	if !ok {
		return nil
	}

	var req models.UpdateListRequest
	if err := c.BodyParser(&req); err != nil {
		return Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	updated, err := h.db.UpdateList(c.Context(), list.ID, &req)
	if err != nil {
		return Error(c, fiber.StatusInternalServerError, "failed to update list")
	}

	h.events.Publish(list.ID, "list_updated", nil)
	return Success(c, updated)
}

// DeleteList deletes a list and all its items
func (h *Handler) DeleteList(c *fiber.Ctx) error {
	list, ok := h.loadOwnedList(c)
	if !ok {
		return nil
	}

	if err := h.db.DeleteList(c.Context(), list.ID); err != nil {
		return Error(c, fiber.StatusInternalServerError, "failed to delete list")
	}

	h.events.Publish(list.ID, "list_deleted", nil)
	return Success(c, fiber.Map{"deleted": true})
}

// AddListItem appends an item to a list
func (h *Handler) AddListItem(c *fiber.Ctx) error {
	list, ok := h.loadOwnedList(c)
	if !ok {
		return nil
	}

	var req models.AddListItemRequest
	if err := c.BodyParser(&req); err != nil {
		return Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	if req.Name == "" {
		return Error(c, fiber.StatusBadRequest, "item name is required")
	}
	if req.Quantity <= 0 {
		req.Quantity = 1
	}
	if req.Unit == "" {
		req.Unit = "pcs"
	}

	item, err := h.db.AddListItem(c.Context(), list.ID, &req)
	if err != nil {
		return Error(c, fiber.StatusInternalServerError, "failed to add item")
	}

	h.events.Publish(list.ID, "item_added", &item.ID)
	return Success(c, item)
}

// UpdateListItem edits an item's descriptive fields. Product names set
// here are manual edits and never count as catalog matches.
func (h *Handler) UpdateListItem(c *fiber.Ctx) error {
	list, item, ok := h.loadOwnedListItem(c)
	if !ok {
		return nil
	}

	var req models.UpdateListItemRequest
	if err := c.BodyParser(&req); err != nil {
		return Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	updated, err := h.db.UpdateListItem(c.Context(), item.ID, &req)
	if err != nil {
		if errors.Is(err, database.ErrListItemNotFound) {
			return Error(c, fiber.StatusNotFound, "item not found")
		}
		return Error(c, fiber.StatusInternalServerError, "failed to update item")
	}

	h.events.Publish(list.ID, "item_updated", &item.ID)
	return Success(c, updated)
}

// DeleteListItem removes an item from a list
func (h *Handler) DeleteListItem(c *fiber.Ctx) error {
	list, item, ok := h.loadOwnedListItem(c)
	if !ok {
		return nil
	}

	if err := h.db.DeleteListItem(c.Context(), item.ID); err != nil {
		return Error(c, fiber.StatusInternalServerError, "failed to delete item")
	}

	h.events.Publish(list.ID, "item_deleted", &item.ID)
	return Success(c, fiber.Map{"deleted": true})
}

// ToggleListItem flips an item's checked flag
func (h *Handler) ToggleListItem(c *fiber.Ctx) error {
	list, item, ok := h.loadOwnedListItem(c)
	if !ok {
		return nil
	}

	updated, err := h.db.ToggleListItemChecked(c.Context(), item.ID)
	if err != nil {
		return Error(c, fiber.StatusInternalServerError, "failed to toggle item")
	}

	h.events.Publish(list.ID, "item_updated", &item.ID)
	return Success(c, updated)
}

// AcquireLock takes the cooperative edit lock for a list. A lock held
// by someone else answers 423 Locked.
func (h *Handler) AcquireLock(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	list, ok := h.loadOwnedList(c)
	if !ok {
		return nil
	}

	lock, err := h.db.AcquireListLock(c.Context(), list.ID, userID, h.cfg.LockTTL)
	if err != nil {
		if errors.Is(err, database.ErrListLocked) {
			return Error(c, fiber.StatusLocked, "list is locked by another session")
		}
		return Error(c, fiber.StatusInternalServerError, "failed to acquire lock")
	}

	return Success(c, lock)
}

// ReleaseLock releases the edit lock held by this session
func (h *Handler) ReleaseLock(c *fiber.Ctx) error {
	list, ok := h.loadOwnedList(c)
	if !ok {
		return nil
	}

	var req struct {
		SessionID string `json:"session_id"`
	}
	if err := c.BodyParser(&req); err != nil || req.SessionID == "" {
		return Error(c, fiber.StatusBadRequest, "session_id is required")
	}

	if err := h.db.ReleaseListLock(c.Context(), list.ID, req.SessionID); err != nil {
		return Error(c, fiber.StatusInternalServerError, "failed to release lock")
	}

	return Success(c, fiber.Map{"released": true})
}

// RefreshLock extends the TTL of a held edit lock
func (h *Handler) RefreshLock(c *fiber.Ctx) error {
	list, ok := h.loadOwnedList(c)
	if !ok {
		return nil
	}

	var req struct {
		SessionID string `json:"session_id"`
	}
	if err := c.BodyParser(&req); err != nil || req.SessionID == "" {
		return Error(c, fiber.StatusBadRequest, "session_id is required")
	}

	if err := h.db.RefreshListLock(c.Context(), list.ID, req.SessionID, h.cfg.LockTTL); err != nil {
		if errors.Is(err, database.ErrListLocked) {
			return Error(c, fiber.StatusLocked, "lock is no longer held by this session")
		}
		return Error(c, fiber.StatusInternalServerError, "failed to refresh lock")
	}

	return Success(c, fiber.Map{"refreshed": true})
}

// StartVerification moves a list into verify mode
func (h *Handler) StartVerification(c *fiber.Ctx) error {
	list, ok := h.loadOwnedList(c)
	if !ok {
		return nil
	}

	if list.Status == models.ListStatusCompleted {
		return Error(c, fiber.StatusConflict, "list is already completed")
	}

	if err := h.verifier.EnterVerifyMode(c.Context(), &list.ShoppingList); err != nil {
		return Error(c, fiber.StatusInternalServerError, "failed to start verification")
	}

	h.events.Publish(list.ID, "verification_started", nil)
	return Success(c, list.ShoppingList)
}

// PauseVerification parks an in-progress verification for later
func (h *Handler) PauseVerification(c *fiber.Ctx) error {
	list, ok := h.loadOwnedList(c)
	if !ok {
		return nil
	}

	if err := h.verifier.PauseVerification(c.Context(), &list.ShoppingList); err != nil {
		return Error(c, fiber.StatusInternalServerError, "failed to pause verification")
	}

	h.events.Publish(list.ID, "verification_paused", nil)
	return Success(c, list.ShoppingList)
}

// CommitScans replays one scan session's barcodes against the list
// snapshot and flushes the accumulated result, one upsert per barcode
func (h *Handler) CommitScans(c *fiber.Ctx) error {
	list, ok := h.loadOwnedList(c)
	if !ok {
		return nil
	}

	var req models.CommitScansRequest
	if err := c.BodyParser(&req); err != nil {
		return Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	if len(req.Barcodes) == 0 {
		return Error(c, fiber.StatusBadRequest, "at least one barcode is required")
	}

	session := services.NewScanSession(list.ID)
	for _, barcode := range req.Barcodes {
		if barcode == "" {
			continue
		}
		session.Scan(list.Items, barcode)
	}

	updated, err := h.verifier.CommitScanSession(c.Context(), list, session)
	if err != nil {
		return Error(c, fiber.StatusInternalServerError, "failed to commit scans")
	}

	h.events.Publish(list.ID, "items_verified", nil)
	return Success(c, updated)
}

// VerifyListItem verifies one item directly, with optional category and
// expiry enrichments
func (h *Handler) VerifyListItem(c *fiber.Ctx) error {
	list, item, ok := h.loadOwnedListItem(c)
	if !ok {
		return nil
	}

	var req models.VerifyItemRequest
	if err := c.BodyParser(&req); err != nil {
		return Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	if req.Quantity <= 0 {
		req.Quantity = item.Quantity
	}
	if req.Unit == "" {
		req.Unit = item.Unit
	}

	updated, err := h.verifier.VerifySingle(c.Context(), item.ID, &req)
	if err != nil {
		return Error(c, fiber.StatusInternalServerError, "failed to verify item")
	}

	h.events.Publish(list.ID, "item_verified", &item.ID)
	return Success(c, updated)
}

// MarkNotPurchased flags an item as deliberately skipped
func (h *Handler) MarkNotPurchased(c *fiber.Ctx) error {
	list, item, ok := h.loadOwnedListItem(c)
	if !ok {
		return nil
	}

	updated, err := h.db.MarkItemNotPurchased(c.Context(), item.ID)
	if err != nil {
		return Error(c, fiber.StatusInternalServerError, "failed to mark item")
	}

	h.events.Publish(list.ID, "item_updated", &item.ID)
	return Success(c, updated)
}

// UndoNotPurchased returns a skipped item to pending
func (h *Handler) UndoNotPurchased(c *fiber.Ctx) error {
	list, item, ok := h.loadOwnedListItem(c)
	if !ok {
		return nil
	}

	updated, err := h.db.UndoItemNotPurchased(c.Context(), item.ID)
	if err != nil {
		return Error(c, fiber.StatusInternalServerError, "failed to update item")
	}

	h.events.Publish(list.ID, "item_updated", &item.ID)
	return Success(c, updated)
}

// GetProgress reports the per-state verification counts for a list
func (h *Handler) GetProgress(c *fiber.Ctx) error {
	list, ok := h.loadOwnedList(c)
	if !ok {
		return nil
	}
	return Success(c, services.Progress(list))
}

// CompleteList finishes verification. Pending items block completion
// unless force is set; success writes the verified items to the pantry.
func (h *Handler) CompleteList(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	list, ok := h.loadOwnedList(c)
	if !ok {
		return nil
	}

	var req models.CompleteListRequest
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		return Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.verifier.Complete(c.Context(), list, req.Force)
	if err != nil {
		var pending *services.PendingItemsError
		if errors.As(err, &pending) {
			return c.Status(fiber.StatusConflict).JSON(APIResponse{
				Success: false,
				Error:   pending.Error(),
				Data:    fiber.Map{"pending": pending.Pending},
			})
		}
		return Error(c, fiber.StatusInternalServerError, "failed to complete list")
	}

	if len(result.Synced) > 0 {
		if err := h.db.SyncInventory(c.Context(), userID, list.ID, result.Synced); err != nil {
			log.Printf("Warning: inventory sync failed for list %d: %v", list.ID, err)
		}
	}

	h.events.Publish(list.ID, "list_completed", nil)
	return Success(c, result)
}

// SubscribeListEvents long-polls for the next mutation event on a list.
// It answers with the event, or an empty payload after the timeout so
// clients can immediately re-subscribe.
func (h *Handler) SubscribeListEvents(c *fiber.Ctx) error {
	list, ok := h.loadOwnedList(c)
	if !ok {
		return nil
	}

	ch, cancel := h.events.Subscribe(list.ID)
	defer cancel()

	timer := time.NewTimer(subscribeTimeout)
	defer timer.Stop()

	select {
	case event := <-ch:
		return Success(c, event)
	case <-timer.C:
		return Success(c, nil)
	case <-c.Context().Done():
		return nil
	}
}

// loadOwnedList parses the :id param, fetches the list and enforces
// ownership. On failure the error response has already been written
// and the caller should return nil.
func (h *Handler) loadOwnedList(c *fiber.Ctx) (*models.ListWithItems, bool) {
	userID := middleware.GetUserID(c)
	if userID == 0 {
		Error(c, fiber.StatusUnauthorized, "unauthorized")
		return nil, false
	}

	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		Error(c, fiber.StatusBadRequest, "invalid list ID")
		return nil, false
	}

	list, err := h.db.GetListByID(c.Context(), id, userID)
	if err != nil {
		if errors.Is(err, database.ErrListNotFound) {
			Error(c, fiber.StatusNotFound, "list not found")
		} else if errors.Is(err, database.ErrNotListOwner) {
			Error(c, fiber.StatusForbidden, "access denied")
		} else {
			Error(c, fiber.StatusInternalServerError, "failed to get list")
		}
		return nil, false
	}

	return list, true
}

// loadOwnedListItem resolves both the list and the :itemId param,
// confirming the item belongs to the list
func (h *Handler) loadOwnedListItem(c *fiber.Ctx) (*models.ListWithItems, *models.ListItem, bool) {
	list, ok := h.loadOwnedList(c)
	if !ok {
		return nil, nil, false
	}

	itemID, err := strconv.Atoi(c.Params("itemId"))
	if err != nil {
		Error(c, fiber.StatusBadRequest, "invalid item ID")
		return nil, nil, false
	}

	for i := range list.Items {
		if list.Items[i].ID == itemID {
			return list, &list.Items[i], true
		}
	}

	Error(c, fiber.StatusNotFound, "item not found")
	return nil, nil, false
}
