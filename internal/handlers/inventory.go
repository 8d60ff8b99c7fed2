package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/cartwheelhq/cartwheel/internal/database"
	"github.com/cartwheelhq/cartwheel/internal/middleware"
	"github.com/cartwheelhq/cartwheel/internal/models"
)

// ListPantry returns the user's pantry inventory
func (h *Handler) ListPantry(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	if userID == 0 {
		return Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	params := &models.InventoryListParams{
		UserID: userID,
		Limit:  c.QueryInt("limit", 50),
		Offset: c.QueryInt("offset", 0),
		Search: c.Query("q"),
	}
	if params.Limit < 1 || params.Limit > 200 {
		params.Limit = 50
	}
	if params.Offset < 0 {
		params.Offset = 0
	}

	items, total, err := h.db.ListPantryItems(c.Context(), params)
	if err != nil {
		return Error(c, fiber.StatusInternalServerError, "failed to list pantry items")
	}

	return SuccessWithMeta(c, items, total, params.Limit, params.Offset)
}

// AdjustPantryItem adds or removes stock from a pantry entry
func (h *Handler) AdjustPantryItem(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	if userID == 0 {
		return Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return Error(c, fiber.StatusBadRequest, "invalid pantry item ID")
	}

	var req models.AdjustPantryQuantityRequest
	if err := c.BodyParser(&req); err != nil {
		return Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	if req.Adjustment == 0 {
		return Error(c, fiber.StatusBadRequest, "adjustment must be non-zero")
	}

	item, err := h.db.AdjustPantryQuantity(c.Context(), id, userID, req.Adjustment)
	if err != nil {
		if errors.Is(err, database.ErrPantryItemNotFound) {
			return Error(c, fiber.StatusNotFound, "pantry item not found")
		}
		return Error(c, fiber.StatusInternalServerError, "failed to adjust quantity")
	}

	return Success(c, item)
}
