package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/cartwheelhq/cartwheel/internal/middleware"
	"github.com/cartwheelhq/cartwheel/internal/models"
)

// LookupBarcode resolves a barcode against the product catalog. An
// unknown barcode is a normal outcome, not an error.
func (h *Handler) LookupBarcode(c *fiber.Ctx) error {
	barcode := c.Params("barcode")
	if barcode == "" {
		return Error(c, fiber.StatusBadRequest, "barcode is required")
	}

	result, err := h.catalog.Lookup(c.Context(), barcode)
	if err != nil {
		return Error(c, fiber.StatusInternalServerError, "catalog lookup failed")
	}

	return Success(c, result)
}

// SearchProducts searches the catalog by product name
func (h *Handler) SearchProducts(c *fiber.Ctx) error {
	params := &models.ProductListParams{
		Limit:  c.QueryInt("limit", 20),
		Offset: c.QueryInt("offset", 0),
		Search: c.Query("q"),
	}
	if params.Limit < 1 || params.Limit > 100 {
		params.Limit = 20
	}
	if params.Offset < 0 {
		params.Offset = 0
	}

	products, total, err := h.db.SearchProducts(c.Context(), params)
	if err != nil {
		return Error(c, fiber.StatusInternalServerError, "failed to search products")
	}

	return SuccessWithMeta(c, products, total, params.Limit, params.Offset)
}

// CreateProduct adds a product to the catalog
func (h *Handler) CreateProduct(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	if userID == 0 {
		return Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var req models.CreateProductRequest
	if err := c.BodyParser(&req); err != nil {
		return Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	if req.Barcode == "" || req.Name == "" {
		return Error(c, fiber.StatusBadRequest, "barcode and name are required")
	}

	product, err := h.db.CreateProduct(c.Context(), &req)
	if err != nil {
		return Error(c, fiber.StatusInternalServerError, "failed to create product")
	}

	return Success(c, product)
}

// ListCategories returns all item categories
func (h *Handler) ListCategories(c *fiber.Ctx) error {
	categories, err := h.db.ListCategories(c.Context())
	if err != nil {
		return Error(c, fiber.StatusInternalServerError, "failed to list categories")
	}
	return Success(c, categories)
}
