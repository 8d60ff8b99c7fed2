package models

import (
	"time"
)

// PantryItem represents an item in a user's pantry inventory
type PantryItem struct {
	ID           int        `json:"id"`
	UserID       int        `json:"user_id"`
	ProductID    *int       `json:"product_id,omitempty"`
	Name         string     `json:"name"`
	Quantity     float64    `json:"quantity"`
	Unit         *string    `json:"unit,omitempty"`
	ExpiryDate   *time.Time `json:"expiry_date,omitempty"`
	SourceListID *int       `json:"source_list_id,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// InventorySyncItem is one entry of the write-back payload assembled
// when list verification completes. Only verified items with a catalog
// product binding are eligible.
type InventorySyncItem struct {
	ListItemID  int        `json:"list_item_id"`
	ProductName string     `json:"product_name"`
	Barcode     *string    `json:"barcode,omitempty"`
	Amount      float64    `json:"amount"`
	Unit        string     `json:"unit"`
	ExpiryDate  *time.Time `json:"expiry_date,omitempty"`
}

// CompletionResult is returned when a list's verification completes
type CompletionResult struct {
	List    *ShoppingList       `json:"list"`
	Synced  []InventorySyncItem `json:"synced"`
	Skipped int                 `json:"skipped"` // resolved items without a catalog binding
}

// InventoryListParams contains parameters for listing pantry items
type InventoryListParams struct {
	Limit  int
	Offset int
	UserID int
	Search string
}

// AdjustPantryQuantityRequest adjusts a pantry item's quantity
type AdjustPantryQuantityRequest struct {
	Adjustment float64 `json:"adjustment"`
}
