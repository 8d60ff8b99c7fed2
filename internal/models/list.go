package models

import (
	"time"
)

// ListStatus represents the status of a shopping list
type ListStatus string

const (
	ListStatusActive    ListStatus = "active"
	ListStatusCompleted ListStatus = "completed"
	ListStatusCancelled ListStatus = "cancelled"
)

// Valid reports whether s is a known list status. Handlers check this
// before a status reaches a query filter.
func (s ListStatus) Valid() bool {
	switch s {
	case ListStatusActive, ListStatusCompleted, ListStatusCancelled:
		return true
	}
	return false
}

// VerificationStatus represents where a list is in the verification lifecycle
type VerificationStatus string

const (
	VerificationNotStarted VerificationStatus = "not_started"
	VerificationInProgress VerificationStatus = "in_progress"
	VerificationPaused     VerificationStatus = "paused"
	VerificationCompleted  VerificationStatus = "completed"
)

// ProductNameSource records where an item's product name came from.
// Only catalog-sourced names count as a catalog match; a manual edit
// must never promote an item to "verified with info".
type ProductNameSource string

const (
	NameSourceNone    ProductNameSource = "none"
	NameSourceCatalog ProductNameSource = "catalog"
	NameSourceManual  ProductNameSource = "manual"
)

// ShoppingList represents a user's shopping list
type ShoppingList struct {
	ID                 int                `json:"id"`
	UserID             int                `json:"user_id"`
	Name               string             `json:"name"`
	Status             ListStatus         `json:"status"`
	VerificationStatus VerificationStatus `json:"verification_status"`
	CompletedAt        *time.Time         `json:"completed_at,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// ListItem represents an item in a shopping list, including its
// verification fields. Position preserves list order from creation;
// barcode tie-breaks depend on it.
type ListItem struct {
	ID             int     `json:"id"`
	ListID         int     `json:"list_id"`
	Name           string  `json:"name"`
	Quantity       float64 `json:"quantity"`
	Unit           string  `json:"unit"`
	CatalogBarcode *string `json:"catalog_barcode,omitempty"`
	Checked        bool    `json:"checked"`
	Position       int     `json:"position"`

	// Verification fields. VerifiedAt and NotPurchased are mutually
	// exclusive; both unset means the item is still pending.
	VerifiedAt        *time.Time        `json:"verified_at,omitempty"`
	VerifiedQuantity  *float64          `json:"verified_quantity,omitempty"`
	VerifiedUnit      *string           `json:"verified_unit,omitempty"`
	ScannedBarcode    *string           `json:"scanned_barcode,omitempty"`
	ProductName       *string           `json:"product_name,omitempty"`
	ProductNameSource ProductNameSource `json:"product_name_source"`
	NotPurchased      bool              `json:"not_purchased"`

	// Optional enrichments attachable at verification time
	CategoryID *int       `json:"category_id,omitempty"`
	ExpiryDate *time.Time `json:"expiry_date,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ListWithItems includes the list and all its items in position order
type ListWithItems struct {
	ShoppingList
	Items []ListItem `json:"items"`
}

// ListSummary is a compact representation for list views
type ListSummary struct {
	ID                 int                `json:"id"`
	Name               string             `json:"name"`
	Status             ListStatus         `json:"status"`
	VerificationStatus VerificationStatus `json:"verification_status"`
	CompletedAt        *time.Time         `json:"completed_at,omitempty"`
	ItemCount          int                `json:"item_count"`
	VerifiedCount      int                `json:"verified_count"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// Request types

// CreateListRequest is the request body for creating a shopping list
type CreateListRequest struct {
	Name  string               `json:"name"`
	Items []CreateListItemData `json:"items,omitempty"`
}

// CreateListItemData is a single item supplied at list creation
type CreateListItemData struct {
	Name           string  `json:"name"`
	Quantity       float64 `json:"quantity"`
	Unit           string  `json:"unit"`
	CatalogBarcode *string `json:"catalog_barcode,omitempty"`
}

// UpdateListRequest is the request body for updating a shopping list
type UpdateListRequest struct {
	Name   *string     `json:"name,omitempty"`
	Status *ListStatus `json:"status,omitempty"`
}

// AddListItemRequest is the request body for adding an item to a list
type AddListItemRequest struct {
	Name           string  `json:"name"`
	Quantity       float64 `json:"quantity"`
	Unit           string  `json:"unit"`
	CatalogBarcode *string `json:"catalog_barcode,omitempty"`
}

// UpdateListItemRequest is the request body for editing a list item.
// A ProductName supplied here is a manual edit and is tagged as such.
type UpdateListItemRequest struct {
	Name        *string    `json:"name,omitempty"`
	Quantity    *float64   `json:"quantity,omitempty"`
	Unit        *string    `json:"unit,omitempty"`
	ProductName *string    `json:"product_name,omitempty"`
	CategoryID  *int       `json:"category_id,omitempty"`
	ExpiryDate  *time.Time `json:"expiry_date,omitempty"`
}

// VerifyItemRequest is the request body for verifying a single item
// with its confirmed quantity. Barcode may be empty when the item was
// certified manually without a scan.
type VerifyItemRequest struct {
	Barcode     string     `json:"barcode"`
	Quantity    float64    `json:"quantity"`
	Unit        string     `json:"unit"`
	ProductName *string    `json:"product_name,omitempty"`
	CategoryID  *int       `json:"category_id,omitempty"`
	ExpiryDate  *time.Time `json:"expiry_date,omitempty"`
}

// CommitScansRequest carries the barcodes captured during one
// continuous scan session, in scan order
type CommitScansRequest struct {
	Barcodes []string `json:"barcodes"`
}

// CompleteListRequest is the request body for completing verification.
// Force completes even while items are still pending.
type CompleteListRequest struct {
	Force bool `json:"force"`
}

// VerificationProgress summarizes how far along a list's verification is
type VerificationProgress struct {
	Total        int  `json:"total"`
	Pending      int  `json:"pending"`
	Verified     int  `json:"verified"`
	NotPurchased int  `json:"not_purchased"`
	AllResolved  bool `json:"all_resolved"`
}

// ListListParams contains parameters for listing shopping lists
type ListListParams struct {
	Limit  int
	Offset int
	UserID int        // Required - lists are always scoped to a user
	Status ListStatus // Optional - filter by status
}

// ListEvent is published to subscribers whenever a list mutates
type ListEvent struct {
	ListID int       `json:"list_id"`
	Type   string    `json:"type"`
	ItemID *int      `json:"item_id,omitempty"`
	At     time.Time `json:"at"`
}
