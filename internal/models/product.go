package models

import (
	"time"
)

// Product is a catalog entry keyed by barcode
type Product struct {
	ID         int       `json:"id"`
	Barcode    string    `json:"barcode"`
	Name       string    `json:"name"`
	Brand      *string   `json:"brand,omitempty"`
	CategoryID *int      `json:"category_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// LookupResult is the outcome of a barcode catalog lookup. A failed or
// unreachable lookup degrades to Found=false rather than an error.
type LookupResult struct {
	Found       bool    `json:"found"`
	ProductName string  `json:"product_name,omitempty"`
	Brand       *string `json:"brand,omitempty"`
}

// Category groups products and list items
type Category struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// CreateProductRequest is the request body for adding a catalog product
type CreateProductRequest struct {
	Barcode    string  `json:"barcode"`
	Name       string  `json:"name"`
	Brand      *string `json:"brand,omitempty"`
	CategoryID *int    `json:"category_id,omitempty"`
}

// ProductListParams contains parameters for searching the catalog
type ProductListParams struct {
	Limit  int
	Offset int
	Search string
}
