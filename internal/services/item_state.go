package services

import (
	"time"

	"github.com/cartwheelhq/cartwheel/internal/models"
)

// ItemState is the verification state of a single list item
type ItemState string

const (
	ItemStatePending          ItemState = "pending"
	ItemStateVerifiedNoInfo   ItemState = "verified_no_info"
	ItemStateVerifiedWithInfo ItemState = "verified_with_info"
	ItemStateNotPurchased     ItemState = "not_purchased"
)

// ClassifyItem derives the verification state from the item's fields.
// It is a pure function with no hidden memory, so re-deriving it from a
// freshly fetched item after a concurrent edit can never drift from
// server state. An item counts as "verified with info" only when its
// product name came from a catalog lookup; manually typed names do not
// qualify.
func ClassifyItem(item *models.ListItem) ItemState {
	if item.NotPurchased {
		return ItemStateNotPurchased
	}
	if item.VerifiedAt == nil {
		return ItemStatePending
	}
	if item.ProductName != nil && *item.ProductName != "" &&
		item.ProductNameSource == models.NameSourceCatalog {
		return ItemStateVerifiedWithInfo
	}
	return ItemStateVerifiedNoInfo
}

// IsResolved reports whether the item no longer needs attention during
// verification (verified either way, or explicitly not purchased).
func IsResolved(item *models.ListItem) bool {
	return ClassifyItem(item) != ItemStatePending
}

// VerifyItem marks the item verified with the confirmed quantity.
// Barcode may be empty when no scan was involved; it is recorded
// regardless. A productName is only attached together with its source,
// and verifying always clears a prior not-purchased mark.
func VerifyItem(item *models.ListItem, barcode string, quantity float64, unit string, productName *string, source models.ProductNameSource) {
	now := time.Now()
	item.VerifiedAt = &now
	item.ScannedBarcode = &barcode
	item.VerifiedQuantity = &quantity
	item.VerifiedUnit = &unit
	if productName != nil {
		item.ProductName = productName
		item.ProductNameSource = source
	}
	item.NotPurchased = false
}

// MarkItemNotPurchased flags the item as not bought and clears any
// prior verification fields so the two states can never coexist.
func MarkItemNotPurchased(item *models.ListItem) {
	item.NotPurchased = true
	item.VerifiedAt = nil
	item.VerifiedQuantity = nil
	item.VerifiedUnit = nil
	item.ScannedBarcode = nil
	item.ProductName = nil
	item.ProductNameSource = models.NameSourceNone
}

// UndoItemNotPurchased returns the item to pending. Prior verification
// data is not resurrected.
func UndoItemNotPurchased(item *models.ListItem) {
	item.NotPurchased = false
}
