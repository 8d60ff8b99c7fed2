package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/cartwheelhq/cartwheel/internal/models"
)

// ListStore is the slice of persistence the verification controller
// needs. *database.DB satisfies it; tests supply a fake.
type ListStore interface {
	SetVerificationStatus(ctx context.Context, listID int, status models.VerificationStatus) error
	VerifyListItem(ctx context.Context, itemID int, req *models.VerifyItemRequest, source models.ProductNameSource) (*models.ListItem, error)
	EnrichListItem(ctx context.Context, itemID int, categoryID *int, expiryDate *time.Time) error
	AddExtraItem(ctx context.Context, listID int, barcode string, quantity float64, unit string, productName *string, source models.ProductNameSource) (*models.ListItem, error)
	CompleteListVerification(ctx context.Context, listID int) (*models.ShoppingList, error)
}

// CatalogLookup resolves a barcode to catalog product info
type CatalogLookup interface {
	Lookup(ctx context.Context, barcode string) (*models.LookupResult, error)
}

// PendingItemsError is returned when completion is requested while
// items are still pending and the caller did not force it.
type PendingItemsError struct {
	Pending int
}

func (e *PendingItemsError) Error() string {
	return fmt.Sprintf("%d item(s) still pending verification", e.Pending)
}

// VerificationController drives a shopping list through verification.
// It is the only component that owns transitions on verification
// fields; the reconciler only ever reads.
type VerificationController struct {
	store   ListStore
	catalog CatalogLookup
}

// NewVerificationController creates a new verification controller
func NewVerificationController(store ListStore, catalog CatalogLookup) *VerificationController {
	return &VerificationController{
		store:   store,
		catalog: catalog,
	}
}

// EnterVerifyMode moves a not-started or paused list to in-progress.
// Re-entering an in-progress list is a no-op.
func (vc *VerificationController) EnterVerifyMode(ctx context.Context, list *models.ShoppingList) error {
	switch list.VerificationStatus {
	case models.VerificationNotStarted, models.VerificationPaused:
		if err := vc.store.SetVerificationStatus(ctx, list.ID, models.VerificationInProgress); err != nil {
			return err
		}
		list.VerificationStatus = models.VerificationInProgress
	}
	return nil
}

// PauseVerification parks an in-progress list so it can be resumed later
func (vc *VerificationController) PauseVerification(ctx context.Context, list *models.ShoppingList) error {
	if list.VerificationStatus != models.VerificationInProgress {
		return nil
	}
	if err := vc.store.SetVerificationStatus(ctx, list.ID, models.VerificationPaused); err != nil {
		return err
	}
	list.VerificationStatus = models.VerificationPaused
	return nil
}

// CommitScanSession flushes a scan session: one upsert per barcode, in
// first-scan order. Catalog lookups are awaited sequentially per scan
// so the consume-on-match ordering stays deterministic, and a lookup
// failure degrades to verifying without product info rather than
// blocking. The verification write is the authoritative step; anything
// after it is best-effort.
func (vc *VerificationController) CommitScanSession(ctx context.Context, list *models.ListWithItems, session *ScanSession) ([]models.ListItem, error) {
	var updated []models.ListItem

	for _, commit := range session.Commits() {
		var productName *string
		source := models.NameSourceNone

		res, err := vc.catalog.Lookup(ctx, commit.Barcode)
		if err != nil {
			log.Printf("Warning: catalog lookup failed for barcode %s: %v", commit.Barcode, err)
		} else if res != nil && res.Found {
			name := res.ProductName
			productName = &name
			source = models.NameSourceCatalog
		}

		if commit.ItemID != nil {
			unit := requestedUnit(list.Items, *commit.ItemID)
			item, err := vc.store.VerifyListItem(ctx, *commit.ItemID, &models.VerifyItemRequest{
				Barcode:     commit.Barcode,
				Quantity:    commit.Quantity,
				Unit:        unit,
				ProductName: productName,
			}, source)
			if err != nil {
				return updated, fmt.Errorf("failed to verify item %d: %w", *commit.ItemID, err)
			}
			updated = append(updated, *item)
			continue
		}

		// Barcode matched nothing on the list: optional extra item
		item, err := vc.store.AddExtraItem(ctx, list.ID, commit.Barcode, commit.Quantity, "pcs", productName, source)
		if err != nil {
			return updated, fmt.Errorf("failed to add extra item for barcode %s: %w", commit.Barcode, err)
		}
		updated = append(updated, *item)
	}

	session.Discard()
	return updated, nil
}

// VerifySingle verifies one item directly (manual certification or a
// single scan outside a batch session). When the caller did not supply
// a product name but did supply a barcode, the catalog is consulted;
// caller-supplied names are tagged manual.
func (vc *VerificationController) VerifySingle(ctx context.Context, itemID int, req *models.VerifyItemRequest) (*models.ListItem, error) {
	source := models.NameSourceNone
	if req.ProductName != nil {
		source = models.NameSourceManual
	} else if req.Barcode != "" {
		res, err := vc.catalog.Lookup(ctx, req.Barcode)
		if err != nil {
			log.Printf("Warning: catalog lookup failed for barcode %s: %v", req.Barcode, err)
		} else if res != nil && res.Found {
			name := res.ProductName
			req.ProductName = &name
			source = models.NameSourceCatalog
		}
	}

	// The verification write is authoritative and goes first. Category
	// and expiry enrichments are follow-ups that may fail independently
	// without reverting it.
	item, err := vc.store.VerifyListItem(ctx, itemID, req, source)
	if err != nil {
		return nil, err
	}

	if req.CategoryID != nil || req.ExpiryDate != nil {
		if err := vc.store.EnrichListItem(ctx, itemID, req.CategoryID, req.ExpiryDate); err != nil {
			log.Printf("Warning: enrichment update failed for item %d: %v", itemID, err)
		} else {
			if req.CategoryID != nil {
				item.CategoryID = req.CategoryID
			}
			if req.ExpiryDate != nil {
				item.ExpiryDate = req.ExpiryDate
			}
		}
	}

	return item, nil
}

// Progress recomputes the per-state counts from the current snapshot
func Progress(list *models.ListWithItems) models.VerificationProgress {
	p := models.VerificationProgress{Total: len(list.Items)}
	for i := range list.Items {
		switch ClassifyItem(&list.Items[i]) {
		case ItemStateNotPurchased:
			p.NotPurchased++
		case ItemStatePending:
			p.Pending++
		default:
			p.Verified++
		}
	}
	p.AllResolved = p.Pending == 0 && p.Total > 0
	return p
}

// Complete finishes verification. With pending items left it refuses
// unless forced, returning the pending count so the caller can warn
// the operator. On success it assembles the inventory sync payload.
func (vc *VerificationController) Complete(ctx context.Context, list *models.ListWithItems, force bool) (*models.CompletionResult, error) {
	progress := Progress(list)
	if progress.Pending > 0 && !force {
		return nil, &PendingItemsError{Pending: progress.Pending}
	}

	completed, err := vc.store.CompleteListVerification(ctx, list.ID)
	if err != nil {
		return nil, err
	}

	synced, skipped := BuildInventorySync(list)
	return &models.CompletionResult{
		List:    completed,
		Synced:  synced,
		Skipped: skipped,
	}, nil
}

// BuildInventorySync selects the items eligible for pantry write-back:
// verified (not not-purchased) with a catalog product binding. The
// amount is the verified quantity, falling back to the requested one.
func BuildInventorySync(list *models.ListWithItems) ([]models.InventorySyncItem, int) {
	var synced []models.InventorySyncItem
	skipped := 0

	for i := range list.Items {
		item := &list.Items[i]
		switch ClassifyItem(item) {
		case ItemStateVerifiedWithInfo:
			amount := item.Quantity
			if item.VerifiedQuantity != nil {
				amount = *item.VerifiedQuantity
			}
			unit := item.Unit
			if item.VerifiedUnit != nil && *item.VerifiedUnit != "" {
				unit = *item.VerifiedUnit
			}
			barcode := item.ScannedBarcode
			if barcode == nil || *barcode == "" {
				barcode = item.CatalogBarcode
			}
			synced = append(synced, models.InventorySyncItem{
				ListItemID:  item.ID,
				ProductName: *item.ProductName,
				Barcode:     barcode,
				Amount:      amount,
				Unit:        unit,
				ExpiryDate:  item.ExpiryDate,
			})
		case ItemStateVerifiedNoInfo:
			skipped++
		}
	}

	return synced, skipped
}

func requestedUnit(items []models.ListItem, itemID int) string {
	for i := range items {
		if items[i].ID == itemID {
			return items[i].Unit
		}
	}
	return "pcs"
}
