package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cartwheelhq/cartwheel/internal/models"
)

// fakeListStore records the verification writes the controller issues
type fakeListStore struct {
	statuses   []models.VerificationStatus
	verified   map[int]models.VerifyItemRequest
	sources    map[int]models.ProductNameSource
	enriched   map[int]bool
	extras     []models.ListItem
	nextItemID int

	verifyErr error
	enrichErr error
}

func newFakeListStore() *fakeListStore {
	return &fakeListStore{
		verified:   make(map[int]models.VerifyItemRequest),
		sources:    make(map[int]models.ProductNameSource),
		enriched:   make(map[int]bool),
		nextItemID: 100,
	}
}

func (f *fakeListStore) SetVerificationStatus(ctx context.Context, listID int, status models.VerificationStatus) error {
	f.statuses = append(f.statuses, status)
	return nil
}

func (f *fakeListStore) VerifyListItem(ctx context.Context, itemID int, req *models.VerifyItemRequest, source models.ProductNameSource) (*models.ListItem, error) {
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	f.verified[itemID] = *req
	f.sources[itemID] = source

	now := time.Now()
	item := &models.ListItem{
		ID:                itemID,
		VerifiedAt:        &now,
		VerifiedQuantity:  &req.Quantity,
		VerifiedUnit:      &req.Unit,
		ProductName:       req.ProductName,
		ProductNameSource: source,
	}
	if req.Barcode != "" {
		b := req.Barcode
		item.ScannedBarcode = &b
	}
	return item, nil
}

func (f *fakeListStore) EnrichListItem(ctx context.Context, itemID int, categoryID *int, expiryDate *time.Time) error {
	if f.enrichErr != nil {
		return f.enrichErr
	}
	f.enriched[itemID] = true
	return nil
}

func (f *fakeListStore) AddExtraItem(ctx context.Context, listID int, barcode string, quantity float64, unit string, productName *string, source models.ProductNameSource) (*models.ListItem, error) {
	f.nextItemID++
	now := time.Now()
	b := barcode
	item := models.ListItem{
		ID:                f.nextItemID,
		ListID:            listID,
		Quantity:          quantity,
		Unit:              unit,
		VerifiedAt:        &now,
		VerifiedQuantity:  &quantity,
		ScannedBarcode:    &b,
		ProductName:       productName,
		ProductNameSource: source,
	}
	f.extras = append(f.extras, item)
	return &item, nil
}

func (f *fakeListStore) CompleteListVerification(ctx context.Context, listID int) (*models.ShoppingList, error) {
	now := time.Now()
	return &models.ShoppingList{
		ID:                 listID,
		Status:             models.ListStatusCompleted,
		VerificationStatus: models.VerificationCompleted,
		CompletedAt:        &now,
	}, nil
}

// fakeCatalog serves lookups from a fixed barcode map
type fakeCatalog struct {
	products map[string]string
	err      error
	calls    int
}

func (f *fakeCatalog) Lookup(ctx context.Context, barcode string) (*models.LookupResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if name, ok := f.products[barcode]; ok {
		return &models.LookupResult{Found: true, ProductName: name}, nil
	}
	return &models.LookupResult{Found: false}, nil
}

func TestEnterVerifyModeTransitions(t *testing.T) {
	tests := []struct {
		name       string
		from       models.VerificationStatus
		wantWrites int
		wantStatus models.VerificationStatus
	}{
		{"not started moves to in progress", models.VerificationNotStarted, 1, models.VerificationInProgress},
		{"paused resumes", models.VerificationPaused, 1, models.VerificationInProgress},
		{"re-entering in progress is a no-op", models.VerificationInProgress, 0, models.VerificationInProgress},
		{"completed stays completed", models.VerificationCompleted, 0, models.VerificationCompleted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeListStore()
			vc := NewVerificationController(store, &fakeCatalog{})
			list := &models.ShoppingList{ID: 1, VerificationStatus: tt.from}

			err := vc.EnterVerifyMode(context.Background(), list)

			require.NoError(t, err)
			assert.Len(t, store.statuses, tt.wantWrites)
			assert.Equal(t, tt.wantStatus, list.VerificationStatus)
		})
	}
}

func TestCommitScanSessionVerifiesAndAddsExtras(t *testing.T) {
	store := newFakeListStore()
	catalog := &fakeCatalog{products: map[string]string{
		"4002971021301": "Whole Milk 1L",
	}}
	vc := NewVerificationController(store, catalog)

	milk := "4002971021301"
	list := &models.ListWithItems{
		ShoppingList: models.ShoppingList{ID: 1},
		Items: []models.ListItem{
			{ID: 1, Name: "Milk", Quantity: 2, Unit: "pcs", Position: 0, CatalogBarcode: &milk},
		},
	}

	session := NewScanSession(1)
	session.Scan(list.Items, "4002971021301")
	session.Scan(list.Items, "4002971021301")
	session.Scan(list.Items, "5000000000001") // not on the list

	updated, err := vc.CommitScanSession(context.Background(), list, session)

	require.NoError(t, err)
	require.Len(t, updated, 2)

	// The listed item got the accumulated quantity and the catalog name
	req := store.verified[1]
	assert.Equal(t, 2.0, req.Quantity)
	assert.Equal(t, "pcs", req.Unit)
	require.NotNil(t, req.ProductName)
	assert.Equal(t, "Whole Milk 1L", *req.ProductName)
	assert.Equal(t, models.NameSourceCatalog, store.sources[1])

	// The unknown barcode became a pre-verified extra
	require.Len(t, store.extras, 1)
	assert.Equal(t, "5000000000001", *store.extras[0].ScannedBarcode)

	// The flushed session is empty
	assert.Equal(t, 0, session.Len())
}

func TestCommitScanSessionDegradesOnLookupFailure(t *testing.T) {
	store := newFakeListStore()
	catalog := &fakeCatalog{err: errors.New("catalog unreachable")}
	vc := NewVerificationController(store, catalog)

	milk := "4002971021301"
	list := &models.ListWithItems{
		ShoppingList: models.ShoppingList{ID: 1},
		Items: []models.ListItem{
			{ID: 1, Name: "Milk", Quantity: 1, Unit: "pcs", CatalogBarcode: &milk},
		},
	}

	session := NewScanSession(1)
	session.Scan(list.Items, "4002971021301")

	updated, err := vc.CommitScanSession(context.Background(), list, session)

	// The scan still verifies the item, just without product info
	require.NoError(t, err)
	require.Len(t, updated, 1)
	assert.Nil(t, store.verified[1].ProductName)
	assert.Equal(t, models.NameSourceNone, store.sources[1])
	assert.Equal(t, ItemStateVerifiedNoInfo, ClassifyItem(&updated[0]))
}

func TestVerifySingleTagsManualNames(t *testing.T) {
	store := newFakeListStore()
	catalog := &fakeCatalog{products: map[string]string{"111": "Catalog Milk"}}
	vc := NewVerificationController(store, catalog)

	name := "My Own Milk"
	_, err := vc.VerifySingle(context.Background(), 1, &models.VerifyItemRequest{
		Barcode:     "111",
		Quantity:    1,
		Unit:        "pcs",
		ProductName: &name,
	})

	require.NoError(t, err)
	assert.Equal(t, models.NameSourceManual, store.sources[1])
	assert.Equal(t, 0, catalog.calls, "a supplied name skips the catalog entirely")
}

func TestVerifySingleLooksUpBarcode(t *testing.T) {
	store := newFakeListStore()
	catalog := &fakeCatalog{products: map[string]string{"111": "Catalog Milk"}}
	vc := NewVerificationController(store, catalog)

	item, err := vc.VerifySingle(context.Background(), 1, &models.VerifyItemRequest{
		Barcode:  "111",
		Quantity: 1,
		Unit:     "pcs",
	})

	require.NoError(t, err)
	assert.Equal(t, models.NameSourceCatalog, store.sources[1])
	assert.Equal(t, ItemStateVerifiedWithInfo, ClassifyItem(item))
}

func TestVerifySingleEnrichmentFailureDoesNotRevert(t *testing.T) {
	store := newFakeListStore()
	store.enrichErr = errors.New("db hiccup")
	vc := NewVerificationController(store, &fakeCatalog{})

	categoryID := 3
	item, err := vc.VerifySingle(context.Background(), 1, &models.VerifyItemRequest{
		Quantity:   1,
		Unit:       "pcs",
		CategoryID: &categoryID,
	})

	// Verification stands even though the enrichment write failed
	require.NoError(t, err)
	assert.NotNil(t, item.VerifiedAt)
	assert.Nil(t, item.CategoryID)
}

func TestProgress(t *testing.T) {
	now := time.Now()
	list := &models.ListWithItems{
		Items: []models.ListItem{
			{ID: 1},
			{ID: 2, VerifiedAt: &now},
			{ID: 3, NotPurchased: true},
		},
	}

	p := Progress(list)

	assert.Equal(t, models.VerificationProgress{
		Total:        3,
		Pending:      1,
		Verified:     1,
		NotPurchased: 1,
		AllResolved:  false,
	}, p)
}

func TestCompleteRefusesWithPendingItems(t *testing.T) {
	store := newFakeListStore()
	vc := NewVerificationController(store, &fakeCatalog{})

	list := &models.ListWithItems{
		ShoppingList: models.ShoppingList{ID: 1, VerificationStatus: models.VerificationInProgress},
		Items: []models.ListItem{
			{ID: 1, Name: "Milk"},
			{ID: 2, Name: "Bread"},
		},
	}

	_, err := vc.Complete(context.Background(), list, false)

	var pending *PendingItemsError
	require.ErrorAs(t, err, &pending)
	assert.Equal(t, 2, pending.Pending)
}

func TestCompleteForcedWithPendingItems(t *testing.T) {
	store := newFakeListStore()
	vc := NewVerificationController(store, &fakeCatalog{})

	list := &models.ListWithItems{
		ShoppingList: models.ShoppingList{ID: 1},
		Items:        []models.ListItem{{ID: 1, Name: "Milk"}},
	}

	result, err := vc.Complete(context.Background(), list, true)

	require.NoError(t, err)
	assert.Equal(t, models.ListStatusCompleted, result.List.Status)
	assert.Empty(t, result.Synced)
}

func TestBuildInventorySyncEligibility(t *testing.T) {
	now := time.Now()
	qty := 3.0
	unit := "bottles"
	barcode := "111"
	name := "Whole Milk 1L"
	manual := "Typed Name"

	list := &models.ListWithItems{
		Items: []models.ListItem{
			// Catalog-bound, verified quantity overrides requested
			{ID: 1, Quantity: 2, Unit: "pcs", VerifiedAt: &now, VerifiedQuantity: &qty, VerifiedUnit: &unit,
				ScannedBarcode: &barcode, ProductName: &name, ProductNameSource: models.NameSourceCatalog},
			// Verified but no catalog info: skipped
			{ID: 2, Quantity: 1, Unit: "pcs", VerifiedAt: &now},
			// Manual name: skipped
			{ID: 3, Quantity: 1, Unit: "pcs", VerifiedAt: &now, ProductName: &manual, ProductNameSource: models.NameSourceManual},
			// Not purchased: excluded entirely
			{ID: 4, Quantity: 1, Unit: "pcs", NotPurchased: true},
			// Pending: excluded entirely
			{ID: 5, Quantity: 1, Unit: "pcs"},
		},
	}

	synced, skipped := BuildInventorySync(list)

	require.Len(t, synced, 1)
	assert.Equal(t, 1, synced[0].ListItemID)
	assert.Equal(t, "Whole Milk 1L", synced[0].ProductName)
	assert.Equal(t, 3.0, synced[0].Amount)
	assert.Equal(t, "bottles", synced[0].Unit)
	assert.Equal(t, "111", *synced[0].Barcode)

	assert.Equal(t, 2, skipped, "verified items without catalog info are counted, not synced")
}

func TestBuildInventorySyncFallsBackToRequestedQuantity(t *testing.T) {
	now := time.Now()
	name := "Pasta Barilla"
	list := &models.ListWithItems{
		Items: []models.ListItem{
			{ID: 1, Quantity: 3, Unit: "pcs", VerifiedAt: &now,
				ProductName: &name, ProductNameSource: models.NameSourceCatalog},
		},
	}

	synced, _ := BuildInventorySync(list)

	require.Len(t, synced, 1)
	assert.Equal(t, 3.0, synced[0].Amount)
	assert.Equal(t, "pcs", synced[0].Unit)
}
