package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/cartwheelhq/cartwheel/internal/models"
)

func strPtr(s string) *string { return &s }

func TestClassifyItem(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name string
		item models.ListItem
		want ItemState
	}{
		{
			name: "untouched item is pending",
			item: models.ListItem{Name: "Milk"},
			want: ItemStatePending,
		},
		{
			name: "verified without product info",
			item: models.ListItem{Name: "Milk", VerifiedAt: &now},
			want: ItemStateVerifiedNoInfo,
		},
		{
			name: "verified with catalog product name",
			item: models.ListItem{
				Name:              "Milk",
				VerifiedAt:        &now,
				ProductName:       strPtr("Whole Milk 1L"),
				ProductNameSource: models.NameSourceCatalog,
			},
			want: ItemStateVerifiedWithInfo,
		},
		{
			name: "manually typed product name does not count as info",
			item: models.ListItem{
				Name:              "Milk",
				VerifiedAt:        &now,
				ProductName:       strPtr("Whole Milk 1L"),
				ProductNameSource: models.NameSourceManual,
			},
			want: ItemStateVerifiedNoInfo,
		},
		{
			name: "empty product name does not count as info",
			item: models.ListItem{
				Name:              "Milk",
				VerifiedAt:        &now,
				ProductName:       strPtr(""),
				ProductNameSource: models.NameSourceCatalog,
			},
			want: ItemStateVerifiedNoInfo,
		},
		{
			name: "not purchased wins over everything",
			item: models.ListItem{
				Name:         "Milk",
				NotPurchased: true,
			},
			want: ItemStateNotPurchased,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyItem(&tt.item))
			assert.Equal(t, tt.want != ItemStatePending, IsResolved(&tt.item))
		})
	}
}

func TestVerifyItemClearsNotPurchased(t *testing.T) {
	item := models.ListItem{Name: "Bread", Quantity: 1, Unit: "pcs", NotPurchased: true}

	VerifyItem(&item, "4002971021301", 2, "pcs", strPtr("Rye Bread"), models.NameSourceCatalog)

	assert.False(t, item.NotPurchased)
	assert.NotNil(t, item.VerifiedAt)
	assert.Equal(t, "4002971021301", *item.ScannedBarcode)
	assert.Equal(t, 2.0, *item.VerifiedQuantity)
	assert.Equal(t, "pcs", *item.VerifiedUnit)
	assert.Equal(t, ItemStateVerifiedWithInfo, ClassifyItem(&item))
}

func TestVerifyItemWithoutProductName(t *testing.T) {
	item := models.ListItem{Name: "Bread", Quantity: 1, Unit: "pcs"}

	VerifyItem(&item, "", 1, "pcs", nil, models.NameSourceNone)

	assert.Nil(t, item.ProductName)
	assert.Equal(t, models.ProductNameSource(""), item.ProductNameSource)
	assert.Equal(t, ItemStateVerifiedNoInfo, ClassifyItem(&item))
}

func TestMarkItemNotPurchasedClearsVerification(t *testing.T) {
	item := models.ListItem{Name: "Eggs", Quantity: 1, Unit: "pcs"}
	VerifyItem(&item, "123", 1, "pcs", strPtr("Eggs 10pk"), models.NameSourceCatalog)

	MarkItemNotPurchased(&item)

	assert.True(t, item.NotPurchased)
	assert.Nil(t, item.VerifiedAt)
	assert.Nil(t, item.VerifiedQuantity)
	assert.Nil(t, item.VerifiedUnit)
	assert.Nil(t, item.ScannedBarcode)
	assert.Nil(t, item.ProductName)
	assert.Equal(t, ItemStateNotPurchased, ClassifyItem(&item))
}

func TestUndoNotPurchasedReturnsToPending(t *testing.T) {
	item := models.ListItem{Name: "Eggs"}
	MarkItemNotPurchased(&item)

	UndoItemNotPurchased(&item)

	assert.Equal(t, ItemStatePending, ClassifyItem(&item))
	assert.Nil(t, item.VerifiedAt, "prior verification data must not be resurrected")
}

// The repository applies the same clearing rules in single UPDATE
// statements. These helpers transcribe those statements column for
// column so a change to either side shows up as a parity failure here.

func persistedVerify(item models.ListItem, req *models.VerifyItemRequest, source models.ProductNameSource) models.ListItem {
	now := time.Now()
	item.VerifiedAt = &now
	item.ScannedBarcode = &req.Barcode
	item.VerifiedQuantity = &req.Quantity
	item.VerifiedUnit = &req.Unit
	if req.ProductName != nil {
		item.ProductName = req.ProductName
		item.ProductNameSource = source
	}
	item.NotPurchased = false
	return item
}

func persistedMarkNotPurchased(item models.ListItem) models.ListItem {
	item.NotPurchased = true
	item.VerifiedAt = nil
	item.VerifiedQuantity = nil
	item.VerifiedUnit = nil
	item.ScannedBarcode = nil
	item.ProductName = nil
	item.ProductNameSource = models.NameSourceNone
	return item
}

func persistedUndoNotPurchased(item models.ListItem) models.ListItem {
	item.NotPurchased = false
	return item
}

func TestMutatorsMatchRepositoryUpdates(t *testing.T) {
	now := time.Now()

	states := map[string]models.ListItem{
		"pending": {Name: "Milk"},
		"verified no info": {
			Name: "Milk", VerifiedAt: &now, ScannedBarcode: strPtr("123"),
		},
		"verified with info": {
			Name: "Milk", VerifiedAt: &now,
			ProductName: strPtr("Whole Milk 1L"), ProductNameSource: models.NameSourceCatalog,
		},
		"not purchased": {Name: "Milk", NotPurchased: true},
	}

	requests := map[string]*models.VerifyItemRequest{
		"with catalog name": {
			Barcode: "4002971021301", Quantity: 2, Unit: "pcs",
			ProductName: strPtr("Whole Milk 1L"),
		},
		"without name": {Quantity: 1, Unit: "pcs"},
	}

	for stateName, start := range states {
		for reqName, req := range requests {
			t.Run("verify "+reqName+" from "+stateName, func(t *testing.T) {
				pure := start
				VerifyItem(&pure, req.Barcode, req.Quantity, req.Unit, req.ProductName, models.NameSourceCatalog)
				persisted := persistedVerify(start, req, models.NameSourceCatalog)

				assert.Equal(t, ClassifyItem(&persisted), ClassifyItem(&pure))
				assert.Equal(t, persisted.NotPurchased, pure.NotPurchased)
				assert.Equal(t, persisted.ProductName, pure.ProductName)
				assert.Equal(t, persisted.ProductNameSource, pure.ProductNameSource)
				assert.Equal(t, persisted.VerifiedQuantity, pure.VerifiedQuantity)
			})
		}

		t.Run("mark not purchased from "+stateName, func(t *testing.T) {
			pure := start
			MarkItemNotPurchased(&pure)
			persisted := persistedMarkNotPurchased(start)

			assert.Equal(t, ItemStateNotPurchased, ClassifyItem(&pure))
			assert.Equal(t, ClassifyItem(&persisted), ClassifyItem(&pure))
			assert.Equal(t, persisted, pure)
		})

		t.Run("undo not purchased from "+stateName, func(t *testing.T) {
			pure := start
			UndoItemNotPurchased(&pure)
			persisted := persistedUndoNotPurchased(start)

			assert.Equal(t, ClassifyItem(&persisted), ClassifyItem(&pure))
			assert.Equal(t, persisted, pure)
		})
	}
}
