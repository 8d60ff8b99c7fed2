package services

import (
	"context"
	"errors"
	"log"

	"github.com/cartwheelhq/cartwheel/internal/database"
	"github.com/cartwheelhq/cartwheel/internal/models"
)

// CatalogService resolves barcodes against the product catalog
type CatalogService struct {
	db *database.DB
}

// NewCatalogService creates a new catalog service
func NewCatalogService(db *database.DB) *CatalogService {
	return &CatalogService{db: db}
}

// Lookup resolves a barcode to product info. An unknown barcode or an
// unreachable catalog both report Found=false so verification can
// proceed without product info instead of blocking.
func (s *CatalogService) Lookup(ctx context.Context, barcode string) (*models.LookupResult, error) {
	if barcode == "" {
		return &models.LookupResult{Found: false}, nil
	}

	product, err := s.db.GetProductByBarcode(ctx, barcode)
	if err != nil {
		if !errors.Is(err, database.ErrProductNotFound) {
			log.Printf("Warning: catalog lookup for %s degraded to not-found: %v", barcode, err)
		}
		return &models.LookupResult{Found: false}, nil
	}

	return &models.LookupResult{
		Found:       true,
		ProductName: product.Name,
		Brand:       product.Brand,
	}, nil
}
