package database

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/cartwheelhq/cartwheel/internal/models"
)

var ErrProductNotFound = errors.New("product not found")

// GetProductByBarcode retrieves a catalog product by its barcode
func (db *DB) GetProductByBarcode(ctx context.Context, barcode string) (*models.Product, error) {
	product := &models.Product{}
	err := db.Pool.QueryRow(ctx, `
		SELECT id, barcode, name, brand, category_id, created_at, updated_at
		FROM products
		WHERE barcode = $1
	`, barcode).Scan(
		&product.ID, &product.Barcode, &product.Name, &product.Brand,
		&product.CategoryID, &product.CreatedAt, &product.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return product, nil
}

// CreateProduct adds a product to the catalog. An existing barcode gets
// its name and brand refreshed instead of erroring.
func (db *DB) CreateProduct(ctx context.Context, req *models.CreateProductRequest) (*models.Product, error) {
	product := &models.Product{}
	err := db.Pool.QueryRow(ctx, `
		INSERT INTO products (barcode, name, brand, category_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (barcode) DO UPDATE
		SET name = EXCLUDED.name,
		    brand = EXCLUDED.brand,
		    category_id = COALESCE(EXCLUDED.category_id, products.category_id),
		    updated_at = NOW()
		RETURNING id, barcode, name, brand, category_id, created_at, updated_at
	`, req.Barcode, req.Name, req.Brand, req.CategoryID).Scan(
		&product.ID, &product.Barcode, &product.Name, &product.Brand,
		&product.CategoryID, &product.CreatedAt, &product.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return product, nil
}

// SearchProducts finds catalog products by name prefix or substring
func (db *DB) SearchProducts(ctx context.Context, params *models.ProductListParams) ([]*models.Product, int, error) {
	searchFilter := ""
	args := []any{params.Limit, params.Offset}
	if params.Search != "" {
		searchFilter = " WHERE name ILIKE $3"
		args = append(args, "%"+params.Search+"%")
	}

	var total int
	countArgs := []any{}
	countQuery := "SELECT COUNT(*) FROM products"
	if params.Search != "" {
		countQuery += " WHERE name ILIKE $1"
		countArgs = append(countArgs, "%"+params.Search+"%")
	}
	if err := db.Pool.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := db.Pool.Query(ctx, `
		SELECT id, barcode, name, brand, category_id, created_at, updated_at
		FROM products`+searchFilter+`
		ORDER BY name ASC
		LIMIT $1 OFFSET $2
	`, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var products []*models.Product
	for rows.Next() {
		product := &models.Product{}
		err := rows.Scan(
			&product.ID, &product.Barcode, &product.Name, &product.Brand,
			&product.CategoryID, &product.CreatedAt, &product.UpdatedAt,
		)
		if err != nil {
			return nil, 0, err
		}
		products = append(products, product)
	}

	return products, total, nil
}

// ListCategories returns all categories
func (db *DB) ListCategories(ctx context.Context) ([]*models.Category, error) {
	rows, err := db.Pool.Query(ctx, "SELECT id, name FROM categories ORDER BY name ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []*models.Category
	for rows.Next() {
		c := &models.Category{}
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, nil
}
