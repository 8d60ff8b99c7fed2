package database

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/cartwheelhq/cartwheel/internal/models"
)

var ErrPantryItemNotFound = errors.New("pantry item not found")

// SyncInventory applies a completed list's sync payload to the pantry.
// Entries are keyed by (user, product name): an existing entry
// accumulates quantity, a new one is created. Barcodes resolve to
// catalog products where possible.
func (db *DB) SyncInventory(ctx context.Context, userID, listID int, items []models.InventorySyncItem) error {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, item := range items {
		var productID *int
		if item.Barcode != nil && *item.Barcode != "" {
			var id int
			err := tx.QueryRow(ctx, "SELECT id FROM products WHERE barcode = $1", *item.Barcode).Scan(&id)
			if err == nil {
				productID = &id
			}
		}

		_, err := tx.Exec(ctx, `
			INSERT INTO pantry_items (user_id, product_id, name, quantity, unit, expiry_date, source_list_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (user_id, name) DO UPDATE
			SET quantity = pantry_items.quantity + EXCLUDED.quantity,
			    product_id = COALESCE(EXCLUDED.product_id, pantry_items.product_id),
			    expiry_date = COALESCE(EXCLUDED.expiry_date, pantry_items.expiry_date),
			    source_list_id = EXCLUDED.source_list_id,
			    updated_at = NOW()
		`, userID, productID, item.ProductName, item.Amount, item.Unit, item.ExpiryDate, listID)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// ListPantryItems returns a user's pantry, optionally filtered by name
func (db *DB) ListPantryItems(ctx context.Context, params *models.InventoryListParams) ([]*models.PantryItem, int, error) {
	searchFilter := ""
	args := []any{params.UserID, params.Limit, params.Offset}
	if params.Search != "" {
		searchFilter = " AND name ILIKE $4"
		args = append(args, "%"+params.Search+"%")
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM pantry_items WHERE user_id = $1"
	countArgs := []any{params.UserID}
	if params.Search != "" {
		countQuery += " AND name ILIKE $2"
		countArgs = append(countArgs, "%"+params.Search+"%")
	}
	if err := db.Pool.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := db.Pool.Query(ctx, `
		SELECT id, user_id, product_id, name, quantity, unit, expiry_date, source_list_id, created_at, updated_at
		FROM pantry_items
		WHERE user_id = $1`+searchFilter+`
		ORDER BY name ASC
		LIMIT $2 OFFSET $3
	`, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*models.PantryItem
	for rows.Next() {
		item := &models.PantryItem{}
		err := rows.Scan(
			&item.ID, &item.UserID, &item.ProductID, &item.Name, &item.Quantity,
			&item.Unit, &item.ExpiryDate, &item.SourceListID,
			&item.CreatedAt, &item.UpdatedAt,
		)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, item)
	}

	return items, total, nil
}

// AdjustPantryQuantity adds or removes stock from one pantry entry,
// clamping at zero
func (db *DB) AdjustPantryQuantity(ctx context.Context, id, userID int, adjustment float64) (*models.PantryItem, error) {
	item := &models.PantryItem{}
	err := db.Pool.QueryRow(ctx, `
		UPDATE pantry_items
		SET quantity = GREATEST(quantity + $3, 0), updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING id, user_id, product_id, name, quantity, unit, expiry_date, source_list_id, created_at, updated_at
	`, id, userID, adjustment).Scan(
		&item.ID, &item.UserID, &item.ProductID, &item.Name, &item.Quantity,
		&item.Unit, &item.ExpiryDate, &item.SourceListID,
		&item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPantryItemNotFound
		}
		return nil, err
	}
	return item, nil
}
