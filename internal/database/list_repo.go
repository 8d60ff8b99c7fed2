package database

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/cartwheelhq/cartwheel/internal/models"
)

var (
	ErrListNotFound     = errors.New("shopping list not found")
	ErrListItemNotFound = errors.New("list item not found")
	ErrNotListOwner     = errors.New("not the owner of this list")
)

const listItemColumns = `
	id, list_id, name, quantity, unit, catalog_barcode, checked, position,
	verified_at, verified_quantity, verified_unit, scanned_barcode,
	product_name, product_name_source, not_purchased, category_id, expiry_date,
	created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanListItem(row rowScanner) (*models.ListItem, error) {
	item := &models.ListItem{}
	err := row.Scan(
		&item.ID, &item.ListID, &item.Name, &item.Quantity, &item.Unit,
		&item.CatalogBarcode, &item.Checked, &item.Position,
		&item.VerifiedAt, &item.VerifiedQuantity, &item.VerifiedUnit, &item.ScannedBarcode,
		&item.ProductName, &item.ProductNameSource, &item.NotPurchased,
		&item.CategoryID, &item.ExpiryDate,
		&item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrListItemNotFound
		}
		return nil, err
	}
	return item, nil
}

// ListShoppingLists returns all shopping lists for a user
func (db *DB) ListShoppingLists(ctx context.Context, params *models.ListListParams) ([]*models.ListSummary, int, error) {
	statusFilter := ""
	args := []any{params.UserID}
	if params.Status != "" {
		args = append(args, string(params.Status))
		statusFilter = " AND sl.status = $" + strconv.Itoa(len(args))
	}

	var total int
	err := db.Pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM shopping_lists sl WHERE user_id = $1"+statusFilter,
		args...).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := db.Pool.Query(ctx, `
		SELECT
			sl.id, sl.name, sl.status, sl.verification_status, sl.completed_at,
			sl.created_at, sl.updated_at,
			COALESCE((SELECT COUNT(*) FROM shopping_list_items WHERE list_id = sl.id), 0) AS item_count,
			COALESCE((SELECT COUNT(*) FROM shopping_list_items WHERE list_id = sl.id AND verified_at IS NOT NULL), 0) AS verified_count
		FROM shopping_lists sl
		WHERE sl.user_id = $1`+statusFilter+`
		ORDER BY sl.updated_at DESC
		LIMIT $`+strconv.Itoa(len(args)+1)+` OFFSET $`+strconv.Itoa(len(args)+2),
		append(args, params.Limit, params.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var lists []*models.ListSummary
	for rows.Next() {
		l := &models.ListSummary{}
		err := rows.Scan(
			&l.ID, &l.Name, &l.Status, &l.VerificationStatus, &l.CompletedAt,
			&l.CreatedAt, &l.UpdatedAt, &l.ItemCount, &l.VerifiedCount,
		)
		if err != nil {
			return nil, 0, err
		}
		lists = append(lists, l)
	}

	return lists, total, nil
}

// CreateList creates a shopping list together with its initial items,
// assigning positions in the order they were supplied
func (db *DB) CreateList(ctx context.Context, userID int, req *models.CreateListRequest) (*models.ListWithItems, error) {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var listID int
	err = tx.QueryRow(ctx, `
		INSERT INTO shopping_lists (user_id, name)
		VALUES ($1, $2)
		RETURNING id
	`, userID, req.Name).Scan(&listID)
	if err != nil {
		return nil, err
	}

	for i, item := range req.Items {
		_, err = tx.Exec(ctx, `
			INSERT INTO shopping_list_items (list_id, name, quantity, unit, catalog_barcode, position)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, listID, item.Name, item.Quantity, item.Unit, item.CatalogBarcode, i)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return db.GetListByID(ctx, listID, userID)
}

// GetListByID retrieves a shopping list with its items in position order
func (db *DB) GetListByID(ctx context.Context, id int, userID int) (*models.ListWithItems, error) {
	list := &models.ListWithItems{}
	err := db.Pool.QueryRow(ctx, `
		SELECT id, user_id, name, status, verification_status, completed_at, created_at, updated_at
		FROM shopping_lists
		WHERE id = $1
	`, id).Scan(
		&list.ID, &list.UserID, &list.Name, &list.Status, &list.VerificationStatus,
		&list.CompletedAt, &list.CreatedAt, &list.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrListNotFound
		}
		return nil, err
	}

	if list.UserID != userID {
		return nil, ErrNotListOwner
	}

	rows, err := db.Pool.Query(ctx, `
		SELECT `+listItemColumns+`
		FROM shopping_list_items
		WHERE list_id = $1
		ORDER BY position ASC, id ASC
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list.Items = []models.ListItem{}
	for rows.Next() {
		item, err := scanListItem(rows)
		if err != nil {
			return nil, err
		}
		list.Items = append(list.Items, *item)
	}

	return list, nil
}

// UpdateList updates list name or status
func (db *DB) UpdateList(ctx context.Context, id int, req *models.UpdateListRequest) (*models.ShoppingList, error) {
	list := &models.ShoppingList{}
	err := db.Pool.QueryRow(ctx, `
		UPDATE shopping_lists
		SET name = COALESCE($2, name),
		    status = COALESCE($3, status),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING id, user_id, name, status, verification_status, completed_at, created_at, updated_at
	`, id, req.Name, req.Status).Scan(
		&list.ID, &list.UserID, &list.Name, &list.Status, &list.VerificationStatus,
		&list.CompletedAt, &list.CreatedAt, &list.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrListNotFound
		}
		return nil, err
	}
	return list, nil
}

// DeleteList deletes a shopping list and its items
func (db *DB) DeleteList(ctx context.Context, id int) error {
	result, err := db.Pool.Exec(ctx, "DELETE FROM shopping_lists WHERE id = $1", id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrListNotFound
	}
	return nil
}

// AddListItem appends an item at the end of the list
func (db *DB) AddListItem(ctx context.Context, listID int, req *models.AddListItemRequest) (*models.ListItem, error) {
	row := db.Pool.QueryRow(ctx, `
		INSERT INTO shopping_list_items (list_id, name, quantity, unit, catalog_barcode, position)
		VALUES ($1, $2, $3, $4, $5,
			COALESCE((SELECT MAX(position) + 1 FROM shopping_list_items WHERE list_id = $1), 0))
		RETURNING `+listItemColumns,
		listID, req.Name, req.Quantity, req.Unit, req.CatalogBarcode)
	item, err := scanListItem(row)
	if err != nil {
		return nil, err
	}
	db.touchList(ctx, listID)
	return item, nil
}

// UpdateListItem applies a partial edit. A product name supplied here
// is tagged as a manual edit so it can never be mistaken for a catalog
// match.
func (db *DB) UpdateListItem(ctx context.Context, itemID int, req *models.UpdateListItemRequest) (*models.ListItem, error) {
	row := db.Pool.QueryRow(ctx, `
		UPDATE shopping_list_items
		SET name = COALESCE($2, name),
		    quantity = COALESCE($3, quantity),
		    unit = COALESCE($4, unit),
		    product_name = COALESCE($5, product_name),
		    product_name_source = CASE WHEN $5::varchar IS NOT NULL THEN 'manual' ELSE product_name_source END,
		    category_id = COALESCE($6, category_id),
		    expiry_date = COALESCE($7, expiry_date),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING `+listItemColumns,
		itemID, req.Name, req.Quantity, req.Unit, req.ProductName, req.CategoryID, req.ExpiryDate)
	item, err := scanListItem(row)
	if err != nil {
		return nil, err
	}
	db.touchList(ctx, item.ListID)
	return item, nil
}

// DeleteListItem removes an item from its list
func (db *DB) DeleteListItem(ctx context.Context, itemID int) error {
	result, err := db.Pool.Exec(ctx, "DELETE FROM shopping_list_items WHERE id = $1", itemID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrListItemNotFound
	}
	return nil
}

// GetListItemByID retrieves a single list item
func (db *DB) GetListItemByID(ctx context.Context, itemID int) (*models.ListItem, error) {
	row := db.Pool.QueryRow(ctx, `
		SELECT `+listItemColumns+`
		FROM shopping_list_items
		WHERE id = $1
	`, itemID)
	return scanListItem(row)
}

// ToggleListItemChecked flips the purchase-intent flag
func (db *DB) ToggleListItemChecked(ctx context.Context, itemID int) (*models.ListItem, error) {
	row := db.Pool.QueryRow(ctx, `
		UPDATE shopping_list_items
		SET checked = NOT checked, updated_at = NOW()
		WHERE id = $1
		RETURNING `+listItemColumns,
		itemID)
	item, err := scanListItem(row)
	if err != nil {
		return nil, err
	}
	db.touchList(ctx, item.ListID)
	return item, nil
}

// VerifyListItem records a verification: the authoritative write that
// sets verified_at and clears any not-purchased mark. Concurrent
// lock-free verifications of the same item resolve last-write-wins.
func (db *DB) VerifyListItem(ctx context.Context, itemID int, req *models.VerifyItemRequest, source models.ProductNameSource) (*models.ListItem, error) {
	row := db.Pool.QueryRow(ctx, `
		UPDATE shopping_list_items
		SET verified_at = NOW(),
		    scanned_barcode = $2,
		    verified_quantity = $3,
		    verified_unit = $4,
		    product_name = COALESCE($5, product_name),
		    product_name_source = CASE WHEN $5::varchar IS NOT NULL THEN $6 ELSE product_name_source END,
		    not_purchased = FALSE,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING `+listItemColumns,
		itemID, req.Barcode, req.Quantity, req.Unit, req.ProductName, string(source))
	item, err := scanListItem(row)
	if err != nil {
		return nil, err
	}
	db.touchList(ctx, item.ListID)
	return item, nil
}

// EnrichListItem applies best-effort enrichments after a verification
func (db *DB) EnrichListItem(ctx context.Context, itemID int, categoryID *int, expiryDate *time.Time) error {
	result, err := db.Pool.Exec(ctx, `
		UPDATE shopping_list_items
		SET category_id = COALESCE($2, category_id),
		    expiry_date = COALESCE($3, expiry_date),
		    updated_at = NOW()
		WHERE id = $1
	`, itemID, categoryID, expiryDate)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrListItemNotFound
	}
	return nil
}

// MarkItemNotPurchased flags the item not bought and clears all
// verification fields in the same statement
func (db *DB) MarkItemNotPurchased(ctx context.Context, itemID int) (*models.ListItem, error) {
	row := db.Pool.QueryRow(ctx, `
		UPDATE shopping_list_items
		SET not_purchased = TRUE,
		    verified_at = NULL,
		    verified_quantity = NULL,
		    verified_unit = NULL,
		    scanned_barcode = NULL,
		    product_name = NULL,
		    product_name_source = 'none',
		    updated_at = NOW()
		WHERE id = $1
		RETURNING `+listItemColumns,
		itemID)
	item, err := scanListItem(row)
	if err != nil {
		return nil, err
	}
	db.touchList(ctx, item.ListID)
	return item, nil
}

// UndoItemNotPurchased returns the item to pending without
// resurrecting prior verification data
func (db *DB) UndoItemNotPurchased(ctx context.Context, itemID int) (*models.ListItem, error) {
	row := db.Pool.QueryRow(ctx, `
		UPDATE shopping_list_items
		SET not_purchased = FALSE, updated_at = NOW()
		WHERE id = $1
		RETURNING `+listItemColumns,
		itemID)
	item, err := scanListItem(row)
	if err != nil {
		return nil, err
	}
	db.touchList(ctx, item.ListID)
	return item, nil
}

// AddExtraItem appends a product scanned during verification that was
// not on the original list. It arrives already verified.
func (db *DB) AddExtraItem(ctx context.Context, listID int, barcode string, quantity float64, unit string, productName *string, source models.ProductNameSource) (*models.ListItem, error) {
	name := "Unlisted product"
	if productName != nil && *productName != "" {
		name = *productName
	} else if barcode != "" {
		name = "Unlisted product " + barcode
	}

	row := db.Pool.QueryRow(ctx, `
		INSERT INTO shopping_list_items (
			list_id, name, quantity, unit, checked, position,
			verified_at, verified_quantity, verified_unit, scanned_barcode,
			product_name, product_name_source
		)
		VALUES ($1, $2, $3, $4, TRUE,
			COALESCE((SELECT MAX(position) + 1 FROM shopping_list_items WHERE list_id = $1), 0),
			NOW(), $3, $4, $5, $6, $7)
		RETURNING `+listItemColumns,
		listID, name, quantity, unit, barcode, productName, string(source))
	item, err := scanListItem(row)
	if err != nil {
		return nil, err
	}
	db.touchList(ctx, listID)
	return item, nil
}

// SetVerificationStatus moves the list between verification states
func (db *DB) SetVerificationStatus(ctx context.Context, listID int, status models.VerificationStatus) error {
	result, err := db.Pool.Exec(ctx, `
		UPDATE shopping_lists
		SET verification_status = $2, updated_at = NOW()
		WHERE id = $1
	`, listID, string(status))
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrListNotFound
	}
	return nil
}

// CompleteListVerification finalizes verification and archives the list
func (db *DB) CompleteListVerification(ctx context.Context, listID int) (*models.ShoppingList, error) {
	list := &models.ShoppingList{}
	err := db.Pool.QueryRow(ctx, `
		UPDATE shopping_lists
		SET verification_status = 'completed',
		    status = 'completed',
		    completed_at = NOW(),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING id, user_id, name, status, verification_status, completed_at, created_at, updated_at
	`, listID).Scan(
		&list.ID, &list.UserID, &list.Name, &list.Status, &list.VerificationStatus,
		&list.CompletedAt, &list.CreatedAt, &list.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrListNotFound
		}
		return nil, err
	}
	return list, nil
}

// touchList bumps the list's updated_at so list views sort by activity
func (db *DB) touchList(ctx context.Context, listID int) {
	_, _ = db.Pool.Exec(ctx, "UPDATE shopping_lists SET updated_at = NOW() WHERE id = $1", listID)
}
