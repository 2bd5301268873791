package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/isdelr/inventory-tracker/internal/models"
)

// ItemServiceProvider defines the interface for inventory services. Every
// call is scoped to the owning user.
type ItemServiceProvider interface {
	CreateItem(ctx context.Context, ownerID int64, fields models.ItemFields) (models.Item, error)
	GetItem(ctx context.Context, id, ownerID int64) (models.Item, error)
	ListItems(ctx context.Context, ownerID int64) ([]models.Item, error)
	UpdateItem(ctx context.Context, id, ownerID int64, fields models.ItemFields) (models.Item, error)
	DeleteItem(ctx context.Context, id, ownerID int64) error
	SearchItems(ctx context.Context, ownerID int64, query string) ([]models.Item, error)
	OwnsImage(ctx context.Context, ownerID int64, name string) (bool, error)
}

// ItemService provides persistence for inventory items.
type ItemService struct {
	db  *sql.DB
	now func() time.Time
}

// NewItemService creates a new ItemService.
func NewItemService(db *sql.DB) *ItemService {
	return &ItemService{db: db, now: time.Now}
}

const itemColumns = `id, user_id, name, quantity, price, category, image_filename, created_at, updated_at`

// scanItem is a helper to scan an item from a row or rows object.
func scanItem(scanner interface{ Scan(...interface{}) error }) (models.Item, error) {
	var item models.Item
	var image sql.NullString

	err := scanner.Scan(
		&item.ID, &item.UserID, &item.Name, &item.Quantity, &item.Price,
		&item.Category, &image, &item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return item, err
	}
	if image.Valid && image.String != "" {
		item.ImageFilename = &image.String
	}
	return item, nil
}

func scanItems(rows *sql.Rows) ([]models.Item, error) {
	defer rows.Close()

	items := []models.Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// CreateItem inserts a new item for ownerID.
func (s *ItemService) CreateItem(ctx context.Context, ownerID int64, fields models.ItemFields) (models.Item, error) {
	now := s.now().UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO inventory (user_id, name, quantity, price, category, image_filename, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ownerID, fields.Name, fields.Quantity, fields.Price, fields.Category, fields.ImageFilename, now, now)
	if err != nil {
		return models.Item{}, fmt.Errorf("failed to insert item: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Item{}, err
	}

	return models.Item{
		ID:            id,
		UserID:        ownerID,
		Name:          fields.Name,
		Quantity:      fields.Quantity,
		Price:         fields.Price,
		Category:      fields.Category,
		ImageFilename: fields.ImageFilename,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// GetItem retrieves an item by id. Items owned by other users are reported
// as ErrNotFound.
func (s *ItemService) GetItem(ctx context.Context, id, ownerID int64) (models.Item, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM inventory WHERE id = ? AND user_id = ?`, id, ownerID)
	item, err := scanItem(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Item{}, ErrNotFound
		}
		return models.Item{}, err
	}
	return item, nil
}

// ListItems returns the owner's items, most recently updated first.
func (s *ItemService) ListItems(ctx context.Context, ownerID int64) ([]models.Item, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM inventory WHERE user_id = ? ORDER BY updated_at DESC, id DESC`, ownerID)
	if err != nil {
		return nil, err
	}
	return scanItems(rows)
}

// UpdateItem replaces all editable fields and refreshes updated_at.
// Concurrent updates are last-write-wins.
func (s *ItemService) UpdateItem(ctx context.Context, id, ownerID int64, fields models.ItemFields) (models.Item, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE inventory
		SET name = ?, quantity = ?, price = ?, category = ?, image_filename = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		fields.Name, fields.Quantity, fields.Price, fields.Category, fields.ImageFilename, s.now().UTC(),
		id, ownerID)
	if err != nil {
		return models.Item{}, fmt.Errorf("failed to update item: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return models.Item{}, err
	} else if n == 0 {
		return models.Item{}, ErrNotFound
	}
	return s.GetItem(ctx, id, ownerID)
}

// DeleteItem removes an item row. It does not touch image files.
func (s *ItemService) DeleteItem(ctx context.Context, id, ownerID int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM inventory WHERE id = ? AND user_id = ?", id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// SearchItems returns the owner's items whose name or category contains
// query, case-insensitively. LIKE wildcards in query match literally.
func (s *ItemService) SearchItems(ctx context.Context, ownerID int64, query string) ([]models.Item, error) {
	pattern := "%" + escapeLike(query) + "%"
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+itemColumns+` FROM inventory
		WHERE user_id = ? AND (name LIKE ? ESCAPE '\' OR category LIKE ? ESCAPE '\')
		ORDER BY updated_at DESC, id DESC`,
		ownerID, pattern, pattern)
	if err != nil {
		return nil, err
	}
	return scanItems(rows)
}

// OwnsImage reports whether one of the owner's items references the stored
// image name.
func (s *ItemService) OwnsImage(ctx context.Context, ownerID int64, name string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM inventory WHERE user_id = ? AND image_filename = ?)`,
		ownerID, name).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to look up image owner: %w", err)
	}
	return exists, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// Summarize computes the list page totals.
func Summarize(items []models.Item) models.InventorySummary {
	sum := models.InventorySummary{TotalItems: len(items)}
	for _, item := range items {
		sum.TotalQuantity += item.Quantity
		sum.TotalValue += item.Value()
	}
	return sum
}
