package models

import "time"

// Item is a single inventory record owned by exactly one user.
type Item struct {
	ID            int64     `json:"id"`
	UserID        int64     `json:"userId"`
	Name          string    `json:"name"`
	Quantity      int64     `json:"quantity"`
	Price         float64   `json:"price"`
	Category      string    `json:"category"`
	ImageFilename *string   `json:"imageFilename,omitempty"` // nil when the item has no image
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// HasImage reports whether an image file is attached.
func (i Item) HasImage() bool {
	return i.ImageFilename != nil && *i.ImageFilename != ""
}

// Image returns the attached image name or "".
func (i Item) Image() string {
	if i.ImageFilename == nil {
		return ""
	}
	return *i.ImageFilename
}

// Value is quantity times unit price.
func (i Item) Value() float64 {
	return float64(i.Quantity) * i.Price
}

// ItemFields holds the user-editable columns of an item. Edits replace all of
// them at once.
type ItemFields struct {
	Name          string
	Quantity      int64
	Price         float64
	Category      string
	ImageFilename *string
}

// InventorySummary aggregates a user's items for the list page.
type InventorySummary struct {
	TotalItems    int     `json:"totalItems"`
	TotalQuantity int64   `json:"totalQuantity"`
	TotalValue    float64 `json:"totalValue"`
}
