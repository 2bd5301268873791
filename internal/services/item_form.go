package services

import (
	"math"
	"strconv"
	"strings"

	"github.com/isdelr/inventory-tracker/internal/models"
)

// Item form messages. Unlike registration, item validation stops at the
// first failure.
const (
	MsgFieldsRequired   = "All fields are required!"
	MsgInvalidNumber    = "Invalid quantity or price value!"
	MsgNegativeQuantity = "Quantity cannot be negative!"
	MsgNegativePrice    = "Price cannot be negative!"
)

// ItemForm is the raw add/edit form.
type ItemForm struct {
	Name     string
	Quantity string
	Price    string
	Category string
}

// Parse validates the form and converts it to item fields. The image
// reference is left for the caller to fill in.
func (f ItemForm) Parse() (models.ItemFields, error) {
	name := strings.TrimSpace(f.Name)
	category := strings.TrimSpace(f.Category)
	qtyRaw := strings.TrimSpace(f.Quantity)
	priceRaw := strings.TrimSpace(f.Price)

	if name == "" || qtyRaw == "" || priceRaw == "" || category == "" {
		return models.ItemFields{}, newValidationError(MsgFieldsRequired)
	}

	quantity, err := strconv.ParseInt(qtyRaw, 10, 64)
	if err != nil {
		return models.ItemFields{}, newValidationError(MsgInvalidNumber)
	}
	price, err := strconv.ParseFloat(priceRaw, 64)
	if err != nil || math.IsNaN(price) || math.IsInf(price, 0) {
		return models.ItemFields{}, newValidationError(MsgInvalidNumber)
	}

	if quantity < 0 {
		return models.ItemFields{}, newValidationError(MsgNegativeQuantity)
	}
	if price < 0 {
		return models.ItemFields{}, newValidationError(MsgNegativePrice)
	}

	return models.ItemFields{
		Name:     name,
		Quantity: quantity,
		Price:    price,
		Category: category,
	}, nil
}
