package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/example/brewcrafter/internal/models"
)

// Pricing errors returned when a drink configuration does not match the menu.
var (
	ErrUnknownSize   = errors.New("size does not belong to this drink")
	ErrUnknownOption = errors.New("option does not belong to this drink")
	ErrBadQuantity   = errors.New("quantity must be positive")
)

// Quote is a server-derived price for one configured drink.
type Quote struct {
	SizeLabel    string
	OptionLabels []string
	UnitPrice    float64
	LineTotal    float64
	Currency     string
}

// OptionSummary joins the selected option labels for order snapshots.
func (q Quote) OptionSummary() string {
	return strings.Join(q.OptionLabels, ", ")
}

// PriceDrink derives the price of a configured drink. The unit price is the
// product base price plus the selected size delta plus the deltas of every
// selected customization. Client-submitted prices are never trusted.
func PriceDrink(product *models.Product, sizeID *uuid.UUID, optionIDs []uuid.UUID, quantity int) (Quote, error) {
	if quantity <= 0 {
		return Quote{}, ErrBadQuantity
	}

	quote := Quote{
		UnitPrice: product.BasePrice,
		Currency:  product.Currency,
	}

	if sizeID != nil {
		size, ok := findSize(product.Sizes, *sizeID)
		if !ok {
			return Quote{}, fmt.Errorf("%w: %s", ErrUnknownSize, sizeID)
		}
		quote.SizeLabel = size.Label
		quote.UnitPrice += size.PriceDelta
	}

	for _, optionID := range optionIDs {
		option, ok := findOption(product.Options, optionID)
		if !ok {
			return Quote{}, fmt.Errorf("%w: %s", ErrUnknownOption, optionID)
		}
		quote.OptionLabels = append(quote.OptionLabels, option.Label)
		quote.UnitPrice += option.PriceDelta
	}

	quote.LineTotal = quote.UnitPrice * float64(quantity)
	return quote, nil
}

func findSize(sizes []models.DrinkSize, id uuid.UUID) (models.DrinkSize, bool) {
	for _, size := range sizes {
		if size.ID == id && size.IsActive {
			return size, true
		}
	}
	return models.DrinkSize{}, false
}

func findOption(options []models.CustomizationOption, id uuid.UUID) (models.CustomizationOption, bool) {
	for _, option := range options {
		if option.ID == id && option.IsActive {
			return option, true
		}
	}
	return models.CustomizationOption{}, false
}
