package handlers

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/example/brewcrafter/internal/models"
	"github.com/example/brewcrafter/internal/services"
)

func checkoutProduct(name, currency string, basePrice float64) *models.Product {
	return &models.Product{
		BaseModel: models.BaseModel{ID: uuid.New()},
		Name:      name,
		BasePrice: basePrice,
		Currency:  currency,
		IsActive:  true,
	}
}

func cartWith(items ...models.CartItem) *models.Cart {
	return &models.Cart{BaseModel: models.BaseModel{ID: uuid.New()}, Items: items}
}

func TestPriceCartForCheckoutSnapshots(t *testing.T) {
	latte := checkoutProduct("Latte", "USD", 4.50)
	beanID := uuid.New()
	latte.Ingredients = []models.ProductIngredient{
		{InventoryItemID: beanID, AmountPerUnit: 18},
	}

	cart := cartWith(models.CartItem{
		BaseModel: models.BaseModel{ID: uuid.New()},
		ProductID: latte.ID,
		Product:   latte,
		Quantity:  2,
	})

	items, subtotal, currency, consumptions, err := priceCartForCheckout(cart)
	if err != nil {
		t.Fatalf("priceCartForCheckout: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("items = %d, want 1", len(items))
	}
	if items[0].ProductName != "Latte" || items[0].Quantity != 2 {
		t.Fatalf("snapshot = %+v", items[0])
	}
	if items[0].UnitPrice != 4.50 || items[0].LineTotal != 9.00 {
		t.Fatalf("unit=%v total=%v", items[0].UnitPrice, items[0].LineTotal)
	}
	if subtotal != 9.00 || currency != "USD" {
		t.Fatalf("subtotal=%v currency=%q", subtotal, currency)
	}
	if len(consumptions) != 1 || consumptions[0].itemID != beanID || consumptions[0].amount != 36 {
		t.Fatalf("consumptions = %+v", consumptions)
	}
}

func TestPriceCartForCheckoutSkipsUnavailableDrinks(t *testing.T) {
	retired := checkoutProduct("Pumpkin Spice", "USD", 5.00)
	retired.IsActive = false

	cart := cartWith(
		models.CartItem{ProductID: retired.ID, Product: retired, Quantity: 1},
		models.CartItem{ProductID: uuid.New(), Product: nil, Quantity: 1},
	)

	items, subtotal, _, _, err := priceCartForCheckout(cart)
	if err != nil {
		t.Fatalf("priceCartForCheckout: %v", err)
	}
	if len(items) != 0 || subtotal != 0 {
		t.Fatalf("unavailable drinks must be skipped, got %d items subtotal %v", len(items), subtotal)
	}
}

func TestPriceCartForCheckoutRejectsMixedCurrencies(t *testing.T) {
	latte := checkoutProduct("Latte", "USD", 4.50)
	flat := checkoutProduct("Flat White", "EUR", 4.00)

	cart := cartWith(
		models.CartItem{ProductID: latte.ID, Product: latte, Quantity: 1},
		models.CartItem{ProductID: flat.ID, Product: flat, Quantity: 1},
	)

	if _, _, _, _, err := priceCartForCheckout(cart); !errors.Is(err, errMixedCurrency) {
		t.Fatalf("expected errMixedCurrency, got %v", err)
	}
}

func TestPriceCartForCheckoutRejectsStaleConfiguration(t *testing.T) {
	latte := checkoutProduct("Latte", "USD", 4.50)
	goneSize := uuid.New()

	cart := cartWith(models.CartItem{
		BaseModel:   models.BaseModel{ID: uuid.New()},
		ProductID:   latte.ID,
		Product:     latte,
		DrinkSizeID: &goneSize,
		Quantity:    1,
	})

	if _, _, _, _, err := priceCartForCheckout(cart); !errors.Is(err, services.ErrUnknownSize) {
		t.Fatalf("expected ErrUnknownSize, got %v", err)
	}
}

func TestPriceCartForCheckoutDefaultsCurrency(t *testing.T) {
	house := checkoutProduct("House Brew", "", 3.00)

	cart := cartWith(models.CartItem{ProductID: house.ID, Product: house, Quantity: 1})

	_, _, currency, _, err := priceCartForCheckout(cart)
	if err != nil {
		t.Fatalf("priceCartForCheckout: %v", err)
	}
	if currency != "USD" {
		t.Fatalf("currency = %q, want USD fallback", currency)
	}
}
