package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/brewcrafter/internal/middleware"
	"github.com/example/brewcrafter/internal/models"
	"github.com/example/brewcrafter/internal/services"
)

// CartHandler manages the authenticated user's cart.
type CartHandler struct {
	db *gorm.DB
}

// NewCartHandler constructs CartHandler.
func NewCartHandler(db *gorm.DB) *CartHandler {
	return &CartHandler{db: db}
}

// pricedCartItem is a cart item with its server-derived price.
type pricedCartItem struct {
	ID            uuid.UUID `json:"id"`
	ProductID     uuid.UUID `json:"product_id"`
	ProductName   string    `json:"product_name"`
	SizeLabel     string    `json:"size_label"`
	OptionSummary string    `json:"option_summary"`
	Quantity      int       `json:"quantity"`
	Note          string    `json:"note"`
	UnitPrice     float64   `json:"unit_price"`
	LineTotal     float64   `json:"line_total"`
	Currency      string    `json:"currency"`
}

func (h *CartHandler) loadCart(userID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	err := h.db.Preload("Items").
		Preload("Items.Options").
		Preload("Items.Product").
		Preload("Items.Product.Sizes").
		Preload("Items.Product.Options").
		Where("user_id = ?", userID).
		First(&cart).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			cart = models.Cart{UserID: userID}
			if err := h.db.Create(&cart).Error; err != nil {
				return nil, err
			}
			return &cart, nil
		}
		return nil, err
	}
	return &cart, nil
}

// priceItems derives a priced view of the cart. Items whose drink was
// deactivated or removed from the menu are skipped.
func priceItems(cart *models.Cart) ([]pricedCartItem, float64, string) {
	priced := make([]pricedCartItem, 0, len(cart.Items))
	var subtotal float64
	currency := "USD"

	for _, item := range cart.Items {
		if item.Product == nil || !item.Product.IsActive {
			continue
		}

		optionIDs := make([]uuid.UUID, 0, len(item.Options))
		for _, o := range item.Options {
			optionIDs = append(optionIDs, o.CustomizationOptionID)
		}

		quote, err := services.PriceDrink(item.Product, item.DrinkSizeID, optionIDs, item.Quantity)
		if err != nil {
			continue
		}

		priced = append(priced, pricedCartItem{
			ID:            item.ID,
			ProductID:     item.ProductID,
			ProductName:   item.Product.Name,
			SizeLabel:     quote.SizeLabel,
			OptionSummary: quote.OptionSummary(),
			Quantity:      item.Quantity,
			Note:          item.Note,
			UnitPrice:     quote.UnitPrice,
			LineTotal:     quote.LineTotal,
			Currency:      quote.Currency,
		})
		subtotal += quote.LineTotal
		if quote.Currency != "" {
			currency = quote.Currency
		}
	}

	return priced, subtotal, currency
}

// GetCart returns the user's cart with derived totals.
func (h *CartHandler) GetCart(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	cart, err := h.loadCart(userID)
	if err != nil {
		return err
	}

	items, subtotal, currency := priceItems(cart)

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"id":       cart.ID,
			"items":    items,
			"subtotal": subtotal,
			"currency": currency,
		},
	})
}

type addCartItemRequest struct {
	ProductID   string   `json:"product_id"`
	DrinkSizeID string   `json:"drink_size_id"`
	OptionIDs   []string `json:"option_ids"`
	Quantity    int      `json:"quantity"`
	Note        string   `json:"note"`
}

// AddItem validates a drink configuration against the menu and adds it to the cart.
func (h *CartHandler) AddItem(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req addCartItemRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid product_id")
	}

	if req.Quantity <= 0 {
		req.Quantity = 1
	}

	var product models.Product
	if err := h.db.Preload("Sizes").Preload("Options").
		First(&product, "id = ? AND is_active = ?", productID, true).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "product not found")
		}
		return err
	}

	var sizeID *uuid.UUID
	if req.DrinkSizeID != "" {
		id, err := uuid.Parse(req.DrinkSizeID)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid drink_size_id")
		}
		sizeID = &id
	}

	optionIDs := make([]uuid.UUID, 0, len(req.OptionIDs))
	for _, raw := range req.OptionIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid option id")
		}
		optionIDs = append(optionIDs, id)
	}

	// Validate the configuration up front so the cart never holds a drink
	// that cannot be priced.
	if _, err := services.PriceDrink(&product, sizeID, optionIDs, req.Quantity); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	cart, err := h.loadCart(userID)
	if err != nil {
		return err
	}

	item := models.CartItem{
		CartID:      cart.ID,
		ProductID:   productID,
		DrinkSizeID: sizeID,
		Quantity:    req.Quantity,
		Note:        req.Note,
	}
	for _, id := range optionIDs {
		item.Options = append(item.Options, models.CartItemOption{CustomizationOptionID: id})
	}

	if err := h.db.Create(&item).Error; err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": fiber.Map{"id": item.ID}})
}

type updateCartItemRequest struct {
	Quantity int    `json:"quantity"`
	Note     string `json:"note"`
}

// UpdateItem changes quantity or note of a cart item.
func (h *CartHandler) UpdateItem(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	itemID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var req updateCartItemRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.Quantity <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "quantity must be positive")
	}

	cart, err := h.loadCart(userID)
	if err != nil {
		return err
	}

	result := h.db.Model(&models.CartItem{}).
		Where("id = ? AND cart_id = ?", itemID, cart.ID).
		Updates(map[string]any{"quantity": req.Quantity, "note": req.Note})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fiber.NewError(fiber.StatusNotFound, "cart item not found")
	}

	return c.JSON(fiber.Map{"success": true})
}

// RemoveItem deletes one item from the cart.
func (h *CartHandler) RemoveItem(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	itemID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	cart, err := h.loadCart(userID)
	if err != nil {
		return err
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.CartItemOption{}, "cart_item_id = ?", itemID).Error; err != nil {
			return err
		}
		return tx.Delete(&models.CartItem{}, "id = ? AND cart_id = ?", itemID, cart.ID).Error
	})
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true})
}

// ClearCart removes every item from the cart.
func (h *CartHandler) ClearCart(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	cart, err := h.loadCart(userID)
	if err != nil {
		return err
	}

	if err := clearCartItems(h.db, cart.ID); err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true})
}

// clearCartItems deletes all items and their options for a cart.
func clearCartItems(db *gorm.DB, cartID uuid.UUID) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var itemIDs []uuid.UUID
		if err := tx.Model(&models.CartItem{}).
			Where("cart_id = ?", cartID).
			Pluck("id", &itemIDs).Error; err != nil {
			return err
		}
		if len(itemIDs) == 0 {
			return nil
		}
		if err := tx.Delete(&models.CartItemOption{}, "cart_item_id IN ?", itemIDs).Error; err != nil {
			return err
		}
		return tx.Delete(&models.CartItem{}, "cart_id = ?", cartID).Error
	})
}
