package handlers

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/brewcrafter/internal/middleware"
	"github.com/example/brewcrafter/internal/models"
	"github.com/example/brewcrafter/internal/services"
	"github.com/example/brewcrafter/internal/utils"
)

// OrderHandler manages checkout and order history.
type OrderHandler struct {
	db       *gorm.DB
	telegram *services.TelegramService
}

// NewOrderHandler constructs OrderHandler.
func NewOrderHandler(db *gorm.DB, telegram *services.TelegramService) *OrderHandler {
	return &OrderHandler{db: db, telegram: telegram}
}

type checkoutRequest struct {
	Notes string `json:"notes"`
}

// stockConsumption is a pending inventory decrement produced by checkout.
type stockConsumption struct {
	itemID uuid.UUID
	amount float64
}

var errMixedCurrency = errors.New("cart mixes currencies, order one currency at a time")

// priceCartForCheckout prices every available cart item and builds the order
// line snapshots plus the ingredient consumption checkout will apply. Items
// whose drink was deactivated or removed are skipped. All priced items must
// share one currency.
func priceCartForCheckout(cart *models.Cart) ([]models.OrderItem, float64, string, []stockConsumption, error) {
	var (
		items        []models.OrderItem
		subtotal     float64
		currency     string
		consumptions []stockConsumption
	)

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
			return nil, 0, "", nil, fmt.Errorf("cart item %s is no longer valid: %w", item.ID, err)
		}

		if quote.Currency != "" {
			if currency == "" {
				currency = quote.Currency
			} else if currency != quote.Currency {
				return nil, 0, "", nil, errMixedCurrency
			}
		}

		productID := item.ProductID
		items = append(items, models.OrderItem{
			ProductID:     &productID,
			ProductName:   item.Product.Name,
			SizeLabel:     quote.SizeLabel,
			OptionSummary: quote.OptionSummary(),
			Quantity:      item.Quantity,
			UnitPrice:     quote.UnitPrice,
			LineTotal:     quote.LineTotal,
		})
		subtotal += quote.LineTotal

		for _, ing := range item.Product.Ingredients {
			consumptions = append(consumptions, stockConsumption{
				itemID: ing.InventoryItemID,
				amount: ing.AmountPerUnit * float64(item.Quantity),
			})
		}
	}

	if currency == "" {
		currency = "USD"
	}

	return items, subtotal, currency, consumptions, nil
}

// Checkout converts the user's cart into an order. Prices are derived server
// side from the menu; the cart is cleared once the order is created.
func (h *OrderHandler) Checkout(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req checkoutRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	var cart models.Cart
	if err := h.db.Preload("Items").
		Preload("Items.Options").
		Preload("Items.Product").
		Preload("Items.Product.Sizes").
		Preload("Items.Product.Options").
		Preload("Items.Product.Ingredients").
		Where("user_id = ?", userID).
		First(&cart).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusBadRequest, "cart is empty")
		}
		return err
	}

	items, subtotal, currency, consumptions, err := priceCartForCheckout(&cart)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	if len(items) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "cart is empty")
	}

	order := models.Order{
		UserID:      userID,
		OrderNumber: generateOrderNumber(),
		Status:      models.OrderStatusPending,
		PlacedAt:    time.Now(),
		Subtotal:    subtotal,
		TotalAmount: subtotal,
		Currency:    currency,
		Notes:       req.Notes,
		Items:       items,
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&order).Error; err != nil {
			return err
		}

		// Best-effort stock decrement; no reservation semantics.
		for _, con := range consumptions {
			if err := tx.Model(&models.InventoryItem{}).
				Where("id = ?", con.itemID).
				UpdateColumn("quantity_on_hand", gorm.Expr("quantity_on_hand - ?", con.amount)).Error; err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return err
	}

	if err := clearCartItems(h.db, cart.ID); err != nil {
		log.Printf("[Order] failed to clear cart %s: %v", cart.ID, err)
	}

	go h.notifyNewOrder(order, userID)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"id":           order.ID,
			"order_number": order.OrderNumber,
			"status":       order.Status,
			"placed_at":    order.PlacedAt,
			"total":        order.TotalAmount,
			"currency":     order.Currency,
		},
	})
}

func (h *OrderHandler) notifyNewOrder(order models.Order, userID uuid.UUID) {
	if h.telegram == nil {
		return
	}

	userName := "unknown"
	var user models.User
	if err := h.db.First(&user, "id = ?", userID).Error; err == nil {
		userName = user.Name
	}

	items := make([]services.OrderItemNotification, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, services.OrderItemNotification{
			Name:     item.ProductName,
			Size:     item.SizeLabel,
			Options:  item.OptionSummary,
			Quantity: item.Quantity,
			Price:    item.UnitPrice,
		})
	}

	notification := services.OrderNotification{
		OrderNumber: order.OrderNumber,
		Items:       items,
		TotalAmount: order.TotalAmount,
		Currency:    order.Currency,
		UserName:    userName,
		Notes:       order.Notes,
	}

	if err := h.telegram.NotifyNewOrder(notification); err != nil {
		log.Printf("[Order] Telegram notification failed: %v", err)
	}
}

// ListOrders returns orders for the authenticated user.
func (h *OrderHandler) ListOrders(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	pg := utils.ParsePagination(c)
	query := h.db.Where("user_id = ?", userID).Model(&models.Order{})

	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}

	var orders []models.Order
	if err := query.Preload("Items").
		Order("placed_at desc").
		Limit(pg.Limit).Offset(pg.Offset).
		Find(&orders).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    orders,
		"pagination": fiber.Map{
			"current_page":   pg.Page,
			"items_per_page": pg.Limit,
			"total_items":    total,
		},
	})
}

// GetOrder returns a single order for the authenticated user.
func (h *OrderHandler) GetOrder(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var order models.Order
	if err := h.db.Preload("Items").
		First(&order, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "order not found")
		}
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": order})
}

func generateOrderNumber() string {
	return fmt.Sprintf("#%d", time.Now().UnixNano()%1000000000)
}
