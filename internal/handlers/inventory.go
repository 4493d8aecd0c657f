package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/brewcrafter/internal/models"
	"github.com/example/brewcrafter/internal/utils"
)

// InventoryHandler manages stock for ingredients and supplies.
type InventoryHandler struct {
	db *gorm.DB
}

// NewInventoryHandler constructs InventoryHandler.
func NewInventoryHandler(db *gorm.DB) *InventoryHandler {
	return &InventoryHandler{db: db}
}

// ListItems returns paginated inventory items, optionally only low stock.
func (h *InventoryHandler) ListItems(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)
	query := h.db.Model(&models.InventoryItem{})

	if c.Query("low_stock") == "true" {
		query = query.Where("quantity_on_hand <= reorder_level")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}

	var items []models.InventoryItem
	if err := query.Order("name asc").
		Limit(pg.Limit).Offset(pg.Offset).
		Find(&items).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    items,
		"pagination": fiber.Map{
			"current_page":   pg.Page,
			"items_per_page": pg.Limit,
			"total_items":    total,
		},
	})
}

type createInventoryItemRequest struct {
	Name           string  `json:"name"`
	Unit           string  `json:"unit"`
	QuantityOnHand float64 `json:"quantity_on_hand"`
	ReorderLevel   float64 `json:"reorder_level"`
	IsActive       bool    `json:"is_active"`
}

// CreateItem adds an inventory item.
func (h *InventoryHandler) CreateItem(c *fiber.Ctx) error {
	var req createInventoryItemRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.Name == "" {
		return fiber.NewError(fiber.StatusBadRequest, "name is required")
	}

	item := models.InventoryItem{
		Name:           req.Name,
		Unit:           req.Unit,
		QuantityOnHand: req.QuantityOnHand,
		ReorderLevel:   req.ReorderLevel,
		IsActive:       req.IsActive,
	}

	if err := h.db.Create(&item).Error; err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": item})
}

type updateInventoryItemRequest struct {
	Name           *string  `json:"name"`
	Unit           *string  `json:"unit"`
	QuantityOnHand *float64 `json:"quantity_on_hand"`
	ReorderLevel   *float64 `json:"reorder_level"`
	IsActive       *bool    `json:"is_active"`
}

// applyInventoryUpdate merges submitted fields onto the item. Omitted fields
// keep their stored values.
func applyInventoryUpdate(item *models.InventoryItem, req updateInventoryItemRequest) {
	if req.Name != nil && *req.Name != "" {
		item.Name = *req.Name
	}
	if req.Unit != nil && *req.Unit != "" {
		item.Unit = *req.Unit
	}
	if req.QuantityOnHand != nil {
		item.QuantityOnHand = *req.QuantityOnHand
	}
	if req.ReorderLevel != nil {
		item.ReorderLevel = *req.ReorderLevel
	}
	if req.IsActive != nil {
		item.IsActive = *req.IsActive
	}
}

// UpdateItem modifies an inventory item.
func (h *InventoryHandler) UpdateItem(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var item models.InventoryItem
	if err := h.db.First(&item, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "inventory item not found")
		}
		return err
	}

	var req updateInventoryItemRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	applyInventoryUpdate(&item, req)

	if err := h.db.Save(&item).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": item})
}

type adjustQuantityRequest struct {
	Delta float64 `json:"delta"`
}

// AdjustQuantity applies a relative stock adjustment (delivery or wastage).
func (h *InventoryHandler) AdjustQuantity(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var req adjustQuantityRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	result := h.db.Model(&models.InventoryItem{}).
		Where("id = ?", id).
		UpdateColumn("quantity_on_hand", gorm.Expr("quantity_on_hand + ?", req.Delta))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fiber.NewError(fiber.StatusNotFound, "inventory item not found")
	}

	var item models.InventoryItem
	if err := h.db.First(&item, "id = ?", id).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": item})
}

// DeleteItem removes an inventory item.
func (h *InventoryHandler) DeleteItem(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	if err := h.db.Delete(&models.InventoryItem{}, "id = ?", id).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true})
}
