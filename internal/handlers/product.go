package handlers

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/brewcrafter/internal/models"
	"github.com/example/brewcrafter/internal/utils"
)

// ProductHandler manages the drink menu.
type ProductHandler struct {
	db *gorm.DB
}

// NewProductHandler constructs ProductHandler.
func NewProductHandler(db *gorm.DB) *ProductHandler {
	return &ProductHandler{db: db}
}

// ListProducts returns paginated drinks with optional filters.
func (h *ProductHandler) ListProducts(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)
	query := h.db.Model(&models.Product{})

	if v := c.Query("category_id"); v != "" {
		if id, err := uuid.Parse(v); err == nil {
			query = query.Where("category_id = ?", id)
		}
	}

	if search := strings.TrimSpace(c.Query("search")); search != "" {
		q := "%" + search + "%"
		query = query.Where("name ILIKE ? OR short_description ILIKE ?", q, q)
	}

	if minPrice := c.Query("min_price"); minPrice != "" {
		if val, err := strconv.ParseFloat(minPrice, 64); err == nil {
			query = query.Where("base_price >= ?", val)
		}
	}

	if maxPrice := c.Query("max_price"); maxPrice != "" {
		if val, err := strconv.ParseFloat(maxPrice, 64); err == nil {
			query = query.Where("base_price <= ?", val)
		}
	}

	if c.Query("active", "true") == "true" {
		query = query.Where("is_active = ?", true)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}

	var products []models.Product
	if err := query.Preload("Category").Preload("Sizes").
		Limit(pg.Limit).Offset(pg.Offset).
		Order("created_at desc").
		Find(&products).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    products,
		"pagination": fiber.Map{
			"current_page":   pg.Page,
			"items_per_page": pg.Limit,
			"total_items":    total,
		},
	})
}

// GetProduct loads a drink with its sizes and customization options.
func (h *ProductHandler) GetProduct(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var product models.Product
	if err := h.db.Preload("Category").
		Preload("Sizes").
		Preload("Options").
		Preload("Ingredients").
		Preload("Ingredients.InventoryItem").
		First(&product, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "product not found")
		}
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": product})
}

type sizeRequest struct {
	Label      string  `json:"label"`
	VolumeML   int     `json:"volume_ml"`
	PriceDelta float64 `json:"price_delta"`
	IsDefault  bool    `json:"is_default"`
	IsActive   bool    `json:"is_active"`
}

type optionRequest struct {
	OptionGroup  string  `json:"option_group"`
	Label        string  `json:"label"`
	PriceDelta   float64 `json:"price_delta"`
	IsDefault    bool    `json:"is_default"`
	IsActive     bool    `json:"is_active"`
	DisplayOrder int     `json:"display_order"`
}

type ingredientRequest struct {
	InventoryItemID string  `json:"inventory_item_id"`
	AmountPerUnit   float64 `json:"amount_per_unit"`
}

type productRequest struct {
	Slug             string              `json:"slug"`
	Name             string              `json:"name"`
	ShortDescription string              `json:"short_description"`
	LongDescription  string              `json:"long_description"`
	BasePrice        float64             `json:"base_price"`
	Currency         string              `json:"currency"`
	HeroImage        string              `json:"hero_image"`
	IsActive         bool                `json:"is_active"`
	CategoryID       string              `json:"category_id"`
	Sizes            []sizeRequest       `json:"sizes"`
	Options          []optionRequest     `json:"options"`
	Ingredients      []ingredientRequest `json:"ingredients"`
}

// CreateProduct adds a drink with its sizes, options, and ingredients.
func (h *ProductHandler) CreateProduct(c *fiber.Ctx) error {
	var req productRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.Slug == "" || req.Name == "" {
		return fiber.NewError(fiber.StatusBadRequest, "slug and name are required")
	}

	product := models.Product{
		Slug:             req.Slug,
		Name:             req.Name,
		ShortDescription: req.ShortDescription,
		LongDescription:  req.LongDescription,
		BasePrice:        req.BasePrice,
		Currency:         req.Currency,
		HeroImage:        req.HeroImage,
		IsActive:         req.IsActive,
	}

	if product.Currency == "" {
		product.Currency = "USD"
	}

	if req.CategoryID != "" {
		if id, err := uuid.Parse(req.CategoryID); err == nil {
			product.CategoryID = &id
		}
	}

	for _, s := range req.Sizes {
		product.Sizes = append(product.Sizes, models.DrinkSize{
			Label:      s.Label,
			VolumeML:   s.VolumeML,
			PriceDelta: s.PriceDelta,
			IsDefault:  s.IsDefault,
			IsActive:   s.IsActive,
		})
	}

	for _, o := range req.Options {
		product.Options = append(product.Options, models.CustomizationOption{
			OptionGroup:  o.OptionGroup,
			Label:        o.Label,
			PriceDelta:   o.PriceDelta,
			IsDefault:    o.IsDefault,
			IsActive:     o.IsActive,
			DisplayOrder: o.DisplayOrder,
		})
	}

	for _, ing := range req.Ingredients {
		itemID, err := uuid.Parse(ing.InventoryItemID)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid inventory_item_id")
		}
		product.Ingredients = append(product.Ingredients, models.ProductIngredient{
			InventoryItemID: itemID,
			AmountPerUnit:   ing.AmountPerUnit,
		})
	}

	if err := h.db.Create(&product).Error; err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": product})
}

// UpdateProduct replaces a drink's fields and nested collections.
func (h *ProductHandler) UpdateProduct(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var product models.Product
	if err := h.db.First(&product, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "product not found")
		}
		return err
	}

	var req productRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.Slug != "" {
		product.Slug = req.Slug
	}
	if req.Name != "" {
		product.Name = req.Name
	}
	product.ShortDescription = req.ShortDescription
	product.LongDescription = req.LongDescription
	product.BasePrice = req.BasePrice
	if req.Currency != "" {
		product.Currency = req.Currency
	}
	product.HeroImage = req.HeroImage
	product.IsActive = req.IsActive

	product.CategoryID = nil
	if req.CategoryID != "" {
		if cid, err := uuid.Parse(req.CategoryID); err == nil {
			product.CategoryID = &cid
		}
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&product).Error; err != nil {
			return err
		}

		if req.Sizes != nil {
			if err := tx.Delete(&models.DrinkSize{}, "product_id = ?", product.ID).Error; err != nil {
				return err
			}
			for _, s := range req.Sizes {
				size := models.DrinkSize{
					ProductID:  product.ID,
					Label:      s.Label,
					VolumeML:   s.VolumeML,
					PriceDelta: s.PriceDelta,
					IsDefault:  s.IsDefault,
					IsActive:   s.IsActive,
				}
				if err := tx.Create(&size).Error; err != nil {
					return err
				}
			}
		}

		if req.Options != nil {
			if err := tx.Delete(&models.CustomizationOption{}, "product_id = ?", product.ID).Error; err != nil {
				return err
			}
			for _, o := range req.Options {
				option := models.CustomizationOption{
					ProductID:    product.ID,
					OptionGroup:  o.OptionGroup,
					Label:        o.Label,
					PriceDelta:   o.PriceDelta,
					IsDefault:    o.IsDefault,
					IsActive:     o.IsActive,
					DisplayOrder: o.DisplayOrder,
				}
				if err := tx.Create(&option).Error; err != nil {
					return err
				}
			}
		}

		if req.Ingredients != nil {
			if err := tx.Delete(&models.ProductIngredient{}, "product_id = ?", product.ID).Error; err != nil {
				return err
			}
			for _, ing := range req.Ingredients {
				itemID, err := uuid.Parse(ing.InventoryItemID)
				if err != nil {
					return fiber.NewError(fiber.StatusBadRequest, "invalid inventory_item_id")
				}
				link := models.ProductIngredient{
					ProductID:       product.ID,
					InventoryItemID: itemID,
					AmountPerUnit:   ing.AmountPerUnit,
				}
				if err := tx.Create(&link).Error; err != nil {
					return err
				}
			}
		}

		return nil
	})
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": product})
}

// DeleteProduct removes a drink and its nested rows.
func (h *ProductHandler) DeleteProduct(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.DrinkSize{}, "product_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.CustomizationOption{}, "product_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.ProductIngredient{}, "product_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Product{}, "id = ?", id).Error
	})
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true})
}
