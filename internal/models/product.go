package models

import "github.com/google/uuid"

// Product is a drink on the menu. The customer-facing price is derived:
// base price + selected size delta + the deltas of any customizations.
type Product struct {
	BaseModel
	Slug             string     `gorm:"uniqueIndex" json:"slug"`
	Name             string     `json:"name"`
	ShortDescription string     `json:"short_description"`
	LongDescription  string     `json:"long_description"`
	BasePrice        float64    `json:"base_price"`
	Currency         string     `json:"currency"`
	HeroImage        string     `json:"hero_image"`
	IsActive         bool       `json:"is_active"`
	CategoryID       *uuid.UUID `gorm:"type:uuid" json:"category_id"`
	Category         *Category  `json:"category,omitempty"`

	Sizes       []DrinkSize           `json:"sizes,omitempty"`
	Options     []CustomizationOption `json:"options,omitempty"`
	Ingredients []ProductIngredient   `json:"ingredients,omitempty"`
}

// DrinkSize is a cup size for a drink with its price delta over the base price.
type DrinkSize struct {
	BaseModel
	ProductID  uuid.UUID `gorm:"type:uuid;index" json:"product_id"`
	Label      string    `json:"label"` // small|medium|large
	VolumeML   int       `json:"volume_ml"`
	PriceDelta float64   `json:"price_delta"`
	IsDefault  bool      `json:"is_default"`
	IsActive   bool      `json:"is_active"`
}

// CustomizationOption is an add-on a customer can select when building a
// drink (milk swap, syrup, extra shot, topping). Grouped by OptionGroup.
type CustomizationOption struct {
	BaseModel
	ProductID    uuid.UUID `gorm:"type:uuid;index" json:"product_id"`
	OptionGroup  string    `json:"option_group"` // milk|syrup|shot|topping
	Label        string    `json:"label"`
	PriceDelta   float64   `json:"price_delta"`
	IsDefault    bool      `json:"is_default"`
	IsActive     bool      `json:"is_active"`
	DisplayOrder int       `json:"display_order"`
}

// ProductIngredient links a drink to the inventory items one unit consumes.
type ProductIngredient struct {
	BaseModel
	ProductID       uuid.UUID      `gorm:"type:uuid;index" json:"product_id"`
	InventoryItemID uuid.UUID      `gorm:"type:uuid;index" json:"inventory_item_id"`
	InventoryItem   *InventoryItem `json:"inventory_item,omitempty"`
	AmountPerUnit   float64        `json:"amount_per_unit"`
}
