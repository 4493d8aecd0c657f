package models

import "github.com/google/uuid"

// Cart is the open cart for a user. One open cart per user; checkout clears it.
type Cart struct {
	BaseModel
	UserID uuid.UUID  `gorm:"type:uuid;uniqueIndex" json:"user_id"`
	Items  []CartItem `json:"items,omitempty"`
}

// CartItem is a drink configuration placed in a cart. Prices are never stored
// here; they are derived from the product on every read.
type CartItem struct {
	BaseModel
	CartID      uuid.UUID        `gorm:"type:uuid;index" json:"cart_id"`
	ProductID   uuid.UUID        `gorm:"type:uuid" json:"product_id"`
	Product     *Product         `json:"product,omitempty"`
	DrinkSizeID *uuid.UUID       `gorm:"type:uuid" json:"drink_size_id"`
	Quantity    int              `json:"quantity"`
	Note        string           `json:"note"`
	Options     []CartItemOption `json:"options,omitempty"`
}

// CartItemOption records a selected customization for a cart item.
type CartItemOption struct {
	BaseModel
	CartItemID            uuid.UUID `gorm:"type:uuid;index" json:"cart_item_id"`
	CustomizationOptionID uuid.UUID `gorm:"type:uuid" json:"customization_option_id"`
}
