package models

import (
	"time"

	"github.com/google/uuid"
)

// Order statuses as they move through the counter workflow.
const (
	OrderStatusPending   = "pending"
	OrderStatusPreparing = "preparing"
	OrderStatusReady     = "ready"
	OrderStatusCompleted = "completed"
	OrderStatusCancelled = "cancelled"
)

type Order struct {
	BaseModel
	UserID      uuid.UUID   `gorm:"type:uuid;index" json:"user_id"`
	User        *User       `json:"user,omitempty"`
	OrderNumber string      `gorm:"uniqueIndex" json:"order_number"`
	Status      string      `json:"status"`
	PlacedAt    time.Time   `json:"placed_at"`
	Subtotal    float64     `json:"subtotal"`
	TotalAmount float64     `json:"total_amount"`
	Currency    string      `json:"currency"`
	Notes       string      `json:"notes"`
	Items       []OrderItem `json:"items,omitempty"`
}

// OrderItem snapshots a priced drink at checkout time, so later menu edits
// never change what a past order reads as.
type OrderItem struct {
	BaseModel
	OrderID       uuid.UUID  `gorm:"type:uuid;index" json:"order_id"`
	ProductID     *uuid.UUID `gorm:"type:uuid" json:"product_id"`
	ProductName   string     `json:"product_name"`
	SizeLabel     string     `json:"size_label"`
	OptionSummary string     `json:"option_summary"`
	Quantity      int        `json:"quantity"`
	UnitPrice     float64    `json:"unit_price"`
	LineTotal     float64    `json:"line_total"`
}
