package models

// InventoryItem tracks stock for an ingredient or supply.
type InventoryItem struct {
	BaseModel
	Name           string  `json:"name"`
	Unit           string  `json:"unit"` // g|ml|pcs
	QuantityOnHand float64 `json:"quantity_on_hand"`
	ReorderLevel   float64 `json:"reorder_level"`
	IsActive       bool    `json:"is_active"`
}
