package models

// Category groups drinks on the menu (espresso, brew, tea, seasonal).
type Category struct {
	BaseModel
	Name         string    `json:"name"`
	Slug         string    `gorm:"uniqueIndex" json:"slug"`
	Description  string    `json:"description"`
	CardImage    string    `json:"card_image"`
	DisplayOrder int       `json:"display_order"`
	Products     []Product `json:"products,omitempty"`
}
