package models

import (
	"gorm.io/gorm"
)

// Product is a sellable menu item defined by its recipe lines. Line order is
// kept for display only; it has no effect on costing or deductions.
type Product struct {
	gorm.Model
	Name         string       `gorm:"uniqueIndex;not null" json:"name"`
	SellingPrice float64      `json:"selling_price"`
	Unit         string       `gorm:"not null;default:ea" json:"unit"`
	RecipeLines  []RecipeLine `gorm:"foreignKey:OwnerProductID" json:"recipe_lines,omitempty"`
}
