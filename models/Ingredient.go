package models

import (
	"gorm.io/gorm"
)

// Ingredient is a stocked item tracked by the inventory store. A composite
// ingredient is produced in-house from its own batch recipe; BatchSize is the
// yield of one batch expressed in Unit (e.g. 128 oz of sauce).
//
// QuantityOnHand is non-negative by convention only. Deductions may drive it
// below zero; that state is flagged by the variance reporter, never rejected
// by the store itself.
type Ingredient struct {
	gorm.Model
	Code           string       `gorm:"uniqueIndex;not null" json:"code"`
	Name           string       `gorm:"not null" json:"name"`
	Unit           string       `gorm:"not null;default:ea" json:"unit"`
	UnitCost       float64      `json:"unit_cost"`
	QuantityOnHand float64      `json:"quantity_on_hand"`
	ReorderLevel   float64      `json:"reorder_level"`
	IsComposite    bool         `gorm:"not null;default:false" json:"is_composite"`
	BatchSize      float64      `json:"batch_size"`
	BatchRecipe    []RecipeLine `gorm:"foreignKey:OwnerIngredientID" json:"batch_recipe,omitempty"`
}
