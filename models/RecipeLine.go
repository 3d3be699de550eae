package models

import (
	"gorm.io/gorm"
)

// RecipeLine is one entry in a recipe. The owner is either a Product or a
// composite Ingredient (its batch recipe), and the source is either an
// Ingredient or another Product. Exactly one of each pair must be set; the
// handlers and the recipe catalog both reject ambiguous rows.
type RecipeLine struct {
	gorm.Model
	// --- Owner link ---
	OwnerProductID    *uint `json:"owner_product_id,omitempty"`
	OwnerIngredientID *uint `json:"owner_ingredient_id,omitempty"`

	Quantity float64 `gorm:"not null" json:"quantity"`
	Unit     string  `gorm:"not null" json:"unit"`
	Position int     `gorm:"not null;default:0" json:"position"`

	// --- Source link ---
	// One of these will be non-null, the other will be null.
	IngredientID    *uint `json:"ingredient_id,omitempty"`
	SourceProductID *uint `json:"source_product_id,omitempty"`

	// --- Preloadable data ---
	Ingredient    *Ingredient `gorm:"foreignKey:IngredientID" json:"ingredient,omitempty"`
	SourceProduct *Product    `gorm:"foreignKey:SourceProductID" json:"source_product,omitempty"`
}
