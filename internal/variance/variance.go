// Package variance inspects post-deduction stock levels and flags anomalies.
// It is advisory only: it never blocks or reverses an applied transaction.
package variance

import (
	"fmt"
)

// Kind classifies a stock warning.
type Kind string

const (
	LowStock      Kind = "low_stock"
	NegativeStock Kind = "negative_stock"
)

// Stock is one ingredient's level at evaluation time.
type Stock struct {
	IngredientID uint
	Code         string
	Name         string
	Quantity     float64
	ReorderLevel float64
}

// Warning flags one ingredient at or below its reorder level, or below zero.
type Warning struct {
	IngredientID uint   `json:"ingredient_id"`
	Code         string `json:"code"`
	Kind         Kind   `json:"kind"`
	Detail       string `json:"detail"`
}

// Evaluate compares each stock level to its thresholds. Negative quantities
// report NegativeStock; non-negative quantities at or below the reorder
// level report LowStock.
func Evaluate(stocks []Stock) []Warning {
	var warnings []Warning
	for _, stock := range stocks {
		switch {
		case stock.Quantity < 0:
			warnings = append(warnings, Warning{
				IngredientID: stock.IngredientID,
				Code:         stock.Code,
				Kind:         NegativeStock,
				Detail:       fmt.Sprintf("%s is negative at %.4f", stock.Name, stock.Quantity),
			})
		case stock.Quantity <= stock.ReorderLevel:
			warnings = append(warnings, Warning{
				IngredientID: stock.IngredientID,
				Code:         stock.Code,
				Kind:         LowStock,
				Detail:       fmt.Sprintf("%s is at %.4f, reorder level %.4f", stock.Name, stock.Quantity, stock.ReorderLevel),
			})
		}
	}
	return warnings
}
