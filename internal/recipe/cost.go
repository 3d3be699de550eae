package recipe

import (
	"fmt"
)

// CostResult carries a unit cost total plus any non-fatal findings surfaced
// while computing it. Totals accumulate in float64 and are never rounded
// here; rounding belongs at presentation boundaries.
type CostResult struct {
	Total    float64   `json:"total"`
	Warnings []Warning `json:"warnings,omitempty"`
}

// Cost computes the total ingredient cost of one unit of the product. An
// ingredient without a price contributes zero and surfaces a warning; menu
// costing never halts on one bad row. Graph failures from Resolve propagate
// unchanged.
func (c *Catalog) Cost(productID uint) (CostResult, error) {
	resolved, err := c.Resolve(productID)
	if err != nil {
		return CostResult{}, err
	}
	return c.CostRequirements(resolved), nil
}

// CompositeUnitCost derives a composite ingredient's effective unit cost:
// batch recipe cost divided by batch size. It is computed on demand because
// ingredient prices fluctuate; callers needing repeated lookups may memoize
// within one calculation pass but must not reuse results across passes.
func (c *Catalog) CompositeUnitCost(ingredientID uint) (CostResult, error) {
	ingredient, ok := c.ingredients[ingredientID]
	if !ok {
		return CostResult{}, fmt.Errorf("%w: id %d", ErrUnknownIngredient, ingredientID)
	}
	if !ingredient.IsComposite {
		return CostResult{}, fmt.Errorf("%w: ingredient %q is not composite", ErrUnknownIngredient, ingredient.Code)
	}

	lines := c.batchLines[ingredientID]
	if len(lines) == 0 || ingredient.BatchSize <= 0 {
		warning := Warning{
			Kind:         WarnMissingBatchRecipe,
			IngredientID: ingredientID,
			Code:         ingredient.Code,
			Detail:       fmt.Sprintf("composite %q has no usable batch recipe; using its stored unit cost", ingredient.Name),
		}
		return CostResult{Total: ingredient.UnitCost, Warnings: []Warning{warning}}, nil
	}

	r := newResolution(c)
	r.compositeStack[ingredientID] = true
	chain := []string{ingredient.Name}
	for _, line := range lines {
		if err := r.line(line, 1, 0, chain); err != nil {
			return CostResult{}, err
		}
	}

	costed := c.CostRequirements(Resolved{Requirements: r.sorted(), Warnings: r.warnings})
	costed.Total /= ingredient.BatchSize
	return costed, nil
}

// CostRequirements prices an already-resolved requirement set. Callers that
// hold a Resolved value (the sale engine does) avoid resolving twice.
func (c *Catalog) CostRequirements(resolved Resolved) CostResult {
	result := CostResult{Warnings: resolved.Warnings}
	warned := make(map[uint]bool)

	for _, requirement := range resolved.Requirements {
		ingredient, ok := c.ingredients[requirement.IngredientID]
		if !ok {
			continue
		}
		if ingredient.UnitCost <= 0 {
			if !warned[ingredient.ID] {
				warned[ingredient.ID] = true
				result.Warnings = append(result.Warnings, Warning{
					Kind:         WarnMissingPrice,
					IngredientID: ingredient.ID,
					Code:         ingredient.Code,
					Detail:       fmt.Sprintf("ingredient %q has no unit cost; treated as zero", ingredient.Name),
				})
			}
			continue
		}
		result.Total += requirement.Quantity * ingredient.UnitCost
	}

	return result
}
