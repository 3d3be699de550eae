package recipe

import (
	"fmt"
	"sort"
)

// MaxProductDepth bounds how deep product-sourced recipe lines may nest below
// a top-level product. Composite-ingredient expansion does not consume depth
// but is cycle-checked on its own.
const MaxProductDepth = 2

// WarningKind classifies non-fatal resolution and costing findings.
type WarningKind string

const (
	WarnMissingPrice       WarningKind = "missing_ingredient_price"
	WarnMissingBatchRecipe WarningKind = "missing_batch_recipe"
)

// Warning surfaces a non-fatal finding alongside successful results.
type Warning struct {
	Kind         WarningKind `json:"kind"`
	IngredientID uint        `json:"ingredient_id"`
	Code         string      `json:"code"`
	Detail       string      `json:"detail"`
}

// Requirement is one flattened line of a resolved recipe: a raw ingredient
// and the quantity of it consumed per unit of the root product.
type Requirement struct {
	IngredientID uint
	Quantity     float64
}

// Resolved is the flattened requirement multiset for one unit of a product.
// Requirements are sorted by ingredient code, so resolving the same snapshot
// twice yields identical output.
type Resolved struct {
	ProductID    uint
	Requirements []Requirement
	Warnings     []Warning
}

// Resolve flattens the product's recipe graph into per-ingredient quantities
// for one unit of the product. Composite ingredients expand through their
// batch recipes scaled by quantity over batch size; quantities for an
// ingredient reached through several branches are summed. Cycles return a
// CycleError carrying the full walk, and product nesting beyond
// MaxProductDepth returns a DepthError.
func (c *Catalog) Resolve(productID uint) (Resolved, error) {
	r := newResolution(c)
	if err := r.product(productID, 1, 0, nil); err != nil {
		return Resolved{}, err
	}
	return Resolved{
		ProductID:    productID,
		Requirements: r.sorted(),
		Warnings:     r.warnings,
	}, nil
}

// resolution is the per-call walk state. Each Resolve builds its own, so
// concurrent resolutions of different products never share visited state.
type resolution struct {
	catalog        *Catalog
	totals         map[uint]float64
	productStack   map[uint]bool
	compositeStack map[uint]bool
	warnings       []Warning
	warned         map[warningKey]bool
}

type warningKey struct {
	kind WarningKind
	id   uint
}

func newResolution(catalog *Catalog) *resolution {
	return &resolution{
		catalog:        catalog,
		totals:         make(map[uint]float64),
		productStack:   make(map[uint]bool),
		compositeStack: make(map[uint]bool),
		warned:         make(map[warningKey]bool),
	}
}

func (r *resolution) product(id uint, factor float64, depth int, chain []string) error {
	product, ok := r.catalog.products[id]
	if !ok {
		return fmt.Errorf("%w: id %d", ErrUnknownProduct, id)
	}

	chain = append(chain, product.Name)
	if r.productStack[id] {
		return &CycleError{Chain: chain}
	}
	if depth > MaxProductDepth {
		return &DepthError{Chain: chain, Depth: depth}
	}

	r.productStack[id] = true
	for _, line := range r.catalog.productLines[id] {
		if err := r.line(line, factor, depth, chain); err != nil {
			return err
		}
	}
	r.productStack[id] = false
	return nil
}

func (r *resolution) line(line Line, factor float64, depth int, chain []string) error {
	quantity := line.Quantity * factor
	switch line.Source.Kind {
	case SourceProduct:
		return r.product(line.Source.ID, quantity, depth+1, chain)
	case SourceIngredient:
		return r.ingredient(line.Source.ID, quantity, depth, chain)
	}
	return fmt.Errorf("%w: unhandled source kind %d", ErrMalformedLine, line.Source.Kind)
}

func (r *resolution) ingredient(id uint, quantity float64, depth int, chain []string) error {
	ingredient, ok := r.catalog.ingredients[id]
	if !ok {
		return fmt.Errorf("%w: id %d", ErrUnknownIngredient, id)
	}

	if !ingredient.IsComposite {
		r.totals[id] += quantity
		return nil
	}

	lines := r.catalog.batchLines[id]
	if len(lines) == 0 || ingredient.BatchSize <= 0 {
		// Composite without a usable batch recipe degrades to a direct
		// ingredient so one bad row cannot halt resolution.
		r.warn(Warning{
			Kind:         WarnMissingBatchRecipe,
			IngredientID: id,
			Code:         ingredient.Code,
			Detail:       fmt.Sprintf("composite %q has no usable batch recipe; treated as a direct ingredient", ingredient.Name),
		})
		r.totals[id] += quantity
		return nil
	}

	chain = append(chain, ingredient.Name)
	if r.compositeStack[id] {
		return &CycleError{Chain: chain}
	}

	r.compositeStack[id] = true
	scale := quantity / ingredient.BatchSize
	for _, line := range lines {
		if err := r.line(line, scale, depth, chain); err != nil {
			return err
		}
	}
	r.compositeStack[id] = false
	return nil
}

func (r *resolution) warn(warning Warning) {
	key := warningKey{kind: warning.Kind, id: warning.IngredientID}
	if r.warned[key] {
		return
	}
	r.warned[key] = true
	r.warnings = append(r.warnings, warning)
}

func (r *resolution) sorted() []Requirement {
	requirements := make([]Requirement, 0, len(r.totals))
	for id, quantity := range r.totals {
		requirements = append(requirements, Requirement{IngredientID: id, Quantity: quantity})
	}
	sort.Slice(requirements, func(i, j int) bool {
		left, right := requirements[i], requirements[j]
		leftIng, okLeft := r.catalog.ingredients[left.IngredientID]
		rightIng, okRight := r.catalog.ingredients[right.IngredientID]
		if okLeft && okRight && leftIng.Code != rightIng.Code {
			return leftIng.Code < rightIng.Code
		}
		return left.IngredientID < right.IngredientID
	})
	return requirements
}
