package recipe

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"scullery/models"
)

// SourceKind tags the two legal recipe-line sources.
type SourceKind uint8

const (
	SourceIngredient SourceKind = iota
	SourceProduct
)

// Source identifies what a recipe line draws from: an ingredient or a
// product. Every consumer switches on Kind; there is no string dispatch.
type Source struct {
	Kind SourceKind
	ID   uint
}

// Line is a validated recipe line with its source in tagged form.
type Line struct {
	Source   Source
	Quantity float64
	Unit     string
}

// Catalog is a read-only snapshot of the ingredient, product and recipe
// tables. Each sale batch loads a fresh snapshot so recipe edits are picked
// up between batches; within one batch the snapshot never changes, which
// keeps Resolve and Cost pure functions.
type Catalog struct {
	ingredients    map[uint]*models.Ingredient
	products       map[uint]*models.Product
	productsByName map[string]*models.Product
	productLines   map[uint][]Line
	batchLines     map[uint][]Line
}

// Load reads the full recipe dataset through the tenant-scoped database
// handle and returns an immutable snapshot. Rows that do not carry exactly
// one owner and exactly one source are rejected outright.
func Load(ctx context.Context, database *gorm.DB) (*Catalog, error) {
	if database == nil {
		return nil, gorm.ErrInvalidDB
	}

	var ingredients []models.Ingredient
	if err := database.WithContext(ctx).Find(&ingredients).Error; err != nil {
		return nil, fmt.Errorf("load ingredients: %w", err)
	}

	var products []models.Product
	if err := database.WithContext(ctx).Find(&products).Error; err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}

	var lines []models.RecipeLine
	if err := database.WithContext(ctx).
		Order("position asc, id asc").
		Find(&lines).Error; err != nil {
		return nil, fmt.Errorf("load recipe lines: %w", err)
	}

	catalog := &Catalog{
		ingredients:    make(map[uint]*models.Ingredient, len(ingredients)),
		products:       make(map[uint]*models.Product, len(products)),
		productsByName: make(map[string]*models.Product, len(products)),
		productLines:   make(map[uint][]Line),
		batchLines:     make(map[uint][]Line),
	}

	for idx := range ingredients {
		ingredient := &ingredients[idx]
		catalog.ingredients[ingredient.ID] = ingredient
	}

	for idx := range products {
		product := &products[idx]
		catalog.products[product.ID] = product
		normalized := NormalizeName(product.Name)
		if _, exists := catalog.productsByName[normalized]; !exists {
			catalog.productsByName[normalized] = product
		}
	}

	for _, line := range lines {
		if line.Quantity <= 0 {
			continue
		}

		parsed, err := parseLine(line)
		if err != nil {
			return nil, err
		}

		switch {
		case line.OwnerProductID != nil && line.OwnerIngredientID == nil:
			catalog.productLines[*line.OwnerProductID] = append(catalog.productLines[*line.OwnerProductID], parsed)
		case line.OwnerIngredientID != nil && line.OwnerProductID == nil:
			catalog.batchLines[*line.OwnerIngredientID] = append(catalog.batchLines[*line.OwnerIngredientID], parsed)
		default:
			return nil, fmt.Errorf("%w: line %d must have exactly one owner", ErrMalformedLine, line.ID)
		}
	}

	return catalog, nil
}

func parseLine(line models.RecipeLine) (Line, error) {
	hasIngredient := line.IngredientID != nil && *line.IngredientID != 0
	hasProduct := line.SourceProductID != nil && *line.SourceProductID != 0

	if hasIngredient == hasProduct {
		return Line{}, fmt.Errorf("%w: line %d must have exactly one source", ErrMalformedLine, line.ID)
	}

	parsed := Line{Quantity: line.Quantity, Unit: line.Unit}
	if hasIngredient {
		parsed.Source = Source{Kind: SourceIngredient, ID: *line.IngredientID}
	} else {
		parsed.Source = Source{Kind: SourceProduct, ID: *line.SourceProductID}
	}
	return parsed, nil
}

// NormalizeName lowers and trims a product name for case-insensitive exact
// matching. No fuzzy matching happens anywhere downstream.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Product returns the product with the given identifier.
func (c *Catalog) Product(id uint) (*models.Product, bool) {
	product, ok := c.products[id]
	return product, ok
}

// ProductByName matches a product by normalized name.
func (c *Catalog) ProductByName(name string) (*models.Product, bool) {
	product, ok := c.productsByName[NormalizeName(name)]
	return product, ok
}

// Ingredient returns the ingredient with the given identifier.
func (c *Catalog) Ingredient(id uint) (*models.Ingredient, bool) {
	ingredient, ok := c.ingredients[id]
	return ingredient, ok
}
