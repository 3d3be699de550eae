package mock

import (
	"context"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	applog "scullery/internal/log"
	"scullery/models"
)

// New returns an in-memory sqlite database seeded with representative
// pizzeria data.
func New(ctx context.Context) (*gorm.DB, error) {
	applog.Debug(ctx, "initialising mock database")

	database, err := gorm.Open(sqlite.Open("file:scullery-mock?mode=memory&cache=shared"), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		PrepareStmt:                              true,
		SkipDefaultTransaction:                   true,
		DisableForeignKeyConstraintWhenMigrating: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, err
	}

	if err := database.AutoMigrate(
		&models.Ingredient{},
		&models.Product{},
		&models.RecipeLine{},
	); err != nil {
		return nil, err
	}

	if err := Seed(ctx, database); err != nil {
		return nil, err
	}

	applog.Debug(ctx, "mock database ready")
	return database, nil
}

// Seed loads the pizzeria fixture: raw ingredients, a house-made sauce with
// a 128 oz batch recipe costing $21.00, a Cheese Pizza, and a Pepperoni
// Pizza built on top of the Cheese Pizza.
func Seed(ctx context.Context, database *gorm.DB) error {
	applog.Debug(ctx, "seeding mock database")

	pizzaBox := models.Ingredient{
		Code:           "pizza-box",
		Name:           "Pizza Box",
		Unit:           "ea",
		UnitCost:       0.45,
		QuantityOnHand: 200,
		ReorderLevel:   50,
	}
	mozzarella := models.Ingredient{
		Code:           "mozzarella",
		Name:           "Mozzarella",
		Unit:           "lb",
		UnitCost:       3.50,
		QuantityOnHand: 40,
		ReorderLevel:   10,
	}
	doughBall := models.Ingredient{
		Code:           "pizza-dough-ball",
		Name:           "Pizza Dough Ball",
		Unit:           "ea",
		UnitCost:       1.25,
		QuantityOnHand: 60,
		ReorderLevel:   20,
	}
	pepperoni := models.Ingredient{
		Code:           "pepperoni",
		Name:           "Pepperoni",
		Unit:           "lb",
		UnitCost:       4.80,
		QuantityOnHand: 25,
		ReorderLevel:   5,
	}
	tomatoPuree := models.Ingredient{
		Code:           "tomato-puree",
		Name:           "Tomato Puree",
		Unit:           "oz",
		UnitCost:       0.15,
		QuantityOnHand: 500,
		ReorderLevel:   100,
	}
	oliveOil := models.Ingredient{
		Code:           "olive-oil",
		Name:           "Olive Oil",
		Unit:           "oz",
		UnitCost:       0.45,
		QuantityOnHand: 120,
		ReorderLevel:   30,
	}
	spiceBlend := models.Ingredient{
		Code:           "sauce-spice-blend",
		Name:           "Sauce Spice Blend",
		Unit:           "oz",
		UnitCost:       0.125,
		QuantityOnHand: 80,
		ReorderLevel:   20,
	}
	// Batch recipe totals $21.00 for a 128 oz yield: $0.1640625/oz.
	pizzaSauce := models.Ingredient{
		Code:        "pizza-sauce",
		Name:        "Pizza Sauce",
		Unit:        "oz",
		IsComposite: true,
		BatchSize:   128,
	}

	ingredients := []*models.Ingredient{
		&pizzaBox, &mozzarella, &doughBall, &pepperoni,
		&tomatoPuree, &oliveOil, &spiceBlend, &pizzaSauce,
	}
	for _, ingredient := range ingredients {
		if err := database.WithContext(ctx).Create(ingredient).Error; err != nil {
			return err
		}
	}

	cheesePizza := models.Product{
		Name:         "Cheese Pizza",
		SellingPrice: 12.00,
		Unit:         "ea",
	}
	pepperoniPizza := models.Product{
		Name:         "Pepperoni Pizza",
		SellingPrice: 14.00,
		Unit:         "ea",
	}
	if err := database.WithContext(ctx).Create(&cheesePizza).Error; err != nil {
		return err
	}
	if err := database.WithContext(ctx).Create(&pepperoniPizza).Error; err != nil {
		return err
	}

	lines := []models.RecipeLine{
		{OwnerIngredientID: &pizzaSauce.ID, IngredientID: &tomatoPuree.ID, Quantity: 96, Unit: "oz", Position: 1},
		{OwnerIngredientID: &pizzaSauce.ID, IngredientID: &oliveOil.ID, Quantity: 8, Unit: "oz", Position: 2},
		{OwnerIngredientID: &pizzaSauce.ID, IngredientID: &spiceBlend.ID, Quantity: 24, Unit: "oz", Position: 3},

		{OwnerProductID: &cheesePizza.ID, IngredientID: &pizzaBox.ID, Quantity: 1, Unit: "ea", Position: 1},
		{OwnerProductID: &cheesePizza.ID, IngredientID: &mozzarella.ID, Quantity: 0.4, Unit: "lb", Position: 2},
		{OwnerProductID: &cheesePizza.ID, IngredientID: &doughBall.ID, Quantity: 1.5, Unit: "ea", Position: 3},
		{OwnerProductID: &cheesePizza.ID, IngredientID: &pizzaSauce.ID, Quantity: 6, Unit: "oz", Position: 4},

		{OwnerProductID: &pepperoniPizza.ID, SourceProductID: &cheesePizza.ID, Quantity: 1, Unit: "ea", Position: 1},
		{OwnerProductID: &pepperoniPizza.ID, IngredientID: &pepperoni.ID, Quantity: 0.25, Unit: "lb", Position: 2},
	}

	for _, line := range lines {
		lineCopy := line
		if err := database.WithContext(ctx).Create(&lineCopy).Error; err != nil {
			return err
		}
	}

	applog.Debug(ctx, "mock database seeded")
	return nil
}
