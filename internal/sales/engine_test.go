package sales

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"scullery/internal/db/mock"
	"scullery/internal/variance"
	"scullery/models"
)

func newSeededDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:" + strings.ReplaceAll(t.Name(), "/", "-") + "?mode=memory&cache=shared"
	database, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("open sqlite database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := database.DB(); err == nil {
			sqlDB.Close()
		}
	})

	if err := database.AutoMigrate(&models.Ingredient{}, &models.Product{}, &models.RecipeLine{}); err != nil {
		t.Fatalf("migrate schema: %v", err)
	}
	if err := mock.Seed(context.Background(), database); err != nil {
		t.Fatalf("seed database: %v", err)
	}
	return database
}

func onHand(t *testing.T, database *gorm.DB, code string) float64 {
	t.Helper()
	var ingredient models.Ingredient
	if err := database.Where("code = ?", code).First(&ingredient).Error; err != nil {
		t.Fatalf("query ingredient %q: %v", code, err)
	}
	return ingredient.QuantityOnHand
}

func deductionByCode(t *testing.T, deductions []Deduction, code string) Deduction {
	t.Helper()
	for _, deduction := range deductions {
		if deduction.Code == code {
			return deduction
		}
	}
	t.Fatalf("no deduction for %q in %v", code, deductions)
	return Deduction{}
}

type recordingSink struct {
	mu         sync.Mutex
	sales      []SaleEvent
	deductions []DeductionEvent
}

func (s *recordingSink) SaleApplied(_ context.Context, event SaleEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sales = append(s.sales, event)
}

func (s *recordingSink) DeductionPosted(_ context.Context, event DeductionEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deductions = append(s.deductions, event)
}

func TestPreviewConsolidatesDeductions(t *testing.T) {
	t.Parallel()

	database := newSeededDB(t)
	engine := NewEngine(database)

	lines := []SaleLine{
		{ProductName: "cheese pizza", Quantity: 10},
		{ProductName: "Club Sandwich", Quantity: 3},
	}
	preview, err := engine.Preview(context.Background(), lines, time.Now().UTC())
	if err != nil {
		t.Fatalf("Preview() error = %v", err)
	}

	if preview.Token == "" {
		t.Fatal("expected a preview token")
	}
	if len(preview.Matched) != 1 {
		t.Fatalf("matched = %d, want 1", len(preview.Matched))
	}
	if len(preview.Unmatched) != 1 || preview.Unmatched[0].ProductName != "Club Sandwich" {
		t.Fatalf("unmatched = %v, want the club sandwich line", preview.Unmatched)
	}

	want := map[string]float64{
		"mozzarella":        4,
		"olive-oil":         3.75,
		"pizza-box":         10,
		"pizza-dough-ball":  15,
		"sauce-spice-blend": 11.25,
		"tomato-puree":      45,
	}
	if len(preview.Deductions) != len(want) {
		t.Fatalf("deductions = %d, want %d: %v", len(preview.Deductions), len(want), preview.Deductions)
	}
	for code, quantity := range want {
		deduction := deductionByCode(t, preview.Deductions, code)
		if math.Abs(deduction.Quantity-quantity) > 1e-9 {
			t.Fatalf("deduction %q = %v, want %v", code, deduction.Quantity, quantity)
		}
		if math.Abs(deduction.Projected-(deduction.OnHand-quantity)) > 1e-9 {
			t.Fatalf("deduction %q projected %v with on hand %v", code, deduction.Projected, deduction.OnHand)
		}
	}

	// Deductions come back ordered by ingredient code.
	for i := 1; i < len(preview.Deductions); i++ {
		if preview.Deductions[i-1].Code > preview.Deductions[i].Code {
			t.Fatalf("deductions out of order: %q before %q", preview.Deductions[i-1].Code, preview.Deductions[i].Code)
		}
	}

	if math.Abs(preview.Revenue-120) > 1e-9 {
		t.Fatalf("revenue = %v, want 120", preview.Revenue)
	}
	if math.Abs(preview.Cost-47.09375) > 1e-9 {
		t.Fatalf("cost = %v, want 47.09375", preview.Cost)
	}
	if math.Abs(preview.Profit-(preview.Revenue-preview.Cost)) > 1e-9 {
		t.Fatalf("profit = %v, want revenue minus cost", preview.Profit)
	}

	// Preview never writes.
	if got := onHand(t, database, "mozzarella"); got != 40 {
		t.Fatalf("mozzarella on hand = %v after preview, want 40", got)
	}
}

func TestPreviewHonorsRetailPriceOverride(t *testing.T) {
	t.Parallel()

	database := newSeededDB(t)
	engine := NewEngine(database)

	override := 10.0
	preview, err := engine.Preview(context.Background(), []SaleLine{
		{ProductName: "Cheese Pizza", Quantity: 5, RetailPrice: &override},
	}, time.Now().UTC())
	if err != nil {
		t.Fatalf("Preview() error = %v", err)
	}

	if preview.Matched[0].UnitPrice != override {
		t.Fatalf("unit price = %v, want the override %v", preview.Matched[0].UnitPrice, override)
	}
	if math.Abs(preview.Revenue-50) > 1e-9 {
		t.Fatalf("revenue = %v, want 50", preview.Revenue)
	}
}

func TestPreviewRejectsNonPositiveQuantities(t *testing.T) {
	t.Parallel()

	database := newSeededDB(t)
	engine := NewEngine(database)

	preview, err := engine.Preview(context.Background(), []SaleLine{
		{ProductName: "Cheese Pizza", Quantity: 0},
		{ProductName: "Cheese Pizza", Quantity: -2},
	}, time.Now().UTC())
	if err != nil {
		t.Fatalf("Preview() error = %v", err)
	}

	if len(preview.Failed) != 2 {
		t.Fatalf("failed = %d, want 2", len(preview.Failed))
	}
	if len(preview.Matched) != 0 || len(preview.Deductions) != 0 {
		t.Fatalf("expected no matched lines or deductions, got %v / %v", preview.Matched, preview.Deductions)
	}
}

func TestPreviewIsolatesUnresolvableProducts(t *testing.T) {
	t.Parallel()

	database := newSeededDB(t)

	comboA := models.Product{Name: "Combo A", SellingPrice: 10}
	comboB := models.Product{Name: "Combo B", SellingPrice: 10}
	for _, product := range []*models.Product{&comboA, &comboB} {
		if err := database.Create(product).Error; err != nil {
			t.Fatalf("create product: %v", err)
		}
	}
	cycle := []models.RecipeLine{
		{OwnerProductID: &comboA.ID, SourceProductID: &comboB.ID, Quantity: 1, Position: 1},
		{OwnerProductID: &comboB.ID, SourceProductID: &comboA.ID, Quantity: 1, Position: 1},
	}
	for idx := range cycle {
		if err := database.Create(&cycle[idx]).Error; err != nil {
			t.Fatalf("create recipe line: %v", err)
		}
	}

	engine := NewEngine(database)
	preview, err := engine.Preview(context.Background(), []SaleLine{
		{ProductName: "Combo A", Quantity: 1},
		{ProductName: "Cheese Pizza", Quantity: 2},
	}, time.Now().UTC())
	if err != nil {
		t.Fatalf("Preview() error = %v", err)
	}

	if len(preview.Failed) != 1 {
		t.Fatalf("failed = %v, want just the cyclic combo", preview.Failed)
	}
	if !strings.Contains(preview.Failed[0].Reason, "cycle") {
		t.Fatalf("failure reason = %q, want a cycle report", preview.Failed[0].Reason)
	}
	if len(preview.Matched) != 1 || preview.Matched[0].ProductName != "Cheese Pizza" {
		t.Fatalf("matched = %v, want the cheese pizza to survive", preview.Matched)
	}
}

func TestApplyPostsDeductionsAndAuditEvents(t *testing.T) {
	t.Parallel()

	database := newSeededDB(t)
	sink := &recordingSink{}
	engine := NewEngine(database, WithAudit(sink))

	ctx := context.Background()
	preview, err := engine.Preview(ctx, []SaleLine{
		{ProductName: "Pepperoni Pizza", Quantity: 2},
	}, time.Now().UTC())
	if err != nil {
		t.Fatalf("Preview() error = %v", err)
	}

	result, err := engine.Apply(ctx, preview)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if !result.Applied {
		t.Fatal("expected result.Applied")
	}
	if len(result.Deductions) != 7 {
		t.Fatalf("deductions written = %d, want 7", len(result.Deductions))
	}

	// The nested cheese pizza recipe scales through to raw stock.
	checks := map[string]float64{
		"pepperoni":         24.5,
		"pizza-box":         198,
		"mozzarella":        39.2,
		"pizza-dough-ball":  57,
		"tomato-puree":      491,
		"olive-oil":         119.25,
		"sauce-spice-blend": 77.75,
	}
	for code, quantity := range checks {
		if got := onHand(t, database, code); math.Abs(got-quantity) > 1e-9 {
			t.Fatalf("%q on hand = %v, want %v", code, got, quantity)
		}
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.sales) != 1 {
		t.Fatalf("sale events = %d, want 1", len(sink.sales))
	}
	if sink.sales[0].PreviewToken != preview.Token {
		t.Fatalf("sale event token = %q, want %q", sink.sales[0].PreviewToken, preview.Token)
	}
	if len(sink.deductions) != 7 {
		t.Fatalf("deduction events = %d, want 7", len(sink.deductions))
	}
}

func TestApplyRollsBackOnWriteFailure(t *testing.T) {
	database := newSeededDB(t)
	engine := NewEngine(database)

	ctx := context.Background()
	preview, err := engine.Preview(ctx, []SaleLine{
		{ProductName: "Cheese Pizza", Quantity: 10},
	}, time.Now().UTC())
	if err != nil {
		t.Fatalf("Preview() error = %v", err)
	}

	before := make(map[string]float64)
	for _, deduction := range preview.Deductions {
		before[deduction.Code] = onHand(t, database, deduction.Code)
	}

	// Fail after every earlier deduction has been written.
	last := len(preview.Deductions) - 1
	applyWriteHook = func(index int, _ Deduction) error {
		if index == last {
			return fmt.Errorf("injected write failure")
		}
		return nil
	}
	t.Cleanup(func() { applyWriteHook = nil })

	_, err = engine.Apply(ctx, preview)
	if !errors.Is(err, ErrApplyFailed) {
		t.Fatalf("Apply() error = %v, want apply failure", err)
	}

	for code, quantity := range before {
		if got := onHand(t, database, code); got != quantity {
			t.Fatalf("%q on hand = %v after rollback, want %v", code, got, quantity)
		}
	}
}

func TestApplyEnforcesConfiguredFloor(t *testing.T) {
	t.Parallel()

	database := newSeededDB(t)
	engine := NewEngine(database, WithFloor(0))

	ctx := context.Background()
	preview, err := engine.Preview(ctx, []SaleLine{
		{ProductName: "Cheese Pizza", Quantity: 150},
	}, time.Now().UTC())
	if err != nil {
		t.Fatalf("Preview() error = %v", err)
	}

	// The preview itself only warns; the mozzarella projection is negative.
	var negative bool
	for _, warning := range preview.StockWarnings {
		if warning.Code == "mozzarella" && warning.Kind == variance.NegativeStock {
			negative = true
		}
	}
	if !negative {
		t.Fatalf("stock warnings = %v, want negative mozzarella", preview.StockWarnings)
	}

	_, err = engine.Apply(ctx, preview)
	if !errors.Is(err, ErrStaleInventory) {
		t.Fatalf("Apply() error = %v, want stale inventory", err)
	}

	var staleErr *StaleError
	if !errors.As(err, &staleErr) {
		t.Fatalf("expected *StaleError, got %T", err)
	}
	if staleErr.Code != "mozzarella" {
		t.Fatalf("StaleError.Code = %q, want mozzarella", staleErr.Code)
	}

	if got := onHand(t, database, "mozzarella"); got != 40 {
		t.Fatalf("mozzarella on hand = %v after rejected apply, want 40", got)
	}
}

func TestApplyWithoutFloorAllowsNegativeStock(t *testing.T) {
	t.Parallel()

	database := newSeededDB(t)
	engine := NewEngine(database)

	ctx := context.Background()
	preview, err := engine.Preview(ctx, []SaleLine{
		{ProductName: "Cheese Pizza", Quantity: 150},
	}, time.Now().UTC())
	if err != nil {
		t.Fatalf("Preview() error = %v", err)
	}

	result, err := engine.Apply(ctx, preview)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	if got := onHand(t, database, "mozzarella"); math.Abs(got-(-20)) > 1e-9 {
		t.Fatalf("mozzarella on hand = %v, want -20", got)
	}

	var flagged bool
	for _, warning := range result.Warnings {
		if warning.Code == "mozzarella" && warning.Kind == variance.NegativeStock {
			flagged = true
		}
	}
	if !flagged {
		t.Fatalf("warnings = %v, want negative mozzarella to be flagged", result.Warnings)
	}
}

func TestApplyEmptyPreviewSucceeds(t *testing.T) {
	t.Parallel()

	database := newSeededDB(t)
	engine := NewEngine(database)

	result, err := engine.Apply(context.Background(), &Preview{Token: "empty"})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if !result.Applied || len(result.Deductions) != 0 {
		t.Fatalf("result = %+v, want applied with no deductions", result)
	}
}

func TestReplenish(t *testing.T) {
	t.Parallel()

	database := newSeededDB(t)
	engine := NewEngine(database)
	ctx := context.Background()

	var mozzarella models.Ingredient
	if err := database.Where("code = ?", "mozzarella").First(&mozzarella).Error; err != nil {
		t.Fatalf("query mozzarella: %v", err)
	}

	updated, err := engine.Replenish(ctx, mozzarella.ID, 10)
	if err != nil {
		t.Fatalf("Replenish() error = %v", err)
	}
	if updated.QuantityOnHand != 50 {
		t.Fatalf("replenished quantity = %v, want 50", updated.QuantityOnHand)
	}
	if got := onHand(t, database, "mozzarella"); got != 50 {
		t.Fatalf("mozzarella on hand = %v, want 50", got)
	}

	if _, err := engine.Replenish(ctx, mozzarella.ID, 0); err == nil {
		t.Fatal("expected error for non-positive quantity")
	}
	if _, err := engine.Replenish(ctx, 9999, 5); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("Replenish(missing) error = %v, want record not found", err)
	}
}
