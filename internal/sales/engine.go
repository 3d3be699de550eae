package sales

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	applog "scullery/internal/log"
	"scullery/internal/metrics"
	"scullery/internal/recipe"
	"scullery/internal/variance"
	"scullery/models"
)

var (
	// ErrApplyFailed marks a write-layer failure during Apply. The whole
	// batch rolls back; no partial deduction is ever persisted.
	ErrApplyFailed = errors.New("sales: apply failed")

	// ErrStaleInventory marks an apply-time divergence from the previewed
	// stock that would breach the configured floor. The caller must
	// re-preview.
	ErrStaleInventory = errors.New("sales: stale inventory state")
)

// applyWriteHook lets tests inject a write failure mid-batch to exercise the
// rollback path.
var applyWriteHook func(index int, deduction Deduction) error

// StaleError reports which ingredient diverged and by how much.
type StaleError struct {
	Code      string
	Projected float64
	Floor     float64
}

func (e *StaleError) Error() string {
	return fmt.Sprintf("sales: stale inventory state: ingredient %q would reach %.4f, below floor %.4f",
		e.Code, e.Projected, e.Floor)
}

func (e *StaleError) Is(target error) bool {
	return target == ErrStaleInventory
}

// SaleLine is one row of the sale-record shape consumed by Preview. Absent
// retail price falls back to the product's selling price; absent time falls
// back to the caller-supplied default.
type SaleLine struct {
	ProductName string     `json:"product_name"`
	Quantity    float64    `json:"quantity"`
	RetailPrice *float64   `json:"retail_price,omitempty"`
	Time        *time.Time `json:"time,omitempty"`
}

// MatchedLine is a sale line resolved against the catalog.
type MatchedLine struct {
	ProductID   uint      `json:"product_id"`
	ProductName string    `json:"product_name"`
	Quantity    float64   `json:"quantity"`
	UnitPrice   float64   `json:"unit_price"`
	Revenue     float64   `json:"revenue"`
	UnitCost    float64   `json:"unit_cost"`
	Cost        float64   `json:"cost"`
	SoldAt      time.Time `json:"sold_at"`
}

// FailedLine is a sale line whose product matched but whose recipe graph
// could not be resolved. Failures are per-product; the rest of the batch
// proceeds.
type FailedLine struct {
	Line   SaleLine `json:"line"`
	Reason string   `json:"reason"`
}

// Deduction is one pending stock subtraction. Projected is the on-hand
// quantity the preview expects after applying.
type Deduction struct {
	IngredientID uint    `json:"ingredient_id"`
	Code         string  `json:"code"`
	Name         string  `json:"name"`
	Unit         string  `json:"unit"`
	Quantity     float64 `json:"quantity"`
	OnHand       float64 `json:"on_hand"`
	Projected    float64 `json:"projected"`
	ReorderLevel float64 `json:"reorder_level"`
}

// Preview is the computed-but-uncommitted result of a sale batch: the unit
// of apply-or-discard. It performs no writes, so discarding it has no side
// effects.
type Preview struct {
	Token         string             `json:"token"`
	CreatedAt     time.Time          `json:"created_at"`
	Matched       []MatchedLine      `json:"matched"`
	Unmatched     []SaleLine         `json:"unmatched"`
	Failed        []FailedLine       `json:"failed,omitempty"`
	Deductions    []Deduction        `json:"deductions"`
	Revenue       float64            `json:"revenue"`
	Cost          float64            `json:"cost"`
	Profit        float64            `json:"profit"`
	CostWarnings  []recipe.Warning   `json:"cost_warnings,omitempty"`
	StockWarnings []variance.Warning `json:"stock_warnings,omitempty"`
}

// ApplyResult reports the outcome of posting a preview's deductions.
type ApplyResult struct {
	Applied    bool               `json:"applied"`
	Deductions []Deduction        `json:"deductions_written"`
	Warnings   []variance.Warning `json:"warnings,omitempty"`
}

// Engine previews and applies sale batches against a tenant-scoped database
// handle. Preview never writes; Apply posts every deduction in one atomic
// transaction or none at all.
type Engine struct {
	db    *gorm.DB
	locks *lockTable
	audit AuditSink
	floor *float64
	now   func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithAudit installs the audit sink notified after successful applies.
func WithAudit(sink AuditSink) Option {
	return func(e *Engine) {
		if sink != nil {
			e.audit = sink
		}
	}
}

// WithFloor sets a hard on-hand floor enforced at apply time. Without it
// negative stock is allowed and flagged, never blocked.
func WithFloor(floor float64) Option {
	return func(e *Engine) {
		value := floor
		e.floor = &value
	}
}

// WithClock overrides the engine clock.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine builds an Engine over the provided database handle.
func NewEngine(database *gorm.DB, opts ...Option) *Engine {
	engine := &Engine{
		db:    database,
		locks: newLockTable(),
		audit: LogSink{},
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(engine)
	}
	return engine
}

// Preview resolves a batch of sale lines into consolidated deductions
// and revenue/cost/profit aggregates. Unmatched products and per-product
// graph failures are collected, not fatal; the preview itself always
// succeeds structurally unless the catalog cannot be loaded.
func (e *Engine) Preview(ctx context.Context, lines []SaleLine, defaultTime time.Time) (*Preview, error) {
	catalog, err := recipe.Load(ctx, e.db)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	preview := &Preview{
		Token:     uuid.NewString(),
		CreatedAt: e.now(),
		Matched:   make([]MatchedLine, 0, len(lines)),
		Unmatched: []SaleLine{},
	}
	if defaultTime.IsZero() {
		defaultTime = preview.CreatedAt
	}

	// Memoized per preview pass only; a later batch reloads the catalog and
	// recomputes, so price edits are never served stale.
	resolvedMemo := make(map[uint]recipe.Resolved)
	costMemo := make(map[uint]recipe.CostResult)
	failedProducts := make(map[uint]string)

	totals := make(map[uint]float64)
	costWarned := make(map[recipe.Warning]bool)

	for _, line := range lines {
		if line.Quantity <= 0 {
			preview.Failed = append(preview.Failed, FailedLine{Line: line, Reason: "quantity must be greater than zero"})
			continue
		}

		product, ok := catalog.ProductByName(line.ProductName)
		if !ok {
			preview.Unmatched = append(preview.Unmatched, line)
			continue
		}

		if reason, failed := failedProducts[product.ID]; failed {
			preview.Failed = append(preview.Failed, FailedLine{Line: line, Reason: reason})
			continue
		}

		resolved, seen := resolvedMemo[product.ID]
		if !seen {
			resolved, err = catalog.Resolve(product.ID)
			if err != nil {
				if errors.Is(err, recipe.ErrCycleDetected) || errors.Is(err, recipe.ErrDepthExceeded) {
					failedProducts[product.ID] = err.Error()
					preview.Failed = append(preview.Failed, FailedLine{Line: line, Reason: err.Error()})
					continue
				}
				return nil, fmt.Errorf("resolve product %q: %w", product.Name, err)
			}
			resolvedMemo[product.ID] = resolved
		}

		costed, seen := costMemo[product.ID]
		if !seen {
			costed = catalog.CostRequirements(resolved)
			costMemo[product.ID] = costed
		}

		for _, warning := range costed.Warnings {
			if !costWarned[warning] {
				costWarned[warning] = true
				preview.CostWarnings = append(preview.CostWarnings, warning)
			}
		}

		for _, requirement := range resolved.Requirements {
			totals[requirement.IngredientID] += requirement.Quantity * line.Quantity
		}

		unitPrice := product.SellingPrice
		if line.RetailPrice != nil {
			unitPrice = *line.RetailPrice
		}
		soldAt := defaultTime
		if line.Time != nil {
			soldAt = *line.Time
		}

		matched := MatchedLine{
			ProductID:   product.ID,
			ProductName: product.Name,
			Quantity:    line.Quantity,
			UnitPrice:   unitPrice,
			Revenue:     unitPrice * line.Quantity,
			UnitCost:    costed.Total,
			Cost:        costed.Total * line.Quantity,
			SoldAt:      soldAt,
		}
		preview.Matched = append(preview.Matched, matched)
		preview.Revenue += matched.Revenue
		preview.Cost += matched.Cost
	}

	preview.Profit = preview.Revenue - preview.Cost
	preview.Deductions = buildDeductions(catalog, totals)
	preview.StockWarnings = variance.Evaluate(stocksFrom(preview.Deductions))

	metrics.PreviewsTotal.Inc()
	applog.Debug(ctx, "sale batch previewed",
		"token", preview.Token,
		"matched", len(preview.Matched),
		"unmatched", len(preview.Unmatched),
		"deductions", len(preview.Deductions),
	)
	return preview, nil
}

// Apply posts every deduction of the preview in one atomic transaction. When
// a floor is configured, apply-time stock that diverged from the preview far
// enough to breach it aborts the batch with ErrStaleInventory. On success
// audit events are emitted and advisory stock warnings returned.
func (e *Engine) Apply(ctx context.Context, preview *Preview) (*ApplyResult, error) {
	if preview == nil {
		return nil, fmt.Errorf("%w: nil preview", ErrApplyFailed)
	}

	started := e.now()
	result := &ApplyResult{Deductions: make([]Deduction, 0, len(preview.Deductions))}

	if len(preview.Deductions) == 0 {
		result.Applied = true
		metrics.AppliesTotal.WithLabelValues("applied").Inc()
		return result, nil
	}

	ids := make([]uint, 0, len(preview.Deductions))
	for _, deduction := range preview.Deductions {
		ids = append(ids, deduction.IngredientID)
	}
	release := e.locks.acquire(ids)
	defer release()

	written := make([]Deduction, 0, len(preview.Deductions))
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for index, deduction := range preview.Deductions {
			var ingredient models.Ingredient
			if err := tx.First(&ingredient, deduction.IngredientID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("ingredient %q no longer exists", deduction.Code)
				}
				return err
			}

			final := ingredient.QuantityOnHand - deduction.Quantity
			if e.floor != nil && final < *e.floor {
				return &StaleError{Code: ingredient.Code, Projected: final, Floor: *e.floor}
			}

			if applyWriteHook != nil {
				if err := applyWriteHook(index, deduction); err != nil {
					return err
				}
			}

			update := tx.Model(&models.Ingredient{}).
				Where("id = ?", ingredient.ID).
				UpdateColumn("quantity_on_hand", gorm.Expr("quantity_on_hand - ?", deduction.Quantity))
			if update.Error != nil {
				return update.Error
			}
			if update.RowsAffected != 1 {
				return fmt.Errorf("ingredient %q update affected %d rows", ingredient.Code, update.RowsAffected)
			}

			posted := deduction
			posted.OnHand = ingredient.QuantityOnHand
			posted.Projected = final
			written = append(written, posted)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrStaleInventory) {
			metrics.AppliesTotal.WithLabelValues("stale").Inc()
			applog.Info(ctx, "sale batch apply rejected as stale", "token", preview.Token, "error", err)
			return result, err
		}
		metrics.AppliesTotal.WithLabelValues("failed").Inc()
		applog.Error(ctx, "sale batch apply failed", "token", preview.Token, "error", err)
		return result, fmt.Errorf("%w: %v", ErrApplyFailed, err)
	}

	result.Applied = true
	result.Deductions = written
	result.Warnings = variance.Evaluate(stocksFrom(written))

	for _, line := range preview.Matched {
		e.audit.SaleApplied(ctx, SaleEvent{
			EventID:      uuid.NewString(),
			PreviewToken: preview.Token,
			ProductID:    line.ProductID,
			ProductName:  line.ProductName,
			Quantity:     line.Quantity,
			Revenue:      line.Revenue,
			Cost:         line.Cost,
			SoldAt:       line.SoldAt,
		})
	}
	for _, deduction := range written {
		e.audit.DeductionPosted(ctx, DeductionEvent{
			EventID:      uuid.NewString(),
			PreviewToken: preview.Token,
			IngredientID: deduction.IngredientID,
			Code:         deduction.Code,
			Quantity:     deduction.Quantity,
			Resulting:    deduction.Projected,
		})
	}

	metrics.AppliesTotal.WithLabelValues("applied").Inc()
	metrics.DeductionsWritten.Add(float64(len(written)))
	metrics.ApplyDuration.Observe(e.now().Sub(started).Seconds())
	applog.Info(ctx, "sale batch applied",
		"token", preview.Token,
		"deductions", len(written),
		"revenue", preview.Revenue,
		"cost", preview.Cost,
	)
	return result, nil
}

// Replenish posts a positive stock adjustment for one ingredient and emits
// the matching audit event.
func (e *Engine) Replenish(ctx context.Context, ingredientID uint, quantity float64) (*models.Ingredient, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("sales: replenish quantity must be greater than zero")
	}

	release := e.locks.acquire([]uint{ingredientID})
	defer release()

	var ingredient models.Ingredient
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&ingredient, ingredientID).Error; err != nil {
			return err
		}
		update := tx.Model(&models.Ingredient{}).
			Where("id = ?", ingredientID).
			UpdateColumn("quantity_on_hand", gorm.Expr("quantity_on_hand + ?", quantity))
		if update.Error != nil {
			return update.Error
		}
		ingredient.QuantityOnHand += quantity
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrApplyFailed, err)
	}

	e.audit.DeductionPosted(ctx, DeductionEvent{
		EventID:      uuid.NewString(),
		IngredientID: ingredient.ID,
		Code:         ingredient.Code,
		Quantity:     -quantity,
		Resulting:    ingredient.QuantityOnHand,
	})
	return &ingredient, nil
}

func buildDeductions(catalog *recipe.Catalog, totals map[uint]float64) []Deduction {
	deductions := make([]Deduction, 0, len(totals))
	for id, quantity := range totals {
		ingredient, ok := catalog.Ingredient(id)
		if !ok {
			continue
		}
		deductions = append(deductions, Deduction{
			IngredientID: id,
			Code:         ingredient.Code,
			Name:         ingredient.Name,
			Unit:         ingredient.Unit,
			Quantity:     quantity,
			OnHand:       ingredient.QuantityOnHand,
			Projected:    ingredient.QuantityOnHand - quantity,
			ReorderLevel: ingredient.ReorderLevel,
		})
	}
	sort.Slice(deductions, func(i, j int) bool {
		if deductions[i].Code != deductions[j].Code {
			return deductions[i].Code < deductions[j].Code
		}
		return deductions[i].IngredientID < deductions[j].IngredientID
	})
	return deductions
}

func stocksFrom(deductions []Deduction) []variance.Stock {
	stocks := make([]variance.Stock, 0, len(deductions))
	for _, deduction := range deductions {
		stocks = append(stocks, variance.Stock{
			IngredientID: deduction.IngredientID,
			Code:         deduction.Code,
			Name:         deduction.Name,
			Quantity:     deduction.Projected,
			ReorderLevel: deduction.ReorderLevel,
		})
	}
	return stocks
}
