package sales

import (
	"context"
	"time"

	applog "scullery/internal/log"
)

// SaleEvent is emitted once per applied sale line.
type SaleEvent struct {
	EventID      string    `json:"event_id"`
	PreviewToken string    `json:"preview_token"`
	ProductID    uint      `json:"product_id"`
	ProductName  string    `json:"product_name"`
	Quantity     float64   `json:"quantity"`
	Revenue      float64   `json:"revenue"`
	Cost         float64   `json:"cost"`
	SoldAt       time.Time `json:"sold_at"`
}

// DeductionEvent is emitted once per posted stock movement. Quantity is
// negative for replenishments.
type DeductionEvent struct {
	EventID      string  `json:"event_id"`
	PreviewToken string  `json:"preview_token,omitempty"`
	IngredientID uint    `json:"ingredient_id"`
	Code         string  `json:"code"`
	Quantity     float64 `json:"quantity"`
	Resulting    float64 `json:"resulting"`
}

// AuditSink receives structured events after a successful Apply. Storage is
// the sink implementation's concern; the engine only emits.
type AuditSink interface {
	SaleApplied(ctx context.Context, event SaleEvent)
	DeductionPosted(ctx context.Context, event DeductionEvent)
}

// LogSink is the default audit sink; it writes events to the application
// logger.
type LogSink struct{}

func (LogSink) SaleApplied(ctx context.Context, event SaleEvent) {
	applog.Info(ctx, "sale applied",
		"event_id", event.EventID,
		"preview", event.PreviewToken,
		"product", event.ProductName,
		"quantity", event.Quantity,
		"revenue", event.Revenue,
		"cost", event.Cost,
		"sold_at", event.SoldAt,
	)
}

func (LogSink) DeductionPosted(ctx context.Context, event DeductionEvent) {
	applog.Info(ctx, "deduction posted",
		"event_id", event.EventID,
		"preview", event.PreviewToken,
		"ingredient", event.Code,
		"quantity", event.Quantity,
		"resulting", event.Resulting,
	)
}
