package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"scullery/internal/config"
	"scullery/internal/db"
	"scullery/internal/sales"
)

func main() {
	csvPath := flag.String("csv", "sales.csv", "path to the sale records csv")
	apply := flag.Bool("apply", false, "apply the previewed deductions instead of stopping at the preview")
	flag.Parse()

	if err := run(*csvPath, *apply); err != nil {
		fmt.Fprintf(os.Stderr, "import failed: %v\n", err)
		os.Exit(1)
	}
}

func run(csvPath string, apply bool) error {
	if csvPath == "" {
		return fmt.Errorf("csv path must not be empty")
	}

	file, err := os.Open(csvPath)
	if err != nil {
		return fmt.Errorf("open csv: %w", err)
	}
	defer file.Close()

	lines, err := sales.ParseSaleLines(file)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	database, err := db.Configure(cfg.Database)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	opts := []sales.Option{}
	if cfg.Engine.StockFloor != nil {
		opts = append(opts, sales.WithFloor(*cfg.Engine.StockFloor))
	}
	engine := sales.NewEngine(database, opts...)

	ctx := context.Background()
	preview, err := engine.Preview(ctx, lines, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("preview sales: %w", err)
	}

	printPreview(preview)

	if !apply {
		fmt.Println("\npreview only; re-run with -apply to post the deductions")
		return nil
	}

	result, err := engine.Apply(ctx, preview)
	if err != nil {
		return fmt.Errorf("apply sales: %w", err)
	}

	fmt.Printf("\napplied %d deductions\n", len(result.Deductions))
	for _, warning := range result.Warnings {
		fmt.Printf("warning: %s: %s\n", warning.Kind, warning.Detail)
	}
	return nil
}

func printPreview(preview *sales.Preview) {
	fmt.Printf("preview %s\n", preview.Token)
	fmt.Printf("matched lines: %d, unmatched: %d, failed: %d\n",
		len(preview.Matched), len(preview.Unmatched), len(preview.Failed))

	for _, line := range preview.Matched {
		fmt.Printf("  %6.2f x %-24s revenue %8.2f cost %8.4f\n",
			line.Quantity, line.ProductName, line.Revenue, line.Cost)
	}
	for _, line := range preview.Unmatched {
		fmt.Printf("  unmatched: %q x %.2f\n", line.ProductName, line.Quantity)
	}
	for _, failed := range preview.Failed {
		fmt.Printf("  failed: %q: %s\n", failed.Line.ProductName, failed.Reason)
	}

	fmt.Println("pending deductions:")
	for _, deduction := range preview.Deductions {
		fmt.Printf("  %-24s -%10.4f %-4s (on hand %10.4f -> %10.4f)\n",
			deduction.Name, deduction.Quantity, deduction.Unit, deduction.OnHand, deduction.Projected)
	}

	fmt.Printf("revenue %10.2f\ncost    %10.4f\nprofit  %10.4f\n",
		preview.Revenue, preview.Cost, preview.Profit)

	for _, warning := range preview.CostWarnings {
		fmt.Printf("warning: %s: %s\n", warning.Kind, warning.Detail)
	}
	for _, warning := range preview.StockWarnings {
		fmt.Printf("warning: %s: %s\n", warning.Kind, warning.Detail)
	}
}
