package sales

import (
	"strings"
	"testing"
	"time"
)

func TestParseSaleLines(t *testing.T) {
	t.Parallel()

	input := strings.Join([]string{
		"product_name,quantity,retail_price,time",
		"Cheese Pizza,10,,",
		"Pepperoni Pizza,2,13.50,2026-08-24T18:30:00Z",
		" Club Sandwich ,1,,",
	}, "\n")

	lines, err := ParseSaleLines(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseSaleLines() error = %v", err)
	}
	if len(lines) != 3 {
		t.Fatalf("lines = %d, want 3", len(lines))
	}

	if lines[0].ProductName != "Cheese Pizza" || lines[0].Quantity != 10 {
		t.Fatalf("line 0 = %+v", lines[0])
	}
	if lines[0].RetailPrice != nil || lines[0].Time != nil {
		t.Fatalf("line 0 optional fields should be unset: %+v", lines[0])
	}

	if lines[1].RetailPrice == nil || *lines[1].RetailPrice != 13.50 {
		t.Fatalf("line 1 retail price = %v, want 13.50", lines[1].RetailPrice)
	}
	wantTime := time.Date(2026, 8, 24, 18, 30, 0, 0, time.UTC)
	if lines[1].Time == nil || !lines[1].Time.Equal(wantTime) {
		t.Fatalf("line 1 time = %v, want %v", lines[1].Time, wantTime)
	}

	if lines[2].ProductName != "Club Sandwich" {
		t.Fatalf("line 2 name = %q, want trimmed Club Sandwich", lines[2].ProductName)
	}
}

func TestParseSaleLinesAcceptsHeaderPrefix(t *testing.T) {
	t.Parallel()

	input := "product_name,quantity\nCheese Pizza,4\n"
	lines, err := ParseSaleLines(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseSaleLines() error = %v", err)
	}
	if len(lines) != 1 || lines[0].Quantity != 4 {
		t.Fatalf("lines = %+v, want one cheese pizza line", lines)
	}
}

func TestParseSaleLinesErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
	}{
		{"missing data rows", "product_name,quantity\n"},
		{"wrong header", "name,qty\nCheese Pizza,1\n"},
		{"reordered header", "quantity,product_name\n1,Cheese Pizza\n"},
		{"empty product name", "product_name,quantity\n ,1\n"},
		{"bad quantity", "product_name,quantity\nCheese Pizza,lots\n"},
		{"bad retail price", "product_name,quantity,retail_price\nCheese Pizza,1,free\n"},
		{"bad time", "product_name,quantity,retail_price,time\nCheese Pizza,1,,yesterday\n"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := ParseSaleLines(strings.NewReader(tt.input)); err == nil {
				t.Fatalf("expected error for %q", tt.input)
			}
		})
	}
}
