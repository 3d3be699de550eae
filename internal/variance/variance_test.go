package variance

import (
	"testing"
)

func TestEvaluate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		stock Stock
		want  Kind
		none  bool
	}{
		{"healthy stock", Stock{Code: "flour", Quantity: 50, ReorderLevel: 20}, "", true},
		{"at reorder level", Stock{Code: "flour", Quantity: 20, ReorderLevel: 20}, LowStock, false},
		{"below reorder level", Stock{Code: "flour", Quantity: 5, ReorderLevel: 20}, LowStock, false},
		{"exactly zero with zero reorder", Stock{Code: "flour", Quantity: 0, ReorderLevel: 0}, LowStock, false},
		{"negative", Stock{Code: "flour", Quantity: -1.5, ReorderLevel: 20}, NegativeStock, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			warnings := Evaluate([]Stock{tt.stock})
			if tt.none {
				if len(warnings) != 0 {
					t.Fatalf("Evaluate() = %v, want no warnings", warnings)
				}
				return
			}
			if len(warnings) != 1 {
				t.Fatalf("Evaluate() = %v, want one warning", warnings)
			}
			if warnings[0].Kind != tt.want {
				t.Fatalf("warning kind = %q, want %q", warnings[0].Kind, tt.want)
			}
			if warnings[0].Code != tt.stock.Code {
				t.Fatalf("warning code = %q, want %q", warnings[0].Code, tt.stock.Code)
			}
		})
	}
}

func TestEvaluateReportsEveryAnomaly(t *testing.T) {
	t.Parallel()

	warnings := Evaluate([]Stock{
		{IngredientID: 1, Code: "a", Quantity: -2},
		{IngredientID: 2, Code: "b", Quantity: 100, ReorderLevel: 10},
		{IngredientID: 3, Code: "c", Quantity: 3, ReorderLevel: 10},
	})

	if len(warnings) != 2 {
		t.Fatalf("Evaluate() = %v, want two warnings", warnings)
	}
	if warnings[0].Kind != NegativeStock || warnings[1].Kind != LowStock {
		t.Fatalf("warning kinds = %q, %q", warnings[0].Kind, warnings[1].Kind)
	}
}
