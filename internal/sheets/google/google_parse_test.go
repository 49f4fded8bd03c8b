package google

import (
	"testing"

	"recur/internal/core"
)

func TestParseRow(t *testing.T) {
	tests := []struct {
		name    string
		values  []any
		amount  string
		cat     core.Category
		recur   bool
		wantErr bool
	}{
		{
			name:   "numeric amount",
			values: []any{"2025-09-03T10:00:00Z", "expense.created", "e1", "o1", "2025-09-03", "Taxi", 12.4, "Transporte", false},
			amount: "12.40",
			cat:    core.CategoryTransport,
		},
		{
			name:   "hand typed amount with comma",
			values: []any{"", "expense.created", "e2", "o1", "2025-09-04", "Farmacia", "8,95", "salud", "TRUE"},
			amount: "8.95",
			cat:    core.CategoryHealth,
			recur:  true,
		},
		{
			name:   "missing trailing columns",
			values: []any{"", "expense.deleted", "e3", "o1", "2025-09-05", "Regalo", 30.0},
			amount: "30.00",
			cat:    "",
		},
		{
			name:    "too short",
			values:  []any{"", "expense.created", "e4"},
			wantErr: true,
		},
		{
			name:    "missing id",
			values:  []any{"", "expense.created", "", "o1", "2025-09-05", "x", 1.0},
			wantErr: true,
		},
		{
			name:    "bad date",
			values:  []any{"", "expense.created", "e5", "o1", "05/09/2025", "x", 1.0},
			wantErr: true,
		},
		{
			name:    "bad amount",
			values:  []any{"", "expense.created", "e6", "o1", "2025-09-05", "x", "gratis"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row, err := parseRow(tt.values)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", row)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseRow() error = %v", err)
			}
			if row.Expense.Amount.String() != tt.amount {
				t.Errorf("amount = %s, want %s", row.Expense.Amount, tt.amount)
			}
			if row.Expense.Category != tt.cat {
				t.Errorf("category = %q, want %q", row.Expense.Category, tt.cat)
			}
			if row.Expense.Recurring != tt.recur {
				t.Errorf("recurring = %v, want %v", row.Expense.Recurring, tt.recur)
			}
		})
	}
}
