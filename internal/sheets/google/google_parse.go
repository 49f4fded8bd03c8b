package google

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"recur/internal/core"
	"recur/internal/sheets"
)

// encodeRow lays r out in Header order. The amount goes out as a number so
// the sheet can sum it.
func encodeRow(r sheets.Row) []any {
	e := r.Expense
	return []any{
		r.RecordedAt.UTC().Format(time.RFC3339),
		r.Event,
		e.ID,
		e.OwnerID,
		e.Date.String(),
		e.Title,
		e.Amount.Amount.InexactFloat64(),
		string(e.Category),
		e.Recurring,
	}
}

// parseRow is the inverse of encodeRow for values read back with
// UNFORMATTED_VALUE rendering.
func parseRow(values []any) (sheets.Row, error) {
	if len(values) < 7 {
		return sheets.Row{}, fmt.Errorf("expected at least 7 columns, got %d", len(values))
	}
	cols := toStrings(values)

	var row sheets.Row
	if cols[0] != "" {
		at, err := time.Parse(time.RFC3339, cols[0])
		if err != nil {
			return sheets.Row{}, fmt.Errorf("recorded at: %w", err)
		}
		row.RecordedAt = at
	}
	row.Event = cols[1]
	if cols[2] == "" {
		return sheets.Row{}, fmt.Errorf("missing expense id")
	}

	date, err := core.ParseDate(cols[4])
	if err != nil {
		return sheets.Row{}, err
	}
	amount, err := parseAmount(values[6])
	if err != nil {
		return sheets.Row{}, err
	}

	row.Expense = core.Expense{
		ID:      cols[2],
		OwnerID: cols[3],
		Date:    date,
		Title:   cols[5],
		Amount:  amount,
	}
	if len(cols) > 7 {
		row.Expense.Category = core.ParseCategory(cols[7])
	}
	if len(values) > 8 {
		row.Expense.Recurring = parseBool(values[8])
	}
	return row, nil
}

// parseAmount accepts the number the sheet returns or a hand-typed string.
func parseAmount(v any) (core.Money, error) {
	switch x := v.(type) {
	case float64:
		return core.Money{Amount: decimal.NewFromFloat(x)}, nil
	case string:
		return core.ParseAmount(x)
	default:
		return core.ParseAmount(fmt.Sprint(x))
	}
}

func parseBool(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "true", "verdadero", "sí", "si", "1":
			return true
		}
	}
	return false
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}
