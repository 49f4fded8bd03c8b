package memory

import (
	"context"
	"fmt"
	"sync"

	"recur/internal/sheets"
)

// Mirror keeps mirrored rows in memory. It stands in for the spreadsheet
// when none is configured.
type Mirror struct {
	mu   sync.Mutex
	rows []sheets.Row
}

var (
	_ sheets.ExpenseMirror = (*Mirror)(nil)
	_ sheets.RowLister     = (*Mirror)(nil)
)

func New(seed ...sheets.Row) *Mirror {
	return &Mirror{rows: append([]sheets.Row(nil), seed...)}
}

// Append stores the row and returns a synthetic row reference.
func (m *Mirror) Append(_ context.Context, r sheets.Row) (string, error) {
	if r.Expense.ID == "" {
		return "", fmt.Errorf("row without expense id")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, r)
	return fmt.Sprintf("mem:%d", len(m.rows)), nil
}

func (m *Mirror) ListRows(_ context.Context) ([]sheets.Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sheets.Row(nil), m.rows...), nil
}
