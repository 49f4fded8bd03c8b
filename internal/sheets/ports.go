package sheets

import (
	"context"
	"time"

	"recur/internal/core"
)

// Row is one line of the expense mirror: an expense event as it was received.
type Row struct {
	RecordedAt time.Time
	Event      string
	Expense    core.Expense
}

// Key identifies the event a row came from. Redelivered events share it.
func (r Row) Key() string { return r.Event + "|" + r.Expense.ID }

// Ports for outbound adapters.
type (
	ExpenseMirror interface {
		Append(ctx context.Context, r Row) (rowRef string, err error)
	}

	// RowLister reads back the rows mirrored so far, oldest first.
	RowLister interface {
		ListRows(ctx context.Context) ([]Row, error)
	}
)
