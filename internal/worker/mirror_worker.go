package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"recur/internal/amqp"
	"recur/internal/sheets"
)

// MirrorWorker appends expense events to the mirror sheet, one row per event.
type MirrorWorker struct {
	mirror sheets.ExpenseMirror
	lister sheets.RowLister
	now    func() time.Time

	mu   sync.Mutex
	seen map[string]struct{}
}

// NewMirrorWorker wires a mirror. lister may be nil, in which case redelivered
// events are only recognised within this process.
func NewMirrorWorker(mirror sheets.ExpenseMirror, lister sheets.RowLister) *MirrorWorker {
	return &MirrorWorker{
		mirror: mirror,
		lister: lister,
		now:    time.Now,
		seen:   make(map[string]struct{}),
	}
}

// StartupSyncCheck loads the events already present in the sheet so a
// redelivered message after a crash does not produce a second row.
func (w *MirrorWorker) StartupSyncCheck(ctx context.Context) error {
	if w.lister == nil {
		slog.InfoContext(ctx, "No row lister configured, skipping startup check")
		return nil
	}
	rows, err := w.lister.ListRows(ctx)
	if err != nil {
		return fmt.Errorf("list mirrored rows: %w", err)
	}

	w.mu.Lock()
	for _, r := range rows {
		w.seen[r.Key()] = struct{}{}
	}
	known := len(w.seen)
	w.mu.Unlock()

	slog.InfoContext(ctx, "Startup sync completed",
		"rows", len(rows),
		"known_events", known)
	return nil
}

// HandleExpenseEvent processes a single expense event from AMQP.
// Events that cannot be mirrored wrap amqp.ErrMalformedMessage so the
// consumer drops them instead of requeueing.
func (w *MirrorWorker) HandleExpenseEvent(ctx context.Context, msg *amqp.ExpenseEventMessage) error {
	row := sheets.Row{RecordedAt: msg.Timestamp, Event: string(msg.Type), Expense: msg.Expense}
	if row.RecordedAt.IsZero() {
		row.RecordedAt = w.now()
	}
	key := row.Key()

	slog.InfoContext(ctx, "Processing expense event",
		"type", msg.Type,
		"id", msg.Expense.ID)

	if err := msg.Expense.Validate(); err != nil {
		return fmt.Errorf("%w: expense %s: %v", amqp.ErrMalformedMessage, msg.Expense.ID, err)
	}

	w.mu.Lock()
	_, dup := w.seen[key]
	w.mu.Unlock()
	if dup {
		slog.InfoContext(ctx, "Event already mirrored, skipping", "key", key)
		return nil
	}

	ref, err := w.mirror.Append(ctx, row)
	if err != nil {
		return fmt.Errorf("append to mirror: %w", err)
	}

	w.mu.Lock()
	w.seen[key] = struct{}{}
	w.mu.Unlock()

	slog.InfoContext(ctx, "Successfully mirrored expense event",
		"type", msg.Type,
		"id", msg.Expense.ID,
		"sheets_ref", ref,
		"amount", msg.Expense.Amount.String())
	return nil
}
