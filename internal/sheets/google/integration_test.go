//go:build integration

package google

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"recur/internal/core"
	"recur/internal/sheets"
)

// Integration tests require a real spreadsheet shared with a service account.
// Run with: go test -tags=integration ./internal/sheets/google

func TestIntegration_MirrorFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	spreadsheetID := os.Getenv("GOOGLE_SPREADSHEET_ID")
	if spreadsheetID == "" {
		t.Skip("GOOGLE_SPREADSHEET_ID not set, skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := New(ctx, Config{
		SpreadsheetID:   spreadsheetID,
		SheetName:       os.Getenv("GOOGLE_SHEET_NAME"),
		CredentialsJSON: os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"),
		CredentialsFile: os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"),
	})
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	if err := client.EnsureHeader(ctx); err != nil {
		t.Fatalf("EnsureHeader: %v", err)
	}

	row := sheets.Row{
		RecordedAt: time.Now(),
		Event:      "expense.created",
		Expense: core.Expense{
			ID:       uuid.NewString(),
			OwnerID:  "integration",
			Title:    "Integration test",
			Amount:   core.MustMoney("0.01"),
			Date:     core.DateOf(time.Now()),
			Category: core.CategoryOther,
		},
	}
	ref, err := client.Append(ctx, row)
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	t.Logf("appended %s", ref)

	rows, err := client.ListRows(ctx)
	if err != nil {
		t.Fatalf("ListRows: %v", err)
	}
	for _, r := range rows {
		if r.Key() == row.Key() {
			return
		}
	}
	t.Errorf("appended row %s not found among %d rows", row.Key(), len(rows))
}
