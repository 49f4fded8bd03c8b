package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"recur/internal/core"
	"recur/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Config{SheetName: "Recur"})
	if err == nil {
		t.Fatal("expected error for missing spreadsheet id")
	}
	if err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNew_MissingCredentials(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")

	_, err := New(context.Background(), Config{SpreadsheetID: "sheet-1"})
	if err == nil {
		t.Fatal("expected error without credentials")
	}
	if !strings.Contains(err.Error(), "missing service account credentials") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNew_UnreadableCredentialsFile(t *testing.T) {
	_, err := New(context.Background(), Config{SpreadsheetID: "sheet-1", CredentialsFile: "/does/not/exist.json"})
	if err == nil || !strings.Contains(err.Error(), "read service account file") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestClient_NilService(t *testing.T) {
	c := &Client{spreadsheetID: "test"}
	if _, err := c.Append(context.Background(), sheets.Row{Expense: core.Expense{ID: "e1"}}); err == nil {
		t.Error("Append should fail without a service")
	}
	if _, err := c.ListRows(context.Background()); err == nil {
		t.Error("ListRows should fail without a service")
	}
	if err := c.EnsureHeader(context.Background()); err == nil {
		t.Error("EnsureHeader should fail without a service")
	}
}

// fakeSheets serves the handful of Values endpoints the client uses.
type fakeSheets struct {
	mu      sync.Mutex
	rows    [][]any
	options []string
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, ":append"):
		var vr gsheet.ValueRange
		if err := json.NewDecoder(r.Body).Decode(&vr); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.options = append(f.options, r.URL.Query().Get("valueInputOption"))
		f.rows = append(f.rows, vr.Values...)
		json.NewEncoder(w).Encode(map[string]any{
			"spreadsheetId": "sheet-1",
			"updates":       map[string]any{"updatedRange": "Recur!A" + itoa(len(f.rows)+1) + ":I" + itoa(len(f.rows)+1)},
		})
	case r.Method == http.MethodPut:
		var vr gsheet.ValueRange
		json.NewDecoder(r.Body).Decode(&vr)
		f.rows = append(vr.Values, f.rows...)
		json.NewEncoder(w).Encode(map[string]any{"spreadsheetId": "sheet-1"})
	case r.Method == http.MethodGet && strings.Contains(r.URL.Path, "A1:I1"):
		values := [][]any{}
		if len(f.rows) > 0 && len(f.rows[0]) > 0 && f.rows[0][0] == "Registrado" {
			values = f.rows[:1]
		}
		json.NewEncoder(w).Encode(map[string]any{"values": values})
	case r.Method == http.MethodGet:
		data := f.rows
		if len(data) > 0 && data[0][0] == "Registrado" {
			data = data[1:]
		}
		json.NewEncoder(w).Encode(map[string]any{"values": data})
	default:
		http.NotFound(w, r)
	}
}

func itoa(n int) string {
	b, _ := json.Marshal(n)
	return string(b)
}

func newTestClient(t *testing.T, f *fakeSheets) *Client {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	c, err := New(context.Background(),
		Config{SpreadsheetID: "sheet-1", SheetName: "Recur"},
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func TestClient_AppendAndListRows(t *testing.T) {
	f := &fakeSheets{}
	c := newTestClient(t, f)
	ctx := context.Background()

	if err := c.EnsureHeader(ctx); err != nil {
		t.Fatalf("EnsureHeader() error = %v", err)
	}
	// A second call must not write the header twice.
	if err := c.EnsureHeader(ctx); err != nil {
		t.Fatalf("EnsureHeader() error = %v", err)
	}

	row := sheets.Row{
		RecordedAt: time.Date(2025, 9, 1, 8, 30, 0, 0, time.UTC),
		Event:      "expense.created",
		Expense: core.Expense{
			ID:        "e1",
			OwnerID:   "owner-1",
			Title:     "Netflix",
			Amount:    core.MustMoney("17.99"),
			Date:      core.NewDate(2025, 9, 1),
			Category:  core.CategoryEntertainment,
			Recurring: true,
		},
	}
	ref, err := c.Append(ctx, row)
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if ref != "Recur!A3:I3" {
		t.Errorf("Append() ref = %q", ref)
	}
	if len(f.options) != 1 || f.options[0] != "RAW" {
		t.Errorf("valueInputOption = %v, want [RAW]", f.options)
	}

	rows, err := c.ListRows(ctx)
	if err != nil {
		t.Fatalf("ListRows() error = %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("ListRows() returned %d rows, want 1", len(rows))
	}
	got := rows[0]
	if got.Key() != row.Key() || !got.Expense.Amount.Equal(row.Expense.Amount) {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if !got.Expense.Date.SameDay(row.Expense.Date) || got.Expense.Category != core.CategoryEntertainment || !got.Expense.Recurring {
		t.Errorf("round trip mismatch: %+v", got.Expense)
	}
}
