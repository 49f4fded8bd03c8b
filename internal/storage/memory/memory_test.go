package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"recur/internal/core"
)

func TestMemoryStoreExpensesByRange(t *testing.T) {
	ctx := context.Background()
	s := New()
	_, err := s.InsertExpenses(ctx, []core.Expense{
		{OwnerID: "o1", Title: "a", Amount: core.MustMoney("1"), Date: core.NewDate(2025, 8, 31), Category: core.CategoryFood},
		{OwnerID: "o1", Title: "b", Amount: core.MustMoney("2"), Date: core.NewDate(2025, 9, 1), Category: core.CategoryFood},
		{OwnerID: "o1", Title: "c", Amount: core.MustMoney("3"), Date: core.NewDate(2025, 9, 30), Category: core.CategoryFood},
		{OwnerID: "o2", Title: "d", Amount: core.MustMoney("4"), Date: core.NewDate(2025, 9, 15), Category: core.CategoryFood},
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	rng := core.MonthKey{Year: 2025, Month: time.September}.Range(time.UTC)
	got, err := s.ListExpenses(ctx, "o1", rng.Start, rng.End)
	if err != nil || len(got) != 2 {
		t.Fatalf("expected 2 expenses, got %d (err=%v)", len(got), err)
	}
	if got[0].Title != "c" || got[1].Title != "b" {
		t.Fatalf("expected newest first, got %s, %s", got[0].Title, got[1].Title)
	}
	if got[0].ID == "" {
		t.Fatalf("expected generated ID")
	}
}

func TestMemoryStoreMaterializeIfAbsent(t *testing.T) {
	ctx := context.Background()
	s := New()
	rng := core.MonthKey{Year: 2025, Month: time.September}.Range(time.UTC)
	batch := []core.Expense{{OwnerID: "o1", Title: "Netflix", Amount: core.MustMoney("17.99"), Date: rng.Start, Category: core.CategoryEntertainment, Recurring: true}}

	inserted, created, err := s.MaterializeIfAbsent(ctx, "o1", rng, core.GateAnyExpense, batch)
	if err != nil || !created || len(inserted) != 1 {
		t.Fatalf("first call: created=%v n=%d err=%v", created, len(inserted), err)
	}
	_, created, err = s.MaterializeIfAbsent(ctx, "o1", rng, core.GateAnyExpense, batch)
	if err != nil || created {
		t.Fatalf("second call must be a no-op: created=%v err=%v", created, err)
	}
	all, _ := s.ListAllExpenses(ctx, "o1")
	if len(all) != 1 {
		t.Fatalf("expected 1 stored expense, got %d", len(all))
	}
}

func TestMemoryStoreSubscriptionLifecycle(t *testing.T) {
	ctx := context.Background()
	s := New()
	sub, err := s.SaveSubscription(ctx, core.Subscription{OwnerID: "o1", Name: "Spotify", Price: core.MustMoney("10.99"), StartDate: core.NewDate(2025, 1, 3), Active: true, Category: core.CategoryMusic})
	if err != nil || sub.ID == "" {
		t.Fatalf("save: %v", err)
	}
	if err := s.DeactivateSubscription(ctx, "o2", sub.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("other owner must not deactivate, got %v", err)
	}
	if err := s.DeactivateSubscription(ctx, "o1", sub.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	active, _ := s.ListActiveSubscriptions(ctx, "o1")
	if len(active) != 0 {
		t.Fatalf("expected no active subscriptions, got %d", len(active))
	}
}

func TestMemoryStoreRenewals(t *testing.T) {
	ctx := context.Background()
	s := New()
	_ = s.UpdateProfile(ctx, core.Profile{OwnerID: "o1", Email: "ana@example.com"})
	_, _ = s.SaveSubscription(ctx, core.Subscription{OwnerID: "o1", Name: "Gym", Price: core.MustMoney("35"), StartDate: core.NewDate(2025, 1, 20), Active: true, Category: core.CategoryHealth})
	_, _ = s.SaveSubscription(ctx, core.Subscription{OwnerID: "o1", Name: "Cloud", Price: core.MustMoney("2"), StartDate: core.NewDate(2025, 1, 21), Active: true, Category: core.CategorySoftware})

	got, err := s.ListRenewalsOn(ctx, core.NewDate(2025, 6, 20))
	if err != nil || len(got) != 1 {
		t.Fatalf("expected 1 renewal, got %d (err=%v)", len(got), err)
	}
	if got[0].Email != "ana@example.com" || got[0].Subscription.Name != "Gym" {
		t.Fatalf("unexpected candidate %+v", got[0])
	}
}
