package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"recur/internal/core"
	"recur/internal/storage/memory"
)

type fakeRenewalStore struct {
	candidates []core.RenewalCandidate
	err        error
	asked      core.Date
}

func (f *fakeRenewalStore) ListRenewalsOn(_ context.Context, day core.Date) ([]core.RenewalCandidate, error) {
	f.asked = day
	return f.candidates, f.err
}

type fakeSender struct {
	sent   []core.Reminder
	failTo string
}

func (f *fakeSender) SendReminder(_ context.Context, r core.Reminder) error {
	if r.Email == f.failTo {
		return errors.New("relay down")
	}
	f.sent = append(f.sent, r)
	return nil
}

func candidate(id, email string) core.RenewalCandidate {
	return core.RenewalCandidate{
		Subscription: core.Subscription{ID: id, OwnerID: "o-" + id, Name: "Sub " + id, Price: core.MustMoney("9.99"), Active: true},
		Email:        email,
	}
}

func TestRenewalNotifierRun(t *testing.T) {
	store := &fakeRenewalStore{candidates: []core.RenewalCandidate{
		candidate("a", "a@example.com"),
		candidate("a", "a@example.com"), // joined twice
		candidate("b", ""),
		candidate("c", "down@example.com"),
		candidate("d", "d@example.com"),
	}}
	sender := &fakeSender{failTo: "down@example.com"}
	n := NewRenewalNotifier(store, sender, DefaultLeadDays)

	now := time.Date(2025, 9, 28, 9, 0, 0, 0, time.UTC)
	report, err := n.Run(context.Background(), now)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if store.asked.String() != "2025-10-01" {
		t.Fatalf("expected lookup for 2025-10-01, got %s", store.asked)
	}
	want := RenewalReport{Date: store.asked, Matched: 4, Sent: 2, Skipped: 1, Failed: 1}
	if report.Matched != want.Matched || report.Sent != want.Sent || report.Skipped != want.Skipped || report.Failed != want.Failed {
		t.Fatalf("got %+v, want %+v", report, want)
	}
	if len(sender.sent) != 2 || sender.sent[0].SubscriptionID != "a" || sender.sent[0].RenewalDate.String() != "2025-10-01" {
		t.Fatalf("unexpected sends %+v", sender.sent)
	}
}

func TestRenewalNotifierFetchFailure(t *testing.T) {
	n := NewRenewalNotifier(&fakeRenewalStore{err: errors.New("db down")}, &fakeSender{}, 3)
	if _, err := n.Run(context.Background(), time.Now()); !errors.Is(err, core.ErrFetchFailure) {
		t.Fatalf("expected ErrFetchFailure, got %v", err)
	}
}

func TestRenewalNotifierNothingDue(t *testing.T) {
	n := NewRenewalNotifier(&fakeRenewalStore{}, &fakeSender{}, 3)
	report, err := n.Run(context.Background(), time.Now())
	if err != nil || report.Matched != 0 || report.Sent != 0 {
		t.Fatalf("expected empty report, got %+v (err=%v)", report, err)
	}
}

func TestRenewalNotifierAgainstMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	_ = store.UpdateProfile(ctx, core.Profile{OwnerID: "o1", Email: "ana@example.com", FullName: "Ana"})
	_, _ = store.SaveSubscription(ctx, core.Subscription{OwnerID: "o1", Name: "Gym", Price: core.MustMoney("35"), Category: core.CategoryHealth, StartDate: core.NewDate(2025, 1, 31), Active: true})

	sender := &fakeSender{}
	// Feb 25 + 3 days = Feb 28, the clamped charge day of a 31st start.
	report, err := NewRenewalNotifier(store, sender, 3).Run(ctx, time.Date(2025, 2, 25, 8, 0, 0, 0, time.UTC))
	if err != nil || report.Sent != 1 {
		t.Fatalf("expected one reminder, got %+v (err=%v)", report, err)
	}
	if sender.sent[0].FullName != "Ana" || sender.sent[0].SubscriptionName != "Gym" {
		t.Fatalf("unexpected reminder %+v", sender.sent[0])
	}
}

func TestRenewalNotifierNotInitialized(t *testing.T) {
	if _, err := (&RenewalNotifier{}).Run(context.Background(), time.Now()); err == nil {
		t.Fatalf("expected error")
	}
}
