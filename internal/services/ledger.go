// Package services provides business logic and orchestration services.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"recur/internal/core"
)

// monthLoadTimeout bounds a shared month load once it no longer follows
// the context of the caller that started it.
const monthLoadTimeout = 30 * time.Second

// MonthView is everything a screen needs to render one month.
type MonthView struct {
	Month         core.MonthKey       `json:"month"`
	Start         core.Date           `json:"start"`
	End           core.Date           `json:"end"`
	Expenses      []core.Expense      `json:"expenses"`
	Subscriptions []core.Subscription `json:"subscriptions"`
	Summary       core.Summary        `json:"summary"`
	// SubscriptionsTotal is the monthly cost of all active subscriptions.
	SubscriptionsTotal core.Money `json:"subscriptions_total"`
	// Materialized counts the recurring expenses generated by this load.
	Materialized int `json:"materialized"`
}

// Ledger is the single entry point for reading and changing an owner's month.
type Ledger struct {
	store     Store
	publisher EventPublisher
	gate      core.MaterializationGate
	group     singleflight.Group
}

type LedgerOption func(*Ledger)

func WithPublisher(p EventPublisher) LedgerOption {
	return func(l *Ledger) { l.publisher = p }
}

func WithGate(g core.MaterializationGate) LedgerOption {
	return func(l *Ledger) { l.gate = g }
}

func NewLedger(store Store, opts ...LedgerOption) *Ledger {
	l := &Ledger{store: store, gate: core.GateAnyExpense}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func requireOwner(ownerID string) error {
	if strings.TrimSpace(ownerID) == "" {
		return core.ErrAuthRequired
	}
	return nil
}

func fetchFailed(op string, err error) error {
	if errors.Is(err, core.ErrNotFound) || errors.Is(err, core.ErrFetchFailure) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%w: %s: %w", core.ErrFetchFailure, op, err)
}

func persistFailed(op string, err error) error {
	if errors.Is(err, core.ErrNotFound) || errors.Is(err, core.ErrValidation) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%w: %s: %w", core.ErrPersistenceFailure, op, err)
}

// LoadMonth returns the month containing date, generating that month's
// recurring expenses first when they are missing. The month is taken from
// date's own calendar fields in its own location.
func (l *Ledger) LoadMonth(ctx context.Context, ownerID string, date time.Time) (MonthView, error) {
	if err := requireOwner(ownerID); err != nil {
		return MonthView{}, err
	}
	rng := core.ResolveRange(date)

	// Concurrent loads of one month share a single materialization. The
	// shared load is detached from any one caller, so a caller that goes
	// away only stops waiting.
	ch := l.group.DoChan(ownerID+"|"+rng.Key.String(), func() (any, error) {
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), monthLoadTimeout)
		defer cancel()
		return l.loadMonth(lctx, ownerID, rng)
	})
	select {
	case <-ctx.Done():
		return MonthView{}, fetchFailed("load month "+rng.Key.String(), ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return MonthView{}, res.Err
		}
		return res.Val.(MonthView), nil
	}
}

func (l *Ledger) loadMonth(ctx context.Context, ownerID string, rng core.MonthRange) (MonthView, error) {
	var (
		profile  core.Profile
		period   core.BudgetPeriod
		subs     []core.Subscription
		expenses []core.Expense
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		profile, err = l.profileOrDefault(gctx, ownerID)
		return err
	})
	g.Go(func() error {
		p, err := l.store.GetBudgetPeriod(gctx, ownerID, rng.Key)
		if err != nil && !errors.Is(err, core.ErrNotFound) {
			return fmt.Errorf("budget period: %w", err)
		}
		period = p
		return nil
	})
	g.Go(func() error {
		var err error
		subs, err = l.store.ListActiveSubscriptions(gctx, ownerID)
		if err != nil {
			return fmt.Errorf("subscriptions: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		expenses, err = l.store.ListExpenses(gctx, ownerID, rng.Start, rng.End)
		if err != nil {
			return fmt.Errorf("expenses: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return MonthView{}, fetchFailed("load month "+rng.Key.String(), err)
	}

	materialized := 0
	if plan := core.PlanMaterialization(ownerID, rng, subs, expenses, l.gate); len(plan) > 0 {
		inserted, created, err := l.store.MaterializeIfAbsent(ctx, ownerID, rng, l.gate, plan)
		if err != nil {
			return MonthView{}, persistFailed("materialize "+rng.Key.String(), err)
		}
		if created {
			materialized = len(inserted)
			expenses = append(expenses, inserted...)
			sortNewestFirst(expenses)
			slog.InfoContext(ctx, "Materialized recurring expenses",
				"owner_id", ownerID,
				"month", rng.Key.String(),
				"count", materialized)
			for _, e := range inserted {
				l.publishCreated(ctx, e)
			}
		} else {
			// Someone else generated the month between our read and write.
			expenses, err = l.store.ListExpenses(ctx, ownerID, rng.Start, rng.End)
			if err != nil {
				return MonthView{}, fetchFailed("reload month "+rng.Key.String(), err)
			}
		}
	}

	income := profile.Income
	if period.Income.IsPositive() {
		income = period.Income
	}
	if expenses == nil {
		expenses = []core.Expense{}
	}
	if subs == nil {
		subs = []core.Subscription{}
	}
	subsTotal := core.Money{}
	for _, s := range subs {
		subsTotal = subsTotal.Add(s.Price)
	}

	return MonthView{
		Month:              rng.Key,
		Start:              rng.Start,
		End:                rng.End,
		Expenses:           expenses,
		Subscriptions:      subs,
		Summary:            core.Summarize(expenses, income, profile.SavingsGoal),
		SubscriptionsTotal: subsTotal,
		Materialized:       materialized,
	}, nil
}

func sortNewestFirst(expenses []core.Expense) {
	sort.SliceStable(expenses, func(i, j int) bool {
		return expenses[i].Date.Compare(expenses[j].Date) > 0
	})
}

// LoadHistory assembles every month the owner has income or spending for.
func (l *Ledger) LoadHistory(ctx context.Context, ownerID string) (core.History, error) {
	if err := requireOwner(ownerID); err != nil {
		return core.History{}, err
	}
	var (
		profile  core.Profile
		periods  []core.BudgetPeriod
		expenses []core.Expense
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		profile, err = l.profileOrDefault(gctx, ownerID)
		return err
	})
	g.Go(func() error {
		var err error
		periods, err = l.store.ListBudgetPeriods(gctx, ownerID)
		return err
	})
	g.Go(func() error {
		var err error
		expenses, err = l.store.ListAllExpenses(gctx, ownerID)
		return err
	})
	if err := g.Wait(); err != nil {
		return core.History{}, fetchFailed("load history", err)
	}
	return core.AssembleHistory(periods, expenses, profile.Income), nil
}

func (l *Ledger) profileOrDefault(ctx context.Context, ownerID string) (core.Profile, error) {
	p, err := l.store.GetProfile(ctx, ownerID)
	if errors.Is(err, core.ErrNotFound) {
		return core.Profile{OwnerID: ownerID}, nil
	}
	if err != nil {
		return core.Profile{}, fmt.Errorf("profile: %w", err)
	}
	return p, nil
}

func (l *Ledger) AddExpense(ctx context.Context, ownerID string, e core.Expense) (core.Expense, error) {
	if err := requireOwner(ownerID); err != nil {
		return core.Expense{}, err
	}
	e.ID = ""
	e.OwnerID = ownerID
	e.Title = strings.TrimSpace(e.Title)
	if e.Category == "" {
		e.Category = core.CategoryOther
	}
	if err := e.Validate(); err != nil {
		return core.Expense{}, core.Invalid(err)
	}
	inserted, err := l.store.InsertExpenses(ctx, []core.Expense{e})
	if err != nil {
		return core.Expense{}, persistFailed("add expense", err)
	}
	if len(inserted) != 1 {
		return core.Expense{}, fmt.Errorf("%w: add expense: store returned %d rows", core.ErrPersistenceFailure, len(inserted))
	}
	l.publishCreated(ctx, inserted[0])
	return inserted[0], nil
}

func (l *Ledger) DeleteExpense(ctx context.Context, ownerID, id string) error {
	if err := requireOwner(ownerID); err != nil {
		return err
	}
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("delete expense: %w", core.ErrNotFound)
	}
	deleted, err := l.store.DeleteExpense(ctx, ownerID, id)
	if err != nil {
		return persistFailed("delete expense "+id, err)
	}
	if l.publisher != nil {
		if err := l.publisher.PublishExpenseDeleted(ctx, deleted); err != nil {
			slog.ErrorContext(ctx, "Failed to publish expense event",
				"event", "deleted", "id", deleted.ID, "error", err)
		}
	}
	return nil
}

func (l *Ledger) publishCreated(ctx context.Context, e core.Expense) {
	if l.publisher == nil {
		return
	}
	if err := l.publisher.PublishExpenseCreated(ctx, e); err != nil {
		// Don't fail the request - the expense is already stored
		slog.ErrorContext(ctx, "Failed to publish expense event",
			"event", "created", "id", e.ID, "error", err)
	}
}

func (l *Ledger) ListSubscriptions(ctx context.Context, ownerID string) ([]core.Subscription, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	subs, err := l.store.ListActiveSubscriptions(ctx, ownerID)
	if err != nil {
		return nil, fetchFailed("list subscriptions", err)
	}
	if subs == nil {
		subs = []core.Subscription{}
	}
	return subs, nil
}

// SaveSubscription creates the subscription when s.ID is empty and
// replaces the stored one otherwise. Expenses already generated from it
// keep their copied values.
func (l *Ledger) SaveSubscription(ctx context.Context, ownerID string, s core.Subscription) (core.Subscription, error) {
	if err := requireOwner(ownerID); err != nil {
		return core.Subscription{}, err
	}
	s.OwnerID = ownerID
	s.Name = strings.TrimSpace(s.Name)
	if s.ID == "" {
		s.Active = true
	}
	if s.Category == "" {
		s.Category = core.CategoryOther
	}
	if err := s.Validate(); err != nil {
		return core.Subscription{}, core.Invalid(err)
	}
	saved, err := l.store.SaveSubscription(ctx, s)
	if err != nil {
		return core.Subscription{}, persistFailed("save subscription", err)
	}
	return saved, nil
}

// DeactivateSubscription is the soft delete: the record stays, generation stops.
func (l *Ledger) DeactivateSubscription(ctx context.Context, ownerID, id string) error {
	if err := requireOwner(ownerID); err != nil {
		return err
	}
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("deactivate subscription: %w", core.ErrNotFound)
	}
	if err := l.store.DeactivateSubscription(ctx, ownerID, id); err != nil {
		return persistFailed("deactivate subscription "+id, err)
	}
	return nil
}

// GetProfile returns the owner's profile, or an empty one if none was saved yet.
func (l *Ledger) GetProfile(ctx context.Context, ownerID string) (core.Profile, error) {
	if err := requireOwner(ownerID); err != nil {
		return core.Profile{}, err
	}
	p, err := l.profileOrDefault(ctx, ownerID)
	if err != nil {
		return core.Profile{}, fetchFailed("get profile", err)
	}
	return p, nil
}

func (l *Ledger) UpdateProfile(ctx context.Context, ownerID string, u core.ProfileUpdate) (core.Profile, error) {
	current, err := l.GetProfile(ctx, ownerID)
	if err != nil {
		return core.Profile{}, err
	}
	next := u.Apply(current)
	next.OwnerID = ownerID
	if err := next.Validate(); err != nil {
		return core.Profile{}, core.Invalid(err)
	}
	if err := l.store.UpdateProfile(ctx, next); err != nil {
		return core.Profile{}, persistFailed("update profile", err)
	}
	return next, nil
}

// SetMonthlyIncome records the income of one month without touching the
// profile default used by other months.
func (l *Ledger) SetMonthlyIncome(ctx context.Context, ownerID string, month core.MonthKey, income core.Money) (core.BudgetPeriod, error) {
	if err := requireOwner(ownerID); err != nil {
		return core.BudgetPeriod{}, err
	}
	p := core.BudgetPeriod{OwnerID: ownerID, Month: month, Income: income}
	if err := p.Validate(); err != nil {
		return core.BudgetPeriod{}, core.Invalid(err)
	}
	if err := l.store.SetBudgetPeriod(ctx, p); err != nil {
		return core.BudgetPeriod{}, persistFailed("set monthly income", err)
	}
	return p, nil
}
