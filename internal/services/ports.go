package services

import (
	"context"

	"recur/internal/core"
)

// ProfileStore reads and upserts owner profiles. GetProfile returns
// core.ErrNotFound when the owner has never saved one.
type ProfileStore interface {
	GetProfile(ctx context.Context, ownerID string) (core.Profile, error)
	UpdateProfile(ctx context.Context, p core.Profile) error
}

type SubscriptionStore interface {
	ListActiveSubscriptions(ctx context.Context, ownerID string) ([]core.Subscription, error)
	// SaveSubscription inserts when ID is empty and updates otherwise.
	SaveSubscription(ctx context.Context, s core.Subscription) (core.Subscription, error)
	DeactivateSubscription(ctx context.Context, ownerID, id string) error
}

type ExpenseStore interface {
	// ListExpenses returns the owner's expenses dated within [start, end], newest first.
	ListExpenses(ctx context.Context, ownerID string, start, end core.Date) ([]core.Expense, error)
	ListAllExpenses(ctx context.Context, ownerID string) ([]core.Expense, error)
	InsertExpenses(ctx context.Context, expenses []core.Expense) ([]core.Expense, error)
	// MaterializeIfAbsent re-checks gate against the month's expenses and
	// inserts the whole batch only when it is still open, atomically.
	// created is false when another writer got there first.
	MaterializeIfAbsent(ctx context.Context, ownerID string, rng core.MonthRange, gate core.MaterializationGate, batch []core.Expense) (inserted []core.Expense, created bool, err error)
	DeleteExpense(ctx context.Context, ownerID, id string) (core.Expense, error)
}

type BudgetStore interface {
	ListBudgetPeriods(ctx context.Context, ownerID string) ([]core.BudgetPeriod, error)
	GetBudgetPeriod(ctx context.Context, ownerID string, month core.MonthKey) (core.BudgetPeriod, error)
	SetBudgetPeriod(ctx context.Context, p core.BudgetPeriod) error
}

// RenewalStore finds active subscriptions charged on a given day across all owners.
type RenewalStore interface {
	ListRenewalsOn(ctx context.Context, day core.Date) ([]core.RenewalCandidate, error)
}

// Store is everything the ledger needs from persistence.
type Store interface {
	ProfileStore
	SubscriptionStore
	ExpenseStore
	BudgetStore
}

// EventPublisher announces expense writes to downstream consumers.
type EventPublisher interface {
	PublishExpenseCreated(ctx context.Context, e core.Expense) error
	PublishExpenseDeleted(ctx context.Context, e core.Expense) error
}

// ReminderSender delivers one renewal reminder.
type ReminderSender interface {
	SendReminder(ctx context.Context, r core.Reminder) error
}
