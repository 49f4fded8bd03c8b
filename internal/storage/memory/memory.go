// Package memory is an in-process store for development and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"recur/internal/core"
)

type Store struct {
	mu       sync.Mutex
	profiles map[string]core.Profile
	subs     []core.Subscription
	expenses []core.Expense
	periods  map[string]core.BudgetPeriod
}

func New() *Store {
	return &Store{
		profiles: make(map[string]core.Profile),
		periods:  make(map[string]core.BudgetPeriod),
	}
}

func periodKey(ownerID string, k core.MonthKey) string { return ownerID + "|" + k.String() }

func (s *Store) GetProfile(_ context.Context, ownerID string) (core.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[ownerID]
	if !ok {
		return core.Profile{}, core.ErrNotFound
	}
	return p, nil
}

func (s *Store) UpdateProfile(_ context.Context, p core.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.OwnerID] = p
	return nil
}

// ListActiveSubscriptions returns active subscriptions, most expensive first.
func (s *Store) ListActiveSubscriptions(_ context.Context, ownerID string) ([]core.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Subscription
	for _, sub := range s.subs {
		if sub.OwnerID == ownerID && sub.Active {
			out = append(out, sub)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Price.Amount.GreaterThan(out[j].Price.Amount) })
	return out, nil
}

func (s *Store) SaveSubscription(_ context.Context, sub core.Subscription) (core.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sub.ID == "" {
		sub.ID = uuid.NewString()
		s.subs = append(s.subs, sub)
		return sub, nil
	}
	for i := range s.subs {
		if s.subs[i].ID == sub.ID && s.subs[i].OwnerID == sub.OwnerID {
			s.subs[i] = sub
			return sub, nil
		}
	}
	return core.Subscription{}, fmt.Errorf("subscription %s: %w", sub.ID, core.ErrNotFound)
}

func (s *Store) DeactivateSubscription(_ context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.subs {
		if s.subs[i].ID == id && s.subs[i].OwnerID == ownerID {
			s.subs[i].Active = false
			return nil
		}
	}
	return fmt.Errorf("subscription %s: %w", id, core.ErrNotFound)
}

func (s *Store) ListExpenses(_ context.Context, ownerID string, start, end core.Date) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expensesLocked(ownerID, start, end), nil
}

func (s *Store) expensesLocked(ownerID string, start, end core.Date) []core.Expense {
	var out []core.Expense
	for _, e := range s.expenses {
		if e.OwnerID == ownerID && e.Date.Compare(start) >= 0 && e.Date.Compare(end) <= 0 {
			out = append(out, e)
		}
	}
	sortNewestFirst(out)
	return out
}

func (s *Store) ListAllExpenses(_ context.Context, ownerID string) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Expense
	for _, e := range s.expenses {
		if e.OwnerID == ownerID {
			out = append(out, e)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func sortNewestFirst(es []core.Expense) {
	sort.SliceStable(es, func(i, j int) bool { return es[i].Date.Compare(es[j].Date) > 0 })
}

func (s *Store) InsertExpenses(_ context.Context, expenses []core.Expense) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(expenses), nil
}

func (s *Store) insertLocked(expenses []core.Expense) []core.Expense {
	out := make([]core.Expense, 0, len(expenses))
	for _, e := range expenses {
		e.ID = uuid.NewString()
		s.expenses = append(s.expenses, e)
		out = append(out, e)
	}
	return out
}

func (s *Store) MaterializeIfAbsent(_ context.Context, ownerID string, rng core.MonthRange, gate core.MaterializationGate, batch []core.Expense) ([]core.Expense, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gate.Closed(s.expensesLocked(ownerID, rng.Start, rng.End)) {
		return nil, false, nil
	}
	return s.insertLocked(batch), true, nil
}

func (s *Store) DeleteExpense(_ context.Context, ownerID, id string) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.expenses {
		if e.ID == id && e.OwnerID == ownerID {
			s.expenses = append(s.expenses[:i], s.expenses[i+1:]...)
			return e, nil
		}
	}
	return core.Expense{}, fmt.Errorf("expense %s: %w", id, core.ErrNotFound)
}

func (s *Store) ListBudgetPeriods(_ context.Context, ownerID string) ([]core.BudgetPeriod, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.BudgetPeriod
	for _, p := range s.periods {
		if p.OwnerID == ownerID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month.Before(out[j].Month) })
	return out, nil
}

func (s *Store) GetBudgetPeriod(_ context.Context, ownerID string, month core.MonthKey) (core.BudgetPeriod, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.periods[periodKey(ownerID, month)]
	if !ok {
		return core.BudgetPeriod{}, core.ErrNotFound
	}
	return p, nil
}

func (s *Store) SetBudgetPeriod(_ context.Context, p core.BudgetPeriod) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.periods[periodKey(p.OwnerID, p.Month)] = p
	return nil
}

func (s *Store) ListRenewalsOn(_ context.Context, day core.Date) ([]core.RenewalCandidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.RenewalCandidate
	for _, sub := range s.subs {
		if !core.RenewsOn(sub, day) {
			continue
		}
		p := s.profiles[sub.OwnerID]
		out = append(out, core.RenewalCandidate{Subscription: sub, Email: p.Email, FullName: p.FullName})
	}
	return out, nil
}

// Ping always succeeds; the store lives in process.
func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }
