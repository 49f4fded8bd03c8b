package core

import (
	"fmt"
	"strings"
)

// MaterializationGate decides when a month counts as already materialized.
type MaterializationGate string

const (
	// GateAnyExpense skips a month holding any expense at all.
	GateAnyExpense MaterializationGate = "any"
	// GateRecurringExpense skips a month only once it holds a recurring expense,
	// so a manual expense added first does not suppress generation.
	GateRecurringExpense MaterializationGate = "recurring"
)

func ParseGate(s string) (MaterializationGate, error) {
	switch MaterializationGate(strings.ToLower(strings.TrimSpace(s))) {
	case "", GateAnyExpense:
		return GateAnyExpense, nil
	case GateRecurringExpense:
		return GateRecurringExpense, nil
	}
	return "", fmt.Errorf("unknown materialization gate %q", s)
}

// Closed reports whether existing already satisfies the gate.
func (g MaterializationGate) Closed(existing []Expense) bool {
	if g != GateRecurringExpense {
		return len(existing) > 0
	}
	for _, e := range existing {
		if e.Recurring {
			return true
		}
	}
	return false
}

// PlanMaterialization returns the recurring expenses a month still needs:
// one per active subscription, dated on the first day of rng. The plan is
// empty when the gate is already closed or there is nothing to copy.
// Returned expenses carry no ID; the store assigns one on insert.
func PlanMaterialization(ownerID string, rng MonthRange, subs []Subscription, existing []Expense, gate MaterializationGate) []Expense {
	if gate.Closed(existing) {
		return nil
	}
	plan := make([]Expense, 0, len(subs))
	for _, s := range subs {
		if !s.Active {
			continue
		}
		plan = append(plan, Expense{
			OwnerID:   ownerID,
			Title:     s.Name,
			Amount:    s.Price,
			Date:      rng.Start,
			Category:  s.Category,
			Recurring: true,
		})
	}
	return plan
}
