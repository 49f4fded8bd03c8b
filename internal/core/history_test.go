package core

import (
	"testing"
	"time"
)

func TestAssembleHistoryFallsBackToProfileIncome(t *testing.T) {
	periods := []BudgetPeriod{{Month: MonthKey{Year: 2025, Month: time.September}, Income: MustMoney("1800")}}
	expenses := []Expense{
		{Amount: MustMoney("300"), Date: NewDate(2025, 10, 4)},
		{Amount: MustMoney("500"), Date: NewDate(2025, 9, 12)},
	}
	h := AssembleHistory(periods, expenses, MustMoney("1800"))
	if len(h.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(h.Entries))
	}
	sep, oct := h.Entries[0], h.Entries[1]
	if sep.Month.String() != "2025-09" || oct.Month.String() != "2025-10" {
		t.Fatalf("entries out of order: %s, %s", sep.Month, oct.Month)
	}
	if !sep.Savings.Equal(MustMoney("1300")) {
		t.Fatalf("september savings: got %s", sep.Savings)
	}
	if !oct.Income.Equal(MustMoney("1800")) || !oct.Savings.Equal(MustMoney("1500")) {
		t.Fatalf("october: income %s savings %s", oct.Income, oct.Savings)
	}
	if !h.TotalSaved.Equal(MustMoney("2800")) {
		t.Fatalf("total saved: got %s", h.TotalSaved)
	}
}

func TestAssembleHistoryZeroIncomeUsesDefault(t *testing.T) {
	periods := []BudgetPeriod{{Month: MonthKey{Year: 2025, Month: time.March}, Income: Money{}}}
	h := AssembleHistory(periods, nil, MustMoney("1000"))
	if len(h.Entries) != 1 || !h.Entries[0].Income.Equal(MustMoney("1000")) {
		t.Fatalf("unexpected entries %+v", h.Entries)
	}
}

func TestAssembleHistoryKeepsNegativeMonthsAndGaps(t *testing.T) {
	expenses := []Expense{
		{Amount: MustMoney("1500"), Date: NewDate(2025, 1, 20)},
		{Amount: MustMoney("200"), Date: NewDate(2025, 4, 2)},
	}
	h := AssembleHistory(nil, expenses, MustMoney("1000"))
	if len(h.Entries) != 2 {
		t.Fatalf("months without data must not be zero filled, got %d entries", len(h.Entries))
	}
	if !h.Entries[0].Savings.Equal(NewMoney(-50000)) {
		t.Fatalf("expected negative savings, got %s", h.Entries[0].Savings)
	}
	if !h.TotalSaved.Equal(MustMoney("300")) {
		t.Fatalf("total saved: got %s", h.TotalSaved)
	}
}

func TestAssembleHistoryEmpty(t *testing.T) {
	h := AssembleHistory(nil, nil, MustMoney("1000"))
	if len(h.Entries) != 0 || !h.TotalSaved.IsZero() {
		t.Fatalf("expected empty history, got %+v", h)
	}
}

func TestMonthLabels(t *testing.T) {
	cases := []struct {
		key   MonthKey
		short string
		long  string
	}{
		{MonthKey{Year: 2025, Month: time.September}, "Sept", "Septiembre de 2025"},
		{MonthKey{Year: 2026, Month: time.January}, "Ene", "Enero de 2026"},
		{MonthKey{Year: 2025, Month: time.August}, "Ago", "Agosto de 2025"},
	}
	for _, tc := range cases {
		if got := ShortMonthLabel(tc.key); got != tc.short {
			t.Fatalf("%s short: got %q", tc.key, got)
		}
		if got := LongMonthLabel(tc.key); got != tc.long {
			t.Fatalf("%s long: got %q", tc.key, got)
		}
	}
}
