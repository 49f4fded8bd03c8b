package core

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestMoneyValidate(t *testing.T) {
	if err := NewMoney(1).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := NewMoney(0).Validate(); err != nil {
		t.Fatalf("expected zero to be allowed, got %v", err)
	}
	if err := NewMoney(-1).Validate(); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestExpenseValidate(t *testing.T) {
	good := Expense{
		Date:     NewDate(2025, 1, 1),
		Title:    "ok",
		Amount:   NewMoney(100),
		Category: CategoryFood,
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []struct {
		e    Expense
		want error
	}{
		{Expense{Date: Date{}, Title: "a", Amount: NewMoney(1), Category: CategoryFood}, nil},
		{Expense{Date: NewDate(2025, 1, 1), Title: "  ", Amount: NewMoney(1), Category: CategoryFood}, ErrEmptyTitle},
		{Expense{Date: NewDate(2025, 1, 1), Title: strings.Repeat("x", 201), Amount: NewMoney(1), Category: CategoryFood}, ErrTextTooLong},
		{Expense{Date: NewDate(2025, 1, 1), Title: "a", Amount: NewMoney(-5), Category: CategoryFood}, ErrInvalidAmount},
		{Expense{Date: NewDate(2025, 1, 1), Title: "a", Amount: NewMoney(1), Category: "Viajes"}, ErrInvalidCategory},
	}
	for i, tc := range bads {
		err := tc.e.Validate()
		if err == nil {
			t.Fatalf("case %d expected error", i)
		}
		if tc.want != nil && !errors.Is(err, tc.want) {
			t.Fatalf("case %d expected %v, got %v", i, tc.want, err)
		}
	}
}

func TestSubscriptionValidate(t *testing.T) {
	good := Subscription{Name: "Netflix", Price: MustMoney("17.99"), Category: CategoryEntertainment, StartDate: NewDate(2025, 3, 15), Active: true}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	noName := good
	noName.Name = ""
	if err := noName.Validate(); !errors.Is(err, ErrEmptyName) {
		t.Fatalf("expected ErrEmptyName, got %v", err)
	}
	noStart := good
	noStart.StartDate = Date{}
	if err := noStart.Validate(); err == nil {
		t.Fatalf("expected start date error")
	}
}

func TestInvalidWrapsFieldError(t *testing.T) {
	err := Invalid(ErrEmptyTitle)
	if !errors.Is(err, ErrValidation) || !errors.Is(err, ErrEmptyTitle) {
		t.Fatalf("expected both sentinels reachable, got %v", err)
	}
	if Invalid(nil) != nil {
		t.Fatalf("expected nil for nil")
	}
	if again := Invalid(err); again != err {
		t.Fatalf("expected no double wrap, got %v", again)
	}
}

func TestProfileUpdateApply(t *testing.T) {
	income := MustMoney("2450")
	email := " ana@example.com "
	p := ProfileUpdate{Income: &income, Email: &email}.Apply(Profile{OwnerID: "o1", SavingsGoal: MustMoney("400")})
	if !p.Income.Equal(income) || p.Email != "ana@example.com" {
		t.Fatalf("unexpected profile %+v", p)
	}
	if !p.SavingsGoal.Equal(MustMoney("400")) {
		t.Fatalf("savings goal should be untouched, got %s", p.SavingsGoal)
	}
}
