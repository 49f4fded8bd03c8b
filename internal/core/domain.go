package core

import (
	"errors"
	"fmt"
	"strings"
)

type (
	// Subscription is a recurring charge definition. Deleting one only
	// flips Active; materialized expenses keep their copied values.
	Subscription struct {
		ID        string   `json:"id"`
		OwnerID   string   `json:"owner_id"`
		Name      string   `json:"name"`
		Price     Money    `json:"price"`
		Category  Category `json:"category"`
		StartDate Date     `json:"start_date"`
		Active    bool     `json:"active"`
	}

	Expense struct {
		ID        string   `json:"id"`
		OwnerID   string   `json:"owner_id"`
		Title     string   `json:"title"`
		Amount    Money    `json:"amount"`
		Date      Date     `json:"date"`
		Category  Category `json:"category"`
		Recurring bool     `json:"recurring"`
	}

	Profile struct {
		OwnerID     string `json:"owner_id"`
		Email       string `json:"email,omitempty"`
		FullName    string `json:"full_name,omitempty"`
		Income      Money  `json:"income"`
		SavingsGoal Money  `json:"savings_goal"`
	}

	// ProfileUpdate carries the profile fields to change; nil fields are left alone.
	ProfileUpdate struct {
		Email       *string `json:"email,omitempty"`
		FullName    *string `json:"full_name,omitempty"`
		Income      *Money  `json:"income,omitempty"`
		SavingsGoal *Money  `json:"savings_goal,omitempty"`
	}

	// BudgetPeriod is the income recorded for one specific month.
	BudgetPeriod struct {
		OwnerID string   `json:"owner_id"`
		Month   MonthKey `json:"month"`
		Income  Money    `json:"income"`
	}
)

const maxTextLength = 200

var (
	ErrAuthRequired       = errors.New("authentication required")
	ErrFetchFailure       = errors.New("fetch failure")
	ErrPersistenceFailure = errors.New("persistence failure")
	ErrValidation         = errors.New("validation failure")
	ErrNotFound           = errors.New("not found")

	ErrInvalidDay      = errors.New("invalid day")
	ErrInvalidMonth    = errors.New("invalid month")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidCategory = errors.New("invalid category")
	ErrEmptyTitle      = errors.New("empty title")
	ErrEmptyName       = errors.New("empty name")
	ErrTextTooLong     = errors.New("text too long (max 200 characters)")
)

// Invalid marks err as a validation failure while keeping the field error reachable.
func Invalid(err error) error {
	if err == nil || errors.Is(err, ErrValidation) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrValidation, err)
}

func validateText(s string, empty error) error {
	if len(strings.TrimSpace(s)) == 0 {
		return empty
	}
	if len(s) > maxTextLength {
		return ErrTextTooLong
	}
	return nil
}

func (e Expense) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if err := validateText(e.Title, ErrEmptyTitle); err != nil {
		return err
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if !e.Category.IsKnown() {
		return ErrInvalidCategory
	}
	return nil
}

func (s Subscription) Validate() error {
	if err := validateText(s.Name, ErrEmptyName); err != nil {
		return err
	}
	if err := s.Price.Validate(); err != nil {
		return err
	}
	if err := s.StartDate.Validate(); err != nil {
		return fmt.Errorf("invalid start date: %w", err)
	}
	if !s.Category.IsKnown() {
		return ErrInvalidCategory
	}
	return nil
}

func (p Profile) Validate() error {
	if err := p.Income.Validate(); err != nil {
		return fmt.Errorf("income: %w", err)
	}
	if err := p.SavingsGoal.Validate(); err != nil {
		return fmt.Errorf("savings goal: %w", err)
	}
	if len(p.FullName) > maxTextLength || len(p.Email) > maxTextLength {
		return ErrTextTooLong
	}
	return nil
}

// Apply returns p with the non-nil fields of u written over it.
func (u ProfileUpdate) Apply(p Profile) Profile {
	if u.Email != nil {
		p.Email = strings.TrimSpace(*u.Email)
	}
	if u.FullName != nil {
		p.FullName = strings.TrimSpace(*u.FullName)
	}
	if u.Income != nil {
		p.Income = *u.Income
	}
	if u.SavingsGoal != nil {
		p.SavingsGoal = *u.SavingsGoal
	}
	return p
}

func (b BudgetPeriod) Validate() error {
	if err := b.Month.Validate(); err != nil {
		return err
	}
	return b.Income.Validate()
}
