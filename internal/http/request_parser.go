// Package http provides the JSON API over the ledger.
//
// This file implements utilities for parsing and validating request data:
// month selection from the query string and size-limited JSON bodies.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"recur/internal/core"
)

const maxBodyBytes = 64 << 10

var (
	errEmptyBody     = errors.New("request body is empty")
	errMalformedBody = errors.New("request body is not valid JSON")
	errBodyTooLarge  = errors.New("request body too large")
)

// Views of the month endpoint.
const (
	ViewMonthly = "monthly"
	ViewYearly  = "yearly"
)

// ParseMonthParams picks the day whose month is requested. date=YYYY-MM-DD
// wins over month=YYYY-MM; with neither, now is used. The result lives in
// loc so the month is resolved from the owner's calendar.
func ParseMonthParams(query url.Values, now time.Time, loc *time.Location) (time.Time, error) {
	if v := strings.TrimSpace(query.Get("date")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return time.Time{}, core.Invalid(err)
		}
		y, m, day := d.Date()
		return time.Date(y, m, day, 0, 0, 0, 0, loc), nil
	}
	if v := strings.TrimSpace(query.Get("month")); v != "" {
		k, err := core.ParseMonthKey(v)
		if err != nil {
			return time.Time{}, core.Invalid(err)
		}
		return time.Date(k.Year, k.Month, 1, 0, 0, 0, 0, loc), nil
	}
	return now.In(loc), nil
}

// ParseView reads the view parameter. Anything but "yearly" is monthly.
func ParseView(query url.Values) string {
	if strings.EqualFold(strings.TrimSpace(query.Get("view")), ViewYearly) {
		return ViewYearly
	}
	return ViewMonthly
}

// DecodeJSONBody decodes a size-limited JSON object into dst. Unknown fields
// are rejected. Values that fail domain parsing, like a negative amount,
// come back as validation errors.
func DecodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err == nil {
		if dec.More() {
			return errMalformedBody
		}
		return nil
	}

	var (
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
		maxErr    *http.MaxBytesError
	)
	switch {
	case errors.Is(err, io.EOF):
		return errEmptyBody
	case errors.As(err, &maxErr):
		return errBodyTooLarge
	case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
		return errMalformedBody
	case errors.As(err, &typeErr):
		return core.Invalid(fmt.Errorf("field %q has the wrong type", typeErr.Field))
	case strings.HasPrefix(err.Error(), "json: unknown field"):
		return core.Invalid(errors.New(strings.TrimPrefix(err.Error(), "json: ")))
	default:
		return core.Invalid(err)
	}
}

// bodyError maps a DecodeJSONBody error to its response.
func bodyError(err error) *JSONResponseBuilder {
	switch {
	case errors.Is(err, errBodyTooLarge):
		return RequestTooLargeError()
	case errors.Is(err, errEmptyBody), errors.Is(err, errMalformedBody):
		return BadRequestError(err.Error())
	default:
		return FromError(err)
	}
}

type expenseRequest struct {
	Title    string        `json:"title"`
	Amount   *core.Money   `json:"amount"`
	Date     string        `json:"date"`
	Category core.Category `json:"category"`
}

// toExpense builds the expense to add. The amount is required; an empty
// date means today.
func (req expenseRequest) toExpense(today core.Date) (core.Expense, error) {
	if req.Amount == nil {
		return core.Expense{}, core.Invalid(fmt.Errorf("%w: amount is required", core.ErrInvalidAmount))
	}
	date := today
	if v := strings.TrimSpace(req.Date); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return core.Expense{}, core.Invalid(err)
		}
		date = d
	}
	return core.Expense{
		Title:    sanitizeInput(req.Title),
		Amount:   *req.Amount,
		Date:     date,
		Category: req.Category,
	}, nil
}

type subscriptionRequest struct {
	Name      string        `json:"name"`
	Price     *core.Money   `json:"price"`
	Category  core.Category `json:"category"`
	StartDate string        `json:"start_date"`
	Active    *bool         `json:"active"`
}

// toSubscription builds the subscription to save. The price is required;
// an empty start date means today and a missing active flag means active.
func (req subscriptionRequest) toSubscription(id string, today core.Date) (core.Subscription, error) {
	if req.Price == nil {
		return core.Subscription{}, core.Invalid(fmt.Errorf("%w: price is required", core.ErrInvalidAmount))
	}
	start := today
	if v := strings.TrimSpace(req.StartDate); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return core.Subscription{}, core.Invalid(fmt.Errorf("invalid start date: %w", err))
		}
		start = d
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	return core.Subscription{
		ID:        id,
		Name:      sanitizeInput(req.Name),
		Price:     *req.Price,
		Category:  req.Category,
		StartDate: start,
		Active:    active,
	}, nil
}

type budgetRequest struct {
	Income *core.Money `json:"income"`
}
