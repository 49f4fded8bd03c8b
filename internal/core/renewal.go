package core

import "time"

// RenewalCandidate is a subscription due for a reminder together with its owner's contact.
type RenewalCandidate struct {
	Subscription Subscription
	Email        string
	FullName     string
}

// ChargeDay returns the day of month a subscription started on day startDay
// is charged in year/month, clamped to the month's length.
func ChargeDay(startDay, year int, month time.Month) int {
	lastDayOfMonth := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if startDay > lastDayOfMonth {
		return lastDayOfMonth
	}
	return startDay
}

// RenewsOn reports whether an active subscription is charged on day.
// Charges fall monthly on the start date's day of month and never before
// the start date itself.
func RenewsOn(s Subscription, day Date) bool {
	if !s.Active || s.StartDate.IsZero() || day.Compare(s.StartDate) < 0 {
		return false
	}
	y, m, d := day.Date()
	return d == ChargeDay(s.StartDate.Day(), y, m)
}

// NextRenewal returns the first charge date on or after from.
func NextRenewal(s Subscription, from Date) Date {
	if from.Compare(s.StartDate) <= 0 {
		return s.StartDate
	}
	y, m, d := from.Date()
	charge := ChargeDay(s.StartDate.Day(), y, m)
	if d > charge {
		next := time.Date(y, m+1, 1, 0, 0, 0, 0, from.Location())
		y, m = next.Year(), next.Month()
		charge = ChargeDay(s.StartDate.Day(), y, m)
	}
	return Date{Time: time.Date(y, m, charge, 0, 0, 0, 0, from.Location())}
}

// Reminder is the message handed to the mail relay for one upcoming charge.
type Reminder struct {
	SubscriptionID   string   `json:"subscription_id"`
	OwnerID          string   `json:"owner_id"`
	Email            string   `json:"email"`
	FullName         string   `json:"full_name,omitempty"`
	SubscriptionName string   `json:"subscription_name"`
	Price            Money    `json:"price"`
	Category         Category `json:"category"`
	RenewalDate      Date     `json:"renewal_date"`
}

func NewReminder(c RenewalCandidate, on Date) Reminder {
	return Reminder{
		SubscriptionID:   c.Subscription.ID,
		OwnerID:          c.Subscription.OwnerID,
		Email:            c.Email,
		FullName:         c.FullName,
		SubscriptionName: c.Subscription.Name,
		Price:            c.Subscription.Price,
		Category:         c.Subscription.Category,
		RenewalDate:      on,
	}
}
