package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"recur/internal/core"
)

// DefaultLeadDays is how far ahead of a charge owners are reminded.
const DefaultLeadDays = 3

// RenewalReport summarises one notifier run.
type RenewalReport struct {
	Date    core.Date `json:"date"`
	Matched int       `json:"matched"`
	Sent    int       `json:"sent"`
	Skipped int       `json:"skipped"`
	Failed  int       `json:"failed"`
}

// RenewalNotifier reminds owners about subscriptions charged a few days ahead.
type RenewalNotifier struct {
	store    RenewalStore
	sender   ReminderSender
	leadDays int
}

func NewRenewalNotifier(store RenewalStore, sender ReminderSender, leadDays int) *RenewalNotifier {
	if leadDays < 0 {
		leadDays = DefaultLeadDays
	}
	return &RenewalNotifier{store: store, sender: sender, leadDays: leadDays}
}

// Run sends at most one reminder per subscription renewing exactly
// leadDays after now's calendar day. Owners without an email are skipped.
// A failed send is counted and does not stop the run.
func (n *RenewalNotifier) Run(ctx context.Context, now time.Time) (RenewalReport, error) {
	if n.store == nil || n.sender == nil {
		return RenewalReport{}, fmt.Errorf("notifier not properly initialized")
	}
	target := core.DateOf(now).AddDays(n.leadDays)
	report := RenewalReport{Date: target}

	candidates, err := n.store.ListRenewalsOn(ctx, target)
	if err != nil {
		return report, fmt.Errorf("%w: list renewals on %s: %w", core.ErrFetchFailure, target, err)
	}

	slog.InfoContext(ctx, "Processing renewal reminders",
		"renewal_date", target.String(),
		"candidates", len(candidates))

	seen := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if _, dup := seen[c.Subscription.ID]; dup {
			continue
		}
		seen[c.Subscription.ID] = struct{}{}
		report.Matched++

		if c.Email == "" {
			report.Skipped++
			slog.WarnContext(ctx, "Skipping renewal reminder, owner has no email",
				"subscription_id", c.Subscription.ID,
				"owner_id", c.Subscription.OwnerID)
			continue
		}
		if err := n.sender.SendReminder(ctx, core.NewReminder(c, target)); err != nil {
			report.Failed++
			slog.ErrorContext(ctx, "Failed to send renewal reminder",
				"subscription_id", c.Subscription.ID,
				"error", err)
			continue
		}
		report.Sent++
	}

	slog.InfoContext(ctx, "Renewal reminders processed",
		"renewal_date", target.String(),
		"matched", report.Matched,
		"sent", report.Sent,
		"skipped", report.Skipped,
		"failed", report.Failed)
	return report, nil
}

// LogReminderSender only logs reminders. Used when no broker is configured.
type LogReminderSender struct{}

func (LogReminderSender) SendReminder(ctx context.Context, r core.Reminder) error {
	slog.InfoContext(ctx, "Renewal reminder",
		"to", r.Email,
		"subscription", r.SubscriptionName,
		"price", r.Price.Display(),
		"renewal_date", r.RenewalDate.String())
	return nil
}
