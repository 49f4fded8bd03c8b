package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"recur/internal/core"
)

func TestDueToday(t *testing.T) {
	madrid, err := time.LoadLocation("Europe/Madrid")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	morning := time.Date(2025, 9, 28, 9, 0, 0, 0, madrid)

	tests := []struct {
		name string
		last time.Time
		now  time.Time
		want bool
	}{
		{"never ran", time.Time{}, morning, true},
		{"same day", morning, morning.Add(10 * time.Hour), false},
		{"next day", morning, morning.Add(24 * time.Hour), true},
		// 23:30 UTC on the 27th is already the 28th in Madrid
		{"same local day in another zone", time.Date(2025, 9, 27, 23, 30, 0, 0, time.UTC), morning, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := dueToday(tt.last, tt.now); got != tt.want {
				t.Errorf("dueToday = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestReminderScheduler_RunIfDue(t *testing.T) {
	store := &fakeRenewalStore{candidates: []core.RenewalCandidate{candidate("a", "a@example.com")}}
	sender := &fakeSender{}
	s := NewReminderScheduler(NewRenewalNotifier(store, sender, 3), ReminderSchedulerConfig{Location: time.UTC})

	now := time.Date(2025, 9, 28, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	report, ran := s.RunIfDue(context.Background())
	if !ran || report.Sent != 1 {
		t.Fatalf("first run: ran=%v report=%+v", ran, report)
	}
	if _, ran := s.RunIfDue(context.Background()); ran {
		t.Fatal("second run on the same day should be skipped")
	}

	now = now.Add(24 * time.Hour)
	if _, ran := s.RunIfDue(context.Background()); !ran {
		t.Fatal("expected a run on the next day")
	}
	if len(sender.sent) != 2 {
		t.Errorf("expected 2 reminders over two days, got %d", len(sender.sent))
	}
}

func TestReminderScheduler_FailedRunIsRetried(t *testing.T) {
	store := &fakeRenewalStore{err: errors.New("db down")}
	s := NewReminderScheduler(NewRenewalNotifier(store, &fakeSender{}, 3), ReminderSchedulerConfig{Location: time.UTC})
	s.now = func() time.Time { return time.Date(2025, 9, 28, 9, 0, 0, 0, time.UTC) }

	if _, ran := s.RunIfDue(context.Background()); !ran {
		t.Fatal("expected first attempt")
	}
	store.err = nil
	if _, ran := s.RunIfDue(context.Background()); !ran {
		t.Fatal("failed run should be retried on the next poll")
	}
}

func TestReminderScheduler_Lifecycle(t *testing.T) {
	s := NewReminderScheduler(NewRenewalNotifier(&fakeRenewalStore{}, &fakeSender{}, 3), ReminderSchedulerConfig{})
	if s.config.PollInterval != time.Hour || s.config.Location != time.Local {
		t.Errorf("defaults not applied: %+v", s.config)
	}
	if s.IsRunning() {
		t.Fatal("scheduler should not be running initially")
	}
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("stopping an idle scheduler: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := s.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := s.Start(ctx); err == nil {
		t.Error("expected error when starting a running scheduler")
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer stopCancel()
	if err := s.Stop(stopCtx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if s.IsRunning() {
		t.Error("scheduler should not be running after stop")
	}
}
