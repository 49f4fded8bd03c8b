package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ReminderSchedulerConfig holds configuration for the reminder scheduler
type ReminderSchedulerConfig struct {
	// PollInterval is how often to check whether today's run is due (default: 1h)
	PollInterval time.Duration

	// Location decides where a calendar day starts (default: time.Local)
	Location *time.Location
}

// DefaultReminderSchedulerConfig returns sensible defaults
func DefaultReminderSchedulerConfig() ReminderSchedulerConfig {
	return ReminderSchedulerConfig{
		PollInterval: time.Hour,
		Location:     time.Local,
	}
}

// ReminderScheduler runs the renewal notifier at most once per calendar day.
type ReminderScheduler struct {
	notifier *RenewalNotifier
	config   ReminderSchedulerConfig
	now      func() time.Time

	// Lifecycle management
	mu      sync.Mutex
	running bool
	lastRun time.Time
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewReminderScheduler(notifier *RenewalNotifier, config ReminderSchedulerConfig) *ReminderScheduler {
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultReminderSchedulerConfig().PollInterval
	}
	if config.Location == nil {
		config.Location = time.Local
	}
	return &ReminderScheduler{
		notifier: notifier,
		config:   config,
		now:      time.Now,
	}
}

// Start begins the polling loop. Returns an error if already running.
func (s *ReminderScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("reminder scheduler is already running")
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.mu.Unlock()

	go s.runLoop(ctx)

	slog.InfoContext(ctx, "Reminder scheduler started",
		"poll_interval", s.config.PollInterval,
		"location", s.config.Location.String())
	return nil
}

// Stop gracefully stops the scheduler and waits for the current run.
func (s *ReminderScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	close(s.stopCh)

	select {
	case <-s.doneCh:
		slog.InfoContext(ctx, "Reminder scheduler stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Reminder scheduler stop timed out")
		return ctx.Err()
	}

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
	return nil
}

func (s *ReminderScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *ReminderScheduler) runLoop(ctx context.Context) {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	// Check immediately on startup
	s.RunIfDue(ctx)

	for {
		select {
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunIfDue(ctx)
		}
	}
}

// RunIfDue runs the notifier unless it already completed today. A failed
// run is retried on the next poll. It reports whether a run happened.
func (s *ReminderScheduler) RunIfDue(ctx context.Context) (RenewalReport, bool) {
	now := s.now().In(s.config.Location)

	s.mu.Lock()
	last := s.lastRun
	s.mu.Unlock()
	if !dueToday(last, now) {
		return RenewalReport{}, false
	}

	report, err := s.notifier.Run(ctx, now)
	if err != nil {
		slog.ErrorContext(ctx, "Renewal reminder run failed", "error", err)
		return report, true
	}

	s.mu.Lock()
	s.lastRun = now
	s.mu.Unlock()
	return report, true
}

// dueToday is true when last happened on an earlier calendar day than now.
func dueToday(last, now time.Time) bool {
	if last.IsZero() {
		return true
	}
	return last.In(now.Location()).Format("2006-01-02") != now.Format("2006-01-02")
}
