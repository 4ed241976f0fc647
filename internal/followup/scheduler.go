package followup

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"convertit/internal/logging"
	"convertit/internal/metrics"
)

// SettingsFunc returns the current settings. It is called on every sweep so
// toggles take effect on the next tick.
type SettingsFunc func() Settings

// Scheduler sweeps a Store on a fixed interval.
type Scheduler struct {
	store    *Store
	interval time.Duration
	settings SettingsFunc
	notify   NotifyFunc
	now      func() time.Time

	cron    *cron.Cron
	mu      sync.Mutex
	running bool
}

// NewScheduler creates a scheduler. It does nothing until Start.
func NewScheduler(store *Store, interval time.Duration, settings SettingsFunc, notify NotifyFunc) *Scheduler {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Scheduler{
		store:    store,
		interval: interval,
		settings: settings,
		notify:   notify,
		now:      time.Now,
	}
}

// Start begins periodic sweeps. Calling Start twice is a no-op.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(fmt.Sprintf("@every %s", s.interval), s.tick); err != nil {
		return fmt.Errorf("failed to schedule follow-up sweep: %w", err)
	}
	c.Start()

	s.cron = c
	s.running = true
	logging.Debug("follow-up scheduler started", "interval", s.interval)
	return nil
}

// Stop halts sweeps and waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.running = false
	s.mu.Unlock()

	if c == nil {
		return
	}
	ctx := c.Stop()
	<-ctx.Done()
	logging.Debug("follow-up scheduler stopped")
}

// Running reports whether periodic sweeps are active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// RunOnce performs one sweep at now.
func (s *Scheduler) RunOnce(now time.Time) []FollowUp {
	var settings Settings
	if s.settings != nil {
		settings = s.settings()
	}
	metrics.FollowUpSweeps.Inc()
	fired := s.store.Sweep(now, settings, s.notify)
	for _, f := range fired {
		metrics.FollowUpAlerts.WithLabelValues(string(f.Kind)).Inc()
		logging.Info("follow-up alert fired", "id", f.ID, "lead", f.LeadName, "kind", f.Kind)
	}
	return fired
}

func (s *Scheduler) tick() {
	defer func() {
		if r := recover(); r != nil {
			logging.Error("follow-up sweep panicked", "panic", r)
		}
	}()
	s.RunOnce(s.now())
}
