// Package followup tracks scheduled follow-ups with leads and raises a
// one-time alert for each when its notify time is reached.
package followup

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"convertit/internal/leads"
)

// Kind is how the follow-up will be carried out.
type Kind string

const (
	KindManual        Kind = "manual"
	KindAutomatedCall Kind = "automated_call"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k == KindManual || k == KindAutomatedCall
}

// Status is pending until the user marks the follow-up done.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

// FollowUp is one scheduled contact with a lead.
type FollowUp struct {
	ID         string    `json:"id"`
	LeadID     string    `json:"lead_id"`
	LeadName   string    `json:"lead_name"`
	Due        time.Time `json:"due"`
	Kind       Kind      `json:"kind"`
	Status     Status    `json:"status"`
	AlertFired bool      `json:"alert_fired"`
	CreatedAt  time.Time `json:"created_at"`
}

// NotifyAt is when the alert for f becomes due.
func (f FollowUp) NotifyAt(lead time.Duration) time.Time {
	return f.Due.Add(-lead)
}

// Settings are the user toggles consulted on each sweep.
type Settings struct {
	NotificationsEnabled bool
	SoundEnabled         bool
	LeadTime             time.Duration
}

var (
	ErrNotFound    = errors.New("follow-up not found")
	ErrInvalidLead = errors.New("lead is required")
	ErrInvalidDue  = errors.New("due date and time are required")
)

// ParseDue combines the separate date ("2006-01-02") and clock ("15:04")
// fields into a due time in loc.
func ParseDue(date, clock string, loc *time.Location) (time.Time, error) {
	date, clock = strings.TrimSpace(date), strings.TrimSpace(clock)
	if date == "" || clock == "" {
		return time.Time{}, ErrInvalidDue
	}
	if loc == nil {
		loc = time.Local
	}
	due, err := time.ParseInLocation("2006-01-02 15:04", date+" "+clock, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidDue, err)
	}
	return due, nil
}

// Store holds follow-ups in insertion order.
type Store struct {
	mu    sync.Mutex
	items []FollowUp
	now   func() time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{now: time.Now}
}

// Schedule adds a pending follow-up for lead.
func (s *Store) Schedule(lead leads.Lead, due time.Time, kind Kind) (FollowUp, error) {
	if lead.ID == "" {
		return FollowUp{}, ErrInvalidLead
	}
	if due.IsZero() {
		return FollowUp{}, ErrInvalidDue
	}
	if !kind.Valid() {
		kind = KindManual
	}

	f := FollowUp{
		ID:        uuid.NewString(),
		LeadID:    lead.ID,
		LeadName:  lead.Name,
		Due:       due,
		Kind:      kind,
		Status:    StatusPending,
		CreatedAt: s.now(),
	}

	s.mu.Lock()
	s.items = append(s.items, f)
	s.mu.Unlock()
	return f, nil
}

// Complete marks a follow-up completed. Completing twice is a no-op.
func (s *Store) Complete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID == id {
			s.items[i].Status = StatusCompleted
			return nil
		}
	}
	return ErrNotFound
}

// Remove deletes a follow-up.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

// List returns a copy of all follow-ups.
func (s *Store) List() []FollowUp {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]FollowUp, len(s.items))
	copy(out, s.items)
	return out
}

// Replace swaps the whole list, used when restoring a snapshot.
func (s *Store) Replace(items []FollowUp) {
	cp := make([]FollowUp, len(items))
	copy(cp, items)
	s.mu.Lock()
	s.items = cp
	s.mu.Unlock()
}

// NotifyFunc delivers one alert.
type NotifyFunc func(f FollowUp, settings Settings)

// Sweep fires the alert of every pending follow-up whose notify time has
// been reached and marks it so it never fires again. Nothing is read or
// written while notifications are off. It returns the follow-ups alerted.
func (s *Store) Sweep(now time.Time, settings Settings, notify NotifyFunc) []FollowUp {
	if !settings.NotificationsEnabled {
		return nil
	}
	lead := settings.LeadTime
	if lead < 0 {
		lead = 0
	}

	var fired []FollowUp
	s.mu.Lock()
	for i := range s.items {
		f := &s.items[i]
		if f.Status != StatusPending || f.AlertFired {
			continue
		}
		if now.Before(f.NotifyAt(lead)) {
			continue
		}
		// The flag is set before delivery; a failed delivery is not retried.
		f.AlertFired = true
		fired = append(fired, *f)
	}
	s.mu.Unlock()

	if notify != nil {
		for _, f := range fired {
			notify(f, settings)
		}
	}
	return fired
}
