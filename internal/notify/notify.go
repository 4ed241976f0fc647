// Package notify delivers alerts to the desktop and keeps a short history
// for the dashboard.
package notify

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"convertit/internal/followup"
	"convertit/internal/logging"
)

// Alert is one user-facing notification.
type Alert struct {
	ID        string
	Title     string
	Body      string
	Sound     bool
	Timestamp time.Time
	Read      bool
}

// Notifier delivers alerts.
type Notifier interface {
	Notify(ctx context.Context, a Alert) error
}

// FollowUpAlert builds the alert for a due follow-up.
func FollowUpAlert(f followup.FollowUp, sound bool) Alert {
	body := "⏰ Manual Reminder scheduled now."
	if f.Kind == followup.KindAutomatedCall {
		body = "📞 Automated Call scheduled now."
	}
	return Alert{
		Title: "Deal Closer: " + f.LeadName,
		Body:  body,
		Sound: sound,
	}
}

// Permission mirrors the desktop notification permission states.
type Permission string

const (
	PermissionDefault Permission = "default"
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
)

// runFunc runs an external command. Swapped in tests.
type runFunc func(ctx context.Context, name string, args ...string) error

func runCommand(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Run()
}

// Options configures a Manager.
type Options struct {
	Desktop    bool   // Send native desktop notifications
	ChimeURL   string // Played for alerts with Sound set
	MaxHistory int
}

// Manager records alerts, forwards them to the UI callback and, when
// permitted, to the desktop.
type Manager struct {
	mu         sync.RWMutex
	history    []Alert
	maxHistory int
	onNotify   func(Alert)
	desktop    bool
	chimeURL   string
	permission Permission

	goos     string
	lookPath func(string) (string, error)
	run      runFunc
	wg       sync.WaitGroup
}

// NewManager creates a notification manager.
func NewManager(opts Options) *Manager {
	maxHistory := opts.MaxHistory
	if maxHistory <= 0 {
		maxHistory = 100
	}
	return &Manager{
		history:    make([]Alert, 0),
		maxHistory: maxHistory,
		desktop:    opts.Desktop,
		chimeURL:   opts.ChimeURL,
		permission: PermissionDefault,
		goos:       runtime.GOOS,
		lookPath:   exec.LookPath,
		run:        runCommand,
	}
}

// SetOnNotify sets the callback invoked for every alert.
func (m *Manager) SetOnNotify(fn func(Alert)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onNotify = fn
}

// RequestPermission grants desktop delivery when the platform tool exists.
// A decided permission is never asked again.
func (m *Manager) RequestPermission() Permission {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.permission != PermissionDefault {
		return m.permission
	}
	if !m.desktop {
		m.permission = PermissionDenied
		return m.permission
	}
	if _, err := m.lookPath(m.desktopTool()); err != nil {
		logging.Debug("desktop notifications unavailable", "tool", m.desktopTool(), "error", err)
		m.permission = PermissionDenied
		return m.permission
	}
	m.permission = PermissionGranted
	return m.permission
}

// Permission returns the current permission.
func (m *Manager) Permission() Permission {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.permission
}

// Notify records a and delivers it. Delivery failures are logged and
// swallowed, so the returned error is always nil.
func (m *Manager) Notify(ctx context.Context, a Alert) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now()
	}

	m.mu.Lock()
	m.history = append(m.history, a)
	if len(m.history) > m.maxHistory {
		m.history = m.history[1:]
	}
	onNotify := m.onNotify
	granted := m.permission == PermissionGranted
	chime := m.chimeURL
	m.mu.Unlock()

	if onNotify != nil {
		onNotify(a)
	}

	if granted {
		m.spawn(func() {
			if err := m.sendDesktop(ctx, a); err != nil {
				logging.Debug("desktop notification failed", "title", a.Title, "error", err)
			}
		})
	}
	if a.Sound && chime != "" {
		m.spawn(func() {
			if err := m.playChime(ctx, chime); err != nil {
				logging.Debug("chime playback failed", "error", err)
			}
		})
	}
	return nil
}

func (m *Manager) spawn(fn func()) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		fn()
	}()
}

// Wait blocks until in-flight deliveries finish.
func (m *Manager) Wait() {
	m.wg.Wait()
}

func (m *Manager) desktopTool() string {
	if m.goos == "darwin" {
		return "osascript"
	}
	return "notify-send"
}

func (m *Manager) sendDesktop(ctx context.Context, a Alert) error {
	if m.goos == "darwin" {
		script := fmt.Sprintf("display notification %q with title %q", escapeAppleScript(a.Body), escapeAppleScript(a.Title))
		return m.run(ctx, "osascript", "-e", script)
	}
	return m.run(ctx, "notify-send", "--app-name=convertit", a.Title, a.Body)
}

func (m *Manager) playChime(ctx context.Context, url string) error {
	if _, err := m.lookPath("ffplay"); err == nil {
		return m.run(ctx, "ffplay", "-nodisp", "-autoexit", "-loglevel", "quiet", url)
	}
	if m.goos == "darwin" {
		return m.run(ctx, "afplay", "/System/Library/Sounds/Glass.aiff")
	}
	return fmt.Errorf("no audio player available")
}

func escapeAppleScript(s string) string {
	return strings.ReplaceAll(s, `"`, `'`)
}

// History returns up to limit most recent alerts, oldest first.
func (m *Manager) History(limit int) []Alert {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if limit <= 0 || limit > len(m.history) {
		limit = len(m.history)
	}
	result := make([]Alert, limit)
	copy(result, m.history[len(m.history)-limit:])
	return result
}

// UnreadCount returns the number of unread alerts.
func (m *Manager) UnreadCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, a := range m.history {
		if !a.Read {
			count++
		}
	}
	return count
}

// MarkAllAsRead marks all alerts as read.
func (m *Manager) MarkAllAsRead() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.history {
		m.history[i].Read = true
	}
}
