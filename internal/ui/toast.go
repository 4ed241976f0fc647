package ui

import (
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"convertit/internal/notify"
)

// ToastType represents the kind of toast.
type ToastType int

const (
	ToastInfo ToastType = iota
	ToastSuccess
	ToastWarning
	ToastError
	ToastReminder
)

// Toast is one transient message in the corner of the dashboard.
type Toast struct {
	ID        int
	Type      ToastType
	Title     string
	Message   string
	Duration  time.Duration
	CreatedAt time.Time
}

// IsExpired reports whether the toast should be removed at now.
func (t *Toast) IsExpired(now time.Time) bool {
	return now.Sub(t.CreatedAt) > t.Duration
}

// ToastManager keeps the newest toasts.
type ToastManager struct {
	mu        sync.Mutex
	toasts    []Toast
	maxToasts int
	nextID    int
	now       func() time.Time
}

// NewToastManager creates a toast manager.
func NewToastManager() *ToastManager {
	return &ToastManager{
		maxToasts: 3,
		nextID:    1,
		now:       time.Now,
	}
}

// Show adds a toast, newest first.
func (m *ToastManager) Show(toastType ToastType, title, message string, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	toast := Toast{
		ID:        m.nextID,
		Type:      toastType,
		Title:     title,
		Message:   message,
		Duration:  duration,
		CreatedAt: m.now(),
	}
	m.nextID++

	m.toasts = append([]Toast{toast}, m.toasts...)
	if len(m.toasts) > m.maxToasts {
		m.toasts = m.toasts[:m.maxToasts]
	}
}

// ShowSuccess displays a success toast.
func (m *ToastManager) ShowSuccess(message string) {
	m.Show(ToastSuccess, "Success", message, 3*time.Second)
}

// ShowError displays an error toast.
func (m *ToastManager) ShowError(message string) {
	m.Show(ToastError, "Error", message, 5*time.Second)
}

// ShowInfo displays an info toast.
func (m *ToastManager) ShowInfo(message string) {
	m.Show(ToastInfo, "Info", message, 3*time.Second)
}

// ShowAlert displays a follow-up alert. Alerts stay longer than other toasts.
func (m *ToastManager) ShowAlert(a notify.Alert) {
	m.Show(ToastReminder, a.Title, a.Body, 10*time.Second)
}

// Update removes expired toasts.
func (m *ToastManager) Update() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	active := m.toasts[:0]
	for _, toast := range m.toasts {
		if !toast.IsExpired(now) {
			active = append(active, toast)
		}
	}
	m.toasts = active
}

// Count returns the number of active toasts.
func (m *ToastManager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.toasts)
}

// View renders the active toasts, one per line.
func (m *ToastManager) View(width int) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.toasts) == 0 {
		return ""
	}
	lines := make([]string, 0, len(m.toasts))
	for _, toast := range m.toasts {
		lines = append(lines, m.renderToast(toast, width))
	}
	return strings.Join(lines, "\n")
}

func (m *ToastManager) renderToast(toast Toast, width int) string {
	var icon string
	var iconColor lipgloss.Color

	switch toast.Type {
	case ToastSuccess:
		icon, iconColor = "✓", ColorSuccess
	case ToastError:
		icon, iconColor = "✗", ColorError
	case ToastWarning:
		icon, iconColor = "⚠", ColorWarning
	case ToastReminder:
		icon, iconColor = "🔔", ColorPrimary
	default:
		icon, iconColor = "ℹ", ColorInfo
	}

	// Dim when nearly expired
	if toast.Duration-m.now().Sub(toast.CreatedAt) < 500*time.Millisecond {
		iconColor = ColorDim
	}

	iconStyle := lipgloss.NewStyle().Foreground(iconColor).Bold(true)
	msgStyle := lipgloss.NewStyle().Foreground(ColorMuted)

	msg := toast.Message
	if toast.Type == ToastReminder && toast.Title != "" {
		msg = toast.Title + ": " + msg
	}
	maxLen := width - 5
	if maxLen < 20 {
		maxLen = 20
	}
	if r := []rune(msg); len(r) > maxLen {
		msg = string(r[:maxLen-1]) + "…"
	}
	return iconStyle.Render(icon) + " " + msgStyle.Render(msg)
}

// Clear removes all toasts.
func (m *ToastManager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.toasts = m.toasts[:0]
}
