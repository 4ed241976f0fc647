package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"convertit/internal/logging"
	"convertit/internal/notify"
)

// alertBacklog is how many alerts may wait for the event loop before new
// ones are dropped.
const alertBacklog = 32

type (
	changedMsg struct{}
	alertMsg   notify.Alert
)

// NotifyChanged tells the dashboard the App state moved. It never blocks
// and repeated calls before the next redraw coalesce into one, so it is
// safe to call from inside Update or before the program runs.
func (m *Model) NotifyChanged() {
	select {
	case m.changed <- struct{}{}:
	default:
	}
}

// PushAlert queues a follow-up alert for a toast without blocking.
func (m *Model) PushAlert(a notify.Alert) {
	select {
	case m.alerts <- a:
	default:
		logging.Warn("alert backlog full, dropping toast", "title", a.Title)
	}
}

// waitForEvent delivers the next change or alert. It is re-armed after
// every delivery and returns nil once the model is closed.
func (m *Model) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-m.changed:
			return changedMsg{}
		case a := <-m.alerts:
			return alertMsg(a)
		case <-m.ctx.Done():
			return nil
		}
	}
}
