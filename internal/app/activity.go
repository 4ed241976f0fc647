package app

import (
	"convertit/internal/notify"
	"convertit/internal/ratelimit"
)

// RecentAlertLimit caps the alert history reported by Activity.
const RecentAlertLimit = 5

// Activity is the background status shown on the settings screen.
type Activity struct {
	RecentAlerts []notify.Alert // oldest first
	UnreadAlerts int
	Sweeping     bool
	RateLimit    ratelimit.Stats
}

// Activity reports recent alerts, whether the follow-up sweep is running
// and how the request budget has been used.
func (a *App) Activity() Activity {
	act := Activity{
		Sweeping:  a.scheduler.Running(),
		RateLimit: a.limiter.Stats(),
	}
	if a.notifier != nil {
		act.RecentAlerts = a.notifier.History(RecentAlertLimit)
		act.UnreadAlerts = a.notifier.UnreadCount()
	}
	return act
}

// MarkAlertsRead clears the unread alert count.
func (a *App) MarkAlertsRead() {
	if a.notifier == nil {
		return
	}
	a.notifier.MarkAllAsRead()
	a.update(func(*State) {})
}
