package notify

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"convertit/internal/followup"
)

type fakeRunner struct {
	mu    sync.Mutex
	calls [][]string
	err   error
}

func (f *fakeRunner) run(_ context.Context, name string, args ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, append([]string{name}, args...))
	return f.err
}

func (f *fakeRunner) names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.calls {
		out = append(out, c[0])
	}
	return out
}

func newTestManager(opts Options, available map[string]bool, runner *fakeRunner) *Manager {
	m := NewManager(opts)
	m.goos = "linux"
	m.lookPath = func(name string) (string, error) {
		if available[name] {
			return "/usr/bin/" + name, nil
		}
		return "", errors.New("not found")
	}
	m.run = runner.run
	return m
}

func TestFollowUpAlert(t *testing.T) {
	call := FollowUpAlert(followup.FollowUp{LeadName: "Acme Corp", Kind: followup.KindAutomatedCall}, true)
	assert.Equal(t, "Deal Closer: Acme Corp", call.Title)
	assert.Equal(t, "📞 Automated Call scheduled now.", call.Body)
	assert.True(t, call.Sound)

	manual := FollowUpAlert(followup.FollowUp{LeadName: "Acme Corp", Kind: followup.KindManual}, false)
	assert.Equal(t, "⏰ Manual Reminder scheduled now.", manual.Body)
	assert.False(t, manual.Sound)
}

func TestNotifyWithoutPermissionOnlyRecords(t *testing.T) {
	runner := &fakeRunner{}
	m := newTestManager(Options{Desktop: true}, nil, runner)

	var seen []Alert
	m.SetOnNotify(func(a Alert) { seen = append(seen, a) })

	assert.Equal(t, PermissionDenied, m.RequestPermission())
	require.NoError(t, m.Notify(context.Background(), Alert{Title: "t", Body: "b"}))
	m.Wait()

	assert.Len(t, seen, 1)
	assert.NotEmpty(t, seen[0].ID)
	assert.Empty(t, runner.names())
	assert.Len(t, m.History(0), 1)
}

func TestNotifyDesktopAndChime(t *testing.T) {
	runner := &fakeRunner{}
	m := newTestManager(Options{Desktop: true, ChimeURL: "https://example.com/chime.mp3"},
		map[string]bool{"notify-send": true, "ffplay": true}, runner)

	assert.Equal(t, PermissionGranted, m.RequestPermission())
	require.NoError(t, m.Notify(context.Background(), Alert{Title: "Deal Closer: A", Body: "b", Sound: true}))
	m.Wait()

	assert.ElementsMatch(t, []string{"notify-send", "ffplay"}, runner.names())
}

func TestNotifySwallowsDeliveryErrors(t *testing.T) {
	runner := &fakeRunner{err: errors.New("dbus unavailable")}
	m := newTestManager(Options{Desktop: true}, map[string]bool{"notify-send": true}, runner)
	m.RequestPermission()

	assert.NoError(t, m.Notify(context.Background(), Alert{Title: "t"}))
	m.Wait()
	assert.Len(t, runner.names(), 1)
}

func TestPermissionDecidedOnce(t *testing.T) {
	available := map[string]bool{}
	m := newTestManager(Options{Desktop: true}, available, &fakeRunner{})
	assert.Equal(t, PermissionDenied, m.RequestPermission())

	available["notify-send"] = true
	assert.Equal(t, PermissionDenied, m.RequestPermission())
}

func TestHistoryIsBounded(t *testing.T) {
	m := newTestManager(Options{MaxHistory: 2}, nil, &fakeRunner{})
	for _, title := range []string{"a", "b", "c"} {
		require.NoError(t, m.Notify(context.Background(), Alert{Title: title}))
	}

	h := m.History(0)
	require.Len(t, h, 2)
	assert.Equal(t, "b", h[0].Title)
	assert.Equal(t, "c", h[1].Title)
	assert.Equal(t, 2, m.UnreadCount())

	m.MarkAllAsRead()
	assert.Zero(t, m.UnreadCount())
}
