package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"convertit/internal/followup"
	"convertit/internal/gateway"
	"convertit/internal/geo"
	"convertit/internal/leads"
	"convertit/internal/live"
	"convertit/internal/notify"
	"convertit/internal/prompt"
	"convertit/internal/ratelimit"
	"convertit/internal/store"
)

type fakeGateway struct {
	mu      sync.Mutex
	prompts []string
	systems []string
	pos     geo.LatLng

	text   string
	err    error
	image  *gateway.Image
	speech *gateway.Speech
	search *gateway.SearchResult
	block  chan struct{}
}

func (f *fakeGateway) record(p string) {
	f.mu.Lock()
	f.prompts = append(f.prompts, p)
	f.mu.Unlock()
	if f.block != nil {
		<-f.block
	}
}

func (f *fakeGateway) Text(_ context.Context, p string, opts ...gateway.TextOption) (string, error) {
	f.record(p)
	if len(opts) > 0 {
		f.mu.Lock()
		f.systems = append(f.systems, p)
		f.mu.Unlock()
	}
	return f.text, f.err
}

func (f *fakeGateway) Speech(_ context.Context, text string) (*gateway.Speech, error) {
	f.record(text)
	return f.speech, f.err
}

func (f *fakeGateway) Image(_ context.Context, p string) (*gateway.Image, error) {
	f.record(p)
	return f.image, f.err
}

func (f *fakeGateway) Search(_ context.Context, q prompt.LeadQuery, pos geo.LatLng) (*gateway.SearchResult, error) {
	f.record(q.Query)
	f.mu.Lock()
	f.pos = pos
	f.mu.Unlock()
	return f.search, f.err
}

func (f *fakeGateway) lastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.prompts) == 0 {
		return ""
	}
	return f.prompts[len(f.prompts)-1]
}

type fakeVoice struct {
	mu       sync.Mutex
	state    live.State
	lead     string
	err      error
	onChange func(live.State)
}

func (f *fakeVoice) Toggle(_ context.Context, leadName string) error {
	f.mu.Lock()
	if f.state.Active() {
		f.state = live.StateIdle
	} else if f.err == nil {
		f.state = live.StateOpen
		f.lead = leadName
	}
	err := f.err
	f.mu.Unlock()
	return err
}

func (f *fakeVoice) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = live.StateIdle
}

func (f *fakeVoice) State() live.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeVoice) Transcript() string {
	if f.State().Active() {
		return "Hello there"
	}
	return ""
}

func (f *fakeVoice) OnChange(fn func(live.State)) { f.onChange = fn }

type fakeNotifier struct {
	mu     sync.Mutex
	alerts []notify.Alert
	asked  bool
}

func (f *fakeNotifier) Notify(_ context.Context, a notify.Alert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts = append(f.alerts, a)
	return errors.New("desktop unavailable")
}

func (f *fakeNotifier) RequestPermission() notify.Permission {
	f.asked = true
	return notify.PermissionGranted
}

func (f *fakeNotifier) SetOnNotify(func(notify.Alert)) {}

func (f *fakeNotifier) History(limit int) []notify.Alert {
	f.mu.Lock()
	defer f.mu.Unlock()
	if limit > len(f.alerts) {
		limit = len(f.alerts)
	}
	return append([]notify.Alert(nil), f.alerts[len(f.alerts)-limit:]...)
}

func (f *fakeNotifier) UnreadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, a := range f.alerts {
		if !a.Read {
			n++
		}
	}
	return n
}

func (f *fakeNotifier) MarkAllAsRead() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.alerts {
		f.alerts[i].Read = true
	}
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.alerts)
}

type memoryStore struct {
	mu    sync.Mutex
	snap  store.Snapshot
	saves int
}

func (m *memoryStore) Load(context.Context) (store.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap, nil
}

func (m *memoryStore) Save(_ context.Context, snap store.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap = snap
	m.saves++
	return nil
}

func (m *memoryStore) Close() error { return nil }

func newTestApp(t *testing.T, gw *fakeGateway) *App {
	t.Helper()
	a := New(Deps{
		Gateway:  gw,
		Settings: followup.Settings{NotificationsEnabled: true, SoundEnabled: true},
	})
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestInitialState(t *testing.T) {
	a := newTestApp(t, &fakeGateway{})
	s := a.Snapshot()

	assert.Equal(t, SectionDealCloser, s.Section)
	assert.Equal(t, ToolNone, s.Tool)
	require.Len(t, s.SupportMessages, 1)
	assert.Equal(t, RoleAssistant, s.SupportMessages[0].Role)
	assert.Equal(t, SupportGreeting, s.SupportMessages[0].Text)
	assert.Equal(t, live.StateIdle, s.Live)
}

func TestSelectToolClearsResult(t *testing.T) {
	gw := &fakeGateway{text: "2.2046 lb"}
	a := newTestApp(t, gw)

	require.NoError(t, a.RunTool(context.Background(), ToolRequest{Tool: ToolUnits, Input: "1", From: "kg", To: "lb"}))
	assert.Equal(t, "2.2046 lb", a.Snapshot().Output)

	a.SelectTool(ToolStory)
	s := a.Snapshot()
	assert.Equal(t, SectionConvertIt, s.Section)
	assert.Equal(t, ToolStory, s.Tool)
	assert.Empty(t, s.Output)
	assert.Nil(t, s.Image)
}

func TestSelectSectionHubResetsTool(t *testing.T) {
	a := newTestApp(t, &fakeGateway{})
	a.SelectTool(ToolDocs)
	a.SelectSection(SectionConvertIt)
	assert.Equal(t, ToolNone, a.Snapshot().Tool)
}

func TestRunToolPrompts(t *testing.T) {
	tests := []struct {
		name string
		req  ToolRequest
		want string
	}{
		{"units", ToolRequest{Tool: ToolUnits, Input: "5", From: "km", To: "mi"}, prompt.UnitConversion("5", "km", "mi")},
		{"docs", ToolRequest{Tool: ToolDocs, Input: "body"}, prompt.DocConversion("body", "", "")},
		{"story", ToolRequest{Tool: ToolStory, Input: "a dragon"}, prompt.Story("a dragon")},
		{"images", ToolRequest{Tool: ToolImages, Input: "blue"}, prompt.Logo("blue")},
		{"logo without brief", ToolRequest{Tool: ToolLogo}, prompt.Logo("")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := &fakeGateway{text: "ok", image: &gateway.Image{MIMEType: "image/png", Data: []byte("x")}}
			a := newTestApp(t, gw)
			require.NoError(t, a.RunTool(context.Background(), tt.req))
			assert.Equal(t, tt.want, gw.lastPrompt())
			assert.False(t, a.Snapshot().Generating)
		})
	}
}

func TestRunToolRejectsEmptyInput(t *testing.T) {
	gw := &fakeGateway{}
	a := newTestApp(t, gw)

	err := a.RunTool(context.Background(), ToolRequest{Tool: ToolStory, Input: "   "})
	assert.ErrorIs(t, err, ErrEmptyInput)
	assert.Empty(t, gw.lastPrompt())

	err = a.RunTool(context.Background(), ToolRequest{Tool: "fax"})
	assert.ErrorIs(t, err, ErrUnknownTool)
}

func TestRunToolImageKeepsPreviousWhenNoneReturned(t *testing.T) {
	gw := &fakeGateway{image: &gateway.Image{MIMEType: "image/png", Data: []byte("first")}}
	a := newTestApp(t, gw)
	require.NoError(t, a.RunTool(context.Background(), ToolRequest{Tool: ToolImages}))

	gw.image = nil
	require.NoError(t, a.RunTool(context.Background(), ToolRequest{Tool: ToolImages}))
	require.NotNil(t, a.Snapshot().Image)
	assert.Equal(t, []byte("first"), a.Snapshot().Image.Data)
}

func TestRunToolErrorShowsUserMessage(t *testing.T) {
	gw := &fakeGateway{err: &gateway.Error{Op: "text", Kind: gateway.KindRateLimit, Err: errors.New("429")}}
	a := newTestApp(t, gw)

	err := a.RunTool(context.Background(), ToolRequest{Tool: ToolStory, Input: "idea"})
	require.Error(t, err)

	s := a.Snapshot()
	assert.False(t, s.Generating)
	assert.Equal(t, gateway.UserMessage(err), s.Error)
	assert.NotEmpty(t, s.Error)
}

func TestGenerationIsExclusive(t *testing.T) {
	gw := &fakeGateway{text: "done", block: make(chan struct{})}
	a := newTestApp(t, gw)

	errc := make(chan error, 1)
	go func() {
		errc <- a.RunTool(context.Background(), ToolRequest{Tool: ToolStory, Input: "one"})
	}()
	require.Eventually(t, func() bool { return a.Snapshot().Generating }, time.Second, 5*time.Millisecond)

	err := a.RunTool(context.Background(), ToolRequest{Tool: ToolStory, Input: "two"})
	assert.ErrorIs(t, err, ErrBusy)
	assert.ErrorIs(t, a.GenerateBrandLogo(context.Background()), ErrBusy)

	close(gw.block)
	require.NoError(t, <-errc)
	assert.Equal(t, "done", a.Snapshot().Output)
}

func TestSpeechIsStored(t *testing.T) {
	gw := &fakeGateway{speech: &gateway.Speech{PCM: []byte{1, 0}, SampleRate: 24000}}
	a := newTestApp(t, gw)

	require.NoError(t, a.RunTool(context.Background(), ToolRequest{Tool: ToolTTS, Input: "hi"}))
	require.NotNil(t, a.Snapshot().Speech)
	assert.Equal(t, 24000, a.Snapshot().Speech.SampleRate)
}

func TestGenerateBrandLogo(t *testing.T) {
	gw := &fakeGateway{image: &gateway.Image{MIMEType: "image/png", Data: []byte("logo")}}
	a := newTestApp(t, gw)

	require.NoError(t, a.GenerateBrandLogo(context.Background()))
	assert.Equal(t, prompt.Logo(prompt.BrandLogoDirective), gw.lastPrompt())
	require.NotNil(t, a.Snapshot().BrandLogo)
}

func TestFindLeadsUsesFallbackPosition(t *testing.T) {
	gw := &fakeGateway{search: &gateway.SearchResult{
		Text:       "Found two.",
		References: []leads.Reference{{Title: "Acme", URI: "https://maps/acme"}, {}},
	}}
	a := newTestApp(t, gw)

	require.NoError(t, a.FindLeads(context.Background(), prompt.LeadQuery{Query: "dentists"}))

	s := a.Snapshot()
	require.Len(t, s.Leads, 2)
	assert.Equal(t, "Acme", s.Leads[0].Name)
	assert.Equal(t, leads.DefaultName, s.Leads[1].Name)
	assert.Equal(t, "Found two.", s.Output)
	assert.Equal(t, geo.Fallback, gw.pos)
}

func TestFindLeadsUsesLocator(t *testing.T) {
	gw := &fakeGateway{search: &gateway.SearchResult{}}
	here := geo.LatLng{Latitude: 51.5, Longitude: -0.12}
	a := New(Deps{Gateway: gw, Locator: geo.StaticLocator(here)})
	t.Cleanup(func() { _ = a.Close() })

	require.NoError(t, a.FindLeads(context.Background(), prompt.LeadQuery{Query: "cafes"}))
	assert.Equal(t, here, gw.pos)
}

func TestFindLeadsEmptyQuery(t *testing.T) {
	a := newTestApp(t, &fakeGateway{})
	assert.ErrorIs(t, a.FindLeads(context.Background(), prompt.LeadQuery{Query: " "}), ErrEmptyInput)
}

func withLead(t *testing.T, a *App, gw *fakeGateway) leads.Lead {
	t.Helper()
	gw.search = &gateway.SearchResult{References: []leads.Reference{{Title: "Acme", URI: "u"}}}
	require.NoError(t, a.FindLeads(context.Background(), prompt.LeadQuery{Query: "acme"}))
	return a.Snapshot().Leads[0]
}

func TestFollowUpLifecycle(t *testing.T) {
	gw := &fakeGateway{}
	a := newTestApp(t, gw)
	lead := withLead(t, a, gw)

	_, err := a.ScheduleFollowUp("missing", time.Now(), followup.KindManual)
	assert.ErrorIs(t, err, ErrUnknownLead)

	f, err := a.ScheduleFollowUp(lead.ID, time.Now().Add(time.Hour), followup.KindAutomatedCall)
	require.NoError(t, err)
	assert.Equal(t, "Acme", f.LeadName)
	require.Len(t, a.Snapshot().FollowUps, 1)

	require.NoError(t, a.CompleteFollowUp(f.ID))
	assert.Equal(t, followup.StatusCompleted, a.Snapshot().FollowUps[0].Status)

	require.NoError(t, a.RemoveFollowUp(f.ID))
	assert.Empty(t, a.Snapshot().FollowUps)
	assert.ErrorIs(t, a.RemoveFollowUp(f.ID), followup.ErrNotFound)
}

func TestSweepAlertsOnceAndSwallowsFailure(t *testing.T) {
	gw := &fakeGateway{}
	n := &fakeNotifier{}
	a := New(Deps{Gateway: gw, Notifier: n, Settings: followup.Settings{NotificationsEnabled: true}})
	t.Cleanup(func() { _ = a.Close() })
	lead := withLead(t, a, gw)

	due := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	_, err := a.ScheduleFollowUp(lead.ID, due, followup.KindManual)
	require.NoError(t, err)

	assert.Empty(t, a.Sweep(due.Add(-time.Second)))
	assert.Len(t, a.Sweep(due), 1)
	assert.Empty(t, a.Sweep(due.Add(time.Minute)))
	assert.Equal(t, 1, n.count())
	assert.True(t, a.Snapshot().FollowUps[0].AlertFired)
	assert.False(t, n.alerts[0].Sound)
}

func TestLeadTimeAppliesToPendingFollowUps(t *testing.T) {
	gw := &fakeGateway{}
	n := &fakeNotifier{}
	a := New(Deps{Gateway: gw, Notifier: n, Settings: followup.Settings{NotificationsEnabled: true}})
	t.Cleanup(func() { _ = a.Close() })
	lead := withLead(t, a, gw)

	due := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	_, err := a.ScheduleFollowUp(lead.ID, due, followup.KindManual)
	require.NoError(t, err)

	a.SetLeadTime(15 * time.Minute)
	assert.Len(t, a.Sweep(due.Add(-15*time.Minute)), 1)
}

func TestNotificationsDisabledSkipsSweep(t *testing.T) {
	gw := &fakeGateway{}
	n := &fakeNotifier{}
	a := New(Deps{Gateway: gw, Notifier: n, Settings: followup.Settings{NotificationsEnabled: true}})
	t.Cleanup(func() { _ = a.Close() })
	lead := withLead(t, a, gw)

	due := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	_, err := a.ScheduleFollowUp(lead.ID, due, followup.KindManual)
	require.NoError(t, err)

	a.SetNotifications(false)
	assert.Empty(t, a.Sweep(due.Add(time.Hour)))
	assert.False(t, a.Snapshot().FollowUps[0].AlertFired)

	a.SetNotifications(true)
	assert.Len(t, a.Sweep(due.Add(time.Hour)), 1)
}

func TestActivity(t *testing.T) {
	gw := &fakeGateway{}
	n := &fakeNotifier{}
	limiter := ratelimit.NewLimiter(ratelimit.Config{Enabled: true, RequestsPerMinute: 60, BurstSize: 1})
	a := New(Deps{Gateway: gw, Notifier: n, Limiter: limiter, Settings: followup.Settings{NotificationsEnabled: true}})
	t.Cleanup(func() { _ = a.Close() })

	assert.False(t, a.Activity().Sweeping)
	require.NoError(t, a.Start())
	assert.True(t, a.Activity().Sweeping)

	lead := withLead(t, a, gw)
	due := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	_, err := a.ScheduleFollowUp(lead.ID, due, followup.KindManual)
	require.NoError(t, err)
	a.Sweep(due)
	require.NoError(t, limiter.Acquire(context.Background()))

	act := a.Activity()
	require.Len(t, act.RecentAlerts, 1)
	assert.Contains(t, act.RecentAlerts[0].Title, lead.Name)
	assert.Equal(t, 1, act.UnreadAlerts)
	assert.Equal(t, int64(1), act.RateLimit.TotalRequests)
	assert.True(t, act.RateLimit.Enabled)

	var changed int
	a.SetOnChange(func() { changed++ })
	a.MarkAlertsRead()
	assert.Zero(t, a.Activity().UnreadAlerts)
	assert.Equal(t, 1, changed)
}

func TestActivityWithoutCollaborators(t *testing.T) {
	a := newTestApp(t, &fakeGateway{})
	a.MarkAlertsRead()
	assert.Equal(t, Activity{}, a.Activity())
}

func TestSendSupport(t *testing.T) {
	tests := []struct {
		name string
		text string
		err  error
		want string
	}{
		{"answer", "We convert files.", nil, "We convert files."},
		{"empty answer", "  ", nil, SupportEmptyAnswer},
		{"failure", "", errors.New("boom"), SupportFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := &fakeGateway{text: tt.text, err: tt.err}
			a := newTestApp(t, gw)

			require.NoError(t, a.SendSupport(context.Background(), "what do you do?"))

			msgs := a.Snapshot().SupportMessages
			require.Len(t, msgs, 3)
			assert.Equal(t, RoleUser, msgs[1].Role)
			assert.Equal(t, "what do you do?", msgs[1].Text)
			assert.Equal(t, RoleAssistant, msgs[2].Role)
			assert.Equal(t, tt.want, msgs[2].Text)
			assert.False(t, a.Snapshot().SupportPending)
			assert.Len(t, gw.systems, 1)
		})
	}
}

func TestSendSupportIgnoresBlank(t *testing.T) {
	a := newTestApp(t, &fakeGateway{})
	assert.ErrorIs(t, a.SendSupport(context.Background(), "\n"), ErrEmptyInput)
	assert.Len(t, a.Snapshot().SupportMessages, 1)
}

func TestSupportIsNotGatedByGeneration(t *testing.T) {
	gw := &fakeGateway{text: "hi", block: make(chan struct{})}
	a := newTestApp(t, gw)

	go func() { _ = a.RunTool(context.Background(), ToolRequest{Tool: ToolStory, Input: "x"}) }()
	require.Eventually(t, func() bool { return a.Snapshot().Generating }, time.Second, 5*time.Millisecond)

	done := make(chan error, 1)
	go func() { done <- a.SendSupport(context.Background(), "hello") }()
	require.Eventually(t, func() bool { return a.Snapshot().SupportPending }, time.Second, 5*time.Millisecond)

	close(gw.block)
	require.NoError(t, <-done)
}

func TestToggleVoiceOutreach(t *testing.T) {
	v := &fakeVoice{}
	a := New(Deps{Gateway: &fakeGateway{}, Voice: v})
	t.Cleanup(func() { _ = a.Close() })

	a.ToggleVoiceOutreach(context.Background(), "Acme")
	s := a.Snapshot()
	assert.Equal(t, live.StateOpen, s.Live)
	assert.Equal(t, "Acme", s.LiveLead)
	assert.Equal(t, "Hello there", s.LiveTranscript)
	assert.Equal(t, "Acme", v.lead)

	a.ToggleVoiceOutreach(context.Background(), "Acme")
	s = a.Snapshot()
	assert.Equal(t, live.StateIdle, s.Live)
	assert.Empty(t, s.LiveLead)
	assert.Empty(t, s.LiveTranscript)
}

func TestToggleVoiceOutreachFailureReturnsToIdle(t *testing.T) {
	v := &fakeVoice{err: live.ErrStartFailed}
	a := New(Deps{Gateway: &fakeGateway{}, Voice: v})
	t.Cleanup(func() { _ = a.Close() })

	a.ToggleVoiceOutreach(context.Background(), "Acme")
	s := a.Snapshot()
	assert.Equal(t, live.StateIdle, s.Live)
	assert.Empty(t, s.Error)
}

func TestSettingsAreApplied(t *testing.T) {
	a := newTestApp(t, &fakeGateway{})

	a.SetSound(false)
	a.SetLeadTime(-time.Minute)
	assert.False(t, a.Snapshot().Settings.SoundEnabled)
	assert.Zero(t, a.Snapshot().Settings.LeadTime)

	a.ApplySettings(followup.Settings{NotificationsEnabled: false, SoundEnabled: true, LeadTime: 5 * time.Minute})
	s := a.Snapshot().Settings
	assert.False(t, s.NotificationsEnabled)
	assert.Equal(t, 5*time.Minute, s.LeadTime)
}

func TestSnapshotIsRestoredAndSaved(t *testing.T) {
	saved := followup.Settings{NotificationsEnabled: false, SoundEnabled: false, LeadTime: time.Minute}
	mem := &memoryStore{snap: store.Snapshot{
		Leads:    []leads.Lead{{ID: "l1", Name: "Acme"}},
		Messages: []store.Message{{ID: "1", Role: "assistant", Text: SupportGreeting}, {ID: "2", Role: "user", Text: "hi"}},
		Settings: &saved,
	}}
	n := &fakeNotifier{}
	a := New(Deps{Gateway: &fakeGateway{}, Store: mem, Notifier: n})
	require.NoError(t, a.Start())
	assert.True(t, n.asked)

	s := a.Snapshot()
	require.Len(t, s.Leads, 1)
	assert.Len(t, s.SupportMessages, 2)
	assert.Equal(t, saved, s.Settings)

	_, err := a.ScheduleFollowUp("l1", time.Now().Add(time.Hour), followup.KindManual)
	require.NoError(t, err)
	require.NoError(t, a.Close())

	assert.Len(t, mem.snap.FollowUps, 1)
	assert.Positive(t, mem.saves)
}

func TestOnChangeIsCalled(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	a := New(Deps{Gateway: &fakeGateway{}, OnChange: func() {
		mu.Lock()
		calls++
		mu.Unlock()
	}})
	t.Cleanup(func() { _ = a.Close() })

	a.SelectSection(SectionSupport)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, calls)
}

func TestStats(t *testing.T) {
	s := State{
		Leads: []leads.Lead{{ID: "a"}, {ID: "b"}, {ID: "c"}},
		FollowUps: []followup.FollowUp{
			{Status: followup.StatusPending},
			{Status: followup.StatusCompleted},
		},
	}
	assert.Equal(t, PipelineStats{Valuation: 9000, Pipeline: 3, Pending: 1}, s.Stats())
}
