// Package app is the single owner of the dashboard state. Every user
// action and timer tick is a transition method on App.
package app

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"convertit/internal/followup"
	"convertit/internal/gateway"
	"convertit/internal/geo"
	"convertit/internal/leads"
	"convertit/internal/live"
	"convertit/internal/logging"
	"convertit/internal/notify"
	"convertit/internal/prompt"
	"convertit/internal/ratelimit"
	"convertit/internal/store"
)

// Gateway is the generative backend.
type Gateway interface {
	Text(ctx context.Context, p string, opts ...gateway.TextOption) (string, error)
	Speech(ctx context.Context, text string) (*gateway.Speech, error)
	Image(ctx context.Context, p string) (*gateway.Image, error)
	Search(ctx context.Context, q prompt.LeadQuery, pos geo.LatLng) (*gateway.SearchResult, error)
}

// VoiceSession is the live outreach call.
type VoiceSession interface {
	Toggle(ctx context.Context, leadName string) error
	Stop()
	State() live.State
	Transcript() string
	OnChange(fn func(live.State))
}

// Notifier shows follow-up alerts.
type Notifier interface {
	notify.Notifier
	RequestPermission() notify.Permission
	SetOnNotify(fn func(notify.Alert))
	History(limit int) []notify.Alert
	UnreadCount() int
	MarkAllAsRead()
}

// SpeechPlayer plays synthesized speech.
type SpeechPlayer interface {
	Play(ctx context.Context, pcm []byte) error
}

// Persistence saves and restores snapshots.
type Persistence interface {
	Load(ctx context.Context) (store.Snapshot, error)
	Save(ctx context.Context, snap store.Snapshot) error
	Close() error
}

// Deps are the collaborators of App. Only Gateway is required.
type Deps struct {
	Gateway  Gateway
	Voice    VoiceSession
	Notifier Notifier
	Speaker  SpeechPlayer
	Locator  geo.Locator
	Store    Persistence
	Limiter  *ratelimit.Limiter // reported by Activity only
	Settings followup.Settings
	Interval time.Duration
	Fallback geo.LatLng
	OnChange func() // Called synchronously after every state change, outside the lock. Must not block
}

// App owns the State.
type App struct {
	mu    sync.Mutex
	state State

	gw        Gateway
	voice     VoiceSession
	notifier  Notifier
	speaker   SpeechPlayer
	locator   geo.Locator
	persist   Persistence
	limiter   *ratelimit.Limiter
	fallback  geo.LatLng
	followUps *followup.Store
	scheduler *followup.Scheduler
	onChange  func()

	ctx     context.Context
	cancel  context.CancelFunc
	tracker *GoroutineTracker

	signalCleanup func()
	shutdownMu    sync.Mutex
	shutdownHooks []shutdownHook
	shutdownOnce  sync.Once
	closeOnce     sync.Once
}

// New creates an App.
func New(deps Deps) *App {
	ctx, cancel := context.WithCancel(context.Background())
	fallback := deps.Fallback
	if fallback == (geo.LatLng{}) {
		fallback = geo.Fallback
	}

	a := &App{
		state:     initialState(deps.Settings),
		gw:        deps.Gateway,
		voice:     deps.Voice,
		notifier:  deps.Notifier,
		speaker:   deps.Speaker,
		locator:   deps.Locator,
		persist:   deps.Store,
		limiter:   deps.Limiter,
		fallback:  fallback,
		followUps: followup.NewStore(),
		onChange:  deps.OnChange,
		ctx:       ctx,
		cancel:    cancel,
		tracker:   NewGoroutineTracker(),
	}
	a.scheduler = followup.NewScheduler(a.followUps, deps.Interval, a.currentSettings, a.alert)
	if a.voice != nil {
		a.voice.OnChange(a.onVoiceChange)
	}
	return a
}

// OnAlert registers a callback for every follow-up alert, used for toasts.
func (a *App) OnAlert(fn func(notify.Alert)) {
	if a.notifier != nil {
		a.notifier.SetOnNotify(fn)
	}
}

// SetOnChange replaces the change callback.
func (a *App) SetOnChange(fn func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onChange = fn
}

// Start restores the snapshot, asks for notification permission and starts
// the follow-up scheduler.
func (a *App) Start() error {
	a.restore()
	if a.notifier != nil {
		perm := a.notifier.RequestPermission()
		logging.Debug("notification permission", "permission", perm)
	}
	return a.scheduler.Start()
}

// HandleSignals shuts the app down on SIGINT or SIGTERM.
func (a *App) HandleSignals() {
	a.signalCleanup = a.setupSignalHandler()
}

// Close stops background work, ends any voice session and flushes state.
// Only the first call does anything.
func (a *App) Close() error {
	var err error
	a.closeOnce.Do(func() {
		a.scheduler.Stop()
		if a.voice != nil {
			a.voice.Stop()
		}
		a.tracker.Close()
		a.cancel()
		if !a.tracker.WaitWithTimeout(GracefulShutdownTimeout) {
			logging.Warn("background work still running at shutdown")
		}
		a.save()
		if a.persist != nil {
			err = a.persist.Close()
		}
	})
	return err
}

// Snapshot returns a copy of the current state.
func (a *App) Snapshot() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	s := a.state.clone()
	s.FollowUps = a.followUps.List()
	return s
}

// update applies fn under the lock, then notifies and persists.
func (a *App) update(fn func(s *State)) {
	a.mu.Lock()
	fn(&a.state)
	onChange := a.onChange
	a.mu.Unlock()

	if onChange != nil {
		onChange()
	}
}

func (a *App) updateAndSave(fn func(s *State)) {
	a.update(fn)
	a.save()
}

// SelectSection switches screens.
func (a *App) SelectSection(section Section) {
	a.update(func(s *State) {
		s.Section = section
		if section == SectionConvertIt {
			s.Tool = ToolNone
		}
	})
}

// SelectTool opens a hub tool and clears the previous result.
func (a *App) SelectTool(tool Tool) {
	a.update(func(s *State) {
		s.Section = SectionConvertIt
		s.Tool = tool
		s.Output = ""
		s.Image = nil
		s.Error = ""
	})
}

// begin claims the generation flag.
func (a *App) begin() error {
	a.mu.Lock()
	if a.state.Generating {
		a.mu.Unlock()
		return ErrBusy
	}
	a.state.Generating = true
	a.state.Error = ""
	onChange := a.onChange
	a.mu.Unlock()
	if onChange != nil {
		onChange()
	}
	return nil
}

// end releases the generation flag and applies the result.
func (a *App) end(err error, apply func(s *State)) {
	a.update(func(s *State) {
		s.Generating = false
		if err != nil {
			s.Error = gateway.UserMessage(err)
			return
		}
		if apply != nil {
			apply(s)
		}
	})
}

// ToolRequest is one run of a hub tool.
type ToolRequest struct {
	Tool  Tool
	Input string
	From  string // Units and docs only
	To    string
}

// RunTool runs a hub tool and stores its result.
func (a *App) RunTool(ctx context.Context, req ToolRequest) error {
	blank := strings.TrimSpace(req.Input) == ""
	switch req.Tool {
	case ToolTTS, ToolStory, ToolUnits, ToolDocs:
		if blank {
			return ErrEmptyInput
		}
	case ToolImages, ToolLogo:
		// The branding brief alone is a valid prompt.
	default:
		return ErrUnknownTool
	}

	if err := a.begin(); err != nil {
		return err
	}

	switch req.Tool {
	case ToolUnits:
		return a.runText(ctx, prompt.UnitConversion(req.Input, req.From, req.To))
	case ToolDocs:
		return a.runText(ctx, prompt.DocConversion(req.Input, req.From, req.To))
	case ToolStory:
		return a.runText(ctx, prompt.Story(req.Input))
	case ToolTTS:
		return a.runSpeech(ctx, req.Input)
	default:
		img, err := a.gw.Image(ctx, prompt.Logo(req.Input))
		a.end(err, func(s *State) {
			if img != nil {
				s.Image = img
			}
		})
		return err
	}
}

func (a *App) runText(ctx context.Context, p string) error {
	out, err := a.gw.Text(ctx, p)
	a.end(err, func(s *State) { s.Output = out })
	return err
}

func (a *App) runSpeech(ctx context.Context, text string) error {
	speech, err := a.gw.Speech(ctx, text)
	a.end(err, func(s *State) { s.Speech = speech })
	if err != nil || speech == nil || a.speaker == nil {
		return err
	}
	a.goTracked(func(ctx context.Context) {
		if err := a.speaker.Play(ctx, speech.PCM); err != nil {
			logging.Debug("speech playback failed", "error", err)
		}
	})
	return nil
}

// GenerateBrandLogo renders the deal closer's brand logo.
func (a *App) GenerateBrandLogo(ctx context.Context) error {
	if err := a.begin(); err != nil {
		return err
	}
	img, err := a.gw.Image(ctx, prompt.Logo(prompt.BrandLogoDirective))
	a.end(err, func(s *State) {
		if img != nil {
			s.BrandLogo = img
		}
	})
	return err
}

// FindLeads runs a grounded search and replaces the lead list.
func (a *App) FindLeads(ctx context.Context, q prompt.LeadQuery) error {
	if strings.TrimSpace(q.Query) == "" {
		return ErrEmptyInput
	}
	if err := a.begin(); err != nil {
		return err
	}

	pos := geo.Resolve(ctx, a.locator, a.fallback)
	result, err := a.gw.Search(ctx, q, pos)
	a.end(err, func(s *State) {
		s.Leads = leads.FromGrounding(result.References)
		s.Output = result.Text
	})
	if err == nil {
		a.save()
	}
	return err
}

// ScheduleFollowUp adds a follow-up for a listed lead.
func (a *App) ScheduleFollowUp(leadID string, due time.Time, kind followup.Kind) (followup.FollowUp, error) {
	a.mu.Lock()
	lead, ok := leads.Find(a.state.Leads, leadID)
	a.mu.Unlock()
	if !ok {
		return followup.FollowUp{}, ErrUnknownLead
	}

	f, err := a.followUps.Schedule(lead, due, kind)
	if err != nil {
		return f, err
	}
	a.updateAndSave(func(*State) {})
	return f, nil
}

// CompleteFollowUp marks a follow-up done.
func (a *App) CompleteFollowUp(id string) error {
	if err := a.followUps.Complete(id); err != nil {
		return err
	}
	a.updateAndSave(func(*State) {})
	return nil
}

// RemoveFollowUp deletes a follow-up.
func (a *App) RemoveFollowUp(id string) error {
	if err := a.followUps.Remove(id); err != nil {
		return err
	}
	a.updateAndSave(func(*State) {})
	return nil
}

// SendSupport posts a user message and appends the agent's answer. It is
// not gated by the generation flag.
func (a *App) SendSupport(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyInput
	}
	a.update(func(s *State) {
		s.SupportMessages = append(s.SupportMessages, newMessage(RoleUser, text))
		s.SupportPending = true
	})

	answer, err := a.gw.Text(ctx, text, gateway.WithSystemInstruction(prompt.SupportInstruction))
	reply := answer
	switch {
	case err != nil:
		logging.Warn("support chat failed", "error", err)
		reply = SupportFailure
	case strings.TrimSpace(answer) == "":
		reply = SupportEmptyAnswer
	}

	a.updateAndSave(func(s *State) {
		s.SupportMessages = append(s.SupportMessages, newMessage(RoleAssistant, reply))
		s.SupportPending = false
	})
	return nil
}

func newMessage(role Role, text string) SupportMessage {
	return SupportMessage{
		ID:        uuid.NewString(),
		Role:      role,
		Text:      text,
		CreatedAt: time.Now(),
	}
}

// ToggleVoiceOutreach starts or stops the live call. Failures only return
// the call to idle; they are never shown as an error.
func (a *App) ToggleVoiceOutreach(ctx context.Context, leadName string) {
	if a.voice == nil {
		return
	}
	if !a.voice.State().Active() {
		a.update(func(s *State) { s.LiveLead = leadName })
	}
	if err := a.voice.Toggle(ctx, leadName); err != nil {
		logging.Warn("voice outreach failed", "error", err)
	}
	a.refreshVoice()
}

func (a *App) onVoiceChange(live.State) {
	a.refreshVoice()
}

func (a *App) refreshVoice() {
	if a.voice == nil {
		return
	}
	state := a.voice.State()
	transcript := a.voice.Transcript()
	a.update(func(s *State) {
		s.Live = state
		s.LiveTranscript = transcript
		if !state.Active() {
			s.LiveLead = ""
		}
	})
}

// RefreshTranscript copies the running transcript into the state.
func (a *App) RefreshTranscript() {
	if a.voice == nil || !a.voice.State().Active() {
		return
	}
	a.refreshVoice()
}

// SetNotifications toggles follow-up alerts.
func (a *App) SetNotifications(enabled bool) {
	a.updateAndSave(func(s *State) { s.Settings.NotificationsEnabled = enabled })
}

// SetSound toggles the alert chime.
func (a *App) SetSound(enabled bool) {
	a.updateAndSave(func(s *State) { s.Settings.SoundEnabled = enabled })
}

// SetLeadTime changes how early alerts fire. It applies from the next sweep,
// including to follow-ups scheduled earlier.
func (a *App) SetLeadTime(d time.Duration) {
	if d < 0 {
		d = 0
	}
	a.updateAndSave(func(s *State) { s.Settings.LeadTime = d })
}

// ApplySettings replaces all settings, used on config reload.
func (a *App) ApplySettings(settings followup.Settings) {
	a.updateAndSave(func(s *State) { s.Settings = settings })
}

func (a *App) currentSettings() followup.Settings {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state.Settings
}

// Sweep runs one follow-up sweep now.
func (a *App) Sweep(now time.Time) []followup.FollowUp {
	return a.scheduler.RunOnce(now)
}

// alert is the scheduler's notify callback.
func (a *App) alert(f followup.FollowUp, settings followup.Settings) {
	if a.notifier != nil {
		if err := a.notifier.Notify(a.ctx, notify.FollowUpAlert(f, settings.SoundEnabled)); err != nil {
			logging.Debug("follow-up alert failed", "id", f.ID, "error", err)
		}
	}
	a.updateAndSave(func(*State) {})
}

func (a *App) goTracked(fn func(ctx context.Context)) {
	if !a.tracker.Add() {
		return
	}
	go func() {
		defer a.tracker.Done()
		fn(a.ctx)
	}()
}

func (a *App) restore() {
	if a.persist == nil {
		return
	}
	snap, err := a.persist.Load(a.ctx)
	if err != nil {
		LogIgnoredError("restore snapshot", err)
		return
	}
	a.followUps.Replace(snap.FollowUps)
	a.update(func(s *State) {
		s.Leads = snap.Leads
		if len(snap.Messages) > 0 {
			s.SupportMessages = s.SupportMessages[:0]
			for _, m := range snap.Messages {
				s.SupportMessages = append(s.SupportMessages, SupportMessage{
					ID: m.ID, Role: Role(m.Role), Text: m.Text, CreatedAt: m.CreatedAt,
				})
			}
		}
		if snap.Settings != nil {
			s.Settings = *snap.Settings
		}
	})
}

func (a *App) save() {
	if a.persist == nil {
		return
	}
	a.mu.Lock()
	settings := a.state.Settings
	snap := store.Snapshot{
		Leads:    append([]leads.Lead(nil), a.state.Leads...),
		Settings: &settings,
	}
	for _, m := range a.state.SupportMessages {
		snap.Messages = append(snap.Messages, store.Message{
			ID: m.ID, Role: string(m.Role), Text: m.Text, CreatedAt: m.CreatedAt,
		})
	}
	a.mu.Unlock()
	snap.FollowUps = a.followUps.List()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	LogIgnoredError("save snapshot", a.persist.Save(ctx, snap))
}
