package ui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"convertit/internal/app"
	"convertit/internal/audio"
	"convertit/internal/fileutil"
	"convertit/internal/followup"
	"convertit/internal/highlight"
	"convertit/internal/notify"
	"convertit/internal/prompt"
)

// Controller is the part of the App the dashboard drives.
type Controller interface {
	Snapshot() app.State
	SelectSection(section app.Section)
	SelectTool(tool app.Tool)
	RunTool(ctx context.Context, req app.ToolRequest) error
	GenerateBrandLogo(ctx context.Context) error
	FindLeads(ctx context.Context, q prompt.LeadQuery) error
	ScheduleFollowUp(leadID string, due time.Time, kind followup.Kind) (followup.FollowUp, error)
	CompleteFollowUp(id string) error
	RemoveFollowUp(id string) error
	SendSupport(ctx context.Context, text string) error
	ToggleVoiceOutreach(ctx context.Context, leadName string)
	RefreshTranscript()
	SetNotifications(enabled bool)
	SetSound(enabled bool)
	SetLeadTime(d time.Duration)
	Activity() app.Activity
	MarkAlertsRead()
}

// resultMsg reports the end of an asynchronous action.
type resultMsg struct {
	action string
	notice string
	err    error
}

// DocFormats are the document formats offered by the converter.
var DocFormats = []string{"Word", "PDF", "TXT", "Markdown"}

// LeadTimeSteps are the reminder lead times offered in settings.
var LeadTimeSteps = []time.Duration{0, 5 * time.Minute, 10 * time.Minute, 15 * time.Minute, 30 * time.Minute, time.Hour}

type dealPane int

const (
	paneLeads dealPane = iota
	paneFollowUps
)

const (
	settingNotifications = iota
	settingSound
	settingLeadTime
	settingCount
)

// Options configures the dashboard.
type Options struct {
	MarkdownRendering bool
	HighlightStyle    string
}

// Model is the dashboard.
type Model struct {
	ctrl   Controller
	styles *Styles
	state  app.State
	ctx    context.Context
	cancel context.CancelFunc

	width  int
	height int

	spinner     spinner.Model
	toasts      *ToastManager
	markdown    *glamour.TermRenderer
	highlighter *highlight.Highlighter
	useMarkdown bool

	editing bool

	// ConvertIt hub
	toolCursor int
	hubFocus   int
	unitFrom   textinput.Model
	unitTo     textinput.Model
	docFrom    int
	docTo      int
	body       textarea.Model

	// Deal closer
	search       []textinput.Model
	searchFocus  int
	pane         dealPane
	leadCursor   int
	followCursor int
	scheduling   bool
	scheduleLead string
	schedule     []textinput.Model
	schedFocus   int
	schedKind    followup.Kind

	// Support
	supportInput textinput.Model
	supportView  viewport.Model

	// Settings
	settingsCursor int
	activity       app.Activity

	changed chan struct{}
	alerts  chan notify.Alert

	copy      func(string) error
	writeFile func(name string, data []byte, perm os.FileMode) error
	now       func() time.Time
}

// NewModel creates the dashboard over ctrl.
func NewModel(ctrl Controller, opts Options) *Model {
	styles := DefaultStyles()
	if runtime.GOOS == "darwin" {
		styles.ApplyTheme(ThemeMacOS)
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.Spinner

	ctx, cancel := context.WithCancel(context.Background())

	m := &Model{
		ctrl:        ctrl,
		styles:      styles,
		state:       ctrl.Snapshot(),
		ctx:         ctx,
		cancel:      cancel,
		spinner:     s,
		toasts:      NewToastManager(),
		highlighter: highlight.New(opts.HighlightStyle),
		useMarkdown: opts.MarkdownRendering,
		docFrom:     0,
		docTo:       1,
		schedKind:   followup.KindManual,
		changed:     make(chan struct{}, 1),
		alerts:      make(chan notify.Alert, alertBacklog),
		copy:        clipboard.WriteAll,
		writeFile:   fileutil.WriteFile,
		now:         time.Now,
	}
	if opts.MarkdownRendering {
		if r, err := glamour.NewTermRenderer(glamour.WithStandardStyle("dark"), glamour.WithWordWrap(80)); err == nil {
			m.markdown = r
		}
	}

	m.unitFrom = newInput("From (lb, m, usd)")
	m.unitTo = newInput("To (kg, ft, eur)")
	m.body = textarea.New()
	m.body.ShowLineNumbers = false
	m.body.SetHeight(5)

	m.search = []textinput.Model{
		newInput("Search global business entities..."),
		newInput("Industry (optional)"),
		newInput("Location (optional)"),
		newInput("Company size (optional)"),
	}
	m.schedule = []textinput.Model{
		newInput("YYYY-MM-DD"),
		newInput("HH:MM"),
	}
	m.supportInput = newInput("Type your question...")
	m.supportView = viewport.New(80, 12)
	return m
}

func newInput(placeholder string) textinput.Model {
	in := textinput.New()
	in.Placeholder = placeholder
	in.CharLimit = 500
	in.Width = 40
	return in
}

// Init starts the spinner, the refresh tick and the App event feed.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, refreshTick(), m.waitForEvent())
}

// Close cancels in-flight actions.
func (m *Model) Close() {
	m.cancel()
}

// Update handles events.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case refreshMsg:
		m.toasts.Update()
		if m.state.Live.Active() {
			m.ctrl.RefreshTranscript()
		}
		m.refresh()
		return m, refreshTick()

	case changedMsg:
		m.refresh()
		return m, m.waitForEvent()

	case alertMsg:
		m.toasts.ShowAlert(notify.Alert(msg))
		m.refresh()
		return m, m.waitForEvent()

	case resultMsg:
		m.refresh()
		switch {
		case msg.err == nil:
			if msg.notice != "" {
				m.toasts.ShowSuccess(msg.notice)
			}
		case errors.Is(msg.err, app.ErrBusy):
			m.toasts.ShowInfo("Still processing the previous request")
		case errors.Is(msg.err, app.ErrEmptyInput):
			// Blank prompts are ignored.
		case m.state.Error == "":
			m.toasts.ShowError(msg.err.Error())
		}
		return m, nil

	case tea.KeyMsg:
		return m, m.handleKey(msg)
	}
	return m, m.updateFocused(msg)
}

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	inputWidth := max(20, width-12)
	for i := range m.search {
		m.search[i].Width = inputWidth
	}
	m.unitFrom.Width = inputWidth / 2
	m.unitTo.Width = inputWidth / 2
	m.supportInput.Width = inputWidth
	m.body.SetWidth(max(20, width-8))
	m.supportView.Width = max(20, width-4)
	m.supportView.Height = max(5, height-12)
	m.refreshSupport()
	if m.useMarkdown {
		if r, err := glamour.NewTermRenderer(glamour.WithStandardStyle("dark"), glamour.WithWordWrap(max(40, width-8))); err == nil {
			m.markdown = r
		}
	}
}

func (m *Model) refresh() {
	m.state = m.ctrl.Snapshot()
	m.activity = m.ctrl.Activity()
	if m.leadCursor >= len(m.state.Leads) {
		m.leadCursor = max(0, len(m.state.Leads)-1)
	}
	if m.followCursor >= len(m.state.FollowUps) {
		m.followCursor = max(0, len(m.state.FollowUps)-1)
	}
	m.refreshSupport()
}

func (m *Model) refreshSupport() {
	m.supportView.SetContent(m.renderSupportMessages())
	m.supportView.GotoBottom()
}

// run executes fn off the UI goroutine and reports back with a resultMsg.
func (m *Model) run(action, notice string, fn func(ctx context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		err := fn(ctx)
		return resultMsg{action: action, notice: notice, err: err}
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	if msg.String() == "ctrl+c" {
		m.cancel()
		return tea.Quit
	}
	if m.editing {
		return m.handleEditingKey(msg)
	}

	switch msg.String() {
	case "q":
		m.cancel()
		return tea.Quit
	case "1", "2", "3", "4":
		section := app.Sections[int(msg.String()[0]-'1')]
		m.ctrl.SelectSection(section)
		m.refresh()
		return nil
	}

	switch m.state.Section {
	case app.SectionConvertIt:
		return m.handleHubKey(msg)
	case app.SectionDealCloser:
		return m.handleDealKey(msg)
	case app.SectionSupport:
		return m.handleSupportKey(msg)
	case app.SectionSettings:
		return m.handleSettingsKey(msg)
	}
	return nil
}

func (m *Model) handleEditingKey(msg tea.KeyMsg) tea.Cmd {
	if msg.String() == "esc" {
		m.stopEditing()
		return nil
	}

	switch m.state.Section {
	case app.SectionConvertIt:
		return m.handleHubEditKey(msg)
	case app.SectionDealCloser:
		if m.scheduling {
			return m.handleScheduleEditKey(msg)
		}
		return m.handleSearchEditKey(msg)
	case app.SectionSupport:
		if msg.String() == "enter" {
			text := m.supportInput.Value()
			if strings.TrimSpace(text) == "" {
				return nil
			}
			m.supportInput.Reset()
			return m.run("support", "", func(ctx context.Context) error {
				return m.ctrl.SendSupport(ctx, text)
			})
		}
	}
	return m.updateFocused(msg)
}

func (m *Model) stopEditing() {
	m.editing = false
	m.scheduling = false
	m.unitFrom.Blur()
	m.unitTo.Blur()
	m.body.Blur()
	for i := range m.search {
		m.search[i].Blur()
	}
	for i := range m.schedule {
		m.schedule[i].Blur()
	}
	m.supportInput.Blur()
}

// updateFocused forwards msg to whichever input has focus.
func (m *Model) updateFocused(msg tea.Msg) tea.Cmd {
	if !m.editing {
		if m.state.Section == app.SectionSupport {
			var cmd tea.Cmd
			m.supportView, cmd = m.supportView.Update(msg)
			return cmd
		}
		return nil
	}

	var cmd tea.Cmd
	switch m.state.Section {
	case app.SectionConvertIt:
		switch m.hubField() {
		case fieldUnitFrom:
			m.unitFrom, cmd = m.unitFrom.Update(msg)
		case fieldUnitTo:
			m.unitTo, cmd = m.unitTo.Update(msg)
		case fieldBody:
			m.body, cmd = m.body.Update(msg)
		}
	case app.SectionDealCloser:
		if m.scheduling {
			if m.schedFocus < len(m.schedule) {
				m.schedule[m.schedFocus], cmd = m.schedule[m.schedFocus].Update(msg)
			}
		} else {
			m.search[m.searchFocus], cmd = m.search[m.searchFocus].Update(msg)
		}
	case app.SectionSupport:
		m.supportInput, cmd = m.supportInput.Update(msg)
	}
	return cmd
}

// ---- ConvertIt hub ----

type hubField int

const (
	fieldUnitFrom hubField = iota
	fieldUnitTo
	fieldDocFrom
	fieldDocTo
	fieldBody
)

func hubFields(tool app.Tool) []hubField {
	switch tool {
	case app.ToolUnits:
		return []hubField{fieldUnitFrom, fieldUnitTo, fieldBody}
	case app.ToolDocs:
		return []hubField{fieldDocFrom, fieldDocTo, fieldBody}
	default:
		return []hubField{fieldBody}
	}
}

func (m *Model) hubField() hubField {
	fields := hubFields(m.state.Tool)
	if m.hubFocus >= len(fields) {
		m.hubFocus = 0
	}
	return fields[m.hubFocus]
}

func (m *Model) focusHubField() tea.Cmd {
	m.unitFrom.Blur()
	m.unitTo.Blur()
	m.body.Blur()
	switch m.hubField() {
	case fieldUnitFrom:
		return m.unitFrom.Focus()
	case fieldUnitTo:
		return m.unitTo.Focus()
	case fieldBody:
		return m.body.Focus()
	}
	return nil
}

func (m *Model) handleHubKey(msg tea.KeyMsg) tea.Cmd {
	if m.state.Tool == app.ToolNone {
		switch msg.String() {
		case "up", "k":
			m.toolCursor = (m.toolCursor + len(app.Tools) - 1) % len(app.Tools)
		case "down", "j":
			m.toolCursor = (m.toolCursor + 1) % len(app.Tools)
		case "enter":
			m.ctrl.SelectTool(app.Tools[m.toolCursor])
			m.refresh()
			m.body.Reset()
			m.hubFocus = len(hubFields(m.state.Tool)) - 1
			m.editing = true
			return m.focusHubField()
		}
		return nil
	}

	switch msg.String() {
	case "esc", "backspace":
		m.ctrl.SelectSection(app.SectionConvertIt)
		m.refresh()
	case "enter", "i":
		m.editing = true
		return m.focusHubField()
	case "ctrl+s", "r":
		return m.runTool()
	case "y":
		return m.copyOutput()
	case "s":
		return m.saveResult()
	}
	return nil
}

func (m *Model) handleHubEditKey(msg tea.KeyMsg) tea.Cmd {
	fields := hubFields(m.state.Tool)
	switch msg.String() {
	case "tab":
		m.hubFocus = (m.hubFocus + 1) % len(fields)
		return m.focusHubField()
	case "shift+tab":
		m.hubFocus = (m.hubFocus + len(fields) - 1) % len(fields)
		return m.focusHubField()
	case "ctrl+s":
		m.stopEditing()
		return m.runTool()
	case "left", "right":
		delta := 1
		if msg.String() == "left" {
			delta = len(DocFormats) - 1
		}
		switch m.hubField() {
		case fieldDocFrom:
			m.docFrom = (m.docFrom + delta) % len(DocFormats)
			return nil
		case fieldDocTo:
			m.docTo = (m.docTo + delta) % len(DocFormats)
			return nil
		}
	case "enter":
		if m.hubField() != fieldBody {
			m.hubFocus = (m.hubFocus + 1) % len(fields)
			return m.focusHubField()
		}
	}
	return m.updateFocused(msg)
}

func (m *Model) toolRequest() app.ToolRequest {
	req := app.ToolRequest{Tool: m.state.Tool, Input: m.body.Value()}
	switch m.state.Tool {
	case app.ToolUnits:
		req.From, req.To = m.unitFrom.Value(), m.unitTo.Value()
	case app.ToolDocs:
		req.From, req.To = DocFormats[m.docFrom], DocFormats[m.docTo]
	}
	return req
}

func (m *Model) runTool() tea.Cmd {
	req := m.toolRequest()
	return tea.Batch(m.spinner.Tick, m.run("tool", "", func(ctx context.Context) error {
		return m.ctrl.RunTool(ctx, req)
	}))
}

func (m *Model) copyOutput() tea.Cmd {
	text := m.state.Output
	if text == "" && m.state.Image != nil {
		text = m.state.Image.DataURL()
	}
	if text == "" {
		return nil
	}
	if err := m.copy(text); err != nil {
		m.toasts.ShowError("Clipboard unavailable: " + err.Error())
		return nil
	}
	m.toasts.ShowSuccess("Copied to clipboard")
	return nil
}

// saveResult writes the current image or speech clip to the working directory.
func (m *Model) saveResult() tea.Cmd {
	stamp := m.now().Format("20060102-150405")
	var name string
	var data []byte
	switch {
	case m.state.Image != nil:
		name = fmt.Sprintf("convertit-%s-%s%s", m.state.Tool, stamp, imageExt(m.state.Image.MIMEType))
		data = m.state.Image.Data
	case m.state.Speech != nil && m.state.Tool == app.ToolTTS:
		name = fmt.Sprintf("convertit-speech-%s.wav", stamp)
		data = audio.WAV(m.state.Speech.PCM, m.state.Speech.SampleRate)
	default:
		return nil
	}
	if err := m.writeFile(name, data, 0o644); err != nil {
		m.toasts.ShowError("Save failed: " + err.Error())
		return nil
	}
	m.toasts.ShowSuccess("Saved " + name)
	return nil
}

func imageExt(mimeType string) string {
	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}

// ---- Deal closer ----

func (m *Model) handleDealKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "/":
		m.editing = true
		m.searchFocus = 0
		return m.search[0].Focus()
	case "tab":
		if m.pane == paneLeads {
			m.pane = paneFollowUps
		} else {
			m.pane = paneLeads
		}
	case "up", "k":
		m.moveDealCursor(-1)
	case "down", "j":
		m.moveDealCursor(1)
	case "b":
		return tea.Batch(m.spinner.Tick, m.run("logo", "Brand logo ready", m.ctrl.GenerateBrandLogo))
	case "c":
		return m.toggleCall()
	case "f":
		return m.startScheduling()
	case "d":
		if f, ok := m.selectedFollowUp(); ok {
			id := f.ID
			return m.run("complete", "Follow-up completed", func(context.Context) error {
				return m.ctrl.CompleteFollowUp(id)
			})
		}
	case "x":
		if f, ok := m.selectedFollowUp(); ok {
			id := f.ID
			return m.run("remove", "Follow-up removed", func(context.Context) error {
				return m.ctrl.RemoveFollowUp(id)
			})
		}
	case "y":
		if m.pane == paneLeads && len(m.state.Leads) > 0 {
			uri := m.state.Leads[m.leadCursor].URI
			if err := m.copy(uri); err != nil {
				m.toasts.ShowError("Clipboard unavailable: " + err.Error())
			} else {
				m.toasts.ShowSuccess("Copied " + uri)
			}
			return nil
		}
		return m.copyOutput()
	case "s":
		if m.state.BrandLogo != nil {
			name := "convertit-brand-" + m.now().Format("20060102-150405") + imageExt(m.state.BrandLogo.MIMEType)
			if err := m.writeFile(name, m.state.BrandLogo.Data, 0o644); err != nil {
				m.toasts.ShowError("Save failed: " + err.Error())
			} else {
				m.toasts.ShowSuccess("Saved " + name)
			}
		}
	}
	return nil
}

func (m *Model) moveDealCursor(delta int) {
	if m.pane == paneLeads {
		m.leadCursor = clamp(m.leadCursor+delta, 0, len(m.state.Leads)-1)
		return
	}
	m.followCursor = clamp(m.followCursor+delta, 0, len(m.state.FollowUps)-1)
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	return min(max(v, lo), hi)
}

func (m *Model) selectedFollowUp() (followup.FollowUp, bool) {
	if m.pane != paneFollowUps || len(m.state.FollowUps) == 0 {
		return followup.FollowUp{}, false
	}
	return m.state.FollowUps[m.followCursor], true
}

func (m *Model) toggleCall() tea.Cmd {
	name := ""
	if len(m.state.Leads) > 0 {
		name = m.state.Leads[m.leadCursor].Name
	}
	if !m.state.Live.Active() && name == "" {
		return nil
	}
	if m.state.Live.Active() {
		name = m.state.LiveLead
	}
	return m.run("call", "", func(ctx context.Context) error {
		m.ctrl.ToggleVoiceOutreach(ctx, name)
		return nil
	})
}

func (m *Model) startScheduling() tea.Cmd {
	if m.pane != paneLeads || len(m.state.Leads) == 0 {
		return nil
	}
	m.scheduleLead = m.state.Leads[m.leadCursor].ID
	due := m.now().Add(time.Hour)
	m.schedule[0].SetValue(due.Format("2006-01-02"))
	m.schedule[1].SetValue(due.Format("15:04"))
	m.schedKind = followup.KindManual
	m.schedFocus = 0
	m.scheduling = true
	m.editing = true
	return m.schedule[0].Focus()
}

// The kind toggle sits after the two text fields.
func (m *Model) handleScheduleEditKey(msg tea.KeyMsg) tea.Cmd {
	fields := len(m.schedule) + 1
	switch msg.String() {
	case "tab", "down":
		return m.focusSchedule((m.schedFocus + 1) % fields)
	case "shift+tab", "up":
		return m.focusSchedule((m.schedFocus + fields - 1) % fields)
	case " ", "left", "right":
		if m.schedFocus == len(m.schedule) {
			if m.schedKind == followup.KindManual {
				m.schedKind = followup.KindAutomatedCall
			} else {
				m.schedKind = followup.KindManual
			}
			return nil
		}
	case "enter":
		due, err := followup.ParseDue(m.schedule[0].Value(), m.schedule[1].Value(), time.Local)
		if err != nil {
			m.toasts.ShowError(err.Error())
			return nil
		}
		leadID, kind := m.scheduleLead, m.schedKind
		m.stopEditing()
		return m.run("schedule", "Added to pipeline", func(context.Context) error {
			_, err := m.ctrl.ScheduleFollowUp(leadID, due, kind)
			return err
		})
	}
	return m.updateFocused(msg)
}

func (m *Model) focusSchedule(i int) tea.Cmd {
	m.schedFocus = i
	for j := range m.schedule {
		m.schedule[j].Blur()
	}
	if i < len(m.schedule) {
		return m.schedule[i].Focus()
	}
	return nil
}

func (m *Model) handleSearchEditKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "tab", "shift+tab":
		m.search[m.searchFocus].Blur()
		if msg.String() == "tab" {
			m.searchFocus = (m.searchFocus + 1) % len(m.search)
		} else {
			m.searchFocus = (m.searchFocus + len(m.search) - 1) % len(m.search)
		}
		return m.search[m.searchFocus].Focus()
	case "enter":
		q := prompt.LeadQuery{
			Query:    m.search[0].Value(),
			Industry: m.search[1].Value(),
			Location: m.search[2].Value(),
			Size:     m.search[3].Value(),
		}
		m.stopEditing()
		m.pane = paneLeads
		m.leadCursor = 0
		return tea.Batch(m.spinner.Tick, m.run("leads", "", func(ctx context.Context) error {
			return m.ctrl.FindLeads(ctx, q)
		}))
	}
	return m.updateFocused(msg)
}

// ---- Support ----

func (m *Model) handleSupportKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "enter", "i":
		m.editing = true
		return m.supportInput.Focus()
	}
	return m.updateFocused(msg)
}

// ---- Settings ----

func (m *Model) handleSettingsKey(msg tea.KeyMsg) tea.Cmd {
	settings := m.state.Settings
	switch msg.String() {
	case "up", "k":
		m.settingsCursor = (m.settingsCursor + settingCount - 1) % settingCount
	case "down", "j":
		m.settingsCursor = (m.settingsCursor + 1) % settingCount
	case "enter", " ", "left", "right":
		switch m.settingsCursor {
		case settingNotifications:
			m.ctrl.SetNotifications(!settings.NotificationsEnabled)
		case settingSound:
			m.ctrl.SetSound(!settings.SoundEnabled)
		case settingLeadTime:
			step := 1
			if msg.String() == "left" {
				step = -1
			}
			m.ctrl.SetLeadTime(nextLeadTime(settings.LeadTime, step))
		}
		m.refresh()
	case "m":
		m.ctrl.MarkAlertsRead()
		m.refresh()
	}
	return nil
}

// nextLeadTime moves to the neighbouring step, wrapping at both ends.
func nextLeadTime(current time.Duration, step int) time.Duration {
	idx := 0
	for i, d := range LeadTimeSteps {
		if d <= current {
			idx = i
		}
	}
	n := len(LeadTimeSteps)
	return LeadTimeSteps[(idx+step+n)%n]
}

// refreshMsg expires toasts and pulls the live transcript once a second.
type refreshMsg time.Time

func refreshTick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return refreshMsg(t) })
}
