package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"convertit/internal/app"
	"convertit/internal/audio"
	"convertit/internal/followup"
	"convertit/internal/highlight"
	"convertit/internal/live"
)

var sectionTitles = map[app.Section]string{
	app.SectionConvertIt:  "ConvertIt",
	app.SectionDealCloser: "Deal Closer",
	app.SectionSupport:    "Support",
	app.SectionSettings:   "Settings",
}

// View renders the dashboard.
func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(m.renderTabs())
	b.WriteString("\n\n")

	switch m.state.Section {
	case app.SectionConvertIt:
		b.WriteString(m.renderHub())
	case app.SectionDealCloser:
		b.WriteString(m.renderDealCloser())
	case app.SectionSupport:
		b.WriteString(m.renderSupport())
	case app.SectionSettings:
		b.WriteString(m.renderSettings())
	}

	if toasts := m.toasts.View(m.width); toasts != "" {
		b.WriteString("\n\n")
		b.WriteString(toasts)
	}
	b.WriteString("\n")
	b.WriteString(m.renderStatusBar())
	return b.String()
}

func (m *Model) renderTabs() string {
	tabs := []string{m.styles.Brand.Render("convertit.space")}
	for i, section := range app.Sections {
		label := fmt.Sprintf("%d %s", i+1, sectionTitles[section])
		if section == m.state.Section {
			tabs = append(tabs, m.styles.TabActive.Render(label))
		} else {
			tabs = append(tabs, m.styles.Tab.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Center, tabs...)
}

func (m *Model) renderStatusBar() string {
	var parts []string
	if m.state.Generating {
		parts = append(parts, m.spinner.View()+" Processing...")
	}
	if m.state.SupportPending {
		parts = append(parts, m.spinner.View()+" Support is typing")
	}
	if m.state.Live.Active() {
		parts = append(parts, m.styles.Live.Render(MessageIcons["live"]+" "+liveLabel(m.state.Live)+" "+m.state.LiveLead))
	}
	if !m.state.Settings.NotificationsEnabled {
		parts = append(parts, m.styles.Dim.Render("alerts off"))
	}
	parts = append(parts, m.styles.Dim.Render("1-4 sections · q quit"))
	return m.styles.StatusBar.Render(strings.Join(parts, "  "))
}

func liveLabel(s live.State) string {
	switch s {
	case live.StateConnecting:
		return "Connecting"
	case live.StateOpen:
		return "On call with"
	}
	return s.String()
}

// ---- ConvertIt ----

var toolDescriptions = map[app.Tool]string{
	app.ToolTTS:    "Natural speech from text",
	app.ToolStory:  "Scripts and stories from an idea",
	app.ToolUnits:  "Precise unit conversions",
	app.ToolImages: "Branded visuals",
	app.ToolDocs:   "Restyle documents between formats",
	app.ToolLogo:   "Luxury logo design",
}

var toolPlaceholders = map[app.Tool]string{
	app.ToolTTS:    "Enter text to speak...",
	app.ToolStory:  "Describe your story idea...",
	app.ToolUnits:  "Value to convert (e.g. 12.5)",
	app.ToolImages: "Describe extra visual details...",
	app.ToolDocs:   "Paste the document text...",
	app.ToolLogo:   "Extra branding direction (optional)...",
}

func (m *Model) renderHub() string {
	if m.state.Tool == app.ToolNone {
		return m.renderToolMenu()
	}

	var b strings.Builder
	tool := m.state.Tool
	b.WriteString(m.styles.PanelTitle.Render(GetToolIcon(string(tool)) + " " + tool.Title()))
	b.WriteString("\n")

	switch tool {
	case app.ToolUnits:
		b.WriteString(m.fieldLabel(fieldUnitFrom, "From") + " " + m.unitFrom.View() + "\n")
		b.WriteString(m.fieldLabel(fieldUnitTo, "To") + "   " + m.unitTo.View() + "\n")
	case app.ToolDocs:
		b.WriteString(m.fieldLabel(fieldDocFrom, "From") + " ‹ " + DocFormats[m.docFrom] + " ›\n")
		b.WriteString(m.fieldLabel(fieldDocTo, "To") + "   ‹ " + DocFormats[m.docTo] + " ›\n")
	}
	m.body.Placeholder = toolPlaceholders[tool]
	b.WriteString(m.styles.Panel.Render(m.body.View()))
	b.WriteString("\n")

	if m.editing {
		b.WriteString(m.styles.FormatHelp("tab", "next field", "ctrl+s", "run automation", "esc", "done editing"))
	} else {
		b.WriteString(m.styles.FormatHelp("i", "edit", "r", "run automation", "y", "copy", "s", "save", "esc", "back to hub"))
	}
	b.WriteString("\n\n")
	b.WriteString(m.renderResult())
	return b.String()
}

func (m *Model) fieldLabel(field hubField, label string) string {
	if m.editing && m.hubField() == field {
		return m.styles.Selected.Render("› " + label)
	}
	return m.styles.Label.Render("  " + label)
}

func (m *Model) renderToolMenu() string {
	var b strings.Builder
	b.WriteString(m.styles.PanelTitle.Render("Utility Hub"))
	b.WriteString("\n")
	for i, tool := range app.Tools {
		line := fmt.Sprintf("%s %-16s %s", GetToolIcon(string(tool)), tool.Title(), m.styles.Dim.Render(toolDescriptions[tool]))
		if i == m.toolCursor {
			b.WriteString(m.styles.Selected.Render("› ") + line)
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.styles.FormatHelp("↑/↓", "choose", "enter", "open"))
	return b.String()
}

func (m *Model) renderResult() string {
	s := m.state
	switch {
	case s.Generating:
		return m.spinner.View() + " Processing..."
	case s.Error != "":
		return m.styles.FormatError(s.Error)
	}

	var parts []string
	if s.Output != "" {
		parts = append(parts, m.styles.Success.Render("Engine Output")+"\n"+m.renderOutput(s.Output))
	}
	if s.Image != nil {
		parts = append(parts, m.styles.Panel.Render(fmt.Sprintf("🖼  %s, %d bytes\n%s",
			s.Image.MIMEType, len(s.Image.Data), m.styles.Dim.Render("Brand identifier generated · s to save"))))
	}
	if s.Speech != nil && s.Tool == app.ToolTTS {
		d := audio.Duration(len(s.Speech.PCM)/audio.BytesPerSample, s.Speech.SampleRate)
		parts = append(parts, m.styles.Panel.Render(fmt.Sprintf("🔊 %.1fs of speech · s to save as WAV", d.Seconds())))
	}
	return strings.Join(parts, "\n")
}

// renderOutput renders model text. Converted documents get code highlighting;
// everything else goes through the markdown renderer when enabled.
func (m *Model) renderOutput(text string) string {
	if m.state.Tool == app.ToolDocs {
		if highlight.HasFences(text) {
			return m.highlighter.HighlightFences(text)
		}
		if lang := highlight.LanguageFor(DocFormats[m.docTo]); lang != "" {
			return m.highlighter.Highlight(text, lang)
		}
	}
	if m.markdown != nil {
		if out, err := m.markdown.Render(text); err == nil {
			return strings.TrimRight(out, "\n")
		}
	}
	return text
}

// ---- Deal closer ----

func (m *Model) renderDealCloser() string {
	var b strings.Builder
	s := m.state

	title := m.styles.PanelTitle.Render("DEAL CLOSER") + " " + m.styles.Dim.Render("AI Strategic Acquisition")
	if s.BrandLogo != nil {
		title += "  " + m.styles.Brand.Render("◆ brand logo ready")
	}
	b.WriteString(title)
	b.WriteString("\n")

	stats := s.Stats()
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		m.statCard("Valuation", "$"+groupThousands(stats.Valuation)),
		m.statCard("Pipeline", fmt.Sprint(stats.Pipeline)),
		m.statCard("Pending", fmt.Sprint(stats.Pending)),
	))
	b.WriteString("\n")

	labels := []string{"Search", "Industry", "Location", "Size"}
	for i, in := range m.search {
		if i > 0 && !m.editing && in.Value() == "" {
			continue
		}
		label := "  " + labels[i]
		if m.editing && !m.scheduling && i == m.searchFocus {
			label = "› " + labels[i]
		}
		b.WriteString(m.styles.Label.Render(fmt.Sprintf("%-10s", label)) + in.View() + "\n")
	}
	if s.Generating {
		b.WriteString(m.spinner.View() + " Processing...\n")
	} else if s.Error != "" {
		b.WriteString(m.styles.FormatError(s.Error) + "\n")
	}
	b.WriteString("\n")

	b.WriteString(m.renderLeads())
	b.WriteString("\n")
	if m.scheduling {
		b.WriteString(m.renderScheduleForm())
		b.WriteString("\n")
	}
	b.WriteString(m.renderFollowUps())
	b.WriteString("\n")
	if s.Live.Active() || s.LiveTranscript != "" {
		b.WriteString(m.renderCall())
		b.WriteString("\n")
	}

	switch {
	case m.scheduling:
		b.WriteString(m.styles.FormatHelp("tab", "next", "space", "toggle kind", "enter", "schedule", "esc", "cancel"))
	case m.editing:
		b.WriteString(m.styles.FormatHelp("tab", "next filter", "enter", "search", "esc", "cancel"))
	default:
		b.WriteString(m.styles.FormatHelp("/", "search", "tab", "switch list", "c", "call", "f", "follow-up", "d", "done", "x", "remove", "b", "brand logo", "y", "copy link"))
	}
	return b.String()
}

func (m *Model) statCard(label, value string) string {
	return m.styles.Panel.Width(18).Render(m.styles.Label.Render(label) + "\n" + m.styles.Text.Bold(true).Render(value))
}

func groupThousands(n int) string {
	s := fmt.Sprint(n)
	if n < 0 {
		return "-" + groupThousands(-n)
	}
	var out []string
	for len(s) > 3 {
		out = append([]string{s[len(s)-3:]}, out...)
		s = s[:len(s)-3]
	}
	out = append([]string{s}, out...)
	return strings.Join(out, ",")
}

func (m *Model) renderLeads() string {
	var b strings.Builder
	header := "Leads"
	if m.pane == paneLeads && !m.editing {
		header = "› Leads"
	}
	b.WriteString(m.styles.Label.Render(header))
	b.WriteString("\n")
	if len(m.state.Leads) == 0 {
		b.WriteString(m.styles.Dim.Render("  No leads yet. Press / to search."))
		b.WriteString("\n")
		return b.String()
	}
	for i, lead := range m.state.Leads {
		line := fmt.Sprintf("💼 %s  %s", lead.Name, m.styles.Dim.Render(lead.URI))
		if m.state.Live.Active() && lead.Name == m.state.LiveLead {
			line += " " + m.styles.Live.Render("📞")
		}
		if m.pane == paneLeads && i == m.leadCursor {
			b.WriteString(m.styles.Selected.Render("› ") + line)
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m *Model) renderScheduleForm() string {
	kind := "Manual reminder"
	if m.schedKind == followup.KindAutomatedCall {
		kind = "Automated call"
	}
	labels := []string{"Date", "Time", "Kind"}
	var rows []string
	for i, label := range labels {
		prefix := "  "
		if i == m.schedFocus {
			prefix = "› "
		}
		value := kind
		if i < len(m.schedule) {
			value = m.schedule[i].View()
		}
		rows = append(rows, m.styles.Label.Render(fmt.Sprintf("%s%-5s", prefix, label))+" "+value)
	}
	return m.styles.Panel.Render(m.styles.PanelTitle.Render("Add to Pipeline") + "\n" + strings.Join(rows, "\n"))
}

func (m *Model) renderFollowUps() string {
	var b strings.Builder
	header := "Follow-ups"
	if m.pane == paneFollowUps && !m.editing {
		header = "› Follow-ups"
	}
	b.WriteString(m.styles.Label.Render(header))
	b.WriteString("\n")
	if len(m.state.FollowUps) == 0 {
		b.WriteString(m.styles.Dim.Render("  Nothing scheduled."))
		b.WriteString("\n")
		return b.String()
	}
	for i, f := range m.state.FollowUps {
		b.WriteString(m.followUpLine(i, f))
		b.WriteString("\n")
	}
	return b.String()
}

func (m *Model) followUpLine(i int, f followup.FollowUp) string {
	icon := "⏰"
	if f.Kind == followup.KindAutomatedCall {
		icon = "📞"
	}
	status := m.styles.Badge.Render(MessageIcons["pending"] + " pending")
	if f.Status == followup.StatusCompleted {
		status = m.styles.BadgeDone.Render(MessageIcons["done"] + " done")
	} else if f.AlertFired {
		status = m.styles.Badge.Render("🔔 due")
	}
	line := fmt.Sprintf("%s %s  %s  %s", icon, f.LeadName, f.Due.Local().Format("Jan 2 15:04"), status)
	if m.pane == paneFollowUps && i == m.followCursor {
		return m.styles.Selected.Render("› ") + line
	}
	return "  " + line
}

func (m *Model) renderCall() string {
	s := m.state
	title := m.styles.Live.Render(MessageIcons["live"] + " " + liveLabel(s.Live) + " " + s.LiveLead)
	transcript := s.LiveTranscript
	if transcript == "" {
		transcript = m.styles.Dim.Render("Listening...")
	}
	return m.styles.Panel.Render(title + "\n" + transcript + "\n" + m.styles.FormatHelp("c", "hang up"))
}

// ---- Support ----

func (m *Model) renderSupport() string {
	var b strings.Builder
	b.WriteString(m.styles.PanelTitle.Render("Contact & Support") + " " + m.styles.Dim.Render("Automated 24/7 AI Assistance"))
	b.WriteString("\n")
	b.WriteString(m.supportView.View())
	b.WriteString("\n")
	b.WriteString(m.supportInput.View())
	b.WriteString("\n\n")
	b.WriteString(m.styles.Label.Render("contact@convertit.space · info@convertit.space · Meet: convertitspace@gmail.com · carrer@convertit.space"))
	b.WriteString("\n")
	if m.editing {
		b.WriteString(m.styles.FormatHelp("enter", "send", "esc", "done"))
	} else {
		b.WriteString(m.styles.FormatHelp("i", "type", "↑/↓", "scroll"))
	}
	return b.String()
}

func (m *Model) renderSupportMessages() string {
	width := max(20, m.supportView.Width*4/5)
	var lines []string
	for _, msg := range m.state.SupportMessages {
		stamp := msg.CreatedAt.Local().Format("15:04")
		if msg.Role == app.RoleUser {
			bubble := m.styles.UserBubble.Width(width).Render(msg.Text)
			meta := m.styles.Dim.Render(stamp + " • Client")
			lines = append(lines, lipgloss.PlaceHorizontal(m.supportView.Width, lipgloss.Right, bubble+"\n"+meta))
			continue
		}
		bubble := m.styles.AgentBubble.Width(width).Render(msg.Text)
		lines = append(lines, bubble+"\n"+m.styles.Dim.Render(stamp+" • Support Bot"))
	}
	return strings.Join(lines, "\n")
}

// ---- Settings ----

func (m *Model) renderSettings() string {
	s := m.state.Settings
	rows := []struct {
		label string
		value string
	}{
		{"Follow-up notifications", onOff(s.NotificationsEnabled)},
		{"Alert sound", onOff(s.SoundEnabled)},
		{"Reminder lead time", leadTimeLabel(s.LeadTime)},
	}

	var b strings.Builder
	b.WriteString(m.styles.PanelTitle.Render("Labs & Configuration"))
	b.WriteString("\n")
	for i, row := range rows {
		line := fmt.Sprintf("%-26s %s", row.label, row.value)
		if i == m.settingsCursor {
			b.WriteString(m.styles.Selected.Render("› " + line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.renderActivity())
	b.WriteString("\n")
	b.WriteString(m.styles.FormatHelp("↑/↓", "choose", "enter", "toggle", "←/→", "change lead time", "m", "mark alerts read"))
	return b.String()
}

func (m *Model) renderActivity() string {
	act := m.activity
	var b strings.Builder
	b.WriteString(m.styles.PanelTitle.Render("Activity"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "  %-26s %d unread\n", "Alerts", act.UnreadAlerts)
	for _, a := range act.RecentAlerts {
		line := fmt.Sprintf("    %s %s", a.Timestamp.Format("15:04"), a.Title)
		if a.Read {
			line = m.styles.Dim.Render(line)
		}
		b.WriteString(line + "\n")
	}
	sweep := "stopped"
	if act.Sweeping {
		sweep = "running"
	}
	fmt.Fprintf(&b, "  %-26s %s\n", "Follow-up sweep", sweep)

	rl := act.RateLimit
	budget := "unlimited"
	if rl.Enabled {
		budget = fmt.Sprintf("%d requests, %d waited %s, %.1f available",
			rl.TotalRequests, rl.BlockedRequests, rl.TotalWait.Round(time.Millisecond), rl.AvailableRequests)
	}
	fmt.Fprintf(&b, "  %-26s %s\n", "Request budget", budget)
	return b.String()
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

func leadTimeLabel(d time.Duration) string {
	if d <= 0 {
		return "at due time"
	}
	return fmt.Sprintf("%d min before", int(d.Minutes()))
}
