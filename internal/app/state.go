package app

import (
	"time"

	"convertit/internal/followup"
	"convertit/internal/gateway"
	"convertit/internal/leads"
	"convertit/internal/live"
)

// Section is one of the four top-level screens.
type Section string

const (
	SectionConvertIt  Section = "convertit"
	SectionDealCloser Section = "dealcloser"
	SectionSupport    Section = "support"
	SectionSettings   Section = "settings"
)

// Sections lists the screens in navigation order.
var Sections = []Section{SectionConvertIt, SectionDealCloser, SectionSupport, SectionSettings}

// Tool is a utility in the ConvertIt hub.
type Tool string

const (
	ToolNone   Tool = ""
	ToolTTS    Tool = "tts"
	ToolStory  Tool = "story"
	ToolUnits  Tool = "units"
	ToolImages Tool = "images"
	ToolDocs   Tool = "docs"
	ToolLogo   Tool = "logo"
)

// Tools lists the hub utilities in display order.
var Tools = []Tool{ToolTTS, ToolStory, ToolUnits, ToolImages, ToolDocs, ToolLogo}

// Title returns the display name of t.
func (t Tool) Title() string {
	switch t {
	case ToolTTS:
		return "Text to Voice"
	case ToolStory:
		return "Story Generator"
	case ToolUnits:
		return "Unit Converter"
	case ToolImages:
		return "Visual AI"
	case ToolDocs:
		return "Doc Converter"
	case ToolLogo:
		return "Logo Designer"
	}
	return ""
}

// Role identifies the author of a support message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// SupportMessage is one line of the support chat. Messages are append-only.
type SupportMessage struct {
	ID        string
	Role      Role
	Text      string
	CreatedAt time.Time
}

// Support chat canned replies.
const (
	SupportGreeting    = "Hello! Welcome to ConvertIt Support. How can I assist you today?"
	SupportFailure     = "Support system error. Please try again later."
	SupportEmptyAnswer = "I'm having trouble connecting to support right now."
)

// State is the whole view model. It is only mutated by App transitions.
type State struct {
	Section    Section
	Tool       Tool
	Generating bool
	Error      string

	Output    string
	Image     *gateway.Image
	Speech    *gateway.Speech
	BrandLogo *gateway.Image

	Leads     []leads.Lead
	FollowUps []followup.FollowUp

	SupportMessages []SupportMessage
	SupportPending  bool

	Settings followup.Settings

	Live           live.State
	LiveLead       string
	LiveTranscript string
}

func initialState(settings followup.Settings) State {
	return State{
		Section:  SectionDealCloser,
		Settings: settings,
		SupportMessages: []SupportMessage{{
			ID:        "1",
			Role:      RoleAssistant,
			Text:      SupportGreeting,
			CreatedAt: time.Now(),
		}},
	}
}

// clone copies the slices so callers cannot alias internal state.
func (s State) clone() State {
	out := s
	out.Leads = append([]leads.Lead(nil), s.Leads...)
	out.FollowUps = append([]followup.FollowUp(nil), s.FollowUps...)
	out.SupportMessages = append([]SupportMessage(nil), s.SupportMessages...)
	return out
}

// ValuePerFollowUp is the pipeline value credited to every follow-up.
const ValuePerFollowUp = 4500

// PipelineStats are the deal closer headline figures.
type PipelineStats struct {
	Valuation int
	Pipeline  int
	Pending   int
}

// Stats computes the headline figures from the lead and follow-up lists.
func (s State) Stats() PipelineStats {
	stats := PipelineStats{
		Valuation: len(s.FollowUps) * ValuePerFollowUp,
		Pipeline:  len(s.Leads),
	}
	for _, f := range s.FollowUps {
		if f.Status == followup.StatusPending {
			stats.Pending++
		}
	}
	return stats
}
