// Package leads holds the business leads produced by a grounded search.
package leads

import (
	"strings"

	"github.com/google/uuid"
)

// Placeholders used when a grounding reference is missing a field.
const (
	DefaultName    = "Potential Client"
	DefaultAddress = "Locating..."
	DefaultURI     = "#"
)

// Lead is a prospective customer. Leads are never edited in place; a new
// search replaces the whole list.
type Lead struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
	URI     string `json:"uri"`
	Details string `json:"details,omitempty"`
}

// Reference is a titled link returned alongside a grounded answer.
type Reference struct {
	Title string
	URI   string
}

// FromGrounding converts grounding references into leads, in order.
func FromGrounding(refs []Reference) []Lead {
	out := make([]Lead, 0, len(refs))
	for _, ref := range refs {
		lead := Lead{
			ID:      uuid.NewString(),
			Name:    strings.TrimSpace(ref.Title),
			Address: DefaultAddress,
			URI:     strings.TrimSpace(ref.URI),
		}
		if lead.Name == "" {
			lead.Name = DefaultName
		}
		if lead.URI == "" {
			lead.URI = DefaultURI
		}
		out = append(out, lead)
	}
	return out
}

// Find returns the lead with id.
func Find(list []Lead, id string) (Lead, bool) {
	for _, l := range list {
		if l.ID == id {
			return l, true
		}
	}
	return Lead{}, false
}
