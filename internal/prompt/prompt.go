// Package prompt turns user-entered fields into instructions for the
// generative service. Everything here is pure.
package prompt

import (
	"fmt"
	"strings"
)

// Default document formats offered by the converter.
const (
	DefaultDocFrom = "Word"
	DefaultDocTo   = "PDF"
)

// SupportInstruction is the system instruction for the support chat.
const SupportInstruction = "You are the official Support Agent for ConvertIt (convertit.space). " +
	"You provide automated, helpful, and concise answers about conversions, deal closing tools, and branding. " +
	"Our emails are contact@convertit.space and info@convertit.space. Socials: @convertit. " +
	"Career: carrer@convertit.space. Meet: convertitspace@gmail.com. Be polite and professional."

// BrandLogoDirective is the styling request used by the pipeline's
// "design branding" action.
const BrandLogoDirective = "Ultra-luxury logo with 'convertit.space' text, gold embossed, carbon fiber background, cinematic lighting"

const logoPrefix = "High-end professional luxury corporate logo for 'convertit.space'. " +
	"The text 'convertit.space' MUST be the central, highly legible focus in premium modern typography. " +
	"Aesthetic: Minimalist, futuristic, charcoal and liquid gold palette. " +
	"Centered composition on a pure white background."

// UnitConversion asks for a numeric conversion between two units.
func UnitConversion(value, from, to string) string {
	return fmt.Sprintf("Convert %s %s to %s. Provide a clear numerical answer with 4 decimal places if applicable.",
		strings.TrimSpace(value), strings.TrimSpace(from), strings.TrimSpace(to))
}

// DocConversion asks for text to be restyled from one document format to another.
func DocConversion(text, from, to string) string {
	if strings.TrimSpace(from) == "" {
		from = DefaultDocFrom
	}
	if strings.TrimSpace(to) == "" {
		to = DefaultDocTo
	}
	return fmt.Sprintf("Convert the following text content from %s format to a %s style representation. "+
		"If it's code, ensure syntax highlighting or proper structure: \n\n%s", from, to, text)
}

// Story asks for a script or story built around idea.
func Story(idea string) string {
	return "Develop a professional script or story based on this idea: " + idea
}

// Speech wraps text for the speech model.
func Speech(text string) string {
	return "Say naturally: " + text
}

// Logo prefixes the branding brief to extra.
func Logo(extra string) string {
	extra = strings.TrimSpace(extra)
	if extra == "" {
		return logoPrefix
	}
	return logoPrefix + " " + extra
}

// LeadQuery is a lead search with its optional filters.
type LeadQuery struct {
	Query    string
	Industry string
	Location string
	Size     string
}

// LeadSearch builds the grounded search request. Empty filters drop out.
func LeadSearch(q LeadQuery) string {
	parts := []string{"Find high-potential business leads for:", strings.TrimSpace(q.Query)}
	if industry := strings.TrimSpace(q.Industry); industry != "" {
		parts = append(parts, fmt.Sprintf("in the %s industry", industry))
	}
	if location := strings.TrimSpace(q.Location); location != "" {
		parts = append(parts, "specifically in "+location)
	} else {
		parts = append(parts, "in the current area")
	}
	if size := strings.TrimSpace(q.Size); size != "" {
		parts = append(parts, "with a company size of "+size)
	}
	return strings.Join(parts, " ") + ". Provide names and links."
}

// SalesPersona is the live-call instruction for a given lead.
func SalesPersona(leadName string) string {
	leadName = strings.TrimSpace(leadName)
	if leadName == "" {
		leadName = "a potential client"
	}
	return fmt.Sprintf("You are a professional sales closer. You are calling %s. "+
		"Help pitch the service, handle objections, and secure a follow-up or closing action.", leadName)
}
