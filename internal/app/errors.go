package app

import (
	"errors"

	"convertit/internal/logging"
)

var (
	// ErrBusy is returned when a generation is already in progress.
	ErrBusy = errors.New("a generation is already in progress")
	// ErrEmptyInput is returned for blank prompts, which are ignored.
	ErrEmptyInput = errors.New("input is empty")
	// ErrUnknownTool is returned for a tool the hub does not offer.
	ErrUnknownTool = errors.New("unknown tool")
	// ErrUnknownLead is returned when a follow-up names a lead that is not listed.
	ErrUnknownLead = errors.New("lead not found")
)

// LogIgnoredError logs an error that is being intentionally ignored.
func LogIgnoredError(operation string, err error) {
	if err != nil {
		logging.Debug("ignored error", "operation", operation, "error", err)
	}
}
