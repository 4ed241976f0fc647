package gateway

import (
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// Kind classifies a gateway failure.
type Kind int

const (
	KindGeneric Kind = iota
	KindAuth
	KindRateLimit
	KindSafety
)

func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindRateLimit:
		return "rate_limit"
	case KindSafety:
		return "safety"
	default:
		return "generic"
	}
}

// Error is the only error type returned by the gateway.
type Error struct {
	Op   string
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// UserMessage is the short message shown in the UI.
func (e *Error) UserMessage() string {
	switch e.Kind {
	case KindAuth:
		return "Auth Error: Invalid API Key."
	case KindRateLimit:
		return "Rate Limit: Too many requests."
	case KindSafety:
		return "Safety Block: Content violates policy."
	}
	msg := "Unknown error"
	if e.Err != nil {
		msg = e.Err.Error()
	}
	return "Error: " + msg
}

// UserMessage renders any error for display, classifying it first when it
// did not come from the gateway.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr.UserMessage()
	}
	return (&Error{Kind: Classify(err), Err: err}).UserMessage()
}

// KindOf returns the kind of err, or KindGeneric.
func KindOf(err error) Kind {
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr.Kind
	}
	return Classify(err)
}

// ErrBlocked is wrapped when the service withholds a response on policy grounds.
var ErrBlocked = errors.New("response blocked")

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return err
	}
	return &Error{Op: op, Kind: Classify(err), Err: err}
}

// Classify maps a raw error onto a Kind. Typed errors are checked first;
// message matching is only the fallback for untyped errors.
func Classify(err error) Kind {
	if err == nil {
		return KindGeneric
	}
	if errors.Is(err, ErrBlocked) {
		return KindSafety
	}

	if code, status, ok := apiErrorCode(err); ok {
		switch {
		case code == 401 || code == 403 || status == "UNAUTHENTICATED" || status == "PERMISSION_DENIED":
			return KindAuth
		case code == 429 || status == "RESOURCE_EXHAUSTED":
			return KindRateLimit
		}
		if code == 400 && strings.Contains(strings.ToLower(err.Error()), "api key") {
			return KindAuth
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "api key") || strings.Contains(msg, "401"):
		return KindAuth
	case strings.Contains(msg, "429") || strings.Contains(msg, "rate limit"):
		return KindRateLimit
	case strings.Contains(msg, "safety"):
		return KindSafety
	}
	return KindGeneric
}

func apiErrorCode(err error) (int, string, bool) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code, apiErr.Status, true
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Code, apiErrPtr.Status, true
	}
	return 0, "", false
}

// blockedFinish lists candidate finish reasons that mean a policy block.
var blockedFinish = map[genai.FinishReason]bool{
	genai.FinishReasonSafety:            true,
	genai.FinishReasonProhibitedContent: true,
	genai.FinishReasonBlocklist:         true,
	genai.FinishReasonSPII:              true,
	genai.FinishReasonImageSafety:       true,
}

// checkBlocked reports a policy block carried by the response itself.
func checkBlocked(resp *genai.GenerateContentResponse) error {
	if resp == nil {
		return nil
	}
	if fb := resp.PromptFeedback; fb != nil && fb.BlockReason != "" {
		return fmt.Errorf("%w: prompt %s", ErrBlocked, fb.BlockReason)
	}
	if len(resp.Candidates) > 0 && resp.Candidates[0] != nil {
		if reason := resp.Candidates[0].FinishReason; blockedFinish[reason] {
			return fmt.Errorf("%w: %s", ErrBlocked, reason)
		}
	}
	return nil
}
