package models

import "fmt"

// ErrorKind classifies why an extraction attempt failed.
type ErrorKind string

// Extraction failure kinds. All of them are recovered at the orchestrator
// boundary and reported inside an ExtractionResult.
const (
	ErrKindPremiumGated      ErrorKind = "PREMIUM_GATED"
	ErrKindChannelNotFound   ErrorKind = "CHANNEL_NOT_FOUND"
	ErrKindNoCandidates      ErrorKind = "NO_CANDIDATES_CAPTURED"
	ErrKindNavigationTimeout ErrorKind = "NAVIGATION_TIMEOUT"
	ErrKindBrowser           ErrorKind = "BROWSER_AUTOMATION_ERROR"
	ErrKindServerBusy        ErrorKind = "SERVER_BUSY"
	ErrKindWatchdogTimeout   ErrorKind = "WATCHDOG_TIMEOUT"
)

// Error codes used by the HTTP layer for request-level failures that never
// reach the extraction engine.
const (
	ErrCodeInvalidInput   = "INVALID_INPUT"
	ErrCodeUnknownChannel = "UNKNOWN_CHANNEL"
	ErrCodeRateLimited    = "RATE_LIMITED"
	ErrCodeUnauthorized   = "UNAUTHORIZED"
	ErrCodeNotCached      = "NOT_CACHED"
	ErrCodeInternal       = "INTERNAL_ERROR"
)

// Retryable reports whether the orchestrator retries an attempt that failed
// with this kind. Only an empty capture can change on a second look; a
// paywall or a missing page cannot.
func (k ErrorKind) Retryable() bool {
	return k == ErrKindNoCandidates
}

// Hint returns the operator-facing advice attached to a failure of this kind.
func (k ErrorKind) Hint() string {
	switch k {
	case ErrKindPremiumGated:
		return "This channel is not free. Only use confirmed free channels."
	case ErrKindChannelNotFound:
		return "The site returned a not-found page. Check /api/v1/channels or run /api/v1/debug for this channel."
	case ErrKindNoCandidates:
		return "No stream URL was observed. If this is a free channel the page structure may have changed; run /api/v1/debug to inspect network and DOM signals."
	case ErrKindNavigationTimeout:
		return "The channel page took too long to load. Wait a minute and try again."
	case ErrKindBrowser:
		return "Internal error during browser automation. Retry shortly or run /api/v1/debug."
	case ErrKindServerBusy:
		return "Another extraction is in progress. Wait a few seconds and try again."
	case ErrKindWatchdogTimeout:
		return "The extraction exceeded its time ceiling and was aborted. Wait and retry, or run /api/v1/debug."
	default:
		return ""
	}
}

// ErrorDetail is the structured error in API responses.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ExtractError is the internal error type carrying a failure kind.
// It implements the error interface and supports error wrapping via Unwrap.
type ExtractError struct {
	Kind    ErrorKind
	Message string
	Err     error // wrapped original error
}

func (e *ExtractError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *ExtractError) Unwrap() error {
	return e.Err
}

// NewExtractError creates a new ExtractError.
func NewExtractError(kind ErrorKind, message string, err error) *ExtractError {
	return &ExtractError{Kind: kind, Message: message, Err: err}
}
