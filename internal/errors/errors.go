/*
Package errors defines the structured error type shared by the router layers.

Every error raised inside the intent, tool and backend layers is an *AppError
carrying a stable code plus enough context (truncated input, intermediate
scores, alternatives) to diagnose a bad decision without re-running it.
*/
package errors

import (
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
)

// maxInputLen bounds the offending input copied into an error.
const maxInputLen = 100

// Error codes
const (
	ErrCodeInvalidInput       = "INVALID_INPUT"
	ErrCodePatternEngine      = "PATTERN_ENGINE_FAILED"
	ErrCodeAmbiguousIntent    = "AMBIGUOUS_INTENT"
	ErrCodeNoIntentMatch      = "NO_INTENT_MATCH"
	ErrCodeInvalidParameter   = "INVALID_PARAMETER"
	ErrCodeUnknownTool        = "UNKNOWN_TOOL"
	ErrCodeToolExecution      = "TOOL_EXECUTION_FAILED"
	ErrCodeBackendUnavailable = "BACKEND_UNAVAILABLE"
	ErrCodeConfigInvalid      = "CONFIG_INVALID"
)

// AppError represents an application-level error with a code and optional cause
type AppError struct {
	Code    string
	Message string

	// Input is the offending input, truncated to 100 characters.
	Input string

	// Scores holds intermediate scores relevant to the failure, if any.
	Scores map[string]float64

	// Alternatives lists suggested corrections (tool names, parameter names, intents).
	Alternatives []string

	Cause error
}

func (e *AppError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Code, e.Message)
	if len(e.Alternatives) > 0 {
		fmt.Fprintf(&b, " (did you mean: %s?)", strings.Join(e.Alternatives, ", "))
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, " (caused by: %v)", e.Cause)
	}
	return b.String()
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WithInput attaches the offending input, truncated.
func (e *AppError) WithInput(input string) *AppError {
	e.Input = Truncate(input, maxInputLen)
	return e
}

// WithScores attaches a copy of the intermediate scores.
func (e *AppError) WithScores(scores map[string]float64) *AppError {
	if len(scores) == 0 {
		return e
	}
	e.Scores = make(map[string]float64, len(scores))
	for k, v := range scores {
		e.Scores[k] = v
	}
	return e
}

// WithAlternatives attaches suggested corrections.
func (e *AppError) WithAlternatives(alts ...string) *AppError {
	e.Alternatives = append(e.Alternatives, alts...)
	return e
}

// ScoreKeys returns the score names in sorted order, for stable rendering.
func (e *AppError) ScoreKeys() []string {
	keys := make([]string, 0, len(e.Scores))
	for k := range e.Scores {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// HasCode reports whether any error in err's chain is an AppError with code.
func HasCode(err error, code string) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// CodeOf returns the code of the first AppError in err's chain, or "".
func CodeOf(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// Truncate shortens s to at most n runes, appending an ellipsis when cut.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
