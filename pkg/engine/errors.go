package engine

import (
	"errors"
	"fmt"
)

// ErrorClass classifies layout failures.
type ErrorClass string

const (
	// ErrorClassConfiguration covers problems with timeline parameters or
	// style templates. They are detected before or independent of any one
	// milestone's data.
	ErrorClassConfiguration ErrorClass = "configuration"

	// ErrorClassInvalidInput covers milestone data the layout cannot place.
	ErrorClassInvalidInput ErrorClass = "invalid_input"
)

// Error codes.
const (
	ErrCodeDegenerateRange = "DEGENERATE_RANGE"
	ErrCodeInvalidConfig   = "INVALID_CONFIG"
	ErrCodeMissingCategory = "MISSING_CATEGORY"
	ErrCodeNoStyles        = "NO_STYLES"
	ErrCodeDateBeforeStart = "DATE_BEFORE_START"
	ErrCodeInvalidLevel    = "INVALID_LEVEL"
	ErrCodeInvalidSeed     = "INVALID_SEED"
)

// LayoutError is a classified error with the context needed to find the
// offending input.
type LayoutError struct {
	// Class is the error classification.
	Class ErrorClass `json:"class"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// Code is an optional error code for programmatic handling.
	Code string `json:"code,omitempty"`

	// Timeline is the timeline being laid out, if known.
	Timeline string `json:"timeline,omitempty"`

	// Milestone is the milestone number being processed, if any.
	Milestone *int `json:"milestone,omitempty"`

	// Category is the style category involved, if any.
	Category string `json:"category,omitempty"`

	// Err is the underlying error.
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *LayoutError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Class, e.Message)
	if e.Timeline != "" {
		msg += fmt.Sprintf(" (timeline=%s", e.Timeline)
		if e.Milestone != nil {
			msg += fmt.Sprintf(", milestone=%d", *e.Milestone)
		}
		msg += ")"
	} else if e.Milestone != nil {
		msg += fmt.Sprintf(" (milestone=%d)", *e.Milestone)
	}
	if e.Category != "" {
		msg += fmt.Sprintf(" category=%q", e.Category)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *LayoutError) Unwrap() error {
	return e.Err
}

// Is matches on class and code.
func (e *LayoutError) Is(target error) bool {
	t, ok := target.(*LayoutError)
	if !ok {
		return false
	}
	return e.Class == t.Class && e.Code == t.Code
}

// NewConfigurationError creates a configuration error.
func NewConfigurationError(message string, err error) *LayoutError {
	return &LayoutError{
		Class:   ErrorClassConfiguration,
		Message: message,
		Err:     err,
	}
}

// NewInvalidInputError creates an invalid input error.
func NewInvalidInputError(message string, err error) *LayoutError {
	return &LayoutError{
		Class:   ErrorClassInvalidInput,
		Message: message,
		Err:     err,
	}
}

// WithCode sets the error code.
func (e *LayoutError) WithCode(code string) *LayoutError {
	e.Code = code
	return e
}

// WithTimeline sets the timeline name.
func (e *LayoutError) WithTimeline(name string) *LayoutError {
	e.Timeline = name
	return e
}

// WithMilestone sets the milestone number.
func (e *LayoutError) WithMilestone(number int) *LayoutError {
	e.Milestone = &number
	return e
}

// WithCategory sets the style category.
func (e *LayoutError) WithCategory(category string) *LayoutError {
	e.Category = category
	return e
}

// IsConfiguration reports whether err is a configuration error.
func IsConfiguration(err error) bool {
	var e *LayoutError
	if errors.As(err, &e) {
		return e.Class == ErrorClassConfiguration
	}
	return false
}

// IsInvalidInput reports whether err is an invalid input error.
func IsInvalidInput(err error) bool {
	var e *LayoutError
	if errors.As(err, &e) {
		return e.Class == ErrorClassInvalidInput
	}
	return false
}

// ClassOf returns the class and code of err, or empty strings for
// unclassified errors.
func ClassOf(err error) (ErrorClass, string) {
	var e *LayoutError
	if errors.As(err, &e) {
		return e.Class, e.Code
	}
	return "", ""
}
