package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// ScanWarning indicates a non-fatal scanner finding (missing export, odd location)
	ScanWarning ErrorCode = "SCAN_WARNING"
	// ClassificationAmbiguity indicates a low-confidence classification
	ClassificationAmbiguity ErrorCode = "CLASSIFICATION_AMBIGUITY"
	// CircularDependency indicates units import each other in a loop
	CircularDependency ErrorCode = "CIRCULAR_DEPENDENCY"
	// MoveConflict indicates the destination is occupied by an unrelated file
	MoveConflict ErrorCode = "MOVE_CONFLICT"
	// ImportRewriteFailure indicates an import could not be confidently rewritten
	ImportRewriteFailure ErrorCode = "IMPORT_REWRITE_FAILURE"
	// VerificationFailure indicates build verification reported problems
	VerificationFailure ErrorCode = "VERIFICATION_FAILURE"
	// PreconditionFailed indicates a planned source file vanished before execution
	PreconditionFailed ErrorCode = "PRECONDITION_FAILED"
	// PlanImmutable indicates an attempt to modify an approved plan
	PlanImmutable ErrorCode = "PLAN_IMMUTABLE"
	// PlanCancelled indicates the approval channel cancelled the run
	PlanCancelled ErrorCode = "PLAN_CANCELLED"
	// UnknownUnit indicates a unit name that is not part of the plan
	UnknownUnit ErrorCode = "UNKNOWN_UNIT"
	// InvalidLevel indicates an unparseable hierarchy level
	InvalidLevel ErrorCode = "INVALID_LEVEL"
	// ConfigInvalid indicates configuration could not be used
	ConfigInvalid ErrorCode = "CONFIG_INVALID"
	// WriteFailed indicates a phase-two write failed
	WriteFailed ErrorCode = "WRITE_FAILED"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// FixActionType represents the type of fix action
type FixActionType string

const (
	// RunCommand suggests running a command
	RunCommand FixActionType = "run-command"
	// ManualEdit suggests editing a file by hand
	ManualEdit FixActionType = "manual-edit"
	// Review suggests a human review of the plan
	Review FixActionType = "review"
)

// FixAction represents a suggested fix for an error
type FixAction struct {
	Type        FixActionType `json:"type"`
	Command     string        `json:"command,omitempty"`
	Safe        bool          `json:"safe,omitempty"`
	Description string        `json:"description,omitempty"`
	File        string        `json:"file,omitempty"`
	Line        int           `json:"line,omitempty"`
}

// StrataError represents an engine error with code, message, and suggestions
type StrataError struct {
	Code           ErrorCode   `json:"code"`
	Message        string      `json:"message"`
	Details        interface{} `json:"details,omitempty"`
	SuggestedFixes []FixAction `json:"suggestedFixes,omitempty"`
	cause          error       // Underlying error (not exported to JSON)
}

// New creates a StrataError with the default fixes for its code.
func New(code ErrorCode, message string, cause error) *StrataError {
	return &StrataError{
		Code:           code,
		Message:        message,
		cause:          cause,
		SuggestedFixes: GetSuggestedFixes(code),
	}
}

// Newf is New with a formatted message and no cause.
func Newf(code ErrorCode, format string, args ...interface{}) *StrataError {
	return New(code, fmt.Sprintf(format, args...), nil)
}

// Error implements the error interface
func (e *StrataError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *StrataError) Unwrap() error {
	return e.cause
}

// Is matches another StrataError by code so errors.Is works against sentinels.
func (e *StrataError) Is(target error) bool {
	t, ok := target.(*StrataError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithDetails adds details to the error
func (e *StrataError) WithDetails(details interface{}) *StrataError {
	e.Details = details
	return e
}

// WithFix appends a suggested fix
func (e *StrataError) WithFix(fix FixAction) *StrataError {
	e.SuggestedFixes = append(e.SuggestedFixes, fix)
	return e
}

// CodeOf returns the code of the first StrataError in err's chain, or "" if none.
func CodeOf(err error) ErrorCode {
	var se *StrataError
	if stderrors.As(err, &se) {
		return se.Code
	}
	return ""
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// ErrorActions maps error codes to suggested fix actions
var ErrorActions = map[ErrorCode][]FixAction{
	PreconditionFailed: {
		{
			Type:        RunCommand,
			Command:     "strata plan",
			Safe:        true,
			Description: "Source tree changed since planning; regenerate the plan",
		},
	},
	MoveConflict: {
		{
			Type:        ManualEdit,
			Description: "Rename or remove the file occupying the destination, then re-run",
		},
	},
	ImportRewriteFailure: {
		{
			Type:        ManualEdit,
			Description: "Update the flagged import by hand",
		},
	},
	ClassificationAmbiguity: {
		{
			Type:        Review,
			Description: "Confirm or override the level before approving",
		},
	},
	VerificationFailure: {
		{
			Type:        RunCommand,
			Command:     "strata history --reverse",
			Safe:        true,
			Description: "List inverse moves if the run should be reverted",
		},
	},
	PlanImmutable: {
		{
			Type:        RunCommand,
			Command:     "strata plan",
			Safe:        true,
			Description: "Start a new plan instead of modifying an approved one",
		},
	},
}

// GetSuggestedFixes returns suggested fixes for an error code
func GetSuggestedFixes(code ErrorCode) []FixAction {
	if fixes, ok := ErrorActions[code]; ok {
		out := make([]FixAction, len(fixes))
		copy(out, fixes)
		return out
	}
	return nil
}
