package verify

// ExitCode represents a CLI exit code.
type ExitCode int

const (
	// ExitSuccess indicates every unit moved and every check passed.
	ExitSuccess ExitCode = 0

	// ExitError indicates a general error.
	ExitError ExitCode = 1

	// ExitPartial indicates the migration finished but a unit failed or a
	// check reported errors.
	ExitPartial ExitCode = 2

	// ExitBlocked indicates a verification tool could not be run.
	ExitBlocked ExitCode = 3

	// ExitCancelled indicates the plan was cancelled before any write.
	ExitCancelled ExitCode = 4
)

// String returns a description of the exit code.
func (e ExitCode) String() string {
	switch e {
	case ExitSuccess:
		return "success"
	case ExitError:
		return "error"
	case ExitPartial:
		return "partial success"
	case ExitBlocked:
		return "blocked"
	case ExitCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// ExitResult represents an exit condition that's not an error.
// Use this for ExitPartial to avoid Cobra printing error messages.
type ExitResult struct {
	Code    ExitCode
	Message string
}

func (e *ExitResult) Error() string {
	return e.Message
}

// DetermineExitCode derives the exit code from the execution result and the
// verification report, which may be nil when verification was skipped.
func DetermineExitCode(migrated bool, report *Report) ExitCode {
	if report != nil && report.Outcome == Blocked {
		return ExitBlocked
	}
	if !migrated || (report != nil && report.Outcome == PartialSuccess) {
		return ExitPartial
	}
	return ExitSuccess
}
