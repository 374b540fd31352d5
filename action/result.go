package action

import "fmt"

// Result is what every Init and Tick returns.
type Result int

const (
	// Running means the action has not reached a terminal outcome yet.
	Running Result = iota

	// Success is the positive terminal outcome.
	Success

	// FailureRetry is terminal but transient; the owner may run the action again.
	FailureRetry

	// FailureAbort is terminal and must not be retried.
	FailureAbort

	// FailureProceed is terminal but non-fatal; owners continue as if it succeeded.
	FailureProceed
)

// String returns a human-readable representation of the Result
func (r Result) String() string {
	switch r {
	case Running:
		return "running"
	case Success:
		return "success"
	case FailureRetry:
		return "failure_retry"
	case FailureAbort:
		return "failure_abort"
	case FailureProceed:
		return "failure_proceed"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (r Result) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Result) UnmarshalText(b []byte) error {
	for c := Running; c <= FailureProceed; c++ {
		if c.String() == string(b) {
			*r = c
			return nil
		}
	}
	return fmt.Errorf("unknown result %q", b)
}

// IsTerminal reports whether r ends an attempt.
func (r Result) IsTerminal() bool {
	return r != Running
}

// IsFailure reports whether r is FailureRetry or FailureAbort.
// FailureProceed is deliberately not a failure for owners.
func (r Result) IsFailure() bool {
	return r == FailureRetry || r == FailureAbort
}
