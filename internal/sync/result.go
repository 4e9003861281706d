package sync

import (
	"fmt"
	"strings"
)

// Result summarises one reconciliation run. A non-empty Errors list does
// not mean the run failed; every other event was still processed.
type Result struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
	Deleted int `json:"deleted"`

	// Errors holds one human-readable message per failure, in the order
	// the failures happened.
	Errors []string `json:"errors,omitempty"`
}

// HasErrors reports whether any event or deletion step failed.
func (r Result) HasErrors() bool {
	return len(r.Errors) > 0
}

// Summary returns a one-line description suitable for showing a user.
func (r Result) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "created %d, updated %d, skipped %d, deleted %d",
		r.Created, r.Updated, r.Skipped, r.Deleted)

	switch len(r.Errors) {
	case 0:
	case 1:
		fmt.Fprintf(&b, "; 1 error: %s", r.Errors[0])
	default:
		fmt.Fprintf(&b, "; %d errors (first: %s)", len(r.Errors), r.Errors[0])
	}
	return b.String()
}

func (r *Result) addError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// failEvent records that the event with externalID could not be reconciled.
func (r *Result) failEvent(externalID string, err error) {
	r.addError("event %s: %v", externalID, err)
}
