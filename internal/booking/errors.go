package booking

import (
	"fmt"
	"strings"
)

// ValidationError reports a rejected scratchpad write. Writes are rejected at
// the boundary, never silently coerced.
type ValidationError struct {
	Section string
	Field   string
	Reason  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("booking: invalid field write %s.%s: %s", e.Section, e.Field, e.Reason)
}

// MissingRequiredFieldError is returned by the request builder when one or
// more required fields are still null at build time.
type MissingRequiredFieldError struct {
	Missing []FieldRef
}

func (e *MissingRequiredFieldError) Error() string {
	refs := make([]string, 0, len(e.Missing))
	for _, ref := range e.Missing {
		refs = append(refs, ref.String())
	}
	return fmt.Sprintf("booking: missing required fields: %s", strings.Join(refs, ", "))
}

// IllegalTransitionError reports a state transition outside the allowed table.
type IllegalTransitionError struct {
	From State
	To   State
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("booking: illegal transition %s -> %s", e.From, e.To)
}
