package util

import (
	"fmt"
	"strings"
)

// ErrorsCoalesce returns nil if there are no non-nil errors, the error itself if there is only
// one, or an error listing all of them. errors.Is and errors.As see every coalesced error.
func ErrorsCoalesce(errs []error) error {
	nonNilErrors := make([]error, 0, len(errs))
	for _, err := range errs {
		if err != nil {
			nonNilErrors = append(nonNilErrors, err)
		}
	}
	switch len(nonNilErrors) {
	case 0:
		return nil
	case 1:
		return nonNilErrors[0]
	}
	return &coalescedErrors{errs: nonNilErrors}
}

type coalescedErrors struct {
	errs []error
}

func (e *coalescedErrors) Error() string {
	msgs := make([]string, len(e.errs))
	for i, err := range e.errs {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("multiple (%d) errors:\n%s", len(msgs), strings.Join(msgs, "\n"))
}

func (e *coalescedErrors) Unwrap() []error {
	return e.errs
}
