package wrangler

import (
	"errors"
	"fmt"

	"github.com/netsec-ethz/ctwrangler/pkg/sth"
)

var (
	// ErrInvalidInvocation: missing or invalid parameters. Nothing was modified.
	ErrInvalidInvocation = errors.New("invalid invocation")
	// ErrNetworkFailure: the tree head could not be obtained. Nothing was modified.
	ErrNetworkFailure = errors.New("network failure")
	// ErrConsistencyViolation: the log shrank. Nothing was modified and the log must be
	// looked at by an operator.
	ErrConsistencyViolation = errors.New("consistency violation")
	// ErrFetchFailure: the fetch tool failed or timed out. The checkpoint was not advanced.
	ErrFetchFailure = errors.New("fetch failure")
	// ErrIntegrityViolation: local storage does not match the checkpoint.
	ErrIntegrityViolation = errors.New("integrity violation")
)

// ConsistencyError is returned when the observed tree size is smaller than the recorded one.
type ConsistencyError struct {
	LogID    string
	Recorded *sth.STH
	Observed *sth.STH
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("%s: log %s: tree size went from %d to %d",
		ErrConsistencyViolation, e.LogID, e.Recorded.TreeSize, e.Observed.TreeSize)
}

func (e *ConsistencyError) Is(target error) bool {
	return target == ErrConsistencyViolation
}

// IntegrityError is returned when the checkpoint is corrupt or the number of entries in
// storage is not the expected one.
type IntegrityError struct {
	LogID  string
	Reason string
	Err    error
}

func (e *IntegrityError) Error() string {
	s := fmt.Sprintf("%s: log %s: %s", ErrIntegrityViolation, e.LogID, e.Reason)
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *IntegrityError) Is(target error) bool {
	return target == ErrIntegrityViolation
}

func (e *IntegrityError) Unwrap() error {
	return e.Err
}

// Exit codes of the wrangle command.
const (
	ExitOK                   = 0
	ExitFailure              = 1 // Retry-safe failures.
	ExitInvalidInvocation    = 2
	ExitConsistencyViolation = 3
	ExitIntegrityViolation   = 4
)

// ExitCode maps an error returned by Run to a process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrInvalidInvocation):
		return ExitInvalidInvocation
	case errors.Is(err, ErrConsistencyViolation):
		return ExitConsistencyViolation
	case errors.Is(err, ErrIntegrityViolation):
		return ExitIntegrityViolation
	default:
		return ExitFailure
	}
}

// errorKind is the label used for the failures metric.
func errorKind(err error) string {
	switch {
	case errors.Is(err, ErrInvalidInvocation):
		return "invalid_invocation"
	case errors.Is(err, ErrNetworkFailure):
		return "network"
	case errors.Is(err, ErrConsistencyViolation):
		return "consistency"
	case errors.Is(err, ErrFetchFailure):
		return "fetch"
	case errors.Is(err, ErrIntegrityViolation):
		return "integrity"
	default:
		return "other"
	}
}
