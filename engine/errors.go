package engine

import (
	"errors"
)

var (
	// ErrNoBrowserAvailable means neither a local engine nor a downloadable one could be used.
	ErrNoBrowserAvailable = errors.New("no browser available")

	// ErrMissingAutomationClient means a local engine was found but cannot be driven.
	ErrMissingAutomationClient = errors.New("local browser found, but it cannot be automated")
)

// EnvironmentError is a terminal setup problem, with steps the operator can take to fix it.
type EnvironmentError struct {
	Err         error
	Remediation string
}

func (e *EnvironmentError) Error() string {
	if e.Remediation == "" {
		return e.Err.Error()
	}
	return e.Err.Error() + "\n" + e.Remediation
}

func (e *EnvironmentError) Unwrap() error {
	return e.Err
}
