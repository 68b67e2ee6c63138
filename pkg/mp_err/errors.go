// pkg/mp_err/errors.go

// Package mp_err defines the error taxonomy shared by the parsers, the
// device orchestrators and the requirement validation engine. Call sites
// wrap these with cockroachdb/errors for stacks and hints; callers detect
// them with errors.As.
package mp_err

import (
	"fmt"
	"time"
)

// ParseError marks discovery output (JSON or tabular text) the parsers
// could not make sense of.
type ParseError struct {
	Source string // which listing was being parsed, e.g. "simctl device list"
	Cause  error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("malformed %s output: %v", e.Source, e.Cause)
	}
	return fmt.Sprintf("malformed %s output", e.Source)
}

func (e *ParseError) Unwrap() error { return e.Cause }

// FormatError marks a listing that parsed but was missing a section the
// caller explicitly demanded (e.g. no "Installed packages:" header).
type FormatError struct {
	Source  string
	Missing string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("%s output is missing %s", e.Source, e.Missing)
}

// UnsupportedComparisonError is returned when two distinct codename
// versions are compared; there is no defined order between them.
type UnsupportedComparisonError struct {
	Left  string
	Right string
}

func (e *UnsupportedComparisonError) Error() string {
	return fmt.Sprintf("cannot compare codename versions %q and %q", e.Left, e.Right)
}

// BootTimeoutError is raised when the boot poll budget is exhausted
// before the device reported a booted state.
type BootTimeoutError struct {
	Device   string
	Attempts int
	Elapsed  time.Duration
}

func (e *BootTimeoutError) Error() string {
	return fmt.Sprintf("device %s did not finish booting after %d polls (%s)",
		e.Device, e.Attempts, e.Elapsed.Round(time.Millisecond))
}

// DeviceCreationError is raised when the platform's create command
// failed. Creation failures are surfaced directly, never retried.
type DeviceCreationError struct {
	Name  string
	Cause error
}

func (e *DeviceCreationError) Error() string {
	return fmt.Sprintf("failed to create device %q: %v", e.Name, e.Cause)
}

func (e *DeviceCreationError) Unwrap() error { return e.Cause }

// ToolchainMissingError marks a requirement failure caused by an absent
// toolchain binary or SDK component.
type ToolchainMissingError struct {
	Tool   string
	Remedy string
}

func (e *ToolchainMissingError) Error() string {
	if e.Remedy != "" {
		return fmt.Sprintf("%s was not found. %s", e.Tool, e.Remedy)
	}
	return fmt.Sprintf("%s was not found", e.Tool)
}

// UnsupportedEnvironmentError marks a requirement failure where the tool
// was found but the host environment does not satisfy a minimum.
type UnsupportedEnvironmentError struct {
	Requirement string
	Detail      string
}

func (e *UnsupportedEnvironmentError) Error() string {
	return fmt.Sprintf("%s: %s", e.Requirement, e.Detail)
}

// LaunchError is raised when an install-or-launch command against a
// booted device failed.
type LaunchError struct {
	Target string // component route or app identifier
	Cause  error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("failed to launch %q: %v", e.Target, e.Cause)
}

func (e *LaunchError) Unwrap() error { return e.Cause }
