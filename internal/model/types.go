package model

import (
	"errors"
	"fmt"
	"strings"
)

// Kind identifies which signup input a value belongs to. Each kind has its
// own normalization rules, local constraints and remote endpoint.
type Kind string

const (
	// KindPort is the tenant HTTP port chosen on the signup form.
	KindPort Kind = "port"

	// KindSubdomain is the tenant subdomain chosen on the signup form.
	// Subdomains are lowercased and stripped to [a-z0-9] before use.
	KindSubdomain Kind = "subdomain"
)

// String returns the string representation of Kind.
// This method satisfies the fmt.Stringer interface.
func (k Kind) String() string {
	return string(k)
}

// IsValid checks whether the Kind value is one of the predefined kinds.
func (k Kind) IsValid() bool {
	switch k {
	case KindPort, KindSubdomain:
		return true
	default:
		return false
	}
}

// ParseKind converts a string to a Kind.
// Returns an error if the string does not match any valid kind.
func ParseKind(s string) (Kind, error) {
	kind := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !kind.IsValid() {
		return "", fmt.Errorf("invalid field kind: %q (valid: port, subdomain)", s)
	}
	return kind, nil
}

// Validity is the feedback state of a single signup field.
//
// The transitions driven by the validator are:
//
//	any ──input──► Empty | TooShort | OutOfRange          (local, synchronous)
//	any ──input──► Pending ──settle──► Available | Unavailable | Error
type Validity string

const (
	// ValidityEmpty means the input is blank and the feedback is cleared.
	ValidityEmpty Validity = "empty"

	// ValidityTooShort means a subdomain is shorter than the minimum length.
	ValidityTooShort Validity = "too_short"

	// ValidityOutOfRange means a port is outside the accepted range or is
	// not a number at all.
	ValidityOutOfRange Validity = "out_of_range"

	// ValidityPending means local constraints passed and a remote check is
	// scheduled or in flight.
	ValidityPending Validity = "pending"

	// ValidityAvailable means the remote check reported the value as free.
	ValidityAvailable Validity = "available"

	// ValidityUnavailable means the remote check reported the value as taken.
	ValidityUnavailable Validity = "unavailable"

	// ValidityError means the remote check failed (transport error,
	// timeout, malformed reply).
	ValidityError Validity = "error"
)

// String returns the string representation of Validity.
func (v Validity) String() string {
	return string(v)
}

// IsValid checks whether the Validity value is one of the predefined states.
func (v Validity) IsValid() bool {
	switch v {
	case ValidityEmpty, ValidityTooShort, ValidityOutOfRange, ValidityPending,
		ValidityAvailable, ValidityUnavailable, ValidityError:
		return true
	default:
		return false
	}
}

// IsLocalViolation reports whether the state was decided by a local
// constraint. Such states never reach the remote checker.
func (v Validity) IsLocalViolation() bool {
	return v == ValidityTooShort || v == ValidityOutOfRange
}

// IsSettled reports whether no further transition will happen without new
// input. Pending is the only unsettled state.
func (v Validity) IsSettled() bool {
	return v != ValidityPending
}

// FieldState is the observable state of one signup field.
//
// Invariant: Validity is only ever set from a remote response when that
// response carries the request id of the currently active request.
type FieldState struct {
	// RawValue is the text exactly as the user typed it.
	RawValue string `json:"rawValue"`

	// NormalizedValue is RawValue after kind-specific normalization.
	// For ports this is the canonical decimal form ("09000" → "9000").
	NormalizedValue string `json:"normalizedValue"`

	// Validity is the current feedback state.
	Validity Validity `json:"validity"`

	// LastRequestID is the id of the most recently issued remote check.
	// It increases monotonically and is zero until the first check fires.
	LastRequestID uint64 `json:"lastRequestId"`

	// Message is the feedback text currently rendered for this field.
	Message string `json:"message,omitempty"`
}

// ValidationResult is the reply of a remote availability check.
type ValidationResult struct {
	// Available is true when the value can be claimed by a new tenant.
	Available bool `json:"available"`

	// Message is a human-readable explanation shown next to the input.
	Message string `json:"message"`

	// Subdomain echoes the server-normalized subdomain on success.
	Subdomain string `json:"subdomain,omitempty"`
}

// Tenant is a provisioned (or provisioning) tenant instance.
//
// Tenants are reconstructed at runtime from Docker container labels
// (see internal/docker) or declared statically in configuration. There is
// no persistent tenant database in this module.
type Tenant struct {
	// Subdomain is the tenant's unique subdomain (saas.tenant label).
	Subdomain string `json:"subdomain"`

	// Port is the host port published for the tenant (saas.port label).
	// Zero means the tenant has no port assigned yet.
	Port int `json:"port,omitempty"`

	// Type is the saas.type label value: "tenant" for a running instance,
	// "waiting" for the placeholder container shown before approval.
	Type string `json:"type,omitempty"`

	// ContainerID is the Docker container ID, empty for static tenants.
	ContainerID string `json:"containerId,omitempty"`

	// ContainerName is the Docker container name without the leading "/".
	ContainerName string `json:"containerName,omitempty"`

	// Status is the Docker container state ("running", "exited", ...).
	Status string `json:"status,omitempty"`
}

// Plan is a subscription plan offered on the signup form.
type Plan struct {
	// ID is the unique plan identifier submitted with the form.
	ID string `json:"id" yaml:"id" validate:"required"`

	// Name is the display name.
	Name string `json:"name" yaml:"name" validate:"required"`

	// Sequence orders plans on the page (ascending).
	Sequence int `json:"sequence" yaml:"sequence"`

	// Active plans are offered; inactive ones are hidden.
	Active bool `json:"active" yaml:"active"`

	// Modules lists the modules installed for tenants on this plan.
	Modules []string `json:"modules,omitempty" yaml:"modules"`

	// Price is the monthly price shown on the plan card.
	Price float64 `json:"price,omitempty" yaml:"price" validate:"gte=0"`
}

// ConstraintError is a local constraint violation (TooShort, OutOfRange).
// It is always recovered locally and rendered as an inline hint; it is
// never escalated to the remote checker.
type ConstraintError struct {
	Kind     Kind
	Validity Validity
	Message  string
}

// Error satisfies the error interface.
func (e *ConstraintError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// ErrRemoteCheck marks failures of the remote availability check.
// Callers wrap transport errors with it so logs and tests can use errors.Is.
var ErrRemoteCheck = errors.New("remote availability check failed")

// ExitCode defines standard CLI exit codes.
// These codes allow scripts and CI systems to programmatically determine
// the outcome of a command.
type ExitCode int

const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess ExitCode = 0

	// ExitGeneralError indicates an unspecified error occurred.
	ExitGeneralError ExitCode = 1

	// ExitInvalidInput indicates the value failed a local constraint.
	ExitInvalidInput ExitCode = 2

	// ExitDockerNotRunning indicates the Docker daemon is not accessible.
	ExitDockerNotRunning ExitCode = 3

	// ExitPortAllocationFailed indicates no free tenant port was found.
	ExitPortAllocationFailed ExitCode = 4

	// ExitCheckFailed indicates the remote availability check failed.
	ExitCheckFailed ExitCode = 5

	// ExitUnavailable indicates the value is already taken.
	ExitUnavailable ExitCode = 6

	// ExitConfigError indicates the configuration could not be loaded.
	ExitConfigError ExitCode = 7
)

// CLIError is a custom error type that carries an exit code.
// This allows the CLI layer to translate domain errors into
// appropriate process exit codes.
type CLIError struct {
	// Code is the exit code to return to the OS.
	Code ExitCode

	// Message is the human-readable error description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error satisfies the error interface. It returns the human-readable
// error message, optionally including the underlying error.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a new CLIError with the given exit code and message.
func NewCLIError(code ExitCode, message string) *CLIError {
	return &CLIError{Code: code, Message: message}
}

// WrapCLIError creates a new CLIError that wraps an existing error.
func WrapCLIError(code ExitCode, message string, err error) *CLIError {
	return &CLIError{Code: code, Message: message, Err: err}
}

// ExitCodeFor maps a settled field validity to the exit code of the
// "check" command. Available is success; everything else is a failure
// of some specific kind.
func ExitCodeFor(v Validity) ExitCode {
	switch v {
	case ValidityAvailable:
		return ExitSuccess
	case ValidityUnavailable:
		return ExitUnavailable
	case ValidityTooShort, ValidityOutOfRange, ValidityEmpty:
		return ExitInvalidInput
	case ValidityError:
		return ExitCheckFailed
	default:
		return ExitGeneralError
	}
}
