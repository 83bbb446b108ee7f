package model

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestKind_String verifies that Kind values produce the expected string
// representations used on the wire and in CLI arguments.
func TestKind_String(t *testing.T) {
	assert.Equal(t, "port", KindPort.String())
	assert.Equal(t, "subdomain", KindSubdomain.String())
}

// TestParseKind verifies string-to-kind conversion, including case
// normalization, surrounding whitespace and error cases.
func TestParseKind(t *testing.T) {
	tests := []struct {
		input    string
		expected Kind
		hasError bool
	}{
		{"port", KindPort, false},
		{"subdomain", KindSubdomain, false},
		{"PORT", KindPort, false},
		{" Subdomain ", KindSubdomain, false},
		{"identifier", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result, err := ParseKind(tt.input)
			if tt.hasError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

// TestValidity_IsValid checks that only defined validity values pass.
func TestValidity_IsValid(t *testing.T) {
	for _, v := range []Validity{
		ValidityEmpty, ValidityTooShort, ValidityOutOfRange, ValidityPending,
		ValidityAvailable, ValidityUnavailable, ValidityError,
	} {
		assert.True(t, v.IsValid(), "%s should be valid", v)
	}
	assert.False(t, Validity("maybe").IsValid())
	assert.False(t, Validity("").IsValid())
}

// TestValidity_Classification verifies the helpers that group states into
// local violations and settled states.
func TestValidity_Classification(t *testing.T) {
	assert.True(t, ValidityTooShort.IsLocalViolation())
	assert.True(t, ValidityOutOfRange.IsLocalViolation())
	assert.False(t, ValidityUnavailable.IsLocalViolation())
	assert.False(t, ValidityEmpty.IsLocalViolation())

	assert.False(t, ValidityPending.IsSettled())
	assert.True(t, ValidityAvailable.IsSettled())
	assert.True(t, ValidityError.IsSettled())
}

// TestExitCodeFor verifies the mapping from final validity to CLI exit code.
func TestExitCodeFor(t *testing.T) {
	tests := []struct {
		validity Validity
		want     ExitCode
	}{
		{ValidityAvailable, ExitSuccess},
		{ValidityUnavailable, ExitUnavailable},
		{ValidityTooShort, ExitInvalidInput},
		{ValidityOutOfRange, ExitInvalidInput},
		{ValidityEmpty, ExitInvalidInput},
		{ValidityError, ExitCheckFailed},
		{ValidityPending, ExitGeneralError},
	}

	for _, tt := range tests {
		t.Run(tt.validity.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCodeFor(tt.validity))
		})
	}
}

// TestConstraintError verifies the message format of local violations.
func TestConstraintError(t *testing.T) {
	err := &ConstraintError{
		Kind:     KindSubdomain,
		Validity: ValidityTooShort,
		Message:  "Subdomain must be at least 3 characters",
	}
	assert.Equal(t, "subdomain: Subdomain must be at least 3 characters", err.Error())

	var target *ConstraintError
	wrapped := fmt.Errorf("input rejected: %w", err)
	require.True(t, errors.As(wrapped, &target))
	assert.Equal(t, ValidityTooShort, target.Validity)
}

// TestCLIError_Error verifies that CLIError formats messages correctly
// with and without an underlying error.
func TestCLIError_Error(t *testing.T) {
	plain := NewCLIError(ExitInvalidInput, "bad port")
	assert.Equal(t, "bad port", plain.Error())
	assert.Equal(t, ExitInvalidInput, plain.Code)

	wrapped := WrapCLIError(ExitCheckFailed, "check failed", ErrRemoteCheck)
	assert.Equal(t, "check failed: remote availability check failed", wrapped.Error())
	assert.True(t, errors.Is(wrapped, ErrRemoteCheck), "Unwrap should expose the sentinel")
}
