package field

import (
	"errors"
	"strconv"
	"strings"

	"github.com/saaskit/signupcheck/internal/model"
)

const (
	// MinPort is the lowest port a tenant may request. Ports up to 8080
	// are reserved for the platform itself.
	MinPort = 8081

	// MaxPort is the highest valid TCP port number (2^16 - 1).
	MaxPort = 65535

	// MinSubdomainLength is the shortest normalized subdomain accepted.
	MinSubdomainLength = 3
)

// Feedback messages shared by the validator and the server-side rules so
// that the inline hint and the server reply read the same.
const (
	MsgPortOutOfRange     = "Port must be between 8081 and 65535"
	MsgPortNotNumber      = "Port must be a valid number"
	MsgSubdomainTooShort  = "Subdomain must be at least 3 characters"
	MsgPortChecking       = "Checking port availability..."
	MsgSubdomainChecking  = "Checking availability..."
	MsgPortCheckError     = "Error checking port"
	MsgSubdomainCheckFail = "Error checking subdomain"
)

// NormalizeSubdomain lowercases s and removes every character outside
// [a-z0-9]. The function is idempotent.
func NormalizeSubdomain(s string) string {
	lower := strings.ToLower(s)
	var b strings.Builder
	b.Grow(len(lower))
	for i := 0; i < len(lower); i++ {
		c := lower[i]
		// Byte-wise on purpose: multi-byte runes never fall in [a-z0-9],
		// so skipping their bytes drops them entirely.
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// NormalizePort parses a port from user input. Surrounding whitespace is
// ignored. The returned string is the canonical decimal form of the port.
// ok is false when the input is not a base-10 integer. An integer too large
// for int is still a number: port is clamped to the nearest int bound so
// range checks reject it.
func NormalizePort(s string) (port int, normalized string, ok bool) {
	trimmed := strings.TrimSpace(s)
	n, err := strconv.Atoi(trimmed)
	if errors.Is(err, strconv.ErrRange) {
		return n, trimmed, true
	}
	if err != nil {
		return 0, trimmed, false
	}
	return n, strconv.Itoa(n), true
}

// CheckLocal normalizes raw for the given kind and applies the local
// constraints that need no remote call.
//
// The returned validity is ValidityEmpty for blank input, ValidityPending
// when the value passes and a remote check is warranted, or the violated
// state together with a *model.ConstraintError.
func CheckLocal(kind model.Kind, raw string) (normalized string, validity model.Validity, err error) {
	switch kind {
	case model.KindPort:
		if strings.TrimSpace(raw) == "" {
			return "", model.ValidityEmpty, nil
		}
		port, norm, ok := NormalizePort(raw)
		if !ok {
			return norm, model.ValidityOutOfRange, violation(kind, model.ValidityOutOfRange, MsgPortNotNumber)
		}
		if port < MinPort || port > MaxPort {
			return norm, model.ValidityOutOfRange, violation(kind, model.ValidityOutOfRange, MsgPortOutOfRange)
		}
		return norm, model.ValidityPending, nil

	case model.KindSubdomain:
		norm := NormalizeSubdomain(raw)
		if norm == "" {
			return "", model.ValidityEmpty, nil
		}
		if len(norm) < MinSubdomainLength {
			return norm, model.ValidityTooShort, violation(kind, model.ValidityTooShort, MsgSubdomainTooShort)
		}
		return norm, model.ValidityPending, nil

	default:
		return "", model.ValidityError, &model.ConstraintError{
			Kind:     kind,
			Validity: model.ValidityError,
			Message:  "unsupported field kind",
		}
	}
}

func violation(kind model.Kind, v model.Validity, msg string) *model.ConstraintError {
	return &model.ConstraintError{Kind: kind, Validity: v, Message: msg}
}

// pendingMessage is the loading text shown while a check is outstanding.
func pendingMessage(kind model.Kind) string {
	if kind == model.KindPort {
		return MsgPortChecking
	}
	return MsgSubdomainChecking
}

// failureMessage is the generic text shown when a remote check fails.
func failureMessage(kind model.Kind) string {
	if kind == model.KindPort {
		return MsgPortCheckError
	}
	return MsgSubdomainCheckFail
}
