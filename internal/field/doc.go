// Package field implements the debounced validator behind the signup
// form's port and subdomain inputs.
//
// A Validator owns the state of exactly one field. Every input event is
// normalized and checked against local constraints synchronously. When the
// value passes, a remote availability check is scheduled after a settle
// delay. Rescheduling replaces the pending check, so a burst of keystrokes
// produces a single remote call for the last value.
//
// Remote checks are tagged with a monotonically increasing request id.
// Only the reply of the active request may change the field's validity;
// replies that arrive after newer input are dropped without rendering.
//
// The package has no knowledge of the transport or of the presentation:
// it talks to an AvailabilityChecker and pushes state to a Renderer.
package field
