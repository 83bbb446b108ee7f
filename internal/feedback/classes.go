// Package feedback renders field validity for people and programs.
//
// Three renderers satisfy field.Renderer:
//   - Terminal writes one styled line per state change
//   - HTML writes the inline fragment the signup page shows under each input
//   - JSONLines writes one JSON object per state change for scripting
package feedback

import "github.com/saaskit/signupcheck/internal/model"

// Classes are the CSS classes the signup page applies for a validity.
// Empty strings mean "remove all classes of that group".
type Classes struct {
	// Feedback is set on the port feedback element: "available" or
	// "unavailable".
	Feedback string `json:"feedback"`

	// Input is set on the subdomain input: "is-valid" or "is-invalid".
	Input string `json:"input"`

	// Text is the Bootstrap text colour of the subdomain hint.
	Text string `json:"text"`
}

// ClassesFor maps a validity to the page's CSS classes.
func ClassesFor(v model.Validity) Classes {
	switch v {
	case model.ValidityAvailable:
		return Classes{Feedback: "available", Input: "is-valid", Text: "text-success"}
	case model.ValidityUnavailable, model.ValidityError:
		return Classes{Feedback: "unavailable", Input: "is-invalid", Text: "text-danger"}
	case model.ValidityOutOfRange:
		return Classes{Feedback: "unavailable", Text: "text-danger"}
	case model.ValidityTooShort:
		return Classes{Text: "text-warning"}
	case model.ValidityPending:
		return Classes{Text: "text-muted"}
	default:
		return Classes{}
	}
}

// icon returns the Font Awesome icon class shown before the message, or ""
// for states rendered without one.
func icon(kind model.Kind, v model.Validity) string {
	switch v {
	case model.ValidityPending:
		if kind == model.KindPort {
			return "fa fa-spinner fa-spin"
		}
		return ""
	case model.ValidityAvailable:
		if kind == model.KindSubdomain {
			return "fa fa-check-circle"
		}
		return "fa fa-check"
	case model.ValidityUnavailable:
		if kind == model.KindSubdomain {
			return "fa fa-exclamation-circle"
		}
		return "fa fa-times"
	case model.ValidityOutOfRange:
		return "fa fa-times"
	case model.ValidityError:
		if kind == model.KindPort {
			return "fa fa-times"
		}
		return ""
	default:
		return ""
	}
}
