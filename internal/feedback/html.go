package feedback

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"

	"github.com/saaskit/signupcheck/internal/model"
)

var (
	textPolicyOnce sync.Once
	textPolicy     *bluemonday.Policy
)

// sanitizeText strips every tag from s and escapes what remains, so server
// messages that echo user input cannot inject markup.
func sanitizeText(s string) string {
	textPolicyOnce.Do(func() {
		textPolicy = bluemonday.StrictPolicy()
	})
	return strings.TrimSpace(textPolicy.Sanitize(s))
}

// Fragment returns the inner HTML of the feedback element for a state.
//
// Ports render an icon followed by the message; the element itself gets the
// Feedback class from ClassesFor. Subdomains wrap the hint in a <small>
// with a Bootstrap text colour. Empty renders as "".
func Fragment(kind model.Kind, v model.Validity, message string) string {
	if v == model.ValidityEmpty {
		return ""
	}
	msg := sanitizeText(message)

	var b strings.Builder
	if kind == model.KindSubdomain {
		fmt.Fprintf(&b, `<small class="%s">`, ClassesFor(v).Text)
	}
	if ic := icon(kind, v); ic != "" {
		fmt.Fprintf(&b, `<i class="%s"></i> `, ic)
	}
	b.WriteString(msg)
	if kind == model.KindSubdomain {
		b.WriteString("</small>")
	}
	return b.String()
}

// HTML writes one feedback element per render:
//
//	<div id="port-feedback" class="available"><i class="fa fa-check"></i> Port 8082 is available!</div>
type HTML struct {
	mu sync.Mutex
	w  io.Writer
}

// NewHTML creates an HTML renderer writing to w.
func NewHTML(w io.Writer) *HTML {
	return &HTML{w: w}
}

// Render writes the element for the given state.
func (h *HTML) Render(kind model.Kind, v model.Validity, message string) {
	classes := ClassesFor(v)
	attr := ""
	if kind == model.KindPort && classes.Feedback != "" {
		attr = fmt.Sprintf(` class="%s"`, classes.Feedback)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, _ = fmt.Fprintf(h.w, `<div id="%s-feedback"%s>%s</div>`+"\n", kind, attr, Fragment(kind, v, message))
}
