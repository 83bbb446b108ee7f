package feedback

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss/v2"

	"github.com/saaskit/signupcheck/internal/model"
)

var (
	kindStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	badStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// Terminal writes one line per render:
//
//	port ✓ Port 8082 is available!
//
// Colour is optional so output piped to files stays plain.
type Terminal struct {
	mu    sync.Mutex
	w     io.Writer
	color bool
}

// NewTerminal creates a Terminal renderer.
func NewTerminal(w io.Writer, color bool) *Terminal {
	return &Terminal{w: w, color: color}
}

// Render writes the line for the given state. Empty renders as the kind
// alone, marking the cleared feedback.
func (t *Terminal) Render(kind model.Kind, v model.Validity, message string) {
	mark, style := symbol(v)
	label := kind.String()
	line := mark
	if message != "" {
		line = mark + " " + message
	}
	if t.color {
		label = kindStyle.Render(label)
		line = style.Render(line)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if v == model.ValidityEmpty {
		_, _ = fmt.Fprintln(t.w, label)
		return
	}
	_, _ = fmt.Fprintln(t.w, label, line)
}

func symbol(v model.Validity) (string, lipgloss.Style) {
	switch v {
	case model.ValidityAvailable:
		return "✓", okStyle
	case model.ValidityUnavailable, model.ValidityOutOfRange, model.ValidityError:
		return "✗", badStyle
	case model.ValidityTooShort:
		return "!", warnStyle
	case model.ValidityPending:
		return "…", pendingStyle
	default:
		return "", pendingStyle
	}
}
