package feedback

import (
	"encoding/json"
	"io"
	"sync"

	"github.com/saaskit/signupcheck/internal/model"
)

// Event is one JSONLines record.
type Event struct {
	Kind     model.Kind     `json:"kind"`
	Validity model.Validity `json:"validity"`
	Message  string         `json:"message"`
	Classes  Classes        `json:"classes"`
}

// JSONLines writes one Event per render, newline-delimited.
type JSONLines struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewJSONLines creates a JSONLines renderer writing to w.
func NewJSONLines(w io.Writer) *JSONLines {
	return &JSONLines{enc: json.NewEncoder(w)}
}

// Render writes the event for the given state.
func (j *JSONLines) Render(kind model.Kind, v model.Validity, message string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	_ = j.enc.Encode(Event{
		Kind:     kind,
		Validity: v,
		Message:  message,
		Classes:  ClassesFor(v),
	})
}
