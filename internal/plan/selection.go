// Package plan implements the plan picker of the signup form: a set of
// mutually exclusive subscription plans of which exactly one is selected.
//
// The picker has no data dependency on the field validators.
package plan

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/saaskit/signupcheck/internal/model"
)

// ErrNoPlans is returned when no active plan is available to offer.
var ErrNoPlans = errors.New("no active subscription plans")

// Option is a plan card as shown on the form.
type Option struct {
	Plan     model.Plan `json:"plan"`
	Selected bool       `json:"selected"`
}

// Selection tracks which plan card is highlighted.
//
// Invariant: after New succeeds, exactly one option is selected.
type Selection struct {
	mu       sync.RWMutex
	plans    []model.Plan
	selected int
}

// New builds a Selection from the configured plans. Inactive plans are
// dropped and the rest are ordered by Sequence, then ID. The first plan is
// selected initially.
func New(plans []model.Plan) (*Selection, error) {
	active := make([]model.Plan, 0, len(plans))
	seen := make(map[string]bool, len(plans))
	for _, p := range plans {
		if !p.Active {
			continue
		}
		if seen[p.ID] {
			return nil, fmt.Errorf("duplicate plan id %q", p.ID)
		}
		seen[p.ID] = true
		active = append(active, p)
	}
	if len(active) == 0 {
		return nil, ErrNoPlans
	}

	slices.SortStableFunc(active, func(a, b model.Plan) int {
		return cmp.Or(cmp.Compare(a.Sequence, b.Sequence), cmp.Compare(a.ID, b.ID))
	})

	return &Selection{plans: active}, nil
}

// Select handles a selection-changed event. The plan with the given id
// becomes the only selected option. An unknown id leaves the current
// selection untouched and returns an error.
func (s *Selection) Select(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, p := range s.plans {
		if p.ID == id {
			s.selected = i
			return nil
		}
	}
	return fmt.Errorf("unknown plan %q", id)
}

// Selected returns the currently selected plan.
func (s *Selection) Selected() model.Plan {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.plans[s.selected]
}

// Options returns every offered plan in display order with its selected
// mark.
func (s *Selection) Options() []Option {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Option, len(s.plans))
	for i, p := range s.plans {
		out[i] = Option{Plan: p, Selected: i == s.selected}
	}
	return out
}
