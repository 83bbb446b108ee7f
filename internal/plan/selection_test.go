package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saaskit/signupcheck/internal/model"
)

func samplePlans() []model.Plan {
	return []model.Plan{
		{ID: "pro", Name: "Pro", Sequence: 20, Active: true, Price: 49},
		{ID: "starter", Name: "Starter", Sequence: 10, Active: true, Price: 0},
		{ID: "legacy", Name: "Legacy", Sequence: 5, Active: false},
		{ID: "enterprise", Name: "Enterprise", Sequence: 30, Active: true, Price: 199},
	}
}

// countSelected returns how many options carry the selected mark.
func countSelected(opts []Option) int {
	n := 0
	for _, o := range opts {
		if o.Selected {
			n++
		}
	}
	return n
}

// TestNew_OrdersAndFiltersPlans verifies inactive plans are hidden and the
// rest are ordered by sequence.
func TestNew_OrdersAndFiltersPlans(t *testing.T) {
	sel, err := New(samplePlans())
	require.NoError(t, err)

	opts := sel.Options()
	require.Len(t, opts, 3)
	assert.Equal(t, "starter", opts[0].Plan.ID)
	assert.Equal(t, "pro", opts[1].Plan.ID)
	assert.Equal(t, "enterprise", opts[2].Plan.ID)
	assert.True(t, opts[0].Selected, "first plan is selected initially")
	assert.Equal(t, 1, countSelected(opts))
}

// TestNew_EqualSequenceOrdersByID verifies the tie-break on plan ID.
func TestNew_EqualSequenceOrdersByID(t *testing.T) {
	sel, err := New([]model.Plan{
		{ID: "gamma", Sequence: 1, Active: true},
		{ID: "alpha", Sequence: 1, Active: true},
		{ID: "first", Sequence: 0, Active: true},
	})
	require.NoError(t, err)

	opts := sel.Options()
	require.Len(t, opts, 3)
	assert.Equal(t, "first", opts[0].Plan.ID)
	assert.Equal(t, "alpha", opts[1].Plan.ID)
	assert.Equal(t, "gamma", opts[2].Plan.ID)
}

// TestNew_Errors covers the empty and duplicate cases.
func TestNew_Errors(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, ErrNoPlans)

	_, err = New([]model.Plan{{ID: "old", Active: false}})
	assert.ErrorIs(t, err, ErrNoPlans)

	_, err = New([]model.Plan{{ID: "a", Active: true}, {ID: "a", Active: true}})
	assert.Error(t, err)
}

// TestSelect_ExactlyOneSelected walks through every option and checks the
// exclusivity invariant after each selection-changed event.
func TestSelect_ExactlyOneSelected(t *testing.T) {
	sel, err := New(samplePlans())
	require.NoError(t, err)

	for _, id := range []string{"enterprise", "pro", "starter", "pro"} {
		require.NoError(t, sel.Select(id))
		opts := sel.Options()
		assert.Equal(t, 1, countSelected(opts), "after selecting %s", id)
		assert.Equal(t, id, sel.Selected().ID)
		for _, o := range opts {
			assert.Equal(t, o.Plan.ID == id, o.Selected)
		}
	}
}

// TestSelect_UnknownKeepsSelection verifies unknown or inactive ids do not
// change the highlighted plan.
func TestSelect_UnknownKeepsSelection(t *testing.T) {
	sel, err := New(samplePlans())
	require.NoError(t, err)
	require.NoError(t, sel.Select("pro"))

	assert.Error(t, sel.Select("legacy"), "inactive plans cannot be selected")
	assert.Error(t, sel.Select("missing"))
	assert.Equal(t, "pro", sel.Selected().ID)
	assert.Equal(t, 1, countSelected(sel.Options()))
}
