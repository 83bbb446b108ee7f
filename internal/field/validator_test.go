package field

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saaskit/signupcheck/internal/model"
)

// manualScheduler records scheduled tasks and runs them only when the
// test says so. It replaces wall-clock timers to make debounce behaviour
// deterministic.
type manualScheduler struct {
	mu    sync.Mutex
	tasks []*manualTimer
}

type manualTimer struct {
	sched   *manualScheduler
	delay   time.Duration
	fn      func()
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	t.sched.mu.Lock()
	defer t.sched.mu.Unlock()
	wasPending := !t.stopped && !t.fired
	t.stopped = true
	return wasPending
}

func (s *manualScheduler) AfterFunc(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &manualTimer{sched: s, delay: d, fn: f}
	s.tasks = append(s.tasks, t)
	return t
}

// pending returns the timers that are neither stopped nor fired.
func (s *manualScheduler) pending() []*manualTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*manualTimer
	for _, t := range s.tasks {
		if !t.stopped && !t.fired {
			out = append(out, t)
		}
	}
	return out
}

// fire runs every pending timer on the calling goroutine.
func (s *manualScheduler) fire() {
	for _, t := range s.pending() {
		s.mu.Lock()
		t.fired = true
		s.mu.Unlock()
		t.fn()
	}
}

// stubChecker answers immediately from a table and records every call.
type stubChecker struct {
	mu      sync.Mutex
	calls   []string
	results map[string]model.ValidationResult
	err     error
}

func (c *stubChecker) Check(_ context.Context, _ model.Kind, value string) (model.ValidationResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, value)
	if c.err != nil {
		return model.ValidationResult{}, c.err
	}
	return c.results[value], nil
}

func (c *stubChecker) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

// heldCall is a check that blocks until the test replies.
type heldCall struct {
	value string
	reply chan model.ValidationResult
}

// heldChecker hands every call to the test through a channel, which lets a
// test resolve requests in any order.
type heldChecker struct {
	calls chan *heldCall
}

func newHeldChecker() *heldChecker {
	return &heldChecker{calls: make(chan *heldCall, 8)}
}

func (c *heldChecker) Check(_ context.Context, _ model.Kind, value string) (model.ValidationResult, error) {
	call := &heldCall{value: value, reply: make(chan model.ValidationResult, 1)}
	c.calls <- call
	return <-call.reply, nil
}

type rendered struct {
	validity model.Validity
	message  string
}

// recorder is a Renderer that keeps every render for later assertions.
type recorder struct {
	mu    sync.Mutex
	items []rendered
}

func (r *recorder) Render(_ model.Kind, validity model.Validity, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, rendered{validity, message})
}

func (r *recorder) Items() []rendered {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]rendered(nil), r.items...)
}

func newTestValidator(t *testing.T, kind model.Kind, checker AvailabilityChecker) (*Validator, *manualScheduler, *recorder) {
	t.Helper()
	sched := &manualScheduler{}
	rec := &recorder{}
	v, err := New(kind, checker, rec, WithScheduler(sched))
	require.NoError(t, err)
	t.Cleanup(v.Close)
	return v, sched, rec
}

// TestNew_Validation verifies constructor argument checks.
func TestNew_Validation(t *testing.T) {
	_, err := New("identifier", &stubChecker{}, nil)
	assert.Error(t, err, "unknown kind should be rejected")

	_, err = New(model.KindPort, nil, nil)
	assert.Error(t, err, "nil checker should be rejected")

	v, err := New(model.KindPort, &stubChecker{}, nil)
	require.NoError(t, err, "nil renderer is allowed")
	defer v.Close()
	assert.Equal(t, model.KindPort, v.Kind())
	assert.Equal(t, model.ValidityEmpty, v.State().Validity)
	assert.False(t, v.logger.Enabled(context.Background(), slog.LevelError),
		"without WithLogger nothing is logged")
}

// TestInput_PortOutOfRangeNeverCallsRemote verifies that ports outside
// [8081, 65535] are rejected synchronously and never scheduled.
func TestInput_PortOutOfRangeNeverCallsRemote(t *testing.T) {
	for _, raw := range []string{"1", "80", "8080", "65536", "99999", "-1", "abc"} {
		t.Run(raw, func(t *testing.T) {
			checker := &stubChecker{}
			v, sched, _ := newTestValidator(t, model.KindPort, checker)

			v.Input(raw)
			assert.Equal(t, model.ValidityOutOfRange, v.State().Validity)
			assert.Empty(t, sched.pending(), "no check may be scheduled")

			sched.fire()
			assert.Empty(t, checker.Calls())
		})
	}
}

// TestInput_PortInRangeSchedulesOneCheck verifies that a valid port moves
// to Pending and produces exactly one call after the settle delay.
func TestInput_PortInRangeSchedulesOneCheck(t *testing.T) {
	for _, raw := range []string{"8081", "9000", "65535"} {
		t.Run(raw, func(t *testing.T) {
			checker := &stubChecker{results: map[string]model.ValidationResult{
				raw: {Available: true, Message: "ok"},
			}}
			v, sched, _ := newTestValidator(t, model.KindPort, checker)

			v.Input(raw)
			assert.Equal(t, model.ValidityPending, v.State().Validity)
			pending := sched.pending()
			require.Len(t, pending, 1)
			assert.Equal(t, DefaultSettleDelay, pending[0].delay)
			assert.Empty(t, checker.Calls(), "nothing is sent before the delay")

			sched.fire()
			assert.Equal(t, []string{raw}, checker.Calls())
			assert.Equal(t, model.ValidityAvailable, v.State().Validity)
			assert.Equal(t, uint64(1), v.State().LastRequestID)
		})
	}
}

// TestInput_SubdomainTooShort verifies that short subdomains never reach
// the remote checker.
func TestInput_SubdomainTooShort(t *testing.T) {
	checker := &stubChecker{}
	v, sched, rec := newTestValidator(t, model.KindSubdomain, checker)

	for _, raw := range []string{"a", "ab", "A-b", "a!"} {
		v.Input(raw)
		assert.Equal(t, model.ValidityTooShort, v.State().Validity, "input %q", raw)
	}
	sched.fire()
	assert.Empty(t, checker.Calls())

	items := rec.Items()
	require.NotEmpty(t, items)
	assert.Equal(t, MsgSubdomainTooShort, items[len(items)-1].message)
}

// TestInput_RapidTypingIssuesSingleCall types "ab", "abc", "abcd" inside
// one settle window and expects a single remote call for "abcd".
func TestInput_RapidTypingIssuesSingleCall(t *testing.T) {
	checker := &stubChecker{results: map[string]model.ValidationResult{
		"abcd": {Available: true, Message: "Subdomain is available"},
	}}
	v, sched, _ := newTestValidator(t, model.KindSubdomain, checker)

	v.Input("ab")
	v.Input("abc")
	v.Input("abcd")

	require.Len(t, sched.pending(), 1, "earlier timers must be cancelled")
	sched.fire()

	assert.Equal(t, []string{"abcd"}, checker.Calls())
	assert.Equal(t, model.ValidityAvailable, v.State().Validity)
}

// TestInput_RealTimerDebounce runs the same burst against wall-clock
// timers with a short delay.
func TestInput_RealTimerDebounce(t *testing.T) {
	checker := &stubChecker{results: map[string]model.ValidationResult{
		"abcd": {Available: true, Message: "free"},
	}}
	v, err := New(model.KindSubdomain, checker, nil, WithSettleDelay(30*time.Millisecond))
	require.NoError(t, err)
	defer v.Close()

	v.Input("ab")
	v.Input("abc")
	v.Input("abcd")

	require.Eventually(t, func() bool {
		return v.State().Validity == model.ValidityAvailable
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"abcd"}, checker.Calls())
}

// TestSettle_StaleResponseDiscarded resolves an older request after a
// newer one and checks that the displayed state belongs to the newer one.
func TestSettle_StaleResponseDiscarded(t *testing.T) {
	checker := newHeldChecker()
	v, sched, _ := newTestValidator(t, model.KindSubdomain, checker)

	v.Input("abc")
	go sched.fire()
	first := <-checker.calls
	require.Equal(t, "abc", first.value)

	v.Input("abcd")
	go sched.fire()
	second := <-checker.calls
	require.Equal(t, "abcd", second.value)

	second.reply <- model.ValidationResult{Available: true, Message: "abcd is free"}
	require.Eventually(t, func() bool {
		return v.State().Validity == model.ValidityAvailable
	}, time.Second, 5*time.Millisecond)

	first.reply <- model.ValidationResult{Available: false, Message: "abc is taken"}
	v.Wait()

	state := v.State()
	assert.Equal(t, model.ValidityAvailable, state.Validity)
	assert.Equal(t, "abcd is free", state.Message)
	assert.Equal(t, uint64(2), state.LastRequestID)
}

// TestSettle_ReplyAfterLocalViolationDiscarded checks that a reply for a
// value the user has since shortened below the minimum does not override
// the TooShort hint.
func TestSettle_ReplyAfterLocalViolationDiscarded(t *testing.T) {
	checker := newHeldChecker()
	v, sched, _ := newTestValidator(t, model.KindSubdomain, checker)

	v.Input("abc")
	go sched.fire()
	call := <-checker.calls

	v.Input("ab")
	assert.Equal(t, model.ValidityTooShort, v.State().Validity)

	call.reply <- model.ValidationResult{Available: true, Message: "free"}
	v.Wait()
	assert.Equal(t, model.ValidityTooShort, v.State().Validity)
}

// TestScenario_Port follows the "8080" then "9000" walkthrough.
func TestScenario_Port(t *testing.T) {
	checker := &stubChecker{results: map[string]model.ValidationResult{
		"9000": {Available: true, Message: "Port 9000 is available"},
	}}
	v, sched, rec := newTestValidator(t, model.KindPort, checker)

	v.Input("8080")
	state := v.State()
	assert.Equal(t, model.ValidityOutOfRange, state.Validity)
	assert.Equal(t, "Port must be between 8081 and 65535", state.Message)

	v.Input("9000")
	assert.Equal(t, model.ValidityPending, v.State().Validity)

	sched.fire()
	state = v.State()
	assert.Equal(t, model.ValidityAvailable, state.Validity)
	assert.Equal(t, "Port 9000 is available", state.Message)

	assert.Equal(t, []rendered{
		{model.ValidityOutOfRange, MsgPortOutOfRange},
		{model.ValidityPending, MsgPortChecking},
		{model.ValidityAvailable, "Port 9000 is available"},
	}, rec.Items())
}

// TestScenario_Subdomain follows the "ab" then "abc" walkthrough with a
// taken subdomain.
func TestScenario_Subdomain(t *testing.T) {
	checker := &stubChecker{results: map[string]model.ValidationResult{
		"abc": {Available: false, Message: "Subdomain taken"},
	}}
	v, sched, rec := newTestValidator(t, model.KindSubdomain, checker)

	v.Input("ab")
	assert.Equal(t, model.ValidityTooShort, v.State().Validity)

	v.Input("abc")
	assert.Equal(t, model.ValidityPending, v.State().Validity)

	sched.fire()
	assert.Equal(t, []string{"abc"}, checker.Calls())
	state := v.State()
	assert.Equal(t, model.ValidityUnavailable, state.Validity)
	assert.Equal(t, "Subdomain taken", state.Message)

	items := rec.Items()
	require.Len(t, items, 3)
	assert.Equal(t, rendered{model.ValidityPending, MsgSubdomainChecking}, items[1])
}

// TestScenario_RemoteFailure verifies that a rejected check ends in Error
// with the generic message and is not retried.
func TestScenario_RemoteFailure(t *testing.T) {
	checker := &stubChecker{err: errors.New("connection refused")}
	v, sched, rec := newTestValidator(t, model.KindSubdomain, checker)

	v.Input("acme")
	sched.fire()

	state := v.State()
	assert.Equal(t, model.ValidityError, state.Validity)
	assert.Equal(t, MsgSubdomainCheckFail, state.Message)
	assert.Len(t, checker.Calls(), 1)
	assert.Empty(t, sched.pending(), "failures are not retried")

	items := rec.Items()
	assert.Equal(t, rendered{model.ValidityError, MsgSubdomainCheckFail}, items[len(items)-1])

	// The next input starts a fresh cycle.
	checker.mu.Lock()
	checker.err = nil
	checker.results = map[string]model.ValidationResult{"acme2": {Available: true, Message: "free"}}
	checker.mu.Unlock()

	v.Input("acme2")
	sched.fire()
	assert.Equal(t, model.ValidityAvailable, v.State().Validity)
}

// TestScenario_Timeout verifies that a check exceeding the timeout is
// reported as a remote failure.
func TestScenario_Timeout(t *testing.T) {
	slow := CheckerFunc(func(ctx context.Context, _ model.Kind, _ string) (model.ValidationResult, error) {
		<-ctx.Done()
		return model.ValidationResult{}, ctx.Err()
	})
	sched := &manualScheduler{}
	v, err := New(model.KindPort, slow, nil, WithScheduler(sched), WithCheckTimeout(10*time.Millisecond))
	require.NoError(t, err)
	defer v.Close()

	v.Input("9000")
	sched.fire()

	state := v.State()
	assert.Equal(t, model.ValidityError, state.Validity)
	assert.Equal(t, MsgPortCheckError, state.Message)
}

// TestInput_EmptyClearsFeedback verifies that clearing the input cancels
// the pending check and renders an empty message.
func TestInput_EmptyClearsFeedback(t *testing.T) {
	checker := &stubChecker{}
	v, sched, rec := newTestValidator(t, model.KindPort, checker)

	v.Input("9000")
	v.Input("")

	assert.Empty(t, sched.pending())
	sched.fire()
	assert.Empty(t, checker.Calls())

	state := v.State()
	assert.Equal(t, model.ValidityEmpty, state.Validity)
	assert.Empty(t, state.Message)
	items := rec.Items()
	assert.Equal(t, rendered{model.ValidityEmpty, ""}, items[len(items)-1])
}

// TestFlush_FiresImmediately verifies that Flush runs the scheduled check
// without waiting for the settle delay.
func TestFlush_FiresImmediately(t *testing.T) {
	checker := &stubChecker{results: map[string]model.ValidationResult{
		"9000": {Available: true, Message: "Port 9000 is available!"},
	}}
	v, err := New(model.KindPort, checker, nil, WithSettleDelay(time.Hour))
	require.NoError(t, err)
	defer v.Close()

	v.Input("9000")
	v.Flush()

	assert.Equal(t, model.ValidityAvailable, v.State().Validity)
	assert.Equal(t, []string{"9000"}, checker.Calls())

	// A second flush has nothing to do.
	v.Flush()
	assert.Len(t, checker.Calls(), 1)
}

// TestClose_DetachesValidator verifies that Close cancels the pending
// check and ignores later input.
func TestClose_DetachesValidator(t *testing.T) {
	checker := &stubChecker{}
	v, sched, _ := newTestValidator(t, model.KindSubdomain, checker)

	v.Input("acme")
	v.Close()
	sched.fire()
	assert.Empty(t, checker.Calls())

	v.Input("other")
	assert.Equal(t, "acme", v.State().RawValue, "input after Close is ignored")
}

// TestState_TracksRawAndNormalized verifies the snapshot fields.
func TestState_TracksRawAndNormalized(t *testing.T) {
	v, _, _ := newTestValidator(t, model.KindSubdomain, &stubChecker{})

	v.Input("My-Shop")
	state := v.State()
	assert.Equal(t, "My-Shop", state.RawValue)
	assert.Equal(t, "myshop", state.NormalizedValue)
	assert.Equal(t, uint64(0), state.LastRequestID, "no request issued before settle")
}
