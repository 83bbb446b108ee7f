package field

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/saaskit/signupcheck/internal/model"
)

const (
	// DefaultSettleDelay is how long input must stay unchanged before the
	// remote check fires.
	DefaultSettleDelay = 500 * time.Millisecond

	// DefaultCheckTimeout bounds a single remote check. A timeout is
	// reported like any other remote failure.
	DefaultCheckTimeout = 10 * time.Second
)

// AvailabilityChecker asks the backend whether a normalized value can
// still be claimed. Implementations must honour ctx cancellation.
type AvailabilityChecker interface {
	Check(ctx context.Context, kind model.Kind, value string) (model.ValidationResult, error)
}

// CheckerFunc adapts a plain function to AvailabilityChecker.
type CheckerFunc func(ctx context.Context, kind model.Kind, value string) (model.ValidationResult, error)

// Check calls f.
func (f CheckerFunc) Check(ctx context.Context, kind model.Kind, value string) (model.ValidationResult, error) {
	return f(ctx, kind, value)
}

// Renderer is the feedback sink. It is called with the validator's lock
// held, so implementations must not call back into the Validator.
type Renderer interface {
	Render(kind model.Kind, validity model.Validity, message string)
}

// RendererFunc adapts a plain function to Renderer.
type RendererFunc func(kind model.Kind, validity model.Validity, message string)

// Render calls f.
func (f RendererFunc) Render(kind model.Kind, validity model.Validity, message string) {
	f(kind, validity, message)
}

// Option configures a Validator.
type Option func(*Validator)

// WithSettleDelay overrides DefaultSettleDelay.
func WithSettleDelay(d time.Duration) Option {
	return func(v *Validator) { v.delay = d }
}

// WithCheckTimeout overrides DefaultCheckTimeout. Zero disables the timeout.
func WithCheckTimeout(d time.Duration) Option {
	return func(v *Validator) { v.timeout = d }
}

// WithScheduler replaces the wall-clock timer source.
func WithScheduler(s Scheduler) Option {
	return func(v *Validator) { v.sched = s }
}

// WithLogger sets the logger used for debug traces and check failures.
func WithLogger(l *slog.Logger) Option {
	return func(v *Validator) { v.logger = l }
}

// Validator is the debounced validator for a single signup field.
//
// All methods are safe for concurrent use. Input, timer callbacks and
// reply handling are serialized by an internal mutex, which gives the same
// ordering a single-threaded UI event loop would.
type Validator struct {
	kind     model.Kind
	checker  AvailabilityChecker
	renderer Renderer
	sched    Scheduler
	delay    time.Duration
	timeout  time.Duration
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.Mutex
	idle  *sync.Cond // signalled when inflight drops
	state model.FieldState

	// Single timer slot. gen identifies the task that currently owns the
	// slot; a callback carrying an older gen lost a race with newer input.
	timer     Timer
	gen       uint64
	scheduled bool
	pending   string

	// activeID is the request id whose reply may still update state.
	// Zero means no reply is wanted.
	activeID     uint64
	cancelActive context.CancelFunc
	inflight     int

	closed bool
}

// New creates a Validator for kind. The checker is required; a nil
// renderer discards feedback.
func New(kind model.Kind, checker AvailabilityChecker, renderer Renderer, opts ...Option) (*Validator, error) {
	if !kind.IsValid() {
		return nil, fmt.Errorf("field: invalid kind %q", kind)
	}
	if checker == nil {
		return nil, errors.New("field: availability checker is required")
	}
	if renderer == nil {
		renderer = RendererFunc(func(model.Kind, model.Validity, string) {})
	}

	v := &Validator{
		kind:     kind,
		checker:  checker,
		renderer: renderer,
		sched:    wallClock{},
		delay:    DefaultSettleDelay,
		timeout:  DefaultCheckTimeout,
		logger:   slog.New(slog.DiscardHandler),
		state:    model.FieldState{Validity: model.ValidityEmpty},
	}
	for _, opt := range opts {
		opt(v)
	}
	v.logger = v.logger.With(slog.String("component", "field"), slog.String("kind", kind.String()))
	v.idle = sync.NewCond(&v.mu)
	v.ctx, v.cancel = context.WithCancel(context.Background())
	return v, nil
}

// Kind returns the field kind this validator checks.
func (v *Validator) Kind() model.Kind {
	return v.kind
}

// State returns a snapshot of the field state.
func (v *Validator) State() model.FieldState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// Input handles one input-changed event.
//
// Local constraints are decided and rendered immediately. A locally valid
// value moves the field to Pending and (re)schedules the remote check.
// Any input invalidates the pending timer and the in-flight request.
func (v *Validator) Input(raw string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}

	v.invalidateLocked()

	normalized, validity, err := CheckLocal(v.kind, raw)
	v.state.RawValue = raw
	v.state.NormalizedValue = normalized

	switch {
	case err != nil:
		var ce *model.ConstraintError
		msg := err.Error()
		if errors.As(err, &ce) {
			msg = ce.Message
		}
		v.setLocked(validity, msg)
		return
	case validity == model.ValidityEmpty:
		v.setLocked(model.ValidityEmpty, "")
		return
	}

	v.setLocked(model.ValidityPending, pendingMessage(v.kind))

	v.gen++
	gen := v.gen
	v.pending = normalized
	v.scheduled = true
	v.timer = v.sched.AfterFunc(v.delay, func() { v.settle(gen) })
	v.logger.Debug("availability check scheduled",
		slog.String("value", normalized),
		slog.Duration("delay", v.delay))
}

// Flush fires a scheduled check immediately instead of waiting for the
// settle delay, then waits until no check is in flight.
func (v *Validator) Flush() {
	v.mu.Lock()
	gen, due := v.gen, v.scheduled
	if due && v.timer != nil {
		v.timer.Stop()
	}
	v.mu.Unlock()

	if due {
		v.settle(gen)
	}
	v.Wait()
}

// Wait blocks until no remote check is in flight. It does not wait for a
// check that is still scheduled; use Flush for that.
func (v *Validator) Wait() {
	v.mu.Lock()
	defer v.mu.Unlock()
	for v.inflight > 0 {
		v.idle.Wait()
	}
}

// Close detaches the validator. The pending timer is stopped, in-flight
// checks are cancelled and their replies dropped. Later input is ignored.
func (v *Validator) Close() {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.closed = true
	v.invalidateLocked()
	v.cancel()
	v.mu.Unlock()

	v.Wait()
}

// settle runs when the debounce timer for gen fires.
func (v *Validator) settle(gen uint64) {
	v.mu.Lock()
	if v.closed || !v.scheduled || gen != v.gen {
		v.mu.Unlock()
		return
	}
	v.scheduled = false
	v.timer = nil
	value := v.pending

	v.state.LastRequestID++
	id := v.state.LastRequestID
	v.activeID = id

	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if v.timeout > 0 {
		ctx, cancel = context.WithTimeout(v.ctx, v.timeout)
	} else {
		ctx, cancel = context.WithCancel(v.ctx)
	}
	v.cancelActive = cancel
	v.inflight++
	v.mu.Unlock()

	v.logger.Debug("issuing availability check",
		slog.String("value", value),
		slog.Uint64("request_id", id))

	result, err := v.checker.Check(ctx, v.kind, value)
	cancel()

	v.mu.Lock()
	defer v.mu.Unlock()
	defer func() {
		v.inflight--
		v.idle.Broadcast()
	}()

	if id != v.activeID {
		v.logger.Debug("discarding stale availability response",
			slog.Uint64("request_id", id),
			slog.Uint64("active_id", v.activeID))
		return
	}
	v.activeID = 0
	v.cancelActive = nil

	if err != nil {
		v.logger.Warn("availability check failed",
			slog.String("value", value),
			slog.Uint64("request_id", id),
			slog.String("error", fmt.Errorf("%w: %w", model.ErrRemoteCheck, err).Error()))
		v.setLocked(model.ValidityError, failureMessage(v.kind))
		return
	}

	if result.Available {
		v.setLocked(model.ValidityAvailable, result.Message)
	} else {
		v.setLocked(model.ValidityUnavailable, result.Message)
	}
}

// invalidateLocked stops the pending timer and abandons the in-flight
// request so that its reply is discarded.
func (v *Validator) invalidateLocked() {
	if v.timer != nil {
		v.timer.Stop()
		v.timer = nil
	}
	v.scheduled = false
	if v.cancelActive != nil {
		v.cancelActive()
		v.cancelActive = nil
	}
	v.activeID = 0
}

func (v *Validator) setLocked(validity model.Validity, message string) {
	v.state.Validity = validity
	v.state.Message = message
	v.renderer.Render(v.kind, validity, message)
}
