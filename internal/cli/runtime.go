package cli

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/saaskit/signupcheck/internal/availability"
	"github.com/saaskit/signupcheck/internal/config"
	"github.com/saaskit/signupcheck/internal/docker"
	"github.com/saaskit/signupcheck/internal/feedback"
	"github.com/saaskit/signupcheck/internal/field"
	"github.com/saaskit/signupcheck/internal/logging"
	"github.com/saaskit/signupcheck/internal/model"
	"github.com/saaskit/signupcheck/internal/port"
)

// runtime bundles what every command needs after flag parsing.
type runtime struct {
	cfg    *config.Config
	logger *slog.Logger

	// docker is set once tenantSource has connected to the daemon.
	docker *docker.Client
}

// loadRuntime reads the configuration and builds the logger. Logs go to
// stderr so they never mix with command output.
func loadRuntime() (*runtime, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger := logging.New(os.Stderr, logging.FromConfig(cfg.Logging, verbose))
	slog.SetDefault(logger)
	return &runtime{cfg: cfg, logger: logger}, nil
}

// tenantSource returns the configured tenant sources: Docker labels when
// enabled, merged with the static tenants from configuration. The returned
// cleanup closes the Docker client.
func (rt *runtime) tenantSource(ctx context.Context) (availability.TenantSource, func(), error) {
	sources := availability.MultiSource{availability.StaticSource(rt.cfg.Tenants)}
	cleanup := func() {}

	if rt.cfg.Docker.Enabled {
		dc, err := docker.NewClient(rt.cfg.Docker.Host)
		if err != nil {
			return nil, cleanup, err
		}
		if err := dc.Ping(ctx); err != nil {
			_ = dc.Close()
			return nil, cleanup, err
		}
		rt.logger.DebugContext(ctx, "connected to Docker daemon", slog.String("host", dc.Host()))
		sources = append(sources, docker.NewTenantLister(dc, rt.logger))
		rt.docker = dc
		cleanup = func() { _ = dc.Close() }
	}
	return sources, cleanup, nil
}

// service builds the in-process availability service.
func (rt *runtime) service(ctx context.Context) (*availability.Service, func(), error) {
	src, cleanup, err := rt.tenantSource(ctx)
	if err != nil {
		return nil, cleanup, err
	}

	var probe port.Prober
	switch {
	case !rt.cfg.Ports.ProbeHost:
	case rt.cfg.Ports.ProbeAddress != "":
		probe = port.NewScannerOn(rt.cfg.Ports.ProbeAddress)
	default:
		probe = port.NewScanner()
	}
	ports := port.NewAllocator(rt.cfg.Ports.Start, rt.cfg.Ports.Reserved, probe)
	rt.logger.DebugContext(ctx, "tenant port rules",
		slog.Int("start", ports.Start()),
		slog.Any("reserved", ports.Reserved()),
		slog.Bool("probe_host", probe != nil))

	svc := availability.NewService(
		src,
		ports,
		availability.WithReservedSubdomains(rt.cfg.Subdomains.Reserved),
		availability.WithLogger(rt.logger),
	)
	return svc, cleanup, nil
}

// remoteFlags selects where checks are answered.
type remoteFlags struct {
	server string
	local  bool
}

// serverURL returns the check server to use, or "" for in-process checks.
// --local wins over --server, which wins over validation.server_url.
func (f remoteFlags) serverURL(cfg *config.Config) string {
	if f.local {
		return ""
	}
	if f.server != "" {
		return f.server
	}
	return cfg.Validation.ServerURL
}

// checker returns the availability checker selected by flags. Nothing is
// connected until the first Check, so input rejected by the local rules
// never needs Docker or a check server.
func (rt *runtime) checker(f remoteFlags) *lazyChecker {
	return &lazyChecker{
		connect: func(ctx context.Context) (field.AvailabilityChecker, func(), error) {
			c, cleanup, err := rt.allocator(ctx, f)
			if err != nil {
				return nil, cleanup, err
			}
			return c, cleanup, nil
		},
	}
}

// lazyChecker connects its underlying checker on first use. A failed
// connect is retried by the next Check.
type lazyChecker struct {
	connect func(ctx context.Context) (field.AvailabilityChecker, func(), error)

	mu      sync.Mutex
	checker field.AvailabilityChecker
	cleanup func()
	err     error
}

func (l *lazyChecker) Check(ctx context.Context, kind model.Kind, value string) (model.ValidationResult, error) {
	c, err := l.get(ctx)
	if err != nil {
		return model.ValidationResult{}, err
	}
	return c.Check(ctx, kind, value)
}

func (l *lazyChecker) get(ctx context.Context) (field.AvailabilityChecker, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.checker != nil {
		return l.checker, nil
	}
	c, cleanup, err := l.connect(ctx)
	if err != nil {
		if cleanup != nil {
			cleanup()
		}
		l.err = err
		return nil, err
	}
	l.checker, l.cleanup, l.err = c, cleanup, nil
	return c, nil
}

// Err returns the error of the last failed connect, or nil once connected
// or when no check was ever made.
func (l *lazyChecker) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// Close releases whatever the connect acquired.
func (l *lazyChecker) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cleanup != nil {
		l.cleanup()
		l.cleanup = nil
	}
}

// validator builds a field validator with the configured timings.
func (rt *runtime) validator(kind model.Kind, checker field.AvailabilityChecker, r field.Renderer, opts ...field.Option) (*field.Validator, error) {
	base := []field.Option{
		field.WithSettleDelay(rt.cfg.Validation.SettleDelay),
		field.WithCheckTimeout(rt.cfg.Validation.CheckTimeout),
		field.WithLogger(rt.logger),
	}
	return field.New(kind, checker, r, append(base, opts...)...)
}

// newRenderer picks the feedback renderer for w: JSON lines with --json,
// HTML fragments with html, otherwise terminal lines coloured when w is a
// terminal.
func newRenderer(w io.Writer, html bool) field.Renderer {
	switch {
	case jsonOutput:
		return feedback.NewJSONLines(w)
	case html:
		return feedback.NewHTML(w)
	default:
		return feedback.NewTerminal(w, isTerminal(w))
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// settledError converts the settled state into the command's result. When
// the check failed because its checker could not connect, that error is
// reported instead so the exit code names the cause.
func settledError(state model.FieldState, checker *lazyChecker) error {
	if state.Validity == model.ValidityError {
		if err := checker.Err(); err != nil {
			return err
		}
	}
	return stateError(state)
}

// parseKind converts a positional argument to a field kind.
func parseKind(s string) (model.Kind, error) {
	kind, err := model.ParseKind(s)
	if err != nil {
		return "", model.WrapCLIError(model.ExitInvalidInput, "invalid field", err)
	}
	return kind, nil
}
