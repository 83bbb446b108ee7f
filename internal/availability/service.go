package availability

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/saaskit/signupcheck/internal/field"
	"github.com/saaskit/signupcheck/internal/model"
	"github.com/saaskit/signupcheck/internal/port"
)

// Messages returned by the server-side rules that the client never
// produces locally.
const (
	MsgPortRequired      = "Port is required"
	MsgSubdomainRequired = "Subdomain is required"
	MsgSubdomainFree     = "Subdomain is available"
)

// Service answers availability questions against the current tenants.
//
// Every call lists tenants fresh from its source, so the answer reflects
// containers started or removed since the last request. Service is safe for
// concurrent use.
type Service struct {
	source             TenantSource
	ports              *port.Allocator
	reservedSubdomains map[string]struct{}
	logger             *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithReservedSubdomains marks subdomains that can never be claimed
// (www, admin, ...). Entries are normalized the same way user input is.
func WithReservedSubdomains(names []string) Option {
	return func(s *Service) {
		for _, n := range names {
			if norm := field.NormalizeSubdomain(n); norm != "" {
				s.reservedSubdomains[norm] = struct{}{}
			}
		}
	}
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewService creates a Service. A nil source means no tenants exist; a nil
// allocator uses the default start port and reserved ports without host
// probing.
func NewService(source TenantSource, ports *port.Allocator, opts ...Option) *Service {
	if source == nil {
		source = StaticSource(nil)
	}
	if ports == nil {
		ports = port.NewAllocator(port.MinTenantPort, port.DefaultReserved, nil)
	}
	s := &Service{
		source:             source,
		ports:              ports,
		reservedSubdomains: make(map[string]struct{}),
		logger:             slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(slog.String("component", "availability"))
	return s
}

// CheckPort validates raw as a tenant port and reports whether it is free.
// Rule violations are answered with Available=false and a message; only a
// tenant source failure returns an error.
func (s *Service) CheckPort(ctx context.Context, raw string) (model.ValidationResult, error) {
	if strings.TrimSpace(raw) == "" {
		return unavailable(MsgPortRequired), nil
	}
	p, _, ok := field.NormalizePort(raw)
	if !ok {
		return unavailable(field.MsgPortNotNumber), nil
	}
	if p < field.MinPort || p > field.MaxPort {
		return unavailable(field.MsgPortOutOfRange), nil
	}

	taken, err := s.takenPorts(ctx)
	if err != nil {
		return model.ValidationResult{}, err
	}
	if s.ports.InUse(p, taken) {
		s.logger.DebugContext(ctx, "port taken", slog.Int("port", p))
		return unavailable(fmt.Sprintf("Port %d is already taken", p)), nil
	}
	return model.ValidationResult{
		Available: true,
		Message:   fmt.Sprintf("Port %d is available!", p),
	}, nil
}

// CheckSubdomain normalizes raw and reports whether it is free. On success
// the normalized subdomain is echoed back.
func (s *Service) CheckSubdomain(ctx context.Context, raw string) (model.ValidationResult, error) {
	if raw == "" {
		return unavailable(MsgSubdomainRequired), nil
	}
	sub := field.NormalizeSubdomain(raw)
	if len(sub) < field.MinSubdomainLength {
		return unavailable(field.MsgSubdomainTooShort), nil
	}

	taken := func() model.ValidationResult {
		return unavailable(fmt.Sprintf("Subdomain %q is already taken", sub))
	}
	if _, ok := s.reservedSubdomains[sub]; ok {
		return taken(), nil
	}

	tenants, err := s.source.Tenants(ctx)
	if err != nil {
		return model.ValidationResult{}, fmt.Errorf("list tenants: %w", err)
	}
	for _, t := range tenants {
		if field.NormalizeSubdomain(t.Subdomain) == sub {
			s.logger.DebugContext(ctx, "subdomain taken",
				slog.String("subdomain", sub),
				slog.String("container", t.ContainerName))
			return taken(), nil
		}
	}
	return model.ValidationResult{
		Available: true,
		Message:   MsgSubdomainFree,
		Subdomain: sub,
	}, nil
}

// AllocatePort returns the lowest free tenant port.
func (s *Service) AllocatePort(ctx context.Context) (int, error) {
	taken, err := s.takenPorts(ctx)
	if err != nil {
		return 0, err
	}
	p, err := s.ports.Next(taken)
	if err != nil {
		return 0, model.WrapCLIError(model.ExitPortAllocationFailed, "port allocation failed", err)
	}
	s.logger.InfoContext(ctx, "allocated tenant port", slog.Int("port", p))
	return p, nil
}

// Tenants returns the tenants known to the service's source.
func (s *Service) Tenants(ctx context.Context) ([]model.Tenant, error) {
	return s.source.Tenants(ctx)
}

// Check dispatches on kind so that a Service can serve directly as the
// availability checker of a field.Validator.
func (s *Service) Check(ctx context.Context, kind model.Kind, value string) (model.ValidationResult, error) {
	switch kind {
	case model.KindPort:
		return s.CheckPort(ctx, value)
	case model.KindSubdomain:
		return s.CheckSubdomain(ctx, value)
	default:
		return model.ValidationResult{}, fmt.Errorf("unsupported field kind %q", kind)
	}
}

func (s *Service) takenPorts(ctx context.Context) ([]int, error) {
	tenants, err := s.source.Tenants(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	ports := make([]int, 0, len(tenants))
	for _, t := range tenants {
		if t.Port > 0 {
			ports = append(ports, t.Port)
		}
	}
	return ports, nil
}

func unavailable(msg string) model.ValidationResult {
	return model.ValidationResult{Available: false, Message: msg}
}
