package availability

import (
	"context"
	"errors"
	"fmt"

	"github.com/saaskit/signupcheck/internal/model"
)

// TenantSource lists the tenants that currently claim a subdomain or port.
// docker.TenantLister is the production implementation.
type TenantSource interface {
	Tenants(ctx context.Context) ([]model.Tenant, error)
}

// StaticSource is a fixed tenant list, typically declared in configuration
// for tenants hosted outside the local Docker daemon.
type StaticSource []model.Tenant

// Tenants returns a copy of the static list.
func (s StaticSource) Tenants(_ context.Context) ([]model.Tenant, error) {
	out := make([]model.Tenant, len(s))
	copy(out, s)
	return out, nil
}

// MultiSource concatenates the tenants of several sources. Any source error
// fails the whole listing: answering "available" while a source is
// unreachable could hand the same port to two tenants.
type MultiSource []TenantSource

// Tenants queries every source in order.
func (m MultiSource) Tenants(ctx context.Context) ([]model.Tenant, error) {
	var (
		all  []model.Tenant
		errs []error
	)
	for i, src := range m {
		if src == nil {
			continue
		}
		tenants, err := src.Tenants(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("tenant source %d: %w", i, err))
			continue
		}
		all = append(all, tenants...)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return all, nil
}
