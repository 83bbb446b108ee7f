// container.go discovers tenants from the Docker daemon.
//
// Every container started by the provisioning flow carries the saas.*
// labels (see label.go). Listing those containers, including stopped
// ones, yields the set of subdomains and host ports already claimed.

package docker

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"

	"github.com/saaskit/signupcheck/internal/model"
)

// containerLister is the subset of the Docker SDK client used here.
// *client.Client satisfies it; tests substitute a fake.
type containerLister interface {
	ContainerList(ctx context.Context, options container.ListOptions) ([]container.Summary, error)
}

// TenantLister lists tenants by querying container labels.
type TenantLister struct {
	api    containerLister
	logger *slog.Logger
}

// NewTenantLister creates a TenantLister backed by the given client.
func NewTenantLister(c *Client, logger *slog.Logger) *TenantLister {
	return newTenantLister(c.api, logger)
}

func newTenantLister(api containerLister, logger *slog.Logger) *TenantLister {
	if logger == nil {
		logger = slog.Default()
	}
	return &TenantLister{
		api:    api,
		logger: logger.With(slog.String("component", "docker")),
	}
}

// Tenants returns every tenant found on the daemon, sorted by subdomain
// and then port.
//
// The All flag is set because a stopped tenant still owns its subdomain
// and port. Containers whose labels cannot be parsed are skipped with a
// warning instead of failing the whole listing.
func (l *TenantLister) Tenants(ctx context.Context) ([]model.Tenant, error) {
	args := filters.NewArgs()
	for _, v := range FilterValues() {
		args.Add("label", v)
	}

	containers, err := l.api.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: args,
	})
	if err != nil {
		return nil, model.WrapCLIError(
			model.ExitDockerNotRunning,
			"failed to list tenant containers",
			err,
		)
	}

	tenants := make([]model.Tenant, 0, len(containers))
	for _, c := range containers {
		t, err := containerToTenant(c)
		if err != nil {
			l.logger.WarnContext(ctx, "skipping container with malformed labels",
				slog.String("container", c.ID),
				slog.String("error", err.Error()))
			continue
		}
		tenants = append(tenants, t)
	}

	slices.SortFunc(tenants, func(a, b model.Tenant) int {
		return cmp.Or(cmp.Compare(a.Subdomain, b.Subdomain), cmp.Compare(a.Port, b.Port))
	})
	return tenants, nil
}

// containerToTenant converts a Docker API container summary to a Tenant.
// Docker returns names with a leading "/" which is stripped for display.
func containerToTenant(c container.Summary) (model.Tenant, error) {
	t, err := ParseLabels(c.Labels)
	if err != nil {
		return model.Tenant{}, err
	}

	name := ""
	if len(c.Names) > 0 {
		name = strings.TrimPrefix(c.Names[0], "/")
	}
	t.ContainerID = c.ID
	t.ContainerName = name
	t.Status = string(c.State)

	// Waiting containers are named "waiting_<subdomain>"; fall back to that
	// when the tenant label is missing.
	if t.Subdomain == "" && t.Type == TypeWaiting {
		t.Subdomain = strings.TrimPrefix(name, "waiting_")
	}
	return t, nil
}
