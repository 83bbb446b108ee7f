package docker

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/saaskit/signupcheck/internal/model"
)

// Label keys written on tenant containers by the provisioning flow.
// These labels are the only tenant state this module reads; there is no
// tenant database to query.
//
// All keys share the "saas." prefix to namespace them and avoid
// collisions with labels set by other tools (Docker Compose, Traefik, ...).
const (
	// LabelPrefix is the common prefix for all signup labels.
	LabelPrefix = "saas."

	// LabelType distinguishes real tenant instances from the temporary
	// "waiting" placeholder containers started before approval.
	// Key: "saas.type", Value: TypeTenant or TypeWaiting.
	LabelType = LabelPrefix + "type"

	// LabelTenant stores the tenant's subdomain.
	// Key: "saas.tenant", Value: normalized subdomain (e.g., "acme").
	LabelTenant = LabelPrefix + "tenant"

	// LabelPort stores the host port published for the tenant.
	// Key: "saas.port", Value: decimal port (e.g., "8081").
	LabelPort = LabelPrefix + "port"
)

// Values of LabelType.
const (
	TypeTenant  = "tenant"
	TypeWaiting = "waiting"
)

// BuildLabels constructs the Docker label map for a tenant container.
// A tenant without a port gets no LabelPort entry.
func BuildLabels(t model.Tenant) map[string]string {
	typ := t.Type
	if typ == "" {
		typ = TypeTenant
	}
	labels := map[string]string{
		LabelType:   typ,
		LabelTenant: t.Subdomain,
	}
	if t.Port > 0 {
		labels[LabelPort] = strconv.Itoa(t.Port)
	}
	return labels
}

// ParseLabels reconstructs a Tenant from Docker container labels.
// This is the inverse of BuildLabels.
//
// LabelType is required and must be one of the known types. LabelTenant
// and LabelPort are optional because containers created by older
// provisioning runs carry only the port label; a malformed port is an
// error rather than a silent zero.
func ParseLabels(labels map[string]string) (model.Tenant, error) {
	typ, ok := labels[LabelType]
	if !ok {
		return model.Tenant{}, fmt.Errorf("missing required Docker label %s", LabelType)
	}
	if typ != TypeTenant && typ != TypeWaiting {
		return model.Tenant{}, fmt.Errorf(
			"label %s has unexpected value %q (expected %q or %q)",
			LabelType, typ, TypeTenant, TypeWaiting,
		)
	}

	t := model.Tenant{
		Type:      typ,
		Subdomain: strings.TrimSpace(labels[LabelTenant]),
	}

	if raw, ok := labels[LabelPort]; ok && strings.TrimSpace(raw) != "" {
		port, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return model.Tenant{}, fmt.Errorf("invalid label %s=%q: %w", LabelPort, raw, err)
		}
		if port < 1 || port > 65535 {
			return model.Tenant{}, fmt.Errorf("invalid label %s=%q: port out of range", LabelPort, raw)
		}
		t.Port = port
	}

	return t, nil
}

// FilterValues returns the "label" filter expressions that select every
// container carrying tenant state. Docker ANDs repeated label filters, so
// the filter matches on key presence and ParseLabels rejects foreign types.
func FilterValues() []string {
	return []string{LabelType}
}
