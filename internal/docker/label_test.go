package docker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saaskit/signupcheck/internal/model"
)

// TestBuildLabels verifies that a tenant is encoded into the saas.* label
// schema, with the type defaulting to "tenant".
func TestBuildLabels(t *testing.T) {
	labels := BuildLabels(model.Tenant{Subdomain: "acme", Port: 8082})

	assert.Equal(t, map[string]string{
		"saas.type":   "tenant",
		"saas.tenant": "acme",
		"saas.port":   "8082",
	}, labels)
}

// TestBuildLabels_NoPort verifies that a zero port produces no port label.
func TestBuildLabels_NoPort(t *testing.T) {
	labels := BuildLabels(model.Tenant{Subdomain: "acme", Type: TypeWaiting})

	assert.Equal(t, TypeWaiting, labels[LabelType])
	_, ok := labels[LabelPort]
	assert.False(t, ok, "no port label expected")
}

// TestParseLabels_RoundTrip verifies that ParseLabels inverts BuildLabels.
func TestParseLabels_RoundTrip(t *testing.T) {
	in := model.Tenant{Subdomain: "globex", Port: 9001, Type: TypeWaiting}

	out, err := ParseLabels(BuildLabels(in))
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

// TestParseLabels_Errors covers missing type, foreign type values and
// malformed ports.
func TestParseLabels_Errors(t *testing.T) {
	tests := []struct {
		name   string
		labels map[string]string
		errSub string
	}{
		{
			name:   "missing type",
			labels: map[string]string{LabelTenant: "acme"},
			errSub: "missing required Docker label saas.type",
		},
		{
			name:   "foreign type",
			labels: map[string]string{LabelType: "database"},
			errSub: "unexpected value",
		},
		{
			name:   "non-numeric port",
			labels: map[string]string{LabelType: TypeTenant, LabelPort: "eighty"},
			errSub: "invalid label saas.port",
		},
		{
			name:   "port out of range",
			labels: map[string]string{LabelType: TypeTenant, LabelPort: "70000"},
			errSub: "out of range",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseLabels(tt.labels)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSub)
		})
	}
}

// TestParseLabels_PortOnly verifies that containers carrying only the type
// and port labels still parse.
func TestParseLabels_PortOnly(t *testing.T) {
	tenant, err := ParseLabels(map[string]string{LabelType: TypeTenant, LabelPort: " 8090 "})
	require.NoError(t, err)
	assert.Equal(t, 8090, tenant.Port)
	assert.Empty(t, tenant.Subdomain)
}

// TestFilterValues verifies the listing filters on label presence only.
func TestFilterValues(t *testing.T) {
	assert.Equal(t, []string{"saas.type"}, FilterValues())
}
