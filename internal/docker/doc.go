// Package docker discovers tenants from the containers running on a Docker
// daemon.
//
// Tenant state is never stored anywhere else: a tenant exists because a
// container carries the saas.type, saas.tenant and saas.port labels. The
// waiting page shown before approval is a container too, labelled
// saas.type=waiting, and its subdomain counts as claimed.
//
// TenantLister turns those labels into model.Tenant values for the
// availability rules. Client locates the daemon socket and negotiates the
// API version.
package docker
