// Package availability implements the server-side rules for the signup
// port and subdomain checks and the next-free-port allocation.
//
// Tenant state comes from a TenantSource: Docker container labels in
// production, optionally merged with a static list from configuration.
package availability
