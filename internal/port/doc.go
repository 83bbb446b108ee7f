// Package port decides which host ports a tenant may publish on.
//
// Tenant ports live in the range 8081-65535. The Allocator hands out the
// lowest port that is neither reserved, claimed by an existing tenant (as
// recorded in Docker labels), nor, when probing is enabled, bound on the
// host. The Scanner performs that host probe with net.Listen.
package port
