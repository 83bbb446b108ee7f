package port

import (
	"fmt"
	"slices"
)

const (
	// MinTenantPort is the lowest port a tenant may publish on. Ports below
	// it belong to the platform itself (the main instance listens on 8080).
	MinTenantPort = 8081

	// MaxPort is the highest valid TCP/UDP port number (2^16 - 1).
	MaxPort = 65535
)

// DefaultReserved lists ports that are never handed to tenants even though
// they fall inside the tenant range: 8080 is the main instance and 9069 its
// longpolling port.
var DefaultReserved = []int{8080, 9069}

// Allocator decides which host ports a new tenant may use.
//
// A port is taken when any of these holds:
//   - it is outside [MinTenantPort, MaxPort]
//   - it is in the reserved set
//   - it is in the taken set passed by the caller (ports of existing tenants)
//   - probing is enabled and the port cannot be bound on the host
//
// The taken set is passed per call rather than stored, so a single Allocator
// can be shared by concurrent requests that each list tenants fresh.
type Allocator struct {
	start    int
	reserved map[int]struct{}
	probe    Prober
}

// NewAllocator creates an Allocator whose search starts at start. A start
// below MinTenantPort is raised to it. probe may be nil to skip host
// probing, which is the default because the checking process often runs
// on a different host than the tenants.
func NewAllocator(start int, reserved []int, probe Prober) *Allocator {
	if start < MinTenantPort {
		start = MinTenantPort
	}
	set := make(map[int]struct{}, len(reserved))
	for _, p := range reserved {
		set[p] = struct{}{}
	}
	return &Allocator{start: start, reserved: set, probe: probe}
}

// Start returns the first port the allocator considers.
func (a *Allocator) Start() int {
	return a.start
}

// Reserved returns the reserved ports in ascending order.
func (a *Allocator) Reserved() []int {
	out := make([]int, 0, len(a.reserved))
	for p := range a.reserved {
		out = append(out, p)
	}
	slices.Sort(out)
	return out
}

// InUse reports whether port is unavailable given the ports of existing
// tenants. It does not check the tenant range; callers validate that first
// so they can report a range error instead of "taken".
func (a *Allocator) InUse(port int, taken []int) bool {
	if _, ok := a.reserved[port]; ok {
		return true
	}
	for _, t := range taken {
		if t == port {
			return true
		}
	}
	if a.probe != nil && !a.probe.IsPortAvailable(port, "tcp") {
		return true
	}
	return false
}

// Next returns the lowest free port at or above the start port.
//
// The taken slice is indexed once so the scan stays linear in the range
// size even with many tenants.
func (a *Allocator) Next(taken []int) (int, error) {
	used := make(map[int]struct{}, len(taken))
	for _, t := range taken {
		used[t] = struct{}{}
	}

	for port := a.start; port <= MaxPort; port++ {
		if _, ok := a.reserved[port]; ok {
			continue
		}
		if _, ok := used[port]; ok {
			continue
		}
		if a.probe != nil && !a.probe.IsPortAvailable(port, "tcp") {
			continue
		}
		return port, nil
	}
	return 0, fmt.Errorf("no free tenant port in range %d-%d", a.start, MaxPort)
}
