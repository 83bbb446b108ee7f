package port

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedProber reports the ports in busy as bound on the host.
type fixedProber struct {
	busy  map[int]bool
	calls int
}

func (f *fixedProber) IsPortAvailable(port int, _ string) bool {
	f.calls++
	return !f.busy[port]
}

// TestNewAllocator_RaisesStart verifies that a start below the tenant range
// is raised to MinTenantPort.
func TestNewAllocator_RaisesStart(t *testing.T) {
	a := NewAllocator(80, nil, nil)
	assert.Equal(t, MinTenantPort, a.Start())

	a = NewAllocator(9000, nil, nil)
	assert.Equal(t, 9000, a.Start())
}

// TestAllocator_Reserved verifies Reserved returns a sorted copy.
func TestAllocator_Reserved(t *testing.T) {
	a := NewAllocator(MinTenantPort, []int{9069, 8080, 9069}, nil)
	assert.Equal(t, []int{8080, 9069}, a.Reserved())
}

// TestNext_EmptyHost verifies the first allocation is the start port.
func TestNext_EmptyHost(t *testing.T) {
	a := NewAllocator(MinTenantPort, DefaultReserved, nil)

	port, err := a.Next(nil)
	require.NoError(t, err)
	assert.Equal(t, 8081, port)
}

// TestNext_SkipsTakenAndReserved covers the original submit-flow loop:
// tenant ports and reserved ports are stepped over.
func TestNext_SkipsTakenAndReserved(t *testing.T) {
	tests := []struct {
		name     string
		start    int
		reserved []int
		taken    []int
		want     int
	}{
		{"skip tenants", 8081, DefaultReserved, []int{8081, 8082}, 8083},
		{"taken out of order", 8081, DefaultReserved, []int{8083, 8081, 8082}, 8084},
		{"skip reserved", 9069, DefaultReserved, nil, 9070},
		{"reserved and taken adjacent", 9068, DefaultReserved, []int{9068, 9070}, 9071},
		{"gap is reused", 8081, nil, []int{8081, 8083}, 8082},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAllocator(tt.start, tt.reserved, nil)
			port, err := a.Next(tt.taken)
			require.NoError(t, err)
			assert.Equal(t, tt.want, port)
		})
	}
}

// TestNext_Exhausted verifies the error when nothing is free up to MaxPort.
func TestNext_Exhausted(t *testing.T) {
	a := NewAllocator(MaxPort-1, []int{MaxPort}, nil)

	_, err := a.Next([]int{MaxPort - 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no free tenant port")
}

// TestNext_Probe verifies host-bound ports are skipped when probing.
func TestNext_Probe(t *testing.T) {
	probe := &fixedProber{busy: map[int]bool{8081: true, 8082: true}}
	a := NewAllocator(MinTenantPort, nil, probe)

	port, err := a.Next(nil)
	require.NoError(t, err)
	assert.Equal(t, 8083, port)
	assert.Equal(t, 3, probe.calls)
}

// TestNext_HostCheckSkippedForTaken verifies the host is not checked for
// ports already excluded by the taken or reserved sets.
func TestNext_HostCheckSkippedForTaken(t *testing.T) {
	probe := &fixedProber{}
	a := NewAllocator(MinTenantPort, []int{8082}, probe)

	port, err := a.Next([]int{8081})
	require.NoError(t, err)
	assert.Equal(t, 8083, port)
	assert.Equal(t, 1, probe.calls)
}

// TestInUse covers each reason a port is reported taken.
func TestInUse(t *testing.T) {
	probe := &fixedProber{busy: map[int]bool{9500: true}}
	a := NewAllocator(MinTenantPort, DefaultReserved, probe)
	taken := []int{8090}

	assert.True(t, a.InUse(9069, taken), "reserved")
	assert.True(t, a.InUse(8090, taken), "tenant")
	assert.True(t, a.InUse(9500, taken), "bound on host")
	assert.False(t, a.InUse(8091, taken))
}

// TestInUse_RealScanner verifies the allocator works with the real Scanner
// against a listener bound by the test.
func TestInUse_RealScanner(t *testing.T) {
	listener, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	defer func() { _ = listener.Close() }()
	bound := listener.Addr().(*net.TCPAddr).Port

	a := NewAllocator(MinTenantPort, nil, NewScanner())
	assert.True(t, a.InUse(bound, nil))
}
