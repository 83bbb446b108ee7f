package port

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// freeTCPPort returns a port the OS just handed out and released.
func freeTCPPort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	p := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	return p
}

func TestScanner_FreePort(t *testing.T) {
	p := freeTCPPort(t)
	assert.True(t, NewScannerOn("127.0.0.1").IsPortAvailable(p, "tcp"))
}

func TestScanner_BoundPorts(t *testing.T) {
	tcp, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	defer func() { _ = tcp.Close() }()

	udp, err := net.ListenPacket("udp", ":0")
	require.NoError(t, err)
	defer func() { _ = udp.Close() }()

	s := NewScanner()
	assert.False(t, s.IsPortAvailable(tcp.Addr().(*net.TCPAddr).Port, "tcp"))
	assert.False(t, s.IsPortAvailable(udp.LocalAddr().(*net.UDPAddr).Port, "udp"))
}

func TestScanner_UnknownProtocol(t *testing.T) {
	assert.False(t, NewScanner().IsPortAvailable(freeTCPPort(t), "sctp"))
}

func TestScanner_Loopback(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer func() { _ = ln.Close() }()

	assert.False(t, NewScannerOn("127.0.0.1").IsPortAvailable(ln.Addr().(*net.TCPAddr).Port, "tcp"))
}

func TestScanner_ImplementsProber(t *testing.T) {
	var _ Prober = NewScanner()
}
