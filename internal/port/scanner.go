package port

import (
	"fmt"
	"net"
)

// Prober reports whether a host port is free. *Scanner implements it; the
// allocator accepts any Prober so tests can supply a fixed answer.
type Prober interface {
	IsPortAvailable(port int, protocol string) bool
}

// Scanner checks whether ports are free on the host by binding them.
//
// Asking the OS directly through net.Listen avoids parsing /proc/net or
// shelling out to lsof/ss, neither of which works without privileges on
// every platform.
type Scanner struct {
	// host is the bind address. Empty means all interfaces, which is where
	// Docker publishes tenant ports.
	host string
}

// NewScanner creates a Scanner that binds on all interfaces.
func NewScanner() *Scanner {
	return &Scanner{}
}

// NewScannerOn creates a Scanner that binds on the given host address.
func NewScannerOn(host string) *Scanner {
	return &Scanner{host: host}
}

// IsPortAvailable reports whether port can be bound for the given protocol
// ("tcp" or "udp"). The probe listener is closed immediately.
//
// Unknown protocols are reported as unavailable.
func (s *Scanner) IsPortAvailable(port int, protocol string) bool {
	addr := net.JoinHostPort(s.host, fmt.Sprint(port))

	switch protocol {
	case "tcp":
		listener, err := net.Listen("tcp", addr)
		if err != nil {
			return false
		}
		defer func() { _ = listener.Close() }()
		return true

	case "udp":
		conn, err := net.ListenPacket("udp", addr)
		if err != nil {
			return false
		}
		defer func() { _ = conn.Close() }()
		return true

	default:
		return false
	}
}
