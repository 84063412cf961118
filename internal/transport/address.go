package transport

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// Address is an immutable resolved endpoint.
type Address struct {
	IP   net.IP
	Port int
}

// NewAddress validates port against [0, 65535].
func NewAddress(ip net.IP, port int) (Address, error) {
	if port < 0 || port > 65535 {
		return Address{}, fmt.Errorf("port %d out of range", port)
	}
	return Address{IP: ip, Port: port}, nil
}

// AddressOf resolves a listener address. An unspecified bind address (":0", "0.0.0.0")
// is reported as this host's outbound IP so the value is something a peer can dial.
func AddressOf(addr net.Addr) (Address, error) {
	tcp, ok := addr.(*net.TCPAddr)
	if !ok {
		host, port, err := ParseHostPort(addr.String())
		if err != nil {
			return Address{}, err
		}
		return NewAddress(net.ParseIP(host), port)
	}
	ip := tcp.IP
	if ip == nil || ip.IsUnspecified() {
		ip = hostIP()
	}
	return NewAddress(ip, tcp.Port)
}

func (a Address) String() string {
	host := ""
	if a.IP != nil {
		host = a.IP.String()
	}
	return net.JoinHostPort(host, strconv.Itoa(a.Port))
}

// ParseHostPort splits "host:port" and validates the port.
func ParseHostPort(s string) (string, int, error) {
	host, p, err := net.SplitHostPort(strings.TrimSpace(s))
	if err != nil {
		return "", 0, fmt.Errorf("%q is not a valid address/port pair: %w", s, err)
	}
	port, err := strconv.Atoi(p)
	if err != nil {
		return "", 0, fmt.Errorf("%q is not a valid port", p)
	}
	if port < 0 || port > 65535 {
		return "", 0, fmt.Errorf("port %d out of range", port)
	}
	return host, port, nil
}

// hostIP picks the address the kernel would use for outbound traffic; no packets are
// sent by a UDP "dial". Falls back to loopback.
func hostIP() net.IP {
	c, err := net.Dial("udp", "192.0.2.1:9")
	if err != nil {
		return net.IPv4(127, 0, 0, 1)
	}
	defer c.Close()
	if ua, ok := c.LocalAddr().(*net.UDPAddr); ok && ua.IP != nil {
		return ua.IP
	}
	return net.IPv4(127, 0, 0, 1)
}
