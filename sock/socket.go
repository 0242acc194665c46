// Package sock manages the UDP socket. The socket can send and receive
// single datagrams; all reading is blocking and driven by the caller.
package sock

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
)

type Socket interface {
	// LocalAddr returns the local address of the socket.
	// It errors if the socket is not open.
	LocalAddr() (netip.AddrPort, error)

	// SendTo sends one datagram to the specified address.
	SendTo(addr netip.AddrPort, data []byte) error

	// ReceiveFrom blocks until a datagram arrives, copies it into buf and
	// returns the number of bytes received and the source address.
	// A datagram larger than buf is truncated to len(buf).
	ReceiveFrom(buf []byte) (int, netip.AddrPort, error)

	// Close closes the socket if it's open.
	Close() error
}

type udpSocket struct {
	conn *net.UDPConn
}

// Open opens a UDP socket bound to the given local address.
// A zero port lets the operating system choose one.
func Open(local netip.AddrPort) (Socket, error) {
	conn, err := net.ListenUDP("udp", net.UDPAddrFromAddrPort(local))
	if err != nil {
		return nil, fmt.Errorf("failed to open UDP socket on %s: %w", local, err)
	}

	return &udpSocket{conn: conn}, nil
}

// Resolve resolves a destination descriptor like "example.com:9000" to a
// concrete address. If the name resolves to multiple addresses, the first
// one is used.
func Resolve(dest string) (netip.AddrPort, error) {
	addr, err := net.ResolveUDPAddr("udp", dest)
	if err != nil {
		return netip.AddrPort{}, fmt.Errorf("failed to resolve %q: %w", dest, err)
	}

	return addr.AddrPort(), nil
}

func (s *udpSocket) LocalAddr() (netip.AddrPort, error) {
	if s.conn == nil {
		return netip.AddrPort{}, errors.New("UDP socket is not open")
	}
	return s.conn.LocalAddr().(*net.UDPAddr).AddrPort(), nil
}

func (s *udpSocket) SendTo(addr netip.AddrPort, data []byte) error {
	if s.conn == nil {
		return errors.New("UDP socket is not open")
	}

	_, err := s.conn.WriteToUDPAddrPort(data, addr)
	if err != nil {
		return fmt.Errorf("failed to send to %s: %w", addr, err)
	}

	return nil
}

func (s *udpSocket) ReceiveFrom(buf []byte) (int, netip.AddrPort, error) {
	if s.conn == nil {
		return 0, netip.AddrPort{}, errors.New("UDP socket is not open")
	}

	n, addr, err := s.conn.ReadFromUDPAddrPort(buf)
	if err != nil {
		return 0, netip.AddrPort{}, err
	}

	// Dual-stack sockets report IPv4 peers as 4-in-6 mapped addresses.
	// Unmap so the same peer always yields the same address.
	return n, netip.AddrPortFrom(addr.Addr().Unmap(), addr.Port()), nil
}

func (s *udpSocket) Close() error {
	if s.conn == nil {
		return nil
	}

	err := s.conn.Close()
	s.conn = nil

	return err
}
