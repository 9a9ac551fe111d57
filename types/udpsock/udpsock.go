// Package udpsock wraps a UDP socket in the non-blocking poll surface the
// punch drivers expect: try-receive and fire-and-forget send of opaque
// payloads, addressed by netip.AddrPort.
package udpsock

import (
	"errors"
	"net"
	"net/netip"
	"os"
	"slices"
	"time"

	"github.com/edup2p/punch/types"
)

// PacketSock is the socket collaborator a driver polls between ticks.
type PacketSock interface {
	// TryReceive returns the next queued datagram, if any, without blocking.
	// ok is false when nothing was waiting. err is only set when the socket
	// itself is broken (e.g. closed); per-datagram trouble never surfaces.
	TryReceive() (payload []byte, from netip.AddrPort, ok bool, err error)

	// Send puts one datagram on the wire, best effort. No delivery
	// confirmation exists or is implied.
	Send(payload []byte, to netip.AddrPort) error
}

// Sock is the real-socket PacketSock.
type Sock struct {
	conn *net.UDPConn
	buf  [64 << 10]byte
}

// Bind opens a UDP socket on ap. Use a zero port to let the OS pick one,
// which is what both peer roles do.
func Bind(ap netip.AddrPort) (*Sock, error) {
	conn, err := net.ListenUDP("udp", net.UDPAddrFromAddrPort(ap))
	if err != nil {
		return nil, err
	}
	return &Sock{conn: conn}, nil
}

// Wrap adopts an already-bound UDP socket.
func Wrap(conn *net.UDPConn) *Sock {
	return &Sock{conn: conn}
}

func (s *Sock) LocalAddrPort() netip.AddrPort {
	return s.conn.LocalAddr().(*net.UDPAddr).AddrPort()
}

func (s *Sock) TryReceive() ([]byte, netip.AddrPort, bool, error) {
	// A deadline in the past makes the read complete only if a datagram is
	// already queued.
	if err := s.conn.SetReadDeadline(time.Now()); err != nil {
		return nil, netip.AddrPort{}, false, err
	}

	n, from, err := s.conn.ReadFromUDPAddrPort(s.buf[:])
	if err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return nil, netip.AddrPort{}, false, nil
		}
		return nil, netip.AddrPort{}, false, err
	}

	// buf is reused on the next poll, hand out a copy
	return slices.Clone(s.buf[:n]), types.NormaliseAddrPort(from), true, nil
}

func (s *Sock) Send(payload []byte, to netip.AddrPort) error {
	_, err := s.conn.WriteToUDPAddrPort(payload, to)
	return err
}

func (s *Sock) Close() error {
	return s.conn.Close()
}

// ReceiveBatch drains up to max queued datagrams from sock.
func ReceiveBatch(sock PacketSock, max int) ([]types.Datagram, error) {
	var dgs []types.Datagram

	for len(dgs) < max {
		payload, from, ok, err := sock.TryReceive()
		if err != nil {
			return dgs, err
		}
		if !ok {
			break
		}
		dgs = append(dgs, types.Datagram{Payload: payload, Addr: from})
	}

	return dgs, nil
}
