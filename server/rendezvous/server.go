// Package rendezvous implements the holepuncher role: the publicly
// reachable service that matches a server peer's registered session with a
// client peer's request and hands each side the other's NAT-mapped endpoint.
//
// After the one PeerInfo pair goes out, the holepuncher is out of the loop;
// the peers punch and talk directly.
package rendezvous

import (
	"context"
	"log/slog"
	"net/netip"
	"time"

	"github.com/edup2p/punch/types"
	"github.com/edup2p/punch/types/msgpunch"
)

// Server is the passive holepuncher machine around a Registry.
//
// Not safe for concurrent use; see types.Machine.
type Server struct {
	reg *Registry

	outbox []types.Datagram
}

// NewServer returns a holepuncher with default TTLs.
func NewServer() *Server {
	return &Server{reg: NewRegistry()}
}

// NewServerWithRegistry lets tests and tuned deployments supply their own.
func NewServerWithRegistry(reg *Registry) *Server {
	return &Server{reg: reg}
}

// Registry exposes the underlying registry, read-only by convention.
func (s *Server) Registry() *Registry {
	return s.reg
}

// Tick implements types.Machine.
//
// Within one tick, all registrations and refreshes are applied before any
// request is matched, so a Register and a RequestSession arriving together
// always find each other regardless of their order in the batch. The sweep
// runs last, after every activity timestamp has been bumped.
func (s *Server) Tick(now time.Time, in []types.Datagram) ([]types.Datagram, []types.Event) {
	s.outbox = nil

	type incoming struct {
		m    msgpunch.Message
		from netip.AddrPort
	}
	var requests []incoming

	for _, dg := range in {
		m, err := msgpunch.Parse(dg.Payload)
		if err != nil {
			s.L().Log(context.Background(), types.LevelTrace, "dropping datagram", "from", dg.Addr, "err", err)
			continue
		}

		from := types.NormaliseAddrPort(dg.Addr)

		switch m := m.(type) {
		case *msgpunch.Register:
			s.onRegister(now, from, m)
		case *msgpunch.Keepalive:
			s.onKeepalive(now, from, m)
		case *msgpunch.RequestSession:
			// deferred until every registration in this batch landed
			requests = append(requests, incoming{m, from})
		default:
			s.L().Log(context.Background(), types.LevelTrace, "ignoring message", "from", from, "msg", m.Debug())
		}
	}

	for _, req := range requests {
		s.onRequest(now, req.from, req.m.(*msgpunch.RequestSession))
	}

	for _, p := range s.reg.Sweep(now) {
		s.L().Debug("request expired", "session", p.ID.Debug(), "requester", p.Requester)
		s.send(p.Requester, &msgpunch.NoSuchSession{SessionID: p.ID})
	}

	return s.outbox, nil
}

func (s *Server) onRegister(now time.Time, from netip.AddrPort, m *msgpunch.Register) {
	matches := s.reg.Register(m.SessionID, from, now)

	s.L().Debug("registered session", "session", m.SessionID.Debug(), "server", from)
	s.send(from, &msgpunch.RegisterAck{SessionID: m.SessionID})

	for _, match := range matches {
		s.introduce(match)
	}
}

func (s *Server) onKeepalive(now time.Time, from netip.AddrPort, m *msgpunch.Keepalive) {
	if s.reg.Refresh(m.SessionID, now) {
		s.send(from, &msgpunch.RegisterAck{SessionID: m.SessionID})
	}
	// a keepalive for an evicted session gets no answer; the server peer
	// notices the missing acks and re-registers
}

func (s *Server) onRequest(now time.Time, from netip.AddrPort, m *msgpunch.RequestSession) {
	match, ok := s.reg.Request(m.SessionID, from, now)
	if !ok {
		s.L().Debug("request pending", "session", m.SessionID.Debug(), "requester", from)
		return
	}

	s.introduce(match)
}

// introduce sends each party the other's endpoint.
func (s *Server) introduce(match Match) {
	s.L().Info("introducing peers",
		"session", match.ID.Debug(),
		"server", match.Server,
		"requester", match.Requester)

	s.send(match.Requester, &msgpunch.PeerInfo{SessionID: match.ID, Peer: match.Server})
	s.send(match.Server, &msgpunch.PeerInfo{SessionID: match.ID, Peer: match.Requester})
}

func (s *Server) send(to netip.AddrPort, m msgpunch.Message) {
	s.outbox = append(s.outbox, types.Datagram{Payload: m.MarshalMessage(), Addr: to})
}

// L stands for Log
func (s *Server) L() *slog.Logger {
	return slog.With("role", "holepuncher")
}
