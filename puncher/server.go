package puncher

import (
	"context"
	"log/slog"
	"net/netip"
	"time"

	"github.com/edup2p/punch/puncher/punchstate"
	"github.com/edup2p/punch/types"
	"github.com/edup2p/punch/types/msgpunch"
	"github.com/edup2p/punch/types/retry"
	"github.com/edup2p/punch/types/session"
	"golang.org/x/exp/maps"
)

type serverPhase int

const (
	serverRegistering serverPhase = iota
	serverRegistered
	serverFailed
)

func (p serverPhase) String() string {
	switch p {
	case serverRegistering:
		return "registering"
	case serverRegistered:
		return "registered"
	case serverFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Server is the server peer machine: it maintains one session registration
// with a holepuncher and an open-ended set of per-client punch negotiations.
//
// Not safe for concurrent use; see types.Machine.
type Server struct {
	id          session.ID
	holepuncher netip.AddrPort

	phase    serverPhase
	regSched retry.Schedule

	nextKeepaliveAt time.Time
	unacked         int

	slots map[netip.AddrPort]*peerSlot

	outbox []types.Datagram
	events []types.Event
}

// peerSlot tracks one remote endpoint's punch negotiation. Slots are
// independent; nothing that happens to one ever touches another.
type peerSlot struct {
	st punchstate.State

	// reported marks that the slot's terminal outcome already went out as
	// an event, so duplicates never produce a second one.
	reported bool
}

// NewServer returns a server peer that will register id with the
// holepuncher at hp. The first Register goes out on the first tick.
func NewServer(id session.ID, hp netip.AddrPort) *Server {
	return &Server{
		id:          id,
		holepuncher: types.NormaliseAddrPort(hp),
		phase:       serverRegistering,
		regSched: retry.Schedule{
			Interval:    RegisterInterval,
			MaxAttempts: RegisterAttempts,
		},
		slots: make(map[netip.AddrPort]*peerSlot),
	}
}

// SessionID returns the ID this server registers under.
func (s *Server) SessionID() session.ID {
	return s.id
}

// Connected reports whether the slot for ep has reached connected.
func (s *Server) Connected(ep netip.AddrPort) bool {
	sl, ok := s.slots[types.NormaliseAddrPort(ep)]
	if !ok {
		return false
	}
	_, conn := sl.st.(*punchstate.Connected)
	return conn
}

// Tick implements types.Machine.
func (s *Server) Tick(now time.Time, in []types.Datagram) ([]types.Datagram, []types.Event) {
	s.outbox = nil
	s.events = nil

	for _, dg := range in {
		s.handle(now, dg)
	}

	s.advanceRegistration(now)
	s.advanceSlots(now)

	return s.outbox, s.events
}

// SendTo implements punchstate.Outbox.
func (s *Server) SendTo(ap netip.AddrPort, m msgpunch.Message) {
	s.outbox = append(s.outbox, types.Datagram{Payload: m.MarshalMessage(), Addr: ap})
}

func (s *Server) handle(now time.Time, dg types.Datagram) {
	m, err := msgpunch.Parse(dg.Payload)
	if err != nil {
		s.L().Log(context.Background(), types.LevelTrace, "dropping datagram", "from", dg.Addr, "err", err)
		return
	}

	from := types.NormaliseAddrPort(dg.Addr)

	switch m := m.(type) {
	case *msgpunch.RegisterAck:
		s.onRegisterAck(now, from, m)
	case *msgpunch.PeerInfo:
		s.onPeerInfo(now, from, m)
	case *msgpunch.Punch, *msgpunch.PunchAck:
		s.onPunchTraffic(now, from, m)
	default:
		s.L().Log(context.Background(), types.LevelTrace, "ignoring message", "from", from, "msg", m.Debug())
	}
}

func (s *Server) onRegisterAck(now time.Time, from netip.AddrPort, m *msgpunch.RegisterAck) {
	if from != s.holepuncher || m.SessionID != s.id {
		return
	}

	// acks both a Register and a Keepalive
	s.unacked = 0

	if s.phase == serverRegistering {
		s.phase = serverRegistered
		s.nextKeepaliveAt = now.Add(KeepaliveInterval)
		s.events = append(s.events, SessionRegistered{})
		s.L().Info("session registered", "holepuncher", s.holepuncher)
	}
}

func (s *Server) onPeerInfo(now time.Time, from netip.AddrPort, m *msgpunch.PeerInfo) {
	// only the holepuncher gets to introduce clients
	if from != s.holepuncher || m.SessionID != s.id {
		return
	}

	peer := types.NormaliseAddrPort(m.Peer)
	if _, ok := s.slots[peer]; ok {
		// duplicate PeerInfo, the slot already runs
		return
	}

	s.L().Debug("client wants in, punching", "peer", peer)
	s.slots[peer] = &peerSlot{st: punchstate.New(s, s.id, peer, now)}
}

func (s *Server) onPunchTraffic(now time.Time, from netip.AddrPort, m msgpunch.Message) {
	sl, ok := s.slots[from]
	if !ok {
		// the client's punch raced ahead of the holepuncher's PeerInfo;
		// both open the path independently, so start a slot either way
		s.L().Debug("punch from unknown endpoint, starting slot", "peer", from)
		sl = &peerSlot{st: punchstate.New(s, s.id, from, now)}
		s.slots[from] = sl
	}

	if next := sl.st.OnMessage(now, m); next != nil {
		sl.st = next
	}
}

func (s *Server) advanceRegistration(now time.Time) {
	switch s.phase {
	case serverRegistering:
		if s.regSched.Exhausted() {
			if s.regSched.Due(now) {
				s.phase = serverFailed
				s.events = append(s.events, ConnectionFailed{Reason: types.ReasonRegisterTimeout})
				s.L().Warn("registration timed out", "holepuncher", s.holepuncher)
			}
			return
		}
		if s.regSched.Due(now) {
			s.SendTo(s.holepuncher, &msgpunch.Register{SessionID: s.id})
			s.regSched.Sent(now)
		}

	case serverRegistered:
		if now.Before(s.nextKeepaliveAt) {
			return
		}
		if s.unacked >= KeepaliveMissLimit {
			// the holepuncher stopped answering; assume we got evicted
			s.L().Warn("keepalives unacked, re-registering", "missed", s.unacked)
			s.phase = serverRegistering
			s.regSched.Reset()
			s.nextKeepaliveAt = time.Time{}
			return
		}
		s.SendTo(s.holepuncher, &msgpunch.Keepalive{SessionID: s.id})
		s.unacked++
		s.nextKeepaliveAt = now.Add(KeepaliveInterval)

	case serverFailed:
	}
}

func (s *Server) advanceSlots(now time.Time) {
	for _, peer := range maps.Keys(s.slots) {
		sl := s.slots[peer]

		if next := sl.st.OnTick(now); next != nil {
			sl.st = next
		}

		s.surfaceSlotOutcome(sl)

		if now.Sub(sl.st.LastActivity()) > SlotIdleTimeout {
			s.L().Debug("pruning idle slot", "peer", peer)
			delete(s.slots, peer)
		}
	}
}

func (s *Server) surfaceSlotOutcome(sl *peerSlot) {
	if sl.reported {
		return
	}

	switch st := sl.st.(type) {
	case *punchstate.Connected:
		sl.reported = true
		s.events = append(s.events, ClientConnected{Endpoint: st.Remote()})
		s.L().Info("client connected", "peer", st.Remote())
	case *punchstate.Failed:
		sl.reported = true
		s.events = append(s.events, ConnectionFailed{Endpoint: st.Remote(), Reason: st.Reason})
		s.L().Info("client punch failed", "peer", st.Remote(), "reason", st.Reason)
	}
}

// L stands for Log
func (s *Server) L() *slog.Logger {
	return slog.With("role", "server", "session", s.id.Debug(), "phase", s.phase.String())
}
