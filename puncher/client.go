package puncher

import (
	"context"
	"log/slog"
	"net/netip"
	"time"

	"github.com/LukaGiorgadze/gonull"
	"github.com/edup2p/punch/puncher/punchstate"
	"github.com/edup2p/punch/types"
	"github.com/edup2p/punch/types/msgpunch"
	"github.com/edup2p/punch/types/retry"
	"github.com/edup2p/punch/types/session"
)

type clientPhase int

const (
	clientAwaitingPeerInfo clientPhase = iota
	clientPunching
	clientConnected
	clientFailed
)

func (p clientPhase) String() string {
	switch p {
	case clientAwaitingPeerInfo:
		return "awaiting-peer-info"
	case clientPunching:
		return "punching"
	case clientConnected:
		return "connected"
	case clientFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Client is the client peer machine: it pursues exactly one session. It asks
// the holepuncher for the session's server endpoint and then drives the punch
// handshake toward it. Terminal failures are reported as events; retrying
// means constructing a fresh Client.
//
// Not safe for concurrent use; see types.Machine.
type Client struct {
	id          session.ID
	holepuncher netip.AddrPort

	phase    clientPhase
	reqSched retry.Schedule

	server gonull.Nullable[netip.AddrPort]
	punch  punchstate.State

	outbox []types.Datagram
	events []types.Event
}

// NewClient returns a client peer that will ask the holepuncher at hp for
// session id. The first RequestSession goes out on the first tick.
func NewClient(id session.ID, hp netip.AddrPort) *Client {
	return &Client{
		id:          id,
		holepuncher: types.NormaliseAddrPort(hp),
		phase:       clientAwaitingPeerInfo,
		reqSched: retry.Schedule{
			Interval:    RegisterInterval,
			MaxAttempts: RegisterAttempts,
		},
	}
}

// SessionID returns the ID this client pursues.
func (c *Client) SessionID() session.ID {
	return c.id
}

// Server returns the resolved server endpoint, which is only present once a
// PeerInfo arrived.
func (c *Client) Server() gonull.Nullable[netip.AddrPort] {
	return c.server
}

// Connected reports whether the punch handshake completed.
func (c *Client) Connected() bool {
	return c.phase == clientConnected
}

// Tick implements types.Machine.
func (c *Client) Tick(now time.Time, in []types.Datagram) ([]types.Datagram, []types.Event) {
	c.outbox = nil
	c.events = nil

	for _, dg := range in {
		c.handle(now, dg)
	}

	c.advance(now)

	return c.outbox, c.events
}

// SendTo implements punchstate.Outbox.
func (c *Client) SendTo(ap netip.AddrPort, m msgpunch.Message) {
	c.outbox = append(c.outbox, types.Datagram{Payload: m.MarshalMessage(), Addr: ap})
}

func (c *Client) handle(now time.Time, dg types.Datagram) {
	m, err := msgpunch.Parse(dg.Payload)
	if err != nil {
		c.L().Log(context.Background(), types.LevelTrace, "dropping datagram", "from", dg.Addr, "err", err)
		return
	}

	from := types.NormaliseAddrPort(dg.Addr)

	switch m := m.(type) {
	case *msgpunch.PeerInfo:
		c.onPeerInfo(now, from, m)
	case *msgpunch.NoSuchSession:
		c.onNoSuchSession(from, m)
	case *msgpunch.Punch, *msgpunch.PunchAck:
		c.onPunchTraffic(now, from, m)
	default:
		c.L().Log(context.Background(), types.LevelTrace, "ignoring message", "from", from, "msg", m.Debug())
	}
}

func (c *Client) onPeerInfo(now time.Time, from netip.AddrPort, m *msgpunch.PeerInfo) {
	if from != c.holepuncher || m.SessionID != c.id {
		return
	}

	if c.server.Valid {
		// duplicate PeerInfo, the pursuit already runs
		return
	}
	if c.phase != clientAwaitingPeerInfo {
		return
	}

	peer := types.NormaliseAddrPort(m.Peer)
	c.server = gonull.NewNullable(peer)
	c.punch = punchstate.New(c, c.id, peer, now)
	c.phase = clientPunching
	c.L().Debug("session resolved, punching", "peer", peer)
}

func (c *Client) onNoSuchSession(from netip.AddrPort, m *msgpunch.NoSuchSession) {
	if from != c.holepuncher || m.SessionID != c.id {
		return
	}
	if c.phase != clientAwaitingPeerInfo {
		// stale answer; we already got a PeerInfo or gave up
		return
	}

	c.phase = clientFailed
	c.events = append(c.events, SessionNotFound{})
	c.L().Info("session not found", "holepuncher", c.holepuncher)
}

func (c *Client) onPunchTraffic(now time.Time, from netip.AddrPort, m msgpunch.Message) {
	if c.punch == nil || from != c.punch.Remote() {
		// a punch from someone we never resolved toward; noise
		c.L().Log(context.Background(), types.LevelTrace, "punch traffic from unexpected endpoint", "from", from)
		return
	}

	if next := c.punch.OnMessage(now, m); next != nil {
		c.punch = next
	}
	c.surfacePunchOutcome()
}

func (c *Client) advance(now time.Time) {
	switch c.phase {
	case clientAwaitingPeerInfo:
		if c.reqSched.Exhausted() {
			if c.reqSched.Due(now) {
				c.phase = clientFailed
				c.events = append(c.events, ConnectionFailed{Reason: types.ReasonRequestTimeout})
				c.L().Warn("session request timed out", "holepuncher", c.holepuncher)
			}
			return
		}
		if c.reqSched.Due(now) {
			c.SendTo(c.holepuncher, &msgpunch.RequestSession{SessionID: c.id})
			c.reqSched.Sent(now)
		}

	case clientPunching:
		if next := c.punch.OnTick(now); next != nil {
			c.punch = next
		}
		c.surfacePunchOutcome()

	case clientConnected, clientFailed:
	}
}

func (c *Client) surfacePunchOutcome() {
	switch st := c.punch.(type) {
	case *punchstate.Connected:
		if c.phase == clientPunching {
			c.phase = clientConnected
			c.events = append(c.events, ClientConnected{Endpoint: st.Remote()})
			c.L().Info("connected", "peer", st.Remote())
		}
	case *punchstate.Failed:
		if c.phase == clientPunching {
			c.phase = clientFailed
			c.events = append(c.events, ConnectionFailed{Endpoint: st.Remote(), Reason: st.Reason})
			c.L().Info("punch failed", "peer", st.Remote(), "reason", st.Reason)
		}
	}
}

// L stands for Log
func (c *Client) L() *slog.Logger {
	return slog.With("role", "client", "session", c.id.Debug(), "phase", c.phase.String())
}
