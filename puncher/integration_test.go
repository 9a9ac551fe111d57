package puncher

import (
	"net/netip"
	"testing"
	"time"

	"github.com/edup2p/punch/server/rendezvous"
	"github.com/edup2p/punch/types"
	"github.com/edup2p/punch/types/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wire is a loss-free in-memory network between the three role machines,
// delivering every tick's output as the next tick's input.
type wire struct {
	queues map[netip.AddrPort][]types.Datagram
}

func newWire() *wire {
	return &wire{queues: make(map[netip.AddrPort][]types.Datagram)}
}

// carry enqueues out for delivery, rewriting the sender address the way a
// real network does.
func (w *wire) carry(from netip.AddrPort, out []types.Datagram) {
	for _, d := range out {
		w.queues[d.Addr] = append(w.queues[d.Addr], types.Datagram{Payload: d.Payload, Addr: from})
	}
}

func (w *wire) deliver(to netip.AddrPort) []types.Datagram {
	in := w.queues[to]
	delete(w.queues, to)
	return in
}

func TestThreePartyHandshake(t *testing.T) {
	id := session.NewID()

	hpAt := netip.MustParseAddrPort("5.0.0.5:3478")
	srvAt := netip.MustParseAddrPort("8.0.0.1:41000")
	clAt := netip.MustParseAddrPort("9.0.0.2:42000")

	hp := rendezvous.NewServer()
	srv := NewServer(id, hpAt)
	cl := NewClient(id, hpAt)

	w := newWire()

	var srvConnected, clConnected bool

	now := t0
	for i := 0; i < 100 && !(srvConnected && clConnected); i++ {
		out, _ := hp.Tick(now, w.deliver(hpAt))
		w.carry(hpAt, out)

		out, evs := srv.Tick(now, w.deliver(srvAt))
		w.carry(srvAt, out)
		for _, ev := range evs {
			if cc, ok := ev.(ClientConnected); ok {
				assert.Equal(t, clAt, cc.Endpoint)
				srvConnected = true
			}
		}

		out, evs = cl.Tick(now, w.deliver(clAt))
		w.carry(clAt, out)
		for _, ev := range evs {
			if cc, ok := ev.(ClientConnected); ok {
				assert.Equal(t, srvAt, cc.Endpoint)
				clConnected = true
			}
		}

		now = now.Add(time.Millisecond * 100)
	}

	require.True(t, srvConnected, "server never saw the client connect")
	require.True(t, clConnected, "client never connected")

	assert.True(t, srv.Connected(clAt))
	assert.True(t, cl.Connected())
}

// The client asks first; the server registers a little later; the pending
// request still matches.
func TestThreePartyLateRegistration(t *testing.T) {
	id := session.NewID()

	hpAt := netip.MustParseAddrPort("5.0.0.5:3478")
	srvAt := netip.MustParseAddrPort("8.0.0.1:41000")
	clAt := netip.MustParseAddrPort("9.0.0.2:42000")

	hp := rendezvous.NewServer()
	cl := NewClient(id, hpAt)

	w := newWire()

	now := t0

	// the client knocks for two seconds into the void
	for i := 0; i < 20; i++ {
		out, evs := cl.Tick(now, w.deliver(clAt))
		w.carry(clAt, out)
		assert.Empty(t, evs)

		out, _ = hp.Tick(now, w.deliver(hpAt))
		w.carry(hpAt, out)

		now = now.Add(time.Millisecond * 100)
	}

	// now the server shows up
	srv := NewServer(id, hpAt)

	var clConnected bool
	for i := 0; i < 100 && !clConnected; i++ {
		out, _ := srv.Tick(now, w.deliver(srvAt))
		w.carry(srvAt, out)

		out, _ = hp.Tick(now, w.deliver(hpAt))
		w.carry(hpAt, out)

		out, evs := cl.Tick(now, w.deliver(clAt))
		w.carry(clAt, out)
		for _, ev := range evs {
			if _, ok := ev.(ClientConnected); ok {
				clConnected = true
			}
		}

		now = now.Add(time.Millisecond * 100)
	}

	assert.True(t, clConnected, "pending request should match the late registration")
}
