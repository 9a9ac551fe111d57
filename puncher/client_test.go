package puncher

import (
	"testing"
	"time"

	"github.com/edup2p/punch/puncher/punchstate"
	"github.com/edup2p/punch/types"
	"github.com/edup2p/punch/types/msgpunch"
	"github.com/edup2p/punch/types/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var serverAddr = clientC // reuse a distinct endpoint as "the server"

func TestClientRequestsSession(t *testing.T) {
	id := session.NewID()
	cl := NewClient(id, hpAddrTest)

	out, evs := cl.Tick(t0, nil)
	assert.Empty(t, evs)

	msgs := sentTo(t, out, hpAddrTest)
	require.Len(t, msgs, 1)
	assert.Equal(t, &msgpunch.RequestSession{SessionID: id}, msgs[0])

	// retries on schedule
	out, _ = cl.Tick(t0.Add(RegisterInterval), nil)
	assert.Len(t, sentTo(t, out, hpAddrTest), 1)
}

func TestClientFullHappyPath(t *testing.T) {
	id := session.NewID()
	cl := NewClient(id, hpAddrTest)

	cl.Tick(t0, nil)

	// holepuncher resolves the session; the client starts punching
	out, _ := cl.Tick(t0.Add(time.Millisecond*100), []types.Datagram{dg(&msgpunch.PeerInfo{SessionID: id, Peer: serverAddr}, hpAddrTest)})

	msgs := sentTo(t, out, serverAddr)
	require.Len(t, msgs, 1)
	assert.Equal(t, &msgpunch.Punch{SessionID: id}, msgs[0])
	require.True(t, cl.Server().Valid)
	assert.Equal(t, serverAddr, cl.Server().Val)

	// the server's ack lands
	_, evs := cl.Tick(t0.Add(time.Millisecond*200), []types.Datagram{dg(&msgpunch.PunchAck{SessionID: id}, serverAddr)})

	assert.Contains(t, evs, types.Event(ClientConnected{Endpoint: serverAddr}))
	assert.True(t, cl.Connected())
}

func TestClientAnswersServerPunch(t *testing.T) {
	id := session.NewID()
	cl := NewClient(id, hpAddrTest)

	cl.Tick(t0, nil)
	cl.Tick(t0.Add(time.Millisecond*100), []types.Datagram{dg(&msgpunch.PeerInfo{SessionID: id, Peer: serverAddr}, hpAddrTest)})

	// the server's own punch gets through before any ack
	out, evs := cl.Tick(t0.Add(time.Millisecond*200), []types.Datagram{dg(&msgpunch.Punch{SessionID: id}, serverAddr)})

	var acked bool
	for _, m := range sentTo(t, out, serverAddr) {
		if _, ok := m.(*msgpunch.PunchAck); ok {
			acked = true
		}
	}
	assert.True(t, acked, "their punch should be acked")
	assert.Contains(t, evs, types.Event(ClientConnected{Endpoint: serverAddr}))
}

func TestClientNoSuchSessionIsTerminal(t *testing.T) {
	id := session.NewID()
	cl := NewClient(id, hpAddrTest)

	cl.Tick(t0, nil)

	_, evs := cl.Tick(t0.Add(time.Millisecond*100), []types.Datagram{dg(&msgpunch.NoSuchSession{SessionID: id}, hpAddrTest)})
	assert.Contains(t, evs, types.Event(SessionNotFound{}))

	// terminal: no more requests go out
	out, evs := cl.Tick(t0.Add(RegisterInterval*2), nil)
	assert.Empty(t, out)
	assert.Empty(t, evs)
}

func TestClientIgnoresNoSuchSessionFromStranger(t *testing.T) {
	id := session.NewID()
	cl := NewClient(id, hpAddrTest)

	cl.Tick(t0, nil)
	_, evs := cl.Tick(t0.Add(time.Millisecond), []types.Datagram{dg(&msgpunch.NoSuchSession{SessionID: id}, clientB)})

	assert.Empty(t, evs)
}

func TestClientRequestTimesOut(t *testing.T) {
	cl := NewClient(session.NewID(), hpAddrTest)

	now := t0
	var failed bool
	for i := 0; i < RegisterAttempts*2+2; i++ {
		_, evs := cl.Tick(now, nil)
		for _, ev := range evs {
			if cf, ok := ev.(ConnectionFailed); ok {
				assert.Equal(t, types.ReasonRequestTimeout, cf.Reason)
				failed = true
			}
		}
		now = now.Add(RegisterInterval)
	}

	assert.True(t, failed)
}

func TestClientPunchTimesOut(t *testing.T) {
	id := session.NewID()
	cl := NewClient(id, hpAddrTest)

	cl.Tick(t0, nil)
	cl.Tick(t0.Add(time.Millisecond*100), []types.Datagram{dg(&msgpunch.PeerInfo{SessionID: id, Peer: serverAddr}, hpAddrTest)})

	now := t0
	var failed bool
	for i := 0; i < punchstate.PunchAttempts*4; i++ {
		now = now.Add(punchstate.PunchMaxInterval)
		_, evs := cl.Tick(now, nil)
		for _, ev := range evs {
			if cf, ok := ev.(ConnectionFailed); ok {
				assert.Equal(t, serverAddr, cf.Endpoint)
				assert.Equal(t, types.ReasonPunchTimeout, cf.Reason)
				failed = true
			}
		}
	}

	assert.True(t, failed)
	assert.False(t, cl.Connected())
}

func TestClientDuplicatePeerInfoIsIdempotent(t *testing.T) {
	id := session.NewID()
	cl := NewClient(id, hpAddrTest)

	cl.Tick(t0, nil)

	pi := dg(&msgpunch.PeerInfo{SessionID: id, Peer: serverAddr}, hpAddrTest)
	out1, _ := cl.Tick(t0.Add(time.Millisecond*100), []types.Datagram{pi})
	require.Len(t, sentTo(t, out1, serverAddr), 1)

	// a duplicate within the punch interval causes no second machine and
	// no extra punch
	out2, _ := cl.Tick(t0.Add(time.Millisecond*101), []types.Datagram{pi})
	assert.Empty(t, sentTo(t, out2, serverAddr))
}

func TestClientDuplicateAcksAreAbsorbed(t *testing.T) {
	id := session.NewID()
	cl := NewClient(id, hpAddrTest)

	cl.Tick(t0, nil)
	cl.Tick(t0.Add(time.Millisecond*100), []types.Datagram{dg(&msgpunch.PeerInfo{SessionID: id, Peer: serverAddr}, hpAddrTest)})

	ack := dg(&msgpunch.PunchAck{SessionID: id}, serverAddr)

	_, evs := cl.Tick(t0.Add(time.Millisecond*200), []types.Datagram{ack})
	assert.Contains(t, evs, types.Event(ClientConnected{Endpoint: serverAddr}))

	_, evs = cl.Tick(t0.Add(time.Millisecond*300), []types.Datagram{ack, ack})
	assert.Empty(t, evs, "connected is never re-announced or left")
	assert.True(t, cl.Connected())
}

func TestClientIgnoresPunchFromUnexpectedEndpoint(t *testing.T) {
	id := session.NewID()
	cl := NewClient(id, hpAddrTest)

	cl.Tick(t0, nil)
	cl.Tick(t0.Add(time.Millisecond*100), []types.Datagram{dg(&msgpunch.PeerInfo{SessionID: id, Peer: serverAddr}, hpAddrTest)})

	_, evs := cl.Tick(t0.Add(time.Millisecond*200), []types.Datagram{dg(&msgpunch.PunchAck{SessionID: id}, clientB)})

	assert.Empty(t, evs)
	assert.False(t, cl.Connected())
}
