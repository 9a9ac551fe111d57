package rendezvous

import (
	"net/netip"
	"testing"
	"time"

	"github.com/edup2p/punch/types"
	"github.com/edup2p/punch/types/msgpunch"
	"github.com/edup2p/punch/types/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dg(m msgpunch.Message, from netip.AddrPort) types.Datagram {
	return types.Datagram{Payload: m.MarshalMessage(), Addr: from}
}

// sentTo picks the messages addressed to one endpoint out of a tick's output.
func sentTo(t *testing.T, out []types.Datagram, to netip.AddrPort) []msgpunch.Message {
	t.Helper()

	var msgs []msgpunch.Message
	for _, d := range out {
		if d.Addr != to {
			continue
		}
		m, err := msgpunch.Parse(d.Payload)
		require.NoError(t, err)
		msgs = append(msgs, m)
	}
	return msgs
}

func TestRegisterIsAcked(t *testing.T) {
	hp := NewServer()
	id := session.NewID()

	out, _ := hp.Tick(t0, []types.Datagram{dg(&msgpunch.Register{SessionID: id}, serverA)})

	msgs := sentTo(t, out, serverA)
	require.Len(t, msgs, 1)
	assert.Equal(t, &msgpunch.RegisterAck{SessionID: id}, msgs[0])
}

func TestSameTickRegisterAndRequest(t *testing.T) {
	id := session.NewID()

	reg := dg(&msgpunch.Register{SessionID: id}, serverA)
	req := dg(&msgpunch.RequestSession{SessionID: id}, clientB)

	// registration applies before matching, whatever the arrival order
	for name, in := range map[string][]types.Datagram{
		"register-first": {reg, req},
		"request-first":  {req, reg},
	} {
		hp := NewServer()
		out, _ := hp.Tick(t0, in)

		toServer := sentTo(t, out, serverA)
		require.Len(t, toServer, 2, "%s: expected ack and peer info for the server", name)
		assert.Equal(t, &msgpunch.RegisterAck{SessionID: id}, toServer[0], name)
		assert.Equal(t, &msgpunch.PeerInfo{SessionID: id, Peer: clientB}, toServer[1], name)

		toClient := sentTo(t, out, clientB)
		require.Len(t, toClient, 1, name)
		assert.Equal(t, &msgpunch.PeerInfo{SessionID: id, Peer: serverA}, toClient[0], name)
	}
}

func TestLateRegistrationMatchesWaitingRequest(t *testing.T) {
	hp := NewServer()
	id := session.NewID()

	out, _ := hp.Tick(t0, []types.Datagram{dg(&msgpunch.RequestSession{SessionID: id}, clientB)})
	assert.Empty(t, sentTo(t, out, clientB), "nothing to say while the request waits")

	out, _ = hp.Tick(t0.Add(time.Second), []types.Datagram{dg(&msgpunch.Register{SessionID: id}, serverA)})

	toClient := sentTo(t, out, clientB)
	require.Len(t, toClient, 1)
	assert.Equal(t, &msgpunch.PeerInfo{SessionID: id, Peer: serverA}, toClient[0])
}

func TestKeepaliveAckedAndExtends(t *testing.T) {
	hp := NewServer()
	id := session.NewID()

	hp.Tick(t0, []types.Datagram{dg(&msgpunch.Register{SessionID: id}, serverA)})

	mid := t0.Add(RegistrationTTL / 2)
	out, _ := hp.Tick(mid, []types.Datagram{dg(&msgpunch.Keepalive{SessionID: id}, serverA)})

	msgs := sentTo(t, out, serverA)
	require.Len(t, msgs, 1)
	assert.Equal(t, &msgpunch.RegisterAck{SessionID: id}, msgs[0])

	// still resolvable past the original TTL
	out, _ = hp.Tick(t0.Add(RegistrationTTL+time.Second), []types.Datagram{dg(&msgpunch.RequestSession{SessionID: id}, clientB)})
	assert.Len(t, sentTo(t, out, clientB), 1)
}

func TestKeepaliveForEvictedSessionIsSilent(t *testing.T) {
	hp := NewServer()
	id := session.NewID()

	hp.Tick(t0, []types.Datagram{dg(&msgpunch.Register{SessionID: id}, serverA)})

	late := t0.Add(RegistrationTTL + time.Second)
	out, _ := hp.Tick(late, []types.Datagram{dg(&msgpunch.Keepalive{SessionID: id}, serverA)})

	assert.Empty(t, out, "a late keepalive must neither ack nor resurrect")
	assert.Zero(t, hp.Registry().Len())
}

func TestRequestTimesOutWithNoSuchSession(t *testing.T) {
	hp := NewServer()
	id := session.NewID()

	hp.Tick(t0, []types.Datagram{dg(&msgpunch.RequestSession{SessionID: id}, clientB)})

	out, _ := hp.Tick(t0.Add(RequestTTL+time.Millisecond), nil)

	msgs := sentTo(t, out, clientB)
	require.Len(t, msgs, 1)
	assert.Equal(t, &msgpunch.NoSuchSession{SessionID: id}, msgs[0])

	assert.Zero(t, hp.Registry().PendingLen())
}

func TestGarbageIsDropped(t *testing.T) {
	hp := NewServer()

	out, _ := hp.Tick(t0, []types.Datagram{
		{Payload: []byte("not a punch message"), Addr: clientB},
		{Payload: nil, Addr: clientB},
		dg(&msgpunch.Punch{SessionID: session.NewID()}, clientB),
	})

	assert.Empty(t, out)
}
