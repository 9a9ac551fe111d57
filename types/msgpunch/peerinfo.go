package msgpunch

import (
	"fmt"
	"net/netip"
	"slices"

	"github.com/edup2p/punch/types/bin"
	"github.com/edup2p/punch/types/session"
)

// PeerInfo hands one party the other party's NAT-mapped endpoint.
// The holepuncher sends it both ways once a request matches a registration:
// the server's endpoint to the client, the client's endpoint to the server.
type PeerInfo struct {
	SessionID session.ID

	Peer netip.AddrPort // 18 bytes (16+2) on the wire; v4-mapped ipv6 for IPv4
}

func (m *PeerInfo) Session() session.ID { return m.SessionID }

func (m *PeerInfo) MarshalMessage() []byte {
	return slices.Concat(marshalHeader(PeerInfoMessage, m.SessionID), bin.PutAddrPort(m.Peer))
}

func (m *PeerInfo) Debug() string {
	return fmt.Sprintf("peer-info session=%s peer=%s", m.SessionID.Debug(), m.Peer)
}
