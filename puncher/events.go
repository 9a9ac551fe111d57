package puncher

import (
	"net/netip"

	"github.com/edup2p/punch/types"
)

// The events a peer machine reports to its caller. Beyond outbound
// datagrams, these are the only observable outputs.

// SessionRegistered fires on the server peer once the holepuncher acks its
// registration (the first time, and again after any re-registration).
type SessionRegistered struct{}

func (SessionRegistered) EventName() string {
	return "SessionRegistered"
}

// ClientConnected fires on either peer once a punch negotiation with the
// given remote endpoint reaches connected. Datagrams exchanged with that
// endpoint now flow directly, with plain UDP semantics.
type ClientConnected struct {
	Endpoint netip.AddrPort
}

func (ClientConnected) EventName() string {
	return "ClientConnected"
}

// ConnectionFailed fires when a punch negotiation or a registration gives up
// for good. For the client peer this is terminal; construct a fresh machine
// to retry.
type ConnectionFailed struct {
	Endpoint netip.AddrPort // zero when registration itself failed
	Reason   types.FailReason
}

func (ConnectionFailed) EventName() string {
	return "ConnectionFailed"
}

// SessionNotFound fires on the client peer when the holepuncher reports the
// requested session does not exist. Terminal.
type SessionNotFound struct{}

func (SessionNotFound) EventName() string {
	return "SessionNotFound"
}
