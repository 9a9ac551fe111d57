package types

import (
	"net/netip"
	"time"
)

// Datagram is one opaque UDP payload paired with a remote address: the
// address it was received from, or the address it must be sent to.
type Datagram struct {
	Payload []byte
	Addr    netip.AddrPort
}

// Event is implemented by every role-specific event a Machine can report to
// its caller.
type Event interface {
	// EventName returns a stable name to be used in logging.
	EventName() string
}

// Machine is the passive driver contract shared by all three roles.
//
// A Machine never performs I/O and never blocks; the caller owns the socket
// and the clock, hands in fresh input on every tick, and sends whatever comes
// back out. A Machine instance is not safe for concurrent use; callers that
// want that must serialize ticks externally.
type Machine interface {
	// Tick advances the machine to now, consuming zero or more received
	// datagrams, and returns the datagrams to put on the wire plus any
	// events for the caller.
	Tick(now time.Time, in []Datagram) (out []Datagram, evs []Event)
}
