// Package punchstate contains the state machine that drives one punch
// negotiation against a single remote endpoint to connected.
//
// Both peer roles run the same machine: the server owns one instance per
// connecting client endpoint, the client owns exactly one, aimed at the
// resolved server endpoint. The punch sub-protocol is symmetric; either
// side's Punch alone opens the NAT mapping, and PunchAck is only the
// confirmation that lets a side declare connected deterministically.
package punchstate

// This state pattern was inspired by https://refactoring.guru/design-patterns/state/go/example

import (
	"net/netip"
	"time"

	"github.com/edup2p/punch/types/msgpunch"
)

// State defines an interface with which a punch state can be driven.
//
// The State return value is effectively a nullable; if its nil, then keep
// the current state. If it's non-nil, replace the state with the state
// returned.
type State interface {
	OnTick(now time.Time) State
	OnMessage(now time.Time, m msgpunch.Message) State

	// Name returns a lower-case name to be used in logging.
	Name() string

	// Remote returns the endpoint this machine is punching toward.
	Remote() netip.AddrPort

	// LastActivity returns the last instant a message arrived from the
	// remote, for idle pruning by the owner.
	LastActivity() time.Time
}

// Outbox collects the datagrams a state wants sent during the current tick.
// The owning peer machine implements it and flushes after advancing.
type Outbox interface {
	SendTo(ap netip.AddrPort, m msgpunch.Message)
}
