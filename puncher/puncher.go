// Package puncher implements the two peer-side roles of the punch protocol:
// the server peer, which registers a session with a holepuncher and accepts
// any number of punching clients, and the client peer, which resolves a
// session by ID and punches toward the server it names.
//
// Both machines are passive; see types.Machine for the driving contract, and
// RunMachine for a thread-owning driver around it.
package puncher

import "time"

const (
	// RegisterInterval is the gap between Register (and RequestSession)
	// retries toward the holepuncher.
	RegisterInterval = time.Millisecond * 400

	// RegisterAttempts bounds those retries; at RegisterInterval this gives
	// the holepuncher roughly ten seconds to answer.
	RegisterAttempts = 25

	// KeepaliveInterval is the cadence of Keepalive sends while registered.
	// It must stay well under the holepuncher's registration TTL so that
	// refreshes survive normal loss rates.
	KeepaliveInterval = time.Second * 10

	// KeepaliveMissLimit is how many consecutive unacked keepalives the
	// server peer tolerates before it assumes the registration is gone and
	// re-registers from scratch.
	KeepaliveMissLimit = 3

	// SlotIdleTimeout prunes server-side peer slots that have seen no
	// traffic for this long, bounding memory under client churn.
	SlotIdleTimeout = time.Minute * 2
)
