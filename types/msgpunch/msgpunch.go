// Package msgpunch contains punch protocol message definitions and parsing
// methods, exchanged between holepuncher, server peer, and client peer over
// plain UDP.
//
// Message interface definitions are sealed within this package.
package msgpunch

import "github.com/edup2p/punch/types/session"

// Message is one punch protocol wire message.
type Message interface {
	// Session returns the session ID every message carries.
	Session() session.ID

	MarshalMessage() []byte

	// Debug returns a short form for logging.
	Debug() string
}
