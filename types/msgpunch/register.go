package msgpunch

import (
	"fmt"

	"github.com/edup2p/punch/types/session"
)

// Register asks a holepuncher to hold a session open under an ID.
// Sent by the server peer; the sender's NAT-mapped address, as the
// holepuncher observes it, becomes the session's endpoint.
type Register struct {
	SessionID session.ID
}

func (m *Register) Session() session.ID { return m.SessionID }

func (m *Register) MarshalMessage() []byte {
	return marshalHeader(RegisterMessage, m.SessionID)
}

func (m *Register) Debug() string {
	return fmt.Sprintf("register session=%s", m.SessionID.Debug())
}

// RegisterAck confirms a Register or a Keepalive.
type RegisterAck struct {
	SessionID session.ID
}

func (m *RegisterAck) Session() session.ID { return m.SessionID }

func (m *RegisterAck) MarshalMessage() []byte {
	return marshalHeader(RegisterAckMessage, m.SessionID)
}

func (m *RegisterAck) Debug() string {
	return fmt.Sprintf("register-ack session=%s", m.SessionID.Debug())
}

// Keepalive refreshes a registration so the holepuncher does not evict it,
// and keeps the server's own NAT mapping towards the holepuncher warm.
type Keepalive struct {
	SessionID session.ID
}

func (m *Keepalive) Session() session.ID { return m.SessionID }

func (m *Keepalive) MarshalMessage() []byte {
	return marshalHeader(KeepaliveMessage, m.SessionID)
}

func (m *Keepalive) Debug() string {
	return fmt.Sprintf("keepalive session=%s", m.SessionID.Debug())
}
