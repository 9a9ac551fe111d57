package msgpunch

import (
	"fmt"

	"github.com/edup2p/punch/types/session"
)

// RequestSession asks a holepuncher to be introduced to the server peer
// registered under an ID. Sent by the client peer.
type RequestSession struct {
	SessionID session.ID
}

func (m *RequestSession) Session() session.ID { return m.SessionID }

func (m *RequestSession) MarshalMessage() []byte {
	return marshalHeader(RequestSessionMessage, m.SessionID)
}

func (m *RequestSession) Debug() string {
	return fmt.Sprintf("request-session session=%s", m.SessionID.Debug())
}

// NoSuchSession tells a requester that its session was not registered within
// the holepuncher's pending-request window.
type NoSuchSession struct {
	SessionID session.ID
}

func (m *NoSuchSession) Session() session.ID { return m.SessionID }

func (m *NoSuchSession) MarshalMessage() []byte {
	return marshalHeader(NoSuchSessionMessage, m.SessionID)
}

func (m *NoSuchSession) Debug() string {
	return fmt.Sprintf("no-such-session session=%s", m.SessionID.Debug())
}
