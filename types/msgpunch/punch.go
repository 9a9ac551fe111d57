package msgpunch

import (
	"fmt"

	"github.com/edup2p/punch/types/session"
)

// Punch is sent peer-to-peer, directly to the other side's NAT-mapped
// endpoint. Its arrival is the point; the outbound send opens a mapping in
// the sender's NAT, and the (possibly lost) inbound copy proves the path.
// The payload is otherwise inert.
type Punch struct {
	SessionID session.ID
}

func (m *Punch) Session() session.ID { return m.SessionID }

func (m *Punch) MarshalMessage() []byte {
	return marshalHeader(PunchMessage, m.SessionID)
}

func (m *Punch) Debug() string {
	return fmt.Sprintf("punch session=%s", m.SessionID.Debug())
}

// PunchAck confirms that a Punch got through, so both sides can reach
// connected deterministically instead of inferring it from silence.
type PunchAck struct {
	SessionID session.ID
}

func (m *PunchAck) Session() session.ID { return m.SessionID }

func (m *PunchAck) MarshalMessage() []byte {
	return marshalHeader(PunchAckMessage, m.SessionID)
}

func (m *PunchAck) Debug() string {
	return fmt.Sprintf("punch-ack session=%s", m.SessionID.Debug())
}
