package punchstate

import (
	"time"

	"github.com/edup2p/punch/types/msgpunch"
)

// Connected is reached once either a Punch or a PunchAck arrived from the
// remote. It is never left; duplicates and late retransmits only refresh
// activity.
type Connected struct {
	*StateCommon
}

func (c *Connected) Name() string {
	return "connected"
}

func (c *Connected) OnTick(_ time.Time) State {
	return nil
}

func (c *Connected) OnMessage(now time.Time, m msgpunch.Message) State {
	if !c.forSession(m) {
		return nil
	}

	LogMessage(c, m)

	switch m.(type) {
	case *msgpunch.Punch:
		// our ack got lost, re-ack
		c.markActivity(now)
		c.sendPunchAck()
	case *msgpunch.PunchAck:
		c.markActivity(now)
	default:
		L(c).Warn("ignoring punch message", "msg", m.Debug())
	}

	return nil
}
