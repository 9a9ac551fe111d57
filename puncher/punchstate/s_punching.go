package punchstate

import (
	"time"

	"github.com/edup2p/punch/types"
	"github.com/edup2p/punch/types/msgpunch"
	"github.com/edup2p/punch/types/retry"
)

// Punching sends Punch datagrams to the remote on a bounded backoff schedule
// until either side's traffic proves the path, or the budget runs out.
type Punching struct {
	*StateCommon

	sched retry.Schedule
}

func (p *Punching) Name() string {
	return "punching"
}

func (p *Punching) OnTick(now time.Time) State {
	if p.sched.Exhausted() {
		// the interval after the final send has passed once Due flips back
		if p.sched.Due(now) {
			return LogTransition(p, &Failed{
				StateCommon: p.StateCommon,
				Reason:      types.ReasonPunchTimeout,
			})
		}
		return nil
	}

	if p.sched.Due(now) {
		p.sendPunch()
		p.sched.Sent(now)
	}

	return nil
}

func (p *Punching) OnMessage(now time.Time, m msgpunch.Message) State {
	if s := cascade(p, now, m); s != nil {
		return s
	}

	if !p.forSession(m) {
		return nil
	}

	LogMessage(p, m)

	switch m.(type) {
	case *msgpunch.Punch:
		// their punch got through; ack it and consider the path open
		p.markActivity(now)
		p.sendPunchAck()
		return LogTransition(p, &Connected{StateCommon: p.StateCommon})
	case *msgpunch.PunchAck:
		p.markActivity(now)
		return LogTransition(p, &Connected{StateCommon: p.StateCommon})
	default:
		L(p).Warn("ignoring punch message", "msg", m.Debug())
		return nil
	}
}
