package punchstate

import (
	"net/netip"
	"time"

	"github.com/edup2p/punch/types/msgpunch"
	"github.com/edup2p/punch/types/retry"
	"github.com/edup2p/punch/types/session"
)

const (
	// PunchInterval is the gap after the first Punch send.
	PunchInterval = time.Millisecond * 500

	// PunchMaxInterval caps the doubling backoff between Punch sends.
	PunchMaxInterval = time.Second * 2

	// PunchAttempts bounds the total Punch sends before giving up.
	PunchAttempts = 8
)

type StateCommon struct {
	out    Outbox
	id     session.ID
	remote netip.AddrPort

	lastActivity time.Time
}

func (sc *StateCommon) Remote() netip.AddrPort {
	return sc.remote
}

func (sc *StateCommon) LastActivity() time.Time {
	return sc.lastActivity
}

func (sc *StateCommon) markActivity(now time.Time) {
	sc.lastActivity = now
}

func (sc *StateCommon) sendPunch() {
	sc.out.SendTo(sc.remote, &msgpunch.Punch{SessionID: sc.id})
}

func (sc *StateCommon) sendPunchAck() {
	sc.out.SendTo(sc.remote, &msgpunch.PunchAck{SessionID: sc.id})
}

// forSession filters out messages that carry a different session ID; the
// remote endpoint alone already scopes a machine, so a mismatch is either
// noise or a confused peer, and is dropped.
func (sc *StateCommon) forSession(m msgpunch.Message) bool {
	return m.Session() == sc.id
}

// New returns the initial punching state aimed at remote. The first Punch
// goes out on the next tick.
func New(out Outbox, id session.ID, remote netip.AddrPort, now time.Time) State {
	return &Punching{
		StateCommon: &StateCommon{
			out:          out,
			id:           id,
			remote:       remote,
			lastActivity: now,
		},
		sched: retry.Schedule{
			Interval:    PunchInterval,
			MaxInterval: PunchMaxInterval,
			MaxAttempts: PunchAttempts,
		},
	}
}
