package punchstate

import (
	"time"

	"github.com/edup2p/punch/types"
	"github.com/edup2p/punch/types/msgpunch"
)

// Failed is terminal. The owner observes it, reports it, and eventually
// prunes or discards the machine; a fresh instance is the way to retry.
type Failed struct {
	*StateCommon

	Reason types.FailReason
}

func (f *Failed) Name() string {
	return "failed"
}

func (f *Failed) OnTick(_ time.Time) State {
	return nil
}

func (f *Failed) OnMessage(_ time.Time, m msgpunch.Message) State {
	LogMessage(f, m)
	return nil
}
