package punchstate

import (
	"context"
	"log/slog"
	"time"

	"github.com/edup2p/punch/types"
	"github.com/edup2p/punch/types/msgpunch"
)

// cascade makes it so that first we call the "tick" function of a state,
// and if that requests a state transition, call State.OnMessage with the
// original arguments, and return the requested state change with that one
// if it returns one.
func cascade(so State, now time.Time, m msgpunch.Message) (s State) {
	if s1 := so.OnTick(now); s1 != nil {
		if s2 := s1.OnMessage(now, m); s2 != nil {
			s = s2
		} else {
			s = s1
		}
	}

	return
}

// L stands for Log
func L(s State) *slog.Logger {
	return slog.With("remote", s.Remote(), "state", s.Name())
}

func LogTransition(from State, to State) State {
	L(from).Log(context.Background(), types.LevelTrace, "transitioning state", "to-state", to.Name())

	return to
}

func LogMessage(s State, m msgpunch.Message) {
	L(s).Log(context.Background(), types.LevelTrace, "received punch message", "msg", m.Debug())
}
