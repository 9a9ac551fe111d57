package puncher

import (
	"context"
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/edup2p/punch/types"
	"github.com/edup2p/punch/types/udpsock"
)

// DefaultTickInterval is a sensible driving cadence: comfortably finer than
// every retry interval the machines use.
const DefaultTickInterval = time.Millisecond * 100

// maxBatch bounds how many datagrams one tick consumes, so a flood cannot
// starve timer work.
const maxBatch = 64

// RunMachine owns the tick loop for one passive machine: it polls the socket,
// ticks the machine on clk's schedule, sends whatever comes out, and forwards
// events. It is the thread-owning "active wrapper" the machines themselves
// deliberately are not.
//
// Blocks until ctx is done or the socket breaks. events may be nil if the
// caller does not care; when set, the caller must consume it.
func RunMachine(ctx context.Context, clk clock.Clock, sock udpsock.PacketSock, m types.Machine, tickEvery time.Duration, events chan<- types.Event) error {
	ticker := clk.Ticker(tickEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		in, err := udpsock.ReceiveBatch(sock, maxBatch)
		if err != nil {
			return err
		}

		out, evs := m.Tick(clk.Now(), in)

		for _, dg := range out {
			// fire and forget; UDP gives no delivery signal anyway
			if err := sock.Send(dg.Payload, dg.Addr); err != nil {
				slog.Warn("send failed", "to", dg.Addr, "err", err)
			}
		}

		if events != nil {
			for _, ev := range evs {
				select {
				case events <- ev:
				case <-ctx.Done():
					return nil
				}
			}
		}
	}
}
