package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"net"
	"net/netip"
	"os"
	"os/signal"
	"syscall"

	"github.com/benbjohnson/clock"
	"github.com/edup2p/punch/puncher"
	"github.com/edup2p/punch/types"
	"github.com/edup2p/punch/types/session"
	"github.com/edup2p/punch/types/udpsock"
)

var (
	hpAddr  = flag.String("hp", "", "holepuncher address, in form \"ip:port\" (required)")
	sessID  = flag.String("session", "", "session ID to register under (hex or uuid); generated when empty")
	verbose = flag.Bool("v", false, "verbose (debug) logging")
	trace   = flag.Bool("trace", false, "per-datagram trace logging (implies -v)")
)

func main() {
	flag.Parse()

	if *hpAddr == "" {
		log.Fatal("-hp is required")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	programLevel := new(slog.LevelVar) // Info by default
	if *verbose {
		programLevel.Set(slog.LevelDebug)
	}
	if *trace {
		programLevel.Set(types.LevelTrace)
	}
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: programLevel})
	slog.SetDefault(slog.New(h))

	ua, err := net.ResolveUDPAddr("udp", *hpAddr)
	if err != nil {
		log.Fatalf("could not parse -hp: %v", err)
	}

	id := session.NewID()
	if *sessID != "" {
		id, err = session.Parse(*sessID)
		if err != nil {
			log.Fatalf("could not parse -session: %v", err)
		}
	}

	// ephemeral port; the NAT-mapped one is what matters anyway
	sock, err := udpsock.Bind(netip.AddrPortFrom(netip.IPv4Unspecified(), 0))
	if err != nil {
		log.Fatalf("could not bind UDP socket: %v", err)
	}
	defer sock.Close()

	log.Printf("serving session %s from %v via holepuncher %v", id, sock.LocalAddrPort(), ua.AddrPort())

	srv := puncher.NewServer(id, ua.AddrPort())

	events := make(chan types.Event, 8)
	go func() {
		for ev := range events {
			switch ev := ev.(type) {
			case puncher.SessionRegistered:
				log.Printf("session registered with holepuncher")
			case puncher.ClientConnected:
				log.Printf("client connected: %v", ev.Endpoint)
			case puncher.ConnectionFailed:
				if ev.Reason == types.ReasonRegisterTimeout {
					log.Printf("registration failed: %s", ev.Reason)
					cancel()
				} else {
					log.Printf("client punch failed: %v (%s)", ev.Endpoint, ev.Reason)
				}
			default:
				log.Printf("event: %s", ev.EventName())
			}
		}
	}()

	if err := puncher.RunMachine(ctx, clock.New(), sock, srv, puncher.DefaultTickInterval, events); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
