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
	sessID  = flag.String("session", "", "session ID to connect to (hex or uuid) (required)")
	verbose = flag.Bool("v", false, "verbose (debug) logging")
	trace   = flag.Bool("trace", false, "per-datagram trace logging (implies -v)")
)

func main() {
	flag.Parse()

	if *hpAddr == "" || *sessID == "" {
		log.Fatal("-hp and -session are required")
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

	id, err := session.Parse(*sessID)
	if err != nil {
		log.Fatalf("could not parse -session: %v", err)
	}

	sock, err := udpsock.Bind(netip.AddrPortFrom(netip.IPv4Unspecified(), 0))
	if err != nil {
		log.Fatalf("could not bind UDP socket: %v", err)
	}
	defer sock.Close()

	log.Printf("pursuing session %s from %v via holepuncher %v", id, sock.LocalAddrPort(), ua.AddrPort())

	cl := puncher.NewClient(id, ua.AddrPort())

	exitCode := 0
	events := make(chan types.Event, 8)
	go func() {
		for ev := range events {
			switch ev := ev.(type) {
			case puncher.ClientConnected:
				log.Printf("connected to server: %v", ev.Endpoint)
				// the NAT path is open; hand the socket over to the
				// application from here
			case puncher.SessionNotFound:
				log.Printf("no such session")
				exitCode = 1
				cancel()
			case puncher.ConnectionFailed:
				log.Printf("connection failed: %s", ev.Reason)
				exitCode = 1
				cancel()
			default:
				log.Printf("event: %s", ev.EventName())
			}
		}
	}()

	if err := puncher.RunMachine(ctx, clock.New(), sock, cl, puncher.DefaultTickInterval, events); err != nil {
		log.Fatalf("client stopped: %v", err)
	}

	os.Exit(exitCode)
}
