package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/benbjohnson/clock"
	"github.com/edup2p/punch/puncher"
	"github.com/edup2p/punch/server/rendezvous"
	"github.com/edup2p/punch/types"
	"github.com/edup2p/punch/types/udpsock"
)

var (
	addr    = flag.String("a", ":3478", "UDP listen address, in form \":port\" or \"ip:port\". If the IP is omitted, it defaults to all interfaces.")
	verbose = flag.Bool("v", false, "verbose (debug) logging")
	trace   = flag.Bool("trace", false, "per-datagram trace logging (implies -v)")
)

func main() {
	flag.Parse()

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

	ua, err := net.ResolveUDPAddr("udp", *addr)
	if err != nil {
		log.Fatalf("could not parse -a: %v", err)
	}

	sock, err := udpsock.Bind(ua.AddrPort())
	if err != nil {
		log.Fatalf("could not bind UDP socket: %v", err)
	}
	defer sock.Close()

	log.Printf("holepuncher listening on %v", sock.LocalAddrPort())

	hp := rendezvous.NewServer()

	if err := puncher.RunMachine(ctx, clock.New(), sock, hp, puncher.DefaultTickInterval, nil); err != nil {
		log.Fatalf("holepuncher stopped: %v", err)
	}
}
