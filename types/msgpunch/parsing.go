package msgpunch

import (
	"errors"
	"fmt"

	"github.com/edup2p/punch/types/bin"
	"github.com/edup2p/punch/types/session"
)

var (
	ErrTooSmall     = errors.New("punch message too small")
	ErrBadMagic     = errors.New("not a punch message")
	ErrTrailingData = errors.New("punch message has trailing bytes")
	ErrUnknownType  = errors.New("unknown punch message type")
)

// LooksLikePunchMessage reports whether pkt could be a punch wire message.
// Datagrams failing this check are plain noise and can be dropped without
// further parsing.
func LooksLikePunchMessage(pkt []byte) bool {
	if len(pkt) < headerLen {
		// too short, cant possibly be a wire message
		return false
	}

	return string(pkt[:magicLen]) == Magic
}

// Parse decodes a single datagram payload.
//
// All returned errors are local to the datagram; callers drop the packet and
// carry on. Unknown types (a newer peer, or garbage that happens to carry the
// magic) are reported as ErrUnknownType, everything else as a malformed-input
// error.
func Parse(pkt []byte) (Message, error) {
	if len(pkt) < headerLen {
		return nil, ErrTooSmall
	}
	if string(pkt[:magicLen]) != Magic {
		return nil, ErrBadMagic
	}

	version := pkt[magicLen]
	msgType := pkt[magicLen+1]
	id := session.ID(pkt[magicLen+2 : headerLen])
	rest := pkt[headerLen:]

	if VersionMarker(version) != v1 {
		return nil, fmt.Errorf("invalid version: %x", version)
	}

	switch MessageType(msgType) {
	case RegisterMessage:
		return bare(&Register{SessionID: id}, rest)
	case RegisterAckMessage:
		return bare(&RegisterAck{SessionID: id}, rest)
	case RequestSessionMessage:
		return bare(&RequestSession{SessionID: id}, rest)
	case NoSuchSessionMessage:
		return bare(&NoSuchSession{SessionID: id}, rest)
	case PunchMessage:
		return bare(&Punch{SessionID: id}, rest)
	case PunchAckMessage:
		return bare(&PunchAck{SessionID: id}, rest)
	case KeepaliveMessage:
		return bare(&Keepalive{SessionID: id}, rest)
	case PeerInfoMessage:
		return parsePeerInfo(id, rest)
	default:
		return nil, fmt.Errorf("%w: %x", ErrUnknownType, msgType)
	}
}

// bare rejects payload bytes on messages that carry none.
// Datagrams arrive whole, so a length mismatch means a malformed sender.
func bare(m Message, rest []byte) (Message, error) {
	if len(rest) != 0 {
		return nil, ErrTrailingData
	}
	return m, nil
}

func parsePeerInfo(id session.ID, b []byte) (Message, error) {
	if len(b) < bin.AddrPortLen {
		return nil, ErrTooSmall
	}
	if len(b) > bin.AddrPortLen {
		return nil, ErrTrailingData
	}

	ap := bin.ParseAddrPort([bin.AddrPortLen]byte(b))

	return &PeerInfo{SessionID: id, Peer: ap}, nil
}
