package msgpunch

import (
	"slices"

	"github.com/edup2p/punch/types/session"
)

// Magic is the 4 byte header of all punch messages
// "🕳"
// F0 9F 95 B3
var Magic = string(MagicBytes)

var MagicBytes = []byte{0xF0, 0x9F, 0x95, 0xB3}

const magicLen = 4

type VersionMarker byte

const v1 = VersionMarker(0x1)

type MessageType byte

const (
	RegisterMessage       = MessageType(0x01)
	RegisterAckMessage    = MessageType(0x02)
	RequestSessionMessage = MessageType(0x03)
	PeerInfoMessage       = MessageType(0x04)
	NoSuchSessionMessage  = MessageType(0x05)
	PunchMessage          = MessageType(0x06)
	PunchAckMessage       = MessageType(0x07)
	KeepaliveMessage      = MessageType(0x08)
)

// Wire layout:
//   Magic (4) + Version (1) + Type (1) + Session ID (16) + type-specific data

const headerLen = magicLen + 2 + session.Len

func marshalHeader(t MessageType, id session.ID) []byte {
	return slices.Concat(MagicBytes, []byte{byte(v1), byte(t)}, id[:])
}
