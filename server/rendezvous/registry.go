package rendezvous

import (
	"net/netip"
	"time"

	"github.com/edup2p/punch/types/session"
	"golang.org/x/exp/maps"
)

const (
	// RegistrationTTL is how long a registration survives without a
	// refresh: three keepalive periods of headroom.
	RegistrationTTL = time.Second * 30

	// RequestTTL bounds how long a requester waits for its session to show
	// up before it gets a NoSuchSession.
	RequestTTL = time.Second * 10
)

// Session is one live registration: a session ID bound to the server peer's
// NAT-mapped endpoint as this holepuncher observed it.
type Session struct {
	ID             session.ID
	ServerEndpoint netip.AddrPort

	RegisteredAt time.Time
	LastRefresh  time.Time
}

// PendingRequest is a client that asked for a session before its server
// registered. It is matched and removed the moment the registration shows
// up, or expired after RequestTTL.
type PendingRequest struct {
	ID        session.ID
	Requester netip.AddrPort

	RequestedAt time.Time
}

// Match pairs a requester with the registration it asked for. The caller
// owes a PeerInfo to each side.
type Match struct {
	ID        session.ID
	Server    netip.AddrPort
	Requester netip.AddrPort
}

// Registry is the holepuncher's single source of truth: session ID →
// server endpoint, plus the requests still waiting for one.
//
// Purely passive bookkeeping; the machine around it does the wire work.
// Not safe for concurrent use.
type Registry struct {
	registrationTTL time.Duration
	requestTTL      time.Duration

	sessions map[session.ID]*Session
	pending  map[session.ID][]*PendingRequest
}

// NewRegistry returns an empty registry with the default TTLs.
func NewRegistry() *Registry {
	return NewRegistryWithTTLs(RegistrationTTL, RequestTTL)
}

func NewRegistryWithTTLs(registrationTTL, requestTTL time.Duration) *Registry {
	return &Registry{
		registrationTTL: registrationTTL,
		requestTTL:      requestTTL,
		sessions:        make(map[session.ID]*Session),
		pending:         make(map[session.ID][]*PendingRequest),
	}
}

// Register inserts or overwrites the registration for id, and returns a
// match for every requester that was already waiting for it.
func (r *Registry) Register(id session.ID, server netip.AddrPort, now time.Time) []Match {
	sess, ok := r.sessions[id]
	if ok {
		// re-registration moves the endpoint and refreshes in one go
		sess.ServerEndpoint = server
		sess.LastRefresh = now
	} else {
		r.sessions[id] = &Session{
			ID:             id,
			ServerEndpoint: server,
			RegisteredAt:   now,
			LastRefresh:    now,
		}
	}

	waiting := r.pending[id]
	if len(waiting) == 0 {
		return nil
	}
	delete(r.pending, id)

	matches := make([]Match, 0, len(waiting))
	for _, p := range waiting {
		matches = append(matches, Match{ID: id, Server: server, Requester: p.Requester})
	}
	return matches
}

// Request matches requester against a live registration of id, or stores it
// as pending. ok is false when the requester has to wait.
func (r *Registry) Request(id session.ID, requester netip.AddrPort, now time.Time) (Match, bool) {
	if sess, ok := r.sessions[id]; ok && !r.stale(sess, now) {
		return Match{ID: id, Server: sess.ServerEndpoint, Requester: requester}, true
	}

	for _, p := range r.pending[id] {
		if p.Requester == requester {
			// a retry of a request we already hold; the original
			// RequestedAt keeps the wait bounded
			return Match{}, false
		}
	}

	r.pending[id] = append(r.pending[id], &PendingRequest{
		ID:          id,
		Requester:   requester,
		RequestedAt: now,
	})
	return Match{}, false
}

// Refresh updates the registration's last refresh. A refresh for an unknown
// or already-evicted session is indistinguishable from noise and must not
// resurrect anything, so it is silently ignored; the return value only
// tells the caller whether to ack.
func (r *Registry) Refresh(id session.ID, now time.Time) bool {
	sess, ok := r.sessions[id]
	if !ok || r.stale(sess, now) {
		return false
	}

	sess.LastRefresh = now
	return true
}

// Sweep evicts expired sessions and expired pending requests, returning the
// latter so the caller can tell each requester NoSuchSession.
func (r *Registry) Sweep(now time.Time) []PendingRequest {
	for _, id := range maps.Keys(r.sessions) {
		if r.stale(r.sessions[id], now) {
			delete(r.sessions, id)
		}
	}

	var expired []PendingRequest

	for _, id := range maps.Keys(r.pending) {
		var keep []*PendingRequest
		for _, p := range r.pending[id] {
			if now.Sub(p.RequestedAt) > r.requestTTL {
				expired = append(expired, *p)
			} else {
				keep = append(keep, p)
			}
		}
		if len(keep) == 0 {
			delete(r.pending, id)
		} else {
			r.pending[id] = keep
		}
	}

	return expired
}

// Len returns how many live registrations the registry holds.
func (r *Registry) Len() int {
	return len(r.sessions)
}

// PendingLen returns how many requests are waiting for a registration.
func (r *Registry) PendingLen() int {
	n := 0
	for _, ps := range r.pending {
		n += len(ps)
	}
	return n
}

func (r *Registry) stale(sess *Session, now time.Time) bool {
	return now.Sub(sess.LastRefresh) > r.registrationTTL
}
