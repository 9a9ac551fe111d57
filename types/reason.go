package types

// FailReason says why a peer machine gave up. It travels inside
// ConnectionFailed events; the wire never carries it.
type FailReason string

const (
	// ReasonPunchTimeout: the punch retry budget ran out with no ack.
	ReasonPunchTimeout FailReason = "punch-timeout"

	// ReasonNotFound: the holepuncher answered NoSuchSession.
	ReasonNotFound FailReason = "session-not-found"

	// ReasonRegisterTimeout: the holepuncher never acked our registration.
	ReasonRegisterTimeout FailReason = "register-timeout"

	// ReasonRequestTimeout: the holepuncher never answered our session
	// request at all, one way or the other.
	ReasonRequestTimeout FailReason = "request-timeout"
)
