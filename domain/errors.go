package domain

import "errors"

var (
	ErrUnauthorized           = errors.New("unauthorized")
	ErrRateLimited            = errors.New("rate limited")
	ErrNoActiveMatch          = errors.New("no active match")
	ErrDuplicateIdentity      = errors.New("account currently in room")
	ErrRelayUnauthorized      = errors.New("sender and target share no room")
	ErrDirectoryInconsistency = errors.New("identity missing from its own match roster")

	ErrNotConnected  = errors.New("connection not registered")
	ErrAlreadyInRoom = errors.New("connection already in a room")
)

// Wire strings sent to clients.
const (
	ReasonUnauthorized = "unauthorized"
	ReasonRateLimit    = "rate-limit"
	ErrorAccountInRoom = "account-currently-in-room"
)

// RejectReason maps a handshake error to the reason string clients receive.
// Anything that is not a rate limit is reported as unauthorized.
func RejectReason(err error) string {
	if errors.Is(err, ErrRateLimited) {
		return ReasonRateLimit
	}
	return ReasonUnauthorized
}
