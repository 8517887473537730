package interfaces

import "coursechat/pkg/types"

// TokenVerifier validates a bearer credential presented at handshake time.
// Verification is pure: no room, connection, or persistence state involved.
type TokenVerifier interface {
	// Verify parses and validates a signed token and returns its claims.
	// Failures map to the auth package's sentinel errors.
	Verify(token string) (*types.Claims, error)
}
