package interfaces

import "context"

// NameResolver resolves a user's display name for message enrichment.
// Implementations return "" with no error for users that do not exist;
// enrichment simply omits the name.
type NameResolver interface {
	DisplayName(ctx context.Context, userID string) (string, error)
}
