package users

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"coursechat/pkg/interfaces"
)

// Directory caches display names in front of the message store. Names are
// resolved once per user per process: concurrent joins for the same user
// collapse into one store query, and misses are cached as "" so absent user
// rows do not hit the store on every join.
type Directory struct {
	store  interfaces.MessageStore
	logger zerolog.Logger

	mu    sync.RWMutex
	names map[string]string

	group singleflight.Group
}

// NewDirectory creates a directory over the given store.
func NewDirectory(store interfaces.MessageStore, logger zerolog.Logger) *Directory {
	return &Directory{
		store:  store,
		logger: logger.With().Str("component", "users").Logger(),
		names:  make(map[string]string),
	}
}

// DisplayName returns the user's full name, or "" when no user row exists.
// Store failures are returned and left uncached so a later join can retry.
func (d *Directory) DisplayName(ctx context.Context, userID string) (string, error) {
	d.mu.RLock()
	name, ok := d.names[userID]
	d.mu.RUnlock()
	if ok {
		return name, nil
	}

	v, err, _ := d.group.Do(userID, func() (interface{}, error) {
		name, err := d.store.UserDisplayName(ctx, userID)
		if errors.Is(err, interfaces.ErrUserNotFound) {
			d.logger.Debug().Str("user_id", userID).Msg("no user row, caching empty name")
			name, err = "", nil
		}
		if err != nil {
			return "", err
		}

		d.mu.Lock()
		d.names[userID] = name
		d.mu.Unlock()
		return name, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// CachedCount reports how many names are resident, for the stats endpoint.
func (d *Directory) CachedCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.names)
}
