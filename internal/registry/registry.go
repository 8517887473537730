package registry

import (
	"sync"

	"github.com/rs/zerolog"

	"coursechat/pkg/interfaces"
	"coursechat/pkg/types"
)

// room holds one room's membership behind its own lock. Broadcast snapshots
// and mutations for different rooms never contend with each other.
type room struct {
	mu      sync.RWMutex
	members map[interfaces.Connection]struct{}
}

// Registry tracks room membership by connection identity. A connection
// belongs to at most one room; a user with several connections appears once
// per connection. The registry owns no connection lifecycle, it only tracks.
type Registry struct {
	mu     sync.RWMutex
	rooms  map[types.RoomKey]*room
	joined map[interfaces.Connection]types.RoomKey
	logger zerolog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger zerolog.Logger) *Registry {
	return &Registry{
		rooms:  make(map[types.RoomKey]*room),
		joined: make(map[interfaces.Connection]types.RoomKey),
		logger: logger.With().Str("component", "registry").Logger(),
	}
}

// Register adds a connection to a room, creating the room entry on first
// member. Registering the same connection in the same room again is a no-op;
// a connection already joined elsewhere is rejected.
func (r *Registry) Register(key types.RoomKey, conn interfaces.Connection) error {
	if conn == nil {
		return ErrNilConnection
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.joined[conn]; ok {
		if existing == key {
			return nil
		}
		return ErrAlreadyJoined
	}

	rm, ok := r.rooms[key]
	if !ok {
		rm = &room{members: make(map[interfaces.Connection]struct{})}
		r.rooms[key] = rm
	}

	rm.mu.Lock()
	rm.members[conn] = struct{}{}
	rm.mu.Unlock()

	r.joined[conn] = key

	r.logger.Debug().
		Str("room", key.String()).
		Str("user_id", conn.GetUserID()).
		Str("conn_id", conn.GetID()).
		Msg("connection registered")
	return nil
}

// Deregister removes a connection from a room and deletes the room entry
// when the last member leaves. Unknown rooms and connections that were never
// registered (or were already removed) are no-ops.
func (r *Registry) Deregister(key types.RoomKey, conn interfaces.Connection) {
	if conn == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[key]
	if !ok {
		return
	}

	rm.mu.Lock()
	_, member := rm.members[conn]
	delete(rm.members, conn)
	empty := len(rm.members) == 0
	rm.mu.Unlock()

	if joinedKey, ok := r.joined[conn]; ok && joinedKey == key {
		delete(r.joined, conn)
	}

	// Empty room entries are dropped so long-running processes do not
	// accumulate keys for every room ever visited.
	if empty {
		delete(r.rooms, key)
	}

	if member {
		r.logger.Debug().
			Str("room", key.String()).
			Str("user_id", conn.GetUserID()).
			Str("conn_id", conn.GetID()).
			Msg("connection deregistered")
	}
}

// MembersOf returns a snapshot of the room's connections. The snapshot is
// safe to iterate while members join and leave; a member that closes after
// the snapshot is taken is skipped at delivery time. Unknown rooms yield an
// empty slice.
func (r *Registry) MembersOf(key types.RoomKey) []interfaces.Connection {
	r.mu.RLock()
	rm, ok := r.rooms[key]
	r.mu.RUnlock()

	if !ok {
		return []interfaces.Connection{}
	}

	rm.mu.RLock()
	defer rm.mu.RUnlock()

	members := make([]interfaces.Connection, 0, len(rm.members))
	for conn := range rm.members {
		members = append(members, conn)
	}
	return members
}

// Counts reports the number of live rooms and registered connections.
func (r *Registry) Counts() (int, int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms), len(r.joined)
}

// CloseAll closes every registered connection. Used at shutdown; closing is
// done outside the lock because each connection's teardown path deregisters
// itself, which takes the lock again.
func (r *Registry) CloseAll() {
	r.mu.RLock()
	conns := make([]interfaces.Connection, 0, len(r.joined))
	for conn := range r.joined {
		conns = append(conns, conn)
	}
	r.mu.RUnlock()

	for _, conn := range conns {
		if err := conn.Close(); err != nil {
			r.logger.Debug().
				Err(err).
				Str("conn_id", conn.GetID()).
				Msg("close at shutdown")
		}
	}
}
