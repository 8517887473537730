package broadcast

import (
	"sync/atomic"

	"github.com/rs/zerolog"

	"coursechat/pkg/interfaces"
	"coursechat/pkg/types"
)

// Engine fans payloads out to room members. Delivery is fire-and-forget:
// closed members are skipped, a member whose send buffer is full loses the
// frame, and neither case stops delivery to the rest of the room. Frames
// enqueue in call order, so each recipient sees broadcasts in the order the
// engine was handed them.
type Engine struct {
	registry interfaces.RoomRegistry
	logger   zerolog.Logger

	broadcasts uint64
	delivered  uint64
	dropped    uint64
}

// Stats is a snapshot of the engine's delivery counters.
type Stats struct {
	Broadcasts uint64 `json:"broadcasts"`
	Delivered  uint64 `json:"delivered"`
	Dropped    uint64 `json:"dropped"`
}

// NewEngine creates an engine over the given registry.
func NewEngine(registry interfaces.RoomRegistry, logger zerolog.Logger) *Engine {
	return &Engine{
		registry: registry,
		logger:   logger.With().Str("component", "broadcast").Logger(),
	}
}

// Broadcast delivers the payload to every open member of the room. Unknown
// rooms are a no-op.
func (e *Engine) Broadcast(key types.RoomKey, payload interface{}) {
	members := e.registry.MembersOf(key)
	atomic.AddUint64(&e.broadcasts, 1)

	for _, member := range members {
		if !member.IsOpen() {
			continue
		}
		if err := member.WriteJSON(payload); err != nil {
			atomic.AddUint64(&e.dropped, 1)
			e.logger.Debug().
				Err(err).
				Str("room", key.String()).
				Str("conn_id", member.GetID()).
				Msg("frame dropped")
			continue
		}
		atomic.AddUint64(&e.delivered, 1)
	}
}

// Stats returns the engine's counters.
func (e *Engine) Stats() Stats {
	return Stats{
		Broadcasts: atomic.LoadUint64(&e.broadcasts),
		Delivered:  atomic.LoadUint64(&e.delivered),
		Dropped:    atomic.LoadUint64(&e.dropped),
	}
}
