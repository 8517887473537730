package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"coursechat/pkg/types"
)

// writeWait bounds a single socket write.
const writeWait = 5 * time.Second

// Connection wraps a websocket with a single writer goroutine. All frames
// leave through writeCh; nothing else touches the socket for writes, which
// keeps concurrent broadcasts race-free. Identity fields are set at upgrade
// time and never change.
type Connection struct {
	conn       *websocket.Conn
	id         string
	userID     string
	senderName string
	roomKey    types.RoomKey

	writeCh   chan []byte
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// NewConnection wraps an upgraded socket and starts its writer.
func NewConnection(conn *websocket.Conn, id, userID, senderName string, key types.RoomKey, sendBuffer int) *Connection {
	if sendBuffer <= 0 {
		sendBuffer = 256
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Connection{
		conn:       conn,
		id:         id,
		userID:     userID,
		senderName: senderName,
		roomKey:    key,
		writeCh:    make(chan []byte, sendBuffer),
		ctx:        ctx,
		cancel:     cancel,
	}

	go c.writeLoop()

	return c
}

// writeLoop is the connection's single writer. It exits when the connection
// closes; writeCh is never closed, so a racing WriteJSON enqueues into a
// channel nobody drains and the frame is collected with the connection.
func (c *Connection) writeLoop() {
	for {
		select {
		case data := <-c.writeCh:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// WriteJSON enqueues a frame for the writer goroutine. The enqueue never
// blocks: a closed connection or a full buffer returns an error the caller
// treats as a skip, so one slow client cannot stall a room broadcast.
func (c *Connection) WriteJSON(v interface{}) error {
	select {
	case <-c.ctx.Done():
		return ErrConnectionClosed
	default:
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal frame: %w", err)
	}

	select {
	case c.writeCh <- data:
		return nil
	case <-c.ctx.Done():
		return ErrConnectionClosed
	default:
		return ErrSendBufferFull
	}
}

// Close tears the connection down. Safe to call more than once; every
// teardown path funnels here.
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		if c.conn != nil {
			err = c.conn.Close()
		}
	})
	return err
}

// IsOpen reports whether the connection still accepts frames.
func (c *Connection) IsOpen() bool {
	return c.ctx.Err() == nil
}

func (c *Connection) GetID() string             { return c.id }
func (c *Connection) GetUserID() string         { return c.userID }
func (c *Connection) GetSenderName() string     { return c.senderName }
func (c *Connection) GetRoomKey() types.RoomKey { return c.roomKey }
