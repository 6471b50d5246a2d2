package main

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/mahaj/baithak/pkg/model"
	"github.com/mahaj/baithak/pkg/registry"
	"github.com/mahaj/baithak/pkg/store"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum frame size allowed from peer. Images travel as URL
	// references, not inline payloads.
	maxFrameSize = 8192

	// Outbound queue depth per session.
	sendBuffer = 256
)

// Session lifecycle. A session joins its room group only once, leaves only
// once, and processes no inbound frames after it starts closing.
const (
	stateConnecting int32 = iota
	stateJoined
	stateClosing
	stateClosed
)

var (
	errSlowConsumer  = errors.New("outbound buffer full")
	errSessionClosed = errors.New("session closed")
)

// Client is one live socket: the middleman between the websocket
// connection and the room group it joined.
type Client struct {
	gw   *Gateway
	conn *websocket.Conn

	// Buffered channel of outbound broadcast events.
	send chan []byte
	quit chan struct{}

	id       string
	user     *model.User
	room     *model.Room
	groupKey string

	state     atomic.Int32
	quitOnce  sync.Once
	leaveOnce sync.Once
}

func newClient(gw *Gateway, conn *websocket.Conn, user *model.User, room *model.Room) *Client {
	c := &Client{
		gw:       gw,
		conn:     conn,
		send:     make(chan []byte, sendBuffer),
		quit:     make(chan struct{}),
		id:       uuid.NewString(),
		user:     user,
		room:     room,
		groupKey: registry.GroupKey(room.ID),
	}
	c.state.Store(stateConnecting)
	return c
}

func (c *Client) ID() string { return c.id }

// Deliver queues one broadcast event without blocking. A full buffer means
// the peer cannot keep up: the session starts closing and the registry
// drops it, isolating the slow consumer from the rest of the group.
func (c *Client) Deliver(data []byte) error {
	if c.state.Load() >= stateClosing {
		return errSessionClosed
	}
	select {
	case c.send <- data:
		return nil
	default:
		c.beginClose()
		return errSlowConsumer
	}
}

func (c *Client) beginClose() {
	c.state.CompareAndSwap(stateJoined, stateClosing)
	c.quitOnce.Do(func() { close(c.quit) })
}

// readPump processes inbound frames strictly in receipt order, one
// goroutine per session.
func (c *Client) readPump() {
	defer c.teardown()

	c.conn.SetReadLimit(maxFrameSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.gw.log.Warn("session read error", "session", c.id, "error", err)
			}
			return
		}
		if c.state.Load() != stateJoined {
			return
		}
		c.handleInbound(context.Background(), raw)
	}
}

// handleInbound validates one frame, persists the message, then publishes
// it to the room group. A frame that fails validation is dropped and the
// session stays open; a message that fails to persist is never published.
func (c *Client) handleInbound(ctx context.Context, raw []byte) {
	var evt model.InboundEvent
	if err := json.Unmarshal(raw, &evt); err != nil {
		c.gw.log.Warn("malformed frame", "session", c.id, "error", err)
		return
	}
	if err := c.gw.validate.Struct(&evt); err != nil {
		c.gw.log.Warn("invalid frame", "session", c.id, "error", err)
		return
	}
	// Sessions post only into the room they joined; the client-asserted
	// room id is a cross-check, nothing more.
	if evt.RoomID != c.room.ID {
		c.gw.log.Warn("frame for wrong room", "session", c.id, "room_id", evt.RoomID)
		return
	}

	user, err := c.gw.store.GetUserByUsername(ctx, evt.Username)
	if err != nil {
		c.gw.log.Warn("unknown sender", "session", c.id, "username", evt.Username, "error", err)
		return
	}

	msg, err := c.gw.store.CreateMessage(ctx, user.ID, c.room.ID, evt.Message, evt.Image)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) || errors.Is(err, store.ErrRoomNotFound) {
			c.gw.log.Warn("stale reference", "session", c.id, "error", err)
			return
		}
		c.gw.log.Error("persist failed", "session", c.id, "error", err)
		c.notify(model.TypeError, "message not saved")
		return
	}

	// Persisted; only now does the event fan out. Room name comes from
	// the server-side room, not the client-asserted value.
	data, err := json.Marshal(model.BroadcastEvent{
		Type:     model.TypeMessage,
		Message:  msg.Content,
		Username: msg.Username,
		RoomName: c.room.Name,
		Image:    msg.Image,
	})
	if err != nil {
		c.gw.log.Error("marshal broadcast", "session", c.id, "error", err)
		return
	}
	if err := c.gw.registry.Publish(ctx, c.groupKey, data); err != nil {
		c.gw.log.Error("publish failed", "session", c.id, "error", err)
	}
}

// notify queues a frame for this session only, bypassing the group.
func (c *Client) notify(typ model.EventType, text string) {
	data, err := json.Marshal(model.BroadcastEvent{Type: typ, Message: text})
	if err != nil {
		return
	}
	_ = c.Deliver(data)
}

// writePump owns all writes on the connection: broadcast events, pings and
// the close frame.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			out, err := renderOutbound(data)
			if err != nil {
				c.gw.log.Warn("unrenderable event", "session", c.id, "error", err)
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, out); err != nil {
				return
			}
		case <-c.quit:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// renderOutbound converts a broadcast event into its client-facing frame.
// Chat messages render as {message, username, image}; presence and error
// notices keep an explicit type.
func renderOutbound(data []byte) ([]byte, error) {
	var evt model.BroadcastEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		return nil, err
	}
	if evt.Type == model.TypeMessage {
		return json.Marshal(model.OutboundMessage{
			Message:  evt.Message,
			Username: evt.Username,
			Image:    evt.Image,
		})
	}
	return json.Marshal(model.OutboundNotice{
		Type:     evt.Type,
		Username: evt.Username,
		Message:  evt.Message,
	})
}

// teardown runs once the read pump exits, however the connection died.
// Leaving the group is idempotent; presence cleanup and the departure
// notice are best effort.
func (c *Client) teardown() {
	c.beginClose()
	c.leaveOnce.Do(func() {
		c.gw.registry.Leave(c.groupKey, c)
		if c.gw.presence != nil {
			if err := c.gw.presence.Remove(context.Background(), c.room.ID, c.user.Username); err != nil {
				c.gw.log.Warn("presence remove failed", "session", c.id, "error", err)
			}
		}
		c.gw.announcePresence(context.Background(), c.room, c.user.Username, "left")
	})
	c.conn.Close()
	c.state.Store(stateClosed)
	c.gw.log.Info("session closed", "session", c.id, "user", c.user.Username, "room", c.room.Slug)
}
