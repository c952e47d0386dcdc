package server

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gammonhub/gammon-server-go/internal/auth"
	"github.com/gammonhub/gammon-server-go/internal/config"
	"github.com/gammonhub/gammon-server-go/internal/session"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// envelope is the wire frame for inbound session events.
type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type eventPayload struct {
	MatchID string `json:"match_id"`
	From    int    `json:"from"`
	To      int    `json:"to"`
}

// Client is one websocket connection bound to an authenticated user.
// It implements session.Subscriber; Send never blocks and a client
// whose buffer fills is dropped.
type Client struct {
	conn     *websocket.Conn
	user     *auth.User
	sessions *session.Coordinator
	cfg      config.ServerConfig
	logger   *zap.Logger

	send chan session.Message
	done chan struct{}
	once sync.Once
}

func newClient(conn *websocket.Conn, user *auth.User, sessions *session.Coordinator, cfg config.ServerConfig, logger *zap.Logger) *Client {
	return &Client{
		conn:     conn,
		user:     user,
		sessions: sessions,
		cfg:      cfg,
		logger:   logger,
		send:     make(chan session.Message, cfg.SendBuffer),
		done:     make(chan struct{}),
	}
}

func (c *Client) UserID() string {
	return c.user.ID
}

// Send queues an outbound message. A full buffer means the client is
// not keeping up; it gets disconnected rather than stalling the room.
func (c *Client) Send(msg session.Message) {
	select {
	case <-c.done:
	case c.send <- msg:
	default:
		c.logger.Warn("dropping slow websocket client",
			zap.String("user_id", c.user.ID),
		)
		c.drop()
	}
}

func (c *Client) drop() {
	c.once.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// readPump consumes inbound frames until the connection dies, feeding
// decoded events to the session coordinator.
func (c *Client) readPump(ctx context.Context) {
	defer func() {
		c.sessions.Disconnect(c)
		c.drop()
	}()

	c.conn.SetReadLimit(c.cfg.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("websocket read error",
					zap.String("user_id", c.user.ID),
					zap.Error(err),
				)
			}
			return
		}

		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			c.Send(session.Message{Type: session.MsgError, Payload: session.ErrorPayload{Message: "malformed event"}})
			continue
		}

		eventType := session.EventType(env.Type)
		if !eventType.Valid() {
			c.Send(session.Message{Type: session.MsgError, Payload: session.ErrorPayload{Message: "unknown event type"}})
			continue
		}

		var p eventPayload
		if len(env.Payload) > 0 {
			if err := json.Unmarshal(env.Payload, &p); err != nil {
				c.Send(session.Message{Type: session.MsgError, Payload: session.ErrorPayload{Message: "malformed event payload"}})
				continue
			}
		}

		c.sessions.Handle(ctx, c, session.Event{
			Type:    eventType,
			MatchID: p.MatchID,
			From:    p.From,
			To:      p.To,
		})
	}
}

// writePump drains the send buffer and keeps the connection alive
// with periodic pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		c.drop()
	}()

	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
