package server

import (
	"sync"
	"time"

	"market-structure/src/models"

	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Constants
// -----------------------------------------------------------------------------

const (
	writeWait      = 2 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBuffer     = 256
)

// -----------------------------------------------------------------------------
// Client Structure
// -----------------------------------------------------------------------------

type Client struct {
	ID   string
	hub  *Server
	conn *websocket.Conn
	send chan models.MEnvelope

	mu     sync.RWMutex
	filter subscription
}

// subscription narrows what a client receives. Empty fields match everything.
type subscription struct {
	symbols   map[string]struct{}
	timeframe string
}

// -----------------------------------------------------------------------------

func (c *Client) subscribe(cmd models.MSubscribeCommand) {
	f := subscription{timeframe: cmd.Timeframe}
	if len(cmd.Symbols) > 0 {
		f.symbols = make(map[string]struct{}, len(cmd.Symbols))
		for _, s := range cmd.Symbols {
			f.symbols[s] = struct{}{}
		}
	}

	c.mu.Lock()
	c.filter = f
	c.mu.Unlock()
}

// -----------------------------------------------------------------------------

// accepts reports whether the envelope passes the client's subscription.
// Envelopes without a resolution (sessions) ignore the timeframe filter.
func (c *Client) accepts(env models.MEnvelope) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.filter.symbols != nil {
		if _, ok := c.filter.symbols[env.Symbol]; !ok {
			return false
		}
	}
	if c.filter.timeframe != "" && env.Resolution != "" && env.Resolution != c.filter.timeframe {
		return false
	}
	return true
}

// -----------------------------------------------------------------------------
// readPump - handles incoming messages from client
// Act as a Watchdog for the connection
// -----------------------------------------------------------------------------

func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
		c.hub.Logger.Debug("Client %s disconnected", c.ID)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.Logger.Info("WebSocket error: %v", err)
			}
			break
		}
		c.hub.HandleClientMessage(c, message)
	}
}

// -----------------------------------------------------------------------------
// writePump - sends messages to client
// -----------------------------------------------------------------------------

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				c.hub.Logger.Info("Write error on client %s: %v", c.ID, err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
