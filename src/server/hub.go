package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"time"

	"market-structure/src/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var errServerStopped = errors.New("websocket hub stopped")

// -----------------------------------------------------------------------------
// Hub Pattern Implementation
// -----------------------------------------------------------------------------

// handleWebsockets is the main Hub loop. It is the only writer of s.clients
// and the only goroutine that closes a client's send channel.
func (s *Server) handleWebsockets() {
	for {
		select {
		case <-s.done:
			for client := range s.clients {
				s.drop(client)
			}
			return

		case client := <-s.register:
			s.clients[client] = struct{}{}
			s.setConnected(len(s.clients))
			s.sendSnapshot(client)

		case client := <-s.unregister:
			if _, ok := s.clients[client]; ok {
				s.drop(client)
			}

		case client := <-s.resync:
			if _, ok := s.clients[client]; ok {
				s.sendSnapshot(client)
			}

		case message := <-s.broadcast:
			for client := range s.clients {
				if !client.accepts(message) {
					continue
				}
				select {
				case client.send <- message:
				default:
					// Client too slow, disconnect to prevent Hub blocking
					s.Logger.Warning("Dropping slow client %s", client.ID)
					s.drop(client)
				}
			}
		}
	}
}

// -----------------------------------------------------------------------------

func (s *Server) drop(client *Client) {
	delete(s.clients, client)
	close(client.send)
	s.setConnected(len(s.clients))
}

// -----------------------------------------------------------------------------

func (s *Server) setConnected(n int) {
	s.stateMutex.Lock()
	s.connected = n
	s.stateMutex.Unlock()
}

// -----------------------------------------------------------------------------

// sendSnapshot replays the latest candle of every key the client subscribes to
func (s *Server) sendSnapshot(client *Client) {
	for _, env := range s.snapshot() {
		if !client.accepts(env) {
			continue
		}
		select {
		case client.send <- env:
		default:
			s.Logger.Warning("Dropping slow client %s during snapshot", client.ID)
			s.drop(client)
			return
		}
	}
}

// -----------------------------------------------------------------------------

// snapshot returns the latest candles ordered by symbol then resolution
func (s *Server) snapshot() []models.MEnvelope {
	s.stateMutex.RLock()
	out := make([]models.MEnvelope, 0, len(s.latest))
	for _, env := range s.latest {
		out = append(out, env)
	}
	s.stateMutex.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Symbol != out[j].Symbol {
			return out[i].Symbol < out[j].Symbol
		}
		return out[i].Resolution < out[j].Resolution
	})
	return out
}

// -----------------------------------------------------------------------------
// Data Exchange Interface Implementation
// -----------------------------------------------------------------------------

func (s *Server) Name() string { return "websocket" }

// Publish queues an envelope for every subscribed client. Closed candles are
// also kept as the per-key snapshot for clients that connect later.
func (s *Server) Publish(ctx context.Context, env models.MEnvelope) error {
	select {
	case <-s.done:
		return errServerStopped
	default:
	}

	if env.Type == models.EventCandle {
		s.stateMutex.Lock()
		s.latest[models.Key{Symbol: env.Symbol, Resolution: env.Resolution}] = env
		s.lastUpdate = time.Now().UnixMilli()
		s.stateMutex.Unlock()
	}

	select {
	case s.broadcast <- env:
		return nil
	case <-s.done:
		return errServerStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// -----------------------------------------------------------------------------
// WebSocket Handlers
// -----------------------------------------------------------------------------

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// -----------------------------------------------------------------------------

func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Info("Failed to upgrade websocket: %v", err)
		return
	}

	client := &Client{
		ID:   uuid.NewString(),
		hub:  s,
		conn: conn,
		// Buffered channel to prevent blocking the Hub loop
		send: make(chan models.MEnvelope, sendBuffer),
	}

	select {
	case s.register <- client:
	case <-s.done:
		conn.Close()
		return
	}
	s.Logger.Debug("Client %s connected from %s", client.ID, c.ClientIP())

	go client.writePump()
	go client.readPump()
}

// -----------------------------------------------------------------------------
// Client Message Handling
// -----------------------------------------------------------------------------

// HandleClientMessage applies a subscribe command and replays the matching
// snapshot. Anything that is not valid JSON disconnects the client.
func (s *Server) HandleClientMessage(client *Client, message []byte) {
	var cmd models.MSubscribeCommand
	if err := json.Unmarshal(message, &cmd); err != nil {
		s.Logger.Info("Failed to parse client command: %v, disconnecting client %s", err, client.ID)
		client.conn.Close()
		return
	}

	if cmd.Command != "subscribe" {
		return
	}
	client.subscribe(cmd)

	select {
	case s.resync <- client:
	case <-s.done:
	}
}
