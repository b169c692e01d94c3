package ws

import (
	"encoding/json"
	"log"
	"sync"

	"dumbal/internal/model"
)

// EventType identifies an outbound event.
type EventType string

// Broadcast events, sent to every connection in a game's room.
const (
	EvtPlayersChanged        EventType = "players-changed"
	EvtRoundStarted          EventType = "round-started"
	EvtActivePlayerChanged   EventType = "active-user-changed"
	EvtCardsPlayed           EventType = "cards-played"
	EvtCardPickedFromDeck    EventType = "card-picked-from-deck"
	EvtCardPickedFromDiscard EventType = "card-picked-from-discard"
	EvtRoundComplete         EventType = "round-complete"
	EvtPlayerReady           EventType = "player-ready"
	EvtGameComplete          EventType = "game-complete"
)

// Targeted events, sent to the originating connection only.
const (
	EvtGameCreated EventType = "game-created"
	EvtGameJoined  EventType = "game-joined"
	EvtGameState   EventType = "game-state"
	EvtPlayers     EventType = "players"
	EvtCardDrawn   EventType = "card-drawn"
	EvtError       EventType = "custom-error"
)

// Message is the outbound event envelope.
type Message struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Connection is one websocket client known to the hub. PlayerID and
// GameID are set once the connection joins a game.
type Connection struct {
	SocketID string
	GameID   string
	PlayerID string
	// Claims carries the session token presented at connect time,
	// if any; rejoin checks it against the claimed identity.
	Claims *model.SessionClaims
	Send   chan []byte
	Hub    *Hub
}

// BroadcastMessage routes one event: to a whole game room, to a
// single player in a room, or to a single connection.
type BroadcastMessage struct {
	GameID   string
	ToPlayer string
	ToSocket string
	Message  *Message
}

// Hub manages websocket connections and their game rooms.
type Hub struct {
	conns map[string]*Connection            // socketID -> conn
	rooms map[string]map[string]*Connection // gameID -> socketID -> conn

	mu sync.RWMutex

	register   chan *Connection
	unregister chan *Connection
	broadcast  chan *BroadcastMessage
}

// NewHub creates a hub and starts its event loop.
func NewHub() *Hub {
	h := &Hub{
		conns:      make(map[string]*Connection),
		rooms:      make(map[string]map[string]*Connection),
		register:   make(chan *Connection),
		unregister: make(chan *Connection),
		broadcast:  make(chan *BroadcastMessage, 256),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			h.conns[conn.SocketID] = conn
			h.mu.Unlock()
			log.Printf("connection %s registered", conn.SocketID)

		case conn := <-h.unregister:
			h.mu.Lock()
			if existing, ok := h.conns[conn.SocketID]; ok && existing == conn {
				delete(h.conns, conn.SocketID)
				if conn.GameID != "" {
					if room, ok := h.rooms[conn.GameID]; ok {
						delete(room, conn.SocketID)
						if len(room) == 0 {
							delete(h.rooms, conn.GameID)
						}
					}
				}
				close(conn.Send)
				log.Printf("connection %s unregistered", conn.SocketID)
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.deliver(msg)
		}
	}
}

func (h *Hub) deliver(msg *BroadcastMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	data, err := json.Marshal(msg.Message)
	if err != nil {
		log.Printf("encode %s event: %v", msg.Message.Type, err)
		return
	}

	send := func(conn *Connection) {
		select {
		case conn.Send <- data:
		default:
			// Drop the event if the client's buffer is full
		}
	}

	switch {
	case msg.ToSocket != "":
		if conn, ok := h.conns[msg.ToSocket]; ok {
			send(conn)
		}
	case msg.ToPlayer != "":
		if room, ok := h.rooms[msg.GameID]; ok {
			for _, conn := range room {
				if conn.PlayerID == msg.ToPlayer {
					send(conn)
				}
			}
		}
	default:
		if room, ok := h.rooms[msg.GameID]; ok {
			for _, conn := range room {
				send(conn)
			}
		}
	}
}

// Register adds a connection.
func (h *Hub) Register(conn *Connection) {
	h.register <- conn
}

// Unregister removes a connection and leaves its room.
func (h *Hub) Unregister(conn *Connection) {
	h.unregister <- conn
}

// JoinRoom binds a connection to a game room under a player identity.
func (h *Hub) JoinRoom(conn *Connection, gameID, playerID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conn.GameID != "" && conn.GameID != gameID {
		if room, ok := h.rooms[conn.GameID]; ok {
			delete(room, conn.SocketID)
		}
	}
	conn.GameID = gameID
	conn.PlayerID = playerID
	if h.rooms[gameID] == nil {
		h.rooms[gameID] = make(map[string]*Connection)
	}
	h.rooms[gameID][conn.SocketID] = conn
	log.Printf("player %s joined room %s", playerID, gameID)
}

// BroadcastToGame sends an event to every connection in the game room.
func (h *Hub) BroadcastToGame(gameID string, event EventType, payload interface{}) {
	data, _ := json.Marshal(payload)
	h.broadcast <- &BroadcastMessage{
		GameID:  gameID,
		Message: &Message{Type: event, Payload: data},
	}
}

// SendToPlayer sends an event to one player's connections in a room.
// Used for per-recipient payloads such as dealt hands.
func (h *Hub) SendToPlayer(gameID, playerID string, event EventType, payload interface{}) {
	data, _ := json.Marshal(payload)
	h.broadcast <- &BroadcastMessage{
		GameID:   gameID,
		ToPlayer: playerID,
		Message:  &Message{Type: event, Payload: data},
	}
}

// SendToConn sends an event to a single connection. Error events only
// ever go through here, never to the room.
func (h *Hub) SendToConn(conn *Connection, event EventType, payload interface{}) {
	data, _ := json.Marshal(payload)
	h.broadcast <- &BroadcastMessage{
		ToSocket: conn.SocketID,
		Message:  &Message{Type: event, Payload: data},
	}
}
