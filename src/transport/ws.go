package transport

import (
	"chat/src/command"
	"chat/src/domain/event"
	"chat/src/domain/scope"
	"chat/src/presence"
	"chat/src/subscription"
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8192
	sendBufferSize = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub wires every live websocket connection into the Subscription Registry
// (C9) and the Presence Store (C4), and every inbound submit frame into
// the Command Processor (C7).
type Hub struct {
	registry      *subscription.Registry
	presence      *presence.Service
	processor     *command.Processor
	authenticator Authenticator
	replicaId     string
	logger        zerolog.Logger
}

func NewHub(registry *subscription.Registry, presenceService *presence.Service, processor *command.Processor, authenticator Authenticator, replicaId string, logger zerolog.Logger) *Hub {
	return &Hub{
		registry:      registry,
		presence:      presenceService,
		processor:     processor,
		authenticator: authenticator,
		replicaId:     replicaId,
		logger:        logger,
	}
}

// connection implements subscription.Sink: events for a joined scope are
// delivered by a non-blocking send into this connection's outbound queue.
type connection struct {
	id     string
	conn   *websocket.Conn
	send   chan []byte
	ctx    context.Context
	cancel context.CancelFunc

	mu           sync.Mutex
	joinedScopes map[string]struct{}
}

func (c *connection) ConnectionId() string { return c.id }

func (c *connection) Deliver(evt event.ChatEvent) bool {
	body, err := json.Marshal(serverMessage{Type: "message", Event: &evt})
	if err != nil {
		return false
	}
	select {
	case c.send <- body:
		return true
	default:
		return false
	}
}

func (c *connection) trackJoin(scopeId string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.joinedScopes[scopeId] = struct{}{}
}

func (c *connection) trackLeave(scopeId string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.joinedScopes, scopeId)
}

func (c *connection) allScopes() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	scopes := make([]string, 0, len(c.joinedScopes))
	for s := range c.joinedScopes {
		scopes = append(scopes, s)
	}
	return scopes
}

// clientMessage is the subscription control frame accepted from the
// client per §6: joinScope/leaveScope are idempotent, send carries a chat
// submission.
type clientMessage struct {
	Action    string `json:"action"`
	ScopeType int    `json:"scopeType"`
	ScopeId   string `json:"scopeId"`
	Text      string `json:"text"`
}

// serverMessage is the single outbound frame shape: either a delivered
// ChatEvent (ReceiveMessage) or a plain error string (ReceiveError).
type serverMessage struct {
	Type  string           `json:"type"`
	Event *event.ChatEvent `json:"event,omitempty"`
	Error string           `json:"error,omitempty"`
}

func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	senderId, err := h.authenticator.Authenticate(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("transport.ws: upgrade failed")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &connection{
		id:           uuid.NewString(),
		conn:         conn,
		send:         make(chan []byte, sendBufferSize),
		ctx:          ctx,
		cancel:       cancel,
		joinedScopes: make(map[string]struct{}),
	}

	h.presence.SetOnline(r.Context(), senderId, c.id, h.replicaId)

	go h.writePump(c)
	h.readPump(c, senderId)
}

func (h *Hub) readPump(c *connection, senderId string) {
	defer h.disconnect(c, senderId)

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			h.sendError(c, "malformed message")
			continue
		}

		h.handleClientMessage(c, senderId, msg)
	}
}

func (h *Hub) handleClientMessage(c *connection, senderId string, msg clientMessage) {
	switch msg.Action {
	case "joinScope":
		h.registry.Subscribe(msg.ScopeId, c)
		c.trackJoin(msg.ScopeId)
	case "leaveScope":
		h.registry.Unsubscribe(msg.ScopeId, c.id)
		c.trackLeave(msg.ScopeId)
	case "send":
		h.submit(c, senderId, msg)
	default:
		h.sendError(c, "unknown action: "+msg.Action)
	}
}

func (h *Hub) submit(c *connection, senderId string, msg clientMessage) {
	_, err := h.processor.Submit(c.ctx, command.Request{
		ScopeType: scope.Type(msg.ScopeType),
		ScopeId:   msg.ScopeId,
		SenderId:  senderId,
		Text:      msg.Text,
	})
	if err != nil {
		h.sendError(c, err.Error())
	}
}

func (h *Hub) sendError(c *connection, message string) {
	body, err := json.Marshal(serverMessage{Type: "error", Error: message})
	if err != nil {
		return
	}
	select {
	case c.send <- body:
	default:
	}
}

func (h *Hub) writePump(c *connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case body, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, body); err != nil {
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

func (h *Hub) disconnect(c *connection, senderId string) {
	c.cancel()
	h.registry.DropConnection(c.id, c.allScopes())
	h.presence.SetOffline(context.Background(), senderId, c.id)
	close(c.send)
}
