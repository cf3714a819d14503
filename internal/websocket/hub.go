// Package websocket fans refrigerator change events out to connected
// members. A connection follows exactly one refrigerator, and read access is
// checked again before every delivery, so a removed member stops receiving
// events with the next change.
package websocket

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/gitCarrot/OrchAI-sub000/internal/auth"
	"github.com/gitCarrot/OrchAI-sub000/internal/metrics"
	"github.com/gitCarrot/OrchAI-sub000/internal/models"
)

const (
	broadcastBacklog = 256
	authorizeTimeout = 2 * time.Second
	authorizeWorkers = 8
)

// Message is the frame written to clients.
type Message struct {
	Type           string      `json:"type"`
	Action         string      `json:"action,omitempty"`
	RefrigeratorID int         `json:"refrigerator_id,omitempty"`
	ActorID        string      `json:"actor_id,omitempty"`
	Data           interface{} `json:"data,omitempty"`
	Time           int64       `json:"time"`
}

// Authorizer reports whether ident may still read the refrigerator.
type Authorizer func(ctx context.Context, ident auth.Identity, refrigeratorID int) error

// Client represents a connected WebSocket client
type Client struct {
	ID             string
	Identity       auth.Identity
	RefrigeratorID int
	Hub            *Hub
	Conn           *websocket.Conn
	Send           chan Message
}

// Hub maintains the set of active clients and broadcasts messages
type Hub struct {
	// Registered clients by refrigerator ID
	clients map[int]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan Message
	done       chan struct{}

	authorize Authorizer
	metrics   *metrics.Metrics
	logger    *logrus.Logger
	mutex     sync.RWMutex
}

// NewHub creates a new WebSocket hub
func NewHub(authorize Authorizer, m *metrics.Metrics, logger *logrus.Logger) *Hub {
	return &Hub{
		clients:    make(map[int]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan Message, broadcastBacklog),
		done:       make(chan struct{}),
		authorize:  authorize,
		metrics:    m,
		logger:     logger,
	}
}

// Run starts the hub's main loop. It returns when ctx is cancelled, after
// closing every client.
func (h *Hub) Run(ctx context.Context) {
	defer h.shutdown()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.deliver(ctx, message)
		}
	}
}

// Publish queues a committed change for delivery. It never blocks the
// caller; when the backlog is full the event is dropped.
func (h *Hub) Publish(event models.Event) {
	message := Message{
		Type:           event.Type,
		Action:         event.Action,
		RefrigeratorID: event.RefrigeratorID,
		ActorID:        event.ActorID,
		Data:           event.Data,
	}

	select {
	case <-h.done:
	case h.broadcast <- message:
	default:
		h.logger.WithFields(logrus.Fields{
			"refrigerator_id": event.RefrigeratorID,
			"type":            event.Type,
		}).Warn("Dropping realtime event, backlog full")
	}
}

// ClientCount returns the number of clients following a refrigerator.
func (h *Hub) ClientCount(refrigeratorID int) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients[refrigeratorID])
}

func (h *Hub) registerClient(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if h.clients[client.RefrigeratorID] == nil {
		h.clients[client.RefrigeratorID] = make(map[*Client]bool)
	}
	h.clients[client.RefrigeratorID][client] = true
	h.metrics.WebsocketClients.Inc()

	h.logger.WithFields(logrus.Fields{
		"client_id":       client.ID,
		"user_id":         client.Identity.UserID,
		"refrigerator_id": client.RefrigeratorID,
	}).Debug("Websocket client registered")
}

func (h *Hub) unregisterClient(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if h.removeLocked(client) {
		h.logger.WithFields(logrus.Fields{
			"client_id":       client.ID,
			"refrigerator_id": client.RefrigeratorID,
		}).Debug("Websocket client unregistered")
	}
}

// removeLocked drops client and closes its send channel. Callers hold the
// write lock.
func (h *Hub) removeLocked(client *Client) bool {
	clients, ok := h.clients[client.RefrigeratorID]
	if !ok || !clients[client] {
		return false
	}
	delete(clients, client)
	if len(clients) == 0 {
		delete(h.clients, client.RefrigeratorID)
	}
	close(client.Send)
	h.metrics.WebsocketClients.Dec()
	return true
}

// deliver sends message to every client of its refrigerator that still has
// read access. Clients that lost access or fall behind are disconnected.
// Access is checked without holding the hub lock.
func (h *Hub) deliver(ctx context.Context, message Message) {
	h.mutex.RLock()
	clients := make([]*Client, 0, len(h.clients[message.RefrigeratorID]))
	for client := range h.clients[message.RefrigeratorID] {
		clients = append(clients, client)
	}
	h.mutex.RUnlock()

	allowed := make([]bool, len(clients))
	var g errgroup.Group
	g.SetLimit(authorizeWorkers)
	for i, client := range clients {
		i, client := i, client
		g.Go(func() error {
			allowed[i] = h.stillAllowed(ctx, client)
			return nil
		})
	}
	_ = g.Wait()

	h.mutex.Lock()
	defer h.mutex.Unlock()

	for i, client := range clients {
		// Unregistered while access was being checked.
		if !h.clients[client.RefrigeratorID][client] {
			continue
		}
		if !allowed[i] {
			h.removeLocked(client)
			continue
		}
		select {
		case client.Send <- message:
		default:
			h.logger.WithField("client_id", client.ID).Warn("Websocket client too slow, disconnecting")
			h.removeLocked(client)
		}
	}
}

// reply sends message to one client if it is still registered.
func (h *Hub) reply(client *Client, message Message) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	if !h.clients[client.RefrigeratorID][client] {
		return
	}
	select {
	case client.Send <- message:
	default:
	}
}

func (h *Hub) stillAllowed(ctx context.Context, client *Client) bool {
	if h.authorize == nil {
		return true
	}
	ctx, cancel := context.WithTimeout(ctx, authorizeTimeout)
	defer cancel()

	if err := h.authorize(ctx, client.Identity, client.RefrigeratorID); err != nil {
		h.logger.WithFields(logrus.Fields{
			"client_id":       client.ID,
			"user_id":         client.Identity.UserID,
			"refrigerator_id": client.RefrigeratorID,
			"error":           err.Error(),
		}).Info("Websocket client lost access")
		return false
	}
	return true
}

func (h *Hub) shutdown() {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	close(h.done)
	for _, clients := range h.clients {
		for client := range clients {
			h.removeLocked(client)
		}
	}
}

// WebSocket upgrader. Origins are checked by the CORS layer in front of the
// API, and the caller is authenticated before the upgrade.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ServeWS upgrades the request and follows refrigeratorID for ident. The
// caller must have checked read access.
func (h *Hub) ServeWS(c *gin.Context, ident auth.Identity, refrigeratorID int) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	client := &Client{
		ID:             uuid.NewString(),
		Identity:       ident,
		RefrigeratorID: refrigeratorID,
		Hub:            h,
		Conn:           conn,
		Send:           make(chan Message, 256),
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}
