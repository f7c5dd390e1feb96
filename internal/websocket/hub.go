package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"fanova-be/internal/dto"
	"fanova-be/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// clusterChannel carries job updates between API instances.
const clusterChannel = "cluster_events"

type clusterMessage struct {
	Origin       string          `json:"origin"`
	TargetUserID string          `json:"target_user_id"`
	Message      json.RawMessage `json:"message"`
}

type Hub struct {
	// Registered clients map: UserID -> List of Clients (multi-device)
	clients map[uuid.UUID][]*Client

	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex

	// Redis connection for cross-instance communication
	rdb *redis.Client

	// instanceID lets an instance skip its own cluster messages.
	instanceID string

	// stopped is closed when Run returns.
	stopped chan struct{}

	logger logger.ILogger
}

// NewHub accepts a nil redis client for single-instance deployments.
func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[uuid.UUID][]*Client),
		rdb:        rdb,
		instanceID: uuid.NewString(),
		stopped:    make(chan struct{}),
		logger:     log,
	}
}

func (h *Hub) Run(ctx context.Context) {
	defer close(h.stopped)
	if h.rdb != nil {
		go h.subscribeToRedis(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.UserID] = append(h.clients[client.UserID], client)
			h.mu.Unlock()
			h.logger.Info("WS", "Client registered", map[string]interface{}{"user_id": client.UserID.String()})

		case client := <-h.unregister:
			h.remove(client)
		}
	}
}

// join reports false once the hub has stopped.
func (h *Hub) join(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.stopped:
		return false
	}
}

func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.stopped:
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.clients[client.UserID]
	if !ok {
		return
	}
	for i, c := range clients {
		if c == client {
			h.clients[client.UserID] = append(clients[:i], clients[i+1:]...)
			close(client.Send)
			break
		}
	}
	if len(h.clients[client.UserID]) == 0 {
		delete(h.clients, client.UserID)
		h.logger.Info("WS", "Client completely unregistered", map[string]interface{}{"user_id": client.UserID.String()})
	}
}

// SendJobUpdate pushes a job transition to every connection of userId, on this instance and the others.
func (h *Hub) SendJobUpdate(userId uuid.UUID, update *dto.JobUpdateMessage) {
	data, err := json.Marshal(update)
	if err != nil {
		h.logger.Error("WS", "Failed to encode job update", map[string]interface{}{"error": err.Error()})
		return
	}

	h.deliver(userId, data)

	if h.rdb != nil {
		payload, _ := json.Marshal(clusterMessage{
			Origin:       h.instanceID,
			TargetUserID: userId.String(),
			Message:      data,
		})
		if err := h.rdb.Publish(context.Background(), clusterChannel, payload).Err(); err != nil {
			h.logger.Warn("WS", "Failed to fan out job update", map[string]interface{}{"error": err.Error()})
		}
	}
}

// ConnectedClients reports the live connections of userId on this instance.
func (h *Hub) ConnectedClients(userId uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userId])
}

func (h *Hub) deliver(userId uuid.UUID, data []byte) {
	// Sends are non-blocking, so holding the read lock keeps remove from closing a channel mid-send.
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.clients[userId] {
		select {
		case client.Send <- data:
		default:
			h.logger.Warn("WS", "Client send buffer full, dropping connection", map[string]interface{}{"user_id": userId.String()})
			go h.leave(client)
		}
	}
}

func (h *Hub) subscribeToRedis(ctx context.Context) {
	pubsub := h.rdb.Subscribe(ctx, clusterChannel)
	defer pubsub.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-pubsub.Channel():
			if !ok {
				return
			}
			var payload clusterMessage
			if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
				h.logger.Warn("WS", "Dropping malformed cluster message", map[string]interface{}{"error": err.Error()})
				continue
			}
			if payload.Origin == h.instanceID {
				continue
			}
			uid, err := uuid.Parse(payload.TargetUserID)
			if err != nil {
				continue
			}
			h.deliver(uid, payload.Message)
		}
	}
}
