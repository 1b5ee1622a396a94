package stream

import (
	"context"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/tetebueno/dawarich/internal/logging"
	"github.com/tetebueno/dawarich/internal/metrics"
)

const (
	channelPrefix = "points:"
	channelSuffix = ":broadcast"
)

// Hub fans new points out to a user's live map connections. With Redis the
// fan-out goes through pub/sub so every instance sees every point.
type Hub struct {
	redis   *redis.Client
	clients map[string]map[*Client]struct{}
	mu      sync.RWMutex
	cancel  context.CancelFunc
}

type Client struct {
	UserID string
	Send   chan []byte
}

func NewHub(redisClient *redis.Client) *Hub {
	h := &Hub{
		redis:   redisClient,
		clients: map[string]map[*Client]struct{}{},
	}

	if redisClient != nil {
		ctx, cancel := context.WithCancel(context.Background())
		h.cancel = cancel
		pubsub := redisClient.PSubscribe(ctx, channelPrefix+"*"+channelSuffix)
		go h.subscribeRedis(ctx, pubsub)
	}
	return h
}

func (h *Hub) Register(userID string) *Client {
	client := &Client{
		UserID: userID,
		Send:   make(chan []byte, 64),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[userID] == nil {
		h.clients[userID] = map[*Client]struct{}{}
	}
	h.clients[userID][client] = struct{}{}
	metrics.StreamClients.Inc()
	return client
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	userClients, ok := h.clients[client.UserID]
	if !ok {
		return
	}
	if _, ok := userClients[client]; !ok {
		return
	}
	delete(userClients, client)
	if len(userClients) == 0 {
		delete(h.clients, client.UserID)
	}
	metrics.StreamClients.Dec()
	close(client.Send)
}

// ClientCount reports how many connections a user currently has.
func (h *Hub) ClientCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

func (h *Hub) Broadcast(userID string, payload []byte) {
	if h.redis == nil {
		h.deliver(userID, payload)
		return
	}

	err := h.redis.Publish(context.Background(), redisChannel(userID), payload).Err()
	if err != nil {
		logging.Warn().Err(err).Str("user_id", userID).Msg("redis publish failed, delivering locally")
		h.deliver(userID, payload)
	}
}

// Close stops the Redis subscription.
func (h *Hub) Close() {
	if h.cancel != nil {
		h.cancel()
	}
}

func (h *Hub) deliver(userID string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients[userID] {
		select {
		case client.Send <- payload:
		default:
		}
	}
}

func (h *Hub) subscribeRedis(ctx context.Context, pubsub *redis.PubSub) {
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			userID := userIDFromChannel(msg.Channel)
			if userID == "" {
				continue
			}
			h.deliver(userID, []byte(msg.Payload))
		}
	}
}

func redisChannel(userID string) string {
	return channelPrefix + userID + channelSuffix
}

// userIDFromChannel parses points:{user}:broadcast.
func userIDFromChannel(ch string) string {
	if len(ch) <= len(channelPrefix)+len(channelSuffix) ||
		!strings.HasPrefix(ch, channelPrefix) || !strings.HasSuffix(ch, channelSuffix) {
		return ""
	}
	return ch[len(channelPrefix) : len(ch)-len(channelSuffix)]
}
