package services

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/ecohabit-ai/ecohabit-backend/internal/database"
	"github.com/ecohabit-ai/ecohabit-backend/internal/models"
)

// ProfileEvent is the payload broadcast over Redis and WebSocket whenever a
// profile snapshot is committed.
type ProfileEvent struct {
	Type      string          `json:"type"` // "profile_updated"
	UserID    string          `json:"user_id"`
	Profile   *models.Profile `json:"profile,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// ProfileConn is the minimal interface our WebSocket implementation must satisfy.
type ProfileConn interface {
	WriteJSON(v interface{}) error
	Close() error
}

// serialConn wraps a connection with a write mutex. gorilla/websocket allows
// only one concurrent writer per conn, and fan-out writes from separate
// goroutines.
type serialConn struct {
	mu   sync.Mutex
	conn ProfileConn
}

func (c *serialConn) WriteJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

func (c *serialConn) Close() error { return c.conn.Close() }

// profileHub is a registry of listening connections keyed by session ID.
type profileHub struct {
	mu          sync.RWMutex
	connections map[string][]ProfileConn
}

var (
	hub          = &profileHub{connections: make(map[string][]ProfileConn)}
	redisStarted sync.Once
)

// RegisterProfileListener registers a connection interested in a session's
// profile updates. Returns the serialized connection all writes (including
// the caller's own) must go through, plus a removal handle.
func RegisterProfileListener(sessionID string, conn ProfileConn) (ProfileConn, func()) {
	wrapped := &serialConn{conn: conn}

	hub.mu.Lock()
	hub.connections[sessionID] = append(hub.connections[sessionID], wrapped)
	hub.mu.Unlock()

	var once sync.Once
	return wrapped, func() {
		once.Do(func() {
			hub.mu.Lock()
			defer hub.mu.Unlock()
			conns := hub.connections[sessionID]
			for i, c := range conns {
				if c == wrapped {
					hub.connections[sessionID] = append(conns[:i], conns[i+1:]...)
					break
				}
			}
			if len(hub.connections[sessionID]) == 0 {
				delete(hub.connections, sessionID)
			}
		})
	}
}

// FanOutProfileEvent sends an event to all local connections listening on
// the session. Best-effort: write errors are logged, not retried.
func FanOutProfileEvent(event ProfileEvent) {
	hub.mu.RLock()
	conns := append([]ProfileConn(nil), hub.connections[event.UserID]...)
	hub.mu.RUnlock()

	for _, conn := range conns {
		go func(c ProfileConn) {
			if err := c.WriteJSON(event); err != nil {
				log.Printf("error writing profile event to websocket: %v", err)
			}
		}(conn)
	}
}

// PublishProfileEvent publishes a committed snapshot to Redis so every
// instance can fan it out to its local WebSocket listeners.
func PublishProfileEvent(ctx context.Context, sess Session, snapshot models.Profile) {
	event := ProfileEvent{
		Type:      "profile_updated",
		UserID:    sess.ID,
		Profile:   &snapshot,
		Timestamp: time.Now().UTC(),
	}
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("failed to marshal profile event: %v", err)
		return
	}
	if err := database.RedisClient.Publish(ctx, "profile:user:"+sess.ID, data).Err(); err != nil {
		log.Printf("failed to publish profile event: %v", err)
	}
}

// StartProfileEventSubscriber ensures a single shared Redis listener per instance.
func StartProfileEventSubscriber(ctx context.Context) {
	redisStarted.Do(func() {
		go runProfileSubscriber(ctx)
	})
}

func runProfileSubscriber(ctx context.Context) {
	client := database.RedisClient
	if client == nil {
		log.Println("Redis client not initialized; profile event subscriber not started")
		return
	}

	backoff := time.Second

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		func() {
			pubsub := client.PSubscribe(ctx, "profile:user:*")
			defer pubsub.Close()

			log.Println("✅ Profile event subscriber started (pattern: profile:user:*)")

			for {
				msg, err := pubsub.ReceiveMessage(ctx)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					log.Printf("Redis subscriber error: %v", err)
					time.Sleep(backoff)
					backoff *= 2
					if backoff > 30*time.Second {
						backoff = 30 * time.Second
					}
					return
				}

				backoff = time.Second

				var event ProfileEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					log.Printf("failed to unmarshal profile event: %v", err)
					continue
				}

				FanOutProfileEvent(event)
			}
		}()
	}
}
