package services

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// WSClient represents a connected WebSocket client
type WSClient struct {
	ID         string
	DeviceID   string // Set after the client identifies itself
	Topics     map[string]bool
	Conn       *websocket.Conn
	Send       chan []byte
	hub        *WebSocketHub
	mu         sync.Mutex
	closedOnce sync.Once
}

// WebSocketHub fans sync activity out to connected clients
type WebSocketHub struct {
	log         zerolog.Logger
	clients     map[*WSClient]bool
	topics      map[string]map[*WSClient]bool // topic -> clients
	deviceConns map[string]map[*WSClient]bool // deviceID -> clients
	register    chan *WSClient
	unregister  chan *WSClient
	broadcast   chan *broadcastMsg
	stop        chan struct{}
	stopOnce    sync.Once
	mu          sync.RWMutex
}

type broadcastMsg struct {
	topic    string
	deviceID string // if set, only send to this device's connections
	message  []byte
}

// NewWebSocketHub creates a new WebSocket hub
func NewWebSocketHub(log zerolog.Logger) *WebSocketHub {
	return &WebSocketHub{
		log:         log.With().Str("component", "websocket_hub").Logger(),
		clients:     make(map[*WSClient]bool),
		topics:      make(map[string]map[*WSClient]bool),
		deviceConns: make(map[string]map[*WSClient]bool),
		register:    make(chan *WSClient),
		unregister:  make(chan *WSClient),
		broadcast:   make(chan *broadcastMsg, 256),
		stop:        make(chan struct{}),
	}
}

// Run starts the hub's main loop
func (h *WebSocketHub) Run() {
	for {
		select {
		case <-h.stop:
			h.mu.Lock()
			for client := range h.clients {
				close(client.Send)
			}
			h.clients = make(map[*WSClient]bool)
			h.topics = make(map[string]map[*WSClient]bool)
			h.deviceConns = make(map[string]map[*WSClient]bool)
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.log.Debug().Str("client", client.ID).Msg("websocket client connected")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				for topic := range client.Topics {
					if topicClients, ok := h.topics[topic]; ok {
						delete(topicClients, client)
						if len(topicClients) == 0 {
							delete(h.topics, topic)
						}
					}
				}
				if client.DeviceID != "" {
					if deviceClients, ok := h.deviceConns[client.DeviceID]; ok {
						delete(deviceClients, client)
						if len(deviceClients) == 0 {
							delete(h.deviceConns, client.DeviceID)
						}
					}
				}
				close(client.Send)
			}
			h.mu.Unlock()
			h.log.Debug().Str("client", client.ID).Msg("websocket client disconnected")

		case msg := <-h.broadcast:
			h.mu.RLock()
			var targets map[*WSClient]bool

			if msg.deviceID != "" {
				targets = h.deviceConns[msg.deviceID]
			} else if msg.topic != "" {
				targets = h.topics[msg.topic]
			} else {
				targets = h.clients
			}

			for client := range targets {
				select {
				case client.Send <- msg.message:
				default:
					// Client buffer full, drop the connection
					go func(c *WSClient) {
						h.unregister <- c
					}(client)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Stop shuts the hub loop down and closes every client send channel.
func (h *WebSocketHub) Stop() {
	h.stopOnce.Do(func() {
		close(h.stop)
	})
}

// Register adds a client to the hub
func (h *WebSocketHub) Register(client *WSClient) {
	h.register <- client
}

// Unregister removes a client from the hub
func (h *WebSocketHub) Unregister(client *WSClient) {
	h.unregister <- client
}

// Subscribe adds a client to a topic
func (h *WebSocketHub) Subscribe(client *WSClient, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client.Topics[topic] = true
	if h.topics[topic] == nil {
		h.topics[topic] = make(map[*WSClient]bool)
	}
	h.topics[topic][client] = true
	h.log.Debug().Str("client", client.ID).Str("topic", topic).Msg("subscribed")
}

// Unsubscribe removes a client from a topic
func (h *WebSocketHub) Unsubscribe(client *WSClient, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(client.Topics, topic)
	if topicClients, ok := h.topics[topic]; ok {
		delete(topicClients, client)
		if len(topicClients) == 0 {
			delete(h.topics, topic)
		}
	}
}

// SetDeviceID associates a client with the device it speaks for
func (h *WebSocketHub) SetDeviceID(client *WSClient, deviceID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if client.DeviceID != "" && client.DeviceID != deviceID {
		if deviceClients, ok := h.deviceConns[client.DeviceID]; ok {
			delete(deviceClients, client)
			if len(deviceClients) == 0 {
				delete(h.deviceConns, client.DeviceID)
			}
		}
	}

	client.DeviceID = deviceID
	if h.deviceConns[deviceID] == nil {
		h.deviceConns[deviceID] = make(map[*WSClient]bool)
	}
	h.deviceConns[deviceID][client] = true
}

// enqueue hands a message to the hub loop without ever blocking the
// caller. Events are droppable; sync operations are not allowed to wait on
// slow websocket consumers.
func (h *WebSocketHub) enqueue(msg *broadcastMsg) {
	select {
	case h.broadcast <- msg:
	default:
		h.log.Warn().Str("topic", msg.topic).Msg("websocket broadcast buffer full, dropping event")
	}
}

// BroadcastToTopic sends a message to all clients subscribed to a topic
func (h *WebSocketHub) BroadcastToTopic(topic string, msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Error().Err(err).Msg("marshal websocket message")
		return
	}

	h.enqueue(&broadcastMsg{
		topic:   topic,
		message: data,
	})
}

// SendToDevice sends a message to all connections of a specific device
func (h *WebSocketHub) SendToDevice(deviceID string, msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Error().Err(err).Msg("marshal websocket message")
		return
	}

	h.enqueue(&broadcastMsg{
		deviceID: deviceID,
		message:  data,
	})
}

// BroadcastAll sends a message to all connected clients
func (h *WebSocketHub) BroadcastAll(msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Error().Err(err).Msg("marshal websocket message")
		return
	}

	h.enqueue(&broadcastMsg{
		message: data,
	})
}

// GetClientCount returns the number of connected clients
func (h *WebSocketHub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// GetTopicSubscriberCount returns the number of subscribers for a topic
func (h *WebSocketHub) GetTopicSubscriberCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if clients, ok := h.topics[topic]; ok {
		return len(clients)
	}
	return 0
}

// NewClient creates a new WebSocket client connected to this hub
func (h *WebSocketHub) NewClient(id string, conn *websocket.Conn) *WSClient {
	return &WSClient{
		ID:     id,
		Topics: make(map[string]bool),
		Conn:   conn,
		Send:   make(chan []byte, 256),
		hub:    h,
	}
}

// WSClient methods

// Close closes the client connection
func (c *WSClient) Close() {
	c.closedOnce.Do(func() {
		c.hub.Unregister(c)
		c.Conn.Close()
	})
}

// WritePump pumps messages from the hub to the websocket connection
func (c *WSClient) WritePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			c.mu.Lock()
			err := c.Conn.WriteMessage(websocket.TextMessage, message)
			c.mu.Unlock()

			if err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ReadPump pumps messages from the websocket connection to the hub
func (c *WSClient) ReadPump(onMessage func(client *WSClient, messageType int, data []byte)) {
	defer c.Close()

	c.Conn.SetReadLimit(64 * 1024)
	c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		messageType, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Debug().Err(err).Str("client", c.ID).Msg("websocket read error")
			}
			break
		}

		if onMessage != nil {
			onMessage(c, messageType, message)
		}
	}
}

// Common message types
const (
	WSTypeActivity        = "activity"
	WSTypeRecordsIngested = "records_ingested"
	WSTypeSessionUpdate   = "session_update"
	WSTypeError           = "error"
	WSTypeIdentify        = "identify"
	WSTypeSubscribe       = "subscribe"
	WSTypeUnsubscribe     = "unsubscribe"
	WSTypePing            = "ping"
	WSTypePong            = "pong"
)

// Common topics
const (
	TopicActivity   = "activity"
	TopicSessions   = "sessions"
	TopicDeviceData = "device_data" // prefix with device ID: device_data:{deviceID}
)

// ActivityPayload is fanned out on every sync operation
type ActivityPayload struct {
	Action      string `json:"action"`
	DeviceID    string `json:"deviceId"`
	DataType    string `json:"dataType,omitempty"`
	RecordCount int    `json:"recordCount"`
	At          int64  `json:"at"`
}
