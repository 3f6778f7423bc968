package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/vitalsync/server/internal/services"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Devices connect from app webviews and local tooling; origin
		// checking is left to the deployment's reverse proxy.
		return true
	},
}

// identifyPayload is sent by a device to claim its identity on a socket.
type identifyPayload struct {
	DeviceID string `json:"deviceId"`
}

// topicPayload carries a topic for subscribe/unsubscribe messages.
type topicPayload struct {
	Topic string `json:"topic"`
}

// WebSocketHandler handles WebSocket connections
type WebSocketHandler struct {
	log      zerolog.Logger
	hub      *services.WebSocketHub
	presence *services.PresenceRegistry
}

// NewWebSocketHandler creates a new WebSocketHandler
func NewWebSocketHandler(log zerolog.Logger, hub *services.WebSocketHub, presence *services.PresenceRegistry) *WebSocketHandler {
	return &WebSocketHandler{
		log:      log.With().Str("component", "websocket_handler").Logger(),
		hub:      hub,
		presence: presence,
	}
}

// HandleConnection upgrades HTTP to WebSocket and manages the connection
func (h *WebSocketHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	clientID := uuid.New().String()
	client := h.hub.NewClient(clientID, conn)

	// A device may pre-identify through the query string instead of an
	// identify message.
	if deviceID := r.URL.Query().Get("deviceId"); deviceID != "" {
		h.identify(client, deviceID)
	}

	h.hub.Register(client)

	// Start the write pump in a goroutine
	go client.WritePump()

	// Run the read pump (blocks until connection closes)
	client.ReadPump(h.handleMessage)
}

// handleMessage processes incoming WebSocket messages
func (h *WebSocketHandler) handleMessage(client *services.WSClient, messageType int, data []byte) {
	if messageType != websocket.TextMessage {
		return
	}

	var msg services.WSMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		h.log.Debug().Err(err).Msg("Invalid WebSocket message")
		return
	}

	switch msg.Type {
	case services.WSTypeIdentify:
		if deviceID := h.payloadDeviceID(msg.Payload); deviceID != "" {
			h.identify(client, deviceID)
		}

	case services.WSTypeSubscribe:
		if topic := h.payloadTopic(msg.Payload); topic != "" {
			h.hub.Subscribe(client, topic)
		}

	case services.WSTypeUnsubscribe:
		if topic := h.payloadTopic(msg.Payload); topic != "" {
			h.hub.Unsubscribe(client, topic)
		}

	case services.WSTypePing:
		response := services.WSMessage{
			Type:    services.WSTypePong,
			Payload: nil,
		}
		if data, err := json.Marshal(response); err == nil {
			select {
			case client.Send <- data:
			default:
			}
		}

	default:
		h.log.Debug().Str("type", msg.Type).Msg("Unknown WebSocket message type")
	}
}

// identify binds a socket to a device and refreshes its presence. The
// socket is also subscribed to the device's own data topic.
func (h *WebSocketHandler) identify(client *services.WSClient, deviceID string) {
	h.hub.SetDeviceID(client, deviceID)
	h.presence.MarkSeen(deviceID)
	h.hub.Subscribe(client, services.TopicDeviceData+":"+deviceID)
}

func (h *WebSocketHandler) payloadDeviceID(payload interface{}) string {
	raw, err := json.Marshal(payload)
	if err != nil {
		return ""
	}
	var p identifyPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return ""
	}
	return p.DeviceID
}

func (h *WebSocketHandler) payloadTopic(payload interface{}) string {
	if topic, ok := payload.(string); ok {
		return topic
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return ""
	}
	var p topicPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return ""
	}
	return p.Topic
}

// GetHub returns the WebSocket hub (for other services to send notifications)
func (h *WebSocketHandler) GetHub() *services.WebSocketHub {
	return h.hub
}
