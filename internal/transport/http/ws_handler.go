package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"quizroom-service/internal/app"
	"quizroom-service/internal/domain"
)

// WSHandler upgrades HTTP requests to websockets and dispatches the quiz
// room protocol to the room service.
type WSHandler struct {
	service  *app.RoomService
	hub      *Hub
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.RoomService, hub *Hub, log zerolog.Logger) *WSHandler {
	return &WSHandler{
		service: service,
		hub:     hub,
		log:     log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type hostRoomPayload struct {
	Name string `json:"name"`
}

type joinRoomPayload struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type startGamePayload struct {
	Code string `json:"code"`
}

type submitAnswerPayload struct {
	RoomCode      string  `json:"roomCode"`
	Answer        *string `json:"answer"` // null means the client timed out
	TimeRemaining int     `json:"timeRemaining"`
}

// ServeWS runs the read loop for one connection. Each connection gets an
// opaque id at upgrade time; that id is the player identity for the rest of
// the session. A closed socket is the leave signal.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("ws upgrade failed")
		return
	}
	defer conn.Close()

	connID := h.hub.Register(conn)
	defer func() {
		h.service.Disconnect(connID)
		h.hub.Unregister(connID)
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			return
		}
		switch inbound.Type {
		case "hostRoom":
			var payload hostRoomPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil || strings.TrimSpace(payload.Name) == "" {
				h.sendError(connID, "name required")
				continue
			}
			h.service.HostRoom(r.Context(), connID, strings.TrimSpace(payload.Name))
		case "joinRoom":
			var payload joinRoomPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil || strings.TrimSpace(payload.Name) == "" {
				h.sendError(connID, "name required")
				continue
			}
			h.service.JoinRoom(connID, payload.Code, strings.TrimSpace(payload.Name))
		case "startGame":
			var payload startGamePayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				h.sendError(connID, "invalid payload")
				continue
			}
			h.service.StartGame(connID, payload.Code)
		case "submitAnswer":
			var payload submitAnswerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				h.sendError(connID, "invalid payload")
				continue
			}
			h.service.SubmitAnswer(connID, payload.RoomCode, payload.Answer, payload.TimeRemaining)
		default:
			h.sendError(connID, "unsupported message type")
		}
	}
}

func (h *WSHandler) sendError(connID, reason string) {
	h.hub.Unicast(connID, domain.Event{
		Type:    domain.EventRoomError,
		Payload: domain.RoomErrorPayload{Reason: reason},
	})
}
