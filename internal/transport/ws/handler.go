package ws

import (
	"net/http"
	"time"

	"pollgen/internal/model"
	"pollgen/internal/service"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS is enforced at the REST boundary
	},
}

// Handler upgrades host and student connections into the hub.
type Handler struct {
	hub     *Hub
	gateway *Gateway
	authSvc *service.AuthService
	roomSvc *service.RoomService
	engine  *service.SessionEngine
	log     zerolog.Logger
}

// NewHandler creates a new websocket handler.
func NewHandler(
	hub *Hub,
	gateway *Gateway,
	authSvc *service.AuthService,
	roomSvc *service.RoomService,
	engine *service.SessionEngine,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		hub:     hub,
		gateway: gateway,
		authSvc: authSvc,
		roomSvc: roomSvc,
		engine:  engine,
		log:     log.With().Str("component", "ws_handler").Logger(),
	}
}

// HostWS handles GET /v1/ws/rooms/{code}/host. Attaching the host
// connection is the host-join-room action.
func (h *Handler) HostWS(w http.ResponseWriter, r *http.Request) {
	code := model.NormalizeCode(mux.Vars(r)["code"])
	token := r.URL.Query().Get("token")

	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	claims, err := h.authSvc.ValidateHostToken(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	room, err := h.roomSvc.GetRoomByCode(r.Context(), code)
	if err != nil {
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}
	if room.HostID != claims.HostID {
		http.Error(w, "not the room host", http.StatusForbidden)
		return
	}

	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	// Rebuild runtime state if the server restarted mid-session.
	h.engine.OpenRoom(room.Code, room.HostID)

	conn := &Connection{
		RoomCode: room.Code,
		HostID:   claims.HostID,
		IsHost:   true,
		Send:     make(chan []byte, 256),
		Hub:      h.hub,
	}
	h.hub.Register(conn)

	go h.writePump(wsConn, conn)
	go h.readPump(wsConn, conn)
}

// StudentWS handles GET /v1/ws/rooms/{code}/student. The room-scoped
// token from the join endpoint is the student-join-room acknowledgment.
func (h *Handler) StudentWS(w http.ResponseWriter, r *http.Request) {
	code := model.NormalizeCode(mux.Vars(r)["code"])
	token := r.URL.Query().Get("token")

	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	claims, err := h.authSvc.ValidateStudentToken(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}
	if claims.RoomCode != code {
		http.Error(w, "token not valid for this room", http.StatusForbidden)
		return
	}

	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	conn := &Connection{
		RoomCode:  code,
		StudentID: claims.StudentID,
		Name:      claims.Name,
		Avatar:    r.URL.Query().Get("avatar"),
		IsHost:    false,
		Send:      make(chan []byte, 256),
		Hub:       h.hub,
	}
	h.hub.Register(conn)

	go h.writePump(wsConn, conn)
	go h.readPump(wsConn, conn)
}

func (h *Handler) readPump(wsConn *websocket.Conn, conn *Connection) {
	defer func() {
		h.hub.Unregister(conn)
		wsConn.Close()
	}()

	wsConn.SetReadLimit(maxMessageSize)
	wsConn.SetReadDeadline(time.Now().Add(pongWait))
	wsConn.SetPongHandler(func(string) error {
		wsConn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := wsConn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.Debug().Err(err).Str("room", conn.RoomCode).Msg("websocket read error")
			}
			break
		}
		h.gateway.Handle(conn, data)
	}
}

func (h *Handler) writePump(wsConn *websocket.Conn, conn *Connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		wsConn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				wsConn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := wsConn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := wsConn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
