package ws

import (
	"encoding/json"
	"sort"
	"sync"

	"pollgen/internal/model"

	"github.com/rs/zerolog"
)

// MessageType is the discriminant of the tagged message envelope.
type MessageType string

// Server -> client events.
const (
	MsgPollStarted      MessageType = "poll-started"
	MsgPollEnded        MessageType = "poll-ended"
	MsgVoteResult       MessageType = "vote-result"
	MsgParticipants     MessageType = "participant-list-updated"
	MsgSessionEnded     MessageType = "session-ended"
	MsgSessionEndedHost MessageType = "session-ended-host"
	MsgError            MessageType = "error"
)

// Client -> server events.
const (
	MsgHostLaunchPoll MessageType = "host-launch-poll"
	MsgHostEndPoll    MessageType = "host-end-poll"
	MsgHostEndSession MessageType = "host-end-session"
	MsgStudentVote    MessageType = "student-submit-vote"
)

// Message is the envelope format: one fixed discriminant, one payload
// shape per variant.
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Hub manages the websocket connections of live rooms: one host
// connection and any number of student connections per room code.
type Hub struct {
	hostConns    map[string]*Connection
	studentConns map[string]map[string]*Connection // roomCode -> studentID -> conn

	mu sync.RWMutex

	register   chan *Connection
	unregister chan *Connection
	broadcast  chan *BroadcastMessage

	log zerolog.Logger
}

// Connection represents one websocket client attached to a room.
type Connection struct {
	RoomCode  string
	HostID    string // set for host connections
	StudentID string // set for student connections
	Name      string
	Avatar    string
	IsHost    bool
	Send      chan []byte
	Hub       *Hub
}

// BroadcastMessage routes a message to a room, its host, one student, or
// all students.
type BroadcastMessage struct {
	RoomCode  string
	ToHost    bool
	ToStudent string
	ToRoom    bool // host and all students
	Message   *Message
}

// NewHub creates a hub and starts its dispatch loop.
func NewHub(log zerolog.Logger) *Hub {
	h := &Hub{
		hostConns:    make(map[string]*Connection),
		studentConns: make(map[string]map[string]*Connection),
		register:     make(chan *Connection),
		unregister:   make(chan *Connection),
		broadcast:    make(chan *BroadcastMessage, 256),
		log:          log.With().Str("component", "ws_hub").Logger(),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			if conn.IsHost {
				h.hostConns[conn.RoomCode] = conn
				h.log.Debug().Str("room", conn.RoomCode).Str("host", conn.HostID).Msg("host connected")
			} else {
				if h.studentConns[conn.RoomCode] == nil {
					h.studentConns[conn.RoomCode] = make(map[string]*Connection)
				}
				h.studentConns[conn.RoomCode][conn.StudentID] = conn
				h.log.Debug().Str("room", conn.RoomCode).Str("student", conn.StudentID).Msg("student connected")
			}
			h.broadcastRosterLocked(conn.RoomCode)
			h.mu.Unlock()

		case conn := <-h.unregister:
			h.mu.Lock()
			if conn.IsHost {
				if existing, ok := h.hostConns[conn.RoomCode]; ok && existing == conn {
					delete(h.hostConns, conn.RoomCode)
					close(conn.Send)
				}
			} else {
				if students, ok := h.studentConns[conn.RoomCode]; ok {
					if existing, ok := students[conn.StudentID]; ok && existing == conn {
						delete(students, conn.StudentID)
						close(conn.Send)
						h.broadcastRosterLocked(conn.RoomCode)
					}
				}
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.RLock()
			data, _ := json.Marshal(msg.Message)

			switch {
			case msg.ToRoom:
				if conn, ok := h.hostConns[msg.RoomCode]; ok {
					conn.trySend(data)
				}
				for _, conn := range h.studentConns[msg.RoomCode] {
					conn.trySend(data)
				}
			case msg.ToHost:
				if conn, ok := h.hostConns[msg.RoomCode]; ok {
					conn.trySend(data)
				}
			case msg.ToStudent != "":
				if students, ok := h.studentConns[msg.RoomCode]; ok {
					if conn, ok := students[msg.ToStudent]; ok {
						conn.trySend(data)
					}
				}
			default:
				for _, conn := range h.studentConns[msg.RoomCode] {
					conn.trySend(data)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// trySend drops the message if the connection's buffer is full rather
// than stalling the dispatch loop.
func (c *Connection) trySend(data []byte) {
	select {
	case c.Send <- data:
	default:
	}
}

// Register adds a connection.
func (h *Hub) Register(conn *Connection) {
	h.register <- conn
}

// Unregister removes a connection.
func (h *Hub) Unregister(conn *Connection) {
	h.unregister <- conn
}

// broadcastRosterLocked pushes a membership refresh to everyone in the
// room. Caller holds h.mu.
func (h *Hub) broadcastRosterLocked(roomCode string) {
	roster := h.participantsLocked(roomCode)
	payload, _ := json.Marshal(model.ParticipantListEvent{
		Participants: roster,
		Total:        len(roster),
	})
	data, _ := json.Marshal(&Message{Type: MsgParticipants, Payload: payload})

	if conn, ok := h.hostConns[roomCode]; ok {
		conn.trySend(data)
	}
	for _, conn := range h.studentConns[roomCode] {
		conn.trySend(data)
	}
}

// RefreshRoom re-broadcasts the participant list, used after scoring so
// shared counters update without leaking any student's answer.
func (h *Hub) RefreshRoom(roomCode string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	h.broadcastRosterLocked(roomCode)
}

func (h *Hub) participantsLocked(roomCode string) []model.Participant {
	students := h.studentConns[roomCode]
	roster := make([]model.Participant, 0, len(students))
	for _, conn := range students {
		roster = append(roster, model.Participant{
			ID:     conn.StudentID,
			Name:   conn.Name,
			Avatar: conn.Avatar,
		})
	}
	sort.Slice(roster, func(i, j int) bool { return roster[i].Name < roster[j].Name })
	return roster
}

// Participants implements service.Broadcaster.
func (h *Hub) Participants(roomCode string) []model.Participant {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.participantsLocked(roomCode)
}

// BroadcastToHost implements service.Broadcaster.
func (h *Hub) BroadcastToHost(roomCode string, msgType string, payload interface{}) {
	h.enqueue(&BroadcastMessage{RoomCode: roomCode, ToHost: true, Message: envelope(msgType, payload)})
}

// BroadcastToStudent implements service.Broadcaster.
func (h *Hub) BroadcastToStudent(roomCode, studentID string, msgType string, payload interface{}) {
	h.enqueue(&BroadcastMessage{RoomCode: roomCode, ToStudent: studentID, Message: envelope(msgType, payload)})
}

// BroadcastToAllStudents implements service.Broadcaster.
func (h *Hub) BroadcastToAllStudents(roomCode string, msgType string, payload interface{}) {
	h.enqueue(&BroadcastMessage{RoomCode: roomCode, Message: envelope(msgType, payload)})
}

// BroadcastToRoom implements service.Broadcaster.
func (h *Hub) BroadcastToRoom(roomCode string, msgType string, payload interface{}) {
	h.enqueue(&BroadcastMessage{RoomCode: roomCode, ToRoom: true, Message: envelope(msgType, payload)})
}

func (h *Hub) enqueue(msg *BroadcastMessage) {
	select {
	case h.broadcast <- msg:
	default:
		h.log.Warn().Str("room", msg.RoomCode).Msg("broadcast queue full, message dropped")
	}
}

func envelope(msgType string, payload interface{}) *Message {
	data, _ := json.Marshal(payload)
	return &Message{Type: MessageType(msgType), Payload: data}
}
