package service

import "pollgen/internal/model"

// Broadcaster is the realtime gateway seen from the services (avoids an
// import cycle with the ws package). Implementations must not block.
type Broadcaster interface {
	BroadcastToHost(roomCode string, msgType string, payload interface{})
	BroadcastToStudent(roomCode, studentID string, msgType string, payload interface{})
	BroadcastToAllStudents(roomCode string, msgType string, payload interface{})
	BroadcastToRoom(roomCode string, msgType string, payload interface{})
	Participants(roomCode string) []model.Participant
}
