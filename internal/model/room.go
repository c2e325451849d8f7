package model

import (
	"strings"
	"time"
)

// Room is a host-owned live session container. A host owns at most one
// active room at a time; students join by code.
type Room struct {
	ID        string    `json:"id" bson:"_id,omitempty"`
	Code      string    `json:"code" bson:"code"`
	Name      string    `json:"name" bson:"name"`
	HostID    string    `json:"hostId" bson:"hostId"`
	IsActive  bool      `json:"isActive" bson:"isActive"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

// Participant is a student currently connected to a room. Membership is
// derived from the gateway's connection registry; it is not persisted.
type Participant struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
	Email  string `json:"email,omitempty"`
}

// NormalizeCode strips formatting characters and uppercases a user-entered
// room code so "abc-123" and "ABC123" resolve to the same room.
func NormalizeCode(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	return strings.Map(func(r rune) rune {
		if r == '-' || r == ' ' {
			return -1
		}
		return r
	}, code)
}

// FormatCode renders a code for display with a hyphen after the third
// character: ABC123 -> ABC-123.
func FormatCode(code string) string {
	code = NormalizeCode(code)
	if len(code) <= 3 {
		return code
	}
	return code[:3] + "-" + code[3:]
}
