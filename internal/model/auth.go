package model

import "github.com/golang-jwt/jwt/v5"

// HostClaims are the JWT claims for a host session.
type HostClaims struct {
	HostID string `json:"hostId"`
	jwt.RegisteredClaims
}

// StudentClaims are the JWT claims for a room-scoped student token.
type StudentClaims struct {
	RoomCode  string `json:"roomCode"`
	StudentID string `json:"studentId"`
	Name      string `json:"name"`
	jwt.RegisteredClaims
}

// LoginResponse is returned from a successful host login.
type LoginResponse struct {
	Token  string `json:"token"`
	HostID string `json:"hostId"`
}

// JoinResponse is returned when a student joins a room by code.
type JoinResponse struct {
	StudentID string `json:"studentId"`
	Token     string `json:"token"`
	Room      *Room  `json:"room"`
}
