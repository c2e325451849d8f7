package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"pollgen/internal/cache"
	"pollgen/internal/model"
	"pollgen/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	codeChars   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength  = 6
	codeRetries = 10
)

// RoomService handles the room registry: one active room per host, code
// allocation, and code-based lookup for students.
type RoomService struct {
	roomRepo  repository.RoomRepo
	roomCache cache.RoomCache
	engine    *SessionEngine
	authSvc   *AuthService
	log       zerolog.Logger
}

// NewRoomService creates a new room service.
func NewRoomService(
	roomRepo repository.RoomRepo,
	roomCache cache.RoomCache,
	engine *SessionEngine,
	authSvc *AuthService,
	log zerolog.Logger,
) *RoomService {
	return &RoomService{
		roomRepo:  roomRepo,
		roomCache: roomCache,
		engine:    engine,
		authSvc:   authSvc,
		log:       log.With().Str("component", "room_service").Logger(),
	}
}

// CreateRoom creates a room for the host. A host with an active room gets
// ErrRoomConflict; the prior room is never silently replaced.
func (s *RoomService) CreateRoom(ctx context.Context, hostID, name string) (*model.Room, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: room name is required", model.ErrValidation)
	}

	// Cheap Redis read first; the SETNX claim below still guards races
	// and the repo check covers expired cache entries.
	if held, err := s.roomCache.GetHostRoom(ctx, hostID); err != nil {
		return nil, fmt.Errorf("failed to check host slot: %w", err)
	} else if held != "" {
		return nil, model.ErrRoomConflict
	}

	existing, err := s.roomRepo.GetActiveByHost(ctx, hostID)
	if err != nil {
		return nil, fmt.Errorf("failed to check active room: %w", err)
	}
	if existing != nil {
		return nil, model.ErrRoomConflict
	}

	roomID := uuid.NewString()
	code, err := s.generateCode(ctx, roomID)
	if err != nil {
		return nil, err
	}

	// The host slot is a SETNX claim too, so two concurrent creates by
	// the same host cannot both pass the check above.
	claimed, err := s.roomCache.ClaimHost(ctx, hostID, code)
	if err != nil {
		s.roomCache.ReleaseCode(ctx, code)
		return nil, fmt.Errorf("failed to claim host slot: %w", err)
	}
	if !claimed {
		s.roomCache.ReleaseCode(ctx, code)
		return nil, model.ErrRoomConflict
	}

	room := &model.Room{
		ID:        roomID,
		Code:      code,
		Name:      name,
		HostID:    hostID,
		IsActive:  true,
		CreatedAt: time.Now(),
	}
	if err := s.roomRepo.Create(ctx, room); err != nil {
		s.roomCache.ReleaseCode(ctx, code)
		s.roomCache.ReleaseHost(ctx, hostID)
		return nil, fmt.Errorf("failed to create room: %w", err)
	}

	s.engine.OpenRoom(code, hostID)

	s.log.Info().Str("room", code).Str("host", hostID).Msg("room created")
	return room, nil
}

// GetRoomByCode resolves a student-entered code. Formatting characters
// and case are normalized before lookup.
func (s *RoomService) GetRoomByCode(ctx context.Context, code string) (*model.Room, error) {
	room, err := s.roomRepo.GetByCode(ctx, model.NormalizeCode(code))
	if err != nil {
		return nil, fmt.Errorf("failed to look up room: %w", err)
	}
	if room == nil {
		return nil, model.ErrRoomNotFound
	}
	return room, nil
}

// GetActiveRoomForHost returns the host's active room, or ErrRoomNotFound.
func (s *RoomService) GetActiveRoomForHost(ctx context.Context, hostID string) (*model.Room, error) {
	room, err := s.roomRepo.GetActiveByHost(ctx, hostID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up room: %w", err)
	}
	if room == nil {
		return nil, model.ErrRoomNotFound
	}
	return room, nil
}

// JoinRoom validates a code, mints a room-scoped student identity and
// token, and ensures runtime state exists for the room.
func (s *RoomService) JoinRoom(ctx context.Context, code, name string) (*model.JoinResponse, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: display name is required", model.ErrValidation)
	}

	room, err := s.GetRoomByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	studentID := "s_" + uuid.New().String()[:8]
	token, err := s.authSvc.GenerateStudentToken(room.Code, studentID, name)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	s.engine.OpenRoom(room.Code, room.HostID)

	return &model.JoinResponse{
		StudentID: studentID,
		Token:     token,
		Room:      room,
	}, nil
}

// generateCode allocates a 6-char uppercase alphanumeric code. The Redis
// SETNX reservation makes allocation atomic under concurrent creation;
// collisions regenerate rather than fail.
func (s *RoomService) generateCode(ctx context.Context, roomID string) (string, error) {
	for attempts := 0; attempts < codeRetries; attempts++ {
		b := make([]byte, codeLength)
		if _, err := rand.Read(b); err != nil {
			return "", err
		}

		code := make([]byte, codeLength)
		for i := range code {
			code[i] = codeChars[int(b[i])%len(codeChars)]
		}
		codeStr := string(code)

		reserved, err := s.roomCache.ReserveCode(ctx, codeStr, roomID)
		if err != nil {
			return "", fmt.Errorf("failed to reserve code: %w", err)
		}
		if reserved {
			return codeStr, nil
		}
	}
	return "", fmt.Errorf("failed to generate unique room code")
}
