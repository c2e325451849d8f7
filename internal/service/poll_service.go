package service

import (
	"context"
	"fmt"
	"time"

	"pollgen/internal/model"
	"pollgen/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// PollService handles poll definitions scoped to a host's room.
type PollService struct {
	pollRepo repository.PollRepo
	roomRepo repository.RoomRepo
	engine   *SessionEngine
	log      zerolog.Logger
}

// NewPollService creates a new poll service.
func NewPollService(
	pollRepo repository.PollRepo,
	roomRepo repository.RoomRepo,
	engine *SessionEngine,
	log zerolog.Logger,
) *PollService {
	return &PollService{
		pollRepo: pollRepo,
		roomRepo: roomRepo,
		engine:   engine,
		log:      log.With().Str("component", "poll_service").Logger(),
	}
}

// CreatePollInput is the host-supplied poll definition.
type CreatePollInput struct {
	Type          model.PollType `json:"type"`
	Title         string         `json:"title"`
	Options       []string       `json:"options"`
	CorrectAnswer string         `json:"correctAnswer"`
	TimerSeconds  int            `json:"timerSeconds"`
}

// CreatePoll validates and stores a poll for the host's active room.
// Graded types need at least two distinct options and a correct answer
// matching one option exactly; ungraded types get the N/A sentinel.
func (s *PollService) CreatePoll(ctx context.Context, hostID, code string, in CreatePollInput) (*model.Poll, error) {
	room, err := s.hostRoom(ctx, hostID, code)
	if err != nil {
		return nil, err
	}

	if !in.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown poll type %q", model.ErrValidation, in.Type)
	}
	if in.Title == "" {
		return nil, fmt.Errorf("%w: poll title is required", model.ErrValidation)
	}
	if in.TimerSeconds < 0 {
		return nil, fmt.Errorf("%w: timer duration cannot be negative", model.ErrValidation)
	}

	if in.Type.Graded() {
		if len(in.Options) < 2 {
			return nil, fmt.Errorf("%w: graded polls need at least 2 options", model.ErrValidation)
		}
		seen := make(map[string]bool, len(in.Options))
		for _, opt := range in.Options {
			if opt == "" {
				return nil, fmt.Errorf("%w: options cannot be empty", model.ErrValidation)
			}
			if seen[opt] {
				return nil, fmt.Errorf("%w: duplicate option %q", model.ErrValidation, opt)
			}
			seen[opt] = true
		}
		// Case-sensitive match keeps grading unambiguous.
		if !seen[in.CorrectAnswer] {
			return nil, fmt.Errorf("%w: correct answer must exactly match one option", model.ErrValidation)
		}
	} else {
		in.CorrectAnswer = model.UngradedAnswer
	}

	poll := &model.Poll{
		ID:            uuid.NewString(),
		RoomID:        room.ID,
		Type:          in.Type,
		Title:         in.Title,
		Options:       in.Options,
		CorrectAnswer: in.CorrectAnswer,
		TimerSeconds:  in.TimerSeconds,
		CreatedAt:     time.Now(),
	}
	if err := s.pollRepo.Create(ctx, poll); err != nil {
		return nil, fmt.Errorf("failed to create poll: %w", err)
	}

	s.log.Info().Str("room", room.Code).Str("poll", poll.ID).Str("type", string(poll.Type)).Msg("poll created")
	return poll, nil
}

// ListPolls returns the polls of the host's active room only, so one
// host's past sessions never leak into the current one.
func (s *PollService) ListPolls(ctx context.Context, hostID, code string) ([]*model.Poll, error) {
	room, err := s.hostRoom(ctx, hostID, code)
	if err != nil {
		return nil, err
	}
	return s.pollRepo.ListByRoom(ctx, room.ID)
}

// DeletePoll removes a poll definition unless its round is running.
func (s *PollService) DeletePoll(ctx context.Context, hostID, code, pollID string) error {
	room, err := s.hostRoom(ctx, hostID, code)
	if err != nil {
		return err
	}
	poll, err := s.pollRepo.GetByID(ctx, pollID)
	if err != nil {
		return fmt.Errorf("failed to look up poll: %w", err)
	}
	if poll == nil || poll.RoomID != room.ID {
		return model.ErrPollNotFound
	}
	if s.engine.RunningPollID(room.Code) == pollID {
		return fmt.Errorf("%w: poll round is running", model.ErrRoundState)
	}
	return s.pollRepo.Delete(ctx, pollID)
}

// GetForLaunch resolves a poll for the host's launch action, verifying
// both ownership and that the poll belongs to this room.
func (s *PollService) GetForLaunch(ctx context.Context, hostID, code, pollID string) (*model.Poll, error) {
	room, err := s.hostRoom(ctx, hostID, code)
	if err != nil {
		return nil, err
	}
	poll, err := s.pollRepo.GetByID(ctx, pollID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up poll: %w", err)
	}
	if poll == nil || poll.RoomID != room.ID {
		return nil, model.ErrPollNotFound
	}
	return poll, nil
}

func (s *PollService) hostRoom(ctx context.Context, hostID, code string) (*model.Room, error) {
	room, err := s.roomRepo.GetByCode(ctx, model.NormalizeCode(code))
	if err != nil {
		return nil, fmt.Errorf("failed to look up room: %w", err)
	}
	if room == nil {
		return nil, model.ErrRoomNotFound
	}
	if room.HostID != hostID {
		return nil, model.ErrNotHost
	}
	return room, nil
}
