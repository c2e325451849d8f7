package ws

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"pollgen/internal/model"
	"pollgen/internal/service"

	"github.com/rs/zerolog"
)

const dispatchTimeout = 10 * time.Second

// Gateway translates inbound client messages into state-machine
// transitions. Errors are unicast back to the initiating connection as
// structured error payloads; they never disturb the room's round.
type Gateway struct {
	hub       *Hub
	pollSvc   *service.PollService
	engine    *service.SessionEngine
	reportSvc *service.ReportService
	log       zerolog.Logger
}

// NewGateway creates a new gateway.
func NewGateway(
	hub *Hub,
	pollSvc *service.PollService,
	engine *service.SessionEngine,
	reportSvc *service.ReportService,
	log zerolog.Logger,
) *Gateway {
	return &Gateway{
		hub:       hub,
		pollSvc:   pollSvc,
		engine:    engine,
		reportSvc: reportSvc,
		log:       log.With().Str("component", "ws_gateway").Logger(),
	}
}

// Handle dispatches one inbound message from a connection.
func (g *Gateway) Handle(conn *Connection, raw []byte) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		g.sendError(conn, "validation", "malformed message envelope")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
	defer cancel()

	switch msg.Type {
	case MsgHostLaunchPoll:
		g.handleLaunchPoll(ctx, conn, msg.Payload)
	case MsgHostEndPoll:
		g.handleEndPoll(conn)
	case MsgHostEndSession:
		g.handleEndSession(ctx, conn)
	case MsgStudentVote:
		g.handleVote(ctx, conn, msg.Payload)
	default:
		g.sendError(conn, "validation", "unknown message type: "+string(msg.Type))
	}
}

func (g *Gateway) handleLaunchPoll(ctx context.Context, conn *Connection, payload json.RawMessage) {
	if !conn.IsHost {
		g.sendError(conn, "unauthorized", "only the host can launch polls")
		return
	}
	var req model.LaunchPollRequest
	if err := json.Unmarshal(payload, &req); err != nil || req.PollID == "" {
		g.sendError(conn, "validation", "launch requires a pollId")
		return
	}

	poll, err := g.pollSvc.GetForLaunch(ctx, conn.HostID, conn.RoomCode, req.PollID)
	if err != nil {
		g.sendServiceError(conn, err)
		return
	}
	// The engine broadcasts poll-started itself.
	if _, err := g.engine.LaunchRound(ctx, conn.RoomCode, conn.HostID, poll); err != nil {
		g.sendServiceError(conn, err)
	}
}

func (g *Gateway) handleEndPoll(conn *Connection) {
	if !conn.IsHost {
		g.sendError(conn, "unauthorized", "only the host can end polls")
		return
	}
	if err := g.engine.CloseRound(conn.RoomCode, conn.HostID); err != nil {
		g.sendServiceError(conn, err)
	}
}

func (g *Gateway) handleEndSession(ctx context.Context, conn *Connection) {
	if !conn.IsHost {
		g.sendError(conn, "unauthorized", "only the host can end the session")
		return
	}
	// The report service broadcasts session-ended events only after the
	// report write is durable.
	if _, err := g.reportSvc.EndSession(ctx, conn.RoomCode, conn.HostID); err != nil {
		g.sendServiceError(conn, err)
	}
}

func (g *Gateway) handleVote(ctx context.Context, conn *Connection, payload json.RawMessage) {
	if conn.IsHost {
		g.sendError(conn, "unauthorized", "hosts cannot vote")
		return
	}
	var req model.SubmitVoteRequest
	if err := json.Unmarshal(payload, &req); err != nil || req.PollID == "" {
		g.sendError(conn, "validation", "vote requires a pollId and answer")
		return
	}

	result, err := g.engine.SubmitVote(ctx, conn.RoomCode, conn.StudentID, req.PollID, req.Answer, req.TimeTaken)
	if err != nil {
		g.sendServiceError(conn, err)
		return
	}

	// Private grading result for the submitter, then a shared refresh
	// for the room that carries no per-student answers.
	g.hub.BroadcastToStudent(conn.RoomCode, conn.StudentID, string(MsgVoteResult), result)
	g.hub.RefreshRoom(conn.RoomCode)
}

// send unicasts an envelope straight onto the connection's buffer.
func (g *Gateway) send(conn *Connection, msgType MessageType, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	out, _ := json.Marshal(&Message{Type: msgType, Payload: data})
	conn.trySend(out)
}

func (g *Gateway) sendError(conn *Connection, code, message string) {
	g.send(conn, MsgError, model.ErrorEvent{Code: code, Message: message})
}

// sendServiceError maps service errors onto the wire taxonomy.
func (g *Gateway) sendServiceError(conn *Connection, err error) {
	switch {
	case errors.Is(err, model.ErrRoomNotFound),
		errors.Is(err, model.ErrPollNotFound),
		errors.Is(err, model.ErrReportNotFound):
		g.sendError(conn, "not-found", err.Error())
	case errors.Is(err, model.ErrRoomConflict):
		g.sendError(conn, "conflict", err.Error())
	case errors.Is(err, model.ErrValidation):
		g.sendError(conn, "validation", err.Error())
	case errors.Is(err, model.ErrRoundState),
		errors.Is(err, model.ErrDuplicateVote),
		errors.Is(err, model.ErrVoteTooLate):
		g.sendError(conn, "state", err.Error())
	case errors.Is(err, model.ErrNotHost):
		g.sendError(conn, "unauthorized", err.Error())
	default:
		g.log.Error().Err(err).Str("room", conn.RoomCode).Msg("gateway dispatch failed")
		g.sendError(conn, "internal", "something went wrong, please retry")
	}
}
