package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"pollgen/internal/cache"
	"pollgen/internal/model"

	"github.com/rs/zerolog"
)

// Round closure reasons carried in poll-ended events.
const (
	CloseReasonTimeout  = "timeout"
	CloseReasonHost     = "host"
	CloseReasonReplaced = "replaced"
	CloseReasonSession  = "session-ended"
)

// SessionEngine owns all runtime state for live rooms: the round state
// machine and every student's running session score. All transitions for
// one room are serialized behind that room's mutex, so two concurrent
// submissions cannot double-credit and a vote cannot race a closure.
//
// The in-memory score table is authoritative; the Redis leaderboard is a
// best-effort mirror for the host's live view.
type SessionEngine struct {
	mu    sync.Mutex
	rooms map[string]*roomState

	leaderboard cache.LeaderboardCache
	broadcaster Broadcaster
	log         zerolog.Logger
	now         func() time.Time
}

type roomState struct {
	mu         sync.Mutex
	code       string
	hostID     string
	totalPolls int
	seq        int // round sequence, guards stale timer callbacks
	round      *roundState
	scores     map[string]*model.StudentSessionScore
}

type roundStatus string

const (
	roundRunning roundStatus = "running"
	roundClosed  roundStatus = "closed"
)

// roundState is runtime-only; a nil round means the room is idle.
type roundState struct {
	poll      *model.Poll
	status    roundStatus
	startedAt time.Time
	deadline  time.Time // zero for untimed polls
	answered  map[string]bool
	timer     *time.Timer
	seq       int
}

// NewSessionEngine creates a new engine. The leaderboard mirror may be
// nil in tests.
func NewSessionEngine(leaderboard cache.LeaderboardCache, log zerolog.Logger) *SessionEngine {
	return &SessionEngine{
		rooms:       make(map[string]*roomState),
		leaderboard: leaderboard,
		log:         log.With().Str("component", "session_engine").Logger(),
		now:         time.Now,
	}
}

// SetBroadcaster wires the realtime gateway in after construction.
func (e *SessionEngine) SetBroadcaster(b Broadcaster) {
	e.broadcaster = b
}

// OpenRoom registers runtime state for an active room. Idempotent, so the
// gateway can call it again when a host reconnects after a restart.
func (e *SessionEngine) OpenRoom(code, hostID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.rooms[code]; ok {
		return
	}
	e.rooms[code] = &roomState{
		code:   code,
		hostID: hostID,
		scores: make(map[string]*model.StudentSessionScore),
	}
}

func (e *SessionEngine) room(code string) *roomState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rooms[code]
}

// LaunchRound transitions the room's round to running. A still-running
// round is force-closed first (with its own poll-ended broadcast) so
// clients always see a closure notice before the next poll-started.
func (e *SessionEngine) LaunchRound(ctx context.Context, code, hostID string, poll *model.Poll) (time.Time, error) {
	rs := e.room(code)
	if rs == nil {
		return time.Time{}, model.ErrRoomNotFound
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.hostID != hostID {
		return time.Time{}, model.ErrNotHost
	}

	e.closeRoundLocked(rs, CloseReasonReplaced)

	rs.seq++
	start := e.now()
	round := &roundState{
		poll:      poll,
		status:    roundRunning,
		startedAt: start,
		answered:  make(map[string]bool),
		seq:       rs.seq,
	}
	if !poll.Untimed() {
		round.deadline = start.Add(time.Duration(poll.TimerSeconds) * time.Second)
		seq := rs.seq
		round.timer = time.AfterFunc(time.Duration(poll.TimerSeconds)*time.Second, func() {
			e.expireRound(code, seq)
		})
	}
	rs.round = round
	rs.totalPolls++

	e.log.Info().
		Str("room", code).
		Str("poll", poll.ID).
		Int("timerSeconds", poll.TimerSeconds).
		Msg("round launched")

	if e.broadcaster != nil {
		evt := model.PollStartedEvent{Poll: poll, StartedAt: start}
		if !round.deadline.IsZero() {
			d := round.deadline
			evt.Deadline = &d
		}
		e.broadcaster.BroadcastToRoom(code, "poll-started", evt)
	}
	return round.deadline, nil
}

// CloseRound is the host's explicit end-poll action. Closing an idle or
// already-closed round is a no-op, not an error.
func (e *SessionEngine) CloseRound(code, hostID string) error {
	rs := e.room(code)
	if rs == nil {
		return model.ErrRoomNotFound
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if rs.hostID != hostID {
		return model.ErrNotHost
	}
	e.closeRoundLocked(rs, CloseReasonHost)
	return nil
}

// ForceCloseRound closes any running round without a host check. Callers
// are already authorized (session teardown).
func (e *SessionEngine) ForceCloseRound(code, reason string) {
	rs := e.room(code)
	if rs == nil {
		return
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	e.closeRoundLocked(rs, reason)
}

// expireRound is the server-authoritative timeout transition.
func (e *SessionEngine) expireRound(code string, seq int) {
	rs := e.room(code)
	if rs == nil {
		return
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if rs.round == nil || rs.round.seq != seq {
		return // a newer round replaced this one before the timer fired
	}
	e.closeRoundLocked(rs, CloseReasonTimeout)
}

// closeRoundLocked finalizes the running round. Caller holds rs.mu.
func (e *SessionEngine) closeRoundLocked(rs *roomState, reason string) {
	round := rs.round
	if round == nil || round.status != roundRunning {
		return
	}
	if round.timer != nil {
		round.timer.Stop()
	}
	round.status = roundClosed

	e.log.Info().
		Str("room", rs.code).
		Str("poll", round.poll.ID).
		Str("reason", reason).
		Msg("round closed")

	if e.broadcaster != nil {
		e.broadcaster.BroadcastToRoom(rs.code, "poll-ended", model.PollEndedEvent{
			PollID: round.poll.ID,
			Reason: reason,
		})
	}
}

// SubmitVote grades at most one submission per student per round and
// folds the result into the student's running score. The returned result
// is for the submitting student only.
func (e *SessionEngine) SubmitVote(ctx context.Context, code, studentID, pollID, answer string, timeTaken float64) (*model.VoteResult, error) {
	rs := e.room(code)
	if rs == nil {
		return nil, model.ErrRoomNotFound
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()

	round := rs.round
	if round == nil || round.status != roundRunning {
		return nil, model.ErrRoundState
	}
	// Votes are checked against the currently running round, never
	// against client-supplied state.
	if round.poll.ID != pollID {
		return nil, model.ErrRoundState
	}
	// The server deadline is authoritative: arrival exactly at the
	// deadline still counts, anything later is rejected regardless of
	// the client-reported timeTaken.
	if !round.deadline.IsZero() && e.now().After(round.deadline) {
		e.closeRoundLocked(rs, CloseReasonTimeout)
		return nil, model.ErrVoteTooLate
	}
	if round.answered[studentID] {
		return nil, model.ErrDuplicateVote
	}

	poll := round.poll
	if poll.Type.Graded() && !poll.HasOption(answer) {
		return nil, fmt.Errorf("%w: answer is not one of the poll options", model.ErrValidation)
	}
	if timeTaken < 0 {
		timeTaken = 0
	}

	round.answered[studentID] = true

	score := rs.scores[studentID]
	if score == nil {
		score = &model.StudentSessionScore{StudentID: studentID}
		rs.scores[studentID] = score
	}

	result := &model.VoteResult{}
	switch {
	case !poll.Type.Graded():
		// Participation only; the streak carries over untouched.
	case answer == poll.CorrectAnswer:
		score.Streak++
		if score.Streak > score.LongestStreak {
			score.LongestStreak = score.Streak
		}
		score.Correct++
		result.IsCorrect = true
		result.PointsAwarded = scoreCorrect(timeTaken, poll.TimerSeconds, score.Streak)
		score.Points += result.PointsAwarded
	default:
		score.Streak = 0
	}
	score.Attempted++
	score.TotalTime += timeTaken

	result.TotalScore = score.Points
	result.Streak = score.Streak

	if e.leaderboard != nil {
		if err := e.leaderboard.SetScore(ctx, code, studentID, score.Points); err != nil {
			e.log.Warn().Err(err).Str("room", code).Msg("leaderboard mirror failed")
		}
	}
	return result, nil
}

// RunningPollID returns the poll id of the room's running round, or "".
func (e *SessionEngine) RunningPollID(code string) string {
	rs := e.room(code)
	if rs == nil {
		return ""
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if rs.round == nil || rs.round.status != roundRunning {
		return ""
	}
	return rs.round.poll.ID
}

// Snapshot copies the room's final score set without mutating it, so a
// failed report write can be retried against unchanged state.
func (e *SessionEngine) Snapshot(code string) ([]model.StudentSessionScore, int) {
	rs := e.room(code)
	if rs == nil {
		return nil, 0
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	scores := make([]model.StudentSessionScore, 0, len(rs.scores))
	for _, s := range rs.scores {
		scores = append(scores, *s)
	}
	return scores, rs.totalPolls
}

// RemoveRoom drops the room's runtime state after session teardown.
func (e *SessionEngine) RemoveRoom(code string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.rooms, code)
}
