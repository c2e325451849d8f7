package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"pollgen/internal/model"

	"github.com/rs/zerolog"
)

type recordedEvent struct {
	roomCode string
	msgType  string
	payload  interface{}
}

// fakeBroadcaster records events instead of pushing them to sockets.
type fakeBroadcaster struct {
	mu     sync.Mutex
	events []recordedEvent
	roster []model.Participant
}

func (f *fakeBroadcaster) record(roomCode, msgType string, payload interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, recordedEvent{roomCode, msgType, payload})
}

func (f *fakeBroadcaster) BroadcastToHost(roomCode, msgType string, payload interface{}) {
	f.record(roomCode, msgType, payload)
}

func (f *fakeBroadcaster) BroadcastToStudent(roomCode, studentID, msgType string, payload interface{}) {
	f.record(roomCode, msgType, payload)
}

func (f *fakeBroadcaster) BroadcastToAllStudents(roomCode, msgType string, payload interface{}) {
	f.record(roomCode, msgType, payload)
}

func (f *fakeBroadcaster) BroadcastToRoom(roomCode, msgType string, payload interface{}) {
	f.record(roomCode, msgType, payload)
}

func (f *fakeBroadcaster) Participants(roomCode string) []model.Participant {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.roster
}

func (f *fakeBroadcaster) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.events))
	for i, e := range f.events {
		out[i] = e.msgType
	}
	return out
}

func newTestEngine(t *testing.T) (*SessionEngine, *fakeBroadcaster) {
	t.Helper()
	engine := NewSessionEngine(nil, zerolog.Nop())
	bc := &fakeBroadcaster{}
	engine.SetBroadcaster(bc)
	return engine, bc
}

func gradedPoll(id string, timerSeconds int) *model.Poll {
	return &model.Poll{
		ID:            id,
		RoomID:        "room-1",
		Type:          model.PollMultipleChoice,
		Title:         "Capital of France?",
		Options:       []string{"Paris", "Lyon", "Nice"},
		CorrectAnswer: "Paris",
		TimerSeconds:  timerSeconds,
	}
}

func TestSubmitVoteCorrectAnswer(t *testing.T) {
	engine, _ := newTestEngine(t)
	engine.OpenRoom("ABC123", "h_host")

	if _, err := engine.LaunchRound(context.Background(), "ABC123", "h_host", gradedPoll("p1", 30)); err != nil {
		t.Fatalf("LaunchRound: %v", err)
	}

	res, err := engine.SubmitVote(context.Background(), "ABC123", "s_alice", "p1", "Paris", 5)
	if err != nil {
		t.Fatalf("SubmitVote: %v", err)
	}
	if !res.IsCorrect {
		t.Fatal("expected correct answer")
	}
	if res.Streak != 1 {
		t.Fatalf("streak = %d, want 1", res.Streak)
	}
	if res.PointsAwarded <= 0 {
		t.Fatalf("points = %d, want > 0", res.PointsAwarded)
	}
	if res.TotalScore != res.PointsAwarded {
		t.Fatalf("total %d != awarded %d on first vote", res.TotalScore, res.PointsAwarded)
	}
}

func TestSubmitVoteAtMostOncePerRound(t *testing.T) {
	engine, _ := newTestEngine(t)
	engine.OpenRoom("ABC123", "h_host")

	if _, err := engine.LaunchRound(context.Background(), "ABC123", "h_host", gradedPoll("p1", 0)); err != nil {
		t.Fatalf("LaunchRound: %v", err)
	}

	// N concurrent submissions by the same student: exactly one may count.
	const n = 20
	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted, duplicates := 0, 0

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := engine.SubmitVote(context.Background(), "ABC123", "s_alice", "p1", "Paris", 3)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				accepted++
			case errors.Is(err, model.ErrDuplicateVote):
				duplicates++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if accepted != 1 {
		t.Fatalf("accepted %d votes, want exactly 1", accepted)
	}
	if duplicates != n-1 {
		t.Fatalf("duplicates = %d, want %d", duplicates, n-1)
	}

	scores, _ := engine.Snapshot("ABC123")
	if len(scores) != 1 {
		t.Fatalf("snapshot has %d students, want 1", len(scores))
	}
	if scores[0].Points != 100 {
		t.Fatalf("points = %d, want 100 (single untimed correct)", scores[0].Points)
	}
}

func TestSubmitVoteDeadlineBoundary(t *testing.T) {
	engine, _ := newTestEngine(t)
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	engine.now = func() time.Time { return start }
	engine.OpenRoom("ABC123", "h_host")

	deadline, err := engine.LaunchRound(context.Background(), "ABC123", "h_host", gradedPoll("p1", 30))
	if err != nil {
		t.Fatalf("LaunchRound: %v", err)
	}
	if !deadline.Equal(start.Add(30 * time.Second)) {
		t.Fatalf("deadline = %v, want start+30s", deadline)
	}

	// Arrival exactly at the deadline still counts.
	engine.now = func() time.Time { return deadline }
	if _, err := engine.SubmitVote(context.Background(), "ABC123", "s_ontime", "p1", "Paris", 30); err != nil {
		t.Fatalf("vote at deadline rejected: %v", err)
	}

	// One nanosecond later is rejected and closes the round.
	engine.now = func() time.Time { return deadline.Add(time.Nanosecond) }
	_, err = engine.SubmitVote(context.Background(), "ABC123", "s_late", "p1", "Paris", 30)
	if !errors.Is(err, model.ErrVoteTooLate) {
		t.Fatalf("late vote error = %v, want ErrVoteTooLate", err)
	}
	if engine.RunningPollID("ABC123") != "" {
		t.Fatal("round should be closed after a late vote")
	}
}

func TestSubmitVoteValidations(t *testing.T) {
	engine, _ := newTestEngine(t)
	engine.OpenRoom("ABC123", "h_host")

	if _, err := engine.SubmitVote(context.Background(), "NOPE99", "s_a", "p1", "Paris", 1); !errors.Is(err, model.ErrRoomNotFound) {
		t.Fatalf("unknown room error = %v, want ErrRoomNotFound", err)
	}
	if _, err := engine.SubmitVote(context.Background(), "ABC123", "s_a", "p1", "Paris", 1); !errors.Is(err, model.ErrRoundState) {
		t.Fatalf("idle room error = %v, want ErrRoundState", err)
	}

	if _, err := engine.LaunchRound(context.Background(), "ABC123", "h_host", gradedPoll("p1", 0)); err != nil {
		t.Fatalf("LaunchRound: %v", err)
	}

	if _, err := engine.SubmitVote(context.Background(), "ABC123", "s_a", "p-other", "Paris", 1); !errors.Is(err, model.ErrRoundState) {
		t.Fatalf("stale poll id error = %v, want ErrRoundState", err)
	}
	if _, err := engine.SubmitVote(context.Background(), "ABC123", "s_a", "p1", "Berlin", 1); !errors.Is(err, model.ErrValidation) {
		t.Fatalf("off-option answer error = %v, want ErrValidation", err)
	}
	// The failed validation must not burn the student's one vote.
	if _, err := engine.SubmitVote(context.Background(), "ABC123", "s_a", "p1", "Paris", 1); err != nil {
		t.Fatalf("vote after rejected answer: %v", err)
	}
}

func TestLaunchRoundReplacesRunningRound(t *testing.T) {
	engine, bc := newTestEngine(t)
	engine.OpenRoom("ABC123", "h_host")

	if _, err := engine.LaunchRound(context.Background(), "ABC123", "h_host", gradedPoll("p1", 30)); err != nil {
		t.Fatalf("first launch: %v", err)
	}
	if _, err := engine.LaunchRound(context.Background(), "ABC123", "h_host", gradedPoll("p2", 30)); err != nil {
		t.Fatalf("second launch: %v", err)
	}

	// Clients must see the first round closed before the second starts.
	want := []string{"poll-started", "poll-ended", "poll-started"}
	got := bc.types()
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("events = %v, want %v", got, want)
		}
	}

	if engine.RunningPollID("ABC123") != "p2" {
		t.Fatalf("running poll = %q, want p2", engine.RunningPollID("ABC123"))
	}

	_, totalPolls := engine.Snapshot("ABC123")
	if totalPolls != 2 {
		t.Fatalf("totalPolls = %d, want 2", totalPolls)
	}
}

func TestLaunchRoundRejectsNonHost(t *testing.T) {
	engine, _ := newTestEngine(t)
	engine.OpenRoom("ABC123", "h_host")

	if _, err := engine.LaunchRound(context.Background(), "ABC123", "h_imposter", gradedPoll("p1", 0)); !errors.Is(err, model.ErrNotHost) {
		t.Fatalf("error = %v, want ErrNotHost", err)
	}
}

func TestStreakAcrossRounds(t *testing.T) {
	engine, _ := newTestEngine(t)
	engine.OpenRoom("ABC123", "h_host")
	ctx := context.Background()

	vote := func(pollID, answer string) *model.VoteResult {
		t.Helper()
		if _, err := engine.LaunchRound(ctx, "ABC123", "h_host", gradedPoll(pollID, 0)); err != nil {
			t.Fatalf("LaunchRound %s: %v", pollID, err)
		}
		res, err := engine.SubmitVote(ctx, "ABC123", "s_alice", pollID, answer, 1)
		if err != nil {
			t.Fatalf("SubmitVote %s: %v", pollID, err)
		}
		return res
	}

	if res := vote("p1", "Paris"); res.Streak != 1 || res.PointsAwarded != 100 {
		t.Fatalf("round 1: streak %d points %d, want 1/100", res.Streak, res.PointsAwarded)
	}
	if res := vote("p2", "Paris"); res.Streak != 2 || res.PointsAwarded != 110 {
		t.Fatalf("round 2: streak %d points %d, want 2/110", res.Streak, res.PointsAwarded)
	}
	if res := vote("p3", "Lyon"); res.Streak != 0 || res.PointsAwarded != 0 {
		t.Fatalf("round 3: streak %d points %d, want 0/0 after a miss", res.Streak, res.PointsAwarded)
	}
	if res := vote("p4", "Paris"); res.Streak != 1 {
		t.Fatalf("round 4: streak %d, want restart at 1", res.Streak)
	}

	scores, _ := engine.Snapshot("ABC123")
	if len(scores) != 1 {
		t.Fatalf("snapshot has %d students, want 1", len(scores))
	}
	sc := scores[0]
	if sc.LongestStreak != 2 {
		t.Fatalf("longestStreak = %d, want 2", sc.LongestStreak)
	}
	if sc.Correct != 3 || sc.Attempted != 4 {
		t.Fatalf("correct/attempted = %d/%d, want 3/4", sc.Correct, sc.Attempted)
	}
}

func TestUngradedPollKeepsStreak(t *testing.T) {
	engine, _ := newTestEngine(t)
	engine.OpenRoom("ABC123", "h_host")
	ctx := context.Background()

	if _, err := engine.LaunchRound(ctx, "ABC123", "h_host", gradedPoll("p1", 0)); err != nil {
		t.Fatalf("LaunchRound: %v", err)
	}
	if _, err := engine.SubmitVote(ctx, "ABC123", "s_alice", "p1", "Paris", 1); err != nil {
		t.Fatalf("graded vote: %v", err)
	}

	opinion := &model.Poll{
		ID:            "p2",
		RoomID:        "room-1",
		Type:          model.PollOpinion,
		Title:         "How was the session?",
		CorrectAnswer: model.UngradedAnswer,
	}
	if _, err := engine.LaunchRound(ctx, "ABC123", "h_host", opinion); err != nil {
		t.Fatalf("LaunchRound opinion: %v", err)
	}

	res, err := engine.SubmitVote(ctx, "ABC123", "s_alice", "p2", "Great!", 2)
	if err != nil {
		t.Fatalf("opinion vote: %v", err)
	}
	if res.IsCorrect || res.PointsAwarded != 0 {
		t.Fatalf("opinion vote scored: correct=%v points=%d", res.IsCorrect, res.PointsAwarded)
	}
	if res.Streak != 1 {
		t.Fatalf("streak = %d after ungraded poll, want 1 (unchanged)", res.Streak)
	}

	scores, _ := engine.Snapshot("ABC123")
	if scores[0].Attempted != 2 {
		t.Fatalf("attempted = %d, want 2 (ungraded still counts)", scores[0].Attempted)
	}
}

func TestCloseRoundIdempotent(t *testing.T) {
	engine, bc := newTestEngine(t)
	engine.OpenRoom("ABC123", "h_host")

	// Closing an idle room is a no-op.
	if err := engine.CloseRound("ABC123", "h_host"); err != nil {
		t.Fatalf("CloseRound idle: %v", err)
	}

	if _, err := engine.LaunchRound(context.Background(), "ABC123", "h_host", gradedPoll("p1", 30)); err != nil {
		t.Fatalf("LaunchRound: %v", err)
	}
	if err := engine.CloseRound("ABC123", "h_host"); err != nil {
		t.Fatalf("CloseRound: %v", err)
	}
	if err := engine.CloseRound("ABC123", "h_host"); err != nil {
		t.Fatalf("CloseRound twice: %v", err)
	}

	// Exactly one poll-ended despite the double close.
	ended := 0
	for _, typ := range bc.types() {
		if typ == "poll-ended" {
			ended++
		}
	}
	if ended != 1 {
		t.Fatalf("poll-ended broadcast %d times, want 1", ended)
	}

	if _, err := engine.SubmitVote(context.Background(), "ABC123", "s_a", "p1", "Paris", 1); !errors.Is(err, model.ErrRoundState) {
		t.Fatalf("vote after close error = %v, want ErrRoundState", err)
	}
}

func TestSnapshotDoesNotMutate(t *testing.T) {
	engine, _ := newTestEngine(t)
	engine.OpenRoom("ABC123", "h_host")
	ctx := context.Background()

	if _, err := engine.LaunchRound(ctx, "ABC123", "h_host", gradedPoll("p1", 0)); err != nil {
		t.Fatalf("LaunchRound: %v", err)
	}
	if _, err := engine.SubmitVote(ctx, "ABC123", "s_alice", "p1", "Paris", 1); err != nil {
		t.Fatalf("SubmitVote: %v", err)
	}

	first, polls1 := engine.Snapshot("ABC123")
	second, polls2 := engine.Snapshot("ABC123")
	if len(first) != 1 || len(second) != 1 || polls1 != polls2 {
		t.Fatal("snapshot must be repeatable without mutating state")
	}
	if first[0].Points != second[0].Points {
		t.Fatalf("points differ across snapshots: %d vs %d", first[0].Points, second[0].Points)
	}
}
