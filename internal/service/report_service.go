package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"pollgen/internal/cache"
	"pollgen/internal/model"
	"pollgen/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	reportSaveAttempts = 3
	reportSaveBackoff  = 100 * time.Millisecond
)

// ReportService builds and persists the one-shot session report when a
// host ends a session, then tears the session down.
type ReportService struct {
	roomRepo    repository.RoomRepo
	reportRepo  repository.ReportRepo
	roomCache   cache.RoomCache
	leaderboard cache.LeaderboardCache
	engine      *SessionEngine
	broadcaster Broadcaster
	log         zerolog.Logger
	now         func() time.Time
}

// NewReportService creates a new report service.
func NewReportService(
	roomRepo repository.RoomRepo,
	reportRepo repository.ReportRepo,
	roomCache cache.RoomCache,
	leaderboard cache.LeaderboardCache,
	engine *SessionEngine,
	log zerolog.Logger,
) *ReportService {
	return &ReportService{
		roomRepo:    roomRepo,
		reportRepo:  reportRepo,
		roomCache:   roomCache,
		leaderboard: leaderboard,
		engine:      engine,
		log:         log.With().Str("component", "report_service").Logger(),
		now:         time.Now,
	}
}

// SetBroadcaster wires the realtime gateway in after construction.
func (s *ReportService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// EndSession closes the session: any running round is force-closed, the
// final standings are persisted as a SessionReport, the room goes
// inactive, and clients are notified only after the report write is
// durable. Ending twice is a safe no-op that returns the stored report.
// A session in which nobody scored still gets a report with an empty
// result list.
func (s *ReportService) EndSession(ctx context.Context, code, hostID string) (*model.SessionReport, error) {
	norm := model.NormalizeCode(code)
	room, err := s.roomRepo.GetLatestByCode(ctx, norm)
	if err != nil {
		return nil, fmt.Errorf("failed to look up room: %w", err)
	}
	if room == nil {
		return nil, model.ErrRoomNotFound
	}
	if room.HostID != hostID {
		return nil, model.ErrNotHost
	}

	existing, err := s.reportRepo.GetBySessionID(ctx, room.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing report: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	// Close the round before snapshotting so no vote can land between
	// the snapshot and the persisted report.
	s.engine.ForceCloseRound(norm, CloseReasonSession)
	scores, totalPolls := s.engine.Snapshot(norm)

	names := make(map[string]model.Participant)
	if s.broadcaster != nil {
		for _, p := range s.broadcaster.Participants(norm) {
			names[p.ID] = p
		}
	}

	results := make([]model.StudentResult, 0, len(scores))
	for _, sc := range scores {
		name := sc.StudentID
		if p, ok := names[sc.StudentID]; ok && p.Name != "" {
			name = p.Name
		}
		results = append(results, model.StudentResult{
			UserID:         sc.StudentID,
			StudentName:    name,
			TotalPoints:    sc.Points,
			Accuracy:       accuracyPercent(sc.Correct, sc.Attempted),
			PollsAttempted: sc.Attempted,
			TotalPolls:     totalPolls,
			AverageTime:    meanTime(sc.TotalTime, sc.Attempted),
			LongestStreak:  sc.LongestStreak,
		})
	}
	// Stored in standings order for readability; rank itself stays a
	// display-time property.
	sort.Slice(results, func(i, j int) bool {
		if results[i].TotalPoints != results[j].TotalPoints {
			return results[i].TotalPoints > results[j].TotalPoints
		}
		return results[i].StudentName < results[j].StudentName
	})

	report := &model.SessionReport{
		ID:             uuid.NewString(),
		SessionID:      room.ID,
		SessionName:    room.Name,
		SessionEndedAt: s.now(),
		StudentResults: results,
	}

	if err := s.saveWithRetry(ctx, report); err != nil {
		// Scores are still intact in the engine, so the host can
		// safely retry the end-session action.
		return nil, fmt.Errorf("failed to persist session report: %w", err)
	}

	s.teardown(ctx, room)

	if s.broadcaster != nil {
		s.broadcaster.BroadcastToAllStudents(norm, "session-ended", model.SessionEndedEvent{
			SessionID: room.ID,
			Message:   "Session has ended. Your report is ready.",
		})
		s.broadcaster.BroadcastToHost(norm, "session-ended-host", model.SessionEndedHostEvent{
			SessionID: room.ID,
		})
	}

	s.log.Info().
		Str("room", norm).
		Str("session", room.ID).
		Int("students", len(results)).
		Msg("session ended")
	return report, nil
}

// GetReport fetches a persisted report for clients reacting to the
// session-ended event.
func (s *ReportService) GetReport(ctx context.Context, sessionID string) (*model.SessionReport, error) {
	report, err := s.reportRepo.GetBySessionID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up report: %w", err)
	}
	if report == nil {
		return nil, model.ErrReportNotFound
	}
	return report, nil
}

func (s *ReportService) saveWithRetry(ctx context.Context, report *model.SessionReport) error {
	var err error
	backoff := reportSaveBackoff
	for attempt := 1; attempt <= reportSaveAttempts; attempt++ {
		if err = s.reportRepo.Save(ctx, report); err == nil {
			return nil
		}
		s.log.Warn().Err(err).Int("attempt", attempt).Str("session", report.SessionID).Msg("report save failed")
		if attempt < reportSaveAttempts {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			backoff *= 2
		}
	}
	return err
}

// teardown releases everything tied to the live session. Failures here
// are logged, not returned: the report is already durable and the Redis
// keys expire on their own.
func (s *ReportService) teardown(ctx context.Context, room *model.Room) {
	s.engine.RemoveRoom(room.Code)
	if err := s.roomRepo.SetInactive(ctx, room.ID); err != nil {
		s.log.Warn().Err(err).Str("room", room.Code).Msg("failed to deactivate room")
	}
	if err := s.roomCache.ReleaseCode(ctx, room.Code); err != nil {
		s.log.Warn().Err(err).Str("room", room.Code).Msg("failed to release code")
	}
	if err := s.roomCache.ReleaseHost(ctx, room.HostID); err != nil {
		s.log.Warn().Err(err).Str("room", room.Code).Msg("failed to release host slot")
	}
	if s.leaderboard != nil {
		if err := s.leaderboard.Clear(ctx, room.Code); err != nil {
			s.log.Warn().Err(err).Str("room", room.Code).Msg("failed to clear leaderboard")
		}
	}
}
