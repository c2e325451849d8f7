package model

import "time"

// Payloads carried in the gateway's tagged message envelope. Each event
// name has exactly one payload shape; the gateway rejects anything that
// does not decode into the expected variant.

// PollStartedEvent is broadcast to every room member when a round begins.
// Poll omits the correct answer through its JSON tags.
type PollStartedEvent struct {
	Poll      *Poll      `json:"poll"`
	StartedAt time.Time  `json:"startedAt"`
	Deadline  *time.Time `json:"deadline,omitempty"`
}

// PollEndedEvent is broadcast when a round closes. Reason is one of
// "timeout", "host", "replaced", "session-ended".
type PollEndedEvent struct {
	PollID string `json:"pollId"`
	Reason string `json:"reason"`
}

// ParticipantListEvent refreshes shared room counters. It never carries
// another student's answers or per-poll results.
type ParticipantListEvent struct {
	Participants []Participant `json:"participants"`
	Total        int           `json:"total"`
}

// SessionEndedEvent tells a student the session is over and where to
// fetch the persisted report.
type SessionEndedEvent struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
}

// SessionEndedHostEvent confirms report readiness to the host.
type SessionEndedHostEvent struct {
	SessionID string `json:"sessionId"`
}

// LaunchPollRequest is the host's launch action. The room comes from the
// connection, never from the payload.
type LaunchPollRequest struct {
	PollID string `json:"pollId"`
}

// SubmitVoteRequest is a student's single graded attempt.
type SubmitVoteRequest struct {
	PollID    string  `json:"pollId"`
	Answer    string  `json:"answer"`
	TimeTaken float64 `json:"timeTaken"`
}

// ErrorEvent is unicast to the client whose action failed.
type ErrorEvent struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
