package model

import "errors"

// Not-found family.
var (
	ErrRoomNotFound   = errors.New("room not found")
	ErrPollNotFound   = errors.New("poll not found")
	ErrReportNotFound = errors.New("report not found")
)

// Conflict and validation family.
var (
	ErrRoomConflict = errors.New("host already has an active room")
	ErrValidation   = errors.New("validation failed")
)

// Round lifecycle family.
var (
	ErrRoundState    = errors.New("round is not in the required state")
	ErrDuplicateVote = errors.New("student already voted in this round")
	ErrVoteTooLate   = errors.New("vote arrived after the round deadline")
)

// Authorization family.
var (
	ErrNotHost = errors.New("requester is not the room host")
)
