package model

import "time"

type PollType string

const (
	PollMultipleChoice PollType = "multiple_choice"
	PollTrueFalse      PollType = "true_false"
	PollShortAnswer    PollType = "short_answer"
	PollOpinion        PollType = "opinion"
)

// UngradedAnswer is the correct-answer sentinel for poll types that are
// never auto-graded (short answer, opinion).
const UngradedAnswer = "N/A"

// Graded reports whether submissions of this type are auto-graded against
// the poll's correct answer.
func (t PollType) Graded() bool {
	return t == PollMultipleChoice || t == PollTrueFalse
}

// Valid reports whether t is a known poll type.
func (t PollType) Valid() bool {
	switch t {
	case PollMultipleChoice, PollTrueFalse, PollShortAnswer, PollOpinion:
		return true
	}
	return false
}

// Poll is a question definition scoped to a room. CorrectAnswer is never
// serialized to JSON so broadcast payloads cannot leak it.
type Poll struct {
	ID            string    `json:"id" bson:"_id,omitempty"`
	RoomID        string    `json:"roomId" bson:"roomId"`
	Type          PollType  `json:"type" bson:"type"`
	Title         string    `json:"title" bson:"title"`
	Options       []string  `json:"options" bson:"options"`
	CorrectAnswer string    `json:"-" bson:"correctAnswer"`
	TimerSeconds  int       `json:"timerSeconds" bson:"timerSeconds"`
	CreatedAt     time.Time `json:"createdAt" bson:"createdAt"`
}

// HasOption reports whether text exactly matches one of the poll's options.
func (p *Poll) HasOption(text string) bool {
	for _, opt := range p.Options {
		if opt == text {
			return true
		}
	}
	return false
}

// Untimed reports whether the poll runs without a deadline.
func (p *Poll) Untimed() bool {
	return p.TimerSeconds <= 0
}
