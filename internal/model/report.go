package model

import "time"

// StudentResult is one row of a session report.
type StudentResult struct {
	UserID         string  `json:"userId" bson:"userId"`
	StudentName    string  `json:"studentName" bson:"studentName"`
	TotalPoints    int     `json:"totalPoints" bson:"totalPoints"`
	Accuracy       float64 `json:"accuracy" bson:"accuracy"`
	PollsAttempted int     `json:"pollsAttempted" bson:"pollsAttempted"`
	TotalPolls     int     `json:"totalPolls" bson:"totalPolls"`
	AverageTime    float64 `json:"averageTime" bson:"averageTime"`
	LongestStreak  int     `json:"longestStreak" bson:"longestStreak"`
}

// SessionReport is the immutable persisted outcome of a finished session.
// Exactly one report exists per session id. Rank is derived at read time
// by sorting on totalPoints, never stored.
type SessionReport struct {
	ID             string          `json:"id" bson:"_id,omitempty"`
	SessionID      string          `json:"sessionId" bson:"sessionId"`
	SessionName    string          `json:"sessionName" bson:"sessionName"`
	SessionEndedAt time.Time       `json:"sessionEndedAt" bson:"sessionEndedAt"`
	StudentResults []StudentResult `json:"studentResults" bson:"studentResults"`
}
