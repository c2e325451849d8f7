package model

// StudentSessionScore is the running per-room aggregate for one student.
// It is owned exclusively by the session engine and mutated only in
// response to a counted submission.
type StudentSessionScore struct {
	StudentID     string  `json:"studentId"`
	Points        int     `json:"points"`
	Streak        int     `json:"streak"`
	LongestStreak int     `json:"longestStreak"`
	Correct       int     `json:"correct"`
	Attempted     int     `json:"attempted"`
	TotalTime     float64 `json:"totalTime"` // seconds, summed across attempts
}

// VoteResult is delivered privately to the submitting student.
type VoteResult struct {
	IsCorrect     bool `json:"isCorrect"`
	PointsAwarded int  `json:"pointsAwarded"`
	TotalScore    int  `json:"totalScore"`
	Streak        int  `json:"streak"`
}
