package service

import "math"

// Scoring contract, fixed so results are reproducible:
//
//	correct    base 100 scaled by speed: answering instantly keeps the
//	           full base, answering at the deadline keeps half (linear
//	           in between). Untimed polls always score the full base.
//	           Streak bonus: +10 per consecutive correct answer beyond
//	           the first, capped at +50.
//	incorrect  0 points, streak resets to 0.
//	ungraded   0 points, streak unchanged.
//
// Every counted submission increments pollsAttempted and adds its
// timeTaken to the rolling total.
const (
	basePoints      = 100
	speedPenaltyMax = 0.5
	streakBonusStep = 10
	streakBonusCap  = 50
)

// scoreCorrect computes the points for a correct answer. streak is the
// student's streak including this answer, so it is always >= 1.
func scoreCorrect(timeTaken float64, timerSeconds, streak int) int {
	speed := 1.0
	if timerSeconds > 0 {
		frac := timeTaken / float64(timerSeconds)
		if frac < 0 {
			frac = 0
		}
		if frac > 1 {
			frac = 1
		}
		speed = 1 - frac*speedPenaltyMax
	}
	points := int(math.Round(basePoints * speed))

	bonus := (streak - 1) * streakBonusStep
	if bonus > streakBonusCap {
		bonus = streakBonusCap
	}
	return points + bonus
}

// accuracyPercent returns correct/attempted as a percentage rounded to
// two decimals, 0 when nothing was attempted. 2 of 3 yields 66.67.
func accuracyPercent(correct, attempted int) float64 {
	if attempted == 0 {
		return 0
	}
	return math.Round(float64(correct)/float64(attempted)*10000) / 100
}

// meanTime returns the average seconds per attempt rounded to two
// decimals.
func meanTime(totalTime float64, attempted int) float64 {
	if attempted == 0 {
		return 0
	}
	return math.Round(totalTime/float64(attempted)*100) / 100
}
