package service

import "testing"

func TestScoreCorrectSpeedScaling(t *testing.T) {
	tests := []struct {
		name         string
		timeTaken    float64
		timerSeconds int
		streak       int
		want         int
	}{
		{"instant answer keeps full base", 0, 30, 1, 100},
		{"answer at deadline keeps half", 30, 30, 1, 50},
		{"midpoint answer", 15, 30, 1, 75},
		{"untimed poll always scores full base", 42, 0, 1, 100},
		{"time beyond the timer clamps to half", 90, 30, 1, 50},
		{"negative time clamps to full", -5, 30, 1, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := scoreCorrect(tt.timeTaken, tt.timerSeconds, tt.streak)
			if got != tt.want {
				t.Fatalf("scoreCorrect(%v, %d, %d) = %d, want %d",
					tt.timeTaken, tt.timerSeconds, tt.streak, got, tt.want)
			}
		})
	}
}

func TestScoreCorrectStreakBonus(t *testing.T) {
	// Bonus is +10 per consecutive correct beyond the first, capped at +50.
	tests := []struct {
		streak int
		want   int
	}{
		{1, 100},
		{2, 110},
		{3, 120},
		{6, 150},
		{7, 150},  // cap
		{20, 150}, // still capped
	}

	for _, tt := range tests {
		got := scoreCorrect(0, 0, tt.streak)
		if got != tt.want {
			t.Fatalf("streak %d: got %d points, want %d", tt.streak, got, tt.want)
		}
	}
}

func TestAccuracyPercent(t *testing.T) {
	tests := []struct {
		correct, attempted int
		want               float64
	}{
		{0, 0, 0},
		{3, 3, 100},
		{0, 4, 0},
		{2, 3, 66.67},
		{1, 3, 33.33},
		{1, 2, 50},
	}

	for _, tt := range tests {
		got := accuracyPercent(tt.correct, tt.attempted)
		if got != tt.want {
			t.Fatalf("accuracyPercent(%d, %d) = %v, want %v", tt.correct, tt.attempted, got, tt.want)
		}
	}
}

func TestMeanTime(t *testing.T) {
	if got := meanTime(0, 0); got != 0 {
		t.Fatalf("meanTime with no attempts = %v, want 0", got)
	}
	if got := meanTime(10, 3); got != 3.33 {
		t.Fatalf("meanTime(10, 3) = %v, want 3.33", got)
	}
	if got := meanTime(12.5, 5); got != 2.5 {
		t.Fatalf("meanTime(12.5, 5) = %v, want 2.5", got)
	}
}
