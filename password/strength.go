package password

import "unicode/utf8"

// Level buckets a strength score.
type Level string

const (
	LevelWeak       Level = "weak"
	LevelModerate   Level = "moderate"
	LevelStrong     Level = "strong"
	LevelVeryStrong Level = "very_strong"
)

const (
	maxLengthPoints = 25
	pointsPerClass  = 15
	maxUniquePoints = 20
)

// StrengthReport is the outcome of [Strength].
type StrengthReport struct {
	Score    int      `json:"score"`
	Level    Level    `json:"level"`
	Feedback []string `json:"feedback,omitempty"`
}

// Strength rates pw from 0 to 100: two points per character up to 25,
// 15 per character class present, and one per distinct character up to 20.
func Strength(pw string) StrengthReport {
	n := utf8.RuneCountInString(pw)
	c := classify(pw)

	unique := make(map[rune]struct{}, n)
	for _, r := range pw {
		unique[r] = struct{}{}
	}

	score := min(n*2, maxLengthPoints) + c.count()*pointsPerClass + min(len(unique), maxUniquePoints)
	score = min(score, 100)

	var feedback []string
	if n < 12 {
		feedback = append(feedback, "use at least 12 characters")
	}
	if !c.upper {
		feedback = append(feedback, "add uppercase letters")
	}
	if !c.lower {
		feedback = append(feedback, "add lowercase letters")
	}
	if !c.digit {
		feedback = append(feedback, "add numbers")
	}
	if !c.special {
		feedback = append(feedback, "add special characters")
	}
	if n > 0 && len(unique)*2 < n {
		feedback = append(feedback, "avoid repeated characters")
	}

	return StrengthReport{Score: score, Level: levelFor(score), Feedback: feedback}
}

func levelFor(score int) Level {
	switch {
	case score < 30:
		return LevelWeak
	case score < 60:
		return LevelModerate
	case score < 80:
		return LevelStrong
	default:
		return LevelVeryStrong
	}
}
