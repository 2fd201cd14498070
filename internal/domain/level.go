package domain

import (
	"fmt"
	"math"
)

// Level is the discrete rating picked when a ticket is accepted.
type Level string

const (
	LevelL1 Level = "L1"
	LevelL2 Level = "L2"
	LevelL3 Level = "L3"
	LevelL4 Level = "L4"
	LevelL5 Level = "L5"
)

// NoRating is displayed when a ticket or user has no rating yet.
const NoRating = "-"

var levelRatings = map[Level]float64{
	LevelL1: 0.2,
	LevelL2: 0.4,
	LevelL3: 0.6,
	LevelL4: 0.8,
	LevelL5: 1.0,
}

// Rating maps a level onto the backend's 0..1 scale. Unknown levels map to
// the L1 rating.
func (l Level) Rating() float64 {
	if rating, ok := levelRatings[l]; ok {
		return rating
	}
	return levelRatings[LevelL1]
}

// Score converts a backend rating to the 1..5 display scale. Values outside
// 0..1 are assumed to already be on the display scale.
func Score(rating float64) float64 {
	if rating >= 0 && rating <= 1 {
		return rating * 5
	}
	return rating
}

// LevelFromScore maps a 1..5 score to the nearest level. Halves round up.
func LevelFromScore(score float64) Level {
	n := int(math.Floor(score + 0.5))
	if n < 1 {
		n = 1
	}
	if n > 5 {
		n = 5
	}
	return Level(fmt.Sprintf("L%d", n))
}

// DisplayRating renders a score for the dashboard, or NoRating when zero.
func DisplayRating(score float64) string {
	if score <= 0 {
		return NoRating
	}
	return string(LevelFromScore(score))
}
