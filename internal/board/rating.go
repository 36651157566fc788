package board

import (
	"fmt"
	"strings"
)

// BestRating is the lowest rating that counts as a best pick.
const BestRating = 3

// NoValue is shown for an NRFI game rated below one fireball.
const NoValue = "no value"

// Over/under sides as written by the 1-5 inning model.
const (
	SideOver  = "Over"
	SideUnder = "Under"
)

// Prediction outcomes written to the NRFI results table.
const (
	ResultHit  = "✅ HIT"
	ResultMiss = "❌ MISS"
)

// PendingRuns marks a 1-5 inning game that has not been played.
const PendingRuns = "Pending"

// FireballRating rates an NRFI probability given in percent. It returns
// zero below 45.
func FireballRating(prob float64) int {
	switch {
	case prob >= 70:
		return 5
	case prob >= 65:
		return 4
	case prob >= 55:
		return 3
	case prob >= 50:
		return 2
	case prob >= 45:
		return 1
	default:
		return 0
	}
}

// Confidence rates a 1-5 inning pick by how far the predicted runs sit from
// the target line on the predicted side. Any other side rates one.
func Confidence(side string, predicted, line float64) int {
	gap := predicted - line
	switch side {
	case SideOver:
		switch {
		case gap >= 1.5:
			return 5
		case gap >= 1.0:
			return 4
		case gap >= 0.5:
			return 3
		case gap >= 0.25:
			return 2
		}
	case SideUnder:
		switch {
		case gap <= -1.5:
			return 5
		case gap <= -1.0:
			return 4
		case gap <= -0.5:
			return 3
		case gap <= -0.25:
			return 2
		}
	}
	return 1
}

// Fireballs renders a rating as fireball emoji, or NoValue for zero.
func Fireballs(rating int) string {
	if rating <= 0 {
		return NoValue
	}
	return strings.Repeat("🔥", rating)
}

// IsBest reports whether rating qualifies as a best pick.
func IsBest(rating int) bool { return rating >= BestRating }

// Record is a win/loss tally.
type Record struct {
	Wins   int `json:"wins" yaml:"wins"`
	Losses int `json:"losses" yaml:"losses"`
}

// Total returns wins plus losses.
func (r Record) Total() int { return r.Wins + r.Losses }

// Pct returns the win fraction, or zero with no decided games.
func (r Record) Pct() float64 {
	if r.Total() == 0 {
		return 0
	}
	return float64(r.Wins) / float64(r.Total())
}

// String formats the record as "W-L (pct%)".
func (r Record) String() string {
	return fmt.Sprintf("%d-%d (%s)", r.Wins, r.Losses, percent(r.Pct()))
}

// Accuracy counts correct over/under calls among played games.
type Accuracy struct {
	Correct int `json:"correct" yaml:"correct"`
	Total   int `json:"total" yaml:"total"`
}

// Rate returns the correct fraction, or zero with no played games.
func (a Accuracy) Rate() float64 {
	if a.Total == 0 {
		return 0
	}
	return float64(a.Correct) / float64(a.Total)
}

func (a Accuracy) String() string {
	return fmt.Sprintf("%s (%d/%d)", percent(a.Rate()), a.Correct, a.Total)
}

func percent(f float64) string {
	return fmt.Sprintf("%.2f%%", f*100)
}
