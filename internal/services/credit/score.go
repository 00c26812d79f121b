// Package credit derives a user's credit score from balance and activity.
// The score is never adjusted incrementally; callers recompute it from the
// current inputs every time one of them changes.
package credit

import (
	"github.com/shopspring/decimal"
)

const (
	MinScore  = 300
	MaxScore  = 850
	BaseScore = 600

	pointsPerTransaction = 10
	penaltyPerFraudLog   = 50
)

// Score labels
const (
	LabelExcellent = "Excellent"
	LabelGood      = "Good"
	LabelFair      = "Fair"
	LabelPoor      = "Poor"
)

var balanceDivisor = decimal.NewFromInt(10)

// Score returns clamp(300, 850, round(600 + balance/10 + 10*txCount - 50*fraudCount)).
func Score(balance decimal.Decimal, txCount, fraudCount int64) int {
	raw := decimal.NewFromInt(BaseScore).
		Add(balance.Div(balanceDivisor)).
		Add(decimal.NewFromInt(pointsPerTransaction * txCount)).
		Sub(decimal.NewFromInt(penaltyPerFraudLog * fraudCount)).
		Round(0)

	switch {
	case raw.LessThan(decimal.NewFromInt(MinScore)):
		return MinScore
	case raw.GreaterThan(decimal.NewFromInt(MaxScore)):
		return MaxScore
	default:
		return int(raw.IntPart())
	}
}

// Label buckets a score for display.
func Label(score int) string {
	switch {
	case score >= 750:
		return LabelExcellent
	case score >= 650:
		return LabelGood
	case score >= 550:
		return LabelFair
	default:
		return LabelPoor
	}
}
