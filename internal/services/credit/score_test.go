package credit

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestScore(t *testing.T) {
	tests := []struct {
		name       string
		balance    string
		txCount    int64
		fraudCount int64
		want       int
	}{
		{"new account", "0", 0, 0, 600},
		{"balance adds a tenth", "1000", 0, 0, 700},
		{"transactions add ten each", "0", 3, 0, 630},
		{"fraud logs cost fifty each", "0", 0, 2, 500},
		{"mixed activity", "100", 2, 1, 580},
		{"rounds half away from zero", "5", 0, 0, 601},
		{"rounds down below half", "4.9", 0, 0, 600},
		{"clamped high", "1000000", 50, 0, MaxScore},
		{"clamped low", "0", 0, 100, MinScore},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Score(decimal.RequireFromString(tt.balance), tt.txCount, tt.fraudCount)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestScore_AlwaysInRange(t *testing.T) {
	balances := []string{"-1000000000", "-1", "0", "0.01", "2500", "99999999999"}
	counts := []int64{0, 1, 10, 1000, math.MaxInt32}

	for _, b := range balances {
		for _, tx := range counts {
			for _, fraud := range counts {
				s := Score(decimal.RequireFromString(b), tx, fraud)
				assert.GreaterOrEqual(t, s, MinScore)
				assert.LessOrEqual(t, s, MaxScore)
			}
		}
	}
}

func TestScore_Idempotent(t *testing.T) {
	balance := decimal.RequireFromString("1234.56")
	assert.Equal(t, Score(balance, 7, 1), Score(balance, 7, 1))
}

func TestLabel(t *testing.T) {
	assert.Equal(t, LabelExcellent, Label(850))
	assert.Equal(t, LabelExcellent, Label(750))
	assert.Equal(t, LabelGood, Label(749))
	assert.Equal(t, LabelGood, Label(650))
	assert.Equal(t, LabelFair, Label(550))
	assert.Equal(t, LabelPoor, Label(549))
	assert.Equal(t, LabelPoor, Label(300))
}
