// Package fraud flags suspicious activity and exposes a user's fraud log.
package fraud

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"safeflow/internal/models"
)

const FailedLoginDescription = "Failed login attempt"

// Transfer is what the detector sees of a transfer about to be applied.
type Transfer struct {
	Sender         *models.User
	Recipient      *models.User
	RecipientLabel string
	Amount         decimal.Decimal
}

// Pattern is one rule evaluated against every transfer.
type Pattern struct {
	Name     string
	Severity string
	Detect   func(Transfer) bool
}

type Detector struct {
	threshold decimal.Decimal
	patterns  []Pattern
}

// NewDetector flags transfers strictly above threshold.
func NewDetector(threshold decimal.Decimal) *Detector {
	d := &Detector{threshold: threshold}
	d.patterns = []Pattern{
		{
			Name:     "large_amount",
			Severity: models.SeverityHigh,
			Detect: func(t Transfer) bool {
				return t.Amount.GreaterThan(d.threshold)
			},
		},
	}
	return d
}

func (d *Detector) Threshold() decimal.Decimal {
	return d.threshold
}

// EvaluateTransfer returns at most one entry for the sender, however many
// patterns match; the entry takes the highest matching severity.
func (d *Detector) EvaluateTransfer(t Transfer) *models.FraudLog {
	var matched []string
	severity := ""
	for _, p := range d.patterns {
		if p.Detect(t) {
			matched = append(matched, p.Name)
			if severityRank(p.Severity) > severityRank(severity) {
				severity = p.Severity
			}
		}
	}
	if len(matched) == 0 {
		return nil
	}

	return &models.FraudLog{
		UserID:      t.Sender.ID,
		Description: fmt.Sprintf("High transfer amount: $%s to %s", t.Amount.StringFixed(2), t.RecipientLabel),
		Severity:    severity,
		Metadata: models.JSON{
			"patterns":     strings.Join(matched, ","),
			"amount":       t.Amount.String(),
			"recipient_id": t.Recipient.ID.String(),
		},
	}
}

// FailedLogin is recorded against an existing account whose password check
// failed.
func (d *Detector) FailedLogin(user *models.User) *models.FraudLog {
	return &models.FraudLog{
		UserID:      user.ID,
		Description: FailedLoginDescription,
		Severity:    models.SeverityMedium,
	}
}

func severityRank(s string) int {
	switch s {
	case models.SeverityHigh:
		return 3
	case models.SeverityMedium:
		return 2
	case models.SeverityLow:
		return 1
	default:
		return 0
	}
}
