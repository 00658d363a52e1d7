// Package risk classifies institution-wide fee collection health.
package risk

import (
	"fmt"

	"github.com/Dan9191/fee-service/internal/models"
)

// Classification thresholds, in percent.
const (
	HealthyCollectionRate      = 95.0
	DangerPendingPercent       = 25.0
	DangerCollectionRate       = 70.0
	WarningPendingPercentMin   = 15.0
	WarningPendingPercentMax   = 25.0
	WarningCollectionRateMin   = 70.0
	WarningCollectionRateMax   = 85.0
	HealthyPendingPercentBelow = 15.0
	HealthyCollectionRateMin   = 85.0
	GrowthCollectionRateMin    = 80.0
)

// Icons per level
const (
	IconHealthy = "✅"
	IconWarning = "⚠️"
	IconDanger  = "🚨"
)

const growthNote = " Collections are up compared to last month."

// rule identifies which branch of the ordered evaluation matched.
type rule int

const (
	ruleAllClear rule = iota
	ruleDanger
	ruleWarning
	ruleHealthy
	ruleFallback
	ruleNoData
)

// Classifier is stateless and safe for concurrent use.
type Classifier struct{}

// NewClassifier creates a risk classifier
func NewClassifier() *Classifier {
	return &Classifier{}
}

// Aggregate sums clamped fee figures across students.
func Aggregate(students []models.StudentRecord) models.AggregateStats {
	var total, collected float64
	for _, s := range students {
		total += s.Total()
		collected += s.Paid()
	}
	return Stats(total, collected)
}

// Stats derives percentages from summed totals supplied by the caller.
func Stats(totalFees, collectedFees float64) models.AggregateStats {
	total := models.NonNegative(totalFees)
	collected := models.NonNegative(collectedFees)
	if collected > total {
		collected = total
	}
	stats := models.AggregateStats{
		TotalFees:     total,
		CollectedFees: collected,
		PendingFees:   total - collected,
	}
	if total > 0 {
		stats.CollectionRatePercent = collected / total * 100
		stats.PendingPercent = stats.PendingFees / total * 100
	}
	return stats
}

// Classify evaluates the threshold rules in order and renders the message
// for role. Unknown roles are rendered as admin. An institution with no fee
// data is healthy: there is no risk signal to report. It never fails.
func (c *Classifier) Classify(stats models.AggregateStats, trend models.CollectionTrend, role models.Role) models.RiskClassification {
	pending := stats.PendingPercent
	rate := stats.CollectionRatePercent
	r := evaluate(pending, rate)
	if stats.TotalFees <= 0 {
		r = ruleNoData
	}

	level := models.RiskHealthy
	icon := IconHealthy
	switch r {
	case ruleDanger:
		level, icon = models.RiskDanger, IconDanger
	case ruleWarning:
		level, icon = models.RiskWarning, IconWarning
	}

	var msg string
	if role == models.RoleStaff {
		msg = staffMessage(level)
	} else {
		msg = adminMessage(r, pending, rate)
	}
	if trend.Growing() && rate >= GrowthCollectionRateMin {
		msg += growthNote
	}

	return models.RiskClassification{Level: level, Icon: icon, Message: msg}
}

func evaluate(pending, rate float64) rule {
	switch {
	case pending <= 0 && rate >= HealthyCollectionRate:
		return ruleAllClear
	case pending > DangerPendingPercent || rate < DangerCollectionRate:
		return ruleDanger
	case pending >= WarningPendingPercentMin && pending <= WarningPendingPercentMax &&
		rate >= WarningCollectionRateMin && rate <= WarningCollectionRateMax:
		return ruleWarning
	case pending < HealthyPendingPercentBelow && rate >= HealthyCollectionRateMin:
		return ruleHealthy
	}
	return ruleFallback
}

func adminMessage(r rule, pending, rate float64) string {
	switch r {
	case ruleAllClear:
		return fmt.Sprintf("All fees are up to date. Collection rate stands at %.1f%%.", rate)
	case ruleDanger:
		return fmt.Sprintf("Collections at risk: %.1f%% of fees are pending and the collection rate is %.1f%%. Prioritise follow-ups with overdue guardians.", pending, rate)
	case ruleWarning:
		return fmt.Sprintf("Collections are stable but pending dues are increasing (%.1f%% pending).", pending)
	case ruleHealthy:
		return fmt.Sprintf("Fee collection performance is healthy at %.1f%%.", rate)
	case ruleNoData:
		return "No fee records yet. Nothing to collect."
	}
	return "No significant collection risks detected."
}

func staffMessage(level models.RiskLevel) string {
	switch level {
	case models.RiskDanger:
		return "Urgent: contact guardians with overdue fees today."
	case models.RiskWarning:
		return "Monitor pending dues closely this week."
	}
	return "Maintain consistency in fee follow-ups."
}
