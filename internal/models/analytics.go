package models

// AggregateStats represents institution-wide fee collection figures
type AggregateStats struct {
	TotalFees             float64 `json:"total_fees"`
	CollectedFees         float64 `json:"collected_fees"`
	PendingFees           float64 `json:"pending_fees"`
	CollectionRatePercent float64 `json:"collection_rate_percent"`
	PendingPercent        float64 `json:"pending_percent"`
}

// CollectionTrend compares payments received this month with last month
type CollectionTrend struct {
	CurrentMonthCollected float64 `json:"current_month_collected"`
	LastMonthCollected    float64 `json:"last_month_collected"`
}

// Growing reports whether collections increased month over month.
func (t CollectionTrend) Growing() bool {
	return t.CurrentMonthCollected > t.LastMonthCollected
}

// RiskLevel is the institution's collection-risk bucket
type RiskLevel string

const (
	RiskHealthy RiskLevel = "healthy"
	RiskWarning RiskLevel = "warning"
	RiskDanger  RiskLevel = "danger"
)

// Role selects how a risk message is rendered
type Role string

const (
	RoleAdmin Role = "admin"
	RoleStaff Role = "staff"
)

// RiskClassification is the rendered dashboard risk banner
type RiskClassification struct {
	Level   RiskLevel `json:"level"`
	Icon    string    `json:"icon"`
	Message string    `json:"message"`
}
