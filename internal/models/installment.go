package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Installment describes one scheduled payment obligation. It is derived on
// demand and never persisted.
type Installment struct {
	Sequence   int             `json:"sequence"`
	Label      string          `json:"label"`
	DueDate    time.Time       `json:"due_date"`
	Amount     decimal.Decimal `json:"amount"`
	Cumulative decimal.Decimal `json:"cumulative"`
}
