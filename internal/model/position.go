package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// CashPosition is the reconciliation snapshot for one user. It is derived on
// every read and never persisted, except as part of a notification payload.
type CashPosition struct {
	UserID                 string          `json:"user_id"`
	WindowDays             int             `json:"window_days"`
	EvaluatedAt            time.Time       `json:"evaluated_at"`
	TotalWithdrawn         decimal.Decimal `json:"total_withdrawn"`
	TrackedCashSpend       decimal.Decimal `json:"tracked_cash_spend"`
	EstimatedUntrackedCash decimal.Decimal `json:"estimated_untracked_cash"`
	LastWithdrawalDate     *time.Time      `json:"last_withdrawal_date,omitempty"`
	DaysSinceWithdrawal    int             `json:"days_since_withdrawal"`
	Acknowledged           bool            `json:"acknowledged"`
	EligibleForNudge       bool            `json:"eligible_for_nudge"`
}

// HasWithdrawal reports whether any withdrawal fell inside the window.
func (p CashPosition) HasWithdrawal() bool {
	return p.LastWithdrawalDate != nil
}

// Acknowledgement is a "still have cash" dismissal for one withdrawal cycle.
type Acknowledgement struct {
	ID                string    `json:"id"`
	UserID            string    `json:"user_id"`
	AcknowledgedAt    time.Time `json:"acknowledged_at"`
	CycleWithdrawalAt time.Time `json:"cycle_withdrawal_at"`
}

// Covers reports whether the acknowledgement dismisses the cycle started by
// a withdrawal at lastWithdrawal.
func (a *Acknowledgement) Covers(lastWithdrawal time.Time) bool {
	if a == nil {
		return false
	}
	return !a.CycleWithdrawalAt.Before(lastWithdrawal)
}
