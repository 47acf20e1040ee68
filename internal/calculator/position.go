package calculator

import (
	"time"

	"CashNudge/internal/model"

	"github.com/shopspring/decimal"
)

// Rules controls nudge eligibility.
type Rules struct {
	Threshold decimal.Decimal // minimum untracked cash
	MinDays   int             // minimum whole days since the last withdrawal
}

// DefaultRules returns threshold 1000 and a three-day grace period.
func DefaultRules() Rules {
	return Rules{Threshold: decimal.NewFromInt(1000), MinDays: 3}
}

// PositionInput is everything the position depends on. Withdrawals and
// Spends are assumed to be pre-filtered to the lookback window.
type PositionInput struct {
	UserID      string
	WindowDays  int
	Now         time.Time
	Withdrawals []model.Transaction
	Spends      []model.Transaction
	Ack         *model.Acknowledgement
}

// Untracked returns max(0, withdrawn - spent).
func Untracked(withdrawn, spent decimal.Decimal) decimal.Decimal {
	diff := withdrawn.Sub(spent)
	if diff.IsNegative() {
		return decimal.Zero
	}
	return diff
}

// Sum adds up transaction amounts.
func Sum(txns []model.Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, t := range txns {
		total = total.Add(t.Amount)
	}
	return total
}

// DaysBetween returns whole 24h periods from since to now, never negative.
func DaysBetween(since, now time.Time) int {
	d := now.Sub(since)
	if d < 0 {
		return 0
	}
	return int(d / (24 * time.Hour))
}

// Position builds the reconciliation snapshot.
func Position(in PositionInput, rules Rules) model.CashPosition {
	pos := model.CashPosition{
		UserID:           in.UserID,
		WindowDays:       in.WindowDays,
		EvaluatedAt:      in.Now,
		TotalWithdrawn:   Sum(in.Withdrawals),
		TrackedCashSpend: Sum(in.Spends),
	}
	pos.EstimatedUntrackedCash = Untracked(pos.TotalWithdrawn, pos.TrackedCashSpend)

	var last time.Time
	for _, w := range in.Withdrawals {
		if w.Timestamp.After(last) {
			last = w.Timestamp
		}
	}
	if last.IsZero() {
		return pos
	}

	pos.LastWithdrawalDate = &last
	pos.DaysSinceWithdrawal = DaysBetween(last, in.Now)
	pos.Acknowledged = in.Ack.Covers(last)
	pos.EligibleForNudge = !pos.Acknowledged &&
		pos.EstimatedUntrackedCash.GreaterThanOrEqual(rules.Threshold) &&
		pos.DaysSinceWithdrawal >= rules.MinDays
	return pos
}
