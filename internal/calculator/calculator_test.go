package calculator

import (
	"testing"
	"time"

	"CashNudge/internal/model"

	"github.com/shopspring/decimal"
)

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func txn(amount int64, at time.Time) model.Transaction {
	return model.Transaction{Amount: dec(amount), Timestamp: at}
}

func TestUntracked(t *testing.T) {
	tests := []struct {
		withdrawn, spent, want int64
	}{
		{10000, 2000, 8000},
		{500, 2000, 0},
		{0, 0, 0},
		{2000, 2000, 0},
	}
	for _, tt := range tests {
		got := Untracked(dec(tt.withdrawn), dec(tt.spent))
		if !got.Equal(dec(tt.want)) {
			t.Errorf("Untracked(%d, %d) = %s, want %d", tt.withdrawn, tt.spent, got, tt.want)
		}
	}
}

func TestDaysBetween(t *testing.T) {
	base := time.Date(2026, 5, 1, 22, 0, 0, 0, time.UTC)
	if got := DaysBetween(base, base.Add(71*time.Hour)); got != 2 {
		t.Errorf("71h = %d days, want 2", got)
	}
	if got := DaysBetween(base, base.Add(72*time.Hour)); got != 3 {
		t.Errorf("72h = %d days, want 3", got)
	}
	if got := DaysBetween(base, base.Add(-time.Hour)); got != 0 {
		t.Errorf("future withdrawal = %d days, want 0", got)
	}
}

func TestPosition_EligibleAfterGracePeriod(t *testing.T) {
	now := time.Date(2026, 5, 10, 21, 0, 0, 0, time.UTC)
	in := PositionInput{
		UserID:      "u1",
		WindowDays:  30,
		Now:         now,
		Withdrawals: []model.Transaction{txn(4000, now.AddDate(0, 0, -12)), txn(6000, now.AddDate(0, 0, -5))},
		Spends:      []model.Transaction{txn(2000, now.AddDate(0, 0, -4))},
	}
	pos := Position(in, DefaultRules())

	if !pos.TotalWithdrawn.Equal(dec(10000)) {
		t.Errorf("TotalWithdrawn = %s, want 10000", pos.TotalWithdrawn)
	}
	if !pos.EstimatedUntrackedCash.Equal(dec(8000)) {
		t.Errorf("EstimatedUntrackedCash = %s, want 8000", pos.EstimatedUntrackedCash)
	}
	if pos.LastWithdrawalDate == nil || !pos.LastWithdrawalDate.Equal(now.AddDate(0, 0, -5)) {
		t.Errorf("LastWithdrawalDate = %v, want latest withdrawal", pos.LastWithdrawalDate)
	}
	if pos.DaysSinceWithdrawal != 5 {
		t.Errorf("DaysSinceWithdrawal = %d, want 5", pos.DaysSinceWithdrawal)
	}
	if !pos.EligibleForNudge {
		t.Error("expected eligible position")
	}
}

func TestPosition_NotEligibleWithinGracePeriod(t *testing.T) {
	now := time.Date(2026, 5, 10, 21, 0, 0, 0, time.UTC)
	pos := Position(PositionInput{
		Now:         now,
		Withdrawals: []model.Transaction{txn(50000, now.AddDate(0, 0, -2))},
	}, DefaultRules())

	if pos.DaysSinceWithdrawal != 2 {
		t.Fatalf("DaysSinceWithdrawal = %d, want 2", pos.DaysSinceWithdrawal)
	}
	if pos.EligibleForNudge {
		t.Error("position must not be eligible before MinDays even above threshold")
	}
}

func TestPosition_BelowThreshold(t *testing.T) {
	now := time.Date(2026, 5, 10, 21, 0, 0, 0, time.UTC)
	pos := Position(PositionInput{
		Now:         now,
		Withdrawals: []model.Transaction{txn(1500, now.AddDate(0, 0, -6))},
		Spends:      []model.Transaction{txn(600, now.AddDate(0, 0, -3))},
	}, DefaultRules())
	if pos.EligibleForNudge {
		t.Errorf("untracked %s is below threshold, want not eligible", pos.EstimatedUntrackedCash)
	}

	exact := Position(PositionInput{
		Now:         now,
		Withdrawals: []model.Transaction{txn(1000, now.AddDate(0, 0, -3))},
	}, DefaultRules())
	if !exact.EligibleForNudge {
		t.Error("threshold and MinDays are inclusive")
	}
}

func TestPosition_NoWithdrawal(t *testing.T) {
	now := time.Now()
	pos := Position(PositionInput{
		Now:    now,
		Spends: []model.Transaction{txn(300, now.AddDate(0, 0, -1))},
	}, DefaultRules())
	if pos.HasWithdrawal() || pos.EligibleForNudge {
		t.Errorf("no withdrawal: got HasWithdrawal=%v eligible=%v", pos.HasWithdrawal(), pos.EligibleForNudge)
	}
	if !pos.EstimatedUntrackedCash.IsZero() {
		t.Errorf("EstimatedUntrackedCash = %s, want 0", pos.EstimatedUntrackedCash)
	}
}

func TestPosition_AcknowledgedCycle(t *testing.T) {
	now := time.Date(2026, 5, 10, 21, 0, 0, 0, time.UTC)
	w := now.AddDate(0, 0, -6)
	in := PositionInput{
		Now:         now,
		Withdrawals: []model.Transaction{txn(5000, w)},
		Ack:         &model.Acknowledgement{CycleWithdrawalAt: w, AcknowledgedAt: now.AddDate(0, 0, -1)},
	}
	pos := Position(in, DefaultRules())
	if !pos.Acknowledged || pos.EligibleForNudge {
		t.Errorf("acknowledged cycle: Acknowledged=%v Eligible=%v", pos.Acknowledged, pos.EligibleForNudge)
	}

	in.Withdrawals = append(in.Withdrawals, txn(3000, now.AddDate(0, 0, -4)))
	pos = Position(in, DefaultRules())
	if pos.Acknowledged || !pos.EligibleForNudge {
		t.Errorf("new withdrawal should reopen the cycle: Acknowledged=%v Eligible=%v", pos.Acknowledged, pos.EligibleForNudge)
	}
}

func TestWeightedPercentile_SingleSample(t *testing.T) {
	samples := []Sample{{Amount: dec(450), Weight: 1.5}}
	p25, p50, p75, err := Quartiles(samples)
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range []decimal.Decimal{p25, p50, p75} {
		if !p.Equal(dec(450)) {
			t.Errorf("single sample percentile = %s, want 450", p)
		}
	}
}

func TestWeightedPercentile_Weighted(t *testing.T) {
	samples := []Sample{
		{Amount: dec(300), Weight: 1},
		{Amount: dec(100), Weight: 1},
		{Amount: dec(200), Weight: 1},
		{Amount: dec(400), Weight: 1},
	}
	p25, p50, p75, err := Quartiles(samples)
	if err != nil {
		t.Fatal(err)
	}
	if !p25.Equal(dec(100)) || !p50.Equal(dec(200)) || !p75.Equal(dec(300)) {
		t.Errorf("quartiles = %s/%s/%s, want 100/200/300", p25, p50, p75)
	}

	// Heavy weight on the largest amount pulls the median up.
	samples[3].Weight = 5
	p50, err = WeightedPercentile(samples, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	if !p50.Equal(dec(400)) {
		t.Errorf("weighted median = %s, want 400", p50)
	}
}

func TestWeightedPercentile_Errors(t *testing.T) {
	if _, err := WeightedPercentile(nil, 0.5); err == nil {
		t.Error("expected error for empty samples")
	}
	if _, err := WeightedPercentile([]Sample{{Amount: dec(1), Weight: 0}}, 0.5); err == nil {
		t.Error("expected error when all weights are zero")
	}
	if _, err := WeightedPercentile([]Sample{{Amount: dec(1), Weight: 1}}, 1.5); err == nil {
		t.Error("expected error for q > 1")
	}
}
