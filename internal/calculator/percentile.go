package calculator

import (
	"errors"
	"sort"

	"github.com/shopspring/decimal"
)

// Sample is one weighted observation.
type Sample struct {
	Amount decimal.Decimal
	Weight float64
}

const weightEpsilon = 1e-9

// WeightedPercentile returns the first amount, in ascending order, at which
// the cumulative weight reaches q of the total. The result is always one of
// the observed amounts. Samples with non-positive weight are ignored.
func WeightedPercentile(samples []Sample, q float64) (decimal.Decimal, error) {
	if q < 0 || q > 1 {
		return decimal.Zero, errors.New("percentile must be within [0, 1]")
	}

	sorted := make([]Sample, 0, len(samples))
	total := 0.0
	for _, s := range samples {
		if s.Weight <= 0 {
			continue
		}
		sorted = append(sorted, s)
		total += s.Weight
	}
	if len(sorted) == 0 {
		return decimal.Zero, errors.New("no weighted samples provided")
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Amount.LessThan(sorted[j].Amount) })

	target := q * total
	cum := 0.0
	for _, s := range sorted {
		cum += s.Weight
		if cum+weightEpsilon >= target {
			return s.Amount, nil
		}
	}
	return sorted[len(sorted)-1].Amount, nil
}

// Quartiles returns the weighted P25, P50 and P75.
func Quartiles(samples []Sample) (p25, p50, p75 decimal.Decimal, err error) {
	if p25, err = WeightedPercentile(samples, 0.25); err != nil {
		return
	}
	if p50, err = WeightedPercentile(samples, 0.50); err != nil {
		return
	}
	p75, err = WeightedPercentile(samples, 0.75)
	return
}
