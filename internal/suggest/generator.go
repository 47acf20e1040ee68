// Package suggest ranks likely cash expenses from a user's spend history.
package suggest

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
	"unicode"

	"CashNudge/internal/calculator"
	"CashNudge/internal/ledger"
	"CashNudge/internal/model"
)

// Options tunes the generator.
type Options struct {
	LookbackDays   int
	RoutineBonus   float64 // added to the base weight of 1.0 for same-weekday spends
	MaxSuggestions int
}

// DefaultOptions returns a 90-day window, a 0.5 routine bonus and 4 results.
func DefaultOptions() Options {
	return Options{LookbackDays: 90, RoutineBonus: 0.5, MaxSuggestions: 4}
}

const (
	baseWeight  = 1.0
	tieEpsilon  = 1e-12
	unnamedBand = "uncategorized"
)

type group struct {
	key     string
	samples []calculator.Sample
	weight  float64
}

// Generate ranks subcategories of history by weighted frequency relative to
// now. It is pure; history should already be restricted to cash spends in
// the lookback window.
func Generate(history []model.Transaction, now time.Time, opts Options) []model.Suggestion {
	if len(history) == 0 {
		return []model.Suggestion{}
	}

	groups := make(map[string]*group)
	total := 0.0
	for _, t := range history {
		key := normalize(t.Subcategory)
		w := weight(t, now, opts.RoutineBonus)
		g, ok := groups[key]
		if !ok {
			g = &group{key: key}
			groups[key] = g
		}
		g.samples = append(g.samples, calculator.Sample{Amount: t.Amount, Weight: w})
		g.weight += w
		total += w
	}
	if total <= 0 {
		return []model.Suggestion{}
	}

	out := make([]model.Suggestion, 0, len(groups))
	for _, g := range groups {
		if g.weight <= 0 {
			continue
		}
		p25, p50, p75, err := calculator.Quartiles(g.samples)
		if err != nil {
			continue
		}
		out = append(out, model.Suggestion{
			Label:         Label(g.key),
			Subcategory:   g.key,
			TypicalAmount: p50,
			AmountRange:   model.AmountRange{Low: p25, High: p75},
			Probability:   clamp01(g.weight / total),
			SampleCount:   len(g.samples),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if math.Abs(a.Probability-b.Probability) > tieEpsilon {
			return a.Probability > b.Probability
		}
		if a.SampleCount != b.SampleCount {
			return a.SampleCount > b.SampleCount
		}
		return a.Subcategory < b.Subcategory
	})

	if opts.MaxSuggestions > 0 && len(out) > opts.MaxSuggestions {
		out = out[:opts.MaxSuggestions]
	}
	return out
}

// Generator reads cash-spend history from the ledger and ranks it.
type Generator struct {
	Options Options
}

// NewGenerator creates a Generator; zero fields fall back to defaults.
func NewGenerator(opts Options) *Generator {
	def := DefaultOptions()
	if opts.LookbackDays <= 0 {
		opts.LookbackDays = def.LookbackDays
	}
	if opts.MaxSuggestions <= 0 {
		opts.MaxSuggestions = def.MaxSuggestions
	}
	if opts.RoutineBonus < 0 {
		opts.RoutineBonus = 0
	}
	return &Generator{Options: opts}
}

// Suggest returns up to MaxSuggestions ranked suggestions for userID.
func (g *Generator) Suggest(ctx context.Context, r ledger.Reader, userID string, now time.Time) ([]model.Suggestion, error) {
	since := now.AddDate(0, 0, -g.Options.LookbackDays)
	history, err := r.TransactionsByRole(ctx, userID, model.RoleCashSpend, since, now)
	if err != nil {
		return nil, fmt.Errorf("load spend history: %w", err)
	}
	return Generate(history, now, g.Options), nil
}

func weight(t model.Transaction, now time.Time, bonus float64) float64 {
	w := baseWeight
	if t.Timestamp.In(now.Location()).Weekday() == now.Weekday() {
		w += bonus
	}
	return w
}

func normalize(sub string) string {
	s := strings.ToLower(strings.TrimSpace(sub))
	if s == "" {
		return unnamedBand
	}
	return s
}

// Label turns a subcategory key like "street_food" into "Street food".
func Label(key string) string {
	s := strings.ReplaceAll(key, "_", " ")
	r := []rune(s)
	if len(r) == 0 {
		return s
	}
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
