// Package reconcile computes cash positions from the ledger and serves the
// summary read path.
package reconcile

import (
	"context"
	"fmt"
	"time"

	"CashNudge/internal/calculator"
	"CashNudge/internal/ledger"
	"CashNudge/internal/model"
	"CashNudge/internal/suggest"
)

// MaxLookbackDays bounds a caller-supplied lookback override.
const MaxLookbackDays = 365

// Summary is the response of the summary read path.
type Summary struct {
	Position    model.CashPosition `json:"position"`
	Suggestions []model.Suggestion `json:"suggestions"`
}

// Service computes positions fresh on every call; nothing is cached.
type Service struct {
	Store        ledger.Store
	Rules        calculator.Rules
	LookbackDays int
	Suggest      *suggest.Generator
	Now          func() time.Time
}

// NewService wires a Service with the given rules and windows.
func NewService(store ledger.Store, rules calculator.Rules, lookbackDays int, gen *suggest.Generator) *Service {
	if lookbackDays <= 0 {
		lookbackDays = 30
	}
	return &Service{
		Store:        store,
		Rules:        rules,
		LookbackDays: lookbackDays,
		Suggest:      gen,
		Now:          time.Now,
	}
}

// Position reads the window ending at now through r, which may be a
// transaction-scoped view.
func (s *Service) Position(ctx context.Context, r ledger.Reader, userID string, now time.Time, lookbackDays int) (model.CashPosition, error) {
	if lookbackDays <= 0 {
		lookbackDays = s.LookbackDays
	}
	since := now.AddDate(0, 0, -lookbackDays)

	withdrawals, err := r.TransactionsByRole(ctx, userID, model.RoleWithdrawal, since, now)
	if err != nil {
		return model.CashPosition{}, fmt.Errorf("load withdrawals: %w", err)
	}
	spends, err := r.TransactionsByRole(ctx, userID, model.RoleCashSpend, since, now)
	if err != nil {
		return model.CashPosition{}, fmt.Errorf("load cash spends: %w", err)
	}
	ack, err := r.LatestAcknowledgement(ctx, userID)
	if err != nil {
		return model.CashPosition{}, fmt.Errorf("load acknowledgement: %w", err)
	}

	return calculator.Position(calculator.PositionInput{
		UserID:      userID,
		WindowDays:  lookbackDays,
		Now:         now,
		Withdrawals: withdrawals,
		Spends:      spends,
		Ack:         ack,
	}, s.Rules), nil
}

// Summary returns the current position and, when cash is unaccounted for,
// up to the configured number of suggestions. lookbackOverride of 0 uses
// the default window.
func (s *Service) Summary(ctx context.Context, userID string, lookbackOverride int) (Summary, error) {
	if lookbackOverride < 0 || lookbackOverride > MaxLookbackDays {
		return Summary{}, model.Validationf("lookback_days must be between 1 and %d", MaxLookbackDays)
	}
	if err := s.RequireUser(ctx, s.Store, userID); err != nil {
		return Summary{}, err
	}

	now := s.Now()
	pos, err := s.Position(ctx, s.Store, userID, now, lookbackOverride)
	if err != nil {
		return Summary{}, err
	}

	out := Summary{Position: pos, Suggestions: []model.Suggestion{}}
	if pos.EstimatedUntrackedCash.IsPositive() {
		out.Suggestions, err = s.Suggest.Suggest(ctx, s.Store, userID, now)
		if err != nil {
			return Summary{}, err
		}
	}
	return out, nil
}

// RequireUser returns model.ErrNotFound when userID was never seen.
func (s *Service) RequireUser(ctx context.Context, r ledger.Reader, userID string) error {
	ok, err := r.UserExists(ctx, userID)
	if err != nil {
		return err
	}
	if !ok {
		return model.NotFoundf("user %s", userID)
	}
	return nil
}
