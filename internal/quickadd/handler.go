// Package quickadd records user-entered cash spends and "still have cash"
// acknowledgements.
package quickadd

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"CashNudge/internal/ledger"
	"CashNudge/internal/model"
	"CashNudge/internal/reconcile"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	// Source marks transactions created through quick-add.
	Source   = "quick_add"
	category = "cash"
)

var subcategoryPattern = regexp.MustCompile(`^[a-z][a-z0-9_ ]{0,47}$`)

// Request is a quick-add submission.
type Request struct {
	UserID      string          `json:"-"`
	Amount      decimal.Decimal `json:"amount"`
	Subcategory string          `json:"subcategory"`
	Description string          `json:"description,omitempty"`
	Date        *time.Time      `json:"date,omitempty"`
}

// Result confirms a recorded spend.
type Result struct {
	TransactionID string `json:"transaction_id"`
	Message       string `json:"message"`
}

// AckResult reports what an acknowledgement did.
type AckResult struct {
	Recorded          bool       `json:"recorded"`
	CycleWithdrawalAt *time.Time `json:"cycle_withdrawal_at,omitempty"`
}

// Handler writes through the ledger. Positions is used to find the cycle an
// acknowledgement belongs to.
type Handler struct {
	Store     ledger.Store
	Positions *reconcile.Service
	Now       func() time.Time
	log       zerolog.Logger
}

// NewHandler creates a Handler.
func NewHandler(store ledger.Store, positions *reconcile.Service, log zerolog.Logger) *Handler {
	return &Handler{Store: store, Positions: positions, Now: time.Now, log: log}
}

// NormalizeSubcategory trims and lower-cases s and checks it against the
// allowed pattern.
func NormalizeSubcategory(s string) (string, error) {
	sub := strings.ToLower(strings.TrimSpace(s))
	if !subcategoryPattern.MatchString(sub) {
		return "", model.Validationf("subcategory %q is invalid", s)
	}
	return sub, nil
}

// QuickAdd records a cash spend. The next position read reflects it.
func (h *Handler) QuickAdd(ctx context.Context, req Request) (Result, error) {
	if req.UserID == "" {
		return Result{}, model.Validationf("user id is required")
	}
	if !req.Amount.IsPositive() {
		return Result{}, model.Validationf("amount must be greater than zero")
	}
	sub, err := NormalizeSubcategory(req.Subcategory)
	if err != nil {
		return Result{}, err
	}

	now := h.Now()
	at := now
	if req.Date != nil {
		at = *req.Date
	}

	t := model.Transaction{
		ID:          uuid.New().String(),
		UserID:      req.UserID,
		Amount:      req.Amount,
		Direction:   model.DirectionDebit,
		Category:    category,
		Subcategory: sub,
		Description: strings.TrimSpace(req.Description),
		Tags:        []string{model.TagCash, model.TagCashSpend},
		Role:        model.RoleCashSpend,
		Timestamp:   at,
		Source:      Source,
	}

	err = h.Store.WithTx(ctx, func(tx ledger.Tx) error {
		if err := h.Positions.RequireUser(ctx, tx, req.UserID); err != nil {
			return err
		}
		if err := tx.InsertTransaction(ctx, t); err != nil {
			return fmt.Errorf("insert cash spend: %w", err)
		}
		return tx.UpsertUser(ctx, req.UserID, now)
	})
	if err != nil {
		return Result{}, err
	}

	h.log.Info().Str("user_id", req.UserID).Str("transaction_id", t.ID).
		Str("amount", t.Amount.StringFixed(2)).Str("subcategory", sub).Msg("cash spend logged")
	return Result{
		TransactionID: t.ID,
		Message:       fmt.Sprintf("Logged %s under %s", t.Amount.StringFixed(2), sub),
	}, nil
}

// Acknowledge dismisses nudging for the user's current withdrawal cycle.
// With no withdrawal in the window nothing is written.
func (h *Handler) Acknowledge(ctx context.Context, userID string) (AckResult, error) {
	if userID == "" {
		return AckResult{}, model.Validationf("user id is required")
	}
	now := h.Now()

	var out AckResult
	err := h.Store.WithTx(ctx, func(tx ledger.Tx) error {
		if err := h.Positions.RequireUser(ctx, tx, userID); err != nil {
			return err
		}
		pos, err := h.Positions.Position(ctx, tx, userID, now, 0)
		if err != nil {
			return err
		}
		if !pos.HasWithdrawal() || pos.Acknowledged {
			out.CycleWithdrawalAt = pos.LastWithdrawalDate
			return nil
		}
		err = tx.InsertAcknowledgement(ctx, model.Acknowledgement{
			ID:                uuid.New().String(),
			UserID:            userID,
			AcknowledgedAt:    now,
			CycleWithdrawalAt: *pos.LastWithdrawalDate,
		})
		if err != nil {
			return fmt.Errorf("insert acknowledgement: %w", err)
		}
		out = AckResult{Recorded: true, CycleWithdrawalAt: pos.LastWithdrawalDate}
		return nil
	})
	if err != nil {
		return AckResult{}, err
	}
	if out.Recorded {
		h.log.Info().Str("user_id", userID).Time("cycle", *out.CycleWithdrawalAt).Msg("cash acknowledged")
	}
	return out, nil
}
