package quickadd

import (
	"context"
	"errors"
	"testing"
	"time"

	"CashNudge/internal/calculator"
	"CashNudge/internal/ledger"
	"CashNudge/internal/model"
	"CashNudge/internal/reconcile"
	"CashNudge/internal/suggest"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var now = time.Date(2026, 10, 14, 15, 30, 0, 0, time.UTC)

func setup(t *testing.T) (*Handler, *reconcile.Service, *ledger.Memory) {
	t.Helper()
	mem := ledger.NewMemory()
	ctx := context.Background()
	if err := mem.UpsertUser(ctx, "u1", now.AddDate(0, 0, -10)); err != nil {
		t.Fatal(err)
	}
	err := mem.InsertTransaction(ctx, model.Transaction{
		ID:        "w1",
		UserID:    "u1",
		Amount:    decimal.NewFromInt(5000),
		Direction: model.DirectionDebit,
		Role:      model.RoleWithdrawal,
		Tags:      []string{model.TagCashWithdrawal},
		Timestamp: now.AddDate(0, 0, -5),
	})
	if err != nil {
		t.Fatal(err)
	}

	svc := reconcile.NewService(mem, calculator.DefaultRules(), 30, suggest.NewGenerator(suggest.DefaultOptions()))
	svc.Now = func() time.Time { return now }
	h := NewHandler(mem, svc, zerolog.Nop())
	h.Now = func() time.Time { return now }
	return h, svc, mem
}

func TestQuickAdd_ReducesUntracked(t *testing.T) {
	h, svc, mem := setup(t)
	ctx := context.Background()

	before, err := svc.Position(ctx, mem, "u1", now, 0)
	if err != nil {
		t.Fatal(err)
	}

	res, err := h.QuickAdd(ctx, Request{UserID: "u1", Amount: decimal.NewFromInt(500), Subcategory: "  Groceries "})
	if err != nil {
		t.Fatal(err)
	}
	if res.Message != "Logged 500.00 under groceries" {
		t.Errorf("Message = %q", res.Message)
	}
	if res.TransactionID == "" {
		t.Error("empty transaction id")
	}

	after, err := svc.Position(ctx, mem, "u1", now, 0)
	if err != nil {
		t.Fatal(err)
	}
	diff := before.EstimatedUntrackedCash.Sub(after.EstimatedUntrackedCash)
	if !diff.Equal(decimal.NewFromInt(500)) {
		t.Errorf("untracked dropped by %s, want 500", diff)
	}

	spends, _ := mem.TransactionsByRole(ctx, "u1", model.RoleCashSpend, now.AddDate(0, 0, -1), now)
	if len(spends) != 1 {
		t.Fatalf("expected 1 cash spend, got %d", len(spends))
	}
	s := spends[0]
	if s.Source != Source || s.Category != "cash" || s.Subcategory != "groceries" || s.Direction != model.DirectionDebit {
		t.Errorf("stored spend = %+v", s)
	}
}

func TestQuickAdd_Validation(t *testing.T) {
	h, _, _ := setup(t)
	cases := []struct {
		name string
		req  Request
	}{
		{"zero amount", Request{UserID: "u1", Amount: decimal.Zero, Subcategory: "fuel"}},
		{"negative amount", Request{UserID: "u1", Amount: decimal.NewFromInt(-5), Subcategory: "fuel"}},
		{"empty subcategory", Request{UserID: "u1", Amount: decimal.NewFromInt(5), Subcategory: "   "}},
		{"bad characters", Request{UserID: "u1", Amount: decimal.NewFromInt(5), Subcategory: "fuel; drop"}},
		{"missing user", Request{Amount: decimal.NewFromInt(5), Subcategory: "fuel"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.QuickAdd(context.Background(), tc.req)
			if !errors.Is(err, model.ErrValidation) {
				t.Errorf("err = %v, want validation", err)
			}
		})
	}
}

func TestQuickAdd_UnknownUser(t *testing.T) {
	h, _, _ := setup(t)
	_, err := h.QuickAdd(context.Background(), Request{UserID: "ghost", Amount: decimal.NewFromInt(5), Subcategory: "fuel"})
	if !errors.Is(err, model.ErrNotFound) {
		t.Errorf("err = %v, want not found", err)
	}
}

func TestQuickAdd_ExplicitDate(t *testing.T) {
	h, _, mem := setup(t)
	when := now.AddDate(0, 0, -3)
	if _, err := h.QuickAdd(context.Background(), Request{UserID: "u1", Amount: decimal.NewFromInt(80), Subcategory: "tea", Date: &when}); err != nil {
		t.Fatal(err)
	}
	spends, _ := mem.TransactionsByRole(context.Background(), "u1", model.RoleCashSpend, when, when)
	if len(spends) != 1 {
		t.Errorf("expected spend at %v, got %d", when, len(spends))
	}
}

func TestAcknowledge_SuppressesCycle(t *testing.T) {
	h, svc, mem := setup(t)
	ctx := context.Background()

	res, err := h.Acknowledge(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Recorded || res.CycleWithdrawalAt == nil {
		t.Fatalf("Acknowledge = %+v, want recorded", res)
	}

	pos, err := svc.Position(ctx, mem, "u1", now, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !pos.Acknowledged || pos.EligibleForNudge {
		t.Errorf("position after ack: acknowledged=%v eligible=%v", pos.Acknowledged, pos.EligibleForNudge)
	}

	again, err := h.Acknowledge(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if again.Recorded {
		t.Error("second acknowledgement of the same cycle was recorded")
	}

	// A new withdrawal starts a new cycle.
	err = mem.InsertTransaction(ctx, model.Transaction{
		ID: "w2", UserID: "u1", Amount: decimal.NewFromInt(2000),
		Role: model.RoleWithdrawal, Timestamp: now.Add(-time.Hour),
	})
	if err != nil {
		t.Fatal(err)
	}
	pos, _ = svc.Position(ctx, mem, "u1", now, 0)
	if pos.Acknowledged {
		t.Error("new withdrawal still reported as acknowledged")
	}
}

func TestAcknowledge_NoWithdrawal(t *testing.T) {
	mem := ledger.NewMemory()
	if err := mem.UpsertUser(context.Background(), "u2", now); err != nil {
		t.Fatal(err)
	}
	svc := reconcile.NewService(mem, calculator.DefaultRules(), 30, suggest.NewGenerator(suggest.Options{}))
	h := NewHandler(mem, svc, zerolog.Nop())

	res, err := h.Acknowledge(context.Background(), "u2")
	if err != nil {
		t.Fatal(err)
	}
	if res.Recorded {
		t.Error("acknowledgement recorded without a withdrawal")
	}
	ack, _ := mem.LatestAcknowledgement(context.Background(), "u2")
	if ack != nil {
		t.Errorf("stored acknowledgement %+v", ack)
	}
}
