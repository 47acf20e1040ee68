package dispatcher

import (
	"context"
	"errors"
	"testing"
	"time"

	"CashNudge/internal/ledger"
	"CashNudge/internal/model"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func testDispatcher(t *testing.T) *Dispatcher {
	t.Helper()
	return New(time.FixedZone("IST", 5*3600+1800), zerolog.Nop())
}

func position(untracked int64) model.CashPosition {
	w := time.Date(2026, 10, 9, 10, 0, 0, 0, time.UTC)
	return model.CashPosition{
		UserID:                 "u1",
		WindowDays:             30,
		TotalWithdrawn:         decimal.NewFromInt(untracked),
		EstimatedUntrackedCash: decimal.NewFromInt(untracked),
		LastWithdrawalDate:     &w,
		DaysSinceWithdrawal:    5,
		EligibleForNudge:       true,
	}
}

func create(t *testing.T, d *Dispatcher, mem *ledger.Memory, now time.Time, pos model.CashPosition, sugg []model.Suggestion) (model.Notification, model.Outcome) {
	t.Helper()
	var (
		n   model.Notification
		out model.Outcome
	)
	err := mem.WithTx(context.Background(), func(tx ledger.Tx) error {
		var err error
		n, out, err = d.Create(context.Background(), tx, "u1", pos, sugg, now)
		return err
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return n, out
}

func TestCreate_DedupePerLocalDay(t *testing.T) {
	d := testDispatcher(t)
	mem := ledger.NewMemory()
	// 21:00 IST on the 14th and 23:30 IST on the same day.
	first := time.Date(2026, 10, 14, 15, 30, 0, 0, time.UTC)
	second := time.Date(2026, 10, 14, 18, 0, 0, 0, time.UTC)
	// 00:30 IST on the 15th.
	nextDay := time.Date(2026, 10, 14, 19, 0, 0, 0, time.UTC)

	n, out := create(t, d, mem, first, position(5000), nil)
	if out != model.OutcomeCreated || n.ID == "" {
		t.Fatalf("first create: outcome=%q id=%q", out, n.ID)
	}
	if n.LocalDay != "2026-10-14" {
		t.Errorf("LocalDay = %q, want 2026-10-14", n.LocalDay)
	}
	if n.Type != model.NotificationCashCheck {
		t.Errorf("Type = %q, want cash_check", n.Type)
	}

	if _, out := create(t, d, mem, second, position(6000), nil); out != model.OutcomeSkipped {
		t.Errorf("same-day create outcome = %q, want skipped", out)
	}
	if _, out := create(t, d, mem, nextDay, position(6000), nil); out != model.OutcomeCreated {
		t.Errorf("next local day outcome = %q, want created", out)
	}
}

func TestCreate_AfterReadAllowsNew(t *testing.T) {
	d := testDispatcher(t)
	mem := ledger.NewMemory()
	now := time.Date(2026, 10, 14, 15, 30, 0, 0, time.UTC)

	n, _ := create(t, d, mem, now, position(5000), nil)
	if err := d.MarkRead(context.Background(), mem, n.ID, "u1"); err != nil {
		t.Fatal(err)
	}
	if _, out := create(t, d, mem, now.Add(time.Hour), position(5000), nil); out != model.OutcomeCreated {
		t.Errorf("outcome after read = %q, want created", out)
	}
}

func TestCreate_PayloadIsSnapshot(t *testing.T) {
	d := testDispatcher(t)
	mem := ledger.NewMemory()
	now := time.Date(2026, 10, 14, 15, 30, 0, 0, time.UTC)

	sugg := []model.Suggestion{{Label: "Groceries", Subcategory: "groceries", TypicalAmount: decimal.NewFromInt(500), Probability: 0.6}}
	pos := position(5000)
	create(t, d, mem, now, pos, sugg)

	sugg[0].Label = "Mutated"
	pos.EstimatedUntrackedCash = decimal.Zero

	list, err := d.List(context.Background(), mem, "u1", model.Page{})
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(list))
	}
	got := list[0].Payload
	if got.Suggestions[0].Label != "Groceries" {
		t.Errorf("payload suggestion label = %q, want Groceries", got.Suggestions[0].Label)
	}
	if !got.Position.EstimatedUntrackedCash.Equal(decimal.NewFromInt(5000)) {
		t.Errorf("payload untracked = %s, want 5000", got.Position.EstimatedUntrackedCash)
	}
	if list[0].Title != "Untracked cash: 5000.00" {
		t.Errorf("Title = %q", list[0].Title)
	}
}

func TestList_OrderAndPaging(t *testing.T) {
	d := testDispatcher(t)
	mem := ledger.NewMemory()
	base := time.Date(2026, 10, 10, 15, 30, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		create(t, d, mem, base.AddDate(0, 0, i), position(5000), nil)
	}

	list, err := d.List(context.Background(), mem, "u1", model.Page{})
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3, got %d", len(list))
	}
	for i := 1; i < len(list); i++ {
		if list[i].CreatedAt.After(list[i-1].CreatedAt) {
			t.Errorf("not newest-first at %d", i)
		}
	}

	page, err := d.List(context.Background(), mem, "u1", model.Page{Limit: 1, Offset: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(page) != 1 || page[0].ID != list[1].ID {
		t.Errorf("page 2 = %+v, want second newest", page)
	}

	if _, err := d.List(context.Background(), mem, "u1", model.Page{Offset: -1}); !errors.Is(err, model.ErrValidation) {
		t.Errorf("negative offset error = %v, want validation", err)
	}
}

func TestMarkRead_WrongUser(t *testing.T) {
	d := testDispatcher(t)
	mem := ledger.NewMemory()
	n, _ := create(t, d, mem, time.Now(), position(5000), nil)

	if err := d.MarkRead(context.Background(), mem, n.ID, "intruder"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("MarkRead by other user = %v, want ErrNotFound", err)
	}
	if err := d.MarkRead(context.Background(), mem, "missing", "u1"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("MarkRead unknown id = %v, want ErrNotFound", err)
	}
	if err := d.MarkRead(context.Background(), mem, n.ID, "u1"); err != nil {
		t.Fatalf("MarkRead owner: %v", err)
	}

	list, _ := d.List(context.Background(), mem, "u1", model.Page{})
	if !list[0].Read || list[0].ReadAt == nil {
		t.Errorf("notification not marked read: %+v", list[0])
	}
}

func TestNormalizePage(t *testing.T) {
	p, err := NormalizePage(model.Page{Limit: 500})
	if err != nil || p.Limit != MaxPageSize {
		t.Errorf("NormalizePage(500) = %+v, %v", p, err)
	}
	p, _ = NormalizePage(model.Page{})
	if p.Limit != DefaultPageSize {
		t.Errorf("default limit = %d, want %d", p.Limit, DefaultPageSize)
	}
}
