package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"CashNudge/internal/model"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func samplePosition() model.CashPosition {
	w := time.Date(2026, 10, 9, 10, 0, 0, 0, time.UTC)
	return model.CashPosition{
		WindowDays:             30,
		TotalWithdrawn:         decimal.NewFromInt(5000),
		TrackedCashSpend:       decimal.NewFromInt(1200),
		EstimatedUntrackedCash: decimal.NewFromInt(3800),
		LastWithdrawalDate:     &w,
		DaysSinceWithdrawal:    5,
	}
}

func TestFormatCashCheck(t *testing.T) {
	sugg := []model.Suggestion{
		{Label: "Groceries", TypicalAmount: decimal.NewFromInt(450)},
		{Label: "Street food", TypicalAmount: decimal.RequireFromString("120.5")},
	}
	title, msg := FormatCashCheck(samplePosition(), sugg)
	if title != "Untracked cash: 3800.00" {
		t.Errorf("title = %q", title)
	}
	for _, want := range []string{"5000.00", "last 30 days", "5 days ago", "1200.00", "Maybe: Groceries ~450.00, Street food ~120.50."} {
		if !strings.Contains(msg, want) {
			t.Errorf("message %q missing %q", msg, want)
		}
	}

	_, msg = FormatCashCheck(samplePosition(), nil)
	if strings.Contains(msg, "Maybe") {
		t.Errorf("message without suggestions = %q", msg)
	}
}

func TestDayPhrase(t *testing.T) {
	for days, want := range map[int]string{0: "today", 1: "yesterday", 7: "7 days ago"} {
		if got := dayPhrase(days); got != want {
			t.Errorf("dayPhrase(%d) = %q, want %q", days, got, want)
		}
	}
}

func TestFormatTelegram_Escapes(t *testing.T) {
	n := model.Notification{
		Title: "Untracked <cash>",
		Payload: model.NewPayload(samplePosition(), []model.Suggestion{
			{Label: "Tea & snacks", TypicalAmount: decimal.NewFromInt(40), Probability: 0.25},
		}),
	}
	out := FormatTelegram(n)
	if !strings.Contains(out, "Untracked &lt;cash&gt;") || !strings.Contains(out, "Tea &amp; snacks") {
		t.Errorf("unescaped output: %s", out)
	}
	if !strings.Contains(out, "25%") {
		t.Errorf("probability missing: %s", out)
	}
}

func TestDeliver(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bottok/sendMessage" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
		}
		if body["chat_id"] != "42" || body["parse_mode"] != "HTML" {
			t.Errorf("body = %v", body)
		}
		if calls.Add(1) == 1 {
			http.Error(w, "flood", http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	tn := NewTelegramNotifier("tok", "42", "", zerolog.Nop())
	tn.APIBase = srv.URL
	tn.Backoff = time.Millisecond

	n := model.Notification{Title: "Untracked cash: 3800.00", Payload: model.NewPayload(samplePosition(), nil)}
	if err := tn.Deliver(context.Background(), n); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want one retry", calls.Load())
	}
}

func TestSendWithRetry_Exhausted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	tn := NewTelegramNotifier("tok", "42", "", zerolog.Nop())
	tn.APIBase = srv.URL
	tn.Backoff = time.Millisecond

	err := tn.SendWithRetry(context.Background(), "hi", 2)
	if err == nil || !strings.Contains(err.Error(), "all 3 retries exhausted") {
		t.Errorf("err = %v", err)
	}
}
