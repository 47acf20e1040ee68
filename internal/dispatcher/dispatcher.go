// Package dispatcher creates, lists and acknowledges cash_check nudges.
package dispatcher

import (
	"context"
	"fmt"
	"time"

	"CashNudge/internal/ledger"
	"CashNudge/internal/model"
	"CashNudge/internal/notifier"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Pagination bounds for List.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Dispatcher owns notification records. The calendar day used for dedupe
// is taken in Location.
type Dispatcher struct {
	Location *time.Location
	Now      func() time.Time
	log      zerolog.Logger
}

// New creates a Dispatcher for the given time zone.
func New(loc *time.Location, log zerolog.Logger) *Dispatcher {
	if loc == nil {
		loc = time.Local
	}
	return &Dispatcher{Location: loc, Now: time.Now, log: log}
}

// LocalDay returns the dedupe key for t.
func (d *Dispatcher) LocalDay(t time.Time) string {
	return t.In(d.Location).Format("2006-01-02")
}

// Create inserts a cash_check notification for userID unless an unread one
// already exists for the same local day. It must run inside tx so the check
// and the insert are atomic.
func (d *Dispatcher) Create(ctx context.Context, tx ledger.Tx, userID string, pos model.CashPosition, suggestions []model.Suggestion, now time.Time) (model.Notification, model.Outcome, error) {
	day := d.LocalDay(now)

	exists, err := tx.HasUnreadOn(ctx, userID, model.NotificationCashCheck, day)
	if err != nil {
		return model.Notification{}, "", fmt.Errorf("dedupe check: %w", err)
	}
	if exists {
		d.log.Debug().Str("user_id", userID).Str("day", day).Msg("unread cash_check already exists")
		return model.Notification{}, model.OutcomeSkipped, nil
	}

	payload := model.NewPayload(pos, suggestions)
	title, message := notifier.FormatCashCheck(payload.Position, payload.Suggestions)
	n := model.Notification{
		ID:        uuid.New().String(),
		UserID:    userID,
		Type:      model.NotificationCashCheck,
		Title:     title,
		Message:   message,
		Payload:   payload,
		LocalDay:  day,
		CreatedAt: now,
	}

	inserted, err := tx.InsertNotification(ctx, n)
	if err != nil {
		return model.Notification{}, "", fmt.Errorf("insert notification: %w", err)
	}
	if !inserted {
		return model.Notification{}, model.OutcomeSkipped, nil
	}
	return n, model.OutcomeCreated, nil
}

// List returns the user's notifications, newest first.
func (d *Dispatcher) List(ctx context.Context, s ledger.NotificationStore, userID string, page model.Page) ([]model.Notification, error) {
	page, err := NormalizePage(page)
	if err != nil {
		return nil, err
	}
	return s.ListNotifications(ctx, userID, page)
}

// MarkRead flags a notification as read. It fails with model.ErrNotFound if
// the notification does not belong to userID.
func (d *Dispatcher) MarkRead(ctx context.Context, s ledger.NotificationStore, id, userID string) error {
	if id == "" {
		return model.NotFoundf("notification id is empty")
	}
	return s.MarkRead(ctx, id, userID, d.Now())
}

// NormalizePage applies the default page size and caps it.
func NormalizePage(p model.Page) (model.Page, error) {
	if p.Limit < 0 || p.Offset < 0 {
		return p, model.Validationf("limit and offset must not be negative")
	}
	if p.Limit == 0 {
		p.Limit = DefaultPageSize
	}
	if p.Limit > MaxPageSize {
		p.Limit = MaxPageSize
	}
	return p, nil
}
