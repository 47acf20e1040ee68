package ledger

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"CashNudge/internal/model"
)

// Memory is an in-memory Store for development and tests. It is safe for
// concurrent use; WithTx holds the lock for the whole callback and restores
// the previous state when the callback fails.
type Memory struct {
	mu    sync.Mutex
	users map[string]time.Time
	txns  []model.Transaction
	acks  []model.Acknowledgement
	notes []model.Notification

	// FailUsers makes every read for the listed users return the error.
	FailUsers map[string]error
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		users:     make(map[string]time.Time),
		FailUsers: make(map[string]error),
	}
}

type memTx struct{ m *Memory }

func (m *Memory) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return model.Transient(err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	users := make(map[string]time.Time, len(m.users))
	for k, v := range m.users {
		users[k] = v
	}
	txns := append([]model.Transaction(nil), m.txns...)
	acks := append([]model.Acknowledgement(nil), m.acks...)
	notes := append([]model.Notification(nil), m.notes...)

	if err := fn(memTx{m}); err != nil {
		m.users, m.txns, m.acks, m.notes = users, txns, acks, notes
		return err
	}
	return nil
}

func (m *Memory) locked(fn func(tx memTx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(memTx{m})
}

func (m *Memory) ActiveUsers(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.users))
	for id := range m.users {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

func (m *Memory) TransactionsByRole(ctx context.Context, userID string, role model.Role, since, until time.Time) ([]model.Transaction, error) {
	var out []model.Transaction
	err := m.locked(func(tx memTx) error {
		var err error
		out, err = tx.TransactionsByRole(ctx, userID, role, since, until)
		return err
	})
	return out, err
}

func (m *Memory) LatestAcknowledgement(ctx context.Context, userID string) (*model.Acknowledgement, error) {
	var out *model.Acknowledgement
	err := m.locked(func(tx memTx) error {
		var err error
		out, err = tx.LatestAcknowledgement(ctx, userID)
		return err
	})
	return out, err
}

func (m *Memory) UserExists(ctx context.Context, userID string) (bool, error) {
	var ok bool
	err := m.locked(func(tx memTx) error {
		var err error
		ok, err = tx.UserExists(ctx, userID)
		return err
	})
	return ok, err
}

func (m *Memory) InsertTransaction(ctx context.Context, t model.Transaction) error {
	return m.locked(func(tx memTx) error { return tx.InsertTransaction(ctx, t) })
}

func (m *Memory) InsertAcknowledgement(ctx context.Context, a model.Acknowledgement) error {
	return m.locked(func(tx memTx) error { return tx.InsertAcknowledgement(ctx, a) })
}

func (m *Memory) UpsertUser(ctx context.Context, userID string, seenAt time.Time) error {
	return m.locked(func(tx memTx) error { return tx.UpsertUser(ctx, userID, seenAt) })
}

func (m *Memory) HasUnreadOn(ctx context.Context, userID string, typ model.NotificationType, localDay string) (bool, error) {
	var ok bool
	err := m.locked(func(tx memTx) error {
		var err error
		ok, err = tx.HasUnreadOn(ctx, userID, typ, localDay)
		return err
	})
	return ok, err
}

func (m *Memory) InsertNotification(ctx context.Context, n model.Notification) (bool, error) {
	var ok bool
	err := m.locked(func(tx memTx) error {
		var err error
		ok, err = tx.InsertNotification(ctx, n)
		return err
	})
	return ok, err
}

func (m *Memory) ListNotifications(ctx context.Context, userID string, page model.Page) ([]model.Notification, error) {
	var out []model.Notification
	err := m.locked(func(tx memTx) error {
		var err error
		out, err = tx.ListNotifications(ctx, userID, page)
		return err
	})
	return out, err
}

func (m *Memory) MarkRead(ctx context.Context, id, userID string, at time.Time) error {
	return m.locked(func(tx memTx) error { return tx.MarkRead(ctx, id, userID, at) })
}

func (t memTx) TransactionsByRole(ctx context.Context, userID string, role model.Role, since, until time.Time) ([]model.Transaction, error) {
	if err := t.check(ctx, userID); err != nil {
		return nil, err
	}
	var out []model.Transaction
	for _, tr := range t.m.txns {
		if tr.UserID != userID || tr.Role != role {
			continue
		}
		if tr.Timestamp.Before(since) || tr.Timestamp.After(until) {
			continue
		}
		out = append(out, tr)
	}
	return out, nil
}

func (t memTx) LatestAcknowledgement(ctx context.Context, userID string) (*model.Acknowledgement, error) {
	if err := t.check(ctx, userID); err != nil {
		return nil, err
	}
	var latest *model.Acknowledgement
	for i := range t.m.acks {
		a := t.m.acks[i]
		if a.UserID != userID {
			continue
		}
		if latest == nil || a.AcknowledgedAt.After(latest.AcknowledgedAt) {
			latest = &a
		}
	}
	return latest, nil
}

func (t memTx) UserExists(ctx context.Context, userID string) (bool, error) {
	if err := t.check(ctx, userID); err != nil {
		return false, err
	}
	_, ok := t.m.users[userID]
	return ok, nil
}

func (t memTx) InsertTransaction(ctx context.Context, tr model.Transaction) error {
	if err := ctx.Err(); err != nil {
		return model.Transient(err)
	}
	if tr.ID == "" {
		return fmt.Errorf("transaction ID is required")
	}
	tr.Tags = append([]string(nil), tr.Tags...)
	t.m.txns = append(t.m.txns, tr)
	return nil
}

func (t memTx) InsertAcknowledgement(ctx context.Context, a model.Acknowledgement) error {
	if err := ctx.Err(); err != nil {
		return model.Transient(err)
	}
	t.m.acks = append(t.m.acks, a)
	return nil
}

func (t memTx) UpsertUser(ctx context.Context, userID string, seenAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return model.Transient(err)
	}
	t.m.users[userID] = seenAt
	return nil
}

func (t memTx) HasUnreadOn(ctx context.Context, userID string, typ model.NotificationType, localDay string) (bool, error) {
	if err := t.check(ctx, userID); err != nil {
		return false, err
	}
	for _, n := range t.m.notes {
		if n.UserID == userID && n.Type == typ && n.LocalDay == localDay && !n.Read {
			return true, nil
		}
	}
	return false, nil
}

func (t memTx) InsertNotification(ctx context.Context, n model.Notification) (bool, error) {
	exists, err := t.HasUnreadOn(ctx, n.UserID, n.Type, n.LocalDay)
	if err != nil || exists {
		return false, err
	}
	t.m.notes = append(t.m.notes, n)
	return true, nil
}

func (t memTx) ListNotifications(ctx context.Context, userID string, page model.Page) ([]model.Notification, error) {
	if err := t.check(ctx, userID); err != nil {
		return nil, err
	}
	var out []model.Notification
	for _, n := range t.m.notes {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	if page.Offset > 0 {
		if page.Offset >= len(out) {
			return []model.Notification{}, nil
		}
		out = out[page.Offset:]
	}
	if page.Limit > 0 && page.Limit < len(out) {
		out = out[:page.Limit]
	}
	return out, nil
}

func (t memTx) MarkRead(ctx context.Context, id, userID string, at time.Time) error {
	if err := t.check(ctx, userID); err != nil {
		return err
	}
	for i := range t.m.notes {
		n := &t.m.notes[i]
		if n.ID != id || n.UserID != userID {
			continue
		}
		if !n.Read {
			n.Read = true
			readAt := at
			n.ReadAt = &readAt
		}
		return nil
	}
	return model.NotFoundf("notification %s", id)
}

func (t memTx) check(ctx context.Context, userID string) error {
	if err := ctx.Err(); err != nil {
		return model.Transient(err)
	}
	if err, ok := t.m.FailUsers[userID]; ok {
		return model.Transient(err)
	}
	return nil
}

var _ Store = (*Memory)(nil)
var _ Tx = memTx{}
