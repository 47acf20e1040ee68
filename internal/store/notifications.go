package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"CashNudge/internal/model"
)

func (t sqlTx) HasUnreadOn(ctx context.Context, userID string, typ model.NotificationType, localDay string) (bool, error) {
	ctx, cancel := t.bound(ctx)
	defer cancel()

	var n int
	err := t.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM notifications
		WHERE user_id = ? AND type = ? AND local_day = ? AND is_read = 0`,
		userID, string(typ), localDay,
	).Scan(&n)
	if err != nil {
		return false, model.Transient(fmt.Errorf("query unread notifications: %w", err))
	}
	return n > 0, nil
}

// InsertNotification relies on idx_notif_unread_day: a second unread row for
// the same user, type and day is ignored and reported as not inserted.
func (t sqlTx) InsertNotification(ctx context.Context, n model.Notification) (bool, error) {
	ctx, cancel := t.bound(ctx)
	defer cancel()

	payload, err := json.Marshal(n.Payload)
	if err != nil {
		return false, fmt.Errorf("encode payload: %w", err)
	}
	res, err := t.q.ExecContext(ctx, `INSERT OR IGNORE INTO notifications
		(id, user_id, type, title, message, payload, local_day, created_at, is_read)
		VALUES (?,?,?,?,?,?,?,?,0)`,
		n.ID, n.UserID, string(n.Type), n.Title, n.Message, string(payload), n.LocalDay, unixNano(n.CreatedAt),
	)
	if err != nil {
		return false, model.Transient(fmt.Errorf("insert notification: %w", err))
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, model.Transient(err)
	}
	return affected == 1, nil
}

func (t sqlTx) ListNotifications(ctx context.Context, userID string, page model.Page) ([]model.Notification, error) {
	ctx, cancel := t.bound(ctx)
	defer cancel()

	limit := page.Limit
	if limit <= 0 {
		limit = -1
	}
	offset := page.Offset
	if offset < 0 {
		offset = 0
	}

	rows, err := t.q.QueryContext(ctx, `SELECT
		id, user_id, type, title, message, payload, local_day, created_at, is_read, read_at
		FROM notifications WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, model.Transient(fmt.Errorf("query notifications: %w", err))
	}
	defer func() { _ = rows.Close() }()

	out := []model.Notification{}
	for rows.Next() {
		var (
			n         model.Notification
			typ       string
			payload   string
			createdAt int64
			isRead    int
			readAt    sql.NullInt64
		)
		if err := rows.Scan(&n.ID, &n.UserID, &typ, &n.Title, &n.Message, &payload,
			&n.LocalDay, &createdAt, &isRead, &readAt); err != nil {
			return nil, model.Transient(fmt.Errorf("scan notification: %w", err))
		}
		n.Type = model.NotificationType(typ)
		n.CreatedAt = fromUnixNano(createdAt)
		n.Read = isRead != 0
		if readAt.Valid {
			ts := fromUnixNano(readAt.Int64)
			n.ReadAt = &ts
		}
		if err := json.Unmarshal([]byte(payload), &n.Payload); err != nil {
			return nil, fmt.Errorf("decode payload for %s: %w", n.ID, err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, model.Transient(err)
	}
	return out, nil
}

// MarkRead keeps the first read timestamp when called again.
func (t sqlTx) MarkRead(ctx context.Context, id, userID string, at time.Time) error {
	ctx, cancel := t.bound(ctx)
	defer cancel()

	res, err := t.q.ExecContext(ctx, `UPDATE notifications
		SET is_read = 1, read_at = COALESCE(read_at, ?)
		WHERE id = ? AND user_id = ?`,
		unixNano(at), id, userID,
	)
	if err != nil {
		return model.Transient(fmt.Errorf("mark notification read: %w", err))
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return model.Transient(err)
	}
	if affected == 0 {
		return model.NotFoundf("notification %s", id)
	}
	return nil
}
