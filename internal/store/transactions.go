package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"CashNudge/internal/model"
)

func (t sqlTx) TransactionsByRole(ctx context.Context, userID string, role model.Role, since, until time.Time) ([]model.Transaction, error) {
	ctx, cancel := t.bound(ctx)
	defer cancel()

	rows, err := t.q.QueryContext(ctx, `SELECT
		id, user_id, amount, direction, category, subcategory, description, tags, role, ts, source
		FROM transactions
		WHERE user_id = ? AND role = ? AND ts >= ? AND ts <= ?
		ORDER BY ts`,
		userID, string(role), unixNano(since), unixNano(until),
	)
	if err != nil {
		return nil, model.Transient(fmt.Errorf("query transactions: %w", err))
	}
	defer func() { _ = rows.Close() }()

	var out []model.Transaction
	for rows.Next() {
		var (
			tr   model.Transaction
			dir  string
			r    string
			tags string
			ts   int64
		)
		if err := rows.Scan(&tr.ID, &tr.UserID, &tr.Amount, &dir, &tr.Category, &tr.Subcategory,
			&tr.Description, &tags, &r, &ts, &tr.Source); err != nil {
			return nil, model.Transient(fmt.Errorf("scan transaction: %w", err))
		}
		tr.Direction = model.Direction(dir)
		tr.Role = model.Role(r)
		tr.Timestamp = fromUnixNano(ts)
		if err := json.Unmarshal([]byte(tags), &tr.Tags); err != nil {
			return nil, fmt.Errorf("decode tags for %s: %w", tr.ID, err)
		}
		out = append(out, tr)
	}
	if err := rows.Err(); err != nil {
		return nil, model.Transient(err)
	}
	return out, nil
}

func (t sqlTx) InsertTransaction(ctx context.Context, tr model.Transaction) error {
	ctx, cancel := t.bound(ctx)
	defer cancel()

	tags, err := json.Marshal(model.UniqueTags(tr.Tags))
	if err != nil {
		return fmt.Errorf("encode tags: %w", err)
	}
	_, err = t.q.ExecContext(ctx, `INSERT INTO transactions
		(id, user_id, amount, direction, category, subcategory, description, tags, role, ts, source)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		tr.ID, tr.UserID, tr.Amount.String(), string(tr.Direction), tr.Category, tr.Subcategory,
		tr.Description, string(tags), string(tr.Role), unixNano(tr.Timestamp), tr.Source,
	)
	if isConstraint(err) {
		return model.Validationf("transaction %s already exists", tr.ID)
	}
	if err != nil {
		return model.Transient(fmt.Errorf("insert transaction: %w", err))
	}
	return nil
}

func (t sqlTx) LatestAcknowledgement(ctx context.Context, userID string) (*model.Acknowledgement, error) {
	ctx, cancel := t.bound(ctx)
	defer cancel()

	var (
		a          model.Acknowledgement
		ackAt, cyc int64
	)
	err := t.q.QueryRowContext(ctx, `SELECT id, user_id, acknowledged_at, cycle_withdrawal_at
		FROM acknowledgements WHERE user_id = ?
		ORDER BY acknowledged_at DESC LIMIT 1`, userID,
	).Scan(&a.ID, &a.UserID, &ackAt, &cyc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, model.Transient(fmt.Errorf("query acknowledgement: %w", err))
	}
	a.AcknowledgedAt = fromUnixNano(ackAt)
	a.CycleWithdrawalAt = fromUnixNano(cyc)
	return &a, nil
}

func (t sqlTx) InsertAcknowledgement(ctx context.Context, a model.Acknowledgement) error {
	ctx, cancel := t.bound(ctx)
	defer cancel()

	_, err := t.q.ExecContext(ctx, `INSERT INTO acknowledgements
		(id, user_id, acknowledged_at, cycle_withdrawal_at) VALUES (?,?,?,?)`,
		a.ID, a.UserID, unixNano(a.AcknowledgedAt), unixNano(a.CycleWithdrawalAt),
	)
	if err != nil {
		return model.Transient(fmt.Errorf("insert acknowledgement: %w", err))
	}
	return nil
}

func (t sqlTx) UserExists(ctx context.Context, userID string) (bool, error) {
	ctx, cancel := t.bound(ctx)
	defer cancel()

	var n int
	err := t.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE user_id = ?`, userID).Scan(&n)
	if err != nil {
		return false, model.Transient(fmt.Errorf("query user: %w", err))
	}
	return n > 0, nil
}

func (t sqlTx) UpsertUser(ctx context.Context, userID string, seenAt time.Time) error {
	ctx, cancel := t.bound(ctx)
	defer cancel()

	ts := unixNano(seenAt)
	_, err := t.q.ExecContext(ctx, `INSERT INTO users (user_id, active, first_seen, last_seen)
		VALUES (?, 1, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET last_seen = excluded.last_seen`,
		userID, ts, ts,
	)
	if err != nil {
		return model.Transient(fmt.Errorf("upsert user: %w", err))
	}
	return nil
}
