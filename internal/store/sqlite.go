// Package store provides the SQLite-backed ledger, notification store and
// active-user roster.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"CashNudge/internal/ledger"
	"CashNudge/internal/model"

	"github.com/rs/zerolog"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// DefaultTimeout bounds a single statement when none is configured.
const DefaultTimeout = 5 * time.Second

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// sqlTx implements ledger.Tx on top of a querier. Outside WithTx every
// call is its own implicit transaction.
type sqlTx struct {
	q       querier
	timeout time.Duration
}

// SQLiteStore persists the ledger to a SQLite database.
type SQLiteStore struct {
	sqlTx
	db  *sql.DB
	log zerolog.Logger
}

// Open opens (or creates) the database and runs migrations.
func Open(dbPath string, timeout time.Duration, log zerolog.Logger) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection serializes writers; the per-user dedupe check and
	// insert then cannot interleave with another batch worker.
	db.SetMaxOpenConns(1)

	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	s := &SQLiteStore{
		sqlTx: sqlTx{q: db, timeout: timeout},
		db:    db,
		log:   log,
	}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("sqlite store opened")
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			user_id    TEXT PRIMARY KEY,
			active     INTEGER NOT NULL DEFAULT 1,
			first_seen INTEGER NOT NULL,
			last_seen  INTEGER NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS transactions (
			id          TEXT PRIMARY KEY,
			user_id     TEXT NOT NULL,
			amount      TEXT NOT NULL,
			direction   TEXT NOT NULL,
			category    TEXT NOT NULL DEFAULT '',
			subcategory TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			tags        TEXT NOT NULL DEFAULT '[]',
			role        TEXT NOT NULL,
			ts          INTEGER NOT NULL,
			source      TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_txn_user_role_ts ON transactions(user_id, role, ts)`,

		`CREATE TABLE IF NOT EXISTS acknowledgements (
			id                  TEXT PRIMARY KEY,
			user_id             TEXT NOT NULL,
			acknowledged_at     INTEGER NOT NULL,
			cycle_withdrawal_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ack_user ON acknowledgements(user_id, acknowledged_at)`,

		`CREATE TABLE IF NOT EXISTS notifications (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL,
			type       TEXT NOT NULL,
			title      TEXT NOT NULL,
			message    TEXT NOT NULL,
			payload    TEXT NOT NULL,
			local_day  TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			is_read    INTEGER NOT NULL DEFAULT 0,
			read_at    INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_notif_user_created ON notifications(user_id, created_at)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_notif_unread_day
			ON notifications(user_id, type, local_day) WHERE is_read = 0`,

		`CREATE TABLE IF NOT EXISTS batch_runs (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			started_at  INTEGER NOT NULL,
			finished_at INTEGER NOT NULL,
			processed   INTEGER NOT NULL,
			notified    INTEGER NOT NULL,
			skipped     INTEGER NOT NULL,
			ineligible  INTEGER NOT NULL,
			failed      INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_batch_started ON batch_runs(started_at)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return nil
}

// WithTx runs fn inside a database transaction.
func (s *SQLiteStore) WithTx(ctx context.Context, fn func(tx ledger.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Transient(fmt.Errorf("begin tx: %w", err))
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(sqlTx{q: tx, timeout: s.timeout}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return model.Transient(fmt.Errorf("commit: %w", err))
	}
	return nil
}

// ActiveUsers returns the roster in user ID order.
func (s *SQLiteStore) ActiveUsers(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `SELECT user_id FROM users WHERE active = 1 ORDER BY user_id`)
	if err != nil {
		return nil, model.Transient(fmt.Errorf("query users: %w", err))
	}
	defer func() { _ = rows.Close() }()

	var users []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, model.Transient(fmt.Errorf("scan user: %w", err))
		}
		users = append(users, id)
	}
	if err := rows.Err(); err != nil {
		return nil, model.Transient(err)
	}
	return users, nil
}

// SetActive flips a user in or out of the nightly roster.
func (s *SQLiteStore) SetActive(ctx context.Context, userID string, active bool) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	flag := 0
	if active {
		flag = 1
	}
	res, err := s.db.ExecContext(ctx, `UPDATE users SET active = ? WHERE user_id = ?`, flag, userID)
	if err != nil {
		return model.Transient(fmt.Errorf("update user: %w", err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.NotFoundf("user %s", userID)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	s.log.Info().Msg("closing sqlite store")
	return s.db.Close()
}

func (t sqlTx) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, t.timeout)
}

func unixNano(t time.Time) int64 { return t.UTC().UnixNano() }

func fromUnixNano(n int64) time.Time { return time.Unix(0, n).UTC() }

var _ ledger.Store = (*SQLiteStore)(nil)

// isConstraint reports whether err is a SQLite constraint violation, which
// retrying cannot fix.
func isConstraint(err error) bool {
	var se *sqlite.Error
	return errors.As(err, &se) && se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
}
