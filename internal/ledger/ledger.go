// Package ledger defines the store surface the cash engine consumes.
package ledger

import (
	"context"
	"time"

	"CashNudge/internal/model"
)

// Reader exposes windowed, role-filtered reads over the transaction store.
type Reader interface {
	// TransactionsByRole returns the user's transactions with the given
	// role whose timestamp lies in [since, until].
	TransactionsByRole(ctx context.Context, userID string, role model.Role, since, until time.Time) ([]model.Transaction, error)
	// LatestAcknowledgement returns nil, nil when the user never acknowledged.
	LatestAcknowledgement(ctx context.Context, userID string) (*model.Acknowledgement, error)
	UserExists(ctx context.Context, userID string) (bool, error)
}

// Writer inserts new immutable records.
type Writer interface {
	InsertTransaction(ctx context.Context, t model.Transaction) error
	InsertAcknowledgement(ctx context.Context, a model.Acknowledgement) error
	UpsertUser(ctx context.Context, userID string, seenAt time.Time) error
}

// NotificationStore persists nudges.
type NotificationStore interface {
	HasUnreadOn(ctx context.Context, userID string, typ model.NotificationType, localDay string) (bool, error)
	// InsertNotification returns false when an unread notification of the
	// same type already exists for that user and local day.
	InsertNotification(ctx context.Context, n model.Notification) (bool, error)
	// ListNotifications orders by creation time, newest first.
	ListNotifications(ctx context.Context, userID string, page model.Page) ([]model.Notification, error)
	// MarkRead returns model.ErrNotFound unless id belongs to userID.
	MarkRead(ctx context.Context, id, userID string, at time.Time) error
}

// Tx is a transaction-scoped view of the store.
type Tx interface {
	Reader
	Writer
	NotificationStore
}

// Roster supplies the users eligible for nightly evaluation.
type Roster interface {
	ActiveUsers(ctx context.Context) ([]string, error)
}

// Store is the full collaborator: every Tx operation is also available
// outside a transaction as its own short transaction.
type Store interface {
	Tx
	Roster
	// WithTx runs fn atomically. An error from fn rolls everything back.
	WithTx(ctx context.Context, fn func(tx Tx) error) error
}
