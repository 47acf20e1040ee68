package model

import "time"

// NotificationType tags the kind of nudge.
type NotificationType string

const (
	NotificationCashCheck NotificationType = "cash_check"
)

// NotificationPayload is what the user was shown, captured at creation.
type NotificationPayload struct {
	Position    CashPosition `json:"position"`
	Suggestions []Suggestion `json:"suggestions"`
}

// NewPayload copies the inputs so later mutation by the caller cannot leak
// into a stored notification.
func NewPayload(pos CashPosition, suggestions []Suggestion) NotificationPayload {
	if pos.LastWithdrawalDate != nil {
		t := *pos.LastWithdrawalDate
		pos.LastWithdrawalDate = &t
	}
	cp := make([]Suggestion, len(suggestions))
	copy(cp, suggestions)
	return NotificationPayload{Position: pos, Suggestions: cp}
}

// Notification is a persisted nudge.
type Notification struct {
	ID        string              `json:"id"`
	UserID    string              `json:"user_id"`
	Type      NotificationType    `json:"type"`
	Title     string              `json:"title"`
	Message   string              `json:"message"`
	Payload   NotificationPayload `json:"payload"`
	LocalDay  string              `json:"local_day"`
	CreatedAt time.Time           `json:"created_at"`
	Read      bool                `json:"read"`
	ReadAt    *time.Time          `json:"read_at,omitempty"`
}

// Outcome is the result of a dispatcher create call.
type Outcome string

const (
	OutcomeCreated Outcome = "created"
	OutcomeSkipped Outcome = "skipped"
)

// Page selects a slice of an ordered listing.
type Page struct {
	Limit  int
	Offset int
}

// BatchResult aggregates one nightly run.
type BatchResult struct {
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Processed  int       `json:"processed"`
	Notified   int       `json:"notified"`
	Skipped    int       `json:"skipped"`
	Ineligible int       `json:"ineligible"`
	Failed     int       `json:"failed"`
}
