package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Direction indicates whether money left or entered the account.
type Direction string

const (
	DirectionDebit  Direction = "debit"
	DirectionCredit Direction = "credit"
)

// Role is the reconciliation role of a transaction, fixed at ingestion.
type Role string

const (
	RoleWithdrawal Role = "withdrawal"
	RoleCashSpend  Role = "cash_spend"
	RoleOther      Role = "other"
)

// Ingestion tags that drive classification.
const (
	TagCashWithdrawal = "cash_withdrawal"
	TagCash           = "cash"
	TagCashSpend      = "cash_spend"
)

// Transaction is an immutable ledger entry.
type Transaction struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	Amount      decimal.Decimal `json:"amount"`
	Direction   Direction       `json:"direction"`
	Category    string          `json:"category"`
	Subcategory string          `json:"subcategory"`
	Description string          `json:"description,omitempty"`
	Tags        []string        `json:"tags"`
	Role        Role            `json:"role"`
	Timestamp   time.Time       `json:"timestamp"`
	Source      string          `json:"source"`
}

// ClassifyTags maps an ingestion tag set to a Role. A withdrawal tag wins
// over cash-spend tags.
func ClassifyTags(tags []string) Role {
	role := RoleOther
	for _, t := range tags {
		switch t {
		case TagCashWithdrawal:
			return RoleWithdrawal
		case TagCash, TagCashSpend:
			role = RoleCashSpend
		}
	}
	return role
}

// UniqueTags returns tags with duplicates and empty strings removed,
// preserving first-seen order.
func UniqueTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
