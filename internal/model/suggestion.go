package model

import "github.com/shopspring/decimal"

// AmountRange is the interquartile spread of a subcategory's amounts.
type AmountRange struct {
	Low  decimal.Decimal `json:"low"`
	High decimal.Decimal `json:"high"`
}

// Suggestion is a plausible cash expense derived from history.
type Suggestion struct {
	Label         string          `json:"label"`
	Subcategory   string          `json:"subcategory"`
	TypicalAmount decimal.Decimal `json:"typical_amount"`
	AmountRange   AmountRange     `json:"amount_range"`
	Probability   float64         `json:"probability"`
	SampleCount   int             `json:"sample_count"`
}
