package models

import (
	"time"

	"github.com/google/uuid"
)

// UsageEntry is one row of the local usage ledger: the metered outcome of a
// single completed chat turn.
type UsageEntry struct {
	ID               uuid.UUID `json:"id" db:"id"`
	UserID           uuid.UUID `json:"user_id" db:"user_id"`
	Bucket           string    `json:"bucket" db:"bucket"`
	Model            string    `json:"model" db:"model"`
	PromptTokens     int       `json:"prompt_tokens" db:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens" db:"completion_tokens"`
	TotalTokens      int       `json:"total_tokens" db:"total_tokens"`
	CreditCost       float64   `json:"credit_cost" db:"credit_cost"`
	BalanceAfter     int       `json:"balance_after" db:"balance_after"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
}
