package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/100xengineers/self-discovery-backend/internal/models"
)

// UsageLedgerRepository implements repository.UsageLedgerRepository
type UsageLedgerRepository struct {
	db *sqlx.DB
}

// NewUsageLedgerRepository creates a new usage ledger repository
func NewUsageLedgerRepository(db *sqlx.DB) *UsageLedgerRepository {
	return &UsageLedgerRepository{db: db}
}

// Record appends one completed turn to the ledger
func (r *UsageLedgerRepository) Record(ctx context.Context, entry models.UsageEntry) error {
	query := `
		INSERT INTO usage_ledger (
			id, user_id, bucket, model, prompt_tokens, completion_tokens,
			total_tokens, credit_cost, balance_after, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		)`

	_, err := r.db.ExecContext(ctx, query,
		entry.ID, entry.UserID, entry.Bucket, entry.Model, entry.PromptTokens,
		entry.CompletionTokens, entry.TotalTokens, entry.CreditCost,
		entry.BalanceAfter, entry.CreatedAt,
	)
	return err
}

// ListByUser returns a user's most recent ledger rows, newest first
func (r *UsageLedgerRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.UsageEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	var entries []models.UsageEntry
	query := `
		SELECT * FROM usage_ledger
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	if err := r.db.SelectContext(ctx, &entries, query, userID, limit); err != nil {
		return nil, err
	}
	return entries, nil
}
