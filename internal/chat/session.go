package chat

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/100xengineers/self-discovery-backend/internal/models"
	"github.com/100xengineers/self-discovery-backend/internal/profile"
)

// Session is one metered conversation: an ordered transcript, its kind, and
// the in-memory view of the metering balance. Balances are raw
// token-equivalents; 1000 tokens = 1 displayed credit.
type Session struct {
	ID       string
	UserID   uuid.UUID
	Kind     Kind
	Model    string
	Messages []models.ChatMessage
	Status   string
	Balance  int
}

// Credits converts a raw token balance to display credits.
func Credits(balance int) float64 {
	return float64(balance) / 1000
}

// Credits returns the session balance in display credits.
func (s *Session) Credits() float64 {
	return Credits(s.Balance)
}

// OpenSession builds a session around the caller-supplied transcript, reading
// the current balance from the profile store. A mentee with no balance record
// yet starts from the kind's default grant.
func (r *Runner) OpenSession(ctx context.Context, userID uuid.UUID, kind Kind, history []models.ChatMessage) (*Session, error) {
	balance, err := r.store.GetBalance(ctx, userID.String(), kind.Bucket())
	if err != nil {
		if !errors.Is(err, profile.ErrNotFound) {
			return nil, err
		}
		balance = kind.defaultBalance()
	}

	return &Session{
		ID:       uuid.NewString(),
		UserID:   userID,
		Kind:     kind,
		Model:    r.defaultModel,
		Messages: history,
		Status:   models.StatusOngoing,
		Balance:  balance,
	}, nil
}
