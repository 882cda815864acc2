// Package repository defines the local Postgres storage interfaces. Only two
// things live locally: auth sessions and the per-turn usage ledger; all
// mentee data belongs to the external profile system.
package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/100xengineers/self-discovery-backend/internal/models"
)

// UserSessionRepository defines auth session storage operations
type UserSessionRepository interface {
	Create(ctx context.Context, session *models.UserSession) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.UserSession, error)
	GetByTokenHash(ctx context.Context, tokenHash string) (*models.UserSession, error)
	GetByRefreshTokenHash(ctx context.Context, refreshTokenHash string) (*models.UserSession, error)
	Update(ctx context.Context, session *models.UserSession) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteExpired(ctx context.Context) error
	DeleteUserSessions(ctx context.Context, userID uuid.UUID) error
}

// UsageLedgerRepository defines usage ledger storage operations
type UsageLedgerRepository interface {
	Record(ctx context.Context, entry models.UsageEntry) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.UsageEntry, error)
}
