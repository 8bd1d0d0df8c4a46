package http

import (
	"context"

	"github.com/solace-api/internal/domain"
)

// UserRepository is the minimal interface the router requires from a user store.
type UserRepository interface {
	Put(ctx context.Context, u *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
	CountByProvider(ctx context.Context) (total, verified int, perProvider map[string]int, err error)
}

// TokenRepository is the minimal interface the router requires from a
// verification-token store.
type TokenRepository interface {
	Put(ctx context.Context, t *domain.VerificationToken) error
	// ConsumeByHash deletes the token row and returns it, atomically, so a
	// token can never be redeemed twice.
	ConsumeByHash(ctx context.Context, tokenHash string) (*domain.VerificationToken, error)
	DeleteByIdentifier(ctx context.Context, identifier string) error
}

// AuditRepository is the minimal interface the router requires from an audit store.
type AuditRepository interface {
	Put(ctx context.Context, e *domain.AuditEvent) error
}
