// Package refreshtokens declares the server-side repository contract for
// managing refresh tokens in persistent storage.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophtasks/internal/server/models"
)

// Repository defines operations for issuing, retrieving, revoking and sweeping refresh tokens.
type Repository interface {
	// Create stores a new refresh token for userID expiring at expiresAt.
	Create(ctx context.Context, userID string, token string, expiresAt time.Time) (*models.RefreshToken, error)

	// Find looks up a refresh token by its opaque token string.
	// Returns common.ErrorNotFound when the token is absent.
	Find(ctx context.Context, token string) (*models.RefreshToken, error)

	// Revoke marks one token revoked at now and reports how many rows matched.
	Revoke(ctx context.Context, token string, now time.Time) (int64, error)

	// Consume revokes token only while it is still live. Zero rows means it
	// was absent or another caller revoked it first.
	Consume(ctx context.Context, token string, now time.Time) (int64, error)

	// RevokeAllForUser marks every non-revoked token of userID revoked at now.
	RevokeAllForUser(ctx context.Context, userID string, now time.Time) (int64, error)

	// DeleteExpired removes rows whose expiry is before now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
