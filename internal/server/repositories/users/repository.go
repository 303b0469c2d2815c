// Package users declares the storage contract for user accounts.
package users

import (
	"context"

	"github.com/dmitrijs2005/gophtasks/internal/server/models"
)

type Repository interface {
	// FindByGoogleIDOrEmail prefers a google id match over an email match.
	FindByGoogleIDOrEmail(ctx context.Context, googleID, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	Create(ctx context.Context, user *models.User) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
}
