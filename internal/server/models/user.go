// Package models defines server-side data models persisted in the database.
package models

import (
	"time"

	"github.com/dmitrijs2005/gophtasks/internal/server/rbac"
)

type User struct {
	ID        string      `json:"id"`
	Email     string      `json:"email"`
	Name      string      `json:"name"`
	Roles     []rbac.Role `json:"roles"`
	GoogleID  *string     `json:"googleId,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// GoogleProfile is the identity returned by the OAuth provider.
type GoogleProfile struct {
	GoogleID string
	Email    string
	Name     string
}
