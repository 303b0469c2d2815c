// Package services contains server-side business logic. This file implements
// SessionService: Google sign-in, access/refresh token issuance, refresh
// rotation, revocation and the expired-token sweep.
package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/dmitrijs2005/gophtasks/internal/common"
	"github.com/dmitrijs2005/gophtasks/internal/dbx"
	"github.com/dmitrijs2005/gophtasks/internal/logging"
	"github.com/dmitrijs2005/gophtasks/internal/server/auth"
	"github.com/dmitrijs2005/gophtasks/internal/server/config"
	"github.com/dmitrijs2005/gophtasks/internal/server/models"
	"github.com/dmitrijs2005/gophtasks/internal/server/rbac"
	"github.com/dmitrijs2005/gophtasks/internal/server/repositories/repomanager"
)

// refreshTokenBytes is the entropy of an opaque refresh token (hex encoded on the wire).
const refreshTokenBytes = 40

var (
	errInvalidTokenUser = errors.New("invalid user data for token generation")
	errTokenUserGone    = errors.New("user not found")
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// SessionService owns the refresh token lifecycle. A refresh token is ACTIVE
// until it is revoked or its expiry passes; both end states are terminal.
// Issuing a new refresh token revokes every live token of the user first, so a
// user holds at most one active token.
type SessionService struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	jwtSecret                    []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
	logger                       logging.Logger
	now                          func() time.Time
}

// NewSessionService constructs a SessionService using repositories and server config.
func NewSessionService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, logger logging.Logger) *SessionService {
	return &SessionService{
		db:                           db,
		repomanager:                  m,
		jwtSecret:                    []byte(cfg.JWTSecret),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
		logger:                       logger.With("module", "SessionService"),
		now:                          time.Now,
	}
}

// IssueAccessToken signs an access token carrying the user's id, email, name
// and roles. A user without id or email is rejected as unauthorized.
func (s *SessionService) IssueAccessToken(user *models.User) (string, error) {
	if user == nil || user.ID == "" || user.Email == "" {
		return "", common.Unauthorized(errInvalidTokenUser)
	}

	token, err := auth.GenerateAccessToken(identityOf(user), s.jwtSecret, s.accessTokenValidityDuration, s.now())
	if err != nil {
		s.logger.Error(context.Background(), "error generating access token", "user_id", user.ID, "error", err.Error())
		return "", common.ErrorInternal
	}

	s.logger.Debug(context.Background(), "generated access token", "user_id", user.ID)
	return token, nil
}

// IssueRefreshToken revokes the user's live refresh tokens and stores a fresh
// one, in a single transaction.
func (s *SessionService) IssueRefreshToken(ctx context.Context, user *models.User) (string, error) {
	if user == nil || user.ID == "" {
		return "", common.Unauthorized(errInvalidTokenUser)
	}

	token, err := common.MakeRandHexString(refreshTokenBytes)
	if err != nil {
		return "", s.internal(ctx, "error generating refresh token", err, "user_id", user.ID)
	}

	now := s.now()
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.RefreshTokens(tx)
		if _, err := repo.RevokeAllForUser(ctx, user.ID, now); err != nil {
			return err
		}
		_, err := repo.Create(ctx, user.ID, token, now.Add(s.refreshTokenValidityDuration))
		return err
	})
	if err != nil {
		return "", s.internal(ctx, "error generating refresh token", err, "user_id", user.ID)
	}

	s.logger.Debug(ctx, "generated refresh token", "user_id", user.ID)
	return token, nil
}

// IssueTokenPair mints an access token and a refresh token for user.
func (s *SessionService) IssueTokenPair(ctx context.Context, user *models.User) (*TokenPair, error) {
	access, err := s.IssueAccessToken(user)
	if err != nil {
		return nil, err
	}
	refresh, err := s.IssueRefreshToken(ctx, user)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// FindOrCreateUserFromGoogle links a Google identity to a user row. The user
// is looked up by google id or email; a new user gets the USER role, an
// existing one is updated only when a field actually changed.
func (s *SessionService) FindOrCreateUserFromGoogle(ctx context.Context, profile models.GoogleProfile) (*models.User, error) {
	if profile.Email == "" || profile.GoogleID == "" || profile.Name == "" {
		s.logger.Error(ctx, "invalid Google user data received", "email", profile.Email, "google_id", profile.GoogleID)
		return nil, common.Unauthorized(common.ErrInvalidUserData)
	}

	var user *models.User
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		found, err := repo.FindByGoogleIDOrEmail(ctx, profile.GoogleID, profile.Email)
		if errors.Is(err, common.ErrorNotFound) {
			s.logger.Info(ctx, "creating new user from Google", "email", profile.Email)
			googleID := profile.GoogleID
			user, err = repo.Create(ctx, &models.User{
				Email:    profile.Email,
				Name:     profile.Name,
				Roles:    []rbac.Role{rbac.RoleUser},
				GoogleID: &googleID,
			})
			return err
		}
		if err != nil {
			return err
		}

		user = found
		if !applyProfile(user, profile) {
			return nil
		}
		if err := repo.Update(ctx, user); err != nil {
			return err
		}
		s.logger.Info(ctx, "updated user information from Google", "user_id", user.ID)
		return nil
	})
	if err != nil {
		s.logger.Error(ctx, "error processing Google user", "error", err.Error())
		return nil, errors.Join(common.ErrorInternal, common.ErrProcessingFailed)
	}

	s.logger.Info(ctx, "successfully processed Google user", "user_id", user.ID)
	return user, nil
}

// applyProfile copies changed profile fields into user and reports whether
// anything changed. An existing google id link is never replaced.
func applyProfile(user *models.User, profile models.GoogleProfile) bool {
	updated := false
	if user.GoogleID == nil || *user.GoogleID == "" {
		googleID := profile.GoogleID
		user.GoogleID = &googleID
		updated = true
	}
	if user.Email != profile.Email {
		user.Email = profile.Email
		updated = true
	}
	if user.Name != profile.Name {
		user.Name = profile.Name
		updated = true
	}
	return updated
}

// ValidateRefreshToken returns the owner of an active refresh token. Unknown,
// revoked and expired tokens, and tokens whose user is gone, are unauthorized.
func (s *SessionService) ValidateRefreshToken(ctx context.Context, token string) (*models.User, error) {
	return s.validateRefreshToken(ctx, s.db, token)
}

func (s *SessionService) validateRefreshToken(ctx context.Context, db dbx.DBTX, token string) (*models.User, error) {
	if token == "" {
		return nil, common.Unauthorized(common.ErrInvalidToken)
	}
	prefix := common.TokenPrefix(token)

	rt, err := s.repomanager.RefreshTokens(db).Find(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.logger.Warn(ctx, "refresh token not found", "token", prefix)
			return nil, common.Unauthorized(common.ErrRefreshTokenNotFound)
		}
		return nil, s.internal(ctx, "error validating refresh token", err)
	}

	if rt.Revoked {
		s.logger.Warn(ctx, "attempted to use revoked refresh token", "token", prefix)
		return nil, common.Unauthorized(common.ErrRefreshTokenRevoked)
	}

	if rt.Expired(s.now()) {
		s.logger.Warn(ctx, "attempted to use expired refresh token", "token", prefix)
		return nil, common.Unauthorized(common.ErrRefreshTokenExpired)
	}

	user, err := s.repomanager.Users(db).FindByID(ctx, rt.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.logger.Error(ctx, "user not found for valid refresh token", "user_id", rt.UserID)
			return nil, common.Unauthorized(errTokenUserGone)
		}
		return nil, s.internal(ctx, "error validating refresh token", err)
	}

	s.logger.Debug(ctx, "validated refresh token", "user_id", user.ID)
	return user, nil
}

// HandleRefresh consumes token and returns a new pair. Validation and the
// revocation of token commit together; the new pair is issued afterwards, so a
// failure at that point leaves the caller with no usable refresh token.
func (s *SessionService) HandleRefresh(ctx context.Context, token string) (*TokenPair, error) {
	if token == "" {
		return nil, common.Unauthorized(common.ErrInvalidToken)
	}

	var user *models.User
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		u, err := s.validateRefreshToken(ctx, tx, token)
		if err != nil {
			return err
		}
		n, err := s.repomanager.RefreshTokens(tx).Consume(ctx, token, s.now())
		if err != nil {
			return err
		}
		if n == 0 {
			s.logger.Warn(ctx, "refresh token consumed concurrently", "token", common.TokenPrefix(token))
			return common.Unauthorized(common.ErrRefreshTokenRevoked)
		}
		user = u
		return nil
	})
	if err != nil {
		if errors.Is(err, common.ErrorUnauthorized) || errors.Is(err, common.ErrorInternal) {
			return nil, err
		}
		return nil, s.internal(ctx, "error handling token refresh", err)
	}

	pair, err := s.IssueTokenPair(ctx, user)
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "successfully refreshed tokens", "user_id", user.ID)
	return pair, nil
}

// RevokeRefreshToken revokes one token. A token that matches no row is
// unauthorized.
func (s *SessionService) RevokeRefreshToken(ctx context.Context, token string) error {
	if token == "" {
		return common.Unauthorized(common.ErrInvalidToken)
	}

	n, err := s.repomanager.RefreshTokens(s.db).Revoke(ctx, token, s.now())
	if err != nil {
		return s.internal(ctx, "error revoking refresh token", err)
	}
	if n == 0 {
		s.logger.Warn(ctx, "attempted to revoke non-existent token", "token", common.TokenPrefix(token))
		return common.Unauthorized(common.ErrRefreshTokenNotFound)
	}

	s.logger.Debug(ctx, "revoked refresh token", "token", common.TokenPrefix(token))
	return nil
}

// RevokeAllUserRefreshTokens revokes every live token of the user. Matching
// zero rows is not an error, so repeated calls are harmless.
func (s *SessionService) RevokeAllUserRefreshTokens(ctx context.Context, userID string) error {
	n, err := s.repomanager.RefreshTokens(s.db).RevokeAllForUser(ctx, userID, s.now())
	if err != nil {
		return s.internal(ctx, "error revoking all tokens for user", err, "user_id", userID)
	}

	s.logger.Info(ctx, "revoked refresh tokens for user", "count", n, "user_id", userID)
	return nil
}

// CleanupExpiredTokens deletes expired rows. Failures are logged only.
func (s *SessionService) CleanupExpiredTokens(ctx context.Context) {
	n, err := s.repomanager.RefreshTokens(s.db).DeleteExpired(ctx, s.now())
	if err != nil {
		s.logger.Error(ctx, "error cleaning up expired tokens", "error", err.Error())
		return
	}
	s.logger.Info(ctx, "cleaned up expired refresh tokens", "count", n)
}

// FindUserByID returns common.ErrorNotFound when the user does not exist.
func (s *SessionService) FindUserByID(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.repomanager.Users(s.db).FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.logger.Warn(ctx, "user not found", "user_id", userID)
			return nil, common.ErrorNotFound
		}
		return nil, s.internal(ctx, "error finding user by id", err, "user_id", userID)
	}
	return user, nil
}

// Permissions resolves the effective permissions of user.
func (s *SessionService) Permissions(user *models.User) []rbac.Permission {
	return rbac.Resolve(user.Roles...).List()
}

func (s *SessionService) internal(ctx context.Context, msg string, err error, args ...any) error {
	s.logger.Error(ctx, msg, append(args, "error", err.Error())...)
	return common.ErrorInternal
}

func identityOf(user *models.User) auth.Identity {
	return auth.Identity{UserID: user.ID, Email: user.Email, Name: user.Name, Roles: user.Roles}
}
