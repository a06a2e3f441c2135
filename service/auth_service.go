package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/layer-3/tagdesk/core"
	"github.com/layer-3/tagdesk/ports"
)

// AuthService handles authentication business logic
type AuthService struct {
	tokenizer ports.Tokenizer
	users     ports.UserRepository
	registry  *SessionRegistry
	eventPub  ports.EventPublisher
	log       *slog.Logger

	accessTTL time.Duration
}

// NewAuthService creates a new authentication service
func NewAuthService(
	log *slog.Logger,
	tokenizer ports.Tokenizer,
	users ports.UserRepository,
	registry *SessionRegistry,
	eventPub ports.EventPublisher,
	accessTTL time.Duration,
) *AuthService {
	return &AuthService{
		tokenizer: tokenizer,
		users:     users,
		registry:  registry,
		eventPub:  eventPub,
		log:       log,
		accessTTL: accessTTL,
	}
}

// Login returns the user matching userName and passwordHash, or nil when
// there is none. The digest is computed by the caller.
func (s *AuthService) Login(ctx context.Context, userName, passwordHash string) (*core.User, error) {
	user, err := s.users.FindOneByUserNameAndPassword(ctx, userName, passwordHash)
	if err != nil {
		return nil, core.ErrInternalDB.Wrap(err)
	}

	return user, nil
}

// RefreshAccessToken issues a new access token and makes it the user's
// current one in the registry.
func (s *AuthService) RefreshAccessToken(ctx context.Context, userID int64, userName string) (string, error) {
	token, err := s.tokenizer.IssueAccessToken(userID, userName)
	if err != nil {
		return "", core.ErrInternal.Wrap(err)
	}

	if err := s.registry.StoreAccessToken(ctx, userID, userName, token); err != nil {
		return "", core.ErrInternalRedis.Wrap(err)
	}

	return token, nil
}

// Logout removes the user's registry entry. Failures are logged and never
// reach the caller.
func (s *AuthService) Logout(ctx context.Context, userID int64, userName string) {
	log := s.log.With(slog.Int64("user_id", userID), slog.String("user_name", userName))

	deleted, err := s.registry.Revoke(ctx, userID, userName)
	if err != nil {
		log.Warn("logout_revoke_failed", slog.Any("error", err))
	} else {
		log.Info("logout", slog.Int64("revoked", deleted))
	}

	if err := s.eventPub.PublishLogout(ctx, userID, userName, deleted > 0); err != nil {
		log.Warn("logout_event_failed", slog.Any("error", err))
	}
}

// LookupUser returns the user by id, or nil when absent.
func (s *AuthService) LookupUser(ctx context.Context, userID int64) (*core.User, error) {
	user, err := s.users.FindOneByID(ctx, userID)
	if err != nil {
		return nil, core.ErrInternalDB.Wrap(err)
	}

	return user, nil
}

// LookupUserByIDAndName returns the user by id and name, or nil when absent.
func (s *AuthService) LookupUserByIDAndName(ctx context.Context, userID int64, userName string) (*core.User, error) {
	user, err := s.users.FindOneByUserIDAndUserName(ctx, userID, userName)
	if err != nil {
		return nil, core.ErrInternalDB.Wrap(err)
	}

	return user, nil
}

// IssueTokens creates the token pair handed out after a successful login.
func (s *AuthService) IssueTokens(ctx context.Context, user *core.User) (*core.TokenPair, error) {
	accessToken, err := s.RefreshAccessToken(ctx, user.ID, user.UserName)
	if err != nil {
		return nil, err
	}

	refreshToken, err := s.tokenizer.IssueRefreshToken(user.ID)
	if err != nil {
		return nil, core.ErrInternal.Wrap(err)
	}

	return &core.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    s.accessTTL,
	}, nil
}

// Refresh exchanges a refresh token for a new access token. The refresh token
// itself is returned unchanged and stays valid until its own expiry.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*core.TokenPair, error) {
	payload, err := s.tokenizer.VerifyRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}

	user, err := s.LookupUser(ctx, payload.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, core.ErrUnauthorizedRefreshToken.WithMsg("user no longer exists")
	}

	accessToken, err := s.RefreshAccessToken(ctx, user.ID, user.UserName)
	if err != nil {
		return nil, err
	}

	return &core.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    s.accessTTL,
	}, nil
}

// Authenticate verifies an access token and reports the remaining registry
// lifetime for it. A missing registry entry does not reject the token.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (*core.AccessPayload, int64, error) {
	payload, err := s.tokenizer.VerifyAccessToken(accessToken)
	if err != nil {
		return nil, 0, err
	}

	ttl, err := s.registry.TokenTTL(ctx, CacheKey(payload.UserID, payload.UserName))
	if err != nil {
		s.log.Warn("token_ttl_failed", slog.Int64("user_id", payload.UserID), slog.Any("error", err))
		ttl = -2
	}

	return payload, ttl, nil
}
