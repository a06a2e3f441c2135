package tokenizer

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/layer-3/tagdesk/core"
	"github.com/layer-3/tagdesk/ports"
)

const AudienceAccess = "session:access"
const AudienceRefresh = "session:refresh"

// Config holds the signing material. Access and refresh tokens never share a secret.
type Config struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// JWTTokenizer implements the Tokenizer interface using HS256 JWTs
type JWTTokenizer struct {
	accessKey  []byte
	refreshKey []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewJWTTokenizer creates a new JWT tokenizer
func NewJWTTokenizer(cfg Config) *JWTTokenizer {
	return &JWTTokenizer{
		accessKey:  []byte(cfg.AccessSecret),
		refreshKey: []byte(cfg.RefreshSecret),
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		now:        time.Now,
	}
}

// WithClock replaces the time source used for issuing and verifying.
func (j *JWTTokenizer) WithClock(now func() time.Time) *JWTTokenizer {
	j.now = now
	return j
}

// IssueAccessToken signs {sub: userID, userName} with the access secret
func (j *JWTTokenizer) IssueAccessToken(userID int64, userName string) (string, error) {
	now := j.now()
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Audience:  jwt.ClaimStrings{AudienceAccess},
		},
		UserName: userName,
	}

	signedToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.accessKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}

	return signedToken, nil
}

// IssueRefreshToken signs {sub: userID} with the refresh secret
func (j *JWTTokenizer) IssueRefreshToken(userID int64) (string, error) {
	now := j.now()
	claims := RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.refreshTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Audience:  jwt.ClaimStrings{AudienceRefresh},
		},
	}

	signedToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.refreshKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign refresh token: %w", err)
	}

	return signedToken, nil
}

// VerifyAccessToken parses an access token and returns its payload
func (j *JWTTokenizer) VerifyAccessToken(tokenStr string) (*core.AccessPayload, error) {
	claims := &AccessClaims{}
	if err := j.parse(tokenStr, claims, j.accessKey, AudienceAccess); err != nil {
		return nil, core.ErrUnauthorizedAccessToken.Wrap(err)
	}

	userID, err := parseSubject(claims.Subject)
	if err != nil {
		return nil, core.ErrUnauthorizedAccessToken.Wrap(err)
	}

	return &core.AccessPayload{
		UserID:    userID,
		UserName:  claims.UserName,
		TokenID:   claims.ID,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// VerifyRefreshToken parses a refresh token and returns its payload
func (j *JWTTokenizer) VerifyRefreshToken(tokenStr string) (*core.RefreshPayload, error) {
	claims := &RefreshClaims{}
	if err := j.parse(tokenStr, claims, j.refreshKey, AudienceRefresh); err != nil {
		return nil, core.ErrUnauthorizedRefreshToken.Wrap(err)
	}

	userID, err := parseSubject(claims.Subject)
	if err != nil {
		return nil, core.ErrUnauthorizedRefreshToken.Wrap(err)
	}

	return &core.RefreshPayload{
		UserID:    userID,
		TokenID:   claims.ID,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func (j *JWTTokenizer) parse(tokenStr string, claims jwt.Claims, key []byte, audience string) error {
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		// Validate the signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.now),
	)
	if err != nil {
		return fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return errors.New("token is not valid")
	}

	return nil
}

func parseSubject(sub string) (int64, error) {
	id, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid subject %q: %w", sub, err)
	}
	return id, nil
}

var _ ports.Tokenizer = (*JWTTokenizer)(nil)
