package core

import "time"

// User is a credential record owned by the user-management system.
type User struct {
	ID           int64  // Primary key
	UserName     string // Unique login name
	PasswordHash string // Digest produced by internal/password
}

// AccessPayload is the verified content of an access token
type AccessPayload struct {
	UserID    int64
	UserName  string
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// RefreshPayload is the verified content of a refresh token
type RefreshPayload struct {
	UserID    int64
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenPair is returned to clients after login or refresh
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration // Lifetime of AccessToken
}

// CaptchaSession is the challenge state kept in the client's session.
// ExpirationTimestamp is unix milliseconds; nil when it was never set.
type CaptchaSession struct {
	Captcha             string
	ExpirationTimestamp *int64
}

// CaptchaChallenge is a freshly generated challenge ready to be shown.
type CaptchaChallenge struct {
	Session CaptchaSession
	Image   string // data URI
}
