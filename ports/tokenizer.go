package ports

import "github.com/layer-3/tagdesk/core"

// Tokenizer issues and verifies signed session tokens
type Tokenizer interface {
	IssueAccessToken(userID int64, userName string) (string, error)
	IssueRefreshToken(userID int64) (string, error)

	// Verification helpers
	VerifyAccessToken(token string) (*core.AccessPayload, error)
	VerifyRefreshToken(token string) (*core.RefreshPayload, error)
}
