package ports

import (
	"context"

	"github.com/layer-3/tagdesk/core"
)

// UserRepository reads user records. Lookups return (nil, nil) when no row matches.
type UserRepository interface {
	FindOneByUserNameAndPassword(ctx context.Context, userName, passwordHash string) (*core.User, error)
	FindOneByUserIDAndUserName(ctx context.Context, userID int64, userName string) (*core.User, error)
	FindOneByID(ctx context.Context, userID int64) (*core.User, error)
}
