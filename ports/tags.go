package ports

import (
	"context"
	"errors"

	"github.com/layer-3/tagdesk/core"
)

// ErrDuplicate is returned when a unique constraint rejects a write.
var ErrDuplicate = errors.New("duplicate")

// TagRepository persists tags. Lookups and updates return (nil, nil) when the tag does not exist.
type TagRepository interface {
	List(ctx context.Context, q core.TagQuery) ([]core.Tag, int64, error)
	FindByID(ctx context.Context, id int64) (*core.Tag, error)
	Create(ctx context.Context, in core.TagInput) (*core.Tag, error)
	Update(ctx context.Context, id int64, in core.TagInput) (*core.Tag, error)
	Delete(ctx context.Context, id int64) (bool, error)
}
