package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/layer-3/tagdesk/core"
	"github.com/layer-3/tagdesk/ports"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100

	maxTagName        = 64
	maxTagDescription = 255
)

// TagService validates requests and maps repository failures to client errors.
type TagService struct {
	repo ports.TagRepository
}

func NewTagService(repo ports.TagRepository) *TagService {
	return &TagService{repo: repo}
}

func (s *TagService) List(ctx context.Context, q core.TagQuery) ([]core.Tag, int64, error) {
	if q.Page == 0 {
		q.Page = 1
	}
	if q.PageSize == 0 {
		q.PageSize = DefaultPageSize
	}
	if q.Page < 1 || q.PageSize < 1 || q.PageSize > MaxPageSize {
		return nil, 0, core.ErrBadRequestParams.WithMsg("page must be >= 1 and pageSize within 1..100")
	}
	q.Name = strings.TrimSpace(q.Name)

	tags, total, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, 0, core.ErrInternalDB.Wrap(err)
	}

	return tags, total, nil
}

func (s *TagService) Get(ctx context.Context, id int64) (*core.Tag, error) {
	tag, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, core.ErrInternalDB.Wrap(err)
	}
	if tag == nil {
		return nil, core.ErrNotFoundTag
	}

	return tag, nil
}

func (s *TagService) Create(ctx context.Context, in core.TagInput) (*core.Tag, error) {
	in, err := normalizeTag(in)
	if err != nil {
		return nil, err
	}

	tag, err := s.repo.Create(ctx, in)
	if err != nil {
		return nil, mapTagError(err)
	}

	return tag, nil
}

func (s *TagService) Update(ctx context.Context, id int64, in core.TagInput) (*core.Tag, error) {
	in, err := normalizeTag(in)
	if err != nil {
		return nil, err
	}

	tag, err := s.repo.Update(ctx, id, in)
	if err != nil {
		return nil, mapTagError(err)
	}
	if tag == nil {
		return nil, core.ErrNotFoundTag
	}

	return tag, nil
}

func (s *TagService) Delete(ctx context.Context, id int64) error {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return core.ErrInternalDB.Wrap(err)
	}
	if !deleted {
		return core.ErrNotFoundTag
	}

	return nil
}

func normalizeTag(in core.TagInput) (core.TagInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)

	if n := utf8.RuneCountInString(in.Name); n == 0 || n > maxTagName {
		return in, core.ErrBadRequestParams.WithMsg("name must be 1..64 characters")
	}
	if utf8.RuneCountInString(in.Description) > maxTagDescription {
		return in, core.ErrBadRequestParams.WithMsg("description must be at most 255 characters")
	}

	return in, nil
}

func mapTagError(err error) error {
	if errors.Is(err, ports.ErrDuplicate) {
		return core.ErrConflictTag.Wrap(err)
	}
	return core.ErrInternalDB.Wrap(err)
}
