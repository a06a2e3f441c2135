package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/layer-3/tagdesk/core"
	"github.com/layer-3/tagdesk/ports"
)

type fakeTags struct {
	rows      map[int64]core.Tag
	nextID    int64
	err       error
	lastQuery core.TagQuery
}

func newFakeTags() *fakeTags {
	return &fakeTags{rows: map[int64]core.Tag{}, nextID: 1}
}

func (f *fakeTags) taken(name string, except int64) bool {
	for id, t := range f.rows {
		if id != except && strings.EqualFold(t.Name, name) {
			return true
		}
	}
	return false
}

func (f *fakeTags) List(_ context.Context, q core.TagQuery) ([]core.Tag, int64, error) {
	f.lastQuery = q
	if f.err != nil {
		return nil, 0, f.err
	}
	var out []core.Tag
	for id := int64(1); id < f.nextID; id++ {
		if t, ok := f.rows[id]; ok {
			out = append(out, t)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeTags) FindByID(_ context.Context, id int64) (*core.Tag, error) {
	if f.err != nil {
		return nil, f.err
	}
	if t, ok := f.rows[id]; ok {
		return &t, nil
	}
	return nil, nil
}

func (f *fakeTags) Create(_ context.Context, in core.TagInput) (*core.Tag, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.taken(in.Name, 0) {
		return nil, fmt.Errorf("storage: %w", ports.ErrDuplicate)
	}
	t := core.Tag{ID: f.nextID, Name: in.Name, Description: in.Description}
	f.rows[t.ID] = t
	f.nextID++
	return &t, nil
}

func (f *fakeTags) Update(_ context.Context, id int64, in core.TagInput) (*core.Tag, error) {
	if f.err != nil {
		return nil, f.err
	}
	t, ok := f.rows[id]
	if !ok {
		return nil, nil
	}
	if f.taken(in.Name, id) {
		return nil, ports.ErrDuplicate
	}
	t.Name, t.Description = in.Name, in.Description
	f.rows[id] = t
	return &t, nil
}

func (f *fakeTags) Delete(_ context.Context, id int64) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	_, ok := f.rows[id]
	delete(f.rows, id)
	return ok, nil
}

func TestTagService_CreateValidation(t *testing.T) {
	ctx := context.Background()
	svc := NewTagService(newFakeTags())

	tag, err := svc.Create(ctx, core.TagInput{Name: "  infra  ", Description: " hosts "})
	require.NoError(t, err)
	require.Equal(t, "infra", tag.Name)
	require.Equal(t, "hosts", tag.Description)

	_, err = svc.Create(ctx, core.TagInput{Name: "   "})
	require.ErrorIs(t, err, core.ErrBadRequestParams)

	_, err = svc.Create(ctx, core.TagInput{Name: strings.Repeat("ж", 65)})
	require.ErrorIs(t, err, core.ErrBadRequestParams)

	_, err = svc.Create(ctx, core.TagInput{Name: strings.Repeat("ж", 64)})
	require.NoError(t, err)

	_, err = svc.Create(ctx, core.TagInput{Name: "long", Description: strings.Repeat("d", 256)})
	require.ErrorIs(t, err, core.ErrBadRequestParams)
}

func TestTagService_Conflict(t *testing.T) {
	ctx := context.Background()
	svc := NewTagService(newFakeTags())

	a, err := svc.Create(ctx, core.TagInput{Name: "alpha"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, core.TagInput{Name: "beta"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, core.TagInput{Name: "ALPHA"})
	require.ErrorIs(t, err, core.ErrConflictTag)
	require.Equal(t, 409, core.AsError(err).Status())

	_, err = svc.Update(ctx, a.ID, core.TagInput{Name: "beta"})
	require.ErrorIs(t, err, core.ErrConflictTag)
}

func TestTagService_NotFound(t *testing.T) {
	ctx := context.Background()
	svc := NewTagService(newFakeTags())

	_, err := svc.Get(ctx, 1)
	require.ErrorIs(t, err, core.ErrNotFoundTag)

	_, err = svc.Update(ctx, 1, core.TagInput{Name: "x"})
	require.ErrorIs(t, err, core.ErrNotFoundTag)

	require.ErrorIs(t, svc.Delete(ctx, 1), core.ErrNotFoundTag)

	tag, err := svc.Create(ctx, core.TagInput{Name: "x"})
	require.NoError(t, err)

	got, err := svc.Get(ctx, tag.ID)
	require.NoError(t, err)
	require.Equal(t, "x", got.Name)

	updated, err := svc.Update(ctx, tag.ID, core.TagInput{Name: "y", Description: "renamed"})
	require.NoError(t, err)
	require.Equal(t, "y", updated.Name)

	require.NoError(t, svc.Delete(ctx, tag.ID))
	require.ErrorIs(t, svc.Delete(ctx, tag.ID), core.ErrNotFoundTag)
}

func TestTagService_ListPaging(t *testing.T) {
	ctx := context.Background()
	repo := newFakeTags()
	svc := NewTagService(repo)

	_, _, err := svc.List(ctx, core.TagQuery{Name: "  inf "})
	require.NoError(t, err)
	require.Equal(t, core.TagQuery{Page: 1, PageSize: DefaultPageSize, Name: "inf"}, repo.lastQuery)

	for _, q := range []core.TagQuery{
		{Page: -1, PageSize: 10},
		{Page: 1, PageSize: -5},
		{Page: 1, PageSize: MaxPageSize + 1},
	} {
		_, _, err := svc.List(ctx, q)
		require.ErrorIs(t, err, core.ErrBadRequestParams, "%+v", q)
	}

	_, _, err = svc.List(ctx, core.TagQuery{Page: 3, PageSize: MaxPageSize})
	require.NoError(t, err)
	require.Equal(t, 200, repo.lastQuery.Offset())
}

func TestTagService_RepositoryFailure(t *testing.T) {
	ctx := context.Background()
	repo := newFakeTags()
	repo.err = errors.New("conn reset")
	svc := NewTagService(repo)

	_, _, err := svc.List(ctx, core.TagQuery{})
	require.ErrorIs(t, err, core.ErrInternalDB)

	_, err = svc.Get(ctx, 1)
	require.ErrorIs(t, err, core.ErrInternalDB)

	_, err = svc.Create(ctx, core.TagInput{Name: "x"})
	require.ErrorIs(t, err, core.ErrInternalDB)
	require.ErrorIs(t, err, repo.err)

	require.ErrorIs(t, svc.Delete(ctx, 1), core.ErrInternalDB)
}
