package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/layer-3/tagdesk/core"
	"github.com/layer-3/tagdesk/ports"
)

const tagColumns = `id, name, description, created_at, updated_at`

// List returns one page of tags ordered by id and the total row count.
func (s *Storage) List(ctx context.Context, q core.TagQuery) ([]core.Tag, int64, error) {
	const op = "storage.postgres.ListTags"

	where := ""
	args := []any{}
	if q.Name != "" {
		where = ` WHERE name ILIKE $1`
		args = append(args, "%"+escapeLike(q.Name)+"%")
	}

	var total int64
	if err := s.db.QueryRow(ctx, `SELECT count(*) FROM tags`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	query := fmt.Sprintf(`SELECT %s FROM tags%s ORDER BY id LIMIT $%d OFFSET $%d`,
		tagColumns, where, len(args)+1, len(args)+2)
	args = append(args, q.PageSize, q.Offset())

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	tags := make([]core.Tag, 0, q.PageSize)
	for rows.Next() {
		var t core.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Description, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("%s: %w", op, err)
		}
		tags = append(tags, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	return tags, total, nil
}

// FindByID returns (nil, nil) when the tag does not exist.
func (s *Storage) FindByID(ctx context.Context, id int64) (*core.Tag, error) {
	const op = "storage.postgres.FindTagByID"

	tag, err := scanTag(s.db.QueryRow(ctx, `SELECT `+tagColumns+` FROM tags WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return tag, nil
}

// Create inserts a tag.
func (s *Storage) Create(ctx context.Context, in core.TagInput) (*core.Tag, error) {
	const op = "storage.postgres.CreateTag"

	query := `
		INSERT INTO tags(name, description)
		VALUES ($1, $2)
		RETURNING ` + tagColumns

	tag, err := scanTag(s.db.QueryRow(ctx, query, in.Name, in.Description))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapUnique(err))
	}

	return tag, nil
}

// Update rewrites a tag. Returns (nil, nil) when it does not exist.
func (s *Storage) Update(ctx context.Context, id int64, in core.TagInput) (*core.Tag, error) {
	const op = "storage.postgres.UpdateTag"

	query := `
		UPDATE tags
		SET name = $2, description = $3, updated_at = now()
		WHERE id = $1
		RETURNING ` + tagColumns

	tag, err := scanTag(s.db.QueryRow(ctx, query, id, in.Name, in.Description))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapUnique(err))
	}

	return tag, nil
}

// Delete removes a tag and reports whether it existed.
func (s *Storage) Delete(ctx context.Context, id int64) (bool, error) {
	const op = "storage.postgres.DeleteTag"

	res, err := s.db.Exec(ctx, `DELETE FROM tags WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return res.RowsAffected() > 0, nil
}

func scanTag(row pgx.Row) (*core.Tag, error) {
	var t core.Tag
	err := row.Scan(&t.ID, &t.Name, &t.Description, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

func mapUnique(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return ports.ErrDuplicate
	}
	return err
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
