package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/knc219-a11y/pension-list/internal/model"
	"github.com/knc219-a11y/pension-list/internal/util"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

const itemColumns = `id, text, category, checked, created`

func (s *PostgresStore) ListItems(ctx context.Context, collection string) ([]model.Item, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+itemColumns+`
		FROM items
		WHERE collection = $1
		ORDER BY created ASC, id ASC
	`, collection)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()
	return scanItems(rows)
}

func (s *PostgresStore) InsertItem(ctx context.Context, collection string, item model.NewItem) (model.Item, error) {
	created := model.Item{
		ID:       util.NewID(""),
		Text:     item.Text,
		Category: item.Category,
		Checked:  item.Checked,
		Created:  item.Created,
	}
	if err := insertItem(ctx, s.db, collection, created); err != nil {
		return model.Item{}, err
	}
	return created, nil
}

func (s *PostgresStore) PatchItem(ctx context.Context, collection, id string, patch model.Patch) (model.Item, error) {
	var item model.Item
	err := s.db.QueryRowContext(ctx, `
		UPDATE items
		SET text = COALESCE($3::text, text),
			category = COALESCE($4::text, category),
			checked = COALESCE($5::boolean, checked),
			updated_at = NOW()
		WHERE collection = $1 AND id = $2
		RETURNING `+itemColumns,
		collection, id, patch.Text, categoryArg(patch.Category), patch.Checked,
	).Scan(&item.ID, &item.Text, &item.Category, &item.Checked, &item.Created)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Item{}, ErrNotFound
	}
	if err != nil {
		return model.Item{}, fmt.Errorf("patch item: %w", err)
	}
	return item, nil
}

// DeleteItem removes one item. Deleting a missing item is not an error.
func (s *PostgresStore) DeleteItem(ctx context.Context, collection, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM items WHERE collection = $1 AND id = $2`, collection, id); err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	return nil
}

// ApplyBatch runs every delete and create of batch in one transaction.
func (s *PostgresStore) ApplyBatch(ctx context.Context, collection string, batch model.Batch) ([]model.Item, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin batch: %w", err)
	}
	defer tx.Rollback()

	if len(batch.Deletes) > 0 {
		stmt, err := tx.PrepareContext(ctx, `DELETE FROM items WHERE collection = $1 AND id = $2`)
		if err != nil {
			return nil, fmt.Errorf("prepare batch delete: %w", err)
		}
		defer stmt.Close()
		for _, id := range batch.Deletes {
			if _, err := stmt.ExecContext(ctx, collection, id); err != nil {
				return nil, fmt.Errorf("batch delete %s: %w", id, err)
			}
		}
	}

	created := make([]model.Item, 0, len(batch.Creates))
	for _, n := range batch.Creates {
		item := model.Item{
			ID:       util.NewID(""),
			Text:     n.Text,
			Category: n.Category,
			Checked:  n.Checked,
			Created:  n.Created,
		}
		if err := insertItem(ctx, tx, collection, item); err != nil {
			return nil, err
		}
		created = append(created, item)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit batch: %w", err)
	}
	return created, nil
}

// SearchItems matches items whose text contains query, case-insensitively.
func (s *PostgresStore) SearchItems(ctx context.Context, collection, query string, limit int) ([]model.Item, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+itemColumns+`
		FROM items
		WHERE collection = $1 AND lower(text) LIKE '%' || lower($2) || '%' ESCAPE '\'
		ORDER BY checked ASC, created ASC, id ASC
		LIMIT $3
	`, collection, escapeLike(query), limit)
	if err != nil {
		return nil, fmt.Errorf("search items: %w", err)
	}
	defer rows.Close()
	return scanItems(rows)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertItem(ctx context.Context, db execer, collection string, item model.Item) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO items (collection, id, text, category, checked, created)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, collection, item.ID, item.Text, string(item.Category), item.Checked, item.Created)
	if err != nil {
		return fmt.Errorf("insert item: %w", err)
	}
	return nil
}

func scanItems(rows *sql.Rows) ([]model.Item, error) {
	items := make([]model.Item, 0)
	for rows.Next() {
		var item model.Item
		if err := rows.Scan(&item.ID, &item.Text, &item.Category, &item.Checked, &item.Created); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}
	return items, nil
}

func categoryArg(c *model.Category) *string {
	if c == nil {
		return nil
	}
	value := string(*c)
	return &value
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(value string) string {
	return likeEscaper.Replace(value)
}
