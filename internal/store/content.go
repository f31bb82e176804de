package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"relink/internal/catalog"
)

// ContentItem is one body of markup that may carry directive tokens.
type ContentItem struct {
	ID         int64     `json:"id"`
	Title      string    `json:"title"`
	Kind       string    `json:"kind"`
	Body       string    `json:"body"`
	ModifiedAt time.Time `json:"modified_at"`
}

const contentColumns = "id, title, kind, body, modified_at"

func scanContent(scanner interface{ Scan(dest ...any) error }) (ContentItem, error) {
	var (
		item        ContentItem
		modifiedRaw sql.NullString
	)
	if err := scanner.Scan(&item.ID, &item.Title, &item.Kind, &item.Body, &modifiedRaw); err != nil {
		return ContentItem{}, err
	}
	if modified, err := parseTimeString(modifiedRaw.String); err == nil {
		item.ModifiedAt = modified
	}
	return item, nil
}

// ListContent returns every content item ordered by id. When marker is not
// empty only bodies containing it are returned.
func (s *Store) ListContent(ctx context.Context, marker string) ([]ContentItem, error) {
	query := `SELECT ` + contentColumns + ` FROM content_items`
	var args []any
	if marker != "" {
		query += ` WHERE instr(body, ?) > 0`
		args = append(args, marker)
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query content: %w", err)
	}
	defer rows.Close()

	var items []ContentItem
	for rows.Next() {
		item, err := scanContent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan content: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// GetContent fetches a content item by id.
func (s *Store) GetContent(ctx context.Context, id int64) (ContentItem, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+contentColumns+` FROM content_items WHERE id = ?`, id)
	item, err := scanContent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ContentItem{}, fmt.Errorf("content item %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return ContentItem{}, fmt.Errorf("get content: %w", err)
	}
	return item, nil
}

// CountContent returns the number of content items.
func (s *Store) CountContent(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM content_items`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count content: %w", err)
	}
	return count, nil
}

// UpdateBody replaces one item's body and stamps its modification time.
func (s *Store) UpdateBody(ctx context.Context, id int64, body string) error {
	res, err := s.execWithRetry(ctx,
		`UPDATE content_items SET body = ?, modified_at = ? WHERE id = ?`,
		body, formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("update content %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update content %d: rows affected: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("content item %d: %w", id, ErrNotFound)
	}
	return nil
}

// ListCatalog returns every catalog entry ordered by id.
func (s *Store) ListCatalog(ctx context.Context) ([]catalog.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, slug, sku, kind FROM catalog_entries ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query catalog: %w", err)
	}
	defer rows.Close()

	var entries []catalog.Entry
	for rows.Next() {
		var entry catalog.Entry
		if err := rows.Scan(&entry.ID, &entry.Name, &entry.Slug, &entry.SKU, &entry.Kind); err != nil {
			return nil, fmt.Errorf("scan catalog entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// SeedContent inserts or replaces content items in one transaction.
func (s *Store) SeedContent(ctx context.Context, items ...ContentItem) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, item := range items {
			if item.ID <= 0 {
				return fmt.Errorf("seed content: invalid id %d", item.ID)
			}
			kind := strings.TrimSpace(item.Kind)
			if kind == "" {
				kind = "post"
			}
			modified := item.ModifiedAt
			if modified.IsZero() {
				modified = time.Now()
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO content_items (id, title, kind, body, modified_at) VALUES (?, ?, ?, ?, ?)
				 ON CONFLICT(id) DO UPDATE SET title = excluded.title, kind = excluded.kind,
				 body = excluded.body, modified_at = excluded.modified_at`,
				item.ID, item.Title, kind, item.Body, formatTime(modified)); err != nil {
				return fmt.Errorf("seed content %d: %w", item.ID, err)
			}
		}
		return nil
	})
}

// SeedCatalog inserts or replaces catalog entries in one transaction.
func (s *Store) SeedCatalog(ctx context.Context, entries ...catalog.Entry) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, entry := range entries {
			if entry.ID <= 0 || strings.TrimSpace(entry.Slug) == "" {
				return fmt.Errorf("seed catalog: entry %d needs an id and slug", entry.ID)
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO catalog_entries (id, name, slug, sku, kind) VALUES (?, ?, ?, ?, ?)
				 ON CONFLICT(id) DO UPDATE SET name = excluded.name, slug = excluded.slug,
				 sku = excluded.sku, kind = excluded.kind`,
				entry.ID, entry.Name, entry.Slug, entry.SKU, entry.Kind); err != nil {
				return fmt.Errorf("seed catalog %d: %w", entry.ID, err)
			}
		}
		return nil
	})
}

func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()
		if err := fn(tx); err != nil {
			return err
		}
		return tx.Commit()
	})
}
