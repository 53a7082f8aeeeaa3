package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const itemColumns = "id, title, url, image_url, source, content_type, status, matched_asset_json, match_score, collection, attempts, download_url, remote_id, remote_url, error_message, created_at, updated_at"

// SaveReconciliation replaces the non-terminal portion of the queue with a
// fresh reconciliation outcome. Items in pending or matched state are
// discarded; terminal history from earlier runs is preserved. The whole
// replacement runs in one transaction.
func (s *Store) SaveReconciliation(ctx context.Context, items []*Item) error {
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin reconciliation tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM queue_items WHERE status IN (?, ?)`,
			StatusPending, StatusMatched,
		); err != nil {
			return fmt.Errorf("clear stale reconciliation: %w", err)
		}

		timestamp := time.Now().UTC().Format(time.RFC3339Nano)
		for _, item := range items {
			if item == nil {
				continue
			}
			status := item.Status
			if status == "" {
				status = StatusPending
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO queue_items (
                    title, url, image_url, source, content_type, status,
                    matched_asset_json, match_score, collection, attempts,
                    download_url, remote_id, remote_url, error_message,
                    created_at, updated_at
                ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				item.Title,
				nullableString(item.URL),
				nullableString(item.ImageURL),
				nullableString(item.Source),
				nullableString(item.ContentType),
				status,
				nullableString(item.MatchedAssetJSON),
				item.MatchScore,
				nullableString(item.Collection),
				item.Attempts,
				nullableString(item.DownloadURL),
				nullableString(item.RemoteID),
				nullableString(item.RemoteURL),
				nullableString(item.ErrorMessage),
				timestamp,
				timestamp,
			); err != nil {
				return fmt.Errorf("insert reconciled item: %w", err)
			}
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit reconciliation: %w", err)
		}
		return nil
	})
}

// Enqueue inserts a single item awaiting acquisition.
func (s *Store) Enqueue(ctx context.Context, item *Item) (*Item, error) {
	if item == nil {
		return nil, errors.New("item is nil")
	}
	status := item.Status
	if status == "" {
		status = StatusPending
	}
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)

	res, err := s.execWithRetry(ctx,
		`INSERT INTO queue_items (
            title, url, image_url, source, content_type, status,
            matched_asset_json, match_score, collection, attempts,
            download_url, remote_id, remote_url, error_message,
            created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.Title,
		nullableString(item.URL),
		nullableString(item.ImageURL),
		nullableString(item.Source),
		nullableString(item.ContentType),
		status,
		nullableString(item.MatchedAssetJSON),
		item.MatchScore,
		nullableString(item.Collection),
		item.Attempts,
		nullableString(item.DownloadURL),
		nullableString(item.RemoteID),
		nullableString(item.RemoteURL),
		nullableString(item.ErrorMessage),
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert item: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID fetches a queue item by identifier.
func (s *Store) GetByID(ctx context.Context, id int64) (*Item, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM queue_items WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

// FindByURL returns the first item matching a catalog page URL.
func (s *Store) FindByURL(ctx context.Context, url string) (*Item, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM queue_items WHERE url = ? ORDER BY id LIMIT 1`, url)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find by url: %w", err)
	}
	return item, nil
}

// Update persists changes to an existing queue item.
func (s *Store) Update(ctx context.Context, item *Item) error {
	if item == nil {
		return errors.New("item is nil")
	}
	item.UpdatedAt = time.Now().UTC()
	if err := s.execWithoutResultRetry(ctx,
		`UPDATE queue_items
         SET title = ?, url = ?, image_url = ?, source = ?, content_type = ?,
             status = ?, matched_asset_json = ?, match_score = ?, collection = ?,
             attempts = ?, download_url = ?, remote_id = ?, remote_url = ?,
             error_message = ?, updated_at = ?
         WHERE id = ?`,
		item.Title,
		nullableString(item.URL),
		nullableString(item.ImageURL),
		nullableString(item.Source),
		nullableString(item.ContentType),
		item.Status,
		nullableString(item.MatchedAssetJSON),
		item.MatchScore,
		nullableString(item.Collection),
		item.Attempts,
		nullableString(item.DownloadURL),
		nullableString(item.RemoteID),
		nullableString(item.RemoteURL),
		nullableString(item.ErrorMessage),
		item.UpdatedAt.Format(time.RFC3339Nano),
		item.ID,
	); err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	return nil
}

// List returns queue items filtered by status set (or all items when no
// status is provided), oldest first.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Item, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + itemColumns + ` FROM queue_items`
	orderClause := ` ORDER BY id`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		query := baseQuery + ` WHERE status IN (` + placeholders + `)` + orderClause
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list queue items: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// NextForStatuses returns the oldest item matching any of the provided
// statuses.
func (s *Store) NextForStatuses(ctx context.Context, statuses ...Status) (*Item, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	placeholders := makePlaceholders(len(statuses))
	args := make([]any, len(statuses))
	for i, status := range statuses {
		args[i] = status
	}

	query := `SELECT ` + itemColumns + ` FROM queue_items WHERE status IN (` + placeholders + `) ORDER BY id LIMIT 1`
	row := s.db.QueryRowContext(ctx, query, args...)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}

// Remove deletes an item by identifier.
func (s *Store) Remove(ctx context.Context, id int64) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM queue_items WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// Clear removes all items from the queue.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM queue_items`)
	if err != nil {
		return 0, fmt.Errorf("clear queue: %w", err)
	}
	return res.RowsAffected()
}

// ClearFailed removes only items in a terminal failure state, making them
// eligible for re-acquisition on the next reconciliation.
func (s *Store) ClearFailed(ctx context.Context) (int64, error) {
	failures := FailureStatuses()
	placeholders := makePlaceholders(len(failures))
	args := make([]any, len(failures))
	for i, status := range failures {
		args[i] = status
	}
	res, err := s.execWithRetry(ctx, `DELETE FROM queue_items WHERE status IN (`+placeholders+`)`, args...)
	if err != nil {
		return 0, fmt.Errorf("clear failed: %w", err)
	}
	return res.RowsAffected()
}

// ClearSucceeded removes only successfully acquired items.
func (s *Store) ClearSucceeded(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM queue_items WHERE status = ?`, StatusSucceeded)
	if err != nil {
		return 0, fmt.Errorf("clear succeeded: %w", err)
	}
	return res.RowsAffected()
}
