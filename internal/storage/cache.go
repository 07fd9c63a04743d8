package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/khulafarming/yieldcast/internal/common"
	"github.com/khulafarming/yieldcast/internal/model"
)

// GetCachedText returns the cached recommendation for (location, key) when
// it is younger than maxAge. Missing and stale entries both return
// common.ErrNotFound.
func (s *SQLiteStorage) GetCachedText(ctx context.Context, location, key string, maxAge time.Duration) (*model.CachedText, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(location, "location"); err != nil {
		return nil, err
	}
	if err := validateString(key, "key"); err != nil {
		return nil, err
	}
	if maxAge <= 0 {
		return nil, fmt.Errorf("%w: maxAge", ErrNonPositiveDuration)
	}

	entry := model.CachedText{Location: location, Key: key}
	err := s.db.QueryRowContext(ctx, `
		SELECT content, created_at
		FROM recommendation_cache
		WHERE location = ? AND cache_key = ?
	`, location, key).Scan(&entry.Content, &entry.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cached text: %w", err)
	}

	if time.Since(entry.CreatedAt) > maxAge {
		return nil, common.ErrNotFound
	}
	return &entry, nil
}

// PutCachedText stores or replaces a cache entry.
func (s *SQLiteStorage) PutCachedText(ctx context.Context, entry *model.CachedText) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateCacheEntry(entry); err != nil {
		return err
	}

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	entry.CreatedAt = entry.CreatedAt.UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO recommendation_cache (location, cache_key, content, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(location, cache_key) DO UPDATE SET
			content = excluded.content,
			created_at = excluded.created_at
	`, entry.Location, entry.Key, entry.Content, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to cache text: %w", err)
	}
	return nil
}

// PruneCache deletes entries older than olderThan and returns how many were
// removed.
func (s *SQLiteStorage) PruneCache(ctx context.Context, olderThan time.Duration) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if olderThan <= 0 {
		return 0, fmt.Errorf("%w: olderThan", ErrNonPositiveDuration)
	}

	cutoff := time.Now().Add(-olderThan).UTC()
	res, err := s.db.ExecContext(ctx, `DELETE FROM recommendation_cache WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune cache: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned entries: %w", err)
	}
	return n, nil
}
