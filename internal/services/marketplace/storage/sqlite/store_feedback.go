package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/louisbranch/skillswap/internal/services/marketplace/feedback"
	"github.com/louisbranch/skillswap/internal/services/marketplace/storage"
)

// CreateFeedback inserts one rating.
func (s *Store) CreateFeedback(ctx context.Context, record feedback.Feedback) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(record.ID) == "" {
		return fmt.Errorf("feedback id is required")
	}
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO feedback (id, swap_id, from_user_id, to_user_id, rating, comment, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
`,
		record.ID,
		record.SwapID,
		record.FromUserID,
		record.ToUserID,
		record.Rating,
		record.Comment,
		toMillis(record.CreatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return storage.ErrAlreadyExists
		}
		if isForeignKeyConstraintError(err) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("insert feedback: %w", err)
	}
	return nil
}

// ListFeedbackForUser lists feedback received by a user, newest first.
func (s *Store) ListFeedbackForUser(ctx context.Context, userID string, limit int, offset int) (storage.Page[feedback.Feedback], error) {
	if err := s.ready(ctx); err != nil {
		return storage.Page[feedback.Feedback]{}, err
	}
	limit, offset, err := normalizePage(limit, offset)
	if err != nil {
		return storage.Page[feedback.Feedback]{}, err
	}
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, swap_id, from_user_id, to_user_id, rating, comment, created_at
FROM feedback
WHERE to_user_id = ?
ORDER BY created_at DESC, id DESC
LIMIT ? OFFSET ?
`, strings.TrimSpace(userID), limit+1, offset)
	if err != nil {
		return storage.Page[feedback.Feedback]{}, fmt.Errorf("list feedback: %w", err)
	}
	defer rows.Close()

	items := make([]feedback.Feedback, 0, limit+1)
	for rows.Next() {
		var record feedback.Feedback
		var createdAt int64
		if err := rows.Scan(
			&record.ID,
			&record.SwapID,
			&record.FromUserID,
			&record.ToUserID,
			&record.Rating,
			&record.Comment,
			&createdAt,
		); err != nil {
			return storage.Page[feedback.Feedback]{}, fmt.Errorf("scan feedback row: %w", err)
		}
		record.CreatedAt = fromMillis(createdAt)
		items = append(items, record)
	}
	if err := rows.Err(); err != nil {
		return storage.Page[feedback.Feedback]{}, fmt.Errorf("iterate feedback rows: %w", err)
	}
	return trimPage(items, limit), nil
}
