package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/louisbranch/skillswap/internal/services/marketplace/session"
	"github.com/louisbranch/skillswap/internal/services/marketplace/storage"
	"github.com/louisbranch/skillswap/internal/services/marketplace/swap"
)

// CreateAnnouncement inserts one announcement.
func (s *Store) CreateAnnouncement(ctx context.Context, a storage.Announcement) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(a.ID) == "" {
		return fmt.Errorf("announcement id is required")
	}
	if _, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO announcements (id, author_id, title, body, created_at) VALUES (?, ?, ?, ?, ?)
`, a.ID, a.AuthorID, a.Title, a.Body, toMillis(a.CreatedAt)); err != nil {
		if isUniqueConstraintError(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("insert announcement: %w", err)
	}
	return nil
}

// ListAnnouncements lists announcements newest first.
func (s *Store) ListAnnouncements(ctx context.Context, limit int, offset int) (storage.Page[storage.Announcement], error) {
	if err := s.ready(ctx); err != nil {
		return storage.Page[storage.Announcement]{}, err
	}
	limit, offset, err := normalizePage(limit, offset)
	if err != nil {
		return storage.Page[storage.Announcement]{}, err
	}
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, author_id, title, body, created_at
FROM announcements
ORDER BY created_at DESC, id DESC
LIMIT ? OFFSET ?
`, limit+1, offset)
	if err != nil {
		return storage.Page[storage.Announcement]{}, fmt.Errorf("list announcements: %w", err)
	}
	defer rows.Close()

	items := make([]storage.Announcement, 0, limit+1)
	for rows.Next() {
		var a storage.Announcement
		var createdAt int64
		if err := rows.Scan(&a.ID, &a.AuthorID, &a.Title, &a.Body, &createdAt); err != nil {
			return storage.Page[storage.Announcement]{}, fmt.Errorf("scan announcement row: %w", err)
		}
		a.CreatedAt = fromMillis(createdAt)
		items = append(items, a)
	}
	if err := rows.Err(); err != nil {
		return storage.Page[storage.Announcement]{}, fmt.Errorf("iterate announcement rows: %w", err)
	}
	return trimPage(items, limit), nil
}

// ActivityReport aggregates marketplace counters.
func (s *Store) ActivityReport(ctx context.Context) (storage.ActivityReport, error) {
	if err := s.ready(ctx); err != nil {
		return storage.ActivityReport{}, err
	}
	report := storage.ActivityReport{
		SwapsByStatus:    make(map[swap.Status]int),
		SessionsByStatus: make(map[session.Status]int),
	}

	if err := s.sqlDB.QueryRowContext(ctx, `
SELECT COUNT(1), COALESCE(SUM(banned), 0) FROM users
`).Scan(&report.UsersTotal, &report.UsersBanned); err != nil {
		return storage.ActivityReport{}, fmt.Errorf("count users: %w", err)
	}
	if err := s.sqlDB.QueryRowContext(ctx, `
SELECT COUNT(1), COALESCE(AVG(rating), 0.0) FROM feedback
`).Scan(&report.FeedbackCount, &report.AverageRating); err != nil {
		return storage.ActivityReport{}, fmt.Errorf("count feedback: %w", err)
	}
	if err := s.sqlDB.QueryRowContext(ctx, `SELECT COUNT(1) FROM messages`).Scan(&report.MessageCount); err != nil {
		return storage.ActivityReport{}, fmt.Errorf("count messages: %w", err)
	}

	swapCounts, err := s.countByStatus(ctx, "swaps")
	if err != nil {
		return storage.ActivityReport{}, err
	}
	for status, count := range swapCounts {
		report.SwapsByStatus[swap.Status(status)] = count
	}
	sessionCounts, err := s.countByStatus(ctx, "sessions")
	if err != nil {
		return storage.ActivityReport{}, err
	}
	for status, count := range sessionCounts {
		report.SessionsByStatus[session.Status(status)] = count
	}
	return report, nil
}

// countByStatus groups a table by its status column. table is never user input.
func (s *Store) countByStatus(ctx context.Context, table string) (map[string]int, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT status, COUNT(1) FROM `+table+` GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count %s by status: %w", table, err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan %s status count: %w", table, err)
		}
		counts[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s status counts: %w", table, err)
	}
	return counts, nil
}
