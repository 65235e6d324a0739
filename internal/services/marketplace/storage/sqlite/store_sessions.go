package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/skillswap/internal/services/marketplace/session"
	"github.com/louisbranch/skillswap/internal/services/marketplace/storage"
)

const sessionColumns = `s.id, s.swap_id, s.organizer_id, s.title, s.starts_at, s.duration_minutes, s.meeting_url, s.status, s.transcript, s.summary, s.created_at, s.updated_at`

// CreateSession inserts a session after checking overlap within its swap.
func (s *Store) CreateSession(ctx context.Context, record session.Session) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(record.ID) == "" {
		return fmt.Errorf("session id is required")
	}
	if strings.TrimSpace(record.SwapID) == "" {
		return fmt.Errorf("swap id is required")
	}

	return s.withTx(ctx, "create session", func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `
SELECT `+sessionColumns+` FROM sessions s WHERE s.swap_id = ? AND s.status = ?
`, record.SwapID, string(session.StatusScheduled))
		if err != nil {
			return fmt.Errorf("list scheduled sessions: %w", err)
		}
		existing, err := collectSessions(rows)
		if err != nil {
			return err
		}
		if err := session.CheckOverlap(record, existing); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `
INSERT INTO sessions (
  id, swap_id, organizer_id, title, starts_at, duration_minutes, meeting_url, status, transcript, summary, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`,
			record.ID,
			record.SwapID,
			record.OrganizerID,
			record.Title,
			toMillis(record.StartsAt),
			record.DurationMinutes,
			record.MeetingURL,
			string(record.Status),
			record.Transcript,
			record.Summary,
			toMillis(record.CreatedAt),
			toMillis(record.UpdatedAt),
		); err != nil {
			if isUniqueConstraintError(err) {
				return storage.ErrAlreadyExists
			}
			if isForeignKeyConstraintError(err) {
				return storage.ErrNotFound
			}
			return fmt.Errorf("insert session: %w", err)
		}
		return nil
	})
}

// GetSession loads one session by id.
func (s *Store) GetSession(ctx context.Context, sessionID string) (session.Session, error) {
	if err := s.ready(ctx); err != nil {
		return session.Session{}, err
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return session.Session{}, storage.ErrNotFound
	}
	return getSession(ctx, s.sqlDB, sessionID)
}

func getSession(ctx context.Context, q sqlQueryer, sessionID string) (session.Session, error) {
	row := q.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions s WHERE s.id = ?`, sessionID)
	record, err := scanSession(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return session.Session{}, storage.ErrNotFound
		}
		return session.Session{}, fmt.Errorf("get session: %w", err)
	}
	return record, nil
}

// ListSessions lists sessions of the user's swaps ordered by start time.
func (s *Store) ListSessions(ctx context.Context, filter storage.SessionFilter, limit int, offset int) (storage.Page[session.Session], error) {
	if err := s.ready(ctx); err != nil {
		return storage.Page[session.Session]{}, err
	}
	limit, offset, err := normalizePage(limit, offset)
	if err != nil {
		return storage.Page[session.Session]{}, err
	}
	userID := strings.TrimSpace(filter.UserID)
	if userID == "" {
		return storage.Page[session.Session]{}, fmt.Errorf("user id is required")
	}

	clauses := []string{`(w.requester_id = ? OR w.recipient_id = ?)`}
	args := []any{userID, userID}
	if filter.Status != "" {
		clauses = append(clauses, `s.status = ?`)
		args = append(args, string(filter.Status))
	}
	args = append(args, limit+1, offset)

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT `+sessionColumns+`
FROM sessions s
JOIN swaps w ON w.id = s.swap_id
WHERE `+strings.Join(clauses, " AND ")+`
ORDER BY s.starts_at ASC, s.id ASC
LIMIT ? OFFSET ?
`, args...)
	if err != nil {
		return storage.Page[session.Session]{}, fmt.Errorf("list sessions: %w", err)
	}
	sessions, err := collectSessions(rows)
	if err != nil {
		return storage.Page[session.Session]{}, err
	}
	return trimPage(sessions, limit), nil
}

// UpdateSessionStatus applies a conditional status change.
func (s *Store) UpdateSessionStatus(ctx context.Context, sessionID string, from session.Status, to session.Status, at time.Time) (session.Session, error) {
	if err := s.ready(ctx); err != nil {
		return session.Session{}, err
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return session.Session{}, storage.ErrNotFound
	}

	var updated session.Session
	err := s.withTx(ctx, "update session status", func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
UPDATE sessions SET status = ?, updated_at = ? WHERE id = ? AND status = ?
`, string(to), toMillis(at), sessionID, string(from))
		if err != nil {
			return fmt.Errorf("update session status: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("update session status rows affected: %w", err)
		}
		if affected == 0 {
			if _, err := getSession(ctx, tx, sessionID); err != nil {
				return err
			}
			return storage.ErrStale
		}
		updated, err = getSession(ctx, tx, sessionID)
		return err
	})
	if err != nil {
		return session.Session{}, err
	}
	return updated, nil
}

// SetSessionSummary stores a transcript and its generated summary.
func (s *Store) SetSessionSummary(ctx context.Context, sessionID string, transcript string, summary string, at time.Time) (session.Session, error) {
	if err := s.ready(ctx); err != nil {
		return session.Session{}, err
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return session.Session{}, storage.ErrNotFound
	}
	result, err := s.sqlDB.ExecContext(ctx, `
UPDATE sessions SET transcript = ?, summary = ?, updated_at = ? WHERE id = ?
`, transcript, summary, toMillis(at), sessionID)
	if err != nil {
		return session.Session{}, fmt.Errorf("set session summary: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return session.Session{}, fmt.Errorf("set session summary rows affected: %w", err)
	}
	if affected == 0 {
		return session.Session{}, storage.ErrNotFound
	}
	return getSession(ctx, s.sqlDB, sessionID)
}

// CompleteEndedSessions completes scheduled sessions that ended before the cutoff.
func (s *Store) CompleteEndedSessions(ctx context.Context, endedBefore time.Time, at time.Time) (int64, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	result, err := s.sqlDB.ExecContext(ctx, `
UPDATE sessions SET status = ?, updated_at = ?
WHERE status = ? AND starts_at + duration_minutes * 60000 < ?
`, string(session.StatusCompleted), toMillis(at), string(session.StatusScheduled), toMillis(endedBefore))
	if err != nil {
		return 0, fmt.Errorf("complete ended sessions: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("complete ended sessions rows affected: %w", err)
	}
	return affected, nil
}

func collectSessions(rows *sql.Rows) ([]session.Session, error) {
	defer rows.Close()
	var sessions []session.Session
	for rows.Next() {
		record, err := scanSession(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		sessions = append(sessions, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate session rows: %w", err)
	}
	return sessions, nil
}

func scanSession(scan scanner) (session.Session, error) {
	var record session.Session
	var status string
	var startsAt int64
	var createdAt int64
	var updatedAt int64
	if err := scan(
		&record.ID,
		&record.SwapID,
		&record.OrganizerID,
		&record.Title,
		&startsAt,
		&record.DurationMinutes,
		&record.MeetingURL,
		&status,
		&record.Transcript,
		&record.Summary,
		&createdAt,
		&updatedAt,
	); err != nil {
		return session.Session{}, err
	}
	record.Status = session.Status(status)
	record.StartsAt = fromMillis(startsAt)
	record.CreatedAt = fromMillis(createdAt)
	record.UpdatedAt = fromMillis(updatedAt)
	return record, nil
}
