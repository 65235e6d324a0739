package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/skillswap/internal/services/marketplace/profile"
	"github.com/louisbranch/skillswap/internal/services/marketplace/storage"
	"github.com/louisbranch/skillswap/internal/services/marketplace/swap"
)

const swapColumns = `id, requester_id, recipient_id, offered_skill, wanted_skill, message, status, created_at, updated_at`

// CreateSwap inserts a pending swap request.
func (s *Store) CreateSwap(ctx context.Context, record swap.Swap) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(record.ID) == "" {
		return fmt.Errorf("swap id is required")
	}
	if record.RequesterID == "" || record.RecipientID == "" {
		return fmt.Errorf("swap parties are required")
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO swaps (
  id, requester_id, recipient_id, offered_skill, offered_key, wanted_skill, wanted_key, message, status, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`,
		record.ID,
		record.RequesterID,
		record.RecipientID,
		record.OfferedSkill,
		profile.SkillKey(record.OfferedSkill),
		record.WantedSkill,
		profile.SkillKey(record.WantedSkill),
		record.Message,
		string(record.Status),
		toMillis(record.CreatedAt),
		toMillis(record.UpdatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return storage.ErrAlreadyExists
		}
		if isForeignKeyConstraintError(err) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("insert swap: %w", err)
	}
	return nil
}

// GetSwap loads one swap by id.
func (s *Store) GetSwap(ctx context.Context, swapID string) (swap.Swap, error) {
	if err := s.ready(ctx); err != nil {
		return swap.Swap{}, err
	}
	swapID = strings.TrimSpace(swapID)
	if swapID == "" {
		return swap.Swap{}, storage.ErrNotFound
	}
	return getSwap(ctx, s.sqlDB, swapID)
}

func getSwap(ctx context.Context, q sqlQueryer, swapID string) (swap.Swap, error) {
	row := q.QueryRowContext(ctx, `SELECT `+swapColumns+` FROM swaps WHERE id = ?`, swapID)
	record, err := scanSwap(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return swap.Swap{}, storage.ErrNotFound
		}
		return swap.Swap{}, fmt.Errorf("get swap: %w", err)
	}
	return record, nil
}

// ListSwaps lists swaps newest first.
func (s *Store) ListSwaps(ctx context.Context, filter storage.SwapFilter, limit int, offset int) (storage.Page[swap.Swap], error) {
	if err := s.ready(ctx); err != nil {
		return storage.Page[swap.Swap]{}, err
	}
	limit, offset, err := normalizePage(limit, offset)
	if err != nil {
		return storage.Page[swap.Swap]{}, err
	}

	var clauses []string
	var args []any
	if userID := strings.TrimSpace(filter.UserID); userID != "" {
		switch filter.Role {
		case swap.PartyRequester:
			clauses = append(clauses, `requester_id = ?`)
			args = append(args, userID)
		case swap.PartyRecipient:
			clauses = append(clauses, `recipient_id = ?`)
			args = append(args, userID)
		default:
			clauses = append(clauses, `(requester_id = ? OR recipient_id = ?)`)
			args = append(args, userID, userID)
		}
	}
	if filter.Status != "" {
		clauses = append(clauses, `status = ?`)
		args = append(args, string(filter.Status))
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	args = append(args, limit+1, offset)

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT `+swapColumns+`
FROM swaps
`+where+`
ORDER BY created_at DESC, id DESC
LIMIT ? OFFSET ?
`, args...)
	if err != nil {
		return storage.Page[swap.Swap]{}, fmt.Errorf("list swaps: %w", err)
	}
	defer rows.Close()

	swaps := make([]swap.Swap, 0, limit+1)
	for rows.Next() {
		record, err := scanSwap(rows.Scan)
		if err != nil {
			return storage.Page[swap.Swap]{}, fmt.Errorf("scan swap row: %w", err)
		}
		swaps = append(swaps, record)
	}
	if err := rows.Err(); err != nil {
		return storage.Page[swap.Swap]{}, fmt.Errorf("iterate swap rows: %w", err)
	}
	return trimPage(swaps, limit), nil
}

// UpdateSwapStatus applies a conditional status change.
func (s *Store) UpdateSwapStatus(ctx context.Context, swapID string, from swap.Status, to swap.Status, at time.Time) (swap.Swap, error) {
	if err := s.ready(ctx); err != nil {
		return swap.Swap{}, err
	}
	swapID = strings.TrimSpace(swapID)
	if swapID == "" {
		return swap.Swap{}, storage.ErrNotFound
	}

	var updated swap.Swap
	err := s.withTx(ctx, "update swap status", func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
UPDATE swaps SET status = ?, updated_at = ? WHERE id = ? AND status = ?
`, string(to), toMillis(at), swapID, string(from))
		if err != nil {
			return fmt.Errorf("update swap status: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("update swap status rows affected: %w", err)
		}
		if affected == 0 {
			if _, err := getSwap(ctx, tx, swapID); err != nil {
				return err
			}
			return storage.ErrStale
		}
		updated, err = getSwap(ctx, tx, swapID)
		return err
	})
	if err != nil {
		return swap.Swap{}, err
	}
	return updated, nil
}

// DeleteSwap removes a swap still in the from status.
func (s *Store) DeleteSwap(ctx context.Context, swapID string, from swap.Status) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	swapID = strings.TrimSpace(swapID)
	if swapID == "" {
		return storage.ErrNotFound
	}
	return s.withTx(ctx, "delete swap", func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `DELETE FROM swaps WHERE id = ? AND status = ?`, swapID, string(from))
		if err != nil {
			return fmt.Errorf("delete swap: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("delete swap rows affected: %w", err)
		}
		if affected == 0 {
			if _, err := getSwap(ctx, tx, swapID); err != nil {
				return err
			}
			return storage.ErrStale
		}
		return nil
	})
}

// ExpirePendingSwaps marks pending swaps created before the cutoff as expired.
func (s *Store) ExpirePendingSwaps(ctx context.Context, createdBefore time.Time, at time.Time) (int64, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	result, err := s.sqlDB.ExecContext(ctx, `
UPDATE swaps SET status = ?, updated_at = ? WHERE status = ? AND created_at < ?
`, string(swap.StatusExpired), toMillis(at), string(swap.StatusPending), toMillis(createdBefore))
	if err != nil {
		return 0, fmt.Errorf("expire pending swaps: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("expire pending swaps rows affected: %w", err)
	}
	return affected, nil
}

func scanSwap(scan scanner) (swap.Swap, error) {
	var record swap.Swap
	var status string
	var createdAt int64
	var updatedAt int64
	if err := scan(
		&record.ID,
		&record.RequesterID,
		&record.RecipientID,
		&record.OfferedSkill,
		&record.WantedSkill,
		&record.Message,
		&status,
		&createdAt,
		&updatedAt,
	); err != nil {
		return swap.Swap{}, err
	}
	record.Status = swap.Status(status)
	record.CreatedAt = fromMillis(createdAt)
	record.UpdatedAt = fromMillis(updatedAt)
	return record, nil
}
