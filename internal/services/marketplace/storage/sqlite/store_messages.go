package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/skillswap/internal/services/marketplace/message"
	"github.com/louisbranch/skillswap/internal/services/marketplace/storage"
)

const messageColumns = `id, swap_id, sender_id, body, client_message_id, sequence_id, created_at, read_at`

// AppendMessage sequences and inserts one message, deduplicating resends.
func (s *Store) AppendMessage(ctx context.Context, record message.Message) (message.Message, bool, error) {
	if err := s.ready(ctx); err != nil {
		return message.Message{}, false, err
	}
	if strings.TrimSpace(record.ID) == "" {
		return message.Message{}, false, fmt.Errorf("message id is required")
	}
	if record.SwapID == "" || record.SenderID == "" {
		return message.Message{}, false, fmt.Errorf("message swap and sender are required")
	}

	var stored message.Message
	duplicate := false
	err := s.withTx(ctx, "append message", func(tx *sql.Tx) error {
		if record.ClientMessageID != "" {
			existing, err := getMessageByClientID(ctx, tx, record.SwapID, record.SenderID, record.ClientMessageID)
			if err == nil {
				stored = existing
				duplicate = true
				return nil
			}
			if !errors.Is(err, storage.ErrNotFound) {
				return err
			}
		}

		var next int64
		if err := tx.QueryRowContext(ctx, `
SELECT COALESCE(MAX(sequence_id), 0) + 1 FROM messages WHERE swap_id = ?
`, record.SwapID).Scan(&next); err != nil {
			return fmt.Errorf("next message sequence: %w", err)
		}
		record.SequenceID = next

		var clientMessageID sql.NullString
		if record.ClientMessageID != "" {
			clientMessageID = sql.NullString{String: record.ClientMessageID, Valid: true}
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO messages (`+messageColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, NULL)
`,
			record.ID,
			record.SwapID,
			record.SenderID,
			record.Body,
			clientMessageID,
			record.SequenceID,
			toMillis(record.CreatedAt),
		); err != nil {
			if isUniqueConstraintError(err) {
				return storage.ErrAlreadyExists
			}
			if isForeignKeyConstraintError(err) {
				return storage.ErrNotFound
			}
			return fmt.Errorf("insert message: %w", err)
		}
		record.ReadAt = nil
		stored = record
		return nil
	})
	if err != nil {
		return message.Message{}, false, err
	}
	return stored, duplicate, nil
}

// GetMessageByClientID loads the message a sender stored under clientMessageID.
func (s *Store) GetMessageByClientID(ctx context.Context, swapID string, senderID string, clientMessageID string) (message.Message, error) {
	if err := s.ready(ctx); err != nil {
		return message.Message{}, err
	}
	if swapID == "" || senderID == "" || clientMessageID == "" {
		return message.Message{}, storage.ErrNotFound
	}
	return getMessageByClientID(ctx, s.sqlDB, swapID, senderID, clientMessageID)
}

func getMessageByClientID(ctx context.Context, q sqlQueryer, swapID string, senderID string, clientMessageID string) (message.Message, error) {
	row := q.QueryRowContext(ctx, `
SELECT `+messageColumns+` FROM messages
WHERE swap_id = ? AND sender_id = ? AND client_message_id = ?
`, swapID, senderID, clientMessageID)
	existing, err := scanMessage(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return message.Message{}, storage.ErrNotFound
		}
		return message.Message{}, fmt.Errorf("lookup message by client id: %w", err)
	}
	return existing, nil
}

// ListMessagesBefore returns up to limit messages below beforeSequenceID in
// ascending order. A beforeSequenceID of zero reads from the newest message.
func (s *Store) ListMessagesBefore(ctx context.Context, swapID string, beforeSequenceID int64, limit int) ([]message.Message, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	swapID = strings.TrimSpace(swapID)
	if swapID == "" {
		return nil, fmt.Errorf("swap id is required")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}
	if beforeSequenceID <= 0 {
		beforeSequenceID = 1<<63 - 1
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT `+messageColumns+` FROM (
  SELECT `+messageColumns+` FROM messages
  WHERE swap_id = ? AND sequence_id < ?
  ORDER BY sequence_id DESC
  LIMIT ?
) ORDER BY sequence_id ASC
`, swapID, beforeSequenceID, limit)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	messages := make([]message.Message, 0, limit)
	for rows.Next() {
		record, err := scanMessage(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan message row: %w", err)
		}
		messages = append(messages, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate message rows: %w", err)
	}
	return messages, nil
}

// LatestSequenceID returns the highest sequence id of a swap, or zero.
func (s *Store) LatestSequenceID(ctx context.Context, swapID string) (int64, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	var latest int64
	if err := s.sqlDB.QueryRowContext(ctx, `
SELECT COALESCE(MAX(sequence_id), 0) FROM messages WHERE swap_id = ?
`, strings.TrimSpace(swapID)).Scan(&latest); err != nil {
		return 0, fmt.Errorf("latest message sequence: %w", err)
	}
	return latest, nil
}

// MarkMessagesRead marks unread messages from the other party as read.
func (s *Store) MarkMessagesRead(ctx context.Context, swapID string, readerID string, at time.Time) (int64, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	swapID = strings.TrimSpace(swapID)
	readerID = strings.TrimSpace(readerID)
	if swapID == "" || readerID == "" {
		return 0, fmt.Errorf("swap id and reader id are required")
	}
	result, err := s.sqlDB.ExecContext(ctx, `
UPDATE messages SET read_at = ?
WHERE swap_id = ? AND sender_id <> ? AND read_at IS NULL
`, toMillis(at), swapID, readerID)
	if err != nil {
		return 0, fmt.Errorf("mark messages read: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark messages read rows affected: %w", err)
	}
	return affected, nil
}

func scanMessage(scan scanner) (message.Message, error) {
	var record message.Message
	var clientMessageID sql.NullString
	var createdAt int64
	var readAt sql.NullInt64
	if err := scan(
		&record.ID,
		&record.SwapID,
		&record.SenderID,
		&record.Body,
		&clientMessageID,
		&record.SequenceID,
		&createdAt,
		&readAt,
	); err != nil {
		return message.Message{}, err
	}
	record.ClientMessageID = clientMessageID.String
	record.CreatedAt = fromMillis(createdAt)
	if readAt.Valid {
		value := fromMillis(readAt.Int64)
		record.ReadAt = &value
	}
	return record, nil
}
