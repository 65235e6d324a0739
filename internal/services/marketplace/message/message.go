// Package message validates swap conversation messages.
package message

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	apperrors "github.com/louisbranch/skillswap/internal/platform/errors"
	"github.com/louisbranch/skillswap/internal/platform/id"
)

const (
	MaxBodyRunes            = 2000
	MaxClientMessageIDRunes = 128

	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 200
)

// Message is one conversation line in a swap.
type Message struct {
	ID              string
	SwapID          string
	SenderID        string
	Body            string
	ClientMessageID string
	SequenceID      int64
	CreatedAt       time.Time
	ReadAt          *time.Time
}

// SendInput is an unvalidated send request.
type SendInput struct {
	SwapID          string
	SenderID        string
	ClientMessageID string
	Body            string
}

// NormalizeBody trims and bounds a message body.
func NormalizeBody(body string) (string, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return "", apperrors.WithMetadata(apperrors.CodeMessageInvalid, "body is required", map[string]string{"Field": "body"})
	}
	if utf8.RuneCountInString(body) > MaxBodyRunes {
		return "", apperrors.WithMetadata(apperrors.CodeMessageInvalid, fmt.Sprintf("body must be at most %d characters", MaxBodyRunes), map[string]string{"Field": "body"})
	}
	return body, nil
}

// NormalizeClientMessageID trims and bounds the idempotency key.
// An empty key is allowed and disables deduplication.
func NormalizeClientMessageID(value string) (string, error) {
	value = strings.TrimSpace(value)
	if utf8.RuneCountInString(value) > MaxClientMessageIDRunes {
		return "", apperrors.WithMetadata(apperrors.CodeMessageInvalid, fmt.Sprintf("client_message_id must be at most %d characters", MaxClientMessageIDRunes), map[string]string{"Field": "client_message_id"})
	}
	return value, nil
}

// New validates input and builds an unsequenced message.
// The store assigns SequenceID on insert.
func New(input SendInput, now func() time.Time, idGenerator func() (string, error)) (Message, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}
	body, err := NormalizeBody(input.Body)
	if err != nil {
		return Message{}, err
	}
	clientMessageID, err := NormalizeClientMessageID(input.ClientMessageID)
	if err != nil {
		return Message{}, err
	}
	messageID, err := idGenerator()
	if err != nil {
		return Message{}, fmt.Errorf("generate message id: %w", err)
	}
	return Message{
		ID:              messageID,
		SwapID:          strings.TrimSpace(input.SwapID),
		SenderID:        strings.TrimSpace(input.SenderID),
		Body:            body,
		ClientMessageID: clientMessageID,
		CreatedAt:       now().UTC(),
	}, nil
}

// ClampHistoryLimit applies the history page defaults.
func ClampHistoryLimit(limit int) int {
	if limit <= 0 {
		return DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		return MaxHistoryLimit
	}
	return limit
}
