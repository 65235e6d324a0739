// Package feedback validates ratings left after a completed swap.
package feedback

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	apperrors "github.com/louisbranch/skillswap/internal/platform/errors"
	"github.com/louisbranch/skillswap/internal/platform/id"
)

const (
	MinRating       = 1
	MaxRating       = 5
	maxCommentRunes = 500
)

// Feedback is one rating of a swap partner.
type Feedback struct {
	ID         string
	SwapID     string
	FromUserID string
	ToUserID   string
	Rating     int
	Comment    string
	CreatedAt  time.Time
}

// CreateInput describes a rating submission.
type CreateInput struct {
	SwapID     string
	FromUserID string
	ToUserID   string
	Rating     int
	Comment    string
}

// Create validates input and builds a feedback record.
func Create(input CreateInput, now func() time.Time, idGenerator func() (string, error)) (Feedback, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}
	if input.Rating < MinRating || input.Rating > MaxRating {
		return Feedback{}, apperrors.WithMetadata(apperrors.CodeFeedbackInvalid, fmt.Sprintf("rating must be %d-%d", MinRating, MaxRating), map[string]string{"Field": "rating"})
	}
	comment := strings.TrimSpace(input.Comment)
	if utf8.RuneCountInString(comment) > maxCommentRunes {
		return Feedback{}, apperrors.WithMetadata(apperrors.CodeFeedbackInvalid, "comment must be at most 500 characters", map[string]string{"Field": "comment"})
	}
	fromUserID := strings.TrimSpace(input.FromUserID)
	toUserID := strings.TrimSpace(input.ToUserID)
	if fromUserID == "" || toUserID == "" || fromUserID == toUserID {
		return Feedback{}, fmt.Errorf("feedback needs two distinct users")
	}
	feedbackID, err := idGenerator()
	if err != nil {
		return Feedback{}, fmt.Errorf("generate feedback id: %w", err)
	}
	return Feedback{
		ID:         feedbackID,
		SwapID:     strings.TrimSpace(input.SwapID),
		FromUserID: fromUserID,
		ToUserID:   toUserID,
		Rating:     input.Rating,
		Comment:    comment,
		CreatedAt:  now().UTC(),
	}, nil
}
