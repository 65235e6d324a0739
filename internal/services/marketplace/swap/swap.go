// Package swap models skill swap requests and their lifecycle.
package swap

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	apperrors "github.com/louisbranch/skillswap/internal/platform/errors"
	"github.com/louisbranch/skillswap/internal/platform/id"
	"github.com/louisbranch/skillswap/internal/services/marketplace/profile"
)

// Status is the lifecycle state of a swap.
type Status string

const (
	StatusPending   Status = "pending"
	StatusAccepted  Status = "accepted"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
	StatusExpired   Status = "expired"
)

// Action is a lifecycle command issued by a swap party.
type Action string

const (
	ActionAccept   Action = "accept"
	ActionReject   Action = "reject"
	ActionCancel   Action = "cancel"
	ActionComplete Action = "complete"
	ActionDelete   Action = "delete"
)

// Party identifies how a user relates to a swap.
type Party int

const (
	PartyNone Party = iota
	PartyRequester
	PartyRecipient
)

const maxMessageRunes = 500

// Swap is one request to trade a taught skill for a learned one.
type Swap struct {
	ID           string
	RequesterID  string
	RecipientID  string
	OfferedSkill string
	WantedSkill  string
	Message      string
	Status       Status
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CreateInput describes a new swap request.
type CreateInput struct {
	RequesterID  string
	RecipientID  string
	OfferedSkill string
	WantedSkill  string
	Message      string
}

// ParseStatus validates a status filter value.
func ParseStatus(value string) (Status, error) {
	status := Status(strings.ToLower(strings.TrimSpace(value)))
	switch status {
	case StatusPending, StatusAccepted, StatusRejected, StatusCancelled, StatusCompleted, StatusExpired:
		return status, nil
	default:
		return "", apperrors.WithMetadata(apperrors.CodeInvalidArgument, fmt.Sprintf("unknown swap status %q", value), map[string]string{"Field": "status"})
	}
}

// PartyOf reports how userID relates to s.
func (s Swap) PartyOf(userID string) Party {
	switch {
	case userID == "":
		return PartyNone
	case userID == s.RequesterID:
		return PartyRequester
	case userID == s.RecipientID:
		return PartyRecipient
	default:
		return PartyNone
	}
}

// Counterpart returns the other party's id, or "" for non-parties.
func (s Swap) Counterpart(userID string) string {
	switch s.PartyOf(userID) {
	case PartyRequester:
		return s.RecipientID
	case PartyRecipient:
		return s.RequesterID
	default:
		return ""
	}
}

// ConversationOpen reports whether the parties may exchange messages.
func (s Swap) ConversationOpen() bool {
	return s.Status == StatusAccepted || s.Status == StatusCompleted
}

// Create validates input and builds a pending swap.
//
// Skill ownership is checked separately by CheckSkills because it needs both
// profiles.
func Create(input CreateInput, now func() time.Time, idGenerator func() (string, error)) (Swap, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}
	requesterID := strings.TrimSpace(input.RequesterID)
	recipientID := strings.TrimSpace(input.RecipientID)
	if requesterID == "" {
		return Swap{}, fmt.Errorf("requester id is required")
	}
	if recipientID == "" {
		return Swap{}, apperrors.WithMetadata(apperrors.CodeInvalidArgument, "recipient_id is required", map[string]string{"Field": "recipient_id"})
	}
	if requesterID == recipientID {
		return Swap{}, apperrors.New(apperrors.CodeSwapSelf, "cannot request a swap with yourself")
	}
	offered := profile.CleanSkill(input.OfferedSkill)
	wanted := profile.CleanSkill(input.WantedSkill)
	if offered == "" || wanted == "" {
		return Swap{}, apperrors.New(apperrors.CodeInvalidArgument, "offered_skill and wanted_skill are required")
	}
	message := strings.TrimSpace(input.Message)
	if utf8.RuneCountInString(message) > maxMessageRunes {
		return Swap{}, apperrors.WithMetadata(apperrors.CodeInvalidArgument, "message must be at most 500 characters", map[string]string{"Field": "message"})
	}

	swapID, err := idGenerator()
	if err != nil {
		return Swap{}, fmt.Errorf("generate swap id: %w", err)
	}
	createdAt := now().UTC()
	return Swap{
		ID:           swapID,
		RequesterID:  requesterID,
		RecipientID:  recipientID,
		OfferedSkill: offered,
		WantedSkill:  wanted,
		Message:      message,
		Status:       StatusPending,
		CreatedAt:    createdAt,
		UpdatedAt:    createdAt,
	}, nil
}

// CheckSkills verifies the requester teaches the offered skill and the
// recipient teaches the wanted skill. It canonicalizes both to the spelling on
// the owning profile.
func CheckSkills(s Swap, requesterOffered []string, recipientOffered []string) (Swap, error) {
	offered, ok := matchSkill(requesterOffered, s.OfferedSkill)
	if !ok {
		return Swap{}, apperrors.WithMetadata(apperrors.CodeSwapSkillNotOffered, "offered_skill is not on your profile", map[string]string{"Field": "offered_skill"})
	}
	wanted, ok := matchSkill(recipientOffered, s.WantedSkill)
	if !ok {
		return Swap{}, apperrors.WithMetadata(apperrors.CodeSwapSkillNotOffered, "wanted_skill is not offered by the recipient", map[string]string{"Field": "wanted_skill"})
	}
	s.OfferedSkill = offered
	s.WantedSkill = wanted
	return s, nil
}

func matchSkill(skills []string, skill string) (string, bool) {
	key := profile.SkillKey(skill)
	for _, candidate := range skills {
		if profile.SkillKey(candidate) == key {
			return candidate, true
		}
	}
	return "", false
}

// Transition decides the next status when actorID applies action to s.
//
// Non-parties get NOT_FOUND so the swap stays invisible to them. ActionDelete
// returns the current status; the caller removes the row.
func Transition(s Swap, action Action, actorID string) (Status, error) {
	party := s.PartyOf(actorID)
	if party == PartyNone {
		return "", apperrors.New(apperrors.CodeNotFound, "swap not found")
	}

	switch action {
	case ActionAccept, ActionReject:
		if party != PartyRecipient {
			return "", apperrors.New(apperrors.CodeForbidden, "only the recipient can answer a swap request")
		}
		if s.Status != StatusPending {
			return "", invalidTransition(s.Status, action)
		}
		if action == ActionAccept {
			return StatusAccepted, nil
		}
		return StatusRejected, nil
	case ActionCancel:
		switch s.Status {
		case StatusPending:
			if party != PartyRequester {
				return "", apperrors.New(apperrors.CodeForbidden, "only the requester can cancel a pending swap")
			}
			return StatusCancelled, nil
		case StatusAccepted:
			return StatusCancelled, nil
		default:
			return "", invalidTransition(s.Status, action)
		}
	case ActionComplete:
		if s.Status != StatusAccepted {
			return "", invalidTransition(s.Status, action)
		}
		return StatusCompleted, nil
	case ActionDelete:
		if party != PartyRequester {
			return "", apperrors.New(apperrors.CodeForbidden, "only the requester can delete a swap request")
		}
		if s.Status != StatusPending {
			return "", invalidTransition(s.Status, action)
		}
		return s.Status, nil
	default:
		return "", apperrors.New(apperrors.CodeInvalidArgument, fmt.Sprintf("unknown swap action %q", action))
	}
}

func invalidTransition(from Status, action Action) error {
	return apperrors.WithMetadata(
		apperrors.CodeSwapInvalidTransition,
		fmt.Sprintf("cannot %s a %s swap", action, from),
		map[string]string{"Status": string(from), "Action": string(action)},
	)
}

// ExpiryCutoff returns the creation time before which pending swaps expire.
func ExpiryCutoff(now time.Time, pendingTTL time.Duration) time.Time {
	return now.UTC().Add(-pendingTTL)
}
