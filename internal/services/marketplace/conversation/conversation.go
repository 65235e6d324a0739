// Package conversation owns the swap message flow shared by the REST API and
// the WebSocket relay: membership, moderation, persistence, and fan-out.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	apperrors "github.com/louisbranch/skillswap/internal/platform/errors"
	"github.com/louisbranch/skillswap/internal/platform/id"
	"github.com/louisbranch/skillswap/internal/services/ai/aiclient"
	"github.com/louisbranch/skillswap/internal/services/marketplace/message"
	"github.com/louisbranch/skillswap/internal/services/marketplace/storage"
	"github.com/louisbranch/skillswap/internal/services/marketplace/swap"
)

// Store is the persistence the conversation flow needs.
type Store interface {
	GetSwap(ctx context.Context, swapID string) (swap.Swap, error)
	storage.MessageStore
}

// Moderator classifies outgoing message text.
type Moderator interface {
	Moderate(ctx context.Context, text string) (aiclient.Verdict, error)
}

// Publisher fans a stored message out to live subscribers of its swap.
type Publisher interface {
	PublishMessage(m message.Message)
}

// Config wires a Service.
type Config struct {
	Store Store
	// Moderator is optional; without one messages are stored unchecked.
	Moderator Moderator
	// FailOpen accepts messages when the moderator errors.
	FailOpen    bool
	Now         func() time.Time
	IDGenerator func() (string, error)
}

// SendResult reports the stored message and whether it was a resend.
type SendResult struct {
	Message   message.Message
	Duplicate bool
}

// Service runs conversation operations for swap parties.
type Service struct {
	store       Store
	moderator   Moderator
	failOpen    bool
	now         func() time.Time
	idGenerator func() (string, error)

	mu        sync.RWMutex
	publisher Publisher
}

// New builds a conversation service.
func New(cfg Config) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("conversation store is required")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.IDGenerator == nil {
		cfg.IDGenerator = id.NewID
	}
	return &Service{
		store:       cfg.Store,
		moderator:   cfg.Moderator,
		failOpen:    cfg.FailOpen,
		now:         cfg.Now,
		idGenerator: cfg.IDGenerator,
	}, nil
}

// SetPublisher installs the live fan-out target. A nil publisher disables
// fan-out.
func (s *Service) SetPublisher(publisher Publisher) {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.publisher = publisher
	s.mu.Unlock()
}

// Publish forwards a stored message to the live publisher, if any.
func (s *Service) Publish(m message.Message) {
	if s == nil {
		return
	}
	s.mu.RLock()
	publisher := s.publisher
	s.mu.RUnlock()
	if publisher != nil {
		publisher.PublishMessage(m)
	}
}

// Authorize loads the swap and checks that userID may use its conversation.
func (s *Service) Authorize(ctx context.Context, swapID string, userID string) (swap.Swap, error) {
	swapID = strings.TrimSpace(swapID)
	if swapID == "" {
		return swap.Swap{}, apperrors.WithMetadata(apperrors.CodeInvalidArgument, "swap_id is required", map[string]string{"Field": "swap_id"})
	}
	current, err := s.store.GetSwap(ctx, swapID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return swap.Swap{}, apperrors.New(apperrors.CodeNotFound, "swap not found")
		}
		return swap.Swap{}, fmt.Errorf("get swap: %w", err)
	}
	if current.PartyOf(userID) == swap.PartyNone {
		return swap.Swap{}, apperrors.New(apperrors.CodeNotFound, "swap not found")
	}
	if !current.ConversationOpen() {
		return swap.Swap{}, apperrors.WithMetadata(
			apperrors.CodeSwapNotActive,
			"conversation opens once the swap is accepted",
			map[string]string{"Status": string(current.Status)},
		)
	}
	return current, nil
}

// Send validates, moderates, and stores a message. A resend of a known client
// message id returns the stored original without moderating again. Callers
// publish the result once they have answered the sender.
func (s *Service) Send(ctx context.Context, input message.SendInput) (SendResult, error) {
	if _, err := s.Authorize(ctx, input.SwapID, input.SenderID); err != nil {
		return SendResult{}, err
	}
	m, err := message.New(input, s.now, s.idGenerator)
	if err != nil {
		return SendResult{}, err
	}
	if m.ClientMessageID != "" {
		existing, err := s.store.GetMessageByClientID(ctx, m.SwapID, m.SenderID, m.ClientMessageID)
		switch {
		case err == nil:
			return SendResult{Message: existing, Duplicate: true}, nil
		case !errors.Is(err, storage.ErrNotFound):
			return SendResult{}, fmt.Errorf("lookup resend: %w", err)
		}
	}
	if err := s.moderate(ctx, m); err != nil {
		return SendResult{}, err
	}
	stored, duplicate, err := s.store.AppendMessage(ctx, m)
	if err != nil {
		return SendResult{}, fmt.Errorf("append message: %w", err)
	}
	return SendResult{Message: stored, Duplicate: duplicate}, nil
}

func (s *Service) moderate(ctx context.Context, m message.Message) error {
	if s.moderator == nil {
		return nil
	}
	verdict, err := s.moderator.Moderate(ctx, m.Body)
	if err != nil {
		if s.failOpen {
			log.Printf("conversation: moderation unavailable, accepting message swap=%s sender=%s err=%v", m.SwapID, m.SenderID, err)
			return nil
		}
		return apperrors.Wrap(apperrors.CodeAIUnavailable, "message moderation is unavailable", err)
	}
	if verdict.Unsafe() {
		log.Printf("conversation: message rejected swap=%s sender=%s", m.SwapID, m.SenderID)
		return apperrors.WithMetadata(
			apperrors.CodeMessageRejected,
			"message was flagged by moderation",
			map[string]string{"Categories": verdict.Categories},
		)
	}
	return nil
}

// History returns up to limit messages before beforeSequenceID, oldest first.
// A beforeSequenceID of zero reads the newest page.
func (s *Service) History(ctx context.Context, swapID string, userID string, beforeSequenceID int64, limit int) ([]message.Message, error) {
	if beforeSequenceID < 0 {
		return nil, apperrors.WithMetadata(apperrors.CodeInvalidArgument, "before must not be negative", map[string]string{"Field": "before"})
	}
	if _, err := s.Authorize(ctx, swapID, userID); err != nil {
		return nil, err
	}
	messages, err := s.store.ListMessagesBefore(ctx, strings.TrimSpace(swapID), beforeSequenceID, message.ClampHistoryLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return messages, nil
}

// Latest returns the newest sequence id of the swap conversation.
func (s *Service) Latest(ctx context.Context, swapID string, userID string) (int64, error) {
	if _, err := s.Authorize(ctx, swapID, userID); err != nil {
		return 0, err
	}
	latest, err := s.store.LatestSequenceID(ctx, strings.TrimSpace(swapID))
	if err != nil {
		return 0, fmt.Errorf("latest sequence: %w", err)
	}
	return latest, nil
}

// MarkRead marks the counterpart's messages as read by userID.
func (s *Service) MarkRead(ctx context.Context, swapID string, userID string) (int64, error) {
	if _, err := s.Authorize(ctx, swapID, userID); err != nil {
		return 0, err
	}
	updated, err := s.store.MarkMessagesRead(ctx, strings.TrimSpace(swapID), userID, s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("mark messages read: %w", err)
	}
	return updated, nil
}
