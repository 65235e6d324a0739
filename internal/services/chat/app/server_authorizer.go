package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/net/websocket"

	apperrors "github.com/louisbranch/skillswap/internal/platform/errors"
	"github.com/louisbranch/skillswap/internal/services/marketplace/conversation"
	"github.com/louisbranch/skillswap/internal/services/marketplace/message"
	"github.com/louisbranch/skillswap/internal/services/marketplace/swap"
)

// Authenticator resolves an access token to a user id.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (string, error)
}

// Conversation is the swap message flow the relay delegates to.
type Conversation interface {
	Authorize(ctx context.Context, swapID string, userID string) (swap.Swap, error)
	Latest(ctx context.Context, swapID string, userID string) (int64, error)
	Send(ctx context.Context, input message.SendInput) (conversation.SendResult, error)
	History(ctx context.Context, swapID string, userID string, beforeSequenceID int64, limit int) ([]message.Message, error)
}

// accessTokenFromRequest reads the session cookie, the bearer header, then
// the access_token query parameter. Browsers cannot set headers on a
// WebSocket handshake, hence the query fallback.
func accessTokenFromRequest(r *http.Request) string {
	if r == nil {
		return ""
	}
	if cookie, err := r.Cookie(tokenCookieName); err == nil {
		if value := strings.TrimSpace(cookie.Value); value != "" {
			return value
		}
	}
	if header := strings.TrimSpace(r.Header.Get("Authorization")); header != "" {
		scheme, value, ok := strings.Cut(header, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			if value = strings.TrimSpace(value); value != "" {
				return value
			}
		}
	}
	return strings.TrimSpace(r.URL.Query().Get("access_token"))
}

func (h *handler) checkOrigin(cfg *websocket.Config, r *http.Request) error {
	origin, err := websocket.Origin(cfg, r)
	if err != nil {
		return err
	}
	cfg.Origin = origin
	if len(h.allowedOrigins) == 0 {
		return nil
	}
	if origin == nil {
		return errors.New("origin header is required")
	}
	got := strings.TrimRight(origin.String(), "/")
	for _, allowed := range h.allowedOrigins {
		allowed = strings.TrimRight(strings.TrimSpace(allowed), "/")
		if allowed == "*" || strings.EqualFold(allowed, got) {
			return nil
		}
	}
	return fmt.Errorf("origin %q is not allowed", got)
}

// wsErrorFromErr maps a conversation failure onto a chat.error payload.
func wsErrorFromErr(err error) wsError {
	domainErr, ok := apperrors.As(err)
	if !ok {
		return wsError{Code: codeUnavailable, Message: "conversation unavailable", Retryable: true}
	}
	out := wsError{Message: domainErr.Message}
	switch domainErr.Code {
	case apperrors.CodeInvalidArgument, apperrors.CodeMessageInvalid:
		out.Code = codeInvalidArgument
		out.Details = domainErr.Metadata
	case apperrors.CodeNotFound, apperrors.CodeForbidden:
		out.Code = codeForbidden
		out.Message = "swap participant access required"
	case apperrors.CodeSwapNotActive:
		out.Code = codeFailedPrecondition
		out.Details = domainErr.Metadata
	case apperrors.CodeMessageRejected:
		out.Code = codeRejected
		out.Details = domainErr.Metadata
	case apperrors.CodeAIUnavailable:
		out.Code = codeUnavailable
		out.Retryable = true
	default:
		out.Code = codeUnavailable
		out.Message = "conversation unavailable"
		out.Retryable = true
	}
	return out
}
