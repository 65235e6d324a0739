package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/websocket"

	"github.com/louisbranch/skillswap/internal/platform/requestctx"
)

const (
	tokenCookieName = "ss_token"

	maxFramePayloadBytes   = 16 * 1024
	maxFrameEnvelopeBytes  = 1024
	maxFramesPerSecond     = 40
	maxDecodeErrorsPerConn = 3
)

// Client frame types.
const (
	frameJoin          = "chat.join"
	frameSend          = "chat.send"
	frameHistoryBefore = "chat.history.before"
	frameTyping        = "chat.typing"
	frameCallSignal    = "call.signal"
)

// Server frame types.
const (
	frameJoined  = "chat.joined"
	frameAck     = "chat.ack"
	frameMessage = "chat.message"
	frameError   = "chat.error"
)

// Error codes carried by chat.error frames.
const (
	codeInvalidArgument    = "INVALID_ARGUMENT"
	codeForbidden          = "FORBIDDEN"
	codeFailedPrecondition = "FAILED_PRECONDITION"
	codeRejected           = "REJECTED"
	codeResourceExhausted  = "RESOURCE_EXHAUSTED"
	codeUnavailable        = "UNAVAILABLE"
)

type wsFrame struct {
	Type      string          `json:"type"`
	RequestID string          `json:"request_id,omitempty"`
	Payload   json.RawMessage `json:"payload"`
}

type wsErrorEnvelope struct {
	Error wsError `json:"error"`
}

type wsError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Retryable bool              `json:"retryable"`
	Details   map[string]string `json:"details,omitempty"`
}

type joinPayload struct {
	SwapID string `json:"swap_id"`
}

type joinedPayload struct {
	SwapID           string `json:"swap_id"`
	LatestSequenceID int64  `json:"latest_sequence_id"`
	ServerTime       string `json:"server_time"`
}

type sendPayload struct {
	ClientMessageID string `json:"client_message_id"`
	Body            string `json:"body"`
}

type historyBeforePayload struct {
	BeforeSequenceID int64 `json:"before_sequence_id"`
	Limit            int   `json:"limit"`
}

type typingPayload struct {
	SwapID string `json:"swap_id"`
	UserID string `json:"user_id"`
}

type signalPayload struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

type signalRelayPayload struct {
	SwapID     string          `json:"swap_id"`
	FromUserID string          `json:"from_user_id"`
	Kind       string          `json:"kind"`
	Data       json.RawMessage `json:"data,omitempty"`
}

type messageEnvelope struct {
	Message chatMessage `json:"message"`
}

type chatMessage struct {
	MessageID       string `json:"message_id"`
	SwapID          string `json:"swap_id"`
	SenderID        string `json:"sender_id"`
	SequenceID      int64  `json:"sequence_id"`
	SentAt          string `json:"sent_at"`
	Body            string `json:"body"`
	ClientMessageID string `json:"client_message_id,omitempty"`
}

type ackEnvelope struct {
	Result ackResult `json:"result"`
}

type ackResult struct {
	Status     string `json:"status"`
	MessageID  string `json:"message_id,omitempty"`
	SequenceID int64  `json:"sequence_id,omitempty"`
	Count      int    `json:"count,omitempty"`
}

// HandlerConfig wires the WebSocket relay.
type HandlerConfig struct {
	Authenticator Authenticator
	Conversation  Conversation
	Hub           *Hub
	// AllowedOrigins restricts the handshake Origin; empty accepts any.
	AllowedOrigins []string
	Now            func() time.Time
}

type handler struct {
	authenticator  Authenticator
	conversation   Conversation
	hub            *Hub
	allowedOrigins []string
	now            func() time.Time
}

// NewHandler returns the /ws endpoint. Requests are authenticated before
// the upgrade.
func NewHandler(cfg HandlerConfig) http.Handler {
	h := &handler{
		authenticator:  cfg.Authenticator,
		conversation:   cfg.Conversation,
		hub:            cfg.Hub,
		allowedOrigins: cfg.AllowedOrigins,
		now:            cfg.Now,
	}
	if h.hub == nil {
		h.hub = NewHub()
	}
	if h.now == nil {
		h.now = time.Now
	}
	wsServer := websocket.Server{
		Handshake: h.checkOrigin,
		Handler: func(conn *websocket.Conn) {
			h.serveConn(conn)
		},
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if h.authenticator == nil || h.conversation == nil {
			http.Error(w, "websocket relay is not configured", http.StatusServiceUnavailable)
			return
		}

		accessToken := accessTokenFromRequest(r)
		if accessToken == "" {
			log.Printf("chat: websocket unauthorized: missing token remote=%s", r.RemoteAddr)
			http.Error(w, "authentication required", http.StatusUnauthorized)
			return
		}
		userID, err := h.authenticator.Authenticate(r.Context(), accessToken)
		if err == nil && strings.TrimSpace(userID) == "" {
			err = errors.New("empty user id")
		}
		if err != nil {
			log.Printf("chat: websocket unauthorized: remote=%s err=%v", r.RemoteAddr, err)
			http.Error(w, "authentication required", http.StatusUnauthorized)
			return
		}

		r = r.WithContext(requestctx.WithUserID(r.Context(), strings.TrimSpace(userID)))
		wsServer.ServeHTTP(w, r)
	})
}
