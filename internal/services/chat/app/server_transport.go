package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"strings"
	"time"

	"golang.org/x/net/websocket"

	"github.com/louisbranch/skillswap/internal/platform/requestctx"
	"github.com/louisbranch/skillswap/internal/services/marketplace/message"
)

var signalKinds = map[string]struct{}{
	"offer":     {},
	"answer":    {},
	"candidate": {},
	"hangup":    {},
}

func (h *handler) serveConn(conn *websocket.Conn) {
	defer func() {
		_ = conn.Close()
	}()

	ctx := context.Background()
	if request := conn.Request(); request != nil {
		ctx = request.Context()
	}
	userID := requestctx.UserIDFromContext(ctx)
	if userID == "" {
		return
	}

	conn.MaxPayloadBytes = maxFramePayloadBytes + maxFrameEnvelopeBytes
	session := newWSSession(newWSPeer(userID, conn))
	defer func() {
		h.hub.leave(session.currentRoom(), session.peer)
	}()

	windowStart := time.Now()
	framesInWindow := 0
	decodeErrors := 0

	for {
		// One websocket message per frame, so a bad frame never poisons the next.
		var raw []byte
		if err := websocket.Message.Receive(conn, &raw); err != nil {
			if errors.Is(err, websocket.ErrFrameTooLarge) {
				_ = writeWSError(session.peer, "", wsError{Code: codeInvalidArgument, Message: "payload too large"})
				continue
			}
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
				log.Printf("chat: receive failed user=%q err=%v", userID, err)
			}
			return
		}

		var frame wsFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			decodeErrors++
			_ = writeWSError(session.peer, "", wsError{Code: codeInvalidArgument, Message: "invalid frame payload"})
			if decodeErrors >= maxDecodeErrorsPerConn {
				return
			}
			continue
		}
		decodeErrors = 0

		if len(frame.Payload) > maxFramePayloadBytes {
			_ = writeWSError(session.peer, frame.RequestID, wsError{Code: codeInvalidArgument, Message: "payload too large"})
			continue
		}

		now := time.Now()
		if now.Sub(windowStart) >= time.Second {
			windowStart = now
			framesInWindow = 0
		}
		framesInWindow++
		if framesInWindow > maxFramesPerSecond {
			_ = writeWSError(session.peer, frame.RequestID, wsError{Code: codeResourceExhausted, Message: "rate limit exceeded"})
			return
		}

		switch frame.Type {
		case frameJoin:
			h.handleJoin(ctx, session, frame)
		case frameSend:
			h.handleSend(ctx, session, frame)
		case frameHistoryBefore:
			h.handleHistoryBefore(ctx, session, frame)
		case frameTyping:
			h.handleTyping(session, frame)
		case frameCallSignal:
			h.handleCallSignal(session, frame)
		default:
			_ = writeWSError(session.peer, frame.RequestID, wsError{Code: codeInvalidArgument, Message: "unsupported frame type"})
		}
	}
}

func (h *handler) handleJoin(ctx context.Context, session *wsSession, frame wsFrame) {
	var payload joinPayload
	if err := json.Unmarshal(frame.Payload, &payload); err != nil {
		_ = writeWSError(session.peer, frame.RequestID, wsError{Code: codeInvalidArgument, Message: "invalid join payload"})
		return
	}
	swapID := strings.TrimSpace(payload.SwapID)
	if swapID == "" {
		_ = writeWSError(session.peer, frame.RequestID, wsError{Code: codeInvalidArgument, Message: "swap_id is required"})
		return
	}

	latest, err := h.conversation.Latest(ctx, swapID, session.userID())
	if err != nil {
		log.Printf("chat: join refused user=%q swap=%q err=%v", session.userID(), swapID, err)
		_ = writeWSError(session.peer, frame.RequestID, wsErrorFromErr(err))
		return
	}

	room := h.hub.join(swapID, session.peer)
	if room == nil {
		_ = writeWSError(session.peer, frame.RequestID, wsError{Code: codeUnavailable, Message: "relay is shutting down", Retryable: true})
		return
	}
	if previous := session.setRoom(room); previous != nil && previous != room {
		h.hub.leave(previous, session.peer)
	}

	_ = session.peer.writeFrame(wsFrame{
		Type:      frameJoined,
		RequestID: frame.RequestID,
		Payload: mustJSON(joinedPayload{
			SwapID:           swapID,
			LatestSequenceID: latest,
			ServerTime:       h.now().UTC().Format(time.RFC3339),
		}),
	})
}

func (h *handler) handleSend(ctx context.Context, session *wsSession, frame wsFrame) {
	var payload sendPayload
	if err := json.Unmarshal(frame.Payload, &payload); err != nil {
		_ = writeWSError(session.peer, frame.RequestID, wsError{Code: codeInvalidArgument, Message: "invalid send payload"})
		return
	}
	room := session.currentRoom()
	if room == nil {
		_ = writeWSError(session.peer, frame.RequestID, wsError{Code: codeForbidden, Message: "must join swap room before sending"})
		return
	}

	result, err := h.conversation.Send(ctx, message.SendInput{
		SwapID:          room.swapID,
		SenderID:        session.userID(),
		ClientMessageID: payload.ClientMessageID,
		Body:            payload.Body,
	})
	if err != nil {
		_ = writeWSError(session.peer, frame.RequestID, wsErrorFromErr(err))
		return
	}

	_ = session.peer.writeFrame(wsFrame{
		Type:      frameAck,
		RequestID: frame.RequestID,
		Payload: mustJSON(ackEnvelope{
			Result: ackResult{
				Status:     "ok",
				MessageID:  result.Message.ID,
				SequenceID: result.Message.SequenceID,
			},
		}),
	})
	if result.Duplicate {
		return
	}
	h.hub.PublishMessage(result.Message)
}

func (h *handler) handleHistoryBefore(ctx context.Context, session *wsSession, frame wsFrame) {
	var payload historyBeforePayload
	if err := json.Unmarshal(frame.Payload, &payload); err != nil {
		_ = writeWSError(session.peer, frame.RequestID, wsError{Code: codeInvalidArgument, Message: "invalid history payload"})
		return
	}
	if payload.BeforeSequenceID < 1 {
		_ = writeWSError(session.peer, frame.RequestID, wsError{Code: codeInvalidArgument, Message: "before_sequence_id must be >= 1"})
		return
	}
	room := session.currentRoom()
	if room == nil {
		_ = writeWSError(session.peer, frame.RequestID, wsError{Code: codeForbidden, Message: "must join swap room before requesting history"})
		return
	}

	history, err := h.conversation.History(ctx, room.swapID, session.userID(), payload.BeforeSequenceID, payload.Limit)
	if err != nil {
		_ = writeWSError(session.peer, frame.RequestID, wsErrorFromErr(err))
		return
	}
	for _, msg := range history {
		_ = session.peer.writeFrame(wsFrame{
			Type:    frameMessage,
			Payload: mustJSON(messageEnvelope{Message: toChatMessage(msg)}),
		})
	}
	_ = session.peer.writeFrame(wsFrame{
		Type:      frameAck,
		RequestID: frame.RequestID,
		Payload: mustJSON(ackEnvelope{
			Result: ackResult{
				Status: "ok",
				Count:  len(history),
			},
		}),
	})
}

func (h *handler) handleTyping(session *wsSession, frame wsFrame) {
	room := session.currentRoom()
	if room == nil {
		_ = writeWSError(session.peer, frame.RequestID, wsError{Code: codeForbidden, Message: "must join swap room before typing"})
		return
	}
	room.broadcast(wsFrame{
		Type:    frameTyping,
		Payload: mustJSON(typingPayload{SwapID: room.swapID, UserID: session.userID()}),
	}, session.peer)
}

func (h *handler) handleCallSignal(session *wsSession, frame wsFrame) {
	var payload signalPayload
	if err := json.Unmarshal(frame.Payload, &payload); err != nil {
		_ = writeWSError(session.peer, frame.RequestID, wsError{Code: codeInvalidArgument, Message: "invalid signal payload"})
		return
	}
	kind := strings.ToLower(strings.TrimSpace(payload.Kind))
	if _, ok := signalKinds[kind]; !ok {
		_ = writeWSError(session.peer, frame.RequestID, wsError{Code: codeInvalidArgument, Message: "kind must be offer, answer, candidate or hangup"})
		return
	}
	room := session.currentRoom()
	if room == nil {
		_ = writeWSError(session.peer, frame.RequestID, wsError{Code: codeForbidden, Message: "must join swap room before signaling"})
		return
	}
	room.broadcast(wsFrame{
		Type: frameCallSignal,
		Payload: mustJSON(signalRelayPayload{
			SwapID:     room.swapID,
			FromUserID: session.userID(),
			Kind:       kind,
			Data:       payload.Data,
		}),
	}, session.peer)
}

func writeWSError(peer *wsPeer, requestID string, wsErr wsError) error {
	return peer.writeFrame(wsFrame{
		Type:      frameError,
		RequestID: requestID,
		Payload:   mustJSON(wsErrorEnvelope{Error: wsErr}),
	})
}

func mustJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		log.Printf("failed to marshal websocket frame payload: %v", err)
		return nil
	}
	return b
}
