package server

import (
	"net/http"
	"strings"

	"github.com/louisbranch/skillswap/internal/platform/httpx"
	"github.com/louisbranch/skillswap/internal/services/marketplace/message"
)

type sendMessageRequest struct {
	ClientMessageID string `json:"client_message_id"`
	Body            string `json:"body"`
}

type sendMessageResponse struct {
	Message   messageView `json:"message"`
	Duplicate bool        `json:"duplicate"`
}

type markReadResponse struct {
	Updated int64 `json:"updated"`
}

func (h *handler) handleListMessages(w http.ResponseWriter, r *http.Request) {
	before, err := queryInt(r, "before")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	messages, err := h.conversation.History(r.Context(), r.PathValue("id"), callerID(r.Context()), before, int(limit))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, listResponse[messageView]{Items: mapItems(messages, newMessageView)})
}

// handleSendMessage stores a message and fans it out to the live room.
// Resends answer 200 with the original and are not fanned out again.
func (h *handler) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if !h.decode(w, r, &req) {
		return
	}
	result, err := h.conversation.Send(r.Context(), message.SendInput{
		SwapID:          strings.TrimSpace(r.PathValue("id")),
		SenderID:        callerID(r.Context()),
		ClientMessageID: req.ClientMessageID,
		Body:            req.Body,
	})
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	status := http.StatusCreated
	if result.Duplicate {
		status = http.StatusOK
	}
	_ = httpx.WriteJSON(w, status, sendMessageResponse{Message: newMessageView(result.Message), Duplicate: result.Duplicate})
	if !result.Duplicate {
		h.conversation.Publish(result.Message)
	}
}

func (h *handler) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	updated, err := h.conversation.MarkRead(r.Context(), r.PathValue("id"), callerID(r.Context()))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, markReadResponse{Updated: updated})
}
