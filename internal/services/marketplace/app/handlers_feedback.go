package server

import (
	"errors"
	"net/http"
	"strings"

	apperrors "github.com/louisbranch/skillswap/internal/platform/errors"
	"github.com/louisbranch/skillswap/internal/platform/httpx"
	"github.com/louisbranch/skillswap/internal/services/marketplace/feedback"
	"github.com/louisbranch/skillswap/internal/services/marketplace/storage"
	"github.com/louisbranch/skillswap/internal/services/marketplace/swap"
)

type createFeedbackRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

func (h *handler) handleCreateFeedback(w http.ResponseWriter, r *http.Request) {
	var req createFeedbackRequest
	if !h.decode(w, r, &req) {
		return
	}
	current, err := h.loadSwap(r, false)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if current.Status != swap.StatusCompleted {
		httpx.WriteError(w, r, apperrors.WithMetadata(apperrors.CodeSwapNotActive, "feedback opens once the swap is completed", map[string]string{"Status": string(current.Status)}))
		return
	}
	authorID := callerID(r.Context())
	record, err := feedback.Create(feedback.CreateInput{
		SwapID:     current.ID,
		FromUserID: authorID,
		ToUserID:   current.Counterpart(authorID),
		Rating:     req.Rating,
		Comment:    req.Comment,
	}, h.now, h.idGenerator)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if err := h.store.CreateFeedback(r.Context(), record); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			httpx.WriteError(w, r, apperrors.New(apperrors.CodeFeedbackDuplicate, "feedback for this swap was already submitted"))
			return
		}
		httpx.WriteError(w, r, notFound(err, "swap"))
		return
	}
	_ = httpx.WriteJSON(w, http.StatusCreated, newFeedbackView(record))
}

func (h *handler) handleListFeedback(w http.ResponseWriter, r *http.Request) {
	page, err := pageRequest(r)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	ctx := r.Context()
	userID := strings.TrimSpace(r.PathValue("id"))
	owner, err := h.store.GetUser(ctx, userID)
	if err != nil {
		httpx.WriteError(w, r, notFound(err, "user"))
		return
	}
	if owner.Banned && !callerIsAdmin(ctx) && owner.ID != callerID(ctx) {
		httpx.WriteError(w, r, notFound(storage.ErrNotFound, "user"))
		return
	}
	result, err := h.store.ListFeedbackForUser(ctx, userID, page.Limit, page.Offset)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, listResponse[feedbackView]{
		Items:         mapItems(result.Items, newFeedbackView),
		NextPageToken: page.NextToken(result.HasMore),
	})
}
