package server

import (
	"errors"
	"log"
	"net/http"
	"strings"

	apperrors "github.com/louisbranch/skillswap/internal/platform/errors"
	"github.com/louisbranch/skillswap/internal/platform/httpx"
	"github.com/louisbranch/skillswap/internal/services/marketplace/storage"
	"github.com/louisbranch/skillswap/internal/services/marketplace/swap"
)

type createSwapRequest struct {
	RecipientID  string `json:"recipient_id"`
	OfferedSkill string `json:"offered_skill"`
	WantedSkill  string `json:"wanted_skill"`
	Message      string `json:"message"`
}

func (h *handler) handleCreateSwap(w http.ResponseWriter, r *http.Request) {
	var req createSwapRequest
	if !h.decode(w, r, &req) {
		return
	}
	ctx := r.Context()
	requesterID := callerID(ctx)
	candidate, err := swap.Create(swap.CreateInput{
		RequesterID:  requesterID,
		RecipientID:  req.RecipientID,
		OfferedSkill: req.OfferedSkill,
		WantedSkill:  req.WantedSkill,
		Message:      req.Message,
	}, h.now, h.idGenerator)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	recipient, err := h.store.GetUser(ctx, candidate.RecipientID)
	if err != nil {
		httpx.WriteError(w, r, notFound(err, "recipient"))
		return
	}
	if recipient.Banned {
		httpx.WriteError(w, r, notFound(storage.ErrNotFound, "recipient"))
		return
	}
	requesterProfile, err := h.store.GetProfile(ctx, requesterID)
	if err != nil {
		httpx.WriteError(w, r, notFound(err, "profile"))
		return
	}
	recipientProfile, err := h.store.GetProfile(ctx, recipient.ID)
	if err != nil {
		httpx.WriteError(w, r, notFound(err, "recipient"))
		return
	}
	candidate, err = swap.CheckSkills(candidate, requesterProfile.SkillsOffered, recipientProfile.SkillsOffered)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if err := h.store.CreateSwap(ctx, candidate); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			httpx.WriteError(w, r, apperrors.New(apperrors.CodeSwapDuplicate, "an identical swap request is already pending"))
			return
		}
		httpx.WriteError(w, r, notFound(err, "recipient"))
		return
	}
	log.Printf("swap: created swap=%s requester=%s recipient=%s", candidate.ID, candidate.RequesterID, candidate.RecipientID)
	_ = httpx.WriteJSON(w, http.StatusCreated, newSwapView(candidate))
}

func (h *handler) handleListSwaps(w http.ResponseWriter, r *http.Request) {
	page, err := pageRequest(r)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	filter := storage.SwapFilter{UserID: callerID(r.Context())}
	query := r.URL.Query()
	if raw := strings.TrimSpace(query.Get("status")); raw != "" {
		if filter.Status, err = swap.ParseStatus(raw); err != nil {
			httpx.WriteError(w, r, err)
			return
		}
	}
	switch role := strings.ToLower(strings.TrimSpace(query.Get("role"))); role {
	case "":
	case "requester":
		filter.Role = swap.PartyRequester
	case "recipient":
		filter.Role = swap.PartyRecipient
	default:
		httpx.WriteError(w, r, apperrors.WithMetadata(apperrors.CodeInvalidArgument, "role must be requester or recipient", map[string]string{"Field": "role"}))
		return
	}
	h.writeSwapPage(w, r, filter, page.Limit, page.Offset, page.NextToken)
}

func (h *handler) writeSwapPage(w http.ResponseWriter, r *http.Request, filter storage.SwapFilter, limit int, offset int, next func(bool) string) {
	result, err := h.store.ListSwaps(r.Context(), filter, limit, offset)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, listResponse[swapView]{
		Items:         mapItems(result.Items, newSwapView),
		NextPageToken: next(result.HasMore),
	})
}

// loadSwap returns the swap when the caller is a party or an admin.
func (h *handler) loadSwap(r *http.Request, allowAdmin bool) (swap.Swap, error) {
	ctx := r.Context()
	current, err := h.store.GetSwap(ctx, strings.TrimSpace(r.PathValue("id")))
	if err != nil {
		return swap.Swap{}, notFound(err, "swap")
	}
	if current.PartyOf(callerID(ctx)) == swap.PartyNone && !(allowAdmin && callerIsAdmin(ctx)) {
		return swap.Swap{}, apperrors.New(apperrors.CodeNotFound, "swap not found")
	}
	return current, nil
}

func (h *handler) handleGetSwap(w http.ResponseWriter, r *http.Request) {
	current, err := h.loadSwap(r, true)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, newSwapView(current))
}

func (h *handler) swapAction(action swap.Action) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		current, err := h.loadSwap(r, false)
		if err != nil {
			httpx.WriteError(w, r, err)
			return
		}
		next, err := swap.Transition(current, action, callerID(r.Context()))
		if err != nil {
			httpx.WriteError(w, r, err)
			return
		}
		updated, err := h.store.UpdateSwapStatus(r.Context(), current.ID, current.Status, next, h.now().UTC())
		if err != nil {
			httpx.WriteError(w, r, staleSwap(err))
			return
		}
		log.Printf("swap: %s swap=%s actor=%s status=%s", action, updated.ID, callerID(r.Context()), updated.Status)
		_ = httpx.WriteJSON(w, http.StatusOK, newSwapView(updated))
	}
}

func (h *handler) handleDeleteSwap(w http.ResponseWriter, r *http.Request) {
	current, err := h.loadSwap(r, false)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if _, err := swap.Transition(current, swap.ActionDelete, callerID(r.Context())); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if err := h.store.DeleteSwap(r.Context(), current.ID, current.Status); err != nil {
		httpx.WriteError(w, r, staleSwap(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func staleSwap(err error) error {
	if errors.Is(err, storage.ErrStale) {
		return apperrors.New(apperrors.CodeSwapInvalidTransition, "swap changed concurrently, reload and retry")
	}
	return notFound(err, "swap")
}
