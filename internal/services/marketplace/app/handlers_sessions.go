package server

import (
	"errors"
	"log"
	"net/http"
	"strings"

	apperrors "github.com/louisbranch/skillswap/internal/platform/errors"
	"github.com/louisbranch/skillswap/internal/platform/httpx"
	"github.com/louisbranch/skillswap/internal/services/marketplace/session"
	"github.com/louisbranch/skillswap/internal/services/marketplace/storage"
	"github.com/louisbranch/skillswap/internal/services/marketplace/swap"
)

type scheduleSessionRequest struct {
	Title           string `json:"title"`
	StartsAt        string `json:"starts_at"`
	DurationMinutes int    `json:"duration_minutes"`
	MeetingURL      string `json:"meeting_url"`
}

type summarizeSessionRequest struct {
	Transcript string `json:"transcript"`
}

func (h *handler) handleScheduleSession(w http.ResponseWriter, r *http.Request) {
	var req scheduleSessionRequest
	if !h.decode(w, r, &req) {
		return
	}
	current, err := h.loadSwap(r, false)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if current.Status != swap.StatusAccepted {
		httpx.WriteError(w, r, apperrors.WithMetadata(apperrors.CodeSwapNotActive, "sessions can only be scheduled for accepted swaps", map[string]string{"Status": string(current.Status)}))
		return
	}
	scheduled, err := session.Schedule(session.ScheduleInput{
		SwapID:          current.ID,
		OrganizerID:     callerID(r.Context()),
		Title:           req.Title,
		StartsAt:        req.StartsAt,
		DurationMinutes: req.DurationMinutes,
		MeetingURL:      req.MeetingURL,
	}, h.meetingBaseURL, h.now, h.idGenerator)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if err := h.store.CreateSession(r.Context(), scheduled); err != nil {
		httpx.WriteError(w, r, notFound(err, "swap"))
		return
	}
	log.Printf("session: scheduled session=%s swap=%s starts_at=%s", scheduled.ID, scheduled.SwapID, formatTime(scheduled.StartsAt))
	_ = httpx.WriteJSON(w, http.StatusCreated, newSessionView(scheduled))
}

func (h *handler) handleListSessions(w http.ResponseWriter, r *http.Request) {
	page, err := pageRequest(r)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	filter := storage.SessionFilter{UserID: callerID(r.Context())}
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		if filter.Status, err = session.ParseStatus(raw); err != nil {
			httpx.WriteError(w, r, err)
			return
		}
	}
	result, err := h.store.ListSessions(r.Context(), filter, page.Limit, page.Offset)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, listResponse[sessionView]{
		Items:         mapItems(result.Items, newSessionView),
		NextPageToken: page.NextToken(result.HasMore),
	})
}

// loadSession returns the session when the caller is a party of its swap, or
// an admin when allowAdmin is set.
func (h *handler) loadSession(r *http.Request, allowAdmin bool) (session.Session, error) {
	ctx := r.Context()
	current, err := h.store.GetSession(ctx, strings.TrimSpace(r.PathValue("id")))
	if err != nil {
		return session.Session{}, notFound(err, "session")
	}
	parent, err := h.store.GetSwap(ctx, current.SwapID)
	if err != nil {
		return session.Session{}, notFound(err, "session")
	}
	if parent.PartyOf(callerID(ctx)) == swap.PartyNone && !(allowAdmin && callerIsAdmin(ctx)) {
		return session.Session{}, apperrors.New(apperrors.CodeNotFound, "session not found")
	}
	return current, nil
}

func (h *handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	current, err := h.loadSession(r, true)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, newSessionView(current))
}

func (h *handler) sessionAction(target session.Status) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		current, err := h.loadSession(r, false)
		if err != nil {
			httpx.WriteError(w, r, err)
			return
		}
		next, err := session.Finish(current, target)
		if err != nil {
			httpx.WriteError(w, r, err)
			return
		}
		updated, err := h.store.UpdateSessionStatus(r.Context(), current.ID, current.Status, next, h.now().UTC())
		if err != nil {
			if errors.Is(err, storage.ErrStale) {
				httpx.WriteError(w, r, apperrors.New(apperrors.CodeSessionInvalidStatus, "session changed concurrently, reload and retry"))
				return
			}
			httpx.WriteError(w, r, notFound(err, "session"))
			return
		}
		_ = httpx.WriteJSON(w, http.StatusOK, newSessionView(updated))
	}
}

func (h *handler) handleSummarizeSession(w http.ResponseWriter, r *http.Request) {
	var req summarizeSessionRequest
	if !h.decode(w, r, &req) {
		return
	}
	transcript := strings.TrimSpace(req.Transcript)
	if transcript == "" {
		httpx.WriteError(w, r, apperrors.WithMetadata(apperrors.CodeInvalidArgument, "transcript is required", map[string]string{"Field": "transcript"}))
		return
	}
	current, err := h.loadSession(r, false)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if h.summarizer == nil {
		httpx.WriteError(w, r, apperrors.New(apperrors.CodeAIUnavailable, "session summaries are not configured"))
		return
	}
	summary, err := h.summarizer.Summarize(r.Context(), transcript)
	if err != nil {
		log.Printf("session: summarize failed session=%s err=%v", current.ID, err)
		httpx.WriteError(w, r, apperrors.Wrap(apperrors.CodeAIUnavailable, "session summary is unavailable", err))
		return
	}
	updated, err := h.store.SetSessionSummary(r.Context(), current.ID, transcript, summary, h.now().UTC())
	if err != nil {
		httpx.WriteError(w, r, notFound(err, "session"))
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, newSessionView(updated))
}
