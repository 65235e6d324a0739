package server

import (
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	apperrors "github.com/louisbranch/skillswap/internal/platform/errors"
	"github.com/louisbranch/skillswap/internal/platform/httpx"
	"github.com/louisbranch/skillswap/internal/services/marketplace/profile"
	"github.com/louisbranch/skillswap/internal/services/marketplace/storage"
	"github.com/louisbranch/skillswap/internal/services/marketplace/swap"
)

const (
	maxBanReasonRunes         = 280
	maxAnnouncementTitleRunes = 120
	maxAnnouncementBodyRunes  = 2000
)

type banRequest struct {
	Reason string `json:"reason"`
}

type banResponse struct {
	User           userView `json:"user"`
	CancelledSwaps int      `json:"cancelled_swaps"`
}

type removeSkillRequest struct {
	Kind  string `json:"kind"`
	Skill string `json:"skill"`
}

type createAnnouncementRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

func (h *handler) handleAdminListUsers(w http.ResponseWriter, r *http.Request) {
	page, err := pageRequest(r)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	query := r.URL.Query()
	filter := storage.UserFilter{Query: strings.TrimSpace(query.Get("query"))}
	if raw := strings.TrimSpace(query.Get("banned")); raw != "" {
		banned, err := strconv.ParseBool(raw)
		if err != nil {
			httpx.WriteError(w, r, apperrors.WithMetadata(apperrors.CodeInvalidArgument, "banned must be true or false", map[string]string{"Field": "banned"}))
			return
		}
		filter.Banned = &banned
	}
	result, err := h.store.ListUsers(r.Context(), filter, page.Limit, page.Offset)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, listResponse[userView]{
		Items:         mapItems(result.Items, newUserView),
		NextPageToken: page.NextToken(result.HasMore),
	})
}

func (h *handler) handleBanUser(w http.ResponseWriter, r *http.Request) {
	var req banRequest
	if !h.decode(w, r, &req) {
		return
	}
	reason := strings.TrimSpace(req.Reason)
	if utf8.RuneCountInString(reason) > maxBanReasonRunes {
		httpx.WriteError(w, r, apperrors.WithMetadata(apperrors.CodeInvalidArgument, fmt.Sprintf("reason must be at most %d characters", maxBanReasonRunes), map[string]string{"Field": "reason"}))
		return
	}
	h.setBan(w, r, true, reason)
}

func (h *handler) handleUnbanUser(w http.ResponseWriter, r *http.Request) {
	h.setBan(w, r, false, "")
}

func (h *handler) setBan(w http.ResponseWriter, r *http.Request, banned bool, reason string) {
	ctx := r.Context()
	targetID := strings.TrimSpace(r.PathValue("id"))
	if banned && targetID == callerID(ctx) {
		httpx.WriteError(w, r, apperrors.New(apperrors.CodeUserSelfBan, "admins cannot ban themselves"))
		return
	}
	updated, cancelled, err := h.store.SetUserBan(ctx, targetID, banned, reason, h.now().UTC())
	if err != nil {
		httpx.WriteError(w, r, notFound(err, "user"))
		return
	}
	log.Printf("admin: ban updated admin=%s user=%s banned=%t cancelled_swaps=%d", callerID(ctx), updated.ID, banned, cancelled)
	_ = httpx.WriteJSON(w, http.StatusOK, banResponse{User: newUserView(updated), CancelledSwaps: cancelled})
}

func (h *handler) handleRemoveSkill(w http.ResponseWriter, r *http.Request) {
	var req removeSkillRequest
	if !h.decode(w, r, &req) {
		return
	}
	kind, err := profile.ParseSkillKind(req.Kind)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	skill := profile.CleanSkill(req.Skill)
	if skill == "" {
		httpx.WriteError(w, r, apperrors.WithMetadata(apperrors.CodeInvalidArgument, "skill is required", map[string]string{"Field": "skill"}))
		return
	}
	ctx := r.Context()
	userID := strings.TrimSpace(r.PathValue("id"))
	removed, err := h.store.RemoveProfileSkill(ctx, userID, kind, skill, h.now().UTC())
	if err != nil {
		httpx.WriteError(w, r, notFound(err, "user"))
		return
	}
	if !removed {
		httpx.WriteError(w, r, apperrors.New(apperrors.CodeNotFound, "skill not found on profile"))
		return
	}
	current, err := h.store.GetProfile(ctx, userID)
	if err != nil {
		httpx.WriteError(w, r, notFound(err, "user"))
		return
	}
	log.Printf("admin: skill removed admin=%s user=%s kind=%s", callerID(ctx), current.UserID, kind)
	_ = httpx.WriteJSON(w, http.StatusOK, newProfileView(current))
}

func (h *handler) handleAdminListSwaps(w http.ResponseWriter, r *http.Request) {
	page, err := pageRequest(r)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	var filter storage.SwapFilter
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		if filter.Status, err = swap.ParseStatus(raw); err != nil {
			httpx.WriteError(w, r, err)
			return
		}
	}
	h.writeSwapPage(w, r, filter, page.Limit, page.Offset, page.NextToken)
}

func (h *handler) handleActivityReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.store.ActivityReport(r.Context())
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, newActivityReportView(report))
}

func (h *handler) handleCreateAnnouncement(w http.ResponseWriter, r *http.Request) {
	var req createAnnouncementRequest
	if !h.decode(w, r, &req) {
		return
	}
	title := strings.TrimSpace(req.Title)
	if title == "" || utf8.RuneCountInString(title) > maxAnnouncementTitleRunes {
		httpx.WriteError(w, r, apperrors.WithMetadata(apperrors.CodeInvalidArgument, fmt.Sprintf("title must be 1-%d characters", maxAnnouncementTitleRunes), map[string]string{"Field": "title"}))
		return
	}
	body := strings.TrimSpace(req.Body)
	if body == "" || utf8.RuneCountInString(body) > maxAnnouncementBodyRunes {
		httpx.WriteError(w, r, apperrors.WithMetadata(apperrors.CodeInvalidArgument, fmt.Sprintf("body must be 1-%d characters", maxAnnouncementBodyRunes), map[string]string{"Field": "body"}))
		return
	}
	announcementID, err := h.idGenerator()
	if err != nil {
		httpx.WriteError(w, r, fmt.Errorf("generate announcement id: %w", err))
		return
	}
	record := storage.Announcement{
		ID:        announcementID,
		AuthorID:  callerID(r.Context()),
		Title:     title,
		Body:      body,
		CreatedAt: h.now().UTC(),
	}
	if err := h.store.CreateAnnouncement(r.Context(), record); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusCreated, newAnnouncementView(record))
}

func (h *handler) handleListAnnouncements(w http.ResponseWriter, r *http.Request) {
	page, err := pageRequest(r)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	result, err := h.store.ListAnnouncements(r.Context(), page.Limit, page.Offset)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, listResponse[announcementView]{
		Items:         mapItems(result.Items, newAnnouncementView),
		NextPageToken: page.NextToken(result.HasMore),
	})
}
