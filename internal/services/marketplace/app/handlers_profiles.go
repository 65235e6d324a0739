package server

import (
	"net/http"
	"strings"

	"github.com/louisbranch/skillswap/internal/platform/httpx"
	"github.com/louisbranch/skillswap/internal/services/marketplace/profile"
	"github.com/louisbranch/skillswap/internal/services/marketplace/storage"
)

type updateProfileRequest struct {
	Location      string   `json:"location"`
	Bio           string   `json:"bio"`
	Availability  []string `json:"availability"`
	Public        *bool    `json:"public"`
	SkillsOffered []string `json:"skills_offered"`
	SkillsWanted  []string `json:"skills_wanted"`
}

func (h *handler) handleGetOwnProfile(w http.ResponseWriter, r *http.Request) {
	current, err := h.store.GetProfile(r.Context(), callerID(r.Context()))
	if err != nil {
		httpx.WriteError(w, r, notFound(err, "profile"))
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, newProfileView(current))
}

func (h *handler) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if !h.decode(w, r, &req) {
		return
	}
	ctx := r.Context()
	current, err := h.store.GetProfile(ctx, callerID(ctx))
	if err != nil {
		httpx.WriteError(w, r, notFound(err, "profile"))
		return
	}
	// An omitted visibility flag keeps the stored one.
	public := current.Public
	if req.Public != nil {
		public = *req.Public
	}
	updated, err := profile.ApplyUpdate(current, profile.UpdateInput{
		Location:      req.Location,
		Bio:           req.Bio,
		Availability:  req.Availability,
		Public:        public,
		SkillsOffered: req.SkillsOffered,
		SkillsWanted:  req.SkillsWanted,
	})
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if err := h.store.PutProfile(ctx, updated, h.now().UTC()); err != nil {
		httpx.WriteError(w, r, notFound(err, "profile"))
		return
	}
	stored, err := h.store.GetProfile(ctx, updated.UserID)
	if err != nil {
		httpx.WriteError(w, r, notFound(err, "profile"))
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, newProfileView(stored))
}

func (h *handler) handleBrowseProfiles(w http.ResponseWriter, r *http.Request) {
	page, err := pageRequest(r)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	filter := storage.ProfileFilter{ExcludeUserID: callerID(r.Context())}
	query := r.URL.Query()
	if skill := profile.CleanSkill(query.Get("skill")); skill != "" {
		filter.SkillKey = profile.SkillKey(skill)
	}
	if raw := strings.TrimSpace(query.Get("availability")); raw != "" {
		availability, err := profile.ParseAvailability(raw)
		if err != nil {
			httpx.WriteError(w, r, err)
			return
		}
		filter.Availability = availability
	}

	result, err := h.store.ListProfiles(r.Context(), filter, page.Limit, page.Offset)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, listResponse[profileView]{
		Items:         mapItems(result.Items, newProfileView),
		NextPageToken: page.NextToken(result.HasMore),
	})
}

// handleGetProfile hides private and banned profiles from everyone but the
// owner and admins.
func (h *handler) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := strings.TrimSpace(r.PathValue("id"))
	privileged := userID == callerID(ctx) || callerIsAdmin(ctx)

	owner, err := h.store.GetUser(ctx, userID)
	if err != nil {
		httpx.WriteError(w, r, notFound(err, "user"))
		return
	}
	if owner.Banned && !privileged {
		httpx.WriteError(w, r, notFound(storage.ErrNotFound, "user"))
		return
	}
	current, err := h.store.GetProfile(ctx, userID)
	if err != nil {
		httpx.WriteError(w, r, notFound(err, "user"))
		return
	}
	if !current.Public && !privileged {
		httpx.WriteError(w, r, notFound(storage.ErrNotFound, "user"))
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, newProfileView(current))
}
