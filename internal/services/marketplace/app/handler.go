package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/louisbranch/skillswap/internal/platform/errors"
	"github.com/louisbranch/skillswap/internal/platform/httpx"
	"github.com/louisbranch/skillswap/internal/platform/id"
	"github.com/louisbranch/skillswap/internal/platform/pagination"
	"github.com/louisbranch/skillswap/internal/services/marketplace/conversation"
	"github.com/louisbranch/skillswap/internal/services/marketplace/session"
	"github.com/louisbranch/skillswap/internal/services/marketplace/storage"
	"github.com/louisbranch/skillswap/internal/services/marketplace/swap"
	"github.com/louisbranch/skillswap/internal/services/marketplace/token"
)

const maxRequestBytes = 256 * 1024

// Summarizer produces a session summary from a transcript.
type Summarizer interface {
	Summarize(ctx context.Context, transcript string) (string, error)
}

// Deps are the collaborators of the REST handler.
type Deps struct {
	Store        storage.Store
	Tokens       *token.Manager
	Conversation *conversation.Service
	// Summarizer is optional; without it session summaries answer 503.
	Summarizer Summarizer
	// Live is mounted at /ws when set.
	Live           http.Handler
	MeetingBaseURL string
	AllowedOrigins []string
	CookieSecure   bool
	Now            func() time.Time
	IDGenerator    func() (string, error)
}

type handler struct {
	store          storage.Store
	tokens         *token.Manager
	conversation   *conversation.Service
	summarizer     Summarizer
	meetingBaseURL string
	cookieSecure   bool
	now            func() time.Time
	idGenerator    func() (string, error)
}

// NewHandler returns the REST API with its middleware chain applied.
func NewHandler(deps Deps) (http.Handler, error) {
	if deps.Store == nil {
		return nil, errors.New("store is required")
	}
	if deps.Tokens == nil {
		return nil, errors.New("token manager is required")
	}
	if deps.Conversation == nil {
		return nil, errors.New("conversation service is required")
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.IDGenerator == nil {
		deps.IDGenerator = id.NewID
	}
	if strings.TrimSpace(deps.MeetingBaseURL) == "" {
		deps.MeetingBaseURL = session.DefaultMeetingBaseURL
	}
	h := &handler{
		store:          deps.Store,
		tokens:         deps.Tokens,
		conversation:   deps.Conversation,
		summarizer:     deps.Summarizer,
		meetingBaseURL: deps.MeetingBaseURL,
		cookieSecure:   deps.CookieSecure,
		now:            deps.Now,
		idGenerator:    deps.IDGenerator,
	}

	mux := http.NewServeMux()
	h.registerRoutes(mux)
	if deps.Live != nil {
		mux.Handle("/ws", deps.Live)
	}
	return httpx.Chain(
		mux,
		httpx.RecoverPanic(),
		httpx.RequestID("api"),
		httpx.Trace("skillswap/api"),
		httpx.CORS(deps.AllowedOrigins),
	), nil
}

func (h *handler) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /up", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	mux.HandleFunc("POST /api/auth/register", h.handleRegister)
	mux.HandleFunc("POST /api/auth/login", h.handleLogin)
	mux.HandleFunc("POST /api/auth/logout", h.handleLogout)
	mux.HandleFunc("GET /api/auth/me", h.requireUser(h.handleMe))

	mux.HandleFunc("GET /api/profile", h.requireUser(h.handleGetOwnProfile))
	mux.HandleFunc("PUT /api/profile", h.requireUser(h.handleUpdateProfile))
	mux.HandleFunc("GET /api/users", h.requireUser(h.handleBrowseProfiles))
	mux.HandleFunc("GET /api/users/{id}", h.requireUser(h.handleGetProfile))
	mux.HandleFunc("GET /api/users/{id}/feedback", h.requireUser(h.handleListFeedback))

	mux.HandleFunc("POST /api/swaps", h.requireUser(h.handleCreateSwap))
	mux.HandleFunc("GET /api/swaps", h.requireUser(h.handleListSwaps))
	mux.HandleFunc("GET /api/swaps/{id}", h.requireUser(h.handleGetSwap))
	mux.HandleFunc("DELETE /api/swaps/{id}", h.requireUser(h.handleDeleteSwap))
	mux.HandleFunc("POST /api/swaps/{id}/accept", h.requireUser(h.swapAction(swap.ActionAccept)))
	mux.HandleFunc("POST /api/swaps/{id}/reject", h.requireUser(h.swapAction(swap.ActionReject)))
	mux.HandleFunc("POST /api/swaps/{id}/cancel", h.requireUser(h.swapAction(swap.ActionCancel)))
	mux.HandleFunc("POST /api/swaps/{id}/complete", h.requireUser(h.swapAction(swap.ActionComplete)))

	mux.HandleFunc("POST /api/swaps/{id}/sessions", h.requireUser(h.handleScheduleSession))
	mux.HandleFunc("GET /api/sessions", h.requireUser(h.handleListSessions))
	mux.HandleFunc("GET /api/sessions/{id}", h.requireUser(h.handleGetSession))
	mux.HandleFunc("POST /api/sessions/{id}/cancel", h.requireUser(h.sessionAction(session.StatusCancelled)))
	mux.HandleFunc("POST /api/sessions/{id}/complete", h.requireUser(h.sessionAction(session.StatusCompleted)))
	mux.HandleFunc("POST /api/sessions/{id}/summary", h.requireUser(h.handleSummarizeSession))

	mux.HandleFunc("GET /api/swaps/{id}/messages", h.requireUser(h.handleListMessages))
	mux.HandleFunc("POST /api/swaps/{id}/messages", h.requireUser(h.handleSendMessage))
	mux.HandleFunc("POST /api/swaps/{id}/messages/read", h.requireUser(h.handleMarkRead))

	mux.HandleFunc("POST /api/swaps/{id}/feedback", h.requireUser(h.handleCreateFeedback))

	mux.HandleFunc("GET /api/announcements", h.requireUser(h.handleListAnnouncements))
	mux.HandleFunc("POST /api/announcements", h.requireAdmin(h.handleCreateAnnouncement))

	mux.HandleFunc("GET /api/admin/users", h.requireAdmin(h.handleAdminListUsers))
	mux.HandleFunc("POST /api/admin/users/{id}/ban", h.requireAdmin(h.handleBanUser))
	mux.HandleFunc("POST /api/admin/users/{id}/unban", h.requireAdmin(h.handleUnbanUser))
	mux.HandleFunc("DELETE /api/admin/users/{id}/skills", h.requireAdmin(h.handleRemoveSkill))
	mux.HandleFunc("GET /api/admin/swaps", h.requireAdmin(h.handleAdminListSwaps))
	mux.HandleFunc("GET /api/admin/reports/activity", h.requireAdmin(h.handleActivityReport))
}

func (h *handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := httpx.DecodeJSON(r, dst, maxRequestBytes); err != nil {
		httpx.WriteError(w, r, err)
		return false
	}
	return true
}

func pageRequest(r *http.Request) (pagination.Request, error) {
	query := r.URL.Query()
	return pagination.ParseRequest(query.Get("page_size"), query.Get("page_token"), pagination.Default)
}

func queryInt(r *http.Request, name string) (int64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apperrors.WithMetadata(apperrors.CodeInvalidArgument, name+" must be an integer", map[string]string{"Field": name})
	}
	return value, nil
}

// notFound converts the store sentinel to a domain error naming the resource.
func notFound(err error, resource string) error {
	if errors.Is(err, storage.ErrNotFound) {
		return apperrors.New(apperrors.CodeNotFound, resource+" not found")
	}
	return err
}
