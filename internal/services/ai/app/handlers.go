package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	apperrors "github.com/louisbranch/skillswap/internal/platform/errors"
	"github.com/louisbranch/skillswap/internal/platform/httpx"
	"github.com/louisbranch/skillswap/internal/services/ai/assist"
)

const maxRequestBytes = 256 * 1024

// Assistant is the moderation and summary surface served over HTTP.
type Assistant interface {
	Moderate(ctx context.Context, text string) (assist.Verdict, error)
	Summarize(ctx context.Context, transcript string) (string, error)
}

type moderateRequest struct {
	Text string `json:"text"`
}

type summarizeRequest struct {
	Transcript string `json:"transcript"`
}

type summarizeResponse struct {
	Summary string `json:"summary"`
}

type handlers struct {
	assistant Assistant
	timeout   time.Duration
}

// NewHandler returns the AI routes.
func NewHandler(assistant Assistant, timeout time.Duration) http.Handler {
	h := &handlers{assistant: assistant, timeout: timeout}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /moderate", h.moderate)
	mux.HandleFunc("POST /summarize", h.summarize)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		_ = httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return mux
}

func (h *handlers) moderate(w http.ResponseWriter, r *http.Request) {
	var req moderateRequest
	if err := httpx.DecodeJSON(r, &req, maxRequestBytes); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	ctx, cancel := h.callContext(r.Context())
	defer cancel()

	verdict, err := h.assistant.Moderate(ctx, req.Text)
	if err != nil {
		if errors.Is(err, assist.ErrEmptyInput) {
			httpx.WriteError(w, r, apperrors.New(apperrors.CodeInvalidArgument, "text is required"))
			return
		}
		log.Printf("ai: moderation failed text_len=%d err=%v", len(req.Text), err)
		httpx.WriteError(w, r, apperrors.Wrap(apperrors.CodeUnknown, "Moderation failed", err))
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, verdict)
}

func (h *handlers) summarize(w http.ResponseWriter, r *http.Request) {
	var req summarizeRequest
	if err := httpx.DecodeJSON(r, &req, maxRequestBytes); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	ctx, cancel := h.callContext(r.Context())
	defer cancel()

	summary, err := h.assistant.Summarize(ctx, req.Transcript)
	if err != nil {
		if errors.Is(err, assist.ErrEmptyInput) {
			httpx.WriteError(w, r, apperrors.New(apperrors.CodeInvalidArgument, "transcript is required"))
			return
		}
		log.Printf("ai: summarization failed transcript_len=%d err=%v", len(req.Transcript), err)
		httpx.WriteError(w, r, apperrors.Wrap(apperrors.CodeUnknown, "Summarization failed", err))
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, summarizeResponse{Summary: summary})
}

func (h *handlers) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if h.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, h.timeout)
}
