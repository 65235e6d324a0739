package server

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"golang.org/x/net/websocket"

	apperrors "github.com/louisbranch/skillswap/internal/platform/errors"
)

func TestAccessTokenFromRequest(t *testing.T) {
	tests := []struct {
		name   string
		target string
		header string
		cookie string
		want   string
	}{
		{name: "cookie", target: "/ws", cookie: "cookie-token", want: "cookie-token"},
		{name: "bearer", target: "/ws", header: "Bearer header-token", want: "header-token"},
		{name: "bearer lowercase scheme", target: "/ws", header: "bearer header-token", want: "header-token"},
		{name: "query", target: "/ws?access_token=query-token", want: "query-token"},
		{name: "cookie wins", target: "/ws?access_token=query-token", header: "Bearer header-token", cookie: "cookie-token", want: "cookie-token"},
		{name: "header before query", target: "/ws?access_token=query-token", header: "Bearer header-token", want: "header-token"},
		{name: "basic ignored", target: "/ws", header: "Basic abc", want: ""},
		{name: "none", target: "/ws", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: tokenCookieName, Value: tt.cookie})
			}
			if got := accessTokenFromRequest(req); got != tt.want {
				t.Fatalf("accessTokenFromRequest = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWSErrorFromErr(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		code      string
		retryable bool
	}{
		{name: "invalid", err: apperrors.New(apperrors.CodeMessageInvalid, "body is required"), code: codeInvalidArgument},
		{name: "not found hides swap", err: apperrors.New(apperrors.CodeNotFound, "swap not found"), code: codeForbidden},
		{name: "inactive", err: apperrors.New(apperrors.CodeSwapNotActive, "swap is not active"), code: codeFailedPrecondition},
		{name: "rejected", err: apperrors.New(apperrors.CodeMessageRejected, "message rejected"), code: codeRejected},
		{name: "ai down", err: apperrors.New(apperrors.CodeAIUnavailable, "moderation unavailable"), code: codeUnavailable, retryable: true},
		{name: "plain error", err: errors.New("disk full"), code: codeUnavailable, retryable: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := wsErrorFromErr(tt.err)
			if got.Code != tt.code || got.Retryable != tt.retryable {
				t.Fatalf("wsErrorFromErr = %+v, want code %s retryable %v", got, tt.code, tt.retryable)
			}
		})
	}
}

func TestCheckOrigin(t *testing.T) {
	h := &handler{allowedOrigins: []string{"https://app.skillswap.dev/"}}
	location, _ := url.Parse("ws://api.skillswap.dev/ws")

	allowed := httptest.NewRequest(http.MethodGet, "/ws", nil)
	allowed.Header.Set("Origin", "https://app.skillswap.dev")
	if err := h.checkOrigin(&websocket.Config{Location: location, Version: websocket.ProtocolVersionHybi13}, allowed); err != nil {
		t.Fatalf("allowed origin rejected: %v", err)
	}

	denied := httptest.NewRequest(http.MethodGet, "/ws", nil)
	denied.Header.Set("Origin", "https://evil.example")
	if err := h.checkOrigin(&websocket.Config{Location: location, Version: websocket.ProtocolVersionHybi13}, denied); err == nil {
		t.Fatal("expected foreign origin to be rejected")
	}

	open := &handler{}
	if err := open.checkOrigin(&websocket.Config{Location: location, Version: websocket.ProtocolVersionHybi13}, denied); err != nil {
		t.Fatalf("unrestricted handler rejected origin: %v", err)
	}
}
