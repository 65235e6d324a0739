package requestctx

import (
	"context"
	"testing"
)

func TestUserIDFromContextRoundTrip(t *testing.T) {
	ctx := WithUserID(context.Background(), "user-42")
	if got := UserIDFromContext(ctx); got != "user-42" {
		t.Fatalf("UserIDFromContext = %q, want %q", got, "user-42")
	}
}

func TestFromContextNil(t *testing.T) {
	if got := UserIDFromContext(nil); got != "" {
		t.Fatalf("expected empty user id for nil context, got %q", got)
	}
	if got := RoleFromContext(nil); got != "" {
		t.Fatalf("expected empty role for nil context, got %q", got)
	}
}

func TestWithCallerNilContext(t *testing.T) {
	ctx := WithCaller(nil, "user-99", "admin")
	if got := UserIDFromContext(ctx); got != "user-99" {
		t.Fatalf("UserIDFromContext = %q, want %q", got, "user-99")
	}
	if got := RoleFromContext(ctx); got != "admin" {
		t.Fatalf("RoleFromContext = %q, want %q", got, "admin")
	}
}
