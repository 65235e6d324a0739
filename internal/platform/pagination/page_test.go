package pagination

import "testing"

func TestClampPageSize(t *testing.T) {
	cfg := PageSizeConfig{Default: 20, Max: 50}
	tests := []struct {
		in   int
		want int
	}{
		{0, 20},
		{-3, 20},
		{10, 10},
		{500, 50},
	}
	for _, tt := range tests {
		if got := ClampPageSize(tt.in, cfg); got != tt.want {
			t.Fatalf("ClampPageSize(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
	if got := ClampPageSize(0, PageSizeConfig{}); got != 1 {
		t.Fatalf("ClampPageSize with zero config = %d, want 1", got)
	}
}

func TestOffsetTokenRoundTrip(t *testing.T) {
	token := EncodeOffset(40)
	if token == "" {
		t.Fatal("expected non-empty token")
	}
	offset, err := DecodeOffset(token)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if offset != 40 {
		t.Fatalf("offset = %d, want 40", offset)
	}
	if EncodeOffset(0) != "" {
		t.Fatal("expected empty token for zero offset")
	}
}

func TestDecodeOffsetRejectsGarbage(t *testing.T) {
	for _, token := range []string{"!!!", "bm9wZQ", EncodeOffset(3) + "x"} {
		if _, err := DecodeOffset(token); err == nil {
			t.Fatalf("expected error for token %q", token)
		}
	}
}

func TestParseRequest(t *testing.T) {
	req, err := ParseRequest("5", EncodeOffset(10), Default)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if req.Limit != 5 || req.Offset != 10 {
		t.Fatalf("request = %+v", req)
	}
	if next := req.NextToken(true); next != EncodeOffset(15) {
		t.Fatalf("next token = %q", next)
	}
	if next := req.NextToken(false); next != "" {
		t.Fatalf("expected empty next token, got %q", next)
	}
	if _, err := ParseRequest("abc", "", Default); err == nil {
		t.Fatal("expected error for non-numeric page size")
	}
}
