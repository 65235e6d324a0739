package swap

import (
	"strings"
	"testing"
	"time"

	apperrors "github.com/louisbranch/skillswap/internal/platform/errors"
)

func fixedID(value string) func() (string, error) {
	return func() (string, error) { return value, nil }
}

func TestCreate(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s, err := Create(CreateInput{
		RequesterID:  "user-a",
		RecipientID:  "user-b",
		OfferedSkill: "  Guitar ",
		WantedSkill:  "Spanish",
		Message:      " hola ",
	}, func() time.Time { return now }, fixedID("swap-1"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if s.ID != "swap-1" || s.Status != StatusPending || s.OfferedSkill != "Guitar" || s.Message != "hola" {
		t.Fatalf("swap = %+v", s)
	}
}

func TestCreateValidation(t *testing.T) {
	tests := []struct {
		name  string
		input CreateInput
		code  apperrors.Code
	}{
		{name: "self", input: CreateInput{RequesterID: "a", RecipientID: "a", OfferedSkill: "x", WantedSkill: "y"}, code: apperrors.CodeSwapSelf},
		{name: "missing recipient", input: CreateInput{RequesterID: "a", OfferedSkill: "x", WantedSkill: "y"}, code: apperrors.CodeInvalidArgument},
		{name: "missing skill", input: CreateInput{RequesterID: "a", RecipientID: "b", OfferedSkill: "x"}, code: apperrors.CodeInvalidArgument},
		{name: "long message", input: CreateInput{RequesterID: "a", RecipientID: "b", OfferedSkill: "x", WantedSkill: "y", Message: strings.Repeat("m", 501)}, code: apperrors.CodeInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Create(tt.input, nil, fixedID("swap-1"))
			if got := apperrors.CodeOf(err); got != tt.code {
				t.Fatalf("code = %q, want %q (err=%v)", got, tt.code, err)
			}
		})
	}
}

func TestCheckSkillsCanonicalizesSpelling(t *testing.T) {
	s := Swap{OfferedSkill: "guitar", WantedSkill: "SPANISH"}
	got, err := CheckSkills(s, []string{"Guitar"}, []string{"Spanish", "French"})
	if err != nil {
		t.Fatalf("check skills: %v", err)
	}
	if got.OfferedSkill != "Guitar" || got.WantedSkill != "Spanish" {
		t.Fatalf("skills = %q/%q", got.OfferedSkill, got.WantedSkill)
	}
	if _, err := CheckSkills(s, []string{"Piano"}, []string{"Spanish"}); apperrors.CodeOf(err) != apperrors.CodeSwapSkillNotOffered {
		t.Fatalf("expected skill not offered, got %v", err)
	}
	if _, err := CheckSkills(s, []string{"Guitar"}, []string{"French"}); apperrors.CodeOf(err) != apperrors.CodeSwapSkillNotOffered {
		t.Fatalf("expected skill not offered, got %v", err)
	}
}

func TestTransition(t *testing.T) {
	const (
		requester = "user-a"
		recipient = "user-b"
		outsider  = "user-c"
	)
	tests := []struct {
		name   string
		status Status
		action Action
		actor  string
		want   Status
		code   apperrors.Code
	}{
		{name: "recipient accepts", status: StatusPending, action: ActionAccept, actor: recipient, want: StatusAccepted},
		{name: "recipient rejects", status: StatusPending, action: ActionReject, actor: recipient, want: StatusRejected},
		{name: "requester cannot accept", status: StatusPending, action: ActionAccept, actor: requester, code: apperrors.CodeForbidden},
		{name: "accept twice", status: StatusAccepted, action: ActionAccept, actor: recipient, code: apperrors.CodeSwapInvalidTransition},
		{name: "requester cancels pending", status: StatusPending, action: ActionCancel, actor: requester, want: StatusCancelled},
		{name: "recipient cannot cancel pending", status: StatusPending, action: ActionCancel, actor: recipient, code: apperrors.CodeForbidden},
		{name: "recipient cancels accepted", status: StatusAccepted, action: ActionCancel, actor: recipient, want: StatusCancelled},
		{name: "cancel completed", status: StatusCompleted, action: ActionCancel, actor: requester, code: apperrors.CodeSwapInvalidTransition},
		{name: "complete accepted", status: StatusAccepted, action: ActionComplete, actor: requester, want: StatusCompleted},
		{name: "complete pending", status: StatusPending, action: ActionComplete, actor: recipient, code: apperrors.CodeSwapInvalidTransition},
		{name: "requester deletes pending", status: StatusPending, action: ActionDelete, actor: requester, want: StatusPending},
		{name: "delete accepted", status: StatusAccepted, action: ActionDelete, actor: requester, code: apperrors.CodeSwapInvalidTransition},
		{name: "recipient cannot delete", status: StatusPending, action: ActionDelete, actor: recipient, code: apperrors.CodeForbidden},
		{name: "outsider hidden", status: StatusPending, action: ActionAccept, actor: outsider, code: apperrors.CodeNotFound},
		{name: "expired is terminal", status: StatusExpired, action: ActionAccept, actor: recipient, code: apperrors.CodeSwapInvalidTransition},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Swap{RequesterID: requester, RecipientID: recipient, Status: tt.status}
			got, err := Transition(s, tt.action, tt.actor)
			if tt.code != "" {
				if code := apperrors.CodeOf(err); code != tt.code {
					t.Fatalf("code = %q, want %q (err=%v)", code, tt.code, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("transition: %v", err)
			}
			if got != tt.want {
				t.Fatalf("status = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPartyHelpers(t *testing.T) {
	s := Swap{RequesterID: "a", RecipientID: "b", Status: StatusAccepted}
	if s.PartyOf("a") != PartyRequester || s.PartyOf("b") != PartyRecipient || s.PartyOf("") != PartyNone {
		t.Fatal("unexpected party mapping")
	}
	if s.Counterpart("a") != "b" || s.Counterpart("c") != "" {
		t.Fatal("unexpected counterpart")
	}
	if !s.ConversationOpen() {
		t.Fatal("accepted swap should open conversation")
	}
	s.Status = StatusPending
	if s.ConversationOpen() {
		t.Fatal("pending swap should not open conversation")
	}
}

func TestParseStatus(t *testing.T) {
	if status, err := ParseStatus(" Accepted "); err != nil || status != StatusAccepted {
		t.Fatalf("status = %q err = %v", status, err)
	}
	if _, err := ParseStatus("archived"); err == nil {
		t.Fatal("expected error")
	}
}
