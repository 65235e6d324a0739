package profile

import (
	"fmt"
	"strings"
	"testing"

	apperrors "github.com/louisbranch/skillswap/internal/platform/errors"
)

func TestNormalizeSkillsDeduplicatesByFoldedKey(t *testing.T) {
	got, err := NormalizeSkills([]string{"  Go  Programming ", "go programming", "École", "ÉCOLE", "Piano"})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	want := []string{"Go Programming", "École", "Piano"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("skills = %q, want %q", got, want)
	}
}

func TestNormalizeSkillsRejectsInvalid(t *testing.T) {
	if _, err := NormalizeSkills([]string{"   "}); apperrors.CodeOf(err) != apperrors.CodeProfileInvalid {
		t.Fatalf("expected profile invalid for blank skill, got %v", err)
	}
	if _, err := NormalizeSkills([]string{strings.Repeat("x", 49)}); apperrors.CodeOf(err) != apperrors.CodeProfileInvalid {
		t.Fatalf("expected profile invalid for long skill, got %v", err)
	}
	many := make([]string, 0, MaxSkills+1)
	for i := 0; i <= MaxSkills; i++ {
		many = append(many, fmt.Sprintf("skill %d", i))
	}
	if _, err := NormalizeSkills(many); apperrors.CodeOf(err) != apperrors.CodeProfileSkillLimit {
		t.Fatalf("expected skill limit, got %v", err)
	}
}

func TestContainsSkill(t *testing.T) {
	skills := []string{"Guitar", "Spanish"}
	if !ContainsSkill(skills, " guitar ") {
		t.Fatal("expected folded match")
	}
	if ContainsSkill(skills, "") {
		t.Fatal("empty skill must not match")
	}
	if ContainsSkill(skills, "Chess") {
		t.Fatal("unexpected match")
	}
}

func TestApplyUpdate(t *testing.T) {
	base := Profile{UserID: "user-1", Name: "Ada", RatingAverage: 4.5, RatingCount: 2}
	got, err := ApplyUpdate(base, UpdateInput{
		Location:      " London ",
		Bio:           "Mathematician",
		Availability:  []string{"Evenings", "weekends", "evenings"},
		Public:        true,
		SkillsOffered: []string{"Math"},
		SkillsWanted:  []string{"Poetry"},
	})
	if err != nil {
		t.Fatalf("apply update: %v", err)
	}
	if got.Location != "London" || !got.Public || got.RatingCount != 2 {
		t.Fatalf("profile = %+v", got)
	}
	if len(got.Availability) != 2 || !got.HasAvailability(AvailabilityEvenings) {
		t.Fatalf("availability = %v", got.Availability)
	}
}

func TestApplyUpdateValidation(t *testing.T) {
	tests := []struct {
		name  string
		input UpdateInput
	}{
		{name: "long bio", input: UpdateInput{Bio: strings.Repeat("b", 281)}},
		{name: "long location", input: UpdateInput{Location: strings.Repeat("l", 65)}},
		{name: "bad availability", input: UpdateInput{Availability: []string{"midnight"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ApplyUpdate(Profile{}, tt.input); apperrors.CodeOf(err) != apperrors.CodeProfileInvalid {
				t.Fatalf("expected profile invalid, got %v", err)
			}
		})
	}
}

func TestParseSkillKind(t *testing.T) {
	if kind, err := ParseSkillKind(" Offered "); err != nil || kind != SkillsOffered {
		t.Fatalf("kind = %q err = %v", kind, err)
	}
	if _, err := ParseSkillKind("both"); err == nil {
		t.Fatal("expected invalid kind")
	}
}
