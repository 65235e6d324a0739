// Package profile normalizes the skills and availability a member advertises.
package profile

import (
	"fmt"
	"strings"
	"unicode/utf8"

	apperrors "github.com/louisbranch/skillswap/internal/platform/errors"
	"golang.org/x/text/cases"
)

// Availability is one coarse time window a member can swap in.
type Availability string

const (
	AvailabilityWeekdays   Availability = "weekdays"
	AvailabilityWeekends   Availability = "weekends"
	AvailabilityMornings   Availability = "mornings"
	AvailabilityAfternoons Availability = "afternoons"
	AvailabilityEvenings   Availability = "evenings"
)

// SkillKind selects one of the two skill lists on a profile.
type SkillKind string

const (
	SkillsOffered SkillKind = "offered"
	SkillsWanted  SkillKind = "wanted"
)

const (
	// MaxSkills bounds each skill list.
	MaxSkills         = 20
	maxSkillRunes     = 48
	maxBioRunes       = 280
	maxLocationRunes  = 64
	maxAvailabilities = 5
)

var availabilities = map[Availability]struct{}{
	AvailabilityWeekdays:   {},
	AvailabilityWeekends:   {},
	AvailabilityMornings:   {},
	AvailabilityAfternoons: {},
	AvailabilityEvenings:   {},
}

// Profile is the public marketplace card of a member.
type Profile struct {
	UserID        string
	Name          string
	Location      string
	Bio           string
	Availability  []Availability
	Public        bool
	SkillsOffered []string
	SkillsWanted  []string
	RatingAverage float64
	RatingCount   int
}

// UpdateInput carries the editable profile fields.
type UpdateInput struct {
	Location      string
	Bio           string
	Availability  []string
	Public        bool
	SkillsOffered []string
	SkillsWanted  []string
}

// ParseAvailability validates one availability value.
func ParseAvailability(value string) (Availability, error) {
	normalized := Availability(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := availabilities[normalized]; !ok {
		return "", apperrors.WithMetadata(apperrors.CodeProfileInvalid, fmt.Sprintf("unknown availability %q", value), map[string]string{"Field": "availability"})
	}
	return normalized, nil
}

// ParseSkillKind validates a skill list selector.
func ParseSkillKind(value string) (SkillKind, error) {
	switch SkillKind(strings.ToLower(strings.TrimSpace(value))) {
	case SkillsOffered:
		return SkillsOffered, nil
	case SkillsWanted:
		return SkillsWanted, nil
	default:
		return "", apperrors.WithMetadata(apperrors.CodeInvalidArgument, "kind must be offered or wanted", map[string]string{"Field": "kind"})
	}
}

// SkillKey returns the case-folded comparison key of a skill name.
func SkillKey(skill string) string {
	return cases.Fold().String(CleanSkill(skill))
}

// CleanSkill trims a skill name and collapses inner whitespace.
func CleanSkill(skill string) string {
	return strings.Join(strings.Fields(skill), " ")
}

// NormalizeSkills cleans, validates, and deduplicates a skill list.
// The first spelling of a case-folded duplicate wins.
func NormalizeSkills(skills []string) ([]string, error) {
	out := make([]string, 0, len(skills))
	seen := make(map[string]struct{}, len(skills))
	folder := cases.Fold()
	for _, raw := range skills {
		skill := CleanSkill(raw)
		if skill == "" || utf8.RuneCountInString(skill) > maxSkillRunes {
			return nil, apperrors.WithMetadata(apperrors.CodeProfileInvalid, "skills must be 1-48 characters", map[string]string{"Field": "skills"})
		}
		key := folder.String(skill)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, skill)
	}
	if len(out) > MaxSkills {
		return nil, apperrors.New(apperrors.CodeProfileSkillLimit, fmt.Sprintf("at most %d skills per list", MaxSkills))
	}
	return out, nil
}

// ContainsSkill reports whether skills contains skill after folding.
func ContainsSkill(skills []string, skill string) bool {
	key := SkillKey(skill)
	if key == "" {
		return false
	}
	for _, candidate := range skills {
		if SkillKey(candidate) == key {
			return true
		}
	}
	return false
}

// ApplyUpdate validates input and returns p with the editable fields replaced.
func ApplyUpdate(p Profile, input UpdateInput) (Profile, error) {
	location := strings.TrimSpace(input.Location)
	if utf8.RuneCountInString(location) > maxLocationRunes {
		return Profile{}, apperrors.WithMetadata(apperrors.CodeProfileInvalid, "location must be at most 64 characters", map[string]string{"Field": "location"})
	}
	bio := strings.TrimSpace(input.Bio)
	if utf8.RuneCountInString(bio) > maxBioRunes {
		return Profile{}, apperrors.WithMetadata(apperrors.CodeProfileInvalid, "bio must be at most 280 characters", map[string]string{"Field": "bio"})
	}

	availability := make([]Availability, 0, len(input.Availability))
	seen := make(map[Availability]struct{}, maxAvailabilities)
	for _, raw := range input.Availability {
		value, err := ParseAvailability(raw)
		if err != nil {
			return Profile{}, err
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		availability = append(availability, value)
	}

	offered, err := NormalizeSkills(input.SkillsOffered)
	if err != nil {
		return Profile{}, err
	}
	wanted, err := NormalizeSkills(input.SkillsWanted)
	if err != nil {
		return Profile{}, err
	}

	p.Location = location
	p.Bio = bio
	p.Availability = availability
	p.Public = input.Public
	p.SkillsOffered = offered
	p.SkillsWanted = wanted
	return p, nil
}

// HasAvailability reports whether p lists value.
func (p Profile) HasAvailability(value Availability) bool {
	for _, candidate := range p.Availability {
		if candidate == value {
			return true
		}
	}
	return false
}
