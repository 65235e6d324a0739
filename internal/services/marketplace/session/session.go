// Package session schedules video sessions between the parties of a swap.
package session

import (
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	apperrors "github.com/louisbranch/skillswap/internal/platform/errors"
	"github.com/louisbranch/skillswap/internal/platform/id"
)

// Status is the lifecycle state of a session.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

const (
	MinDurationMinutes = 15
	MaxDurationMinutes = 240
	maxTitleRunes      = 120

	// DefaultMeetingBaseURL hosts generated meeting rooms.
	DefaultMeetingBaseURL = "https://meet.jit.si"

	// CompletionGrace is how long after its end a scheduled session is
	// auto-completed.
	CompletionGrace = time.Hour
)

// Session is one scheduled call for a swap.
type Session struct {
	ID              string
	SwapID          string
	OrganizerID     string
	Title           string
	StartsAt        time.Time
	DurationMinutes int
	MeetingURL      string
	Status          Status
	Transcript      string
	Summary         string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// EndsAt returns the scheduled end time.
func (s Session) EndsAt() time.Time {
	return s.StartsAt.Add(time.Duration(s.DurationMinutes) * time.Minute)
}

// Overlaps reports whether the two sessions' time ranges intersect.
func (s Session) Overlaps(other Session) bool {
	return s.StartsAt.Before(other.EndsAt()) && other.StartsAt.Before(s.EndsAt())
}

// ScheduleInput describes a scheduling request.
type ScheduleInput struct {
	SwapID          string
	OrganizerID     string
	Title           string
	StartsAt        string
	DurationMinutes int
	MeetingURL      string
}

// ParseStatus validates a status filter value.
func ParseStatus(value string) (Status, error) {
	status := Status(strings.ToLower(strings.TrimSpace(value)))
	switch status {
	case StatusScheduled, StatusCancelled, StatusCompleted:
		return status, nil
	default:
		return "", apperrors.WithMetadata(apperrors.CodeInvalidArgument, fmt.Sprintf("unknown session status %q", value), map[string]string{"Field": "status"})
	}
}

// Schedule validates input and builds a scheduled session.
// An empty meeting URL gets a generated room under meetingBaseURL.
func Schedule(input ScheduleInput, meetingBaseURL string, now func() time.Time, idGenerator func() (string, error)) (Session, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}
	title := strings.TrimSpace(input.Title)
	if utf8.RuneCountInString(title) > maxTitleRunes {
		return Session{}, invalidSchedule("title must be at most 120 characters", "title")
	}
	startsAt, err := time.Parse(time.RFC3339, strings.TrimSpace(input.StartsAt))
	if err != nil {
		return Session{}, invalidSchedule("starts_at must be an RFC3339 timestamp", "starts_at")
	}
	createdAt := now().UTC()
	if !startsAt.After(createdAt) {
		return Session{}, invalidSchedule("starts_at must be in the future", "starts_at")
	}
	if input.DurationMinutes < MinDurationMinutes || input.DurationMinutes > MaxDurationMinutes {
		return Session{}, invalidSchedule(fmt.Sprintf("duration_minutes must be %d-%d", MinDurationMinutes, MaxDurationMinutes), "duration_minutes")
	}

	sessionID, err := idGenerator()
	if err != nil {
		return Session{}, fmt.Errorf("generate session id: %w", err)
	}

	meetingURL := strings.TrimSpace(input.MeetingURL)
	if meetingURL == "" {
		meetingURL = MeetingURL(meetingBaseURL, sessionID)
	} else if err := validateMeetingURL(meetingURL); err != nil {
		return Session{}, err
	}
	if title == "" {
		title = "Skill swap session"
	}

	return Session{
		ID:              sessionID,
		SwapID:          strings.TrimSpace(input.SwapID),
		OrganizerID:     strings.TrimSpace(input.OrganizerID),
		Title:           title,
		StartsAt:        startsAt.UTC(),
		DurationMinutes: input.DurationMinutes,
		MeetingURL:      meetingURL,
		Status:          StatusScheduled,
		CreatedAt:       createdAt,
		UpdatedAt:       createdAt,
	}, nil
}

// MeetingURL builds the generated meeting room link of a session.
func MeetingURL(baseURL string, sessionID string) string {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultMeetingBaseURL
	}
	return baseURL + "/skillswap-" + sessionID
}

func validateMeetingURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return invalidSchedule("meeting_url must be an absolute http(s) URL", "meeting_url")
	}
	return nil
}

// CheckOverlap returns SESSION_OVERLAP when candidate intersects any scheduled session.
func CheckOverlap(candidate Session, existing []Session) error {
	for _, other := range existing {
		if other.ID == candidate.ID || other.Status != StatusScheduled {
			continue
		}
		if candidate.Overlaps(other) {
			return apperrors.WithMetadata(apperrors.CodeSessionOverlap, "session overlaps another scheduled session", map[string]string{"SessionID": other.ID})
		}
	}
	return nil
}

// Finish moves a scheduled session to next (cancelled or completed).
func Finish(s Session, next Status) (Status, error) {
	if next != StatusCancelled && next != StatusCompleted {
		return "", fmt.Errorf("unsupported session target status %q", next)
	}
	if s.Status != StatusScheduled {
		return "", apperrors.WithMetadata(apperrors.CodeSessionInvalidStatus, fmt.Sprintf("session is %s", s.Status), map[string]string{"Status": string(s.Status)})
	}
	return next, nil
}

// CompletionCutoff returns the end time before which scheduled sessions are
// auto-completed.
func CompletionCutoff(now time.Time) time.Time {
	return now.UTC().Add(-CompletionGrace)
}

func invalidSchedule(message string, field string) error {
	return apperrors.WithMetadata(apperrors.CodeSessionInvalidSchedule, message, map[string]string{"Field": field})
}
