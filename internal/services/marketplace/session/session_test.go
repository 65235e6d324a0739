package session

import (
	"testing"
	"time"

	apperrors "github.com/louisbranch/skillswap/internal/platform/errors"
)

var testNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func nowFn() time.Time { return testNow }

func idFn() (string, error) { return "sess-1", nil }

func TestScheduleGeneratesMeetingURL(t *testing.T) {
	s, err := Schedule(ScheduleInput{
		SwapID:          "swap-1",
		OrganizerID:     "user-a",
		Title:           "Intro",
		StartsAt:        "2026-03-02T10:00:00Z",
		DurationMinutes: 60,
	}, "https://meet.example.com/", nowFn, idFn)
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if s.MeetingURL != "https://meet.example.com/skillswap-sess-1" {
		t.Fatalf("meeting url = %q", s.MeetingURL)
	}
	if s.Status != StatusScheduled || s.EndsAt() != time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC) {
		t.Fatalf("session = %+v", s)
	}
}

func TestScheduleDefaultsTitleAndBaseURL(t *testing.T) {
	s, err := Schedule(ScheduleInput{StartsAt: "2026-03-02T10:00:00+02:00", DurationMinutes: 15}, "", nowFn, idFn)
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if s.Title == "" || s.MeetingURL != DefaultMeetingBaseURL+"/skillswap-sess-1" {
		t.Fatalf("session = %+v", s)
	}
	if s.StartsAt.Location() != time.UTC || s.StartsAt.Hour() != 8 {
		t.Fatalf("starts at = %v", s.StartsAt)
	}
}

func TestScheduleValidation(t *testing.T) {
	tests := []struct {
		name  string
		input ScheduleInput
	}{
		{name: "past start", input: ScheduleInput{StartsAt: "2026-02-28T10:00:00Z", DurationMinutes: 30}},
		{name: "bad timestamp", input: ScheduleInput{StartsAt: "tomorrow", DurationMinutes: 30}},
		{name: "too short", input: ScheduleInput{StartsAt: "2026-03-02T10:00:00Z", DurationMinutes: 10}},
		{name: "too long", input: ScheduleInput{StartsAt: "2026-03-02T10:00:00Z", DurationMinutes: 241}},
		{name: "relative meeting url", input: ScheduleInput{StartsAt: "2026-03-02T10:00:00Z", DurationMinutes: 30, MeetingURL: "/room"}},
		{name: "ftp meeting url", input: ScheduleInput{StartsAt: "2026-03-02T10:00:00Z", DurationMinutes: 30, MeetingURL: "ftp://host/room"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Schedule(tt.input, "", nowFn, idFn)
			if apperrors.CodeOf(err) != apperrors.CodeSessionInvalidSchedule {
				t.Fatalf("expected invalid schedule, got %v", err)
			}
		})
	}
}

func TestCheckOverlap(t *testing.T) {
	base := Session{ID: "a", StartsAt: testNow, DurationMinutes: 60, Status: StatusScheduled}
	tests := []struct {
		name    string
		other   Session
		overlap bool
	}{
		{name: "inside", other: Session{ID: "b", StartsAt: testNow.Add(15 * time.Minute), DurationMinutes: 15, Status: StatusScheduled}, overlap: true},
		{name: "back to back", other: Session{ID: "b", StartsAt: testNow.Add(time.Hour), DurationMinutes: 30, Status: StatusScheduled}},
		{name: "cancelled ignored", other: Session{ID: "b", StartsAt: testNow, DurationMinutes: 60, Status: StatusCancelled}},
		{name: "same id ignored", other: Session{ID: "a", StartsAt: testNow, DurationMinutes: 60, Status: StatusScheduled}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckOverlap(base, []Session{tt.other})
			if tt.overlap && apperrors.CodeOf(err) != apperrors.CodeSessionOverlap {
				t.Fatalf("expected overlap, got %v", err)
			}
			if !tt.overlap && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestFinish(t *testing.T) {
	s := Session{Status: StatusScheduled}
	if next, err := Finish(s, StatusCancelled); err != nil || next != StatusCancelled {
		t.Fatalf("finish = %q, %v", next, err)
	}
	s.Status = StatusCompleted
	if _, err := Finish(s, StatusCancelled); apperrors.CodeOf(err) != apperrors.CodeSessionInvalidStatus {
		t.Fatalf("expected invalid status, got %v", err)
	}
	if _, err := Finish(Session{Status: StatusScheduled}, StatusScheduled); err == nil {
		t.Fatal("expected unsupported target error")
	}
}
