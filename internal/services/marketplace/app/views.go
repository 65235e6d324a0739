package server

import (
	"time"

	"github.com/louisbranch/skillswap/internal/services/marketplace/feedback"
	"github.com/louisbranch/skillswap/internal/services/marketplace/message"
	"github.com/louisbranch/skillswap/internal/services/marketplace/profile"
	"github.com/louisbranch/skillswap/internal/services/marketplace/session"
	"github.com/louisbranch/skillswap/internal/services/marketplace/storage"
	"github.com/louisbranch/skillswap/internal/services/marketplace/swap"
	"github.com/louisbranch/skillswap/internal/services/marketplace/user"
)

type listResponse[T any] struct {
	Items         []T    `json:"items"`
	NextPageToken string `json:"next_page_token,omitempty"`
}

func mapItems[S any, T any](items []S, fn func(S) T) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		out = append(out, fn(item))
	}
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

type userView struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	Banned    bool   `json:"banned"`
	BanReason string `json:"ban_reason,omitempty"`
	CreatedAt string `json:"created_at"`
}

func newUserView(u user.User) userView {
	return userView{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      string(u.Role),
		Banned:    u.Banned,
		BanReason: u.BanReason,
		CreatedAt: formatTime(u.CreatedAt),
	}
}

type profileView struct {
	UserID        string   `json:"user_id"`
	Name          string   `json:"name"`
	Location      string   `json:"location"`
	Bio           string   `json:"bio"`
	Availability  []string `json:"availability"`
	Public        bool     `json:"public"`
	SkillsOffered []string `json:"skills_offered"`
	SkillsWanted  []string `json:"skills_wanted"`
	RatingAverage float64  `json:"rating_average"`
	RatingCount   int      `json:"rating_count"`
}

func newProfileView(p profile.Profile) profileView {
	return profileView{
		UserID:        p.UserID,
		Name:          p.Name,
		Location:      p.Location,
		Bio:           p.Bio,
		Availability:  mapItems(p.Availability, func(a profile.Availability) string { return string(a) }),
		Public:        p.Public,
		SkillsOffered: append([]string{}, p.SkillsOffered...),
		SkillsWanted:  append([]string{}, p.SkillsWanted...),
		RatingAverage: p.RatingAverage,
		RatingCount:   p.RatingCount,
	}
}

type swapView struct {
	ID           string `json:"id"`
	RequesterID  string `json:"requester_id"`
	RecipientID  string `json:"recipient_id"`
	OfferedSkill string `json:"offered_skill"`
	WantedSkill  string `json:"wanted_skill"`
	Message      string `json:"message,omitempty"`
	Status       string `json:"status"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

func newSwapView(s swap.Swap) swapView {
	return swapView{
		ID:           s.ID,
		RequesterID:  s.RequesterID,
		RecipientID:  s.RecipientID,
		OfferedSkill: s.OfferedSkill,
		WantedSkill:  s.WantedSkill,
		Message:      s.Message,
		Status:       string(s.Status),
		CreatedAt:    formatTime(s.CreatedAt),
		UpdatedAt:    formatTime(s.UpdatedAt),
	}
}

type sessionView struct {
	ID              string `json:"id"`
	SwapID          string `json:"swap_id"`
	OrganizerID     string `json:"organizer_id"`
	Title           string `json:"title"`
	StartsAt        string `json:"starts_at"`
	EndsAt          string `json:"ends_at"`
	DurationMinutes int    `json:"duration_minutes"`
	MeetingURL      string `json:"meeting_url"`
	Status          string `json:"status"`
	Transcript      string `json:"transcript,omitempty"`
	Summary         string `json:"summary,omitempty"`
	CreatedAt       string `json:"created_at"`
	UpdatedAt       string `json:"updated_at"`
}

func newSessionView(s session.Session) sessionView {
	return sessionView{
		ID:              s.ID,
		SwapID:          s.SwapID,
		OrganizerID:     s.OrganizerID,
		Title:           s.Title,
		StartsAt:        formatTime(s.StartsAt),
		EndsAt:          formatTime(s.EndsAt()),
		DurationMinutes: s.DurationMinutes,
		MeetingURL:      s.MeetingURL,
		Status:          string(s.Status),
		Transcript:      s.Transcript,
		Summary:         s.Summary,
		CreatedAt:       formatTime(s.CreatedAt),
		UpdatedAt:       formatTime(s.UpdatedAt),
	}
}

type messageView struct {
	MessageID       string `json:"message_id"`
	SwapID          string `json:"swap_id"`
	SenderID        string `json:"sender_id"`
	Body            string `json:"body"`
	ClientMessageID string `json:"client_message_id,omitempty"`
	SequenceID      int64  `json:"sequence_id"`
	SentAt          string `json:"sent_at"`
	ReadAt          string `json:"read_at,omitempty"`
}

func newMessageView(m message.Message) messageView {
	view := messageView{
		MessageID:       m.ID,
		SwapID:          m.SwapID,
		SenderID:        m.SenderID,
		Body:            m.Body,
		ClientMessageID: m.ClientMessageID,
		SequenceID:      m.SequenceID,
		SentAt:          formatTime(m.CreatedAt),
	}
	if m.ReadAt != nil {
		view.ReadAt = formatTime(*m.ReadAt)
	}
	return view
}

type feedbackView struct {
	ID         string `json:"id"`
	SwapID     string `json:"swap_id"`
	FromUserID string `json:"from_user_id"`
	ToUserID   string `json:"to_user_id"`
	Rating     int    `json:"rating"`
	Comment    string `json:"comment,omitempty"`
	CreatedAt  string `json:"created_at"`
}

func newFeedbackView(f feedback.Feedback) feedbackView {
	return feedbackView{
		ID:         f.ID,
		SwapID:     f.SwapID,
		FromUserID: f.FromUserID,
		ToUserID:   f.ToUserID,
		Rating:     f.Rating,
		Comment:    f.Comment,
		CreatedAt:  formatTime(f.CreatedAt),
	}
}

type announcementView struct {
	ID        string `json:"id"`
	AuthorID  string `json:"author_id"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	CreatedAt string `json:"created_at"`
}

func newAnnouncementView(a storage.Announcement) announcementView {
	return announcementView{
		ID:        a.ID,
		AuthorID:  a.AuthorID,
		Title:     a.Title,
		Body:      a.Body,
		CreatedAt: formatTime(a.CreatedAt),
	}
}

type activityReportView struct {
	Users struct {
		Total  int `json:"total"`
		Banned int `json:"banned"`
	} `json:"users"`
	SwapsByStatus    map[string]int `json:"swaps_by_status"`
	SessionsByStatus map[string]int `json:"sessions_by_status"`
	Feedback         struct {
		Count         int     `json:"count"`
		AverageRating float64 `json:"average_rating"`
	} `json:"feedback"`
	MessageCount int `json:"message_count"`
}

func newActivityReportView(report storage.ActivityReport) activityReportView {
	var view activityReportView
	view.Users.Total = report.UsersTotal
	view.Users.Banned = report.UsersBanned
	view.SwapsByStatus = make(map[string]int, len(report.SwapsByStatus))
	for status, count := range report.SwapsByStatus {
		view.SwapsByStatus[string(status)] = count
	}
	view.SessionsByStatus = make(map[string]int, len(report.SessionsByStatus))
	for status, count := range report.SessionsByStatus {
		view.SessionsByStatus[string(status)] = count
	}
	view.Feedback.Count = report.FeedbackCount
	view.Feedback.AverageRating = report.AverageRating
	view.MessageCount = report.MessageCount
	return view
}
