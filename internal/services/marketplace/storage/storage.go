// Package storage declares marketplace persistence contracts.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/louisbranch/skillswap/internal/services/marketplace/feedback"
	"github.com/louisbranch/skillswap/internal/services/marketplace/message"
	"github.com/louisbranch/skillswap/internal/services/marketplace/profile"
	"github.com/louisbranch/skillswap/internal/services/marketplace/session"
	"github.com/louisbranch/skillswap/internal/services/marketplace/swap"
	"github.com/louisbranch/skillswap/internal/services/marketplace/user"
)

var (
	// ErrNotFound indicates a requested record is missing.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists indicates a write collided with a uniqueness constraint.
	ErrAlreadyExists = errors.New("record already exists")
	// ErrStale indicates a conditional update found the record in another state.
	ErrStale = errors.New("record state changed")
)

// Page is one offset page of records.
type Page[T any] struct {
	Items   []T
	HasMore bool
}

// UserFilter narrows admin user listings.
type UserFilter struct {
	Query  string
	Banned *bool
}

// ProfileFilter narrows the public profile browser.
type ProfileFilter struct {
	ExcludeUserID string
	SkillKey      string
	Availability  profile.Availability
}

// SwapFilter narrows swap listings. An empty UserID lists all swaps.
type SwapFilter struct {
	UserID string
	Role   swap.Party
	Status swap.Status
}

// SessionFilter narrows session listings to swaps involving UserID.
type SessionFilter struct {
	UserID string
	Status session.Status
}

// Announcement is one admin broadcast shown to all members.
type Announcement struct {
	ID        string
	AuthorID  string
	Title     string
	Body      string
	CreatedAt time.Time
}

// ActivityReport aggregates marketplace activity for admins.
type ActivityReport struct {
	UsersTotal       int
	UsersBanned      int
	SwapsByStatus    map[swap.Status]int
	SessionsByStatus map[session.Status]int
	FeedbackCount    int
	AverageRating    float64
	MessageCount     int
}

// UserStore persists identities.
type UserStore interface {
	// CreateUser inserts u with an empty profile. The first user ever created
	// is stored as admin regardless of u.Role.
	CreateUser(ctx context.Context, u user.User) (user.User, error)
	GetUser(ctx context.Context, userID string) (user.User, error)
	GetUserByEmail(ctx context.Context, email string) (user.User, error)
	ListUsers(ctx context.Context, filter UserFilter, limit int, offset int) (Page[user.User], error)
	// SetUserBan updates the ban flag. Banning also cancels the user's pending
	// swaps and returns how many were cancelled.
	SetUserBan(ctx context.Context, userID string, banned bool, reason string, at time.Time) (user.User, int, error)
}

// ProfileStore persists public profiles.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (profile.Profile, error)
	PutProfile(ctx context.Context, p profile.Profile, at time.Time) error
	// RemoveProfileSkill deletes one skill from a profile list in a single
	// statement and reports whether it was present. It returns ErrNotFound
	// when the profile does not exist.
	RemoveProfileSkill(ctx context.Context, userID string, kind profile.SkillKind, skill string, at time.Time) (bool, error)
	ListProfiles(ctx context.Context, filter ProfileFilter, limit int, offset int) (Page[profile.Profile], error)
}

// SwapStore persists swap requests.
type SwapStore interface {
	// CreateSwap returns ErrAlreadyExists when an equivalent pending swap exists.
	CreateSwap(ctx context.Context, s swap.Swap) error
	GetSwap(ctx context.Context, swapID string) (swap.Swap, error)
	ListSwaps(ctx context.Context, filter SwapFilter, limit int, offset int) (Page[swap.Swap], error)
	// UpdateSwapStatus moves a swap from one status to another and returns
	// ErrStale when the current status is not from.
	UpdateSwapStatus(ctx context.Context, swapID string, from swap.Status, to swap.Status, at time.Time) (swap.Swap, error)
	DeleteSwap(ctx context.Context, swapID string, from swap.Status) error
	ExpirePendingSwaps(ctx context.Context, createdBefore time.Time, at time.Time) (int64, error)
}

// SessionStore persists scheduled sessions.
type SessionStore interface {
	// CreateSession inserts s unless it overlaps another scheduled session of
	// the same swap.
	CreateSession(ctx context.Context, s session.Session) error
	GetSession(ctx context.Context, sessionID string) (session.Session, error)
	ListSessions(ctx context.Context, filter SessionFilter, limit int, offset int) (Page[session.Session], error)
	UpdateSessionStatus(ctx context.Context, sessionID string, from session.Status, to session.Status, at time.Time) (session.Session, error)
	SetSessionSummary(ctx context.Context, sessionID string, transcript string, summary string, at time.Time) (session.Session, error)
	CompleteEndedSessions(ctx context.Context, endedBefore time.Time, at time.Time) (int64, error)
}

// MessageStore persists swap conversations.
type MessageStore interface {
	// AppendMessage assigns the next sequence id and inserts m. A resend with
	// the same client message id returns the stored message and true.
	AppendMessage(ctx context.Context, m message.Message) (message.Message, bool, error)
	// GetMessageByClientID returns ErrNotFound when the sender never used
	// clientMessageID in the swap.
	GetMessageByClientID(ctx context.Context, swapID string, senderID string, clientMessageID string) (message.Message, error)
	ListMessagesBefore(ctx context.Context, swapID string, beforeSequenceID int64, limit int) ([]message.Message, error)
	LatestSequenceID(ctx context.Context, swapID string) (int64, error)
	MarkMessagesRead(ctx context.Context, swapID string, readerID string, at time.Time) (int64, error)
}

// FeedbackStore persists ratings.
type FeedbackStore interface {
	// CreateFeedback returns ErrAlreadyExists for a second rating of the same
	// swap by the same author.
	CreateFeedback(ctx context.Context, f feedback.Feedback) error
	ListFeedbackForUser(ctx context.Context, userID string, limit int, offset int) (Page[feedback.Feedback], error)
}

// AdminStore persists announcements and serves reports.
type AdminStore interface {
	CreateAnnouncement(ctx context.Context, a Announcement) error
	ListAnnouncements(ctx context.Context, limit int, offset int) (Page[Announcement], error)
	ActivityReport(ctx context.Context) (ActivityReport, error)
}

// Store is the full marketplace persistence surface.
type Store interface {
	UserStore
	ProfileStore
	SwapStore
	SessionStore
	MessageStore
	FeedbackStore
	AdminStore
}
