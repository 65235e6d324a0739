package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/louisbranch/skillswap/internal/services/marketplace/feedback"
	"github.com/louisbranch/skillswap/internal/services/marketplace/profile"
	"github.com/louisbranch/skillswap/internal/services/marketplace/storage"
	"github.com/louisbranch/skillswap/internal/services/marketplace/swap"
	"github.com/louisbranch/skillswap/internal/services/marketplace/user"
)

// DefaultPassword is given to manifest users without their own password.
const DefaultPassword = "skillswap-demo"

const swapPageSize = 100

// Store is the subset of marketplace storage the runner writes through.
type Store interface {
	CreateUser(ctx context.Context, u user.User) (user.User, error)
	GetUserByEmail(ctx context.Context, email string) (user.User, error)
	GetProfile(ctx context.Context, userID string) (profile.Profile, error)
	PutProfile(ctx context.Context, p profile.Profile, at time.Time) error
	CreateSwap(ctx context.Context, record swap.Swap) error
	ListSwaps(ctx context.Context, filter storage.SwapFilter, limit int, offset int) (storage.Page[swap.Swap], error)
	UpdateSwapStatus(ctx context.Context, swapID string, from swap.Status, to swap.Status, at time.Time) (swap.Swap, error)
	CreateFeedback(ctx context.Context, record feedback.Feedback) error
}

// Config controls one seed run.
type Config struct {
	Password string
	Verbose  bool
	Out      io.Writer
	Now      func() time.Time
}

// Result counts the records a run created.
type Result struct {
	Users    int
	Swaps    int
	Feedback int
}

// Runner applies manifests to a store.
type Runner struct {
	store    Store
	password string
	verbose  bool
	out      io.Writer
	now      func() time.Time
}

// NewRunner builds a runner over store.
func NewRunner(store Store, cfg Config) (*Runner, error) {
	if store == nil {
		return nil, errors.New("seed store is required")
	}
	if strings.TrimSpace(cfg.Password) == "" {
		cfg.Password = DefaultPassword
	}
	if cfg.Out == nil {
		cfg.Out = io.Discard
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Runner{
		store:    store,
		password: cfg.Password,
		verbose:  cfg.Verbose,
		out:      cfg.Out,
		now:      cfg.Now,
	}, nil
}

// Run applies manifest and reports what was newly created.
func (r *Runner) Run(ctx context.Context, manifest Manifest) (Result, error) {
	if err := manifest.Validate(); err != nil {
		return Result{}, err
	}
	var result Result

	users := make(map[string]user.User, len(manifest.Users))
	for _, spec := range manifest.Users {
		u, created, err := r.applyUser(ctx, spec)
		if err != nil {
			return result, fmt.Errorf("seed user %q: %w", spec.Key, err)
		}
		if created {
			result.Users++
		}
		users[spec.Key] = u
	}

	swaps := make(map[string]swap.Swap, len(manifest.Swaps))
	for _, spec := range manifest.Swaps {
		s, created, err := r.applySwap(ctx, spec, users[spec.Requester].ID, users[spec.Recipient].ID)
		if err != nil {
			return result, fmt.Errorf("seed swap %q: %w", spec.Key, err)
		}
		if created {
			result.Swaps++
		}
		swaps[spec.Key] = s
	}

	for _, spec := range manifest.Feedback {
		created, err := r.applyFeedback(ctx, spec, swaps[spec.Swap], users[spec.From].ID)
		if err != nil {
			return result, fmt.Errorf("seed feedback on %q: %w", spec.Swap, err)
		}
		if created {
			result.Feedback++
		}
	}

	fmt.Fprintf(r.out, "seeded %q: %d users, %d swaps, %d feedback\n", manifest.Name, result.Users, result.Swaps, result.Feedback)
	return result, nil
}

func (r *Runner) logf(format string, args ...any) {
	if !r.verbose {
		return
	}
	fmt.Fprintf(r.out, format+"\n", args...)
}

func (r *Runner) applyUser(ctx context.Context, spec ManifestUser) (user.User, bool, error) {
	email, err := user.NormalizeEmail(spec.Email)
	if err != nil {
		return user.User{}, false, err
	}
	existing, err := r.store.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		r.logf("user %s exists", email)
		return existing, false, nil
	case !errors.Is(err, storage.ErrNotFound):
		return user.User{}, false, err
	}

	password := spec.Password
	if password == "" {
		password = r.password
	}
	role := user.RoleUser
	if spec.Admin {
		role = user.RoleAdmin
	}
	u, err := user.Register(user.RegisterInput{Email: email, Name: spec.Name, Password: password}, role, r.now, nil)
	if err != nil {
		return user.User{}, false, err
	}
	u, err = r.store.CreateUser(ctx, u)
	if err != nil {
		return user.User{}, false, err
	}

	current, err := r.store.GetProfile(ctx, u.ID)
	if err != nil {
		return user.User{}, false, fmt.Errorf("load profile: %w", err)
	}
	updated, err := profile.ApplyUpdate(current, profile.UpdateInput{
		Location:      spec.Profile.Location,
		Bio:           spec.Profile.Bio,
		Availability:  spec.Profile.Availability,
		Public:        spec.Profile.Public,
		SkillsOffered: spec.Profile.SkillsOffered,
		SkillsWanted:  spec.Profile.SkillsWanted,
	})
	if err != nil {
		return user.User{}, false, err
	}
	if err := r.store.PutProfile(ctx, updated, r.now().UTC()); err != nil {
		return user.User{}, false, fmt.Errorf("put profile: %w", err)
	}
	r.logf("created user %s (%s)", email, u.Role)
	return u, true, nil
}

func (r *Runner) applySwap(ctx context.Context, spec ManifestSwap, requesterID string, recipientID string) (swap.Swap, bool, error) {
	path, err := statusPath(spec.Status)
	if err != nil {
		return swap.Swap{}, false, err
	}

	current, found, err := r.findSwap(ctx, spec, requesterID, recipientID)
	if err != nil {
		return swap.Swap{}, false, err
	}
	created := false
	if !found {
		current, err = swap.Create(swap.CreateInput{
			RequesterID:  requesterID,
			RecipientID:  recipientID,
			OfferedSkill: spec.OfferedSkill,
			WantedSkill:  spec.WantedSkill,
			Message:      spec.Message,
		}, r.now, nil)
		if err != nil {
			return swap.Swap{}, false, err
		}
		if err := r.store.CreateSwap(ctx, current); err != nil {
			return swap.Swap{}, false, err
		}
		created = true
		r.logf("created swap %s", spec.Key)
	}

	remaining, err := remainingPath(current.Status, path)
	if err != nil {
		return swap.Swap{}, false, err
	}
	for _, next := range remaining {
		current, err = r.store.UpdateSwapStatus(ctx, current.ID, current.Status, next, r.now().UTC())
		if err != nil {
			return swap.Swap{}, false, fmt.Errorf("move to %s: %w", next, err)
		}
		r.logf("swap %s is %s", spec.Key, next)
	}
	return current, created, nil
}

func (r *Runner) findSwap(ctx context.Context, spec ManifestSwap, requesterID string, recipientID string) (swap.Swap, bool, error) {
	offeredKey := profile.SkillKey(spec.OfferedSkill)
	wantedKey := profile.SkillKey(spec.WantedSkill)
	for offset := 0; ; offset += swapPageSize {
		page, err := r.store.ListSwaps(ctx, storage.SwapFilter{UserID: requesterID, Role: swap.PartyRequester}, swapPageSize, offset)
		if err != nil {
			return swap.Swap{}, false, fmt.Errorf("list swaps: %w", err)
		}
		for _, s := range page.Items {
			if s.RecipientID == recipientID && profile.SkillKey(s.OfferedSkill) == offeredKey && profile.SkillKey(s.WantedSkill) == wantedKey {
				return s, true, nil
			}
		}
		if !page.HasMore {
			return swap.Swap{}, false, nil
		}
	}
}

// remainingPath returns the steps of path still ahead of current.
func remainingPath(current swap.Status, path []swap.Status) ([]swap.Status, error) {
	if current == swap.StatusPending {
		return path, nil
	}
	for i, step := range path {
		if step == current {
			return path[i+1:], nil
		}
	}
	target := swap.StatusPending
	if len(path) > 0 {
		target = path[len(path)-1]
	}
	return nil, fmt.Errorf("existing swap is %s and cannot become %s", current, target)
}

func (r *Runner) applyFeedback(ctx context.Context, spec ManifestFeedback, s swap.Swap, fromUserID string) (bool, error) {
	record, err := feedback.Create(feedback.CreateInput{
		SwapID:     s.ID,
		FromUserID: fromUserID,
		ToUserID:   s.Counterpart(fromUserID),
		Rating:     spec.Rating,
		Comment:    spec.Comment,
	}, r.now, nil)
	if err != nil {
		return false, err
	}
	if err := r.store.CreateFeedback(ctx, record); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			r.logf("feedback on %s from %s exists", spec.Swap, spec.From)
			return false, nil
		}
		return false, err
	}
	r.logf("rated swap %s from %s", spec.Swap, spec.From)
	return true, nil
}
